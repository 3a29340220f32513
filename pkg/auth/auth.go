package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
)

const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)

type Config struct {
	Secret   string        `json:"-" envconfig:"JWT_SECRET" default:"change-me"`
	TokenTTL time.Duration `envconfig:"JWT_TTL" default:"24h"`
}

type Profile struct {
	UserID int64    `json:"userId"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
}

type Claims struct {
	Profile Profile `json:"profile"`
	jwt.RegisteredClaims
}

var (
	ErrNoProfile   = errors.New("no auth profile in context")
	ErrUnknownUser = errors.New("unknown user")
	ErrInactive    = errors.New("account is deactivated")
)

type Signer struct {
	key []byte
	ttl time.Duration
}

func NewSigner(cfg Config) *Signer {
	return &Signer{key: []byte(cfg.Secret), ttl: cfg.TokenTTL}
}

// Sign issues an HS256 token for the profile and returns it with its expiry.
func (s *Signer) Sign(p Profile, now time.Time) (string, time.Time, error) {
	exp := now.Add(s.ttl)
	claims := &Claims{
		Profile: p,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "SignedString")
	}
	return token, exp, nil
}

func (s *Signer) Parse(tokenStr string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

type ctxKey struct{}

func SetAuthContext(ctx context.Context, p Profile) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func GetProfile(ctx context.Context) (Profile, error) {
	p, ok := ctx.Value(ctxKey{}).(Profile)
	if !ok {
		return Profile{}, ErrNoProfile
	}
	return p, nil
}

func IsAdmin(ctx context.Context) bool {
	p, err := GetProfile(ctx)
	if err != nil {
		return false
	}
	return HasRole(p.Roles, RoleAdmin)
}

func HasRole(roles []string, role string) bool {
	for i := range roles {
		if roles[i] == role {
			return true
		}
	}
	return false
}
