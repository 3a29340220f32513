package service

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Astemirdum/library-loan-service/library/internal/errs"
	"github.com/Astemirdum/library-loan-service/library/internal/model"
	"github.com/Astemirdum/library-loan-service/library/internal/repository"
	"github.com/Astemirdum/library-loan-service/pkg/auth"
)

type TokenSigner interface {
	Sign(p auth.Profile, now time.Time) (string, time.Time, error)
}

type UserService struct {
	log      *zap.Logger
	repo     repository.UserRepository
	signer   TokenSigner
	maxLoans int
	now      func() time.Time
}

func NewUserService(repo repository.UserRepository, signer TokenSigner, maxLoans int, log *zap.Logger, opts ...Option) *UserService {
	o := newOptions(opts)
	return &UserService{
		log:      log.Named("users"),
		repo:     repo,
		signer:   signer,
		maxLoans: maxLoans,
		now:      o.now,
	}
}

func (s *UserService) Register(ctx context.Context, req model.RegisterRequest) (model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, errors.Wrap(err, "bcrypt")
	}
	user, err := s.repo.CreateUser(ctx, model.User{
		Email:        normalizeEmail(req.Email),
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Phone:        req.Phone,
		IsActive:     true,
		IsAdmin:      req.IsAdmin,
		MaxLoans:     s.maxLoans,
	})
	if err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return model.User{}, errors.Wrap(err, "email is already registered")
		}
		return model.User{}, err
	}
	s.log.Info("user registered", zap.Int64("user_id", user.ID), zap.Bool("admin", user.IsAdmin))
	return user, nil
}

func (s *UserService) Authorize(ctx context.Context, req model.AuthRequest) (model.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			s.log.Warn("login failed", zap.String("email", email), zap.String("reason", "unknown email"))
			return model.AuthResponse{}, errs.ErrInvalidCredentials
		}
		return model.AuthResponse{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.log.Warn("login failed", zap.String("email", email), zap.String("reason", "bad password"))
		return model.AuthResponse{}, errs.ErrInvalidCredentials
	}
	if !user.IsActive {
		s.log.Warn("login failed", zap.String("email", email), zap.String("reason", "inactive"))
		return model.AuthResponse{}, errors.Wrap(errs.ErrForbidden, "account is deactivated")
	}
	token, exp, err := s.signer.Sign(user.Profile(), s.now())
	if err != nil {
		return model.AuthResponse{}, err
	}
	s.log.Info("login", zap.String("email", email), zap.Int64("user_id", user.ID))
	return model.AuthResponse{AccessToken: token, ExpiresAt: exp}, nil
}

// LoadProfile rebuilds the profile from the stored account. Admin checks and
// capabilities both read it, never the roles frozen in a token.
func (s *UserService) LoadProfile(ctx context.Context, userID int64) (auth.Profile, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return auth.Profile{}, auth.ErrUnknownUser
		}
		return auth.Profile{}, err
	}
	if !user.IsActive {
		return auth.Profile{}, auth.ErrInactive
	}
	return user.Profile(), nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (model.User, error) {
	return s.repo.GetUser(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context, page, size int) ([]model.User, error) {
	return s.repo.ListUsers(ctx, page, size)
}

func (s *UserService) UpdateUser(ctx context.Context, id int64, req model.UpdateUserRequest) (model.User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.IsAdmin != nil {
		user.IsAdmin = *req.IsAdmin
	}
	if req.MaxLoans != nil {
		user.MaxLoans = *req.MaxLoans
	}
	return s.repo.UpdateUser(ctx, user)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
