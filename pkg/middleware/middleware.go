package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Astemirdum/library-loan-service/pkg/auth"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

const (
	AuthorizationHeader = "Authorization"
	bearer              = "Bearer "
)

type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// ProfileLoader returns the current profile of a token subject, so roles and
// activity revoked after the token was issued take effect immediately.
type ProfileLoader interface {
	LoadProfile(ctx context.Context, userID int64) (auth.Profile, error)
}

// JwtAuthentication puts the stored profile of the token subject into the request context.
func JwtAuthentication(parser TokenParser, profiles ProfileLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authorization := c.Request().Header.Get(AuthorizationHeader)
			if authorization == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "No Authorization Header")
			}
			if !strings.HasPrefix(authorization, bearer) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization Header")
			}
			claims, err := parser.Parse(strings.TrimPrefix(authorization, bearer))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "JwtAccessDenied")
			}

			req := c.Request()
			profile, err := profiles.LoadProfile(req.Context(), claims.Profile.UserID)
			switch {
			case errors.Is(err, auth.ErrUnknownUser):
				return echo.NewHTTPError(http.StatusUnauthorized, "JwtAccessDenied")
			case errors.Is(err, auth.ErrInactive):
				return echo.NewHTTPError(http.StatusForbidden, auth.ErrInactive.Error())
			case err != nil:
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
			c.SetRequest(req.WithContext(auth.SetAuthContext(req.Context(), profile)))
			return next(c)
		}
	}
}

func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !auth.IsAdmin(c.Request().Context()) {
			return echo.NewHTTPError(http.StatusForbidden, "admin only")
		}
		return next(c)
	}
}

func NewRateLimiter(rps rate.Limit) echo.MiddlewareFunc {
	return middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rps))
}

func RequestLoggerConfig(log *zap.Logger) middleware.RequestLoggerConfig {
	log = log.Named("echo")
	return middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		HandleError:  true,
		LogError:     true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := zapcore.InfoLevel
			if v.Error != nil {
				level = zapcore.ErrorLevel
			}
			log.Log(level, "request",
				zap.String("URI", v.URI),
				zap.String("Method", v.Method),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.Error(v.Error),
				zap.String("request_id", v.RequestID),
			)
			return nil
		},
	}
}
