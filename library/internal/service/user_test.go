package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/Astemirdum/library-loan-service/library/internal/errs"
	"github.com/Astemirdum/library-loan-service/library/internal/model"
	repo_mocks "github.com/Astemirdum/library-loan-service/library/internal/repository/mocks"
	"github.com/Astemirdum/library-loan-service/library/internal/service"
	"github.com/Astemirdum/library-loan-service/pkg/auth"
)

func TestUserService_Register(t *testing.T) {
	t.Parallel()
	c := gomock.NewController(t)
	defer c.Finish()
	repo := repo_mocks.NewMockUserRepository(c)
	svc := service.NewUserService(repo, auth.NewSigner(auth.Config{Secret: "s", TokenTTL: time.Hour}), 5, zap.NewExample())

	repo.EXPECT().CreateUser(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, u model.User) (model.User, error) {
			require.Equal(t, "ann@example.com", u.Email)
			require.True(t, u.IsActive)
			require.False(t, u.IsAdmin)
			require.Equal(t, 5, u.MaxLoans)
			require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("password1")))
			u.ID = 1
			return u, nil
		})
	user, err := svc.Register(context.Background(), model.RegisterRequest{
		Email: " Ann@Example.com", Password: "password1", FirstName: "Ann", LastName: "Lee",
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), user.ID)

	repo.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return(model.User{}, errs.ErrAlreadyExists)
	_, err = svc.Register(context.Background(), model.RegisterRequest{Email: "ann@example.com", Password: "password1"})
	require.True(t, errors.Is(err, errs.ErrAlreadyExists))
}

func TestUserService_Authorize(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	hash, err := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.MinCost)
	require.NoError(t, err)
	active := model.User{ID: 1, Email: "ann@example.com", PasswordHash: string(hash), IsActive: true, IsAdmin: true}
	inactive := active
	inactive.IsActive = false

	tests := []struct {
		name     string
		user     model.User
		repoErr  error
		password string
		wantErr  error
		// logged entry: "login" at info or "login failed" at warn with a reason
		wantLevel  zapcore.Level
		wantReason string
	}{
		{name: "ok", user: active, password: "password1", wantLevel: zapcore.InfoLevel},
		{name: "unknown email", repoErr: errs.ErrNotFound, password: "password1", wantErr: errs.ErrInvalidCredentials,
			wantLevel: zapcore.WarnLevel, wantReason: "unknown email"},
		{name: "wrong password", user: active, password: "password2", wantErr: errs.ErrInvalidCredentials,
			wantLevel: zapcore.WarnLevel, wantReason: "bad password"},
		{name: "deactivated", user: inactive, password: "password1", wantErr: errs.ErrForbidden,
			wantLevel: zapcore.WarnLevel, wantReason: "inactive"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			repo := repo_mocks.NewMockUserRepository(c)
			repo.EXPECT().GetUserByEmail(gomock.Any(), "ann@example.com").Return(tt.user, tt.repoErr)

			signer := auth.NewSigner(auth.Config{Secret: "secret", TokenTTL: time.Hour})
			core, logs := observer.New(zapcore.DebugLevel)
			svc := service.NewUserService(repo, signer, 5, zap.New(core), service.WithClock(func() time.Time { return now }))

			resp, err := svc.Authorize(context.Background(), model.AuthRequest{Email: "Ann@Example.com ", Password: tt.password})

			msg := "login"
			if tt.wantReason != "" {
				msg = "login failed"
			}
			entries := logs.FilterMessage(msg).All()
			require.Len(t, entries, 1)
			require.Equal(t, tt.wantLevel, entries[0].Level)
			fields := entries[0].ContextMap()
			require.Equal(t, "ann@example.com", fields["email"])
			if tt.wantReason != "" {
				require.Equal(t, tt.wantReason, fields["reason"])
			} else {
				require.Equal(t, active.ID, fields["user_id"])
			}

			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, now.Add(time.Hour), resp.ExpiresAt)
			require.NotEmpty(t, resp.AccessToken)
		})
	}
}

func TestUserService_UpdateUser(t *testing.T) {
	t.Parallel()
	c := gomock.NewController(t)
	defer c.Finish()
	repo := repo_mocks.NewMockUserRepository(c)
	svc := service.NewUserService(repo, nil, 5, zap.NewExample())

	off, cap3 := false, 3
	repo.EXPECT().GetUser(gomock.Any(), int64(4)).Return(model.User{ID: 4, IsActive: true, MaxLoans: 5}, nil)
	repo.EXPECT().UpdateUser(gomock.Any(), model.User{ID: 4, IsActive: false, MaxLoans: 3}).
		Return(model.User{ID: 4, MaxLoans: 3}, nil)

	user, err := svc.UpdateUser(context.Background(), 4, model.UpdateUserRequest{IsActive: &off, MaxLoans: &cap3})
	require.NoError(t, err)
	require.Equal(t, 3, user.MaxLoans)
}

func TestUserService_LoadProfile(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		user    model.User
		repoErr error
		want    auth.Profile
		wantErr error
	}{
		{
			name: "ok. roles come from the account",
			user: model.User{ID: 4, Email: "ann@example.com", IsActive: true, IsAdmin: false},
			want: auth.Profile{UserID: 4, Email: "ann@example.com", Roles: []string{auth.RoleUser}},
		},
		{
			name: "ok. admin",
			user: model.User{ID: 4, Email: "ann@example.com", IsActive: true, IsAdmin: true},
			want: auth.Profile{UserID: 4, Email: "ann@example.com", Roles: []string{auth.RoleUser, auth.RoleAdmin}},
		},
		{
			name:    "err. deactivated",
			user:    model.User{ID: 4, IsActive: false, IsAdmin: true},
			wantErr: auth.ErrInactive,
		},
		{
			name:    "err. deleted",
			repoErr: errs.ErrNotFound,
			wantErr: auth.ErrUnknownUser,
		},
		{
			name:    "err. storage",
			repoErr: errors.New("conn refused"),
			wantErr: errors.New("conn refused"),
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			repo := repo_mocks.NewMockUserRepository(c)
			svc := service.NewUserService(repo, auth.NewSigner(auth.Config{Secret: "s", TokenTTL: time.Hour}), 5, zap.NewExample())
			repo.EXPECT().GetUser(gomock.Any(), int64(4)).Return(tt.user, tt.repoErr)

			got, err := svc.LoadProfile(context.Background(), 4)
			if tt.wantErr != nil {
				require.EqualError(t, err, tt.wantErr.Error())
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
