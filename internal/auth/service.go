// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/autowds/server/internal/core"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
)

type UserInfo struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Edition      string
	Admin        bool
	Locked       bool
	Credits      int64
}

type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	TouchLastLogin(ctx context.Context, userID int64) error
}

type Service struct {
	jwt   *JWTManager
	users UserProvider
}

func NewService(jwt *JWTManager, users UserProvider) *Service {
	return &Service{
		jwt:   jwt,
		users: users,
	}
}

func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
) (*TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // always verify to prevent account enumeration
			_, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, err := core.VerifyPasswordTimingSafe(
		req.Password,
		&user.PasswordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return nil, ErrInvalidCredentials
	}

	if user.Locked {
		return nil, ErrAccountLocked
	}

	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		slog.Warn("update last login failed",
			"user_id", user.ID,
			"error", err,
		)
	}

	token, err := s.jwt.CreateAccessToken(AccessTokenClaims{
		UserID:  user.ID,
		Email:   user.Email,
		Admin:   user.Admin,
		Edition: user.Edition,
	})
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	return &TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(s.jwt.config.Expire.Seconds()),
		User: UserSummary{
			ID:      user.ID,
			Email:   user.Email,
			Name:    user.Name,
			Edition: user.Edition,
			Admin:   user.Admin,
			Credits: user.Credits,
		},
	}, nil
}
