package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/saos/service-desk/internal/auth"
	"github.com/saos/service-desk/internal/config"
	"github.com/saos/service-desk/internal/domain"
	"github.com/saos/service-desk/internal/repository"
	apperrors "github.com/saos/service-desk/pkg/util/errorutil"
)

const invalidCredentials = "credenciais inválidas"

// AuthService coordinates login flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
	clock      Clock
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Logger   *zap.Logger
	Clock    Clock
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
		logger:     nopIfNil(deps.Logger),
		clock:      deps.Clock,
	}
}

// Login authenticates by e-mail or tax id. Unknown identifiers and wrong
// passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*domain.AccessToken, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperrors.NewValidationError("email/CPF e senha são obrigatórios", map[string]any{"fields": []string{"login", "senha"}})
	}

	var (
		user *domain.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.users.GetByEmail(ctx, strings.ToLower(identifier))
	} else {
		user, err = s.users.GetByTaxID(ctx, identifier)
	}
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, apperrors.NewUnauthorized(invalidCredentials)
		}
		return nil, apperrors.NewStorageError(err)
	}
	if !auth.PasswordMatches(user.PasswordHash, password) {
		return nil, apperrors.NewUnauthorized(invalidCredentials)
	}
	if !user.Active {
		return nil, apperrors.NewForbidden("usuário inativo")
	}

	now := s.clock.now()
	if err := s.users.TouchLastAccess(ctx, user.ID, now); err != nil {
		s.logger.Warn("touch last access", zap.Int64("user_id", user.ID), zap.Error(err))
	} else {
		user.LastAccessAt = &now
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("user logged in", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
	return &domain.AccessToken{Token: token, ExpiresAt: exp, User: user}, nil
}

// ChangePassword verifies the current password before storing the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	if err := passwordError("nova_senha", newPassword); err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return apperrors.MapError("user", err)
	}
	if !auth.PasswordMatches(user.PasswordHash, currentPassword) {
		return apperrors.NewUnauthorized(invalidCredentials)
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.clock.now()
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.NewStorageError(err)
	}
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
