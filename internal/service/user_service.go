package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aarondl/null/v8"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/saos/service-desk/internal/auth"
	"github.com/saos/service-desk/internal/domain"
	"github.com/saos/service-desk/internal/repository"
	apperrors "github.com/saos/service-desk/pkg/util/errorutil"
)

var accountValidator = validator.New()

// WelcomeSender greets newly registered clients.
type WelcomeSender interface {
	SendWelcome(ctx context.Context, user *domain.User) bool
}

// UserService administers accounts.
type UserService struct {
	users      repository.UserRepository
	welcome    WelcomeSender
	bcryptCost int
	logger     *zap.Logger
	clock      Clock
}

// UserDependencies bundles collaborators for user administration.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	Welcome    WelcomeSender
	BcryptCost int
	Logger     *zap.Logger
	Clock      Clock
}

// CreateUserInput describes a new account.
type CreateUserInput struct {
	Name     string
	Email    string
	TaxID    *string
	Phone    *string
	Role     domain.UserRole
	Password string
}

// UserPatch lists editable account fields. Unset fields are left alone.
type UserPatch struct {
	Name     null.String
	Email    null.String
	TaxID    null.String
	Phone    null.String
	Role     null.String
	Active   null.Bool
	Password null.String
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	return &UserService{
		users:      deps.UserRepo,
		welcome:    deps.Welcome,
		bcryptCost: deps.BcryptCost,
		logger:     nopIfNil(deps.Logger),
		clock:      deps.Clock,
	}
}

// List returns accounts ordered by name.
func (s *UserService) List(ctx context.Context, filter repository.UserFilter) ([]domain.User, error) {
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, apperrors.NewValidationError("perfil inválido", map[string]any{"tipo": *filter.Role})
	}
	items, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return items, nil
}

// Get returns one account.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError("user", err)
	}
	return user, nil
}

// Create stores a new active account. Clients get a welcome e-mail.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	var missing []string
	if in.Name == "" {
		missing = append(missing, "nome")
	}
	if in.Email == "" {
		missing = append(missing, "email")
	}
	if in.Password == "" {
		missing = append(missing, "senha")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("campos obrigatórios não informados", map[string]any{"fields": missing})
	}
	if in.Role == "" {
		in.Role = domain.RoleClient
	}
	if err := validateAccount(in.Email, in.Role, in.Password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	now := s.clock.now()
	user := &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		TaxID:        trimmedOrNil(in.TaxID),
		Phone:        trimmedOrNil(in.Phone),
		Role:         in.Role,
		Active:       true,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, mapUserWriteError(in.Email, err)
	}
	s.logger.Info("user created", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))

	if user.Role == domain.RoleClient && s.welcome != nil {
		s.welcome.SendWelcome(ctx, user)
	}
	return user, nil
}

// Update applies patch to the account.
func (s *UserService) Update(ctx context.Context, id int64, patch UserPatch) (*domain.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name.Valid {
		name := strings.TrimSpace(patch.Name.String)
		if name == "" {
			return nil, apperrors.NewValidationError("nome obrigatório", map[string]any{"fields": []string{"nome"}})
		}
		user.Name = name
	}
	if patch.Email.Valid {
		user.Email = strings.ToLower(strings.TrimSpace(patch.Email.String))
	}
	if patch.TaxID.Valid {
		user.TaxID = trimmedOrNil(&patch.TaxID.String)
	}
	if patch.Phone.Valid {
		user.Phone = trimmedOrNil(&patch.Phone.String)
	}
	if patch.Role.Valid {
		user.Role = domain.UserRole(strings.ToUpper(strings.TrimSpace(patch.Role.String)))
	}
	if patch.Active.Valid {
		user.Active = patch.Active.Bool
	}
	password := ""
	if patch.Password.Valid {
		password = patch.Password.String
	}
	if err := validateAccount(user.Email, user.Role, password); err != nil {
		return nil, err
	}
	if password != "" {
		hash, err := auth.HashPassword(password, s.bcryptCost)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		user.PasswordHash = hash
	}

	user.UpdatedAt = s.clock.now()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, mapUserWriteError(user.Email, err)
	}
	return user, nil
}

// ToggleActive flips the active flag and returns the account.
func (s *UserService) ToggleActive(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Update(ctx, id, UserPatch{Active: null.BoolFrom(!user.Active)})
}

func validateAccount(email string, role domain.UserRole, password string) error {
	if err := accountValidator.Var(email, "required,email"); err != nil {
		return apperrors.NewValidationError("email inválido", map[string]any{"email": email})
	}
	if !role.Valid() {
		return apperrors.NewValidationError("perfil inválido", map[string]any{"tipo": role})
	}
	if password != "" {
		return passwordError("senha", password)
	}
	return nil
}

func passwordError(field, password string) error {
	switch err := auth.CheckPassword(password); {
	case errors.Is(err, auth.ErrPasswordTooShort):
		return apperrors.NewValidationError(fmt.Sprintf("senha deve ter no mínimo %d caracteres", auth.MinPasswordLength), map[string]any{"fields": []string{field}})
	case errors.Is(err, auth.ErrPasswordTooLong):
		return apperrors.NewValidationError(fmt.Sprintf("senha deve ter no máximo %d bytes", auth.MaxPasswordBytes), map[string]any{"fields": []string{field}})
	default:
		return nil
	}
}

func mapUserWriteError(email string, err error) error {
	if errors.Is(err, repository.ErrDuplicateUser) {
		return apperrors.NewConflict("email ou CPF já cadastrado", map[string]any{"email": email})
	}
	return apperrors.MapError("user", err)
}
