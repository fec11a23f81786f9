package service

import (
	"context"
	"strings"
	"testing"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/saos/service-desk/internal/auth"
	"github.com/saos/service-desk/internal/config"
	"github.com/saos/service-desk/internal/domain"
	"github.com/saos/service-desk/internal/repository"
	apperrors "github.com/saos/service-desk/pkg/util/errorutil"
)

type welcomeRecorder struct {
	greeted []int64
}

func (w *welcomeRecorder) SendWelcome(_ context.Context, user *domain.User) bool {
	w.greeted = append(w.greeted, user.ID)
	return true
}

func newUserFixture() (*UserService, *fakeUserRepo, *welcomeRecorder) {
	repo := &fakeUserRepo{s: newStore()}
	welcome := &welcomeRecorder{}
	svc := NewUserService(UserDependencies{
		UserRepo:   repo,
		Welcome:    welcome,
		BcryptCost: bcrypt.MinCost,
		Clock:      fixedClock(baseTime),
	})
	return svc, repo, welcome
}

func TestCreateUser(t *testing.T) {
	svc, _, welcome := newUserFixture()
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateUserInput{Name: " Pedro ", Email: " Pedro@Example.com ", Password: "segredo1"})
	require.NoError(t, err)
	assert.Equal(t, "Pedro", user.Name)
	assert.Equal(t, "pedro@example.com", user.Email)
	assert.Equal(t, domain.RoleClient, user.Role)
	assert.True(t, user.Active)
	assert.True(t, auth.PasswordMatches(user.PasswordHash, "segredo1"))
	assert.Equal(t, []int64{user.ID}, welcome.greeted)

	tech, err := svc.Create(ctx, CreateUserInput{Name: "Téc", Email: "tec@example.com", Password: "segredo1", Role: domain.RoleTechnician})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleTechnician, tech.Role)
	assert.Len(t, welcome.greeted, 1)
}

func TestCreateUserErrors(t *testing.T) {
	svc, _, _ := newUserFixture()
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreateUserInput
		code string
	}{
		{name: "missing fields", in: CreateUserInput{Email: "x@example.com"}, code: apperrors.CodeValidation},
		{name: "bad email", in: CreateUserInput{Name: "X", Email: "não-é-email", Password: "segredo1"}, code: apperrors.CodeValidation},
		{name: "bad role", in: CreateUserInput{Name: "X", Email: "x@example.com", Password: "segredo1", Role: "ROOT"}, code: apperrors.CodeValidation},
		{name: "short password", in: CreateUserInput{Name: "X", Email: "x@example.com", Password: "123"}, code: apperrors.CodeValidation},
		{name: "password over 72 bytes", in: CreateUserInput{Name: "X", Email: "x@example.com", Password: strings.Repeat("x", 73)}, code: apperrors.CodeValidation},
		{name: "duplicate email", in: CreateUserInput{Name: "X", Email: "maria@example.com", Password: "segredo1"}, code: apperrors.CodeConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.in)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, tt.code), err.Error())
		})
	}
}

func TestUpdateAndToggleUser(t *testing.T) {
	svc, repo, _ := newUserFixture()
	ctx := context.Background()

	updated, err := svc.Update(ctx, 10, UserPatch{Phone: null.StringFrom("(11) 99999-0000"), Role: null.StringFrom("tecnico")})
	require.NoError(t, err)
	assert.Equal(t, "(11) 99999-0000", *updated.Phone)
	assert.Equal(t, domain.RoleTechnician, updated.Role)
	assert.Equal(t, "Maria Cliente", updated.Name)

	toggled, err := svc.ToggleActive(ctx, 10)
	require.NoError(t, err)
	assert.False(t, toggled.Active)
	stored, err := repo.GetByID(ctx, 10)
	require.NoError(t, err)
	assert.False(t, stored.Active)

	_, err = svc.Update(ctx, 10, UserPatch{Name: null.StringFrom(" ")})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = svc.ToggleActive(ctx, 9999)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestListUsersByRole(t *testing.T) {
	svc, _, _ := newUserFixture()
	role := domain.RoleTechnician

	users, err := svc.List(context.Background(), repository.UserFilter{Role: &role})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, int64(20), users[0].ID)

	bad := domain.UserRole("ROOT")
	_, err = svc.List(context.Background(), repository.UserFilter{Role: &bad})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func newAuthFixture(t *testing.T) (*AuthService, *fakeUserRepo) {
	t.Helper()
	st := newStore()
	repo := &fakeUserRepo{s: st}
	hash, err := auth.HashPassword("segredo1", bcrypt.MinCost)
	require.NoError(t, err)
	for id, u := range st.users {
		u.PasswordHash = hash
		st.users[id] = u
	}
	maria := st.users[10]
	maria.TaxID = ptr("12345678900")
	st.users[10] = maria
	inactive := st.users[20]
	inactive.Active = false
	st.users[20] = inactive

	svc := NewAuthService(config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 30, BcryptCost: bcrypt.MinCost},
		AuthDependencies{UserRepo: repo, Clock: fixedClock(baseTime)})
	return svc, repo
}

func TestLogin(t *testing.T) {
	svc, repo := newAuthFixture(t)
	ctx := context.Background()

	byEmail, err := svc.Login(ctx, "MARIA@example.com", "segredo1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), byEmail.User.ID)
	assert.NotEmpty(t, byEmail.Token)
	require.NotNil(t, byEmail.User.LastAccessAt)
	assert.Equal(t, []int64{10}, repo.touched)

	claims, err := svc.TokenManager().ParseToken(byEmail.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(10), claims.UserID)
	assert.Equal(t, domain.RoleClient, claims.Role)

	byTaxID, err := svc.Login(ctx, "12345678900", "segredo1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), byTaxID.User.ID)
}

func TestLoginFailures(t *testing.T) {
	svc, repo := newAuthFixture(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		identifier string
		password   string
		code       string
	}{
		{name: "empty", identifier: "", password: "", code: apperrors.CodeValidation},
		{name: "unknown user", identifier: "ninguem@example.com", password: "segredo1", code: apperrors.CodeUnauthorized},
		{name: "wrong password", identifier: "maria@example.com", password: "errada", code: apperrors.CodeUnauthorized},
		{name: "inactive", identifier: "joao@example.com", password: "segredo1", code: apperrors.CodeForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tt.identifier, tt.password)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, tt.code), err.Error())
		})
	}
	assert.Empty(t, repo.touched)
}

func TestChangePassword(t *testing.T) {
	svc, repo := newAuthFixture(t)
	ctx := context.Background()

	err := svc.ChangePassword(ctx, 30, "errada", "nova-senha")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))

	require.NoError(t, svc.ChangePassword(ctx, 30, "segredo1", "nova-senha"))
	user, err := repo.GetByID(ctx, 30)
	require.NoError(t, err)
	assert.True(t, auth.PasswordMatches(user.PasswordHash, "nova-senha"))

	err = svc.ChangePassword(ctx, 30, "nova-senha", "123")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}
