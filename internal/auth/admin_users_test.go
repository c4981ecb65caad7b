package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gudangmitra/gudang-mitra-backend/internal/users"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/config"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/db"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/db/dbtest"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/enums"
	pkgerrors "github.com/gudangmitra/gudang-mitra-backend/pkg/errors"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/security"
)

func newAdminUsersService(t *testing.T) (AdminUsersService, *users.Repository) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewAdminUsersService(AdminUsersServiceParams{DB: db.FromConn(conn)})
	require.NoError(t, err)
	return svc, users.NewRepository(conn)
}

func TestCreateUser(t *testing.T) {
	svc, repo := newAdminUsersService(t)
	ctx := context.Background()
	dept := " Gudang A "

	created, err := svc.CreateUser(ctx, enums.UserRoleAdmin, CreateUserRequest{
		Email:      "Staff@Example.com",
		Password:   "longenough",
		Name:       "Staff",
		Role:       enums.UserRoleUser,
		Department: &dept,
	})
	require.NoError(t, err)
	require.Equal(t, "staff@example.com", created.Email)
	require.NotNil(t, created.Department)
	require.Equal(t, "Gudang A", *created.Department)

	stored, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	ok, err := security.VerifyPassword("longenough", stored.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.CreateUser(ctx, enums.UserRoleAdmin, CreateUserRequest{
		Email: "staff@example.com", Password: "longenough", Name: "Dup", Role: enums.UserRoleUser,
	})
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestCreateUserRequiresAdmin(t *testing.T) {
	svc, _ := newAdminUsersService(t)
	_, err := svc.CreateUser(context.Background(), enums.UserRoleManager, CreateUserRequest{
		Email: "x@example.com", Password: "longenough", Name: "X", Role: enums.UserRoleUser,
	})
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))
}

func TestCreateUserValidation(t *testing.T) {
	svc, _ := newAdminUsersService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, enums.UserRoleAdmin, CreateUserRequest{Email: "a@example.com", Password: "short", Name: "A", Role: enums.UserRoleUser})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = svc.CreateUser(ctx, enums.UserRoleAdmin, CreateUserRequest{Email: "a@example.com", Password: "longenough", Name: "A", Role: "owner"})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = svc.CreateUser(ctx, enums.UserRoleAdmin, CreateUserRequest{Email: "a@example.com", Password: "longenough", Name: "  ", Role: enums.UserRoleUser})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestEnsureBootstrapAdmin(t *testing.T) {
	svc, repo := newAdminUsersService(t)
	ctx := context.Background()

	created, err := svc.EnsureBootstrapAdmin(ctx, config.BootstrapConfig{})
	require.NoError(t, err)
	require.False(t, created, "unset bootstrap config is a no-op")

	cfg := config.BootstrapConfig{AdminEmail: "root@example.com", AdminPassword: "rootpassword"}
	created, err = svc.EnsureBootstrapAdmin(ctx, cfg)
	require.NoError(t, err)
	require.True(t, created)

	admin, err := repo.FindByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	require.Equal(t, enums.UserRoleAdmin, admin.Role)
	require.Equal(t, "Administrator", admin.Name)

	created, err = svc.EnsureBootstrapAdmin(ctx, cfg)
	require.NoError(t, err)
	require.False(t, created, "second run must not create another admin")
}

func TestCreateUserRejectsMalformedInput(t *testing.T) {
	svc, _ := newAdminUsersService(t)
	long := strings.Repeat("p", maxPasswordLen+1)

	for name, req := range map[string]CreateUserRequest{
		"no at sign":    {Email: "staff.example.com", Password: "longenough", Name: "S", Role: enums.UserRoleUser},
		"huge password": {Email: "s@example.com", Password: long, Name: "S", Role: enums.UserRoleUser},
	} {
		_, err := svc.CreateUser(context.Background(), enums.UserRoleAdmin, req)
		require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err), name)
	}
}

func TestEnsureBootstrapAdminYieldsToExistingEmail(t *testing.T) {
	svc, _ := newAdminUsersService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, enums.UserRoleAdmin, CreateUserRequest{
		Email: "root@example.com", Password: "longenough", Name: "Not admin", Role: enums.UserRoleManager,
	})
	require.NoError(t, err)

	created, err := svc.EnsureBootstrapAdmin(ctx, config.BootstrapConfig{AdminEmail: "root@example.com", AdminPassword: "rootpassword"})
	require.NoError(t, err)
	require.False(t, created)
}
