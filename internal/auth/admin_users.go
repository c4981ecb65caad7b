package auth

import (
	"context"
	"strings"

	"github.com/gudangmitra/gudang-mitra-backend/internal/users"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/config"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/db"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/enums"
	pkgerrors "github.com/gudangmitra/gudang-mitra-backend/pkg/errors"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/security"
)

const (
	minPasswordLen = 8
	// argon2 takes any length; the cap only bounds hashing work per request.
	maxPasswordLen = 256

	defaultAdminName = "Administrator"
)

// AdminUsersService provisions staff accounts. There is no self sign-up.
type AdminUsersService interface {
	CreateUser(ctx context.Context, actorRole enums.UserRole, req CreateUserRequest) (*users.UserDTO, error)
	// EnsureBootstrapAdmin creates the configured admin when no admin exists
	// yet and reports whether it did.
	EnsureBootstrapAdmin(ctx context.Context, cfg config.BootstrapConfig) (bool, error)
}

type AdminUsersServiceParams struct {
	DB             *db.Client
	PasswordConfig config.PasswordConfig
}

type adminUsersService struct {
	users    *users.Repository
	password config.PasswordConfig
}

func NewAdminUsersService(params AdminUsersServiceParams) (AdminUsersService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "database client required")
	}
	return &adminUsersService{
		users:    users.NewRepository(params.DB.DB()),
		password: params.PasswordConfig,
	}, nil
}

// normalize trims and lowercases the request and enforces the account rules
// that hold no matter which entry point created the user.
func (r CreateUserRequest) normalize() (users.CreateUserDTO, error) {
	out := users.CreateUserDTO{
		Email:      strings.ToLower(strings.TrimSpace(r.Email)),
		Name:       strings.TrimSpace(r.Name),
		Role:       r.Role,
		Department: trimmedOrNil(r.Department),
	}
	invalid := func(msg string) (users.CreateUserDTO, error) {
		return users.CreateUserDTO{}, pkgerrors.New(pkgerrors.CodeValidation, msg)
	}
	switch {
	case out.Email == "" || !strings.Contains(out.Email, "@"):
		return invalid("a valid email is required")
	case out.Name == "":
		return invalid("name is required")
	case !out.Role.IsValid():
		return invalid("invalid role")
	case len(r.Password) < minPasswordLen:
		return invalid("password must be at least 8 characters")
	case len(r.Password) > maxPasswordLen:
		return invalid("password is too long")
	}
	return out, nil
}

func (s *adminUsersService) CreateUser(ctx context.Context, actorRole enums.UserRole, req CreateUserRequest) (*users.UserDTO, error) {
	if actorRole != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can create users")
	}
	dto, err := req.normalize()
	if err != nil {
		return nil, err
	}
	dto.PasswordHash, err = security.HashPassword(req.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	// The unique index on email decides races between concurrent creates.
	user, err := s.users.Create(ctx, dto)
	switch {
	case db.IsUniqueViolation(err, ""):
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}
	return users.FromModel(user), nil
}

func (s *adminUsersService) EnsureBootstrapAdmin(ctx context.Context, cfg config.BootstrapConfig) (bool, error) {
	if strings.TrimSpace(cfg.AdminEmail) == "" || cfg.AdminPassword == "" {
		return false, nil
	}
	admins, err := s.users.CountByRole(ctx, enums.UserRoleAdmin)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count admins")
	}
	if admins > 0 {
		return false, nil
	}

	name := strings.TrimSpace(cfg.AdminName)
	if name == "" {
		name = defaultAdminName
	}
	_, err = s.CreateUser(ctx, enums.UserRoleAdmin, CreateUserRequest{
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Name:     name,
		Role:     enums.UserRoleAdmin,
	})
	if pkgerrors.CodeOf(err) == pkgerrors.CodeConflict {
		// Another replica booted first.
		return false, nil
	}
	return err == nil, err
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
