package auth

import (
	"github.com/gudangmitra/gudang-mitra-backend/internal/users"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/enums"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the tokens and user produced by a successful login.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresIn    int            `json:"expires_in"`
	User         *users.UserDTO `json:"user"`
}

// CreateUserRequest is the admin payload for provisioning a staff account.
type CreateUserRequest struct {
	Email      string         `json:"email" validate:"required,email"`
	Password   string         `json:"password" validate:"required,min=8"`
	Name       string         `json:"name" validate:"required,max=120"`
	Role       enums.UserRole `json:"role" validate:"required,oneof=admin manager user"`
	Department *string        `json:"department,omitempty" validate:"omitempty,max=120"`
}
