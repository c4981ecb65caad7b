package categories

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gudangmitra/gudang-mitra-backend/pkg/db"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/db/models"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/enums"
	pkgerrors "github.com/gudangmitra/gudang-mitra-backend/pkg/errors"
)

// Service manages the category list shared by items and requests.
type Service interface {
	List(ctx context.Context) ([]models.Category, error)
	Create(ctx context.Context, role enums.UserRole, input CreateInput) (*models.Category, error)
	Delete(ctx context.Context, role enums.UserRole, id uuid.UUID) error
}

// CreateInput holds a new category.
type CreateInput struct {
	Name        string
	Description *string
}

type service struct {
	repo Repository
}

// NewService wires category dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "category repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context) ([]models.Category, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return rows, nil
}

func (s *service) Create(ctx context.Context, role enums.UserRole, input CreateInput) (*models.Category, error) {
	if !role.CanDecide() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins and managers manage categories")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	category := &models.Category{Name: name}
	if input.Description != nil {
		if desc := strings.TrimSpace(*input.Description); desc != "" {
			category.Description = &desc
		}
	}
	if err := s.repo.Create(ctx, category); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "category already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
	}
	return category, nil
}

// Delete removes an unused category. Categories still referenced by items or
// requests are kept.
func (s *service) Delete(ctx context.Context, role enums.UserRole, id uuid.UUID) error {
	if role != enums.UserRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only admins delete categories")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	refs, err := s.repo.CountReferences(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count category references")
	}
	if refs > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "category is still in use").
			WithDetails(map[string]any{"references": refs})
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if db.IsForeignKeyViolation(err) {
			return pkgerrors.New(pkgerrors.CodeConflict, "category is still in use")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete category")
	}
	return nil
}
