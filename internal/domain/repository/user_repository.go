package repository

import (
	"context"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
)

// UserRepository puerto de persistencia para usuarios.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	// GetByEmail busca en todos los emisores; el email es único globalmente.
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	CountByCompany(ctx context.Context, companyID string) (int, error)
}
