package repository

import (
	"context"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
)

// CustomerRepository puerto de persistencia para adquirentes.
type CustomerRepository interface {
	Create(ctx context.Context, customer *entity.Customer) error
	GetByID(ctx context.Context, id string) (*entity.Customer, error)
	GetByCompanyAndIdentity(ctx context.Context, companyID, identityNumber string) (*entity.Customer, error)
	Update(ctx context.Context, customer *entity.Customer) error
}
