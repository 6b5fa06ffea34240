package repository

import (
	"context"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
)

// DocumentRepository puerto de persistencia para comprobantes y sus líneas.
// GetByID devuelve (nil, nil) si no existe.
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	CreateItem(ctx context.Context, item *entity.DocumentItem) error
	// Update sobrescribe cabecera, totales y artefactos de un comprobante PENDING sin tocar el estado.
	// Devuelve domain.ErrConflict si el comprobante ya no está PENDING.
	Update(ctx context.Context, doc *entity.Document) error
	// SaveArtifacts persiste xml, hash y xml_signed sin tocar el estado.
	SaveArtifacts(ctx context.Context, id, xml, hash, xmlSigned string) error
	// UpdateStatus cambia el estado solo si el actual es from; devuelve false si no aplicó.
	UpdateStatus(ctx context.Context, id, from, to string) (bool, error)
	GetByID(ctx context.Context, id string) (*entity.Document, error)
	GetItems(ctx context.Context, documentID string) ([]*entity.DocumentItem, error)
	DeleteItems(ctx context.Context, documentID string) error
	// Delete elimina el comprobante salvo que esté ACCEPTED o CANCELED (domain.ErrConflict).
	Delete(ctx context.Context, id string) error
	// NextNumber devuelve max(number)+1 para emisor + tipo + serie (1 si no hay ninguno).
	NextNumber(ctx context.Context, companyID, documentType, series string) (int64, error)
	ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Document, error)
	CountByCompany(ctx context.Context, companyID string) (int, error)
}
