package repository

import (
	"context"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
)

// SunatResponseRepository conserva la última respuesta de SUNAT por comprobante.
type SunatResponseRepository interface {
	// Save reemplaza la respuesta previa del comprobante (upsert por document_id).
	Save(ctx context.Context, resp *entity.SunatResponse) error
	GetByDocumentID(ctx context.Context, documentID string) (*entity.SunatResponse, error)
}
