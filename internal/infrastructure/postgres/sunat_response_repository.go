package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/internal/domain/repository"
)

var _ repository.SunatResponseRepository = (*SunatResponseRepo)(nil)

// SunatResponseRepo conserva la última respuesta de SUNAT por comprobante.
type SunatResponseRepo struct {
	q Querier
}

// NewSunatResponseRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSunatResponseRepository(q Querier) *SunatResponseRepo {
	return &SunatResponseRepo{q: q}
}

// Save inserta o reemplaza la respuesta del comprobante (document_id es único).
func (r *SunatResponseRepo) Save(ctx context.Context, resp *entity.SunatResponse) error {
	query := `
		INSERT INTO sunat_responses (id, document_id, sunat_code, sunat_message, cdr_xml, cdr_zip, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (document_id) DO UPDATE SET
			id = EXCLUDED.id, sunat_code = EXCLUDED.sunat_code, sunat_message = EXCLUDED.sunat_message,
			cdr_xml = EXCLUDED.cdr_xml, cdr_zip = EXCLUDED.cdr_zip, created_at = EXCLUDED.created_at`
	_, err := r.q.Exec(ctx, query,
		resp.ID, resp.DocumentID, resp.Code, resp.Message, resp.CDRXML, resp.CDRZip, resp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save sunat response: %w", err)
	}
	return nil
}

// GetByDocumentID devuelve (nil, nil) si el comprobante aún no tiene respuesta.
func (r *SunatResponseRepo) GetByDocumentID(ctx context.Context, documentID string) (*entity.SunatResponse, error) {
	var resp entity.SunatResponse
	err := r.q.QueryRow(ctx, `
		SELECT id, document_id, sunat_code, sunat_message, cdr_xml, cdr_zip, created_at
		FROM sunat_responses WHERE document_id = $1`, documentID,
	).Scan(&resp.ID, &resp.DocumentID, &resp.Code, &resp.Message, &resp.CDRXML, &resp.CDRZip, &resp.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sunat response: %w", err)
	}
	return &resp, nil
}
