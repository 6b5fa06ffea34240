package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo implementación de DocumentRepository (usable con pool o tx).
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

const documentColumns = `id, company_id, customer_id, document_type, series, number, issue_date, currency,
	total_taxed, total_igv, total, xml, xml_signed, hash, status, created_at, updated_at`

// Create persiste la cabecera del comprobante.
func (r *DocumentRepo) Create(ctx context.Context, d *entity.Document) error {
	query := `INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := r.q.Exec(ctx, query,
		d.ID, d.CompanyID, nullIfEmpty(d.CustomerID), d.DocumentType, d.Series, d.Number, d.IssueDate, d.Currency,
		d.TotalTaxed, d.TotalIGV, d.Total, d.XML, d.XMLSigned, d.Hash, d.Status, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// CreateItem persiste una línea del comprobante.
func (r *DocumentRepo) CreateItem(ctx context.Context, it *entity.DocumentItem) error {
	query := `
		INSERT INTO document_items (id, document_id, product_id, position, description, quantity, unit_price,
			subtotal, tax_type, igv, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		it.ID, it.DocumentID, nullIfEmpty(it.ProductID), it.Position, it.Description, it.Quantity, it.UnitPrice,
		it.Subtotal, it.TaxType, it.IGV, it.Total,
	)
	if err != nil {
		return fmt.Errorf("insert document item: %w", err)
	}
	return nil
}

// Update sobrescribe cabecera, totales y artefactos. Solo aplica sobre filas PENDING:
// el estado lo mueven únicamente UpdateStatus y el pipeline.
func (r *DocumentRepo) Update(ctx context.Context, d *entity.Document) error {
	query := `
		UPDATE documents SET customer_id = $2, document_type = $3, series = $4, number = $5, issue_date = $6,
			currency = $7, total_taxed = $8, total_igv = $9, total = $10, xml = $11, xml_signed = $12, hash = $13,
			updated_at = $14
		WHERE id = $1 AND status = $15`
	tag, err := r.q.Exec(ctx, query,
		d.ID, nullIfEmpty(d.CustomerID), d.DocumentType, d.Series, d.Number, d.IssueDate,
		d.Currency, d.TotalTaxed, d.TotalIGV, d.Total, d.XML, d.XMLSigned, d.Hash,
		d.UpdatedAt, entity.DocumentStatusPending,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missOrConflict(ctx, d.ID)
	}
	return nil
}

// missOrConflict distingue una fila inexistente de una que cambió de estado.
func (r *DocumentRepo) missOrConflict(ctx context.Context, id string) error {
	var status string
	err := r.q.QueryRow(ctx, `SELECT status FROM documents WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get document status: %w", err)
	}
	return fmt.Errorf("el comprobante está %s: %w", status, domain.ErrConflict)
}

// SaveArtifacts persiste xml, hash y xml_signed sin tocar el estado.
func (r *DocumentRepo) SaveArtifacts(ctx context.Context, id, xml, hash, xmlSigned string) error {
	_, err := r.q.Exec(ctx,
		`UPDATE documents SET xml = $2, hash = $3, xml_signed = $4, updated_at = $5 WHERE id = $1`,
		id, xml, hash, xmlSigned, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("save document artifacts: %w", err)
	}
	return nil
}

// UpdateStatus cambia el estado solo si el actual es from (compare-and-set).
func (r *DocumentRepo) UpdateStatus(ctx context.Context, id, from, to string) (bool, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE documents SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		id, from, to, time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("update document status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByID obtiene la cabecera del comprobante.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	d, err := scanDocument(r.q.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

// GetItems devuelve las líneas ordenadas por posición.
func (r *DocumentRepo) GetItems(ctx context.Context, documentID string) ([]*entity.DocumentItem, error) {
	query := `
		SELECT id, document_id, product_id, position, description, quantity, unit_price, subtotal, tax_type, igv, total
		FROM document_items WHERE document_id = $1 ORDER BY position`
	rows, err := r.q.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document items: %w", err)
	}
	defer rows.Close()
	var list []*entity.DocumentItem
	for rows.Next() {
		var (
			it        entity.DocumentItem
			productID *string
		)
		if err := rows.Scan(&it.ID, &it.DocumentID, &productID, &it.Position, &it.Description, &it.Quantity,
			&it.UnitPrice, &it.Subtotal, &it.TaxType, &it.IGV, &it.Total); err != nil {
			return nil, fmt.Errorf("scan document item: %w", err)
		}
		it.ProductID = fromNull(productID)
		list = append(list, &it)
	}
	return list, rows.Err()
}

// DeleteItems elimina las líneas del comprobante (reemplazo en la edición).
func (r *DocumentRepo) DeleteItems(ctx context.Context, documentID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM document_items WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("delete document items: %w", err)
	}
	return nil
}

// Delete elimina el comprobante si no está ACCEPTED ni CANCELED; líneas y respuesta caen por
// ON DELETE CASCADE.
func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM documents WHERE id = $1 AND status NOT IN ($2, $3)`,
		id, entity.DocumentStatusAccepted, entity.DocumentStatusCanceled)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}

// NextNumber devuelve max(number)+1 para emisor + tipo + serie.
// Dentro de una transacción toma un advisory lock para serializar correlativos de la misma serie.
func (r *DocumentRepo) NextNumber(ctx context.Context, companyID, documentType, series string) (int64, error) {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`,
		companyID+"|"+documentType+"|"+series); err != nil {
		return 0, fmt.Errorf("lock series: %w", err)
	}
	var next int64
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(MAX(number), 0) + 1 FROM documents
		WHERE company_id = $1 AND document_type = $2 AND series = $3`,
		companyID, documentType, series,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next document number: %w", err)
	}
	return next, nil
}

// ListByCompany lista comprobantes del emisor, más recientes primero.
func (r *DocumentRepo) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Document, error) {
	rows, err := r.q.Query(ctx, `SELECT `+documentColumns+` FROM documents
		WHERE company_id = $1 ORDER BY issue_date DESC, series, number DESC LIMIT $2 OFFSET $3`,
		companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	var list []*entity.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

// CountByCompany total de comprobantes del emisor.
func (r *DocumentRepo) CountByCompany(ctx context.Context, companyID string) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM documents WHERE company_id = $1`, companyID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

func scanDocument(row pgx.Row) (*entity.Document, error) {
	var (
		d          entity.Document
		customerID *string
	)
	err := row.Scan(&d.ID, &d.CompanyID, &customerID, &d.DocumentType, &d.Series, &d.Number, &d.IssueDate, &d.Currency,
		&d.TotalTaxed, &d.TotalIGV, &d.Total, &d.XML, &d.XMLSigned, &d.Hash, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.CustomerID = fromNull(customerID)
	return &d, nil
}
