package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/facturador-sunat/internal/application/billing"
	"github.com/jhoicas/facturador-sunat/internal/domain/repository"
)

var (
	_ billing.DocumentTxRunner = (*TxRunner)(nil)
	_ billing.AttemptTxRunner  = (*TxRunner)(nil)
)

// TxRunner agrupa en una sola transacción la numeración y la escritura de un comprobante
// con sus líneas.
type TxRunner struct {
	pool *pgxpool.Pool
}

func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunDocuments pasa a fn un DocumentRepo sobre la tx; cualquier error de fn la revierte.
func (r *TxRunner) RunDocuments(ctx context.Context, fn func(docs repository.DocumentRepository) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(NewDocumentRepository(tx))
	})
}

// RunAttempt ata comprobantes y respuestas SUNAT a la misma tx.
func (r *TxRunner) RunAttempt(ctx context.Context, fn func(docs repository.DocumentRepository, responses repository.SunatResponseRepository) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(NewDocumentRepository(tx), NewSunatResponseRepository(tx))
	})
}
