package billing

import (
	"context"
	"time"

	"github.com/jhoicas/facturador-sunat/internal/domain/repository"
)

// DocumentTxRunner ejecuta fn dentro de una transacción con el repositorio de comprobantes atado a ella.
// Se usa para asignar el correlativo y persistir cabecera + líneas de forma atómica.
type DocumentTxRunner interface {
	RunDocuments(ctx context.Context, fn func(docs repository.DocumentRepository) error) error
}

// AttemptTxRunner ejecuta fn en una transacción con comprobantes y respuestas atados a ella.
// El cambio de estado de un intento y su respuesta se persisten juntos o no se persisten.
type AttemptTxRunner interface {
	RunAttempt(ctx context.Context, fn func(docs repository.DocumentRepository, responses repository.SunatResponseRepository) error) error
}

// DocumentLocker garantiza un solo envío en curso por comprobante.
// TryLock devuelve domain.ErrDocumentBusy si otro proceso lo tiene; la función devuelta libera el lock.
type DocumentLocker interface {
	TryLock(ctx context.Context, documentID string) (func(), error)
}

// ArtifactArchiver guarda copias del XML firmado y del CDR (S3). Opcional: los fallos no bloquean el envío.
type ArtifactArchiver interface {
	Archive(ctx context.Context, ruc, fileName string, data []byte) error
}

// Modos de envío a SUNAT.
const (
	SunatEnvDev  = "dev"  // siempre simulado, nunca llama a SUNAT
	SunatEnvBeta = "beta" // homologación
	SunatEnvProd = "prod"
)

// PipelineConfig configuración del orquestador.
type PipelineConfig struct {
	Env string
	// AllowInsecureSimulation convierte un fallo TLS en envío simulado. Solo para entornos de desarrollo.
	AllowInsecureSimulation bool
	SubmitTimeout           time.Duration
}
