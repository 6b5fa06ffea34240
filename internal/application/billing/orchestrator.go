package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/internal/domain/repository"
	domsunat "github.com/jhoicas/facturador-sunat/internal/domain/sunat"
	infrasunat "github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat"
	pkgsunat "github.com/jhoicas/facturador-sunat/pkg/sunat"
)

// Modos de simulación: el comprobante queda SENT con código 0 sin que SUNAT lo haya recibido.
const (
	SimulationNoCertificate = "no_certificate" // el emisor no tiene certificado digital
	SimulationDevelopment   = "development"    // SUNAT_ENV=dev
	SimulationInsecureTLS   = "insecure_tls"   // fallo TLS con AllowInsecureSimulation activo
)

var simulationMessages = map[string]string{
	SimulationNoCertificate: "Envío simulado: el emisor no tiene certificado digital configurado",
	SimulationDevelopment:   "Envío simulado: entorno de desarrollo",
	SimulationInsecureTLS:   "Envío simulado: fallo TLS/certificado en entorno no seguro",
}

// SunatOrchestrator orquesta el ciclo completo de un comprobante:
//
//	Validación → XML UBL 2.1 + hash → Firma XML-DSIG/XAdES → Envío → Estado + respuesta
//
// Cada artefacto se persiste apenas se produce; un reintento reutiliza los existentes.
type SunatOrchestrator struct {
	docs      repository.DocumentRepository
	companies repository.CompanyRepository
	customers repository.CustomerRepository
	products  repository.ProductRepository
	responses repository.SunatResponseRepository
	tx        AttemptTxRunner
	builder   *infrasunat.XMLBuilderService
	signer    pkgsunat.Signer
	submitter infrasunat.Submitter
	locker    DocumentLocker
	archiver  ArtifactArchiver // nil = sin archivado
	log       pkgsunat.EventLogger
	cfg       PipelineConfig
	now       func() time.Time
}

// NewSunatOrchestrator construye el orquestador. archiver puede ser nil.
func NewSunatOrchestrator(
	docs repository.DocumentRepository,
	companies repository.CompanyRepository,
	customers repository.CustomerRepository,
	products repository.ProductRepository,
	responses repository.SunatResponseRepository,
	tx AttemptTxRunner,
	builder *infrasunat.XMLBuilderService,
	signer pkgsunat.Signer,
	submitter infrasunat.Submitter,
	locker DocumentLocker,
	archiver ArtifactArchiver,
	log pkgsunat.EventLogger,
	cfg PipelineConfig,
) *SunatOrchestrator {
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 30 * time.Second
	}
	return &SunatOrchestrator{
		docs: docs, companies: companies, customers: customers, products: products, responses: responses, tx: tx,
		builder: builder, signer: signer, submitter: submitter, locker: locker, archiver: archiver,
		log: log, cfg: cfg, now: time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (o *SunatOrchestrator) WithClock(now func() time.Time) *SunatOrchestrator {
	o.now = now
	return o
}

// Process ejecuta el pipeline para un comprobante PENDING. Un comprobante en otro estado es un no-op.
// El comprobante pasa a SENT justo antes de la llamada a SUNAT y de ahí a ACCEPTED o REJECTED.
//
// Errores devueltos: ValidationError y ConfigurationError (el comprobante sigue PENDING con una
// respuesta ERROR registrada), domain.ErrDocumentBusy, domain.ErrNotFound y fallos de persistencia.
// Los errores de certificado y firma terminan en REJECTED desde PENDING, los de red desde SENT,
// y no se propagan.
func (o *SunatOrchestrator) Process(ctx context.Context, documentID string) error {
	release, err := o.locker.TryLock(ctx, documentID)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentBusy) {
			o.log.Info("sunat.pipeline.busy", map[string]any{"document_id": documentID})
		}
		return err
	}
	defer release()

	doc, err := o.docs.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("cargar comprobante: %w", err)
	}
	if doc == nil {
		return domain.ErrNotFound
	}
	if !domsunat.CanSubmit(doc.Status) {
		o.log.Info("sunat.pipeline.skipped", map[string]any{"document_id": doc.ID, "status": doc.Status})
		return nil
	}

	// ── 1. Datos del emisor, adquirente y líneas ────────────────────────────
	company, err := o.companies.GetByID(ctx, doc.CompanyID)
	if err != nil {
		return fmt.Errorf("cargar emisor: %w", err)
	}
	var customer *entity.Customer
	if doc.HasCustomer() {
		if customer, err = o.customers.GetByID(ctx, doc.CustomerID); err != nil {
			return fmt.Errorf("cargar adquirente: %w", err)
		}
		if customer == nil {
			return o.failPending(ctx, doc, domsunat.NewValidationError("el adquirente "+doc.CustomerID+" no existe"))
		}
	}
	items, err := o.docs.GetItems(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("cargar líneas: %w", err)
	}

	// ── 2. Validación (aborta antes de producir artefactos) ─────────────────
	if err := errors.Join(
		domsunat.ValidateIssuer(company),
		domsunat.ValidateCustomer(customer),
		domsunat.ValidateDocument(doc, items),
	); err != nil {
		return o.failPending(ctx, doc, mergeValidation(err))
	}
	if !company.HasSolCredentials() {
		return o.failPending(ctx, doc, &domsunat.ConfigurationError{Reason: "el emisor no tiene usuario y clave SOL"})
	}

	// ── 3. XML UBL + hash ───────────────────────────────────────────────────
	if doc.XML == "" {
		lines, err := o.linesForXML(ctx, items)
		if err != nil {
			return err
		}
		xmlStr, err := o.builder.Build(&infrasunat.BuildContext{Document: doc, Company: company, Customer: customer, Lines: lines})
		if err != nil {
			return o.failPending(ctx, doc, err)
		}
		doc.XML = xmlStr
		doc.Hash = ""
	}
	if doc.Hash == "" {
		doc.Hash = domsunat.DigestXML(doc.XML)
		if err := o.docs.SaveArtifacts(ctx, doc.ID, doc.XML, doc.Hash, doc.XMLSigned); err != nil {
			return err
		}
		o.log.Info("sunat.xml.built", map[string]any{"document_id": doc.ID, "hash": doc.Hash})
	}

	// ── 4. Sin certificado: simulación explícita, sin firma ni red ──────────
	if !company.HasCertificate() {
		return o.simulate(ctx, doc, SimulationNoCertificate)
	}

	// ── 5. Firma (una sola vez) ─────────────────────────────────────────────
	fileName := pkgsunat.FileName(company.RUC, doc.DocumentType, doc.Series, doc.Number)
	if doc.XMLSigned == "" {
		signed, err := o.signer.Sign(doc.XML, company.Certificate, company.CertificatePassword)
		if err != nil {
			return o.reject(ctx, doc, err)
		}
		doc.XMLSigned = signed
		if err := o.docs.SaveArtifacts(ctx, doc.ID, doc.XML, doc.Hash, doc.XMLSigned); err != nil {
			return err
		}
		o.log.Info("sunat.xml.signed", map[string]any{"document_id": doc.ID, "file": fileName})
		o.archive(ctx, company.RUC, fileName+".xml", []byte(doc.XMLSigned))
	}

	if o.cfg.Env == SunatEnvDev {
		return o.simulate(ctx, doc, SimulationDevelopment)
	}

	// ── 6. Envío ────────────────────────────────────────────────────────────
	if err := o.submitter.Ready(); err != nil {
		return o.failPending(ctx, doc, err)
	}
	if err := o.markSent(ctx, doc); err != nil {
		return err
	}
	submitCtx, cancel := context.WithTimeout(ctx, o.cfg.SubmitTimeout)
	defer cancel()
	raw, err := o.submitter.Submit(submitCtx, infrasunat.SubmitRequest{
		FileName:  fileName + ".xml",
		SignedXML: doc.XMLSigned,
		Username:  company.SolUsername,
		Password:  company.SolPassword,
	})
	if err != nil {
		if te, ok := domsunat.AsTransport(err); ok && te.TLS && o.cfg.AllowInsecureSimulation {
			o.log.Warn("sunat.submit.insecure_fallback", map[string]any{"document_id": doc.ID, "error": err.Error()})
			return o.simulate(ctx, doc, SimulationInsecureTLS)
		}
		return o.reject(ctx, doc, err)
	}

	// ── 7. Respuesta ────────────────────────────────────────────────────────
	parsed := infrasunat.ParseResponse(raw.StatusCode, raw.Body, doc.XMLSigned != "")
	if len(parsed.CDRZip) > 0 {
		o.archive(ctx, company.RUC, "R-"+fileName+".zip", parsed.CDRZip)
	}
	return o.finish(ctx, doc, parsed.Status, &entity.SunatResponse{
		Code: parsed.Code, Message: parsed.Message, CDRXML: parsed.CDRXML, CDRZip: parsed.CDRZip,
	})
}

func (o *SunatOrchestrator) linesForXML(ctx context.Context, items []*entity.DocumentItem) ([]infrasunat.LineForXML, error) {
	lines := make([]infrasunat.LineForXML, len(items))
	for i, it := range items {
		lines[i] = infrasunat.LineForXML{Item: it}
		if it.ProductID == "" {
			continue
		}
		product, err := o.products.GetByID(ctx, it.ProductID)
		if err != nil {
			return nil, fmt.Errorf("cargar producto %s: %w", it.ProductID, err)
		}
		if product != nil {
			lines[i].UnitMeasure = product.UnitMeasure
		}
	}
	return lines, nil
}

// simulate registra un envío simulado como SENT con código 0. Tras un fallo TLS el comprobante
// ya está SENT y solo se registra la respuesta.
func (o *SunatOrchestrator) simulate(ctx context.Context, doc *entity.Document, mode string) error {
	o.log.Warn("sunat.submit.simulated", map[string]any{"document_id": doc.ID, "mode": mode})
	return o.finish(ctx, doc, entity.DocumentStatusSent, &entity.SunatResponse{
		Code:    entity.ResponseCodeAccepted,
		Message: simulationMessages[mode],
	})
}

// reject cierra el intento como REJECTED con código ERROR y el mensaje del fallo.
func (o *SunatOrchestrator) reject(ctx context.Context, doc *entity.Document, cause error) error {
	o.log.Error("sunat.submit.failed", map[string]any{"document_id": doc.ID, "error": cause.Error()})
	return o.finish(ctx, doc, entity.DocumentStatusRejected, &entity.SunatResponse{
		Code:    entity.ResponseCodeError,
		Message: cause.Error(),
	})
}

// failPending registra la respuesta ERROR sin cambiar el estado y devuelve la causa.
func (o *SunatOrchestrator) failPending(ctx context.Context, doc *entity.Document, cause error) error {
	o.log.Error("sunat.pipeline.aborted", map[string]any{"document_id": doc.ID, "error": cause.Error()})
	if err := o.saveResponse(ctx, doc.ID, &entity.SunatResponse{Code: entity.ResponseCodeError, Message: cause.Error()}); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// markSent persiste PENDING → SENT antes de la llamada a SUNAT.
func (o *SunatOrchestrator) markSent(ctx context.Context, doc *entity.Document) error {
	applied, err := o.docs.UpdateStatus(ctx, doc.ID, entity.DocumentStatusPending, entity.DocumentStatusSent)
	if err != nil {
		return fmt.Errorf("persistir estado %s: %w", entity.DocumentStatusSent, err)
	}
	if !applied {
		return o.statusConflict(doc, entity.DocumentStatusSent)
	}
	doc.Status = entity.DocumentStatusSent
	return nil
}

func (o *SunatOrchestrator) statusConflict(doc *entity.Document, target string) error {
	o.log.Warn("sunat.pipeline.status_conflict", map[string]any{"document_id": doc.ID, "from": doc.Status, "target": target})
	return fmt.Errorf("comprobante %s ya no está %s: %w", doc.ID, doc.Status, domain.ErrInvalidTransition)
}

// finish aplica doc.Status → status y guarda la respuesta del intento en la misma transacción.
// Con status igual al actual solo se registra la respuesta.
func (o *SunatOrchestrator) finish(ctx context.Context, doc *entity.Document, status string, resp *entity.SunatResponse) error {
	from := doc.Status
	if from != status {
		if err := domsunat.Transition(from, status); err != nil {
			return err
		}
	}
	o.stamp(doc.ID, resp)
	err := o.tx.RunAttempt(ctx, func(docs repository.DocumentRepository, responses repository.SunatResponseRepository) error {
		if from != status {
			applied, err := docs.UpdateStatus(ctx, doc.ID, from, status)
			if err != nil {
				return fmt.Errorf("persistir estado %s: %w", status, err)
			}
			if !applied {
				return o.statusConflict(doc, status)
			}
		}
		if err := responses.Save(ctx, resp); err != nil {
			return fmt.Errorf("guardar respuesta SUNAT: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	doc.Status = status
	o.log.Info("sunat.pipeline.finished", map[string]any{
		"document_id": doc.ID, "status": status, "code": resp.Code,
	})
	return nil
}

func (o *SunatOrchestrator) stamp(documentID string, resp *entity.SunatResponse) {
	resp.ID = uuid.New().String()
	resp.DocumentID = documentID
	resp.CreatedAt = o.now()
}

func (o *SunatOrchestrator) saveResponse(ctx context.Context, documentID string, resp *entity.SunatResponse) error {
	o.stamp(documentID, resp)
	if err := o.responses.Save(ctx, resp); err != nil {
		return fmt.Errorf("guardar respuesta SUNAT: %w", err)
	}
	return nil
}

func (o *SunatOrchestrator) archive(ctx context.Context, ruc, fileName string, data []byte) {
	if o.archiver == nil {
		return
	}
	if err := o.archiver.Archive(ctx, ruc, fileName, data); err != nil {
		o.log.Warn("sunat.archive.failed", map[string]any{"file": fileName, "error": err.Error()})
	}
}

// mergeValidation une los ValidationError de errors.Join en uno solo.
func mergeValidation(err error) error {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return err
	}
	merged := &domsunat.ValidationError{}
	for _, e := range joined.Unwrap() {
		var vErr *domsunat.ValidationError
		if !errors.As(e, &vErr) {
			return err
		}
		merged.Problems = append(merged.Problems, vErr.Problems...)
	}
	return merged
}
