package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturador-sunat/internal/application/dto"
	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/internal/domain/repository"
	domsunat "github.com/jhoicas/facturador-sunat/internal/domain/sunat"
	infrasunat "github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat"
	pkgsunat "github.com/jhoicas/facturador-sunat/pkg/sunat"
)

// SendQueue cola de envíos en segundo plano. La implementa Dispatcher.
type SendQueue interface {
	Enqueue(documentID string) error
}

// DocumentUseCase casos de uso de comprobantes: alta, edición, consulta, anulación y envío.
type DocumentUseCase struct {
	docs            repository.DocumentRepository
	companies       repository.CompanyRepository
	customers       repository.CustomerRepository
	products        repository.ProductRepository
	responses       repository.SunatResponseRepository
	tx              DocumentTxRunner
	queue           SendQueue
	locker          DocumentLocker
	defaultCurrency string
	now             func() time.Time
}

// NewDocumentUseCase construye el caso de uso.
func NewDocumentUseCase(
	docs repository.DocumentRepository,
	companies repository.CompanyRepository,
	customers repository.CustomerRepository,
	products repository.ProductRepository,
	responses repository.SunatResponseRepository,
	tx DocumentTxRunner,
	queue SendQueue,
	defaultCurrency string,
) *DocumentUseCase {
	if defaultCurrency == "" {
		defaultCurrency = "PEN"
	}
	return &DocumentUseCase{
		docs: docs, companies: companies, customers: customers, products: products, responses: responses,
		tx: tx, queue: queue, defaultCurrency: defaultCurrency, now: time.Now,
	}
}

// WithLocker comparte con el pipeline el lock por comprobante: editar, eliminar o anular
// un comprobante en pleno envío devuelve domain.ErrDocumentBusy.
func (uc *DocumentUseCase) WithLocker(l DocumentLocker) *DocumentUseCase {
	uc.locker = l
	return uc
}

// WithClock reemplaza el reloj (tests).
func (uc *DocumentUseCase) WithClock(now func() time.Time) *DocumentUseCase {
	uc.now = now
	return uc
}

// Create registra un comprobante PENDING con importes calculados en el servidor y correlativo max+1.
func (uc *DocumentUseCase) Create(ctx context.Context, companyID string, in dto.CreateDocumentRequest) (*dto.DocumentResponse, error) {
	now := uc.now()
	doc := &entity.Document{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		Status:    entity.DocumentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	items, err := uc.prepare(ctx, doc, in)
	if err != nil {
		return nil, err
	}

	err = uc.tx.RunDocuments(ctx, func(docs repository.DocumentRepository) error {
		number, err := docs.NextNumber(ctx, companyID, doc.DocumentType, doc.Series)
		if err != nil {
			return err
		}
		doc.Number = number
		if err := docs.Create(ctx, doc); err != nil {
			return err
		}
		return createItems(ctx, docs, items)
	})
	if err != nil {
		return nil, err
	}
	return toDocumentResponse(doc, items, nil), nil
}

// Update reemplaza cabecera y líneas de un comprobante PENDING y descarta los artefactos generados.
func (uc *DocumentUseCase) Update(ctx context.Context, companyID, id string, in dto.CreateDocumentRequest) (*dto.DocumentResponse, error) {
	release, err := uc.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	doc, err := uc.load(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if !domsunat.CanEdit(doc.Status) {
		return nil, fmt.Errorf("solo se editan comprobantes PENDING (actual %s): %w", doc.Status, domain.ErrConflict)
	}
	prevType, prevSeries := doc.DocumentType, doc.Series
	items, err := uc.prepare(ctx, doc, in)
	if err != nil {
		return nil, err
	}
	doc.XML, doc.XMLSigned, doc.Hash = "", "", ""
	doc.UpdatedAt = uc.now()

	err = uc.tx.RunDocuments(ctx, func(docs repository.DocumentRepository) error {
		if doc.DocumentType != prevType || doc.Series != prevSeries {
			number, err := docs.NextNumber(ctx, companyID, doc.DocumentType, doc.Series)
			if err != nil {
				return err
			}
			doc.Number = number
		}
		if err := docs.Update(ctx, doc); err != nil {
			return err
		}
		if err := docs.DeleteItems(ctx, doc.ID); err != nil {
			return err
		}
		return createItems(ctx, docs, items)
	})
	if err != nil {
		return nil, err
	}
	return toDocumentResponse(doc, items, nil), nil
}

// Delete elimina el comprobante salvo que esté ACCEPTED o CANCELED.
func (uc *DocumentUseCase) Delete(ctx context.Context, companyID, id string) error {
	release, err := uc.lock(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	doc, err := uc.load(ctx, companyID, id)
	if err != nil {
		return err
	}
	if !domsunat.CanDelete(doc.Status) {
		return fmt.Errorf("no se puede eliminar un comprobante %s: %w", doc.Status, domain.ErrConflict)
	}
	return uc.docs.Delete(ctx, doc.ID)
}

// Cancel anula un comprobante PENDING.
func (uc *DocumentUseCase) Cancel(ctx context.Context, companyID, id string) (*dto.DocumentStatusDTO, error) {
	release, err := uc.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	doc, err := uc.load(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if err := domsunat.Transition(doc.Status, entity.DocumentStatusCanceled); err != nil {
		return nil, err
	}
	applied, err := uc.docs.UpdateStatus(ctx, doc.ID, entity.DocumentStatusPending, entity.DocumentStatusCanceled)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, fmt.Errorf("el comprobante cambió de estado: %w", domain.ErrInvalidTransition)
	}
	doc.Status = entity.DocumentStatusCanceled
	return toStatusDTO(doc, nil), nil
}

// Get devuelve el comprobante con sus líneas y la última respuesta de SUNAT.
func (uc *DocumentUseCase) Get(ctx context.Context, companyID, id string) (*dto.DocumentResponse, error) {
	doc, err := uc.load(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	items, err := uc.docs.GetItems(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	resp, err := uc.responses.GetByDocumentID(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	return toDocumentResponse(doc, items, resp), nil
}

// Status respuesta ligera para polling.
func (uc *DocumentUseCase) Status(ctx context.Context, companyID, id string) (*dto.DocumentStatusDTO, error) {
	doc, err := uc.load(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	resp, err := uc.responses.GetByDocumentID(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	return toStatusDTO(doc, resp), nil
}

// List pagina los comprobantes del emisor (sin líneas).
func (uc *DocumentUseCase) List(ctx context.Context, companyID string, page dto.PageRequest) (*dto.DocumentListResponse, error) {
	page = page.Normalize()
	list, err := uc.docs.ListByCompany(ctx, companyID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	total, err := uc.docs.CountByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	out := &dto.DocumentListResponse{
		Data: make([]dto.DocumentResponse, 0, len(list)),
		Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}
	for _, d := range list {
		out.Data = append(out.Data, *toDocumentResponse(d, nil, nil))
	}
	return out, nil
}

// SignedXMLZip devuelve el nombre de archivo y el ZIP con el XML firmado.
func (uc *DocumentUseCase) SignedXMLZip(ctx context.Context, companyID, id string) (string, []byte, error) {
	doc, err := uc.load(ctx, companyID, id)
	if err != nil {
		return "", nil, err
	}
	if doc.XMLSigned == "" {
		return "", nil, fmt.Errorf("el comprobante aún no está firmado: %w", domain.ErrNotFound)
	}
	company, err := uc.companies.GetByID(ctx, doc.CompanyID)
	if err != nil {
		return "", nil, err
	}
	if company == nil {
		return "", nil, domain.ErrNotFound
	}
	name := pkgsunat.FileName(company.RUC, doc.DocumentType, doc.Series, doc.Number)
	zipBytes, err := infrasunat.CompressXMLToZip([]byte(doc.XMLSigned), name+".xml")
	if err != nil {
		return "", nil, err
	}
	return name + ".zip", zipBytes, nil
}

// RequestSend encola el envío a SUNAT. El resultado se consulta con Status.
func (uc *DocumentUseCase) RequestSend(ctx context.Context, companyID, id string) (*dto.DocumentStatusDTO, error) {
	doc, err := uc.load(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if !domsunat.CanSubmit(doc.Status) {
		return nil, fmt.Errorf("solo se envían comprobantes PENDING (actual %s): %w", doc.Status, domain.ErrConflict)
	}
	if err := uc.queue.Enqueue(doc.ID); err != nil {
		return nil, err
	}
	return toStatusDTO(doc, nil), nil
}

func (uc *DocumentUseCase) lock(ctx context.Context, id string) (func(), error) {
	if uc.locker == nil {
		return func() {}, nil
	}
	return uc.locker.TryLock(ctx, id)
}

// load obtiene el comprobante verificando que pertenezca al emisor.
func (uc *DocumentUseCase) load(ctx context.Context, companyID, id string) (*entity.Document, error) {
	doc, err := uc.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

// prepare valida la entrada, aplica valores por defecto desde el catálogo y calcula importes.
func (uc *DocumentUseCase) prepare(ctx context.Context, doc *entity.Document, in dto.CreateDocumentRequest) ([]*entity.DocumentItem, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	if err := pkgsunat.ValidateSeries(in.DocumentType, in.Series); err != nil {
		return nil, domsunat.NewValidationError(err.Error())
	}

	issueDate := uc.now()
	if in.IssueDate != "" {
		d, err := time.Parse("2006-01-02", in.IssueDate)
		if err != nil {
			return nil, domsunat.NewValidationError("issue_date: formato YYYY-MM-DD")
		}
		issueDate = d
	}
	currency := in.Currency
	if currency == "" {
		currency = uc.defaultCurrency
	}

	if in.CustomerID != "" {
		customer, err := uc.customers.GetByID(ctx, in.CustomerID)
		if err != nil {
			return nil, err
		}
		if customer == nil || customer.CompanyID != doc.CompanyID {
			return nil, domsunat.NewValidationError("customer_id: adquirente inexistente")
		}
	}

	doc.CustomerID = in.CustomerID
	doc.DocumentType = in.DocumentType
	doc.Series = in.Series
	doc.IssueDate = issueDate
	doc.Currency = currency

	items := make([]*entity.DocumentItem, 0, len(in.Items))
	var problems []string
	for i, line := range in.Items {
		it := &entity.DocumentItem{
			ID:          uuid.New().String(),
			DocumentID:  doc.ID,
			ProductID:   line.ProductID,
			Position:    i + 1,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			TaxType:     line.TaxType,
		}
		if line.ProductID != "" {
			product, err := uc.products.GetByID(ctx, line.ProductID)
			if err != nil {
				return nil, err
			}
			if product == nil || product.CompanyID != doc.CompanyID {
				problems = append(problems, fmt.Sprintf("línea %d: producto inexistente", i+1))
				continue
			}
			if it.Description == "" {
				it.Description = product.Description
			}
			if it.UnitPrice.IsZero() {
				it.UnitPrice = product.UnitPrice
			}
			if it.TaxType == "" {
				it.TaxType = product.TaxType
			}
		}
		if it.TaxType == "" {
			it.TaxType = "10"
		}
		if !it.Quantity.GreaterThan(decimal.Zero) {
			problems = append(problems, fmt.Sprintf("línea %d: cantidad debe ser mayor a cero", i+1))
		}
		if it.UnitPrice.IsNegative() {
			problems = append(problems, fmt.Sprintf("línea %d: precio unitario negativo", i+1))
		}
		if !domsunat.FitsInputScale(it.Quantity) {
			problems = append(problems, fmt.Sprintf("línea %d: cantidad admite hasta %d decimales", i+1, domsunat.InputScale))
		}
		if !domsunat.FitsInputScale(it.UnitPrice) {
			problems = append(problems, fmt.Sprintf("línea %d: precio unitario admite hasta %d decimales", i+1, domsunat.InputScale))
		}
		if it.Description == "" {
			problems = append(problems, fmt.Sprintf("línea %d: descripción requerida", i+1))
		}
		domsunat.ApplyLine(it)
		items = append(items, it)
	}
	if len(problems) > 0 {
		return nil, domsunat.NewValidationError(problems...)
	}
	domsunat.ApplyTotals(doc, items)
	return items, nil
}

func createItems(ctx context.Context, docs repository.DocumentRepository, items []*entity.DocumentItem) error {
	for _, it := range items {
		if err := docs.CreateItem(ctx, it); err != nil {
			return err
		}
	}
	return nil
}

func toDocumentResponse(doc *entity.Document, items []*entity.DocumentItem, resp *entity.SunatResponse) *dto.DocumentResponse {
	out := &dto.DocumentResponse{
		ID:           doc.ID,
		CompanyID:    doc.CompanyID,
		CustomerID:   doc.CustomerID,
		DocumentType: doc.DocumentType,
		Series:       doc.Series,
		Number:       doc.Number,
		FullNumber:   pkgsunat.DocumentID(doc.Series, doc.Number),
		IssueDate:    doc.IssueDate.Format("2006-01-02"),
		Currency:     doc.Currency,
		TotalTaxed:   doc.TotalTaxed,
		TotalIGV:     doc.TotalIGV,
		Total:        doc.Total,
		Hash:         doc.Hash,
		Status:       doc.Status,
		Signed:       doc.XMLSigned != "",
		Items:        make([]dto.DocumentItemResponse, 0, len(items)),
	}
	for _, it := range items {
		out.Items = append(out.Items, dto.DocumentItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			Position:    it.Position,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Subtotal:    it.Subtotal,
			TaxType:     it.TaxType,
			IGV:         it.IGV,
			Total:       it.Total,
		})
	}
	if resp != nil {
		out.Sunat = &dto.SunatResponseDTO{
			Code:       resp.Code,
			Message:    resp.Message,
			HasCDR:     resp.CDRXML != "" || len(resp.CDRZip) > 0,
			ReceivedAt: resp.CreatedAt.Format(time.RFC3339),
		}
	}
	return out
}

func toStatusDTO(doc *entity.Document, resp *entity.SunatResponse) *dto.DocumentStatusDTO {
	out := &dto.DocumentStatusDTO{ID: doc.ID, Status: doc.Status, Hash: doc.Hash}
	if resp != nil {
		out.SunatCode = resp.Code
		out.SunatMessage = resp.Message
	}
	return out
}
