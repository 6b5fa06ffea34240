package billing_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-sunat/internal/application/billing"
	"github.com/jhoicas/facturador-sunat/internal/application/dto"
	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	domsunat "github.com/jhoicas/facturador-sunat/internal/domain/sunat"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/lock"
)

const productID = "3f1b2c4d-5e6f-4a7b-8c9d-0e1f2a3b4c5d"

func newDocumentUseCase(t *testing.T) (*billing.DocumentUseCase, *memStore, *recordingQueue) {
	t.Helper()
	s := newMemStore()
	s.companies[companyID] = &entity.Company{ID: companyID, RUC: "20131312955", LegalName: "EMPRESA DEMO S.A.C."}
	s.products[productID] = &entity.Product{
		ID: productID, CompanyID: companyID, Code: "SERV-01", Description: "Servicio de consultoría",
		UnitMeasure: "ZZ", UnitPrice: decimal.RequireFromString("100.00"), TaxType: "10",
	}
	q := &recordingQueue{}
	uc := billing.NewDocumentUseCase(
		memDocs{s}, memCompanies{s}, memCustomers{s}, memProducts{s}, memResponses{s}, memTx{s}, q, "PEN",
	).WithClock(func() time.Time { return fixedNow })
	return uc, s, q
}

func invoiceRequest() dto.CreateDocumentRequest {
	return dto.CreateDocumentRequest{
		DocumentType: "01",
		Series:       "F001",
		IssueDate:    "2026-03-15",
		Items:        []dto.DocumentItemRequest{{ProductID: productID, Quantity: decimal.NewFromInt(1)}},
	}
}

// ─── Create ────────────────────────────────────────────────────────────────

func TestCreate_CalculaImportesDesdeProducto(t *testing.T) {
	uc, s, _ := newDocumentUseCase(t)

	out, err := uc.Create(context.Background(), companyID, invoiceRequest())
	require.NoError(t, err)

	assert.Equal(t, "F001-00000001", out.FullNumber)
	assert.Equal(t, entity.DocumentStatusPending, out.Status)
	assert.Equal(t, "PEN", out.Currency)
	assert.Equal(t, "2026-03-15", out.IssueDate)
	assert.Equal(t, "100.00", out.TotalTaxed.StringFixed(2))
	assert.Equal(t, "18.00", out.TotalIGV.StringFixed(2))
	assert.Equal(t, "118.00", out.Total.StringFixed(2))
	require.Len(t, out.Items, 1)
	assert.Equal(t, "Servicio de consultoría", out.Items[0].Description)
	assert.Equal(t, "10", out.Items[0].TaxType)
	assert.Equal(t, 1, out.Items[0].Position)

	items, _ := memDocs{s}.GetItems(context.Background(), out.ID)
	assert.Len(t, items, 1)
}

func TestCreate_CorrelativoPorSerie(t *testing.T) {
	uc, _, _ := newDocumentUseCase(t)
	ctx := context.Background()

	a, err := uc.Create(ctx, companyID, invoiceRequest())
	require.NoError(t, err)
	b, err := uc.Create(ctx, companyID, invoiceRequest())
	require.NoError(t, err)

	boleta := invoiceRequest()
	boleta.DocumentType = "03"
	boleta.Series = "B001"
	c, err := uc.Create(ctx, companyID, boleta)
	require.NoError(t, err)

	assert.Equal(t, int64(1), a.Number)
	assert.Equal(t, int64(2), b.Number)
	assert.Equal(t, int64(1), c.Number)
}

func TestCreate_LineaLibreNoGravada(t *testing.T) {
	uc, _, _ := newDocumentUseCase(t)
	req := invoiceRequest()
	req.Currency = "USD"
	req.Items = []dto.DocumentItemRequest{{
		Description: "Libro", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("35.50"), TaxType: "20",
	}}

	out, err := uc.Create(context.Background(), companyID, req)
	require.NoError(t, err)
	assert.Equal(t, "USD", out.Currency)
	assert.True(t, out.TotalIGV.IsZero())
	assert.Equal(t, "71.00", out.Total.StringFixed(2))
	assert.Equal(t, "71.00", out.TotalTaxed.StringFixed(2), "total_taxed es la suma de subtotales")
}

func TestCreate_Validaciones(t *testing.T) {
	cases := map[string]func(r *dto.CreateDocumentRequest){
		"tipo inválido":   func(r *dto.CreateDocumentRequest) { r.DocumentType = "09" },
		"serie de boleta": func(r *dto.CreateDocumentRequest) { r.Series = "B001" },
		"sin líneas":      func(r *dto.CreateDocumentRequest) { r.Items = nil },
		"fecha inválida":  func(r *dto.CreateDocumentRequest) { r.IssueDate = "15/03/2026" },
		"moneda inválida": func(r *dto.CreateDocumentRequest) { r.Currency = "ARS" },
		"cantidad cero":   func(r *dto.CreateDocumentRequest) { r.Items[0].Quantity = decimal.Zero },
		"cantidad con 5 decimales": func(r *dto.CreateDocumentRequest) {
			r.Items[0].Quantity = decimal.RequireFromString("0.13888")
		},
		"precio con 5 decimales": func(r *dto.CreateDocumentRequest) {
			r.Items[0].UnitPrice = decimal.RequireFromString("1.00001")
		},
		"producto ajeno": func(r *dto.CreateDocumentRequest) { r.Items[0].ProductID = "9f1b2c4d-5e6f-4a7b-8c9d-0e1f2a3b4c5d" },
		"línea sin detalle": func(r *dto.CreateDocumentRequest) {
			r.Items[0] = dto.DocumentItemRequest{Quantity: decimal.NewFromInt(1)}
		},
		"adquirente ausente": func(r *dto.CreateDocumentRequest) { r.CustomerID = "7f1b2c4d-5e6f-4a7b-8c9d-0e1f2a3b4c5d" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			uc, s, _ := newDocumentUseCase(t)
			req := invoiceRequest()
			mutate(&req)

			_, err := uc.Create(context.Background(), companyID, req)
			require.Error(t, err)
			assert.True(t, domsunat.IsValidation(err), err.Error())
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Empty(t, s.docs)
		})
	}
}

func TestCreate_LineaSeValidaIgualTrasPersistir(t *testing.T) {
	uc, s, _ := newDocumentUseCase(t)
	ctx := context.Background()
	req := invoiceRequest()
	req.Items = []dto.DocumentItemRequest{{
		Description: "Granel", Quantity: decimal.RequireFromString("0.1389"), UnitPrice: decimal.RequireFromString("1.00"),
	}}

	out, err := uc.Create(ctx, companyID, req)
	require.NoError(t, err)

	// NUMERIC(14,4) devuelve cantidad y precio con 4 decimales
	items, _ := memDocs{s}.GetItems(ctx, out.ID)
	for _, it := range items {
		it.Quantity = it.Quantity.Round(4)
		it.UnitPrice = it.UnitPrice.Round(4)
	}
	assert.NoError(t, domsunat.ValidateDocument(s.doc(out.ID), items))
}

// ─── Update / Delete / Cancel ──────────────────────────────────────────────

func TestUpdate_ReemplazaLineasYDescartaArtefactos(t *testing.T) {
	uc, s, _ := newDocumentUseCase(t)
	ctx := context.Background()
	created, err := uc.Create(ctx, companyID, invoiceRequest())
	require.NoError(t, err)
	require.NoError(t, memDocs{s}.SaveArtifacts(ctx, created.ID, "<Invoice/>", "hash", "<Invoice>firmado</Invoice>"))

	req := invoiceRequest()
	req.Items = append(req.Items, dto.DocumentItemRequest{Description: "Flete", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("50")})
	out, err := uc.Update(ctx, companyID, created.ID, req)
	require.NoError(t, err)

	assert.Equal(t, created.Number, out.Number)
	assert.Equal(t, "177.00", out.Total.StringFixed(2))
	doc := s.doc(created.ID)
	assert.Empty(t, doc.XML)
	assert.Empty(t, doc.XMLSigned)
	assert.Empty(t, doc.Hash)
	items, _ := memDocs{s}.GetItems(ctx, created.ID)
	assert.Len(t, items, 2)
}

func TestUpdate_SoloPending(t *testing.T) {
	uc, s, _ := newDocumentUseCase(t)
	created, err := uc.Create(context.Background(), companyID, invoiceRequest())
	require.NoError(t, err)
	s.docs[created.ID].Status = entity.DocumentStatusSent

	_, err = uc.Update(context.Background(), companyID, created.ID, invoiceRequest())
	assert.ErrorIs(t, err, domain.ErrConflict)
}

// newStaleUseCase lee siempre la foto PENDING mientras el almacén ya refleja otro estado.
func newStaleUseCase(t *testing.T, finalStatus string) (*billing.DocumentUseCase, *memStore, string) {
	t.Helper()
	uc, s, _ := newDocumentUseCase(t)
	created, err := uc.Create(context.Background(), companyID, invoiceRequest())
	require.NoError(t, err)

	snapshot := map[string]*entity.Document{created.ID: s.doc(created.ID)}
	s.docs[created.ID].Status = finalStatus
	stale := billing.NewDocumentUseCase(
		staleDocs{memDocs: memDocs{s}, snapshot: snapshot}, memCompanies{s}, memCustomers{s}, memProducts{s},
		memResponses{s}, memTx{s}, &recordingQueue{}, "PEN",
	).WithClock(func() time.Time { return fixedNow })
	return stale, s, created.ID
}

func TestUpdate_NoRevierteUnEstadoAvanzado(t *testing.T) {
	uc, s, id := newStaleUseCase(t, entity.DocumentStatusAccepted)

	_, err := uc.Update(context.Background(), companyID, id, invoiceRequest())
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, entity.DocumentStatusAccepted, s.doc(id).Status)
}

func TestDelete_NoEliminaUnAceptadoTrasLaLectura(t *testing.T) {
	uc, s, id := newStaleUseCase(t, entity.DocumentStatusAccepted)

	err := uc.Delete(context.Background(), companyID, id)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.NotNil(t, s.doc(id))
}

func TestEdicion_DocumentoEnEnvio(t *testing.T) {
	uc, s, _ := newDocumentUseCase(t)
	ctx := context.Background()
	created, err := uc.Create(ctx, companyID, invoiceRequest())
	require.NoError(t, err)

	locker := lock.NewMemoryLocker()
	uc.WithLocker(locker)
	release, err := locker.TryLock(ctx, created.ID)
	require.NoError(t, err)

	_, err = uc.Update(ctx, companyID, created.ID, invoiceRequest())
	assert.ErrorIs(t, err, domain.ErrDocumentBusy)
	assert.ErrorIs(t, uc.Delete(ctx, companyID, created.ID), domain.ErrDocumentBusy)
	_, err = uc.Cancel(ctx, companyID, created.ID)
	assert.ErrorIs(t, err, domain.ErrDocumentBusy)
	assert.Equal(t, entity.DocumentStatusPending, s.doc(created.ID).Status)

	release()
	_, err = uc.Update(ctx, companyID, created.ID, invoiceRequest())
	assert.NoError(t, err)
}

func TestDelete_SegunEstado(t *testing.T) {
	cases := map[string]error{
		entity.DocumentStatusPending:  nil,
		entity.DocumentStatusRejected: nil,
		entity.DocumentStatusAccepted: domain.ErrConflict,
		entity.DocumentStatusCanceled: domain.ErrConflict,
	}
	for status, want := range cases {
		t.Run(status, func(t *testing.T) {
			uc, s, _ := newDocumentUseCase(t)
			created, err := uc.Create(context.Background(), companyID, invoiceRequest())
			require.NoError(t, err)
			s.docs[created.ID].Status = status

			err = uc.Delete(context.Background(), companyID, created.ID)
			if want == nil {
				require.NoError(t, err)
				assert.Nil(t, s.doc(created.ID))
				return
			}
			assert.ErrorIs(t, err, want)
			assert.NotNil(t, s.doc(created.ID))
		})
	}
}

func TestCancel(t *testing.T) {
	uc, s, _ := newDocumentUseCase(t)
	ctx := context.Background()
	created, err := uc.Create(ctx, companyID, invoiceRequest())
	require.NoError(t, err)

	out, err := uc.Cancel(ctx, companyID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusCanceled, out.Status)
	assert.Equal(t, entity.DocumentStatusCanceled, s.doc(created.ID).Status)

	_, err = uc.Cancel(ctx, companyID, created.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestCancel_EnviadoNoSeAnula(t *testing.T) {
	uc, s, _ := newDocumentUseCase(t)
	created, err := uc.Create(context.Background(), companyID, invoiceRequest())
	require.NoError(t, err)
	s.docs[created.ID].Status = entity.DocumentStatusSent

	_, err = uc.Cancel(context.Background(), companyID, created.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

// ─── Consulta ──────────────────────────────────────────────────────────────

func TestGet_OtroEmisorEsNotFound(t *testing.T) {
	uc, _, _ := newDocumentUseCase(t)
	created, err := uc.Create(context.Background(), companyID, invoiceRequest())
	require.NoError(t, err)

	_, err = uc.Get(context.Background(), "otra-empresa", created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetYStatus_IncluyenRespuesta(t *testing.T) {
	uc, s, _ := newDocumentUseCase(t)
	ctx := context.Background()
	created, err := uc.Create(ctx, companyID, invoiceRequest())
	require.NoError(t, err)
	require.NoError(t, memResponses{s}.Save(ctx, &entity.SunatResponse{
		DocumentID: created.ID, Code: "0", Message: "aceptada", CDRXML: "<ApplicationResponse/>", CreatedAt: fixedNow,
	}))

	got, err := uc.Get(ctx, companyID, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Sunat)
	assert.True(t, got.Sunat.HasCDR)
	assert.Equal(t, "2026-03-15T10:30:00Z", got.Sunat.ReceivedAt)
	assert.Len(t, got.Items, 1)

	st, err := uc.Status(ctx, companyID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "0", st.SunatCode)
	assert.Equal(t, "aceptada", st.SunatMessage)
}

func TestList_Pagina(t *testing.T) {
	uc, _, _ := newDocumentUseCase(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := uc.Create(ctx, companyID, invoiceRequest())
		require.NoError(t, err)
	}

	out, err := uc.List(ctx, companyID, dto.PageRequest{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, out.Data, 2)
	assert.Equal(t, 2, out.Page.Limit)
	assert.Equal(t, 3, out.Page.Total)
	assert.Equal(t, int64(3), out.Data[0].Number)
}

func TestSignedXMLZip(t *testing.T) {
	uc, s, _ := newDocumentUseCase(t)
	ctx := context.Background()
	created, err := uc.Create(ctx, companyID, invoiceRequest())
	require.NoError(t, err)

	_, _, err = uc.SignedXMLZip(ctx, companyID, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "sin firma no hay descarga")

	require.NoError(t, memDocs{s}.SaveArtifacts(ctx, created.ID, "<Invoice/>", "h", signedXML))
	name, data, err := uc.SignedXMLZip(ctx, companyID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, fileBase+".zip", name)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, fileBase+".xml", zr.File[0].Name)
	f, err := zr.File[0].Open()
	require.NoError(t, err)
	content, _ := io.ReadAll(f)
	assert.Equal(t, signedXML, string(content))
}

// ─── Envío ─────────────────────────────────────────────────────────────────

func TestRequestSend(t *testing.T) {
	uc, s, q := newDocumentUseCase(t)
	ctx := context.Background()
	created, err := uc.Create(ctx, companyID, invoiceRequest())
	require.NoError(t, err)

	out, err := uc.RequestSend(ctx, companyID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusPending, out.Status)
	assert.Equal(t, []string{created.ID}, q.ids)

	s.docs[created.ID].Status = entity.DocumentStatusAccepted
	_, err = uc.RequestSend(ctx, companyID, created.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestRequestSend_ColaLlena(t *testing.T) {
	uc, _, q := newDocumentUseCase(t)
	created, err := uc.Create(context.Background(), companyID, invoiceRequest())
	require.NoError(t, err)
	q.err = billing.ErrQueueFull

	_, err = uc.RequestSend(context.Background(), companyID, created.ID)
	assert.True(t, errors.Is(err, billing.ErrQueueFull))
}
