package billing_test

import (
	"context"
	"sort"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/internal/domain/repository"
	infrasunat "github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat"
)

// memStore persistencia en memoria compartida por los repositorios fake.
type memStore struct {
	mu        sync.Mutex
	docs      map[string]*entity.Document
	items     map[string][]*entity.DocumentItem
	companies map[string]*entity.Company
	customers map[string]*entity.Customer
	products  map[string]*entity.Product
	responses map[string]*entity.SunatResponse
	saves     int   // llamadas a SunatResponseRepository.Save
	saveErr   error // si no es nil, Save falla con él
}

func newMemStore() *memStore {
	return &memStore{
		docs:      map[string]*entity.Document{},
		items:     map[string][]*entity.DocumentItem{},
		companies: map[string]*entity.Company{},
		customers: map[string]*entity.Customer{},
		products:  map[string]*entity.Product{},
		responses: map[string]*entity.SunatResponse{},
	}
}

func (s *memStore) doc(id string) *entity.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return nil
	}
	cp := *d
	return &cp
}

func (s *memStore) response(documentID string) *entity.SunatResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.responses[documentID]
}

// ─── Comprobantes ──────────────────────────────────────────────────────────

type memDocs struct{ s *memStore }

var _ repository.DocumentRepository = memDocs{}

func (r memDocs) Create(_ context.Context, d *entity.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.docs {
		if o.CompanyID == d.CompanyID && o.DocumentType == d.DocumentType && o.Series == d.Series && o.Number == d.Number {
			return domain.ErrDuplicate
		}
	}
	cp := *d
	r.s.docs[d.ID] = &cp
	return nil
}

func (r memDocs) CreateItem(_ context.Context, it *entity.DocumentItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *it
	r.s.items[it.DocumentID] = append(r.s.items[it.DocumentID], &cp)
	return nil
}

func (r memDocs) Update(_ context.Context, d *entity.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.docs[d.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Status != entity.DocumentStatusPending {
		return domain.ErrConflict
	}
	cp := *d
	cp.Status = cur.Status
	r.s.docs[d.ID] = &cp
	return nil
}

func (r memDocs) SaveArtifacts(_ context.Context, id, xml, hash, xmlSigned string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	d.XML, d.Hash, d.XMLSigned = xml, hash, xmlSigned
	return nil
}

func (r memDocs) UpdateStatus(_ context.Context, id, from, to string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.docs[id]
	if !ok || d.Status != from {
		return false, nil
	}
	d.Status = to
	return true, nil
}

func (r memDocs) GetByID(_ context.Context, id string) (*entity.Document, error) {
	return r.s.doc(id), nil
}

func (r memDocs) GetItems(_ context.Context, documentID string) ([]*entity.DocumentItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entity.DocumentItem, 0, len(r.s.items[documentID]))
	for _, it := range r.s.items[documentID] {
		cp := *it
		out = append(out, &cp)
	}
	return out, nil
}

func (r memDocs) DeleteItems(_ context.Context, documentID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.items, documentID)
	return nil
}

func (r memDocs) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Status == entity.DocumentStatusAccepted || cur.Status == entity.DocumentStatusCanceled {
		return domain.ErrConflict
	}
	delete(r.s.docs, id)
	delete(r.s.items, id)
	delete(r.s.responses, id)
	return nil
}

func (r memDocs) NextNumber(_ context.Context, companyID, documentType, series string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var max int64
	for _, d := range r.s.docs {
		if d.CompanyID == companyID && d.DocumentType == documentType && d.Series == series && d.Number > max {
			max = d.Number
		}
	}
	return max + 1, nil
}

func (r memDocs) ListByCompany(_ context.Context, companyID string, limit, offset int) ([]*entity.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Document
	for _, d := range r.s.docs {
		if d.CompanyID == companyID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number > out[j].Number })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memDocs) CountByCompany(_ context.Context, companyID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, d := range r.s.docs {
		if d.CompanyID == companyID {
			n++
		}
	}
	return n, nil
}

// staleDocs devuelve siempre la foto PENDING tomada al crearlo, como una lectura que el
// pipeline adelanta antes de la escritura.
type staleDocs struct {
	memDocs
	snapshot map[string]*entity.Document
}

func (r staleDocs) GetByID(_ context.Context, id string) (*entity.Document, error) {
	d, ok := r.snapshot[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

// memTx ejecuta fn sin transacción real. RunAttempt restaura estados y respuestas si fn falla.
type memTx struct{ s *memStore }

func (t memTx) RunDocuments(ctx context.Context, fn func(docs repository.DocumentRepository) error) error {
	return fn(memDocs{t.s})
}

func (t memTx) RunAttempt(ctx context.Context, fn func(docs repository.DocumentRepository, responses repository.SunatResponseRepository) error) error {
	t.s.mu.Lock()
	statuses := make(map[string]string, len(t.s.docs))
	for id, d := range t.s.docs {
		statuses[id] = d.Status
	}
	responses := make(map[string]*entity.SunatResponse, len(t.s.responses))
	for id, r := range t.s.responses {
		responses[id] = r
	}
	t.s.mu.Unlock()

	err := fn(memDocs{t.s}, memResponses{t.s})
	if err != nil {
		t.s.mu.Lock()
		for id, st := range statuses {
			if d, ok := t.s.docs[id]; ok {
				d.Status = st
			}
		}
		t.s.responses = responses
		t.s.mu.Unlock()
	}
	return err
}

// ─── Emisor, adquirente, producto, respuestas ──────────────────────────────

type memCompanies struct{ s *memStore }

func (r memCompanies) Create(_ context.Context, c *entity.Company) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.companies[c.ID] = c
	return nil
}

func (r memCompanies) GetByID(_ context.Context, id string) (*entity.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.companies[id], nil
}

func (r memCompanies) GetByRUC(_ context.Context, ruc string) (*entity.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.companies {
		if c.RUC == ruc {
			return c, nil
		}
	}
	return nil, nil
}

func (r memCompanies) Update(ctx context.Context, c *entity.Company) error { return r.Create(ctx, c) }

type memCustomers struct{ s *memStore }

func (r memCustomers) Create(_ context.Context, c *entity.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.customers[c.ID] = c
	return nil
}

func (r memCustomers) GetByID(_ context.Context, id string) (*entity.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.customers[id], nil
}

func (r memCustomers) GetByCompanyAndIdentity(_ context.Context, companyID, number string) (*entity.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.customers {
		if c.CompanyID == companyID && c.IdentityNumber == number {
			return c, nil
		}
	}
	return nil, nil
}

func (r memCustomers) Update(ctx context.Context, c *entity.Customer) error { return r.Create(ctx, c) }

type memProducts struct{ s *memStore }

func (r memProducts) Create(_ context.Context, p *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.products[p.ID] = p
	return nil
}

func (r memProducts) GetByID(_ context.Context, id string) (*entity.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.products[id], nil
}

func (r memProducts) GetByCompanyAndCode(_ context.Context, companyID, code string) (*entity.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.products {
		if p.CompanyID == companyID && p.Code == code {
			return p, nil
		}
	}
	return nil, nil
}

func (r memProducts) Update(ctx context.Context, p *entity.Product) error { return r.Create(ctx, p) }

type memResponses struct{ s *memStore }

func (r memResponses) Save(_ context.Context, resp *entity.SunatResponse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.saves++
	if r.s.saveErr != nil {
		return r.s.saveErr
	}
	cp := *resp
	r.s.responses[resp.DocumentID] = &cp
	return nil
}

func (r memResponses) GetByDocumentID(_ context.Context, documentID string) (*entity.SunatResponse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.responses[documentID], nil
}

// ─── Mocks ─────────────────────────────────────────────────────────────────

type mockSigner struct{ mock.Mock }

func (m *mockSigner) Sign(xml, certificate, password string) (string, error) {
	args := m.Called(xml, certificate, password)
	return args.String(0), args.Error(1)
}

type mockSubmitter struct {
	mock.Mock
	notReady error
}

func (m *mockSubmitter) Ready() error { return m.notReady }

func (m *mockSubmitter) Submit(ctx context.Context, req infrasunat.SubmitRequest) (*infrasunat.RawResponse, error) {
	args := m.Called(ctx, req)
	raw, _ := args.Get(0).(*infrasunat.RawResponse)
	return raw, args.Error(1)
}

type mockArchiver struct{ mock.Mock }

func (m *mockArchiver) Archive(ctx context.Context, ruc, fileName string, data []byte) error {
	return m.Called(ctx, ruc, fileName, data).Error(0)
}

// recordingQueue SendQueue que solo registra los IDs encolados.
type recordingQueue struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (q *recordingQueue) Enqueue(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, id)
	return nil
}
