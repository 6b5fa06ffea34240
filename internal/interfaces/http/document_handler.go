package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturador-sunat/internal/application/dto"
	pkgsunat "github.com/jhoicas/facturador-sunat/pkg/sunat"
)

// DocumentService operaciones de comprobantes expuestas por la API. La implementa billing.DocumentUseCase.
type DocumentService interface {
	Create(ctx context.Context, companyID string, in dto.CreateDocumentRequest) (*dto.DocumentResponse, error)
	Update(ctx context.Context, companyID, id string, in dto.CreateDocumentRequest) (*dto.DocumentResponse, error)
	Delete(ctx context.Context, companyID, id string) error
	Cancel(ctx context.Context, companyID, id string) (*dto.DocumentStatusDTO, error)
	Get(ctx context.Context, companyID, id string) (*dto.DocumentResponse, error)
	Status(ctx context.Context, companyID, id string) (*dto.DocumentStatusDTO, error)
	List(ctx context.Context, companyID string, page dto.PageRequest) (*dto.DocumentListResponse, error)
	SignedXMLZip(ctx context.Context, companyID, id string) (string, []byte, error)
	RequestSend(ctx context.Context, companyID, id string) (*dto.DocumentStatusDTO, error)
}

// DocumentHandler maneja las peticiones HTTP de comprobantes electrónicos (protegido).
type DocumentHandler struct {
	svc DocumentService
	log pkgsunat.EventLogger
}

// NewDocumentHandler construye el handler.
func NewDocumentHandler(svc DocumentService, log pkgsunat.EventLogger) *DocumentHandler {
	return &DocumentHandler{svc: svc, log: log}
}

// Create POST /api/documents
func (h *DocumentHandler) Create(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.CreateDocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.svc.Create(c.UserContext(), companyID, in)
	if err != nil {
		return h.fail(c, "documents.create", err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List GET /api/documents?limit=20&offset=0
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	page := dto.PageRequest{Limit: c.QueryInt("limit", dto.DefaultPageLimit), Offset: c.QueryInt("offset", 0)}.Normalize()
	out, err := h.svc.List(c.UserContext(), companyID, page)
	if err != nil {
		return h.fail(c, "documents.list", err)
	}
	return c.JSON(out)
}

// Get GET /api/documents/:id
func (h *DocumentHandler) Get(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.svc.Get(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		return h.fail(c, "documents.get", err)
	}
	return c.JSON(out)
}

// Update PUT /api/documents/:id (solo PENDING)
func (h *DocumentHandler) Update(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.CreateDocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.svc.Update(c.UserContext(), companyID, c.Params("id"), in)
	if err != nil {
		return h.fail(c, "documents.update", err)
	}
	return c.JSON(out)
}

// Delete DELETE /api/documents/:id
func (h *DocumentHandler) Delete(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	if err := h.svc.Delete(c.UserContext(), companyID, c.Params("id")); err != nil {
		return h.fail(c, "documents.delete", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Send POST /api/documents/:id/send
// Encola el envío y responde 202; el resultado se consulta en /status.
func (h *DocumentHandler) Send(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.svc.RequestSend(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		return h.fail(c, "documents.send", err)
	}
	return c.Status(fiber.StatusAccepted).JSON(out)
}

// Cancel POST /api/documents/:id/cancel
func (h *DocumentHandler) Cancel(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.svc.Cancel(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		return h.fail(c, "documents.cancel", err)
	}
	return c.JSON(out)
}

// Status GET /api/documents/:id/status
func (h *DocumentHandler) Status(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.svc.Status(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		return h.fail(c, "documents.status", err)
	}
	return c.JSON(out)
}

// DownloadXML GET /api/documents/:id/xml (ZIP con el XML firmado)
func (h *DocumentHandler) DownloadXML(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	name, data, err := h.svc.SignedXMLZip(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		return h.fail(c, "documents.xml", err)
	}
	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Send(data)
}

func (h *DocumentHandler) fail(c *fiber.Ctx, op string, err error) error {
	if status, _ := errorStatus(err); status >= fiber.StatusInternalServerError {
		h.log.Error("http."+op, map[string]any{"document_id": c.Params("id"), "error": err.Error()})
	}
	return writeError(c, err)
}
