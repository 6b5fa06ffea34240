package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturador-sunat/internal/application/dto"
)

// CompanyService alta y mantenimiento del emisor. La implementa usecase.CompanyUseCase.
type CompanyService interface {
	Create(ctx context.Context, in dto.CreateCompanyRequest) (*dto.CompanyResponse, error)
	Get(ctx context.Context, id string) (*dto.CompanyResponse, error)
	Update(ctx context.Context, id string, in dto.UpdateCompanyRequest) (*dto.CompanyResponse, error)
	SetSunatCredentials(ctx context.Context, id string, in dto.SunatCredentialsRequest) (*dto.CompanyResponse, error)
}

// CompanyHandler maneja las peticiones HTTP del emisor.
type CompanyHandler struct {
	svc CompanyService
}

// NewCompanyHandler construye el handler.
func NewCompanyHandler(svc CompanyService) *CompanyHandler {
	return &CompanyHandler{svc: svc}
}

// Create POST /api/companies (público, alta de emisor).
func (h *CompanyHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateCompanyRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.svc.Create(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Me GET /api/companies/me: emisor del token.
func (h *CompanyHandler) Me(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.svc.Get(c.UserContext(), companyID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Update PUT /api/companies/me (admin).
func (h *CompanyHandler) Update(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.UpdateCompanyRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.svc.Update(c.UserContext(), companyID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// SetSunatCredentials PUT /api/companies/me/sunat (admin): usuario SOL y certificado.
func (h *CompanyHandler) SetSunatCredentials(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.SunatCredentialsRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.svc.SetSunatCredentials(c.UserContext(), companyID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
