package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturador-sunat/internal/application/dto"
	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/internal/domain/repository"
	domsunat "github.com/jhoicas/facturador-sunat/internal/domain/sunat"
	pkgsunat "github.com/jhoicas/facturador-sunat/pkg/sunat"
)

// ProductUseCase catálogo de productos del emisor. Las líneas del comprobante toman de aquí
// descripción, precio, afectación y unidad cuando no vienen en la solicitud.
type ProductUseCase struct {
	repo repository.ProductRepository
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(repo repository.ProductRepository) *ProductUseCase {
	return &ProductUseCase{repo: repo}
}

// Create crea un producto. El código es único por emisor.
func (uc *ProductUseCase) Create(ctx context.Context, companyID string, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	if err := checkUnitPrice(in.UnitPrice); err != nil {
		return nil, err
	}
	code := strings.TrimSpace(in.Code)
	existing, err := uc.repo.GetByCompanyAndCode(ctx, companyID, code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}
	unit := strings.ToUpper(strings.TrimSpace(in.UnitMeasure))
	if unit == "" {
		unit = "NIU"
	}
	taxType := in.TaxType
	if taxType == "" {
		taxType = "10"
	}
	now := time.Now()
	product := &entity.Product{
		ID:          uuid.New().String(),
		CompanyID:   companyID,
		Code:        code,
		Description: strings.TrimSpace(in.Description),
		UnitMeasure: unit,
		UnitPrice:   in.UnitPrice,
		TaxType:     taxType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// Get obtiene un producto del emisor.
func (uc *ProductUseCase) Get(ctx context.Context, companyID, id string) (*dto.ProductResponse, error) {
	product, err := uc.load(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// Update actualiza un producto. Los comprobantes ya emitidos no cambian: copian los valores al crearse.
func (uc *ProductUseCase) Update(ctx context.Context, companyID, id string, in dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	product, err := uc.load(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if in.Description != nil {
		product.Description = strings.TrimSpace(*in.Description)
	}
	if in.UnitMeasure != nil {
		product.UnitMeasure = strings.ToUpper(strings.TrimSpace(*in.UnitMeasure))
	}
	if in.UnitPrice != nil {
		if err := checkUnitPrice(*in.UnitPrice); err != nil {
			return nil, err
		}
		product.UnitPrice = *in.UnitPrice
	}
	if in.TaxType != nil {
		product.TaxType = *in.TaxType
	}
	product.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

func (uc *ProductUseCase) load(ctx context.Context, companyID, id string) (*entity.Product, error) {
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil || product.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	return product, nil
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:          p.ID,
		CompanyID:   p.CompanyID,
		Code:        p.Code,
		Description: p.Description,
		UnitMeasure: p.UnitMeasure,
		UnitCode:    pkgsunat.UnitCode(p.UnitMeasure),
		UnitPrice:   p.UnitPrice,
		TaxType:     p.TaxType,
	}
}

func checkUnitPrice(p decimal.Decimal) error {
	if p.IsNegative() {
		return domsunat.NewValidationError("unit_price: debe ser >= 0")
	}
	if !domsunat.FitsInputScale(p) {
		return domsunat.NewValidationError(fmt.Sprintf("unit_price: admite hasta %d decimales", domsunat.InputScale))
	}
	return nil
}
