package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/facturador-sunat/internal/application/dto"
	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/internal/domain/repository"
	domsunat "github.com/jhoicas/facturador-sunat/internal/domain/sunat"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat/signer"
)

// CertificateResolver resuelve el material de certificado del emisor. Lo implementa signer.CertificateResolver.
type CertificateResolver interface {
	Resolve(material, password string) (*signer.KeyPair, error)
}

// CompanyUseCase alta y mantenimiento de emisores.
type CompanyUseCase struct {
	repo     repository.CompanyRepository
	resolver CertificateResolver
	now      func() time.Time
}

// NewCompanyUseCase construye el caso de uso. resolver verifica el certificado antes de guardarlo.
func NewCompanyUseCase(repo repository.CompanyRepository, resolver CertificateResolver) *CompanyUseCase {
	return &CompanyUseCase{repo: repo, resolver: resolver, now: time.Now}
}

// WithClock fija el reloj (tests).
func (uc *CompanyUseCase) WithClock(now func() time.Time) *CompanyUseCase {
	uc.now = now
	return uc
}

// Create registra un emisor. Devuelve domain.ErrDuplicate si el RUC ya existe.
func (uc *CompanyUseCase) Create(ctx context.Context, in dto.CreateCompanyRequest) (*dto.CompanyResponse, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	now := uc.now()
	company := &entity.Company{
		ID:         uuid.New().String(),
		RUC:        strings.TrimSpace(in.RUC),
		LegalName:  strings.TrimSpace(in.LegalName),
		TradeName:  strings.TrimSpace(in.TradeName),
		PostalCode: in.PostalCode,
		Address:    strings.TrimSpace(in.Address),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := domsunat.ValidateIssuer(company); err != nil {
		return nil, err
	}
	existing, err := uc.repo.GetByRUC(ctx, company.RUC)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}
	if err := uc.repo.Create(ctx, company); err != nil {
		return nil, err
	}
	return uc.toResponse(company), nil
}

// Get obtiene un emisor por ID.
func (uc *CompanyUseCase) Get(ctx context.Context, id string) (*dto.CompanyResponse, error) {
	company, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return uc.toResponse(company), nil
}

// Update modifica los datos generales del emisor. El RUC no cambia.
func (uc *CompanyUseCase) Update(ctx context.Context, id string, in dto.UpdateCompanyRequest) (*dto.CompanyResponse, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	company, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.LegalName != nil {
		company.LegalName = strings.TrimSpace(*in.LegalName)
	}
	if in.TradeName != nil {
		company.TradeName = strings.TrimSpace(*in.TradeName)
	}
	if in.PostalCode != nil {
		company.PostalCode = *in.PostalCode
	}
	if in.Address != nil {
		company.Address = strings.TrimSpace(*in.Address)
	}
	if err := domsunat.ValidateIssuer(company); err != nil {
		return nil, err
	}
	company.UpdatedAt = uc.now()
	if err := uc.repo.Update(ctx, company); err != nil {
		return nil, err
	}
	return uc.toResponse(company), nil
}

// SetSunatCredentials guarda usuario/clave SOL y el certificado de firma.
// Un certificado que no se puede abrir con la contraseña dada se rechaza sin guardar nada.
// Certificado vacío quita el certificado (el pipeline pasa a envío simulado).
func (uc *CompanyUseCase) SetSunatCredentials(ctx context.Context, id string, in dto.SunatCredentialsRequest) (*dto.CompanyResponse, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	company, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	certificate := strings.TrimSpace(in.Certificate)
	if certificate != "" {
		kp, err := uc.resolver.Resolve(certificate, in.CertificatePassword)
		if err != nil {
			return nil, domsunat.NewValidationError("certificado: " + err.Error())
		}
		if uc.now().After(kp.Certificate.NotAfter) {
			return nil, domsunat.NewValidationError("certificado: vencido el " + kp.Certificate.NotAfter.Format(time.DateOnly))
		}
	}
	company.SolUsername = strings.TrimSpace(in.SolUsername)
	company.SolPassword = in.SolPassword
	company.Certificate = certificate
	company.CertificatePassword = in.CertificatePassword
	company.UpdatedAt = uc.now()
	if err := uc.repo.Update(ctx, company); err != nil {
		return nil, err
	}
	return uc.toResponse(company), nil
}

func (uc *CompanyUseCase) load(ctx context.Context, id string) (*entity.Company, error) {
	company, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}
	return company, nil
}

func (uc *CompanyUseCase) toResponse(c *entity.Company) *dto.CompanyResponse {
	out := &dto.CompanyResponse{
		ID:                c.ID,
		RUC:               c.RUC,
		LegalName:         c.LegalName,
		TradeName:         c.TradeName,
		PostalCode:        c.PostalCode,
		Address:           c.Address,
		HasSolCredentials: c.HasSolCredentials(),
		HasCertificate:    c.HasCertificate(),
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
	// los datos del certificado se muestran solo si abre; un fallo aquí no impide la consulta
	if c.HasCertificate() && uc.resolver != nil {
		if kp, err := uc.resolver.Resolve(c.Certificate, c.CertificatePassword); err == nil {
			out.Certificate = &dto.CertificateInfo{
				Subject:  kp.Certificate.Subject.String(),
				Serial:   kp.Certificate.SerialNumber.String(),
				NotAfter: kp.Certificate.NotAfter,
			}
		}
	}
	return out
}
