package billing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-sunat/internal/application/billing"
	"github.com/jhoicas/facturador-sunat/internal/application/dto"
	"github.com/jhoicas/facturador-sunat/internal/domain"
	domsunat "github.com/jhoicas/facturador-sunat/internal/domain/sunat"
)

func TestCustomerCreate_RUCConSchemeID(t *testing.T) {
	s := newMemStore()
	uc := billing.NewCustomerUseCase(memCustomers{s})

	out, err := uc.Create(context.Background(), companyID, dto.CreateCustomerRequest{
		IdentityType: "ruc", IdentityNumber: " 20100070970 ", Name: "CLIENTE DEMO S.A.", Email: "pagos@cliente.pe",
	})
	require.NoError(t, err)
	assert.Equal(t, "RUC", out.IdentityType)
	assert.Equal(t, "6", out.SchemeID)
	assert.Equal(t, "20100070970", out.IdentityNumber)

	got, err := uc.Get(context.Background(), companyID, out.ID)
	require.NoError(t, err)
	assert.Equal(t, out, got)

	_, err = uc.Get(context.Background(), "otra", out.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCustomerCreate_Duplicado(t *testing.T) {
	s := newMemStore()
	uc := billing.NewCustomerUseCase(memCustomers{s})
	in := dto.CreateCustomerRequest{IdentityType: "1", IdentityNumber: "45678912", Name: "JUAN PEREZ"}

	_, err := uc.Create(context.Background(), companyID, in)
	require.NoError(t, err)
	_, err = uc.Create(context.Background(), companyID, in)
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestCustomerCreate_Invalido(t *testing.T) {
	uc := billing.NewCustomerUseCase(memCustomers{newMemStore()})

	_, err := uc.Create(context.Background(), companyID, dto.CreateCustomerRequest{
		IdentityType: "6", IdentityNumber: "20100070971", Name: "DIGITO MALO SAC",
	})
	assert.True(t, domsunat.IsValidation(err))

	_, err = uc.Create(context.Background(), companyID, dto.CreateCustomerRequest{IdentityType: "1", Name: "SIN DOC", Email: "no-es-email"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IdentityNumber")
	assert.Contains(t, err.Error(), "Email")
}
