package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-sunat/pkg/jwt"
)

const secret = "secreto-de-pruebas"

func TestGenerateParse_RoundTrip(t *testing.T) {
	in := jwt.Identity{UserID: "u-1", CompanyID: "c-1", Role: jwt.RoleOperator}
	tok, err := jwt.Generate(secret, in, "facturador-sunat", 5)
	require.NoError(t, err)

	out, err := jwt.Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestParse_SecretIncorrecto(t *testing.T) {
	tok, err := jwt.Generate(secret, jwt.Identity{UserID: "u-1", CompanyID: "c-1"}, "x", 5)
	require.NoError(t, err)

	_, err = jwt.Parse("otro", tok)
	assert.Error(t, err)
}

func TestParse_Expirado(t *testing.T) {
	tok, err := jwt.Generate(secret, jwt.Identity{UserID: "u-1", CompanyID: "c-1"}, "x", -1)
	require.NoError(t, err)

	_, err = jwt.Parse(secret, tok)
	assert.Error(t, err)
}

func TestParse_SinCompany(t *testing.T) {
	tok, err := jwt.Generate(secret, jwt.Identity{UserID: "u-1"}, "x", 5)
	require.NoError(t, err)

	_, err = jwt.Parse(secret, tok)
	assert.Error(t, err)
}

func TestGenerate_SecretVacio(t *testing.T) {
	_, err := jwt.Generate("", jwt.Identity{}, "x", 5)
	assert.Error(t, err)
}
