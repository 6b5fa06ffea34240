package dto

// CreateCustomerRequest body para POST /api/customers.
// identity_type acepta el código de catálogo (1, 4, 6, 7, 0) o alias (DNI, RUC, CE, PASAPORTE).
type CreateCustomerRequest struct {
	IdentityType   string `json:"identity_type" validate:"required,max=16"`
	IdentityNumber string `json:"identity_number" validate:"required,max=20"`
	Name           string `json:"name" validate:"required,max=255"`
	Address        string `json:"address,omitempty" validate:"max=500"`
	Email          string `json:"email,omitempty" validate:"omitempty,email"`
}

// CustomerResponse adquirente en respuestas.
type CustomerResponse struct {
	ID             string `json:"id"`
	CompanyID      string `json:"company_id"`
	IdentityType   string `json:"identity_type"`
	SchemeID       string `json:"scheme_id"` // código catálogo 06 resuelto
	IdentityNumber string `json:"identity_number"`
	Name           string `json:"name"`
	Address        string `json:"address,omitempty"`
	Email          string `json:"email,omitempty"`
}
