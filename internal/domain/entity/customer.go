package entity

import "time"

// Customer adquirente/usuario del comprobante.
type Customer struct {
	ID             string
	CompanyID      string
	IdentityType   string // código catálogo 06 o alias (DNI, RUC, CE, PASAPORTE)
	IdentityNumber string
	Name           string
	Address        string
	Email          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
