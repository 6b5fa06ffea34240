package entity

import "time"

// Roles válidos para User.
const (
	RoleAdmin    = "admin"    // gestiona el emisor, su certificado y sus usuarios
	RoleOperator = "operator" // emite y envía comprobantes
)

// Estados de un usuario.
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User usuario del facturador; pertenece a un emisor (Company).
type User struct {
	ID           string
	CompanyID    string
	Email        string
	PasswordHash string // bcrypt
	Name         string
	Role         string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsActive indica si el usuario puede iniciar sesión.
func (u *User) IsActive() bool {
	return u != nil && u.Status == UserStatusActive
}
