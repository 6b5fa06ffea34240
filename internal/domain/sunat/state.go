package sunat

import (
	"fmt"

	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
)

// transiciones permitidas. PENDING → REJECTED cubre los fallos de certificado o firma,
// que ocurren antes de cualquier llamada a SUNAT.
var transitions = map[string]map[string]bool{
	entity.DocumentStatusPending: {
		entity.DocumentStatusSent:     true,
		entity.DocumentStatusRejected: true,
		entity.DocumentStatusCanceled: true,
	},
	entity.DocumentStatusSent: {
		entity.DocumentStatusAccepted: true,
		entity.DocumentStatusRejected: true,
	},
}

// CanTransition indica si from -> to es válida.
func CanTransition(from, to string) bool {
	return transitions[from][to]
}

// Transition valida y devuelve domain.ErrInvalidTransition envuelto si no aplica.
func Transition(from, to string) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}
	return nil
}

// IsTerminal ACCEPTED, REJECTED y CANCELED no tienen transiciones de salida.
func IsTerminal(status string) bool {
	return len(transitions[status]) == 0
}

// CanEdit solo un comprobante pendiente puede modificarse.
func CanEdit(status string) bool { return status == entity.DocumentStatusPending }

// CanSubmit solo un comprobante pendiente entra al pipeline de envío.
func CanSubmit(status string) bool { return status == entity.DocumentStatusPending }

// CanDelete un comprobante aceptado o anulado es inmutable y no se elimina.
func CanDelete(status string) bool {
	return status != entity.DocumentStatusAccepted && status != entity.DocumentStatusCanceled
}
