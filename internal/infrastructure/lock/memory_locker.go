package lock

import (
	"context"
	"sync"

	"github.com/jhoicas/facturador-sunat/internal/domain"
)

// MemoryLocker lock por comprobante dentro del proceso (REDIS_ADDRESS vacío).
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemoryLocker crea un locker vacío.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]struct{})}
}

// TryLock devuelve domain.ErrDocumentBusy si el comprobante ya está en proceso.
func (l *MemoryLocker) TryLock(_ context.Context, documentID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[documentID]; busy {
		return nil, domain.ErrDocumentBusy
	}
	l.held[documentID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, documentID)
			l.mu.Unlock()
		})
	}, nil
}
