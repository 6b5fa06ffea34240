package billing

import (
	"context"
	"errors"
	"sync"
	"time"

	pkgsunat "github.com/jhoicas/facturador-sunat/pkg/sunat"
)

var (
	// ErrQueueFull la cola del dispatcher no admite más trabajos.
	ErrQueueFull = errors.New("cola de envíos llena")
	// ErrDispatcherClosed el dispatcher ya no acepta trabajos.
	ErrDispatcherClosed = errors.New("dispatcher detenido")
)

// Processor ejecuta el pipeline de un comprobante. Lo implementa SunatOrchestrator.
type Processor interface {
	Process(ctx context.Context, documentID string) error
}

// Dispatcher pool de workers que procesa envíos a SUNAT en segundo plano.
// El handler HTTP encola y responde 202; el cliente consulta el estado por polling.
type Dispatcher struct {
	proc        Processor
	log         pkgsunat.EventLogger
	concurrency int
	jobTimeout  time.Duration
	jobs        chan string

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher construye el dispatcher. Llamar Start antes de encolar.
func NewDispatcher(proc Processor, log pkgsunat.EventLogger, concurrency, queueSize int, jobTimeout time.Duration) *Dispatcher {
	if concurrency < 1 {
		concurrency = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if jobTimeout <= 0 {
		jobTimeout = 2 * time.Minute
	}
	return &Dispatcher{
		proc:        proc,
		log:         log,
		concurrency: concurrency,
		jobTimeout:  jobTimeout,
		jobs:        make(chan string, queueSize),
	}
}

// Start lanza los workers.
func (d *Dispatcher) Start() {
	for i := 0; i < d.concurrency; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

// Enqueue agrega un comprobante a la cola sin bloquear.
func (d *Dispatcher) Enqueue(documentID string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.jobs <- documentID:
		d.log.Info("sunat.dispatch.enqueued", map[string]any{"document_id": documentID})
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown deja de aceptar trabajos y espera a que los workers vacíen la cola o venza ctx.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for documentID := range d.jobs {
		d.run(id, documentID)
	}
}

func (d *Dispatcher) run(workerID int, documentID string) {
	ctx, cancel := context.WithTimeout(context.Background(), d.jobTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("sunat.dispatch.panic", map[string]any{"document_id": documentID, "panic": r})
		}
	}()

	start := time.Now()
	if err := d.proc.Process(ctx, documentID); err != nil {
		d.log.Error("sunat.dispatch.failed", map[string]any{
			"document_id": documentID, "worker": workerID, "error": err.Error(),
		})
		return
	}
	d.log.Info("sunat.dispatch.done", map[string]any{
		"document_id": documentID, "worker": workerID, "elapsed_ms": time.Since(start).Milliseconds(),
	})
}
