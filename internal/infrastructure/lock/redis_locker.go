// Package lock implementa la exclusividad por comprobante del pipeline de envío.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/facturador-sunat/internal/domain"
)

const keyPrefix = "sunat:document:"

// RedisLocker lock distribuido por comprobante (varias instancias del API comparten Redis).
type RedisLocker struct {
	locker *redislock.Client
	ttl    time.Duration
}

// NewRedisLocker construye el locker sobre un cliente go-redis. ttl acota la duración del lock
// si el proceso muere sin liberarlo.
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisLocker{locker: redislock.New(client), ttl: ttl}
}

// NewRedisClient abre el cliente y verifica la conexión.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// TryLock toma el lock sin reintentos. Si otro proceso lo tiene devuelve domain.ErrDocumentBusy.
func (l *RedisLocker) TryLock(ctx context.Context, documentID string) (func(), error) {
	lk, err := l.locker.Obtain(ctx, keyPrefix+documentID, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, domain.ErrDocumentBusy
	}
	if err != nil {
		return nil, fmt.Errorf("redis lock %s: %w", documentID, err)
	}
	return func() {
		// contexto propio: el del pipeline puede estar vencido al liberar
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = lk.Release(ctx)
	}, nil
}
