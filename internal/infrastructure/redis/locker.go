package redis

import (
	"context"
	"time"

	"github.com/bsm/redislock"
	goredis "github.com/redis/go-redis/v9"

	appledger "github.com/jhoicas/retail-ledger/internal/application/ledger"
)

var _ appledger.EntityLocker = (*Locker)(nil)

const lockPrefix = "lock:ledger:"

// lockHandle lo que el locker necesita de un *redislock.Lock.
type lockHandle interface {
	Release(ctx context.Context) error
}

type obtainFunc func(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (lockHandle, error)

// Locker bloqueo consultivo por entidad con redislock. Si no se obtiene, el motor sigue sin él.
type Locker struct {
	obtain obtainFunc
	ttl    time.Duration
}

// NewLocker construye el locker. ttl acota cuánto puede retener un proceso caído la entidad.
func NewLocker(client goredis.UniversalClient, ttl time.Duration) *Locker {
	rl := redislock.New(client)
	return newLocker(func(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (lockHandle, error) {
		lock, err := rl.Obtain(ctx, key, ttl, opt)
		if err != nil {
			return nil, err
		}
		return lock, nil
	}, ttl)
}

func newLocker(obtain obtainFunc, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Locker{obtain: obtain, ttl: ttl}
}

// retryStrategy nueva en cada Acquire: LimitRetry lleva la cuenta de intentos.
func retryStrategy() redislock.RetryStrategy {
	return redislock.LimitRetry(redislock.LinearBackoff(25*time.Millisecond), 20)
}

// LockKey clave redis del bloqueo de una entidad.
func LockKey(key string) string {
	return lockPrefix + key
}

// Acquire obtiene "lock:ledger:<key>". Devuelve redislock.ErrNotObtained si otro proceso lo retiene.
// La liberación ignora errores: si el TTL ya expiró el lock simplemente no existe.
func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	lock, err := l.obtain(ctx, LockKey(key), l.ttl, &redislock.Options{RetryStrategy: retryStrategy()})
	if err != nil {
		return nil, err
	}
	return func() {
		_ = lock.Release(context.Background())
	}, nil
}
