package ledger

import (
	"context"

	"github.com/jhoicas/retail-ledger/internal/domain/entity"
	"github.com/jhoicas/retail-ledger/internal/domain/repository"
)

// TxRunner ejecuta fn como una unidad atómica contra el almacenamiento del ledger,
// pasando repositorios atados a esa transacción. Si fn falla nada se persiste.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		balances repository.BalanceRepository,
		logs repository.MutationLogRepository,
		costs repository.ProductCostRepository,
	) error) error
}

// EventPublisher notifica a los suscriptores (UI en vivo, integraciones) cada commit.
type EventPublisher interface {
	Publish(ctx context.Context, event entity.MutationCommitted) error
}

// EntityLocker bloqueo consultivo entre procesos sobre un registro de saldo.
// La corrección no depende de él: la verificación de versión sigue siendo la garantía.
type EntityLocker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// NoopPublisher descarta los eventos.
type NoopPublisher struct{}

func (NoopPublisher) Publish(_ context.Context, _ entity.MutationCommitted) error { return nil }

// NoopLocker nunca bloquea.
type NoopLocker struct{}

func (NoopLocker) Acquire(_ context.Context, _ string) (func(), error) { return func() {}, nil }
