package repository

import (
	"context"

	"github.com/jhoicas/retail-ledger/internal/domain/entity"
)

// BalanceReader lectura puntual de saldos con su token de versión.
// Un registro inexistente se devuelve en cero con Version 0 (creación perezosa).
type BalanceReader interface {
	GetStock(ctx context.Context, productID string) (*entity.StockBalance, error)
	GetAccount(ctx context.Context, userID string, resource entity.ResourceKind) (*entity.BalanceAccount, error)
}

// BalanceRepository agrega la escritura atómica compare-and-set.
// Solo el commit del motor del ledger recibe este puerto; los llamadores nunca lo ven.
type BalanceRepository interface {
	BalanceReader
	// CompareAndSetStock persiste stock solo si la versión almacenada es expectedVersion.
	// Retorna domain.ErrVersionConflict en caso contrario. Incrementa stock.Version.
	CompareAndSetStock(ctx context.Context, stock *entity.StockBalance, expectedVersion int64) error
	// CompareAndSetAccount igual que CompareAndSetStock para cuentas de puntos/monedero.
	CompareAndSetAccount(ctx context.Context, acct *entity.BalanceAccount, expectedVersion int64) error
}
