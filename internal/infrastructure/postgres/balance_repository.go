package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/retail-ledger/internal/domain"
	"github.com/jhoicas/retail-ledger/internal/domain/entity"
	"github.com/jhoicas/retail-ledger/internal/domain/repository"
)

var _ repository.BalanceRepository = (*BalanceRepo)(nil)

// BalanceRepo saldos de stock y cuentas sobre PostgreSQL (usable con pool o tx).
type BalanceRepo struct {
	q Querier
}

// NewBalanceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBalanceRepository(q Querier) *BalanceRepo {
	return &BalanceRepo{q: q}
}

// GetStock obtiene el saldo del producto; inexistente = saldo en cero con versión 0.
func (r *BalanceRepo) GetStock(ctx context.Context, productID string) (*entity.StockBalance, error) {
	query := `
		SELECT product_id, unit, per_warehouse, total, version, updated_at
		FROM stock_balances WHERE product_id = $1`
	s := entity.NewStockBalance(productID)
	err := r.q.QueryRow(ctx, query, productID).Scan(
		&s.ProductID, &s.Unit, &s.PerWarehouse, &s.Total, &s.Version, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.NewStockBalance(productID), nil
		}
		return nil, fmt.Errorf("get stock balance: %w", mapError(err))
	}
	if s.PerWarehouse == nil {
		s.PerWarehouse = map[string]int64{}
	}
	return s, nil
}

// CompareAndSetStock inserta (versión 0) o actualiza solo si la versión persistida coincide.
func (r *BalanceRepo) CompareAndSetStock(ctx context.Context, stock *entity.StockBalance, expectedVersion int64) error {
	var (
		query string
		args  []any
	)
	if expectedVersion == 0 {
		query = `
			INSERT INTO stock_balances (product_id, unit, per_warehouse, total, version, updated_at)
			VALUES ($1, $2, $3, $4, 1, $5)
			ON CONFLICT (product_id) DO NOTHING`
		args = []any{stock.ProductID, stock.Unit, stock.PerWarehouse, stock.Total, stock.UpdatedAt}
	} else {
		query = `
			UPDATE stock_balances
			SET unit = $2, per_warehouse = $3, total = $4, version = version + 1, updated_at = $5
			WHERE product_id = $1 AND version = $6`
		args = []any{stock.ProductID, stock.Unit, stock.PerWarehouse, stock.Total, stock.UpdatedAt, expectedVersion}
	}
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("compare-and-set stock %s: %w", stock.ProductID, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}
	stock.Version = expectedVersion + 1
	return nil
}

// GetAccount obtiene la cuenta; inexistente = cuenta en cero con versión 0.
func (r *BalanceRepo) GetAccount(ctx context.Context, userID string, resource entity.ResourceKind) (*entity.BalanceAccount, error) {
	query := `
		SELECT user_id, resource, amount, frozen, version, updated_at
		FROM balance_accounts WHERE user_id = $1 AND resource = $2`
	var a entity.BalanceAccount
	err := r.q.QueryRow(ctx, query, userID, string(resource)).Scan(
		&a.UserID, &a.Resource, &a.Amount, &a.Frozen, &a.Version, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.NewBalanceAccount(userID, resource), nil
		}
		return nil, fmt.Errorf("get balance account: %w", mapError(err))
	}
	return &a, nil
}

// CompareAndSetAccount igual que CompareAndSetStock para cuentas.
func (r *BalanceRepo) CompareAndSetAccount(ctx context.Context, acct *entity.BalanceAccount, expectedVersion int64) error {
	var (
		query string
		args  []any
	)
	if expectedVersion == 0 {
		query = `
			INSERT INTO balance_accounts (user_id, resource, amount, frozen, version, updated_at)
			VALUES ($1, $2, $3, $4, 1, $5)
			ON CONFLICT (user_id, resource) DO NOTHING`
		args = []any{acct.UserID, string(acct.Resource), acct.Amount, acct.Frozen, acct.UpdatedAt}
	} else {
		query = `
			UPDATE balance_accounts
			SET amount = $3, frozen = $4, version = version + 1, updated_at = $5
			WHERE user_id = $1 AND resource = $2 AND version = $6`
		args = []any{acct.UserID, string(acct.Resource), acct.Amount, acct.Frozen, acct.UpdatedAt, expectedVersion}
	}
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("compare-and-set account %s: %w", acct.Ref().Key(), mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}
	acct.Version = expectedVersion + 1
	return nil
}
