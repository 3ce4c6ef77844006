package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/retail-ledger/internal/domain/entity"
	"github.com/jhoicas/retail-ledger/internal/domain/repository"
)

var _ repository.MutationLogRepository = (*MutationLogRepo)(nil)

// MutationLogRepo log append-only de mutaciones sobre PostgreSQL.
type MutationLogRepo struct {
	q Querier
}

// NewMutationLogRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMutationLogRepository(q Querier) *MutationLogRepo {
	return &MutationLogRepo{q: q}
}

const logColumns = `id, transaction_id, entity_type, product_id, warehouse_id, user_id, resource,
	kind, delta, previous_value, next_value, reason, operator_id, reference, balance_version, timestamp`

// Append inserta una entrada. Un ID repetido es un error: el log nunca se reescribe.
func (r *MutationLogRepo) Append(ctx context.Context, e *entity.MutationLogEntry) error {
	query := `
		INSERT INTO mutation_log (` + logColumns + `, entity_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := r.q.Exec(ctx, query,
		e.ID, e.TransactionID, e.Entity.Type, e.Entity.ProductID, e.Entity.WarehouseID, e.Entity.UserID, string(e.Entity.Resource),
		string(e.Kind), e.Delta, e.PreviousValue, e.NextValue, e.Reason, e.OperatorID, e.Reference, e.BalanceVersion, e.Timestamp,
		e.Entity.Key(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("append mutation log: entrada %s duplicada: %w", e.ID, err)
		}
		return fmt.Errorf("append mutation log: %w", mapError(err))
	}
	return nil
}

// ListByEntity entradas de una entidad (producto+bodega o cuenta), más reciente primero.
func (r *MutationLogRepo) ListByEntity(ctx context.Context, ref entity.EntityRef, limit, offset int) ([]*entity.MutationLogEntry, error) {
	query := `SELECT ` + logColumns + ` FROM mutation_log
		WHERE entity_key = $1
		ORDER BY timestamp DESC, balance_version DESC, kind
		LIMIT NULLIF($2::int, 0) OFFSET $3`
	rows, err := r.q.Query(ctx, query, ref.Key(), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list mutation log by entity: %w", mapError(err))
	}
	return scanEntries(rows)
}

// ListByProduct entradas de stock de un producto en todas las bodegas, más reciente primero.
func (r *MutationLogRepo) ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.MutationLogEntry, error) {
	query := `SELECT ` + logColumns + ` FROM mutation_log
		WHERE entity_type = 'stock' AND product_id = $1
		ORDER BY timestamp DESC, balance_version DESC, kind
		LIMIT NULLIF($2::int, 0) OFFSET $3`
	rows, err := r.q.Query(ctx, query, productID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list mutation log by product: %w", mapError(err))
	}
	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]*entity.MutationLogEntry, error) {
	defer rows.Close()
	list := make([]*entity.MutationLogEntry, 0)
	for rows.Next() {
		var (
			e        entity.MutationLogEntry
			resource string
			kind     string
		)
		if err := rows.Scan(
			&e.ID, &e.TransactionID, &e.Entity.Type, &e.Entity.ProductID, &e.Entity.WarehouseID, &e.Entity.UserID, &resource,
			&kind, &e.Delta, &e.PreviousValue, &e.NextValue, &e.Reason, &e.OperatorID, &e.Reference, &e.BalanceVersion, &e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan mutation log: %w", err)
		}
		e.Entity.Resource = entity.ResourceKind(resource)
		e.Kind = entity.MutationKind(kind)
		e.EntityKey = e.Entity.Key()
		list = append(list, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mutation log: %w", mapError(err))
	}
	return list, nil
}
