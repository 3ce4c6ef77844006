package repository

import (
	"context"

	"github.com/jhoicas/retail-ledger/internal/domain/entity"
)

// MutationLogReader consultas de solo lectura del historial, más reciente primero.
type MutationLogReader interface {
	ListByEntity(ctx context.Context, ref entity.EntityRef, limit, offset int) ([]*entity.MutationLogEntry, error)
	ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.MutationLogEntry, error)
}

// MutationLogRepository log append-only: no existe Update ni Delete.
type MutationLogRepository interface {
	MutationLogReader
	// Append persiste una entrada ya sellada con su timestamp de commit.
	Append(ctx context.Context, entry *entity.MutationLogEntry) error
}
