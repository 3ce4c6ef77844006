package repository

import (
	"context"

	"github.com/jhoicas/retail-ledger/internal/domain/entity"
)

// ProductCostRepository costo de compra por producto (actualizado por la recepción).
type ProductCostRepository interface {
	// Get devuelve nil si el producto aún no tiene costo registrado.
	Get(ctx context.Context, productID string) (*entity.ProductCost, error)
	Upsert(ctx context.Context, cost *entity.ProductCost) error
}
