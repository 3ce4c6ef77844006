package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/retail-ledger/internal/domain/entity"
	"github.com/jhoicas/retail-ledger/internal/domain/repository"
)

var _ repository.ProductCostRepository = (*ProductCostRepo)(nil)

// ProductCostRepo costos de compra por producto (NUMERIC vía pgx-shopspring-decimal).
type ProductCostRepo struct {
	q Querier
}

// NewProductCostRepository construye el adaptador. Pasar pool o tx (Querier).
func NewProductCostRepository(q Querier) *ProductCostRepo {
	return &ProductCostRepo{q: q}
}

// Get devuelve nil si el producto no tiene costo registrado.
func (r *ProductCostRepo) Get(ctx context.Context, productID string) (*entity.ProductCost, error) {
	query := `
		SELECT product_id, last_purchase_cost, average_cost, updated_at
		FROM product_costs WHERE product_id = $1`
	var c entity.ProductCost
	err := r.q.QueryRow(ctx, query, productID).Scan(&c.ProductID, &c.LastPurchaseCost, &c.AverageCost, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product cost: %w", mapError(err))
	}
	return &c, nil
}

// Upsert inserta o reemplaza el costo del producto.
func (r *ProductCostRepo) Upsert(ctx context.Context, c *entity.ProductCost) error {
	query := `
		INSERT INTO product_costs (product_id, last_purchase_cost, average_cost, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id)
		DO UPDATE SET last_purchase_cost = EXCLUDED.last_purchase_cost,
		              average_cost = EXCLUDED.average_cost,
		              updated_at = EXCLUDED.updated_at`
	if _, err := r.q.Exec(ctx, query, c.ProductID, c.LastPurchaseCost, c.AverageCost, c.UpdatedAt); err != nil {
		return fmt.Errorf("upsert product cost: %w", mapError(err))
	}
	return nil
}
