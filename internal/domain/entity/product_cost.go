package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductCost último costo de compra y costo promedio ponderado de un producto.
// Lo actualiza la recepción de órdenes de compra dentro del mismo commit del stock.
type ProductCost struct {
	ProductID        string          `json:"product_id" bson:"_id"`
	LastPurchaseCost decimal.Decimal `json:"last_purchase_cost" bson:"last_purchase_cost"`
	AverageCost      decimal.Decimal `json:"average_cost" bson:"average_cost"`
	UpdatedAt        time.Time       `json:"updated_at" bson:"updated_at"`
}
