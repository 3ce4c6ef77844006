package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// OpnameRequest body para POST /api/ledger/stock/opname.
type OpnameRequest struct {
	ProductID       string `json:"product_id"`
	WarehouseID     string `json:"warehouse_id"`
	CountedQuantity int64  `json:"counted_quantity"`
	Reason          string `json:"reason,omitempty"`
}

// TransferRequest body para POST /api/ledger/stock/transfer.
type TransferRequest struct {
	ProductID       string `json:"product_id"`
	FromWarehouseID string `json:"from_warehouse_id"`
	ToWarehouseID   string `json:"to_warehouse_id"`
	Quantity        int64  `json:"quantity"`
	Reason          string `json:"reason,omitempty"`
}

// ReceiveRequest body para POST /api/ledger/stock/receive.
type ReceiveRequest struct {
	ProductID       string          `json:"product_id"`
	WarehouseID     string          `json:"warehouse_id"`
	PurchaseOrderID string          `json:"purchase_order_id,omitempty"`
	Unit            string          `json:"unit,omitempty"`
	Quantity        int64           `json:"quantity"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	Reason          string          `json:"reason,omitempty"`
}

// AdjustBalanceRequest body para POST /api/ledger/accounts/adjust.
type AdjustBalanceRequest struct {
	UserID   string `json:"user_id"`
	Resource string `json:"resource"` // points | wallet
	Kind     string `json:"kind"`     // BONUS | PENALTY | TOPUP | WITHDRAWAL
	Amount   int64  `json:"amount"`
	Reason   string `json:"reason,omitempty"`
}

// FreezeRequest body para POST /api/ledger/accounts/freeze y /unfreeze.
type FreezeRequest struct {
	UserID   string `json:"user_id"`
	Resource string `json:"resource"`
	Reason   string `json:"reason,omitempty"`
}

// StockBalanceResponse saldo de stock de un producto.
type StockBalanceResponse struct {
	ProductID    string           `json:"product_id"`
	Unit         string           `json:"unit,omitempty"`
	PerWarehouse map[string]int64 `json:"per_warehouse"`
	Total        int64            `json:"total"`
	Version      int64            `json:"version"`
	UpdatedAt    *time.Time       `json:"updated_at,omitempty"`
}

// AccountResponse saldo de puntos o monedero.
type AccountResponse struct {
	UserID    string     `json:"user_id"`
	Resource  string     `json:"resource"`
	Amount    int64      `json:"amount"`
	Display   string     `json:"display"` // "Rp50.000" o "1.200 puntos"
	Frozen    bool       `json:"frozen"`
	Version   int64      `json:"version"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// ProductCostResponse costo tras una recepción.
type ProductCostResponse struct {
	LastPurchaseCost decimal.Decimal `json:"last_purchase_cost"`
	AverageCost      decimal.Decimal `json:"average_cost"`
}

// LogEntryResponse entrada del historial.
type LogEntryResponse struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id"`
	EntityKey     string    `json:"entity"`
	Kind          string    `json:"kind"`
	Delta         int64     `json:"delta"`
	PreviousValue int64     `json:"previous_value"`
	NextValue     int64     `json:"next_value"`
	Reason        string    `json:"reason"`
	OperatorID    string    `json:"operator_id"`
	Reference     string    `json:"reference,omitempty"`
	Version       int64     `json:"balance_version"`
	Timestamp     time.Time `json:"timestamp"`
}

// MutationResponse respuesta de una mutación confirmada.
type MutationResponse struct {
	Status        string                `json:"status"`
	TransactionID string                `json:"transaction_id"`
	Stock         *StockBalanceResponse `json:"stock,omitempty"`
	Account       *AccountResponse      `json:"account,omitempty"`
	Cost          *ProductCostResponse  `json:"cost,omitempty"`
	Entries       []LogEntryResponse    `json:"entries"`
}

// HistoryResponse página del historial.
type HistoryResponse struct {
	Items []LogEntryResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}
