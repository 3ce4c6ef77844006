package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/retail-ledger/internal/domain/entity"
	"github.com/jhoicas/retail-ledger/internal/domain/inventory"
	domledger "github.com/jhoicas/retail-ledger/internal/domain/ledger"
	"github.com/jhoicas/retail-ledger/internal/domain/repository"
)

// OpnameInput conteo físico de un producto en una bodega.
type OpnameInput struct {
	OperatorID      string
	ProductID       string
	WarehouseID     string
	CountedQuantity int64
	Reason          string
}

// TransferInput traslado entre dos bodegas del mismo producto.
type TransferInput struct {
	OperatorID      string
	ProductID       string
	FromWarehouseID string
	ToWarehouseID   string
	Quantity        int64
	Reason          string
}

// ReceiveInput recepción de mercancía de una orden de compra.
type ReceiveInput struct {
	OperatorID      string
	ProductID       string
	WarehouseID     string
	PurchaseOrderID string
	Unit            string
	Quantity        int64
	UnitCost        decimal.Decimal
	Reason          string
}

// Opname fija la cantidad de la bodega al conteo físico. El delta puede ser cero o negativo.
func (e *Engine) Opname(ctx context.Context, in OpnameInput) (*Result, error) {
	in.ProductID = strings.TrimSpace(in.ProductID)
	in.WarehouseID = strings.TrimSpace(in.WarehouseID)
	ref := entity.StockRef(in.ProductID, in.WarehouseID)

	return e.execute(ctx, domledger.OpOpname, ref, in.OperatorID, func(ctx context.Context) (*plan, *Result, error) {
		current, err := e.readStock(ctx, in.ProductID)
		if err != nil {
			return nil, nil, err
		}
		if rej := domledger.ValidateOpname(current, in.WarehouseID, in.CountedQuantity); rej != nil {
			return nil, &Result{Status: StatusRejected, Stock: current, Rejection: rej}, nil
		}

		prev := current.Quantity(in.WarehouseID)
		delta := in.CountedQuantity - prev
		next := current.Clone()
		next.Apply(in.WarehouseID, delta)

		return &plan{
			stock:           next,
			expectedVersion: current.Version,
			lastCommit:      current.UpdatedAt,
			kind:            entity.KindOpname,
			eventType:       entity.EventMutationCommitted,
			entries: []entity.MutationLogEntry{{
				Entity:        ref,
				Kind:          entity.KindOpname,
				Delta:         delta,
				PreviousValue: prev,
				NextValue:     in.CountedQuantity,
				Reason:        reasonOr(in.Reason, entity.KindOpname),
			}},
		}, nil, nil
	})
}

// Transfer mueve cantidad entre bodegas: dos entradas (salida y entrada) con el mismo TransactionID.
func (e *Engine) Transfer(ctx context.Context, in TransferInput) (*Result, error) {
	in.ProductID = strings.TrimSpace(in.ProductID)
	in.FromWarehouseID = strings.TrimSpace(in.FromWarehouseID)
	in.ToWarehouseID = strings.TrimSpace(in.ToWarehouseID)
	fromRef := entity.StockRef(in.ProductID, in.FromWarehouseID)
	toRef := entity.StockRef(in.ProductID, in.ToWarehouseID)

	return e.execute(ctx, domledger.OpTransfer, fromRef, in.OperatorID, func(ctx context.Context) (*plan, *Result, error) {
		current, err := e.readStock(ctx, in.ProductID)
		if err != nil {
			return nil, nil, err
		}
		if rej := domledger.ValidateTransfer(current, in.FromWarehouseID, in.ToWarehouseID, in.Quantity); rej != nil {
			return nil, &Result{Status: StatusRejected, Stock: current, Rejection: rej}, nil
		}

		fromPrev := current.Quantity(in.FromWarehouseID)
		toPrev := current.Quantity(in.ToWarehouseID)
		next := current.Clone()
		next.Apply(in.FromWarehouseID, -in.Quantity)
		next.Apply(in.ToWarehouseID, in.Quantity)

		return &plan{
			stock:           next,
			expectedVersion: current.Version,
			lastCommit:      current.UpdatedAt,
			kind:            entity.KindTransferOut,
			eventType:       entity.EventMutationCommitted,
			entries: []entity.MutationLogEntry{
				{
					Entity:        fromRef,
					Kind:          entity.KindTransferOut,
					Delta:         -in.Quantity,
					PreviousValue: fromPrev,
					NextValue:     fromPrev - in.Quantity,
					Reason:        reasonOr(in.Reason, entity.KindTransferOut),
					Reference:     in.ToWarehouseID,
				},
				{
					Entity:        toRef,
					Kind:          entity.KindTransferIn,
					Delta:         in.Quantity,
					PreviousValue: toPrev,
					NextValue:     toPrev + in.Quantity,
					Reason:        reasonOr(in.Reason, entity.KindTransferIn),
					Reference:     in.FromWarehouseID,
				},
			},
		}, nil, nil
	})
}

// Receive suma la mercancía recibida y actualiza el costo del producto en el mismo commit.
func (e *Engine) Receive(ctx context.Context, in ReceiveInput) (*Result, error) {
	in.ProductID = strings.TrimSpace(in.ProductID)
	in.WarehouseID = strings.TrimSpace(in.WarehouseID)
	in.Unit = strings.TrimSpace(in.Unit)
	ref := entity.StockRef(in.ProductID, in.WarehouseID)

	return e.execute(ctx, domledger.OpReceive, ref, in.OperatorID, func(ctx context.Context) (*plan, *Result, error) {
		current, err := e.readStock(ctx, in.ProductID)
		if err != nil {
			return nil, nil, err
		}
		if rej := domledger.ValidateReceive(current, in.WarehouseID, in.Unit, in.Quantity, in.UnitCost); rej != nil {
			return nil, &Result{Status: StatusRejected, Stock: current, Rejection: rej}, nil
		}

		prev := current.Quantity(in.WarehouseID)
		prevTotal := current.Total
		next := current.Clone()
		next.Apply(in.WarehouseID, in.Quantity)
		if next.Unit == "" {
			next.Unit = in.Unit
		}

		return &plan{
			stock:           next,
			expectedVersion: current.Version,
			lastCommit:      current.UpdatedAt,
			kind:            entity.KindReceive,
			eventType:       entity.EventMutationCommitted,
			entries: []entity.MutationLogEntry{{
				Entity:        ref,
				Kind:          entity.KindReceive,
				Delta:         in.Quantity,
				PreviousValue: prev,
				NextValue:     prev + in.Quantity,
				Reason:        reasonOr(in.Reason, entity.KindReceive),
				Reference:     in.PurchaseOrderID,
			}},
			extra: func(ctx context.Context, costs repository.ProductCostRepository, at time.Time) (*entity.ProductCost, error) {
				return updateCost(ctx, costs, in.ProductID, prevTotal, in.Quantity, in.UnitCost, at)
			},
		}, nil, nil
	})
}

// updateCost recalcula último costo y costo promedio ponderado sobre el stock total previo.
func updateCost(ctx context.Context, costs repository.ProductCostRepository, productID string,
	prevTotal, received int64, unitCost decimal.Decimal, at time.Time) (*entity.ProductCost, error) {
	current, err := costs.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	avg := decimal.Zero
	if current != nil {
		avg = current.AverageCost
	} else {
		prevTotal = 0
	}
	pc := &entity.ProductCost{
		ProductID:        productID,
		LastPurchaseCost: unitCost,
		AverageCost:      inventory.WeightedAverageCost(prevTotal, avg, received, unitCost),
		UpdatedAt:        at,
	}
	if err := costs.Upsert(ctx, pc); err != nil {
		return nil, err
	}
	return pc, nil
}
