package ledger

import (
	"context"
	"strings"

	"github.com/jhoicas/retail-ledger/internal/application/dto"
	"github.com/jhoicas/retail-ledger/internal/domain/entity"
	domledger "github.com/jhoicas/retail-ledger/internal/domain/ledger"
)

// OpnameFromRequest adapta el request HTTP a Opname. operatorID sale del token del llamador.
func (e *Engine) OpnameFromRequest(ctx context.Context, operatorID string, in dto.OpnameRequest) (*Result, error) {
	return e.Opname(ctx, OpnameInput{
		OperatorID:      operatorID,
		ProductID:       in.ProductID,
		WarehouseID:     in.WarehouseID,
		CountedQuantity: in.CountedQuantity,
		Reason:          in.Reason,
	})
}

// TransferFromRequest adapta el request HTTP a Transfer.
func (e *Engine) TransferFromRequest(ctx context.Context, operatorID string, in dto.TransferRequest) (*Result, error) {
	return e.Transfer(ctx, TransferInput{
		OperatorID:      operatorID,
		ProductID:       in.ProductID,
		FromWarehouseID: in.FromWarehouseID,
		ToWarehouseID:   in.ToWarehouseID,
		Quantity:        in.Quantity,
		Reason:          in.Reason,
	})
}

// ReceiveFromRequest adapta el request HTTP a Receive.
func (e *Engine) ReceiveFromRequest(ctx context.Context, operatorID string, in dto.ReceiveRequest) (*Result, error) {
	return e.Receive(ctx, ReceiveInput{
		OperatorID:      operatorID,
		ProductID:       in.ProductID,
		WarehouseID:     in.WarehouseID,
		PurchaseOrderID: in.PurchaseOrderID,
		Unit:            in.Unit,
		Quantity:        in.Quantity,
		UnitCost:        in.UnitCost,
		Reason:          in.Reason,
	})
}

// AdjustBalanceFromRequest adapta el request HTTP a AdjustBalance. Kind se normaliza a mayúsculas.
func (e *Engine) AdjustBalanceFromRequest(ctx context.Context, operatorID string, in dto.AdjustBalanceRequest) (*Result, error) {
	return e.AdjustBalance(ctx, AdjustBalanceInput{
		OperatorID: operatorID,
		UserID:     in.UserID,
		Resource:   ParseResource(in.Resource),
		Kind:       entity.MutationKind(strings.ToUpper(strings.TrimSpace(in.Kind))),
		Amount:     in.Amount,
		Reason:     in.Reason,
	})
}

// FreezeFromRequest adapta el request HTTP a Freeze (freeze=true) o Unfreeze.
func (e *Engine) FreezeFromRequest(ctx context.Context, operatorID string, in dto.FreezeRequest, freeze bool) (*Result, error) {
	input := FreezeInput{
		OperatorID: operatorID,
		UserID:     in.UserID,
		Resource:   ParseResource(in.Resource),
		Reason:     in.Reason,
	}
	if freeze {
		return e.Freeze(ctx, input)
	}
	return e.Unfreeze(ctx, input)
}

// ParseResource normaliza el recurso recibido por HTTP.
func ParseResource(s string) entity.ResourceKind {
	return entity.ResourceKind(strings.ToLower(strings.TrimSpace(s)))
}

// ToMutationResponse convierte un resultado confirmado a DTO.
func ToMutationResponse(res *Result) dto.MutationResponse {
	out := dto.MutationResponse{
		Status:        string(res.Status),
		TransactionID: res.TransactionID,
		Entries:       ToEntryResponses(entryPointers(res.Entries)),
	}
	if res.Stock != nil {
		s := ToStockResponse(res.Stock)
		out.Stock = &s
	}
	if res.Account != nil {
		a := ToAccountResponse(res.Account)
		out.Account = &a
	}
	if res.Cost != nil {
		out.Cost = &dto.ProductCostResponse{
			LastPurchaseCost: res.Cost.LastPurchaseCost,
			AverageCost:      res.Cost.AverageCost,
		}
	}
	return out
}

// ToStockResponse convierte el saldo de stock a DTO.
func ToStockResponse(s *entity.StockBalance) dto.StockBalanceResponse {
	per := make(map[string]int64, len(s.PerWarehouse))
	for wh, q := range s.PerWarehouse {
		per[wh] = q
	}
	out := dto.StockBalanceResponse{
		ProductID:    s.ProductID,
		Unit:         s.Unit,
		PerWarehouse: per,
		Total:        s.Total,
		Version:      s.Version,
	}
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

// ToAccountResponse convierte la cuenta a DTO, con el monto ya formateado.
func ToAccountResponse(a *entity.BalanceAccount) dto.AccountResponse {
	out := dto.AccountResponse{
		UserID:   a.UserID,
		Resource: string(a.Resource),
		Amount:   a.Amount,
		Display:  domledger.FormatAmount(a.Resource, a.Amount),
		Frozen:   a.Frozen,
		Version:  a.Version,
	}
	if !a.UpdatedAt.IsZero() {
		t := a.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

// ToEntryResponses convierte entradas del log a DTO.
func ToEntryResponses(entries []*entity.MutationLogEntry) []dto.LogEntryResponse {
	out := make([]dto.LogEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.LogEntryResponse{
			ID:            e.ID,
			TransactionID: e.TransactionID,
			EntityKey:     e.Entity.Key(),
			Kind:          string(e.Kind),
			Delta:         e.Delta,
			PreviousValue: e.PreviousValue,
			NextValue:     e.NextValue,
			Reason:        e.Reason,
			OperatorID:    e.OperatorID,
			Reference:     e.Reference,
			Version:       e.BalanceVersion,
			Timestamp:     e.Timestamp,
		})
	}
	return out
}

func entryPointers(entries []entity.MutationLogEntry) []*entity.MutationLogEntry {
	out := make([]*entity.MutationLogEntry, len(entries))
	for i := range entries {
		out[i] = &entries[i]
	}
	return out
}
