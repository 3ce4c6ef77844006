package ledger

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/retail-ledger/internal/domain/entity"
)

// Operation operación del motor que se valida.
type Operation string

const (
	OpOpname   Operation = "OPNAME"
	OpTransfer Operation = "TRANSFER"
	OpReceive  Operation = "RECEIVE"
	OpAdjust   Operation = "ADJUST"
	OpFreeze   Operation = "FREEZE"
	OpUnfreeze Operation = "UNFREEZE"
)

// Request intención a validar contra el saldo actual.
// Stock se usa en OPNAME/TRANSFER/RECEIVE; Account en ADJUST/FREEZE/UNFREEZE.
type Request struct {
	Operation     Operation
	Stock         *entity.StockBalance
	Account       *entity.BalanceAccount
	WarehouseID   string // bodega de OPNAME/RECEIVE u origen de TRANSFER
	ToWarehouseID string
	Kind          entity.MutationKind // solo ADJUST
	Amount        int64               // cantidad contada (OPNAME) o monto positivo
	Unit          string
	UnitCost      decimal.Decimal
}

// Validate decide si la mutación es legal. nil = permitida.
func Validate(req Request) *Rejection {
	switch req.Operation {
	case OpOpname:
		return ValidateOpname(req.Stock, req.WarehouseID, req.Amount)
	case OpTransfer:
		return ValidateTransfer(req.Stock, req.WarehouseID, req.ToWarehouseID, req.Amount)
	case OpReceive:
		return ValidateReceive(req.Stock, req.WarehouseID, req.Unit, req.Amount, req.UnitCost)
	case OpAdjust:
		return ValidateAdjustment(req.Account, req.Kind, req.Amount)
	case OpFreeze:
		return ValidateFreeze(req.Account, true)
	case OpUnfreeze:
		return ValidateFreeze(req.Account, false)
	}
	return reject(CodeInvalidInput, fmt.Sprintf("operación desconocida %q", req.Operation))
}

// ValidateOpname: el conteo físico es una corrección, legal con cualquier delta si counted >= 0.
func ValidateOpname(stock *entity.StockBalance, warehouseID string, counted int64) *Rejection {
	if rej := checkStockTarget(stock, warehouseID); rej != nil {
		return rej
	}
	if counted < 0 {
		return reject(CodeNegativeCount, fmt.Sprintf("la cantidad contada no puede ser negativa (%d)", counted))
	}
	if counted > math.MaxInt64-(stock.Total-stock.Quantity(warehouseID)) {
		return reject(CodeAmountTooLarge,
			fmt.Sprintf("la cantidad contada %s desborda el total del producto", FormatQuantity(counted)))
	}
	return nil
}

// ValidateTransfer: origen distinto de destino, monto positivo y stock suficiente en el origen.
func ValidateTransfer(stock *entity.StockBalance, from, to string, amount int64) *Rejection {
	if rej := checkStockTarget(stock, from); rej != nil {
		return rej
	}
	if to == "" {
		return reject(CodeInvalidInput, "to_warehouse_id es requerido")
	}
	if rej := checkWarehouseID(to); rej != nil {
		return rej
	}
	if from == to {
		return reject(CodeSameWarehouse, "la bodega de origen y destino deben ser distintas")
	}
	if amount <= 0 {
		return reject(CodeNonPositiveAmount, "la cantidad a trasladar debe ser mayor que cero")
	}
	available := stock.Quantity(from)
	if available < amount {
		return rejectWithAvailable(CodeInsufficientStock,
			fmt.Sprintf("stock insuficiente en bodega %s: solo %s disponibles, solicitado %s",
				from, FormatQuantity(available), FormatQuantity(amount)),
			available)
	}
	return nil
}

// ValidateReceive: la recepción siempre suma stock; solo exige monto positivo y costo no negativo.
func ValidateReceive(stock *entity.StockBalance, warehouseID, unit string, amount int64, unitCost decimal.Decimal) *Rejection {
	if rej := checkStockTarget(stock, warehouseID); rej != nil {
		return rej
	}
	if amount <= 0 {
		return reject(CodeNonPositiveAmount, "la cantidad recibida debe ser mayor que cero")
	}
	// Total >= cada bodega, así que basta acotar contra Total.
	if amount > math.MaxInt64-stock.Total {
		return rejectWithAvailable(CodeAmountTooLarge,
			fmt.Sprintf("la cantidad recibida %s desborda el total del producto (%s)",
				FormatQuantity(amount), FormatQuantity(stock.Total)),
			math.MaxInt64-stock.Total)
	}
	if unitCost.IsNegative() {
		return reject(CodeNegativeCost, "el costo unitario no puede ser negativo")
	}
	if unit != "" && stock.Unit != "" && unit != stock.Unit {
		return reject(CodeUnitMismatch,
			fmt.Sprintf("unidad %q no coincide con la unidad registrada %q", unit, stock.Unit))
	}
	return nil
}

// ValidateAdjustment: cuenta no congelada, monto positivo y, en débitos, saldo suficiente.
func ValidateAdjustment(acct *entity.BalanceAccount, kind entity.MutationKind, amount int64) *Rejection {
	if rej := checkAccountTarget(acct); rej != nil {
		return rej
	}
	if !kind.IsBalanceAdjustment() {
		return reject(CodeInvalidInput, fmt.Sprintf("tipo de ajuste inválido %q", kind))
	}
	if acct.Frozen {
		return reject(CodeAccountFrozen, "la cuenta está congelada; no admite ajustes")
	}
	if amount <= 0 {
		return reject(CodeNonPositiveAmount, "el monto debe ser mayor que cero")
	}
	if kind.IsDebit() && acct.Amount < amount {
		return rejectWithAvailable(CodeInsufficientBalance,
			fmt.Sprintf("saldo insuficiente: disponible %s, solicitado %s",
				FormatAmount(acct.Resource, acct.Amount), FormatAmount(acct.Resource, amount)),
			acct.Amount)
	}
	if !kind.IsDebit() && amount > math.MaxInt64-acct.Amount {
		return rejectWithAvailable(CodeAmountTooLarge,
			fmt.Sprintf("el monto %s desborda el saldo de la cuenta", FormatAmount(acct.Resource, amount)),
			math.MaxInt64-acct.Amount)
	}
	return nil
}

// ValidateFreeze valida congelar (freeze=true) o descongelar una cuenta.
func ValidateFreeze(acct *entity.BalanceAccount, freeze bool) *Rejection {
	if rej := checkAccountTarget(acct); rej != nil {
		return rej
	}
	if freeze && acct.Frozen {
		return reject(CodeAlreadyFrozen, "la cuenta ya está congelada")
	}
	if !freeze && !acct.Frozen {
		return reject(CodeNotFrozen, "la cuenta no está congelada")
	}
	return nil
}

func checkStockTarget(stock *entity.StockBalance, warehouseID string) *Rejection {
	if stock == nil || stock.ProductID == "" {
		return reject(CodeInvalidInput, "product_id es requerido")
	}
	if warehouseID == "" {
		return reject(CodeInvalidInput, "warehouse_id es requerido")
	}
	return checkWarehouseID(warehouseID)
}

// checkWarehouseID: el ID se usa como clave de mapa en mongo, donde "." y "$" son reservados.
func checkWarehouseID(warehouseID string) *Rejection {
	if strings.ContainsAny(warehouseID, ".$") {
		return reject(CodeInvalidInput, fmt.Sprintf("warehouse_id %q no puede contener '.' ni '$'", warehouseID))
	}
	return nil
}

func checkAccountTarget(acct *entity.BalanceAccount) *Rejection {
	if acct == nil || acct.UserID == "" {
		return reject(CodeInvalidInput, "user_id es requerido")
	}
	if !acct.Resource.Valid() {
		return reject(CodeInvalidInput, fmt.Sprintf("recurso inválido %q", acct.Resource))
	}
	return nil
}
