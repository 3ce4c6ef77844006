// Package ledger contiene las reglas puras de validación de mutaciones (sin I/O).
package ledger

// RejectionCode código estable de un rechazo de validación, pensado para la UI.
type RejectionCode string

const (
	CodeInvalidInput        RejectionCode = "INVALID_INPUT"
	CodeNegativeCount       RejectionCode = "NEGATIVE_COUNT"
	CodeSameWarehouse       RejectionCode = "SAME_WAREHOUSE"
	CodeNonPositiveAmount   RejectionCode = "NON_POSITIVE_AMOUNT"
	CodeInsufficientStock   RejectionCode = "INSUFFICIENT_STOCK"
	CodeInsufficientBalance RejectionCode = "INSUFFICIENT_BALANCE"
	CodeAccountFrozen       RejectionCode = "ACCOUNT_FROZEN"
	CodeUnitMismatch        RejectionCode = "UNIT_MISMATCH"
	CodeNegativeCost        RejectionCode = "NEGATIVE_COST"
	CodeAlreadyFrozen       RejectionCode = "ALREADY_FROZEN"
	CodeNotFrozen           RejectionCode = "NOT_FROZEN"
	CodeAmountTooLarge      RejectionCode = "AMOUNT_TOO_LARGE"
)

// Rejection resultado esperado de una validación fallida. No es un error:
// se devuelve tal cual al llamador para mostrar un mensaje concreto.
type Rejection struct {
	Code      RejectionCode `json:"code"`
	Message   string        `json:"message"`
	Available *int64        `json:"available,omitempty"`
}

func (r *Rejection) String() string {
	if r == nil {
		return ""
	}
	return string(r.Code) + ": " + r.Message
}

func reject(code RejectionCode, msg string) *Rejection {
	return &Rejection{Code: code, Message: msg}
}

func rejectWithAvailable(code RejectionCode, msg string, available int64) *Rejection {
	return &Rejection{Code: code, Message: msg, Available: &available}
}
