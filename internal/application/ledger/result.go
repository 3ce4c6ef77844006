package ledger

import (
	"github.com/jhoicas/retail-ledger/internal/domain/entity"
	domledger "github.com/jhoicas/retail-ledger/internal/domain/ledger"
)

// Status resultado de una operación del motor.
type Status string

const (
	StatusCommitted          Status = "COMMITTED"
	StatusRejected           Status = "REJECTED"
	StatusContentionExceeded Status = "CONTENTION_EXCEEDED"
)

// Result respuesta del motor. Rechazo y contención son resultados, no errores:
// los errores quedan para fallos duros (invariante, almacenamiento, cancelación).
type Result struct {
	Status        Status
	TransactionID string
	Stock         *entity.StockBalance   // saldo resultante (o el vigente si no hubo commit)
	Account       *entity.BalanceAccount // idem para cuentas
	Cost          *entity.ProductCost    // solo en RECEIVE confirmada
	Entries       []entity.MutationLogEntry
	Rejection     *domledger.Rejection
	Attempts      int
}

// Committed indica si la mutación quedó persistida.
func (r *Result) Committed() bool { return r != nil && r.Status == StatusCommitted }

// Rejected indica si el validador rechazó la mutación.
func (r *Result) Rejected() bool { return r != nil && r.Status == StatusRejected }
