package entity

import "time"

// Tipos de evento publicados tras un commit.
const (
	EventMutationCommitted = "ledger.mutation.committed"
	EventAccountFrozen     = "ledger.account.frozen"
	EventAccountUnfrozen   = "ledger.account.unfrozen"
)

// MutationCommitted evento emitido por el motor después de cada commit exitoso.
// Las interfaces en vivo se suscriben a este flujo en lugar del change feed del almacenamiento.
type MutationCommitted struct {
	Type          string             `json:"type"`
	TransactionID string             `json:"transaction_id"`
	Kind          MutationKind       `json:"kind,omitempty"`
	OperatorID    string             `json:"operator_id"`
	Entity        EntityRef          `json:"entity"`
	Entries       []MutationLogEntry `json:"entries,omitempty"`
	CommittedAt   time.Time          `json:"committed_at"`
}
