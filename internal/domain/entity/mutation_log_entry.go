package entity

import (
	"fmt"
	"time"
)

// MutationKind tipo de mutación registrada en el log.
type MutationKind string

const (
	KindOpname      MutationKind = "OPNAME"       // conteo físico
	KindTransferOut MutationKind = "TRANSFER_OUT" // salida por traslado
	KindTransferIn  MutationKind = "TRANSFER_IN"  // entrada por traslado
	KindReceive     MutationKind = "RECEIVE"      // recepción de orden de compra
	KindBonus       MutationKind = "BONUS"
	KindPenalty     MutationKind = "PENALTY"
	KindTopup       MutationKind = "TOPUP"
	KindWithdrawal  MutationKind = "WITHDRAWAL"
)

// IsBalanceAdjustment indica si el tipo aplica a cuentas de puntos o monedero.
func (k MutationKind) IsBalanceAdjustment() bool {
	switch k {
	case KindBonus, KindPenalty, KindTopup, KindWithdrawal:
		return true
	}
	return false
}

// IsDebit indica si el ajuste resta saldo.
func (k MutationKind) IsDebit() bool {
	return k == KindPenalty || k == KindWithdrawal
}

// Motivos por defecto cuando el operador no indica ninguno.
var defaultReasons = map[MutationKind]string{
	KindOpname:      "ajuste por conteo físico",
	KindTransferOut: "traslado a otra bodega",
	KindTransferIn:  "traslado desde otra bodega",
	KindReceive:     "recepción de orden de compra",
	KindBonus:       "bonificación manual",
	KindPenalty:     "penalización manual",
	KindTopup:       "recarga de monedero",
	KindWithdrawal:  "retiro de monedero",
}

// DefaultReason devuelve el motivo por defecto del tipo.
func DefaultReason(kind MutationKind) string {
	return defaultReasons[kind]
}

// MutationLogEntry registro inmutable de una mutación confirmada.
// Se crea exactamente una vez por mutación exitosa; no se edita ni se elimina.
type MutationLogEntry struct {
	ID             string       `json:"id" bson:"_id"`
	TransactionID  string       `json:"transaction_id" bson:"transaction_id"`
	Entity         EntityRef    `json:"entity" bson:"entity"`
	EntityKey      string       `json:"-" bson:"entity_key"`
	Kind           MutationKind `json:"kind" bson:"kind"`
	Delta          int64        `json:"delta" bson:"delta"`
	PreviousValue  int64        `json:"previous_value" bson:"previous_value"`
	NextValue      int64        `json:"next_value" bson:"next_value"`
	Reason         string       `json:"reason" bson:"reason"`
	OperatorID     string       `json:"operator_id" bson:"operator_id"`
	Reference      string       `json:"reference,omitempty" bson:"reference,omitempty"`
	BalanceVersion int64        `json:"balance_version" bson:"balance_version"`
	Timestamp      time.Time    `json:"timestamp" bson:"timestamp"`
}

// CheckInvariant verifica NextValue = PreviousValue + Delta.
func (e *MutationLogEntry) CheckInvariant() error {
	if e.PreviousValue+e.Delta != e.NextValue {
		return fmt.Errorf("next_value %d != previous_value %d + delta %d", e.NextValue, e.PreviousValue, e.Delta)
	}
	return nil
}
