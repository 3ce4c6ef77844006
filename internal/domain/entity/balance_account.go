package entity

import (
	"fmt"
	"time"
)

// BalanceAccount saldo de puntos o monedero de un usuario.
// Amount nunca es negativo: ni puntos ni monedero admiten deuda.
type BalanceAccount struct {
	UserID    string       `json:"user_id" bson:"user_id"`
	Resource  ResourceKind `json:"resource" bson:"resource"`
	Amount    int64        `json:"amount" bson:"amount"`
	Frozen    bool         `json:"frozen" bson:"frozen"`
	Version   int64        `json:"version" bson:"version"`
	UpdatedAt time.Time    `json:"updated_at" bson:"updated_at"`
}

// NewBalanceAccount crea una cuenta en cero, no congelada.
func NewBalanceAccount(userID string, resource ResourceKind) *BalanceAccount {
	return &BalanceAccount{UserID: userID, Resource: resource}
}

// Ref devuelve la referencia de log de la cuenta.
func (a *BalanceAccount) Ref() EntityRef {
	return AccountRef(a.UserID, a.Resource)
}

// Clone copia la cuenta.
func (a *BalanceAccount) Clone() *BalanceAccount {
	c := *a
	return &c
}

// CheckInvariant verifica que el saldo no sea negativo.
func (a *BalanceAccount) CheckInvariant() error {
	if a.Amount < 0 {
		return fmt.Errorf("saldo negativo %d", a.Amount)
	}
	return nil
}
