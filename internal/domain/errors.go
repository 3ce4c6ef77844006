package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrVersionConflict    = errors.New("conflicto de versión: el saldo cambió durante la operación")
	ErrStoreUnavailable   = errors.New("almacenamiento no disponible")
	ErrInvariantViolation = errors.New("violación de invariante del ledger")
)

// InvariantError detalla una violación de invariante detectada antes del commit.
// Nunca se corrige en silencio: aborta la mutación y se registra para investigación.
type InvariantError struct {
	Entity string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariante violada en %s: %s", e.Entity, e.Detail)
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariantViolation
}

// IsRetryable indica si el error es transitorio y la secuencia completa puede reintentarse.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
