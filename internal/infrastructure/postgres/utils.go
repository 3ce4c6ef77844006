package postgres

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/retail-ledger/internal/domain"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// isSerializationFailure 40001/40P01: la base abortó la transacción por concurrencia.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// isUnavailable errores de conectividad: conexión rechazada, timeout o servidor apagándose.
func isUnavailable(err error) bool {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// clase 08: connection exception; 57P01-03: admin shutdown / cannot connect now
		return strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "57P01" || pgErr.Code == "57P02" || pgErr.Code == "57P03"
	}
	return false
}

// mapError traduce errores del driver a errores de dominio, conservando el original.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case isSerializationFailure(err):
		return errors.Join(domain.ErrVersionConflict, err)
	case isUnavailable(err):
		return errors.Join(domain.ErrStoreUnavailable, err)
	}
	return err
}
