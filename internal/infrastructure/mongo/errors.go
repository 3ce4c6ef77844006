package mongo

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jhoicas/retail-ledger/internal/domain"
)

// mapError traduce errores del driver: red o timeout = almacenamiento no disponible.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case mongo.IsNetworkError(err), mongo.IsTimeout(err), errors.Is(err, mongo.ErrClientDisconnected):
		return errors.Join(domain.ErrStoreUnavailable, err)
	}
	return err
}
