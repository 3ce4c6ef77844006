package events

import (
	"context"

	"github.com/jhoicas/retail-ledger/internal/domain/entity"
	"github.com/jhoicas/retail-ledger/pkg/logger"
)

// Tail deja en el log cada commit recibido por ch. Termina cuando ctx se cancela o ch se cierra.
// ch puede venir del Hub o de la suscripción Redis; la salida es la misma.
func Tail(ctx context.Context, ch <-chan entity.MutationCommitted, log *logger.Logger) {
	if log == nil {
		log = logger.Nop()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			log.Debug().
				Str("tx_id", ev.TransactionID).
				Str("type", ev.Type).
				Str("entity", ev.Entity.Key()).
				Str("operator_id", ev.OperatorID).
				Int("entries", len(ev.Entries)).
				Msg("mutación confirmada")
		}
	}
}
