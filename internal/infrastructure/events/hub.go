// Package events reparte los commits del ledger a suscriptores del mismo proceso.
package events

import (
	"context"
	"sync"

	appledger "github.com/jhoicas/retail-ledger/internal/application/ledger"
	"github.com/jhoicas/retail-ledger/internal/domain/entity"
	"github.com/jhoicas/retail-ledger/pkg/logger"
)

var _ appledger.EventPublisher = (*Hub)(nil)

// Hub fan-out en memoria. Un suscriptor lento pierde eventos, nunca bloquea al motor.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]chan entity.MutationCommitted
	nextID int
	buffer int
	log    *logger.Logger
}

// NewHub crea el hub; buffer es la capacidad de cada suscriptor.
func NewHub(buffer int, log *logger.Logger) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{subs: make(map[int]chan entity.MutationCommitted), buffer: buffer, log: log}
}

// Subscribe devuelve un canal con los eventos posteriores y la función para darse de baja.
func (h *Hub) Subscribe() (<-chan entity.MutationCommitted, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan entity.MutationCommitted, h.buffer)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}

// Publish entrega el evento a cada suscriptor sin esperar.
func (h *Hub) Publish(_ context.Context, event entity.MutationCommitted) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs {
		select {
		case ch <- event:
		default:
			h.log.Warn().Int("subscriber", id).Str("tx_id", event.TransactionID).Msg("suscriptor saturado, evento descartado")
		}
	}
	return nil
}

// Len número de suscriptores activos.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Fanout publica en varios destinos; devuelve el primer error sin detener el resto.
type Fanout []appledger.EventPublisher

// Publish entrega a todos los publicadores.
func (f Fanout) Publish(ctx context.Context, event entity.MutationCommitted) error {
	var first error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
