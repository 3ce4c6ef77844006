package redis

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	appledger "github.com/jhoicas/retail-ledger/internal/application/ledger"
	"github.com/jhoicas/retail-ledger/internal/domain/entity"
)

var _ appledger.EventPublisher = (*Publisher)(nil)

// Publisher emite cada MutationCommitted como JSON por PUBLISH.
type Publisher struct {
	client  goredis.UniversalClient
	channel string
}

// NewPublisher construye el publicador sobre el canal indicado.
func NewPublisher(client goredis.UniversalClient, channel string) *Publisher {
	return &Publisher{client: client, channel: channel}
}

// Publish serializa y publica el evento.
func (p *Publisher) Publish(ctx context.Context, event entity.MutationCommitted) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", p.channel, err)
	}
	return nil
}

// Subscribe entrega los eventos publicados en el canal hasta que ctx se cancele.
// Los mensajes que no decodifican o no traen transaction_id se descartan.
func (p *Publisher) Subscribe(ctx context.Context) <-chan entity.MutationCommitted {
	out := make(chan entity.MutationCommitted)
	sub := p.client.Subscribe(ctx, p.channel)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				ev, ok := decodeEvent(msg.Payload)
				if !ok {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func decodeEvent(payload string) (entity.MutationCommitted, bool) {
	var ev entity.MutationCommitted
	if err := json.Unmarshal([]byte(payload), &ev); err != nil || ev.TransactionID == "" {
		return entity.MutationCommitted{}, false
	}
	return ev, true
}
