// Package ledger orquesta las mutaciones de saldo: leer con versión, validar,
// registrar y confirmar con compare-and-set, reintentando ante conflictos.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/retail-ledger/internal/domain"
	"github.com/jhoicas/retail-ledger/internal/domain/entity"
	domledger "github.com/jhoicas/retail-ledger/internal/domain/ledger"
	"github.com/jhoicas/retail-ledger/internal/domain/repository"
	"github.com/jhoicas/retail-ledger/pkg/logger"
)

// Config parámetros de reintento del motor.
type Config struct {
	MaxAttempts int           // secuencias completas lectura-validación-commit antes de CONTENTION_EXCEEDED
	ReadRetries int           // reintentos de lectura ante almacenamiento no disponible
	ReadBackoff time.Duration // espera inicial entre reintentos de lectura (se duplica)
}

// DefaultConfig valores por defecto.
func DefaultConfig() Config {
	return Config{MaxAttempts: 5, ReadRetries: 3, ReadBackoff: 50 * time.Millisecond}
}

// Engine motor del ledger. Es el único camino de escritura sobre saldos y log.
type Engine struct {
	tx       TxRunner
	balances repository.BalanceReader
	events   EventPublisher
	locker   EntityLocker
	log      *logger.Logger
	cfg      Config
	now      func() time.Time
}

// Option configura el motor.
type Option func(*Engine)

// WithPublisher publica un evento por cada commit.
func WithPublisher(p EventPublisher) Option { return func(e *Engine) { e.events = p } }

// WithLocker activa el bloqueo consultivo por entidad.
func WithLocker(l EntityLocker) Option { return func(e *Engine) { e.locker = l } }

// WithLogger asigna el logger.
func WithLogger(l *logger.Logger) Option { return func(e *Engine) { e.log = l } }

// WithConfig reemplaza la configuración de reintentos.
func WithConfig(cfg Config) Option { return func(e *Engine) { e.cfg = cfg } }

// WithClock reemplaza el reloj (tests).
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// NewEngine construye el motor.
func NewEngine(tx TxRunner, balances repository.BalanceReader, opts ...Option) *Engine {
	e := &Engine{
		tx:       tx,
		balances: balances,
		events:   NoopPublisher{},
		locker:   NoopLocker{},
		log:      logger.Nop(),
		cfg:      DefaultConfig(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg.MaxAttempts < 1 {
		e.cfg.MaxAttempts = 1
	}
	if e.cfg.ReadRetries < 0 {
		e.cfg.ReadRetries = 0
	}
	return e
}

// plan mutación calculada sobre una lectura concreta. Se descarta en cada reintento.
type plan struct {
	stock   *entity.StockBalance   // estado siguiente
	account *entity.BalanceAccount // estado siguiente
	// versión leída y último commit de la entidad
	expectedVersion int64
	lastCommit      time.Time

	entries   []entity.MutationLogEntry
	eventType string
	kind      entity.MutationKind

	// extra escrituras dentro de la misma unidad atómica (costo de RECEIVE)
	extra func(ctx context.Context, costs repository.ProductCostRepository, at time.Time) (*entity.ProductCost, error)
}

// checkInvariants verifica el estado siguiente y cada entrada antes del commit.
func (p *plan) checkInvariants(ref entity.EntityRef) error {
	if p.stock != nil {
		if err := p.stock.CheckInvariant(); err != nil {
			return &domain.InvariantError{Entity: ref.LockKey(), Detail: err.Error()}
		}
	}
	if p.account != nil {
		if err := p.account.CheckInvariant(); err != nil {
			return &domain.InvariantError{Entity: ref.Key(), Detail: err.Error()}
		}
	}
	for i := range p.entries {
		e := &p.entries[i]
		if err := e.CheckInvariant(); err != nil {
			return &domain.InvariantError{Entity: e.Entity.Key(), Detail: err.Error()}
		}
		var stored int64
		switch {
		case e.Entity.Type == entity.EntityTypeStock && p.stock != nil:
			stored = p.stock.Quantity(e.Entity.WarehouseID)
		case e.Entity.Type == entity.EntityTypeAccount && p.account != nil:
			stored = p.account.Amount
		default:
			return &domain.InvariantError{Entity: e.Entity.Key(), Detail: "entrada sin saldo asociado"}
		}
		if stored != e.NextValue {
			return &domain.InvariantError{
				Entity: e.Entity.Key(),
				Detail: fmt.Sprintf("next_value %d no coincide con el saldo persistido %d", e.NextValue, stored),
			}
		}
	}
	return nil
}

// buildFunc lee el saldo vigente y calcula la mutación.
type buildFunc func(ctx context.Context) (*plan, *Result, error)

// execute corre el ciclo optimista completo para una operación.
func (e *Engine) execute(ctx context.Context, op domledger.Operation, ref entity.EntityRef, operatorID string, build buildFunc) (*Result, error) {
	log := e.log.Zerolog().With().
		Str("op", string(op)).
		Str("entity", ref.Key()).
		Str("operator_id", operatorID).
		Logger()

	if operatorID == "" {
		rej := &domledger.Rejection{Code: domledger.CodeInvalidInput, Message: "operator_id es requerido"}
		log.Info().Str("code", string(rej.Code)).Msg("mutación rechazada")
		return &Result{Status: StatusRejected, Rejection: rej}, nil
	}

	release, err := e.locker.Acquire(ctx, ref.LockKey())
	if err != nil {
		// sin bloqueo se continúa: la versión protege igual
		log.Warn().Err(err).Msg("no se obtuvo bloqueo, se continúa sin él")
		release = func() {}
	}
	defer release()

	txID := uuid.New().String()
	log = log.With().Str("tx_id", txID).Logger()

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p, early, err := build(ctx)
		if err != nil {
			log.Error().Err(err).Int("attempt", attempt).Msg("error leyendo saldo")
			return nil, err
		}
		if early != nil {
			early.Attempts = attempt
			if early.Rejection != nil {
				log.Info().Str("code", string(early.Rejection.Code)).Int("attempt", attempt).Msg("mutación rechazada")
			}
			return early, nil
		}

		if err := p.checkInvariants(ref); err != nil {
			log.Error().Err(err).Int("attempt", attempt).Msg("invariante violada, mutación abortada")
			return nil, err
		}

		// última comprobación: una vez iniciado, el commit no se interrumpe
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cost, committedAt, err := e.commit(ctx, txID, operatorID, p)
		if domain.IsRetryable(err) {
			log.Debug().Int("attempt", attempt).Msg("conflicto de versión, reintentando")
			continue
		}
		if err != nil {
			log.Error().Err(err).Int("attempt", attempt).Msg("commit fallido")
			return nil, err
		}

		res := &Result{
			Status:        StatusCommitted,
			TransactionID: txID,
			Stock:         p.stock,
			Account:       p.account,
			Cost:          cost,
			Entries:       p.entries,
			Attempts:      attempt,
		}
		log.Info().Str("kind", string(p.kind)).Int("attempt", attempt).Int("entries", len(p.entries)).Msg("mutación confirmada")
		e.publish(ctx, &log, entity.MutationCommitted{
			Type:          p.eventType,
			TransactionID: txID,
			Kind:          p.kind,
			OperatorID:    operatorID,
			Entity:        ref,
			Entries:       p.entries,
			CommittedAt:   committedAt,
		})
		return res, nil
	}

	log.Warn().Int("attempts", e.cfg.MaxAttempts).Msg("contención excedida")
	return &Result{Status: StatusContentionExceeded, Attempts: e.cfg.MaxAttempts}, nil
}

// commit escribe saldo, costo y entradas en una sola unidad atómica.
func (e *Engine) commit(ctx context.Context, txID, operatorID string, p *plan) (*entity.ProductCost, time.Time, error) {
	commitCtx := context.WithoutCancel(ctx)
	var (
		cost *entity.ProductCost
		at   time.Time
	)
	err := e.tx.Run(commitCtx, func(
		balances repository.BalanceRepository,
		logs repository.MutationLogRepository,
		costs repository.ProductCostRepository,
	) error {
		// timestamp del commit, nunca anterior al último commit de la entidad
		at = e.now().UTC()
		if at.Before(p.lastCommit) {
			at = p.lastCommit
		}
		version := p.expectedVersion + 1

		if p.stock != nil {
			p.stock.UpdatedAt = at
			if err := balances.CompareAndSetStock(commitCtx, p.stock, p.expectedVersion); err != nil {
				return err
			}
		}
		if p.account != nil {
			p.account.UpdatedAt = at
			if err := balances.CompareAndSetAccount(commitCtx, p.account, p.expectedVersion); err != nil {
				return err
			}
		}
		if p.extra != nil {
			c, err := p.extra(commitCtx, costs, at)
			if err != nil {
				return err
			}
			cost = c
		}
		for i := range p.entries {
			entry := &p.entries[i]
			entry.ID = uuid.New().String()
			entry.TransactionID = txID
			entry.EntityKey = entry.Entity.Key()
			entry.OperatorID = operatorID
			entry.BalanceVersion = version
			entry.Timestamp = at
			if err := logs.Append(commitCtx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	return cost, at, err
}

// publish notifica el commit; un fallo del publicador no afecta al resultado.
func (e *Engine) publish(ctx context.Context, log *zerolog.Logger, ev entity.MutationCommitted) {
	if err := e.events.Publish(context.WithoutCancel(ctx), ev); err != nil {
		log.Warn().Err(err).Str("event", ev.Type).Msg("no se pudo publicar el evento")
	}
}

// withReadRetry reintenta fn con backoff exponencial mientras el almacenamiento no esté disponible.
func (e *Engine) withReadRetry(ctx context.Context, fn func() error) error {
	backoff := e.cfg.ReadBackoff
	for i := 0; ; i++ {
		err := fn()
		if err == nil || !errors.Is(err, domain.ErrStoreUnavailable) || i >= e.cfg.ReadRetries {
			return err
		}
		e.log.Warn().Err(err).Int("retry", i+1).Dur("backoff", backoff).Msg("almacenamiento no disponible, reintentando lectura")
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
}

func (e *Engine) readStock(ctx context.Context, productID string) (*entity.StockBalance, error) {
	if productID == "" {
		return entity.NewStockBalance(""), nil
	}
	var out *entity.StockBalance
	err := e.withReadRetry(ctx, func() error {
		s, err := e.balances.GetStock(ctx, productID)
		out = s
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) readAccount(ctx context.Context, userID string, resource entity.ResourceKind) (*entity.BalanceAccount, error) {
	if userID == "" || !resource.Valid() {
		return entity.NewBalanceAccount(userID, resource), nil
	}
	var out *entity.BalanceAccount
	err := e.withReadRetry(ctx, func() error {
		a, err := e.balances.GetAccount(ctx, userID, resource)
		out = a
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func reasonOr(reason string, kind entity.MutationKind) string {
	if reason != "" {
		return reason
	}
	return entity.DefaultReason(kind)
}
