package ledger

import (
	"context"
	"strings"

	"github.com/jhoicas/retail-ledger/internal/domain/entity"
	domledger "github.com/jhoicas/retail-ledger/internal/domain/ledger"
)

// AdjustBalanceInput ajuste manual de puntos o monedero.
type AdjustBalanceInput struct {
	OperatorID string
	UserID     string
	Resource   entity.ResourceKind
	Kind       entity.MutationKind // BONUS, PENALTY, TOPUP, WITHDRAWAL
	Amount     int64               // siempre positivo; el signo lo da Kind
	Reason     string
}

// FreezeInput congelar o descongelar una cuenta.
type FreezeInput struct {
	OperatorID string
	UserID     string
	Resource   entity.ResourceKind
	Reason     string
}

// AdjustBalance acredita o debita una cuenta. Rechaza si está congelada o si el débito excede el saldo.
func (e *Engine) AdjustBalance(ctx context.Context, in AdjustBalanceInput) (*Result, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	ref := entity.AccountRef(in.UserID, in.Resource)

	return e.execute(ctx, domledger.OpAdjust, ref, in.OperatorID, func(ctx context.Context) (*plan, *Result, error) {
		current, err := e.readAccount(ctx, in.UserID, in.Resource)
		if err != nil {
			return nil, nil, err
		}
		if rej := domledger.ValidateAdjustment(current, in.Kind, in.Amount); rej != nil {
			return nil, &Result{Status: StatusRejected, Account: current, Rejection: rej}, nil
		}

		delta := in.Amount
		if in.Kind.IsDebit() {
			delta = -in.Amount
		}
		next := current.Clone()
		next.Amount += delta

		return &plan{
			account:         next,
			expectedVersion: current.Version,
			lastCommit:      current.UpdatedAt,
			kind:            in.Kind,
			eventType:       entity.EventMutationCommitted,
			entries: []entity.MutationLogEntry{{
				Entity:        ref,
				Kind:          in.Kind,
				Delta:         delta,
				PreviousValue: current.Amount,
				NextValue:     next.Amount,
				Reason:        reasonOr(in.Reason, in.Kind),
			}},
		}, nil, nil
	})
}

// Freeze congela la cuenta: no admite ajustes hasta Unfreeze. No genera entrada de log.
func (e *Engine) Freeze(ctx context.Context, in FreezeInput) (*Result, error) {
	return e.setFrozen(ctx, in, true)
}

// Unfreeze descongela la cuenta.
func (e *Engine) Unfreeze(ctx context.Context, in FreezeInput) (*Result, error) {
	return e.setFrozen(ctx, in, false)
}

func (e *Engine) setFrozen(ctx context.Context, in FreezeInput, frozen bool) (*Result, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	ref := entity.AccountRef(in.UserID, in.Resource)
	op, eventType := domledger.OpUnfreeze, entity.EventAccountUnfrozen
	if frozen {
		op, eventType = domledger.OpFreeze, entity.EventAccountFrozen
	}

	return e.execute(ctx, op, ref, in.OperatorID, func(ctx context.Context) (*plan, *Result, error) {
		current, err := e.readAccount(ctx, in.UserID, in.Resource)
		if err != nil {
			return nil, nil, err
		}
		if rej := domledger.ValidateFreeze(current, frozen); rej != nil {
			return nil, &Result{Status: StatusRejected, Account: current, Rejection: rej}, nil
		}
		next := current.Clone()
		next.Frozen = frozen
		return &plan{
			account:         next,
			expectedVersion: current.Version,
			lastCommit:      current.UpdatedAt,
			eventType:       eventType,
		}, nil, nil
	})
}
