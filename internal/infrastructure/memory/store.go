// Package memory implementa el almacenamiento del ledger en memoria (desarrollo y tests).
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/retail-ledger/internal/domain"
	"github.com/jhoicas/retail-ledger/internal/domain/entity"
	"github.com/jhoicas/retail-ledger/internal/domain/repository"
)

type accountKey struct {
	userID   string
	resource entity.ResourceKind
}

// Store saldos, log y costos protegidos por un único mutex.
// Run serializa las unidades atómicas; las lecturas fuera de Run toman el lock de lectura.
type Store struct {
	mu       sync.RWMutex
	stocks   map[string]*entity.StockBalance
	accounts map[accountKey]*entity.BalanceAccount
	costs    map[string]*entity.ProductCost
	logs     []*entity.MutationLogEntry
}

var (
	_ repository.BalanceReader     = (*Store)(nil)
	_ repository.MutationLogReader = (*Store)(nil)
)

// NewStore crea un almacenamiento vacío.
func NewStore() *Store {
	return &Store{
		stocks:   make(map[string]*entity.StockBalance),
		accounts: make(map[accountKey]*entity.BalanceAccount),
		costs:    make(map[string]*entity.ProductCost),
	}
}

// GetStock devuelve una copia del saldo; si no existe, uno en cero con versión 0.
func (s *Store) GetStock(_ context.Context, productID string) (*entity.StockBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stockLocked(productID), nil
}

// GetAccount devuelve una copia de la cuenta; si no existe, una en cero con versión 0.
func (s *Store) GetAccount(_ context.Context, userID string, resource entity.ResourceKind) (*entity.BalanceAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accountLocked(userID, resource), nil
}

// GetCost devuelve el costo registrado del producto o nil.
func (s *Store) GetCost(_ context.Context, productID string) (*entity.ProductCost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.costs[productID]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

// ListByEntity entradas de la entidad, más reciente primero.
func (s *Store) ListByEntity(_ context.Context, ref entity.EntityRef, limit, offset int) ([]*entity.MutationLogEntry, error) {
	key := ref.Key()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(func(e *entity.MutationLogEntry) bool { return e.EntityKey == key }, limit, offset), nil
}

// ListByProduct entradas del producto en todas sus bodegas, más reciente primero.
func (s *Store) ListByProduct(_ context.Context, productID string, limit, offset int) ([]*entity.MutationLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(func(e *entity.MutationLogEntry) bool {
		return e.Entity.Type == entity.EntityTypeStock && e.Entity.ProductID == productID
	}, limit, offset), nil
}

// Run ejecuta fn con repositorios sobre una vista transaccional.
// Las escrituras se acumulan en la vista y se aplican solo si fn no falla.
func (s *Store) Run(ctx context.Context, fn func(
	balances repository.BalanceRepository,
	logs repository.MutationLogRepository,
	costs repository.ProductCostRepository,
) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := &txView{
		store:    s,
		stocks:   make(map[string]*entity.StockBalance),
		accounts: make(map[accountKey]*entity.BalanceAccount),
		costs:    make(map[string]*entity.ProductCost),
	}
	if err := fn(view, view, view); err != nil {
		return err
	}

	for id, st := range view.stocks {
		s.stocks[id] = st
	}
	for k, a := range view.accounts {
		s.accounts[k] = a
	}
	for id, c := range view.costs {
		s.costs[id] = c
	}
	s.logs = append(s.logs, view.logs...)
	return nil
}

func (s *Store) stockLocked(productID string) *entity.StockBalance {
	if st, ok := s.stocks[productID]; ok {
		return st.Clone()
	}
	return entity.NewStockBalance(productID)
}

func (s *Store) accountLocked(userID string, resource entity.ResourceKind) *entity.BalanceAccount {
	if a, ok := s.accounts[accountKey{userID, resource}]; ok {
		return a.Clone()
	}
	return entity.NewBalanceAccount(userID, resource)
}

func (s *Store) listLocked(match func(*entity.MutationLogEntry) bool, limit, offset int) []*entity.MutationLogEntry {
	out := make([]*entity.MutationLogEntry, 0)
	skipped := 0
	for i := len(s.logs) - 1; i >= 0; i-- {
		e := s.logs[i]
		if !match(e) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		cp := *e
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// txView vista de una unidad atómica. Se usa con el lock de escritura tomado.
type txView struct {
	store    *Store
	stocks   map[string]*entity.StockBalance
	accounts map[accountKey]*entity.BalanceAccount
	costs    map[string]*entity.ProductCost
	logs     []*entity.MutationLogEntry
}

var (
	_ repository.BalanceRepository     = (*txView)(nil)
	_ repository.MutationLogRepository = (*txView)(nil)
	_ repository.ProductCostRepository = (*txView)(nil)
)

func (v *txView) GetStock(_ context.Context, productID string) (*entity.StockBalance, error) {
	if st, ok := v.stocks[productID]; ok {
		return st.Clone(), nil
	}
	return v.store.stockLocked(productID), nil
}

func (v *txView) GetAccount(_ context.Context, userID string, resource entity.ResourceKind) (*entity.BalanceAccount, error) {
	if a, ok := v.accounts[accountKey{userID, resource}]; ok {
		return a.Clone(), nil
	}
	return v.store.accountLocked(userID, resource), nil
}

func (v *txView) CompareAndSetStock(ctx context.Context, stock *entity.StockBalance, expectedVersion int64) error {
	current, _ := v.GetStock(ctx, stock.ProductID)
	if current.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	stock.Version = expectedVersion + 1
	v.stocks[stock.ProductID] = stock.Clone()
	return nil
}

func (v *txView) CompareAndSetAccount(ctx context.Context, acct *entity.BalanceAccount, expectedVersion int64) error {
	current, _ := v.GetAccount(ctx, acct.UserID, acct.Resource)
	if current.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	acct.Version = expectedVersion + 1
	v.accounts[accountKey{acct.UserID, acct.Resource}] = acct.Clone()
	return nil
}

func (v *txView) Append(_ context.Context, entry *entity.MutationLogEntry) error {
	cp := *entry
	v.logs = append(v.logs, &cp)
	return nil
}

// ListByEntity dentro de la vista solo ve lo ya confirmado.
func (v *txView) ListByEntity(ctx context.Context, ref entity.EntityRef, limit, offset int) ([]*entity.MutationLogEntry, error) {
	key := ref.Key()
	return v.store.listLocked(func(e *entity.MutationLogEntry) bool { return e.EntityKey == key }, limit, offset), nil
}

func (v *txView) ListByProduct(_ context.Context, productID string, limit, offset int) ([]*entity.MutationLogEntry, error) {
	return v.store.listLocked(func(e *entity.MutationLogEntry) bool {
		return e.Entity.Type == entity.EntityTypeStock && e.Entity.ProductID == productID
	}, limit, offset), nil
}

func (v *txView) Get(_ context.Context, productID string) (*entity.ProductCost, error) {
	c, ok := v.costs[productID]
	if !ok {
		c, ok = v.store.costs[productID]
	}
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (v *txView) Upsert(_ context.Context, cost *entity.ProductCost) error {
	cp := *cost
	v.costs[cost.ProductID] = &cp
	return nil
}
