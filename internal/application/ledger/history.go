package ledger

import (
	"context"
	"strings"

	"github.com/jhoicas/retail-ledger/internal/domain"
	"github.com/jhoicas/retail-ledger/internal/domain/entity"
	"github.com/jhoicas/retail-ledger/internal/domain/repository"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// QueryUseCase consultas de solo lectura: saldo vigente e historial de mutaciones.
type QueryUseCase struct {
	balances repository.BalanceReader
	logs     repository.MutationLogReader
}

// NewQueryUseCase construye el caso de uso.
func NewQueryUseCase(balances repository.BalanceReader, logs repository.MutationLogReader) *QueryUseCase {
	return &QueryUseCase{balances: balances, logs: logs}
}

// GetStock saldo del producto en todas las bodegas.
func (uc *QueryUseCase) GetStock(ctx context.Context, productID string) (*entity.StockBalance, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	return uc.balances.GetStock(ctx, productID)
}

// GetAccount saldo de puntos o monedero del usuario.
func (uc *QueryUseCase) GetAccount(ctx context.Context, userID string, resource entity.ResourceKind) (*entity.BalanceAccount, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || !resource.Valid() {
		return nil, domain.ErrInvalidInput
	}
	return uc.balances.GetAccount(ctx, userID, resource)
}

// StockHistory historial del producto; con warehouseID filtra a esa bodega.
func (uc *QueryUseCase) StockHistory(ctx context.Context, productID, warehouseID string, limit, offset int) ([]*entity.MutationLogEntry, error) {
	productID = strings.TrimSpace(productID)
	warehouseID = strings.TrimSpace(warehouseID)
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	limit, offset = normalizePage(limit, offset)
	if warehouseID == "" {
		return uc.logs.ListByProduct(ctx, productID, limit, offset)
	}
	return uc.logs.ListByEntity(ctx, entity.StockRef(productID, warehouseID), limit, offset)
}

// AccountHistory historial de la cuenta, más reciente primero.
func (uc *QueryUseCase) AccountHistory(ctx context.Context, userID string, resource entity.ResourceKind, limit, offset int) ([]*entity.MutationLogEntry, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || !resource.Valid() {
		return nil, domain.ErrInvalidInput
	}
	limit, offset = normalizePage(limit, offset)
	return uc.logs.ListByEntity(ctx, entity.AccountRef(userID, resource), limit, offset)
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
