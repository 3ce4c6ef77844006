package ledger_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/retail-ledger/internal/application/ledger"
	"github.com/jhoicas/retail-ledger/internal/domain"
	"github.com/jhoicas/retail-ledger/internal/domain/entity"
	domledger "github.com/jhoicas/retail-ledger/internal/domain/ledger"
	"github.com/jhoicas/retail-ledger/internal/domain/repository"
	"github.com/jhoicas/retail-ledger/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

const operator = "op-1"

func fastConfig() ledger.Config {
	return ledger.Config{MaxAttempts: 5, ReadRetries: 3, ReadBackoff: time.Millisecond}
}

func newEngine(store *memory.Store, opts ...ledger.Option) *ledger.Engine {
	opts = append([]ledger.Option{ledger.WithConfig(fastConfig())}, opts...)
	return ledger.NewEngine(store, store, opts...)
}

func seedStock(t *testing.T, e *ledger.Engine, productID, warehouseID string, qty int64) {
	t.Helper()
	res, err := e.Opname(context.Background(), ledger.OpnameInput{
		OperatorID: operator, ProductID: productID, WarehouseID: warehouseID, CountedQuantity: qty,
	})
	require.NoError(t, err)
	require.True(t, res.Committed())
}

func seedAccount(t *testing.T, e *ledger.Engine, userID string, resource entity.ResourceKind, amount int64) {
	t.Helper()
	res, err := e.AdjustBalance(context.Background(), ledger.AdjustBalanceInput{
		OperatorID: operator, UserID: userID, Resource: resource, Kind: entity.KindBonus, Amount: amount,
	})
	require.NoError(t, err)
	require.True(t, res.Committed())
}

// barrierReader retiene las primeras n lecturas de stock hasta que todas han leído,
// de modo que ambas operaciones concurrentes validan contra la misma versión.
type barrierReader struct {
	repository.BalanceReader
	n     int32
	calls atomic.Int32
	wg    sync.WaitGroup
}

func newBarrierReader(inner repository.BalanceReader, n int) *barrierReader {
	b := &barrierReader{BalanceReader: inner, n: int32(n)}
	b.wg.Add(n)
	return b
}

func (b *barrierReader) GetStock(ctx context.Context, productID string) (*entity.StockBalance, error) {
	s, err := b.BalanceReader.GetStock(ctx, productID)
	if b.calls.Add(1) <= b.n {
		b.wg.Done()
		b.wg.Wait()
	}
	return s, err
}

// flakyReader falla las primeras `failures` lecturas con almacenamiento no disponible.
type flakyReader struct {
	repository.BalanceReader
	failures int32
	calls    atomic.Int32
}

func (f *flakyReader) GetStock(ctx context.Context, productID string) (*entity.StockBalance, error) {
	if f.calls.Add(1) <= f.failures {
		return nil, domain.ErrStoreUnavailable
	}
	return f.BalanceReader.GetStock(ctx, productID)
}

// fixedReader devuelve siempre el mismo saldo.
type fixedReader struct {
	repository.BalanceReader
	stock *entity.StockBalance
}

func (f fixedReader) GetStock(_ context.Context, _ string) (*entity.StockBalance, error) {
	return f.stock.Clone(), nil
}

// failingTx devuelve err en cada commit y cuenta los intentos.
type failingTx struct {
	err   error
	calls atomic.Int32
}

func (f *failingTx) Run(_ context.Context, _ func(repository.BalanceRepository, repository.MutationLogRepository, repository.ProductCostRepository) error) error {
	f.calls.Add(1)
	return f.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []entity.MutationCommitted
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev entity.MutationCommitted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

// ──────────────────────────────────────────────────────────────────────────────
// Opname
// ──────────────────────────────────────────────────────────────────────────────

func TestOpname_ConteoIgualRegistraDeltaCero(t *testing.T) {
	store := memory.NewStore()
	e := newEngine(store)
	seedStock(t, e, "prod-1", "wh-a", 50)

	res, err := e.Opname(context.Background(), ledger.OpnameInput{
		OperatorID: operator, ProductID: "prod-1", WarehouseID: "wh-a", CountedQuantity: 50,
	})
	require.NoError(t, err)
	require.True(t, res.Committed())
	require.Len(t, res.Entries, 1)

	entry := res.Entries[0]
	assert.Equal(t, int64(0), entry.Delta)
	assert.Equal(t, int64(50), entry.PreviousValue)
	assert.Equal(t, int64(50), entry.NextValue)
	assert.Equal(t, entity.DefaultReason(entity.KindOpname), entry.Reason)
	assert.Equal(t, int64(2), entry.BalanceVersion)
}

func TestOpname_PerdidaTotalLlevaACero(t *testing.T) {
	store := memory.NewStore()
	e := newEngine(store)
	seedStock(t, e, "prod-1", "wh-a", 12)
	seedStock(t, e, "prod-1", "wh-b", 3)

	res, err := e.Opname(context.Background(), ledger.OpnameInput{
		OperatorID: operator, ProductID: "prod-1", WarehouseID: "wh-a", CountedQuantity: 0, Reason: "robo",
	})
	require.NoError(t, err)
	require.True(t, res.Committed())
	assert.Equal(t, int64(-12), res.Entries[0].Delta)
	assert.Equal(t, "robo", res.Entries[0].Reason)

	st, _ := store.GetStock(context.Background(), "prod-1")
	assert.Equal(t, int64(0), st.Quantity("wh-a"))
	assert.Equal(t, int64(3), st.Total)
}

func TestOpname_SinOperadorRechazado(t *testing.T) {
	e := newEngine(memory.NewStore())

	res, err := e.Opname(context.Background(), ledger.OpnameInput{ProductID: "prod-1", WarehouseID: "wh-a", CountedQuantity: 1})
	require.NoError(t, err)
	require.True(t, res.Rejected())
	assert.Equal(t, domledger.CodeInvalidInput, res.Rejection.Code)
}

// ──────────────────────────────────────────────────────────────────────────────
// Transfer
// ──────────────────────────────────────────────────────────────────────────────

func TestTransfer_DosEntradasConMismaTransaccion(t *testing.T) {
	store := memory.NewStore()
	e := newEngine(store)
	seedStock(t, e, "prod-1", "wh-a", 7)

	res, err := e.Transfer(context.Background(), ledger.TransferInput{
		OperatorID: operator, ProductID: "prod-1", FromWarehouseID: "wh-a", ToWarehouseID: "wh-b", Quantity: 7,
	})
	require.NoError(t, err)
	require.True(t, res.Committed())
	require.Len(t, res.Entries, 2)

	out, in := res.Entries[0], res.Entries[1]
	assert.Equal(t, entity.KindTransferOut, out.Kind)
	assert.Equal(t, int64(-7), out.Delta)
	assert.Equal(t, int64(0), out.NextValue)
	assert.Equal(t, entity.KindTransferIn, in.Kind)
	assert.Equal(t, int64(7), in.NextValue)
	assert.Equal(t, out.TransactionID, in.TransactionID)
	assert.Equal(t, res.TransactionID, out.TransactionID)
	assert.Equal(t, out.Timestamp, in.Timestamp)

	st, _ := store.GetStock(context.Background(), "prod-1")
	assert.Equal(t, int64(0), st.Quantity("wh-a"))
	assert.Equal(t, int64(7), st.Quantity("wh-b"))
	assert.Equal(t, int64(7), st.Total, "el traslado no cambia el total")
}

func TestTransfer_InsuficienteNoEscribeNada(t *testing.T) {
	store := memory.NewStore()
	e := newEngine(store)
	seedStock(t, e, "prod-1", "wh-a", 7)

	res, err := e.Transfer(context.Background(), ledger.TransferInput{
		OperatorID: operator, ProductID: "prod-1", FromWarehouseID: "wh-a", ToWarehouseID: "wh-b", Quantity: 8,
	})
	require.NoError(t, err)
	require.True(t, res.Rejected())
	assert.Equal(t, domledger.CodeInsufficientStock, res.Rejection.Code)
	assert.Equal(t, int64(7), *res.Rejection.Available)

	entries, _ := store.ListByProduct(context.Background(), "prod-1", 10, 0)
	assert.Len(t, entries, 1, "solo la entrada de la carga inicial")
}

func TestTransfer_ConcurrentesSobreElMismoStock(t *testing.T) {
	store := memory.NewStore()
	seedStock(t, newEngine(store), "prod-1", "wh-a", 10)

	e := ledger.NewEngine(store, newBarrierReader(store, 2), ledger.WithConfig(fastConfig()))

	var wg sync.WaitGroup
	results := make([]*ledger.Result, 2)
	errs := make([]error, 2)
	for i, to := range []string{"wh-b", "wh-c"} {
		wg.Add(1)
		go func(i int, to string) {
			defer wg.Done()
			results[i], errs[i] = e.Transfer(context.Background(), ledger.TransferInput{
				OperatorID: operator, ProductID: "prod-1", FromWarehouseID: "wh-a", ToWarehouseID: to, Quantity: 7,
			})
		}(i, to)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	committed, rejected := 0, 0
	for _, r := range results {
		switch {
		case r.Committed():
			committed++
		case r.Rejected():
			rejected++
			assert.Equal(t, domledger.CodeInsufficientStock, r.Rejection.Code)
			assert.Equal(t, int64(3), *r.Rejection.Available)
			assert.Equal(t, 2, r.Attempts, "el perdedor revalida contra el saldo nuevo")
		}
	}
	assert.Equal(t, 1, committed)
	assert.Equal(t, 1, rejected)

	st, _ := store.GetStock(context.Background(), "prod-1")
	assert.Equal(t, int64(3), st.Quantity("wh-a"))
	assert.Equal(t, int64(10), st.Total)
}

// ──────────────────────────────────────────────────────────────────────────────
// Receive
// ──────────────────────────────────────────────────────────────────────────────

func TestReceive_ActualizaCostoEnElMismoCommit(t *testing.T) {
	store := memory.NewStore()
	e := newEngine(store)
	ctx := context.Background()

	res, err := e.Receive(ctx, ledger.ReceiveInput{
		OperatorID: operator, ProductID: "prod-1", WarehouseID: "wh-a", PurchaseOrderID: "po-1",
		Unit: "pcs", Quantity: 10, UnitCost: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	require.True(t, res.Committed())
	assert.Equal(t, "po-1", res.Entries[0].Reference)
	assert.Equal(t, "pcs", res.Stock.Unit)

	res, err = e.Receive(ctx, ledger.ReceiveInput{
		OperatorID: operator, ProductID: "prod-1", WarehouseID: "wh-b", PurchaseOrderID: "po-2",
		Quantity: 10, UnitCost: decimal.NewFromInt(200),
	})
	require.NoError(t, err)
	require.True(t, res.Committed())
	require.NotNil(t, res.Cost)

	cost, _ := store.GetCost(ctx, "prod-1")
	require.NotNil(t, cost)
	assert.True(t, cost.LastPurchaseCost.Equal(decimal.NewFromInt(200)))
	assert.True(t, cost.AverageCost.Equal(decimal.NewFromInt(150)), "promedio: %s", cost.AverageCost)

	st, _ := store.GetStock(ctx, "prod-1")
	assert.Equal(t, int64(20), st.Total)
}

func TestReceive_UnidadDistintaRechazada(t *testing.T) {
	e := newEngine(memory.NewStore())
	ctx := context.Background()

	_, err := e.Receive(ctx, ledger.ReceiveInput{
		OperatorID: operator, ProductID: "prod-1", WarehouseID: "wh-a", Unit: "pcs", Quantity: 1,
	})
	require.NoError(t, err)

	res, err := e.Receive(ctx, ledger.ReceiveInput{
		OperatorID: operator, ProductID: "prod-1", WarehouseID: "wh-a", Unit: "box", Quantity: 1,
	})
	require.NoError(t, err)
	require.True(t, res.Rejected())
	assert.Equal(t, domledger.CodeUnitMismatch, res.Rejection.Code)
}

func TestReceive_DesbordeDelTotalRechazado(t *testing.T) {
	store := memory.NewStore()
	e := newEngine(store)
	ctx := context.Background()

	res, err := e.Receive(ctx, ledger.ReceiveInput{
		OperatorID: operator, ProductID: "prod-1", WarehouseID: "wh-a", Quantity: math.MaxInt64 - 10,
	})
	require.NoError(t, err)
	require.True(t, res.Committed())

	res, err = e.Receive(ctx, ledger.ReceiveInput{
		OperatorID: operator, ProductID: "prod-1", WarehouseID: "wh-b", Quantity: 100,
	})
	require.NoError(t, err)
	require.True(t, res.Rejected())
	assert.Equal(t, domledger.CodeAmountTooLarge, res.Rejection.Code)

	st, _ := store.GetStock(ctx, "prod-1")
	assert.Equal(t, int64(math.MaxInt64-10), st.Total, "el total no cambia")
	assert.Zero(t, st.Quantity("wh-b"))
}

// ──────────────────────────────────────────────────────────────────────────────
// Cuentas
// ──────────────────────────────────────────────────────────────────────────────

func TestAdjustBalance_CuentaCongeladaNoRegistraEntrada(t *testing.T) {
	store := memory.NewStore()
	e := newEngine(store)
	ctx := context.Background()
	seedAccount(t, e, "user-1", entity.ResourcePoints, 100)

	res, err := e.Freeze(ctx, ledger.FreezeInput{OperatorID: operator, UserID: "user-1", Resource: entity.ResourcePoints})
	require.NoError(t, err)
	require.True(t, res.Committed())
	assert.Empty(t, res.Entries)

	res, err = e.AdjustBalance(ctx, ledger.AdjustBalanceInput{
		OperatorID: operator, UserID: "user-1", Resource: entity.ResourcePoints, Kind: entity.KindBonus, Amount: 1_000,
	})
	require.NoError(t, err)
	require.True(t, res.Rejected())
	assert.Equal(t, domledger.CodeAccountFrozen, res.Rejection.Code)

	entries, _ := store.ListByEntity(ctx, entity.AccountRef("user-1", entity.ResourcePoints), 10, 0)
	assert.Len(t, entries, 1, "solo la carga inicial")

	_, err = e.Unfreeze(ctx, ledger.FreezeInput{OperatorID: operator, UserID: "user-1", Resource: entity.ResourcePoints})
	require.NoError(t, err)
	res, err = e.AdjustBalance(ctx, ledger.AdjustBalanceInput{
		OperatorID: operator, UserID: "user-1", Resource: entity.ResourcePoints, Kind: entity.KindBonus, Amount: 1_000,
	})
	require.NoError(t, err)
	assert.True(t, res.Committed())
	assert.Equal(t, int64(1_100), res.Account.Amount)
}

func TestAdjustBalance_RetiroInsuficienteCitaSaldo(t *testing.T) {
	e := newEngine(memory.NewStore())
	seedAccount(t, e, "user-1", entity.ResourceWallet, 50_000)

	res, err := e.AdjustBalance(context.Background(), ledger.AdjustBalanceInput{
		OperatorID: operator, UserID: "user-1", Resource: entity.ResourceWallet, Kind: entity.KindWithdrawal, Amount: 80_000,
	})
	require.NoError(t, err)
	require.True(t, res.Rejected())
	assert.Contains(t, res.Rejection.Message, "Rp50.000")
	assert.Equal(t, int64(50_000), res.Account.Amount)
}

func TestAdjustBalance_DesbordeDeSaldoEsRechazo(t *testing.T) {
	store := memory.NewStore()
	e := newEngine(store)
	seedAccount(t, e, "user-1", entity.ResourcePoints, math.MaxInt64)

	res, err := e.AdjustBalance(context.Background(), ledger.AdjustBalanceInput{
		OperatorID: operator, UserID: "user-1", Resource: entity.ResourcePoints, Kind: entity.KindBonus, Amount: 1,
	})
	require.NoError(t, err, "un desborde no es un fallo duro")
	require.True(t, res.Rejected())
	assert.Equal(t, domledger.CodeAmountTooLarge, res.Rejection.Code)

	acct, _ := store.GetAccount(context.Background(), "user-1", entity.ResourcePoints)
	assert.Equal(t, int64(math.MaxInt64), acct.Amount)
}

func TestAdjustBalance_ReenvioAplicaOtraVez(t *testing.T) {
	e := newEngine(memory.NewStore())
	in := ledger.AdjustBalanceInput{
		OperatorID: operator, UserID: "user-1", Resource: entity.ResourceWallet, Kind: entity.KindTopup, Amount: 10_000,
	}

	first, err := e.AdjustBalance(context.Background(), in)
	require.NoError(t, err)
	second, err := e.AdjustBalance(context.Background(), in)
	require.NoError(t, err)

	assert.NotEqual(t, first.TransactionID, second.TransactionID)
	assert.Equal(t, int64(20_000), second.Account.Amount)
}

// ──────────────────────────────────────────────────────────────────────────────
// Propiedades del log
// ──────────────────────────────────────────────────────────────────────────────

func TestLog_CadenaDeValoresYTimestampsMonotonos(t *testing.T) {
	store := memory.NewStore()
	base := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	var tick atomic.Int64
	// el reloj retrocede en cada llamada
	clock := func() time.Time { return base.Add(-time.Duration(tick.Add(1)) * time.Minute) }
	e := newEngine(store, ledger.WithClock(clock))
	ctx := context.Background()

	seedAccount(t, e, "user-1", entity.ResourcePoints, 500)
	for _, step := range []struct {
		kind   entity.MutationKind
		amount int64
	}{
		{entity.KindPenalty, 120},
		{entity.KindBonus, 40},
		{entity.KindPenalty, 420},
		{entity.KindBonus, 1},
	} {
		res, err := e.AdjustBalance(ctx, ledger.AdjustBalanceInput{
			OperatorID: operator, UserID: "user-1", Resource: entity.ResourcePoints, Kind: step.kind, Amount: step.amount,
		})
		require.NoError(t, err)
		require.True(t, res.Committed(), "%s %d", step.kind, step.amount)
	}

	entries, err := store.ListByEntity(ctx, entity.AccountRef("user-1", entity.ResourcePoints), 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 5)

	// más reciente primero: recorrer en orden cronológico
	for i := len(entries) - 1; i > 0; i-- {
		older, newer := entries[i], entries[i-1]
		assert.Equal(t, older.NextValue, newer.PreviousValue)
		assert.False(t, newer.Timestamp.Before(older.Timestamp))
		assert.Equal(t, older.BalanceVersion+1, newer.BalanceVersion)
	}

	acct, _ := store.GetAccount(ctx, "user-1", entity.ResourcePoints)
	assert.Equal(t, entries[0].NextValue, acct.Amount)
	assert.Equal(t, int64(1), acct.Amount)
}

// ──────────────────────────────────────────────────────────────────────────────
// Fallos y reintentos
// ──────────────────────────────────────────────────────────────────────────────

func TestEngine_ContencionExcedida(t *testing.T) {
	store := memory.NewStore()
	tx := &failingTx{err: domain.ErrVersionConflict}
	e := ledger.NewEngine(tx, store, ledger.WithConfig(fastConfig()))

	res, err := e.Opname(context.Background(), ledger.OpnameInput{
		OperatorID: operator, ProductID: "prod-1", WarehouseID: "wh-a", CountedQuantity: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusContentionExceeded, res.Status)
	assert.Equal(t, 5, res.Attempts)
	assert.Equal(t, int32(5), tx.calls.Load())
}

func TestEngine_LecturaNoDisponibleSeReintenta(t *testing.T) {
	store := memory.NewStore()
	reader := &flakyReader{BalanceReader: store, failures: 2}
	e := ledger.NewEngine(store, reader, ledger.WithConfig(fastConfig()))

	res, err := e.Opname(context.Background(), ledger.OpnameInput{
		OperatorID: operator, ProductID: "prod-1", WarehouseID: "wh-a", CountedQuantity: 5,
	})
	require.NoError(t, err)
	assert.True(t, res.Committed())
	assert.Equal(t, int32(3), reader.calls.Load())
}

func TestEngine_LecturaAgotaReintentos(t *testing.T) {
	store := memory.NewStore()
	reader := &flakyReader{BalanceReader: store, failures: 100}
	e := ledger.NewEngine(store, reader, ledger.WithConfig(fastConfig()))

	res, err := e.Opname(context.Background(), ledger.OpnameInput{
		OperatorID: operator, ProductID: "prod-1", WarehouseID: "wh-a", CountedQuantity: 5,
	})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Equal(t, int32(4), reader.calls.Load(), "lectura inicial más 3 reintentos")
}

func TestEngine_CommitFallidoNoSeReintenta(t *testing.T) {
	store := memory.NewStore()
	tx := &failingTx{err: domain.ErrStoreUnavailable}
	e := ledger.NewEngine(tx, store, ledger.WithConfig(fastConfig()))

	_, err := e.Opname(context.Background(), ledger.OpnameInput{
		OperatorID: operator, ProductID: "prod-1", WarehouseID: "wh-a", CountedQuantity: 5,
	})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Equal(t, int32(1), tx.calls.Load())
}

func TestEngine_InvarianteVioladaAborta(t *testing.T) {
	store := memory.NewStore()
	corrupt := entity.NewStockBalance("prod-1")
	corrupt.PerWarehouse["wh-z"] = -4
	e := ledger.NewEngine(store, fixedReader{BalanceReader: store, stock: corrupt}, ledger.WithConfig(fastConfig()))

	_, err := e.Opname(context.Background(), ledger.OpnameInput{
		OperatorID: operator, ProductID: "prod-1", WarehouseID: "wh-a", CountedQuantity: 5,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)

	var inv *domain.InvariantError
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, "stock:prod-1", inv.Entity)

	st, _ := store.GetStock(context.Background(), "prod-1")
	assert.Equal(t, int64(0), st.Version)
}

func TestEngine_ContextoCanceladoNoEscribe(t *testing.T) {
	store := memory.NewStore()
	e := newEngine(store)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := e.Opname(ctx, ledger.OpnameInput{
		OperatorID: operator, ProductID: "prod-1", WarehouseID: "wh-a", CountedQuantity: 5,
	})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)

	entries, _ := store.ListByProduct(context.Background(), "prod-1", 10, 0)
	assert.Empty(t, entries)
}

// ──────────────────────────────────────────────────────────────────────────────
// Eventos
// ──────────────────────────────────────────────────────────────────────────────

func TestEngine_PublicaEventoTrasCommit(t *testing.T) {
	pub := &recordingPublisher{}
	e := newEngine(memory.NewStore(), ledger.WithPublisher(pub))

	res, err := e.Transfer(context.Background(), ledger.TransferInput{
		OperatorID: operator, ProductID: "prod-1", FromWarehouseID: "wh-a", ToWarehouseID: "wh-b", Quantity: 1,
	})
	require.NoError(t, err)
	require.True(t, res.Rejected())
	assert.Empty(t, pub.events, "un rechazo no publica")

	seedStock(t, e, "prod-1", "wh-a", 4)
	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, entity.EventMutationCommitted, ev.Type)
	assert.Equal(t, entity.KindOpname, ev.Kind)
	assert.Equal(t, operator, ev.OperatorID)
	assert.Len(t, ev.Entries, 1)
}

func TestEngine_FalloDelPublicadorNoAfectaResultado(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("redis caído")}
	e := newEngine(memory.NewStore(), ledger.WithPublisher(pub))

	res, err := e.Freeze(context.Background(), ledger.FreezeInput{OperatorID: operator, UserID: "user-1", Resource: entity.ResourceWallet})
	require.NoError(t, err)
	assert.True(t, res.Committed())
	require.Len(t, pub.events, 1)
	assert.Equal(t, entity.EventAccountFrozen, pub.events[0].Type)
}

// ──────────────────────────────────────────────────────────────────────────────
// Bloqueo consultivo
// ──────────────────────────────────────────────────────────────────────────────

type stubLocker struct {
	err      error
	keys     []string
	released int
}

func (l *stubLocker) Acquire(_ context.Context, key string) (func(), error) {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return nil, l.err
	}
	return func() { l.released++ }, nil
}

func TestEngine_BloqueoPorEntidadSeLibera(t *testing.T) {
	locker := &stubLocker{}
	e := newEngine(memory.NewStore(), ledger.WithLocker(locker))

	seedStock(t, e, "prod-1", "wh-a", 3)
	assert.Equal(t, []string{"stock:prod-1"}, locker.keys, "el stock se bloquea por producto, no por bodega")
	assert.Equal(t, 1, locker.released)
}

func TestEngine_SinBloqueoContinuaConVersion(t *testing.T) {
	locker := &stubLocker{err: errors.New("redis no disponible")}
	e := newEngine(memory.NewStore(), ledger.WithLocker(locker))

	res, err := e.AdjustBalance(context.Background(), ledger.AdjustBalanceInput{
		OperatorID: operator, UserID: "user-1", Resource: entity.ResourcePoints, Kind: entity.KindBonus, Amount: 10,
	})
	require.NoError(t, err)
	assert.True(t, res.Committed())
	assert.Equal(t, 0, locker.released)
}
