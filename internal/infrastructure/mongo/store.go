package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appledger "github.com/jhoicas/retail-ledger/internal/application/ledger"
	"github.com/jhoicas/retail-ledger/internal/domain"
	"github.com/jhoicas/retail-ledger/internal/domain/entity"
	"github.com/jhoicas/retail-ledger/internal/domain/repository"
)

var (
	_ appledger.TxRunner               = (*Store)(nil)
	_ repository.BalanceRepository     = (*repo)(nil)
	_ repository.MutationLogRepository = (*repo)(nil)
	_ repository.ProductCostRepository = (*repo)(nil)
)

// Store adaptador MongoDB. Fuera de Run sus lecturas no usan sesión.
type Store struct {
	client *mongo.Client
	*repo
}

// NewStore construye el adaptador sobre una base ya conectada.
func NewStore(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{client: client, repo: &repo{db: db}}
}

// Run ejecuta fn dentro de una transacción multi-documento.
// El driver reintenta por su cuenta los errores transitorios de la transacción.
func (s *Store) Run(ctx context.Context, fn func(
	balances repository.BalanceRepository,
	logs repository.MutationLogRepository,
	costs repository.ProductCostRepository,
) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", mapError(err))
	}
	defer session.EndSession(context.Background())

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		r := &repo{db: s.db, session: sc}
		return nil, fn(r, r, r)
	})
	if err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
		return fmt.Errorf("transaction: %w", mapError(err))
	}
	return nil
}

// repo implementa los tres puertos; con session != nil opera dentro de la transacción.
type repo struct {
	db      *mongo.Database
	session mongo.Session
}

func (r *repo) bind(ctx context.Context) context.Context {
	if r.session == nil {
		return ctx
	}
	return mongo.NewSessionContext(ctx, r.session)
}

// GetStock saldo del producto; inexistente = saldo en cero con versión 0.
func (r *repo) GetStock(ctx context.Context, productID string) (*entity.StockBalance, error) {
	var s entity.StockBalance
	err := r.db.Collection(stockCollection).FindOne(r.bind(ctx), bson.M{"_id": productID}).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return entity.NewStockBalance(productID), nil
		}
		return nil, fmt.Errorf("get stock balance: %w", mapError(err))
	}
	if s.PerWarehouse == nil {
		s.PerWarehouse = map[string]int64{}
	}
	return &s, nil
}

// CompareAndSetStock inserta con versión 1 o actualiza filtrando por la versión esperada.
func (r *repo) CompareAndSetStock(ctx context.Context, stock *entity.StockBalance, expectedVersion int64) error {
	ctx = r.bind(ctx)
	col := r.db.Collection(stockCollection)
	if expectedVersion == 0 {
		doc := stock.Clone()
		doc.Version = 1
		if _, err := col.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return domain.ErrVersionConflict
			}
			return fmt.Errorf("insert stock %s: %w", stock.ProductID, mapError(err))
		}
		stock.Version = 1
		return nil
	}

	res, err := col.UpdateOne(ctx,
		bson.M{"_id": stock.ProductID, "version": expectedVersion},
		bson.M{
			"$set": bson.M{
				"unit":          stock.Unit,
				"per_warehouse": stock.PerWarehouse,
				"total":         stock.Total,
				"updated_at":    stock.UpdatedAt,
			},
			"$inc": bson.M{"version": 1},
		})
	if err != nil {
		return fmt.Errorf("update stock %s: %w", stock.ProductID, mapError(err))
	}
	if res.MatchedCount == 0 {
		return domain.ErrVersionConflict
	}
	stock.Version = expectedVersion + 1
	return nil
}

// GetAccount cuenta del usuario; inexistente = cuenta en cero con versión 0.
func (r *repo) GetAccount(ctx context.Context, userID string, resource entity.ResourceKind) (*entity.BalanceAccount, error) {
	var a entity.BalanceAccount
	err := r.db.Collection(accountCollection).
		FindOne(r.bind(ctx), bson.M{"user_id": userID, "resource": resource}).
		Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return entity.NewBalanceAccount(userID, resource), nil
		}
		return nil, fmt.Errorf("get balance account: %w", mapError(err))
	}
	return &a, nil
}

// CompareAndSetAccount igual que CompareAndSetStock; la unicidad la da el índice (user_id, resource).
func (r *repo) CompareAndSetAccount(ctx context.Context, acct *entity.BalanceAccount, expectedVersion int64) error {
	ctx = r.bind(ctx)
	col := r.db.Collection(accountCollection)
	if expectedVersion == 0 {
		doc := acct.Clone()
		doc.Version = 1
		if _, err := col.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return domain.ErrVersionConflict
			}
			return fmt.Errorf("insert account %s: %w", acct.Ref().Key(), mapError(err))
		}
		acct.Version = 1
		return nil
	}

	res, err := col.UpdateOne(ctx,
		bson.M{"user_id": acct.UserID, "resource": acct.Resource, "version": expectedVersion},
		bson.M{
			"$set": bson.M{"amount": acct.Amount, "frozen": acct.Frozen, "updated_at": acct.UpdatedAt},
			"$inc": bson.M{"version": 1},
		})
	if err != nil {
		return fmt.Errorf("update account %s: %w", acct.Ref().Key(), mapError(err))
	}
	if res.MatchedCount == 0 {
		return domain.ErrVersionConflict
	}
	acct.Version = expectedVersion + 1
	return nil
}

// Append inserta la entrada; el _id es el ID de la entrada.
func (r *repo) Append(ctx context.Context, e *entity.MutationLogEntry) error {
	doc := *e
	doc.EntityKey = e.Entity.Key()
	if _, err := r.db.Collection(logCollection).InsertOne(r.bind(ctx), doc); err != nil {
		return fmt.Errorf("append mutation log: %w", mapError(err))
	}
	return nil
}

// ListByEntity entradas de la entidad, más reciente primero.
func (r *repo) ListByEntity(ctx context.Context, ref entity.EntityRef, limit, offset int) ([]*entity.MutationLogEntry, error) {
	return r.findEntries(ctx, bson.M{"entity_key": ref.Key()}, limit, offset)
}

// ListByProduct entradas de stock del producto en todas las bodegas.
func (r *repo) ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.MutationLogEntry, error) {
	return r.findEntries(ctx, bson.M{"entity.type": entity.EntityTypeStock, "entity.product_id": productID}, limit, offset)
}

func (r *repo) findEntries(ctx context.Context, filter bson.M, limit, offset int) ([]*entity.MutationLogEntry, error) {
	ctx = r.bind(ctx)
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "balance_version", Value: -1}})
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.db.Collection(logCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find mutation log: %w", mapError(err))
	}
	defer cur.Close(ctx)

	list := make([]*entity.MutationLogEntry, 0)
	for cur.Next(ctx) {
		var e entity.MutationLogEntry
		if err := cur.Decode(&e); err != nil {
			return nil, fmt.Errorf("decode mutation log: %w", err)
		}
		list = append(list, &e)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate mutation log: %w", mapError(err))
	}
	return list, nil
}

// costDoc los decimales se guardan como texto para no perder precisión.
type costDoc struct {
	ProductID        string    `bson:"_id"`
	LastPurchaseCost string    `bson:"last_purchase_cost"`
	AverageCost      string    `bson:"average_cost"`
	UpdatedAt        time.Time `bson:"updated_at"`
}

// Get costo del producto o nil.
func (r *repo) Get(ctx context.Context, productID string) (*entity.ProductCost, error) {
	var d costDoc
	err := r.db.Collection(costCollection).FindOne(r.bind(ctx), bson.M{"_id": productID}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product cost: %w", mapError(err))
	}
	last, err := decimal.NewFromString(d.LastPurchaseCost)
	if err != nil {
		return nil, fmt.Errorf("parse last_purchase_cost: %w", err)
	}
	avg, err := decimal.NewFromString(d.AverageCost)
	if err != nil {
		return nil, fmt.Errorf("parse average_cost: %w", err)
	}
	return &entity.ProductCost{ProductID: d.ProductID, LastPurchaseCost: last, AverageCost: avg, UpdatedAt: d.UpdatedAt}, nil
}

// Upsert reemplaza el costo del producto.
func (r *repo) Upsert(ctx context.Context, c *entity.ProductCost) error {
	doc := costDoc{
		ProductID:        c.ProductID,
		LastPurchaseCost: c.LastPurchaseCost.String(),
		AverageCost:      c.AverageCost.String(),
		UpdatedAt:        c.UpdatedAt,
	}
	_, err := r.db.Collection(costCollection).ReplaceOne(r.bind(ctx), bson.M{"_id": c.ProductID}, doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert product cost: %w", mapError(err))
	}
	return nil
}
