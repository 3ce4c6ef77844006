package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	appledger "github.com/jhoicas/retail-ledger/internal/application/ledger"
	"github.com/jhoicas/retail-ledger/internal/domain/entity"
	"github.com/jhoicas/retail-ledger/internal/domain/repository"
	"github.com/jhoicas/retail-ledger/internal/infrastructure/events"
	"github.com/jhoicas/retail-ledger/internal/infrastructure/memory"
	inframongo "github.com/jhoicas/retail-ledger/internal/infrastructure/mongo"
	"github.com/jhoicas/retail-ledger/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/retail-ledger/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/retail-ledger/internal/interfaces/http"
	"github.com/jhoicas/retail-ledger/pkg/config"
	"github.com/jhoicas/retail-ledger/pkg/logger"
)

// store lo que el motor y las consultas necesitan de un adaptador.
type store struct {
	tx       appledger.TxRunner
	balances repository.BalanceReader
	logs     repository.MutationLogReader
	close    func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Ledger.StoreDriver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	st := openStore(ctx, cfg, log)
	defer st.close()

	hub := events.NewHub(256, log.Component("events"))
	publishers := events.Fanout{hub}
	var locker appledger.EntityLocker = appledger.NoopLocker{}
	var redisPub *infraredis.Publisher

	// Redis es opcional: sin REDIS_ADDR solo queda el hub en memoria.
	if cfg.Redis.Enabled() {
		rdb, err := infraredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		redisPub = infraredis.NewPublisher(rdb, cfg.Redis.EventsChannel)
		publishers = append(publishers, redisPub)
		locker = infraredis.NewLocker(rdb, cfg.Redis.LockTTL())
		log.Info().Str("channel", cfg.Redis.EventsChannel).Msg("eventos y bloqueo consultivo vía Redis")
	}

	// Con Redis la auditoría lee el canal compartido y ve también los commits de otras réplicas.
	auditCtx, stopAudit := context.WithCancel(ctx)
	defer stopAudit()
	var auditCh <-chan entity.MutationCommitted
	if redisPub != nil {
		auditCh = redisPub.Subscribe(auditCtx)
	} else {
		ch, unsubscribe := hub.Subscribe()
		defer unsubscribe()
		auditCh = ch
	}
	go events.Tail(auditCtx, auditCh, log.Component("audit"))

	engine := appledger.NewEngine(st.tx, st.balances,
		appledger.WithPublisher(publishers),
		appledger.WithLocker(locker),
		appledger.WithLogger(log),
		appledger.WithConfig(appledger.Config{
			MaxAttempts: cfg.Ledger.MaxAttempts,
			ReadRetries: cfg.Ledger.ReadRetries,
			ReadBackoff: cfg.Ledger.ReadBackoff(),
		}),
	)
	query := appledger.NewQueryUseCase(st.balances, st.logs)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "store": cfg.Ledger.StoreDriver})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Engine:    engine,
		Query:     query,
		Logger:    log,
		JWTSecret: cfg.JWT.Secret,
		JWTIssuer: cfg.JWT.Issuer,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) store {
	switch cfg.Ledger.StoreDriver {
	case config.StorePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migración del esquema")
		}
		return store{
			tx:       postgres.NewTxRunner(pool),
			balances: postgres.NewBalanceRepository(pool),
			logs:     postgres.NewMutationLogRepository(pool),
			close:    pool.Close,
		}

	case config.StoreMongo:
		client, db, err := inframongo.Connect(ctx, cfg.Mongo)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a MongoDB")
		}
		if err := inframongo.EnsureIndexes(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("índices de MongoDB")
		}
		s := inframongo.NewStore(client, db)
		return store{
			tx:       s,
			balances: s,
			logs:     s,
			close: func() {
				c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = client.Disconnect(c)
			},
		}

	default:
		s := memory.NewStore()
		log.Warn().Msg("almacenamiento en memoria: los saldos se pierden al reiniciar")
		return store{tx: s, balances: s, logs: s, close: func() {}}
	}
}
