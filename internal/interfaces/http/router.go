package http

import (
	"github.com/gofiber/fiber/v2"

	appledger "github.com/jhoicas/retail-ledger/internal/application/ledger"
	"github.com/jhoicas/retail-ledger/pkg/jwt"
	"github.com/jhoicas/retail-ledger/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Engine    *appledger.Engine
	Query     *appledger.QueryUseCase
	Logger    *logger.Logger
	JWTSecret string
	JWTIssuer string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Todo el ledger requiere Bearer Token; las mutaciones además rol admin.
	ledgerGroup := api.Group("/ledger", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))
	h := NewLedgerHandler(deps.Engine, deps.Query, deps.Logger)
	canMutate := RequireRole(jwt.RoleAdmin)
	canRead := RequireRole(jwt.RoleAdmin, jwt.RoleSupervisor)

	stock := ledgerGroup.Group("/stock")
	stock.Post("/opname", canMutate, h.Opname)
	stock.Post("/transfer", canMutate, h.Transfer)
	stock.Post("/receive", canMutate, h.Receive)
	stock.Get("/:product_id", canRead, h.GetStock)
	stock.Get("/:product_id/history", canRead, h.StockHistory)

	accounts := ledgerGroup.Group("/accounts")
	accounts.Post("/adjust", canMutate, h.AdjustBalance)
	accounts.Post("/freeze", canMutate, h.Freeze)
	accounts.Post("/unfreeze", canMutate, h.Unfreeze)
	accounts.Get("/:user_id/:resource", canRead, h.GetAccount)
	accounts.Get("/:user_id/:resource/history", canRead, h.AccountHistory)
}
