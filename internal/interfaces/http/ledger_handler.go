package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/retail-ledger/internal/application/dto"
	appledger "github.com/jhoicas/retail-ledger/internal/application/ledger"
	"github.com/jhoicas/retail-ledger/internal/domain"
	"github.com/jhoicas/retail-ledger/pkg/logger"
)

// LedgerHandler maneja las mutaciones y consultas del ledger (protegido).
type LedgerHandler struct {
	engine *appledger.Engine
	query  *appledger.QueryUseCase
	log    *logger.Logger
}

// NewLedgerHandler construye el handler.
func NewLedgerHandler(engine *appledger.Engine, query *appledger.QueryUseCase, log *logger.Logger) *LedgerHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &LedgerHandler{engine: engine, query: query, log: log.Component("http")}
}

// Opname godoc
// @Summary      Registrar conteo físico (stock opname)
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.OpnameRequest  true  "product_id, warehouse_id, counted_quantity, reason"
// @Success      201   {object}  dto.MutationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/ledger/stock/opname [post]
func (h *LedgerHandler) Opname(c *fiber.Ctx) error {
	var in dto.OpnameRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	res, err := h.engine.OpnameFromRequest(c.UserContext(), GetUserID(c), in)
	return h.writeResult(c, res, err)
}

// Transfer godoc
// @Summary      Trasladar stock entre bodegas
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "product_id, from_warehouse_id, to_warehouse_id, quantity"
// @Success      201   {object}  dto.MutationResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/ledger/stock/transfer [post]
func (h *LedgerHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	res, err := h.engine.TransferFromRequest(c.UserContext(), GetUserID(c), in)
	return h.writeResult(c, res, err)
}

// Receive godoc
// @Summary      Recibir mercancía de una orden de compra
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReceiveRequest  true  "product_id, warehouse_id, quantity, unit, unit_cost, purchase_order_id"
// @Success      201   {object}  dto.MutationResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/ledger/stock/receive [post]
func (h *LedgerHandler) Receive(c *fiber.Ctx) error {
	var in dto.ReceiveRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	res, err := h.engine.ReceiveFromRequest(c.UserContext(), GetUserID(c), in)
	return h.writeResult(c, res, err)
}

// AdjustBalance godoc
// @Summary      Ajustar puntos o monedero (BONUS, PENALTY, TOPUP, WITHDRAWAL)
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustBalanceRequest  true  "user_id, resource, kind, amount, reason"
// @Success      201   {object}  dto.MutationResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/ledger/accounts/adjust [post]
func (h *LedgerHandler) AdjustBalance(c *fiber.Ctx) error {
	var in dto.AdjustBalanceRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	res, err := h.engine.AdjustBalanceFromRequest(c.UserContext(), GetUserID(c), in)
	return h.writeResult(c, res, err)
}

// Freeze godoc
// @Summary      Congelar cuenta
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.FreezeRequest  true  "user_id, resource"
// @Success      201   {object}  dto.MutationResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/ledger/accounts/freeze [post]
func (h *LedgerHandler) Freeze(c *fiber.Ctx) error {
	return h.setFrozen(c, true)
}

// Unfreeze godoc
// @Summary      Descongelar cuenta
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.FreezeRequest  true  "user_id, resource"
// @Success      201   {object}  dto.MutationResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/ledger/accounts/unfreeze [post]
func (h *LedgerHandler) Unfreeze(c *fiber.Ctx) error {
	return h.setFrozen(c, false)
}

func (h *LedgerHandler) setFrozen(c *fiber.Ctx, freeze bool) error {
	var in dto.FreezeRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	res, err := h.engine.FreezeFromRequest(c.UserContext(), GetUserID(c), in, freeze)
	return h.writeResult(c, res, err)
}

// GetStock godoc
// @Summary      Saldo de stock por bodega
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        product_id  path  string  true  "ID del producto"
// @Success      200  {object}  dto.StockBalanceResponse
// @Router       /api/ledger/stock/{product_id} [get]
func (h *LedgerHandler) GetStock(c *fiber.Ctx) error {
	s, err := h.query.GetStock(c.UserContext(), c.Params("product_id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(appledger.ToStockResponse(s))
}

// StockHistory godoc
// @Summary      Historial de mutaciones de stock
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        product_id    path   string  true   "ID del producto"
// @Param        warehouse_id  query  string  false  "Filtrar por bodega"
// @Param        limit         query  int     false  "Default 20, máx 100"
// @Param        offset        query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.HistoryResponse
// @Router       /api/ledger/stock/{product_id}/history [get]
func (h *LedgerHandler) StockHistory(c *fiber.Ctx) error {
	page := pageFrom(c)
	entries, err := h.query.StockHistory(c.UserContext(), c.Params("product_id"), c.Query("warehouse_id"), page.Limit, page.Offset)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(dto.HistoryResponse{
		Items: appledger.ToEntryResponses(entries),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	})
}

// GetAccount godoc
// @Summary      Saldo de puntos o monedero
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        user_id   path  string  true  "ID del usuario"
// @Param        resource  path  string  true  "points | wallet"
// @Success      200  {object}  dto.AccountResponse
// @Router       /api/ledger/accounts/{user_id}/{resource} [get]
func (h *LedgerHandler) GetAccount(c *fiber.Ctx) error {
	a, err := h.query.GetAccount(c.UserContext(), c.Params("user_id"), appledger.ParseResource(c.Params("resource")))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(appledger.ToAccountResponse(a))
}

// AccountHistory godoc
// @Summary      Historial de una cuenta
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        user_id   path   string  true   "ID del usuario"
// @Param        resource  path   string  true   "points | wallet"
// @Param        limit     query  int     false  "Default 20, máx 100"
// @Param        offset    query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.HistoryResponse
// @Router       /api/ledger/accounts/{user_id}/{resource}/history [get]
func (h *LedgerHandler) AccountHistory(c *fiber.Ctx) error {
	page := pageFrom(c)
	entries, err := h.query.AccountHistory(c.UserContext(), c.Params("user_id"), appledger.ParseResource(c.Params("resource")), page.Limit, page.Offset)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(dto.HistoryResponse{
		Items: appledger.ToEntryResponses(entries),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	})
}

// writeResult traduce el resultado del motor: 201 confirmado, 422 rechazado, 409 contención.
func (h *LedgerHandler) writeResult(c *fiber.Ctx, res *appledger.Result, err error) error {
	if err != nil {
		return h.writeError(c, err)
	}
	switch res.Status {
	case appledger.StatusCommitted:
		return c.Status(fiber.StatusCreated).JSON(appledger.ToMutationResponse(res))
	case appledger.StatusRejected:
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Code:      string(res.Rejection.Code),
			Message:   res.Rejection.Message,
			Available: res.Rejection.Available,
		})
	default:
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Code:    "CONTENTION_EXCEEDED",
			Message: "el saldo está siendo modificado por otros operadores, intente de nuevo",
		})
	}
}

// writeError fallos duros: el detalle queda en el log, nunca en la respuesta.
func (h *LedgerHandler) writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	case errors.Is(err, domain.ErrStoreUnavailable):
		h.log.Error().Err(err).Str("path", c.Path()).Msg("almacenamiento no disponible")
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "UNAVAILABLE", Message: "servicio no disponible, intente de nuevo"})
	}
	h.log.Error().Err(err).Str("path", c.Path()).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno, intente de nuevo"})
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

func pageFrom(c *fiber.Ctx) dto.PageRequest {
	page := dto.PageRequest{Limit: c.QueryInt("limit", 0), Offset: c.QueryInt("offset", 0)}
	page.DefaultPage()
	return page
}
