package core

import (
	"algoexec/pkg/algo/params"
	"algoexec/pkg/exchange/dummy"
	"algoexec/pkg/host"
	"algoexec/pkg/notify"
	"algoexec/pkg/strategy/accdist"
	"algoexec/pkg/types"
	"algoexec/pkg/utils"
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
)

type createOrderRequest struct {
	Params     json.RawMessage   `json:"params"`
	Connection notify.Connection `json:"connection"`
}

type paperTradeRequest struct {
	Symbol   string  `json:"symbol"`
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

type paperBookRequest struct {
	Symbol string       `json:"symbol"`
	Bids   [][2]float64 `json:"bids"`
	Asks   [][2]float64 `json:"asks"`
}

func SetupFiberApp(h *host.Host) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "algoexec",
		ErrorHandler: errorHandler,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "data": nil})
	})

	algo := app.Group("/algo")
	algo.Get("/schema", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "data": fiber.Map{
			"uiDef":  accdist.GetUIDef(),
			"schema": utils.GenerateSchema[params.Params](),
		}})
	})

	algo.Post("/:exchangeId/orders", func(c *fiber.Ctx) error {
		var req createOrderRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if len(req.Params) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "params required")
		}
		p, err := params.Decode(req.Params)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		state, err := h.Create(c.UserContext(), c.Params("exchangeId"), p, req.Connection)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": state})
	})

	algo.Get("/orders", func(c *fiber.Ctx) error {
		states, err := h.List(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": states})
	})

	algo.Get("/orders/:gid", func(c *fiber.Ctx) error {
		state, err := h.Get(c.UserContext(), c.Params("gid"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": state})
	})

	algo.Delete("/orders/:gid", func(c *fiber.Ctx) error {
		state, err := h.Stop(c.UserContext(), c.Params("gid"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": state})
	})

	// @dev: paper venue feed, only for exchanges of type dummy
	paper := app.Group("/paper/:exchangeId")
	paper.Post("/trade", func(c *fiber.Ctx) error {
		exchg, err := paperExchange(h, c.Params("exchangeId"))
		if err != nil {
			return err
		}
		var req paperTradeRequest
		if err := c.BodyParser(&req); err != nil || req.Symbol == "" || req.Price <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "symbol and positive price required")
		}
		exchg.PublishTrade(types.TradeEvent{Symbol: req.Symbol, Price: req.Price, Quantity: req.Quantity})
		return c.JSON(fiber.Map{"success": true, "data": nil})
	})

	paper.Post("/book", func(c *fiber.Ctx) error {
		exchg, err := paperExchange(h, c.Params("exchangeId"))
		if err != nil {
			return err
		}
		var req paperBookRequest
		if err := c.BodyParser(&req); err != nil || req.Symbol == "" {
			return fiber.NewError(fiber.StatusBadRequest, "symbol required")
		}
		evt := types.BookDepthEvent{Symbol: req.Symbol}
		for _, level := range req.Bids {
			evt.Bids = append(evt.Bids, types.Bid{Price: level[0], Qty: level[1]})
		}
		for _, level := range req.Asks {
			evt.Asks = append(evt.Asks, types.Ask{Price: level[0], Qty: level[1]})
		}
		exchg.PublishBookDepth(evt)
		return c.JSON(fiber.Map{"success": true, "data": nil})
	})

	return app
}

func ShutdownFiberApp(app *fiber.App) {
	_ = app.Shutdown()
}

func paperExchange(h *host.Host, exchangeId string) (*dummy.DummyExchange, error) {
	exchg, ok := h.Exchange(exchangeId)
	if !ok {
		return nil, fiber.NewError(fiber.StatusNotFound, "exchange not found: "+exchangeId)
	}
	paper, ok := exchg.(*dummy.DummyExchange)
	if !ok {
		return nil, fiber.NewError(fiber.StatusBadRequest, "not a paper exchange: "+exchangeId)
	}
	return paper, nil
}

// errorHandler maps domain errors to status codes with the common response envelope.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var verr *params.ValidationError
	var ferr *fiber.Error
	switch {
	case errors.As(err, &verr):
		code = fiber.StatusBadRequest
	case errors.Is(err, host.ErrInstanceNotFound), errors.Is(err, host.ErrExchangeNotFound):
		code = fiber.StatusNotFound
	case errors.As(err, &ferr):
		code = ferr.Code
	}
	return c.Status(code).JSON(fiber.Map{"success": false, "error": err.Error()})
}
