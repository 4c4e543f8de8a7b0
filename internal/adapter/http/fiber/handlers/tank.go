package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/fuel-control/internal/adapter/http/fiber/middleware"
	"github.com/seu-repo/fuel-control/internal/domain"
	"github.com/seu-repo/fuel-control/internal/ports"
)

type TankHandler struct {
	service    ports.TankService
	dispatcher ports.EventDispatcher
	log        *zap.Logger
}

func NewTankHandler(service ports.TankService, dispatcher ports.EventDispatcher, log *zap.Logger) *TankHandler {
	return &TankHandler{
		service:    service,
		dispatcher: dispatcher,
		log:        log,
	}
}

type BaselineRequest struct {
	Baseline *float64 `json:"baseline"`
}

// Get returns the default tank, creating it on first access.
func (h *TankHandler) Get(c *fiber.Ctx) error {
	tank, err := h.service.GetOrCreateDefault(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(tank)
}

func (h *TankHandler) Recompute(c *fiber.Ctx) error {
	tank, err := h.service.GetOrCreateDefault(c.UserContext())
	if err != nil {
		return err
	}
	tank, err = h.service.Recompute(c.UserContext(), tank.ID)
	if err != nil {
		return err
	}
	h.dispatcher.Dispatch(c.UserContext(), domain.NewStockEvent(domain.SubjectTankRecomputed, tank, 0, middleware.CurrentUser(c).ID))
	return c.JSON(tank)
}

func (h *TankHandler) SetBaseline(c *fiber.Ctx) error {
	var req BaselineRequest
	if err := c.BodyParser(&req); err != nil || req.Baseline == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "baseline is required"})
	}

	tank, err := h.service.GetOrCreateDefault(c.UserContext())
	if err != nil {
		return err
	}
	actor := middleware.CurrentUser(c)
	tank, err = h.service.AdjustBaseline(c.UserContext(), actor, tank.ID, *req.Baseline)
	if err != nil {
		return err
	}

	h.log.Info("Tank baseline adjusted",
		zap.Uint("tank_id", tank.ID),
		zap.Float64("baseline", *req.Baseline),
		zap.Uint("actor_id", actor.ID),
	)
	h.dispatcher.Dispatch(c.UserContext(), domain.NewStockEvent(domain.SubjectTankRecomputed, tank, 0, actor.ID))
	return c.JSON(tank)
}
