package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/fuel-control/internal/adapter/http/fiber/middleware"
	"github.com/seu-repo/fuel-control/internal/domain"
	"github.com/seu-repo/fuel-control/internal/ports"
)

type IntakeHandler struct {
	service  ports.IntakeService
	location *time.Location
	log      *zap.Logger
}

func NewIntakeHandler(service ports.IntakeService, location *time.Location, log *zap.Logger) *IntakeHandler {
	if location == nil {
		location = time.Local
	}
	return &IntakeHandler{
		service:  service,
		location: location,
		log:      log,
	}
}

func (h *IntakeHandler) List(c *fiber.Ctx) error {
	var (
		filter domain.IntakeFilter
		err    error
	)
	if filter.From, err = queryDate(c, "from", h.location, false); err != nil {
		return err
	}
	if filter.To, err = queryDate(c, "to", h.location, true); err != nil {
		return err
	}
	if filter.TankID, err = queryUint(c, "tank_id"); err != nil {
		return err
	}
	if filter.State, err = queryState(c); err != nil {
		return err
	}
	filter.Limit, filter.Offset = queryPage(c)

	records, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data":   records,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func (h *IntakeHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	in, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(in)
}

func (h *IntakeHandler) Create(c *fiber.Ctx) error {
	var in ports.IntakeInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	created, err := h.service.Create(c.UserContext(), middleware.CurrentUser(c), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *IntakeHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var patch ports.IntakePatch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	updated, err := h.service.Update(c.UserContext(), middleware.CurrentUser(c), id, patch)
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

func (h *IntakeHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), middleware.CurrentUser(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *IntakeHandler) Confirm(c *fiber.Ctx) error {
	return h.batch(c, h.service.Confirm)
}

func (h *IntakeHandler) Cancel(c *fiber.Ctx) error {
	return h.batch(c, h.service.Cancel)
}

func (h *IntakeHandler) Reopen(c *fiber.Ctx) error {
	return h.batch(c, h.service.Reopen)
}

func (h *IntakeHandler) batch(c *fiber.Ctx, action func(ctx context.Context, actor *domain.User, ids ...uint) (*domain.IntakeResult, error)) error {
	ids, err := parseIDs(c)
	if err != nil {
		return err
	}
	result, err := action(c.UserContext(), middleware.CurrentUser(c), ids...)
	if err != nil {
		return err
	}
	return c.JSON(result)
}
