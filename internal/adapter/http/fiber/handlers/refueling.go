package handlers

import (
	"context"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/fuel-control/internal/adapter/http/fiber/middleware"
	"github.com/seu-repo/fuel-control/internal/domain"
	"github.com/seu-repo/fuel-control/internal/ports"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type RefuelingHandler struct {
	service        ports.RefuelingService
	reports        ports.ReportService
	location       *time.Location
	maxReceiptSize int
	log            *zap.Logger
}

func NewRefuelingHandler(service ports.RefuelingService, reports ports.ReportService, location *time.Location, maxReceiptSize int, log *zap.Logger) *RefuelingHandler {
	if location == nil {
		location = time.Local
	}
	return &RefuelingHandler{
		service:        service,
		reports:        reports,
		location:       location,
		maxReceiptSize: maxReceiptSize,
		log:            log,
	}
}

func (h *RefuelingHandler) List(c *fiber.Ctx) error {
	filter, err := h.filter(c)
	if err != nil {
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

func (h *RefuelingHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	r, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(r)
}

func (h *RefuelingHandler) Create(c *fiber.Ctx) error {
	var in ports.RefuelingInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	r, err := h.service.Create(c.UserContext(), middleware.CurrentUser(c), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(r)
}

func (h *RefuelingHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var patch ports.RefuelingPatch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	r, err := h.service.Update(c.UserContext(), middleware.CurrentUser(c), id, patch)
	if err != nil {
		return err
	}
	return c.JSON(r)
}

func (h *RefuelingHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), middleware.CurrentUser(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *RefuelingHandler) Confirm(c *fiber.Ctx) error {
	return h.batch(c, h.service.Confirm)
}

func (h *RefuelingHandler) Cancel(c *fiber.Ctx) error {
	return h.batch(c, h.service.Cancel)
}

func (h *RefuelingHandler) Reopen(c *fiber.Ctx) error {
	return h.batch(c, h.service.Reopen)
}

type refuelingAction func(ctx context.Context, actor *domain.User, ids ...uint) (*domain.RefuelingResult, error)

func (h *RefuelingHandler) batch(c *fiber.Ctx, action refuelingAction) error {
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

// AttachReceipt stores the multipart "file" field as the receipt.
func (h *RefuelingHandler) AttachReceipt(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	header, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}
	if h.maxReceiptSize > 0 && header.Size > int64(h.maxReceiptSize) {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "receipt too large"})
	}

	file, err := header.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	r, err := h.service.AttachReceipt(c.UserContext(), middleware.CurrentUser(c), id,
		header.Filename, header.Header.Get(fiber.HeaderContentType), data)
	if err != nil {
		return err
	}
	return c.JSON(r)
}

func (h *RefuelingHandler) Export(c *fiber.Ctx) error {
	filter, err := h.filter(c)
	if err != nil {
		return err
	}

	data, err := h.reports.RefuelingWorkbook(c.UserContext(), filter)
	if err != nil {
		return err
	}

	c.Attachment("refuelings.xlsx")
	c.Set(fiber.HeaderContentType, xlsxContentType)
	return c.Send(data)
}

func (h *RefuelingHandler) filter(c *fiber.Ctx) (domain.RefuelingFilter, error) {
	var (
		f   domain.RefuelingFilter
		err error
	)
	if f.From, err = queryDate(c, "from", h.location, false); err != nil {
		return f, err
	}
	if f.To, err = queryDate(c, "to", h.location, true); err != nil {
		return f, err
	}
	if f.VehicleID, err = queryUint(c, "vehicle_id"); err != nil {
		return f, err
	}
	if f.DriverID, err = queryUint(c, "driver_id"); err != nil {
		return f, err
	}
	if f.TankID, err = queryUint(c, "tank_id"); err != nil {
		return f, err
	}
	if f.State, err = queryState(c); err != nil {
		return f, err
	}
	return f, nil
}
