package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/seu-repo/fuel-control/internal/domain"
)

const dateLayout = "2006-01-02"

type idsRequest struct {
	IDs []uint `json:"ids"`
}

func parseIDs(c *fiber.Ctx) ([]uint, error) {
	var req idsRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if len(req.IDs) == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "ids are required")
	}
	return req.IDs, nil
}

func paramID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid id")
	}
	return uint(id), nil
}

func queryUint(c *fiber.Ctx, key string) (*uint, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid "+key)
	}
	out := uint(v)
	return &out, nil
}

// queryDate parses a yyyy-mm-dd query value; endOfDay moves it to the last
// instant of that day so "to" bounds are inclusive.
func queryDate(c *fiber.Ctx, key string, loc *time.Location, endOfDay bool) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid "+key+", expected "+dateLayout)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t, nil
}

func queryState(c *fiber.Ctx) (domain.DocumentState, error) {
	state := domain.DocumentState(c.Query("state"))
	if state != "" && !state.Valid() {
		return "", fiber.NewError(fiber.StatusBadRequest, "Invalid state")
	}
	return state, nil
}

func queryPage(c *fiber.Ctx) (limit, offset int) {
	limit = c.QueryInt("limit", 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	offset = c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func formatFloat(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
