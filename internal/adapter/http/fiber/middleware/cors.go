package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	fibercors "github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"

	"github.com/seu-repo/fuel-control/pkg/config"
)

const (
	defaultCORSMethods = "GET,POST,PUT,PATCH,DELETE,OPTIONS"
	defaultCORSHeaders = "Origin,Content-Type,Accept,Authorization"
	// Content-Disposition carries the file name of the spreadsheet export.
	defaultCORSExpose = "Content-Length,Content-Disposition"
)

// NewCORS builds the CORS middleware. The session cookie only crosses
// origins when the allowed origins are listed explicitly.
func NewCORS(cfg config.CORSConfig, log *zap.Logger) fiber.Handler {
	origins := joinOr(cfg.AllowedOrigins, "*")
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 3600
	}
	credentials := cfg.Credentials
	if credentials && origins == "*" {
		log.Warn("CORS credentials ignored with a wildcard origin")
		credentials = false
	}

	return fibercors.New(fibercors.Config{
		AllowOrigins:     origins,
		AllowMethods:     joinOr(cfg.AllowedMethods, defaultCORSMethods),
		AllowHeaders:     joinOr(cfg.AllowedHeaders, defaultCORSHeaders),
		ExposeHeaders:    joinOr(cfg.ExposeHeaders, defaultCORSExpose),
		AllowCredentials: credentials,
		MaxAge:           maxAge,
	})
}

func joinOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return strings.Join(values, ",")
}
