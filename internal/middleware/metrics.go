package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"shopwave/internal/metrics"
)

// Metrics records request count, errors and duration per route.
func Metrics(m *metrics.AppMetrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}
		m.RecordHTTPRequest(c.UserContext(), c.Method(), c.Route().Path, status, time.Since(start))
		return err
	}
}
