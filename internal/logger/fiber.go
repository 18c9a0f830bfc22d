package logger

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// APILogger returns a fiber middleware that logs every request at debug level
func APILogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}
		fields := map[string]interface{}{
			"method":  c.Method(),
			"path":    c.Path(),
			"status":  status,
			"latency": time.Since(start).String(),
		}
		if err != nil {
			fields["error"] = err.Error()
			WarnWithFields("request failed", fields)
			return err
		}
		DebugWithFields("request", fields)
		return nil
	}
}
