package middleware

import (
	"errors"
	"time"

	"go-cyclecount-ws/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// RequestLogger binds the request id to the user context and logs one line per request.
// It must run after the requestid middleware.
func RequestLogger(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID, _ := c.Locals("requestid").(string)
		ctx := log.WithRequestID(c.UserContext(), requestID)
		c.SetUserContext(ctx)

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}
		fields := map[string]any{
			"method":      c.Method(),
			"path":        c.Path(),
			"status":      status,
			"duration_ms": time.Since(start).Milliseconds(),
		}
		if userID, ok := c.Locals(LocalUserID).(string); ok {
			fields["user_id"] = userID
		}
		log.Info(log.WithFields(ctx, fields), "request.complete")
		return err
	}
}
