// agent-arena-system/middleware/sse_auth.go
package middleware

import (
	"log"
	"strings"

	"agent-arena-system/services"

	"github.com/gofiber/fiber/v2"
)

// SSEAuthMiddleware validates `token` and `device_id` from query params
// via AuthServiceClient. EventSource cannot send headers, so SSE routes
// authenticate from the query string instead of the gateway context.
//
// Usage:
//   app.Get("/user/rewards/stream", middleware.SSEAuthMiddleware(authClient), rewardService.StreamUserRewardsSSE)
func SSEAuthMiddleware(authClient *services.AuthServiceClient) func(*fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		log.Printf("[SSEAuth] Processing auth for %s, RemoteAddr: %s", c.Path(), c.IP())
		log.Printf("  → Raw Query: %s", c.Request().URI().QueryArgs().String())

		accessToken := strings.TrimSpace(string(c.Request().URI().QueryArgs().Peek("token")))
		deviceID := strings.TrimSpace(string(c.Request().URI().QueryArgs().Peek("device_id")))

		log.Printf("  → Extracted Token (len=%d)", len(accessToken))
		log.Printf("  → Extracted DeviceID: '%s'", deviceID)

		if accessToken == "" || deviceID == "" {
			log.Printf("[SSEAuth] ❌ Missing query params: token='%s', device_id='%s'", accessToken, deviceID)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing token or device_id in query",
			})
		}

		// ✅ Validate with Auth Service
		resp, err := authClient.ValidateToken(accessToken, deviceID)
		if err != nil {
			log.Printf("[SSEAuth] ❌ Validation failed for token (prefix: %s...), device %s: %v",
				accessToken[:min(10, len(accessToken))], deviceID, err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		// ✅ Attach to Fiber context (same keys as UserContextMiddleware, but from query)
		c.Locals("user_id", resp.UserID)
		c.Locals("device_id", resp.DeviceID)
		c.Locals("otp_not_required", resp.OTPNotRequiredForDevice)

		log.Printf("[SSEAuth] ✅ Authenticated user %s (device %s)", resp.UserID, resp.DeviceID)
		return c.Next()
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}