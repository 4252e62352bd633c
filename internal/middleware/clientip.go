package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
)

const clientIPKey = "clientIP"

// NewClientIP resolves the caller's address once per request. Behind a
// reverse proxy the first X-Forwarded-For hop is used.
func NewClientIP(behindProxy bool) fiber.Handler {
	return func(c fiber.Ctx) error {
		ip := c.IP()
		if behindProxy {
			if fwd := c.Get(fiber.HeaderXForwardedFor); fwd != "" {
				first, _, _ := strings.Cut(fwd, ",")
				if first = strings.TrimSpace(first); first != "" {
					ip = first
				}
			}
		}
		c.Locals(clientIPKey, ip)
		return c.Next()
	}
}

// ClientIP returns the address resolved by NewClientIP, or the socket
// address when that middleware is not installed.
func ClientIP(c fiber.Ctx) string {
	if ip, ok := c.Locals(clientIPKey).(string); ok && ip != "" {
		return ip
	}
	return c.IP()
}
