package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ClientIP determines the client address behind Cloudflare or a reverse
// proxy. It is used as the rate limiter key.
func ClientIP(c *fiber.Ctx) string {
	// 1. Cloudflare sends the original client IP
	if ip := strings.TrimSpace(c.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}

	// 2. X-Forwarded-For can contain a list of IPs - the first one is the original client
	if xff := c.Get(fiber.HeaderXForwardedFor); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}

	if ip := strings.TrimSpace(c.Get("X-Real-IP")); ip != "" {
		return ip
	}

	// For ::ffff: IPv4-mapped-IPv6 addresses
	return strings.TrimPrefix(c.IP(), "::ffff:")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
