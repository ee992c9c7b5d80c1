package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// ClientIP returns the first X-Forwarded-For entry, or echo's real IP.
func ClientIP(c echo.Context) string {
	ip := ""
	if xff := c.Request().Header.Get(echo.HeaderXForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		ip = strings.TrimSpace(first)
	}
	if ip == "" {
		ip = c.RealIP()
	}
	return NormalizeIP(ip)
}

// NormalizeIP strips the IPv4-mapped prefix and lower-cases IPv6 addresses.
func NormalizeIP(ip string) string {
	ip = strings.TrimPrefix(ip, "::ffff:")
	if strings.Contains(ip, ":") {
		ip = strings.ToLower(ip)
	}
	return ip
}
