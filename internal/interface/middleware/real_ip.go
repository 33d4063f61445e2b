package middleware

import (
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"
)

// RealIP stores the caller's address under "real_ip" for the rate limiter and
// request logs. Header order: CF-Connecting-IP, left-most X-Forwarded-For,
// X-Real-IP, then gin's ClientIP.
func RealIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		for _, candidate := range []string{
			c.GetHeader("CF-Connecting-IP"),
			firstForwarded(c.GetHeader("X-Forwarded-For")),
			c.GetHeader("X-Real-IP"),
		} {
			if addr, err := netip.ParseAddr(strings.TrimSpace(candidate)); err == nil {
				ip = addr.Unmap().String()
				break
			}
		}
		c.Set("real_ip", ip)
		c.Next()
	}
}

func firstForwarded(xff string) string {
	first, _, _ := strings.Cut(xff, ",")
	return first
}
