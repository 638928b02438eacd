package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SwaggerConfig controls access to the API documentation endpoints.
// An empty AllowedIPs list means any client may reach them.
type SwaggerConfig struct {
	Enabled    bool
	AllowedIPs []string // single IPs or CIDR ranges
}

// ipAllowlist is a parsed SwaggerConfig.AllowedIPs.
type ipAllowlist struct {
	ips  []net.IP
	nets []*net.IPNet
}

func parseAllowlist(entries []string) ipAllowlist {
	var al ipAllowlist
	for _, entry := range entries {
		if strings.Contains(entry, "/") {
			if _, network, err := net.ParseCIDR(entry); err == nil {
				al.nets = append(al.nets, network)
			}
			continue
		}
		if ip := net.ParseIP(entry); ip != nil {
			al.ips = append(al.ips, ip)
		}
	}
	return al
}

func (al ipAllowlist) contains(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, allowed := range al.ips {
		if allowed.Equal(ip) {
			return true
		}
	}
	for _, network := range al.nets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// SwaggerProtection guards the documentation routes. A disabled config
// answers 404 so the docs are indistinguishable from absent; an
// allowlist answers 403 to clients outside it.
func SwaggerProtection(cfg SwaggerConfig) gin.HandlerFunc {
	allowlist := parseAllowlist(cfg.AllowedIPs)
	restrict := len(cfg.AllowedIPs) > 0

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "API documentation is not available",
			})
			return
		}

		if restrict && !allowlist.contains(clientIP(c)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Access to API documentation is restricted",
			})
			return
		}

		c.Next()
	}
}

// clientIP resolves the caller's address, preferring gin's trusted-proxy
// aware resolution and falling back to the raw remote address.
func clientIP(c *gin.Context) net.IP {
	if ip := net.ParseIP(c.ClientIP()); ip != nil {
		return ip
	}

	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		host = c.Request.RemoteAddr
	}
	return net.ParseIP(host)
}
