package utils

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// RequestOrigin returns scheme://host of the current request, honouring
// X-Forwarded-Proto.
func RequestOrigin(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	return scheme + "://" + c.Request.Host
}
