package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"catalogadmin/utils"

	"github.com/gin-gonic/gin"
)

// Health pings each dependency and reports host load. Any failed check
// turns the answer into a 503.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	healthy := true
	checks := gin.H{}
	for _, name := range names {
		if err := h.Checks[name](ctx); err != nil {
			healthy = false
			checks[name] = gin.H{"status": "down", "error": err.Error()}
			continue
		}
		checks[name] = gin.H{"status": "up"}
	}

	body := gin.H{
		"checks":             checks,
		"cpu_percent":        utils.GetCPUUsage(0),
		"mem_percent":        utils.GetMemoryUsage(),
		"monitored_sessions": h.activeMonitors(),
	}
	if !healthy {
		body["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	body["status"] = "ok"
	c.JSON(http.StatusOK, body)
}

func (h *Handler) activeMonitors() int {
	if h.Auth == nil || h.Auth.Monitors == nil {
		return 0
	}
	return h.Auth.Monitors.Len()
}
