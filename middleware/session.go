package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
)

type ActivityTracker interface {
	Touch(ctx context.Context, sessionID string)
}

// SessionActivity records user activity for the idle monitor once the
// request has been authenticated. Requests to the passive paths (the status
// poll) do not count as activity, otherwise polling would keep an idle
// session alive forever.
func SessionActivity(tracker ActivityTracker, passive ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(passive))
	for _, p := range passive {
		skip[p] = struct{}{}
	}
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if ok && id.SessionID != "" {
			if _, passive := skip[c.FullPath()]; !passive {
				tracker.Touch(c.Request.Context(), id.SessionID)
			}
		}
		c.Next()
	}
}
