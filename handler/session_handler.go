package handler

import (
	"math"

	"catalogadmin/middleware"
	"catalogadmin/utils"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetActiveSessions(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)

	sessions, err := h.Auth.ActiveSessions(c.Request.Context(), id.UserID)
	if err != nil {
		utils.InternalError(c, "Failed to fetch sessions")
		return
	}

	utils.Success(c, gin.H{
		"sessions": sessions,
		"current":  id.SessionID,
	})
}

func (h *Handler) LogoutAllSessions(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)

	// End all sessions for the user
	n, err := h.Auth.LogoutAll(c.Request.Context(), id.UserID, requestInfo(c))
	if err != nil {
		utils.InternalError(c, "Failed to end all sessions")
		return
	}

	h.clearSessionCookies(c)
	utils.Message(c, "Successfully logged out of all sessions", gin.H{"ended": n})
}

// SessionStatus backs the idle warning poll. It does not count as activity.
func (h *Handler) SessionStatus(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)

	status, ok := h.Auth.SessionStatus(c.Request.Context(), id.SessionID)
	if !ok {
		utils.Success(c, gin.H{"active": false})
		return
	}
	utils.Success(c, gin.H{
		"active":            !status.Stopped,
		"warning":           status.Warning,
		"remaining_seconds": int(math.Max(0, math.Ceil(status.Remaining.Seconds()))),
		"last_activity":     status.LastActivity,
	})
}

// KeepAlive is an explicit activity ping; the activity middleware has
// already touched the session by the time it runs.
func (h *Handler) KeepAlive(c *gin.Context) {
	utils.Message(c, "Session extended")
}
