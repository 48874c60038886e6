package handler

import (
	"strconv"
	"time"

	"catalogadmin/model"
	"catalogadmin/utils"

	"github.com/gin-gonic/gin"
)

// ListAudit returns audit events newest first. Query: action, user_id,
// entity, since (RFC3339) and limit.
func (h *Handler) ListAudit(c *gin.Context) {
	filter := model.AuditFilter{
		Action: c.Query("action"),
		UserID: c.Query("user_id"),
		Entity: c.Query("entity"),
	}
	if s := c.Query("since"); s != "" {
		since, err := time.Parse(time.RFC3339, s)
		if err != nil {
			utils.BadRequest(c, "Invalid since, expected RFC3339")
			return
		}
		filter.Since = since
	}
	if s := c.Query("limit"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 0 {
			utils.BadRequest(c, "Invalid limit")
			return
		}
		filter.Limit = n
	}

	events, err := h.AuditLog.List(c.Request.Context(), filter)
	if err != nil {
		h.logger().Error("list audit failed", "error", err)
		utils.InternalError(c, "Failed to fetch audit log")
		return
	}
	utils.Success(c, gin.H{"events": events})
}
