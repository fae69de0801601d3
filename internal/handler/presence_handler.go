package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace-chat/internal/redis"
	"marketplace-chat/internal/transport/httpdto"
)

type PresenceHandler struct {
	presence *redis.PresenceStore
}

func NewPresenceHandler(presence *redis.PresenceStore) *PresenceHandler {
	return &PresenceHandler{presence: presence}
}

// Online handles GET /api/presence/online.
func (h *PresenceHandler) Online(c *gin.Context) {
	users, err := h.presence.GetOnlineUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse("presence unavailable", "UNAVAILABLE"))
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"online": users}))
}

// User handles GET /api/presence/:userId.
func (h *PresenceHandler) User(c *gin.Context) {
	status, err := h.presence.GetPresence(c.Request.Context(), c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse("presence unavailable", "UNAVAILABLE"))
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(status))
}
