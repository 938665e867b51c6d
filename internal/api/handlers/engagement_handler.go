package handlers

import (
	"net/http"

	"example.com/tableside/internal/services"

	"github.com/gin-gonic/gin"
)

// EngagementHandler handles promotion broadcasts and social post publishing
type EngagementHandler struct {
	engagement *services.EngagementService
}

// NewEngagementHandler creates a new engagement handler
func NewEngagementHandler(engagement *services.EngagementService) *EngagementHandler {
	return &EngagementHandler{engagement: engagement}
}

// RegisterRoutes registers the engagement routes
func (h *EngagementHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/api/v1/promotions/:id/broadcast", h.Broadcast)
	router.POST("/api/v1/social-posts/publish-due", h.PublishDue)
}

// Broadcast sends a promotion to every reachable customer
func (h *EngagementHandler) Broadcast(c *gin.Context) {
	sent, err := h.engagement.BroadcastPromotion(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": sent})
}

// PublishDue publishes every social post whose schedule has passed
func (h *EngagementHandler) PublishDue(c *gin.Context) {
	published := h.engagement.PublishDuePosts(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"published": published})
}
