package handlers

import (
	"net/http"

	"example.com/tableside/internal/models"
	"example.com/tableside/internal/repos"

	"github.com/gin-gonic/gin"
)

// SettingsHandler handles the settings document
type SettingsHandler struct {
	settings *repos.SettingsRepo
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settings *repos.SettingsRepo) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// RegisterRoutes registers the settings routes
func (h *SettingsHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/v1/settings", h.Get)
	router.PUT("/api/v1/settings", h.Update)
}

// Get returns the settings document, always complete
func (h *SettingsHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Get())
}

// Update replaces the settings document
func (h *SettingsHandler) Update(c *gin.Context) {
	var req models.Settings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.FillDefaults()

	h.settings.Update(c.Request.Context(), req)
	c.JSON(http.StatusOK, req)
}
