package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/facilitydesk/facilitydesk/services/content"
	"github.com/facilitydesk/facilitydesk/services/lifecycle"
)

// HandleAssetHealth serves GET /assets/:id/health with the deterministic
// lifecycle score of a single asset. No PIN is required; the score reveals
// no tenant data.
func HandleAssetHealth(store content.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		asset, err := store.GetAsset(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, content.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
				return
			}
			slog.Error("Failed to load the asset", "asset_id", c.Param("id"), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load asset data"})
			return
		}
		c.JSON(http.StatusOK, lifecycle.Score(*asset, time.Now().UTC()))
	}
}
