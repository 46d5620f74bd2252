package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandleHealthz is the liveness probe.
func HandleHealthz() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
