package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// getHome godoc
// @Summary Show the status of server.
// @Description Public liveness probe for the billing API.
// @Tags root
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func getHome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"service": "repair-shop-billing", "status": "ok"})
}
