package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/repair_shop_billing/internal/core/ports/services"
	"github.com/SscSPs/repair_shop_billing/internal/dto"
	"github.com/SscSPs/repair_shop_billing/internal/middleware"
	"github.com/gin-gonic/gin"
)

// clientHandler handles HTTP requests related to clients.
type clientHandler struct {
	clientService portssvc.ClientSvcFacade
}

func newClientHandler(cs portssvc.ClientSvcFacade) *clientHandler {
	return &clientHandler{clientService: cs}
}

// registerClientRoutes registers routes related to clients.
func registerClientRoutes(rg *gin.RouterGroup, clientService portssvc.ClientSvcFacade) {
	h := newClientHandler(clientService)

	clients := rg.Group("/clients")
	{
		clients.POST("", h.createClient)
		clients.GET("", h.listClients)
		clients.GET("/:client_id", h.getClient)
		clients.DELETE("/:client_id", h.deleteClient)
		clients.POST("/:client_id/tickets", h.adjustTicketCounters)
	}
}

// createClient godoc
// @Summary Create a new client
// @Tags clients
// @Accept  json
// @Produce  json
// @Param   client body dto.CreateClientRequest true "Client details"
// @Success 201 {object} dto.ClientResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 500 {object} map[string]string "Failed to create client"
// @Security BearerAuth
// @Router /clients [post]
func (h *clientHandler) createClient(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateClient", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	client, err := h.clientService.CreateClient(c.Request.Context(), req, userID)
	if err != nil {
		respondServiceError(c, logger, err, "create client")
		return
	}

	logger.Info("Client created successfully", slog.String("client_id", client.ClientID))
	c.JSON(http.StatusCreated, dto.ToClientResponse(client))
}

// listClients godoc
// @Summary List clients
// @Tags clients
// @Produce  json
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListClientsResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 500 {object} map[string]string "Failed to list clients"
// @Security BearerAuth
// @Router /clients [get]
func (h *clientHandler) listClients(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query parameters for ListClients", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	resp, err := h.clientService.ListClients(c.Request.Context(), params)
	if err != nil {
		respondServiceError(c, logger, err, "list clients")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// getClient godoc
// @Summary Get a client by ID
// @Tags clients
// @Produce  json
// @Param   client_id path string true "Client ID"
// @Success 200 {object} dto.ClientResponse
// @Failure 404 {object} map[string]string "Client not found"
// @Failure 500 {object} map[string]string "Failed to retrieve client"
// @Security BearerAuth
// @Router /clients/{client_id} [get]
func (h *clientHandler) getClient(c *gin.Context) {
	clientID := c.Param("client_id")
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("client_id", clientID))

	client, err := h.clientService.GetClientByID(c.Request.Context(), clientID)
	if err != nil {
		respondServiceError(c, logger, err, "retrieve client")
		return
	}

	c.JSON(http.StatusOK, dto.ToClientResponse(client))
}

// deleteClient godoc
// @Summary Delete a client
// @Description Deletes a client. Clients with active tickets or invoices cannot be deleted.
// @Tags clients
// @Param   client_id path string true "Client ID"
// @Success 204 "No Content"
// @Failure 404 {object} map[string]string "Client not found"
// @Failure 409 {object} map[string]string "Client has active tickets or invoices"
// @Failure 500 {object} map[string]string "Failed to delete client"
// @Security BearerAuth
// @Router /clients/{client_id} [delete]
func (h *clientHandler) deleteClient(c *gin.Context) {
	clientID := c.Param("client_id")
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("client_id", clientID))

	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	if err := h.clientService.DeleteClient(c.Request.Context(), clientID, userID); err != nil {
		respondServiceError(c, logger, err, "delete client")
		return
	}

	c.Status(http.StatusNoContent)
}

// adjustTicketCounters godoc
// @Summary Adjust a client's ticket counters
// @Tags clients
// @Accept  json
// @Produce  json
// @Param   client_id path string true "Client ID"
// @Param   delta body dto.AdjustTicketCountersRequest true "Counter deltas"
// @Success 200 {object} dto.ClientResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Client not found"
// @Failure 500 {object} map[string]string "Failed to adjust ticket counters"
// @Security BearerAuth
// @Router /clients/{client_id}/tickets [post]
func (h *clientHandler) adjustTicketCounters(c *gin.Context) {
	clientID := c.Param("client_id")
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("client_id", clientID))

	var req dto.AdjustTicketCountersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for AdjustTicketCounters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	client, err := h.clientService.AdjustTicketCounters(c.Request.Context(), clientID, req, userID)
	if err != nil {
		respondServiceError(c, logger, err, "adjust ticket counters")
		return
	}

	c.JSON(http.StatusOK, dto.ToClientResponse(client))
}
