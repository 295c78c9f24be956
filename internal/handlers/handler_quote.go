package handlers

import (
	"log/slog"
	"net/http"
	"time"

	portssvc "github.com/SscSPs/repair_shop_billing/internal/core/ports/services"
	"github.com/SscSPs/repair_shop_billing/internal/dto"
	"github.com/SscSPs/repair_shop_billing/internal/middleware"
	"github.com/gin-gonic/gin"
)

// quoteHandler handles HTTP requests related to quotes.
type quoteHandler struct {
	quoteService portssvc.QuoteSvcFacade
	now          func() time.Time
}

func newQuoteHandler(qs portssvc.QuoteSvcFacade) *quoteHandler {
	return &quoteHandler{
		quoteService: qs,
		now:          time.Now,
	}
}

// registerQuoteRoutes registers routes related to quotes.
func registerQuoteRoutes(rg *gin.RouterGroup, quoteService portssvc.QuoteSvcFacade, idempotent ...gin.HandlerFunc) {
	h := newQuoteHandler(quoteService)

	quotes := rg.Group("/quotes")
	{
		quotes.POST("", chain(idempotent, h.createQuote)...)
		quotes.GET("", h.listQuotes)
		quotes.POST("/expire", h.expireQuotes)
		quotes.GET("/:quote_id", h.getQuote)
		quotes.DELETE("/:quote_id", h.deleteQuote)
		quotes.POST("/:quote_id/convert", chain(idempotent, h.convertQuote)...)
		quotes.POST("/:quote_id/reject", h.rejectQuote)
	}
}

// createQuote godoc
// @Summary Create a new quote
// @Tags quotes
// @Accept  json
// @Produce  json
// @Param   Idempotency-Key header string false "Replay key for safe retries"
// @Param   quote body dto.CreateQuoteRequest true "Quote details"
// @Success 201 {object} dto.QuoteResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Client not found"
// @Failure 412 {object} map[string]string "Billing settings not configured"
// @Failure 500 {object} map[string]string "Failed to create quote"
// @Security BearerAuth
// @Router /quotes [post]
func (h *quoteHandler) createQuote(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateQuote", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("client_id", req.ClientID))
	quote, err := h.quoteService.CreateQuote(c.Request.Context(), req, userID)
	if err != nil {
		respondServiceError(c, logger, err, "create quote")
		return
	}

	logger.Info("Quote created successfully", slog.String("quote_id", quote.QuoteID), slog.String("number", quote.Number))
	c.JSON(http.StatusCreated, dto.ToQuoteResponse(quote))
}

// listQuotes godoc
// @Summary List quotes
// @Description Lists quotes newest first. Pending quotes past their validity date are returned as rejected.
// @Tags quotes
// @Produce  json
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Token from the previous page"
// @Param   clientID query string false "Only quotes of this client"
// @Param   status query string false "Quote status" Enums(pending, accepted, rejected)
// @Success 200 {object} dto.ListQuotesResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 500 {object} map[string]string "Failed to list quotes"
// @Security BearerAuth
// @Router /quotes [get]
func (h *quoteHandler) listQuotes(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.ListQuotesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query parameters for ListQuotes", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	resp, err := h.quoteService.ListQuotes(c.Request.Context(), params)
	if err != nil {
		respondServiceError(c, logger, err, "list quotes")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// getQuote godoc
// @Summary Get a quote by ID
// @Tags quotes
// @Produce  json
// @Param   quote_id path string true "Quote ID"
// @Success 200 {object} dto.QuoteResponse
// @Failure 404 {object} map[string]string "Quote not found"
// @Failure 500 {object} map[string]string "Failed to retrieve quote"
// @Security BearerAuth
// @Router /quotes/{quote_id} [get]
func (h *quoteHandler) getQuote(c *gin.Context) {
	quoteID := c.Param("quote_id")
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("quote_id", quoteID))

	quote, err := h.quoteService.GetQuoteByID(c.Request.Context(), quoteID)
	if err != nil {
		respondServiceError(c, logger, err, "retrieve quote")
		return
	}

	c.JSON(http.StatusOK, dto.ToQuoteResponse(quote))
}

// convertQuote godoc
// @Summary Convert a quote into an invoice
// @Description Accepts a pending quote and creates an invoice for it at the current VAT rate. A quote converts at most once.
// @Tags quotes
// @Produce  json
// @Param   Idempotency-Key header string false "Replay key for safe retries"
// @Param   quote_id path string true "Quote ID"
// @Success 201 {object} dto.ConvertQuoteResponse
// @Failure 404 {object} map[string]string "Quote not found"
// @Failure 409 {object} map[string]string "Quote is not pending or has expired"
// @Failure 412 {object} map[string]string "Billing settings not configured"
// @Failure 503 {object} map[string]string "Operation failed after retries"
// @Failure 500 {object} map[string]string "Failed to convert quote"
// @Security BearerAuth
// @Router /quotes/{quote_id}/convert [post]
func (h *quoteHandler) convertQuote(c *gin.Context) {
	quoteID := c.Param("quote_id")
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("quote_id", quoteID))

	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	quote, invoice, err := h.quoteService.ConvertQuote(c.Request.Context(), quoteID, userID)
	if err != nil {
		respondServiceError(c, logger, err, "convert quote")
		return
	}

	logger.Info("Quote converted successfully", slog.String("invoice_id", invoice.InvoiceID), slog.String("invoice_number", invoice.Number))
	c.JSON(http.StatusCreated, dto.ConvertQuoteResponse{
		Quote:   dto.ToQuoteResponse(quote),
		Invoice: dto.ToInvoiceResponse(invoice, h.now()),
	})
}

// rejectQuote godoc
// @Summary Reject a pending quote
// @Tags quotes
// @Produce  json
// @Param   quote_id path string true "Quote ID"
// @Success 200 {object} dto.QuoteResponse
// @Failure 404 {object} map[string]string "Quote not found"
// @Failure 409 {object} map[string]string "Quote is not pending"
// @Failure 500 {object} map[string]string "Failed to reject quote"
// @Security BearerAuth
// @Router /quotes/{quote_id}/reject [post]
func (h *quoteHandler) rejectQuote(c *gin.Context) {
	quoteID := c.Param("quote_id")
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("quote_id", quoteID))

	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	quote, err := h.quoteService.RejectQuote(c.Request.Context(), quoteID, userID)
	if err != nil {
		respondServiceError(c, logger, err, "reject quote")
		return
	}

	c.JSON(http.StatusOK, dto.ToQuoteResponse(quote))
}

// deleteQuote godoc
// @Summary Delete a quote
// @Description Deletes a quote. Invoices already converted from it are kept.
// @Tags quotes
// @Param   quote_id path string true "Quote ID"
// @Success 204 "No Content"
// @Failure 404 {object} map[string]string "Quote not found"
// @Failure 500 {object} map[string]string "Failed to delete quote"
// @Security BearerAuth
// @Router /quotes/{quote_id} [delete]
func (h *quoteHandler) deleteQuote(c *gin.Context) {
	quoteID := c.Param("quote_id")
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("quote_id", quoteID))

	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	if err := h.quoteService.DeleteQuote(c.Request.Context(), quoteID, userID); err != nil {
		respondServiceError(c, logger, err, "delete quote")
		return
	}

	logger.Info("Quote deleted successfully")
	c.Status(http.StatusNoContent)
}

// expireQuotes godoc
// @Summary Expire stale quotes
// @Description Rejects every pending quote whose validity date has passed
// @Tags quotes
// @Produce  json
// @Success 200 {object} map[string]int "Number of quotes expired"
// @Failure 500 {object} map[string]string "Failed to expire quotes"
// @Security BearerAuth
// @Router /quotes/expire [post]
func (h *quoteHandler) expireQuotes(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	expired, err := h.quoteService.ExpireQuotes(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, logger, err, "expire quotes")
		return
	}

	logger.Info("Expired stale quotes", slog.Int("expired", expired))
	c.JSON(http.StatusOK, gin.H{"expired": expired})
}
