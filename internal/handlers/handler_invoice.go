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

// invoiceHandler handles HTTP requests related to invoices.
type invoiceHandler struct {
	invoiceService portssvc.InvoiceSvcFacade
	now            func() time.Time
}

// newInvoiceHandler creates a new invoiceHandler.
func newInvoiceHandler(is portssvc.InvoiceSvcFacade) *invoiceHandler {
	return &invoiceHandler{
		invoiceService: is,
		now:            time.Now,
	}
}

// registerInvoiceRoutes registers routes related to invoices.
// Mutating POST routes go through the idempotency middleware when one is given.
func registerInvoiceRoutes(rg *gin.RouterGroup, invoiceService portssvc.InvoiceSvcFacade, idempotent ...gin.HandlerFunc) {
	h := newInvoiceHandler(invoiceService)

	invoices := rg.Group("/invoices")
	{
		invoices.POST("", chain(idempotent, h.createInvoice)...)
		invoices.GET("", h.listInvoices)
		invoices.GET("/:invoice_id", h.getInvoice)
		invoices.PATCH("/:invoice_id", h.updateInvoice)
		invoices.DELETE("/:invoice_id", h.deleteInvoice)
		invoices.POST("/:invoice_id/payments", chain(idempotent, h.applyPayment)...)
	}
}

// createInvoice godoc
// @Summary Create a new invoice
// @Description Prices the line items at the configured VAT rate, mints the next invoice number and stores the invoice
// @Tags invoices
// @Accept  json
// @Produce  json
// @Param   Idempotency-Key header string false "Replay key for safe retries"
// @Param   invoice body dto.CreateInvoiceRequest true "Invoice details"
// @Success 201 {object} dto.InvoiceResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Client not found"
// @Failure 412 {object} map[string]string "Billing settings not configured"
// @Failure 503 {object} map[string]string "Operation failed after retries"
// @Failure 500 {object} map[string]string "Failed to create invoice"
// @Security BearerAuth
// @Router /invoices [post]
func (h *invoiceHandler) createInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateInvoice", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("client_id", req.ClientID))
	logger.Info("Received request to create invoice", slog.Int("item_count", len(req.Items)))

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), req, userID)
	if err != nil {
		respondServiceError(c, logger, err, "create invoice")
		return
	}

	logger.Info("Invoice created successfully", slog.String("invoice_id", invoice.InvoiceID), slog.String("number", invoice.Number))
	c.JSON(http.StatusCreated, dto.ToInvoiceResponse(invoice, h.now()))
}

// listInvoices godoc
// @Summary List invoices
// @Description Lists invoices newest first. The status filter uses the effective status, so overdue is accepted.
// @Tags invoices
// @Produce  json
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Token from the previous page"
// @Param   clientID query string false "Only invoices of this client"
// @Param   status query string false "Effective status" Enums(draft, pending, partial, deposit, paid, overdue)
// @Success 200 {object} dto.ListInvoicesResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 500 {object} map[string]string "Failed to list invoices"
// @Security BearerAuth
// @Router /invoices [get]
func (h *invoiceHandler) listInvoices(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.ListInvoicesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query parameters for ListInvoices", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	resp, err := h.invoiceService.ListInvoices(c.Request.Context(), params)
	if err != nil {
		respondServiceError(c, logger, err, "list invoices")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// getInvoice godoc
// @Summary Get an invoice by ID
// @Tags invoices
// @Produce  json
// @Param   invoice_id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 404 {object} map[string]string "Invoice not found"
// @Failure 500 {object} map[string]string "Failed to retrieve invoice"
// @Security BearerAuth
// @Router /invoices/{invoice_id} [get]
func (h *invoiceHandler) getInvoice(c *gin.Context) {
	invoiceID := c.Param("invoice_id")
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("invoice_id", invoiceID))

	invoice, err := h.invoiceService.GetInvoiceByID(c.Request.Context(), invoiceID)
	if err != nil {
		respondServiceError(c, logger, err, "retrieve invoice")
		return
	}

	c.JSON(http.StatusOK, dto.ToInvoiceResponse(invoice, h.now()))
}

// updateInvoice godoc
// @Summary Update an invoice
// @Description Partially updates an invoice. Amounts are recomputed at the invoice's own VAT rate.
// @Tags invoices
// @Accept  json
// @Produce  json
// @Param   invoice_id path string true "Invoice ID"
// @Param   invoice body dto.UpdateInvoiceRequest true "Fields to update"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Invoice or client not found"
// @Failure 409 {object} map[string]string "Invalid status transition"
// @Failure 503 {object} map[string]string "Operation failed after retries"
// @Failure 500 {object} map[string]string "Failed to update invoice"
// @Security BearerAuth
// @Router /invoices/{invoice_id} [patch]
func (h *invoiceHandler) updateInvoice(c *gin.Context) {
	invoiceID := c.Param("invoice_id")
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("invoice_id", invoiceID))

	var req dto.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateInvoice", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	invoice, err := h.invoiceService.UpdateInvoice(c.Request.Context(), invoiceID, req, userID)
	if err != nil {
		respondServiceError(c, logger, err, "update invoice")
		return
	}

	logger.Info("Invoice updated successfully")
	c.JSON(http.StatusOK, dto.ToInvoiceResponse(invoice, h.now()))
}

// deleteInvoice godoc
// @Summary Delete an invoice
// @Description Deletes an invoice and reverses its paid amount from the client's total spent
// @Tags invoices
// @Param   invoice_id path string true "Invoice ID"
// @Success 204 "No Content"
// @Failure 404 {object} map[string]string "Invoice not found"
// @Failure 503 {object} map[string]string "Operation failed after retries"
// @Failure 500 {object} map[string]string "Failed to delete invoice"
// @Security BearerAuth
// @Router /invoices/{invoice_id} [delete]
func (h *invoiceHandler) deleteInvoice(c *gin.Context) {
	invoiceID := c.Param("invoice_id")
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("invoice_id", invoiceID))

	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), invoiceID, userID); err != nil {
		respondServiceError(c, logger, err, "delete invoice")
		return
	}

	logger.Info("Invoice deleted successfully")
	c.Status(http.StatusNoContent)
}

// applyPayment godoc
// @Summary Record a payment
// @Description Applies a payment against the invoice's current remaining amount
// @Tags invoices
// @Accept  json
// @Produce  json
// @Param   Idempotency-Key header string false "Replay key for safe retries"
// @Param   invoice_id path string true "Invoice ID"
// @Param   payment body dto.ApplyPaymentRequest true "Payment details"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 400 {object} map[string]string "Invalid payment amount"
// @Failure 404 {object} map[string]string "Invoice not found"
// @Failure 503 {object} map[string]string "Operation failed after retries"
// @Failure 500 {object} map[string]string "Failed to apply payment"
// @Security BearerAuth
// @Router /invoices/{invoice_id}/payments [post]
func (h *invoiceHandler) applyPayment(c *gin.Context) {
	invoiceID := c.Param("invoice_id")
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("invoice_id", invoiceID))

	var req dto.ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ApplyPayment", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	logger.Info("Received request to apply payment", slog.String("amount", req.Amount.String()), slog.String("method", string(req.Method)))

	invoice, err := h.invoiceService.ApplyPayment(c.Request.Context(), invoiceID, req, userID)
	if err != nil {
		respondServiceError(c, logger, err, "apply payment")
		return
	}

	logger.Info("Payment applied successfully", slog.String("remaining", invoice.RemainingAmount.String()))
	c.JSON(http.StatusOK, dto.ToInvoiceResponse(invoice, h.now()))
}
