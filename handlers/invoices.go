package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/yourusername/trade-invoices/config"
	"github.com/yourusername/trade-invoices/invoicing"
	"github.com/yourusername/trade-invoices/lock"
	"github.com/yourusername/trade-invoices/logger"
	"github.com/yourusername/trade-invoices/middleware"
	"github.com/yourusername/trade-invoices/models"
	"github.com/yourusername/trade-invoices/repository"
	"github.com/yourusername/trade-invoices/settlement"
	"gorm.io/gorm"
)

type InvoiceHandler struct {
	repo   *repository.InvoiceRepository
	locks  lock.ActionLock
	config *config.Config
	now    func() time.Time
	log    zerolog.Logger
}

func NewInvoiceHandler(db *gorm.DB, cfg *config.Config, locks lock.ActionLock) *InvoiceHandler {
	return &InvoiceHandler{
		repo:   repository.NewInvoiceRepository(db),
		locks:  locks,
		config: cfg,
		now:    time.Now,
		log:    logger.WithComponent("handlers"),
	}
}

type CancelInvoiceRequest struct {
	Reason string `json:"reason"`
}

type RecordPaymentRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Reference  string          `json:"reference" binding:"required"`
	ReceivedAt *time.Time      `json:"received_at"`
	Notes      string          `json:"notes"`
}

type ListInvoicesResponse struct {
	Invoices []models.Invoice `json:"invoices"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
}

func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req invoicing.InvoiceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !invoicing.CanCreateInvoice(middleware.RoleFrom(c)) {
		h.respondError(c, invoicing.ErrForbidden)
		return
	}

	inv, err := buildInvoice(req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	inv.CreatedBy = middleware.ActorFrom(c)

	if err := h.repo.Create(c.Request.Context(), inv); err != nil {
		h.respondError(c, err)
		return
	}

	h.log.Info().Str("invoice", inv.InvoiceNumber).Str("trade_id", inv.TradeID).Str("actor", inv.CreatedBy).Msg("invoice created")
	c.JSON(http.StatusCreated, inv)
}

func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	id, ok := invoiceID(c)
	if !ok {
		return
	}

	var req invoicing.InvoiceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	current, err := h.repo.Get(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := invoicing.CheckEdit(middleware.RoleFrom(c), current); err != nil {
		h.respondError(c, err)
		return
	}

	// The trade is fixed once the draft exists.
	req.TradeID = current.TradeID
	if strings.TrimSpace(req.Currency) == "" {
		req.Currency = current.Currency
	}
	if strings.TrimSpace(req.PartyID) == "" {
		req.PartyID = current.PartyID
	}

	inv, err := buildInvoice(req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	inv.ID = id

	if err := h.repo.UpdateDraft(ctx, inv); err != nil {
		h.respondError(c, err)
		return
	}

	updated, err := h.repo.Get(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *InvoiceHandler) IssueInvoice(c *gin.Context) {
	id, ok := invoiceID(c)
	if !ok {
		return
	}

	role := middleware.RoleFrom(c)
	actor := middleware.ActorFrom(c)

	inv, err := h.transition(c.Request.Context(), id, func(inv *models.Invoice) error {
		if err := invoicing.CheckIssue(role, inv, invoicing.ActionState{}); err != nil {
			return err
		}
		if err := invoicing.Issue(inv, actor, uuid.NewString(), h.now()); err != nil {
			return err
		}
		return h.repo.Issue(c.Request.Context(), inv)
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.log.Info().Str("invoice", inv.InvoiceNumber).Str("exposure_id", *inv.ExposureID).Str("actor", actor).Msg("invoice issued")
	c.JSON(http.StatusOK, inv)
}

func (h *InvoiceHandler) CancelInvoice(c *gin.Context) {
	id, ok := invoiceID(c)
	if !ok {
		return
	}

	var req CancelInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := middleware.RoleFrom(c)
	actor := middleware.ActorFrom(c)

	inv, err := h.transition(c.Request.Context(), id, func(inv *models.Invoice) error {
		if err := invoicing.CheckCancel(role, inv, req.Reason, invoicing.ActionState{}); err != nil {
			return err
		}
		if err := invoicing.Cancel(inv, actor, req.Reason, h.now()); err != nil {
			return err
		}
		return h.repo.Cancel(c.Request.Context(), inv)
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.log.Info().Str("invoice", inv.InvoiceNumber).Str("actor", actor).Msg("invoice cancelled")
	c.JSON(http.StatusOK, inv)
}

// transition runs fn on a freshly loaded invoice while holding its action lock.
func (h *InvoiceHandler) transition(ctx context.Context, id uint, fn func(*models.Invoice) error) (*models.Invoice, error) {
	key := lock.InvoiceKey(id)
	token, err := h.locks.Acquire(ctx, key, h.config.ActionLockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := h.locks.Release(context.WithoutCancel(ctx), key, token); err != nil {
			h.log.Warn().Err(err).Uint("invoice_id", id).Msg("failed to release action lock")
		}
	}()

	inv, err := h.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id, ok := invoiceID(c)
	if !ok {
		return
	}

	inv, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	filter := repository.ListFilter{
		TradeID:  c.Query("trade_id"),
		PartyID:  c.Query("party_id"),
		Currency: c.Query("currency"),
		Search:   c.Query("search"),
	}

	if raw := c.Query("status"); raw != "" {
		status := models.InvoiceStatus(strings.ToUpper(raw))
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
			return
		}
		filter.Status = status
	}

	var err error
	if filter.Page, err = intQuery(c, "page", 1); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page"})
		return
	}
	if filter.Limit, err = intQuery(c, "limit", repository.DefaultPageSize); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}
	if filter.Limit > repository.MaxPageSize {
		filter.Limit = repository.MaxPageSize
	}

	invoices, total, err := h.repo.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListInvoicesResponse{
		Invoices: invoices,
		Total:    total,
		Page:     filter.Page,
		Limit:    filter.Limit,
	})
}

func (h *InvoiceHandler) GetCoverage(c *gin.Context) {
	id, ok := invoiceID(c)
	if !ok {
		return
	}

	inv, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	summary, ok := invoicing.CoverageOf(inv)
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "Invoice has no exposure", "code": "NoExposure"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	id, ok := invoiceID(c)
	if !ok {
		return
	}

	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receivedAt := h.now()
	if req.ReceivedAt != nil {
		receivedAt = *req.ReceivedAt
	}

	payment := &models.InvoicePayment{
		Amount:     req.Amount,
		Currency:   req.Currency,
		Reference:  strings.TrimSpace(req.Reference),
		Source:     "manual",
		ReceivedAt: receivedAt,
		RecordedBy: middleware.ActorFrom(c),
		Notes:      req.Notes,
	}

	inv, err := settlement.Apply(c.Request.Context(), h.repo, h.locks, h.config.ActionLockTTL, id, payment)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.log.Info().
		Str("invoice", inv.InvoiceNumber).
		Str("reference", payment.Reference).
		Str("amount", payment.Amount.StringFixed(2)).
		Str("status", string(inv.Status)).
		Msg("payment recorded")
	c.JSON(http.StatusCreated, gin.H{"invoice": inv, "payment": payment})
}

// buildInvoice validates a submission with the form rules and converts it to
// a draft model. Totals are computed by the repository.
func buildInvoice(req invoicing.InvoiceInput) (*models.Invoice, error) {
	if errs := invoicing.ValidateInvoiceForm(req.ToForm()); !errs.Valid() {
		return nil, errs
	}

	invoiceDate, _ := invoicing.ParseDate(req.InvoiceDate)
	dueDate, _ := invoicing.ParseDate(req.DueDate)

	inv := &models.Invoice{
		TradeID:     strings.TrimSpace(req.TradeID),
		PartyID:     strings.TrimSpace(req.PartyID),
		Currency:    strings.ToUpper(strings.TrimSpace(req.Currency)),
		InvoiceDate: invoiceDate,
		DueDate:     dueDate,
		LineItems:   make([]models.LineItem, 0, len(req.LineItems)),
	}
	for _, item := range req.LineItems {
		inv.LineItems = append(inv.LineItems, models.LineItem{
			Description: strings.TrimSpace(item.Description),
			HSCode:      strings.TrimSpace(item.HSCode),
			Quantity:    item.Quantity,
			Unit:        strings.TrimSpace(item.Unit),
			UnitPrice:   item.UnitPrice,
		})
	}
	return inv, nil
}

func invoiceID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoice ID"})
		return 0, false
	}
	return uint(id), true
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}

func (h *InvoiceHandler) respondError(c *gin.Context, err error) {
	var fields invoicing.FieldErrors
	switch {
	case errors.As(err, &fields):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": fields})
	case errors.Is(err, invoicing.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden: insufficient permissions"})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
	case errors.Is(err, lock.ErrHeld):
		c.JSON(http.StatusConflict, gin.H{"error": invoicing.ErrActionInFlight.Error(), "code": "ActionInFlight"})
	case errors.Is(err, invoicing.ErrTransitionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "TransitionConflict"})
	case errors.Is(err, invoicing.ErrIllegalTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "IllegalTransition"})
	case errors.Is(err, repository.ErrDuplicatePayment):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "DuplicatePayment"})
	case errors.Is(err, invoicing.ErrInvalidCancelReason),
		errors.Is(err, invoicing.ErrInvalidPayment),
		errors.Is(err, settlement.ErrCurrencyMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
