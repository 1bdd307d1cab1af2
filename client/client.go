// Package client talks to the Invoice API. Every write is validated and
// permission-gated locally before a request is sent, and issue and cancel are
// never retried.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/yourusername/trade-invoices/invoicing"
	"github.com/yourusername/trade-invoices/middleware"
	"github.com/yourusername/trade-invoices/models"
	"github.com/yourusername/trade-invoices/repository"
)

const defaultTimeout = 30 * time.Second

// ErrNoExposure is returned by Coverage for invoices that were never issued
// or were cancelled.
var ErrNoExposure = errors.New("invoice has no exposure")

// APIError is a failed API call. Err is set when the failure maps to a known
// invoicing error.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("invoice api: %d %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// ListFilter mirrors the list endpoint's query parameters. Empty values are
// left out of the query.
type ListFilter struct {
	Status   models.InvoiceStatus
	TradeID  string
	PartyID  string
	Currency string
	Search   string
	Page     int
	Limit    int
}

func (f ListFilter) Query() url.Values {
	q := url.Values{}
	set := func(key, value string) {
		if v := strings.TrimSpace(value); v != "" {
			q.Set(key, v)
		}
	}
	set("status", string(f.Status))
	set("trade_id", f.TradeID)
	set("party_id", f.PartyID)
	set("currency", f.Currency)
	set("search", f.Search)
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return q
}

type ListResult struct {
	Invoices []models.Invoice `json:"invoices"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
}

type Client struct {
	baseURL    string
	token      string
	role       invoicing.Role
	httpClient *http.Client
	tracker    invoicing.ActionTracker
}

// New returns a client acting with token. The role used for local gating is
// read from the token without verifying it; the API verifies it on every call.
func New(baseURL, token string) (*Client, error) {
	claims := &middleware.Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		role:       invoicing.Role(claims.Role),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}, nil
}

func (c *Client) Role() invoicing.Role {
	return c.role
}

// InFlight reports whether action is awaiting a response for the invoice.
func (c *Client) InFlight(invoiceID uint, action invoicing.Action) bool {
	return c.tracker.InFlight(invoiceID, action)
}

func (c *Client) ListInvoices(ctx context.Context, filter ListFilter) (*ListResult, error) {
	path := "/api/v1/invoices"
	if q := filter.Query().Encode(); q != "" {
		path += "?" + q
	}
	var out ListResult
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetInvoice(ctx context.Context, id uint) (*models.Invoice, error) {
	var out models.Invoice
	if err := c.do(ctx, http.MethodGet, invoicePath(id, ""), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Coverage(ctx context.Context, id uint) (*invoicing.CoverageSummary, error) {
	var out invoicing.CoverageSummary
	if err := c.do(ctx, http.MethodGet, invoicePath(id, "/coverage"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateInvoice submits a new draft. Nothing is sent when the form is invalid.
func (c *Client) CreateInvoice(ctx context.Context, form invoicing.InvoiceForm) (*models.Invoice, error) {
	if !invoicing.CanCreateInvoice(c.role) {
		return nil, invoicing.ErrForbidden
	}
	if errs := invoicing.ValidateInvoiceForm(form); !errs.Valid() {
		return nil, errs
	}

	var out models.Invoice
	if err := c.do(ctx, http.MethodPost, "/api/v1/invoices", form.ToInput(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateInvoice saves form over the draft inv.
func (c *Client) UpdateInvoice(ctx context.Context, inv *models.Invoice, form invoicing.InvoiceForm) (*models.Invoice, error) {
	if err := invoicing.CheckEdit(c.role, inv); err != nil {
		return nil, err
	}
	if errs := invoicing.ValidateInvoiceForm(form); !errs.Valid() {
		return nil, errs
	}

	var out models.Invoice
	if err := c.do(ctx, http.MethodPut, invoicePath(inv.ID, ""), form.ToInput(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IssueInvoice issues inv. dirty reports unsaved form edits, which block
// issuing.
func (c *Client) IssueInvoice(ctx context.Context, inv *models.Invoice, dirty bool) (*models.Invoice, error) {
	return c.act(ctx, inv, invoicing.ActionIssue, nil, func(state invoicing.ActionState) error {
		return invoicing.CheckIssue(c.role, inv, state)
	}, dirty)
}

// CancelInvoice cancels the draft inv with reason.
func (c *Client) CancelInvoice(ctx context.Context, inv *models.Invoice, reason string) (*models.Invoice, error) {
	body := map[string]string{"reason": strings.TrimSpace(reason)}
	return c.act(ctx, inv, invoicing.ActionCancel, body, func(state invoicing.ActionState) error {
		return invoicing.CheckCancel(c.role, inv, reason, state)
	}, false)
}

// act sends one irreversible action. The gate runs immediately before the
// request, and a second call for the same action fails while the first is
// pending.
func (c *Client) act(ctx context.Context, inv *models.Invoice, action invoicing.Action, body interface{}, gate func(invoicing.ActionState) error, dirty bool) (*models.Invoice, error) {
	if inv == nil {
		return nil, gate(invoicing.ActionState{})
	}
	if err := gate(c.tracker.State(inv.ID, action, dirty)); err != nil {
		return nil, err
	}
	if !c.tracker.Begin(inv.ID, action) {
		return nil, invoicing.ErrActionInFlight
	}
	defer c.tracker.Done(inv.ID, action)

	var out models.Invoice
	if err := c.do(ctx, http.MethodPost, invoicePath(inv.ID, "/"+string(action)), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func invoicePath(id uint, suffix string) string {
	return "/api/v1/invoices/" + strconv.FormatUint(uint64(id), 10) + suffix
}

type errorBody struct {
	Error  string                `json:"error"`
	Code   string                `json:"code"`
	Fields invoicing.FieldErrors `json:"fields"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoice api request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(status int, data []byte) error {
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(data))
		if body.Error == "" {
			body.Error = http.StatusText(status)
		}
	}

	if status == http.StatusBadRequest && len(body.Fields) > 0 {
		return body.Fields
	}

	apiErr := &APIError{StatusCode: status, Code: body.Code, Message: body.Error}
	switch status {
	case http.StatusForbidden:
		apiErr.Err = invoicing.ErrForbidden
	case http.StatusConflict:
		switch body.Code {
		case "IllegalTransition":
			apiErr.Err = invoicing.ErrIllegalTransition
		case "ActionInFlight":
			apiErr.Err = invoicing.ErrActionInFlight
		case "NoExposure":
			apiErr.Err = ErrNoExposure
		case "DuplicatePayment":
			apiErr.Err = repository.ErrDuplicatePayment
		case "TransitionConflict", "":
			apiErr.Err = invoicing.ErrTransitionConflict
		}
	}
	return apiErr
}

// IsConflict reports whether err means the invoice changed elsewhere and
// should be reloaded.
func IsConflict(err error) bool {
	return errors.Is(err, invoicing.ErrTransitionConflict) || errors.Is(err, invoicing.ErrIllegalTransition)
}
