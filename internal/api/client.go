// Package api is the typed client for the CRM REST backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trackflow-cli/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	leadsPath   = "/leads/"
	ordersPath  = "/orders/"
	metricsPath = "/dashboard/metrics/"
)

type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) ListLeads(ctx context.Context, f LeadFilter) ([]model.Lead, error) {
	out := []model.Lead{}
	if err := c.do(ctx, "list leads", http.MethodGet, leadsPath, f.Query(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetLead(ctx context.Context, id model.ID) (model.Lead, error) {
	var out model.Lead
	err := c.do(ctx, "get lead", http.MethodGet, recordPath(leadsPath, id), nil, nil, &out)
	return out, err
}

func (c *Client) CreateLead(ctx context.Context, in LeadInput) (model.Lead, error) {
	var out model.Lead
	err := c.do(ctx, "create lead", http.MethodPost, leadsPath, nil, in, &out)
	return out, err
}

func (c *Client) UpdateLead(ctx context.Context, id model.ID, p LeadPatch) (model.Lead, error) {
	var out model.Lead
	err := c.do(ctx, "update lead", http.MethodPatch, recordPath(leadsPath, id), nil, p, &out)
	return out, err
}

func (c *Client) DeleteLead(ctx context.Context, id model.ID) error {
	return c.do(ctx, "delete lead", http.MethodDelete, recordPath(leadsPath, id), nil, nil, nil)
}

func (c *Client) ListOrders(ctx context.Context, f OrderFilter) ([]model.Order, error) {
	out := []model.Order{}
	if err := c.do(ctx, "list orders", http.MethodGet, ordersPath, f.Query(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetOrder(ctx context.Context, id model.ID) (model.Order, error) {
	var out model.Order
	err := c.do(ctx, "get order", http.MethodGet, recordPath(ordersPath, id), nil, nil, &out)
	return out, err
}

func (c *Client) CreateOrder(ctx context.Context, in OrderInput) (model.Order, error) {
	var out model.Order
	err := c.do(ctx, "create order", http.MethodPost, ordersPath, nil, in, &out)
	return out, err
}

func (c *Client) UpdateOrder(ctx context.Context, id model.ID, p OrderPatch) (model.Order, error) {
	var out model.Order
	err := c.do(ctx, "update order", http.MethodPatch, recordPath(ordersPath, id), nil, p, &out)
	return out, err
}

func (c *Client) DeleteOrder(ctx context.Context, id model.ID) error {
	return c.do(ctx, "delete order", http.MethodDelete, recordPath(ordersPath, id), nil, nil, nil)
}

func (c *Client) DashboardMetrics(ctx context.Context) (model.Metrics, error) {
	var out model.Metrics
	err := c.do(ctx, "dashboard metrics", http.MethodGet, metricsPath, nil, nil, &out)
	return out, err
}

func recordPath(collection string, id model.ID) string {
	return collection + url.PathEscape(strings.TrimSpace(id.String()))
}

func (c *Client) setHeaders(req *http.Request, requestID string) {
	req.Header.Set("Accept", "application/json")
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", requestID)
}

// do performs one request. There are no retries; every failure comes back as *Error.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	fail := func(kind Kind, status int, detail string, err error) error {
		return &Error{Op: op, Method: method, Path: path, Kind: kind, StatusCode: status, Detail: detail, Err: err}
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fail(KindTransport, 0, "", fmt.Errorf("encode body: %w", err))
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return fail(KindTransport, 0, "", err)
	}
	reqID := uuid.NewString()
	c.setHeaders(req, reqID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("request_id", reqID).Str("method", method).Str("path", path).Msg("request failed")
		return fail(KindTransport, 0, "", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	c.log.Debug().
		Str("request_id", reqID).
		Str("method", method).
		Str("path", path).
		Str("query", query.Encode()).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("api request")
	if err != nil {
		return fail(KindTransport, resp.StatusCode, "", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(KindStatus, resp.StatusCode, detailFrom(respBody), fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fail(KindDecode, resp.StatusCode, "", err)
	}
	return nil
}
