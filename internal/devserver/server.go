// Package devserver is a local implementation of the CRM REST backend, used for
// demos and end-to-end tests of the client.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"trackflow-cli/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// DefaultStage is assigned to leads created without a stage.
const DefaultStage = model.StageNewLead

type Server struct {
	store   *Store
	log     zerolog.Logger
	now     func() time.Time
	metrics *serverMetrics
}

type Option func(*Server)

func WithLogger(l zerolog.Logger) Option { return func(s *Server) { s.log = l } }

// WithClock fixes "today" for the dashboard metrics.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

func New(store *Store, opts ...Option) *Server {
	s := &Server{store: store, log: zerolog.Nop(), now: time.Now, metrics: newServerMetrics()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.middleware)
	r.Use(s.requestLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "TrackFlow dev server"})
	})
	r.Handle("/metrics", s.metrics.handler())

	r.Route("/leads", func(r chi.Router) {
		r.Get("/", s.listLeads)
		r.Post("/", s.createLead)
		r.Get("/{id}", s.getLead)
		r.Patch("/{id}", s.updateLead)
		r.Delete("/{id}", s.deleteLead)
	})
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", s.listOrders)
		r.Post("/", s.createOrder)
		r.Get("/{id}", s.getOrder)
		r.Patch("/{id}", s.updateOrder)
		r.Delete("/{id}", s.deleteOrder)
	})
	r.Get("/dashboard/metrics/", s.dashboardMetrics)
	return r
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info().Str("addr", addr).Msg("dev server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("request_id", requestID(r)).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// requestID prefers the client's X-Request-ID over chi's generated one.
func requestID(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-Request-ID")); v != "" {
		return v
	}
	return middleware.GetReqID(r.Context())
}

// --- leads ---

func (s *Server) listLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var followUp *model.Date
	if v := q.Get("follow_up_date"); v != "" {
		d, ok := strictDate(v)
		if !ok {
			writeValidation(w, fieldError{Loc: []string{"query", "follow_up_date"}, Msg: msgBadDate, Type: "date_from_datetime_parsing"})
			return
		}
		followUp = &d
	}
	leads, err := s.store.ListLeads(r.Context(), q.Get("stage"), followUp)
	if err != nil {
		s.internal(w, err)
		return
	}
	writeJSON(w, http.StatusOK, leads)
}

func (s *Server) getLead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	l, err := s.store.GetLead(r.Context(), id)
	if s.storeErr(w, err, "Lead not found") {
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) createLead(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeObject(w, r)
	if !ok {
		return
	}
	var (
		l    model.Lead
		errs []fieldError
	)
	l.Name, errs = requiredString(body, "name", errs)
	l.Contact, errs = requiredString(body, "contact", errs)
	l.Company, errs = optionalString(body, "company", errs)
	l.ProductInterest, errs = optionalString(body, "product_interest", errs)
	l.Notes, errs = optionalString(body, "notes", errs)
	l.FollowUpDate, errs = optionalDate(body, "follow_up_date", errs)
	l.Stage = DefaultStage
	if _, present := body["stage"]; present {
		var st string
		n := len(errs)
		st, errs = requiredString(body, "stage", errs)
		if parsed, ok := model.ParseStage(st); ok {
			l.Stage = parsed
		} else if len(errs) == n {
			errs = append(errs, enumError("stage", stageNames()))
		}
	}
	if len(errs) > 0 {
		writeValidation(w, errs...)
		return
	}

	created, err := s.store.CreateLead(r.Context(), l)
	if err != nil {
		s.internal(w, err)
		return
	}
	s.metrics.recordWrite("lead", "create")
	writeJSON(w, http.StatusOK, created)
}

func (s *Server) updateLead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	body, ok := decodeObject(w, r)
	if !ok {
		return
	}
	if _, err := s.store.GetLead(r.Context(), id); s.storeErr(w, err, "Lead not found") {
		return
	}

	changes := map[string]any{}
	var errs []fieldError
	for key := range body {
		switch key {
		case "name", "contact":
			var v string
			v, errs = requiredString(body, key, errs)
			changes[key] = v
		case "company", "product_interest", "notes":
			var v string
			v, errs = optionalString(body, key, errs)
			changes[key] = nullString(v)
		case "follow_up_date":
			var d *model.Date
			d, errs = optionalDate(body, key, errs)
			changes[key] = nullDate(d)
		case "stage":
			n := len(errs)
			var v string
			v, errs = requiredString(body, key, errs)
			if _, ok := model.ParseStage(v); !ok && len(errs) == n {
				errs = append(errs, enumError("stage", stageNames()))
			}
			changes[key] = v
		}
	}
	if len(errs) > 0 {
		writeValidation(w, errs...)
		return
	}

	updated, err := s.store.UpdateLead(r.Context(), id, changes)
	if s.storeErr(w, err, "Lead not found") {
		return
	}
	s.metrics.recordWrite("lead", "update")
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteLead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if s.storeErr(w, s.store.DeleteLead(r.Context(), id), "Lead not found") {
		return
	}
	s.metrics.recordWrite("lead", "delete")
	w.WriteHeader(http.StatusNoContent)
}

// --- orders ---

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var leadID int64
	if v := q.Get("lead_id"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeValidation(w, fieldError{Loc: []string{"query", "lead_id"}, Msg: "Input should be a valid integer", Type: "int_parsing"})
			return
		}
		leadID = n
	}
	status := q.Get("status")
	if status != "" {
		if _, ok := model.ParseStatus(status); !ok {
			writeValidation(w, enumErrorAt("query", "status", statusNames()))
			return
		}
	}
	orders, err := s.store.ListOrders(r.Context(), leadID, status)
	if err != nil {
		s.internal(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	o, err := s.store.GetOrder(r.Context(), id)
	if s.storeErr(w, err, "Order not found") {
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeObject(w, r)
	if !ok {
		return
	}
	var (
		o      model.Order
		errs   []fieldError
		leadID int64
	)
	leadID, errs = requiredInt(body, "lead_id", errs)
	o.ProductName, errs = requiredString(body, "product_name", errs)
	o.Quantity, errs = quantity(body, true, errs)
	o.TrackingNumber, errs = optionalString(body, "tracking_number", errs)
	o.Notes, errs = optionalString(body, "notes", errs)
	o.DeliveryDate, errs = optionalDate(body, "delivery_date", errs)
	var orderDate *model.Date
	orderDate, errs = optionalDate(body, "order_date", errs)
	if orderDate != nil {
		o.OrderDate = *orderDate
	} else {
		o.OrderDate = model.DateOf(s.now())
	}
	o.Status = model.StatusReceived
	if _, present := body["status"]; present {
		var st string
		n := len(errs)
		st, errs = requiredString(body, "status", errs)
		if parsed, ok := model.ParseStatus(st); ok {
			o.Status = parsed
		} else if len(errs) == n {
			errs = append(errs, enumError("status", statusNames()))
		}
	}
	if len(errs) > 0 {
		writeValidation(w, errs...)
		return
	}

	if _, err := s.store.GetLead(r.Context(), leadID); err != nil {
		s.storeErr(w, err, fmt.Sprintf("Lead with ID %d not found.", leadID))
		return
	}
	created, err := s.store.CreateOrder(r.Context(), o, leadID)
	if err != nil {
		s.internal(w, err)
		return
	}
	s.metrics.recordWrite("order", "create")
	writeJSON(w, http.StatusOK, created)
}

func (s *Server) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	body, ok := decodeObject(w, r)
	if !ok {
		return
	}
	if _, err := s.store.GetOrder(r.Context(), id); s.storeErr(w, err, "Order not found") {
		return
	}

	changes := map[string]any{}
	var errs []fieldError
	for key := range body {
		switch key {
		case "product_name":
			var v string
			v, errs = requiredString(body, key, errs)
			changes[key] = v
		case "quantity":
			var n int
			n, errs = quantity(body, false, errs)
			changes[key] = n
		case "order_date":
			var d *model.Date
			d, errs = optionalDate(body, key, errs)
			if d == nil {
				errs = append(errs, fieldError{Loc: []string{"body", key}, Msg: "Input should be a valid date", Type: "date_type"})
				continue
			}
			changes[key] = d.String()
		case "status":
			n := len(errs)
			var v string
			v, errs = requiredString(body, key, errs)
			if _, ok := model.ParseStatus(v); !ok && len(errs) == n {
				errs = append(errs, enumError("status", statusNames()))
			}
			changes[key] = v
		case "delivery_date":
			var d *model.Date
			d, errs = optionalDate(body, key, errs)
			changes[key] = nullDate(d)
		case "tracking_number", "notes":
			var v string
			v, errs = optionalString(body, key, errs)
			changes[key] = nullString(v)
		}
	}
	if len(errs) > 0 {
		writeValidation(w, errs...)
		return
	}

	updated, err := s.store.UpdateOrder(r.Context(), id, changes)
	if s.storeErr(w, err, "Order not found") {
		return
	}
	s.metrics.recordWrite("order", "update")
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if s.storeErr(w, s.store.DeleteOrder(r.Context(), id), "Order not found") {
		return
	}
	s.metrics.recordWrite("order", "delete")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) dashboardMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := s.store.Metrics(r.Context(), model.DateOf(s.now()))
	if err != nil {
		s.internal(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// --- helpers ---

func (s *Server) storeErr(w http.ResponseWriter, err error, notFound string) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrNotFound):
		writeDetail(w, http.StatusNotFound, notFound)
	default:
		s.internal(w, err)
	}
	return true
}

func (s *Server) internal(w http.ResponseWriter, err error) {
	s.log.Error().Err(err).Msg("request failed")
	writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func writeValidation(w http.ResponseWriter, errs ...fieldError) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": errs})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeValidation(w, fieldError{Loc: []string{"path", "id"}, Msg: "Input should be a valid integer", Type: "int_parsing"})
		return 0, false
	}
	return id, true
}

func decodeObject(w http.ResponseWriter, r *http.Request) (map[string]json.RawMessage, bool) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body == nil {
		writeValidation(w, fieldError{Loc: []string{"body"}, Msg: "Input should be a valid JSON object", Type: "model_attributes_type"})
		return nil, false
	}
	return body, true
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

func requiredString(body map[string]json.RawMessage, key string, errs []fieldError) (string, []fieldError) {
	raw, ok := body[key]
	if !ok {
		return "", append(errs, fieldError{Loc: []string{"body", key}, Msg: "Field required", Type: "missing"})
	}
	var s string
	if isNull(raw) || json.Unmarshal(raw, &s) != nil {
		return "", append(errs, fieldError{Loc: []string{"body", key}, Msg: "Input should be a valid string", Type: "string_type"})
	}
	return s, errs
}

func optionalString(body map[string]json.RawMessage, key string, errs []fieldError) (string, []fieldError) {
	raw, ok := body[key]
	if !ok || isNull(raw) {
		return "", errs
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return "", append(errs, fieldError{Loc: []string{"body", key}, Msg: "Input should be a valid string", Type: "string_type"})
	}
	return s, errs
}

func optionalDate(body map[string]json.RawMessage, key string, errs []fieldError) (*model.Date, []fieldError) {
	raw, ok := body[key]
	if !ok || isNull(raw) {
		return nil, errs
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return nil, append(errs, fieldError{Loc: []string{"body", key}, Msg: "Input should be a valid date", Type: "date_type"})
	}
	d, ok := strictDate(s)
	if !ok {
		return nil, append(errs, fieldError{Loc: []string{"body", key}, Msg: msgBadDate, Type: "date_from_datetime_parsing"})
	}
	return &d, errs
}

func requiredInt(body map[string]json.RawMessage, key string, errs []fieldError) (int64, []fieldError) {
	raw, ok := body[key]
	if !ok {
		return 0, append(errs, fieldError{Loc: []string{"body", key}, Msg: "Field required", Type: "missing"})
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			if v, err := strconv.ParseInt(s, 10, 64); err == nil {
				return v, errs
			}
		}
		return 0, append(errs, fieldError{Loc: []string{"body", key}, Msg: "Input should be a valid integer", Type: "int_parsing"})
	}
	return n, errs
}

func quantity(body map[string]json.RawMessage, required bool, errs []fieldError) (int, []fieldError) {
	if _, ok := body["quantity"]; !ok && !required {
		return 0, errs
	}
	n, errs2 := requiredInt(body, "quantity", errs)
	if len(errs2) > len(errs) {
		return 0, errs2
	}
	if n < 1 {
		return 0, append(errs, fieldError{Loc: []string{"body", "quantity"}, Msg: "Input should be greater than 0", Type: "greater_than"})
	}
	return int(n), errs
}

const msgBadDate = "Input should be a valid date in the format YYYY-MM-DD"

func strictDate(s string) (model.Date, bool) {
	if len(strings.TrimSpace(s)) != len("2006-01-02") {
		return model.Date{}, false
	}
	d, err := model.ParseDate(s)
	return d, err == nil
}

func enumError(key string, allowed []string) fieldError {
	return enumErrorAt("body", key, allowed)
}

func enumErrorAt(where, key string, allowed []string) fieldError {
	quoted := make([]string, len(allowed))
	for i, a := range allowed {
		quoted[i] = "'" + a + "'"
	}
	return fieldError{Loc: []string{where, key}, Msg: "Input should be " + strings.Join(quoted, ", "), Type: "enum"}
}

func stageNames() []string {
	out := make([]string, len(model.Stages))
	for i, s := range model.Stages {
		out[i] = string(s)
	}
	return out
}

func statusNames() []string {
	out := make([]string, len(model.Statuses))
	for i, s := range model.Statuses {
		out[i] = string(s)
	}
	return out
}
