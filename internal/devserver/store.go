package devserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"trackflow-cli/internal/model"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

// Store persists leads and orders in a single SQLite file.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func OpenStore(ctx context.Context, path string, now func() time.Time) (*Store, error) {
	if now == nil {
		now = time.Now
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection: writes are serialized and ":memory:" stays a single database.
	db.SetMaxOpenConns(1)
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, now: now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Orders keep their lead_id after the lead is deleted; clients render those as N/A.
func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS leads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			contact TEXT NOT NULL,
			company TEXT,
			product_interest TEXT,
			stage TEXT NOT NULL,
			follow_up_date TEXT,
			notes TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_leads_stage ON leads(stage);`,
		`CREATE INDEX IF NOT EXISTS idx_leads_follow_up ON leads(follow_up_date);`,
		`CREATE TABLE IF NOT EXISTS orders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			lead_id INTEGER NOT NULL,
			product_name TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			order_date TEXT NOT NULL,
			status TEXT NOT NULL,
			delivery_date TEXT,
			tracking_number TEXT,
			notes TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_lead ON orders(lead_id);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

const (
	leadCols  = `id, name, contact, company, product_interest, stage, follow_up_date, notes, created_at, updated_at`
	orderCols = `id, lead_id, product_name, quantity, order_date, status, delivery_date, tracking_number, notes, created_at, updated_at`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(r rowScanner) (model.Lead, error) {
	var (
		id                                     int64
		l                                      model.Lead
		company, interest, followUp, notes, up sql.NullString
		created                                string
	)
	if err := r.Scan(&id, &l.Name, &l.Contact, &company, &interest, &l.Stage, &followUp, &notes, &created, &up); err != nil {
		return model.Lead{}, err
	}
	l.ID = idOf(id)
	l.Company = company.String
	l.ProductInterest = interest.String
	l.Notes = notes.String
	if followUp.Valid {
		d, err := model.ParseDate(followUp.String)
		if err != nil {
			return model.Lead{}, err
		}
		l.FollowUpDate = &d
	}
	l.CreatedAt, l.UpdatedAt = scanTimes(created, up)
	return l, nil
}

func scanOrder(r rowScanner) (model.Order, error) {
	var (
		id, leadID                    int64
		o                             model.Order
		orderDate, created            string
		delivery, tracking, notes, up sql.NullString
	)
	if err := r.Scan(&id, &leadID, &o.ProductName, &o.Quantity, &orderDate, &o.Status, &delivery, &tracking, &notes, &created, &up); err != nil {
		return model.Order{}, err
	}
	o.ID = idOf(id)
	o.LeadID = idOf(leadID)
	o.TrackingNumber = tracking.String
	o.Notes = notes.String
	d, err := model.ParseDate(orderDate)
	if err != nil {
		return model.Order{}, err
	}
	o.OrderDate = d
	if delivery.Valid {
		dd, err := model.ParseDate(delivery.String)
		if err != nil {
			return model.Order{}, err
		}
		o.DeliveryDate = &dd
	}
	o.CreatedAt, o.UpdatedAt = scanTimes(created, up)
	return o, nil
}

func scanTimes(created string, updated sql.NullString) (model.Timestamp, *model.Timestamp) {
	c, _ := model.ParseTimestamp(created)
	if !updated.Valid {
		return c, nil
	}
	u, err := model.ParseTimestamp(updated.String)
	if err != nil {
		return c, nil
	}
	return c, &u
}

func idOf(n int64) model.ID { return model.ID(strconv.FormatInt(n, 10)) }

func (s *Store) stamp() string { return s.now().UTC().Format(time.RFC3339Nano) }

func (s *Store) ListLeads(ctx context.Context, stage string, followUp *model.Date) ([]model.Lead, error) {
	q := `SELECT ` + leadCols + ` FROM leads`
	var (
		where []string
		args  []any
	)
	if stage != "" {
		where = append(where, "stage = ?")
		args = append(args, stage)
	}
	if followUp != nil {
		where = append(where, "follow_up_date = ?")
		args = append(args, followUp.String())
	}
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id"
	return queryAll(ctx, s.db, q, args, scanLead)
}

func (s *Store) GetLead(ctx context.Context, id int64) (model.Lead, error) {
	l, err := scanLead(s.db.QueryRowContext(ctx, `SELECT `+leadCols+` FROM leads WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Lead{}, ErrNotFound
	}
	return l, err
}

func (s *Store) CreateLead(ctx context.Context, l model.Lead) (model.Lead, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (name, contact, company, product_interest, stage, follow_up_date, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.Name, l.Contact, nullString(l.Company), nullString(l.ProductInterest), string(l.Stage),
		nullDate(l.FollowUpDate), nullString(l.Notes), s.stamp())
	if err != nil {
		return model.Lead{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Lead{}, err
	}
	return s.GetLead(ctx, id)
}

// UpdateLead applies only the given columns; a nil value clears a nullable column.
func (s *Store) UpdateLead(ctx context.Context, id int64, changes map[string]any) (model.Lead, error) {
	if err := s.update(ctx, "leads", id, changes); err != nil {
		return model.Lead{}, err
	}
	return s.GetLead(ctx, id)
}

func (s *Store) DeleteLead(ctx context.Context, id int64) error {
	return s.delete(ctx, "leads", id)
}

func (s *Store) ListOrders(ctx context.Context, leadID int64, status string) ([]model.Order, error) {
	q := `SELECT ` + orderCols + ` FROM orders`
	var (
		where []string
		args  []any
	)
	if leadID != 0 {
		where = append(where, "lead_id = ?")
		args = append(args, leadID)
	}
	if status != "" {
		where = append(where, "status = ?")
		args = append(args, status)
	}
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id"
	return queryAll(ctx, s.db, q, args, scanOrder)
}

func (s *Store) GetOrder(ctx context.Context, id int64) (model.Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, `SELECT `+orderCols+` FROM orders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Order{}, ErrNotFound
	}
	return o, err
}

func (s *Store) CreateOrder(ctx context.Context, o model.Order, leadID int64) (model.Order, error) {
	if o.OrderDate.IsZero() {
		o.OrderDate = model.DateOf(s.now())
	}
	if o.Status == "" {
		o.Status = model.StatusReceived
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO orders (lead_id, product_name, quantity, order_date, status, delivery_date, tracking_number, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		leadID, o.ProductName, o.Quantity, o.OrderDate.String(), string(o.Status),
		nullDate(o.DeliveryDate), nullString(o.TrackingNumber), nullString(o.Notes), s.stamp())
	if err != nil {
		return model.Order{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Order{}, err
	}
	return s.GetOrder(ctx, id)
}

func (s *Store) UpdateOrder(ctx context.Context, id int64, changes map[string]any) (model.Order, error) {
	if err := s.update(ctx, "orders", id, changes); err != nil {
		return model.Order{}, err
	}
	return s.GetOrder(ctx, id)
}

func (s *Store) DeleteOrder(ctx context.Context, id int64) error {
	return s.delete(ctx, "orders", id)
}

var updatable = map[string]map[string]bool{
	"leads":  {"name": true, "contact": true, "company": true, "product_interest": true, "stage": true, "follow_up_date": true, "notes": true},
	"orders": {"product_name": true, "quantity": true, "order_date": true, "status": true, "delivery_date": true, "tracking_number": true, "notes": true},
}

func (s *Store) update(ctx context.Context, table string, id int64, changes map[string]any) error {
	cols := make([]string, 0, len(changes)+1)
	args := make([]any, 0, len(changes)+2)
	for _, col := range orderedKeys(changes) {
		if !updatable[table][col] {
			return fmt.Errorf("column %s.%s is not updatable", table, col)
		}
		cols = append(cols, col+" = ?")
		args = append(args, changes[col])
	}
	cols = append(cols, "updated_at = ?")
	args = append(args, s.stamp(), id)

	res, err := s.db.ExecContext(ctx, `UPDATE `+table+` SET `+strings.Join(cols, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) delete(ctx context.Context, table string, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Metrics aggregates the dashboard as of today.
func (s *Store) Metrics(ctx context.Context, today model.Date) (model.Metrics, error) {
	m := model.Metrics{
		LeadsByStage:     map[string]int{},
		OrdersByStatus:   map[string]int{},
		OverdueFollowups: []model.Lead{},
	}
	leads, err := s.ListLeads(ctx, "", nil)
	if err != nil {
		return m, err
	}
	weekOut := today.AddDays(7)
	for _, l := range leads {
		m.TotalLeads++
		m.LeadsByStage[string(l.Stage)]++
		if l.FollowUpDate == nil {
			continue
		}
		d := *l.FollowUpDate
		if !d.Before(today) && !d.After(weekOut) {
			m.FollowupsDueThisWeek++
		}
		if d.Before(today) && !l.Stage.Closed() {
			m.OverdueFollowups = append(m.OverdueFollowups, l)
		}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return m, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return m, err
		}
		m.OrdersByStatus[status] = n
		m.TotalOrders += n
	}
	return m, rows.Err()
}

func queryAll[T any](ctx context.Context, db *sql.DB, q string, args []any, scan func(rowScanner) (T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func orderedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func nullString(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func nullDate(d *model.Date) any {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.String()
}
