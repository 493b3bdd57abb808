package cli

import (
	"encoding/json"
	"strconv"
	"strings"

	"trackflow-cli/internal/board"
	"trackflow-cli/internal/format"
	"trackflow-cli/internal/model"
)

// The types below marshal exactly like the records they wrap and add a
// --format table rendering.

type leadTable []model.Lead

func (leadTable) Header() []string {
	return []string{"ID", "Name", "Contact", "Company", "Product Interest", "Follow-up Date", "Stage"}
}

func (t leadTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, l := range t {
		rows = append(rows, []string{
			l.ID.String(),
			l.Name,
			l.Contact,
			orNA(l.Company),
			orNA(l.ProductInterest),
			orNA(l.Get("follow_up_date")),
			string(l.Stage),
		})
	}
	return rows
}

type orderTable []model.Order

func (orderTable) Header() []string {
	return []string{"ID", "Lead ID", "Product", "Qty", "Order Date", "Status", "Delivery Date", "Tracking #"}
}

func (t orderTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, o := range t {
		rows = append(rows, []string{
			o.ID.String(),
			o.LeadID.String(),
			o.ProductName,
			strconv.Itoa(o.Quantity),
			o.OrderDate.String(),
			string(o.Status),
			orNA(o.Get("delivery_date")),
			orNA(o.TrackingNumber),
		})
	}
	return rows
}

// leadFields shows a single record as field/value rows.
func leadFields(l model.Lead) format.Fields {
	f := format.Fields{{"id", l.ID.String()}}
	for _, k := range model.LeadFields {
		f = append(f, [2]string{k, l.Get(k)})
	}
	return f
}

func orderFields(o model.Order) format.Fields {
	f := format.Fields{{"id", o.ID.String()}, {"lead_id", o.LeadID.String()}}
	for _, k := range model.OrderFields {
		f = append(f, [2]string{k, o.Get(k)})
	}
	return f
}

// record pairs a record's JSON form with its field/value table.
type record[R any] struct {
	rec    R
	fields format.Fields
}

func (r record[R]) MarshalJSON() ([]byte, error) { return json.Marshal(r.rec) }
func (r record[R]) Header() []string             { return r.fields.Header() }
func (r record[R]) Rows() [][]string             { return r.fields.Rows() }

func leadRecord(l model.Lead) record[model.Lead]    { return record[model.Lead]{l, leadFields(l)} }
func orderRecord(o model.Order) record[model.Order] { return record[model.Order]{o, orderFields(o)} }

type boardColumn[R any] struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
	Items []R    `json:"items"`
}

// boardView is the kanban projection of a list, one column per enumeration value
// plus the records whose value is outside it.
type boardView[R any] struct {
	Columns   []boardColumn[R] `json:"columns"`
	Unmatched []R              `json:"unmatched"`
	Total     int              `json:"total"`

	title func(R) string
}

func newBoardView[K ~string, R any](b board.Board[K, R], title func(R) string) boardView[R] {
	v := boardView[R]{Unmatched: b.Unmatched, Total: b.Len(), title: title}
	if v.Unmatched == nil {
		v.Unmatched = []R{}
	}
	for _, c := range b.Columns {
		items := c.Items
		if items == nil {
			items = []R{}
		}
		v.Columns = append(v.Columns, boardColumn[R]{Key: string(c.Key), Count: len(items), Items: items})
	}
	return v
}

func (boardView[R]) Header() []string { return []string{"Column", "Count", "Records"} }

func (v boardView[R]) Rows() [][]string {
	rows := make([][]string, 0, len(v.Columns)+1)
	for _, c := range v.Columns {
		rows = append(rows, []string{c.Key, strconv.Itoa(c.Count), v.titles(c.Items)})
	}
	if len(v.Unmatched) > 0 {
		rows = append(rows, []string{"Unmatched", strconv.Itoa(len(v.Unmatched)), v.titles(v.Unmatched)})
	}
	return rows
}

func (v boardView[R]) titles(items []R) string {
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, v.title(it))
	}
	return strings.Join(names, ", ")
}

// metricsView flattens the dashboard for --format table.
type metricsView model.Metrics

func (m metricsView) MarshalJSON() ([]byte, error) { return json.Marshal(model.Metrics(m)) }

func (metricsView) Header() []string { return []string{"Metric", "Value"} }

func (m metricsView) Rows() [][]string {
	rows := [][]string{
		{"Total Leads", strconv.Itoa(m.TotalLeads)},
		{"Total Orders", strconv.Itoa(m.TotalOrders)},
		{"Follow-ups Due This Week", strconv.Itoa(m.FollowupsDueThisWeek)},
	}
	for _, st := range model.Stages {
		if n := m.LeadsByStage[string(st)]; n > 0 {
			rows = append(rows, []string{"Leads: " + string(st), strconv.Itoa(n)})
		}
	}
	for _, st := range model.Statuses {
		if n := m.OrdersByStatus[string(st)]; n > 0 {
			rows = append(rows, []string{"Orders: " + string(st), strconv.Itoa(n)})
		}
	}
	for _, l := range m.OverdueFollowups {
		rows = append(rows, []string{"Overdue: " + l.Name, orNA(l.Get("follow_up_date"))})
	}
	return rows
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
