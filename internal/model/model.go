package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// ID is a server-assigned record identifier. The backend uses integer keys, but
// the client treats ids as opaque strings.
type ID string

func (id ID) String() string { return string(id) }

func (id ID) IsZero() bool { return strings.TrimSpace(string(id)) == "" }

func (id ID) numeric() bool {
	s := string(id)
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return false
	}
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

type Stage string

const (
	StageNewLead      Stage = "New Lead"
	StageContacted    Stage = "Contacted"
	StageQualified    Stage = "Qualified"
	StageProposalSent Stage = "Proposal Sent"
	StageClosedWon    Stage = "Closed Won"
	StageClosedLost   Stage = "Closed Lost"
)

// Stages is the lead pipeline in display order.
var Stages = []Stage{
	StageNewLead,
	StageContacted,
	StageQualified,
	StageProposalSent,
	StageClosedWon,
	StageClosedLost,
}

func ParseStage(s string) (Stage, bool) {
	for _, st := range Stages {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Closed reports whether the stage ends the pipeline.
func (s Stage) Closed() bool { return s == StageClosedWon || s == StageClosedLost }

type Status string

const (
	StatusReceived        Status = "Received"
	StatusInDevelopment   Status = "In Development"
	StatusReadyToDispatch Status = "Ready to Dispatch"
	StatusDispatched      Status = "Dispatched"
)

// Statuses is the order lifecycle in display order.
var Statuses = []Status{
	StatusReceived,
	StatusInDevelopment,
	StatusReadyToDispatch,
	StatusDispatched,
}

func ParseStatus(s string) (Status, bool) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// FilterAll is the "no filter" choice offered next to the enumerations.
const FilterAll = "All"

type Lead struct {
	ID              ID         `json:"id"`
	Name            string     `json:"name"`
	Contact         string     `json:"contact"`
	Company         string     `json:"company,omitempty"`
	ProductInterest string     `json:"product_interest,omitempty"`
	Stage           Stage      `json:"stage"`
	FollowUpDate    *Date      `json:"follow_up_date,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	CreatedAt       Timestamp  `json:"created_at"`
	UpdatedAt       *Timestamp `json:"updated_at,omitempty"`
}

type Order struct {
	ID             ID         `json:"id"`
	LeadID         ID         `json:"lead_id"`
	ProductName    string     `json:"product_name"`
	Quantity       int        `json:"quantity"`
	OrderDate      Date       `json:"order_date"`
	Status         Status     `json:"status"`
	DeliveryDate   *Date      `json:"delivery_date,omitempty"`
	TrackingNumber string     `json:"tracking_number,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	CreatedAt      Timestamp  `json:"created_at"`
	UpdatedAt      *Timestamp `json:"updated_at,omitempty"`
}

type Metrics struct {
	TotalLeads           int            `json:"total_leads"`
	LeadsByStage         map[string]int `json:"leads_by_stage"`
	FollowupsDueThisWeek int            `json:"followups_due_this_week"`
	OverdueFollowups     []Lead         `json:"overdue_followups"`
	TotalOrders          int            `json:"total_orders"`
	OrdersByStatus       map[string]int `json:"orders_by_status"`
}

// LeadName resolves an order's lead for display. Dangling references render as "N/A".
func LeadName(leads []Lead, id ID) string {
	for _, l := range leads {
		if l.ID == id {
			return l.Name
		}
	}
	return "N/A"
}

var (
	ErrUnknownField   = errors.New("unknown field")
	ErrImmutableField = errors.New("field cannot be changed")
)
