package api

import (
	"net/url"
	"strings"

	"trackflow-cli/internal/model"
)

type LeadFilter struct {
	Stage        string
	FollowUpDate string
}

// Query serializes only filter values that name a real stage or date. Empty values,
// "All" and anything unrecognized leave the collection unfiltered.
func (f LeadFilter) Query() url.Values {
	q := url.Values{}
	if st, ok := model.ParseStage(strings.TrimSpace(f.Stage)); ok {
		q.Set("stage", string(st))
	}
	if d, err := model.NormalizeDate(f.FollowUpDate); err == nil && d != nil {
		q.Set("follow_up_date", d.String())
	}
	return q
}

type OrderFilter struct {
	LeadID model.ID
	Status string
}

func (f OrderFilter) Query() url.Values {
	q := url.Values{}
	if !f.LeadID.IsZero() {
		q.Set("lead_id", strings.TrimSpace(f.LeadID.String()))
	}
	if st, ok := model.ParseStatus(strings.TrimSpace(f.Status)); ok {
		q.Set("status", string(st))
	}
	return q
}

// LeadInput is the create body. The server picks the initial stage.
type LeadInput struct {
	Name            string               `json:"name"`
	Contact         string               `json:"contact"`
	Company         Nullable[string]     `json:"company,omitzero"`
	ProductInterest Nullable[string]     `json:"product_interest,omitzero"`
	FollowUpDate    Nullable[model.Date] `json:"follow_up_date,omitzero"`
	Notes           Nullable[string]     `json:"notes,omitzero"`
}

func LeadInputFrom(l model.Lead) LeadInput {
	return LeadInput{
		Name:            strings.TrimSpace(l.Name),
		Contact:         strings.TrimSpace(l.Contact),
		Company:         OptString(l.Company),
		ProductInterest: OptString(l.ProductInterest),
		FollowUpDate:    OptDate(l.FollowUpDate),
		Notes:           OptString(l.Notes),
	}
}

// LeadPatch carries only the fields being changed.
type LeadPatch struct {
	Name            Nullable[string]      `json:"name,omitzero"`
	Contact         Nullable[string]      `json:"contact,omitzero"`
	Company         Nullable[string]      `json:"company,omitzero"`
	ProductInterest Nullable[string]      `json:"product_interest,omitzero"`
	Stage           Nullable[model.Stage] `json:"stage,omitzero"`
	FollowUpDate    Nullable[model.Date]  `json:"follow_up_date,omitzero"`
	Notes           Nullable[string]      `json:"notes,omitzero"`
}

// LeadPatchFrom sends every editable field of a working copy.
func LeadPatchFrom(l model.Lead) LeadPatch {
	return LeadPatch{
		Name:            Some(strings.TrimSpace(l.Name)),
		Contact:         Some(strings.TrimSpace(l.Contact)),
		Company:         OptString(l.Company),
		ProductInterest: OptString(l.ProductInterest),
		Stage:           Some(l.Stage),
		FollowUpDate:    OptDate(l.FollowUpDate),
		Notes:           OptString(l.Notes),
	}
}

func StagePatch(st model.Stage) LeadPatch { return LeadPatch{Stage: Some(st)} }

type OrderInput struct {
	LeadID         model.ID             `json:"lead_id"`
	ProductName    string               `json:"product_name"`
	Quantity       int                  `json:"quantity"`
	OrderDate      model.Date           `json:"order_date"`
	Status         model.Status         `json:"status"`
	DeliveryDate   Nullable[model.Date] `json:"delivery_date,omitzero"`
	TrackingNumber Nullable[string]     `json:"tracking_number,omitzero"`
	Notes          Nullable[string]     `json:"notes,omitzero"`
}

// OrderInputFrom fills the creation defaults: today's order date and the Received status.
func OrderInputFrom(o model.Order) OrderInput {
	in := OrderInput{
		LeadID:         o.LeadID,
		ProductName:    strings.TrimSpace(o.ProductName),
		Quantity:       o.Quantity,
		OrderDate:      o.OrderDate,
		Status:         o.Status,
		DeliveryDate:   OptDate(o.DeliveryDate),
		TrackingNumber: OptString(o.TrackingNumber),
		Notes:          OptString(o.Notes),
	}
	if in.OrderDate.IsZero() {
		in.OrderDate = model.Today()
	}
	if in.Status == "" {
		in.Status = model.StatusReceived
	}
	return in
}

// OrderPatch never carries lead_id; the lead is fixed at creation.
type OrderPatch struct {
	ProductName    Nullable[string]       `json:"product_name,omitzero"`
	Quantity       Nullable[int]          `json:"quantity,omitzero"`
	OrderDate      Nullable[model.Date]   `json:"order_date,omitzero"`
	Status         Nullable[model.Status] `json:"status,omitzero"`
	DeliveryDate   Nullable[model.Date]   `json:"delivery_date,omitzero"`
	TrackingNumber Nullable[string]       `json:"tracking_number,omitzero"`
	Notes          Nullable[string]       `json:"notes,omitzero"`
}

func OrderPatchFrom(o model.Order) OrderPatch {
	p := OrderPatch{
		ProductName:    Some(strings.TrimSpace(o.ProductName)),
		Quantity:       Some(o.Quantity),
		Status:         Some(o.Status),
		DeliveryDate:   OptDate(o.DeliveryDate),
		TrackingNumber: OptString(o.TrackingNumber),
		Notes:          OptString(o.Notes),
	}
	if !o.OrderDate.IsZero() {
		p.OrderDate = Some(o.OrderDate)
	}
	return p
}

func StatusPatch(st model.Status) OrderPatch { return OrderPatch{Status: Some(st)} }

// LeadPatchFields is LeadPatchFrom limited to the named fields; everything else is
// left unset and keeps its server value.
func LeadPatchFields(l model.Lead, fields ...string) LeadPatch {
	full := LeadPatchFrom(l)
	var p LeadPatch
	for _, f := range fields {
		switch f {
		case "name":
			p.Name = full.Name
		case "contact":
			p.Contact = full.Contact
		case "company":
			p.Company = full.Company
		case "product_interest":
			p.ProductInterest = full.ProductInterest
		case "stage":
			p.Stage = full.Stage
		case "follow_up_date":
			p.FollowUpDate = full.FollowUpDate
		case "notes":
			p.Notes = full.Notes
		}
	}
	return p
}

func OrderPatchFields(o model.Order, fields ...string) OrderPatch {
	full := OrderPatchFrom(o)
	var p OrderPatch
	for _, f := range fields {
		switch f {
		case "product_name":
			p.ProductName = full.ProductName
		case "quantity":
			p.Quantity = full.Quantity
		case "order_date":
			p.OrderDate = full.OrderDate
		case "status":
			p.Status = full.Status
		case "delivery_date":
			p.DeliveryDate = full.DeliveryDate
		case "tracking_number":
			p.TrackingNumber = full.TrackingNumber
		case "notes":
			p.Notes = full.Notes
		}
	}
	return p
}
