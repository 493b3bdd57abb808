package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Editable fields, in form order. Names match the wire keys.
var (
	LeadFields  = []string{"name", "contact", "company", "product_interest", "stage", "follow_up_date", "notes"}
	OrderFields = []string{"product_name", "quantity", "order_date", "status", "delivery_date", "tracking_number", "notes"}
)

// Set changes one field of a lead from its text form.
func (l *Lead) Set(field, value string) error {
	switch field {
	case "name":
		l.Name = value
	case "contact":
		l.Contact = value
	case "company":
		l.Company = value
	case "product_interest":
		l.ProductInterest = value
	case "notes":
		l.Notes = value
	case "stage":
		st, ok := ParseStage(value)
		if !ok {
			return fmt.Errorf("unknown stage %q", value)
		}
		l.Stage = st
	case "follow_up_date":
		d, err := NormalizeDate(value)
		if err != nil {
			return err
		}
		l.FollowUpDate = d
	case "id", "created_at", "updated_at":
		return fmt.Errorf("%w: %s", ErrImmutableField, field)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}

// Get returns the text form of one lead field.
func (l Lead) Get(field string) string {
	switch field {
	case "name":
		return l.Name
	case "contact":
		return l.Contact
	case "company":
		return l.Company
	case "product_interest":
		return l.ProductInterest
	case "notes":
		return l.Notes
	case "stage":
		return string(l.Stage)
	case "follow_up_date":
		if l.FollowUpDate == nil {
			return ""
		}
		return l.FollowUpDate.String()
	case "id":
		return l.ID.String()
	}
	return ""
}

// Set changes one field of an order from its text form. The lead reference is
// fixed once the order exists.
func (o *Order) Set(field, value string) error {
	switch field {
	case "product_name":
		o.ProductName = value
	case "tracking_number":
		o.TrackingNumber = value
	case "notes":
		o.Notes = value
	case "quantity":
		n, err := ParseQuantity(value)
		if err != nil {
			return err
		}
		o.Quantity = n
	case "order_date":
		d, err := ParseDate(value)
		if err != nil {
			return err
		}
		o.OrderDate = d
	case "delivery_date":
		d, err := NormalizeDate(value)
		if err != nil {
			return err
		}
		o.DeliveryDate = d
	case "status":
		st, ok := ParseStatus(value)
		if !ok {
			return fmt.Errorf("unknown status %q", value)
		}
		o.Status = st
	case "id", "lead_id", "created_at", "updated_at":
		return fmt.Errorf("%w: %s", ErrImmutableField, field)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}

func (o Order) Get(field string) string {
	switch field {
	case "product_name":
		return o.ProductName
	case "tracking_number":
		return o.TrackingNumber
	case "notes":
		return o.Notes
	case "quantity":
		return strconv.Itoa(o.Quantity)
	case "order_date":
		return o.OrderDate.String()
	case "delivery_date":
		if o.DeliveryDate == nil {
			return ""
		}
		return o.DeliveryDate.String()
	case "status":
		return string(o.Status)
	case "lead_id":
		return o.LeadID.String()
	case "id":
		return o.ID.String()
	}
	return ""
}

// ParseQuantity accepts a positive whole number.
func ParseQuantity(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("quantity must be a positive whole number")
	}
	return n, nil
}
