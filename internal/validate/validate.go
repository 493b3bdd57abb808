// Package validate checks lead and order forms before anything is sent to the server.
package validate

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"trackflow-cli/internal/model"

	"github.com/go-playground/validator/v10"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\d{10}$`)
)

// IsContact reports whether s is an email address or exactly ten digits.
func IsContact(s string) bool {
	return emailPattern.MatchString(s) || phonePattern.MatchString(s)
}

// ContactValidator is registered as the "contact" tag.
var ContactValidator = func(fl validator.FieldLevel) bool {
	return IsContact(fl.Field().String())
}

const (
	MsgNameRequired    = "Name is required."
	MsgContactRequired = "Contact is required."
	MsgContactInvalid  = "Must be a valid email or 10-digit phone number."
	MsgLeadRequired    = "Please select a lead."
	MsgProductRequired = "Product name is required."
	MsgQuantity        = "Quantity must be at least 1."
	MsgOrderDate       = "Order date is required."
)

var fieldMessages = map[string]string{
	"leadForm.Name.required":         MsgNameRequired,
	"leadForm.Contact.required":      MsgContactRequired,
	"leadForm.Contact.contact":       MsgContactInvalid,
	"orderForm.LeadID.required":      MsgLeadRequired,
	"orderForm.ProductName.required": MsgProductRequired,
	"orderForm.Quantity.gte":         MsgQuantity,
	"orderForm.OrderDate.required":   MsgOrderDate,
}

// Stage and status are not checked here: a record may carry a value the server
// assigned outside the known set, and model's setters refuse unknown values.
type leadForm struct {
	Name    string `json:"name" validate:"required"`
	Contact string `json:"contact" validate:"required,contact"`
}

type orderForm struct {
	LeadID      string `json:"lead_id" validate:"required"`
	ProductName string `json:"product_name" validate:"required"`
	Quantity    int    `json:"quantity" validate:"gte=1"`
	OrderDate   string `json:"order_date" validate:"required"`
}

// Errors maps wire field names to a message for the form.
type Errors map[string]string

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("contact", ContactValidator)
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			return jsonName(f.Tag.Get("json"))
		})
	})
	return validate
}

// Lead validates the create/edit form of a lead. A nil return means the form may be sent.
func Lead(l model.Lead) error {
	return check(leadForm{
		Name:    strings.TrimSpace(l.Name),
		Contact: strings.TrimSpace(l.Contact),
	})
}

// Order validates the create/edit form of an order.
func Order(o model.Order) error {
	f := orderForm{
		LeadID:      strings.TrimSpace(o.LeadID.String()),
		ProductName: strings.TrimSpace(o.ProductName),
		Quantity:    o.Quantity,
	}
	if !o.OrderDate.IsZero() {
		f.OrderDate = o.OrderDate.String()
	}
	return check(f)
}

// NewOrder validates a form for an order that does not exist yet; the order date
// defaults to today when left empty.
func NewOrder(o model.Order) error {
	if o.OrderDate.IsZero() {
		o.OrderDate = model.Today()
	}
	return Order(o)
}

func check(form any) error {
	err := instance().Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := Errors{}
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := out[field]; seen {
			continue
		}
		msg, ok := fieldMessages[fe.StructNamespace()+"."+fe.Tag()]
		if !ok {
			msg = field + " is invalid."
		}
		out[field] = msg
	}
	return out
}

// Field returns the message for one field, or "".
func Field(err error, field string) string {
	var errs Errors
	if errors.As(err, &errs) {
		return errs[field]
	}
	return ""
}

func jsonName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	return name
}
