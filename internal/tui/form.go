package tui

import (
	"errors"
	"strings"

	"trackflow-cli/internal/model"
	"trackflow-cli/internal/validate"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	msgNoLeads    = "No leads available. Create a lead first."
	msgDateFormat = "Use the YYYY-MM-DD format."
)

type formField struct {
	key   string
	label string
	input textinput.Model
	// area replaces input for multi-line fields.
	area *textarea.Model

	// choices turns the field into a picker cycled with left/right.
	choices  []string
	choice   int
	disabled bool
}

func (f formField) value() string {
	if f.choices != nil {
		if f.disabled || f.choice < 0 || f.choice >= len(f.choices) {
			return ""
		}
		return f.choices[f.choice]
	}
	if f.area != nil {
		return strings.TrimSpace(f.area.Value())
	}
	return strings.TrimSpace(f.input.Value())
}

func (f *formField) focus() {
	switch {
	case f.choices != nil:
	case f.area != nil:
		f.area.Focus()
	default:
		f.input.Focus()
	}
}

func (f *formField) blur() {
	switch {
	case f.choices != nil:
	case f.area != nil:
		f.area.Blur()
	default:
		f.input.Blur()
	}
}

// form is a create form for a lead or an order.
type form struct {
	res    resource
	title  string
	fields []formField
	focus  int
	errs   validate.Errors

	// leadIDs is aligned with the choices of the lead_id picker.
	leadIDs []model.ID
}

func newTextField(key, label, placeholder, value string) formField {
	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = placeholder
	in.CharLimit = 500
	in.SetValue(value)
	return formField{key: key, label: label, input: in}
}

// newAreaField is a multi-line field. Enter submits the form, so newlines are
// typed with ctrl+j or alt+enter.
func newAreaField(key, label, placeholder string) formField {
	ta := textarea.New()
	ta.Prompt = ""
	ta.Placeholder = placeholder
	ta.ShowLineNumbers = false
	ta.CharLimit = 2000
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline = keyBinding("ctrl+j", "alt+enter")
	return formField{key: key, label: label, area: &ta}
}

func keyBinding(keys ...string) key.Binding { return key.NewBinding(key.WithKeys(keys...)) }

func newChoiceField(key, label string, choices []string, choice int) formField {
	return formField{key: key, label: label, choices: choices, choice: choice}
}

func newLeadForm() *form {
	f := &form{
		res:   resourceLeads,
		title: "Add New Lead",
		fields: []formField{
			newTextField("name", "Name", "", ""),
			newTextField("contact", "Contact", "email or 10-digit phone", ""),
			newTextField("company", "Company", "optional", ""),
			newTextField("product_interest", "Product Interest", "optional", ""),
			newTextField("follow_up_date", "Follow-up Date", "YYYY-MM-DD", ""),
			newAreaField("notes", "Notes", "optional, markdown"),
		},
	}
	f.setFocus(0)
	return f
}

// newOrderForm defaults to the first lead, quantity 1, today's date and the
// initial status. Without leads the lead picker is disabled.
func newOrderForm(leads []model.Lead, today model.Date) *form {
	names := make([]string, len(leads))
	ids := make([]model.ID, len(leads))
	for i, l := range leads {
		names[i] = l.Name
		ids[i] = l.ID
	}
	statuses := make([]string, len(model.Statuses))
	for i, s := range model.Statuses {
		statuses[i] = string(s)
	}

	leadField := newChoiceField("lead_id", "Lead", names, 0)
	if len(leads) == 0 {
		leadField.disabled = true
		leadField.choice = -1
	}
	f := &form{
		res:     resourceOrders,
		title:   "Add New Order",
		leadIDs: ids,
		fields: []formField{
			leadField,
			newTextField("product_name", "Product Name", "", ""),
			newTextField("quantity", "Quantity", "", "1"),
			newTextField("order_date", "Order Date", "YYYY-MM-DD", today.String()),
			newChoiceField("status", "Status", statuses, 0),
			newTextField("delivery_date", "Delivery Date", "optional, YYYY-MM-DD", ""),
			newTextField("tracking_number", "Tracking Number", "optional", ""),
			newAreaField("notes", "Notes", "optional, markdown"),
		},
	}
	f.setFocus(0)
	return f
}

func (f *form) setFocus(i int) {
	n := len(f.fields)
	if n == 0 {
		return
	}
	i = ((i % n) + n) % n
	for j := range f.fields {
		f.fields[j].blur()
	}
	f.focus = i
	f.fields[i].focus()
}

func (f *form) field(key string) *formField {
	for i := range f.fields {
		if f.fields[i].key == key {
			return &f.fields[i]
		}
	}
	return nil
}

// update handles navigation keys and passes the rest to the focused input.
// It reports whether enter was pressed (submit).
func (f *form) update(msg tea.KeyMsg) (submit bool, cmd tea.Cmd) {
	switch msg.String() {
	case "enter":
		return true, nil
	case "tab", "down":
		f.setFocus(f.focus + 1)
		return false, nil
	case "shift+tab", "up":
		f.setFocus(f.focus - 1)
		return false, nil
	}

	fld := &f.fields[f.focus]
	if fld.choices != nil {
		if fld.disabled || len(fld.choices) == 0 {
			return false, nil
		}
		switch msg.String() {
		case "left", "h":
			fld.choice = (fld.choice - 1 + len(fld.choices)) % len(fld.choices)
		case "right", "l", " ":
			fld.choice = (fld.choice + 1) % len(fld.choices)
		}
		return false, nil
	}
	if fld.area != nil {
		*fld.area, cmd = fld.area.Update(msg)
		return false, cmd
	}
	fld.input, cmd = fld.input.Update(msg)
	return false, cmd
}

// lead builds a lead from the form. Parse and validation failures come back as
// per-field messages and nothing should be sent.
func (f *form) lead() (model.Lead, validate.Errors) {
	var l model.Lead
	errs := validate.Errors{}
	for _, fld := range f.fields {
		if err := l.Set(fld.key, fld.value()); err != nil {
			errs[fld.key] = fieldMessage(fld.key, fld.value(), err)
		}
	}
	mergeErrors(errs, validate.Lead(l))
	if len(errs) > 0 {
		return l, errs
	}
	return l, nil
}

func (f *form) order() (model.Order, validate.Errors) {
	var o model.Order
	errs := validate.Errors{}
	for _, fld := range f.fields {
		if fld.key == "lead_id" {
			if !fld.disabled && fld.choice >= 0 && fld.choice < len(f.leadIDs) {
				o.LeadID = f.leadIDs[fld.choice]
			}
			continue
		}
		if err := o.Set(fld.key, fld.value()); err != nil {
			errs[fld.key] = fieldMessage(fld.key, fld.value(), err)
		}
	}
	mergeErrors(errs, validate.NewOrder(o))
	if lf := f.field("lead_id"); lf != nil && lf.disabled {
		errs["lead_id"] = msgNoLeads
	}
	if len(errs) > 0 {
		return o, errs
	}
	return o, nil
}

func fieldMessage(key, value string, err error) string {
	switch key {
	case "quantity":
		return validate.MsgQuantity
	case "order_date":
		if value == "" {
			return validate.MsgOrderDate
		}
		return msgDateFormat
	case "follow_up_date", "delivery_date":
		return msgDateFormat
	}
	return err.Error()
}

// mergeErrors adds validation messages for fields that do not already have one.
func mergeErrors(dst validate.Errors, err error) {
	var verrs validate.Errors
	if !errors.As(err, &verrs) {
		return
	}
	for k, v := range verrs {
		if _, ok := dst[k]; !ok {
			dst[k] = v
		}
	}
}

// firstError picks the message of the first field, in the given order, that failed.
func firstError(err error, fields []string) (field, msg string) {
	var verrs validate.Errors
	if !errors.As(err, &verrs) {
		return "", err.Error()
	}
	for _, f := range fields {
		if m, ok := verrs[f]; ok {
			return f, m
		}
	}
	for f, m := range verrs {
		return f, m
	}
	return "", err.Error()
}

// focusFirstError moves focus to the first field that has an error.
func (f *form) focusFirstError() {
	for i, fld := range f.fields {
		if _, ok := f.errs[fld.key]; ok {
			f.setFocus(i)
			return
		}
	}
}

func (f *form) view(width int) string {
	bodyW := modalBodyWidth(width)
	labelW := 18
	inputW := max(bodyW-labelW-1, 8)

	labelStyle := lipgloss.NewStyle().Width(labelW).Foreground(colorChromeMutedFg)
	focusLabel := labelStyle.Bold(true).Foreground(colorAccent)
	inputStyle := lipgloss.NewStyle().Width(inputW).Background(colorInputBg)

	lines := make([]string, 0, len(f.fields)*2+2)
	for i, fld := range f.fields {
		ls := labelStyle
		if i == f.focus {
			ls = focusLabel
		}
		var val string
		switch {
		case fld.choices != nil && fld.disabled:
			val = styleMuted().Render("(no leads)")
		case fld.choices != nil:
			val = "‹ " + fld.value() + " ›"
		case fld.area != nil:
			fld.area.SetWidth(inputW - 1)
			val = fld.area.View()
		default:
			fld.input.Width = inputW - 1
			val = fld.input.View()
		}
		lines = append(lines, ls.Render(fld.label)+" "+inputStyle.Render(val))
		if msg := f.errs[fld.key]; msg != "" {
			lines = append(lines, strings.Repeat(" ", labelW+1)+styleError().Render(msg))
		}
	}
	lines = append(lines, "", styleMuted().Render("tab/shift+tab: field   ←/→: choose   ctrl+j: newline   enter: submit   esc: cancel"))
	return renderModalBox(width, f.title, strings.Join(lines, "\n"))
}
