package tui

import (
	"trackflow-cli/internal/model"
	"trackflow-cli/internal/refresh"
)

type section int

const (
	sectionDashboard section = iota
	sectionLeads
	sectionOrders
)

var sections = []section{sectionDashboard, sectionLeads, sectionOrders}

func (s section) String() string {
	switch s {
	case sectionDashboard:
		return "Dashboard"
	case sectionLeads:
		return "Leads"
	case sectionOrders:
		return "Orders"
	}
	return ""
}

type projection int

const (
	projectionTable projection = iota
	projectionKanban
)

func (p projection) String() string {
	if p == projectionKanban {
		return "kanban"
	}
	return "table"
}

type resource int

const (
	resourceLeads resource = iota
	resourceOrders
)

func (r resource) noun() string {
	if r == resourceOrders {
		return "order"
	}
	return "lead"
}

type modalKind int

const (
	modalNone modalKind = iota
	modalForm
	modalConfirmDelete
	modalPickCategory
)

type flashKind int

const (
	flashInfo flashKind = iota
	flashError
)

// loadedMsg carries one collection load back to the update loop.
type loadedMsg[R any] struct {
	res refresh.Result[R]
}

// leadDirMsg carries one load of the lead directory.
type leadDirMsg struct {
	res refresh.Result[model.Lead]
}

// writeDoneMsg reports a create, update or delete. failure is the message prefix
// shown when err is set; success is shown otherwise (when not empty).
type writeDoneMsg struct {
	res      resource
	kind     refresh.WriteKind
	id       model.ID
	fromEdit bool
	failure  string
	success  string
	err      error
}

type flashDoneMsg struct{ seq int }
