package tui

import (
	"context"

	"trackflow-cli/internal/board"
	"trackflow-cli/internal/edit"
	"trackflow-cli/internal/model"
	"trackflow-cli/internal/refresh"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type column[R any] struct {
	title string
	// field is the working-copy field shown in this column while its row is edited.
	field string
	value func(R) string
	width int
}

// listView is one collection section: the snapshot, the single-record editor,
// both projections and the selection within them.
type listView[R any, F any, K ~string] struct {
	res     resource
	coll    *refresh.Collection[R, F]
	editor  *edit.Editor[R]
	columns []column[R]
	// fields are the editable fields in tab order; keyField is the enumerated one.
	fields   []string
	keyField string
	keys     []K
	keyOf    func(R) K
	idOf     func(R) model.ID
	get      func(R, string) string
	card     func(R) (title string, lines []string)
	check    func(R) error

	save   func(ctx context.Context, id model.ID, working R) error
	remove func(ctx context.Context, id model.ID) error
	setKey func(ctx context.Context, id model.ID, key K) error

	projection projection
	row        int
	kanban     kanbanSelection

	editField int
	input     textinput.Model
	editErr   string
}

func newInlineInput() textinput.Model {
	in := textinput.New()
	in.Prompt = ""
	in.CharLimit = 500
	return in
}

func (v *listView[R, F, K]) items() []R { return v.coll.Items() }

func (v *listView[R, F, K]) board() board.Board[K, R] {
	return board.Partition(v.items(), v.keys, v.keyOf)
}

func (v *listView[R, F, K]) kanbanCols() []kanbanCol[R] {
	b := v.board()
	cols := make([]kanbanCol[R], 0, len(b.Columns)+1)
	for _, c := range b.Columns {
		cols = append(cols, kanbanCol[R]{label: string(c.Key), items: c.Items})
	}
	if len(b.Unmatched) > 0 {
		cols = append(cols, kanbanCol[R]{label: "Unmatched", items: b.Unmatched, unmatched: true})
	}
	return cols
}

func (v *listView[R, F, K]) indexOf(id model.ID) int {
	for i, it := range v.items() {
		if v.idOf(it) == id {
			return i
		}
	}
	return -1
}

func (v *listView[R, F, K]) clampRow() {
	n := len(v.items())
	if v.row >= n {
		v.row = n - 1
	}
	if v.row < 0 {
		v.row = 0
	}
}

// selected returns the record under the cursor of the active projection.
func (v *listView[R, F, K]) selected() (R, bool) {
	var zero R
	if v.projection == projectionKanban {
		cols := v.kanbanCols()
		v.kanban = clampKanban(cols, v.kanban, v.idOf)
		if v.kanban.Item < 0 {
			return zero, false
		}
		return cols[v.kanban.Col].items[v.kanban.Item], true
	}
	v.clampRow()
	items := v.items()
	if len(items) == 0 {
		return zero, false
	}
	return items[v.row], true
}

func (v *listView[R, F, K]) move(delta int) {
	if v.projection == projectionKanban {
		cols := v.kanbanCols()
		sel := clampKanban(cols, v.kanban, v.idOf)
		sel.Item += delta
		sel.ItemID = ""
		v.kanban = clampKanban(cols, sel, v.idOf)
		return
	}
	v.row += delta
	v.clampRow()
}

func (v *listView[R, F, K]) moveCol(delta int) {
	if v.projection != projectionKanban {
		return
	}
	cols := v.kanbanCols()
	sel := clampKanban(cols, v.kanban, v.idOf)
	sel.Col += delta
	sel.ItemID = ""
	v.kanban = clampKanban(cols, sel, v.idOf)
}

// toggleProjection flips between table and kanban, keeping the selected record.
// It only reads the snapshot already held.
func (v *listView[R, F, K]) toggleProjection() {
	rec, ok := v.selected()
	if v.projection == projectionTable {
		v.projection = projectionKanban
		if ok {
			v.kanban = kanbanSelection{ItemID: v.idOf(rec)}
		}
		v.kanban = clampKanban(v.kanbanCols(), v.kanban, v.idOf)
		return
	}
	v.projection = projectionTable
	if ok {
		if i := v.indexOf(v.idOf(rec)); i >= 0 {
			v.row = i
		}
	}
	v.clampRow()
}

// beginEdit puts the selected record into edit mode. An edit in progress on another
// record is dropped without saving.
func (v *listView[R, F, K]) beginEdit() bool {
	rec, ok := v.selected()
	if !ok {
		return false
	}
	v.editor.Begin(v.idOf(rec), rec)
	v.editField = 0
	v.editErr = ""
	v.loadInput()
	return true
}

func (v *listView[R, F, K]) cancelEdit() {
	v.editor.Cancel()
	v.editErr = ""
	v.input.Blur()
}

func (v *listView[R, F, K]) editingField() string {
	if v.editField < 0 || v.editField >= len(v.fields) {
		return ""
	}
	return v.fields[v.editField]
}

func (v *listView[R, F, K]) loadInput() {
	ed, ok := v.editor.Current()
	if !ok {
		return
	}
	v.input.SetValue(v.get(ed.Working, v.editingField()))
	v.input.CursorEnd()
	v.input.Focus()
}

// commitInput writes the focused input into the working copy. Enumerated fields
// are changed in place and have nothing to commit.
func (v *listView[R, F, K]) commitInput() error {
	field := v.editingField()
	if field == v.keyField {
		return nil
	}
	if err := v.editor.Change(field, v.input.Value()); err != nil {
		v.editErr = fieldMessage(field, v.input.Value(), err)
		return err
	}
	v.editErr = ""
	return nil
}

func (v *listView[R, F, K]) focusEditField(i int) {
	n := len(v.fields)
	v.editField = ((i % n) + n) % n
	v.loadInput()
}

func (v *listView[R, F, K]) cycleKey(delta int) {
	ed, ok := v.editor.Current()
	if !ok || len(v.keys) == 0 {
		return
	}
	cur := v.get(ed.Working, v.keyField)
	idx := -1
	for i, k := range v.keys {
		if string(k) == cur {
			idx = i
			break
		}
	}
	next := (idx + delta + len(v.keys)) % len(v.keys)
	if idx < 0 && delta < 0 {
		next = len(v.keys) - 1
	}
	_ = v.editor.Change(v.keyField, string(v.keys[next]))
}

type editAction int

const (
	editNone editAction = iota
	editSave
	editCancel
	editPrev
	editNext
)

// editKey handles a key while a record is being edited.
func (v *listView[R, F, K]) editKey(msg tea.KeyMsg) (editAction, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return editCancel, nil
	case "enter":
		if v.commitInput() != nil {
			return editNone, nil
		}
		return editSave, nil
	case "tab":
		if v.commitInput() == nil {
			v.focusEditField(v.editField + 1)
		}
		return editNone, nil
	case "shift+tab":
		if v.commitInput() == nil {
			v.focusEditField(v.editField - 1)
		}
		return editNone, nil
	case "up":
		return editPrev, nil
	case "down":
		return editNext, nil
	}
	if v.editingField() == v.keyField {
		switch msg.String() {
		case "left", "h":
			v.cycleKey(-1)
		case "right", "l", " ":
			v.cycleKey(1)
		}
		return editNone, nil
	}
	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return editNone, cmd
}

// prepareSave validates the working copy and marks the save as started.
func (v *listView[R, F, K]) prepareSave() (edit.Editing[R], bool) {
	ed, ok := v.editor.Current()
	if !ok {
		return ed, false
	}
	if err := v.check(ed.Working); err != nil {
		field, msg := firstError(err, v.fields)
		v.editErr = msg
		for i, f := range v.fields {
			if f == field {
				v.focusEditField(i)
				break
			}
		}
		return ed, false
	}
	ed, err := v.editor.StartSave()
	if err != nil {
		v.editErr = err.Error()
		return ed, false
	}
	v.editErr = ""
	return ed, true
}
