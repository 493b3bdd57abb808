package edit

import (
	"context"
	"errors"
	"testing"
	"time"

	"trackflow-cli/internal/model"
)

func newLeadEditor() *Editor[model.Lead] { return New((*model.Lead).Set) }

func TestChange_RequiresEditing(t *testing.T) {
	t.Parallel()

	ed := newLeadEditor()
	if err := ed.Change("name", "x"); !errors.Is(err, ErrNotEditing) {
		t.Fatalf("expected ErrNotEditing, got %v", err)
	}
	if _, ok := ed.State().(Viewing[model.Lead]); !ok {
		t.Fatalf("expected Viewing, got %T", ed.State())
	}
}

func TestChange_OnlyTouchesWorkingCopy(t *testing.T) {
	t.Parallel()

	fu := model.NewDate(2025, time.May, 5)
	snapshot := []model.Lead{{ID: "1", Name: "Ada", Contact: "ada@example.com", Stage: model.StageContacted, FollowUpDate: &fu}}

	ed := newLeadEditor()
	ed.Begin(snapshot[0].ID, snapshot[0])
	if err := ed.Change("name", "Ada Lovelace"); err != nil {
		t.Fatalf("Change: %v", err)
	}
	if err := ed.Change("follow_up_date", ""); err != nil {
		t.Fatalf("Change: %v", err)
	}

	cur, ok := ed.Current()
	if !ok {
		t.Fatalf("expected Editing")
	}
	if cur.Working.Name != "Ada Lovelace" || cur.Working.FollowUpDate != nil {
		t.Fatalf("unexpected working copy: %+v", cur.Working)
	}
	if cur.Working.Contact != "ada@example.com" || cur.Working.Stage != model.StageContacted {
		t.Fatalf("untouched fields changed: %+v", cur.Working)
	}
	if snapshot[0].Name != "Ada" || snapshot[0].FollowUpDate == nil {
		t.Fatalf("snapshot must not change while editing: %+v", snapshot[0])
	}
}

func TestChange_RejectedValueKeepsField(t *testing.T) {
	t.Parallel()

	ed := New((*model.Order).Set)
	ed.Begin("7", model.Order{ID: "7", LeadID: "1", Quantity: 3})
	if err := ed.Change("quantity", "0"); err == nil {
		t.Fatalf("expected quantity 0 to be rejected")
	}
	if err := ed.Change("lead_id", "2"); !errors.Is(err, model.ErrImmutableField) {
		t.Fatalf("expected ErrImmutableField, got %v", err)
	}
	cur, _ := ed.Current()
	if cur.Working.Quantity != 3 || cur.Working.LeadID != "1" {
		t.Fatalf("unexpected working copy: %+v", cur.Working)
	}
}

func TestBegin_SwitchingRecordsCancelsWithoutSaving(t *testing.T) {
	t.Parallel()

	ed := newLeadEditor()
	ed.Begin("A", model.Lead{ID: "A", Name: "Ada"})
	_ = ed.Change("name", "edited but unsaved")

	dropped, hadPrior := ed.Begin("B", model.Lead{ID: "B", Name: "Bo"})
	if !hadPrior || dropped.ID != "A" || dropped.Working.Name != "edited but unsaved" {
		t.Fatalf("expected A's edit to be dropped, got %+v (prior=%v)", dropped, hadPrior)
	}

	updates := 0
	err := ed.Save(context.Background(), func(_ context.Context, id model.ID, working model.Lead) error {
		updates++
		if id != "B" || working.Name != "Bo" {
			t.Fatalf("unexpected save target %s %+v", id, working)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if updates != 1 {
		t.Fatalf("expected exactly one update (for B), got %d", updates)
	}
	if _, ok := ed.State().(Viewing[model.Lead]); !ok {
		t.Fatalf("expected Viewing after successful save")
	}
}

func TestSave_FailureKeepsWorkingCopy(t *testing.T) {
	t.Parallel()

	ed := newLeadEditor()
	ed.Begin("1", model.Lead{ID: "1", Name: "Ada"})
	_ = ed.Change("notes", "call back Tuesday")

	boom := errors.New("boom")
	err := ed.Save(context.Background(), func(context.Context, model.ID, model.Lead) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	cur, ok := ed.Current()
	if !ok || cur.Working.Notes != "call back Tuesday" {
		t.Fatalf("expected Editing with working copy intact, got %+v (%v)", cur, ok)
	}
	if ed.Pending() {
		t.Fatalf("failed save must clear pending")
	}
}

func TestCancel_DiscardsWorkingCopy(t *testing.T) {
	t.Parallel()

	ed := newLeadEditor()
	ed.Begin("1", model.Lead{ID: "1", Name: "Ada"})
	_ = ed.Change("name", "X")
	ed.Cancel()
	if ed.IsEditing("1") {
		t.Fatalf("expected Viewing after Cancel")
	}
	ed.Begin("1", model.Lead{ID: "1", Name: "Ada"})
	if cur, _ := ed.Current(); cur.Working.Name != "Ada" {
		t.Fatalf("new edit must start from the record, got %q", cur.Working.Name)
	}
}

func TestSaved_IgnoresStaleRecord(t *testing.T) {
	t.Parallel()

	ed := newLeadEditor()
	ed.Begin("1", model.Lead{ID: "1"})
	if _, err := ed.StartSave(); err != nil {
		t.Fatalf("StartSave: %v", err)
	}
	if _, err := ed.StartSave(); !errors.Is(err, ErrSaveInFlight) {
		t.Fatalf("expected ErrSaveInFlight, got %v", err)
	}
	ed.Begin("2", model.Lead{ID: "2"})
	ed.Saved("1")
	if !ed.IsEditing("2") {
		t.Fatalf("a late save result for 1 must not end the edit of 2")
	}
}
