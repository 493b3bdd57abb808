package refresh

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"trackflow-cli/internal/model"
)

// fakeServer is an in-memory collection whose list may disagree with what writes return.
type fakeServer struct {
	leads  []model.Lead
	lists  int
	lastSt string
}

func (s *fakeServer) list(_ context.Context, stage string) ([]model.Lead, error) {
	s.lists++
	s.lastSt = stage
	out := []model.Lead{}
	for _, l := range s.leads {
		if stage == "" || string(l.Stage) == stage {
			out = append(out, l)
		}
	}
	return out, nil
}

func TestWrite_SnapshotEqualsNextList(t *testing.T) {
	t.Parallel()

	srv := &fakeServer{leads: []model.Lead{{ID: "1", Name: "Ada", Stage: model.StageNewLead}}}
	c := New(srv.list)
	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	// The write "returns" one thing, but the server also normalizes the name and
	// another client added a lead. Only the next list counts.
	var returned model.Lead
	err := c.Write(context.Background(), WriteUpdate, func(context.Context) error {
		srv.leads[0].Stage = model.StageContacted
		srv.leads[0].Name = "ADA"
		srv.leads = append(srv.leads, model.Lead{ID: "2", Name: "Bo", Stage: model.StageQualified})
		returned = model.Lead{ID: "1", Name: "Ada", Stage: model.StageContacted}
		return nil
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	want, _ := srv.list(context.Background(), "")
	if !reflect.DeepEqual(c.Items(), want) {
		t.Fatalf("snapshot %+v != next list %+v", c.Items(), want)
	}
	if c.Items()[0].Name == returned.Name {
		t.Fatalf("snapshot must come from the list, not the write response")
	}
}

func TestWrite_StageChangeVisibleAfterRefresh(t *testing.T) {
	t.Parallel()

	srv := &fakeServer{leads: []model.Lead{{ID: "1", Stage: model.StageNewLead}}}
	c := New(srv.list)
	_ = c.Reload(context.Background())

	_ = c.Write(context.Background(), WriteUpdate, func(context.Context) error {
		srv.leads[0].Stage = model.StageClosedWon
		return nil
	})
	if got := c.Items()[0].Stage; got != model.StageClosedWon {
		t.Fatalf("expected Closed Won after refresh, got %q", got)
	}
}

func TestWrite_FailureSkipsRefresh(t *testing.T) {
	t.Parallel()

	srv := &fakeServer{}
	c := New(srv.list)
	_ = c.Reload(context.Background())
	before := srv.lists

	boom := errors.New("boom")
	if err := c.Write(context.Background(), WriteDelete, func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if srv.lists != before {
		t.Fatalf("failed write must not refresh (lists %d -> %d)", before, srv.lists)
	}
}

func TestRefresh_UsesActiveFilter(t *testing.T) {
	t.Parallel()

	srv := &fakeServer{leads: []model.Lead{{ID: "1", Stage: model.StageQualified}, {ID: "2", Stage: model.StageContacted}}}
	c := New(srv.list)
	c.Apply(c.Fetch(context.Background(), c.SetFilter("Qualified")))

	_ = c.Write(context.Background(), WriteCreate, func(context.Context) error {
		srv.leads = append(srv.leads, model.Lead{ID: "3", Stage: model.StageQualified})
		return nil
	})
	if srv.lastSt != "Qualified" || c.Len() != 2 {
		t.Fatalf("expected filtered refresh with 2 leads, got filter %q len %d", srv.lastSt, c.Len())
	}
}

func TestApply_DropsResultsAfterUnmount(t *testing.T) {
	t.Parallel()

	srv := &fakeServer{leads: []model.Lead{{ID: "1"}}}
	c := New(srv.list)
	ticket := c.Begin()
	if !c.Loading() {
		t.Fatalf("expected loading while a fetch is outstanding")
	}
	c.Unmount()
	if c.Apply(c.Fetch(context.Background(), ticket)) {
		t.Fatalf("stale result must be dropped")
	}
	if c.Len() != 0 || c.Loaded() {
		t.Fatalf("stale result must not touch the snapshot")
	}

	c.Apply(c.Fetch(context.Background(), c.Mount()))
	if c.Len() != 1 || c.Loading() {
		t.Fatalf("expected fresh mount to load, len=%d loading=%v", c.Len(), c.Loading())
	}
}

func TestApply_LastArrivalWins(t *testing.T) {
	t.Parallel()

	c := New(func(context.Context, string) ([]model.Lead, error) { return nil, nil })
	first := c.Begin()
	second := c.Begin()

	// The second refresh resolves first; the older one lands afterwards and wins.
	c.Apply(Result[model.Lead]{Epoch: second.Epoch, Items: []model.Lead{{ID: "new"}}})
	c.Apply(Result[model.Lead]{Epoch: first.Epoch, Items: []model.Lead{{ID: "old"}}})
	if got := c.Items()[0].ID; got != "old" {
		t.Fatalf("expected last arrival to win, got %q", got)
	}
	if c.Loading() {
		t.Fatalf("expected no outstanding loads")
	}
}

func TestApply_ErrorKeepsSnapshot(t *testing.T) {
	t.Parallel()

	c := New(func(context.Context, string) ([]model.Lead, error) { return nil, nil })
	c.Apply(Result[model.Lead]{Epoch: c.Begin().Epoch, Items: []model.Lead{{ID: "1"}}})
	boom := errors.New("down")
	c.Apply(Result[model.Lead]{Epoch: c.Begin().Epoch, Err: boom})
	if c.Len() != 1 || !errors.Is(c.Err(), boom) {
		t.Fatalf("expected snapshot kept and error recorded, len=%d err=%v", c.Len(), c.Err())
	}
	c.ClearErr()
	if c.Err() != nil {
		t.Fatalf("expected error cleared")
	}
}
