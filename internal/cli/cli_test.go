package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"trackflow-cli/internal/devserver"
	"trackflow-cli/internal/model"
	"trackflow-cli/internal/validate"
)

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

// newBackend starts a dev server on a fresh database and returns its URL. The config
// dir is isolated so a developer's ~/.trackflow never leaks into a test.
func newBackend(t *testing.T) string {
	t.Helper()
	t.Setenv("TRACKFLOW_CONFIG_DIR", t.TempDir())

	st, err := devserver.OpenStore(context.Background(), filepath.Join(t.TempDir(), "crm.sqlite"), time.Now)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	srv := httptest.NewServer(devserver.New(st).Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

// mustEnv runs a command against url and decodes the JSON envelope.
func mustEnv(t *testing.T, url string, args ...string) map[string]any {
	t.Helper()
	args = append([]string{"--api-url", url}, args...)
	stdout, stderr, err := runCLI(t, args)
	if err != nil {
		t.Fatalf("command failed: trackflow %v\nerr: %v\nstderr:\n%s\nstdout:\n%s", args, err, string(stderr), string(stdout))
	}
	var env map[string]any
	if err := json.Unmarshal(stdout, &env); err != nil {
		t.Fatalf("unmarshal stdout as json envelope: %v\nstdout:\n%s\nargs: %v", err, string(stdout), args)
	}
	if _, ok := env["data"]; !ok {
		t.Fatalf("expected JSON envelope to contain data key; got: %v", env)
	}
	if meta, ok := env["meta"]; ok && meta != nil {
		if _, ok := meta.(map[string]any); !ok {
			t.Fatalf("expected meta to be object; got %T", meta)
		}
	}
	if hints, ok := env["_hints"]; ok && hints != nil {
		if _, ok := hints.([]any); !ok {
			t.Fatalf("expected _hints to be list; got %T", hints)
		}
	}
	return env
}

func data(env map[string]any) map[string]any {
	m, _ := env["data"].(map[string]any)
	return m
}

func list(env map[string]any) []any {
	l, _ := env["data"].([]any)
	return l
}

func idOf(t *testing.T, env map[string]any) string {
	t.Helper()
	id, ok := data(env)["id"].(float64)
	if !ok {
		t.Fatalf("expected numeric id; got: %#v", env["data"])
	}
	return strconv.FormatFloat(id, 'f', -1, 64)
}

func createLead(t *testing.T, url, name string) string {
	t.Helper()
	return idOf(t, mustEnv(t, url, "leads", "create", "--name", name, "--contact", strings.ToLower(name)+"@example.com"))
}

func TestLeads_CreateListUpdateStage(t *testing.T) {
	url := newBackend(t)

	created := mustEnv(t, url, "leads", "create", "--name", "Ada", "--contact", "ada@example.com", "--follow-up-date", "2025-07-01")
	if got := data(created)["stage"]; got != string(model.StageNewLead) {
		t.Fatalf("expected server-assigned stage %q; got %v", model.StageNewLead, got)
	}
	if hints, _ := created["_hints"].([]any); len(hints) == 0 {
		t.Fatalf("expected a next-step hint after create")
	}
	id := idOf(t, created)
	createLead(t, url, "Bob")

	all := mustEnv(t, url, "leads", "list")
	if n := len(list(all)); n != 2 {
		t.Fatalf("expected 2 leads; got %d", n)
	}
	if c, _ := all["meta"].(map[string]any)["count"].(float64); c != 2 {
		t.Fatalf("expected meta.count 2; got %v", all["meta"])
	}

	byDate := mustEnv(t, url, "leads", "list", "--follow-up-date", "2025-07-01")
	if n := len(list(byDate)); n != 1 {
		t.Fatalf("expected 1 lead due 2025-07-01; got %d", n)
	}

	upd := mustEnv(t, url, "leads", "update", id, "--company", "Acme")
	if got := data(upd)["company"]; got != "Acme" {
		t.Fatalf("expected company Acme; got %v", got)
	}
	if got := data(upd)["follow_up_date"]; got != "2025-07-01" {
		t.Fatalf("update must keep fields it was not given; follow_up_date=%v", got)
	}

	staged := mustEnv(t, url, "leads", "stage", id, "Qualified")
	if got := data(staged)["stage"]; got != "Qualified" {
		t.Fatalf("expected stage Qualified; got %v", got)
	}

	qualified := mustEnv(t, url, "leads", "list", "--stage", "Qualified")
	if n := len(list(qualified)); n != 1 {
		t.Fatalf("expected 1 qualified lead; got %d", n)
	}
	// "All" is the no-filter sentinel.
	if n := len(list(mustEnv(t, url, "leads", "list", "--stage", "All"))); n != 2 {
		t.Fatalf("expected All to list every lead; got %d", n)
	}

	shown := mustEnv(t, url, "leads", "show", id)
	if got := data(shown)["company"]; got != "Acme" {
		t.Fatalf("expected show to return the updated lead; got %v", shown["data"])
	}
}

func TestLeads_UpdateClearsDateWithEmptyFlag(t *testing.T) {
	url := newBackend(t)
	id := idOf(t, mustEnv(t, url, "leads", "create", "--name", "Ada", "--contact", "ada@example.com", "--follow-up-date", "2025-07-01"))

	upd := mustEnv(t, url, "leads", "update", id, "--follow-up-date", "")
	if v, ok := data(upd)["follow_up_date"]; ok && v != nil {
		t.Fatalf("expected follow_up_date cleared; got %v", v)
	}
}

func TestLeads_InvalidInputNeverReachesServer(t *testing.T) {
	url := newBackend(t)

	_, stderr, err := runCLI(t, []string{"--api-url", url, "leads", "create", "--name", "Ada", "--contact", "@@"})
	if err == nil {
		t.Fatalf("expected invalid contact to fail")
	}
	if !strings.Contains(string(stderr), validate.MsgContactInvalid) {
		t.Fatalf("expected contact message on stderr; got:\n%s", string(stderr))
	}
	if n := len(list(mustEnv(t, url, "leads", "list"))); n != 0 {
		t.Fatalf("expected no lead to be created; got %d", n)
	}

	id := createLead(t, url, "Bob")
	if _, _, err := runCLI(t, []string{"--api-url", url, "leads", "update", id}); err == nil {
		t.Fatalf("expected update without flags to fail")
	}
	if _, _, err := runCLI(t, []string{"--api-url", url, "leads", "update", id, "--name", "  "}); err == nil {
		t.Fatalf("expected blank name to fail")
	}

	_, stderr, err = runCLI(t, []string{"--api-url", url, "leads", "stage", id, "Won"})
	if err == nil {
		t.Fatalf("expected unknown stage to fail")
	}
	if !strings.Contains(string(stderr), "Closed Won") {
		t.Fatalf("expected allowed stages on stderr; got:\n%s", string(stderr))
	}
}

func TestLeads_MissingRecordReportsServerDetail(t *testing.T) {
	url := newBackend(t)
	_, stderr, err := runCLI(t, []string{"--api-url", url, "leads", "stage", "999", "Contacted"})
	if err == nil {
		t.Fatalf("expected missing lead to fail")
	}
	if !strings.Contains(string(stderr), "status 404") {
		t.Fatalf("expected 404 on stderr; got:\n%s", string(stderr))
	}
}

func TestOrders_CreateDefaultsUpdateAndStatus(t *testing.T) {
	url := newBackend(t)
	leadID := createLead(t, url, "Ada")

	created := mustEnv(t, url, "orders", "create", "--lead-id", leadID, "--product", "Widget", "--quantity", "2")
	if got := data(created)["status"]; got != string(model.StatusReceived) {
		t.Fatalf("expected default status Received; got %v", got)
	}
	if got := data(created)["order_date"]; got != model.Today().String() {
		t.Fatalf("expected order_date to default to today; got %v", got)
	}
	id := idOf(t, created)

	upd := mustEnv(t, url, "orders", "update", id, "--tracking-number", "TRK-1", "--delivery-date", "2025-08-01")
	if got := data(upd)["tracking_number"]; got != "TRK-1" {
		t.Fatalf("expected tracking number; got %v", got)
	}
	if got := data(upd)["quantity"]; got != float64(2) {
		t.Fatalf("update must keep quantity; got %v", got)
	}

	if _, _, err := runCLI(t, []string{"--api-url", url, "orders", "update", id, "--quantity", "0"}); err == nil {
		t.Fatalf("expected zero quantity to fail")
	}

	st := mustEnv(t, url, "orders", "status", id, "Dispatched")
	if got := data(st)["status"]; got != "Dispatched" {
		t.Fatalf("expected Dispatched; got %v", got)
	}
	if n := len(list(mustEnv(t, url, "orders", "list", "--status", "Dispatched", "--lead-id", leadID))); n != 1 {
		t.Fatalf("expected 1 dispatched order; got %d", n)
	}
	if n := len(list(mustEnv(t, url, "orders", "list", "--status", "Received"))); n != 0 {
		t.Fatalf("expected no received orders; got %d", n)
	}
}

func TestOrders_DeletedLeadKeepsOrders(t *testing.T) {
	url := newBackend(t)
	leadID := createLead(t, url, "Ada")
	mustEnv(t, url, "orders", "create", "--lead-id", leadID, "--product", "Widget", "--quantity", "1")

	del := mustEnv(t, url, "leads", "delete", leadID)
	if got := data(del)["deleted"]; got != true {
		t.Fatalf("expected deleted=true; got %v", del["data"])
	}
	if n := len(list(mustEnv(t, url, "orders", "list"))); n != 1 {
		t.Fatalf("expected the order to survive its lead; got %d", n)
	}
}

func TestBoard_GroupsByEnumeration(t *testing.T) {
	url := newBackend(t)
	a := createLead(t, url, "Ada")
	createLead(t, url, "Bob")
	mustEnv(t, url, "leads", "stage", a, "Closed Won")

	b := data(mustEnv(t, url, "leads", "board"))
	cols, _ := b["columns"].([]any)
	if len(cols) != len(model.Stages) {
		t.Fatalf("expected one column per stage; got %d", len(cols))
	}
	for i, c := range cols {
		col := c.(map[string]any)
		if col["key"] != string(model.Stages[i]) {
			t.Fatalf("column %d: expected %q; got %v", i, model.Stages[i], col["key"])
		}
		want := 0
		switch model.Stages[i] {
		case model.StageNewLead, model.StageClosedWon:
			want = 1
		}
		if got := int(col["count"].(float64)); got != want {
			t.Fatalf("column %q: expected %d; got %d", col["key"], want, got)
		}
	}
	if b["total"] != float64(2) {
		t.Fatalf("expected total 2; got %v", b["total"])
	}

	mustEnv(t, url, "orders", "create", "--lead-id", a, "--product", "Widget", "--quantity", "1", "--status", "In Development")
	ob := data(mustEnv(t, url, "orders", "board"))
	ocols, _ := ob["columns"].([]any)
	if len(ocols) != len(model.Statuses) {
		t.Fatalf("expected one column per status; got %d", len(ocols))
	}
	if got := ocols[1].(map[string]any)["count"]; got != float64(1) {
		t.Fatalf("expected the order under In Development; got %v", ocols[1])
	}
}

func TestTableFormat(t *testing.T) {
	url := newBackend(t)
	createLead(t, url, "Ada")

	stdout, stderr, err := runCLI(t, []string{"--api-url", url, "--format", "table", "leads", "list"})
	if err != nil {
		t.Fatalf("leads list --format table: %v\n%s", err, string(stderr))
	}
	out := string(stdout)
	for _, want := range []string{"Name", "Contact", "Ada", "ada@example.com", "N/A"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in table output:\n%s", want, out)
		}
	}

	stdout, _, err = runCLI(t, []string{"--api-url", url, "--format", "table", "dashboard"})
	if err != nil {
		t.Fatalf("dashboard --format table: %v", err)
	}
	if !strings.Contains(string(stdout), "Total Leads") {
		t.Fatalf("expected dashboard rows; got:\n%s", string(stdout))
	}

	if _, _, err := runCLI(t, []string{"--api-url", url, "--format", "yaml", "leads", "list"}); err == nil {
		t.Fatalf("expected unknown format to fail")
	}
}

func TestDashboardAndExport(t *testing.T) {
	url := newBackend(t)
	a := createLead(t, url, "Ada")
	createLead(t, url, "Bob")
	mustEnv(t, url, "orders", "create", "--lead-id", a, "--product", "Widget", "--quantity", "3")

	m := data(mustEnv(t, url, "dashboard"))
	if m["total_leads"] != float64(2) || m["total_orders"] != float64(1) {
		t.Fatalf("unexpected totals: %v", m)
	}

	exp := mustEnv(t, url, "export")
	d := data(exp)
	if leads, _ := d["leads"].([]any); len(leads) != 2 {
		t.Fatalf("expected 2 exported leads; got %v", d["leads"])
	}
	if orders, _ := d["orders"].([]any); len(orders) != 1 {
		t.Fatalf("expected 1 exported order; got %v", d["orders"])
	}
	if metrics, _ := d["metrics"].(map[string]any); metrics["total_leads"] != float64(2) {
		t.Fatalf("expected exported metrics; got %v", d["metrics"])
	}
	if got := exp["meta"].(map[string]any)["api_url"]; got != url {
		t.Fatalf("expected meta.api_url %q; got %v", url, got)
	}
}

func TestUnreachableServer_Fails(t *testing.T) {
	t.Setenv("TRACKFLOW_CONFIG_DIR", t.TempDir())
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	_, stderr, err := runCLI(t, []string{"--api-url", url, "--timeout", "2s", "export"})
	if err == nil {
		t.Fatalf("expected export against a closed server to fail")
	}
	if len(stderr) == 0 {
		t.Fatalf("expected an error on stderr")
	}
}

func TestConfig_SetAndShow(t *testing.T) {
	t.Setenv("TRACKFLOW_CONFIG_DIR", t.TempDir())

	mustEnv(t, "http://127.0.0.1:8000", "config", "set", "api_url", "http://crm.example.test:9000/")
	mustEnv(t, "http://127.0.0.1:8000", "config", "set", "timeout", "5")

	shown := data(mustEnv(t, "http://127.0.0.1:8000", "config", "show"))
	if got := shown["api_url"]; got != "http://crm.example.test:9000" {
		t.Fatalf("expected persisted api_url; got %v", got)
	}
	if got := shown["timeout"]; got != "5s" {
		t.Fatalf("expected bare integer timeout read as seconds; got %v", got)
	}

	if _, _, err := runCLI(t, []string{"config", "set", "colour", "red"}); err == nil {
		t.Fatalf("expected unknown key to fail")
	}
	if _, _, err := runCLI(t, []string{"config", "set", "api_url", "ftp://nope"}); err == nil {
		t.Fatalf("expected non-http url to fail")
	}
}
