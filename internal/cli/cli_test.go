package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"todo-cli/internal/model"
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

// isolateEnv keeps tests away from the developer's real store and config.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TODO_CONFIG_DIR", t.TempDir())
	t.Setenv("TODO_DIR", "")
	t.Setenv("TODO_BACKEND", "")
	t.Setenv("TODO_FORMAT", "")
}

func mustRun(t *testing.T, args ...string) map[string]any {
	t.Helper()
	stdout, stderr, err := runCLI(t, args)
	if err != nil {
		t.Fatalf("command failed: todo %v\nerr: %v\nstderr:\n%s\nstdout:\n%s", args, err, string(stderr), string(stdout))
	}
	var env map[string]any
	if err := json.Unmarshal(stdout, &env); err != nil {
		t.Fatalf("unmarshal stdout as json envelope: %v\nstdout:\n%s\nargs: %v", err, string(stdout), args)
	}
	if _, ok := env["data"]; !ok {
		t.Fatalf("expected JSON envelope to contain data key; got: %v\nstdout:\n%s", env, string(stdout))
	}
	return env
}

func dataMap(t *testing.T, env map[string]any) map[string]any {
	t.Helper()
	m, ok := env["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data to be an object; got: %#v", env["data"])
	}
	return m
}

func TestCLILifecycle(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	a := mustRun(t, "--dir", dir, "add", "Buy", "milk")
	if got := dataMap(t, a); got["id"] != float64(0) || got["task"] != "Buy milk" || got["completed"] != false {
		t.Fatalf("first add = %#v", got)
	}
	b := mustRun(t, "--dir", dir, "add", "Walk dog")
	if got := dataMap(t, b); got["id"] != float64(1) {
		t.Fatalf("second add id = %#v", got["id"])
	}

	list := mustRun(t, "--dir", dir, "list")
	if xs, ok := list["data"].([]any); !ok || len(xs) != 2 {
		t.Fatalf("list = %#v", list["data"])
	}

	tog := mustRun(t, "--dir", dir, "toggle", "0")
	if got := dataMap(t, tog); got["completed"] != true {
		t.Fatalf("toggle 0 = %#v", got)
	}

	done := mustRun(t, "--dir", dir, "list", "--completed")
	if xs, ok := done["data"].([]any); !ok || len(xs) != 1 {
		t.Fatalf("list --completed = %#v", done["data"])
	}
	pending := mustRun(t, "--dir", dir, "list", "--pending")
	if xs, ok := pending["data"].([]any); !ok || len(xs) != 1 {
		t.Fatalf("list --pending = %#v", pending["data"])
	}

	show := mustRun(t, "--dir", dir, "show", "1")
	if got := dataMap(t, show); got["task"] != "Walk dog" {
		t.Fatalf("show 1 = %#v", got)
	}

	ren := mustRun(t, "--dir", dir, "rename", "1", "Walk", "the", "dog")
	if got := dataMap(t, ren); got["task"] != "Walk the dog" {
		t.Fatalf("rename = %#v", got)
	}

	// Removed ids are never reissued.
	rm := mustRun(t, "--dir", dir, "rm", "0")
	if got := dataMap(t, rm); got["removed"] != float64(1) {
		t.Fatalf("rm = %#v", got)
	}
	c := mustRun(t, "--dir", dir, "add", "Plan trip")
	if got := dataMap(t, c); got["id"] != float64(2) {
		t.Fatalf("add after rm id = %#v", got["id"])
	}

	// rm again is a reported no-op, not an error.
	rm2 := mustRun(t, "--dir", dir, "rm", "0")
	got := dataMap(t, rm2)
	if got["removed"] != float64(0) {
		t.Fatalf("second rm = %#v", got)
	}
	results, ok := got["results"].([]any)
	if !ok || len(results) != 1 {
		t.Fatalf("second rm results = %#v", got["results"])
	}
	if r := results[0].(map[string]any); r["removed"] != false {
		t.Fatalf("second rm result = %#v", r)
	}

	mustRun(t, "--dir", dir, "toggle", "2")
	clr := mustRun(t, "--dir", dir, "clear")
	if got := dataMap(t, clr); got["removed"] != float64(1) {
		t.Fatalf("clear = %#v", got)
	}

	evs := mustRun(t, "--dir", dir, "events")
	if xs, ok := evs["data"].([]any); !ok || len(xs) == 0 {
		t.Fatalf("events = %#v", evs["data"])
	}
}

func TestCLIShowUnknownIDFails(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	mustRun(t, "--dir", dir, "add", "Only task")

	stdout, stderr, err := runCLI(t, []string{"--dir", dir, "show", "42"})
	if err == nil {
		t.Fatalf("expected error, got stdout:\n%s", string(stdout))
	}
	if !strings.Contains(string(stderr), "task not found: 42") {
		t.Fatalf("stderr = %q", string(stderr))
	}
}

func TestCLIToggleUnknownIDFails(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	_, stderr, err := runCLI(t, []string{"--dir", dir, "toggle", "5"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(string(stderr), "task not found: 5") {
		t.Fatalf("stderr = %q", string(stderr))
	}
}

func TestCLIAddRejectsEmptyText(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	_, stderr, err := runCLI(t, []string{"--dir", dir, "add", "   "})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(string(stderr), "empty task text") {
		t.Fatalf("stderr = %q", string(stderr))
	}

	// Nothing persisted.
	list := mustRun(t, "--dir", dir, "list")
	if xs, ok := list["data"].([]any); !ok || len(xs) != 0 {
		t.Fatalf("list after rejected add = %#v", list["data"])
	}
}

func TestCLIInvalidIDArgument(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	_, stderr, err := runCLI(t, []string{"--dir", dir, "toggle", "abc"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(string(stderr), `invalid task id: "abc"`) {
		t.Fatalf("stderr = %q", string(stderr))
	}
}

func TestCLITextFormat(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	mustRun(t, "--dir", dir, "add", "Buy milk")
	mustRun(t, "--dir", dir, "add", "Walk dog")
	mustRun(t, "--dir", dir, "toggle", "1")

	stdout, stderr, err := runCLI(t, []string{"--dir", dir, "--format", "text", "list"})
	if err != nil {
		t.Fatalf("list: %v\nstderr:\n%s", err, string(stderr))
	}
	want := "[ ] 0  Buy milk\n[x] 1  Walk dog\n"
	if string(stdout) != want {
		t.Fatalf("text list = %q, want %q", string(stdout), want)
	}
}

func TestCLIExportImportRoundTrip(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	mustRun(t, "--dir", dir, "add", "Buy milk")
	mustRun(t, "--dir", dir, "add", "Walk dog")
	mustRun(t, "--dir", dir, "toggle", "0")

	// Bare export is the snapshot itself, not an envelope.
	stdout, stderr, err := runCLI(t, []string{"--dir", dir, "export"})
	if err != nil {
		t.Fatalf("export: %v\nstderr:\n%s", err, string(stderr))
	}
	var snap model.Snapshot
	if err := json.Unmarshal(stdout, &snap); err != nil {
		t.Fatalf("unmarshal export: %v\nstdout:\n%s", err, string(stdout))
	}
	if snap.NextID != 2 || len(snap.Tasks) != 2 || !snap.Tasks[0].Completed {
		t.Fatalf("export snapshot = %+v", snap)
	}

	// Export to a file, import into a fresh store.
	exportPath := filepath.Join(t.TempDir(), "snapshot.json")
	exp := mustRun(t, "--dir", dir, "export", exportPath)
	if got := dataMap(t, exp); got["exportedTo"] != exportPath || got["tasks"] != float64(2) {
		t.Fatalf("export to file = %#v", got)
	}

	dir2 := t.TempDir()
	imp := mustRun(t, "--dir", dir2, "import", exportPath)
	if got := dataMap(t, imp); got["imported"] != float64(2) || got["nextId"] != float64(2) {
		t.Fatalf("import = %#v", got)
	}
	next := mustRun(t, "--dir", dir2, "add", "Plan trip")
	if got := dataMap(t, next); got["id"] != float64(2) {
		t.Fatalf("add after import id = %#v", got["id"])
	}
}

func TestCLIImportRejectsDuplicateIDs(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	bad := filepath.Join(t.TempDir(), "bad.json")
	body := `{"nextId": 3, "tasks": [{"id":1,"task":"a","completed":false},{"id":1,"task":"b","completed":false}]}`
	if err := os.WriteFile(bad, []byte(body), 0o644); err != nil {
		t.Fatalf("write bad snapshot: %v", err)
	}

	_, stderr, err := runCLI(t, []string{"--dir", dir, "import", bad})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(string(stderr), "duplicate") {
		t.Fatalf("stderr = %q", string(stderr))
	}
}

func TestCLIInitAndForceReset(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	init1 := mustRun(t, "--dir", dir, "init")
	if got := dataMap(t, init1); got["tasks"] != float64(0) || got["nextId"] != float64(0) || got["backend"] != "file" {
		t.Fatalf("init = %#v", got)
	}

	mustRun(t, "--dir", dir, "add", "Buy milk")

	// Plain init is idempotent.
	init2 := mustRun(t, "--dir", dir, "init")
	if got := dataMap(t, init2); got["tasks"] != float64(1) || got["nextId"] != float64(1) {
		t.Fatalf("re-init = %#v", got)
	}

	// --force resets to the empty snapshot.
	init3 := mustRun(t, "--dir", dir, "init", "--force")
	if got := dataMap(t, init3); got["tasks"] != float64(0) || got["nextId"] != float64(0) {
		t.Fatalf("init --force = %#v", got)
	}
}

func TestCLIDoctorFailOnCorruptStore(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	mustRun(t, "--dir", dir, "add", "Buy milk")
	if err := os.WriteFile(filepath.Join(dir, "todos"), []byte("{boom"), 0o644); err != nil {
		t.Fatalf("corrupt todos: %v", err)
	}

	env := mustRun(t, "--dir", dir, "doctor")
	meta, ok := env["meta"].(map[string]any)
	if !ok || meta["hasErrors"] != true {
		t.Fatalf("doctor meta = %#v", env["meta"])
	}

	_, _, err := runCLI(t, []string{"--dir", dir, "doctor", "--fail"})
	if err == nil {
		t.Fatal("expected doctor --fail to error on a corrupt store")
	}
}

func TestCLISQLiteBackend(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	a := mustRun(t, "--dir", dir, "--backend", "sqlite", "add", "Buy milk")
	if got := dataMap(t, a); got["id"] != float64(0) {
		t.Fatalf("sqlite add = %#v", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "index.sqlite")); err != nil {
		t.Fatalf("expected index.sqlite: %v", err)
	}

	// Later invocations autodetect sqlite without the flag.
	list := mustRun(t, "--dir", dir, "list")
	if xs, ok := list["data"].([]any); !ok || len(xs) != 1 {
		t.Fatalf("autodetected list = %#v", list["data"])
	}
	evs := mustRun(t, "--dir", dir, "events")
	if xs, ok := evs["data"].([]any); !ok || len(xs) != 1 {
		t.Fatalf("sqlite events = %#v", evs["data"])
	}
}

func TestCLIUnknownBackendFails(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	_, stderr, err := runCLI(t, []string{"--dir", dir, "--backend", "postgres", "list"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(string(stderr), "unknown backend") {
		t.Fatalf("stderr = %q", string(stderr))
	}
}
