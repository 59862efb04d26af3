package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseBackend(t *testing.T) {
	cases := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{in: "file", want: BackendFile},
		{in: "SQLite", want: BackendSQLite},
		{in: " sqlite ", want: BackendSQLite},
		{in: "", want: ""},
		{in: "postgres", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseBackend(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseBackend(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseBackend(%q) = %q, %v", tc.in, got, err)
		}
	}
}

func TestDetectBackend(t *testing.T) {
	dir := t.TempDir()
	if got := DetectBackend(dir); got != BackendFile {
		t.Fatalf("empty dir detected as %q", got)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.sqlite"), []byte{}, 0o644); err != nil {
		t.Fatal(err)
	}
	if got := DetectBackend(dir); got != BackendSQLite {
		t.Fatalf("dir with index.sqlite detected as %q", got)
	}
}

func TestOpenFileBackendPersistsAsFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, BackendFile)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.Append("Buy milk"); err != nil {
		t.Fatalf("append: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "todos"))
	if err != nil {
		t.Fatalf("todos file: %v", err)
	}
	if string(b) != `[{"id":0,"task":"Buy milk","completed":false}]` {
		t.Fatalf("todos value: %s", b)
	}
	b, err = os.ReadFile(filepath.Join(dir, "uniqueId"))
	if err != nil {
		t.Fatalf("uniqueId file: %v", err)
	}
	if string(b) != "1" {
		t.Fatalf("uniqueId value: %s", b)
	}
	if _, err := os.Stat(filepath.Join(dir, "events.jsonl")); err != nil {
		t.Fatalf("events log: %v", err)
	}
}

func TestOpenSQLiteImportsFileKeysOnce(t *testing.T) {
	dir := t.TempDir()

	fileStore, err := Open(dir, BackendFile)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fileStore.Append("carried over"); err != nil {
		t.Fatal(err)
	}

	sq, err := Open(dir, BackendSQLite)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	tasks, err := sq.LoadAll()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Task != "carried over" {
		t.Fatalf("import missed data: %+v", tasks)
	}
	next, _ := sq.NextID()
	if next != 1 {
		t.Fatalf("imported counter %d, want 1", next)
	}

	// The import is one-time: later file writes don't leak in.
	if err := fileStore.KV.Set("todos", `[]`); err != nil {
		t.Fatal(err)
	}
	sq2, err := Open(dir, BackendSQLite)
	if err != nil {
		t.Fatal(err)
	}
	tasks, _ = sq2.LoadAll()
	if len(tasks) != 1 {
		t.Fatalf("import ran twice: %+v", tasks)
	}

	// And the dir now autodetects as sqlite.
	if got := DetectBackend(dir); got != BackendSQLite {
		t.Fatalf("detect after switch: %q", got)
	}
}
