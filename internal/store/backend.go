package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"todo-cli/internal/kv"
)

// Backend selects how the kv keys are persisted inside the data dir.
type Backend string

const (
	// BackendFile keeps one file per key plus events.jsonl. Default.
	BackendFile Backend = "file"
	// BackendSQLite keeps keys and events in index.sqlite.
	BackendSQLite Backend = "sqlite"
)

const (
	indexFileName  = "index.sqlite"
	eventsFileName = "events.jsonl"
)

func ParseBackend(v string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(v))) {
	case BackendFile:
		return BackendFile, nil
	case BackendSQLite:
		return BackendSQLite, nil
	case "":
		return "", nil
	default:
		return "", fmt.Errorf("unknown backend %q (valid: file, sqlite)", v)
	}
}

// DetectBackend picks the backend for an existing data dir: sqlite when
// index.sqlite is already there, file otherwise.
func DetectBackend(dir string) Backend {
	if _, err := os.Stat(filepath.Join(filepath.Clean(dir), indexFileName)); err == nil {
		return BackendSQLite
	}
	return BackendFile
}

// Open wires a Store for the data dir. An empty backend autodetects.
// When opening the sqlite backend over a dir that still has file-backend
// keys, those are imported once (absent sqlite keys only), preserving
// existing data across the switch.
func Open(dir string, backend Backend) (Store, error) {
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Store{}, fmt.Errorf("ensure data dir: %w", err)
	}
	if backend == "" {
		backend = DetectBackend(dir)
	}
	switch backend {
	case BackendFile:
		return Store{
			KV:     kv.Dir{Path: dir},
			Events: JSONLog{Path: filepath.Join(dir, eventsFileName)},
		}, nil
	case BackendSQLite:
		sq := kv.SQLite{Path: filepath.Join(dir, indexFileName)}
		if err := importFileKeys(kv.Dir{Path: dir}, sq); err != nil {
			return Store{}, fmt.Errorf("import file keys: %w", err)
		}
		return Store{
			KV:     sq,
			Events: SQLiteLog{Path: filepath.Join(dir, indexFileName)},
		}, nil
	default:
		return Store{}, fmt.Errorf("unknown backend %q", backend)
	}
}

func importFileKeys(from kv.Dir, to kv.SQLite) error {
	for _, key := range []string{keyTodos, keyUniqueID} {
		if _, ok, err := to.Get(key); err != nil {
			return err
		} else if ok {
			continue
		}
		v, ok, err := from.Get(key)
		if err != nil || !ok {
			if err != nil {
				return err
			}
			continue
		}
		if err := to.Set(key, v); err != nil {
			return err
		}
	}
	return nil
}
