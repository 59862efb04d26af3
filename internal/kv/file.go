package kv

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Dir stores each key as a file under Path whose content is the raw
// value. Writes go through a temp file + rename so readers never see a
// partial value.
type Dir struct {
	Path string
}

func (d Dir) keyPath(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("invalid kv key %q", key)
	}
	return filepath.Join(filepath.Clean(d.Path), key), nil
}

func (d Dir) Get(key string) (string, bool, error) {
	p, err := d.keyPath(key)
	if err != nil {
		return "", false, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(b), true, nil
}

func (d Dir) Set(key, value string) error {
	p, err := d.keyPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, []byte(value), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
