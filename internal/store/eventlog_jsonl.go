package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// JSONLog is the file-backend event log: one JSON object per line,
// append-only.
type JSONLog struct {
	Path string
}

func (l JSONLog) Append(ev Event) error {
	if err := os.MkdirAll(filepath.Dir(filepath.Clean(l.Path)), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	line, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return err
	}
	return nil
}

func (l JSONLog) Tail(limit int) ([]Event, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Event{}, nil
		}
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	// Ring buffer over the last `limit` lines; one pass, no full load.
	var ring []Event
	start, size := 0, 0
	if limit > 0 {
		ring = make([]Event, limit)
	}

	var all []Event
	lineNo := 0
	for sc.Scan() {
		lineNo++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(b, &ev); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", l.Path, lineNo, err)
		}
		if limit <= 0 {
			all = append(all, ev)
			continue
		}
		if size < limit {
			ring[(start+size)%limit] = ev
			size++
		} else {
			ring[start] = ev
			start = (start + 1) % limit
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if limit <= 0 {
		if all == nil {
			all = []Event{}
		}
		return all, nil
	}
	out := make([]Event, 0, size)
	for i := 0; i < size; i++ {
		out = append(out, ring[(start+i)%limit])
	}
	return out, nil
}
