package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"todo-cli/internal/kv"
	"todo-cli/internal/model"
)

// Persisted layout: two keys in the kv store.
//   todos    -> JSON array of {id, task, completed}
//   uniqueId -> decimal integer, the next id to assign
const (
	keyTodos    = "todos"
	keyUniqueID = "uniqueId"
)

// Store holds the full task list behind two kv keys. Every operation
// is a whole-snapshot read-modify-write; the kv store is the sole
// source of truth and views re-derive their state from it.
//
// KV is required. Events is optional; when nil, mutations skip the log.
type Store struct {
	KV     kv.Store
	Events EventLog
}

type NotFoundError struct {
	ID int
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("task not found: %d", e.ID)
}

// loadTasks reads and decodes the todos key. ok is false when the key
// is missing or its value does not parse; both degrade to "no tasks"
// (doctor reports the corrupt case). err is I/O only.
func (s Store) loadTasks() (tasks []model.Task, ok bool, err error) {
	v, present, err := s.KV.Get(keyTodos)
	if err != nil {
		return nil, false, fmt.Errorf("load tasks: %w", err)
	}
	if !present {
		return nil, false, nil
	}
	if err := json.Unmarshal([]byte(v), &tasks); err != nil {
		return nil, false, nil
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, true, nil
}

func (s Store) saveTasks(tasks []model.Task) error {
	if tasks == nil {
		tasks = []model.Task{}
	}
	b, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	if err := s.KV.Set(keyTodos, string(b)); err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	return nil
}

func (s Store) saveCounter(n int) error {
	if err := s.KV.Set(keyUniqueID, strconv.Itoa(n)); err != nil {
		return fmt.Errorf("save counter: %w", err)
	}
	return nil
}

// LoadAll returns the task sequence in display order. On first run
// (no todos key yet) it persists the empty snapshot so both keys
// exist; a counter that already exists is kept as-is, since issued ids
// must never come around again. An unparseable value degrades to "no
// tasks" without overwriting it (doctor reports it; the next mutation
// replaces it).
func (s Store) LoadAll() ([]model.Task, error) {
	v, present, err := s.KV.Get(keyTodos)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	if !present {
		if err := s.saveTasks(nil); err != nil {
			return nil, err
		}
		if _, haveCounter, err := s.KV.Get(keyUniqueID); err != nil {
			return nil, fmt.Errorf("load counter: %w", err)
		} else if !haveCounter {
			if err := s.saveCounter(0); err != nil {
				return nil, err
			}
		}
		return []model.Task{}, nil
	}
	var tasks []model.Task
	if err := json.Unmarshal([]byte(v), &tasks); err != nil || tasks == nil {
		return []model.Task{}, nil
	}
	return tasks, nil
}

// NextID returns the current counter without mutating it. A missing or
// unreadable counter re-derives a safe value from the ids already in
// the sequence (max+1) rather than restarting at 0, which would hand
// out an id twice.
func (s Store) NextID() (int, error) {
	v, present, err := s.KV.Get(keyUniqueID)
	if err != nil {
		return 0, fmt.Errorf("load counter: %w", err)
	}
	if present {
		if n, perr := strconv.Atoi(strings.TrimSpace(v)); perr == nil && n >= 0 {
			return n, nil
		}
	}
	tasks, _, err := s.loadTasks()
	if err != nil {
		return 0, err
	}
	max := -1
	for _, t := range tasks {
		if t.ID > max {
			max = t.ID
		}
	}
	return max + 1, nil
}

// Append creates {id: NextID(), task: text, completed: false}, appends
// it and persists the sequence, then increments and persists the
// counter. Two writes, in that order.
func (s Store) Append(text string) (model.Task, error) {
	id, err := s.NextID()
	if err != nil {
		return model.Task{}, err
	}
	tasks, _, err := s.loadTasks()
	if err != nil {
		return model.Task{}, err
	}
	t := model.Task{ID: id, Task: text, Completed: false}
	tasks = append(tasks, t)
	if err := s.saveTasks(tasks); err != nil {
		return model.Task{}, err
	}
	if err := s.saveCounter(id + 1); err != nil {
		return model.Task{}, err
	}
	if err := s.logEvent("task.append", &t.ID, t); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

// Toggle flips the completed flag of the task with the given id and
// persists the sequence. The unchanged sequence is still persisted
// when the id is absent (one read, one write, always); absent ids are
// not an error.
func (s Store) Toggle(id int) (model.Task, bool, error) {
	tasks, _, err := s.loadTasks()
	if err != nil {
		return model.Task{}, false, err
	}
	var out model.Task
	found := false
	for i := range tasks {
		if tasks[i].ID == id {
			tasks[i].Completed = !tasks[i].Completed
			out = tasks[i]
			found = true
		}
	}
	if err := s.saveTasks(tasks); err != nil {
		return model.Task{}, false, err
	}
	if found {
		if err := s.logEvent("task.toggle", &out.ID, out); err != nil {
			return model.Task{}, false, err
		}
	}
	return out, found, nil
}

// Rename replaces the task text. Same persistence shape as Toggle.
func (s Store) Rename(id int, text string) (model.Task, bool, error) {
	tasks, _, err := s.loadTasks()
	if err != nil {
		return model.Task{}, false, err
	}
	var out model.Task
	found := false
	for i := range tasks {
		if tasks[i].ID == id {
			tasks[i].Task = text
			out = tasks[i]
			found = true
		}
	}
	if err := s.saveTasks(tasks); err != nil {
		return model.Task{}, false, err
	}
	if found {
		if err := s.logEvent("task.rename", &out.ID, out); err != nil {
			return model.Task{}, false, err
		}
	}
	return out, found, nil
}

// Remove deletes the task with the given id and persists the result.
// Idempotent: an absent id still persists (the unchanged sequence) and
// reports false. The counter is not touched; ids are never reclaimed.
func (s Store) Remove(id int) (bool, error) {
	tasks, _, err := s.loadTasks()
	if err != nil {
		return false, err
	}
	kept := make([]model.Task, 0, len(tasks))
	var removed *model.Task
	for i := range tasks {
		if tasks[i].ID == id {
			removed = &tasks[i]
			continue
		}
		kept = append(kept, tasks[i])
	}
	if err := s.saveTasks(kept); err != nil {
		return false, err
	}
	if removed != nil {
		if err := s.logEvent("task.remove", &removed.ID, *removed); err != nil {
			return false, err
		}
	}
	return removed != nil, nil
}

// ClearCompleted removes every completed task in one write and returns
// how many were removed.
func (s Store) ClearCompleted() (int, error) {
	tasks, _, err := s.loadTasks()
	if err != nil {
		return 0, err
	}
	kept := make([]model.Task, 0, len(tasks))
	removed := 0
	for _, t := range tasks {
		if t.Completed {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	if err := s.saveTasks(kept); err != nil {
		return 0, err
	}
	if removed > 0 {
		if err := s.logEvent("task.clear", nil, map[string]int{"removed": removed}); err != nil {
			return 0, err
		}
	}
	return removed, nil
}

// Snapshot returns the counter plus the sequence, for views, doctor
// and export.
func (s Store) Snapshot() (*model.Snapshot, error) {
	tasks, _, err := s.loadTasks()
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	next, err := s.NextID()
	if err != nil {
		return nil, err
	}
	return &model.Snapshot{NextID: next, Tasks: tasks}, nil
}

// Restore validates and persists a full snapshot (tasks first, then
// the counter, like every other mutation). Unlike the silent read
// paths this is an explicit user operation, so invariant breaks are
// errors instead of recoveries.
func (s Store) Restore(snap *model.Snapshot) error {
	if snap == nil {
		return errors.New("nil snapshot")
	}
	seen := map[int]bool{}
	max := -1
	for _, t := range snap.Tasks {
		if t.ID < 0 {
			return fmt.Errorf("invalid task id %d", t.ID)
		}
		if seen[t.ID] {
			return fmt.Errorf("duplicate task id %d", t.ID)
		}
		seen[t.ID] = true
		if t.ID > max {
			max = t.ID
		}
	}
	if snap.NextID < 0 {
		return fmt.Errorf("invalid nextId %d", snap.NextID)
	}
	if snap.NextID <= max {
		return fmt.Errorf("nextId %d does not exceed max task id %d", snap.NextID, max)
	}
	if err := s.saveTasks(snap.Tasks); err != nil {
		return err
	}
	if err := s.saveCounter(snap.NextID); err != nil {
		return err
	}
	return s.logEvent("snapshot.restore", nil, map[string]int{
		"tasks":  len(snap.Tasks),
		"nextId": snap.NextID,
	})
}

// Fingerprint is a cheap change marker over the persisted keys, polled
// by the TUI reload tick and the web watcher to notice writes from
// other processes.
func (s Store) Fingerprint() (string, error) {
	return kv.Fingerprint(s.KV, keyTodos, keyUniqueID)
}
