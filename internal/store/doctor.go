package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"todo-cli/internal/model"
)

var ErrDoctorIssuesFound = errors.New("doctor: issues found")

type DoctorIssueLevel string

const (
	DoctorIssueLevelError DoctorIssueLevel = "error"
	DoctorIssueLevelWarn  DoctorIssueLevel = "warn"
)

type DoctorIssue struct {
	Level   DoctorIssueLevel `json:"level"`
	Code    string           `json:"code"`
	Message string           `json:"message"`
	TaskID  *int             `json:"taskId,omitempty"`
}

type DoctorReport struct {
	Issues []DoctorIssue `json:"issues"`
	Tasks  int           `json:"tasks"`
	NextID int           `json:"nextId"`
}

func (r DoctorReport) HasErrors() bool {
	for _, it := range r.Issues {
		if it.Level == DoctorIssueLevelError {
			return true
		}
	}
	return false
}

// Doctor checks the persisted snapshot against the store invariants.
// The normal read paths recover from all of these silently; doctor is
// where they become visible.
func (s Store) Doctor() (DoctorReport, error) {
	var issues []DoctorIssue

	rawTodos, haveTodos, err := s.KV.Get(keyTodos)
	if err != nil {
		return DoctorReport{}, fmt.Errorf("read tasks: %w", err)
	}
	var tasks []model.Task
	parsed := false
	if haveTodos {
		if err := json.Unmarshal([]byte(rawTodos), &tasks); err != nil {
			issues = append(issues, DoctorIssue{
				Level:   DoctorIssueLevelError,
				Code:    "todos_invalid_json",
				Message: fmt.Sprintf("todos value does not parse: %v (reads degrade to an empty list)", err),
			})
		} else {
			parsed = true
		}
	}

	maxID := -1
	if parsed {
		seen := map[int]int{}
		for _, t := range tasks {
			seen[t.ID]++
			if t.ID > maxID {
				maxID = t.ID
			}
			if t.ID < 0 {
				id := t.ID
				issues = append(issues, DoctorIssue{
					Level:   DoctorIssueLevelError,
					Code:    "task_negative_id",
					Message: fmt.Sprintf("task id %d is negative; ids come from a counter starting at 0", t.ID),
					TaskID:  &id,
				})
			}
			if strings.TrimSpace(t.Task) == "" {
				id := t.ID
				issues = append(issues, DoctorIssue{
					Level:   DoctorIssueLevelWarn,
					Code:    "task_empty_text",
					Message: fmt.Sprintf("task %d has empty text", t.ID),
					TaskID:  &id,
				})
			}
		}
		for id, n := range seen {
			if n > 1 {
				dup := id
				issues = append(issues, DoctorIssue{
					Level:   DoctorIssueLevelError,
					Code:    "task_duplicate_id",
					Message: fmt.Sprintf("id %d appears %d times; toggling or deleting it affects every copy", id, n),
					TaskID:  &dup,
				})
			}
		}
	}

	next := 0
	rawNext, haveNext, err := s.KV.Get(keyUniqueID)
	if err != nil {
		return DoctorReport{}, fmt.Errorf("read counter: %w", err)
	}
	switch {
	case !haveNext:
		if haveTodos {
			issues = append(issues, DoctorIssue{
				Level:   DoctorIssueLevelWarn,
				Code:    "counter_missing",
				Message: "uniqueId key missing; the next id will be re-derived as max(id)+1",
			})
		}
		next = maxID + 1
	default:
		n, perr := strconv.Atoi(strings.TrimSpace(rawNext))
		if perr != nil || n < 0 {
			issues = append(issues, DoctorIssue{
				Level:   DoctorIssueLevelError,
				Code:    "counter_invalid",
				Message: fmt.Sprintf("uniqueId value %q is not a non-negative integer; the next id will be re-derived as max(id)+1", rawNext),
			})
			next = maxID + 1
		} else {
			next = n
			if parsed && n <= maxID {
				issues = append(issues, DoctorIssue{
					Level:   DoctorIssueLevelError,
					Code:    "counter_behind",
					Message: fmt.Sprintf("uniqueId %d does not exceed max task id %d; the next append would reissue an id", n, maxID),
				})
			}
		}
	}

	return DoctorReport{Issues: issues, Tasks: len(tasks), NextID: next}, nil
}
