package model

// Task is one todo entry. IDs come from the store's counter and are
// never reused, even after the task is deleted.
type Task struct {
	ID        int    `json:"id"`
	Task      string `json:"task"`
	Completed bool   `json:"completed"`
}

// Snapshot is the full persisted state at a point in time: the id
// counter plus the task sequence in display (insertion) order.
type Snapshot struct {
	NextID int    `json:"nextId"`
	Tasks  []Task `json:"tasks"`
}

// Find returns the task with the given id, if present.
func (s *Snapshot) Find(id int) (*Task, bool) {
	for i := range s.Tasks {
		if s.Tasks[i].ID == id {
			return &s.Tasks[i], true
		}
	}
	return nil, false
}

// MaxID returns the largest id in the snapshot and whether any task exists.
func (s *Snapshot) MaxID() (int, bool) {
	max, ok := 0, false
	for _, t := range s.Tasks {
		if !ok || t.ID > max {
			max, ok = t.ID, true
		}
	}
	return max, ok
}
