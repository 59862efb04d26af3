package store

import "testing"

func issueCodes(r DoctorReport) map[string]bool {
	out := map[string]bool{}
	for _, it := range r.Issues {
		out[it.Code] = true
	}
	return out
}

func TestDoctorHealthyStore(t *testing.T) {
	s := newMemStore()
	for _, text := range []string{"a", "b"} {
		if _, err := s.Append(text); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Remove(0); err != nil {
		t.Fatal(err)
	}

	r, err := s.Doctor()
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	if len(r.Issues) != 0 {
		t.Fatalf("healthy store reported issues: %+v", r.Issues)
	}
	if r.Tasks != 1 || r.NextID != 2 {
		t.Fatalf("report stats: %+v", r)
	}
	if r.HasErrors() {
		t.Fatalf("HasErrors on clean report")
	}
}

func TestDoctorFlagsBrokenStores(t *testing.T) {
	cases := []struct {
		name     string
		todos    string
		counter  string
		noTodos  bool
		noCount  bool
		wantCode string
		isError  bool
	}{
		{
			name:     "corrupt todos",
			todos:    "{broken",
			counter:  "0",
			wantCode: "todos_invalid_json",
			isError:  true,
		},
		{
			name:     "duplicate ids",
			todos:    `[{"id":1,"task":"a","completed":false},{"id":1,"task":"b","completed":false}]`,
			counter:  "2",
			wantCode: "task_duplicate_id",
			isError:  true,
		},
		{
			name:     "counter behind",
			todos:    `[{"id":4,"task":"a","completed":false}]`,
			counter:  "3",
			wantCode: "counter_behind",
			isError:  true,
		},
		{
			name:     "counter garbage",
			todos:    `[]`,
			counter:  "soon",
			wantCode: "counter_invalid",
			isError:  true,
		},
		{
			name:     "counter missing",
			todos:    `[{"id":0,"task":"a","completed":false}]`,
			noCount:  true,
			wantCode: "counter_missing",
		},
		{
			name:     "empty text",
			todos:    `[{"id":0,"task":"  ","completed":false}]`,
			counter:  "1",
			wantCode: "task_empty_text",
		},
		{
			name:     "negative id",
			todos:    `[{"id":-2,"task":"a","completed":false}]`,
			counter:  "1",
			wantCode: "task_negative_id",
			isError:  true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newMemStore()
			if !tc.noTodos {
				if err := s.KV.Set("todos", tc.todos); err != nil {
					t.Fatal(err)
				}
			}
			if !tc.noCount {
				if err := s.KV.Set("uniqueId", tc.counter); err != nil {
					t.Fatal(err)
				}
			}

			r, err := s.Doctor()
			if err != nil {
				t.Fatalf("doctor: %v", err)
			}
			if !issueCodes(r)[tc.wantCode] {
				t.Fatalf("missing %q in %+v", tc.wantCode, r.Issues)
			}
			if r.HasErrors() != tc.isError {
				t.Fatalf("HasErrors() = %v, want %v (%+v)", r.HasErrors(), tc.isError, r.Issues)
			}
		})
	}
}

func TestDoctorEmptyStoreIsClean(t *testing.T) {
	s := newMemStore()
	r, err := s.Doctor()
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	if len(r.Issues) != 0 || r.Tasks != 0 || r.NextID != 0 {
		t.Fatalf("fresh store report: %+v", r)
	}
}
