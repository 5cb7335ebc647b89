package models

import "testing"

func TestStatusCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		expected bool
	}{
		{StatusActive, StatusCompleted, true},
		{StatusActive, StatusActive, true},
		{StatusCompleted, StatusCompleted, true},
		{StatusCompleted, StatusActive, false},
		{Status("COMPLETE"), StatusCompleted, false},
	}

	for _, tc := range tests {
		if got := tc.from.CanTransition(tc.to); got != tc.expected {
			t.Errorf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.expected, got)
		}
	}
}

func TestJobPayload(t *testing.T) {
	job := &Job{ConfigJSON: []byte(`{"content":"Hi","model_id":1,"model_version_id":2}`)}

	p, err := job.Payload()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Content != "Hi" || p.ModelID != 1 || p.ModelVersionID != 2 {
		t.Fatalf("unexpected payload: %+v", p)
	}

	empty := &Job{}
	if _, err := empty.Payload(); err != nil {
		t.Fatalf("empty config should decode to zero payload: %v", err)
	}
}
