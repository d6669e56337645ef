package scheduler

import "testing"

func TestSchedulerErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *SchedulerError
		want string
	}{
		{"message only", &SchedulerError{Message: "boom"}, "boom"},
		{"message and code", &SchedulerError{Message: "boom", Code: "X"}, "X: boom"},
		{"message, code, and node", &SchedulerError{Message: "boom", Code: "X", NodeID: "n1"}, "X: boom (node n1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewDependencyInvariantViolation(t *testing.T) {
	err := newDependencyInvariantViolation("n7", "unresolved == 0")
	if err.Code != "DEPENDENCY_INVARIANT_VIOLATION" {
		t.Errorf("Code = %q, want DEPENDENCY_INVARIANT_VIOLATION", err.Code)
	}
	if err.NodeID != "n7" {
		t.Errorf("NodeID = %q, want n7", err.NodeID)
	}
}
