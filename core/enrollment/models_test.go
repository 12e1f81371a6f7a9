package enrollment

import "testing"

func TestProgressPercent(t *testing.T) {
	tests := []struct {
		completed, total, want int
	}{
		{0, 0, 0},
		{3, 0, 0},
		{0, 10, 0},
		{1, 3, 33},
		{2, 3, 66},
		{3, 3, 100},
		{5, 3, 100},
		{-1, 3, 0},
	}
	for _, tt := range tests {
		if got := ProgressPercent(tt.completed, tt.total); got != tt.want {
			t.Errorf("ProgressPercent(%d, %d) = %d; want %d", tt.completed, tt.total, got, tt.want)
		}
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusActive, StatusCompleted, true},
		{StatusActive, StatusSuspended, true},
		{StatusSuspended, StatusActive, true},
		{StatusCompleted, StatusSuspended, true},
		{StatusCompleted, StatusActive, false},
		{StatusSuspended, StatusCompleted, false},
		{StatusActive, StatusActive, false},
		{"lol", StatusActive, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v; want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestEnrollment_HasAccess(t *testing.T) {
	for status, want := range map[string]bool{StatusActive: true, StatusCompleted: true, StatusSuspended: false} {
		if got := (Enrollment{Status: status}).HasAccess(); got != want {
			t.Errorf("HasAccess(%s) = %v; want %v", status, got, want)
		}
	}
}
