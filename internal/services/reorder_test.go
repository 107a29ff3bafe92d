package services

import (
	"testing"

	"vitacore/internal/models"
)

func activity(id, start string, duration int) *models.ScheduleActivity {
	return &models.ScheduleActivity{
		ID:       id,
		Type:     models.ActivityWorkout,
		Title:    "Activity " + id,
		Time:     start,
		Duration: duration,
	}
}

// TestRecomputeOverlap verifies that an overlapping pair is pushed apart by
// the buffer: 09:00/30min followed by 09:15/20min must start at 09:45.
func TestRecomputeOverlap(t *testing.T) {
	in := []*models.ScheduleActivity{
		activity("a", "09:00", 30),
		activity("b", "09:15", 20),
	}

	out := RecomputeActivityTimes(in)

	if out[0].Time != "09:00" {
		t.Errorf("First activity moved: got %s, want 09:00", out[0].Time)
	}
	if out[1].Time != "09:45" {
		t.Errorf("Second activity: got %s, want 09:45", out[1].Time)
	}
}

// TestRecomputeAlreadySpaced verifies well-spaced activities are untouched
func TestRecomputeAlreadySpaced(t *testing.T) {
	in := []*models.ScheduleActivity{
		activity("a", "08:00", 30),
		activity("b", "09:00", 30),
		activity("c", "11:00", 45),
	}

	out := RecomputeActivityTimes(in)

	for i, want := range []string{"08:00", "09:00", "11:00"} {
		if out[i].Time != want {
			t.Errorf("Activity %d: got %s, want %s", i, out[i].Time, want)
		}
	}
}

// TestRecomputeCascade verifies a push propagates down the whole list
func TestRecomputeCascade(t *testing.T) {
	in := []*models.ScheduleActivity{
		activity("a", "09:00", 60),
		activity("b", "09:10", 30),
		activity("c", "09:20", 15),
	}

	out := RecomputeActivityTimes(in)

	if out[1].Time != "10:15" {
		t.Errorf("Second activity: got %s, want 10:15", out[1].Time)
	}
	if out[2].Time != "11:00" {
		t.Errorf("Third activity: got %s, want 11:00", out[2].Time)
	}
}

// TestRecomputeDoesNotMutateInput verifies the input slice is left as-is
func TestRecomputeDoesNotMutateInput(t *testing.T) {
	in := []*models.ScheduleActivity{
		activity("a", "09:00", 30),
		activity("b", "09:15", 20),
	}

	_ = RecomputeActivityTimes(in)

	if in[1].Time != "09:15" {
		t.Errorf("Input was mutated: got %s, want 09:15", in[1].Time)
	}
}

func TestRecomputeEmptyAndSingle(t *testing.T) {
	if out := RecomputeActivityTimes(nil); len(out) != 0 {
		t.Errorf("Expected empty result, got %d entries", len(out))
	}

	out := RecomputeActivityTimes([]*models.ScheduleActivity{activity("a", "07:30", 15)})
	if len(out) != 1 || out[0].Time != "07:30" {
		t.Errorf("Single activity should keep its time, got %v", out)
	}
}
