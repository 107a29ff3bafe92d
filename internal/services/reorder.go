package services

import (
	"time"

	"vitacore/internal/models"
)

// ReorderBuffer is the minimum gap between the end of one activity and the
// start of the next after a reorder.
const ReorderBuffer = 15 * time.Minute

// Clock arithmetic happens against a fixed reference date so HH:MM strings
// compare unambiguously. Behavior past midnight is deliberately undefined:
// no clamping or day rollover is applied.
var clockRef = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// RecomputeActivityTimes takes activities in their requested new order and
// pushes start times forward so every adjacent pair keeps the minimum
// buffer. Single forward pass: index 0 keeps its time, each later activity
// starts no earlier than its (possibly just-updated) predecessor's end plus
// the buffer. Input order is preserved; the input slice is not mutated.
func RecomputeActivityTimes(activities []*models.ScheduleActivity) []*models.ScheduleActivity {
	out := make([]*models.ScheduleActivity, len(activities))
	for i, a := range activities {
		out[i] = a.Clone()
	}

	for i := 1; i < len(out); i++ {
		prev := out[i-1]
		minStart := parseClock(prev.Time).
			Add(time.Duration(prev.Duration) * time.Minute).
			Add(ReorderBuffer)
		if parseClock(out[i].Time).Before(minStart) {
			out[i].Time = formatClock(minStart)
		}
	}

	return out
}

func parseClock(clock string) time.Time {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		// Callers validate HH:MM at the boundary; treat garbage as midnight
		// rather than panicking mid-pass.
		return clockRef
	}
	return time.Date(clockRef.Year(), clockRef.Month(), clockRef.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
}

func formatClock(t time.Time) string {
	return t.Format("15:04")
}
