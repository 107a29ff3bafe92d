package services

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"vitacore/internal/database"
	"vitacore/internal/models"
)

func setupScheduleService(t *testing.T) (*ScheduleService, *PlanService, func()) {
	t.Helper()

	tmpFile := fmt.Sprintf("test_schedule_%s.db", t.Name())
	db, err := database.New(tmpFile)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	plans := NewPlanService(db)
	svc := NewScheduleService(db, plans, NewDetailsService())

	cleanup := func() {
		db.Close()
		os.Remove(tmpFile)
	}
	return svc, plans, cleanup
}

func createTestPlan(t *testing.T, plans *PlanService, userID string) *models.TreatmentPlan {
	t.Helper()

	plan, err := plans.Upsert(userID, &models.UpsertPlanRequest{
		Condition:  "hypertension",
		FocusAreas: []string{"cardio", "stress"},
		Goals:      []string{"Lower blood pressure", "Improve sleep"},
	})
	if err != nil {
		t.Fatalf("Failed to create test plan: %v", err)
	}
	return plan
}

func TestGetScheduleRequiresPlan(t *testing.T) {
	svc, _, cleanup := setupScheduleService(t)
	defer cleanup()

	if _, err := svc.GetSchedule("user-1", "2026-08-30"); !errors.Is(err, ErrPlanNotFound) {
		t.Errorf("got %v, want ErrPlanNotFound", err)
	}
}

func TestGetScheduleLazyCreate(t *testing.T) {
	svc, plans, cleanup := setupScheduleService(t)
	defer cleanup()
	createTestPlan(t, plans, "user-1")

	schedule, err := svc.GetSchedule("user-1", "2026-08-30")
	if err != nil {
		t.Fatalf("GetSchedule failed: %v", err)
	}
	if schedule.UserID != "user-1" || schedule.Date != "2026-08-30" {
		t.Errorf("Wrong schedule identity: %+v", schedule)
	}
	if len(schedule.Activities) == 0 {
		t.Fatal("New schedule has no seeded activities")
	}
	for _, activity := range schedule.Activities {
		if activity.Details == nil {
			t.Errorf("Seeded activity %s has no details", activity.ID)
		}
	}

	// Second read returns the same schedule, not a new one
	again, err := svc.GetSchedule("user-1", "2026-08-30")
	if err != nil {
		t.Fatalf("Second GetSchedule failed: %v", err)
	}
	if again.ID != schedule.ID {
		t.Errorf("Schedule recreated: %s vs %s", again.ID, schedule.ID)
	}
	if len(again.Activities) != len(schedule.Activities) {
		t.Errorf("Activity count changed: %d vs %d", len(again.Activities), len(schedule.Activities))
	}

	// A different date gets its own schedule
	other, err := svc.GetSchedule("user-1", "2026-08-31")
	if err != nil {
		t.Fatalf("GetSchedule for other date failed: %v", err)
	}
	if other.ID == schedule.ID {
		t.Error("Different dates share a schedule")
	}
}

func TestAddActivity(t *testing.T) {
	svc, plans, cleanup := setupScheduleService(t)
	defer cleanup()
	createTestPlan(t, plans, "user-1")

	schedule, _ := svc.GetSchedule("user-1", "2026-08-30")
	before := len(schedule.Activities)

	added, err := svc.AddActivity(schedule.ID, &models.ScheduleActivity{
		Type:     models.ActivityYoga,
		Title:    "Sunset yoga",
		Time:     "18:00",
		Duration: 45,
	})
	if err != nil {
		t.Fatalf("AddActivity failed: %v", err)
	}
	if added.ID == "" {
		t.Error("Added activity has no id")
	}
	if added.Details == nil {
		t.Error("Added activity has no generated details")
	}

	schedule, _ = svc.GetSchedule("user-1", "2026-08-30")
	if len(schedule.Activities) != before+1 {
		t.Errorf("Activity count: got %d, want %d", len(schedule.Activities), before+1)
	}
	if last := schedule.Activities[len(schedule.Activities)-1]; last.ID != added.ID {
		t.Errorf("New activity not appended last: %s", last.ID)
	}

	if _, err := svc.AddActivity("missing-schedule", added.Clone()); !errors.Is(err, ErrScheduleNotFound) {
		t.Errorf("got %v, want ErrScheduleNotFound", err)
	}
}

func TestUpdateActivityStampsCompletedAtOnce(t *testing.T) {
	svc, plans, cleanup := setupScheduleService(t)
	defer cleanup()
	createTestPlan(t, plans, "user-1")

	schedule, _ := svc.GetSchedule("user-1", "2026-08-30")
	target := schedule.Activities[0]

	completed := true
	first, err := svc.UpdateActivity(schedule.ID, target.ID, &models.ActivityUpdate{Completed: &completed})
	if err != nil {
		t.Fatalf("UpdateActivity failed: %v", err)
	}
	if !first.Completed {
		t.Fatal("Activity not marked completed")
	}
	if first.ActivityLog == nil || first.ActivityLog.CompletedAt == "" {
		t.Fatal("completedAt not stamped")
	}

	// Replaying the same update must not move the timestamp
	second, err := svc.UpdateActivity(schedule.ID, target.ID, &models.ActivityUpdate{Completed: &completed})
	if err != nil {
		t.Fatalf("Replay update failed: %v", err)
	}
	if second.ActivityLog.CompletedAt != first.ActivityLog.CompletedAt {
		t.Errorf("completedAt moved on replay: %s vs %s",
			second.ActivityLog.CompletedAt, first.ActivityLog.CompletedAt)
	}
}

func TestUpdateActivityNotFound(t *testing.T) {
	svc, plans, cleanup := setupScheduleService(t)
	defer cleanup()
	createTestPlan(t, plans, "user-1")

	schedule, _ := svc.GetSchedule("user-1", "2026-08-30")

	title := "x"
	if _, err := svc.UpdateActivity(schedule.ID, "missing", &models.ActivityUpdate{Title: &title}); !errors.Is(err, ErrActivityNotFound) {
		t.Errorf("got %v, want ErrActivityNotFound", err)
	}
	if _, err := svc.UpdateActivity("missing", "missing", &models.ActivityUpdate{Title: &title}); !errors.Is(err, ErrScheduleNotFound) {
		t.Errorf("got %v, want ErrScheduleNotFound", err)
	}
}

func TestDeleteActivity(t *testing.T) {
	svc, plans, cleanup := setupScheduleService(t)
	defer cleanup()
	createTestPlan(t, plans, "user-1")

	schedule, _ := svc.GetSchedule("user-1", "2026-08-30")
	target := schedule.Activities[0]

	if err := svc.DeleteActivity(schedule.ID, target.ID); err != nil {
		t.Fatalf("DeleteActivity failed: %v", err)
	}
	if err := svc.DeleteActivity(schedule.ID, target.ID); !errors.Is(err, ErrActivityNotFound) {
		t.Errorf("Second delete: got %v, want ErrActivityNotFound", err)
	}

	schedule, _ = svc.GetSchedule("user-1", "2026-08-30")
	for _, activity := range schedule.Activities {
		if activity.ID == target.ID {
			t.Error("Deleted activity still present")
		}
	}
}

func TestReorderActivities(t *testing.T) {
	svc, plans, cleanup := setupScheduleService(t)
	defer cleanup()
	createTestPlan(t, plans, "user-1")

	schedule, _ := svc.GetSchedule("user-1", "2026-08-30")
	n := len(schedule.Activities)
	if n < 2 {
		t.Fatalf("Need at least 2 seeded activities, got %d", n)
	}

	// Reverse the order
	reversed := make([]*models.ScheduleActivity, n)
	for i, activity := range schedule.Activities {
		reversed[n-1-i] = activity
	}

	out, err := svc.ReorderActivities(schedule.ID, reversed)
	if err != nil {
		t.Fatalf("ReorderActivities failed: %v", err)
	}
	if out[0].ID != reversed[0].ID {
		t.Errorf("Order not applied: got %s first", out[0].ID)
	}
	// First activity keeps its requested slot, the rest never overlap
	if out[0].Time != reversed[0].Time {
		t.Errorf("First activity time changed: %s vs %s", out[0].Time, reversed[0].Time)
	}

	persisted, _ := svc.GetSchedule("user-1", "2026-08-30")
	for i := range out {
		if persisted.Activities[i].ID != out[i].ID {
			t.Errorf("Persisted order mismatch at %d: %s vs %s", i, persisted.Activities[i].ID, out[i].ID)
		}
		if persisted.Activities[i].Time != out[i].Time {
			t.Errorf("Persisted time mismatch at %d: %s vs %s", i, persisted.Activities[i].Time, out[i].Time)
		}
	}
}

func TestReorderRejectsWrongIDSet(t *testing.T) {
	svc, plans, cleanup := setupScheduleService(t)
	defer cleanup()
	createTestPlan(t, plans, "user-1")

	schedule, _ := svc.GetSchedule("user-1", "2026-08-30")

	// Missing one activity
	if _, err := svc.ReorderActivities(schedule.ID, schedule.Activities[1:]); !errors.Is(err, ErrValidation) {
		t.Errorf("Partial list: got %v, want ErrValidation", err)
	}

	// Unknown id swapped in
	bogus := append([]*models.ScheduleActivity{}, schedule.Activities...)
	bogus[0] = activity("not-there", "09:00", 30)
	if _, err := svc.ReorderActivities(schedule.ID, bogus); !errors.Is(err, ErrValidation) {
		t.Errorf("Unknown id: got %v, want ErrValidation", err)
	}
}

func TestFindActivity(t *testing.T) {
	svc, plans, cleanup := setupScheduleService(t)
	defer cleanup()
	createTestPlan(t, plans, "user-1")

	schedule, _ := svc.GetSchedule("user-1", "2026-08-30")
	target := schedule.Activities[0]

	scheduleID, found, err := svc.FindActivity("user-1", target.ID)
	if err != nil {
		t.Fatalf("FindActivity failed: %v", err)
	}
	if scheduleID != schedule.ID || found.ID != target.ID {
		t.Errorf("Wrong result: schedule=%s activity=%s", scheduleID, found.ID)
	}

	// Another user cannot see it
	if _, _, err := svc.FindActivity("user-2", target.ID); !errors.Is(err, ErrActivityNotFound) {
		t.Errorf("Cross-user lookup: got %v, want ErrActivityNotFound", err)
	}
}
