package services

import (
	"testing"

	"vitacore/internal/models"
)

func testPlan() *models.TreatmentPlan {
	return &models.TreatmentPlan{
		ID:        "plan-1",
		UserID:    "user-1",
		Condition: "hypertension",
		Goals:     []string{"Lower blood pressure", "Improve sleep"},
	}
}

func TestGenerateActivityDetails(t *testing.T) {
	svc := NewDetailsService()

	for _, activityType := range []string{
		models.ActivityMedication, models.ActivityWorkout, models.ActivityMeditation,
		models.ActivityYoga, models.ActivityMeal, models.ActivityBiohacking,
		models.ActivityTreatment,
	} {
		details := svc.GenerateActivityDetails(
			&models.ScheduleActivity{ID: "a", Type: activityType}, testPlan())

		if details == nil || details.Benefits == nil {
			t.Fatalf("%s: no benefits generated", activityType)
		}
		if len(details.Benefits.TreatmentGoals) == 0 {
			t.Errorf("%s: no treatment goals", activityType)
		}
		if len(details.Benefits.ConditionSpecific) == 0 {
			t.Errorf("%s: no condition-specific benefits", activityType)
		}
		if len(details.Fields) == 0 {
			t.Errorf("%s: no type-specific fields", activityType)
		}
	}
}

// TestGenerateDetailsReturnsCopies verifies the cache hands out clones, so
// callers mutating one activity's details cannot poison another's.
func TestGenerateDetailsReturnsCopies(t *testing.T) {
	svc := NewDetailsService()
	plan := testPlan()
	workout := &models.ScheduleActivity{ID: "a", Type: models.ActivityWorkout}

	first := svc.GenerateActivityDetails(workout, plan)
	first.Benefits.TreatmentGoals = []string{"tampered"}
	first.Fields["tampered"] = true

	second := svc.GenerateActivityDetails(workout, plan)
	if len(second.Benefits.TreatmentGoals) == 1 && second.Benefits.TreatmentGoals[0] == "tampered" {
		t.Error("Cache returned a shared benefits slice")
	}
	if _, ok := second.Fields["tampered"]; ok {
		t.Error("Cache returned a shared fields map")
	}
}
