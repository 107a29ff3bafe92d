package services

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"vitacore/internal/models"
)

// DetailsService generates the type-specific details payload for an
// activity from the user's treatment plan. Generation is a pure function of
// (activity type, plan), so results are cached per (type, plan id).
type DetailsService struct {
	cache *cache.Cache
}

// NewDetailsService creates a details service with a 12h generation cache
func NewDetailsService() *DetailsService {
	return &DetailsService{
		cache: cache.New(12*time.Hour, 1*time.Hour),
	}
}

// GenerateActivityDetails returns the details for an activity under the
// given plan, including the common benefits block.
func (s *DetailsService) GenerateActivityDetails(activity *models.ScheduleActivity, plan *models.TreatmentPlan) *models.ActivityDetails {
	key := fmt.Sprintf("%s|%s", activity.Type, plan.ID)
	if cached, found := s.cache.Get(key); found {
		return cached.(*models.ActivityDetails).Clone()
	}

	details := &models.ActivityDetails{
		Benefits: buildBenefits(activity.Type, plan),
		Fields:   buildTypeFields(activity.Type),
	}

	s.cache.Set(key, details.Clone(), cache.DefaultExpiration)
	return details
}

// buildBenefits fills the common benefits block from the plan's condition
// and goals plus per-type tips and metrics.
func buildBenefits(activityType string, plan *models.TreatmentPlan) *models.Benefits {
	goals := plan.Goals
	if len(goals) > 3 {
		goals = goals[:3]
	}

	b := &models.Benefits{
		TreatmentGoals: append([]string(nil), goals...),
	}
	if plan.Condition != "" {
		b.ConditionSpecific = []string{fmt.Sprintf("Supports management of %s", plan.Condition)}
	}

	switch activityType {
	case models.ActivityMedication:
		b.PersonalizedTips = []string{"Take with food unless directed otherwise", "Set a recurring reminder at the scheduled time"}
		b.KeyMetrics = []string{"Adherence streak", "Reported side effects"}
	case models.ActivityWorkout:
		b.PersonalizedTips = []string{"Warm up for 5 minutes before starting", "Stop if you feel sharp pain"}
		b.KeyMetrics = []string{"Average heart rate", "Perceived exertion (RPE)"}
	case models.ActivityMeditation:
		b.PersonalizedTips = []string{"Find a quiet spot and silence notifications"}
		b.KeyMetrics = []string{"Session length", "Post-session calm score"}
	case models.ActivityYoga:
		b.PersonalizedTips = []string{"Favor slow transitions over depth of pose"}
		b.KeyMetrics = []string{"Flexibility progress", "Balance hold time"}
	case models.ActivityMeal:
		b.PersonalizedTips = []string{"Eat slowly and stop at 80% fullness"}
		b.KeyMetrics = []string{"Protein intake", "Post-meal energy"}
	case models.ActivityBiohacking:
		b.PersonalizedTips = []string{"Log how you feel immediately after the protocol"}
		b.KeyMetrics = []string{"HRV trend", "Sleep quality"}
	case models.ActivityTreatment:
		b.PersonalizedTips = []string{"Arrive 10 minutes early and hydrate beforehand"}
		b.KeyMetrics = []string{"Symptom score before/after"}
	}

	return b
}

// buildTypeFields returns the variant-specific detail fields. Values are
// starting templates a practitioner refines through partial updates.
func buildTypeFields(activityType string) map[string]any {
	switch activityType {
	case models.ActivityMedication:
		return map[string]any{
			"dosage":       "as prescribed",
			"timing":       "with meal",
			"interactions": []any{},
		}
	case models.ActivityWorkout:
		return map[string]any{
			"intensity": "moderate",
			"sets":      3,
			"reps":      12,
			"equipment": []any{"bodyweight"},
		}
	case models.ActivityMeditation:
		return map[string]any{
			"technique": "breath focus",
			"posture":   "seated",
		}
	case models.ActivityYoga:
		return map[string]any{
			"style":     "hatha",
			"propsList": []any{"mat", "block"},
		}
	case models.ActivityMeal:
		return map[string]any{
			"macros":    map[string]any{"protein": "30g", "carbs": "45g", "fat": "15g"},
			"hydration": "250ml water",
		}
	case models.ActivityBiohacking:
		return map[string]any{
			"protocol": "cold exposure",
			"duration": "3 minutes",
		}
	case models.ActivityTreatment:
		return map[string]any{
			"provider":  "clinic",
			"preNotes":  "hydrate beforehand",
			"aftercare": "rest 1 hour",
		}
	default:
		return map[string]any{}
	}
}
