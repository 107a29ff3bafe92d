package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Activity types supported by the daily schedule
const (
	ActivityMedication = "medication"
	ActivityWorkout    = "workout"
	ActivityMeditation = "meditation"
	ActivityYoga       = "yoga"
	ActivityMeal       = "meal"
	ActivityBiohacking = "biohacking"
	ActivityTreatment  = "treatment"
)

// ValidActivityTypes is the set of accepted activity type tags
var ValidActivityTypes = map[string]bool{
	ActivityMedication: true,
	ActivityWorkout:    true,
	ActivityMeditation: true,
	ActivityYoga:       true,
	ActivityMeal:       true,
	ActivityBiohacking: true,
	ActivityTreatment:  true,
}

// Duration bounds for a single activity (minutes)
const (
	MinActivityDuration = 5
	MaxActivityDuration = 240
)

// Benefits is the structured sub-object of activity details shared by every
// activity type: treatment-goal relevance, condition-specific rationale,
// personalized tips and the metrics worth tracking.
type Benefits struct {
	TreatmentGoals    []string `json:"treatmentGoals,omitempty"`
	ConditionSpecific []string `json:"conditionSpecific,omitempty"`
	PersonalizedTips  []string `json:"personalizedTips,omitempty"`
	KeyMetrics        []string `json:"keyMetrics,omitempty"`
}

// Clone returns a deep copy
func (b *Benefits) Clone() *Benefits {
	if b == nil {
		return nil
	}
	return &Benefits{
		TreatmentGoals:    append([]string(nil), b.TreatmentGoals...),
		ConditionSpecific: append([]string(nil), b.ConditionSpecific...),
		PersonalizedTips:  append([]string(nil), b.PersonalizedTips...),
		KeyMetrics:        append([]string(nil), b.KeyMetrics...),
	}
}

// ActivityDetails carries the type-specific detail payload of an activity.
// Benefits is common to all types; the remaining keys vary by type (dosage
// for medication, sets/reps for workouts, macros for meals) and are kept in
// Fields so unknown keys round-trip untouched. On the wire the two are
// flattened into a single JSON object with "benefits" as one key.
type ActivityDetails struct {
	Benefits *Benefits
	Fields   map[string]any
}

// MarshalJSON flattens Fields and Benefits into one object
func (d ActivityDetails) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Fields)+1)
	for k, v := range d.Fields {
		out[k] = v
	}
	if d.Benefits != nil {
		out["benefits"] = d.Benefits
	}
	return json.Marshal(out)
}

// UnmarshalJSON splits the "benefits" key out of the flat object
func (d *ActivityDetails) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if b, ok := raw["benefits"]; ok {
		d.Benefits = &Benefits{}
		if err := json.Unmarshal(b, d.Benefits); err != nil {
			return err
		}
		delete(raw, "benefits")
	}
	if len(raw) > 0 {
		d.Fields = make(map[string]any, len(raw))
		for k, v := range raw {
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return err
			}
			d.Fields[k] = val
		}
	}
	return nil
}

// Clone returns a copy with its own Fields map. The merge engine only ever
// stores freshly decoded values, so sharing nested values is safe.
func (d *ActivityDetails) Clone() *ActivityDetails {
	if d == nil {
		return nil
	}
	out := &ActivityDetails{Benefits: d.Benefits.Clone()}
	if d.Fields != nil {
		out.Fields = make(map[string]any, len(d.Fields))
		for k, v := range d.Fields {
			out.Fields[k] = v
		}
	}
	return out
}

// ActivityLog holds the patient-reported outcome of an activity. Notes can
// be written at any time; the remaining fields are populated from the
// completion report when the activity is marked done.
type ActivityLog struct {
	Notes           string   `json:"notes,omitempty"`
	Insights        []string `json:"insights,omitempty"`
	Effectiveness   int      `json:"effectiveness,omitempty"` // 1-10 self-reported
	Recommendations []string `json:"recommendations,omitempty"`
	CompletedAt     string   `json:"completedAt,omitempty"` // RFC3339
}

// Clone returns a deep copy
func (l *ActivityLog) Clone() *ActivityLog {
	if l == nil {
		return nil
	}
	return &ActivityLog{
		Notes:           l.Notes,
		Insights:        append([]string(nil), l.Insights...),
		Effectiveness:   l.Effectiveness,
		Recommendations: append([]string(nil), l.Recommendations...),
		CompletedAt:     l.CompletedAt,
	}
}

// ScheduleActivity is one timed task within a daily schedule
type ScheduleActivity struct {
	ID          string           `json:"id"`
	Type        string           `json:"type"`
	Title       string           `json:"title"`
	Time        string           `json:"time"` // HH:MM
	Duration    int              `json:"duration"`
	Description string           `json:"description,omitempty"`
	Completed   bool             `json:"completed"`
	Details     *ActivityDetails `json:"details,omitempty"`
	ActivityLog *ActivityLog     `json:"activityLog,omitempty"`
}

// Clone returns a deep copy for snapshot reads
func (a *ScheduleActivity) Clone() *ScheduleActivity {
	if a == nil {
		return nil
	}
	out := *a
	out.Details = a.Details.Clone()
	out.ActivityLog = a.ActivityLog.Clone()
	return &out
}

// Validate checks the fields every activity draft must carry
func (a *ScheduleActivity) Validate() error {
	if !ValidActivityTypes[a.Type] {
		return fmt.Errorf("invalid activity type %q", a.Type)
	}
	if a.Title == "" {
		return fmt.Errorf("title is required")
	}
	if err := ValidateClock(a.Time); err != nil {
		return err
	}
	if a.Duration < MinActivityDuration || a.Duration > MaxActivityDuration {
		return fmt.Errorf("duration must be between %d and %d minutes", MinActivityDuration, MaxActivityDuration)
	}
	return nil
}

// ValidateClock checks an HH:MM wall-clock string
func ValidateClock(clock string) error {
	if _, err := time.Parse("15:04", clock); err != nil {
		return fmt.Errorf("invalid time %q (expected HH:MM)", clock)
	}
	return nil
}

// DailySchedule is the ordered activity list for one user on one date
type DailySchedule struct {
	ID         string              `json:"id"`
	UserID     string              `json:"userId"`
	Date       string              `json:"date"` // YYYY-MM-DD
	Activities []*ScheduleActivity `json:"activities"`
}

// Clone returns a deep copy for snapshot reads
func (s *DailySchedule) Clone() *DailySchedule {
	if s == nil {
		return nil
	}
	out := &DailySchedule{ID: s.ID, UserID: s.UserID, Date: s.Date}
	out.Activities = make([]*ScheduleActivity, len(s.Activities))
	for i, a := range s.Activities {
		out.Activities[i] = a.Clone()
	}
	return out
}

// BenefitsUpdate is a partial update of the benefits block. Pointer-to-slice
// distinguishes "leave untouched" (nil) from "overwrite with empty" (&[]).
type BenefitsUpdate struct {
	TreatmentGoals    *[]string `json:"treatmentGoals,omitempty"`
	ConditionSpecific *[]string `json:"conditionSpecific,omitempty"`
	PersonalizedTips  *[]string `json:"personalizedTips,omitempty"`
	KeyMetrics        *[]string `json:"keyMetrics,omitempty"`
}

// DetailsUpdate is a partial update of the details payload: benefits is
// merged one level deeper, every other present key overwrites the matching
// detail field.
type DetailsUpdate struct {
	Benefits *BenefitsUpdate
	Fields   map[string]any
}

// UnmarshalJSON splits "benefits" from the flat update object
func (d *DetailsUpdate) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if b, ok := raw["benefits"]; ok {
		d.Benefits = &BenefitsUpdate{}
		if err := json.Unmarshal(b, d.Benefits); err != nil {
			return err
		}
		delete(raw, "benefits")
	}
	if len(raw) > 0 {
		d.Fields = make(map[string]any, len(raw))
		for k, v := range raw {
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return err
			}
			d.Fields[k] = val
		}
	}
	return nil
}

// ActivityLogUpdate is a field-wise partial update of the activity log
type ActivityLogUpdate struct {
	Notes           *string   `json:"notes,omitempty"`
	Insights        *[]string `json:"insights,omitempty"`
	Effectiveness   *int      `json:"effectiveness,omitempty"`
	Recommendations *[]string `json:"recommendations,omitempty"`
	CompletedAt     *string   `json:"completedAt,omitempty"`
}

// ActivityUpdate is a partial update of one schedule activity. Absent keys
// are left untouched at every level.
type ActivityUpdate struct {
	Title       *string            `json:"title,omitempty"`
	Time        *string            `json:"time,omitempty"`
	Duration    *int               `json:"duration,omitempty"`
	Description *string            `json:"description,omitempty"`
	Completed   *bool              `json:"completed,omitempty"`
	Details     *DetailsUpdate     `json:"details,omitempty"`
	ActivityLog *ActivityLogUpdate `json:"activityLog,omitempty"`
}

// Validate rejects malformed update fields before any store is touched
func (u *ActivityUpdate) Validate() error {
	if u.Time != nil {
		if err := ValidateClock(*u.Time); err != nil {
			return err
		}
	}
	if u.Duration != nil && (*u.Duration < MinActivityDuration || *u.Duration > MaxActivityDuration) {
		return fmt.Errorf("duration must be between %d and %d minutes", MinActivityDuration, MaxActivityDuration)
	}
	return nil
}

// AddActivityRequest is the POST /api/daily-schedule body
type AddActivityRequest struct {
	ScheduleID string            `json:"scheduleId"`
	Activity   *ScheduleActivity `json:"activity"`
}

// PatchScheduleRequest is the PATCH /api/daily-schedule body. Either a full
// reorder (Reorder=true with the replacement activity list) or a partial
// update of one activity.
type PatchScheduleRequest struct {
	ScheduleID string              `json:"scheduleId"`
	Reorder    bool                `json:"reorder,omitempty"`
	Activities []*ScheduleActivity `json:"activities,omitempty"`
	ActivityID string              `json:"activityId,omitempty"`
	Updates    *ActivityUpdate     `json:"updates,omitempty"`
}

// DeleteActivityRequest is the DELETE /api/daily-schedule body
type DeleteActivityRequest struct {
	ScheduleID string `json:"scheduleId"`
	ActivityID string `json:"activityId"`
}
