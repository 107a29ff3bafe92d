package models

import "time"

// TreatmentPlan is the practitioner-authored plan a user's daily schedules
// and generated activity details derive from. One plan per user.
type TreatmentPlan struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Condition  string    `json:"condition"` // primary condition being treated
	FocusAreas []string  `json:"focusAreas"`
	Goals      []string  `json:"goals"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// UpsertPlanRequest creates or replaces the caller's treatment plan
type UpsertPlanRequest struct {
	Condition  string   `json:"condition"`
	FocusAreas []string `json:"focusAreas,omitempty"`
	Goals      []string `json:"goals,omitempty"`
}
