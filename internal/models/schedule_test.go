package models

import (
	"encoding/json"
	"testing"
)

// TestActivityDetailsWireFormat verifies details serialize as one flat
// object with benefits as a nested key, and that unknown detail keys
// round-trip.
func TestActivityDetailsWireFormat(t *testing.T) {
	details := &ActivityDetails{
		Benefits: &Benefits{
			TreatmentGoals: []string{"Lower blood pressure"},
		},
		Fields: map[string]any{
			"dosage":    "10mg",
			"customKey": "kept as-is",
		},
	}

	raw, err := json.Marshal(details)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var flat map[string]any
	if err := json.Unmarshal(raw, &flat); err != nil {
		t.Fatalf("Unmarshal to map failed: %v", err)
	}
	if flat["dosage"] != "10mg" {
		t.Errorf("dosage not flattened: %v", flat)
	}
	if _, ok := flat["benefits"].(map[string]any); !ok {
		t.Errorf("benefits not nested: %v", flat["benefits"])
	}
	if _, ok := flat["Fields"]; ok {
		t.Error("Fields leaked into wire format")
	}

	var decoded ActivityDetails
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal back failed: %v", err)
	}
	if decoded.Benefits == nil || len(decoded.Benefits.TreatmentGoals) != 1 {
		t.Errorf("Benefits lost in round trip: %+v", decoded.Benefits)
	}
	if decoded.Fields["customKey"] != "kept as-is" {
		t.Errorf("Unknown key lost: %v", decoded.Fields)
	}
}

// TestDetailsUpdateDistinguishesAbsent verifies a JSON update without a
// benefits key leaves Benefits nil, while a present benefits object does not.
func TestDetailsUpdateDistinguishesAbsent(t *testing.T) {
	var without DetailsUpdate
	if err := json.Unmarshal([]byte(`{"dosage":"20mg"}`), &without); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if without.Benefits != nil {
		t.Error("Absent benefits decoded as present")
	}
	if without.Fields["dosage"] != "20mg" {
		t.Errorf("Field lost: %v", without.Fields)
	}

	var with DetailsUpdate
	if err := json.Unmarshal([]byte(`{"benefits":{"keyMetrics":["HRV"]}}`), &with); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if with.Benefits == nil || with.Benefits.KeyMetrics == nil {
		t.Fatalf("Present benefits decoded as absent: %+v", with.Benefits)
	}
}

func TestActivityValidate(t *testing.T) {
	valid := &ScheduleActivity{
		Type:     ActivityWorkout,
		Title:    "Run",
		Time:     "07:00",
		Duration: 30,
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Valid activity rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*ScheduleActivity)
	}{
		{"unknown type", func(a *ScheduleActivity) { a.Type = "napping" }},
		{"empty title", func(a *ScheduleActivity) { a.Title = "" }},
		{"bad clock", func(a *ScheduleActivity) { a.Time = "25:99" }},
		{"duration too short", func(a *ScheduleActivity) { a.Duration = 1 }},
		{"duration too long", func(a *ScheduleActivity) { a.Duration = 999 }},
	}
	for _, tc := range cases {
		a := valid.Clone()
		tc.mutate(a)
		if err := a.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}
