package services

import "vitacore/internal/models"

// MergeActivity applies a partial update to an activity and returns the
// merged copy. The input activity is not mutated.
//
// Per-field policy:
//   - title/time/duration/description/completed: overwrite when present
//   - details: shallow merge key-by-key onto the existing details
//   - details.benefits: merged one level deeper, leaf-key last-write-wins,
//     so updating treatmentGoals alone never erases conditionSpecific,
//     personalizedTips or keyMetrics
//   - activityLog: field-wise overwrite of present fields
//   - keys absent from the update are left untouched at every level
func MergeActivity(existing *models.ScheduleActivity, update *models.ActivityUpdate) *models.ScheduleActivity {
	merged := existing.Clone()
	if update == nil {
		return merged
	}

	if update.Title != nil {
		merged.Title = *update.Title
	}
	if update.Time != nil {
		merged.Time = *update.Time
	}
	if update.Duration != nil {
		merged.Duration = *update.Duration
	}
	if update.Description != nil {
		merged.Description = *update.Description
	}
	if update.Completed != nil {
		merged.Completed = *update.Completed
	}
	if update.Details != nil {
		merged.Details = mergeDetails(merged.Details, update.Details)
	}
	if update.ActivityLog != nil {
		merged.ActivityLog = mergeActivityLog(merged.ActivityLog, update.ActivityLog)
	}

	return merged
}

func mergeDetails(existing *models.ActivityDetails, update *models.DetailsUpdate) *models.ActivityDetails {
	out := existing.Clone()
	if out == nil {
		out = &models.ActivityDetails{}
	}

	if len(update.Fields) > 0 {
		if out.Fields == nil {
			out.Fields = make(map[string]any, len(update.Fields))
		}
		for k, v := range update.Fields {
			out.Fields[k] = v
		}
	}
	if update.Benefits != nil {
		out.Benefits = mergeBenefits(out.Benefits, update.Benefits)
	}

	return out
}

func mergeBenefits(existing *models.Benefits, update *models.BenefitsUpdate) *models.Benefits {
	out := existing.Clone()
	if out == nil {
		out = &models.Benefits{}
	}

	if update.TreatmentGoals != nil {
		out.TreatmentGoals = append([]string(nil), (*update.TreatmentGoals)...)
	}
	if update.ConditionSpecific != nil {
		out.ConditionSpecific = append([]string(nil), (*update.ConditionSpecific)...)
	}
	if update.PersonalizedTips != nil {
		out.PersonalizedTips = append([]string(nil), (*update.PersonalizedTips)...)
	}
	if update.KeyMetrics != nil {
		out.KeyMetrics = append([]string(nil), (*update.KeyMetrics)...)
	}

	return out
}

func mergeActivityLog(existing *models.ActivityLog, update *models.ActivityLogUpdate) *models.ActivityLog {
	out := existing.Clone()
	if out == nil {
		out = &models.ActivityLog{}
	}

	if update.Notes != nil {
		out.Notes = *update.Notes
	}
	if update.Insights != nil {
		out.Insights = append([]string(nil), (*update.Insights)...)
	}
	if update.Effectiveness != nil {
		out.Effectiveness = *update.Effectiveness
	}
	if update.Recommendations != nil {
		out.Recommendations = append([]string(nil), (*update.Recommendations)...)
	}
	if update.CompletedAt != nil {
		out.CompletedAt = *update.CompletedAt
	}

	return out
}
