package models

import "time"

// Transcript roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SessionTurn is one message in a completion session transcript
type SessionTurn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// CompletionReport is the outcome summary the conversational coach produces
// once it has collected enough information from the patient.
type CompletionReport struct {
	Summary         string   `json:"summary,omitempty"`
	Insights        []string `json:"insights"`
	Effectiveness   int      `json:"effectiveness"` // 1-10
	Recommendations []string `json:"recommendations"`
}

// CompletionSession is one bounded conversation gating an activity's
// completion. It holds a weak reference to the activity id only; it never
// mutates the activity itself. Report stays set after the coach finishes
// until the orchestrator has persisted it and ended the session, so a failed
// persistence step can be retried without re-querying the patient.
type CompletionSession struct {
	Key          string            `json:"key"`
	UserID       string            `json:"userId"`
	ActivityID   string            `json:"activityId"`
	ActivityType string            `json:"activityType"`
	Transcript   []SessionTurn     `json:"transcript"`
	Report       *CompletionReport `json:"report,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// Snapshot returns a copy safe to hand to collaborators outside the
// session store's per-key lock.
func (s *CompletionSession) Snapshot() *CompletionSession {
	out := *s
	out.Transcript = append([]SessionTurn(nil), s.Transcript...)
	if s.Report != nil {
		r := *s.Report
		r.Insights = append([]string(nil), s.Report.Insights...)
		r.Recommendations = append([]string(nil), s.Report.Recommendations...)
		out.Report = &r
	}
	return &out
}

// ActivityLogRequest is the POST /api/activity-log body
type ActivityLogRequest struct {
	Action       string `json:"action"` // "start", "chat", "end"
	ActivityID   string `json:"activityId,omitempty"`
	ActivityType string `json:"activityType,omitempty"`
	Message      string `json:"message,omitempty"`
}

// ActivityLogResponse is the POST /api/activity-log response
type ActivityLogResponse struct {
	Message    string            `json:"message,omitempty"`
	Report     *CompletionReport `json:"report,omitempty"`
	IsComplete bool              `json:"isComplete"`
	Success    bool              `json:"success"`
}
