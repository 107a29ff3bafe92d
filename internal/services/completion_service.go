package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"vitacore/internal/models"
)

// ToolReply is one turn from the conversational tool: either the next
// question (session stays active) or the final completion report.
type ToolReply struct {
	Message    string
	IsComplete bool
	Report     *models.CompletionReport
}

// ConversationalTool generates the next question or the final completion
// report from a session transcript. Implementations receive a snapshot and
// must not retain it.
type ConversationalTool interface {
	StartSession(ctx context.Context, sess *models.CompletionSession) (string, error)
	ProcessInput(ctx context.Context, sess *models.CompletionSession, message string) (*ToolReply, error)
}

// CompletionService runs the per-key session state machine gating activity
// completion. It never writes to the schedule store: on completion it hands
// the report to the orchestration layer via the ToolReply and keeps it on
// the session until End is called.
type CompletionService struct {
	store *SessionStore
	tool  ConversationalTool
}

// NewCompletionService creates a new completion session engine
func NewCompletionService(store *SessionStore, tool ConversationalTool) *CompletionService {
	return &CompletionService{store: store, tool: tool}
}

// HasActiveSession reports whether a session exists for the key
func (s *CompletionService) HasActiveSession(key string) bool {
	_, ok := s.store.Get(key)
	return ok
}

// Start transitions a key from Absent to Active and returns the coach's
// opening message. Returns ErrSessionActive if the key already holds a
// session. The key is reserved before the tool call so a concurrent Start
// observes it as Active; the tool call itself runs outside the lock.
func (s *CompletionService) Start(ctx context.Context, key, userID, activityID, activityType string) (string, error) {
	lock := s.store.KeyLock(key)

	lock.Lock()
	if _, ok := s.store.Get(key); ok {
		lock.Unlock()
		return "", ErrSessionActive
	}
	now := time.Now()
	sess := &models.CompletionSession{
		Key:          key,
		UserID:       userID,
		ActivityID:   activityID,
		ActivityType: activityType,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.store.Put(sess)
	snapshot := sess.Snapshot()
	lock.Unlock()

	started := time.Now()
	opening, err := s.tool.StartSession(ctx, snapshot)
	recordCoachTurn(time.Since(started).Seconds())
	if err != nil {
		recordCoachError("start")
		lock.Lock()
		s.store.Delete(key)
		lock.Unlock()
		return "", fmt.Errorf("conversational tool start: %w", err)
	}

	lock.Lock()
	sess.Transcript = append(sess.Transcript, models.SessionTurn{
		Role:      models.RoleAssistant,
		Content:   opening,
		Timestamp: time.Now(),
	})
	sess.UpdatedAt = time.Now()
	lock.Unlock()

	recordSessionStarted()
	log.Printf("💬 [SESSION] Started completion session for activity %s (key: %s)", activityID, key)
	return opening, nil
}

// Chat appends the user turn, consults the tool with the full transcript,
// and appends the assistant turn. Requires an Active session; returns
// ErrSessionNotFound otherwise. Only transcript reads and appends run under
// the per-key lock; the blocking tool call does not, so a slow upstream
// call never stalls turns on other sessions.
//
// If the session already carries a pending report (the tool finished but
// the orchestrator's persistence step failed), the report is returned again
// without consulting the tool, so the persistence step can be retried
// without re-querying the patient.
func (s *CompletionService) Chat(ctx context.Context, key, message string) (*ToolReply, *models.CompletionSession, error) {
	lock := s.store.KeyLock(key)

	lock.Lock()
	sess, ok := s.store.Get(key)
	if !ok {
		lock.Unlock()
		return nil, nil, ErrSessionNotFound
	}
	if sess.Report != nil {
		snapshot := sess.Snapshot()
		lock.Unlock()
		return &ToolReply{
			Message:    "Activity report is ready.",
			IsComplete: true,
			Report:     snapshot.Report,
		}, snapshot, nil
	}
	userTurn := models.SessionTurn{
		Role:      models.RoleUser,
		Content:   message,
		Timestamp: time.Now(),
	}
	sess.Transcript = append(sess.Transcript, userTurn)
	turnIdx := len(sess.Transcript) - 1
	sess.UpdatedAt = time.Now()
	snapshot := sess.Snapshot()
	lock.Unlock()

	started := time.Now()
	reply, err := s.tool.ProcessInput(ctx, snapshot, message)
	recordCoachTurn(time.Since(started).Seconds())
	if err != nil {
		recordCoachError("chat")
		// Drop the dangling user turn so a client retry does not duplicate
		// it. Remove exactly the turn this call appended: another chat on
		// the same key may have added turns behind the tool call, so a
		// blind trim of the tail could discard that call's turn instead.
		lock.Lock()
		if turnIdx < len(sess.Transcript) && sess.Transcript[turnIdx] == userTurn {
			sess.Transcript = append(sess.Transcript[:turnIdx], sess.Transcript[turnIdx+1:]...)
		}
		lock.Unlock()
		return nil, nil, fmt.Errorf("conversational tool: %w", err)
	}

	lock.Lock()
	sess.Transcript = append(sess.Transcript, models.SessionTurn{
		Role:      models.RoleAssistant,
		Content:   reply.Message,
		Timestamp: time.Now(),
	})
	if reply.IsComplete && reply.Report != nil {
		sess.Report = reply.Report
		recordSessionCompleted()
	}
	sess.UpdatedAt = time.Now()
	snapshot = sess.Snapshot()
	lock.Unlock()

	return reply, snapshot, nil
}

// End transitions a key to Absent. Idempotent: ending an Absent session is
// a success, to tolerate client retries and cleanup races.
func (s *CompletionService) End(key string) {
	lock := s.store.KeyLock(key)
	lock.Lock()
	s.store.Delete(key)
	lock.Unlock()
}
