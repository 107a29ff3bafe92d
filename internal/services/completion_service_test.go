package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"vitacore/internal/models"
)

// fakeTool is a scripted conversational tool. It completes the session
// after a fixed number of patient answers.
type fakeTool struct {
	turnsUntilDone int
	startCalls     int
	processCalls   int
	failNext       bool
}

func (f *fakeTool) StartSession(_ context.Context, sess *models.CompletionSession) (string, error) {
	f.startCalls++
	if f.failNext {
		f.failNext = false
		return "", errors.New("upstream down")
	}
	return "How did your " + sess.ActivityType + " go?", nil
}

func (f *fakeTool) ProcessInput(_ context.Context, _ *models.CompletionSession, _ string) (*ToolReply, error) {
	f.processCalls++
	if f.failNext {
		f.failNext = false
		return nil, errors.New("upstream down")
	}
	if f.processCalls < f.turnsUntilDone {
		return &ToolReply{Message: "Tell me more."}, nil
	}
	return &ToolReply{
		Message:    "Great work, here is your report.",
		IsComplete: true,
		Report: &models.CompletionReport{
			Summary:         "Completed a solid session",
			Insights:        []string{"Consistency is improving"},
			Effectiveness:   8,
			Recommendations: []string{"Hydrate earlier next time"},
		},
	}, nil
}

func newTestCompletion(turns int) (*CompletionService, *fakeTool, *SessionStore) {
	tool := &fakeTool{turnsUntilDone: turns}
	store := NewSessionStore()
	return NewCompletionService(store, tool), tool, store
}

func TestStartAndConflict(t *testing.T) {
	svc, _, _ := newTestCompletion(2)
	ctx := context.Background()

	opening, err := svc.Start(ctx, "s1", "user-1", "act-1", models.ActivityYoga)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if opening == "" {
		t.Error("Expected an opening question")
	}

	if _, err := svc.Start(ctx, "s1", "user-1", "act-2", models.ActivityYoga); !errors.Is(err, ErrSessionActive) {
		t.Errorf("Second start: got %v, want ErrSessionActive", err)
	}

	// A different key is unaffected
	if _, err := svc.Start(ctx, "s2", "user-1", "act-2", models.ActivityYoga); err != nil {
		t.Errorf("Start on fresh key failed: %v", err)
	}
}

func TestStartToolFailureLeavesKeyAbsent(t *testing.T) {
	svc, tool, _ := newTestCompletion(2)
	tool.failNext = true

	if _, err := svc.Start(context.Background(), "s1", "user-1", "act-1", models.ActivityMeal); err == nil {
		t.Fatal("Expected start to fail")
	}

	// Failed start must not leave the key Active
	if _, err := svc.Start(context.Background(), "s1", "user-1", "act-1", models.ActivityMeal); err != nil {
		t.Errorf("Start after failed start: %v", err)
	}
}

func TestChatWithoutSession(t *testing.T) {
	svc, _, _ := newTestCompletion(2)

	if _, _, err := svc.Chat(context.Background(), "nope", "hello"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("got %v, want ErrSessionNotFound", err)
	}
}

func TestChatFlowToReport(t *testing.T) {
	svc, _, _ := newTestCompletion(2)
	ctx := context.Background()

	if _, err := svc.Start(ctx, "s1", "user-1", "act-1", models.ActivityWorkout); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	reply, _, err := svc.Chat(ctx, "s1", "It went well")
	if err != nil {
		t.Fatalf("First chat failed: %v", err)
	}
	if reply.IsComplete {
		t.Fatal("Session completed too early")
	}

	reply, sess, err := svc.Chat(ctx, "s1", "About 45 minutes")
	if err != nil {
		t.Fatalf("Second chat failed: %v", err)
	}
	if !reply.IsComplete || reply.Report == nil {
		t.Fatal("Expected completion with report")
	}
	if reply.Report.Effectiveness != 8 {
		t.Errorf("Effectiveness: got %d, want 8", reply.Report.Effectiveness)
	}
	if sess.Report == nil {
		t.Error("Report not retained on session")
	}

	// Transcript: opening + 2x(user, assistant)
	if len(sess.Transcript) != 5 {
		t.Errorf("Transcript length: got %d, want 5", len(sess.Transcript))
	}
}

func TestChatToolFailureDropsUserTurn(t *testing.T) {
	svc, tool, store := newTestCompletion(3)
	ctx := context.Background()

	if _, err := svc.Start(ctx, "s1", "user-1", "act-1", models.ActivityWorkout); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	tool.failNext = true
	if _, _, err := svc.Chat(ctx, "s1", "lost answer"); err == nil {
		t.Fatal("Expected chat to fail")
	}

	sess, _ := store.Get("s1")
	if n := len(sess.Transcript); n != 1 {
		t.Errorf("Transcript after failed chat: got %d turns, want 1 (opening only)", n)
	}

	// Session stays Active and a retry works
	if _, _, err := svc.Chat(ctx, "s1", "retry answer"); err != nil {
		t.Errorf("Retry chat failed: %v", err)
	}
}

// interleavingTool simulates a second chat landing on the same key while the
// first call's tool round-trip is in flight: it appends a turn to the live
// transcript under the key lock and then fails the in-flight call.
type interleavingTool struct {
	store *SessionStore
	key   string
	extra models.SessionTurn
}

func (f *interleavingTool) StartSession(_ context.Context, sess *models.CompletionSession) (string, error) {
	return "How did your " + sess.ActivityType + " go?", nil
}

func (f *interleavingTool) ProcessInput(_ context.Context, _ *models.CompletionSession, _ string) (*ToolReply, error) {
	lock := f.store.KeyLock(f.key)
	lock.Lock()
	sess, _ := f.store.Get(f.key)
	sess.Transcript = append(sess.Transcript, f.extra)
	lock.Unlock()
	return nil, errors.New("upstream down")
}

func TestChatToolFailureRemovesOwnTurnOnly(t *testing.T) {
	store := NewSessionStore()
	extra := models.SessionTurn{Role: models.RoleUser, Content: "other caller's answer", Timestamp: time.Now()}
	tool := &interleavingTool{store: store, key: "s1", extra: extra}
	svc := NewCompletionService(store, tool)
	ctx := context.Background()

	if _, err := svc.Start(ctx, "s1", "user-1", "act-1", models.ActivityWorkout); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, _, err := svc.Chat(ctx, "s1", "my answer"); err == nil {
		t.Fatal("Expected chat to fail")
	}

	// Only the failed call's own turn may be removed; the turn the other
	// caller appended behind the tool call must survive.
	sess, _ := store.Get("s1")
	if n := len(sess.Transcript); n != 2 {
		t.Fatalf("Transcript: got %d turns, want 2 (opening + interleaved)", n)
	}
	if sess.Transcript[1] != extra {
		t.Errorf("Interleaved turn was replaced: got %+v", sess.Transcript[1])
	}
	for _, turn := range sess.Transcript {
		if turn.Content == "my answer" {
			t.Error("Failed call's own turn survived the trim")
		}
	}
}

// TestPendingReportShortCircuit covers the persistence retry path: once the
// tool has produced a report, further chats return it without another tool
// round-trip.
func TestPendingReportShortCircuit(t *testing.T) {
	svc, tool, _ := newTestCompletion(1)
	ctx := context.Background()

	if _, err := svc.Start(ctx, "s1", "user-1", "act-1", models.ActivityTreatment); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	reply, _, err := svc.Chat(ctx, "s1", "done")
	if err != nil || !reply.IsComplete {
		t.Fatalf("Expected completion, got reply=%v err=%v", reply, err)
	}

	callsBefore := tool.processCalls
	reply, sess, err := svc.Chat(ctx, "s1", "anything")
	if err != nil {
		t.Fatalf("Retry chat failed: %v", err)
	}
	if !reply.IsComplete || reply.Report == nil {
		t.Fatal("Expected pending report on retry")
	}
	if tool.processCalls != callsBefore {
		t.Error("Retry consulted the tool again")
	}
	if sess.Report == nil {
		t.Error("Session lost its report")
	}
}

func TestEndIdempotent(t *testing.T) {
	svc, _, _ := newTestCompletion(1)
	ctx := context.Background()

	if _, err := svc.Start(ctx, "s1", "user-1", "act-1", models.ActivityBiohacking); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	svc.End("s1")
	if svc.HasActiveSession("s1") {
		t.Error("Session survived End")
	}

	// Ending again, and ending a never-started key, must be no-ops
	svc.End("s1")
	svc.End("never-started")

	// Key is reusable after End
	if _, err := svc.Start(ctx, "s1", "user-1", "act-2", models.ActivityBiohacking); err != nil {
		t.Errorf("Start after End failed: %v", err)
	}
}
