package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"vitacore/internal/database"
	"vitacore/internal/models"
)

// ScheduleService owns daily schedules and their activities. Mutations on
// one schedule id are serialized through a per-schedule mutex; different
// schedules proceed independently. Every read returns a snapshot and every
// mutation writes through immediately.
type ScheduleService struct {
	db      *database.DB
	plans   *PlanService
	details *DetailsService

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewScheduleService creates a new schedule service
func NewScheduleService(db *database.DB, plans *PlanService, details *DetailsService) *ScheduleService {
	return &ScheduleService{
		db:      db,
		plans:   plans,
		details: details,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *ScheduleService) scheduleLock(scheduleID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[scheduleID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[scheduleID] = lock
	}
	return lock
}

// GetSchedule returns the user's schedule for a date, creating it lazily
// from the treatment plan on first access. Returns ErrPlanNotFound when the
// user has no plan. Activities missing details get them backfilled via the
// details service.
func (s *ScheduleService) GetSchedule(userID, date string) (*models.DailySchedule, error) {
	plan, err := s.plans.GetByUser(userID)
	if err != nil {
		return nil, err
	}

	schedule, err := s.loadScheduleByUserDate(userID, date)
	if err == ErrScheduleNotFound {
		schedule, err = s.createSchedule(userID, date, plan)
	}
	if err != nil {
		return nil, err
	}

	if err := s.backfillDetails(schedule, plan); err != nil {
		return nil, err
	}

	return schedule, nil
}

// AddActivity expands a draft with generated details and appends it to the
// schedule. Returns ErrScheduleNotFound / ErrPlanNotFound accordingly.
func (s *ScheduleService) AddActivity(scheduleID string, draft *models.ScheduleActivity) (*models.ScheduleActivity, error) {
	lock := s.scheduleLock(scheduleID)
	lock.Lock()
	defer lock.Unlock()

	schedule, err := s.loadSchedule(scheduleID)
	if err != nil {
		return nil, err
	}
	plan, err := s.plans.GetByUser(schedule.UserID)
	if err != nil {
		return nil, err
	}

	activity := draft.Clone()
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	if activity.Details == nil {
		activity.Details = s.details.GenerateActivityDetails(activity, plan)
	}

	if err := s.insertActivity(scheduleID, activity, len(schedule.Activities)); err != nil {
		return nil, err
	}

	log.Printf("✅ Activity %s (%s) added to schedule %s", activity.ID, activity.Type, scheduleID)
	return activity.Clone(), nil
}

// UpdateActivity applies a partial update through the merge engine and
// persists the result. When the merge flips an activity to completed and no
// completion timestamp exists yet, one is stamped exactly once, so
// replaying the same update cannot move it.
func (s *ScheduleService) UpdateActivity(scheduleID, activityID string, update *models.ActivityUpdate) (*models.ScheduleActivity, error) {
	lock := s.scheduleLock(scheduleID)
	lock.Lock()
	defer lock.Unlock()

	existing, _, err := s.loadActivity(scheduleID, activityID)
	if err != nil {
		return nil, err
	}

	merged := MergeActivity(existing, update)
	if merged.Completed && (merged.ActivityLog == nil || merged.ActivityLog.CompletedAt == "") {
		if merged.ActivityLog == nil {
			merged.ActivityLog = &models.ActivityLog{}
		}
		merged.ActivityLog.CompletedAt = time.Now().UTC().Format(time.RFC3339)
	}

	if err := s.updateActivityRow(scheduleID, merged); err != nil {
		return nil, err
	}

	return merged.Clone(), nil
}

// DeleteActivity removes an activity; ErrActivityNotFound when absent
func (s *ScheduleService) DeleteActivity(scheduleID, activityID string) error {
	lock := s.scheduleLock(scheduleID)
	lock.Lock()
	defer lock.Unlock()

	result, err := s.db.Exec(`
		DELETE FROM schedule_activities WHERE schedule_id = ? AND id = ?
	`, scheduleID, activityID)
	if err != nil {
		return fmt.Errorf("failed to delete activity: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrActivityNotFound
	}

	log.Printf("🗑️  Activity %s deleted from schedule %s", activityID, scheduleID)
	return nil
}

// ReorderActivities recomputes start times for the caller-supplied order
// and persists it as the schedule's new activity order. The requested order
// must be a permutation of the schedule's current activity ids.
func (s *ScheduleService) ReorderActivities(scheduleID string, requested []*models.ScheduleActivity) ([]*models.ScheduleActivity, error) {
	lock := s.scheduleLock(scheduleID)
	lock.Lock()
	defer lock.Unlock()

	schedule, err := s.loadSchedule(scheduleID)
	if err != nil {
		return nil, err
	}

	stored := make(map[string]*models.ScheduleActivity, len(schedule.Activities))
	for _, a := range schedule.Activities {
		stored[a.ID] = a
	}
	if len(requested) != len(stored) {
		return nil, fmt.Errorf("%w: reorder must include all %d activities", ErrValidation, len(stored))
	}

	// Reorder moves stored activities; it is not an edit channel. Only the
	// requested order is taken from the input, everything else comes from
	// the store.
	ordered := make([]*models.ScheduleActivity, 0, len(requested))
	for _, req := range requested {
		activity, ok := stored[req.ID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown activity id %s", ErrValidation, req.ID)
		}
		ordered = append(ordered, activity)
		delete(stored, req.ID)
	}

	recomputed := RecomputeActivityTimes(ordered)

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin reorder transaction: %w", err)
	}
	for i, activity := range recomputed {
		if _, err := tx.Exec(`
			UPDATE schedule_activities SET start_time = ?, position = ?
			WHERE schedule_id = ? AND id = ?
		`, activity.Time, i, scheduleID, activity.ID); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to persist reorder: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reorder: %w", err)
	}

	log.Printf("🔀 Schedule %s reordered (%d activities)", scheduleID, len(recomputed))
	return recomputed, nil
}

// FindActivity locates an activity across all of a user's schedules, used
// by the orchestration layer to apply a completion report.
func (s *ScheduleService) FindActivity(userID, activityID string) (string, *models.ScheduleActivity, error) {
	row := s.db.QueryRow(`
		SELECT a.schedule_id, a.id, a.activity_type, a.title, a.start_time, a.duration,
		       a.description, a.completed, a.details, a.activity_log
		FROM schedule_activities a
		JOIN daily_schedules d ON d.id = a.schedule_id
		WHERE d.user_id = ? AND a.id = ?
	`, userID, activityID)

	var scheduleID string
	activity, err := scanActivity(row, &scheduleID)
	if err == sql.ErrNoRows {
		return "", nil, ErrActivityNotFound
	}
	if err != nil {
		return "", nil, err
	}
	return scheduleID, activity, nil
}

// --- persistence helpers ---

func (s *ScheduleService) loadScheduleByUserDate(userID, date string) (*models.DailySchedule, error) {
	row := s.db.QueryRow(`
		SELECT id, user_id, schedule_date FROM daily_schedules
		WHERE user_id = ? AND schedule_date = ?
	`, userID, date)
	return s.scanSchedule(row)
}

func (s *ScheduleService) loadSchedule(scheduleID string) (*models.DailySchedule, error) {
	row := s.db.QueryRow(`
		SELECT id, user_id, schedule_date FROM daily_schedules WHERE id = ?
	`, scheduleID)
	return s.scanSchedule(row)
}

func (s *ScheduleService) scanSchedule(row *sql.Row) (*models.DailySchedule, error) {
	var schedule models.DailySchedule
	err := row.Scan(&schedule.ID, &schedule.UserID, &schedule.Date)
	if err == sql.ErrNoRows {
		return nil, ErrScheduleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule: %w", err)
	}

	activities, err := s.loadActivities(schedule.ID)
	if err != nil {
		return nil, err
	}
	schedule.Activities = activities
	return &schedule, nil
}

func (s *ScheduleService) loadActivities(scheduleID string) ([]*models.ScheduleActivity, error) {
	rows, err := s.db.Query(`
		SELECT schedule_id, id, activity_type, title, start_time, duration,
		       description, completed, details, activity_log
		FROM schedule_activities
		WHERE schedule_id = ?
		ORDER BY position
	`, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	activities := make([]*models.ScheduleActivity, 0)
	for rows.Next() {
		var sid string
		activity, err := scanActivity(rows, &sid)
		if err != nil {
			return nil, err
		}
		activities = append(activities, activity)
	}
	return activities, rows.Err()
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner, scheduleID *string) (*models.ScheduleActivity, error) {
	var activity models.ScheduleActivity
	var description, details, activityLog sql.NullString

	err := row.Scan(scheduleID, &activity.ID, &activity.Type, &activity.Title,
		&activity.Time, &activity.Duration, &description, &activity.Completed,
		&details, &activityLog)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan activity: %w", err)
	}

	activity.Description = description.String
	if details.Valid && details.String != "" {
		activity.Details = &models.ActivityDetails{}
		if err := json.Unmarshal([]byte(details.String), activity.Details); err != nil {
			return nil, fmt.Errorf("corrupt details for activity %s: %w", activity.ID, err)
		}
	}
	if activityLog.Valid && activityLog.String != "" {
		activity.ActivityLog = &models.ActivityLog{}
		if err := json.Unmarshal([]byte(activityLog.String), activity.ActivityLog); err != nil {
			return nil, fmt.Errorf("corrupt activity log for activity %s: %w", activity.ID, err)
		}
	}

	return &activity, nil
}

func (s *ScheduleService) loadActivity(scheduleID, activityID string) (*models.ScheduleActivity, string, error) {
	if _, err := s.loadSchedule(scheduleID); err != nil {
		return nil, "", err
	}

	row := s.db.QueryRow(`
		SELECT schedule_id, id, activity_type, title, start_time, duration,
		       description, completed, details, activity_log
		FROM schedule_activities
		WHERE schedule_id = ? AND id = ?
	`, scheduleID, activityID)

	var sid string
	activity, err := scanActivity(row, &sid)
	if err == sql.ErrNoRows {
		return nil, "", ErrActivityNotFound
	}
	if err != nil {
		return nil, "", err
	}
	return activity, sid, nil
}

func (s *ScheduleService) insertActivity(scheduleID string, activity *models.ScheduleActivity, position int) error {
	details, activityLog, err := marshalActivityPayloads(activity)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO schedule_activities
		(id, schedule_id, activity_type, title, start_time, duration, description, completed, details, activity_log, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, activity.ID, scheduleID, activity.Type, activity.Title, activity.Time,
		activity.Duration, activity.Description, activity.Completed, details, activityLog, position)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

func (s *ScheduleService) updateActivityRow(scheduleID string, activity *models.ScheduleActivity) error {
	details, activityLog, err := marshalActivityPayloads(activity)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(`
		UPDATE schedule_activities
		SET title = ?, start_time = ?, duration = ?, description = ?, completed = ?, details = ?, activity_log = ?
		WHERE schedule_id = ? AND id = ?
	`, activity.Title, activity.Time, activity.Duration, activity.Description,
		activity.Completed, details, activityLog, scheduleID, activity.ID)
	if err != nil {
		return fmt.Errorf("failed to update activity: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrActivityNotFound
	}
	return nil
}

func marshalActivityPayloads(activity *models.ScheduleActivity) (details, activityLog any, err error) {
	details, activityLog = nil, nil
	if activity.Details != nil {
		b, err := json.Marshal(activity.Details)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal details: %w", err)
		}
		details = string(b)
	}
	if activity.ActivityLog != nil {
		b, err := json.Marshal(activity.ActivityLog)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal activity log: %w", err)
		}
		activityLog = string(b)
	}
	return details, activityLog, nil
}

// createSchedule lazily creates the (user, date) schedule, seeded with a
// default day derived from the treatment plan.
func (s *ScheduleService) createSchedule(userID, date string, plan *models.TreatmentPlan) (*models.DailySchedule, error) {
	scheduleID := uuid.NewString()
	_, err := s.db.Exec(`
		INSERT INTO daily_schedules (id, user_id, schedule_date, created_at)
		VALUES (?, ?, ?, ?)
	`, scheduleID, userID, date, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		// A concurrent request may have created it first; re-read
		if existing, readErr := s.loadScheduleByUserDate(userID, date); readErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}

	for i, activity := range s.seedActivities(plan) {
		if err := s.insertActivity(scheduleID, activity, i); err != nil {
			return nil, err
		}
	}

	log.Printf("📅 Created schedule %s for user %s on %s", scheduleID, userID, date)
	return s.loadSchedule(scheduleID)
}

// seedActivities is the default daily template a fresh schedule starts
// with. Details are generated per type from the plan.
func (s *ScheduleService) seedActivities(plan *models.TreatmentPlan) []*models.ScheduleActivity {
	seeds := []*models.ScheduleActivity{
		{Type: models.ActivityMedication, Title: "Morning medication", Time: "08:00", Duration: 5,
			Description: "Daily prescribed medication"},
		{Type: models.ActivityWorkout, Title: "Morning workout", Time: "09:00", Duration: 30,
			Description: "Moderate-intensity session from your plan"},
		{Type: models.ActivityMeal, Title: "Plan-aligned lunch", Time: "13:00", Duration: 30,
			Description: "Balanced meal per your nutrition targets"},
		{Type: models.ActivityMeditation, Title: "Evening meditation", Time: "20:00", Duration: 15,
			Description: "Wind-down breathing practice"},
	}
	for _, activity := range seeds {
		activity.ID = uuid.NewString()
		activity.Details = s.details.GenerateActivityDetails(activity, plan)
	}
	return seeds
}

// backfillDetails generates and persists details for activities missing
// them (older rows or drafts inserted before a plan existed).
func (s *ScheduleService) backfillDetails(schedule *models.DailySchedule, plan *models.TreatmentPlan) error {
	for _, activity := range schedule.Activities {
		if activity.Details != nil {
			continue
		}
		activity.Details = s.details.GenerateActivityDetails(activity, plan)
		if err := s.updateActivityRow(schedule.ID, activity); err != nil {
			return err
		}
	}
	return nil
}
