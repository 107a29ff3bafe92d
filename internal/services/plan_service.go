package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vitacore/internal/database"
	"vitacore/internal/models"
)

// PlanService manages treatment plans, one per user
type PlanService struct {
	db *database.DB
}

// NewPlanService creates a new plan service
func NewPlanService(db *database.DB) *PlanService {
	return &PlanService{db: db}
}

// GetByUser returns the user's treatment plan or ErrPlanNotFound
func (s *PlanService) GetByUser(userID string) (*models.TreatmentPlan, error) {
	row := s.db.QueryRow(`
		SELECT id, user_id, primary_condition, focus_areas, goals, created_at, updated_at
		FROM treatment_plans WHERE user_id = ?
	`, userID)

	var plan models.TreatmentPlan
	var focusAreas, goals, createdAt, updatedAt string
	err := row.Scan(&plan.ID, &plan.UserID, &plan.Condition, &focusAreas, &goals, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query treatment plan: %w", err)
	}

	if err := json.Unmarshal([]byte(focusAreas), &plan.FocusAreas); err != nil {
		return nil, fmt.Errorf("corrupt focus_areas for plan %s: %w", plan.ID, err)
	}
	if err := json.Unmarshal([]byte(goals), &plan.Goals); err != nil {
		return nil, fmt.Errorf("corrupt goals for plan %s: %w", plan.ID, err)
	}
	plan.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	plan.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &plan, nil
}

// Upsert creates or replaces the user's treatment plan
func (s *PlanService) Upsert(userID string, req *models.UpsertPlanRequest) (*models.TreatmentPlan, error) {
	if req.FocusAreas == nil {
		req.FocusAreas = []string{}
	}
	if req.Goals == nil {
		req.Goals = []string{}
	}
	focusAreas, _ := json.Marshal(req.FocusAreas)
	goals, _ := json.Marshal(req.Goals)
	now := time.Now().UTC().Format(time.RFC3339)

	existing, err := s.GetByUser(userID)
	if err != nil && err != ErrPlanNotFound {
		return nil, err
	}

	if existing != nil {
		_, err = s.db.Exec(`
			UPDATE treatment_plans
			SET primary_condition = ?, focus_areas = ?, goals = ?, updated_at = ?
			WHERE user_id = ?
		`, req.Condition, string(focusAreas), string(goals), now, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to update treatment plan: %w", err)
		}
		return s.GetByUser(userID)
	}

	id := uuid.NewString()
	_, err = s.db.Exec(`
		INSERT INTO treatment_plans (id, user_id, primary_condition, focus_areas, goals, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, userID, req.Condition, string(focusAreas), string(goals), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create treatment plan: %w", err)
	}

	return s.GetByUser(userID)
}
