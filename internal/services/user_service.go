package services

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"vitacore/internal/database"
	"vitacore/internal/models"
)

// UserService manages user accounts
type UserService struct {
	db *database.DB
}

// NewUserService creates a new user service
func NewUserService(db *database.DB) *UserService {
	return &UserService{db: db}
}

// Create registers a new user with an already-hashed password
func (s *UserService) Create(email, name, passwordHash string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if existing, err := s.GetByEmail(email); err == nil && existing != nil {
		return nil, ErrEmailTaken
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		Role:         "patient",
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	_, err := s.db.Exec(`
		INSERT INTO users (id, email, name, role, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, user.ID, user.Email, user.Name, user.Role, user.PasswordHash, user.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetByEmail looks a user up by email or returns ErrUserNotFound
func (s *UserService) GetByEmail(email string) (*models.User, error) {
	return s.scanUser(s.db.QueryRow(`
		SELECT id, email, name, role, password_hash, created_at
		FROM users WHERE email = ?
	`, strings.ToLower(strings.TrimSpace(email))))
}

// GetByID looks a user up by id or returns ErrUserNotFound
func (s *UserService) GetByID(id string) (*models.User, error) {
	return s.scanUser(s.db.QueryRow(`
		SELECT id, email, name, role, password_hash, created_at
		FROM users WHERE id = ?
	`, id))
}

func (s *UserService) scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	var createdAt string
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.Role, &user.PasswordHash, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	user.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &user, nil
}
