package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/localnerve/healthsync/internal/models"
	"github.com/localnerve/healthsync/internal/types"
	"gorm.io/gorm"
)

// RegisterInput carries the fields for a new user. ID is optional.
type RegisterInput struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// UserStore is the identity anchor for every per-user operation
type UserStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewUserStore creates a user store
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db, now: time.Now}
}

// Register creates a user. Users are immutable after creation.
func (s *UserStore) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if name == "" || email == "" {
		return nil, types.InvalidInput("name and email are required")
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}

	user := models.User{
		UserID:       id,
		Name:         name,
		Email:        email,
		Phone:        strings.TrimSpace(in.Phone),
		RegisteredAt: s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, types.InvalidInput("user %s already exists", id)
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	return &user, nil
}

// Get loads a user by id
func (s *UserStore) Get(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, types.InvalidInput("userId is required")
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound("user %s not found", userID)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// Require returns nil when the user exists
func (s *UserStore) Require(ctx context.Context, userID string) error {
	_, err := s.Get(ctx, userID)
	return err
}
