package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/localnerve/healthsync/internal/models"
	"github.com/localnerve/healthsync/internal/types"
	"gorm.io/gorm"
)

// Notifier appends per-user notifications
type Notifier struct {
	db    *gorm.DB
	dedup bool
	now   func() time.Time
}

// NewNotifier creates a notifier. With dedup set, a message already pending unread is not repeated.
func NewNotifier(db *gorm.DB, dedup bool) *Notifier {
	return &Notifier{db: db, dedup: dedup, now: time.Now}
}

// Raise creates one notification per recommendation
func (n *Notifier) Raise(ctx context.Context, userID string, recs []Recommendation) ([]models.Notification, error) {
	out := []models.Notification{}
	if len(recs) == 0 {
		return out, nil
	}

	err := n.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range recs {
			if n.dedup {
				var pending int64
				if err := tx.Model(&models.Notification{}).
					Where("user_id = ? AND message = ? AND is_read = ?", userID, rec.Message, false).
					Count(&pending).Error; err != nil {
					return err
				}
				if pending > 0 {
					continue
				}
			}

			note := n.build(userID, rec.Type, rec.Message, rec.Priority)
			if err := tx.Create(&note).Error; err != nil {
				return err
			}
			out = append(out, note)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to raise notifications: %w", err)
	}

	for _, note := range out {
		notificationsTotal.WithLabelValues(note.Category).Inc()
	}
	return out, nil
}

// RaiseSync records a sync outcome message for the user
func (n *Notifier) RaiseSync(ctx context.Context, userID, message string) (*models.Notification, error) {
	note := n.build(userID, models.CategorySync, message, models.PriorityLow)
	if err := n.db.WithContext(ctx).Create(&note).Error; err != nil {
		return nil, fmt.Errorf("failed to raise sync notification: %w", err)
	}
	notificationsTotal.WithLabelValues(models.CategorySync).Inc()
	return &note, nil
}

// List returns the user's notifications, newest first
func (n *Notifier) List(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	q := n.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}

	notes := []models.Notification{}
	if err := q.Order("created_at desc").Order("id").Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notes, nil
}

// MarkRead flips the read flag for each id. Read is one-way.
func (n *Notifier) MarkRead(ctx context.Context, userID string, ids ...string) ([]models.Notification, error) {
	if len(ids) == 0 {
		return nil, types.InvalidInput("at least one notification id is required")
	}

	var notes []models.Notification
	err := n.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND id IN ?", userID, ids).Find(&notes).Error; err != nil {
			return err
		}
		found := make(map[string]struct{}, len(notes))
		for _, note := range notes {
			found[note.ID] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := found[id]; !ok {
				return types.NotFound("notification %s not found", id)
			}
		}
		if err := tx.Model(&models.Notification{}).
			Where("user_id = ? AND id IN ?", userID, ids).
			Update("is_read", true).Error; err != nil {
			return err
		}
		for i := range notes {
			notes[i].Read = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notes, nil
}

func (n *Notifier) build(userID, category, message, priority string) models.Notification {
	return models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   message,
		Category:  category,
		Priority:  priority,
		CreatedAt: n.now().UTC(),
	}
}
