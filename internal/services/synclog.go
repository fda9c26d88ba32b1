// synclog.go
//
// Health device sync and wellness scoring service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of healthsync.
// healthsync is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// healthsync is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with healthsync.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/localnerve/healthsync/internal/models"
	"gorm.io/gorm"
	"gorm.io/hints"
)

// SyncStats summarizes a user's sync activity
type SyncStats struct {
	TotalDevicesPaired  int64      `json:"totalDevicesPaired"`
	TotalSyncs          int64      `json:"totalSyncs"`
	LastSyncTime        *time.Time `json:"lastSyncTime"`
	DevicesWithAutoSync int64      `json:"devicesWithAutoSync"`
	SyncSuccessRate     float64    `json:"syncSuccessRate"`
}

// SyncLogStore is the global sync ledger, capped with oldest-first eviction
type SyncLogStore struct {
	db           *gorm.DB
	cap          int
	defaultLimit int

	// serializes append-and-evict across writers
	mu sync.Mutex
}

// NewSyncLogStore creates a ledger holding at most capacity entries
func NewSyncLogStore(db *gorm.DB, capacity, defaultLimit int) *SyncLogStore {
	return &SyncLogStore{db: db, cap: capacity, defaultLimit: defaultLimit}
}

// Append inserts an entry and evicts the oldest entries beyond the cap
func (s *SyncLogStore) Append(ctx context.Context, entry *models.SyncLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.SyncLog{}).Count(&count).Error; err != nil {
			return err
		}
		excess := int(count) - s.cap
		if excess <= 0 {
			return nil
		}

		var ids []uint64
		if err := tx.Model(&models.SyncLog{}).
			Order("id asc").
			Limit(excess).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", ids).Delete(&models.SyncLog{}).Error; err != nil {
			return err
		}
		evicted = len(ids)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append sync log: %w", err)
	}

	if evicted > 0 {
		syncLogEvictions.Add(float64(evicted))
		log.Printf("Sync log at capacity %d, evicted %d oldest entries", s.cap, evicted)
	}
	return nil
}

// History returns the last limit entries for a user in arrival order.
// An empty deviceID covers all of the user's devices.
func (s *SyncLogStore) History(ctx context.Context, userID, deviceID string, limit int) ([]models.SyncLog, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}

	q := s.db.WithContext(ctx).
		Clauses(hints.Comment("select", "sync_history")).
		Where("user_id = ?", userID)
	if s.db.Dialector.Name() == "mysql" {
		q = q.Clauses(hints.UseIndex("idx_sync_logs_user"))
	}
	if deviceID != "" {
		q = q.Where("device_id = ?", deviceID)
	}

	var logs []models.SyncLog
	if err := q.Order("id desc").Limit(limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to load sync history: %w", err)
	}

	// newest-first from the query, callers get arrival order
	for i, j := 0, len(logs)-1; i < j; i, j = i+1, j-1 {
		logs[i], logs[j] = logs[j], logs[i]
	}
	return logs, nil
}

// All returns the whole ledger in arrival order
func (s *SyncLogStore) All(ctx context.Context) ([]models.SyncLog, error) {
	var logs []models.SyncLog
	if err := s.db.WithContext(ctx).Order("id asc").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to load sync log: %w", err)
	}
	return logs, nil
}

// Stats aggregates a user's devices and sync attempts
func (s *SyncLogStore) Stats(ctx context.Context, userID string) (*SyncStats, error) {
	db := s.db.WithContext(ctx).Clauses(hints.Comment("select", "sync_stats")).Session(&gorm.Session{})
	stats := &SyncStats{}

	if err := db.Model(&models.PairedDevice{}).
		Where("user_id = ?", userID).
		Count(&stats.TotalDevicesPaired).Error; err != nil {
		return nil, fmt.Errorf("failed to count paired devices: %w", err)
	}
	if err := db.Model(&models.PairedDevice{}).
		Where("user_id = ? AND auto_sync = ?", userID, true).
		Count(&stats.DevicesWithAutoSync).Error; err != nil {
		return nil, fmt.Errorf("failed to count auto-sync devices: %w", err)
	}
	if err := db.Model(&models.SyncLog{}).
		Where("user_id = ?", userID).
		Count(&stats.TotalSyncs).Error; err != nil {
		return nil, fmt.Errorf("failed to count syncs: %w", err)
	}
	if stats.TotalSyncs == 0 {
		return stats, nil
	}

	var successes int64
	if err := db.Model(&models.SyncLog{}).
		Where("user_id = ? AND status = ?", userID, models.SyncStatusSuccess).
		Count(&successes).Error; err != nil {
		return nil, fmt.Errorf("failed to count successful syncs: %w", err)
	}
	stats.SyncSuccessRate = math.Round(float64(successes)/float64(stats.TotalSyncs)*10000) / 100

	var last models.SyncLog
	if err := db.Where("user_id = ?", userID).Order("id desc").First(&last).Error; err != nil {
		return nil, fmt.Errorf("failed to load last sync: %w", err)
	}
	t := last.SyncedAt
	stats.LastSyncTime = &t
	return stats, nil
}
