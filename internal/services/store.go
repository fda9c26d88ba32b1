// store.go
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
	"errors"
	"fmt"
	"time"

	"github.com/localnerve/healthsync/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Provenance tags a merge with the source that wrote it
type Provenance struct {
	DeviceID   string
	SyncSource string
}

// RecordStore holds one canonical health record per user
type RecordStore struct {
	db    *gorm.DB
	locks *KeyedMutex
	now   func() time.Time
}

// NewRecordStore creates a store with its own per-user locks
func NewRecordStore(db *gorm.DB) *RecordStore {
	return &RecordStore{db: db, locks: NewKeyedMutex(), now: time.Now}
}

// Get returns the user's record, or an unsaved zero record if none exists
func (s *RecordStore) Get(ctx context.Context, userID string) (*models.HealthRecord, error) {
	var rec models.HealthRecord
	err := s.db.WithContext(ctx).
		Session(&gorm.Session{Logger: s.db.Logger.LogMode(logger.Silent)}).
		Where("user_id = ?", userID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.HealthRecord{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load health record: %w", err)
	}
	return &rec, nil
}

// Merge overwrites only the fields present in patch and stamps LastUpdated.
// The read-modify-write runs under the user's lock inside one transaction.
func (s *RecordStore) Merge(ctx context.Context, userID string, patch MetricsPatch, prov Provenance) (*models.HealthRecord, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	var rec models.HealthRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists := true
		if err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			First(&rec).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			exists = false
			rec = models.HealthRecord{UserID: userID}
		}

		applyPatch(&rec, patch)
		now := s.now().UTC()
		rec.LastUpdated = &now
		if prov.DeviceID != "" {
			rec.LastSyncDevice = prov.DeviceID
		}
		if prov.SyncSource != "" {
			rec.SyncSource = prov.SyncSource
		}

		if !exists {
			rec.RecordVersion = 1
			return tx.Create(&rec).Error
		}

		prev := rec.RecordVersion
		rec.RecordVersion = prev + 1
		result := tx.Model(&models.HealthRecord{}).
			Where("user_id = ? AND record_version = ?", userID, prev).
			Select("*").
			Updates(&rec)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("health record for %s was modified concurrently", userID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to merge health record: %w", err)
	}

	return &rec, nil
}

func applyPatch(rec *models.HealthRecord, p MetricsPatch) {
	if p.WalkingHours != nil {
		rec.WalkingHours = *p.WalkingHours
	}
	if p.ScreenTimeHours != nil {
		rec.ScreenTimeHours = *p.ScreenTimeHours
	}
	if p.AvgSleepHours != nil {
		rec.AvgSleepHours = *p.AvgSleepHours
	}
	if p.WaterGlasses != nil {
		rec.WaterGlasses = *p.WaterGlasses
	}
	if p.Steps != nil {
		rec.Steps = intPtr(*p.Steps)
	}
	if p.AvgHeartRate != nil {
		rec.AvgHeartRate = intPtr(*p.AvgHeartRate)
	}
}
