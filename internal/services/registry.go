// registry.go
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
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/localnerve/healthsync/data"
	"github.com/localnerve/healthsync/internal/models"
	"github.com/localnerve/healthsync/internal/types"
	"gorm.io/gorm"
)

// DeviceDescriptor is a discoverable device template
type DeviceDescriptor struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Manufacturer string   `json:"manufacturer"`
	Supported    []string `json:"supported"`
	RSSI         int      `json:"rssi"`
}

// LoadCatalog decodes the embedded device catalog
func LoadCatalog() ([]DeviceDescriptor, error) {
	var catalog []DeviceDescriptor
	if err := json.Unmarshal(data.DeviceCatalog, &catalog); err != nil {
		return nil, fmt.Errorf("failed to decode device catalog: %w", err)
	}
	return catalog, nil
}

// Registry owns the pairing lifecycle of simulated devices
type Registry struct {
	db              *gorm.DB
	catalog         []DeviceDescriptor
	defaultInterval int
	now             func() time.Time
}

// NewRegistry creates a registry over the given catalog
func NewRegistry(db *gorm.DB, catalog []DeviceDescriptor, defaultInterval int) *Registry {
	return &Registry{
		db:              db,
		catalog:         catalog,
		defaultInterval: defaultInterval,
		now:             time.Now,
	}
}

// Discover returns the catalog in declaration order
func (r *Registry) Discover() []DeviceDescriptor {
	out := make([]DeviceDescriptor, len(r.catalog))
	copy(out, r.catalog)
	return out
}

func (r *Registry) lookup(deviceID string) (DeviceDescriptor, bool) {
	for _, d := range r.catalog {
		if d.ID == deviceID {
			return d, true
		}
	}
	return DeviceDescriptor{}, false
}

// Pair binds a catalog device to a user with autoSync on and the default interval
func (r *Registry) Pair(ctx context.Context, userID, deviceID, displayName string) (*models.PairedDevice, error) {
	if userID == "" || deviceID == "" {
		return nil, types.InvalidInput("userId and deviceId are required")
	}

	var device models.PairedDevice
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.PairedDevice{}).
			Where("user_id = ? AND device_id = ?", userID, deviceID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return types.AlreadyPaired("device %s is already paired", deviceID)
		}

		info, ok := r.lookup(deviceID)
		if !ok {
			return types.NotFound("device %s not found", deviceID)
		}

		name := strings.TrimSpace(displayName)
		if name == "" {
			name = info.Name
		}

		device = models.PairedDevice{
			UserID:         userID,
			DeviceID:       deviceID,
			DeviceName:     name,
			DeviceType:     info.Type,
			Manufacturer:   info.Manufacturer,
			Capabilities:   models.StringList(info.Supported),
			PairedAt:       r.now().UTC(),
			AutoSync:       true,
			SyncInterval:   r.defaultInterval,
			SignalStrength: info.RSSI,
		}
		if err := tx.Create(&device).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return types.AlreadyPaired("device %s is already paired", deviceID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Paired device %s for user %s", deviceID, userID)
	return &device, nil
}

// Unpair removes the pairing and returns the removed record
func (r *Registry) Unpair(ctx context.Context, userID, deviceID string) (*models.PairedDevice, error) {
	var device models.PairedDevice
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND device_id = ?", userID, deviceID).First(&device).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.NotFound("device %s is not paired", deviceID)
			}
			return err
		}
		return tx.Delete(&device).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Unpaired device %s for user %s", deviceID, userID)
	return &device, nil
}

// Get returns one paired device
func (r *Registry) Get(ctx context.Context, userID, deviceID string) (*models.PairedDevice, error) {
	var device models.PairedDevice
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND device_id = ?", userID, deviceID).
		First(&device).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound("device %s is not paired", deviceID)
		}
		return nil, fmt.Errorf("failed to load paired device: %w", err)
	}
	return &device, nil
}

// List returns a user's devices in pairing order
func (r *Registry) List(ctx context.Context, userID string) ([]models.PairedDevice, error) {
	devices := []models.PairedDevice{}
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id asc").
		Find(&devices).Error; err != nil {
		return nil, fmt.Errorf("failed to list paired devices: %w", err)
	}
	return devices, nil
}

// ListAutoSync returns every device across users with auto-sync enabled
func (r *Registry) ListAutoSync(ctx context.Context) ([]models.PairedDevice, error) {
	var devices []models.PairedDevice
	if err := r.db.WithContext(ctx).
		Where("auto_sync = ?", true).
		Order("id asc").
		Find(&devices).Error; err != nil {
		return nil, fmt.Errorf("failed to list auto-sync devices: %w", err)
	}
	return devices, nil
}

// SetAutoSync toggles auto-sync. A nil interval keeps the current one.
func (r *Registry) SetAutoSync(ctx context.Context, userID, deviceID string, enabled bool, intervalMinutes *int) (*models.PairedDevice, error) {
	if intervalMinutes != nil && *intervalMinutes < 1 {
		return nil, types.InvalidInput("syncIntervalMinutes must be at least 1, got %d", *intervalMinutes)
	}

	var device models.PairedDevice
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND device_id = ?", userID, deviceID).First(&device).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.NotFound("device %s is not paired", deviceID)
			}
			return err
		}

		updates := map[string]any{"auto_sync": enabled}
		device.AutoSync = enabled
		if intervalMinutes != nil {
			updates["sync_interval"] = *intervalMinutes
			device.SyncInterval = *intervalMinutes
		}
		return tx.Model(&models.PairedDevice{}).Where("id = ?", device.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	return &device, nil
}

// StampLastSync records the completion time of a sync
func (r *Registry) StampLastSync(ctx context.Context, userID, deviceID string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.PairedDevice{}).
		Where("user_id = ? AND device_id = ?", userID, deviceID).
		Update("last_sync", at)
	if result.Error != nil {
		return fmt.Errorf("failed to stamp last sync: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return types.NotFound("device %s is not paired", deviceID)
	}
	return nil
}
