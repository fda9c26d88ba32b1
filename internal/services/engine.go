// engine.go
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
	"log"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/localnerve/healthsync/internal/config"
	"github.com/localnerve/healthsync/internal/models"
	"github.com/localnerve/healthsync/internal/types"
	"gorm.io/gorm"
)

// providerDeviceID is the sync log device id used for external provider syncs
const providerDeviceID = "provider"

// Streamer is implemented by data sources that can report live link quality
type Streamer interface {
	Stream(ctx context.Context, device models.PairedDevice) (*StreamFrame, error)
}

// SyncResult is the outcome of one successful device sync
type SyncResult struct {
	DeviceName    string                `json:"device"`
	ConvertedData MetricsPatch          `json:"convertedData"`
	LogEntry      models.SyncLog        `json:"syncLog"`
	Record        models.HealthRecord   `json:"record"`
	Notifications []models.Notification `json:"notifications"`
}

// ProviderSyncResult is the outcome of one successful provider sync
type ProviderSyncResult struct {
	Provider      string                `json:"provider"`
	Data          ProviderMetrics       `json:"data"`
	LogEntry      models.SyncLog        `json:"syncLog"`
	Record        models.HealthRecord   `json:"record"`
	Notifications []models.Notification `json:"notifications"`
}

// UpdateResult is the outcome of a manual metric update
type UpdateResult struct {
	Record        models.HealthRecord   `json:"record"`
	Notifications []models.Notification `json:"notifications"`
}

// Engine reconciles every metric source into the per-user health record
type Engine struct {
	users    *UserStore
	registry *Registry
	source   DataSource
	records  *RecordStore
	syncLog  *SyncLogStore
	notifier *Notifier
	provider ProviderClient

	providerName  string
	autoSync      bool
	schedulerUnit time.Duration
	scheduler     *Scheduler
	deviceLocks   *KeyedMutex
	now           func() time.Time

	// scheduleLocks pairs a registry write with its Schedule or Cancel.
	// Sync never takes it, so Cancel can wait out an in-flight run while holding it.
	scheduleLocks *KeyedMutex
}

// Option customizes an Engine
type Option func(*Engine)

// WithDataSource replaces the simulated device data source
func WithDataSource(source DataSource) Option {
	return func(e *Engine) {
		e.source = source
	}
}

// WithProvider sets the external provider client used by PullProvider
func WithProvider(client ProviderClient) Option {
	return func(e *Engine) {
		e.provider = client
	}
}

// WithSchedulerUnit sets the length of one auto-sync interval step
func WithSchedulerUnit(unit time.Duration) Option {
	return func(e *Engine) {
		e.schedulerUnit = unit
	}
}

// WithCatalog replaces the embedded device catalog
func WithCatalog(catalog []DeviceDescriptor) Option {
	return func(e *Engine) {
		e.registry.catalog = catalog
	}
}

// NewEngine wires the stores over db
func NewEngine(db *gorm.DB, cfg *config.Config, opts ...Option) (*Engine, error) {
	catalog, err := LoadCatalog()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		users:         NewUserStore(db),
		registry:      NewRegistry(db, catalog, cfg.SyncIntervalDefault),
		source:        NewSimulatedSource(nil),
		records:       NewRecordStore(db),
		syncLog:       NewSyncLogStore(db, cfg.SyncLogCap, cfg.SyncHistoryLimit),
		notifier:      NewNotifier(db, cfg.NotifyDedup),
		providerName:  cfg.ProviderName,
		autoSync:      cfg.AutoSyncEnabled,
		schedulerUnit: time.Minute,
		deviceLocks:   NewKeyedMutex(),
		now:           time.Now,
		scheduleLocks: NewKeyedMutex(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.scheduler = NewScheduler(func(ctx context.Context, userID, deviceID string) error {
		_, err := e.Sync(ctx, userID, deviceID)
		return err
	}, e.schedulerUnit)

	return e, nil
}

// Close stops all auto-sync tasks
func (e *Engine) Close() {
	e.scheduler.Stop()
}

// Discover returns the discoverable device catalog
func (e *Engine) Discover() []DeviceDescriptor {
	return e.registry.Discover()
}

// RegisterUser creates a user
func (e *Engine) RegisterUser(ctx context.Context, in RegisterInput) (*models.User, error) {
	return e.users.Register(ctx, in)
}

// GetUser loads a user
func (e *Engine) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return e.users.Get(ctx, userID)
}

// Pair pairs a device and schedules auto-sync for it
func (e *Engine) Pair(ctx context.Context, userID, deviceID, displayName string) (*models.PairedDevice, error) {
	if err := e.users.Require(ctx, userID); err != nil {
		return nil, err
	}
	unlock := e.scheduleLocks.Lock(deviceKey(userID, deviceID))
	defer unlock()

	device, err := e.registry.Pair(ctx, userID, deviceID, displayName)
	if err != nil {
		return nil, err
	}
	if device.AutoSync && e.autoSync {
		e.scheduler.Schedule(userID, deviceID, device.SyncInterval)
	}
	return device, nil
}

// Unpair cancels auto-sync and removes the pairing
func (e *Engine) Unpair(ctx context.Context, userID, deviceID string) (*models.PairedDevice, error) {
	if err := e.users.Require(ctx, userID); err != nil {
		return nil, err
	}
	key := deviceKey(userID, deviceID)
	unlockSchedule := e.scheduleLocks.Lock(key)
	defer unlockSchedule()

	e.scheduler.Cancel(userID, deviceID)

	unlock := e.deviceLocks.Lock(key)
	defer unlock()
	return e.registry.Unpair(ctx, userID, deviceID)
}

// SetAutoSync toggles auto-sync and reschedules or cancels the device task
func (e *Engine) SetAutoSync(ctx context.Context, userID, deviceID string, enabled bool, intervalMinutes *int) (*models.PairedDevice, error) {
	if err := e.users.Require(ctx, userID); err != nil {
		return nil, err
	}
	unlock := e.scheduleLocks.Lock(deviceKey(userID, deviceID))
	defer unlock()

	device, err := e.registry.SetAutoSync(ctx, userID, deviceID, enabled, intervalMinutes)
	if err != nil {
		return nil, err
	}
	if enabled && e.autoSync {
		e.scheduler.Schedule(userID, deviceID, device.SyncInterval)
	} else {
		e.scheduler.Cancel(userID, deviceID)
	}
	return device, nil
}

// AutoSyncScheduled reports whether a device has a live auto-sync task
func (e *Engine) AutoSyncScheduled(userID, deviceID string) bool {
	return e.scheduler.Scheduled(userID, deviceID)
}

// ResumeAutoSync schedules every persisted auto-sync device, used at startup
func (e *Engine) ResumeAutoSync(ctx context.Context) (int, error) {
	if !e.autoSync {
		return 0, nil
	}
	devices, err := e.registry.ListAutoSync(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, d := range devices {
		if e.resume(ctx, d.UserID, d.DeviceID) {
			n++
		}
	}
	return n, nil
}

// resume schedules one device if it is still paired with auto-sync on
func (e *Engine) resume(ctx context.Context, userID, deviceID string) bool {
	unlock := e.scheduleLocks.Lock(deviceKey(userID, deviceID))
	defer unlock()

	device, err := e.registry.Get(ctx, userID, deviceID)
	if err != nil || !device.AutoSync {
		return false
	}
	e.scheduler.Schedule(userID, deviceID, device.SyncInterval)
	return true
}

// ListPairedDevices returns the user's devices in pairing order
func (e *Engine) ListPairedDevices(ctx context.Context, userID string) ([]models.PairedDevice, error) {
	if err := e.users.Require(ctx, userID); err != nil {
		return nil, err
	}
	return e.registry.List(ctx, userID)
}

// Stream returns one live frame from a paired device without merging it
func (e *Engine) Stream(ctx context.Context, userID, deviceID string) (*StreamFrame, error) {
	if err := e.users.Require(ctx, userID); err != nil {
		return nil, err
	}
	device, err := e.registry.Get(ctx, userID, deviceID)
	if err != nil {
		return nil, err
	}
	if s, ok := e.source.(Streamer); ok {
		return s.Stream(ctx, *device)
	}
	reading, err := e.source.Read(ctx, *device)
	if err != nil {
		return nil, types.Upstream(err, "failed to read device %s", deviceID)
	}
	return &StreamFrame{
		DeviceID:       device.DeviceID,
		DeviceName:     device.DeviceName,
		Type:           device.DeviceType,
		Data:           reading,
		Timestamp:      reading.Timestamp,
		SignalStrength: device.SignalStrength,
	}, nil
}

// Sync pulls, converts and merges one reading from a paired device.
// Every attempt past the pairing check writes exactly one sync log entry.
func (e *Engine) Sync(ctx context.Context, userID, deviceID string) (*SyncResult, error) {
	if userID == "" || deviceID == "" {
		return nil, types.InvalidInput("userId and deviceId are required")
	}
	if err := e.users.Require(ctx, userID); err != nil {
		return nil, err
	}

	unlock := e.deviceLocks.Lock(deviceKey(userID, deviceID))
	defer unlock()

	device, err := e.registry.Get(ctx, userID, deviceID)
	if err != nil {
		return nil, err
	}

	reading, err := e.source.Read(ctx, *device)
	if err != nil {
		return nil, e.fail(ctx, userID, deviceID, device.DeviceName, models.SourceDevice,
			types.Upstream(err, "failed to read device %s", deviceID))
	}

	patch := Convert(reading)
	rec, err := e.records.Merge(ctx, userID, patch, Provenance{DeviceID: deviceID, SyncSource: models.SourceDevice})
	if err != nil {
		return nil, e.fail(ctx, userID, deviceID, device.DeviceName, models.SourceDevice, err)
	}

	entry, err := e.succeed(ctx, userID, deviceID, device.DeviceName, models.SourceDevice, patch)
	if err != nil {
		return nil, err
	}

	if err := e.registry.StampLastSync(ctx, userID, deviceID, entry.SyncedAt); err != nil {
		return nil, err
	}

	notes, err := e.notifier.Raise(ctx, userID, Recommendations(*rec))
	if err != nil {
		return nil, err
	}

	log.Printf("Synced device %s for user %s: %d data points", deviceID, userID, entry.DataPoints)
	return &SyncResult{
		DeviceName:    device.DeviceName,
		ConvertedData: patch,
		LogEntry:      *entry,
		Record:        *rec,
		Notifications: notes,
	}, nil
}

// SyncProvider merges a pre-fetched provider record tagged with the provider name
func (e *Engine) SyncProvider(ctx context.Context, userID string, m ProviderMetrics) (*ProviderSyncResult, error) {
	if err := e.users.Require(ctx, userID); err != nil {
		return nil, err
	}
	patch := ConvertProvider(m)
	if patch.FieldCount() == 0 {
		return nil, types.InvalidInput("provider record has no metrics")
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	unlock := e.deviceLocks.Lock(deviceKey(userID, providerDeviceID))
	defer unlock()
	return e.syncProvider(ctx, userID, m, patch)
}

// PullProvider fetches from the provider client and merges the result.
// Fetch failures are logged and surface as Upstream or Unauthenticated.
func (e *Engine) PullProvider(ctx context.Context, userID, token string) (*ProviderSyncResult, error) {
	if err := e.users.Require(ctx, userID); err != nil {
		return nil, err
	}
	if e.provider == nil {
		return nil, types.Upstream(errors.New("no provider client"), "%s is not configured", e.providerName)
	}

	unlock := e.deviceLocks.Lock(deviceKey(userID, providerDeviceID))
	defer unlock()

	m, err := e.provider.Fetch(ctx, token)
	if err != nil {
		var typed *types.Error
		if !errors.As(err, &typed) {
			err = types.Upstream(err, "%s fetch failed", e.providerName)
		}
		return nil, e.fail(ctx, userID, providerDeviceID, e.providerName, models.SourceProvider, err)
	}

	patch := ConvertProvider(m)
	if err := patch.Validate(); err != nil {
		return nil, e.fail(ctx, userID, providerDeviceID, e.providerName, models.SourceProvider,
			types.Upstream(err, "%s returned invalid metrics", e.providerName))
	}
	return e.syncProvider(ctx, userID, m, patch)
}

func (e *Engine) syncProvider(ctx context.Context, userID string, m ProviderMetrics, patch MetricsPatch) (*ProviderSyncResult, error) {
	rec, err := e.records.Merge(ctx, userID, patch, Provenance{SyncSource: e.providerName})
	if err != nil {
		return nil, e.fail(ctx, userID, providerDeviceID, e.providerName, models.SourceProvider, err)
	}

	entry, err := e.succeed(ctx, userID, providerDeviceID, e.providerName, models.SourceProvider, patch)
	if err != nil {
		return nil, err
	}

	notes, err := e.notifier.Raise(ctx, userID, Recommendations(*rec))
	if err != nil {
		return nil, err
	}
	syncNote, err := e.notifier.RaiseSync(ctx, userID, fmt.Sprintf("Successfully synced data from %s! Walking: %sh, Sleep: %sh",
		e.providerName, formatHours(m.WalkingHours), formatHours(m.SleepHours)))
	if err != nil {
		return nil, err
	}
	notes = append(notes, *syncNote)

	log.Printf("Synced %s data for user %s", e.providerName, userID)
	return &ProviderSyncResult{
		Provider:      e.providerName,
		Data:          m,
		LogEntry:      *entry,
		Record:        *rec,
		Notifications: notes,
	}, nil
}

// Update merges a manual metric entry and raises fresh notifications
func (e *Engine) Update(ctx context.Context, userID string, patch MetricsPatch) (*UpdateResult, error) {
	if err := e.users.Require(ctx, userID); err != nil {
		return nil, err
	}
	rec, err := e.records.Merge(ctx, userID, patch, Provenance{SyncSource: models.SourceManual})
	if err != nil {
		return nil, err
	}
	notes, err := e.notifier.Raise(ctx, userID, Recommendations(*rec))
	if err != nil {
		return nil, err
	}
	return &UpdateResult{Record: *rec, Notifications: notes}, nil
}

// GetRecord returns the canonical record, zero-valued if never written
func (e *Engine) GetRecord(ctx context.Context, userID string) (*models.HealthRecord, error) {
	if err := e.users.Require(ctx, userID); err != nil {
		return nil, err
	}
	return e.records.Get(ctx, userID)
}

// GetScore scores the canonical record
func (e *Engine) GetScore(ctx context.Context, userID string) (*ScoreResult, error) {
	rec, err := e.GetRecord(ctx, userID)
	if err != nil {
		return nil, err
	}
	score := Score(*rec)
	return &score, nil
}

// GetRecommendations evaluates the recommendation table for the canonical record
func (e *Engine) GetRecommendations(ctx context.Context, userID string) ([]Recommendation, error) {
	rec, err := e.GetRecord(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Recommendations(*rec), nil
}

// GetHistory returns the last limit sync attempts for a user, optionally for one device
func (e *Engine) GetHistory(ctx context.Context, userID, deviceID string, limit int) ([]models.SyncLog, error) {
	if err := e.users.Require(ctx, userID); err != nil {
		return nil, err
	}
	return e.syncLog.History(ctx, userID, deviceID, limit)
}

// GetSyncStats summarizes the user's devices and sync attempts
func (e *Engine) GetSyncStats(ctx context.Context, userID string) (*SyncStats, error) {
	if err := e.users.Require(ctx, userID); err != nil {
		return nil, err
	}
	return e.syncLog.Stats(ctx, userID)
}

// ListNotifications returns the user's notifications, newest first
func (e *Engine) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	if err := e.users.Require(ctx, userID); err != nil {
		return nil, err
	}
	return e.notifier.List(ctx, userID, unreadOnly)
}

// MarkNotificationsRead marks the given notifications read
func (e *Engine) MarkNotificationsRead(ctx context.Context, userID string, ids ...string) ([]models.Notification, error) {
	if err := e.users.Require(ctx, userID); err != nil {
		return nil, err
	}
	return e.notifier.MarkRead(ctx, userID, ids...)
}

func (e *Engine) succeed(ctx context.Context, userID, deviceID, deviceName, source string, patch MetricsPatch) (*models.SyncLog, error) {
	payload, err := models.NewJSON(patch)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sync payload: %w", err)
	}
	entry := &models.SyncLog{
		UserID:     userID,
		DeviceID:   deviceID,
		DeviceName: deviceName,
		Source:     source,
		SyncedAt:   e.now().UTC(),
		DataPoints: patch.FieldCount(),
		Status:     models.SyncStatusSuccess,
		Data:       payload,
	}
	if err := e.syncLog.Append(ctx, entry); err != nil {
		return nil, err
	}
	syncsTotal.WithLabelValues(source, models.SyncStatusSuccess).Inc()
	return entry, nil
}

// fail records a failed attempt and returns cause, joined with any logging error
func (e *Engine) fail(ctx context.Context, userID, deviceID, deviceName, source string, cause error) error {
	entry := &models.SyncLog{
		UserID:     userID,
		DeviceID:   deviceID,
		DeviceName: deviceName,
		Source:     source,
		SyncedAt:   e.now().UTC(),
		Status:     models.SyncStatusFailure,
		Error:      truncate(cause.Error(), 1024),
	}
	syncsTotal.WithLabelValues(source, models.SyncStatusFailure).Inc()
	log.Printf("Sync failed for %s of user %s: %v", deviceID, userID, cause)

	// the caller's context may be the reason for the failure
	if err := e.syncLog.Append(context.WithoutCancel(ctx), entry); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func formatHours(v *float64) string {
	if v == nil {
		return "0"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
