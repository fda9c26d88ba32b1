package models

import "time"

// Sync log statuses
const (
	SyncStatusSuccess = "success"
	SyncStatusFailure = "failure"
)

// Sync sources
const (
	SourceDevice   = "device"
	SourceProvider = "provider"
	SourceManual   = "manual"
)

// Notification categories and priorities
const (
	CategorySleep   = "sleep"
	CategoryWalking = "walking"
	CategoryScreen  = "screen"
	CategoryWater   = "water"
	CategorySync    = "sync"

	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// SyncLog is one entry in the global, capped ledger of sync attempts
type SyncLog struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     string    `gorm:"size:64;not null;index:idx_sync_logs_user" json:"userId"`
	DeviceID   string    `gorm:"size:64;not null;index:idx_sync_logs_user" json:"deviceId"`
	DeviceName string    `gorm:"size:255" json:"deviceName"`
	Source     string    `gorm:"size:16;not null" json:"source"`
	SyncedAt   time.Time `gorm:"not null" json:"timestamp"`
	DataPoints int       `json:"dataPoints"`
	Status     string    `gorm:"size:16;not null" json:"status"`
	Error      string    `gorm:"size:1024" json:"error,omitempty"`
	Data       JSON      `json:"data"`
}

// Notification is raised per recommendation when health data changes
type Notification struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:64;not null;index" json:"userId"`
	Message   string    `gorm:"size:512;not null" json:"message"`
	Category  string    `gorm:"size:16;not null" json:"type"`
	Priority  string    `gorm:"size:16" json:"priority"`
	CreatedAt time.Time `json:"timestamp"`
	Read      bool      `gorm:"column:is_read;not null" json:"read"`
}

// TableName overrides the table name for SyncLog
func (SyncLog) TableName() string {
	return "sync_logs"
}

// TableName overrides the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}

// All returns every model for migration
func All() []any {
	return []any{
		&User{},
		&HealthRecord{},
		&PairedDevice{},
		&SyncLog{},
		&Notification{},
	}
}
