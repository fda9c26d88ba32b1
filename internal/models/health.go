package models

import "time"

// User is the identity anchor that owns a health record, paired devices and notifications
type User struct {
	UserID       string    `gorm:"primaryKey;size:64" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Email        string    `gorm:"size:255;not null" json:"email"`
	Phone        string    `gorm:"size:64" json:"phone,omitempty"`
	RegisteredAt time.Time `gorm:"not null" json:"registeredAt"`
}

// HealthRecord is the canonical per-user metric snapshot.
// Steps and AvgHeartRate are provenance extras written by the external provider path.
type HealthRecord struct {
	UserID          string     `gorm:"primaryKey;size:64" json:"userId"`
	WalkingHours    float64    `json:"walkingHours"`
	ScreenTimeHours float64    `json:"screenTimeHours"`
	AvgSleepHours   float64    `json:"avgSleepHours"`
	WaterGlasses    int        `json:"waterGlasses"`
	Steps           *int       `json:"steps,omitempty"`
	AvgHeartRate    *int       `json:"avgHeartRate,omitempty"`
	LastUpdated     *time.Time `json:"lastUpdated"`
	LastSyncDevice  string     `gorm:"size:64" json:"lastSyncDevice,omitempty"`
	SyncSource      string     `gorm:"size:64" json:"syncSource,omitempty"`
	RecordVersion   uint64     `gorm:"not null" json:"version"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}

// TableName overrides the table name for HealthRecord
func (HealthRecord) TableName() string {
	return "health_records"
}
