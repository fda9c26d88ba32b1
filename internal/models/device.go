package models

import "time"

// Capability names a metric kind a device can report
const (
	CapabilityHeartRate    = "heart_rate"
	CapabilitySteps        = "steps"
	CapabilitySleep        = "sleep"
	CapabilityScreenTime   = "screen_time"
	CapabilityWaterIntake  = "water_intake"
	CapabilityCalories     = "calories"
	CapabilityVO2Max       = "vo2_max"
	CapabilityStress       = "stress"
	CapabilityTrainingLoad = "training_load"
)

// PairedDevice binds a catalog device to a user. Identity is (UserID, DeviceID).
type PairedDevice struct {
	ID             uint64     `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID         string     `gorm:"size:64;not null;uniqueIndex:idx_paired_devices_user_device" json:"userId"`
	DeviceID       string     `gorm:"size:64;not null;uniqueIndex:idx_paired_devices_user_device" json:"deviceId"`
	DeviceName     string     `gorm:"size:255;not null" json:"deviceName"`
	DeviceType     string     `gorm:"size:64" json:"type"`
	Manufacturer   string     `gorm:"size:255" json:"manufacturer"`
	Capabilities   StringList `json:"supported"`
	PairedAt       time.Time  `gorm:"not null" json:"pairedAt"`
	LastSync       *time.Time `json:"lastSync"`
	AutoSync       bool       `gorm:"index" json:"autoSync"`
	SyncInterval   int        `gorm:"not null" json:"syncInterval"`
	SignalStrength int        `json:"signalStrength"`
}

// Supports reports whether the device declares the capability
func (d PairedDevice) Supports(capability string) bool {
	return d.Capabilities.Contains(capability)
}

// TableName overrides the table name for PairedDevice
func (PairedDevice) TableName() string {
	return "paired_devices"
}
