package services

import (
	"math"

	"github.com/localnerve/healthsync/internal/types"
)

const (
	stepsPerWalkingHour         = 6000.0
	providerStepsPerWalkingHour = 4000.0
)

// MetricsPatch is a partial canonical record. Nil fields are absent and never overwrite.
type MetricsPatch struct {
	WalkingHours    *float64 `json:"walkingHours,omitempty"`
	ScreenTimeHours *float64 `json:"screenTimeHours,omitempty"`
	AvgSleepHours   *float64 `json:"avgSleepHours,omitempty"`
	WaterGlasses    *int     `json:"waterGlasses,omitempty"`
	Steps           *int     `json:"steps,omitempty"`
	AvgHeartRate    *int     `json:"avgHeartRate,omitempty"`
}

// FieldCount returns the number of present fields
func (p MetricsPatch) FieldCount() int {
	n := 0
	for _, present := range []bool{
		p.WalkingHours != nil,
		p.ScreenTimeHours != nil,
		p.AvgSleepHours != nil,
		p.WaterGlasses != nil,
		p.Steps != nil,
		p.AvgHeartRate != nil,
	} {
		if present {
			n++
		}
	}
	return n
}

// Validate rejects negative and non-finite values
func (p MetricsPatch) Validate() error {
	for name, v := range map[string]*float64{
		"walkingHours":    p.WalkingHours,
		"screenTimeHours": p.ScreenTimeHours,
		"avgSleepHours":   p.AvgSleepHours,
	} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return types.InvalidInput("%s must be a finite number", name)
		}
		if v != nil && *v < 0 {
			return types.InvalidInput("%s must not be negative", name)
		}
	}
	for name, v := range map[string]*int{
		"waterGlasses": p.WaterGlasses,
		"steps":        p.Steps,
		"avgHeartRate": p.AvgHeartRate,
	} {
		if v != nil && *v < 0 {
			return types.InvalidInput("%s must not be negative", name)
		}
	}
	return nil
}

// Convert maps a device reading into a patch.
// Walking prefers a reported walkingHours over steps/6000, water prefers cups over intake.
func Convert(r RawReading) MetricsPatch {
	var p MetricsPatch

	switch {
	case r.WalkingHours != nil:
		p.WalkingHours = floatPtr(*r.WalkingHours)
	case r.StepsToday != nil:
		p.WalkingHours = floatPtr(round(float64(*r.StepsToday)/stepsPerWalkingHour, 2))
	}

	if r.LastNightSleep != nil {
		p.AvgSleepHours = floatPtr(*r.LastNightSleep)
	}

	switch {
	case r.WaterIntakeCups != nil:
		p.WaterGlasses = intPtr(*r.WaterIntakeCups)
	case r.WaterIntake != nil:
		p.WaterGlasses = intPtr(*r.WaterIntake)
	}

	if r.ScreenTime != nil {
		p.ScreenTimeHours = floatPtr(*r.ScreenTime)
	}

	return p
}

// ProviderMetrics is the pre-fetched record handed over by the external provider collaborator
type ProviderMetrics struct {
	WalkingHours *float64 `json:"walkingHours"`
	SleepHours   *float64 `json:"sleepHours"`
	Steps        *int     `json:"steps"`
	AvgHeartRate *int     `json:"avgHeartRate"`
}

// ConvertProvider maps provider metrics into a patch
func ConvertProvider(m ProviderMetrics) MetricsPatch {
	var p MetricsPatch
	if m.WalkingHours != nil {
		p.WalkingHours = floatPtr(*m.WalkingHours)
	} else if m.Steps != nil {
		p.WalkingHours = floatPtr(round(float64(*m.Steps)/providerStepsPerWalkingHour, 2))
	}
	if m.SleepHours != nil {
		p.AvgSleepHours = floatPtr(*m.SleepHours)
	}
	if m.Steps != nil {
		p.Steps = intPtr(*m.Steps)
	}
	if m.AvgHeartRate != nil {
		p.AvgHeartRate = intPtr(*m.AvgHeartRate)
	}
	return p
}
