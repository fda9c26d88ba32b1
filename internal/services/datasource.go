package services

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/localnerve/healthsync/internal/models"
)

// RawReading is one device sample. A field is present iff the device declares the capability.
type RawReading struct {
	Timestamp       time.Time `json:"timestamp"`
	HeartRate       *int      `json:"heartRate,omitempty"`
	StepsToday      *int      `json:"stepsToday,omitempty"`
	WalkingHours    *float64  `json:"walkingHours,omitempty"`
	LastNightSleep  *float64  `json:"lastNightSleep,omitempty"`
	SleepQuality    *int      `json:"sleepQuality,omitempty"`
	ScreenTime      *float64  `json:"screenTime,omitempty"`
	WaterIntakeCups *int      `json:"waterIntakeCups,omitempty"`
	WaterIntake     *int      `json:"waterIntake,omitempty"`
	CaloriesBurned  *int      `json:"caloriesBurned,omitempty"`
	VO2Max          *float64  `json:"vo2Max,omitempty"`
	StressLevel     *int      `json:"stressLevel,omitempty"`
}

// DataSource produces readings for a paired device
type DataSource interface {
	Read(ctx context.Context, device models.PairedDevice) (RawReading, error)
}

// StreamFrame is a live reading plus link quality
type StreamFrame struct {
	DeviceID       string     `json:"deviceId"`
	DeviceName     string     `json:"deviceName"`
	Type           string     `json:"type"`
	Data           RawReading `json:"data"`
	Timestamp      time.Time  `json:"timestamp"`
	SignalStrength int        `json:"signalStrength"`
}

// SimulatedSource draws each capability-gated field independently from a plausible range
type SimulatedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewSimulatedSource creates a source. A nil rng seeds from the runtime.
func NewSimulatedSource(rng *rand.Rand) *SimulatedSource {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &SimulatedSource{rng: rng, now: time.Now}
}

// Read implements DataSource
func (s *SimulatedSource) Read(ctx context.Context, device models.PairedDevice) (RawReading, error) {
	if err := ctx.Err(); err != nil {
		return RawReading{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r := RawReading{Timestamp: s.now().UTC()}

	if device.Supports(models.CapabilityHeartRate) {
		r.HeartRate = intPtr(s.intRange(60, 100))
	}
	if device.Supports(models.CapabilitySteps) {
		steps := s.intRange(2000, 17000)
		r.StepsToday = intPtr(steps)
		r.WalkingHours = floatPtr(round(float64(steps)/stepsPerWalkingHour, 2))
	}
	if device.Supports(models.CapabilitySleep) {
		r.LastNightSleep = floatPtr(round(s.floatRange(5, 8), 1))
		r.SleepQuality = intPtr(s.intRange(70, 100))
	}
	if device.Supports(models.CapabilityScreenTime) {
		r.ScreenTime = floatPtr(round(s.floatRange(2, 8), 1))
	}
	if device.Supports(models.CapabilityWaterIntake) {
		r.WaterIntakeCups = intPtr(s.intRange(6, 10))
	}
	if device.Supports(models.CapabilityCalories) {
		r.CaloriesBurned = intPtr(s.intRange(1500, 2500))
	}
	if device.Supports(models.CapabilityVO2Max) {
		r.VO2Max = floatPtr(round(s.floatRange(40, 50), 1))
	}
	if device.Supports(models.CapabilityStress) {
		r.StressLevel = intPtr(s.intRange(0, 100))
	}

	return r, nil
}

// Stream reads one frame and attaches a simulated RSSI in -100..-51
func (s *SimulatedSource) Stream(ctx context.Context, device models.PairedDevice) (*StreamFrame, error) {
	reading, err := s.Read(ctx, device)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	rssi := s.intRange(-100, -50)
	s.mu.Unlock()

	return &StreamFrame{
		DeviceID:       device.DeviceID,
		DeviceName:     device.DeviceName,
		Type:           device.DeviceType,
		Data:           reading,
		Timestamp:      reading.Timestamp,
		SignalStrength: rssi,
	}, nil
}

// intRange returns a value in [lo, hi)
func (s *SimulatedSource) intRange(lo, hi int) int {
	return lo + s.rng.IntN(hi-lo)
}

// floatRange returns a value in [lo, hi)
func (s *SimulatedSource) floatRange(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func intPtr(v int) *int {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}
