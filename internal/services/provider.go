package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/healthsync/internal/types"
)

// ProviderClient fetches a day of metrics from an external fitness provider
type ProviderClient interface {
	Fetch(ctx context.Context, token string) (ProviderMetrics, error)
}

const (
	dataTypeSteps     = "com.google.step_count.delta"
	dataTypeSleep     = "com.google.sleep.segment"
	dataTypeHeartRate = "com.google.heart_rate.bpm"

	// sleep.segment stage value for "awake"
	sleepStageAwake = 1
)

// FitClient reads the aggregate dataset endpoint of a Google Fit style REST API
type FitClient struct {
	baseURL string
	timeout time.Duration
	now     func() time.Time
}

// NewFitClient creates a client rooted at baseURL (for example .../fitness/v1/users/me)
func NewFitClient(baseURL string, timeout time.Duration) *FitClient {
	return &FitClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		timeout: timeout,
		now:     time.Now,
	}
}

type aggregateRequest struct {
	AggregateBy     []aggregateBy `json:"aggregateBy"`
	BucketByTime    bucketByTime  `json:"bucketByTime"`
	StartTimeMillis int64         `json:"startTimeMillis"`
	EndTimeMillis   int64         `json:"endTimeMillis"`
}

type aggregateBy struct {
	DataTypeName string `json:"dataTypeName"`
}

type bucketByTime struct {
	DurationMillis int64 `json:"durationMillis"`
}

type aggregateResponse struct {
	Bucket []struct {
		Dataset []struct {
			Point []dataPoint `json:"point"`
		} `json:"dataset"`
	} `json:"bucket"`
}

type dataPoint struct {
	StartTimeNanos string       `json:"startTimeNanos"`
	EndTimeNanos   string       `json:"endTimeNanos"`
	Value          []pointValue `json:"value"`
}

type pointValue struct {
	IntVal *int64   `json:"intVal"`
	FpVal  *float64 `json:"fpVal"`
}

func (r aggregateResponse) points() []dataPoint {
	var out []dataPoint
	for _, b := range r.Bucket {
		for _, ds := range b.Dataset {
			out = append(out, ds.Point...)
		}
	}
	return out
}

// Fetch implements ProviderClient for the trailing 24 hours
func (c *FitClient) Fetch(ctx context.Context, token string) (ProviderMetrics, error) {
	if strings.TrimSpace(token) == "" {
		return ProviderMetrics{}, types.Unauthenticated("provider access token is required")
	}

	end := c.now()
	start := end.Add(-24 * time.Hour)

	steps, err := c.aggregate(ctx, token, dataTypeSteps, start, end)
	if err != nil {
		return ProviderMetrics{}, err
	}
	sleep, err := c.aggregate(ctx, token, dataTypeSleep, start, end)
	if err != nil {
		return ProviderMetrics{}, err
	}
	heart, err := c.aggregate(ctx, token, dataTypeHeartRate, start, end)
	if err != nil {
		return ProviderMetrics{}, err
	}

	var m ProviderMetrics

	totalSteps := 0
	for _, p := range steps.points() {
		for _, v := range p.Value {
			if v.IntVal != nil {
				totalSteps += int(*v.IntVal)
			}
		}
	}
	m.Steps = intPtr(totalSteps)
	m.WalkingHours = floatPtr(round(float64(totalSteps)/providerStepsPerWalkingHour, 2))

	var sleepNanos int64
	for _, p := range sleep.points() {
		if len(p.Value) > 0 && p.Value[0].IntVal != nil && *p.Value[0].IntVal == sleepStageAwake {
			continue
		}
		s, errS := strconv.ParseInt(p.StartTimeNanos, 10, 64)
		e, errE := strconv.ParseInt(p.EndTimeNanos, 10, 64)
		if errS != nil || errE != nil || e < s {
			continue
		}
		sleepNanos += e - s
	}
	m.SleepHours = floatPtr(round(time.Duration(sleepNanos).Hours(), 1))

	var bpmSum float64
	var bpmCount int
	for _, p := range heart.points() {
		// aggregated heart rate points carry [average, max, min]
		if len(p.Value) > 0 && p.Value[0].FpVal != nil {
			bpmSum += *p.Value[0].FpVal
			bpmCount++
		}
	}
	if bpmCount > 0 {
		m.AvgHeartRate = intPtr(int(math.Round(bpmSum / float64(bpmCount))))
	}

	return m, nil
}

func (c *FitClient) aggregate(ctx context.Context, token, dataType string, start, end time.Time) (*aggregateResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.Upstream(err, "provider request cancelled")
	}

	agent := fiber.Post(c.baseURL + "/dataset:aggregate")
	agent.Set(fiber.HeaderAuthorization, "Bearer "+token)
	agent.JSON(aggregateRequest{
		AggregateBy:     []aggregateBy{{DataTypeName: dataType}},
		BucketByTime:    bucketByTime{DurationMillis: (24 * time.Hour).Milliseconds()},
		StartTimeMillis: start.UnixMilli(),
		EndTimeMillis:   end.UnixMilli(),
	})
	if c.timeout > 0 {
		agent.Timeout(c.timeout)
	}
	if err := agent.Parse(); err != nil {
		return nil, types.Upstream(err, "failed to build provider request")
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, types.Upstream(errs[0], "provider request for %s failed", dataType)
	}
	switch {
	case code == fiber.StatusUnauthorized:
		return nil, types.Unauthenticated("provider rejected the access token, re-authorization required")
	case code < 200 || code >= 300:
		return nil, types.Upstream(fmt.Errorf("status %d", code), "provider request for %s failed", dataType)
	}

	var resp aggregateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, types.Upstream(err, "failed to decode provider response for %s", dataType)
	}
	return &resp, nil
}
