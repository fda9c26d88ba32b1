package services

import "github.com/localnerve/healthsync/internal/models"

// Health bands
const (
	HealthPoor      = "Poor"
	HealthFair      = "Fair"
	HealthGood      = "Good"
	HealthExcellent = "Excellent"
)

// Score check keys
const (
	CheckSleep      = "sleep"
	CheckWalking    = "walking"
	CheckScreenTime = "screenTime"
	CheckWater      = "water"
)

const pointsPerCheck = 25

// ScoreResult is the derived 0-100 score for a record
type ScoreResult struct {
	Score         int             `json:"score"`
	OverallHealth string          `json:"overallHealth"`
	Checks        map[string]bool `json:"checks"`
}

// Recommendation is one threshold-based advice line
type Recommendation struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Priority string `json:"priority"`
}

// Score applies the four pass/fail checks. Each failure costs 25 points.
// A record that was never written has no data to pass any check.
func Score(m models.HealthRecord) ScoreResult {
	written := m.LastUpdated != nil
	checks := map[string]bool{
		CheckSleep:      written && m.AvgSleepHours >= 7 && m.AvgSleepHours <= 9,
		CheckWalking:    written && m.WalkingHours >= 1,
		CheckScreenTime: written && m.ScreenTimeHours < 6,
		CheckWater:      written && m.WaterGlasses >= 8,
	}

	score := 100
	for _, passed := range checks {
		if !passed {
			score -= pointsPerCheck
		}
	}
	if score < 0 {
		score = 0
	}

	return ScoreResult{
		Score:         score,
		OverallHealth: Band(score),
		Checks:        checks,
	}
}

// Band maps a score to its label
func Band(score int) string {
	switch {
	case score < 50:
		return HealthPoor
	case score < 75:
		return HealthFair
	case score < 90:
		return HealthGood
	}
	return HealthExcellent
}

// Recommendations evaluates sleep, walking, screen and water in that order.
// These thresholds are separate from the scoring checks.
func Recommendations(m models.HealthRecord) []Recommendation {
	recs := []Recommendation{}

	switch {
	case m.AvgSleepHours < 6:
		recs = append(recs, Recommendation{
			Type:     models.CategorySleep,
			Message:  "You need more sleep! Aim for 7-9 hours per night.",
			Priority: models.PriorityHigh,
		})
	case m.AvgSleepHours > 10:
		recs = append(recs, Recommendation{
			Type:     models.CategorySleep,
			Message:  "Good sleep pattern! Keep it consistent.",
			Priority: models.PriorityLow,
		})
	}

	switch {
	case m.WalkingHours < 1:
		recs = append(recs, Recommendation{
			Type:     models.CategoryWalking,
			Message:  "Increase your walking time! Aim for at least 30 minutes daily.",
			Priority: models.PriorityHigh,
		})
	case m.WalkingHours < 2:
		recs = append(recs, Recommendation{
			Type:     models.CategoryWalking,
			Message:  "Good walking routine! Try to maintain or increase it.",
			Priority: models.PriorityLow,
		})
	}

	if m.ScreenTimeHours > 6 {
		recs = append(recs, Recommendation{
			Type:     models.CategoryScreen,
			Message:  "High screen time detected! Try to reduce it to under 6 hours.",
			Priority: models.PriorityHigh,
		})
	}

	if m.WaterGlasses < 6 {
		recs = append(recs, Recommendation{
			Type:     models.CategoryWater,
			Message:  "Drink more water! Aim for 8-10 glasses daily.",
			Priority: models.PriorityMedium,
		})
	}

	return recs
}
