// health.go
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

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/healthsync/internal/config"
	"github.com/localnerve/healthsync/internal/services"
	"github.com/localnerve/healthsync/internal/types"
	"gorm.io/gorm"
)

// HealthHandler handles the per-user health record routes
type HealthHandler struct {
	Engine *services.Engine
}

// HealthUpdateRequest is a manual metric entry. Numbers may arrive as numeric strings.
type HealthUpdateRequest struct {
	WalkingHours    *types.FlexFloat64 `json:"walkingHours"`
	ScreenTimeHours *types.FlexFloat64 `json:"screenTimeHours"`
	AvgSleepHours   *types.FlexFloat64 `json:"avgSleepHours"`
	WaterGlasses    *types.FlexFloat64 `json:"waterGlasses"`
	Steps           *types.FlexFloat64 `json:"steps"`
	AvgHeartRate    *types.FlexFloat64 `json:"avgHeartRate"`
}

// Patch converts the request into a metrics patch
func (r HealthUpdateRequest) Patch() (services.MetricsPatch, error) {
	patch := services.MetricsPatch{
		WalkingHours:    r.WalkingHours.Ptr(),
		ScreenTimeHours: r.ScreenTimeHours.Ptr(),
		AvgSleepHours:   r.AvgSleepHours.Ptr(),
	}

	var err error
	if patch.WaterGlasses, err = r.WaterGlasses.IntPtr("waterGlasses"); err != nil {
		return patch, err
	}
	if patch.Steps, err = r.Steps.IntPtr("steps"); err != nil {
		return patch, err
	}
	if patch.AvgHeartRate, err = r.AvgHeartRate.IntPtr("avgHeartRate"); err != nil {
		return patch, err
	}
	return patch, nil
}

// GetRecord handles GET /api/users/:userId/health
// @Summary Get health record
// @Description The canonical merged record. Zero-valued until first written.
// @Tags Health
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} models.HealthRecord
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /users/{userId}/health [get]
func (h *HealthHandler) GetRecord(c *fiber.Ctx) error {
	rec, err := h.Engine.GetRecord(c.UserContext(), c.Params("userId"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(rec)
}

// Update handles PUT /api/users/:userId/health
// @Summary Update health metrics
// @Description Merge manually entered metrics. Absent fields keep their values.
// @Tags Health
// @Accept json
// @Produce json
// @Param userId path string true "User ID"
// @Param request body HealthUpdateRequest true "Metrics"
// @Success 200 {object} services.UpdateResult
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /users/{userId}/health [put]
func (h *HealthHandler) Update(c *fiber.Ctx) error {
	var req HealthUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	patch, err := req.Patch()
	if err != nil {
		return err
	}

	result, err := h.Engine.Update(c.UserContext(), c.Params("userId"), patch)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// GetScore handles GET /api/users/:userId/health/score
// @Summary Get health score
// @Description Score the canonical record against the four wellness checks
// @Tags Health
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} services.ScoreResult
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /users/{userId}/health/score [get]
func (h *HealthHandler) GetScore(c *fiber.Ctx) error {
	score, err := h.Engine.GetScore(c.UserContext(), c.Params("userId"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(score)
}

// GetRecommendations handles GET /api/users/:userId/health/recommendations
// @Summary Get recommendations
// @Description Recommendations for the canonical record
// @Tags Health
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {array} services.Recommendation
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /users/{userId}/health/recommendations [get]
func (h *HealthHandler) GetRecommendations(c *fiber.Ctx) error {
	recs, err := h.Engine.GetRecommendations(c.UserContext(), c.Params("userId"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(recs)
}

// ServiceHealth returns the GET /health handler
// @Summary Service health
// @Description Database, provider and host memory status
// @Tags Service
// @Produce json
// @Success 200 {object} services.HealthCheckResult
// @Failure 503 {object} services.HealthCheckResult
// @Router /health [get]
func ServiceHealth(cfg *config.Config, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		result := services.HealthCheck(cfg, db)
		status := fiber.StatusOK
		if result.Status == "unhealthy" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(result)
	}
}
