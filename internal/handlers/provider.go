// provider.go
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
	"github.com/localnerve/healthsync/internal/services"
	"github.com/localnerve/healthsync/internal/types"
)

// ProviderHandler handles external provider sync routes
type ProviderHandler struct {
	Engine *services.Engine
}

// ProviderSyncRequest is a provider record fetched by the caller
type ProviderSyncRequest struct {
	WalkingHours *types.FlexFloat64 `json:"walkingHours"`
	SleepHours   *types.FlexFloat64 `json:"sleepHours"`
	Steps        *types.FlexFloat64 `json:"steps"`
	AvgHeartRate *types.FlexFloat64 `json:"avgHeartRate"`
}

// Metrics converts the request into provider metrics
func (r ProviderSyncRequest) Metrics() (services.ProviderMetrics, error) {
	m := services.ProviderMetrics{
		WalkingHours: r.WalkingHours.Ptr(),
		SleepHours:   r.SleepHours.Ptr(),
	}

	var err error
	if m.Steps, err = r.Steps.IntPtr("steps"); err != nil {
		return m, err
	}
	if m.AvgHeartRate, err = r.AvgHeartRate.IntPtr("avgHeartRate"); err != nil {
		return m, err
	}
	return m, nil
}

// Sync handles POST /api/users/:userId/provider/sync
// @Summary Merge a provider record
// @Description Merge a pre-fetched provider record, tagged with the provider name
// @Tags Provider
// @Accept json
// @Produce json
// @Param userId path string true "User ID"
// @Param request body ProviderSyncRequest true "Provider metrics"
// @Success 200 {object} services.ProviderSyncResult
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /users/{userId}/provider/sync [post]
func (h *ProviderHandler) Sync(c *fiber.Ctx) error {
	var req ProviderSyncRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	metrics, err := req.Metrics()
	if err != nil {
		return err
	}

	result, err := h.Engine.SyncProvider(c.UserContext(), c.Params("userId"), metrics)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// Pull handles POST /api/users/:userId/provider/pull
// @Summary Pull from the provider
// @Description Fetch the last 24 hours from the provider with the caller's token and merge it
// @Tags Provider
// @Produce json
// @Param userId path string true "User ID"
// @Param Authorization header string true "Bearer token"
// @Success 200 {object} services.ProviderSyncResult
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 502 {object} utils.ErrorResponseStruct
// @Router /users/{userId}/provider/pull [post]
func (h *ProviderHandler) Pull(c *fiber.Ctx) error {
	result, err := h.Engine.PullProvider(c.UserContext(), c.Params("userId"), bearerToken(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(result)
}
