// devices.go
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

// DeviceHandler handles device discovery, pairing and sync routes
type DeviceHandler struct {
	Engine *services.Engine
}

// PairRequest is the body of a pairing request
type PairRequest struct {
	DeviceID   string `json:"deviceId"`
	DeviceName string `json:"deviceName"`
}

// AutoSyncRequest is the body of an auto-sync toggle
type AutoSyncRequest struct {
	Enabled             *bool `json:"enabled"`
	SyncIntervalMinutes *int  `json:"syncIntervalMinutes"`
}

// Discover handles GET /api/devices/discover
// @Summary Discover devices
// @Description List the devices available for pairing
// @Tags Devices
// @Produce json
// @Success 200 {array} services.DeviceDescriptor
// @Router /devices/discover [get]
func (h *DeviceHandler) Discover(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(h.Engine.Discover())
}

// List handles GET /api/users/:userId/devices
// @Summary List paired devices
// @Description List a user's paired devices in pairing order
// @Tags Devices
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {array} models.PairedDevice
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /users/{userId}/devices [get]
func (h *DeviceHandler) List(c *fiber.Ctx) error {
	devices, err := h.Engine.ListPairedDevices(c.UserContext(), c.Params("userId"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(devices)
}

// Pair handles POST /api/users/:userId/devices
// @Summary Pair a device
// @Description Pair a catalog device with a user. Auto-sync starts at the default interval.
// @Tags Devices
// @Accept json
// @Produce json
// @Param userId path string true "User ID"
// @Param request body PairRequest true "Device to pair"
// @Success 201 {object} models.PairedDevice
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /users/{userId}/devices [post]
func (h *DeviceHandler) Pair(c *fiber.Ctx) error {
	var req PairRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	device, err := h.Engine.Pair(c.UserContext(), c.Params("userId"), req.DeviceID, req.DeviceName)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(device)
}

// Unpair handles DELETE /api/users/:userId/devices/:deviceId
// @Summary Unpair a device
// @Description Remove a pairing and cancel its auto-sync task
// @Tags Devices
// @Produce json
// @Param userId path string true "User ID"
// @Param deviceId path string true "Device ID"
// @Success 200 {object} models.PairedDevice
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /users/{userId}/devices/{deviceId} [delete]
func (h *DeviceHandler) Unpair(c *fiber.Ctx) error {
	device, err := h.Engine.Unpair(c.UserContext(), c.Params("userId"), c.Params("deviceId"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(device)
}

// Sync handles POST /api/users/:userId/devices/:deviceId/sync
// @Summary Sync a device
// @Description Read, convert and merge one reading from a paired device
// @Tags Devices
// @Produce json
// @Param userId path string true "User ID"
// @Param deviceId path string true "Device ID"
// @Success 200 {object} services.SyncResult
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 502 {object} utils.ErrorResponseStruct
// @Router /users/{userId}/devices/{deviceId}/sync [post]
func (h *DeviceHandler) Sync(c *fiber.Ctx) error {
	result, err := h.Engine.Sync(c.UserContext(), c.Params("userId"), c.Params("deviceId"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// Stream handles POST /api/users/:userId/devices/:deviceId/stream
// @Summary Stream a device frame
// @Description Read one live frame with signal strength. Nothing is merged or logged.
// @Tags Devices
// @Produce json
// @Param userId path string true "User ID"
// @Param deviceId path string true "Device ID"
// @Success 200 {object} services.StreamFrame
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /users/{userId}/devices/{deviceId}/stream [post]
func (h *DeviceHandler) Stream(c *fiber.Ctx) error {
	frame, err := h.Engine.Stream(c.UserContext(), c.Params("userId"), c.Params("deviceId"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(frame)
}

// SetAutoSync handles PUT /api/users/:userId/devices/:deviceId/auto-sync
// @Summary Toggle auto-sync
// @Description Enable or disable periodic sync for a paired device
// @Tags Devices
// @Accept json
// @Produce json
// @Param userId path string true "User ID"
// @Param deviceId path string true "Device ID"
// @Param request body AutoSyncRequest true "Auto-sync settings"
// @Success 200 {object} models.PairedDevice
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /users/{userId}/devices/{deviceId}/auto-sync [put]
func (h *DeviceHandler) SetAutoSync(c *fiber.Ctx) error {
	var req AutoSyncRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Enabled == nil {
		return types.InvalidInput("enabled is required")
	}

	device, err := h.Engine.SetAutoSync(c.UserContext(), c.Params("userId"), c.Params("deviceId"), *req.Enabled, req.SyncIntervalMinutes)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(device)
}

// History handles GET /api/users/:userId/sync/history
// @Summary Sync history
// @Description The most recent sync attempts, oldest first
// @Tags Sync
// @Produce json
// @Param userId path string true "User ID"
// @Param deviceId query string false "Only attempts for this device"
// @Param limit query int false "Maximum entries (default 50)"
// @Success 200 {array} models.SyncLog
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /users/{userId}/sync/history [get]
func (h *DeviceHandler) History(c *fiber.Ctx) error {
	limit, err := parseLimit(c)
	if err != nil {
		return err
	}

	entries, err := h.Engine.GetHistory(c.UserContext(), c.Params("userId"), c.Query("deviceId"), limit)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(entries)
}

// Stats handles GET /api/users/:userId/sync/stats
// @Summary Sync statistics
// @Description Device counts and the success rate of the user's sync attempts
// @Tags Sync
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} services.SyncStats
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /users/{userId}/sync/stats [get]
func (h *DeviceHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.Engine.GetSyncStats(c.UserContext(), c.Params("userId"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(stats)
}
