// notifications.go
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

// NotificationHandler handles notification routes
type NotificationHandler struct {
	Engine *services.Engine
}

// MarkReadRequest names the notifications to mark read, one id or a list
type MarkReadRequest struct {
	IDs types.FlexList[string] `json:"ids"`
}

// List handles GET /api/users/:userId/notifications
// @Summary List notifications
// @Description Newest first. Pass unread=true for unread only.
// @Tags Notifications
// @Produce json
// @Param userId path string true "User ID"
// @Param unread query bool false "Only unread notifications"
// @Success 200 {array} models.Notification
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /users/{userId}/notifications [get]
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	notes, err := h.Engine.ListNotifications(c.UserContext(), c.Params("userId"), c.QueryBool("unread", false))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(notes)
}

// MarkOne handles PUT /api/users/:userId/notifications/:notificationId/read
// @Summary Mark a notification read
// @Tags Notifications
// @Produce json
// @Param userId path string true "User ID"
// @Param notificationId path string true "Notification ID"
// @Success 200 {array} models.Notification
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /users/{userId}/notifications/{notificationId}/read [put]
func (h *NotificationHandler) MarkOne(c *fiber.Ctx) error {
	notes, err := h.Engine.MarkNotificationsRead(c.UserContext(), c.Params("userId"), c.Params("notificationId"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(notes)
}

// MarkMany handles PUT /api/users/:userId/notifications/read
// @Summary Mark notifications read
// @Tags Notifications
// @Accept json
// @Produce json
// @Param userId path string true "User ID"
// @Param request body MarkReadRequest true "Notification ids"
// @Success 200 {array} models.Notification
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /users/{userId}/notifications/read [put]
func (h *NotificationHandler) MarkMany(c *fiber.Ctx) error {
	var req MarkReadRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	notes, err := h.Engine.MarkNotificationsRead(c.UserContext(), c.Params("userId"), req.IDs.Slice()...)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(notes)
}
