// users.go
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
	"github.com/localnerve/healthsync/internal/middleware"
	"github.com/localnerve/healthsync/internal/services"
)

// UserHandler handles user registration routes
type UserHandler struct {
	Engine *services.Engine
}

// Register handles POST /api/users
// @Summary Register a user
// @Description Create a user. The id is generated when omitted.
// @Tags Users
// @Accept json
// @Produce json
// @Param request body services.RegisterInput true "User"
// @Success 201 {object} models.User
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /users [post]
func (h *UserHandler) Register(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := parseBody(c, &in); err != nil {
		return err
	}

	user, err := h.Engine.RegisterUser(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// Get handles GET /api/users/:userId
// @Summary Get a user
// @Tags Users
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /users/{userId} [get]
func (h *UserHandler) Get(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(c.Locals(middleware.LocalsUser))
}
