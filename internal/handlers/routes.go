// routes.go
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

// Routes mounts the API on router, normally the /api group
func Routes(router fiber.Router, engine *services.Engine) {
	devices := &DeviceHandler{Engine: engine}
	health := &HealthHandler{Engine: engine}
	notifications := &NotificationHandler{Engine: engine}
	provider := &ProviderHandler{Engine: engine}
	users := &UserHandler{Engine: engine}

	router.Use(middleware.VersionMiddleware())

	router.Get("/devices/discover", devices.Discover)
	router.Post("/users", users.Register)

	user := router.Group("/users/:userId", middleware.RequireUser(engine))
	user.Get("/", users.Get)

	user.Get("/health", health.GetRecord)
	user.Put("/health", health.Update)
	user.Get("/health/score", health.GetScore)
	user.Get("/health/recommendations", health.GetRecommendations)

	user.Get("/devices", devices.List)
	user.Post("/devices", devices.Pair)
	user.Delete("/devices/:deviceId", devices.Unpair)
	user.Post("/devices/:deviceId/sync", devices.Sync)
	user.Post("/devices/:deviceId/stream", devices.Stream)
	user.Put("/devices/:deviceId/auto-sync", devices.SetAutoSync)

	user.Get("/sync/history", devices.History)
	user.Get("/sync/stats", devices.Stats)

	user.Post("/provider/sync", provider.Sync)
	user.Post("/provider/pull", provider.Pull)

	user.Get("/notifications", notifications.List)
	user.Put("/notifications/read", notifications.MarkMany)
	user.Put("/notifications/:notificationId/read", notifications.MarkOne)
}
