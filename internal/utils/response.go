// response.go
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

package utils

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/healthsync/internal/types"
)

// SuccessResponse sends a standard success response
func SuccessResponse(c *fiber.Ctx, data interface{}, status int) error {
	return c.Status(status).JSON(data)
}

// ErrorResponse sends a standard error response
func ErrorResponse(c *fiber.Ctx, message string, status int, errorType string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}

// NotFoundResponse sends a 404 not found response
func NotFoundResponse(c *fiber.Ctx, message string) error {
	return ErrorResponse(c, message, fiber.StatusNotFound, string(types.KindNotFound))
}

// StatusFor maps a domain error kind to an HTTP status
func StatusFor(err error) (int, string) {
	var typed *types.Error
	if !errors.As(err, &typed) {
		return fiber.StatusInternalServerError, "internal"
	}
	switch typed.Kind {
	case types.KindNotFound:
		return fiber.StatusNotFound, string(typed.Kind)
	case types.KindAlreadyPaired:
		return fiber.StatusConflict, string(typed.Kind)
	case types.KindInvalidInput:
		return fiber.StatusBadRequest, string(typed.Kind)
	case types.KindUnauthenticated:
		return fiber.StatusUnauthorized, string(typed.Kind)
	case types.KindUpstream:
		return fiber.StatusBadGateway, string(typed.Kind)
	}
	return fiber.StatusInternalServerError, "internal"
}

// ServiceErrorResponse sends the error envelope for an error returned by the engine.
// Untyped errors are logged and reported without their detail.
func ServiceErrorResponse(c *fiber.Ctx, err error) error {
	status, kind := StatusFor(err)
	if status == fiber.StatusInternalServerError {
		log.Printf("Internal error on %s %s: %v", c.Method(), c.OriginalURL(), err)
		return ErrorResponse(c, "Internal server error", status, kind)
	}
	var typed *types.Error
	errors.As(err, &typed)
	return ErrorResponse(c, typed.Message, status, kind)
}

// ErrorResponseStruct defines the schema for error responses
type ErrorResponseStruct struct {
	Status    int    `json:"status"`
	Message   string `json:"message"`
	Ok        bool   `json:"ok"`
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
	Type      string `json:"type,omitempty"`
}
