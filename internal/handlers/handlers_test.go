// handlers_test.go
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

package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/healthsync/internal/handlers"
	"github.com/localnerve/healthsync/internal/services"
	"github.com/localnerve/healthsync/internal/testutil"
	"gorm.io/gorm"
)

// setupTestApp mounts the API on a fresh in-memory database
func setupTestApp(t *testing.T) (*fiber.App, *services.Engine, *gorm.DB) {
	t.Helper()

	db := testutil.NewDB(t)
	cfg := testutil.NewConfig()

	engine, err := services.NewEngine(db, cfg,
		services.WithDataSource(services.NewSimulatedSource(rand.New(rand.NewPCG(3, 5)))),
		services.WithSchedulerUnit(time.Hour),
	)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	t.Cleanup(engine.Close)

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	app.Get("/health", handlers.ServiceHealth(cfg, db))
	handlers.Routes(app.Group("/api"), engine)
	app.Use(handlers.NotFound)

	return app, engine, db
}

// doRequest sends a request with an optional JSON body and returns the response
func doRequest(t *testing.T, app *fiber.App, method, url string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			if err != nil {
				t.Fatalf("Failed to marshal body: %v", err)
			}
			reader = bytes.NewReader(data)
		}
	}

	req := httptest.NewRequest(method, url, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	return resp
}

// decode reads the JSON response body into out
func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

// assertStatus checks the status code and reports the body on mismatch
func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		resp.Body = io.NopCloser(bytes.NewReader(body))
		t.Errorf("Expected status %d, got %d. Body: %s", want, resp.StatusCode, string(body))
	}
}

// assertErrorType checks the error envelope
func assertErrorType(t *testing.T, resp *http.Response, want string) {
	t.Helper()
	var result map[string]interface{}
	decode(t, resp, &result)
	if result["ok"] != false {
		t.Errorf("Expected ok=false, got %v", result["ok"])
	}
	if result["type"] != want {
		t.Errorf("Expected error type %q, got %v", want, result["type"])
	}
}

func registerUser(t *testing.T, app *fiber.App, id string) {
	t.Helper()
	resp := doRequest(t, app, "POST", "/api/users", map[string]string{
		"id":    id,
		"name":  "Test User",
		"email": id + "@example.com",
	})
	assertStatus(t, resp, fiber.StatusCreated)
	resp.Body.Close()
}

func TestRegisterAndGetUser(t *testing.T) {
	app, _, _ := setupTestApp(t)

	registerUser(t, app, "u1")

	resp := doRequest(t, app, "GET", "/api/users/u1", nil)
	assertStatus(t, resp, fiber.StatusOK)
	var user map[string]interface{}
	decode(t, resp, &user)
	if user["id"] != "u1" || user["email"] != "u1@example.com" {
		t.Errorf("Unexpected user: %v", user)
	}

	resp = doRequest(t, app, "GET", "/api/users/ghost/health", nil)
	assertStatus(t, resp, fiber.StatusNotFound)
	assertErrorType(t, resp, "notFound")

	resp = doRequest(t, app, "POST", "/api/users", map[string]string{"name": "No Email"})
	assertStatus(t, resp, fiber.StatusBadRequest)
	assertErrorType(t, resp, "invalidInput")
}

func TestDiscoverDevices(t *testing.T) {
	app, _, _ := setupTestApp(t)

	resp := doRequest(t, app, "GET", "/api/devices/discover", nil)
	assertStatus(t, resp, fiber.StatusOK)

	var devices []map[string]interface{}
	decode(t, resp, &devices)
	if len(devices) != 5 {
		t.Fatalf("Expected 5 devices, got %d", len(devices))
	}
	if devices[0]["id"] != "device_apple_watch" {
		t.Errorf("Expected catalog order, first was %v", devices[0]["id"])
	}
}

func TestPairSyncUnpair(t *testing.T) {
	app, _, _ := setupTestApp(t)
	registerUser(t, app, "u1")

	resp := doRequest(t, app, "POST", "/api/users/u1/devices", map[string]string{"deviceId": "device_fitbit"})
	assertStatus(t, resp, fiber.StatusCreated)
	var device map[string]interface{}
	decode(t, resp, &device)
	if device["autoSync"] != true || device["syncInterval"] != float64(5) {
		t.Errorf("Unexpected pairing defaults: %v", device)
	}

	resp = doRequest(t, app, "POST", "/api/users/u1/devices", map[string]string{"deviceId": "device_fitbit"})
	assertStatus(t, resp, fiber.StatusConflict)
	assertErrorType(t, resp, "alreadyPaired")

	resp = doRequest(t, app, "POST", "/api/users/u1/devices", map[string]string{"deviceId": "device_pager"})
	assertStatus(t, resp, fiber.StatusNotFound)
	resp.Body.Close()

	resp = doRequest(t, app, "POST", "/api/users/u1/devices/device_fitbit/sync", nil)
	assertStatus(t, resp, fiber.StatusOK)
	var synced struct {
		Device        string                 `json:"device"`
		ConvertedData map[string]interface{} `json:"convertedData"`
		SyncLog       map[string]interface{} `json:"syncLog"`
	}
	decode(t, resp, &synced)
	if synced.Device != "Fitbit Sense 2" {
		t.Errorf("Expected device name Fitbit Sense 2, got %q", synced.Device)
	}
	if synced.SyncLog["status"] != "success" {
		t.Errorf("Expected a success log entry, got %v", synced.SyncLog)
	}
	if _, ok := synced.ConvertedData["screenTimeHours"]; ok {
		t.Error("Fitbit sync should not carry screen time")
	}

	resp = doRequest(t, app, "GET", "/api/users/u1/sync/history?deviceId=device_fitbit", nil)
	assertStatus(t, resp, fiber.StatusOK)
	var history []map[string]interface{}
	decode(t, resp, &history)
	if len(history) != 1 {
		t.Errorf("Expected 1 history entry, got %d", len(history))
	}

	resp = doRequest(t, app, "GET", "/api/users/u1/sync/history?limit=zero", nil)
	assertStatus(t, resp, fiber.StatusBadRequest)
	resp.Body.Close()

	resp = doRequest(t, app, "GET", "/api/users/u1/sync/stats", nil)
	assertStatus(t, resp, fiber.StatusOK)
	var stats map[string]interface{}
	decode(t, resp, &stats)
	if stats["totalDevicesPaired"] != float64(1) || stats["syncSuccessRate"] != float64(100) {
		t.Errorf("Unexpected stats: %v", stats)
	}

	resp = doRequest(t, app, "POST", "/api/users/u1/devices/device_fitbit/stream", nil)
	assertStatus(t, resp, fiber.StatusOK)
	resp.Body.Close()

	resp = doRequest(t, app, "DELETE", "/api/users/u1/devices/device_fitbit", nil)
	assertStatus(t, resp, fiber.StatusOK)
	resp.Body.Close()

	resp = doRequest(t, app, "POST", "/api/users/u1/devices/device_fitbit/sync", nil)
	assertStatus(t, resp, fiber.StatusNotFound)
	assertErrorType(t, resp, "notFound")
}

func TestSetAutoSync(t *testing.T) {
	app, engine, _ := setupTestApp(t)
	registerUser(t, app, "u1")

	resp := doRequest(t, app, "POST", "/api/users/u1/devices", map[string]string{"deviceId": "device_garmin"})
	assertStatus(t, resp, fiber.StatusCreated)
	resp.Body.Close()

	resp = doRequest(t, app, "PUT", "/api/users/u1/devices/device_garmin/auto-sync", map[string]interface{}{})
	assertStatus(t, resp, fiber.StatusBadRequest)
	resp.Body.Close()

	resp = doRequest(t, app, "PUT", "/api/users/u1/devices/device_garmin/auto-sync", map[string]interface{}{"enabled": false})
	assertStatus(t, resp, fiber.StatusOK)
	var device map[string]interface{}
	decode(t, resp, &device)
	if device["autoSync"] != false {
		t.Errorf("Expected autoSync false, got %v", device["autoSync"])
	}
	if engine.AutoSyncScheduled("u1", "device_garmin") {
		t.Error("Expected the auto-sync task to be cancelled")
	}

	resp = doRequest(t, app, "PUT", "/api/users/u1/devices/device_garmin/auto-sync",
		map[string]interface{}{"enabled": true, "syncIntervalMinutes": 15})
	assertStatus(t, resp, fiber.StatusOK)
	decode(t, resp, &device)
	if device["syncInterval"] != float64(15) {
		t.Errorf("Expected syncInterval 15, got %v", device["syncInterval"])
	}
	if !engine.AutoSyncScheduled("u1", "device_garmin") {
		t.Error("Expected the auto-sync task to be scheduled")
	}
}

func TestUpdateAndScore(t *testing.T) {
	app, _, _ := setupTestApp(t)
	registerUser(t, app, "u1")

	resp := doRequest(t, app, "GET", "/api/users/u1/health/score", nil)
	assertStatus(t, resp, fiber.StatusOK)
	var score map[string]interface{}
	decode(t, resp, &score)
	if score["score"] != float64(0) || score["overallHealth"] != "Poor" {
		t.Errorf("Expected a new user to score 0/Poor, got %v", score)
	}

	// form posts send numbers as strings
	resp = doRequest(t, app, "PUT", "/api/users/u1/health", map[string]interface{}{
		"avgSleepHours":   "8",
		"walkingHours":    1.5,
		"screenTimeHours": "5",
		"waterGlasses":    "9",
	})
	assertStatus(t, resp, fiber.StatusOK)
	var updated struct {
		Record        map[string]interface{}   `json:"record"`
		Notifications []map[string]interface{} `json:"notifications"`
	}
	decode(t, resp, &updated)
	if updated.Record["waterGlasses"] != float64(9) {
		t.Errorf("Expected 9 glasses, got %v", updated.Record["waterGlasses"])
	}
	if len(updated.Notifications) != 1 || updated.Notifications[0]["priority"] != "low" {
		t.Errorf("Expected one low priority notification, got %v", updated.Notifications)
	}

	resp = doRequest(t, app, "GET", "/api/users/u1/health/score", nil)
	assertStatus(t, resp, fiber.StatusOK)
	decode(t, resp, &score)
	if score["score"] != float64(100) || score["overallHealth"] != "Excellent" {
		t.Errorf("Expected 100/Excellent, got %v", score)
	}

	resp = doRequest(t, app, "GET", "/api/users/u1/health/recommendations", nil)
	assertStatus(t, resp, fiber.StatusOK)
	var recs []map[string]interface{}
	decode(t, resp, &recs)
	if len(recs) != 1 || recs[0]["type"] != "walking" {
		t.Errorf("Expected one walking recommendation, got %v", recs)
	}

	resp = doRequest(t, app, "PUT", "/api/users/u1/health", map[string]interface{}{"waterGlasses": -3})
	assertStatus(t, resp, fiber.StatusBadRequest)
	assertErrorType(t, resp, "invalidInput")

	resp = doRequest(t, app, "PUT", "/api/users/u1/health", `{"walkingHours":`)
	assertStatus(t, resp, fiber.StatusBadRequest)
	resp.Body.Close()

	resp = doRequest(t, app, "GET", "/api/users/u1/health", nil)
	assertStatus(t, resp, fiber.StatusOK)
	var rec map[string]interface{}
	decode(t, resp, &rec)
	if rec["waterGlasses"] != float64(9) {
		t.Errorf("Rejected updates must not change the record, got %v", rec["waterGlasses"])
	}
}

func TestRejectsNonFiniteAndOutOfRangeMetrics(t *testing.T) {
	app, _, _ := setupTestApp(t)
	registerUser(t, app, "u1")

	bodies := []string{
		`{"avgSleepHours":"NaN"}`,
		`{"screenTimeHours":"Infinity"}`,
		`{"walkingHours":"-inf"}`,
		`{"waterGlasses":1e300}`,
		`{"steps":"-1e300"}`,
	}
	for _, body := range bodies {
		resp := doRequest(t, app, "PUT", "/api/users/u1/health", body)
		assertStatus(t, resp, fiber.StatusBadRequest)
		assertErrorType(t, resp, "invalidInput")
	}

	resp := doRequest(t, app, "PUT", "/api/users/u1/health", `{"waterGlasses":1e300}`)
	var result map[string]interface{}
	decode(t, resp, &result)
	if msg, _ := result["message"].(string); msg != "waterGlasses is out of range" {
		t.Errorf("Expected an out of range message, got %q", msg)
	}

	providerBodies := []string{
		`{"sleepHours":"NaN"}`,
		`{"walkingHours":"Infinity"}`,
		`{"steps":1e300}`,
		`{"avgHeartRate":"1e300"}`,
	}
	for _, body := range providerBodies {
		resp := doRequest(t, app, "POST", "/api/users/u1/provider/sync", body)
		assertStatus(t, resp, fiber.StatusBadRequest)
		assertErrorType(t, resp, "invalidInput")
	}

	// nothing was written, so the record still reads and scores cleanly
	resp = doRequest(t, app, "GET", "/api/users/u1/health", nil)
	assertStatus(t, resp, fiber.StatusOK)
	var rec map[string]interface{}
	decode(t, resp, &rec)
	if rec["version"] != float64(0) || rec["lastUpdated"] != nil {
		t.Errorf("Rejected metrics must not touch the record, got %v", rec)
	}

	resp = doRequest(t, app, "GET", "/api/users/u1/notifications", nil)
	assertStatus(t, resp, fiber.StatusOK)
	var notes []map[string]interface{}
	decode(t, resp, &notes)
	if len(notes) != 0 {
		t.Errorf("Rejected metrics must not raise notifications, got %d", len(notes))
	}

	resp = doRequest(t, app, "GET", "/api/users/u1/sync/history", nil)
	assertStatus(t, resp, fiber.StatusOK)
	var history []map[string]interface{}
	decode(t, resp, &history)
	if len(history) != 0 {
		t.Errorf("Rejected provider input must not be logged, got %d entries", len(history))
	}
}

func TestNotifications(t *testing.T) {
	app, _, _ := setupTestApp(t)
	registerUser(t, app, "u1")

	resp := doRequest(t, app, "PUT", "/api/users/u1/health", map[string]interface{}{
		"avgSleepHours": 4,
		"waterGlasses":  2,
	})
	assertStatus(t, resp, fiber.StatusOK)
	resp.Body.Close()

	resp = doRequest(t, app, "GET", "/api/users/u1/notifications?unread=true", nil)
	assertStatus(t, resp, fiber.StatusOK)
	var notes []map[string]interface{}
	decode(t, resp, &notes)
	// sleep, walking and water
	if len(notes) != 3 {
		t.Fatalf("Expected 3 unread notifications, got %d", len(notes))
	}

	first, _ := notes[0]["id"].(string)
	resp = doRequest(t, app, "PUT", "/api/users/u1/notifications/"+first+"/read", nil)
	assertStatus(t, resp, fiber.StatusOK)
	resp.Body.Close()

	// a single id is accepted in place of a list
	second, _ := notes[1]["id"].(string)
	resp = doRequest(t, app, "PUT", "/api/users/u1/notifications/read", map[string]interface{}{"ids": second})
	assertStatus(t, resp, fiber.StatusOK)
	resp.Body.Close()

	resp = doRequest(t, app, "GET", "/api/users/u1/notifications?unread=true", nil)
	assertStatus(t, resp, fiber.StatusOK)
	decode(t, resp, &notes)
	if len(notes) != 1 {
		t.Errorf("Expected 1 unread notification, got %d", len(notes))
	}

	resp = doRequest(t, app, "PUT", "/api/users/u1/notifications/missing/read", nil)
	assertStatus(t, resp, fiber.StatusNotFound)
	resp.Body.Close()
}

func TestProviderRoutes(t *testing.T) {
	app, _, _ := setupTestApp(t)
	registerUser(t, app, "u1")

	resp := doRequest(t, app, "POST", "/api/users/u1/provider/sync", map[string]interface{}{
		"walkingHours": "0.5",
		"sleepHours":   7.5,
	})
	assertStatus(t, resp, fiber.StatusOK)
	var result struct {
		Provider string                 `json:"provider"`
		Record   map[string]interface{} `json:"record"`
	}
	decode(t, resp, &result)
	if result.Provider != "Google Fit" || result.Record["syncSource"] != "Google Fit" {
		t.Errorf("Expected Google Fit provenance, got %v / %v", result.Provider, result.Record["syncSource"])
	}

	resp = doRequest(t, app, "POST", "/api/users/u1/provider/sync", map[string]interface{}{})
	assertStatus(t, resp, fiber.StatusBadRequest)
	resp.Body.Close()

	// no provider client is configured
	resp = doRequest(t, app, "POST", "/api/users/u1/provider/pull", nil)
	assertStatus(t, resp, fiber.StatusBadGateway)
	assertErrorType(t, resp, "upstream")
}

func TestAPIVersion(t *testing.T) {
	app, _, _ := setupTestApp(t)

	req := httptest.NewRequest("GET", "/api/devices/discover", nil)
	req.Header.Set("X-Api-Version", "v1")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	assertStatus(t, resp, fiber.StatusOK)
	if got := resp.Header.Get("X-Api-Version"); got != "1.0.0" {
		t.Errorf("Expected X-Api-Version 1.0.0, got %q", got)
	}

	req = httptest.NewRequest("GET", "/api/devices/discover", nil)
	req.Header.Set("X-Api-Version", "2.0.0")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	assertStatus(t, resp, fiber.StatusBadRequest)
	assertErrorType(t, resp, "request")
}

func TestServiceHealth(t *testing.T) {
	app, _, _ := setupTestApp(t)

	resp := doRequest(t, app, "GET", "/health", nil)
	assertStatus(t, resp, fiber.StatusOK)

	var result map[string]interface{}
	decode(t, resp, &result)
	if result["database"] != "ok" {
		t.Errorf("Expected database ok, got %v", result["database"])
	}
	// the test provider url points at a closed port
	if result["status"] != "degraded" {
		t.Errorf("Expected degraded status, got %v", result["status"])
	}
}

func TestNotFound(t *testing.T) {
	app, _, _ := setupTestApp(t)

	resp := doRequest(t, app, "GET", "/nonexistent", nil)
	assertStatus(t, resp, fiber.StatusNotFound)

	var result map[string]interface{}
	decode(t, resp, &result)
	if result["ok"] != false {
		t.Errorf("Expected ok=false, got %v", result["ok"])
	}
}
