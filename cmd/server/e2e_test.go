// e2e_test.go
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

package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/localnerve/healthsync/internal/database"
	"github.com/localnerve/healthsync/internal/services"
	"github.com/localnerve/healthsync/internal/testutil"
)

// TestE2EWithFullStack runs the service image against a database container
func TestE2EWithFullStack(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}

	ctx := context.Background()

	tc, err := testutil.CreateAllTestContainers(t)
	if err != nil {
		t.Fatalf("Failed to start test containers: %v", err)
	}
	defer tc.Terminate(t)

	appHost, _ := tc.AppContainer.Host(ctx)
	appPort, _ := tc.AppContainer.MappedPort(ctx, "3000")
	baseURL := fmt.Sprintf("http://%s:%s", appHost, appPort.Port())

	t.Run("HealthCheck", func(t *testing.T) {
		testHealthCheck(t, tc)
	})

	t.Run("PrometheusMetrics", func(t *testing.T) {
		testPrometheusMetrics(t, baseURL)
	})

	t.Run("SwaggerUI", func(t *testing.T) {
		testSwaggerUI(t, baseURL)
	})

	t.Run("SyncFlow", func(t *testing.T) {
		testSyncFlow(t, baseURL)
	})
}

func testHealthCheck(t *testing.T, tc *testutil.TestContainers) {
	cfg := tc.Config()

	gormDB, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	defer database.Close(gormDB)

	result := services.HealthCheck(cfg, gormDB)
	if result.Database != "ok" {
		t.Errorf("Health check failed: %+v", result)
	}

	t.Logf("Health check: status=%s, database=%s, provider=%s",
		result.Status, result.Database, result.Provider)
}

func testPrometheusMetrics(t *testing.T, baseURL string) {
	resp, err := http.Get(baseURL + "/metrics")
	if err != nil {
		t.Fatalf("Failed to get metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 for metrics, got %d. Body: %s", resp.StatusCode, string(body))
	}
	if !bytes.Contains(body, []byte("healthsync_")) {
		t.Errorf("Expected healthsync metrics in output")
	}
}

func testSwaggerUI(t *testing.T, baseURL string) {
	resp, err := http.Get(baseURL + "/swagger/index.html")
	if err != nil {
		t.Fatalf("Failed to get Swagger UI: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 for Swagger UI, got %d", resp.StatusCode)
	}
}

func testSyncFlow(t *testing.T, baseURL string) {
	post := func(path string, body any) *http.Response {
		data, _ := json.Marshal(body)
		resp, err := http.Post(baseURL+path, "application/json", bytes.NewReader(data))
		if err != nil {
			t.Fatalf("POST %s failed: %v", path, err)
		}
		return resp
	}

	resp := post("/api/users", map[string]string{"id": "e2e", "name": "E2E", "email": "e2e@example.com"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201 registering user, got %d", resp.StatusCode)
	}

	resp = post("/api/users/e2e/devices", map[string]string{"deviceId": "device_apple_watch"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201 pairing, got %d", resp.StatusCode)
	}

	resp = post("/api/users/e2e/devices/device_apple_watch/sync", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected 200 syncing, got %d. Body: %s", resp.StatusCode, string(body))
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Response is not valid JSON: %v", err)
	}
	if result["device"] != "Apple Watch Series 7" {
		t.Errorf("Unexpected device in sync result: %v", result["device"])
	}
}
