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

package services

import (
	"fmt"
	"log"

	"github.com/localnerve/healthsync/internal/config"
	"github.com/localnerve/healthsync/internal/utils"
	"github.com/shirou/gopsutil/v4/mem"
	"gorm.io/gorm"
)

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status       string            `json:"status"`
	Database     string            `json:"database"`
	Provider     string            `json:"provider"`
	Memory       string            `json:"memory"`
	Details      map[string]string `json:"details,omitempty"`
	ErrorMessage string            `json:"error,omitempty"`
}

// pinger is swapped in tests
var pinger = utils.PingProvider

// HealthCheck checks the database, the external provider and host memory.
// Database failure is unhealthy. An unreachable provider only degrades the service.
func HealthCheck(cfg *config.Config, db *gorm.DB) HealthCheckResult {
	result := HealthCheckResult{
		Status:  "healthy",
		Details: make(map[string]string),
	}

	sqlDB, err := db.DB()
	if err != nil {
		result.Status = "unhealthy"
		result.Database = "error"
		result.Details["database_error"] = err.Error()
		result.ErrorMessage = fmt.Sprintf("Database connection error: %v", err)
		log.Printf("Health check failed - database connection: %v", err)
	} else if err := sqlDB.Ping(); err != nil {
		result.Status = "unhealthy"
		result.Database = "unreachable"
		result.Details["database_ping_error"] = err.Error()
		result.ErrorMessage = fmt.Sprintf("Database ping failed: %v", err)
		log.Printf("Health check failed - database ping: %v", err)
	} else {
		result.Database = "ok"
		result.Details["database_type"] = cfg.DBType
		result.Details["database_name"] = cfg.DBDatabase
	}

	if err := pinger(cfg.ProviderBaseURL); err != nil {
		if result.Status == "healthy" {
			result.Status = "degraded"
		}
		result.Provider = "unreachable"
		result.Details["provider_error"] = err.Error()
		if result.ErrorMessage == "" {
			result.ErrorMessage = fmt.Sprintf("%s ping failed: %v", cfg.ProviderName, err)
		} else {
			result.ErrorMessage += fmt.Sprintf("; %s ping failed: %v", cfg.ProviderName, err)
		}
		log.Printf("Health check degraded - provider ping: %v", err)
	} else {
		result.Provider = "ok"
		result.Details["provider_url"] = cfg.ProviderBaseURL
	}

	if vm, err := mem.VirtualMemory(); err != nil {
		result.Memory = "unknown"
		result.Details["memory_error"] = err.Error()
	} else {
		result.Memory = "ok"
		result.Details["memory_used_percent"] = fmt.Sprintf("%.1f", vm.UsedPercent)
		result.Details["memory_available_mb"] = fmt.Sprintf("%d", vm.Available/1024/1024)
	}

	if result.Status == "healthy" {
		log.Println("Health check passed - all systems operational")
	}

	return result
}
