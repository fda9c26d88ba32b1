// containers.go
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

package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/localnerve/healthsync/internal/config"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

const appImageName = "healthsync-test:latest"

// TestContainers holds a database and optionally the service on a shared network
type TestContainers struct {
	Network      *testcontainers.DockerNetwork
	DBContainer  testcontainers.Container
	AppContainer testcontainers.Container

	// DBHost and DBPort are the host-mapped database address
	DBHost string
	DBPort string
}

// Terminate stops every started container and removes the network
func (tc *TestContainers) Terminate(t testing.TB) {
	ctx := context.Background()
	if tc.AppContainer != nil {
		if err := tc.AppContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate healthsync: %v", err)
		}
	}
	if tc.DBContainer != nil {
		if err := tc.DBContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate database: %v", err)
		}
	}
	if tc.Network != nil {
		if err := tc.Network.Remove(ctx); err != nil {
			logMessage(t, "Failed to remove network: %v", err)
		}
	}
}

// Config returns a configuration that reaches the database from the host
func (tc *TestContainers) Config() *config.Config {
	cfg := NewConfig()
	cfg.DBType = getEnv("DB_TYPE", "mariadb")
	cfg.DBHost = tc.DBHost
	cfg.DBPort = tc.DBPort
	cfg.DBDatabase = getEnv("DB_DATABASE", "healthsync")
	cfg.DBUser = getEnv("DB_USER", "healthsync")
	cfg.DBPassword = getEnv("DB_PASSWORD", "healthsync")
	cfg.DBConnectionLimit = 5
	return cfg
}

// StartDatabase starts only the database container. t may be nil for standalone use.
func StartDatabase(t testing.TB) (*TestContainers, error) {
	ctx := context.Background()
	tc := &TestContainers{}

	nw, err := network.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create network: %w", err)
	}
	tc.Network = nw

	dbType := getEnv("DB_TYPE", "mariadb")
	tcpDBPort, err := nat.NewPort("tcp", getEnv("DB_PORT", defaultPort(dbType)))
	if err != nil {
		tc.Terminate(t)
		return nil, fmt.Errorf("failed to create DB port: %w", err)
	}

	dbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        getEnv("DB_IMAGE", defaultImage(dbType)),
			ExposedPorts: []string{string(tcpDBPort)},
			Env:          getDBInitEnvMap(dbType),
			WaitingFor:   wait.ForListeningPort(tcpDBPort).WithStartupTimeout(60 * time.Second),
			Networks:     []string{nw.Name},
			NetworkAliases: map[string][]string{
				nw.Name: {getEnv("DB_HOST", "db")},
			},
		},
		Started: true,
	})
	if err != nil {
		tc.Terminate(t)
		return nil, fmt.Errorf("failed to start database: %w", err)
	}
	tc.DBContainer = dbContainer

	host, err := dbContainer.Host(ctx)
	if err != nil {
		tc.Terminate(t)
		return nil, err
	}
	port, err := dbContainer.MappedPort(ctx, tcpDBPort)
	if err != nil {
		tc.Terminate(t)
		return nil, err
	}
	tc.DBHost = host
	tc.DBPort = port.Port()

	switch dbType {
	case "mysql", "mariadb":
		if err := waitForMySQL(host, port); err != nil {
			tc.Terminate(t)
			return nil, err
		}
	}

	logMessage(t, "Database %s ready at %s:%s", dbType, tc.DBHost, tc.DBPort)
	return tc, nil
}

// CreateAllTestContainers starts the database and the service image, building it
// from the Dockerfile when no local image exists
func CreateAllTestContainers(t testing.TB) (*TestContainers, error) {
	ctx := context.Background()

	tc, err := StartDatabase(t)
	if err != nil {
		exitWithError(t, err, "Failed to start database")
	}

	exists, err := imageExists(ctx, appImageName)
	if err != nil {
		tc.Terminate(t)
		exitWithError(t, err, "Failed to check if image exists")
	}

	appPortNumber := getEnv("PORT", "3000")
	tcpAppPort, err := nat.NewPort("tcp", appPortNumber)
	if err != nil {
		tc.Terminate(t)
		exitWithError(t, err, "Failed to create healthsync port")
	}

	dbType := getEnv("DB_TYPE", "mariadb")
	req := testcontainers.ContainerRequest{
		ExposedPorts: []string{string(tcpAppPort)},
		Env: map[string]string{
			"DB_TYPE":      dbType,
			"DB_HOST":      getEnv("DB_HOST", "db"),
			"DB_PORT":      getEnv("DB_PORT", defaultPort(dbType)),
			"DB_DATABASE":  getEnv("DB_DATABASE", "healthsync"),
			"DB_USER":      getEnv("DB_USER", "healthsync"),
			"DB_PASSWORD":  getEnv("DB_PASSWORD", "healthsync"),
			"PORT":         appPortNumber,
			"NOTIFY_DEDUP": getEnv("NOTIFY_DEDUP", "false"),
		},
		WaitingFor: wait.ForHTTP("/metrics").WithPort(tcpAppPort).WithStartupTimeout(30 * time.Second),
		Networks:   []string{tc.Network.Name},
	}

	if exists {
		logMessage(t, "Image %s exists, reusing...", appImageName)
		req.Image = appImageName
	} else {
		sessionID := uuid.NewString()
		buildContext := getEnv("TESTCONTAINERS_BUILD_CONTEXT", "../..")
		logMessage(t, "Image %s does not exist, building...", appImageName)
		req.FromDockerfile = testcontainers.FromDockerfile{
			Context:       buildContext,
			Dockerfile:    "Dockerfile",
			Repo:          "healthsync-test",
			Tag:           "latest",
			KeepImage:     true,
			BuildArgs:     map[string]*string{"RESOURCE_REAPER_SESSION_ID": &sessionID},
			PrintBuildLog: true,
		}
	}

	app, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		tc.Terminate(t)
		exitWithError(t, err, "Failed to start healthsync")
	}
	tc.AppContainer = app

	appHost, _ := app.Host(ctx)
	appPort, _ := app.MappedPort(ctx, tcpAppPort)
	logMessage(t, "BASE_URL=http://%s:%s", appHost, appPort.Port())

	return tc, nil
}

func getDBInitEnvMap(dbType string) map[string]string {
	switch dbType {
	case "postgres":
		return map[string]string{
			"POSTGRES_PASSWORD": getEnv("DB_PASSWORD", "healthsync"),
			"POSTGRES_USER":     getEnv("DB_USER", "healthsync"),
			"POSTGRES_DB":       getEnv("DB_DATABASE", "healthsync"),
		}
	default:
		return map[string]string{
			"MYSQL_ROOT_PASSWORD": getEnv("DB_ROOT_PASSWORD", "root"),
			"MYSQL_DATABASE":      getEnv("DB_DATABASE", "healthsync"),
			"MYSQL_USER":          getEnv("DB_USER", "healthsync"),
			"MYSQL_PASSWORD":      getEnv("DB_PASSWORD", "healthsync"),
		}
	}
}

func defaultImage(dbType string) string {
	if dbType == "postgres" {
		return "postgres:17-alpine"
	}
	return "mariadb:11"
}

func defaultPort(dbType string) string {
	if dbType == "postgres" {
		return "5432"
	}
	return "3306"
}

// waitForMySQL pings until the server accepts the application user
func waitForMySQL(host string, port nat.Port) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s",
		getEnv("DB_USER", "healthsync"), getEnv("DB_PASSWORD", "healthsync"), host, port.Port(), getEnv("DB_DATABASE", "healthsync"))
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open mysql for readiness: %w", err)
	}
	defer db.Close()

	for i := 0; i < 30; i++ {
		if err = db.Ping(); err == nil {
			return nil
		}
		time.Sleep(1 * time.Second)
	}
	return fmt.Errorf("mysql not ready after 30 seconds: %w", err)
}

func imageExists(ctx context.Context, imageName string) (bool, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return false, err
	}
	defer cli.Close()

	images, err := cli.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return false, err
	}

	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == imageName {
				return true, nil
			}
		}
	}

	return false, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func exitWithError(t testing.TB, err error, msg string) {
	if t != nil {
		t.Fatalf(msg+": %v", err)
	} else {
		fmt.Printf(msg+": %v\n", err)
		os.Exit(1)
	}
}

func logMessage(t testing.TB, format string, args ...any) {
	if t != nil {
		t.Logf(format, args...)
	} else {
		fmt.Printf(format+"\n", args...)
	}
}
