// scheduler.go
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
	"context"
	"log"
	"sync"
	"time"
)

// SyncFunc runs one sync for a device
type SyncFunc func(ctx context.Context, userID, deviceID string) error

// Scheduler drives one periodic auto-sync task per paired device
type Scheduler struct {
	run  SyncFunc
	unit time.Duration

	mu      sync.Mutex
	tasks   map[string]*autoSyncTask
	stopped bool
}

type autoSyncTask struct {
	userID   string
	deviceID string
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a scheduler. unit is the length of one interval step, a minute in production.
func NewScheduler(run SyncFunc, unit time.Duration) *Scheduler {
	if unit <= 0 {
		unit = time.Minute
	}
	return &Scheduler{
		run:   run,
		unit:  unit,
		tasks: make(map[string]*autoSyncTask),
	}
}

// Schedule starts or replaces the task for a device
func (s *Scheduler) Schedule(userID, deviceID string, intervalMinutes int) {
	if intervalMinutes < 1 {
		intervalMinutes = 1
	}
	key := deviceKey(userID, deviceID)

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	prev := s.tasks[key]

	ctx, cancel := context.WithCancel(context.Background())
	task := &autoSyncTask{
		userID:   userID,
		deviceID: deviceID,
		interval: time.Duration(intervalMinutes) * s.unit,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	s.tasks[key] = task
	s.mu.Unlock()

	if prev != nil {
		prev.cancel()
		<-prev.done
	} else {
		autoSyncTasks.Inc()
	}

	go s.loop(ctx, task)
	log.Printf("Auto-sync scheduled for device %s of user %s every %d min", deviceID, userID, intervalMinutes)
}

func (s *Scheduler) loop(ctx context.Context, task *autoSyncTask) {
	defer close(task.done)

	ticker := time.NewTicker(task.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// a cancel that raced the tick wins
			if ctx.Err() != nil {
				return
			}
			if err := s.run(context.WithoutCancel(ctx), task.userID, task.deviceID); err != nil {
				log.Printf("Auto-sync failed for device %s of user %s: %v", task.deviceID, task.userID, err)
			}
		}
	}
}

// Cancel stops the device's task. When it returns no further firing happens.
func (s *Scheduler) Cancel(userID, deviceID string) bool {
	key := deviceKey(userID, deviceID)

	s.mu.Lock()
	task, ok := s.tasks[key]
	if ok {
		delete(s.tasks, key)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}

	task.cancel()
	<-task.done
	autoSyncTasks.Dec()
	log.Printf("Auto-sync cancelled for device %s of user %s", deviceID, userID)
	return true
}

// Scheduled reports whether a device has a live task
func (s *Scheduler) Scheduled(userID, deviceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[deviceKey(userID, deviceID)]
	return ok
}

// Active returns the number of live tasks
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Stop cancels every task and waits for them to exit. Schedule is a no-op afterwards.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	tasks := s.tasks
	s.tasks = make(map[string]*autoSyncTask)
	s.mu.Unlock()

	for _, task := range tasks {
		task.cancel()
	}
	for _, task := range tasks {
		<-task.done
		autoSyncTasks.Dec()
	}
	if len(tasks) > 0 {
		log.Printf("Auto-sync scheduler stopped %d tasks", len(tasks))
	}
}
