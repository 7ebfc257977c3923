// Licensed to Apache Software Foundation (ASF) under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. Apache Software Foundation (ASF) licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package timestamp

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/tiempodb/tiempodb/pkg/logger"
	"github.com/tiempodb/tiempodb/pkg/run"
)

var (
	// ErrSchedulerClosed is returned when registering on a closed Scheduler.
	ErrSchedulerClosed = errors.New("the scheduler is closed")
	// ErrTaskDuplicated is returned when a task name is registered twice.
	ErrTaskDuplicated = errors.New("the task is duplicated")
)

// Action runs at every tick of its schedule. Returning false ends the schedule.
type Action func(now time.Time) bool

// Scheduler runs named actions on cron schedules. Ticks are measured by its
// Clock, so a MockClock drives them in tests.
type Scheduler struct {
	clock  Clock
	l      *logger.Logger
	closer *run.Closer
	tasks  map[string]struct{}
	mu     sync.Mutex
}

// NewScheduler returns a Scheduler logging under parent.
func NewScheduler(parent *logger.Logger, clock Clock) *Scheduler {
	return &Scheduler{
		clock:  clock,
		l:      parent.Named("scheduler"),
		closer: run.NewCloser(),
		tasks:  make(map[string]struct{}),
	}
}

// ParseSchedule parses a standard cron expression. Descriptors such as
// "@every 15s" are accepted.
func ParseSchedule(expr string) (cron.Schedule, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid schedule %q", expr)
	}
	return schedule, nil
}

// Register starts running action on the schedule expr.
func (s *Scheduler) Register(name, expr string, action Action) error {
	schedule, err := ParseSchedule(expr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[name]; ok {
		return errors.WithMessage(ErrTaskDuplicated, name)
	}
	if !s.closer.AddRunning() {
		return ErrSchedulerClosed
	}
	s.tasks[name] = struct{}{}
	go s.run(name, schedule, action)
	return nil
}

func (s *Scheduler) run(name string, schedule cron.Schedule, action Action) {
	defer s.closer.Done()
	l := s.l.Named(name)
	now := s.clock.Now()
	for {
		next := schedule.Next(now)
		if e := l.Debug(); e.Enabled() {
			e.Time("next", next).Msg("scheduled")
		}
		timer := s.clock.Timer(next.Sub(now))
		select {
		case now = <-timer.C:
			if action(now) {
				continue
			}
			l.Info().Msg("the action ended its schedule")
			s.mu.Lock()
			delete(s.tasks, name)
			s.mu.Unlock()
			return
		case <-s.closer.CloseNotify():
			timer.Stop()
			return
		}
	}
}

// Close stops every task and waits for running actions to return.
func (s *Scheduler) Close() {
	s.closer.CloseThenWait()
}
