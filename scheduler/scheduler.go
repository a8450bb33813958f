// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package scheduler triggers index rebuilds on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/poiesic/acooeaz/index"
	"github.com/robfig/cron/v3"
)

var (
	// ErrRebuilderRequired is returned when no rebuilder is provided.
	ErrRebuilderRequired = errors.New("rebuilder required")

	// ErrEmptySchedule is returned for a blank cron spec.
	ErrEmptySchedule = errors.New("empty schedule")
)

// Rebuilder runs a full index rebuild.
type Rebuilder interface {
	RebuildAll(ctx context.Context) (*index.Report, error)
}

// Scheduler runs rebuilds on a cron schedule. A trigger firing while the
// previous rebuild still runs is skipped.
type Scheduler struct {
	cron      *cron.Cron
	rebuilder Rebuilder
	logger    *slog.Logger

	mu  sync.Mutex
	ctx context.Context
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// cronLogger adapts slog.Logger to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

var _ cron.Logger = (*cronLogger)(nil)

func (l *cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "err", err)...)
}

// New creates a scheduler running r on spec, a standard five-field cron
// expression or a descriptor such as "@hourly".
func New(r Rebuilder, spec string, opts ...Option) (*Scheduler, error) {
	if r == nil {
		return nil, ErrRebuilderRequired
	}
	if spec == "" {
		return nil, ErrEmptySchedule
	}

	s := &Scheduler{
		rebuilder: r,
		logger:    slog.Default(),
		ctx:       context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "scheduler")

	clog := &cronLogger{logger: s.logger}
	s.cron = cron.New(
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)
	if _, err := s.cron.AddFunc(spec, s.fire); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins running the schedule. Rebuilds use ctx, so cancelling it
// aborts a running rebuild.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started", "next", s.cron.Entries()[0].Next)
}

// Stop stops the schedule and waits for a running rebuild to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	_, _ = s.Trigger(ctx)
}

// Trigger runs one rebuild now and logs its outcome.
func (s *Scheduler) Trigger(ctx context.Context) (*index.Report, error) {
	s.logger.Info("running scheduled rebuild")
	report, err := s.rebuilder.RebuildAll(ctx)
	if err != nil {
		s.logger.Error("scheduled rebuild failed", "err", err)
		return report, err
	}
	s.logger.Info("scheduled rebuild completed",
		"articles", report.Articles,
		"drugs", report.Drugs,
		"duration", report.Duration)
	return report, nil
}
