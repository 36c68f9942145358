// Package scheduler runs the sandbox's periodic housekeeping
package scheduler

import (
	"log/slog"
	"sync"
	"time"
)

// BookingStore moves finished bookings out of the pending state
type BookingStore interface {
	CompletePast(now time.Time) int
}

// Scheduler periodically completes bookings whose slot has ended
type Scheduler struct {
	store    BookingStore
	interval time.Duration
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
	logger   *slog.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(store BookingStore, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:    store,
		interval: interval,
		now:      time.Now,
		stopChan: make(chan struct{}),
		logger:   logger.With("component", "scheduler"),
	}
}

// Start begins the scheduler loop
func (s *Scheduler) Start() {
	s.logger.Info("Scheduler started", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-s.stopChan:
			s.logger.Info("Scheduler stopped")
			return
		}
	}
}

// Stop stops the scheduler. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// tick performs one cycle of the scheduler
func (s *Scheduler) tick() int {
	completed := s.store.CompletePast(s.now())
	if completed > 0 {
		s.logger.Info("Bookings completed", "count", completed)
	} else {
		s.logger.Debug("Scheduler tick", "completed", 0)
	}
	return completed
}
