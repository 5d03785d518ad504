/*
scheduler.go - Day-close background job

PURPOSE:
  Periodically resolves every past business day that still has an open
  event (check-in without check-out), so the stored status and the
  PendingCheckout flag are current even when nobody calls ResolveDay.
  Each missing checkout is logged.

DESIGN:
  - Runs a background goroutine with a configurable interval
  - Runs once immediately on start
  - Resolution is idempotent, so overlapping or repeated runs are harmless

USAGE:
  closer := service.NewDayCloser(att, time.Hour, logger)
  closer.Start()
  // ... later
  closer.Stop()
*/
package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CloseResult counts one run.
type CloseResult struct {
	Resolved int `json:"resolved"`
	Failed   int `json:"failed"`
}

// DayCloser resolves open events from previous days.
type DayCloser struct {
	Attendance *Attendance
	Interval   time.Duration
	Enabled    bool

	logger *zap.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewDayCloser(att *Attendance, interval time.Duration, logger *zap.Logger) *DayCloser {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DayCloser{
		Attendance: att,
		Interval:   interval,
		Enabled:    true,
		logger:     logger.Named("day_closer"),
	}
}

// Start begins the background loop.
func (dc *DayCloser) Start() {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if !dc.Enabled {
		dc.logger.Info("disabled, not starting")
		return
	}
	if dc.ticker != nil {
		return
	}

	dc.ticker = time.NewTicker(dc.Interval)
	dc.stop = make(chan struct{})
	dc.wg.Add(1)
	go dc.run()

	dc.logger.Info("started", zap.Duration("interval", dc.Interval))
}

// Stop stops the loop and waits for an in-flight run to finish.
func (dc *DayCloser) Stop() {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if dc.ticker == nil {
		return
	}
	dc.ticker.Stop()
	close(dc.stop)
	dc.wg.Wait()
	dc.ticker = nil
	dc.logger.Info("stopped")
}

func (dc *DayCloser) run() {
	defer dc.wg.Done()

	dc.RunNow(context.Background())

	for {
		select {
		case <-dc.ticker.C:
			dc.RunNow(context.Background())
		case <-dc.stop:
			return
		}
	}
}

// RunNow resolves every missing checkout once.
func (dc *DayCloser) RunNow(ctx context.Context) CloseResult {
	var result CloseResult

	open, err := dc.Attendance.MissingCheckouts(ctx)
	if err != nil {
		dc.logger.Error("failed to list open events", zap.Error(err))
		return result
	}

	for _, ev := range open {
		res, err := dc.Attendance.ResolveDay(ctx, ev.EmployeeID, ev.Date)
		if err != nil {
			result.Failed++
			dc.logger.Error("failed to resolve day",
				zap.String("employee_id", string(ev.EmployeeID)),
				zap.Stringer("date", ev.Date),
				zap.Error(err),
			)
			continue
		}
		result.Resolved++
		dc.logger.Warn("missing checkout",
			zap.String("employee_id", string(ev.EmployeeID)),
			zap.Stringer("date", ev.Date),
			zap.String("status", string(res.Status)),
		)
	}

	if result.Resolved > 0 || result.Failed > 0 {
		dc.logger.Info("run completed", zap.Int("resolved", result.Resolved), zap.Int("failed", result.Failed))
	}
	return result
}
