// Package scheduler runs the scraping pipeline on a fixed interval and
// exposes start/stop/status as an explicit state machine.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"dawnscraper/internal/metrics"
	"dawnscraper/internal/news"
)

// Runner is the pipeline trigger the scheduler drives on every tick.
type Runner interface {
	Run(ctx context.Context, maxArticles int) news.ScrapeRun
}

// State is the scheduler lifecycle state.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
)

// Status is a consistent snapshot of the scheduler.
type Status struct {
	State       State           `json:"state"`
	Interval    time.Duration   `json:"interval"`
	MaxArticles int             `json:"max_articles"`
	LastRun     *news.ScrapeRun `json:"last_run"`
	NextRunAt   *time.Time      `json:"next_run_at"`
}

// Scheduler owns one background loop. All state is guarded by mu so a
// status read during a concurrent start/stop never observes a torn
// snapshot.
type Scheduler struct {
	runner Runner
	logger *zap.Logger

	mu          sync.Mutex
	state       State
	interval    time.Duration
	maxArticles int
	lastRun     *news.ScrapeRun
	nextRunAt   time.Time
	stopCh      chan struct{}
	done        chan struct{}
}

// New constructs a stopped Scheduler.
func New(runner Runner, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		runner: runner,
		logger: logger,
		state:  StateStopped,
	}
}

// Start transitions Stopped -> Running and spawns the periodic loop.
// Calling Start while running is a no-op that returns the current
// status unchanged.
func (s *Scheduler) Start(interval time.Duration, maxArticles int) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRunning {
		return s.statusLocked()
	}
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	if maxArticles <= 0 {
		maxArticles = 10
	}

	s.state = StateRunning
	s.interval = interval
	s.maxArticles = maxArticles
	s.nextRunAt = time.Now().UTC().Add(interval)
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop(s.stopCh, s.done, interval, maxArticles)

	metrics.SetSchedulerRunning(true)
	s.logger.Info("scheduler started",
		zap.Duration("interval", interval),
		zap.Int("max_articles", maxArticles),
	)
	return s.statusLocked()
}

// Stop transitions Running -> Stopped. It signals the loop and joins
// it: a tick already in flight finishes its current run before the
// loop exits. Calling Stop while stopped is a no-op.
func (s *Scheduler) Stop() Status {
	s.mu.Lock()
	if s.state != StateRunning {
		defer s.mu.Unlock()
		return s.statusLocked()
	}
	// Transition under the lock so a concurrent Stop sees Stopped and
	// never double-closes the stop channel.
	stopCh := s.stopCh
	done := s.done
	s.state = StateStopped
	s.stopCh = nil
	s.nextRunAt = time.Time{}
	s.mu.Unlock()

	close(stopCh)
	<-done

	metrics.SetSchedulerRunning(false)
	s.logger.Info("scheduler stopped")

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

// Status returns a snapshot; safe to call from any state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Scheduler) statusLocked() Status {
	status := Status{
		State:       s.state,
		Interval:    s.interval,
		MaxArticles: s.maxArticles,
		LastRun:     s.lastRun,
	}
	if !s.nextRunAt.IsZero() {
		next := s.nextRunAt
		status.NextRunAt = &next
	}
	return status
}

// loop fires the pipeline every interval until stopped. Run errors are
// carried in the run summary; a bad tick never kills the loop.
func (s *Scheduler) loop(stopCh <-chan struct{}, done chan<- struct{}, interval time.Duration, maxArticles int) {
	defer close(done)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-timer.C:
		}

		s.tick(maxArticles)

		s.mu.Lock()
		if s.state == StateRunning {
			s.nextRunAt = time.Now().UTC().Add(interval)
		}
		s.mu.Unlock()
		timer.Reset(interval)
	}
}

// tick runs the pipeline once. The run context is deliberately not
// tied to Stop: cancellation is cooperative and an in-flight run is
// allowed to finish.
func (s *Scheduler) tick(maxArticles int) {
	start := time.Now()
	run := s.runner.Run(context.Background(), maxArticles)
	metrics.ObserveRun("scheduled", time.Since(start))

	s.mu.Lock()
	s.lastRun = &run
	s.mu.Unlock()

	if len(run.Errors) > 0 {
		s.logger.Warn("scheduled run completed with errors",
			zap.Int("errors", len(run.Errors)),
			zap.Int("articles_new", run.ArticlesNew),
		)
		return
	}
	s.logger.Info("scheduled run completed",
		zap.Int("articles_new", run.ArticlesNew),
		zap.Int("articles_updated", run.ArticlesUpdated),
	)
}
