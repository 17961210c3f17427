// Package scheduler triggers crawl runs on a cron or fixed-interval
// policy. Ticks that land while a run is still active are skipped and
// logged, never queued.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/bidwatch/internal/logger"
)

// ErrNoTrigger is returned when neither an interval nor a cron
// expression is configured.
var ErrNoTrigger = errors.New("schedule requires an interval or a cron expression")

// Runner starts a crawl run without blocking. It reports whether the
// run was accepted; reason explains a rejection.
type Runner interface {
	Start(ctx context.Context) (accepted bool, reason string)
}

// Config is the trigger policy. When both IntervalMinutes and Cron are
// set, the interval wins.
type Config struct {
	Enabled         bool   `mapstructure:"enabled"`
	IntervalMinutes int    `mapstructure:"interval_minutes"`
	Cron            string `mapstructure:"cron"`
	Timezone        string `mapstructure:"timezone"`
}

// Scheduler wraps a cron runner around a crawl trigger.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	logger logger.Interface
	spec   string
}

// New builds a Scheduler from cfg. The effective trigger spec is the
// fixed interval when one is configured, otherwise the cron expression.
func New(cfg Config, runner Runner, log logger.Interface) (*Scheduler, error) {
	if log == nil {
		log = logger.NewNoOp()
	}

	spec := cfg.Cron
	if cfg.IntervalMinutes > 0 {
		spec = fmt.Sprintf("@every %dm", cfg.IntervalMinutes)
	}
	if spec == "" {
		return nil, ErrNoTrigger
	}

	loc := time.Local
	if cfg.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
		}
	}

	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		runner: runner,
		logger: log.WithComponent("scheduler"),
		spec:   spec,
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

// Spec returns the effective trigger spec.
func (s *Scheduler) Spec() string {
	return s.spec
}

// Start begins firing ticks in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "spec", s.spec)
}

// Stop halts the trigger and waits for an in-flight tick to return.
// The crawl run a tick started keeps going on its own.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) tick() {
	accepted, reason := s.runner.Start(context.Background())
	if !accepted {
		s.logger.Warn("skipping scheduled crawl", "reason", reason)
		return
	}
	s.logger.Info("scheduled crawl triggered")
}
