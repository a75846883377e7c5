// Package schedulers runs the periodic ledger jobs on a cron schedule. Each
// run holds a cache lock so only one instance executes a job at a time.
package schedulers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"stakeledger/internal/cache"
	"stakeledger/internal/config"
	"stakeledger/internal/metrics"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var log = config.InitLogger()

const defaultLockTTL = 10 * time.Minute

var ErrUnknownJob = errors.New("unknown job")

type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

type Scheduler struct {
	cron    *cron.Cron
	store   cache.Store
	metrics *metrics.Ledger
	lockTTL time.Duration

	mu   sync.Mutex
	jobs map[string]Job
}

func New(store cache.Store, m *metrics.Ledger, lockTTL time.Duration) *Scheduler {
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	logger := cron.PrintfLogger(log)
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		store:   store,
		metrics: m,
		lockTTL: lockTTL,
		jobs:    make(map[string]Job),
	}
}

// Add registers job under its cron spec. An empty spec registers the job for
// RunOnce only.
func (s *Scheduler) Add(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.Name]; ok {
		return fmt.Errorf("job %s is already registered", job.Name)
	}
	if job.Spec != "" {
		if _, err := s.cron.AddFunc(job.Spec, func() {
			if err := s.run(context.Background(), job); err != nil {
				log.WithField("job", job.Name).Error("Scheduled job failed: ", err)
			}
		}); err != nil {
			return fmt.Errorf("job %s: %w", job.Name, err)
		}
	}
	s.jobs[job.Name] = job
	return nil
}

// RunOnce executes a registered job immediately under the same lock the
// cron trigger uses.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(ctx, job)
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.WithField("jobs", len(s.jobs)).Info("Scheduler started")
}

// Stop stops the cron and waits for running jobs or ctx, whichever is first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		log.Info("Scheduler stopped")
	case <-ctx.Done():
		log.Warn("Scheduler stop timed out with jobs still running")
	}
}

func (s *Scheduler) run(ctx context.Context, job Job) error {
	fields := logrus.Fields{"job": job.Name}

	lock, err := cache.AcquireLock(ctx, s.store, "job:"+job.Name, s.lockTTL)
	if errors.Is(err, cache.ErrLockHeld) {
		log.WithFields(fields).Debug("Job is running on another instance, skipping")
		return nil
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			log.WithFields(fields).Error("Failed to release job lock: ", err)
		}
	}()

	started := time.Now()
	err = job.Run(ctx)
	if s.metrics != nil {
		s.metrics.ObserveJob(job.Name, started)
	}
	if err != nil {
		return err
	}
	log.WithFields(fields).WithField("took", time.Since(started).Round(time.Millisecond)).Info("Job finished")
	return nil
}
