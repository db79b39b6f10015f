package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/proofofcorn/farmer-fred/internal/core"
)

const defaultJobTimeout = 5 * time.Minute

// Job is a unit of periodic work
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs each job on its own ticker until stopped
type Scheduler struct {
	jobs       []Job
	runOnStart bool
	jobTimeout time.Duration
	logger     *zap.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a scheduler. With runOnStart every job also runs once immediately.
func New(jobs []Job, runOnStart bool, logger *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		jobs:       jobs,
		runOnStart: runOnStart,
		jobTimeout: defaultJobTimeout,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		stopChan:   make(chan struct{}),
	}
}

// Start begins the scheduler loops
func (s *Scheduler) Start() {
	for _, job := range s.jobs {
		if job.Interval <= 0 {
			s.logger.Warn("Skipping job without interval", zap.String("job", job.Name))
			continue
		}
		s.logger.Info("Starting job", zap.String("job", job.Name), zap.Duration("interval", job.Interval))

		s.wg.Add(1)
		go s.loop(job)
	}
}

// Stop stops every loop and waits for running jobs to return
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.cancel()
	})
	s.wg.Wait()
}

func (s *Scheduler) loop(job Job) {
	defer s.wg.Done()

	if s.runOnStart {
		s.runJob(job)
	}

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runJob(job)
		case <-s.stopChan:
			s.logger.Info("Job stopped", zap.String("job", job.Name))
			return
		}
	}
}

func (s *Scheduler) runJob(job Job) {
	ctx, cancel := context.WithTimeout(s.ctx, s.jobTimeout)
	defer cancel()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.logger.Error("Job failed", zap.String("job", job.Name), zap.Error(err))
		return
	}
	s.logger.Debug("Job finished", zap.String("job", job.Name), zap.Duration("took", time.Since(start)))
}

// DailyCheckJob runs the farmer's daily routine
func DailyCheckJob(farmer *core.FarmerService, interval time.Duration) Job {
	return Job{
		Name:     "daily-check",
		Interval: interval,
		Run: func(ctx context.Context) error {
			_, err := farmer.PerformDailyCheck(ctx)
			return err
		},
	}
}

// FollowUpJob turns overdue follow-ups into tasks
func FollowUpJob(followUps *core.FollowUpScheduler, interval time.Duration) Job {
	return Job{
		Name:     "follow-up-check",
		Interval: interval,
		Run: func(ctx context.Context) error {
			_, err := followUps.CheckOverdueFollowUps(ctx)
			return err
		},
	}
}
