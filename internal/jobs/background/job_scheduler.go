package background

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"schoolprops/internal/jobs"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

const (
	jobAlerts     = "alerts-sweep"
	jobEscalation = "stale-escalation"
)

// Options controls the periodic jobs. A zero EscalateAfter disables escalation.
type Options struct {
	SweepInterval time.Duration
	EscalateAfter time.Duration
}

// JobScheduler runs the periodic sweeps for one process.
type JobScheduler struct {
	scheduler gocron.Scheduler
	alerts    *jobs.InventoryAlertService
	opts      Options
	ctx       context.Context
	cancel    context.CancelFunc
	jobs      map[string]gocron.Job
	mu        sync.RWMutex
}

func NewJobScheduler(alerts *jobs.InventoryAlertService, opts Options) (*JobScheduler, error) {
	if opts.SweepInterval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %s", opts.SweepInterval)
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	js := &JobScheduler{
		scheduler: scheduler,
		alerts:    alerts,
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		jobs:      make(map[string]gocron.Job),
	}

	if err := js.registerJobs(); err != nil {
		cancel()
		_ = scheduler.Shutdown()
		return nil, err
	}
	return js, nil
}

func (js *JobScheduler) Start() {
	log.Info().Int("jobs", len(js.jobs)).Msg("Starting background job scheduler")
	js.scheduler.Start()
}

// Stop cancels running jobs and waits for them to return.
func (js *JobScheduler) Stop() error {
	log.Info().Msg("Stopping background job scheduler")
	js.cancel()
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() error {
	if err := js.AddJob(jobAlerts, js.opts.SweepInterval, js.sweepAlerts); err != nil {
		return fmt.Errorf("failed to create alerts job: %w", err)
	}
	if js.opts.EscalateAfter > 0 {
		if err := js.AddJob(jobEscalation, js.opts.SweepInterval, js.escalateStale); err != nil {
			return fmt.Errorf("failed to create escalation job: %w", err)
		}
	}
	return nil
}

func (js *JobScheduler) sweepAlerts() {
	if err := js.alerts.ScheduledSweep(js.ctx, 0); err != nil {
		log.Error().Err(err).Str("job", jobAlerts).Msg("Job failed")
	}
}

func (js *JobScheduler) escalateStale() {
	n, err := js.alerts.Escalate(js.ctx, js.opts.EscalateAfter)
	if err != nil {
		log.Error().Err(err).Str("job", jobEscalation).Msg("Job failed")
		return
	}
	log.Debug().Int("escalated", n).Msg("Escalation run completed")
}

// AddJob schedules fn every interval. Runs never overlap.
func (js *JobScheduler) AddJob(name string, interval time.Duration, fn func()) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	if _, exists := js.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}
	job, err := js.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(fn),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	js.jobs[name] = job
	log.Debug().Str("job", name).Dur("interval", interval).Msg("Registered job")
	return nil
}

func (js *JobScheduler) RemoveJob(name string) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	if job, exists := js.jobs[name]; exists {
		err := js.scheduler.RemoveJob(job.ID())
		delete(js.jobs, name)
		return err
	}
	return nil
}

// RunNow triggers a registered job outside its schedule.
func (js *JobScheduler) RunNow(name string) error {
	js.mu.RLock()
	job, exists := js.jobs[name]
	js.mu.RUnlock()
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}
	return job.RunNow()
}

// JobNames lists registered jobs in name order.
func (js *JobScheduler) JobNames() []string {
	js.mu.RLock()
	defer js.mu.RUnlock()

	names := make([]string, 0, len(js.jobs))
	for name := range js.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
