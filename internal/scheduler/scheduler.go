// Package scheduler dispatches registered handlers on cron schedules and
// event triggers, with per-job retry budgets and structured results.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/resonatelabs/resonate/internal/config"
)

// HandlerFunc runs one job invocation. The payload is nil for cron firings
// and carries the event body for event-triggered ones. The returned value is
// the job's structured counts, logged with the result.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) (interface{}, error)

// Job is one registered handler with its triggers.
type Job struct {
	ID      string
	Event   string
	Retries int
	Enabled bool

	cron    *cronSpec
	handler HandlerFunc
}

// JobResult records one execution, including retries.
type JobResult struct {
	JobID     string        `json:"job_id"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Output    interface{}   `json:"output,omitempty"`
}

// Status summarizes the scheduler.
type Status struct {
	Running      bool          `json:"running"`
	EnabledJobs  int           `json:"enabled_jobs"`
	DisabledJobs int           `json:"disabled_jobs"`
	Uptime       time.Duration `json:"uptime"`
}

// Scheduler holds the registry. Register everything before Start; the
// registry is not mutated afterwards, so ticks and Dispatch calls need no
// locking.
type Scheduler struct {
	jobs      map[string]*Job
	order     []string
	startTime time.Time
	running   bool
	now       func() time.Time
}

// New returns an empty Scheduler.
func New() *Scheduler {
	return &Scheduler{jobs: map[string]*Job{}, now: time.Now}
}

// Register adds a handler under the job's configured triggers. A job needs a
// cron schedule, an event trigger, or both.
func (s *Scheduler) Register(cfg config.JobConfig, handler HandlerFunc) error {
	if _, dup := s.jobs[cfg.ID]; dup {
		return fmt.Errorf("job %s already registered", cfg.ID)
	}
	job := &Job{
		ID:      cfg.ID,
		Event:   cfg.Event,
		Retries: cfg.Retries,
		Enabled: cfg.Enabled,
		handler: handler,
	}
	if cfg.Cron != "" {
		spec, err := parseCron(cfg.Cron)
		if err != nil {
			return err
		}
		job.cron = spec
	}
	if job.cron == nil && job.Event == "" {
		return fmt.Errorf("job %s has neither schedule nor event trigger", cfg.ID)
	}
	s.jobs[cfg.ID] = job
	s.order = append(s.order, cfg.ID)
	return nil
}

// Status returns current scheduler state.
func (s *Scheduler) Status() *Status {
	enabled, disabled := 0, 0
	for _, job := range s.jobs {
		if job.Enabled {
			enabled++
		} else {
			disabled++
		}
	}
	var uptime time.Duration
	if s.running {
		uptime = time.Since(s.startTime)
	}
	return &Status{Running: s.running, EnabledJobs: enabled, DisabledJobs: disabled, Uptime: uptime}
}

// Start runs the cron loop until the context is cancelled. Jobs fire at most
// once per matching minute, serially.
func (s *Scheduler) Start(ctx context.Context) error {
	s.running = true
	s.startTime = s.now()
	log.Info().Int("jobs", len(s.jobs)).Msg("scheduler starting")

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.running = false
			return ctx.Err()
		case tick := <-ticker.C:
			s.runDue(ctx, tick)
		}
	}
}

func (s *Scheduler) runDue(ctx context.Context, at time.Time) {
	for _, id := range s.order {
		job := s.jobs[id]
		if !job.Enabled || job.cron == nil || !job.cron.matches(at) {
			continue
		}
		s.execute(ctx, job, nil)
	}
}

// Dispatch runs every enabled job registered for the event, serially, and
// returns their results.
func (s *Scheduler) Dispatch(ctx context.Context, event string, payload json.RawMessage) []*JobResult {
	var results []*JobResult
	for _, id := range s.order {
		job := s.jobs[id]
		if !job.Enabled || job.Event != event {
			continue
		}
		results = append(results, s.execute(ctx, job, payload))
	}
	return results
}

// RunJob executes one job immediately, ignoring its triggers.
func (s *Scheduler) RunJob(ctx context.Context, id string) (*JobResult, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", id)
	}
	return s.execute(ctx, job, nil), nil
}

// execute runs the handler with the job's retry budget and linear backoff.
func (s *Scheduler) execute(ctx context.Context, job *Job, payload json.RawMessage) *JobResult {
	result := &JobResult{JobID: job.ID, StartTime: s.now()}

	var out interface{}
	var err error
	for attempt := 0; attempt <= job.Retries; attempt++ {
		result.Attempts = attempt + 1
		if attempt > 0 {
			select {
			case <-ctx.Done():
				err = ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
			if err != nil {
				break
			}
		}
		out, err = job.handler(ctx, payload)
		if err == nil {
			break
		}
		log.Warn().Err(err).Str("job", job.ID).Int("attempt", attempt+1).Msg("job attempt failed")
	}

	result.EndTime = s.now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.Success = err == nil
	result.Output = out
	if err != nil {
		result.Error = err.Error()
		log.Error().Err(err).Str("job", job.ID).Int("attempts", result.Attempts).Msg("job failed")
	} else {
		log.Info().Str("job", job.ID).Dur("duration", result.Duration).Interface("output", out).Msg("job complete")
	}
	return result
}
