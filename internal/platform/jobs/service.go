package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	JobDraftReminders = "onboarding_draft_reminders"

	reminderBatch = 200
)

// RunStore records job executions in job_runs.
type RunStore interface {
	Start(ctx context.Context, tenantID, jobType string) (string, error)
	Finish(ctx context.Context, runID, status string, details []byte) error
}

// DraftReminders is the onboarding operation the scheduler drives.
type DraftReminders interface {
	SendDraftReminders(ctx context.Context, limit int) (int, error)
}

type Service struct {
	Runs  RunStore
	queue chan job
}

type job struct {
	Type     string
	TenantID string
	Run      func(context.Context) (any, error)
}

func New(runs RunStore) *Service {
	return &Service{
		Runs:  runs,
		queue: make(chan job, 128),
	}
}

// Start launches the worker and, when interval is positive, the draft
// reminder schedule. Both stop with ctx.
func (s *Service) Start(ctx context.Context, reminders DraftReminders, interval time.Duration) {
	go s.worker(ctx)
	if reminders != nil && interval > 0 {
		go s.scheduleReminders(ctx, reminders, interval)
	}
}

func (s *Service) Enqueue(jobType, tenantID string, run func(context.Context) (any, error)) bool {
	select {
	case s.queue <- job{Type: jobType, TenantID: tenantID, Run: run}:
		return true
	default:
		slog.Warn("job queue full", "job_type", jobType, "tenant_id", tenantID)
		return false
	}
}

func (s *Service) RunNow(ctx context.Context, jobType, tenantID string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, TenantID: tenantID, Run: run})
}

// ReminderJob wraps SendDraftReminders as a job body.
func ReminderJob(reminders DraftReminders) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		sent, err := reminders.SendDraftReminders(ctx, reminderBatch)
		return map[string]any{"remindersSent": sent}, err
	}
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "job_type", j.Type, "tenant_id", j.TenantID, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if s.Runs != nil {
		id, err := s.Runs.Start(ctx, j.TenantID, j.Type)
		if err != nil {
			slog.Warn("job run insert failed", "job_type", j.Type, "err", err)
		}
		runID = id
	}

	started := time.Now()
	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	slog.Info("job finished", "job_type", j.Type, "status", status, "duration_ms", time.Since(started).Milliseconds())

	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if updErr := s.Runs.Finish(ctx, runID, status, detailsJSON); updErr != nil {
			slog.Warn("job run update failed", "err", updErr)
		}
	}
	return details, err
}

func (s *Service) scheduleReminders(ctx context.Context, reminders DraftReminders, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(JobDraftReminders, "", ReminderJob(reminders))
		}
	}
}

// PGRuns is the job_runs table.
type PGRuns struct {
	DB *pgxpool.Pool
}

func (p PGRuns) Start(ctx context.Context, tenantID, jobType string) (string, error) {
	var runID string
	err := p.DB.QueryRow(ctx, `
    INSERT INTO job_runs (tenant_id, job_type, status)
    VALUES (NULLIF($1, '')::uuid, $2, $3)
    RETURNING id
  `, tenantID, jobType, "running").Scan(&runID)
	return runID, err
}

func (p PGRuns) Finish(ctx context.Context, runID, status string, details []byte) error {
	_, err := p.DB.Exec(ctx, `
    UPDATE job_runs
    SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, details, runID)
	return err
}
