// Package analysisjob schedules Analysis executions: a poll loop claims
// pending jobs and dispatches them to the sandbox executor, a cron
// loop fires schedule-triggered jobs, and a retention sweep prunes old
// results. Mirrors the teacher's goroutine-per-loop shutdown-on-context
// discipline used throughout internal/agent and internal/gateway.
package analysisjob

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/rizrmd/claystudio/internal/config"
	"github.com/rizrmd/claystudio/internal/model"
	"github.com/rizrmd/claystudio/internal/store"
)

// Runner is the Analysis Sandbox Executor collaborator. Run owns the
// job's full completion lifecycle — it persists Completed/Failed
// itself; Scheduler only tracks concurrency and cancellation.
type Runner interface {
	Run(ctx context.Context, job *model.AnalysisJob, analysis *model.Analysis)
}

// Scheduler is the Analysis Job Scheduler (AJS).
type Scheduler struct {
	stores *store.Stores
	runner Runner
	log    *slog.Logger

	pollInterval      time.Duration
	cronInterval      time.Duration
	retentionInterval time.Duration
	retentionDays     int
	maxConcurrent     int

	mu      sync.Mutex
	running map[string]context.CancelFunc // job_id -> cancel
}

func New(cfg config.AnalysisConfig, stores *store.Stores, runner Runner, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Scheduler{
		stores: stores, runner: runner, log: log,
		pollInterval:      durationOr(cfg.PollInterval, time.Second),
		cronInterval:      durationOr(cfg.CronInterval, 60*time.Second),
		retentionInterval: durationOr(cfg.RetentionInterval, time.Hour),
		retentionDays:     positiveOr(cfg.RetentionDays, 30),
		maxConcurrent:     maxConcurrent,
		running:           make(map[string]context.CancelFunc),
	}
}

func durationOr(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return fallback
}

func positiveOr(n, fallback int) int {
	if n > 0 {
		return n
	}
	return fallback
}

// Run starts the poll, cron, and retention loops; blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); s.pollLoop(ctx) }()
	go func() { defer wg.Done(); s.cronLoop(ctx) }()
	go func() { defer wg.Done(); s.retentionLoop(ctx) }()
	wg.Wait()
}

// Cancel SIGTERMs a running job's context and marks it cancelled.
func (s *Scheduler) Cancel(ctx context.Context, jobID string) {
	s.mu.Lock()
	cancel, ok := s.running[jobID]
	s.mu.Unlock()
	if !ok {
		return
	}
	cancel()
	if err := s.stores.AnalysisJobs.Cancel(ctx, jobID); err != nil {
		s.log.Error("analysisjob: mark cancelled failed", "job_id", jobID, "error", err)
	}
}

func (s *Scheduler) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollOnce(ctx)
		}
	}
}

func (s *Scheduler) pollOnce(ctx context.Context) {
	s.mu.Lock()
	free := s.maxConcurrent - len(s.running)
	s.mu.Unlock()
	if free <= 0 {
		return
	}

	jobs, err := s.stores.AnalysisJobs.ClaimPending(ctx, free)
	if err != nil {
		s.log.Error("analysisjob: claim pending failed", "error", err)
		return
	}
	for _, job := range jobs {
		s.dispatch(job)
	}
}

func (s *Scheduler) dispatch(job *model.AnalysisJob) {
	analysis, err := s.stores.Analyses.Get(context.Background(), job.AnalysisID)
	if err != nil {
		s.log.Error("analysisjob: load analysis failed", "job_id", job.ID, "error", err)
		_ = s.stores.AnalysisJobs.Fail(context.Background(), job.ID, "analysis not found: "+err.Error())
		return
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.running[job.ID] = cancel
	s.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			s.mu.Lock()
			delete(s.running, job.ID)
			s.mu.Unlock()
		}()
		s.runner.Run(jobCtx, job, analysis)
	}()
}

func (s *Scheduler) retentionLoop(ctx context.Context) {
	ticker := time.NewTicker(s.retentionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Scheduler) sweepOnce(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	removed, err := s.stores.Results.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.log.Error("analysisjob: retention sweep failed", "error", err)
		return
	}
	for _, r := range removed {
		if err := deleteResultFile(r.StoragePath); err != nil {
			s.log.Warn("analysisjob: delete result file failed", "path", r.StoragePath, "error", err)
		}
	}
	if len(removed) > 0 {
		s.log.Info("analysisjob: retention swept results", "count", len(removed))
	}
}

// synthesizeParameters fills an Analysis's declared parameter defaults
// for a schedule-triggered fire, resolving relative keywords like
// "yesterday" against now.
func synthesizeParameters(analysis *model.Analysis, now time.Time) json.RawMessage {
	var declared struct {
		Parameters map[string]struct {
			Default any `json:"default"`
		} `json:"parameters"`
	}
	if len(analysis.Metadata) == 0 {
		return nil
	}
	if err := json.Unmarshal(analysis.Metadata, &declared); err != nil {
		return nil
	}
	out := make(map[string]any, len(declared.Parameters))
	for name, p := range declared.Parameters {
		out[name] = resolveKeyword(p.Default, now)
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil
	}
	return b
}

func deleteResultFile(path string) error {
	if path == "" {
		return nil
	}
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func resolveKeyword(def any, now time.Time) any {
	s, ok := def.(string)
	if !ok {
		return def
	}
	switch s {
	case "yesterday":
		return now.AddDate(0, 0, -1).Format("2006-01-02")
	case "today":
		return now.Format("2006-01-02")
	default:
		return def
	}
}
