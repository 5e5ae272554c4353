package analysisjob

import (
	"context"
	"time"

	"github.com/adhocore/gronx"

	"github.com/rizrmd/claystudio/internal/model"
)

func (s *Scheduler) cronLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cronInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cronOnce(ctx)
		}
	}
}

// cronOnce evaluates every enabled AnalysisSchedule's cron expression
// against its declared timezone, firing a manual-parity AnalysisJob for
// any schedule whose next tick has passed since last_run_at.
func (s *Scheduler) cronOnce(ctx context.Context) {
	schedules, err := s.stores.Schedules.ListEnabled(ctx)
	if err != nil {
		s.log.Error("analysisjob: list enabled schedules failed", "error", err)
		return
	}

	now := time.Now()
	for _, sch := range schedules {
		loc, err := time.LoadLocation(sch.Timezone)
		if err != nil {
			s.log.Warn("analysisjob: bad schedule timezone", "analysis_id", sch.AnalysisID, "timezone", sch.Timezone, "error", err)
			continue
		}
		localNow := now.In(loc)

		// gronx checks minute-granularity due-ness at a single moment; guard
		// against firing twice within the same minute across cron ticks.
		if sch.LastRunAt != nil && sch.LastRunAt.In(loc).Truncate(time.Minute).Equal(localNow.Truncate(time.Minute)) {
			continue
		}

		due, err := gronx.IsDue(sch.Cron, localNow)
		if err != nil {
			s.log.Warn("analysisjob: bad cron expression", "analysis_id", sch.AnalysisID, "cron", sch.Cron, "error", err)
			continue
		}
		if !due && sch.LastRunAt != nil {
			// A fire time that passed since last_run_at without a tick landing
			// in its minute (e.g. while no worker was running) still fires once.
			next, nerr := gronx.NextTickAfter(sch.Cron, sch.LastRunAt.In(loc), false)
			due = nerr == nil && !next.After(localNow)
		}
		if !due {
			continue
		}

		s.fireSchedule(ctx, sch, now)
	}
}

func (s *Scheduler) fireSchedule(ctx context.Context, sch *model.AnalysisSchedule, firedAt time.Time) {
	analysis, err := s.stores.Analyses.Get(ctx, sch.AnalysisID)
	if err != nil {
		s.log.Error("analysisjob: load scheduled analysis failed", "analysis_id", sch.AnalysisID, "error", err)
		return
	}

	job := &model.AnalysisJob{
		AnalysisID:  sch.AnalysisID,
		Status:      model.JobPending,
		Parameters:  synthesizeParameters(analysis, firedAt),
		TriggeredBy: model.TriggeredSchedule,
	}
	if err := s.stores.AnalysisJobs.Create(ctx, job); err != nil {
		s.log.Error("analysisjob: create scheduled job failed", "analysis_id", sch.AnalysisID, "error", err)
		return
	}
	if err := s.stores.Schedules.MarkFired(ctx, sch.AnalysisID, firedAt); err != nil {
		s.log.Error("analysisjob: mark schedule fired failed", "analysis_id", sch.AnalysisID, "error", err)
	}
}
