package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/rizrmd/claystudio/internal/model"
)

type AnalysisScheduleStore struct{ db *sql.DB }

func NewAnalysisScheduleStore(db *sql.DB) *AnalysisScheduleStore { return &AnalysisScheduleStore{db: db} }

func (s *AnalysisScheduleStore) ListEnabled(ctx context.Context) ([]*model.AnalysisSchedule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT analysis_id, cron, timezone, enabled, last_run_at, next_run_at
		 FROM analysis_schedules WHERE enabled = true`)
	if err != nil {
		return nil, model.Wrap(model.ErrInternal, "list enabled schedules", err)
	}
	defer rows.Close()

	var out []*model.AnalysisSchedule
	for rows.Next() {
		var sc model.AnalysisSchedule
		if err := rows.Scan(&sc.AnalysisID, &sc.Cron, &sc.Timezone, &sc.Enabled, &sc.LastRunAt, &sc.NextRunAt); err != nil {
			return nil, model.Wrap(model.ErrInternal, "scan schedule", err)
		}
		out = append(out, &sc)
	}
	return out, nil
}

// MarkFired records that a schedule fired at firedAt.
func (s *AnalysisScheduleStore) MarkFired(ctx context.Context, analysisID string, firedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE analysis_schedules SET last_run_at = $1 WHERE analysis_id = $2`, firedAt, analysisID)
	if err != nil {
		return model.Wrap(model.ErrInternal, "mark schedule fired", err)
	}
	return nil
}
