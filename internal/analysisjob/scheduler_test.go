package analysisjob

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rizrmd/claystudio/internal/model"
)

func TestResolveKeyword(t *testing.T) {
	now := time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		def  any
		want any
	}{
		{"yesterday", "yesterday", "2026-07-28"},
		{"today", "today", "2026-07-29"},
		{"literal string passthrough", "US", "US"},
		{"non-string passthrough", float64(42), float64(42)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveKeyword(tt.def, now); got != tt.want {
				t.Errorf("resolveKeyword(%v) = %v, want %v", tt.def, got, tt.want)
			}
		})
	}
}

func TestSynthesizeParameters(t *testing.T) {
	now := time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC)
	analysis := &model.Analysis{
		Metadata: json.RawMessage(`{"parameters":{"report_date":{"default":"yesterday"},"region":{"default":"EU"}}}`),
	}

	got := synthesizeParameters(analysis, now)
	if got == nil {
		t.Fatal("synthesizeParameters returned nil")
	}
	var out map[string]any
	if err := json.Unmarshal(got, &out); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if out["report_date"] != "2026-07-28" {
		t.Errorf("report_date = %v, want 2026-07-28", out["report_date"])
	}
	if out["region"] != "EU" {
		t.Errorf("region = %v, want EU", out["region"])
	}
}

func TestSynthesizeParameters_NoMetadata(t *testing.T) {
	analysis := &model.Analysis{}
	if got := synthesizeParameters(analysis, time.Now()); got != nil {
		t.Errorf("expected nil for empty metadata, got %s", got)
	}
}

func TestSynthesizeParameters_MalformedMetadata(t *testing.T) {
	analysis := &model.Analysis{Metadata: json.RawMessage(`not json`)}
	if got := synthesizeParameters(analysis, time.Now()); got != nil {
		t.Errorf("expected nil for malformed metadata, got %s", got)
	}
}

func TestDeleteResultFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "result.json.gz")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := deleteResultFile(path); err != nil {
		t.Fatalf("deleteResultFile: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file still exists after deleteResultFile")
	}

	// Missing file is tolerated, not an error.
	if err := deleteResultFile(filepath.Join(dir, "missing.json.gz")); err != nil {
		t.Errorf("deleteResultFile on missing file: %v", err)
	}

	// Empty path is a no-op.
	if err := deleteResultFile(""); err != nil {
		t.Errorf("deleteResultFile(\"\"): %v", err)
	}
}

func TestDurationOr(t *testing.T) {
	if got := durationOr("5s", time.Second); got != 5*time.Second {
		t.Errorf("durationOr valid = %v, want 5s", got)
	}
	if got := durationOr("", time.Second); got != time.Second {
		t.Errorf("durationOr empty = %v, want fallback 1s", got)
	}
	if got := durationOr("bogus", time.Second); got != time.Second {
		t.Errorf("durationOr invalid = %v, want fallback 1s", got)
	}
	if got := durationOr("0s", time.Second); got != time.Second {
		t.Errorf("durationOr zero = %v, want fallback 1s", got)
	}
}

func TestPositiveOr(t *testing.T) {
	if got := positiveOr(5, 10); got != 5 {
		t.Errorf("positiveOr(5, 10) = %d, want 5", got)
	}
	if got := positiveOr(0, 10); got != 10 {
		t.Errorf("positiveOr(0, 10) = %d, want 10", got)
	}
	if got := positiveOr(-1, 10); got != 10 {
		t.Errorf("positiveOr(-1, 10) = %d, want 10", got)
	}
}
