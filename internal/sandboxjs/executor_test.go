package sandboxjs

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rizrmd/claystudio/internal/config"
)

func TestShellQuote(t *testing.T) {
	tests := []struct{ in, want string }{
		{"node", "'node'"},
		{"/usr/bin/node", "'/usr/bin/node'"},
		{"it's me", `'it'\''s me'`},
		{"", "''"},
	}
	for _, tt := range tests {
		if got := shellQuote(tt.in); got != tt.want {
			t.Errorf("shellQuote(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMemoryLimitKB(t *testing.T) {
	tests := []struct {
		mb   int
		want int
	}{
		{512, 512 * 1024},
		{0, 512 * 1024},
		{-1, 512 * 1024},
		{1024, 1024 * 1024},
	}
	for _, tt := range tests {
		if got := memoryLimitKB(tt.mb); got != tt.want {
			t.Errorf("memoryLimitKB(%d) = %d, want %d", tt.mb, got, tt.want)
		}
	}
}

func TestLastLines(t *testing.T) {
	s := "a\nb\nc\nd\ne\n"
	if got := lastLines(s, 2); got != "d\ne" {
		t.Errorf("lastLines = %q, want %q", got, "d\ne")
	}
	if got := lastLines("short", 10); got != "short" {
		t.Errorf("lastLines = %q, want %q", got, "short")
	}
}

func TestExecutor_PersistResult_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	e := &Executor{cfg: config.AnalysisConfig{StorageRoot: dir}}

	data := json.RawMessage(`{"rows":[1,2,3]}`)
	path, size, checksum, err := e.persistResult("job-123", data)
	if err != nil {
		t.Fatalf("persistResult: %v", err)
	}
	if path != filepath.Join(dir, "results", "job-123.json.gz") {
		t.Errorf("path = %q", path)
	}
	if size <= 0 {
		t.Errorf("size = %d, want > 0", size)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read persisted file: %v", err)
	}
	sum := sha256.Sum256(raw)
	if hex.EncodeToString(sum[:]) != checksum {
		t.Errorf("checksum mismatch: stored file hash != returned checksum")
	}

	gz, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	defer gz.Close()
	decompressed, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("read gzip: %v", err)
	}
	if string(decompressed) != string(data) {
		t.Errorf("decompressed = %q, want %q", decompressed, data)
	}
}
