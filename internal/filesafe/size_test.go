package filesafe

import "testing"

func TestShouldInline(t *testing.T) {
	tests := []struct {
		name           string
		sizeBytes      int64
		maxInlineBytes int64
		want           bool
	}{
		{"under cap", 100, 1000, true},
		{"exactly at cap", 1000, 1000, true},
		{"over cap", 1001, 1000, false},
		{"zero size", 0, 1000, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldInline(tt.sizeBytes, tt.maxInlineBytes); got != tt.want {
				t.Errorf("ShouldInline(%d, %d) = %v, want %v", tt.sizeBytes, tt.maxInlineBytes, got, tt.want)
			}
		})
	}
}

func TestRange(t *testing.T) {
	tests := []struct {
		name                  string
		offset, length, size  int64
		wantStart, wantEnd    int64
	}{
		{"within bounds", 10, 20, 100, 10, 30},
		{"negative offset clamped to 0", -5, 20, 100, 0, 20},
		{"offset past size clamped", 200, 20, 100, 100, 100},
		{"length overruns size", 90, 50, 100, 90, 100},
		{"zero length reads to EOF", 10, 0, 100, 10, 100},
		{"negative length reads to EOF", 10, -1, 100, 10, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := Range(tt.offset, tt.length, tt.size)
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("Range(%d, %d, %d) = (%d, %d), want (%d, %d)",
					tt.offset, tt.length, tt.size, start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}
