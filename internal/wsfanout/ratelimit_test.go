package wsfanout

import (
	"context"
	"log/slog"
	"testing"

	"golang.org/x/time/rate"

	"github.com/rizrmd/claystudio/pkg/protocol"
)

func TestDispatchClientFrame_RateLimited(t *testing.T) {
	h := &Hub{log: slog.Default()}
	c := &connection{
		id:      "conn-1",
		send:    make(chan protocol.Frame, clientFrameBurst+5),
		limiter: rate.NewLimiter(rate.Limit(clientFrameRate), clientFrameBurst),
	}

	// Unknown frame type is the cheapest path through dispatchClientFrame:
	// it never touches h.stores, only exercises the rate limiter + default case.
	frame := protocol.Frame{Type: "bogus"}

	for i := 0; i < clientFrameBurst; i++ {
		h.dispatchClientFrame(context.Background(), c, frame)
	}
	// Burst exhausted; this call must be rejected by the limiter.
	h.dispatchClientFrame(context.Background(), c, frame)

	close(c.send)
	var errCount, limitedCount int
	for f := range c.send {
		if f.Type != protocol.TypeError {
			t.Fatalf("unexpected frame type %q", f.Type)
		}
		errCount++
		if p, ok := f.Payload.(protocol.ErrorPayload); ok && p.Error == "rate limit exceeded" {
			limitedCount++
		}
	}
	if errCount != clientFrameBurst+1 {
		t.Errorf("got %d error frames, want %d", errCount, clientFrameBurst+1)
	}
	if limitedCount != 1 {
		t.Errorf("got %d rate-limited frames, want exactly 1", limitedCount)
	}
}
