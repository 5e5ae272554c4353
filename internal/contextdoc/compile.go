// Package contextdoc compiles a Project's markdown context (which may
// embed directives like {{datasource:name}} resolved to a live schema
// summary) into the plain text actually sent to the LLM child, cached
// for up to 5 minutes and invalidated on every raw-context write.
package contextdoc

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/yuin/goldmark"

	"github.com/rizrmd/claystudio/internal/model"
)

// DatasourceSummarizer resolves a {{datasource:name}} token to a short
// schema summary. Implemented by whatever has DPM/DMC access; kept as an
// interface so contextdoc never imports dspool directly.
type DatasourceSummarizer func(ctx context.Context, projectID, datasourceName string) (string, error)

var directivePattern = regexp.MustCompile(`\{\{\s*datasource:([a-zA-Z0-9_\-]+)\s*\}\}`)

// Compiler walks the markdown AST (via goldmark, purely to validate the
// document parses before token expansion) and substitutes embedded
// directives with server-resolved content.
type Compiler struct {
	md        goldmark.Markdown
	summarize DatasourceSummarizer
	ttl       time.Duration
}

func New(summarize DatasourceSummarizer, ttl time.Duration) *Compiler {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Compiler{md: goldmark.New(), summarize: summarize, ttl: ttl}
}

func (c *Compiler) TTL() time.Duration { return c.ttl }

// Compile validates raw as markdown and expands every {{datasource:x}}
// directive in place. Directive resolution failures degrade to an
// inline error marker rather than aborting the whole compile — a typo'd
// datasource name shouldn't take down the entire compiled context.
func (c *Compiler) Compile(ctx context.Context, projectID, raw string) (string, error) {
	var discard bytes.Buffer
	if err := c.md.Convert([]byte(raw), &discard); err != nil {
		return "", model.Wrap(model.ErrInternal, "parse context markdown", err)
	}

	out := directivePattern.ReplaceAllStringFunc(raw, func(match string) string {
		sub := directivePattern.FindStringSubmatch(match)
		name := sub[1]
		summary, err := c.summarize(ctx, projectID, name)
		if err != nil {
			return fmt.Sprintf("[datasource %q unavailable: %v]", name, err)
		}
		return summary
	})
	return out, nil
}

// IsStale reports whether a context_compiled_at timestamp is older than
// the compiler's TTL (or unset).
func (c *Compiler) IsStale(compiledAt time.Time) bool {
	if compiledAt.IsZero() {
		return true
	}
	return time.Since(compiledAt) > c.ttl
}
