package agentstream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/rizrmd/claystudio/internal/config"
	"github.com/rizrmd/claystudio/internal/model"
	"github.com/rizrmd/claystudio/internal/store"
	"github.com/rizrmd/claystudio/internal/tooling"
	"github.com/rizrmd/claystudio/pkg/protocol"
)

// Broadcaster is the WebSocket Fan-Out collaborator: the engine emits
// every protocol frame through it, and it is the only thing that
// touches live connections. Keeping this as an interface (rather than
// importing internal/wsfanout directly) avoids a cycle, since wsfanout
// reads StreamState back from the engine's Registry for replay.
type Broadcaster interface {
	BroadcastToConversation(conversationID string, frame protocol.Frame)
}

// Engine runs turns: one call to StartTurn spawns a child process,
// streams its stdout, dispatches any tool_use blocks through TRD, and
// persists the result when the child exits.
type Engine struct {
	cfg        config.AgentConfig
	stores     *store.Stores
	dispatcher *tooling.Dispatcher
	registry   *tooling.Registry
	streams    *Registry
	bus        Broadcaster
	log        *slog.Logger

	turnTimeout     time.Duration
	cancelGrace     time.Duration
	replayGrace     time.Duration

	mu      sync.Mutex
	cancels map[string]context.CancelFunc // conversation_id -> current turn's cancel
}

func NewEngine(cfg config.AgentConfig, stores *store.Stores, dispatcher *tooling.Dispatcher, registry *tooling.Registry, streams *Registry, bus Broadcaster, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		cfg: cfg, stores: stores, dispatcher: dispatcher, registry: registry,
		streams: streams, bus: bus, log: log,
		cancels: make(map[string]context.CancelFunc),
	}
	e.turnTimeout = parseDurationOr(cfg.TurnTimeout, 5*time.Minute)
	e.cancelGrace = parseDurationOr(cfg.CancelGraceTime, 5*time.Second)
	e.replayGrace = parseDurationOr(cfg.ReplayGrace, 30*time.Second)
	return e
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return fallback
}

// StreamState exposes the registry for WSF's replay-on-subscribe path.
func (e *Engine) StreamState(conversationID string) (*StreamState, bool) {
	return e.streams.Get(conversationID)
}

// SetBroadcaster replaces the engine's Broadcaster after construction.
// wsfanout.Hub needs a *Engine to build, and Engine needs a Broadcaster
// the Hub implements — callers construct the engine with a nil bus,
// build the Hub, then call this once before serving traffic.
func (e *Engine) SetBroadcaster(bus Broadcaster) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bus = bus
}

// StartTurn begins a new turn for conversationID. A turn in progress for
// the same conversation is cancelled first: turn boundaries are
// serialized per conversation. Runs asynchronously; callers observe
// progress exclusively through the Broadcaster.
func (e *Engine) StartTurn(parent context.Context, scope tooling.Scope, client *model.Client, conversationID, content string, fileIDs []string) error {
	e.Cancel(conversationID)

	userMsg := &model.Message{
		ConversationID: conversationID,
		Role:           model.RoleUser,
		Content:        content,
	}
	for _, id := range fileIDs {
		userMsg.FileAttachments = append(userMsg.FileAttachments, model.FileAttachment{FileID: id})
	}
	if err := e.stores.Messages.Create(parent, userMsg); err != nil {
		return fmt.Errorf("agentstream: persist user message: %w", err)
	}

	messageID := uuid.NewString()
	// The assistant message row is created empty here, before any tool
	// dispatches, so WriteParameters' tool_usages rows always have a real
	// message_id to reference; persistAndComplete fills in its content.
	assistantMsg := &model.Message{ID: messageID, ConversationID: conversationID, Role: model.RoleAssistant}
	if err := e.stores.Messages.Create(parent, assistantMsg); err != nil {
		return fmt.Errorf("agentstream: persist assistant message: %w", err)
	}

	stream := e.streams.start(conversationID, messageID)

	ctx, cancel := context.WithTimeout(context.Background(), e.turnTimeout)
	e.mu.Lock()
	e.cancels[conversationID] = cancel
	e.mu.Unlock()

	go e.runTurn(ctx, cancel, tooling.WithScope(ctx, scope), scope, client, conversationID, messageID, content, fileIDs, stream)
	return nil
}

// Cancel SIGTERMs the running child for conversationID, if any, and lets
// runTurn persist the partial message with a cancelled marker.
func (e *Engine) Cancel(conversationID string) {
	e.mu.Lock()
	cancel, ok := e.cancels[conversationID]
	e.mu.Unlock()
	if ok {
		cancel()
	}
}

func (e *Engine) clearCancel(conversationID string) {
	e.mu.Lock()
	delete(e.cancels, conversationID)
	e.mu.Unlock()
}

func (e *Engine) emit(conversationID string, frame protocol.Frame, stream *StreamState) {
	raw, err := json.Marshal(frame)
	if err == nil {
		stream.append(raw)
	}
	e.bus.BroadcastToConversation(conversationID, frame)
}

func (e *Engine) runTurn(ctx context.Context, cancel context.CancelFunc, scopedCtx context.Context, scope tooling.Scope, client *model.Client, conversationID, messageID, content string, fileIDs []string, stream *StreamState) {
	defer cancel()
	defer e.clearCancel(conversationID)
	start := time.Now()

	e.emit(conversationID, protocol.Frame{Type: protocol.TypeStart, Payload: protocol.StartPayload{ID: messageID, ConversationID: conversationID}}, stream)

	req, err := composePrompt(ctx, e.stores, e.registry, scope.ProjectID, conversationID, content, fileIDs)
	if err != nil {
		e.fail(conversationID, stream, err.Error())
		return
	}

	cmd := exec.CommandContext(ctx, e.cfg.CLIPath)
	cmd.Env = append(cmd.Env, "CLAYSTUDIO_LLM_TOKEN="+client.LLMToken)
	// On ctx cancellation, SIGTERM first and give the child cancelGrace
	// to exit cleanly; WaitDelay escalates to SIGKILL past that window.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = e.cancelGrace

	stdin, err := cmd.StdinPipe()
	if err != nil {
		e.fail(conversationID, stream, "spawn turn: "+err.Error())
		return
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		e.fail(conversationID, stream, "spawn turn: "+err.Error())
		return
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		e.fail(conversationID, stream, "spawn turn: "+err.Error())
		return
	}

	enc := json.NewEncoder(stdin)
	if err := enc.Encode(req); err != nil {
		e.fail(conversationID, stream, "write turn request: "+err.Error())
		return
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var finalContent string
	cancelled := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var line2 childLine
		if err := json.Unmarshal([]byte(line), &line2); err != nil {
			e.log.Warn("agentstream: unparsable child line", "conversation_id", conversationID, "error", err)
			continue
		}
		switch line2.Type {
		case "assistant_message":
			for _, block := range line2.Content {
				switch block.Type {
				case "text":
					finalContent += block.Text
					e.emit(conversationID, protocol.Frame{Type: protocol.TypeProgress, Payload: protocol.ProgressPayload{ConversationID: conversationID, Content: block.Text}}, stream)
					stream.addContent(block.Text)
				case "tool_use":
					e.handleToolUse(scopedCtx, conversationID, messageID, stream, stdin, tooling.ToolUse{Name: block.Name, Input: block.Input, ID: block.ID})
				}
			}
		case "tool_call", "tool_execution":
			e.handleToolUse(scopedCtx, conversationID, messageID, stream, stdin, tooling.ToolUse{Name: line2.Name, Input: line2.Input, ID: line2.ID})
		case "result":
			finalContent = line2.resultText()
		}
	}

	waitErr := cmd.Wait()
	if ctx.Err() == context.Canceled || ctx.Err() == context.DeadlineExceeded {
		cancelled = true
	}

	if waitErr != nil && !cancelled {
		tail := lastLines(stderr.String(), 40)
		e.fail(conversationID, stream, tail)
		return
	}

	e.persistAndComplete(ctx, conversationID, messageID, finalContent, stream, start, cancelled)
}

func (e *Engine) handleToolUse(ctx context.Context, conversationID, messageID string, stream *StreamState, stdin io.Writer, use tooling.ToolUse) {
	stream.startTool(use.ID, use.Name)
	e.emit(conversationID, protocol.Frame{Type: protocol.TypeToolUse, Payload: protocol.ToolUsePayload{ConversationID: conversationID, Tool: use.Name, ToolUsageID: use.ID}}, stream)

	result := e.dispatcher.Dispatch(ctx, messageID, use)
	stream.finishTool(use.ID)

	e.emit(conversationID, protocol.Frame{Type: protocol.TypeToolComplete, Payload: protocol.ToolCompletePayload{
		ConversationID:  conversationID,
		Tool:            result.ToolName,
		ToolUsageID:     result.ToolUseID,
		ExecutionTimeMs: result.ExecutionTimeMs,
		Output:          result.Output,
	}}, stream)

	line := toolResultLine{ID: use.ID}
	if result.IsError {
		line.Error = result.Output
	} else {
		encoded, err := json.Marshal(result.Output)
		if err != nil {
			encoded = []byte(`""`)
		}
		line.Result = encoded
	}
	resp, _ := json.Marshal(line)
	_, _ = stdin.Write(append(resp, '\n'))
}

func (e *Engine) fail(conversationID string, stream *StreamState, errMsg string) {
	e.emit(conversationID, protocol.Frame{Type: protocol.TypeError, Payload: protocol.ErrorPayload{Error: errMsg}}, stream)
	stream.markDone()
	time.AfterFunc(e.replayGrace, func() { e.streams.remove(conversationID) })
}

func (e *Engine) persistAndComplete(ctx context.Context, conversationID, messageID, content string, stream *StreamState, start time.Time, cancelled bool) {
	elapsed := time.Since(start).Milliseconds()
	if cancelled {
		content = strings.TrimRight(content, " \n") + "\n\n[cancelled]"
	}

	if err := e.stores.Messages.UpdateContent(ctx, messageID, content, elapsed); err != nil {
		e.log.Error("agentstream: update assistant message failed", "conversation_id", conversationID, "error", err)
	}
	if err := e.stores.Conversations.Touch(ctx, conversationID, time.Now()); err != nil {
		e.log.Error("agentstream: touch conversation failed", "conversation_id", conversationID, "error", err)
	}

	names := stream.ToolsUsed()

	e.emit(conversationID, protocol.Frame{Type: protocol.TypeContent, Payload: protocol.ContentPayload{ConversationID: conversationID, Content: content}}, stream)
	e.emit(conversationID, protocol.Frame{Type: protocol.TypeComplete, Payload: protocol.CompletePayload{ID: messageID, ProcessingTimeMs: elapsed, ToolsUsed: names}}, stream)

	stream.markDone()
	time.AfterFunc(e.replayGrace, func() { e.streams.remove(conversationID) })
}

// childLine is the union of every JSON line shape the agent child can
// write to stdout: an assistant message with content blocks, a
// standalone tool invocation, or the final authoritative result.
type childLine struct {
	Type    string             `json:"type"`
	Content []childContentBlock `json:"content,omitempty"`
	Result  json.RawMessage    `json:"result,omitempty"`
	ID      string             `json:"id,omitempty"`
	Name    string             `json:"name,omitempty"`
	Input   json.RawMessage    `json:"input,omitempty"`
}

func (c childLine) resultText() string {
	if len(c.Result) > 0 {
		var s string
		if json.Unmarshal(c.Result, &s) == nil {
			return s
		}
		return string(c.Result)
	}
	var out string
	for _, b := range c.Content {
		if b.Type == "text" {
			out += b.Text
		}
	}
	return out
}

type childContentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type toolResultLine struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
