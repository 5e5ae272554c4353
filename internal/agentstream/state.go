// Package agentstream runs one LLM turn per conversation: spawning the
// agent child process, parsing its stdout line by line, dispatching
// tool_use blocks through internal/tooling, and persisting the result.
// State for an in-flight turn is kept in a StreamState so a late
// WebSocket subscriber can replay everything emitted so far.
package agentstream

import (
	"encoding/json"
	"sync"
	"time"
)

// activeTool tracks one tool_use block the child has started but not
// yet completed, for replay and for the final Complete event's tools_used list.
type activeTool struct {
	Name      string
	StartedAt time.Time
}

// StreamState is the live state of one turn. progressEvents accumulates
// every server-bound protocol frame in emission order so a connection
// that subscribes mid-turn can be replayed to the current point before
// joining the live feed.
type StreamState struct {
	MessageID      string
	ConversationID string
	StartedAt      time.Time

	mu             sync.Mutex
	progressEvents []json.RawMessage
	partialContent string
	activeTools    map[string]activeTool
	toolsUsed      []string
	done           bool
}

func newStreamState(messageID, conversationID string) *StreamState {
	return &StreamState{
		MessageID:      messageID,
		ConversationID: conversationID,
		StartedAt:      time.Now(),
		activeTools:    make(map[string]activeTool),
	}
}

// append records a frame in the replay log.
func (s *StreamState) append(frame json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progressEvents = append(s.progressEvents, frame)
}

// Replay returns a copy of every frame emitted so far, in order.
func (s *StreamState) Replay() []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]json.RawMessage, len(s.progressEvents))
	copy(out, s.progressEvents)
	return out
}

func (s *StreamState) addContent(chunk string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partialContent += chunk
}

func (s *StreamState) PartialContent() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.partialContent
}

func (s *StreamState) startTool(toolUseID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeTools[toolUseID] = activeTool{Name: name, StartedAt: time.Now()}
}

func (s *StreamState) finishTool(toolUseID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.activeTools[toolUseID]; ok {
		s.toolsUsed = append(s.toolsUsed, t.Name)
		delete(s.activeTools, toolUseID)
	}
}

func (s *StreamState) ToolsUsed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.toolsUsed))
	copy(out, s.toolsUsed)
	return out
}

func (s *StreamState) markDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
}

// Registry is the process-wide map of conversation_id -> in-flight
// StreamState, mirroring the concurrency model's "active stream map":
// mutated under a write lock for add/remove, read under a read lock,
// with the StreamState carrying its own inner lock for progress_events.
type Registry struct {
	mu      sync.RWMutex
	streams map[string]*StreamState
}

func NewRegistry() *Registry {
	return &Registry{streams: make(map[string]*StreamState)}
}

func (r *Registry) start(conversationID, messageID string) *StreamState {
	s := newStreamState(messageID, conversationID)
	r.mu.Lock()
	r.streams[conversationID] = s
	r.mu.Unlock()
	return s
}

// Get returns the live StreamState for a conversation, if a turn is in flight.
func (r *Registry) Get(conversationID string) (*StreamState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.streams[conversationID]
	return s, ok
}

func (r *Registry) remove(conversationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.streams, conversationID)
}
