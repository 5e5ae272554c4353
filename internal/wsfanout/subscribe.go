package wsfanout

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/rizrmd/claystudio/pkg/protocol"
)

// newConversationSentinel is what clients send when starting a
// conversation that doesn't exist yet; it's accepted without an
// existence check, per handleSubscribe's contract.
const newConversationSentinel = "new"

// handleSubscribe verifies the connection is authenticated, resolves
// project/conversation, and replays history plus any in-flight turn.
// Re-subscribing to the same (project, conversation) is a no-op that
// still returns Subscribed so clients can reset local state.
func (h *Hub) handleSubscribe(ctx context.Context, c *connection, p protocol.SubscribePayload) {
	c.mu.Lock()
	already := c.projectID == p.ProjectID && c.conversationID == p.ConversationID
	c.mu.Unlock()

	// Snapshot any in-flight turn's events before attaching c to live
	// broadcast. Snapshotting after attach would let an event emitted in
	// the gap land in both the snapshot and a live broadcast to c.
	var replay []json.RawMessage
	if p.ConversationID != "" && p.ConversationID != newConversationSentinel {
		if stream, ok := h.engine.StreamState(p.ConversationID); ok {
			replay = stream.Replay()
		}
	}

	if !already {
		h.attach(c, p.ProjectID, p.ConversationID)
		h.warmUpProject(p.ProjectID)
	}

	if p.ConversationID != "" && p.ConversationID != newConversationSentinel {
		if _, err := h.stores.Conversations.Get(ctx, p.ConversationID); err != nil {
			c.send <- protocol.Frame{Type: protocol.TypeConversationRedirect, Payload: protocol.ConversationRedirectPayload{
				OldConversationID: p.ConversationID,
				NewConversationID: newConversationSentinel,
			}}
			return
		}
	}

	c.send <- protocol.Frame{Type: protocol.TypeSubscribed, Payload: protocol.SubscribedPayload{
		ProjectID: p.ProjectID, ConversationID: p.ConversationID,
	}}

	if p.ConversationID != "" && p.ConversationID != newConversationSentinel {
		h.sendConversationHistory(ctx, c, p.ConversationID)
		replayFrames(c, replay)
	}
}

// attach moves c into the (project, conversation) subscriber set,
// detaching it from any prior conversation first.
func (h *Hub) attach(c *connection, projectID, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.mu.Lock()
	if c.conversationID != "" {
		h.detachFromConversation(c)
	}
	c.projectID = projectID
	c.conversationID = conversationID
	c.mu.Unlock()

	if conversationID == "" {
		return
	}
	set, ok := h.byConv[conversationID]
	if !ok {
		set = make(map[string]bool)
		h.byConv[conversationID] = set
	}
	set[c.id] = true
}

func (h *Hub) handleUnsubscribe(c *connection) {
	h.mu.Lock()
	c.mu.Lock()
	if c.conversationID != "" {
		h.detachFromConversation(c)
	}
	c.projectID = ""
	c.conversationID = ""
	c.mu.Unlock()
	h.mu.Unlock()
}

func (h *Hub) sendConversationHistory(ctx context.Context, c *connection, conversationID string) {
	msgs, err := h.stores.Messages.ListVisible(ctx, conversationID, 200)
	if err != nil {
		h.log.Warn("wsfanout: load conversation history failed", "conversation_id", conversationID, "error", err)
		return
	}
	out := make([]any, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m)
	}
	c.send <- protocol.Frame{Type: protocol.TypeConversationMessages, Payload: protocol.ConversationMessagesPayload{
		ConversationID: conversationID, Messages: out,
	}}
}

// replayFrames sends a previously-taken event snapshot to c, in order.
func replayFrames(c *connection, frames []json.RawMessage) {
	for _, raw := range frames {
		var frame protocol.Frame
		if unmarshalFrame(raw, &frame) {
			c.send <- frame
		}
	}
}

// warmUpProject primes the datasource metadata cache and, if the
// project's compiled context is stale, recompiles it in the
// background — both triggered on every subscribe that changes the
// connection's project or conversation.
func (h *Hub) warmUpProject(projectID string) {
	if projectID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		proj, err := h.stores.Projects.Get(ctx, projectID)
		if err != nil {
			return
		}

		dss, err := h.stores.Datasources.ListByProject(ctx, projectID)
		if err == nil {
			for _, ds := range dss {
				if _, err := h.cache.Get(ctx, ds.ID, "", true); err != nil {
					h.log.Debug("wsfanout: warm-up cache miss", "datasource_id", ds.ID, "error", err)
				}
			}
		}

		if proj.ContextCompiledAt == nil || h.compiler.IsStale(*proj.ContextCompiledAt) {
			compiled, err := h.compiler.Compile(ctx, projectID, proj.Context)
			if err != nil {
				h.log.Warn("wsfanout: background context recompile failed", "project_id", projectID, "error", err)
				return
			}
			if err := h.stores.Projects.UpdateCompiledContext(ctx, projectID, compiled, time.Now()); err != nil {
				h.log.Warn("wsfanout: persist recompiled context failed", "project_id", projectID, "error", err)
			}
		}
	}()
}

func unmarshalFrame(raw []byte, out *protocol.Frame) bool {
	return json.Unmarshal(raw, out) == nil
}

// Logger exposes the hub's logger for callers (internal/httpapi) that
// want to log at the same level without threading a second logger through.
func (h *Hub) Logger() *slog.Logger { return h.log }
