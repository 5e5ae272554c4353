// Package wsfanout is the process-wide WebSocket connection registry:
// subscribe/unsubscribe/replay/broadcast, mirroring the teacher
// gateway's clients map and BroadcastEvent/registerClient/unregisterClient
// trio, generalized from a single bot-event bus to per-conversation
// subscription with live-turn replay.
package wsfanout

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/rizrmd/claystudio/internal/agentstream"
	"github.com/rizrmd/claystudio/internal/dmcache"
	"github.com/rizrmd/claystudio/internal/store"
	"github.com/rizrmd/claystudio/internal/tooling"
	"github.com/rizrmd/claystudio/pkg/protocol"
)

// clientFrameRate/clientFrameBurst bound how fast one connection can
// push client frames, generalizing the teacher's per-key webhook
// counter (internal/channels/ratelimit.go) to per-connection frame
// dispatch with a token-bucket instead of a hand-rolled sliding window.
const (
	clientFrameRate  = 5 // frames/sec
	clientFrameBurst = 20
)

// connection is one subscriber: a user_id, a sender it never blocks
// on (bounded, drop-on-full), and the project/conversation it currently
// watches. Subscription is by connection_id, not user_id, so the same
// user can hold multiple tabs.
type connection struct {
	id             string
	userID         string
	clientID       string
	isRoot         bool
	send           chan protocol.Frame
	limiter        *rate.Limiter
	mu             sync.Mutex
	projectID      string
	conversationID string
}

// Hub is the process-wide registry. Reads take the read lock; add/
// remove/subscribe take the write lock; broadcasts copy the subscriber
// list out of the lock before sending so producers never block on a
// slow subscriber.
type Hub struct {
	stores       *store.Stores
	cache        *dmcache.Cache
	compiler     compiler
	engine       *agentstream.Engine
	interactions *interactionBroker
	log          *slog.Logger

	mu          sync.RWMutex
	connections map[string]*connection
	byConv      map[string]map[string]bool // conversation_id -> set of connection_id
}

// compiler is the context-recompile collaborator; satisfied by
// *contextdoc.Compiler, narrowed here so wsfanout doesn't need the
// concrete DatasourceSummarizer dependency to build one.
type compiler interface {
	IsStale(compiledAt time.Time) bool
	Compile(ctx context.Context, projectID, raw string) (string, error)
}

func NewHub(stores *store.Stores, cache *dmcache.Cache, comp compiler, engine *agentstream.Engine, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		stores: stores, cache: cache, compiler: comp, engine: engine, log: log,
		interactions: newInteractionBroker(),
		connections:  make(map[string]*connection),
		byConv:       make(map[string]map[string]bool),
	}
}

// BroadcastToConversation implements agentstream.Broadcaster.
func (h *Hub) BroadcastToConversation(conversationID string, frame protocol.Frame) {
	h.mu.RLock()
	ids := h.byConv[conversationID]
	targets := make([]*connection, 0, len(ids))
	for id := range ids {
		if c, ok := h.connections[id]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- frame:
		default:
			h.log.Warn("wsfanout: dropping slow subscriber", "connection_id", c.id, "conversation_id", conversationID)
			h.removeConnection(c.id)
		}
	}
}

// addConnection registers a new connection and returns it; the
// per-connection write pump drains its outbound channel.
func (h *Hub) addConnection(userID, clientID string, isRoot bool) *connection {
	c := &connection{
		id:       uuid.NewString(),
		userID:   userID,
		clientID: clientID,
		isRoot:   isRoot,
		send:     make(chan protocol.Frame, 64),
		limiter:  rate.NewLimiter(rate.Limit(clientFrameRate), clientFrameBurst),
	}
	h.mu.Lock()
	h.connections[c.id] = c
	h.mu.Unlock()
	return c
}

func (h *Hub) removeConnection(id string) {
	h.mu.Lock()
	c, ok := h.connections[id]
	if ok {
		delete(h.connections, id)
		if c.conversationID != "" {
			h.detachFromConversation(c)
		}
	}
	h.mu.Unlock()
}

// detachFromConversation removes c from byConv; caller holds h.mu.
func (h *Hub) detachFromConversation(c *connection) {
	set := h.byConv[c.conversationID]
	delete(set, c.id)
	if len(set) == 0 {
		delete(h.byConv, c.conversationID)
	}
}

func (h *Hub) scopeFor(c *connection) tooling.Scope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return tooling.Scope{
		ClientID:       c.clientID,
		ProjectID:      c.projectID,
		ConversationID: c.conversationID,
		RequesterID:    c.userID,
		IsRoot:         c.isRoot,
	}
}
