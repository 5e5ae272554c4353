package wsfanout

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rizrmd/claystudio/internal/model"
	"github.com/rizrmd/claystudio/pkg/protocol"
)

func newConversation(projectID string) *model.Conversation {
	return &model.Conversation{ID: uuid.NewString(), ProjectID: projectID}
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Upgrade promotes r to a WebSocket connection, registers it, and runs
// its read/write pumps until the socket closes. userID/clientID/isRoot
// come from the Authenticator the caller (internal/httpapi) resolved.
func (h *Hub) Upgrade(w http.ResponseWriter, r *http.Request, upgrader websocket.Upgrader, userID, clientID string, isRoot bool) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := h.addConnection(userID, clientID, isRoot)
	defer h.removeConnection(c.id)

	go h.writePump(conn, c)
	h.readPump(r.Context(), conn, c)
	return nil
}

func (h *Hub) writePump(conn *websocket.Conn, c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readPump(ctx context.Context, conn *websocket.Conn, c *connection) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame protocol.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.log.Warn("wsfanout: malformed client frame", "connection_id", c.id, "error", err)
			continue
		}
		h.dispatchClientFrame(ctx, c, frame)
	}
}

func (h *Hub) dispatchClientFrame(ctx context.Context, c *connection, frame protocol.Frame) {
	if !c.limiter.Allow() {
		c.send <- protocol.Frame{Type: protocol.TypeError, Payload: protocol.ErrorPayload{Error: "rate limit exceeded"}}
		return
	}

	payload, _ := json.Marshal(frame.Payload)

	switch frame.Type {
	case protocol.TypeSubscribe:
		var p protocol.SubscribePayload
		if json.Unmarshal(payload, &p) == nil {
			h.handleSubscribe(ctx, c, p)
		}
	case protocol.TypeUnsubscribe:
		h.handleUnsubscribe(c)
	case protocol.TypeSendMessage:
		var p protocol.SendMessagePayload
		if json.Unmarshal(payload, &p) == nil {
			h.handleSendMessage(ctx, c, p)
		}
	case protocol.TypeCancel:
		var p protocol.CancelPayload
		if json.Unmarshal(payload, &p) == nil {
			h.engine.Cancel(p.ConversationID)
		}
	case protocol.TypeAskUserResponse:
		var p protocol.AskUserResponsePayload
		if json.Unmarshal(payload, &p) == nil {
			h.interactions.respond(p.InteractionID, p.Response)
		}
	default:
		c.send <- protocol.Frame{Type: protocol.TypeError, Payload: protocol.ErrorPayload{Error: "unknown frame type: " + frame.Type}}
	}
}

func (h *Hub) handleSendMessage(ctx context.Context, c *connection, p protocol.SendMessagePayload) {
	client, err := h.stores.Clients.Get(ctx, c.clientID)
	if err != nil {
		c.send <- protocol.Frame{Type: protocol.TypeError, Payload: protocol.ErrorPayload{Error: "client not found"}}
		return
	}

	conversationID := p.ConversationID
	if conversationID == "" || conversationID == newConversationSentinel {
		conv := newConversation(p.ProjectID)
		if err := h.stores.Conversations.Create(ctx, conv); err != nil {
			c.send <- protocol.Frame{Type: protocol.TypeError, Payload: protocol.ErrorPayload{Error: "create conversation: " + err.Error()}}
			return
		}
		c.send <- protocol.Frame{Type: protocol.TypeConversationRedirect, Payload: protocol.ConversationRedirectPayload{
			OldConversationID: p.ConversationID, NewConversationID: conv.ID,
		}}
		h.attach(c, p.ProjectID, conv.ID)
		conversationID = conv.ID
	}

	scope := h.scopeFor(c)
	scope.ConversationID = conversationID
	if err := h.engine.StartTurn(ctx, scope, client, conversationID, p.Content, p.FileIDs); err != nil {
		c.send <- protocol.Frame{Type: protocol.TypeError, Payload: protocol.ErrorPayload{Error: err.Error()}}
	}
}
