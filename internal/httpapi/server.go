// Package httpapi is the thin HTTP surface named in the external
// interfaces: the WebSocket upgrade endpoint and a health check. It
// intentionally does not carry the broader REST CRUD surface the
// teacher's gateway exposed — that collaborator is out of scope here.
package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rizrmd/claystudio/internal/config"
	"github.com/rizrmd/claystudio/internal/wsfanout"
	"github.com/rizrmd/claystudio/pkg/protocol"
)

// Identity is what Authenticator resolves a session into.
type Identity struct {
	UserID   string
	ClientID string
	IsRoot   bool
}

// Authenticator resolves a session cookie or query-param token into an
// Identity. The out-of-scope collaborator: this package depends only
// on the interface, never a concrete session store.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (Identity, error)
}

// Server mounts exactly /ws and /health, matching the teacher's
// gateway.Server.BuildMux shape narrowed to this spec's external
// interfaces.
type Server struct {
	cfg  config.GatewayConfig
	hub  *wsfanout.Hub
	auth Authenticator
	log  *slog.Logger

	upgrader websocket.Upgrader
	mux      *http.ServeMux
	http     *http.Server
}

func NewServer(cfg config.GatewayConfig, hub *wsfanout.Hub, auth Authenticator, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{cfg: cfg, hub: hub, auth: auth, log: log}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// checkOrigin validates the WS upgrade's Origin header against the
// configured allow-list. No config = allow all (dev mode); an empty
// Origin header (non-browser clients) is always allowed.
func (s *Server) checkOrigin(r *http.Request) bool {
	allowed := s.cfg.AllowedOrigins
	if len(allowed) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	s.log.Warn("httpapi: rejected websocket origin", "origin", origin)
	return false
}

func (s *Server) Mux() *http.ServeMux {
	if s.mux != nil {
		return s.mux
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	s.mux = mux
	return mux
}

func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.http = &http.Server{Addr: addr, Handler: s.Mux()}

	slog.Info("httpapi starting", "addr", addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.http.Shutdown(shutdownCtx)
	}()

	if err := s.http.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("httpapi: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok"}`)
}

// handleWebSocket resolves the session (cookie, then query-parameter
// fallback) through retryAuthenticate before upgrading; a failed
// resolution still upgrades so AuthenticationRequired can be delivered
// as a protocol frame, then closes.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	identity, err := s.retryAuthenticate(r)
	if err != nil {
		conn, upErr := s.upgrader.Upgrade(w, r, nil)
		if upErr != nil {
			return
		}
		_ = conn.WriteJSON(protocol.Frame{Type: protocol.TypeAuthenticationRequired, Payload: protocol.AuthenticationRequiredPayload{}})
		_ = conn.Close()
		return
	}

	if err := s.hub.Upgrade(w, r, s.upgrader, identity.UserID, identity.ClientID, identity.IsRoot); err != nil {
		s.log.Error("httpapi: websocket upgrade failed", "error", err)
	}
}

// retryAuthenticate tries the session cookie/query-param load 3 times
// with a 100ms backoff, per the spec's session-store retry contract.
func (s *Server) retryAuthenticate(r *http.Request) (Identity, error) {
	attempts := s.cfg.SessionRetries
	if attempts <= 0 {
		attempts = 3
	}
	backoff := time.Duration(s.cfg.SessionBackoffMs) * time.Millisecond
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		identity, err := s.auth.Authenticate(r.Context(), r)
		if err == nil {
			return identity, nil
		}
		lastErr = err
		if i < attempts-1 {
			time.Sleep(backoff)
		}
	}
	return Identity{}, lastErr
}
