package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rizrmd/claystudio/internal/model"
	"github.com/rizrmd/claystudio/internal/store"
)

// sessionCookieName is the cookie the browser client carries; query
// param fallback exists for non-browser clients that can't set cookies
// (matching Server.checkOrigin's non-browser allowance).
const (
	sessionCookieName = "claystudio_session"
	sessionQueryParam = "session"
)

// SessionAuthenticator resolves a session value — "<user_id>" today,
// opaque to this type — into an Identity by loading the User it names.
// The full session lifecycle (issuing, rotating, expiring the session
// value itself) is the out-of-scope collaborator SPEC_FULL.md names;
// this is the verification half TRD's Scope boundary depends on.
type SessionAuthenticator struct {
	users store.UserStore
}

func NewSessionAuthenticator(stores *store.Stores) *SessionAuthenticator {
	return &SessionAuthenticator{users: stores.Users}
}

func (a *SessionAuthenticator) Authenticate(ctx context.Context, r *http.Request) (Identity, error) {
	userID := sessionValue(r)
	if userID == "" {
		return Identity{}, fmt.Errorf("no session presented")
	}

	user, err := a.users.Get(ctx, userID)
	if err != nil {
		return Identity{}, fmt.Errorf("resolve session: %w", err)
	}

	return Identity{
		UserID:   user.ID,
		ClientID: user.ClientID,
		IsRoot:   user.Role == model.UserRoleRoot,
	}, nil
}

func sessionValue(r *http.Request) string {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return r.URL.Query().Get(sessionQueryParam)
}
