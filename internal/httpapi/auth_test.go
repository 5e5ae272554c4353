package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rizrmd/claystudio/internal/model"
)

type fakeUserStore struct {
	byID map[string]*model.User
}

func (f *fakeUserStore) Get(ctx context.Context, id string) (*model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, model.NewError(model.ErrNotFound, "user not found")
	}
	return u, nil
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, clientID, email string) (*model.User, error) {
	return nil, model.NewError(model.ErrNotFound, "user not found")
}

func TestSessionValue_CookiePreferredOverQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws?session=query-user", nil)
	r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "cookie-user"})

	if got := sessionValue(r); got != "cookie-user" {
		t.Errorf("sessionValue = %q, want cookie-user", got)
	}
}

func TestSessionValue_FallsBackToQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws?session=query-user", nil)
	if got := sessionValue(r); got != "query-user" {
		t.Errorf("sessionValue = %q, want query-user", got)
	}
}

func TestSessionValue_None(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if got := sessionValue(r); got != "" {
		t.Errorf("sessionValue = %q, want empty", got)
	}
}

func TestSessionAuthenticator_Authenticate(t *testing.T) {
	store := &fakeUserStore{byID: map[string]*model.User{
		"u1": {ID: "u1", ClientID: "c1", Role: model.UserRoleRoot},
		"u2": {ID: "u2", ClientID: "c1", Role: model.UserRoleUser},
	}}
	auth := &SessionAuthenticator{users: store}

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "u1"})

	id, err := auth.Authenticate(context.Background(), r)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if id.UserID != "u1" || id.ClientID != "c1" || !id.IsRoot {
		t.Errorf("Identity = %+v, want root identity for u1", id)
	}

	r2 := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r2.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "u2"})
	id2, err := auth.Authenticate(context.Background(), r2)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if id2.IsRoot {
		t.Error("expected non-root identity for u2")
	}
}

func TestSessionAuthenticator_NoSession(t *testing.T) {
	auth := &SessionAuthenticator{users: &fakeUserStore{byID: map[string]*model.User{}}}
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)

	if _, err := auth.Authenticate(context.Background(), r); err == nil {
		t.Error("expected error when no session presented")
	}
}

func TestSessionAuthenticator_UnknownUser(t *testing.T) {
	auth := &SessionAuthenticator{users: &fakeUserStore{byID: map[string]*model.User{}}}
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "ghost"})

	if _, err := auth.Authenticate(context.Background(), r); err == nil {
		t.Error("expected error for unknown user id")
	}
}
