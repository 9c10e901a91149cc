package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pingboard/internal/localstore"
	"pingboard/internal/models"
)

func setupGuard(t *testing.T) (*Guard, *localstore.Store) {
	t.Helper()
	store, err := localstore.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	g := NewGuard(store)
	t.Cleanup(g.Logout)
	return g, store
}

func testSession() models.Session {
	return models.Session{Username: "admin", Role: models.RoleAdmin, LastLogin: time.Now()}
}

func TestEstablish(t *testing.T) {
	g, _ := setupGuard(t)

	if g.IsAuthenticated() {
		t.Fatal("New guard should be Anonymous")
	}
	if err := g.Establish(testSession(), false); err != nil {
		t.Fatalf("Establish failed: %v", err)
	}
	if !g.IsAuthenticated() {
		t.Error("Guard not Authenticated after Establish")
	}

	sess := g.Current()
	if sess == nil || sess.Username != "admin" || sess.Role != models.RoleAdmin {
		t.Errorf("Unexpected descriptor: %+v", sess)
	}
}

func TestLogoutClearsDescriptor(t *testing.T) {
	g, store := setupGuard(t)
	g.Establish(testSession(), false)

	var reason Reason
	done := make(chan struct{})
	g.OnLogout(func(r Reason) { reason = r; close(done) })
	g.Logout()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("OnLogout callback never fired")
	}
	if reason != ReasonLogout {
		t.Errorf("Expected ReasonLogout, got %s", reason)
	}
	if g.IsAuthenticated() {
		t.Error("Guard still Authenticated after Logout")
	}
	if got := store.Get(localstore.KeyCurrentUser); got != "" {
		t.Errorf("Descriptor survived logout: %q", got)
	}
}

func TestInactivityTimeout(t *testing.T) {
	g, _ := setupGuard(t)
	g.timeout = 40 * time.Millisecond

	fired := make(chan Reason, 1)
	g.OnLogout(func(r Reason) { fired <- r })
	g.Establish(testSession(), false)

	// Activity keeps the session alive
	for i := 0; i < 3; i++ {
		time.Sleep(20 * time.Millisecond)
		g.Activity()
	}
	if !g.IsAuthenticated() {
		t.Fatal("Session dropped despite activity")
	}

	// No activity: the timer fires
	select {
	case r := <-fired:
		if r != ReasonInactivity {
			t.Errorf("Expected ReasonInactivity, got %s", r)
		}
	case <-time.After(time.Second):
		t.Fatal("Inactivity timer never fired")
	}
	if g.IsAuthenticated() {
		t.Error("Guard still Authenticated after inactivity")
	}
}

func TestCheckExpiresFlag(t *testing.T) {
	g, _ := setupGuard(t)
	g.Establish(testSession(), true)

	if !g.Check() {
		t.Fatal("Fresh remember-me session reported expired")
	}

	// Jump past the remember-me lifetime
	g.now = func() time.Time { return time.Now().Add(RememberMeMaxAge + time.Hour) }
	if g.Check() {
		t.Error("Expired flag passed Check")
	}
	if g.IsAuthenticated() {
		t.Error("Guard still Authenticated after expiry")
	}
}

func TestSessionScopedNeverExpiresByClock(t *testing.T) {
	g, _ := setupGuard(t)
	g.Establish(testSession(), false)

	g.now = func() time.Time { return time.Now().Add(365 * 24 * time.Hour) }
	if !g.Check() {
		t.Error("Session-scoped flag expired by clock")
	}
}

func TestLogoutCancelsStaleTimer(t *testing.T) {
	g, _ := setupGuard(t)
	g.timeout = 40 * time.Millisecond

	g.Establish(testSession(), false)
	g.Logout()
	// Fresh login: the first session's timer must not fire into it
	g.Establish(testSession(), false)

	deadline := time.Now().Add(60 * time.Millisecond)
	for time.Now().Before(deadline) {
		g.Activity()
		time.Sleep(10 * time.Millisecond)
	}
	if !g.IsAuthenticated() {
		t.Error("Stale timer from the previous session killed a fresh login")
	}
}

func TestCookie(t *testing.T) {
	g, _ := setupGuard(t)

	if g.Cookie() != nil {
		t.Error("Anonymous guard returned a cookie")
	}

	g.Establish(testSession(), false)
	c := g.Cookie()
	if c == nil || c.Name != CookieName || c.Value != CookieValue || c.Path != "/" {
		t.Fatalf("Unexpected cookie: %+v", c)
	}
	if !c.Expires.IsZero() {
		t.Error("Session-scoped cookie has an expiry")
	}

	g.Logout()
	g.Establish(testSession(), true)
	c = g.Cookie()
	if c.Expires.IsZero() || c.MaxAge <= 0 {
		t.Error("Remember-me cookie missing expiry")
	}
}

func TestHasAuthFlag(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/devices", nil)
	if HasAuthFlag(r) {
		t.Error("Bare request reported authenticated")
	}

	r.AddCookie(&http.Cookie{Name: CookieName, Value: CookieValue})
	if !HasAuthFlag(r) {
		t.Error("auth=true cookie not recognized")
	}
}
