// Package session tracks the client's authentication state: the auth flag
// cookie, the advisory session descriptor, the inactivity timeout and the
// periodic expiry check.
package session

import (
	"log"
	"sync"
	"time"

	"pingboard/internal/localstore"
	"pingboard/internal/models"
)

// State of the guard.
type State int

const (
	Anonymous State = iota
	Authenticated
)

// Canonical policy. The legacy flows disagreed on these values; every flow
// now uses this one set.
const (
	InactivityTimeout = 15 * time.Minute
	CheckInterval     = 2 * time.Minute
	RememberMeMaxAge  = 30 * 24 * time.Hour
)

// Reason explains why the guard dropped to Anonymous.
type Reason string

const (
	ReasonLogout     Reason = "logout"
	ReasonInactivity Reason = "inactivity"
	ReasonExpired    Reason = "expired"
)

// Guard is the session state machine. It owns the inactivity timer and the
// periodic expiry check; both force a transition to Anonymous. All methods
// are safe for concurrent use.
type Guard struct {
	mu sync.Mutex

	store    *localstore.Store
	state    State
	remember bool
	expires  time.Time // zero when session-scoped

	inactivity *time.Timer
	stopCheck  chan struct{}

	onLogout func(Reason)

	timeout  time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewGuard creates a guard in the Anonymous state.
func NewGuard(store *localstore.Store) *Guard {
	return &Guard{
		store:    store,
		timeout:  InactivityTimeout,
		interval: CheckInterval,
		now:      time.Now,
	}
}

// OnLogout registers a callback fired on every transition to Anonymous.
// Must be set before Establish.
func (g *Guard) OnLogout(fn func(Reason)) {
	g.mu.Lock()
	g.onLogout = fn
	g.mu.Unlock()
}

// Establish transitions Anonymous -> Authenticated: persists the session
// descriptor, arms the inactivity timer and starts the periodic check.
// With rememberMe the auth flag survives for RememberMeMaxAge, otherwise it
// is scoped to this process.
func (g *Guard) Establish(sess models.Session, rememberMe bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.store.PutJSON(localstore.KeyCurrentUser, sess); err != nil {
		return err
	}

	g.state = Authenticated
	g.remember = rememberMe
	if rememberMe {
		g.expires = g.now().Add(RememberMeMaxAge)
	} else {
		g.expires = time.Time{}
	}

	g.armInactivityLocked()
	g.startCheckLocked()

	log.Printf("🔓 Login: %s", sess.Username)
	return nil
}

// Logout transitions to Anonymous by operator request.
func (g *Guard) Logout() {
	g.drop(ReasonLogout)
}

// Activity resets the inactivity timer. Call it for every recognized user
// interaction. A no-op when Anonymous.
func (g *Guard) Activity() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != Authenticated {
		return
	}
	g.armInactivityLocked()
}

// State returns the current state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// IsAuthenticated reports whether the guard holds a live session.
func (g *Guard) IsAuthenticated() bool {
	return g.State() == Authenticated
}

// Current returns the persisted session descriptor, or nil when absent.
// The descriptor gates UI affordances only; it is not a trust boundary.
func (g *Guard) Current() *models.Session {
	var sess models.Session
	if !g.store.GetJSON(localstore.KeyCurrentUser, &sess) {
		return nil
	}
	return &sess
}

// Check verifies the auth flag has not expired, dropping the session when
// it has. Runs automatically every CheckInterval while Authenticated, and
// on demand when a protected view loads.
func (g *Guard) Check() bool {
	g.mu.Lock()
	expired := g.state == Authenticated && !g.expires.IsZero() && g.now().After(g.expires)
	authenticated := g.state == Authenticated
	g.mu.Unlock()

	if expired {
		g.drop(ReasonExpired)
		return false
	}
	return authenticated
}

// drop performs the Authenticated -> Anonymous transition. Timers are
// cancelled so a stale timer can never fire into a later session.
func (g *Guard) drop(reason Reason) {
	g.mu.Lock()
	if g.state != Authenticated {
		g.mu.Unlock()
		return
	}
	g.state = Anonymous
	g.expires = time.Time{}
	g.remember = false

	if g.inactivity != nil {
		g.inactivity.Stop()
		g.inactivity = nil
	}
	if g.stopCheck != nil {
		close(g.stopCheck)
		g.stopCheck = nil
	}

	var username string
	var sess models.Session
	if g.store.GetJSON(localstore.KeyCurrentUser, &sess) {
		username = sess.Username
	}
	g.store.Delete(localstore.KeyCurrentUser)
	fn := g.onLogout
	g.mu.Unlock()

	log.Printf("🔒 Logout (%s): %s", reason, username)
	if fn != nil {
		fn(reason)
	}
}

func (g *Guard) armInactivityLocked() {
	if g.inactivity != nil {
		g.inactivity.Stop()
	}
	g.inactivity = time.AfterFunc(g.timeout, func() {
		g.drop(ReasonInactivity)
	})
}

func (g *Guard) startCheckLocked() {
	if g.stopCheck != nil {
		close(g.stopCheck)
	}
	stop := make(chan struct{})
	g.stopCheck = stop

	go func() {
		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				g.Check()
			case <-stop:
				return
			}
		}
	}()
}
