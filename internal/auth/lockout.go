package auth

import (
	"fmt"
	"time"

	"pingboard/internal/localstore"
	"pingboard/internal/models"
)

// Lockout policy. Administrators get more headroom before locking because a
// locked-out admin has nobody left to unlock them.
const (
	MaxAttemptsAdmin = 10
	MaxAttemptsUser  = 3
	LockoutWindow    = 15 * time.Minute
)

// AttemptRecord tracks failed logins for one username. Timestamp is
// milliseconds since epoch, matching the legacy persisted format.
type AttemptRecord struct {
	Count     int   `json:"count"`
	Timestamp int64 `json:"timestamp"`
}

// LockResult is the outcome of a lockout check.
type LockResult struct {
	Locked           bool
	RemainingMinutes int
}

// LockedAccount is one row of the admin "locked accounts" view.
type LockedAccount struct {
	Username         string      `json:"username"`
	Role             models.Role `json:"role"`
	Attempts         int         `json:"attempts"`
	LockedAt         time.Time   `json:"lockedAt"`
	RemainingMinutes int         `json:"remainingMinutes"`
}

// AttemptTracker records failed logins per username and decides when an
// account is locked. Records live in the local store under the legacy
// "loginAttempts" key; expiry is lazy, detected on the next check rather
// than by a background sweep.
type AttemptTracker struct {
	store *localstore.Store
	creds *CredentialStore

	now func() time.Time
}

// NewAttemptTracker creates a tracker backed by the given store. The
// credential store is consulted for each user's role when computing the
// attempt threshold.
func NewAttemptTracker(store *localstore.Store, creds *CredentialStore) *AttemptTracker {
	return &AttemptTracker{store: store, creds: creds, now: time.Now}
}

// RecordFailure increments the failure count for username and stamps it
// with the current time.
func (t *AttemptTracker) RecordFailure(username string) error {
	records := t.all()
	rec := records[username]
	rec.Count++
	rec.Timestamp = t.now().UnixMilli()
	records[username] = rec
	return t.save(records)
}

// RecordSuccess clears any failure record for username.
func (t *AttemptTracker) RecordSuccess(username string) error {
	return t.Unlock(username)
}

// Unlock removes the failure record for username unconditionally.
func (t *AttemptTracker) Unlock(username string) error {
	records := t.all()
	if _, ok := records[username]; !ok {
		return nil
	}
	delete(records, username)
	return t.save(records)
}

// IsLocked reports whether username is currently locked out. A record whose
// window has elapsed is cleared as a side effect and reported unlocked.
func (t *AttemptTracker) IsLocked(username string) LockResult {
	records := t.all()
	rec, ok := records[username]
	if !ok || rec.Count == 0 {
		return LockResult{}
	}

	if rec.Count < t.maxAttemptsFor(username) {
		return LockResult{}
	}

	elapsed := t.now().Sub(time.UnixMilli(rec.Timestamp))
	if elapsed >= LockoutWindow {
		delete(records, username)
		t.save(records)
		return LockResult{}
	}

	return LockResult{
		Locked:           true,
		RemainingMinutes: remainingMinutes(elapsed),
	}
}

// ListLocked returns a snapshot of every account currently locked out.
func (t *AttemptTracker) ListLocked() []LockedAccount {
	var locked []LockedAccount
	for username, rec := range t.all() {
		res := t.IsLocked(username)
		if !res.Locked {
			continue
		}
		locked = append(locked, LockedAccount{
			Username:         username,
			Role:             t.roleFor(username),
			Attempts:         rec.Count,
			LockedAt:         time.UnixMilli(rec.Timestamp),
			RemainingMinutes: res.RemainingMinutes,
		})
	}
	return locked
}

// Attempts returns the raw failure records, keyed by username.
func (t *AttemptTracker) Attempts() map[string]AttemptRecord {
	return t.all()
}

func (t *AttemptTracker) maxAttemptsFor(username string) int {
	if t.roleFor(username) == models.RoleAdmin {
		return MaxAttemptsAdmin
	}
	return MaxAttemptsUser
}

// roleFor defaults unknown usernames to the stricter non-admin threshold.
func (t *AttemptTracker) roleFor(username string) models.Role {
	user, err := t.creds.FindByUsername(username)
	if err != nil {
		return models.RoleUser
	}
	return user.Role
}

func (t *AttemptTracker) all() map[string]AttemptRecord {
	records := make(map[string]AttemptRecord)
	t.store.GetJSON(localstore.KeyLoginAttempts, &records)
	return records
}

func (t *AttemptTracker) save(records map[string]AttemptRecord) error {
	if err := t.store.PutJSON(localstore.KeyLoginAttempts, records); err != nil {
		return fmt.Errorf("save login attempts: %w", err)
	}
	return nil
}

func remainingMinutes(elapsed time.Duration) int {
	remaining := LockoutWindow - elapsed
	mins := int((remaining + time.Minute - 1) / time.Minute)
	if mins < 1 {
		mins = 1
	}
	return mins
}
