package auth

import (
	"errors"
	"fmt"
	"time"

	"pingboard/internal/models"
)

// ErrInvalidCredentials is returned for both unknown usernames and wrong
// passwords so callers cannot be used to enumerate accounts.
var ErrInvalidCredentials = errors.New("invalid username or password")

// LockedError rejects a login against a locked-out account. The remaining
// time is surfaced to the operator, matching the legacy behavior.
type LockedError struct {
	RemainingMinutes int
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked, try again in %d minute(s)", e.RemainingMinutes)
}

// Authenticator verifies credentials against the store, enforcing the
// lockout policy.
type Authenticator struct {
	creds    *CredentialStore
	attempts *AttemptTracker

	now func() time.Time
}

// NewAuthenticator wires the credential store and attempt tracker together.
func NewAuthenticator(creds *CredentialStore, attempts *AttemptTracker) *Authenticator {
	return &Authenticator{creds: creds, attempts: attempts, now: time.Now}
}

// Login verifies username/password and returns a session descriptor on
// success. A login against a locked account is rejected up front and does
// not increment the failure counter; any other failure does.
func (a *Authenticator) Login(username, password string) (*models.Session, error) {
	if res := a.attempts.IsLocked(username); res.Locked {
		return nil, &LockedError{RemainingMinutes: res.RemainingMinutes}
	}

	user, err := a.creds.FindByUsername(username)
	if err != nil {
		a.attempts.RecordFailure(username)
		return nil, ErrInvalidCredentials
	}

	if HashPassword(password) != user.PasswordHash {
		a.attempts.RecordFailure(username)
		return nil, ErrInvalidCredentials
	}

	if err := a.attempts.RecordSuccess(username); err != nil {
		return nil, err
	}

	return &models.Session{
		Username:  user.Username,
		Role:      user.Role,
		LastLogin: a.now(),
	}, nil
}
