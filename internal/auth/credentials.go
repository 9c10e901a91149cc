package auth

import (
	"errors"
	"fmt"
	"log"

	"pingboard/internal/localstore"
	"pingboard/internal/models"
)

// Default bootstrap credentials, created only when no users exist at all.
const (
	DefaultAdminUser = "admin"
	DefaultAdminPass = "admin"
)

var (
	// ErrNotFound is returned when a username is not in the store.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateUsername is returned by Add for an already-taken name.
	ErrDuplicateUsername = errors.New("username already exists")
)

// CredentialStore holds user accounts in the local store under the legacy
// "users" key. Every mutation is persisted immediately.
type CredentialStore struct {
	store *localstore.Store
}

// NewCredentialStore wraps the given local store.
func NewCredentialStore(store *localstore.Store) *CredentialStore {
	return &CredentialStore{store: store}
}

// BootstrapIfEmpty inserts the default admin account when the store has no
// users. Calling it again once any user exists is a no-op.
func (c *CredentialStore) BootstrapIfEmpty() error {
	users := c.all()
	if len(users) > 0 {
		return nil
	}

	users = append(users, models.User{
		Username:     DefaultAdminUser,
		PasswordHash: HashPassword(DefaultAdminPass),
		Role:         models.RoleAdmin,
	})
	if err := c.store.PutJSON(localstore.KeyUsers, users); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	log.Printf("✓ Created default admin user: %s", DefaultAdminUser)
	return nil
}

// FindByUsername returns the user with the given name.
func (c *CredentialStore) FindByUsername(name string) (*models.User, error) {
	for _, u := range c.all() {
		if u.Username == name {
			user := u
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

// List returns all users in stored order.
func (c *CredentialStore) List() []models.User {
	return c.all()
}

// Add inserts a new user. Fails with ErrDuplicateUsername if the name is
// already taken.
func (c *CredentialStore) Add(user models.User) error {
	users := c.all()
	for _, u := range users {
		if u.Username == user.Username {
			return ErrDuplicateUsername
		}
	}
	users = append(users, user)
	if err := c.store.PutJSON(localstore.KeyUsers, users); err != nil {
		return fmt.Errorf("add user %s: %w", user.Username, err)
	}
	return nil
}

// Remove deletes the named user. Removing an absent user fails with
// ErrNotFound.
func (c *CredentialStore) Remove(name string) error {
	users := c.all()
	kept := users[:0]
	found := false
	for _, u := range users {
		if u.Username == name {
			found = true
			continue
		}
		kept = append(kept, u)
	}
	if !found {
		return ErrNotFound
	}
	if err := c.store.PutJSON(localstore.KeyUsers, kept); err != nil {
		return fmt.Errorf("remove user %s: %w", name, err)
	}
	return nil
}

// UpdatePasswordHash replaces the stored hash for the named user.
func (c *CredentialStore) UpdatePasswordHash(name, newHash string) error {
	users := c.all()
	for i := range users {
		if users[i].Username == name {
			users[i].PasswordHash = newHash
			if err := c.store.PutJSON(localstore.KeyUsers, users); err != nil {
				return fmt.Errorf("update password for %s: %w", name, err)
			}
			return nil
		}
	}
	return ErrNotFound
}

func (c *CredentialStore) all() []models.User {
	var users []models.User
	c.store.GetJSON(localstore.KeyUsers, &users)
	return users
}
