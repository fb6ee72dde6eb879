// Package auth stores Instagram session cookies and notifies subscribers
// when the active session changes.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"
)

// Account is an Instagram session captured from a logged-in browser
type Account struct {
	Username     string    `json:"username"`
	SessionID    string    `json:"session_id"`
	CSRFToken    string    `json:"csrf_token"`
	UserAgent    string    `json:"user_agent,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Validate reports the first missing field
func (a *Account) Validate() error {
	switch {
	case a == nil || a.Username == "":
		return errors.New("username is required")
	case a.SessionID == "":
		return errors.New("session ID is required")
	case a.CSRFToken == "":
		return errors.New("CSRF token is required")
	}
	return nil
}

// CredentialStore is a backend that persists accounts
type CredentialStore interface {
	Store(account *Account) error
	Retrieve(username string) (*Account, error)
	List() ([]*Account, error)
	Delete(username string) error
	Exists(username string) bool
}

// Manager layers several stores and publishes changes of the active session.
//
// The active account is the one named at construction (if any), otherwise
// the environment session, otherwise the most recently stored account.
type Manager struct {
	stores    []CredentialStore
	preferred string

	mu          sync.Mutex
	subscribers map[int]func(*Account)
	nextID      int
}

// NewManager creates a manager backed by the system keyring when available,
// an encrypted file in the config directory and the environment.
func NewManager(preferred string) (*Manager, error) {
	var stores []CredentialStore

	if ks, err := NewKeyringStore(); err == nil {
		stores = append(stores, ks)
	}

	dir, err := ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	fs, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, fs, NewEnvironmentStore())

	return NewManagerWithStores(preferred, stores...), nil
}

// NewManagerWithStores creates a manager over explicit stores, in priority order
func NewManagerWithStores(preferred string, stores ...CredentialStore) *Manager {
	return &Manager{
		stores:      stores,
		preferred:   preferred,
		subscribers: make(map[int]func(*Account)),
	}
}

// Subscribe registers fn to receive the active account (or nil) after every
// Store, Delete and Reload. The returned function removes the subscription
// and may be called more than once.
func (m *Manager) Subscribe(fn func(*Account)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subscribers[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subscribers, id)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) publish(account *Account) {
	m.mu.Lock()
	ids := make([]int, 0, len(m.subscribers))
	for id := range m.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(*Account), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m.subscribers[id])
	}
	m.mu.Unlock()

	for _, fn := range fns {
		if account == nil {
			fn(nil)
			continue
		}
		cp := *account
		fn(&cp)
	}
}

// Store saves the account in the first store that accepts it and makes it
// the active session.
func (m *Manager) Store(account *Account) error {
	if err := account.Validate(); err != nil {
		return err
	}
	account.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(account)
		if err == nil {
			m.mu.Lock()
			m.preferred = account.Username
			m.mu.Unlock()
			m.publish(account)
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve returns the account from the first store that has it
func (m *Manager) Retrieve(username string) (*Account, error) {
	for _, store := range m.stores {
		if account, err := store.Retrieve(username); err == nil && account != nil {
			return account, nil
		}
	}
	return nil, fmt.Errorf("%w for user: %s", ErrCredentialsNotFound, username)
}

// Active returns the session requests should be made with
func (m *Manager) Active() (*Account, error) {
	m.mu.Lock()
	preferred := m.preferred
	m.mu.Unlock()

	if preferred != "" {
		if account, err := m.Retrieve(preferred); err == nil {
			return account, nil
		}
	}

	for _, store := range m.stores {
		if env, ok := store.(*EnvironmentStore); ok {
			if account, err := env.Retrieve(""); err == nil {
				return account, nil
			}
		}
	}

	accounts, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, ErrCredentialsNotFound
	}
	latest := accounts[0]
	for _, a := range accounts[1:] {
		if a.LastModified.After(latest.LastModified) {
			latest = a
		}
	}
	return latest, nil
}

// Reload re-reads the stores and publishes the active session
func (m *Manager) Reload() (*Account, error) {
	account, err := m.Active()
	if err != nil && !errors.Is(err, ErrCredentialsNotFound) {
		return nil, err
	}
	m.publish(account)
	return account, nil
}

// List merges all stores, keeping the most recent copy of each username
func (m *Manager) List() ([]*Account, error) {
	byName := make(map[string]*Account)

	for _, store := range m.stores {
		accounts, err := store.List()
		if err != nil {
			continue
		}
		for _, account := range accounts {
			if existing, ok := byName[account.Username]; !ok || account.LastModified.After(existing.LastModified) {
				byName[account.Username] = account
			}
		}
	}

	result := make([]*Account, 0, len(byName))
	for _, account := range byName {
		result = append(result, account)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })

	return result, nil
}

// Delete removes the account from every store and publishes the new active
// session.
func (m *Manager) Delete(username string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(username); err == nil {
			deleted = true
		} else if !errors.Is(err, ErrCredentialsNotFound) && !errors.Is(err, ErrStoreUnavailable) {
			lastErr = err
		}
	}

	if !deleted {
		if lastErr != nil {
			return fmt.Errorf("failed to delete credentials: %w", lastErr)
		}
		return fmt.Errorf("%w for user: %s", ErrCredentialsNotFound, username)
	}

	m.mu.Lock()
	if m.preferred == username {
		m.preferred = ""
	}
	m.mu.Unlock()

	active, _ := m.Active()
	m.publish(active)
	return nil
}

// ConfigDir returns the per-user configuration directory, creating it
func ConfigDir() (string, error) {
	var dir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "Library", "Application Support", "reelproxy")
	case "windows":
		dir = filepath.Join(os.Getenv("APPDATA"), "reelproxy")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			dir = filepath.Join(xdg, "reelproxy")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dir = filepath.Join(home, ".config", "reelproxy")
		}
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// SanitizeAccount returns a copy with the cookie values masked
func SanitizeAccount(account *Account) *Account {
	if account == nil {
		return nil
	}

	return &Account{
		Username:     account.Username,
		SessionID:    maskString(account.SessionID),
		CSRFToken:    maskString(account.CSRFToken),
		UserAgent:    account.UserAgent,
		LastModified: account.LastModified,
	}
}

func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
