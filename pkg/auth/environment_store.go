package auth

import (
	"os"
	"time"
)

// Environment variables read by EnvironmentStore
const (
	EnvSessionID = "REELPROXY_SESSION_ID"
	EnvCSRFToken = "REELPROXY_CSRF_TOKEN"
	EnvUserAgent = "REELPROXY_USER_AGENT"
	EnvAccount   = "REELPROXY_ACCOUNT"
)

// EnvironmentStore is a read-only store over REELPROXY_* variables, for
// containers where no keyring or config directory exists.
type EnvironmentStore struct {
	getenv func(string) string
}

func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{getenv: os.Getenv}
}

func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment session. An empty username matches;
// otherwise it must equal REELPROXY_ACCOUNT (or "env" when that is unset).
func (e *EnvironmentStore) Retrieve(username string) (*Account, error) {
	sessionID := e.getenv(EnvSessionID)
	csrfToken := e.getenv(EnvCSRFToken)
	if sessionID == "" || csrfToken == "" {
		return nil, ErrCredentialsNotFound
	}

	name := e.getenv(EnvAccount)
	if name == "" {
		name = "env"
	}
	if username != "" && username != name {
		return nil, ErrCredentialsNotFound
	}

	return &Account{
		Username:     name,
		SessionID:    sessionID,
		CSRFToken:    csrfToken,
		UserAgent:    e.getenv(EnvUserAgent),
		LastModified: time.Time{},
	}, nil
}

func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(username string) bool {
	_, err := e.Retrieve(username)
	return err == nil
}
