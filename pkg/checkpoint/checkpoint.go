package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"reelproxy/pkg/logger"
)

// FileName is the checkpoint's name inside the output directory
const FileName = ".reelproxy-checkpoint.json"

const currentVersion = 1

// Status is the outcome of one URL
type Status string

const (
	StatusPending Status = "pending"
	StatusSaved   Status = "saved"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Entry tracks one URL of the batch
type Entry struct {
	Status    Status    `json:"status"`
	Path      string    `json:"path,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Checkpoint represents the state of a download batch
type Checkpoint struct {
	URLs      []string          `json:"urls"`
	Entries   map[string]*Entry `json:"entries"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Version   int               `json:"version"`
}

// Pending returns the URLs that still need work, in submission order
func (c *Checkpoint) Pending() []string {
	var out []string
	for _, u := range c.URLs {
		e := c.Entries[u]
		if e == nil || e.Status == StatusPending || e.Status == StatusFailed {
			out = append(out, u)
		}
	}
	return out
}

// Counts returns how many URLs finished, failed and are still pending
func (c *Checkpoint) Counts() (finished, failed, pending int) {
	for _, u := range c.URLs {
		e := c.Entries[u]
		switch {
		case e == nil || e.Status == StatusPending:
			pending++
		case e.Status == StatusFailed:
			failed++
		default:
			finished++
		}
	}
	return finished, failed, pending
}

// Add appends urls not already in the batch as pending
func (c *Checkpoint) Add(urls ...string) {
	for _, u := range urls {
		if _, ok := c.Entries[u]; ok {
			continue
		}
		c.URLs = append(c.URLs, u)
		c.Entries[u] = &Entry{Status: StatusPending, UpdatedAt: time.Now()}
	}
}

// Manager handles checkpoint operations for one output directory
type Manager struct {
	mu     sync.Mutex
	path   string
	logger logger.Logger
}

// NewManager creates a manager for the checkpoint in dir
func NewManager(dir string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Manager{
		path:   filepath.Join(dir, FileName),
		logger: log.WithField("component", "checkpoint"),
	}
}

// Path returns the checkpoint file path
func (m *Manager) Path() string {
	return m.path
}

// Create starts a new batch over urls, replacing any previous checkpoint
func (m *Manager) Create(urls []string) (*Checkpoint, error) {
	now := time.Now()
	cp := &Checkpoint{
		Entries:   make(map[string]*Entry),
		CreatedAt: now,
		Version:   currentVersion,
	}
	cp.Add(urls...)

	if err := m.Save(cp); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}

	m.logger.InfoWithFields("checkpoint created", map[string]interface{}{
		"urls": len(cp.URLs),
		"path": m.path,
	})
	return cp, nil
}

// Load reads the checkpoint. It returns nil and no error when none exists.
func (m *Manager) Load() (*Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if cp.Version != currentVersion {
		return nil, fmt.Errorf("unsupported checkpoint version %d", cp.Version)
	}
	if cp.Entries == nil {
		cp.Entries = make(map[string]*Entry)
	}

	finished, failed, pending := cp.Counts()
	m.logger.InfoWithFields("checkpoint loaded", map[string]interface{}{
		"finished":   finished,
		"failed":     failed,
		"pending":    pending,
		"updated_at": cp.UpdatedAt,
	})
	return &cp, nil
}

// Save writes the checkpoint atomically
func (m *Manager) Save(cp *Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	tempPath := m.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, m.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}
	return nil
}

// Record stores the outcome of url and saves the checkpoint
func (m *Manager) Record(cp *Checkpoint, url string, status Status, path string, cause error) error {
	entry := &Entry{Status: status, Path: path, UpdatedAt: time.Now()}
	if cause != nil {
		entry.Error = cause.Error()
	}
	if _, ok := cp.Entries[url]; !ok {
		cp.URLs = append(cp.URLs, url)
	}
	cp.Entries[url] = entry

	m.logger.DebugWithFields("checkpoint updated", map[string]interface{}{
		"url":    url,
		"status": status,
	})
	return m.Save(cp)
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	m.logger.Debug("checkpoint deleted")
	return nil
}

// Exists reports whether a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}
