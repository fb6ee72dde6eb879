package storage

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultExtension is used when the media URL path has none
const DefaultExtension = ".mp4"

var knownExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".webm": true,
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".heic": true,
}

// Manager handles file storage operations and duplicate detection
type Manager struct {
	outputDir string
	saved     map[string]string
	mu        sync.RWMutex
}

// NewManager creates the output directory if needed and indexes its media files
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	m := &Manager{
		outputDir: outputDir,
		saved:     make(map[string]string),
	}
	if err := m.scan(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}
	return m, nil
}

func (m *Manager) scan() error {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !knownExtensions[ext] {
			continue
		}
		m.saved[strings.TrimSuffix(name, filepath.Ext(name))] = filepath.Join(m.outputDir, name)
	}
	return nil
}

// IsDownloaded reports whether media for shortcode is already on disk
func (m *Manager) IsDownloaded(shortcode string) bool {
	return m.Path(shortcode) != ""
}

// Path returns the saved file for shortcode, or "" when there is none
func (m *Manager) Path(shortcode string) string {
	m.mu.RLock()
	p, ok := m.saved[shortcode]
	m.mu.RUnlock()
	if !ok {
		return ""
	}

	if _, err := os.Stat(p); err != nil {
		m.mu.Lock()
		delete(m.saved, shortcode)
		m.mu.Unlock()
		return ""
	}
	return p
}

// Save streams r into <shortcode><ext> and returns the final path and size
func (m *Manager) Save(r io.Reader, shortcode, ext string) (string, int64, error) {
	if shortcode == "" {
		return "", 0, fmt.Errorf("shortcode is required")
	}
	if ext == "" {
		ext = DefaultExtension
	}

	filename := filepath.Join(m.outputDir, shortcode+ext)
	out, err := os.CreateTemp(m.outputDir, "."+shortcode+"-*.tmp")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmp := out.Name()

	n, err := io.Copy(out, r)
	closeErr := out.Close()
	if err != nil {
		os.Remove(tmp)
		return "", n, fmt.Errorf("failed to save media data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tmp)
		return "", n, fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tmp, filename); err != nil {
		os.Remove(tmp)
		return "", n, fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.saved[shortcode] = filename
	m.mu.Unlock()

	return filename, n, nil
}

// Dir returns the output directory path
func (m *Manager) Dir() string {
	return m.outputDir
}

// Count returns the number of indexed media files
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.saved)
}

// ExtensionFor derives a file extension from a CDN URL, ignoring the query
// string. Unknown or missing extensions map to DefaultExtension.
func ExtensionFor(mediaURL string) string {
	u, err := url.Parse(mediaURL)
	if err != nil {
		return DefaultExtension
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == ".jpeg" {
		return ".jpg"
	}
	if !knownExtensions[ext] {
		return DefaultExtension
	}
	return ext
}
