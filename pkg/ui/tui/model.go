package tui

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DownloadState represents the state of a download
type DownloadState int

const (
	DownloadPending DownloadState = iota
	DownloadActive
	DownloadCompleted
	DownloadSkipped
	DownloadFailed
)

// DownloadItem is one reel in the batch
type DownloadItem struct {
	ID         string
	Source     string
	Filename   string
	Caption    string
	Size       int64
	Downloaded int64
	State      DownloadState
	StartTime  time.Time
	Speed      float64
	Error      error
}

// Model is the bubbletea model for a download batch
type Model struct {
	spinner spinner.Model
	bar     progress.Model

	downloads       map[string]*DownloadItem
	downloadOrder   []string
	activeDownloads int
	maxConcurrent   int

	totalDownloaded  int
	totalSkipped     int
	totalFailed      int
	totalSize        int64
	sessionStartTime time.Time

	width          int
	height         int
	showHelp       bool
	isPaused       bool
	finished       bool
	logMessages    []LogMessage
	maxLogMessages int

	mu sync.RWMutex
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates a model for up to maxConcurrent parallel downloads
func NewModel(maxConcurrent int) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accent)

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40

	return &Model{
		spinner:          s,
		bar:              bar,
		downloads:        make(map[string]*DownloadItem),
		maxConcurrent:    maxConcurrent,
		sessionStartTime: time.Now(),
		maxLogMessages:   50,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// item returns the entry for id, creating a pending one. Callers hold mu.
func (m *Model) item(id string) *DownloadItem {
	d, ok := m.downloads[id]
	if !ok {
		d = &DownloadItem{ID: id, Filename: id, State: DownloadPending}
		m.downloads[id] = d
		m.downloadOrder = append(m.downloadOrder, id)
	}
	return d
}

// QueueDownload registers a pending download
func (m *Model) QueueDownload(id, source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.item(id).Source = source
}

// StartDownload marks a download as active
func (m *Model) StartDownload(id, source, filename string, size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := m.item(id)
	if d.State != DownloadActive {
		m.activeDownloads++
	}
	d.Source = source
	d.Filename = filename
	d.Size = size
	d.State = DownloadActive
	d.StartTime = time.Now()
}

func (m *Model) UpdateDownloadProgress(id string, downloaded int64, speed float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d, ok := m.downloads[id]; ok {
		d.Downloaded = downloaded
		d.Speed = speed
	}
}

func (m *Model) CompleteDownload(id string, size int64, caption string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := m.item(id)
	if d.State == DownloadActive {
		m.activeDownloads--
	}
	d.State = DownloadCompleted
	d.Size = size
	d.Downloaded = size
	d.Caption = caption
	m.totalDownloaded++
	m.totalSize += size
}

func (m *Model) SkipDownload(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.item(id).State = DownloadSkipped
	m.totalSkipped++
}

func (m *Model) FailDownload(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := m.item(id)
	if d.State == DownloadActive {
		m.activeDownloads--
	}
	d.State = DownloadFailed
	d.Error = err
	m.totalFailed++
}

// Paused reports whether the user paused the batch
func (m *Model) Paused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isPaused
}

func (m *Model) AddLogMessage(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	color := dimWhite
	switch level {
	case "ERROR":
		color = red
	case "WARN":
		color = orange
	case "SUCCESS":
		color = green
	case "INFO":
		color = accent
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})
	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

func (m *Model) byState(state DownloadState) []DownloadItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []DownloadItem
	for _, id := range m.downloadOrder {
		if d := m.downloads[id]; d != nil && d.State == state {
			items = append(items, *d)
		}
	}
	return items
}

func (m *Model) ActiveDownloads() []DownloadItem    { return m.byState(DownloadActive) }
func (m *Model) PendingDownloads() []DownloadItem   { return m.byState(DownloadPending) }
func (m *Model) CompletedDownloads() []DownloadItem { return m.byState(DownloadCompleted) }
func (m *Model) FailedDownloads() []DownloadItem    { return m.byState(DownloadFailed) }

// Stats returns the current aggregate speed, the session average and an
// estimate for the pending downloads.
func (m *Model) Stats() (totalSpeed, avgSpeed float64, eta time.Duration) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pending := 0
	for _, d := range m.downloads {
		switch d.State {
		case DownloadActive:
			totalSpeed += d.Speed
		case DownloadPending:
			pending++
		}
	}

	elapsed := time.Since(m.sessionStartTime)
	if m.totalDownloaded > 0 && elapsed > 0 {
		avgSpeed = float64(m.totalSize) / elapsed.Seconds()
		perItem := elapsed / time.Duration(m.totalDownloaded)
		workers := m.maxConcurrent
		if workers < 1 {
			workers = 1
		}
		eta = perItem * time.Duration(pending) / time.Duration(workers)
	}
	return
}

// FormatBytes formats bytes to human readable format
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatSpeed formats speed in bytes per second
func FormatSpeed(bytesPerSecond float64) string {
	return fmt.Sprintf("%s/s", FormatBytes(int64(bytesPerSecond)))
}
