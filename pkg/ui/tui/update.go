package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// DownloadStartMsg is sent when the media stream opens
type DownloadStartMsg struct {
	ID       string
	Source   string
	Filename string
	Size     int64
}

// DownloadProgressMsg reports bytes written so far
type DownloadProgressMsg struct {
	ID         string
	Downloaded int64
	Speed      float64
}

// DownloadCompleteMsg is sent once the file and its sidecar are saved
type DownloadCompleteMsg struct {
	ID      string
	Size    int64
	Caption string
}

// DownloadSkippedMsg marks a reel that was already on disk
type DownloadSkippedMsg struct {
	ID string
}

// DownloadErrorMsg carries the failure of a single download
type DownloadErrorMsg struct {
	ID    string
	Error error
}

// LogMsg appends a line to the log pane
type LogMsg struct {
	Level   string
	Message string
}

// DoneMsg marks the end of the batch; the view switches to the summary
type DoneMsg struct{}

// TickMsg drives redraws
type TickMsg time.Time

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		return m, tickCmd()

	case DownloadStartMsg:
		m.StartDownload(msg.ID, msg.Source, msg.Filename, msg.Size)
		m.AddLogMessage("INFO", "Downloading "+msg.Filename)

	case DownloadProgressMsg:
		m.UpdateDownloadProgress(msg.ID, msg.Downloaded, msg.Speed)

	case DownloadCompleteMsg:
		m.CompleteDownload(msg.ID, msg.Size, msg.Caption)
		m.AddLogMessage("SUCCESS", "Saved "+msg.ID)

	case DownloadSkippedMsg:
		m.SkipDownload(msg.ID)
		m.AddLogMessage("INFO", msg.ID+" already downloaded")

	case DownloadErrorMsg:
		m.FailDownload(msg.ID, msg.Error)
		m.AddLogMessage("ERROR", msg.ID+": "+msg.Error.Error())

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)

	case DoneMsg:
		m.mu.Lock()
		m.finished = true
		m.mu.Unlock()
		m.AddLogMessage("SUCCESS", "Batch finished, press q to exit")
	}

	return m, nil
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		return m, tea.Quit

	case "p", "P":
		m.mu.Lock()
		m.isPaused = !m.isPaused
		paused := m.isPaused
		m.mu.Unlock()
		if paused {
			m.AddLogMessage("WARN", "Paused, in-flight downloads will finish")
		} else {
			m.AddLogMessage("INFO", "Resumed")
		}

	case "?":
		m.showHelp = !m.showHelp

	case "ctrl+l":
		m.mu.Lock()
		m.logMessages = nil
		m.mu.Unlock()
	}

	return m, nil
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
