// Package tui is the full-screen progress view for `reelproxy download --tui`.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// TUI runs the bubbletea program and forwards downloader events to it
type TUI struct {
	program *tea.Program
	model   *Model
}

// NewTUI creates a TUI sized for maxConcurrent workers
func NewTUI(maxConcurrent int, opts ...tea.ProgramOption) *TUI {
	model := NewModel(maxConcurrent)
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	return &TUI{
		program: tea.NewProgram(model, opts...),
		model:   model,
	}
}

// Run blocks until the user quits
func (t *TUI) Run() error {
	_, err := t.program.Run()
	return err
}

// Stop quits the program
func (t *TUI) Stop() {
	t.program.Quit()
}

// Done tells the view the batch has finished
func (t *TUI) Done() {
	t.program.Send(DoneMsg{})
}

// QueueDownload shows a URL as pending before a worker picks it up
func (t *TUI) QueueDownload(id, source string) {
	t.model.QueueDownload(id, source)
}

func (t *TUI) StartDownload(id, source, filename string, size int64) {
	t.program.Send(DownloadStartMsg{ID: id, Source: source, Filename: filename, Size: size})
}

func (t *TUI) UpdateDownloadProgress(id string, downloaded int64, speed float64) {
	t.program.Send(DownloadProgressMsg{ID: id, Downloaded: downloaded, Speed: speed})
}

func (t *TUI) CompleteDownload(id string, size int64, caption string) {
	t.program.Send(DownloadCompleteMsg{ID: id, Size: size, Caption: caption})
}

func (t *TUI) SkipDownload(id string) {
	t.program.Send(DownloadSkippedMsg{ID: id})
}

func (t *TUI) FailDownload(id string, err error) {
	t.program.Send(DownloadErrorMsg{ID: id, Error: err})
}

// IsPaused reports whether the user paused the batch with p
func (t *TUI) IsPaused() bool {
	return t.model.Paused()
}

// Logf adds a line to the log panel
func (t *TUI) Logf(level, format string, args ...interface{}) {
	t.program.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}
