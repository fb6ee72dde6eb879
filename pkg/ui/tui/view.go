package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const header = "reelproxy • batch download"

func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	half := (m.width - 4) / 2

	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatsPanel(half),
		m.renderActivePanel(half),
		m.renderQueuePanel(half),
	)
	right := m.renderLogsPanel(half)

	sections := []string{
		headerStyle.Width(m.width).Render(m.spinner.View() + " " + header),
		lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right),
	}
	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func panel(width int, title string, body ...string) string {
	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, append([]string{titleStyle.Render(" " + title + " ")}, body...)...),
	)
}

func stat(label, value string) string {
	return statsLabelStyle.Render(label) + " " + value
}

func (m *Model) renderStatsPanel(width int) string {
	totalSpeed, avgSpeed, eta := m.Stats()

	m.mu.RLock()
	lines := []string{
		stat("Session:", statsValueStyle.Render(formatDuration(time.Since(m.sessionStartTime)))),
		stat("Saved:", statsValueStyle.Render(fmt.Sprintf("%d reels (%s)", m.totalDownloaded, FormatBytes(m.totalSize)))),
		stat("Skipped:", statsValueStyle.Render(fmt.Sprintf("%d", m.totalSkipped))),
		stat("Failed:", statsValueStyle.Render(fmt.Sprintf("%d", m.totalFailed))),
		stat("Speed:", speedStyle.Render(FormatSpeed(totalSpeed)+" now, "+FormatSpeed(avgSpeed)+" avg")),
		stat("ETA:", statsValueStyle.Render(formatDuration(eta))),
	}
	paused, finished := m.isPaused, m.finished
	m.mu.RUnlock()

	if paused {
		lines = append(lines, warningStyle.Render("⏸  PAUSED"))
	}
	if finished {
		lines = append(lines, successStyle.Render("✓ DONE"))
	}
	return panel(width, "STATS", lines...)
}

func (m *Model) renderActivePanel(width int) string {
	active := m.ActiveDownloads()
	if len(active) == 0 {
		return panel(width, "ACTIVE", dimStyle.Render("No active downloads"))
	}

	var rows []string
	for _, d := range active {
		rows = append(rows, m.renderDownloadItem(d, width-4))
	}
	return panel(width, "ACTIVE", rows...)
}

func (m *Model) renderDownloadItem(d DownloadItem, width int) string {
	ratio := 0.0
	if d.Size > 0 {
		ratio = float64(d.Downloaded) / float64(d.Size)
	}
	if ratio > 1 {
		ratio = 1
	}

	bar := m.bar
	bar.Width = width - 8
	if bar.Width < 10 {
		bar.Width = 10
	}

	info := fmt.Sprintf("%s %s @ %s",
		queueItemActiveStyle.Render(d.Filename),
		dimStyle.Render(FormatBytes(d.Downloaded)+"/"+FormatBytes(d.Size)),
		speedStyle.Render(FormatSpeed(d.Speed)),
	)
	return lipgloss.JoinVertical(lipgloss.Left, info, bar.ViewAs(ratio))
}

func (m *Model) renderQueuePanel(width int) string {
	pending := m.PendingDownloads()
	completed := m.CompletedDownloads()
	failed := m.FailedDownloads()

	var rows []string
	if n := len(pending); n > 0 {
		rows = append(rows, warningStyle.Render(fmt.Sprintf("⏳ %d pending", n)))
		for i := 0; i < 3 && i < n; i++ {
			rows = append(rows, queueItemStyle.Render("• "+pending[i].Source))
		}
		if n > 3 {
			rows = append(rows, dimStyle.Render(fmt.Sprintf("  ... and %d more", n-3)))
		}
	}

	if n := len(completed); n > 0 {
		rows = append(rows, "", successStyle.Render(fmt.Sprintf("✓ %d saved", n)))
		for _, d := range completed[max(0, n-3):] {
			line := "✓ " + d.Filename
			if d.Caption != "" {
				line += " " + truncate(d.Caption, width-len(line)-8)
			}
			rows = append(rows, queueItemDoneStyle.Render(line))
		}
	}

	if n := len(failed); n > 0 {
		rows = append(rows, "", errorStyle.Render(fmt.Sprintf("✗ %d failed", n)))
		for _, d := range failed[max(0, n-3):] {
			rows = append(rows, queueItemStyle.Render("✗ "+d.ID))
		}
	}

	if len(rows) == 0 {
		rows = append(rows, dimStyle.Render("Queue empty"))
	}
	return panel(width, "QUEUE", rows...)
}

func (m *Model) renderLogsPanel(width int) string {
	m.mu.RLock()
	recent := m.logMessages[max(0, len(m.logMessages)-15):]
	var lines []string
	for _, l := range recent {
		level := lipgloss.NewStyle().Foreground(l.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", l.Level))
		lines = append(lines, fmt.Sprintf("%s %s %s",
			logTimestampStyle.Render(l.Time.Format("15:04:05")),
			level,
			truncate(l.Message, width-25),
		))
	}
	m.mu.RUnlock()

	body := strings.Join(lines, "\n")
	if body == "" {
		body = dimStyle.Render("No logs yet...")
	}

	height := m.height - 12
	if height < 5 {
		height = 5
	}
	return panelStyle.Width(width).Height(height).Render(
		lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(" LOG "), body),
	)
}

func (m *Model) renderHelp() string {
	help := `
  q        quit
  p        pause or resume (in-flight downloads finish)
  ctrl+l   clear the log
  ?        toggle this help

  ` + successStyle.Render("green") + `  saved    ` + warningStyle.Render("orange") + `  pending    ` + errorStyle.Render("red") + `  failed
`
	return panelStyle.Width(m.width).Render(help)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n < 4 || len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
