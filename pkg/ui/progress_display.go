package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// ProgressDisplay renders download progress as a single rewritten console
// line, or one line per event in verbose mode. It satisfies the downloader
// Reporter interface.
type ProgressDisplay struct {
	mu      sync.Mutex
	out     io.Writer
	total   int
	done    int
	skipped int
	errors  int
	bytes   int64
	current string
	start   time.Time
	verbose bool
}

// NewProgressDisplay tracks a batch of total jobs
func NewProgressDisplay(out io.Writer, total int, verbose bool) *ProgressDisplay {
	return &ProgressDisplay{
		out:     out,
		total:   total,
		start:   time.Now(),
		verbose: verbose,
	}
}

func (p *ProgressDisplay) StartDownload(id, source, filename string, size int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = filename
	if p.verbose {
		fmt.Fprintf(p.out, "%s %s (%s)\n", Magenta("→"), filename, FormatBytes(size))
		return
	}
	p.render()
}

func (p *ProgressDisplay) UpdateDownloadProgress(id string, downloaded int64, speed float64) {
	if p.verbose {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.render()
}

func (p *ProgressDisplay) CompleteDownload(id string, size int64, caption string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	p.bytes += size
	p.current = ""
	if p.verbose {
		line := fmt.Sprintf("%s %s • %s", Green("✓"), id, FormatBytes(size))
		if caption != "" {
			line += " • " + Dim(truncate(caption, 50))
		}
		fmt.Fprintln(p.out, line)
		return
	}
	p.render()
}

func (p *ProgressDisplay) SkipDownload(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.skipped++
	if p.verbose {
		fmt.Fprintf(p.out, "%s %s already downloaded\n", Dim("="), id)
		return
	}
	p.render()
}

func (p *ProgressDisplay) FailDownload(id string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.errors++
	p.current = ""
	if p.verbose {
		fmt.Fprintf(p.out, "%s %s: %v\n", Red("✗"), id, err)
		return
	}
	p.render()
}

// IsPaused is always false; the console display has no pause control
func (p *ProgressDisplay) IsPaused() bool { return false }

func (p *ProgressDisplay) render() {
	finished := p.done + p.skipped + p.errors
	const width = 20
	filled := 0
	if p.total > 0 {
		filled = finished * width / p.total
	}
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("━", filled) + strings.Repeat("─", width-filled)

	line := fmt.Sprintf("[%s] %d/%d • %s", bar, finished, p.total, FormatBytes(p.bytes))
	if p.current != "" {
		line += " • " + p.current
	}
	if p.errors > 0 {
		line += " • " + Red(fmt.Sprintf("%d errors", p.errors))
	}
	fmt.Fprintf(p.out, "\r\033[K%s", line)
}

// Complete prints the batch summary
func (p *ProgressDisplay) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.start)
	if !p.verbose {
		fmt.Fprintln(p.out)
	}
	fmt.Fprintf(p.out, "%s Downloaded %d of %d reels (%s in %s)\n",
		Green("✓"), p.done, p.total, FormatBytes(p.bytes), FormatDuration(elapsed))
	if p.skipped > 0 {
		fmt.Fprintf(p.out, "  %s %d already on disk\n", Dim("•"), p.skipped)
	}
	if p.errors > 0 {
		fmt.Fprintf(p.out, "  %s %d failed\n", Dim("•"), p.errors)
	}
}

// Counts returns completed, skipped and failed job counts
func (p *ProgressDisplay) Counts() (done, skipped, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done, p.skipped, p.errors
}

// FormatDuration formats d as 42s, 3m5s or 1h2m
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// FormatBytes formats a byte count with binary units
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

func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
