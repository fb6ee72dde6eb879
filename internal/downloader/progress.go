package downloader

import (
	"io"
	"time"
)

// Reporter receives download lifecycle events. Implementations must be safe
// for concurrent use.
type Reporter interface {
	StartDownload(id, source, filename string, size int64)
	UpdateDownloadProgress(id string, downloaded int64, speed float64)
	CompleteDownload(id string, size int64, caption string)
	SkipDownload(id string)
	FailDownload(id string, err error)
	IsPaused() bool
}

// NopReporter discards all events
type NopReporter struct{}

func (NopReporter) StartDownload(id, source, filename string, size int64)             {}
func (NopReporter) UpdateDownloadProgress(id string, downloaded int64, speed float64) {}
func (NopReporter) CompleteDownload(id string, size int64, caption string)            {}
func (NopReporter) SkipDownload(id string)                                            {}
func (NopReporter) FailDownload(id string, err error)                                 {}
func (NopReporter) IsPaused() bool                                                    { return false }

const progressInterval = 250 * time.Millisecond

// progressReader reports bytes read at most every progressInterval, and
// once more at EOF.
type progressReader struct {
	r        io.Reader
	report   func(n int64, speed float64)
	read     int64
	started  time.Time
	lastSent time.Time
}

func newProgressReader(r io.Reader, report func(n int64, speed float64)) *progressReader {
	now := time.Now()
	return &progressReader{r: r, report: report, started: now, lastSent: now}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)

	now := time.Now()
	if err == io.EOF || now.Sub(p.lastSent) >= progressInterval {
		p.lastSent = now
		var speed float64
		if elapsed := now.Sub(p.started).Seconds(); elapsed > 0 {
			speed = float64(p.read) / elapsed
		}
		p.report(p.read, speed)
	}
	return n, err
}
