package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func withOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevColor := Output, NoColor
	Output, NoColor = &buf, true
	t.Cleanup(func() { Output, NoColor = prevOut, prevColor })
	return &buf
}

func TestPrintHelpers(t *testing.T) {
	buf := withOutput(t)

	PrintError("resolve failed", errors.New("boom"))
	PrintError("plain")
	PrintInfo("Output", "./downloads")
	PrintSuccess("done")

	want := "resolve failed: boom\nplain\nOutput: ./downloads\ndone\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestColorize(t *testing.T) {
	prev := NoColor
	defer func() { NoColor = prev }()

	NoColor = false
	if got := Red("x"); got != "\033[31mx\033[0m" {
		t.Errorf("Red = %q", got)
	}
	NoColor = true
	if got := Red("x"); got != "x" {
		t.Errorf("Red with NoColor = %q", got)
	}
}

func TestProgressDisplayVerbose(t *testing.T) {
	withOutput(t)
	var out bytes.Buffer
	p := NewProgressDisplay(&out, 3, true)

	p.StartDownload("AAA", "https://instagram.com/reel/AAA", "AAA.mp4", 2048)
	p.CompleteDownload("AAA", 2048, "a caption\nwith lines")
	p.SkipDownload("BBB")
	p.FailDownload("CCC", errors.New("cdn 403"))
	p.Complete()

	s := out.String()
	for _, want := range []string{"AAA.mp4 (2.0 KB)", "AAA • 2.0 KB • a caption with lines", "BBB already downloaded", "CCC: cdn 403", "Downloaded 1 of 3 reels", "1 already on disk", "1 failed"} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}

	done, skipped, failed := p.Counts()
	if done != 1 || skipped != 1 || failed != 1 {
		t.Errorf("Counts() = %d, %d, %d", done, skipped, failed)
	}
	if p.IsPaused() {
		t.Error("console display never pauses")
	}
}

func TestProgressDisplayLine(t *testing.T) {
	withOutput(t)
	var out bytes.Buffer
	p := NewProgressDisplay(&out, 2, false)

	p.CompleteDownload("AAA", 1024, "")
	if !strings.Contains(out.String(), "1/2 • 1.0 KB") {
		t.Errorf("progress line = %q", out.String())
	}
}

func TestFormatHelpers(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{500, "500 B"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024 * 1024, "5.0 GB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.bytes); got != tt.want {
			t.Errorf("FormatBytes(%d) = %s, want %s", tt.bytes, got, tt.want)
		}
	}

	if got := FormatDuration(42 * time.Second); got != "42s" {
		t.Errorf("FormatDuration = %s", got)
	}
	if got := FormatDuration(3*time.Minute + 5*time.Second); got != "3m5s" {
		t.Errorf("FormatDuration = %s", got)
	}
	if got := FormatDuration(62 * time.Minute); got != "1h2m" {
		t.Errorf("FormatDuration = %s", got)
	}
}

type recordingSender struct {
	title, message string
}

func (r *recordingSender) Send(ctx context.Context, title, message string) error {
	r.title, r.message = title, message
	return errors.New("ignored")
}

func TestNotifier(t *testing.T) {
	buf := withOutput(t)
	sender := &recordingSender{}
	n := NewNotifierWithSender(sender)

	n.SendSuccess("reelproxy", "3 reels saved")
	if sender.title != "reelproxy" || sender.message != "3 reels saved" {
		t.Errorf("sender got %q / %q", sender.title, sender.message)
	}
	if !strings.Contains(buf.String(), "reelproxy: 3 reels saved") {
		t.Errorf("console output = %q", buf.String())
	}

	NewNotifierWithSender(nil).SendError("reelproxy", "failed")
	if !strings.Contains(buf.String(), "reelproxy: failed") {
		t.Errorf("console output = %q", buf.String())
	}
}

func TestCommandSenders(t *testing.T) {
	name, args := linuxSender("t", "m")
	if name != "notify-send" || args[len(args)-1] != "m" {
		t.Errorf("linux sender = %s %v", name, args)
	}
	_, args = macSender(`say "hi"`, "m")
	if !strings.Contains(args[1], `with title "say \"hi\""`) {
		t.Errorf("mac script = %s", args[1])
	}
	_, args = windowsSender("it's", "m")
	if !strings.Contains(args[len(args)-1], "'it''s'") {
		t.Errorf("windows script = %s", args[len(args)-1])
	}
}
