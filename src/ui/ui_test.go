package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"

	"cameio-cli/src/contracts"
	"cameio-cli/src/service"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in       string
		max      int
		ellipsis bool
		want     string
	}{
		{"short", 10, true, "short"},
		{"0123456789abcdef", 8, false, "01234567"},
		{"a long note that keeps going", 10, true, "a long ..."},
		{"anything", 0, true, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max, tt.ellipsis); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestPadAndDotLeader(t *testing.T) {
	if got := Pad("ab", 5); got != "ab   " {
		t.Errorf("Pad() = %q", got)
	}
	if got := Pad("abcdef", 3); got != "abcdef" {
		t.Errorf("Pad() should not cut, got %q", got)
	}
	if got := DotLeader("start", 12); got != "start ..... " {
		t.Errorf("DotLeader() = %q", got)
	}
	if VisualWidth(DotLeader("package", 20)) != 20 {
		t.Errorf("DotLeader() width = %d, want 20", VisualWidth(DotLeader("package", 20)))
	}
}

func TestTaskList_Aligned(t *testing.T) {
	out := DefaultStyles().TaskList([]TaskLine{
		{Name: "start", Summary: "Starts a new project"},
		{Name: "package", Summary: "Packages an app"},
	})
	lines := strings.Split(strings.TrimRight(ansi.Strip(out), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	if strings.Index(lines[0], "Starts") != strings.Index(lines[1], "Packages") {
		t.Errorf("summaries not aligned:\n%s", out)
	}
}

func TestVersionsTable(t *testing.T) {
	out := ansi.Strip(DefaultStyles().VersionsTable([]service.Version{
		{UUID: "abcdef0123456789", Created: "2026-01-02", Note: "this note is definitely longer than 25 chars", Active: true},
		{UUID: "99999999aaaa", Created: "2026-01-01", Note: ""},
	}))

	if !strings.Contains(out, " * abcdef01\t") {
		t.Errorf("active row missing star and 8-char uuid:\n%s", out)
	}
	if !strings.Contains(out, "this note is definitely l\n") {
		t.Errorf("note not truncated to 25 chars:\n%s", out)
	}
	if !strings.Contains(out, "   99999999\t") {
		t.Errorf("inactive row malformed:\n%s", out)
	}
}

func TestBuildsTable(t *testing.T) {
	out := ansi.Strip(DefaultStyles().BuildsTable([]contracts.BuildEvent{
		{Timestamp: "2026-01-01T00:00:00Z", AppID: "app1", Platform: "android", Mode: "debug", Status: "success", PackagePath: "packages/app.apk"},
	}))
	if !strings.Contains(out, "packages/app.apk") || !strings.Contains(out, "android") {
		t.Errorf("BuildsTable() =\n%s", out)
	}
}

func TestPrinter(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPrinter(&out, &errOut)

	p.Info("Uploading %s", "app")
	p.Error("boom")
	p.Dots("android", 3)

	if !strings.Contains(ansi.Strip(out.String()), "Uploading app") {
		t.Errorf("Out = %q", out.String())
	}
	stripped := ansi.Strip(errOut.String())
	if !strings.Contains(stripped, "boom") || !strings.Contains(stripped, "android ...") {
		t.Errorf("Err = %q", errOut.String())
	}
}

func TestDownloadBar(t *testing.T) {
	var buf bytes.Buffer
	bar := NewDownloadBar(&buf, 200)
	clock := bar.start
	bar.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	n, err := bar.Write(make([]byte, 100))
	if err != nil || n != 100 {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	bar.Write(make([]byte, 100))
	bar.Finish()

	if bar.Written() != 200 {
		t.Errorf("Written() = %d, want 200", bar.Written())
	}
	out := ansi.Strip(buf.String())
	if !strings.Contains(out, " 50%") || !strings.Contains(out, "100%") {
		t.Errorf("progress output = %q", out)
	}
}

func TestDownloadBar_UnknownSize(t *testing.T) {
	var buf bytes.Buffer
	bar := NewDownloadBar(&buf, -1)
	bar.Write(make([]byte, 2048))
	bar.Finish()

	if !strings.Contains(buf.String(), "2.0 KiB downloaded") {
		t.Errorf("output = %q", buf.String())
	}
}
