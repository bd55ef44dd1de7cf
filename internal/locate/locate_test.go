package locate

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEncodePath(t *testing.T) {
	cases := map[string]string{
		"/home/dev/project":  "-home-dev-project",
		"/home/dev/proj.git": "-home-dev-proj-git",
		"/a/b_c d":           "-a-b-c-d",
	}
	for input, want := range cases {
		if got := EncodePath(input); got != want {
			t.Fatalf("EncodePath(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestProjectDir_MatchPriority(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"-home-dev-project", "-Home-Dev-Other", "-home-dev-pro"} {
		if err := os.Mkdir(filepath.Join(root, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	// Exact match wins.
	dir, err := ProjectDir(root, "/home/dev/project")
	if err != nil {
		t.Fatalf("ProjectDir returned error: %v", err)
	}
	if filepath.Base(dir) != "-home-dev-project" {
		t.Fatalf("expected exact match, got %s", dir)
	}

	// Case-insensitive match second.
	dir, err = ProjectDir(root, "/home/dev/other")
	if err != nil {
		t.Fatalf("ProjectDir returned error: %v", err)
	}
	if filepath.Base(dir) != "-Home-Dev-Other" {
		t.Fatalf("expected case-insensitive match, got %s", dir)
	}

	// Longest prefix last.
	dir, err = ProjectDir(root, "/home/dev/protocols")
	if err != nil {
		t.Fatalf("ProjectDir returned error: %v", err)
	}
	if filepath.Base(dir) != "-home-dev-pro" {
		t.Fatalf("expected prefix match, got %s", dir)
	}
}

func TestProjectDir_NoMatchListsAlternatives(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "-existing-project"), 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := ProjectDir(root, "/somewhere/else")
	if err == nil {
		t.Fatalf("expected lookup failure")
	}
	var noData *NoSessionDataError
	if !errors.As(err, &noData) {
		t.Fatalf("expected NoSessionDataError, got %T", err)
	}
	if noData.Key != "-somewhere-else" {
		t.Fatalf("unexpected key: %s", noData.Key)
	}
	if !strings.Contains(err.Error(), "-existing-project") {
		t.Fatalf("error should list alternatives: %v", err)
	}
}

func writeSession(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func sessionLine(ts string) string {
	return `{"type":"user","timestamp":"` + ts + `","message":{"role":"user","content":"hi"}}`
}

func TestActiveSession_PrefersNewestRecordOverMtime(t *testing.T) {
	dir := t.TempDir()

	older := writeSession(t, dir, "older.jsonl",
		sessionLine("2025-06-10T10:00:00Z"),
		sessionLine("2025-06-10T10:05:00Z"))
	newer := writeSession(t, dir, "newer.jsonl",
		sessionLine("2025-06-10T11:00:00Z"),
		sessionLine("2025-06-10T11:30:00Z"))

	// Make the stale log look fresher on disk; record timestamps must win.
	now := time.Now()
	if err := os.Chtimes(older, now, now); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(newer, now.Add(-24*time.Hour), now.Add(-24*time.Hour)); err != nil {
		t.Fatal(err)
	}

	got, err := ActiveSession(dir)
	if err != nil {
		t.Fatalf("ActiveSession returned error: %v", err)
	}
	if got != newer {
		t.Fatalf("expected %s, got %s", newer, got)
	}
}

func TestActiveSession_NoSessions(t *testing.T) {
	_, err := ActiveSession(t.TempDir())
	if !errors.Is(err, ErrNoSessions) {
		t.Fatalf("expected ErrNoSessions, got %v", err)
	}
}

func TestTailTimestamp_SkipsCorruptTrailingLine(t *testing.T) {
	dir := t.TempDir()
	path := writeSession(t, dir, "cut.jsonl",
		sessionLine("2025-06-10T10:00:00Z"),
		sessionLine("2025-06-10T10:07:00Z"),
		`{"type":"assistant","timest`)

	ts, ok := TailTimestamp(path, DefaultTailWindow)
	if !ok {
		t.Fatalf("expected a timestamp")
	}
	if got := ts.Format(time.RFC3339); got != "2025-06-10T10:07:00Z" {
		t.Fatalf("unexpected timestamp: %s", got)
	}
}

func TestTailTimestamp_BoundedWindow(t *testing.T) {
	dir := t.TempDir()

	// Pad the head with lines that fall outside a tiny window.
	lines := make([]string, 0, 40)
	for i := 0; i < 39; i++ {
		lines = append(lines, sessionLine("2025-06-10T09:00:00Z"))
	}
	lines = append(lines, sessionLine("2025-06-10T12:00:00Z"))
	path := writeSession(t, dir, "long.jsonl", lines...)

	ts, ok := TailTimestamp(path, 256)
	if !ok {
		t.Fatalf("expected a timestamp inside the window")
	}
	if got := ts.Format(time.RFC3339); got != "2025-06-10T12:00:00Z" {
		t.Fatalf("unexpected timestamp: %s", got)
	}
}

func TestTailTimestamp_NoTimestampedRecords(t *testing.T) {
	dir := t.TempDir()
	path := writeSession(t, dir, "bare.jsonl", `{"not":"a record"}`)

	if _, ok := TailTimestamp(path, DefaultTailWindow); ok {
		t.Fatalf("expected no timestamp")
	}
}

func TestSessions_FiltersNonLogs(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir, "a.jsonl", sessionLine("2025-06-10T10:00:00Z"))
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	paths, err := Sessions(dir)
	if err != nil {
		t.Fatalf("Sessions returned error: %v", err)
	}
	if len(paths) != 1 || filepath.Base(paths[0]) != "a.jsonl" {
		t.Fatalf("unexpected paths: %v", paths)
	}
}
