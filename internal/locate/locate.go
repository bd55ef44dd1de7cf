// Package locate resolves which session log to project.
//
// Two collaborators live here: the project-directory resolver, which maps a
// working directory to its path-encoded storage directory, and the
// active-stream selector, which picks the session whose most recent record is
// newest among several concurrently-growing logs.
package locate

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"recap/internal/session"
)

// DefaultTailWindow is how many trailing bytes of each candidate log the
// selector inspects when looking for the last timestamped record.
const DefaultTailWindow = 16 * 1024

// ErrNoSessions is returned when a project directory holds no session logs.
var ErrNoSessions = errors.New("no session logs found")

// NoSessionDataError reports a failed project-directory lookup, carrying the
// attempted key and the available alternatives.
type NoSessionDataError struct {
	Key       string
	Available []string
}

func (e *NoSessionDataError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("no session data for %s", e.Key)
	}
	alternatives := e.Available
	if len(alternatives) > 10 {
		alternatives = alternatives[:10]
	}
	return fmt.Sprintf("no session data for %s (available: %s)",
		e.Key, strings.Join(alternatives, ", "))
}

// DefaultRoot returns the session storage root, honoring RECAP_SESSIONS_DIR.
func DefaultRoot() string {
	if dir := os.Getenv("RECAP_SESSIONS_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".claude", "projects")
}

// EncodePath converts a working directory into its storage directory name.
// Every non-alphanumeric rune becomes a dash, so /home/x/proj.git maps to
// -home-x-proj-git.
func EncodePath(cwd string) string {
	var b strings.Builder
	for _, r := range cwd {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('-')
	}
	return b.String()
}

// ProjectDir finds the storage directory for cwd under root. Match priority:
// exact, then case-insensitive, then longest shared prefix.
func ProjectDir(root, cwd string) (string, error) {
	key := EncodePath(cwd)

	entries, err := os.ReadDir(root)
	if err != nil {
		return "", &NoSessionDataError{Key: key}
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if name == key {
			return filepath.Join(root, name), nil
		}
	}
	for _, name := range names {
		if strings.EqualFold(name, key) {
			return filepath.Join(root, name), nil
		}
	}

	best := ""
	bestLen := 0
	lowerKey := strings.ToLower(key)
	for _, name := range names {
		lower := strings.ToLower(name)
		if !strings.HasPrefix(lowerKey, lower) && !strings.HasPrefix(lower, lowerKey) {
			continue
		}
		shared := len(lower)
		if len(lowerKey) < shared {
			shared = len(lowerKey)
		}
		if shared > bestLen {
			best = name
			bestLen = shared
		}
	}
	if best != "" {
		return filepath.Join(root, best), nil
	}

	return "", &NoSessionDataError{Key: key, Available: names}
}

// Sessions lists the session log files in a project directory.
func Sessions(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read project dir: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// ActiveSession picks the log in dir whose last parseable record carries the
// newest timestamp. File modification time is only a fallback for candidates
// with no timestamped trailing record; the OS can reorder mtimes relative to
// which stream is actively appended.
func ActiveSession(dir string) (string, error) {
	paths, err := Sessions(dir)
	if err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "", ErrNoSessions
	}

	best := ""
	var bestTime time.Time
	for _, path := range paths {
		ts, ok := TailTimestamp(path, DefaultTailWindow)
		if !ok {
			info, statErr := os.Stat(path)
			if statErr != nil {
				continue
			}
			ts = info.ModTime()
		}
		if best == "" || ts.After(bestTime) {
			best = path
			bestTime = ts
		}
	}
	if best == "" {
		return "", ErrNoSessions
	}
	return best, nil
}

// TailTimestamp scans backward through the last window bytes of a log for the
// newest line that parses and carries a timestamp. Reading only a bounded
// trailing window keeps selection cheap across many candidates; a log whose
// trailing window holds no timestamp falls back to mtime in the caller.
func TailTimestamp(path string, window int64) (time.Time, bool) {
	file, err := os.Open(path)
	if err != nil {
		return time.Time{}, false
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		return time.Time{}, false
	}

	offset := int64(0)
	if info.Size() > window {
		offset = info.Size() - window
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return time.Time{}, false
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return time.Time{}, false
	}

	lines := strings.Split(string(data), "\n")
	if offset > 0 && len(lines) > 0 {
		// The first line is almost certainly cut by the window boundary.
		lines = lines[1:]
	}

	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		record, err := session.ParseLine([]byte(line))
		if err != nil || record.Timestamp.IsZero() {
			continue
		}
		return record.Timestamp, true
	}
	return time.Time{}, false
}
