package session

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// ErrNoRecords is returned when a log file contains no parseable entries.
var ErrNoRecords = errors.New("no valid records found in session file")

// ParseFile reads a session log and returns its records in file order.
// Lines that fail to parse are skipped; a process killed mid-write leaves
// a corrupt trailing line, and that must not abort the whole projection.
func ParseFile(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open session file: %w", err)
	}
	defer file.Close() //nolint:errcheck

	records, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}

// Parse reads newline-delimited records from r, skipping unparseable lines.
func Parse(r io.Reader) ([]Record, error) {
	scanner := NewScanner(r)
	var records []Record
	for scanner.Scan() {
		record, err := ParseLine(scanner.Bytes())
		if err != nil {
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("scan session: %w", err)
	}
	return records, nil
}

// Meta summarizes the identifying fields of a session log.
type Meta struct {
	ID        string
	Path      string
	CWD       string
	Version   string
	StartedAt time.Time
}

// ReadMeta loads metadata from the first timestamped record in a session file.
func ReadMeta(path string) (*Meta, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open session file: %w", err)
	}
	defer file.Close() //nolint:errcheck

	scanner := NewScanner(file)
	for scanner.Scan() {
		record, err := ParseLine(scanner.Bytes())
		if err != nil || record.Timestamp.IsZero() {
			continue
		}
		return &Meta{
			ID:        record.SessionID,
			Path:      path,
			CWD:       record.CWD,
			Version:   record.Version,
			StartedAt: record.Timestamp,
		}, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return nil, ErrNoRecords
}

// NewScanner returns a line scanner sized for large tool payloads.
func NewScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	const maxCapacity = 8 * 1024 * 1024
	buf := make([]byte, 1024)
	scanner.Buffer(buf, maxCapacity)
	return scanner
}

// FirstUserText returns the first conversational user record's text.
func FirstUserText(records []Record) string {
	for i := range records {
		if records[i].Kind == EntryTypeUser && records[i].IsConversational() {
			return records[i].Text()
		}
	}
	return ""
}

func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("missing timestamp")
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, value)
}

func flattenResultText(parts []string) string {
	return strings.Join(parts, "\n")
}
