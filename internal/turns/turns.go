// Package turns groups session records into ordered conversational turns.
package turns

import "recap/internal/session"

// DefaultBudget is the character cap applied to each segment's text.
const DefaultBudget = 400

// Segment is one conversational contribution within a numbered turn.
type Segment struct {
	Turn int
	Role string
	Text string
}

// Split walks records in order and emits a segment for every genuine
// conversational record. A user record opens a new turn; an assistant record
// attaches to the turn most recently opened by a user. Synthetic tool-result
// containers contribute nothing and never advance the turn counter.
func Split(records []session.Record, budget int) []Segment {
	if budget <= 0 {
		budget = DefaultBudget
	}

	var segments []Segment
	turn := 0
	for i := range records {
		record := &records[i]
		if !record.IsConversational() {
			continue
		}
		switch record.Kind {
		case session.EntryTypeUser:
			turn++
			segments = append(segments, Segment{Turn: turn, Role: "user", Text: Truncate(record.Text(), budget)})
		case session.EntryTypeAssistant:
			current := turn
			if current == 0 {
				current = 1
			}
			segments = append(segments, Segment{Turn: current, Role: "assistant", Text: Truncate(record.Text(), budget)})
		}
	}
	return segments
}

const ellipsis = "..."

// Truncate caps s at max runes, replacing the tail with an ellipsis marker.
// The marker counts against the budget, so truncating an already-truncated
// string at the same budget returns it unchanged.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= len(ellipsis) {
		return string(runes[:max])
	}
	return string(runes[:max-len(ellipsis)]) + ellipsis
}
