// Package correlate pairs tool invocations with their results by id.
//
// The log is a flat append-only stream: an assistant record emits tool_use
// blocks, and the matching tool_result arrives later inside a synthetic user
// record. The pairing is an explicit id-keyed index over the record slice,
// never object links; records stay immutable and outcomes are looked up at
// formatting time instead of being copied next to their invocations.
package correlate

import (
	"fmt"

	"recap/internal/session"
)

// Outcome is a resolved tool result.
type Outcome struct {
	Text    string
	IsError bool
}

// Index maps tool invocation ids to their outcomes for one pass over a log.
type Index struct {
	outcomes map[string]Outcome

	// Warnings collects data-integrity notes (duplicate outcome ids).
	// They never fail the projection.
	Warnings []string
}

// Build walks the records once and registers every tool_result under its
// tool_use_id. A result whose id never matches an invocation is dropped by
// construction: lookups only happen for known invocations. Results may appear
// anywhere after their invocation; the single map handles any interleaving.
func Build(records []session.Record) *Index {
	idx := &Index{outcomes: make(map[string]Outcome)}
	for i := range records {
		for _, block := range records[i].Content {
			if block.Type != session.BlockTypeToolResult || block.ToolUseID == "" {
				continue
			}
			if _, seen := idx.outcomes[block.ToolUseID]; seen {
				idx.Warnings = append(idx.Warnings,
					fmt.Sprintf("multiple results for tool call %s; keeping the last", block.ToolUseID))
			}
			idx.outcomes[block.ToolUseID] = Outcome{Text: block.Text, IsError: block.IsError}
		}
	}
	return idx
}

// Outcome returns the result registered for id. The second return value is
// false when the invocation is still pending at end of stream, which is a
// valid terminal state, not an error.
func (idx *Index) Outcome(id string) (Outcome, bool) {
	outcome, ok := idx.outcomes[id]
	return outcome, ok
}
