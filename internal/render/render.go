// Package render turns a correlated, segmented, aggregated session into its
// two derived artifacts: a Markdown transcript and a compact JSON summary.
// Both formatters are pure functions of Input; all I/O belongs to the caller.
package render

import (
	"recap/internal/correlate"
	"recap/internal/gitinfo"
	"recap/internal/session"
	"recap/internal/stats"
	"recap/internal/turns"
)

// Format version markers, embedded in both artifacts so a future reader can
// detect schema drift.
const (
	SummaryFormat     = "recap-summary"
	SummaryVersion    = 1
	TranscriptVersion = "recap-transcript/1"
)

// Input is everything the formatters consume. The two projections share all
// upstream data but have independent rendering rules.
type Input struct {
	Meta    *session.Meta
	Records []session.Record
	Index   *correlate.Index
	Stats   *stats.Stats
	Turns   []turns.Segment
	Git     gitinfo.Context
}

// Options controls what the transcript includes. The compact summary ignores
// them; its shape is fixed.
type Options struct {
	// IncludeThinking renders internal-reasoning blocks.
	IncludeThinking bool

	// IncludeToolOutput renders tool outcome bodies. Disabling it keeps the
	// action history visible while shrinking the document considerably.
	IncludeToolOutput bool

	// TruncateChars caps individual text fields, shared with the upstream
	// segmenter so token budgets stay predictable.
	TruncateChars int
}

func (o Options) budget() int {
	if o.TruncateChars <= 0 {
		return turns.DefaultBudget
	}
	return o.TruncateChars
}
