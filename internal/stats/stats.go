// Package stats accumulates aggregate statistics over a correlated session.
//
// A single forward pass classifies every tool invocation into a closed set of
// materialized side effects (file change, file read, shell command, search,
// delegated task) with one explicit fallback for unrecognized tools. The
// classification is a tagged set of concrete types rather than runtime
// inspection, so the formatters stay exhaustive.
package stats

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"recap/internal/correlate"
	"recap/internal/session"
	"recap/internal/turns"
)

// Tool names understood by the classifier.
const (
	ToolWrite        = "Write"
	ToolEdit         = "Edit"
	ToolMultiEdit    = "MultiEdit"
	ToolRead         = "Read"
	ToolNotebookRead = "NotebookRead"
	ToolBash         = "Bash"
	ToolGrep         = "Grep"
	ToolGlob         = "Glob"
	ToolWebSearch    = "WebSearch"
	ToolTask         = "Task"
	ToolTodoWrite    = "TodoWrite"
)

// FileEdit is one localized before/after fragment of a modification.
type FileEdit struct {
	Old string
	New string
}

// FileChange records the materialized effect of write/edit tools on one file.
type FileChange struct {
	Path    string
	Action  string // "created" or "modified"
	Summary string
	Edits   []FileEdit
}

// Command records a shell invocation and its truncated output.
type Command struct {
	Command     string
	Description string
	Output      string
	Failed      bool
}

// SearchQuery is one deduplicated search-like invocation.
type SearchQuery struct {
	Tool    string
	Pattern string
	Matches int
}

// Delegation records a sub-task handed to a nested agent.
type Delegation struct {
	Description string
	Prompt      string
	Result      string
}

// ToolError captures a failed invocation for the error list.
type ToolError struct {
	Tool         string
	Error        string
	InputSummary string
}

// Todos is the progress snapshot from the most recent task-list invocation.
// Earlier snapshots are superseded, not merged.
type Todos struct {
	Completed  []string
	InProgress []string
	Pending    []string
}

// KindCount tracks per-tool call and error totals.
type KindCount struct {
	Calls  int
	Errors int
}

// Stats is the aggregate view of one session, built by a single forward pass
// and immutable afterwards.
type Stats struct {
	UserTurns      int
	AssistantTurns int
	ToolCalls      int
	ToolErrors     int
	ByTool         map[string]*KindCount
	ToolOrder      []string

	FilesRead   []string
	Changes     []*FileChange
	Commands    []Command
	SearchCount int
	Searches    []SearchQuery
	Tasks       []Delegation
	Other       []string
	Errors      []ToolError
	Todos       *Todos

	Started time.Time
	Ended   time.Time
}

// Options bound the text captured into the aggregate.
type Options struct {
	TextBudget      int // cap for captured outputs and fragments
	MaxEditsPerFile int // bound on edit fragments kept per file
}

func (o *Options) fill() {
	if o.TextBudget <= 0 {
		o.TextBudget = turns.DefaultBudget
	}
	if o.MaxEditsPerFile <= 0 {
		o.MaxEditsPerFile = 5
	}
}

// Aggregate walks the correlated records once and accumulates counts, touched
// resources, and per-tool breakdowns.
func Aggregate(records []session.Record, idx *correlate.Index, opts Options) *Stats {
	opts.fill()
	agg := &aggregator{
		idx:   idx,
		opts:  opts,
		stats: &Stats{ByTool: make(map[string]*KindCount)},
		files: make(map[string]*FileChange),
		read:  make(map[string]struct{}),
		seen:  make(map[string]struct{}),
	}

	for i := range records {
		record := &records[i]
		if !record.Timestamp.IsZero() {
			if agg.stats.Started.IsZero() {
				agg.stats.Started = record.Timestamp
			}
			if record.Timestamp.After(agg.stats.Ended) {
				agg.stats.Ended = record.Timestamp
			}
		}
		if record.IsConversational() {
			switch record.Kind {
			case session.EntryTypeUser:
				agg.stats.UserTurns++
			case session.EntryTypeAssistant:
				agg.stats.AssistantTurns++
			}
		}
		for _, block := range record.Content {
			if block.Type == session.BlockTypeToolUse {
				agg.invocation(block)
			}
		}
	}
	return agg.stats
}

type aggregator struct {
	idx   *correlate.Index
	opts  Options
	stats *Stats
	files map[string]*FileChange
	read  map[string]struct{}
	seen  map[string]struct{} // (tool, pattern) dedup for searches
}

func (a *aggregator) invocation(block session.ContentBlock) {
	a.stats.ToolCalls++
	count, ok := a.stats.ByTool[block.ToolName]
	if !ok {
		count = &KindCount{}
		a.stats.ByTool[block.ToolName] = count
		a.stats.ToolOrder = append(a.stats.ToolOrder, block.ToolName)
	}
	count.Calls++

	outcome, resolved := a.idx.Outcome(block.ToolID)
	if resolved && outcome.IsError {
		a.stats.ToolErrors++
		count.Errors++
		a.stats.Errors = append(a.stats.Errors, ToolError{
			Tool:         block.ToolName,
			Error:        a.clip(outcome.Text),
			InputSummary: a.clip(inputSummary(block.Input)),
		})
	}

	switch block.ToolName {
	case ToolWrite:
		a.write(block.Input)
	case ToolEdit:
		a.edit(block.Input)
	case ToolMultiEdit:
		a.multiEdit(block.Input)
	case ToolRead, ToolNotebookRead:
		a.readFile(block.Input)
	case ToolBash:
		a.command(block.Input, outcome, resolved)
	case ToolGrep, ToolGlob, ToolWebSearch:
		a.search(block.ToolName, block.Input, outcome, resolved)
	case ToolTask:
		a.task(block.Input, outcome, resolved)
	case ToolTodoWrite:
		a.todos(block.Input)
	default:
		a.stats.Other = append(a.stats.Other,
			fmt.Sprintf("%s: %s", block.ToolName, a.clip(inputSummary(block.Input))))
	}
}

func (a *aggregator) change(path string) *FileChange {
	if change, ok := a.files[path]; ok {
		return change
	}
	change := &FileChange{Path: path}
	a.files[path] = change
	a.stats.Changes = append(a.stats.Changes, change)
	return change
}

func (a *aggregator) write(input json.RawMessage) {
	var payload struct {
		FilePath string `json:"file_path"`
		Content  string `json:"content"`
	}
	if err := json.Unmarshal(input, &payload); err != nil || payload.FilePath == "" {
		return
	}
	change := a.change(payload.FilePath)
	if change.Action == "" || change.Action == "modified" {
		change.Action = "created"
	}
	change.Summary = fmt.Sprintf("%d lines written", countLines(payload.Content))
}

func (a *aggregator) edit(input json.RawMessage) {
	var payload struct {
		FilePath  string `json:"file_path"`
		OldString string `json:"old_string"`
		NewString string `json:"new_string"`
	}
	if err := json.Unmarshal(input, &payload); err != nil || payload.FilePath == "" {
		return
	}
	change := a.change(payload.FilePath)
	if change.Action == "" {
		change.Action = "modified"
	}
	a.appendEdit(change, payload.OldString, payload.NewString)
}

func (a *aggregator) multiEdit(input json.RawMessage) {
	var payload struct {
		FilePath string `json:"file_path"`
		Edits    []struct {
			OldString string `json:"old_string"`
			NewString string `json:"new_string"`
		} `json:"edits"`
	}
	if err := json.Unmarshal(input, &payload); err != nil || payload.FilePath == "" {
		return
	}
	change := a.change(payload.FilePath)
	if change.Action == "" {
		change.Action = "modified"
	}
	for _, edit := range payload.Edits {
		a.appendEdit(change, edit.OldString, edit.NewString)
	}
}

func (a *aggregator) appendEdit(change *FileChange, oldText, newText string) {
	if len(change.Edits) >= a.opts.MaxEditsPerFile {
		return
	}
	change.Edits = append(change.Edits, FileEdit{Old: a.clip(oldText), New: a.clip(newText)})
}

func (a *aggregator) readFile(input json.RawMessage) {
	var payload struct {
		FilePath string `json:"file_path"`
	}
	if err := json.Unmarshal(input, &payload); err != nil || payload.FilePath == "" {
		return
	}
	if _, ok := a.read[payload.FilePath]; ok {
		return
	}
	a.read[payload.FilePath] = struct{}{}
	a.stats.FilesRead = append(a.stats.FilesRead, payload.FilePath)
}

func (a *aggregator) command(input json.RawMessage, outcome correlate.Outcome, resolved bool) {
	var payload struct {
		Command     string `json:"command"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(input, &payload); err != nil || payload.Command == "" {
		return
	}
	cmd := Command{
		Command:     a.clip(payload.Command),
		Description: payload.Description,
	}
	if resolved {
		cmd.Output = a.clip(outcome.Text)
		cmd.Failed = outcome.IsError
	}
	a.stats.Commands = append(a.stats.Commands, cmd)
}

func (a *aggregator) search(tool string, input json.RawMessage, outcome correlate.Outcome, resolved bool) {
	var payload struct {
		Pattern string `json:"pattern"`
		Query   string `json:"query"`
	}
	if err := json.Unmarshal(input, &payload); err != nil {
		return
	}
	pattern := payload.Pattern
	if pattern == "" {
		pattern = payload.Query
	}
	if pattern == "" {
		return
	}

	a.stats.SearchCount++
	key := tool + "\x00" + pattern
	if _, ok := a.seen[key]; ok {
		return
	}
	a.seen[key] = struct{}{}

	query := SearchQuery{Tool: tool, Pattern: pattern}
	if resolved && !outcome.IsError {
		query.Matches = countLines(strings.TrimSpace(outcome.Text))
	}
	a.stats.Searches = append(a.stats.Searches, query)
}

func (a *aggregator) task(input json.RawMessage, outcome correlate.Outcome, resolved bool) {
	var payload struct {
		Description string `json:"description"`
		Prompt      string `json:"prompt"`
	}
	if err := json.Unmarshal(input, &payload); err != nil {
		return
	}
	delegation := Delegation{
		Description: payload.Description,
		Prompt:      a.clip(payload.Prompt),
	}
	if resolved {
		delegation.Result = a.clip(outcome.Text)
	}
	a.stats.Tasks = append(a.stats.Tasks, delegation)
}

func (a *aggregator) todos(input json.RawMessage) {
	var payload struct {
		Todos []struct {
			Content string `json:"content"`
			Status  string `json:"status"`
		} `json:"todos"`
	}
	if err := json.Unmarshal(input, &payload); err != nil || len(payload.Todos) == 0 {
		return
	}
	// The latest snapshot supersedes earlier ones.
	todos := &Todos{}
	for _, item := range payload.Todos {
		switch item.Status {
		case "completed":
			todos.Completed = append(todos.Completed, item.Content)
		case "in_progress":
			todos.InProgress = append(todos.InProgress, item.Content)
		default:
			todos.Pending = append(todos.Pending, item.Content)
		}
	}
	a.stats.Todos = todos
}

func (a *aggregator) clip(s string) string {
	return turns.Truncate(s, a.opts.TextBudget)
}

// inputSummary renders an opaque tool input as compact JSON-ish text. The
// payload is structured data, never a live object graph, so nesting depth
// cannot recurse.
func inputSummary(input json.RawMessage) string {
	trimmed := strings.TrimSpace(string(input))
	if trimmed == "" {
		return "{}"
	}
	return trimmed
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
