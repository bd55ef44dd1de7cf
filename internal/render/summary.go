package render

import (
	"encoding/json"
	"fmt"
	"time"

	"recap/internal/session"
)

// Compact is the machine-readable summary document. Optional fields are
// omitted entirely when their collection is empty, never emitted as empty
// containers.
type Compact struct {
	Format   string       `json:"format"`
	Version  int          `json:"version"`
	Session  SessionInfo  `json:"session"`
	Task     string       `json:"task,omitempty"`
	Progress *Progress    `json:"progress,omitempty"`
	Changes  []Change     `json:"changes,omitempty"`
	Files    []string     `json:"files_read,omitempty"`
	Errors   []ErrorEntry `json:"errors,omitempty"`
	Actions  []Action     `json:"actions,omitempty"`
	Searches *Searches    `json:"searches,omitempty"`
	Digest   []DigestLine `json:"conversation_digest,omitempty"`
	Git      *GitContext  `json:"git_context,omitempty"`
}

// SessionInfo is the session metadata block.
type SessionInfo struct {
	ID              string `json:"id,omitempty"`
	Project         string `json:"project,omitempty"`
	Branch          string `json:"branch,omitempty"`
	Started         string `json:"started,omitempty"`
	Ended           string `json:"ended,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
	ToolCalls       int    `json:"tool_calls"`
	ErrorCount      int    `json:"error_count"`
}

// Progress is the three-bucket task view from the latest task-list snapshot.
type Progress struct {
	Completed  []string `json:"completed,omitempty"`
	InProgress []string `json:"in_progress,omitempty"`
	Pending    []string `json:"pending,omitempty"`
}

// Change is one per-file entry in the change list.
type Change struct {
	File    string     `json:"file"`
	Action  string     `json:"action"`
	Summary string     `json:"summary,omitempty"`
	Edits   []EditPair `json:"edits,omitempty"`
}

// EditPair is one localized before/after fragment.
type EditPair struct {
	Old string `json:"old,omitempty"`
	New string `json:"new,omitempty"`
}

// ErrorEntry is one captured tool failure.
type ErrorEntry struct {
	Tool         string `json:"tool"`
	Error        string `json:"error"`
	InputSummary string `json:"input_summary,omitempty"`
}

// Action is one notable shell or delegated-task invocation.
type Action struct {
	Type    string `json:"type"`
	Summary string `json:"summary"`
	Detail  string `json:"detail,omitempty"`
	Failed  bool   `json:"failed,omitempty"`
}

// Searches summarizes search-like invocations after deduplication.
type Searches struct {
	Count          int      `json:"count"`
	UniquePatterns []string `json:"unique_patterns"`
}

// DigestLine is one entry of the turn-by-turn digest.
type DigestLine struct {
	Turn    int    `json:"turn"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GitContext is the version-control block.
type GitContext struct {
	Branch             string   `json:"branch"`
	RecentCommits      []string `json:"recent_commits,omitempty"`
	UncommittedChanges []string `json:"uncommitted_changes,omitempty"`
}

// Summary builds the compact projection.
func Summary(in Input) Compact {
	doc := Compact{
		Format:  SummaryFormat,
		Version: SummaryVersion,
		Session: sessionInfo(in),
		// The first conversational user record verbatim: it is the task the
		// whole session served, so it is never truncated.
		Task: session.FirstUserText(in.Records),
	}

	if todos := in.Stats.Todos; todos != nil {
		doc.Progress = &Progress{
			Completed:  todos.Completed,
			InProgress: todos.InProgress,
			Pending:    todos.Pending,
		}
	}

	for _, change := range in.Stats.Changes {
		entry := Change{File: change.Path, Action: change.Action, Summary: change.Summary}
		for _, edit := range change.Edits {
			entry.Edits = append(entry.Edits, EditPair{Old: edit.Old, New: edit.New})
		}
		doc.Changes = append(doc.Changes, entry)
	}

	doc.Files = append(doc.Files, in.Stats.FilesRead...)

	for _, failure := range in.Stats.Errors {
		doc.Errors = append(doc.Errors, ErrorEntry{
			Tool:         failure.Tool,
			Error:        failure.Error,
			InputSummary: failure.InputSummary,
		})
	}

	for _, cmd := range in.Stats.Commands {
		doc.Actions = append(doc.Actions, Action{
			Type:    "command",
			Summary: cmd.Command,
			Detail:  cmd.Description,
			Failed:  cmd.Failed,
		})
	}
	for _, task := range in.Stats.Tasks {
		doc.Actions = append(doc.Actions, Action{
			Type:    "task",
			Summary: task.Description,
			Detail:  task.Result,
		})
	}

	if in.Stats.SearchCount > 0 {
		patterns := make([]string, 0, len(in.Stats.Searches))
		for _, query := range in.Stats.Searches {
			patterns = append(patterns, query.Pattern)
		}
		doc.Searches = &Searches{Count: in.Stats.SearchCount, UniquePatterns: patterns}
	}

	for _, segment := range in.Turns {
		doc.Digest = append(doc.Digest, DigestLine{
			Turn:    segment.Turn,
			Role:    segment.Role,
			Content: segment.Text,
		})
	}

	doc.Git = &GitContext{
		Branch:             in.Git.Branch,
		RecentCommits:      in.Git.RecentCommits,
		UncommittedChanges: in.Git.UncommittedChanges,
	}

	return doc
}

// MarshalSummary renders the compact projection as indented JSON.
func MarshalSummary(doc Compact) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	return append(data, '\n'), nil
}

func sessionInfo(in Input) SessionInfo {
	info := SessionInfo{
		Branch:     in.Git.Branch,
		ToolCalls:  in.Stats.ToolCalls,
		ErrorCount: in.Stats.ToolErrors,
	}
	if in.Meta != nil {
		info.ID = in.Meta.ID
		info.Project = in.Meta.CWD
	}
	if !in.Stats.Started.IsZero() {
		info.Started = in.Stats.Started.Format(time.RFC3339)
	}
	if !in.Stats.Ended.IsZero() {
		info.Ended = in.Stats.Ended.Format(time.RFC3339)
	}
	if !in.Stats.Started.IsZero() && !in.Stats.Ended.IsZero() {
		info.DurationMinutes = int(in.Stats.Ended.Sub(in.Stats.Started).Minutes())
	}
	return info
}
