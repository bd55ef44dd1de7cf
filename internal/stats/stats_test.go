package stats

import (
	"encoding/json"
	"strings"
	"testing"

	"recap/internal/correlate"
	"recap/internal/session"
)

func invocation(tool, id, input string) session.Record {
	return session.Record{
		Kind: session.EntryTypeAssistant,
		Role: "assistant",
		Content: []session.ContentBlock{{
			Type:     session.BlockTypeToolUse,
			ToolName: tool,
			ToolID:   id,
			Input:    json.RawMessage(input),
		}},
	}
}

func result(id, text string, isError bool) session.Record {
	return session.Record{
		Kind: session.EntryTypeUser,
		Role: "user",
		Content: []session.ContentBlock{{
			Type:      session.BlockTypeToolResult,
			ToolUseID: id,
			Text:      text,
			IsError:   isError,
		}},
	}
}

func aggregate(records []session.Record) *Stats {
	return Aggregate(records, correlate.Build(records), Options{})
}

func TestAggregate_PendingWriteBecomesCreatedChange(t *testing.T) {
	records := []session.Record{
		invocation(ToolWrite, "w1", `{"file_path":"a.txt","content":"line1\nline2"}`),
	}

	agg := aggregate(records)
	if len(agg.Changes) != 1 {
		t.Fatalf("expected one change, got %d", len(agg.Changes))
	}
	change := agg.Changes[0]
	if change.Path != "a.txt" || change.Action != "created" {
		t.Fatalf("unexpected change: %#v", change)
	}
	if change.Summary != "2 lines written" {
		t.Fatalf("unexpected summary: %q", change.Summary)
	}
	if len(agg.Errors) != 0 {
		t.Fatalf("pending invocation must not produce an error entry")
	}
}

func TestAggregate_SearchDeduplication(t *testing.T) {
	records := []session.Record{
		invocation(ToolGrep, "g1", `{"pattern":"TODO"}`),
		result("g1", "a.txt:1: TODO x\nb.txt:2: TODO y", false),
		invocation(ToolGrep, "g2", `{"pattern":"TODO"}`),
		result("g2", "a.txt:1: TODO x", false),
	}

	agg := aggregate(records)
	if agg.SearchCount != 2 {
		t.Fatalf("expected total count 2, got %d", agg.SearchCount)
	}
	if len(agg.Searches) != 1 {
		t.Fatalf("expected one unique pattern, got %d", len(agg.Searches))
	}
	if agg.Searches[0].Pattern != "TODO" || agg.Searches[0].Matches != 2 {
		t.Fatalf("unexpected search entry: %#v", agg.Searches[0])
	}
}

func TestAggregate_ErrorOutcome(t *testing.T) {
	records := []session.Record{
		invocation(ToolBash, "b1", `{"command":"make build","description":"build"}`),
		result("b1", "make: *** [build] Error 2", true),
	}

	agg := aggregate(records)
	if agg.ToolErrors != 1 {
		t.Fatalf("expected one tool error, got %d", agg.ToolErrors)
	}
	if len(agg.Errors) != 1 || agg.Errors[0].Tool != ToolBash {
		t.Fatalf("unexpected error list: %#v", agg.Errors)
	}
	if count := agg.ByTool[ToolBash]; count.Calls != 1 || count.Errors != 1 {
		t.Fatalf("unexpected per-tool count: %#v", count)
	}
	if len(agg.Commands) != 1 || !agg.Commands[0].Failed {
		t.Fatalf("command should be recorded as failed: %#v", agg.Commands)
	}
}

func TestAggregate_WriteThenEditStaysCreated(t *testing.T) {
	records := []session.Record{
		invocation(ToolWrite, "w1", `{"file_path":"a.txt","content":"x"}`),
		invocation(ToolEdit, "e1", `{"file_path":"a.txt","old_string":"x","new_string":"y"}`),
	}

	agg := aggregate(records)
	if len(agg.Changes) != 1 {
		t.Fatalf("expected a single merged change, got %d", len(agg.Changes))
	}
	change := agg.Changes[0]
	if change.Action != "created" {
		t.Fatalf("created must not be demoted to modified: %#v", change)
	}
	if len(change.Edits) != 1 || change.Edits[0].Old != "x" || change.Edits[0].New != "y" {
		t.Fatalf("unexpected edit fragments: %#v", change.Edits)
	}
}

func TestAggregate_EditFragmentsBounded(t *testing.T) {
	records := []session.Record{
		invocation(ToolMultiEdit, "m1",
			`{"file_path":"big.go","edits":[{"old_string":"1"},{"old_string":"2"},{"old_string":"3"}]}`),
	}

	agg := Aggregate(records, correlate.Build(records), Options{MaxEditsPerFile: 2})
	if len(agg.Changes) != 1 || len(agg.Changes[0].Edits) != 2 {
		t.Fatalf("edit fragments must be bounded: %#v", agg.Changes)
	}
}

func TestAggregate_UnknownToolFallsThrough(t *testing.T) {
	records := []session.Record{
		invocation("FetchURL", "f1", `{"url":"https://example.com","nested":{"very":{"deep":true}}}`),
	}

	agg := aggregate(records)
	if len(agg.Other) != 1 || !strings.HasPrefix(agg.Other[0], "FetchURL: ") {
		t.Fatalf("unknown tool should land in the generic bucket: %#v", agg.Other)
	}
	if agg.ToolCalls != 1 {
		t.Fatalf("generic invocations still count: %d", agg.ToolCalls)
	}
}

func TestAggregate_LatestTodoSnapshotWins(t *testing.T) {
	records := []session.Record{
		invocation(ToolTodoWrite, "t1",
			`{"todos":[{"content":"step one","status":"in_progress"},{"content":"step two","status":"pending"}]}`),
		invocation(ToolTodoWrite, "t2",
			`{"todos":[{"content":"step one","status":"completed"},{"content":"step two","status":"in_progress"}]}`),
	}

	agg := aggregate(records)
	if agg.Todos == nil {
		t.Fatalf("expected a todo snapshot")
	}
	if len(agg.Todos.Completed) != 1 || agg.Todos.Completed[0] != "step one" {
		t.Fatalf("earlier snapshot should be superseded: %#v", agg.Todos)
	}
	if len(agg.Todos.Pending) != 0 {
		t.Fatalf("stale pending items survived: %#v", agg.Todos)
	}
}

func TestAggregate_ReadDeduplicatesPaths(t *testing.T) {
	records := []session.Record{
		invocation(ToolRead, "r1", `{"file_path":"main.go"}`),
		invocation(ToolRead, "r2", `{"file_path":"main.go"}`),
		invocation(ToolRead, "r3", `{"file_path":"util.go"}`),
	}

	agg := aggregate(records)
	if len(agg.FilesRead) != 2 {
		t.Fatalf("expected two unique files, got %v", agg.FilesRead)
	}
}

func TestAggregate_TurnCounts(t *testing.T) {
	records := []session.Record{
		{Kind: session.EntryTypeUser, Role: "user", Content: []session.ContentBlock{{Type: session.BlockTypeText, Text: "hi"}}},
		result("x", "ok", false),
		{Kind: session.EntryTypeAssistant, Role: "assistant", Content: []session.ContentBlock{{Type: session.BlockTypeText, Text: "hello"}}},
	}

	agg := aggregate(records)
	if agg.UserTurns != 1 || agg.AssistantTurns != 1 {
		t.Fatalf("outcome containers must not count as turns: %d/%d", agg.UserTurns, agg.AssistantTurns)
	}
}
