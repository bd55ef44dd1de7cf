package render

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"recap/internal/session"
	"recap/internal/stats"
	"recap/internal/turns"
)

// Transcript builds the narrative projection: a Markdown document with a
// metadata table, aggregate summary, and a strict chronological replay of
// every conversational turn and tool invocation with its resolved outcome.
func Transcript(in Input, opts Options) string {
	var b strings.Builder
	budget := opts.budget()

	b.WriteString("# Session Transcript\n\n")
	writeMetadataTable(&b, in)

	b.WriteString("\n## Summary\n\n")
	writeSummarySection(&b, in)

	b.WriteString("\n## Conversation\n")
	writeConversation(&b, in, opts, budget)

	b.WriteString("\n---\n")
	fmt.Fprintf(&b, "_%s_\n", TranscriptVersion)
	return b.String()
}

func writeMetadataTable(b *strings.Builder, in Input) {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Field", "Value"})

	if in.Meta != nil {
		tw.AppendRow(table.Row{"Session ID", in.Meta.ID})
		tw.AppendRow(table.Row{"Project", in.Meta.CWD})
		if in.Meta.Version != "" {
			tw.AppendRow(table.Row{"CLI Version", in.Meta.Version})
		}
	}
	tw.AppendRow(table.Row{"Branch", in.Git.Branch})
	if !in.Stats.Started.IsZero() {
		tw.AppendRow(table.Row{"Started", in.Stats.Started.Format(time.RFC3339)})
	}
	if !in.Stats.Ended.IsZero() {
		tw.AppendRow(table.Row{"Ended", in.Stats.Ended.Format(time.RFC3339)})
	}
	if !in.Stats.Started.IsZero() && !in.Stats.Ended.IsZero() {
		duration := in.Stats.Ended.Sub(in.Stats.Started).Round(time.Second)
		tw.AppendRow(table.Row{"Duration", duration.String()})
	}

	b.WriteString(tw.RenderMarkdown())
	b.WriteString("\n")
}

func writeSummarySection(b *strings.Builder, in Input) {
	fmt.Fprintf(b, "- Turns: %d user, %d assistant\n", in.Stats.UserTurns, in.Stats.AssistantTurns)
	fmt.Fprintf(b, "- Tool calls: %d (%d failed)\n", in.Stats.ToolCalls, in.Stats.ToolErrors)

	for _, tool := range in.Stats.ToolOrder {
		count := in.Stats.ByTool[tool]
		if count.Errors > 0 {
			fmt.Fprintf(b, "  - %s: %d calls, %d failed\n", tool, count.Calls, count.Errors)
		} else {
			fmt.Fprintf(b, "  - %s: %d calls\n", tool, count.Calls)
		}
	}

	if len(in.Stats.Changes) > 0 {
		b.WriteString("- Files changed:\n")
		for _, change := range in.Stats.Changes {
			if change.Summary != "" {
				fmt.Fprintf(b, "  - %s (%s, %s)\n", change.Path, change.Action, change.Summary)
			} else {
				fmt.Fprintf(b, "  - %s (%s)\n", change.Path, change.Action)
			}
		}
	}
	if len(in.Stats.FilesRead) > 0 {
		b.WriteString("- Files read:\n")
		for _, path := range in.Stats.FilesRead {
			fmt.Fprintf(b, "  - %s\n", path)
		}
	}
	if in.Stats.SearchCount > 0 {
		fmt.Fprintf(b, "- Searches: %d (%d unique patterns)\n", in.Stats.SearchCount, len(in.Stats.Searches))
	}
	if len(in.Git.RecentCommits) > 0 {
		b.WriteString("- Recent commits:\n")
		for _, commit := range in.Git.RecentCommits {
			fmt.Fprintf(b, "  - %s\n", commit)
		}
	}
}

func writeConversation(b *strings.Builder, in Input, opts Options, budget int) {
	turn := 0
	for i := range in.Records {
		record := &in.Records[i]
		conversational := record.IsConversational()

		if conversational && record.Kind == session.EntryTypeUser {
			turn++
			fmt.Fprintf(b, "\n### Turn %d (User)\n\n", turn)
			b.WriteString(turns.Truncate(record.Text(), budget))
			b.WriteString("\n")
			continue
		}

		if record.Kind != session.EntryTypeAssistant {
			continue
		}
		for _, block := range record.Content {
			switch block.Type {
			case session.BlockTypeText:
				text := strings.TrimSpace(block.Text)
				if text == "" {
					continue
				}
				b.WriteString("\n**Assistant:**\n\n")
				b.WriteString(turns.Truncate(text, budget))
				b.WriteString("\n")
			case session.BlockTypeThinking:
				if !opts.IncludeThinking {
					continue
				}
				text := strings.TrimSpace(block.Text)
				if text == "" {
					continue
				}
				b.WriteString("\n> ")
				b.WriteString(strings.ReplaceAll(turns.Truncate(text, budget), "\n", "\n> "))
				b.WriteString("\n")
			case session.BlockTypeToolUse:
				writeInvocation(b, in, block, opts, budget)
			}
		}
	}
}

// toolInput covers the kind-specific keys the transcript surfaces. Unknown
// tools fall through to a serialized, truncated input payload.
type toolInput struct {
	FilePath    string `json:"file_path"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Pattern     string `json:"pattern"`
	Query       string `json:"query"`
	Todos       []struct {
		Content string `json:"content"`
	} `json:"todos"`
}

func writeInvocation(b *strings.Builder, in Input, block session.ContentBlock, opts Options, budget int) {
	var input toolInput
	_ = json.Unmarshal(block.Input, &input)

	b.WriteString("\n")
	switch block.ToolName {
	case stats.ToolBash:
		b.WriteString("**Bash**")
		if input.Description != "" {
			fmt.Fprintf(b, ": %s", input.Description)
		}
		b.WriteString("\n\n```sh\n")
		b.WriteString(turns.Truncate(input.Command, budget))
		b.WriteString("\n```\n")
	case stats.ToolWrite, stats.ToolEdit, stats.ToolMultiEdit, stats.ToolRead, stats.ToolNotebookRead:
		fmt.Fprintf(b, "**%s** `%s`\n", block.ToolName, input.FilePath)
	case stats.ToolGrep, stats.ToolGlob, stats.ToolWebSearch:
		pattern := input.Pattern
		if pattern == "" {
			pattern = input.Query
		}
		fmt.Fprintf(b, "**%s** `%s`\n", block.ToolName, pattern)
	case stats.ToolTask:
		fmt.Fprintf(b, "**Task**: %s\n", input.Description)
	case stats.ToolTodoWrite:
		fmt.Fprintf(b, "**TodoWrite** (%d items)\n", len(input.Todos))
	default:
		fmt.Fprintf(b, "**%s** `%s`\n", block.ToolName,
			turns.Truncate(strings.TrimSpace(string(block.Input)), budget))
	}

	writeOutcome(b, in, block, opts, budget)
}

func writeOutcome(b *strings.Builder, in Input, block session.ContentBlock, opts Options, budget int) {
	outcome, resolved := in.Index.Outcome(block.ToolID)
	if !resolved {
		b.WriteString("\n_pending_\n")
		return
	}
	if outcome.IsError {
		b.WriteString("\n**Error:** ")
		b.WriteString(turns.Truncate(strings.TrimSpace(outcome.Text), budget))
		b.WriteString("\n")
		return
	}
	if !opts.IncludeToolOutput {
		return
	}
	text := strings.TrimSpace(outcome.Text)
	if text == "" {
		return
	}
	b.WriteString("\n```\n")
	b.WriteString(turns.Truncate(text, budget))
	b.WriteString("\n```\n")
}
