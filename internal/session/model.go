// Package session provides types and a parser for Claude Code session logs.
package session

import (
	"encoding/json"
	"strings"
	"time"
)

// EntryType represents the top-level "type" field values in session JSONL logs.
type EntryType string

const (
	EntryTypeUser      EntryType = "user"
	EntryTypeAssistant EntryType = "assistant"
	EntryTypeOther     EntryType = "other"
)

// BlockType represents the "type" field in content blocks.
type BlockType string

const (
	BlockTypeText       BlockType = "text"
	BlockTypeThinking   BlockType = "thinking"
	BlockTypeToolUse    BlockType = "tool_use"
	BlockTypeToolResult BlockType = "tool_result"
	BlockTypeAttachment BlockType = "attachment"
)

// ContentBlock is one typed element of a record's content array.
// Exactly which fields are populated depends on Type.
type ContentBlock struct {
	Type BlockType

	// text, thinking: the body. tool_result: the flattened output text.
	Text string

	// tool_use fields.
	ToolName string
	ToolID   string
	Input    json.RawMessage

	// tool_result fields.
	ToolUseID string
	IsError   bool
}

// Record is one parsed line of the log. Immutable once parsed.
type Record struct {
	Kind      EntryType
	Role      string
	Timestamp time.Time
	Content   []ContentBlock

	SessionID string
	CWD       string
	Version   string

	// Raw preserves the original line, unrecognized fields included.
	Raw string
}

// Text concatenates the record's renderable text blocks.
func (r *Record) Text() string {
	var b strings.Builder
	for _, block := range r.Content {
		if block.Type != BlockTypeText {
			continue
		}
		text := strings.TrimSpace(block.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(text)
	}
	return b.String()
}

// IsConversational reports whether the record is a genuine user/agent
// exchange, as opposed to a synthetic container injected to carry tool
// results. Outcome-only records never open or extend a turn.
func (r *Record) IsConversational() bool {
	if r.Kind != EntryTypeUser && r.Kind != EntryTypeAssistant {
		return false
	}
	hasText := false
	for _, block := range r.Content {
		switch block.Type {
		case BlockTypeToolResult:
			if r.Kind == EntryTypeUser {
				return false
			}
		case BlockTypeText:
			if strings.TrimSpace(block.Text) != "" {
				hasText = true
			}
		}
	}
	return hasText
}
