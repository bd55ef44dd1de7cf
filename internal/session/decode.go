package session

import (
	"encoding/json"
	"fmt"
	"time"
)

type rawEntry struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	CWD       string          `json:"cwd"`
	Version   string          `json:"version"`
	Timestamp string          `json:"timestamp"`
	Message   json.RawMessage `json:"message"`
}

type messagePayload struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type rawBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	Thinking  string          `json:"thinking"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
	IsError   bool            `json:"is_error"`
}

// ParseLine decodes a single log line into a Record. Unknown top-level and
// nested fields are ignored; the raw line is preserved on the record.
func ParseLine(raw []byte) (Record, error) {
	var entry rawEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Record{}, fmt.Errorf("unmarshal entry: %w", err)
	}
	if entry.Type == "" {
		return Record{}, fmt.Errorf("entry has no type")
	}

	var ts time.Time
	if entry.Timestamp != "" {
		parsed, err := parseTimestamp(entry.Timestamp)
		if err != nil {
			return Record{}, err
		}
		ts = parsed
	}

	record := Record{
		Kind:      entryKind(entry.Type),
		Timestamp: ts,
		SessionID: entry.SessionID,
		CWD:       entry.CWD,
		Version:   entry.Version,
		Raw:       string(raw),
	}

	if record.Kind != EntryTypeOther && len(entry.Message) > 0 {
		var msg messagePayload
		if err := json.Unmarshal(entry.Message, &msg); err != nil {
			return Record{}, fmt.Errorf("unmarshal message: %w", err)
		}
		record.Role = msg.Role
		record.Content = decodeContent(msg.Content)
	}
	if record.Role == "" {
		record.Role = string(record.Kind)
	}

	return record, nil
}

func entryKind(value string) EntryType {
	switch EntryType(value) {
	case EntryTypeUser:
		return EntryTypeUser
	case EntryTypeAssistant:
		return EntryTypeAssistant
	default:
		return EntryTypeOther
	}
}

func decodeContent(raw json.RawMessage) []ContentBlock {
	if len(raw) == 0 {
		return nil
	}

	// Simple messages carry content as a bare string.
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return []ContentBlock{{Type: BlockTypeText, Text: asString}}
	}

	var blocks []rawBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil
	}

	result := make([]ContentBlock, 0, len(blocks))
	for _, block := range blocks {
		switch block.Type {
		case "text":
			result = append(result, ContentBlock{Type: BlockTypeText, Text: block.Text})
		case "thinking":
			result = append(result, ContentBlock{Type: BlockTypeThinking, Text: block.Thinking})
		case "tool_use":
			result = append(result, ContentBlock{
				Type:     BlockTypeToolUse,
				ToolName: block.Name,
				ToolID:   block.ID,
				Input:    block.Input,
			})
		case "tool_result":
			result = append(result, ContentBlock{
				Type:      BlockTypeToolResult,
				Text:      decodeResultText(block.Content),
				ToolUseID: block.ToolUseID,
				IsError:   block.IsError,
			})
		case "image":
			result = append(result, ContentBlock{Type: BlockTypeAttachment})
		default:
			// Unknown block types are tolerated but carry no renderable text.
		}
	}
	return result
}

// decodeResultText flattens a tool_result content payload, which may be a
// plain string or an array of typed parts.
func decodeResultText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var parts []rawBlock
	if err := json.Unmarshal(raw, &parts); err != nil {
		return string(raw)
	}
	texts := make([]string, 0, len(parts))
	for _, part := range parts {
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return flattenResultText(texts)
}
