package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func listItems() []ListItem {
	return []ListItem{
		{
			ID:        "aaa-111",
			Path:      "/sessions/aaa-111.jsonl",
			StartedAt: time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC),
			Messages:  12,
			FirstText: "fix the parser\nplease",
			Active:    true,
		},
		{
			ID:        "bbb-222",
			Path:      "/sessions/bbb-222.jsonl",
			StartedAt: time.Date(2025, 6, 9, 9, 0, 0, 0, time.UTC),
			Messages:  3,
			FirstText: "try something",
		},
	}
}

func TestWriteList_Plain(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteList(&buf, listItems(), "plain"); err != nil {
		t.Fatalf("WriteList returned error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "aaa-111\t12\tyes") {
		t.Fatalf("missing active session row:\n%s", out)
	}
	if !strings.Contains(out, "fix the parser\\nplease") {
		t.Fatalf("newlines should be escaped:\n%s", out)
	}
}

func TestWriteList_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteList(&buf, listItems(), "json"); err != nil {
		t.Fatalf("WriteList returned error: %v", err)
	}

	var decoded []ListItem
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 || decoded[0].ID != "aaa-111" {
		t.Fatalf("unexpected decoded items: %#v", decoded)
	}
}

func TestWriteList_Table(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteList(&buf, listItems(), "table"); err != nil {
		t.Fatalf("WriteList returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "aaa-111") {
		t.Fatalf("table missing session id:\n%s", buf.String())
	}
}

func TestWriteList_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteList(&buf, nil, "xml"); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}
