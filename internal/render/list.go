package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// ListItem is one row of the session list.
type ListItem struct {
	ID        string    `json:"session_id"`
	Path      string    `json:"path"`
	StartedAt time.Time `json:"started_at"`
	LastAt    time.Time `json:"last_at"`
	Messages  int       `json:"message_count"`
	FirstText string    `json:"first_text"`
	Active    bool      `json:"active"`
}

// WriteList writes the session list to w in the requested format.
func WriteList(w io.Writer, items []ListItem, format string) error {
	switch strings.ToLower(format) {
	case "", "table":
		return writeListTable(w, items)
	case "plain":
		return writeListPlain(w, items)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func writeListTable(w io.Writer, items []ListItem) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateRows = true

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 3, Align: text.AlignCenter, AlignHeader: text.AlignCenter},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 5, Align: text.AlignLeft, AlignHeader: text.AlignCenter, WidthMax: 80},
	})
	tw.AppendHeader(table.Row{"Session ID", "Started", "Active", "Messages", "First Prompt"})

	for _, item := range items {
		active := ""
		if item.Active {
			active = "*"
		}
		tw.AppendRow(table.Row{
			item.ID,
			item.StartedAt.Format(time.RFC3339),
			active,
			item.Messages,
			escapeNewlines(item.FirstText),
		})
	}
	if len(items) == 0 {
		tw.AppendRow(table.Row{"(no sessions)", "-", "", 0, "-"})
	}

	_ = tw.Render()
	return nil
}

func writeListPlain(w io.Writer, items []ListItem) error {
	if _, err := fmt.Fprintln(w, "started\tsession_id\tmessages\tactive\tfirst_prompt"); err != nil {
		return err
	}
	for _, item := range items {
		active := "no"
		if item.Active {
			active = "yes"
		}
		line := fmt.Sprintf("%s\t%s\t%d\t%s\t%s",
			item.StartedAt.Format(time.RFC3339),
			item.ID,
			item.Messages,
			active,
			escapeNewlines(item.FirstText),
		)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func escapeNewlines(text string) string {
	return strings.ReplaceAll(text, "\n", "\\n")
}
