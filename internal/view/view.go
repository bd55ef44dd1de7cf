// Package view prints a session transcript to a terminal: role colors when
// stdout is a TTY, width-aware line truncation, and paging through $PAGER.
package view

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"recap/internal/render"
	"recap/internal/session"
	"recap/internal/turns"
)

// Options defines the configurable parameters for terminal rendering.
type Options struct {
	Wrap         int
	ForceColor   bool
	ForceNoColor bool
	Out          io.Writer
	OutFile      *os.File
}

// Run renders the session to the terminal.
func Run(in render.Input, renderOpts render.Options, opts Options) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	useColor := resolveColorChoice(opts)
	width := determineWidth(opts.OutFile, opts.Wrap)

	lines := renderLines(in, renderOpts, width, useColor)
	if len(lines) == 0 {
		return nil
	}
	if opts.OutFile != nil && isatty.IsTerminal(opts.OutFile.Fd()) {
		return pipeThroughPager(lines, useColor)
	}
	return writeLines(opts.Out, lines)
}

func renderLines(in render.Input, renderOpts render.Options, width int, useColor bool) []string {
	budget := renderOpts.TruncateChars
	if budget <= 0 {
		budget = turns.DefaultBudget
	}

	var lines []string
	index := 0
	emit := func(role string, ts time.Time, body []string) {
		if len(body) == 0 {
			return
		}
		index++
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, headerLine(index, role, ts, useColor))
		prefix := "| "
		if useColor {
			prefix = colorize(ansiSeparator, "|") + " "
		}
		for _, line := range body {
			lines = append(lines, clipToWidth(prefix+line, width))
		}
	}

	for i := range in.Records {
		record := &in.Records[i]
		if record.IsConversational() {
			emit(record.Role, record.Timestamp, strings.Split(turns.Truncate(record.Text(), budget), "\n"))
		}
		if record.Kind != session.EntryTypeAssistant {
			continue
		}
		for _, block := range record.Content {
			switch block.Type {
			case session.BlockTypeThinking:
				if renderOpts.IncludeThinking && strings.TrimSpace(block.Text) != "" {
					emit("thinking", record.Timestamp,
						strings.Split(turns.Truncate(strings.TrimSpace(block.Text), budget), "\n"))
				}
			case session.BlockTypeToolUse:
				emit("tool", record.Timestamp, invocationLines(in, block, renderOpts, budget))
			}
		}
	}
	return lines
}

func invocationLines(in render.Input, block session.ContentBlock, renderOpts render.Options, budget int) []string {
	body := []string{fmt.Sprintf("%s %s", block.ToolName,
		turns.Truncate(strings.TrimSpace(string(block.Input)), budget))}

	outcome, resolved := in.Index.Outcome(block.ToolID)
	switch {
	case !resolved:
		body = append(body, "(pending)")
	case outcome.IsError:
		body = append(body, "error: "+turns.Truncate(strings.TrimSpace(outcome.Text), budget))
	case renderOpts.IncludeToolOutput:
		text := strings.TrimSpace(outcome.Text)
		if text != "" {
			body = append(body, strings.Split(turns.Truncate(text, budget), "\n")...)
		}
	}
	return body
}

func headerLine(index int, role string, ts time.Time, useColor bool) string {
	timeText := "-"
	if !ts.IsZero() {
		timeText = ts.Format(time.RFC3339)
	}
	if !useColor {
		return fmt.Sprintf("[#%03d] %s | %s", index, role, timeText)
	}
	return fmt.Sprintf("[%s] %s %s %s",
		colorize(ansiBoldWhite, fmt.Sprintf("#%03d", index)),
		colorize(roleColor(role), role),
		colorize(ansiSeparator, "|"),
		colorize(ansiTimestamp, timeText),
	)
}

func clipToWidth(line string, width int) string {
	if width <= 0 || runewidth.StringWidth(line) <= width {
		return line
	}
	return runewidth.Truncate(line, width, "…")
}

func determineWidth(out *os.File, wrap int) int {
	if wrap > 0 {
		return wrap
	}
	if out != nil {
		if w, _, err := term.GetSize(int(out.Fd())); err == nil && w > 0 {
			return w
		}
	}
	if colsStr := os.Getenv("COLUMNS"); colsStr != "" {
		if v, err := strconv.Atoi(colsStr); err == nil && v > 0 {
			return v
		}
	}
	return 80
}

func pipeThroughPager(lines []string, colorEnabled bool) error {
	text := strings.Join(lines, "\n")
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	pagerCmd := os.Getenv("PAGER")
	var cmd *exec.Cmd
	if pagerCmd == "" {
		args := []string{"less"}
		if colorEnabled {
			args = append(args, "-R")
		}
		cmd = exec.Command(args[0], args[1:]...) // #nosec G204
	} else {
		cmd = exec.Command("sh", "-c", pagerCmd) // #nosec G204
	}

	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create pager pipe: %w", err)
	}
	go func() {
		defer stdin.Close()
		io.WriteString(stdin, text) //nolint:errcheck
	}()

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run pager: %w", err)
	}
	return nil
}

func writeLines(out io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

const (
	ansiReset     = "\x1b[0m"
	ansiBoldWhite = "\x1b[1;97m"
	ansiTimestamp = "\x1b[38;5;245m"
	ansiSeparator = "\x1b[38;5;240m"
	ansiAssistant = "\x1b[38;5;44m"
	ansiUser      = "\x1b[38;5;220m"
	ansiTool      = "\x1b[38;5;207m"
)

func colorize(code string, text string) string {
	return code + text + ansiReset
}

func roleColor(role string) string {
	switch role {
	case "assistant":
		return ansiAssistant
	case "user":
		return ansiUser
	case "tool", "thinking":
		return ansiTool
	default:
		return ansiSeparator
	}
}

func resolveColorChoice(opts Options) bool {
	if opts.ForceColor {
		return true
	}
	if opts.ForceNoColor {
		return false
	}
	return shouldUseColorAuto(opts.Out)
}

func shouldUseColorAuto(out io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
