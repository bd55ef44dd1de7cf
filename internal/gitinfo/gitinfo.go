// Package gitinfo collects version-control context for a working directory
// via the git CLI. All commands target the directory with "git -C <dir>".
// Collection is best-effort: when git is missing or the directory is not a
// repository, every field falls back to its zero/"unknown" value and no error
// reaches the caller.
package gitinfo

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Context is the version-control metadata attached to a projection.
type Context struct {
	Branch             string
	RecentCommits      []string
	UncommittedChanges []string
}

// Runner executes a git command in dir and returns stdout. Swappable in tests.
type Runner func(ctx context.Context, dir string, args ...string) (string, error)

// Git is the default Runner, backed by the git binary.
func Git(ctx context.Context, dir string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), dir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Collect gathers branch, recent commits, and uncommitted changes for dir.
func Collect(ctx context.Context, dir string) Context {
	return CollectWith(ctx, dir, Git)
}

// CollectWith is Collect with an explicit Runner.
func CollectWith(ctx context.Context, dir string, run Runner) Context {
	info := Context{Branch: "unknown"}

	if out, err := run(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD"); err == nil {
		if branch := strings.TrimSpace(out); branch != "" {
			info.Branch = branch
		}
	}
	if out, err := run(ctx, dir, "log", "--oneline", "-5"); err == nil {
		info.RecentCommits = splitLines(out)
	}
	if out, err := run(ctx, dir, "status", "--porcelain"); err == nil {
		info.UncommittedChanges = splitLines(out)
	}
	return info
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}
