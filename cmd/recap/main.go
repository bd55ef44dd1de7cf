// Package main provides the recap CLI for exporting AI agent session logs
// into a Markdown transcript and a compact JSON summary.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"recap/internal/config"
	"recap/internal/correlate"
	"recap/internal/gitinfo"
	"recap/internal/locate"
	"recap/internal/render"
	"recap/internal/session"
	"recap/internal/stats"
	"recap/internal/turns"
	"recap/internal/view"
)

var version = "dev"

var (
	configPath  string
	sessionsDir string
	workDir     string
)

var rootCmd = &cobra.Command{
	Use:     "recap",
	Short:   "Export AI agent session logs as a transcript and a compact summary",
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"config file (default: ~/.config/recap/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&sessionsDir, "sessions-dir", "",
		"override the session storage root (env: RECAP_SESSIONS_DIR)")
	rootCmd.PersistentFlags().StringVar(&workDir, "cwd", "",
		"project working directory to look up (default: current directory)")

	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newShowCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "recap: %v\n", err)
		os.Exit(1)
	}
}

// setup is the resolved environment shared by all commands.
type setup struct {
	cfg        config.Config
	cwd        string
	projectDir string
}

func resolveSetup() (*setup, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	cwd := workDir
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determine current directory: %w", err)
		}
		cwd = wd
	}

	root := sessionsDir
	if root == "" {
		root = cfg.SessionsDir
	}
	if root == "" {
		root = locate.DefaultRoot()
	}

	projectDir, err := locate.ProjectDir(root, cwd)
	if err != nil {
		return nil, err
	}

	return &setup{cfg: cfg, cwd: cwd, projectDir: projectDir}, nil
}

// resolveSessionPath picks the session log: an explicit path, a file name in
// the project directory, a session id, or — with no argument — the log whose
// most recent record is newest.
func resolveSessionPath(env *setup, arg string) (string, error) {
	if arg == "" {
		return locate.ActiveSession(env.projectDir)
	}

	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		return arg, nil
	}
	candidate := filepath.Join(env.projectDir, arg)
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate, nil
	}

	paths, err := locate.Sessions(env.projectDir)
	if err != nil {
		return "", err
	}
	for _, path := range paths {
		meta, err := session.ReadMeta(path)
		if err != nil {
			continue
		}
		if meta.ID == arg {
			return path, nil
		}
	}
	return "", fmt.Errorf("session %s not found under %s", arg, env.projectDir)
}

// buildInput loads a session log and runs the full projection pipeline.
func buildInput(cmd *cobra.Command, env *setup, path string) (render.Input, error) {
	records, err := session.ParseFile(path)
	if err != nil {
		return render.Input{}, err
	}
	if len(records) == 0 {
		return render.Input{}, fmt.Errorf("%s: %w", path, session.ErrNoRecords)
	}

	idx := correlate.Build(records)
	for _, warning := range idx.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", warning) //nolint:errcheck
	}

	meta, err := session.ReadMeta(path)
	if err != nil && !errors.Is(err, session.ErrNoRecords) {
		return render.Input{}, err
	}

	gitDir := env.cwd
	if meta != nil && meta.CWD != "" {
		gitDir = meta.CWD
	}

	return render.Input{
		Meta:    meta,
		Records: records,
		Index:   idx,
		Stats: stats.Aggregate(records, idx, stats.Options{
			TextBudget:      env.cfg.TruncateChars,
			MaxEditsPerFile: env.cfg.MaxEditsPerFile,
		}),
		Turns: turns.Split(records, env.cfg.TruncateChars),
		Git:   gitinfo.Collect(cmd.Context(), gitDir),
	}, nil
}

func renderOptions(cfg config.Config, includeThinking, noToolOutput bool) render.Options {
	return render.Options{
		IncludeThinking:   includeThinking || cfg.IncludeThinking,
		IncludeToolOutput: cfg.IncludeToolOutput && !noToolOutput,
		TruncateChars:     cfg.TruncateChars,
	}
}

func newExportCmd() *cobra.Command {
	var (
		outputDir       string
		includeThinking bool
		noToolOutput    bool
		toStdout        bool
	)

	cmd := &cobra.Command{
		Use:   "export [session-id-or-path]",
		Short: "Write the transcript and compact summary for a session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := resolveSetup()
			if err != nil {
				return err
			}

			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			path, err := resolveSessionPath(env, arg)
			if err != nil {
				return err
			}

			in, err := buildInput(cmd, env, path)
			if err != nil {
				return err
			}

			// Both projections are computed fully in memory before anything
			// touches the disk, so a failure here leaves no partial file.
			opts := renderOptions(env.cfg, includeThinking, noToolOutput)
			transcript := render.Transcript(in, opts)
			summary, err := render.MarshalSummary(render.Summary(in))
			if err != nil {
				return err
			}

			if toStdout {
				if _, err := cmd.OutOrStdout().Write(summary); err != nil {
					return err
				}
				return nil
			}

			dir := outputDir
			if dir == "" {
				dir = env.cfg.OutputDir
			}
			if dir == "" {
				dir = filepath.Join(env.cwd, ".recap")
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}

			transcriptPath := filepath.Join(dir, "transcript.md")
			summaryPath := filepath.Join(dir, "summary.json")
			if err := os.WriteFile(transcriptPath, []byte(transcript), 0o644); err != nil {
				return fmt.Errorf("write transcript: %w", err)
			}
			if err := os.WriteFile(summaryPath, summary, 0o644); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", transcriptPath, summaryPath) //nolint:errcheck
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&outputDir, "output-dir", "o", "", "directory for the artifacts (default: <cwd>/.recap)")
	flags.BoolVar(&includeThinking, "include-thinking", false, "include internal-reasoning blocks in the transcript")
	flags.BoolVar(&noToolOutput, "no-tool-output", false, "omit tool outcome bodies from the transcript")
	flags.BoolVar(&toStdout, "stdout", false, "print the compact summary to stdout instead of writing files")

	return cmd
}

func newListCmd() *cobra.Command {
	var formatFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the project's sessions in chronological order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := resolveSetup()
			if err != nil {
				return err
			}

			paths, err := locate.Sessions(env.projectDir)
			if err != nil {
				return err
			}
			active, _ := locate.ActiveSession(env.projectDir)

			items := make([]render.ListItem, 0, len(paths))
			for _, path := range paths {
				meta, err := session.ReadMeta(path)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %v\n", path, err) //nolint:errcheck
					continue
				}
				records, err := session.ParseFile(path)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %v\n", path, err) //nolint:errcheck
					continue
				}
				item := render.ListItem{
					ID:        meta.ID,
					Path:      path,
					StartedAt: meta.StartedAt,
					Messages:  len(records),
					FirstText: turns.Truncate(session.FirstUserText(records), 160),
					Active:    path == active,
				}
				for i := range records {
					if ts := records[i].Timestamp; ts.After(item.LastAt) {
						item.LastAt = ts
					}
				}
				items = append(items, item)
			}

			return render.WriteList(cmd.OutOrStdout(), items, strings.ToLower(formatFlag))
		},
	}

	cmd.Flags().StringVar(&formatFlag, "format", "table", "output format: table, plain, or json")
	return cmd
}

func newShowCmd() *cobra.Command {
	var (
		wrap            int
		includeThinking bool
		noToolOutput    bool
		forceColor      bool
		forceNoColor    bool
	)

	cmd := &cobra.Command{
		Use:   "show [session-id-or-path]",
		Short: "Render a session transcript to the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if forceColor && forceNoColor {
				return errors.New("--color and --no-color cannot be used together")
			}

			env, err := resolveSetup()
			if err != nil {
				return err
			}

			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			path, err := resolveSessionPath(env, arg)
			if err != nil {
				return err
			}

			in, err := buildInput(cmd, env, path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			outFile, _ := out.(*os.File)
			return view.Run(in, renderOptions(env.cfg, includeThinking, noToolOutput), view.Options{
				Wrap:         wrap,
				ForceColor:   forceColor,
				ForceNoColor: forceNoColor,
				Out:          out,
				OutFile:      outFile,
			})
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&wrap, "wrap", 0, "wrap message body at the given column width")
	flags.BoolVar(&includeThinking, "include-thinking", false, "include internal-reasoning blocks")
	flags.BoolVar(&noToolOutput, "no-tool-output", false, "omit tool outcome bodies")
	flags.BoolVar(&forceColor, "color", false, "force-enable ANSI colors even when stdout is not a TTY")
	flags.BoolVar(&forceNoColor, "no-color", false, "disable ANSI colors regardless of terminal detection")

	return cmd
}
