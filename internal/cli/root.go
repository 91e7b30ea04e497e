// Package cli wires the cobra command tree.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"cc_session_mgr/internal/config"
	"cc_session_mgr/internal/logging"
	"cc_session_mgr/internal/session"
)

var (
	versionInfo = "dev"
	cliLog      = logging.ForComponent(logging.CompCLI)
)

// SetVersion sets the version information from build-time ldflags
func SetVersion(version, commit, date string) {
	versionInfo = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds state shared by every subcommand: flags, loaded config and the index.
type app struct {
	configPath string
	claudeDir  string
	logLevel   string
	debug      bool

	cfg   *config.Config
	index *session.Index
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "cc_session_mgr",
		Short: "Browse Claude Code sessions, usage and history",
		Long: `cc_session_mgr - browse, search and serve your Claude Code sessions

Reads the session logs under ~/.claude (projects/*/*.jsonl and history.jsonl)
and presents them as a terminal UI, a JSON HTTP API, an MCP server or plain
command output.`,
		Version:       versionInfo,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.teardown()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Default to TUI if no subcommand specified
			return a.runTUI()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (YAML or TOML)")
	flags.StringVar(&a.claudeDir, "claude-dir", "", "Claude data directory (default ~/.claude)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.BoolVar(&a.debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		a.newServeCmd(),
		a.newMCPCmd(),
		a.newProjectsCmd(),
		a.newSessionsCmd(),
		a.newShowCmd(),
		a.newStatsCmd(),
		a.newHistoryCmd(),
		a.newSearchCmd(),
	)

	return root
}

// setup loads config, applies flag overrides, starts logging and opens the index.
func (a *app) setup() error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.Load(a.configPath)
	} else {
		cfg, err = config.LoadFromDefaultPath()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if a.claudeDir != "" {
		cfg.ClaudeDir = a.claudeDir
		cfg.ProjectsDir = ""
		cfg.HistoryFile = ""
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	config.SetGlobal(cfg)
	a.cfg = cfg

	logging.Init(logging.Config{
		Dir:    config.ExpandHome(cfg.Log.Dir),
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Stderr: cfg.Log.Stderr,
		Debug:  a.debug,
	})

	a.index = session.NewIndex(session.Options{
		ProjectsDir: cfg.ProjectsPath(),
		HistoryFile: cfg.HistoryPath(),
		CacheTTL:    cfg.CacheTTL.Duration,
		Watch:       cfg.Watch,
	})
	cliLog.Debug("index_opened",
		slog.String("projects", cfg.ProjectsPath()),
		slog.String("history", cfg.HistoryPath()))
	return nil
}

func (a *app) teardown() {
	if a.index != nil {
		if err := a.index.Close(); err != nil {
			cliLog.Warn("index_close_failed", slog.String("error", err.Error()))
		}
		a.index = nil
	}
	logging.Shutdown()
}

func writeLine(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format+"\n", args...)
}
