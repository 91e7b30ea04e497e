package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cc_session_mgr/internal/session"
)

// printJSON writes v indented, the same payload the HTTP API returns in data.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// relTime renders an ISO timestamp as "3 hours ago", or the raw string
// when it cannot be parsed.
func relTime(ts string) string {
	if ts == "" {
		return "-"
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return humanize.Time(t)
}

// oneLine flattens whitespace and cuts s to n runes.
func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func (a *app) newProjectsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List projects with session counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			projects := a.index.ListProjects()
			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, projects)
			}
			if len(projects) == 0 {
				writeLine(out, "No projects found in %s", a.index.Root())
				return nil
			}
			for _, p := range projects {
				last := "-"
				if len(p.Sessions) > 0 {
					last = relTime(p.Sessions[0].LastMessage)
				}
				writeLine(out, "%s", p.ProjectPath)
				writeLine(out, "    %s session(s), last active %s  [%s]", humanize.Comma(int64(p.SessionCount)), last, p.Name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func (a *app) newSessionsCmd() *cobra.Command {
	var (
		asJSON  bool
		project string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List sessions newest first",
		Long: `List session summaries in reverse chronological order.

Examples:
  cc_session_mgr sessions
  cc_session_mgr sessions --limit 10
  cc_session_mgr sessions --project webapp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit == 0 {
				limit = a.cfg.Limits.Sessions
			}
			projectID := ""
			if project != "" {
				name, ok := a.index.FindProject(project)
				if !ok {
					return fmt.Errorf("project not found: %s", project)
				}
				projectID = name
			}

			sessions := a.index.ListSessions(projectID, limit)
			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, sessions)
			}
			if len(sessions) == 0 {
				writeLine(out, "No sessions found")
				return nil
			}

			writeLine(out, "Showing %d session(s)", len(sessions))
			writeLine(out, "")
			for i, s := range sessions {
				writeLine(out, "[%d] %s", i+1, s.SessionID)
				if s.Preview != "" {
					writeLine(out, "    Preview:  %s", oneLine(s.Preview, 80))
				}
				writeLine(out, "    Project:  %s", s.ProjectPath)
				writeLine(out, "    Messages: %d", s.MessageCount)
				writeLine(out, "    Tokens:   %s", humanize.Comma(s.TotalTokens))
				writeLine(out, "    Updated:  %s", relTime(s.LastMessage))
				writeLine(out, "")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	cmd.Flags().StringVar(&project, "project", "", "Project name or path (fuzzy)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of sessions (default from config, 50)")
	return cmd
}

func (a *app) newShowCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show [--] <project> <session-id>",
		Short: "Print one session transcript",
		Long: `Print one session transcript.

The project may be its encoded directory name, its working directory or a
fuzzy query. Encoded names start with "-", so put them after "--".`,
		Example: `  cc_session_mgr show /home/me/webapp 3f2a9c1e
  cc_session_mgr show -- -home-me-webapp 3f2a9c1e`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, ok := a.index.FindProject(args[0])
			if !ok {
				return fmt.Errorf("project not found: %s", args[0])
			}
			detail, ok := a.index.GetSession(project, args[1])
			if !ok {
				return fmt.Errorf("session not found: %s/%s", project, args[1])
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, detail)
			}
			writeLine(out, "Session %s (%s), %d record(s)", detail.SessionID, detail.Project, detail.MessageCount)
			writeLine(out, "")
			for i := range detail.Messages {
				rec := &detail.Messages[i]
				text := rec.Content().SearchText()
				if text == "" {
					continue
				}
				writeLine(out, "%s  %s", rec.Timestamp, strings.ToUpper(rec.Type))
				writeLine(out, "%s", text)
				writeLine(out, "")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func (a *app) newStatsCmd() *cobra.Command {
	var (
		asJSON bool
		days   int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show token usage totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats := a.index.Stats()
			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, stats)
			}

			g := stats.Global
			writeLine(out, "Token Usage")
			writeLine(out, "===========")
			writeLine(out, "")
			writeLine(out, "Projects:       %s", humanize.Comma(int64(g.TotalProjects)))
			writeLine(out, "Sessions:       %s", humanize.Comma(int64(g.TotalSessions)))
			writeLine(out, "Input tokens:   %s", humanize.Comma(g.TotalInputTokens))
			writeLine(out, "Output tokens:  %s", humanize.Comma(g.TotalOutputTokens))
			writeLine(out, "Total tokens:   %s", humanize.Comma(g.TotalTokens))

			if len(stats.ByProject) > 0 {
				writeLine(out, "")
				writeLine(out, "By project:")
				for _, p := range stats.ByProject {
					writeLine(out, "  %-40s %12s tokens  %4d sessions", oneLine(p.ProjectPath, 40), humanize.Comma(p.Tokens), p.Sessions)
				}
			}

			if len(stats.ByDay) > 0 {
				writeLine(out, "")
				writeLine(out, "By day:")
				for i, d := range stats.ByDay {
					if days > 0 && i >= days {
						break
					}
					writeLine(out, "  %s %12s tokens  %4d sessions", d.Date, humanize.Comma(d.Tokens), d.Sessions)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	cmd.Flags().IntVar(&days, "days", 14, "Days to show in the daily breakdown (0 for all)")
	return cmd
}

func (a *app) newHistoryCmd() *cobra.Command {
	var (
		asJSON bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent prompts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit == 0 {
				limit = a.cfg.Limits.History
			}
			commands := a.index.HistoryCommands(limit)
			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, commands)
			}
			for _, c := range commands {
				ts, _ := c.Timestamp.ISO()
				writeLine(out, "%-14s %s", relTime(ts), oneLine(c.Display, 100))
				if c.Project != "" {
					writeLine(out, "%-14s %s", "", c.Project)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of entries (default from config, 100)")
	return cmd
}

func (a *app) newSearchCmd() *cobra.Command {
	var (
		asJSON bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search transcripts and prompt history",
		Long: fmt.Sprintf(`Case-insensitive substring search over user and assistant messages, hook
commands and prompt history. Queries shorter than %d characters return nothing.`, session.MinQueryLength),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit == 0 {
				limit = a.cfg.Limits.Search
			}
			query := strings.Join(args, " ")
			results := a.index.SearchAll(query, limit)

			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, map[string]any{"results": results, "total": len(results)})
			}
			if len(results) == 0 {
				writeLine(out, "No matches for %q", query)
				return nil
			}
			for _, r := range results {
				writeLine(out, "[%s] %s  %s/%s", r.MatchType, relTime(r.Timestamp), r.Project, r.SessionID)
				writeLine(out, "    %s", oneLine(r.MatchedContent, 120))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results (default from config, 20)")
	return cmd
}
