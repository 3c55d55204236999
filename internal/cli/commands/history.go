package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyber-boost/tusktsk/internal/cli/output"
	"github.com/cyber-boost/tusktsk/internal/state"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit     int
	Artifacts bool
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history [build-id]",
		Short: "Show recorded builds",
		Long: `List recent builds from the state database, newest first.

Given a build ID (or a unique prefix of one shown in the list), print the
diagnostics recorded for that build. With --artifacts, list the cached
artifact of every source instead.`,
		Example: `  tusk history
  tusk history --limit 5 -o json
  tusk history 3f2a9c1e
  tusk history --artifacts`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			switch {
			case opts.Artifacts:
				return runArtifacts(cmd, cmdCtx)
			case len(args) == 1:
				return runBuildDetail(cmd, cmdCtx, args[0])
			default:
				return runHistory(cmd, cmdCtx, opts.Limit)
			}
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Number of builds to show")
	cmd.Flags().BoolVar(&opts.Artifacts, "artifacts", false, "List cached artifacts")

	return cmd
}

func runHistory(cmd *cobra.Command, cmdCtx *CommandContext, limit int) error {
	builds, err := cmdCtx.Engine.Store().ListBuilds(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("failed to list builds: %w", err)
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if builds == nil {
			builds = []*state.Build{}
		}
		return r.JSON(builds)
	}
	if len(builds) == 0 {
		r.Muted("No builds recorded yet")
		return nil
	}

	rows := make([][]string, len(builds))
	for i, b := range builds {
		rows[i] = []string{
			shortID(b.ID),
			b.StartedAt.Local().Format(time.DateTime),
			string(b.Status),
			strconv.Itoa(b.Files),
			strconv.Itoa(b.Errors),
			formatDuration(b.Duration()),
		}
	}
	r.Table([]string{"Build", "Started", "Status", "Files", "Errors", "Duration"}, rows)
	return nil
}

func runBuildDetail(cmd *cobra.Command, cmdCtx *CommandContext, id string) error {
	ctx := cmd.Context()
	store := cmdCtx.Engine.Store()

	b, err := store.GetBuild(ctx, id)
	if errors.Is(err, state.ErrNotFound) {
		b, err = findBuildByPrefix(cmd, store, id)
	}
	if err != nil {
		return fmt.Errorf("failed to get build %s: %w", id, err)
	}

	records, err := store.ListDiagnostics(ctx, b.ID)
	if err != nil {
		return fmt.Errorf("failed to list diagnostics: %w", err)
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if records == nil {
			records = []*state.DiagnosticRecord{}
		}
		return r.JSON(map[string]any{"build": b, "diagnostics": records})
	}

	r.Header(1, "Build "+b.ID)
	r.Println(output.FormatKeyValue("Status", string(b.Status)))
	r.Println(output.FormatKeyValue("Started", b.StartedAt.Local().Format(time.DateTime)))
	r.Println(output.FormatKeyValue("Duration", formatDuration(b.Duration())))
	r.Println(output.FormatKeyValue("Files", strconv.Itoa(b.Files)))
	r.Println("")

	if len(records) == 0 {
		r.Muted("No diagnostics recorded")
		return nil
	}
	rows := make([][]string, len(records))
	for i, d := range records {
		rows[i] = []string{
			fmt.Sprintf("%s:%d:%d", d.SourcePath, d.Line, d.Col),
			d.Severity,
			d.Code,
			d.Message,
		}
	}
	r.Table([]string{"Location", "Severity", "Code", "Message"}, rows)
	return nil
}

// findBuildByPrefix resolves the short IDs printed by the build list.
func findBuildByPrefix(cmd *cobra.Command, store state.Store, prefix string) (*state.Build, error) {
	builds, err := store.ListBuilds(cmd.Context(), 0)
	if err != nil {
		return nil, err
	}
	var match *state.Build
	for _, b := range builds {
		if strings.HasPrefix(b.ID, prefix) {
			if match != nil {
				return nil, fmt.Errorf("ambiguous build prefix %q", prefix)
			}
			match = b
		}
	}
	if match == nil {
		return nil, state.ErrNotFound
	}
	return match, nil
}

func runArtifacts(cmd *cobra.Command, cmdCtx *CommandContext) error {
	artifacts, err := cmdCtx.Engine.Store().ListArtifacts(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list artifacts: %w", err)
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if artifacts == nil {
			artifacts = []*state.Artifact{}
		}
		return r.JSON(artifacts)
	}
	if len(artifacts) == 0 {
		r.Muted("No artifacts recorded yet")
		return nil
	}

	rows := make([][]string, len(artifacts))
	for i, a := range artifacts {
		rows[i] = []string{
			a.SourcePath,
			a.ArtifactPath,
			strconv.FormatInt(a.Size, 10),
			a.Algorithm,
			a.CompiledAt.Local().Format(time.DateTime),
		}
	}
	r.Table([]string{"Source", "Artifact", "Size", "Algorithm", "Compiled"}, rows)
	return nil
}
