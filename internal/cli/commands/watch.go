package commands

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyber-boost/tusktsk/internal/engine"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild artifacts as sources change",
		Long: `Build the source tree, then watch it and recompile changed files.

Files including a changed file are rebuilt with it. Bursts of writes are
debounced (see --debounce). Stop with Ctrl-C.`,
		Example: `  tusk watch
  tusk watch --debounce 500ms --algorithm lz4`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd)
		},
	}

	cmd.Flags().Duration("debounce", engine.DefaultDebounce, "Wait this long for writes to settle")
	cmd.Flags().Int("workers", 0, "Files compiled in parallel (0 uses GOMAXPROCS)")
	addAnalyzerFlags(cmd)
	addCompileFlags(cmd)

	return cmd
}

func runWatch(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := cmdCtx.Renderer
	r.Muted(fmt.Sprintf("Watching %s (Ctrl-C to stop)", cmdCtx.Engine.SourceDir()))

	err = cmdCtx.Engine.Watch(ctx, func(result *engine.BuildResult, err error) {
		r.Muted(time.Now().Format(time.TimeOnly))
		if err != nil {
			if !errors.Is(err, ctx.Err()) {
				r.Error(err.Error())
			}
			return
		}
		if rerr := renderBuild(r, result, cmdCtx.Cfg.Verbose); rerr != nil {
			cmdCtx.Logger.Warn("failed to render build", "error", rerr)
		}
	})
	if err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}
