package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cyber-boost/tusktsk/internal/lsp"
)

// NewLSPCommand creates the lsp command.
func NewLSPCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		Long: `Start the LSP server for editor integration.

The server communicates over stdin/stdout using JSON-RPC. It publishes
diagnostics for open .tsk documents and offers completion, hover and
formatting. Analyzer settings come from tusk.yaml and the flags below.`,
		Example: `  # Start LSP server (usually called by an editor)
  tusk lsp`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLSP(cmd, version)
		},
	}

	addAnalyzerFlags(cmd)

	return cmd
}

func runLSP(cmd *cobra.Command, version string) error {
	cmdCtx := NewCommandContextWithoutEngine(cmd)
	server := lsp.NewServerWithLogger(os.Stdin, os.Stdout, cmdCtx.Logger)
	server.SetVersion(version)
	server.SetAnalyzerOptions(cmdCtx.Cfg.Analyzer.Options())
	return server.Run()
}
