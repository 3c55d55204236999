package commands

import (
	"github.com/spf13/cobra"

	"github.com/cyber-boost/tusktsk/pkg/binary"
)

// Analyzer and compiler flags are read by the config loader, which layers
// them over tusk.yaml and the environment. Commands never read them
// directly.

func addAnalyzerFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("strict", false, "Treat implicit numeric/string coercion as an error")
	cmd.Flags().Bool("cross-file", false, "Resolve @file.tsk references against the source tree")
	cmd.Flags().Bool("warn-unused", true, "Warn about declared but unused variables")
	cmd.Flags().StringSlice("disable", nil, "Warning codes to suppress")
}

func addCompileFlags(cmd *cobra.Command) {
	cmd.Flags().String("algorithm", "", "Compression algorithm (none|gzip|lz4|zstd)")
	cmd.Flags().Int("threshold", binary.DefaultThreshold, "Compress payloads of at least this many bytes")
	cmd.Flags().Int("level", 0, "Compression level (0 uses the algorithm default)")

	_ = cmd.RegisterFlagCompletionFunc("algorithm", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return algorithmNames(), cobra.ShellCompDirectiveNoFileComp
	})
}

func algorithmNames() []string {
	names := make([]string, 0, 4)
	for _, a := range []binary.Algorithm{binary.AlgorithmNone, binary.AlgorithmGzip, binary.AlgorithmLZ4, binary.AlgorithmZstd} {
		names = append(names, a.String())
	}
	return names
}
