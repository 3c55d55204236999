package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/cyber-boost/tusktsk/pkg/binary"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the tusk version and the binary artifact format it writes.`,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "tusk v%s\n", version)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Artifact format %s v%d, %s %s/%s\n",
				binary.Extension, binary.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
