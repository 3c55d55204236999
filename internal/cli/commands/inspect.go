package commands

import (
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cyber-boost/tusktsk/internal/cli/output"
	"github.com/cyber-boost/tusktsk/pkg/binary"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <artifact>",
		Short: "Describe a binary artifact",
		Long: `Validate a .tskb artifact and print its header and payload statistics.

The artifact is fully decoded, so a checksum or structure problem is
reported as an error.`,
		Example: `  tusk inspect app.tskb
  tusk inspect app.tskb -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args[0])
		},
	}

	return cmd
}

func runInspect(cmd *cobra.Command, path string) error {
	cmdCtx := NewCommandContextWithoutEngine(cmd)
	r := cmdCtx.Renderer

	data, err := os.ReadFile(path) //nolint:gosec // user-supplied path is the point
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	info, err := binary.Describe(data)
	if err != nil {
		return fmt.Errorf("invalid artifact %s: %w", path, err)
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(info)
	}

	alg := "none"
	if info.Header.Compressed {
		alg = info.Header.Algorithm.String()
	}

	r.Header(1, path)
	r.Table([]string{"Field", "Value"}, [][]string{
		{"Version", strconv.Itoa(int(info.Header.Version))},
		{"Compression", alg},
		{"Checksum", fmt.Sprintf("%08x", info.Header.Checksum)},
		{"Size", strconv.Itoa(info.Size)},
		{"Payload", strconv.Itoa(info.PayloadSize)},
		{"Ratio", fmt.Sprintf("%.2f", info.Ratio())},
		{"Constants", strconv.Itoa(info.Constants)},
		{"Nodes", strconv.Itoa(info.Nodes)},
	})

	if len(info.Kinds) > 0 {
		r.Println("")
		r.Header(2, "Nodes by kind")
		kinds := make([]string, 0, len(info.Kinds))
		for k := range info.Kinds {
			kinds = append(kinds, k)
		}
		slices.Sort(kinds)
		rows := make([][]string, len(kinds))
		for i, k := range kinds {
			rows[i] = []string{k, strconv.Itoa(info.Kinds[k])}
		}
		r.Table([]string{"Kind", "Count"}, rows)
	}
	return nil
}
