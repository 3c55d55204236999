// Package cli provides the command-line interface for tusk.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cyber-boost/tusktsk/internal/cli/commands"
	"github.com/cyber-boost/tusktsk/internal/cli/config"
	"github.com/cyber-boost/tusktsk/internal/cli/output"
	"github.com/cyber-boost/tusktsk/pkg/binary"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tusk",
		Short: "tusk - configuration language toolchain",
		Long: `tusk parses, analyzes and compiles .tsk configuration files.

Sources are checked for undefined variables, type mismatches and bad
directive calls, then compiled to compact .tskb artifacts that load
without re-parsing. peanu.tsk files in parent directories cascade into
the configuration of the directories below them.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			// cmd.Flags() carries the persistent flags merged with the
			// command's own analyzer and compiler flags.
			cfg, err := config.LoadConfig(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			level := slog.LevelWarn
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(config.WithLogger(ctx, logger))

			if configFile := config.GetConfigFileUsed(); configFile != "" {
				logger.Debug("using config file", "path", configFile)
			}

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{.Name}} {{.Version}}
Artifact format %s v%d
`, binary.Extension, binary.Version))

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./tusk.yaml)")
	rootCmd.PersistentFlags().String("source-dir", "", "Directory holding .tsk sources")
	rootCmd.PersistentFlags().String("out-dir", "", "Directory for compiled .tskb artifacts")
	rootCmd.PersistentFlags().String("state", "", "Path to state database")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (auto|text|markdown|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return output.Modes(), cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddGroup(
		&cobra.Group{ID: GroupLanguage, Title: "Language Commands:"},
		&cobra.Group{ID: GroupProject, Title: "Project Commands:"},
	)
	addGroup(rootCmd, GroupLanguage,
		commands.NewTokensCommand(),
		commands.NewParseCommand(),
		commands.NewCheckCommand(),
		commands.NewFmtCommand(),
		commands.NewCompileCommand(),
		commands.NewInspectCommand(),
		commands.NewLoadCommand(),
		commands.NewGetCommand(),
		commands.NewDirectivesCommand(),
		commands.NewREPLCommand(),
	)
	addGroup(rootCmd, GroupProject,
		commands.NewInitCommand(),
		commands.NewBuildCommand(),
		commands.NewWatchCommand(),
		commands.NewDAGCommand(),
		commands.NewHistoryCommand(),
		commands.NewDoctorCommand(),
		commands.NewLSPCommand(Version),
	)

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Command groups shown in help output.
const (
	GroupLanguage = "language"
	GroupProject  = "project"
)

func addGroup(root *cobra.Command, id string, cmds ...*cobra.Command) {
	for _, c := range cmds {
		c.GroupID = id
		root.AddCommand(c)
	}
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for tusk.

To load completions:

Bash:
  $ source <(tusk completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ tusk completion bash > /etc/bash_completion.d/tusk
  # macOS:
  $ tusk completion bash > $(brew --prefix)/etc/bash_completion.d/tusk

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ tusk completion zsh > "${fpath[1]}/_tusk"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ tusk completion fish | source

  # To load completions for each session, execute once:
  $ tusk completion fish > ~/.config/fish/completions/tusk.fish

PowerShell:
  PS> tusk completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> tusk completion powershell > tusk.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
