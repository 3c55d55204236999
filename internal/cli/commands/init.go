package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cyber-boost/tusktsk/internal/cli/output"
	sharedcfg "github.com/cyber-boost/tusktsk/internal/config"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new tusk project",
		Long: `Initialize a new tusk project with a configuration file and a root peanu.tsk.

This creates:
  - tusk.yaml project configuration
  - peanu.tsk with project-wide settings
  - .gitignore excluding the state directory and artifacts

Use --example to create a small working project with includes, a
cross-file reference and a nested peanu.tsk override.`,
		Example: `  # Initialize in current directory
  tusk init

  # Initialize with a full working example
  tusk init --example

  # Initialize in a new directory
  tusk init my-project --example

  # Force overwrite existing config
  tusk init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			r := NewCommandContextWithoutEngine(cmd).Renderer

			template := "minimal"
			if example {
				template = "example"
			}
			return runInit(r, dir, template, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&example, "example", false, "Create an example project with includes and overrides")

	return cmd
}

func runInit(r *output.Renderer, dir, template string, force bool) error {
	// Create directory if specified and doesn't exist
	if dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	// Check if config already exists
	configPath := filepath.Join(dir, sharedcfg.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", sharedcfg.ConfigFileName)
	}

	files, err := scaffold(template, dir, force)
	if err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	r.Header(2, "Project")
	printScaffold(r, files, false)
	r.Println("")
	r.Header(2, "Sources")
	printScaffold(r, files, true)

	r.Println("")
	r.Success("tusk project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  tusk check       Parse and analyze every .tsk file")
	r.Println("  tusk build       Compile sources to .tskb artifacts")
	r.Println("  tusk dag         Show the include graph")
	if template == "example" {
		r.Println("  tusk get services/api app.name --cascade")
	}

	return nil
}

func printScaffold(r *output.Renderer, files []scaffoldFile, sources bool) {
	for _, f := range files {
		if f.Source != sources {
			continue
		}
		if f.Written {
			r.StatusLine(f.Name, "success", "")
		} else {
			r.StatusLine(f.Name, "skipped", "already exists")
		}
	}
}
