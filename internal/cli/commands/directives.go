package commands

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cyber-boost/tusktsk/internal/cli/output"
	"github.com/cyber-boost/tusktsk/pkg/analyzer"
)

// NewDirectivesCommand creates the directives command.
func NewDirectivesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "directives",
		Short: "List the known @directives",
		Long: `List every directive the analyzer checks, grouped by category, with its
signature and result type. Calls to other names are accepted with a warning.`,
		Example: `  tusk directives
  tusk directives -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDirectives(cmd)
		},
	}

	return cmd
}

type directiveJSON struct {
	Name      string `json:"name"`
	Category  string `json:"category"`
	Summary   string `json:"summary"`
	Signature string `json:"signature"`
}

func runDirectives(cmd *cobra.Command) error {
	r := NewCommandContextWithoutEngine(cmd).Renderer
	directives := analyzer.Directives()

	if r.EffectiveMode() == output.ModeJSON {
		out := make([]directiveJSON, len(directives))
		for i, d := range directives {
			out[i] = directiveJSON{Name: d.Name, Category: d.Category, Summary: d.Summary, Signature: d.Signature()}
		}
		return r.JSON(map[string]any{
			"directives":         out,
			"cross_file_methods": analyzer.CrossFileMethods(),
		})
	}

	byCategory := make(map[string][]analyzer.Directive)
	for _, d := range directives {
		byCategory[d.Category] = append(byCategory[d.Category], d)
	}
	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	slices.Sort(categories)

	title := cases.Title(language.English)
	r.Header(1, "Directives")
	for _, c := range categories {
		r.Header(2, title.String(c))
		rows := make([][]string, 0, len(byCategory[c]))
		for _, d := range byCategory[c] {
			rows = append(rows, []string{d.Signature(), d.Summary})
		}
		r.Table([]string{"Signature", "Description"}, rows)
		r.Println("")
	}

	r.Header(2, "Cross-file")
	methods := analyzer.CrossFileMethods()
	for i, m := range methods {
		methods[i] = "@file.tsk." + m + "(...)"
	}
	r.Println(strings.Join(methods, "  "))
	return nil
}
