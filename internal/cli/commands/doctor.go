package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cyber-boost/tusktsk/internal/cli/output"
	"github.com/cyber-boost/tusktsk/internal/engine"
	"github.com/cyber-boost/tusktsk/internal/state"
	"github.com/cyber-boost/tusktsk/pkg/analyzer"
	"github.com/cyber-boost/tusktsk/pkg/parser"
)

// Health check identifiers.
const (
	checkSyntax        = "TD01"
	checkSemantic      = "TD02"
	checkIncludes      = "TD03"
	checkUnused        = "TD04"
	checkWarnings      = "TD05"
	checkStale         = "TD06"
	checkOrphanRecords = "TD07"
)

type healthRule struct {
	id    string
	name  string
	group string
	level string // status when the check finds issues
}

var healthRules = []healthRule{
	{checkSyntax, "syntax", "sources", "error"},
	{checkIncludes, "missing-includes", "sources", "warn"},
	{checkSemantic, "semantic-errors", "analysis", "error"},
	{checkUnused, "unused-variables", "analysis", "warn"},
	{checkWarnings, "other-warnings", "analysis", "warn"},
	{checkStale, "stale-artifacts", "artifacts", "warn"},
	{checkOrphanRecords, "orphaned-records", "artifacts", "warn"},
}

// DoctorOptions holds options for the doctor command.
type DoctorOptions struct {
	Format string // Output format: text, markdown, json
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	opts := &DoctorOptions{}
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run a project health check",
		Long: `Analyze the source tree and build state for problems.

The report includes:
- Project summary (files, include graph shape, artifacts)
- Health checks grouped by category (Sources, Analysis, Artifacts)
- Health score (0-100)
- Actionable recommendations

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Run health check
  tusk doctor

  # Output as JSON
  tusk doctor --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, markdown, json")
	addAnalyzerFlags(cmd)

	return cmd
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Summary         ProjectSummary `json:"summary"`
	HealthChecks    []HealthCheck  `json:"health_checks"`
	Score           int            `json:"score"`
	Recommendations []string       `json:"recommendations"`
	IssueCount      int            `json:"issue_count"`
}

// ProjectSummary contains project-level statistics.
type ProjectSummary struct {
	Files     int `json:"files"`
	Artifacts int `json:"artifacts"`
	Builds    int `json:"builds"`
	Depth     int `json:"depth"`
	RootCount int `json:"root_count"`
	LeafCount int `json:"leaf_count"`
	EdgeCount int `json:"edge_count"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	RuleID     string   `json:"rule_id"`
	Name       string   `json:"name"`
	Group      string   `json:"group"`
	Status     string   `json:"status"` // "pass", "warn", "error"
	IssueCount int      `json:"issue_count"`
	Details    []string `json:"details,omitempty"`
}

func runDoctor(cmd *cobra.Command, opts *DoctorOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	r := cmdCtx.Renderer

	if opts.Format != "" {
		mode, err := output.ParseMode(opts.Format)
		if err != nil {
			return err
		}
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)
	}

	ctx := cmd.Context()
	result, err := eng.Check(ctx)
	if err != nil {
		return err
	}
	if len(result.Files) == 0 {
		r.Warning("No .tsk files found in " + eng.SourceDir())
		return nil
	}

	store := eng.Store()
	artifacts, err := store.ListArtifacts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list artifacts: %w", err)
	}
	builds, err := store.ListBuilds(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to list builds: %w", err)
	}

	hashes := make(map[string]string, len(eng.Files()))
	for path, f := range eng.Files() {
		hashes[path] = f.Hash
	}

	issues := classifyDiagnostics(result.Files)
	for id, details := range checkArtifacts(hashes, artifacts) {
		issues[id] = details
	}

	summary := buildProjectSummary(eng)
	summary.Artifacts = len(artifacts)
	summary.Builds = len(builds)

	doctorOutput := buildDoctorOutput(summary, issues)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(doctorOutput)
	case output.ModeMarkdown:
		return renderDoctorMarkdown(r, doctorOutput)
	default:
		return renderDoctorText(r, doctorOutput)
	}
}

// classifyDiagnostics sorts every reported diagnostic into a health check.
func classifyDiagnostics(reports []*engine.FileReport) map[string][]string {
	issues := make(map[string][]string)
	for _, report := range reports {
		for _, d := range report.Diagnostics {
			id := checkWarnings
			switch {
			case d.Code == parser.CodeSyntax:
				id = checkSyntax
			case d.Code == engine.CodeMissingInclude:
				id = checkIncludes
			case d.Code == analyzer.CodeUnusedVariable:
				id = checkUnused
			case d.IsError():
				id = checkSemantic
			}
			issues[id] = append(issues[id], fmt.Sprintf("%s:%d: %s", report.Path, d.Pos.Line, d.Message))
		}
	}
	return issues
}

// checkArtifacts compares recorded artifacts against the current sources.
// hashes maps source paths to their content hash.
func checkArtifacts(hashes map[string]string, artifacts []*state.Artifact) map[string][]string {
	issues := make(map[string][]string)
	recorded := make(map[string]*state.Artifact, len(artifacts))
	for _, a := range artifacts {
		recorded[a.SourcePath] = a
		if _, ok := hashes[a.SourcePath]; !ok {
			issues[checkOrphanRecords] = append(issues[checkOrphanRecords], a.SourcePath+" no longer exists")
		}
	}

	paths := make([]string, 0, len(hashes))
	for p := range hashes {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		a, ok := recorded[p]
		switch {
		case !ok:
			issues[checkStale] = append(issues[checkStale], p+" has never been built")
		case a.SourceHash != hashes[p]:
			issues[checkStale] = append(issues[checkStale], p+" changed since "+a.CompiledAt.Format("2006-01-02 15:04"))
		}
	}
	return issues
}

func buildDoctorOutput(summary ProjectSummary, issues map[string][]string) *DoctorOutput {
	checks := make([]HealthCheck, 0, len(healthRules))
	total := 0
	for _, rule := range healthRules {
		details := issues[rule.id]
		status := "pass"
		if len(details) > 0 {
			status = rule.level
		}
		checks = append(checks, HealthCheck{
			RuleID:     rule.id,
			Name:       rule.name,
			Group:      rule.group,
			Status:     status,
			IssueCount: len(details),
			Details:    details,
		})
		total += len(details)
	}

	return &DoctorOutput{
		Summary:         summary,
		HealthChecks:    checks,
		Score:           calculateHealthScore(checks, summary.Files),
		Recommendations: generateRecommendations(checks),
		IssueCount:      total,
	}
}

func buildProjectSummary(eng *engine.Engine) ProjectSummary {
	graph := eng.Graph()
	summary := ProjectSummary{
		Files:     graph.Len(),
		EdgeCount: graph.EdgeCount(),
	}
	if levels, err := graph.Levels(); err == nil {
		summary.Depth = len(levels)
	}
	for _, id := range graph.IDs() {
		if len(graph.Dependencies(id)) == 0 {
			summary.LeafCount++
		}
		if len(graph.Dependents(id)) == 0 {
			summary.RootCount++
		}
	}
	return summary
}

// calculateHealthScore computes a health score from 0-100.
// Errors cost twice as much as warnings, and the per-issue penalty shrinks
// as the tree grows.
func calculateHealthScore(checks []HealthCheck, fileCount int) int {
	if len(checks) == 0 {
		return 100
	}

	score := 100.0

	basePenalty := 5.0
	if fileCount > 10 {
		basePenalty = 3.0
	}
	if fileCount > 50 {
		basePenalty = 2.0
	}
	if fileCount > 100 {
		basePenalty = 1.0
	}

	for _, check := range checks {
		switch check.Status {
		case "error":
			score -= float64(check.IssueCount) * basePenalty * 2
		case "warn":
			score -= float64(check.IssueCount) * basePenalty
		}
	}

	if score < 0 {
		score = 0
	}
	return int(score)
}

func generateRecommendations(checks []HealthCheck) []string {
	var recommendations []string
	seen := make(map[string]bool)

	for _, check := range checks {
		if check.IssueCount == 0 {
			continue
		}

		rec := getRecommendation(check.RuleID)
		if rec != "" && !seen[rec] {
			recommendations = append(recommendations, rec)
			seen[rec] = true
		}
	}

	if len(recommendations) > 5 {
		recommendations = recommendations[:5]
	}

	return recommendations
}

// getRecommendation returns a recommendation for a specific check.
func getRecommendation(ruleID string) string {
	switch ruleID {
	case checkSyntax:
		return "Fix syntax errors first: files that do not parse are skipped by analysis and build"
	case checkSemantic:
		return "Run 'tusk check' and resolve undefined variables and type mismatches"
	case checkIncludes:
		return "Create or correct the paths of missing @include and cross-file targets"
	case checkUnused:
		return "Remove unused $variables or pass --warn-unused=false"
	case checkWarnings:
		return "Review analyzer warnings with 'tusk check'"
	case checkStale:
		return "Run 'tusk build' to refresh stale artifacts"
	case checkOrphanRecords:
		return "Run 'tusk build --force' after moving or deleting sources"
	default:
		return ""
	}
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) error {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render("Tusk Project Health Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Println("")

	r.Println(styles.Header2.Render("Project Summary"))
	r.Printf("   Files: %d | Includes: %d | Artifacts: %d | Builds: %d\n",
		out.Summary.Files, out.Summary.EdgeCount, out.Summary.Artifacts, out.Summary.Builds)
	r.Printf("   Depth: %d levels | Roots: %d | Leaves: %d\n", out.Summary.Depth, out.Summary.RootCount, out.Summary.LeafCount)
	r.Println("")

	r.Println(styles.Header2.Render("Health Checks"))
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(styles.Bold.Render("   " + titleCaser.String(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}

		icon := styles.StatusSuccess.String()
		switch check.Status {
		case "warn":
			icon = styles.Warning.Render("!")
		case "error":
			icon = styles.StatusFailed.String()
		}

		status := fmt.Sprintf("%s %s: %s", icon, check.RuleID, check.Name)
		if check.IssueCount > 0 {
			status += fmt.Sprintf(" (%d issues)", check.IssueCount)
		}
		r.Println("   " + status)

		for i, detail := range check.Details {
			if i >= 3 {
				r.Println(styles.Muted.Render(fmt.Sprintf("       ... and %d more", len(check.Details)-3)))
				break
			}
			r.Println(styles.Muted.Render("       - " + detail))
		}
	}
	r.Println("")

	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	scoreStyle := styles.Success
	if out.Score < 70 {
		scoreStyle = styles.Warning
	}
	if out.Score < 50 {
		scoreStyle = styles.Error
	}
	r.Printf("   Health Score: %s\n", scoreStyle.Render(fmt.Sprintf("%d/100", out.Score)))
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println(styles.Header2.Render("Recommendations"))
		for i, rec := range out.Recommendations {
			r.Printf("   %d. %s\n", i+1, rec)
		}
		r.Println("")
	}

	return nil
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) error {
	r.Println("# Tusk Project Health Report")
	r.Println("")

	r.Println("## Project Summary")
	r.Println("")
	r.Printf("- **Files**: %d\n", out.Summary.Files)
	r.Printf("- **Includes**: %d\n", out.Summary.EdgeCount)
	r.Printf("- **Artifacts**: %d\n", out.Summary.Artifacts)
	r.Printf("- **Builds**: %d\n", out.Summary.Builds)
	r.Printf("- **Depth**: %d levels\n", out.Summary.Depth)
	r.Printf("- **Roots**: %d\n", out.Summary.RootCount)
	r.Printf("- **Leaves**: %d\n", out.Summary.LeafCount)
	r.Println("")

	r.Println("## Health Checks")
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("### " + titleCaser.String(currentGroup))
			r.Println("")
		}

		status := strings.ToUpper(check.Status)
		r.Printf("- **[%s]** %s: %s", status, check.RuleID, check.Name)
		if check.IssueCount > 0 {
			r.Printf(" (%d issues)", check.IssueCount)
		}
		r.Println("")

		for _, detail := range check.Details {
			r.Printf("  - %s\n", detail)
		}
	}
	r.Println("")

	r.Println("## Health Score")
	r.Println("")
	r.Printf("**%d/100**\n", out.Score)
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println("## Recommendations")
		r.Println("")
		for i, rec := range out.Recommendations {
			r.Printf("%d. %s\n", i+1, rec)
		}
		r.Println("")
	}

	return nil
}
