package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-boost/tusktsk/internal/engine"
	"github.com/cyber-boost/tusktsk/internal/state"
	"github.com/cyber-boost/tusktsk/pkg/analyzer"
	"github.com/cyber-boost/tusktsk/pkg/core"
	"github.com/cyber-boost/tusktsk/pkg/parser"
	"github.com/cyber-boost/tusktsk/pkg/token"
)

func TestCalculateHealthScore(t *testing.T) {
	tests := []struct {
		name      string
		checks    []HealthCheck
		fileCount int
		minScore  int
		maxScore  int
	}{
		{
			name:      "no checks returns 100",
			checks:    nil,
			fileCount: 10,
			minScore:  100,
			maxScore:  100,
		},
		{
			name: "all passing returns 100",
			checks: []HealthCheck{
				{RuleID: checkSyntax, Status: "pass", IssueCount: 0},
				{RuleID: checkStale, Status: "pass", IssueCount: 0},
			},
			fileCount: 10,
			minScore:  100,
			maxScore:  100,
		},
		{
			name: "warnings reduce score",
			checks: []HealthCheck{
				{RuleID: checkSyntax, Status: "pass", IssueCount: 0},
				{RuleID: checkStale, Status: "warn", IssueCount: 2},
			},
			fileCount: 10,
			minScore:  80,
			maxScore:  99,
		},
		{
			name: "errors reduce score more",
			checks: []HealthCheck{
				{RuleID: checkSemantic, Status: "error", IssueCount: 2},
			},
			fileCount: 10,
			minScore:  70,
			maxScore:  90,
		},
		{
			name: "more files means less impact per issue",
			checks: []HealthCheck{
				{RuleID: checkUnused, Status: "warn", IssueCount: 5},
			},
			fileCount: 200,
			minScore:  95,
			maxScore:  95,
		},
		{
			name: "many issues can reduce to 0",
			checks: []HealthCheck{
				{RuleID: checkSyntax, Status: "error", IssueCount: 20},
				{RuleID: checkSemantic, Status: "error", IssueCount: 20},
			},
			fileCount: 5,
			minScore:  0,
			maxScore:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := calculateHealthScore(tt.checks, tt.fileCount)
			assert.GreaterOrEqual(t, score, tt.minScore, "score should be >= %d", tt.minScore)
			assert.LessOrEqual(t, score, tt.maxScore, "score should be <= %d", tt.maxScore)
		})
	}
}

func TestGetRecommendation(t *testing.T) {
	for _, rule := range healthRules {
		t.Run(rule.id, func(t *testing.T) {
			assert.NotEmpty(t, getRecommendation(rule.id), "expected recommendation for %s", rule.id)
		})
	}
	assert.Empty(t, getRecommendation("UNKNOWN"))
}

func TestGenerateRecommendations(t *testing.T) {
	checks := []HealthCheck{
		{RuleID: checkSyntax, Status: "error", IssueCount: 1},
		{RuleID: checkStale, Status: "warn", IssueCount: 2},
		{RuleID: checkUnused, Status: "pass", IssueCount: 0},
	}

	recommendations := generateRecommendations(checks)

	require.Len(t, recommendations, 2)
	assert.Contains(t, recommendations[0], "syntax errors")
	assert.Contains(t, recommendations[1], "tusk build")
}

func TestGenerateRecommendations_LimitTo5(t *testing.T) {
	checks := make([]HealthCheck, 0, len(healthRules))
	for _, rule := range healthRules {
		checks = append(checks, HealthCheck{RuleID: rule.id, Status: rule.level, IssueCount: 1})
	}

	assert.Len(t, generateRecommendations(checks), 5)
}

func diag(code string, sev core.Severity, line int) core.Diagnostic {
	return core.Diagnostic{Code: code, Severity: sev, Message: code, Pos: token.Position{Line: line, Column: 1}}
}

func TestClassifyDiagnostics(t *testing.T) {
	reports := []*engine.FileReport{
		{
			Path: "a.tsk",
			Diagnostics: []core.Diagnostic{
				diag(parser.CodeSyntax, core.SeverityError, 1),
				diag(engine.CodeMissingInclude, core.SeverityWarning, 2),
			},
		},
		{
			Path: "b.tsk",
			Diagnostics: []core.Diagnostic{
				diag(analyzer.CodeUndefinedVariable, core.SeverityError, 3),
				diag(analyzer.CodeUnusedVariable, core.SeverityWarning, 4),
				diag(analyzer.CodeUnknownDirective, core.SeverityWarning, 5),
			},
		},
	}

	issues := classifyDiagnostics(reports)

	assert.Equal(t, []string{"a.tsk:1: syntax"}, issues[checkSyntax])
	assert.Equal(t, []string{"a.tsk:2: missing-include"}, issues[checkIncludes])
	assert.Equal(t, []string{"b.tsk:3: undefined-variable"}, issues[checkSemantic])
	assert.Equal(t, []string{"b.tsk:4: unused-variable"}, issues[checkUnused])
	assert.Equal(t, []string{"b.tsk:5: unknown-directive"}, issues[checkWarnings])
}

func TestCheckArtifacts(t *testing.T) {
	compiled := time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)
	hashes := map[string]string{
		"fresh.tsk":   "h1",
		"changed.tsk": "h2",
		"new.tsk":     "h3",
	}
	artifacts := []*state.Artifact{
		{SourcePath: "fresh.tsk", SourceHash: "h1", CompiledAt: compiled},
		{SourcePath: "changed.tsk", SourceHash: "old", CompiledAt: compiled},
		{SourcePath: "gone.tsk", SourceHash: "h9", CompiledAt: compiled},
	}

	issues := checkArtifacts(hashes, artifacts)

	assert.Equal(t, []string{
		"changed.tsk changed since 2026-01-02 03:04",
		"new.tsk has never been built",
	}, issues[checkStale])
	assert.Equal(t, []string{"gone.tsk no longer exists"}, issues[checkOrphanRecords])
}

func TestBuildDoctorOutput(t *testing.T) {
	out := buildDoctorOutput(ProjectSummary{Files: 3}, map[string][]string{
		checkSemantic: {"a.tsk:1: boom"},
		checkStale:    {"a.tsk has never been built", "b.tsk has never been built"},
	})

	require.Len(t, out.HealthChecks, len(healthRules))
	assert.Equal(t, 3, out.IssueCount)
	assert.Equal(t, 100-10-10, out.Score)

	byID := make(map[string]HealthCheck)
	for _, c := range out.HealthChecks {
		byID[c.RuleID] = c
	}
	assert.Equal(t, "error", byID[checkSemantic].Status)
	assert.Equal(t, "warn", byID[checkStale].Status)
	assert.Equal(t, "pass", byID[checkSyntax].Status)
	assert.Len(t, out.Recommendations, 2)
}
