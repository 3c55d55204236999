package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cyber-boost/tusktsk/internal/cli/output"
	"github.com/cyber-boost/tusktsk/pkg/parser"
	"github.com/cyber-boost/tusktsk/pkg/token"
)

// NewTokensCommand creates the tokens command.
func NewTokensCommand() *cobra.Command {
	var skipNewlines bool

	cmd := &cobra.Command{
		Use:   "tokens <file>",
		Short: "Print the token stream of a file",
		Long: `Run the tokenizer over a file and print every token with its position.

Useful when a parse error points somewhere unexpected.`,
		Example: `  # Show tokens
  tusk tokens app.tsk

  # Tokens as JSON, without NEWLINE tokens
  tusk tokens app.tsk --skip-newlines -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokens(cmd, args[0], skipNewlines)
		},
	}

	cmd.Flags().BoolVar(&skipNewlines, "skip-newlines", false, "Omit NEWLINE tokens")

	return cmd
}

type tokenJSON struct {
	Type    string `json:"type"`
	Literal string `json:"literal"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Offset  int    `json:"offset"`
}

func runTokens(cmd *cobra.Command, path string, skipNewlines bool) error {
	cmdCtx := NewCommandContextWithoutEngine(cmd)
	r := cmdCtx.Renderer

	src, err := os.ReadFile(path) //nolint:gosec // user-supplied path is the point
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var toks []token.Token
	for _, tok := range parser.Tokenize(string(src)) {
		if skipNewlines && tok.Type == token.NEWLINE {
			continue
		}
		toks = append(toks, tok)
	}

	if r.EffectiveMode() == output.ModeJSON {
		out := make([]tokenJSON, len(toks))
		for i, tok := range toks {
			out[i] = tokenJSON{
				Type:    tok.Type.String(),
				Literal: tok.Literal,
				Line:    tok.Pos.Line,
				Column:  tok.Pos.Column,
				Offset:  tok.Pos.Offset,
			}
		}
		return r.JSON(out)
	}

	rows := make([][]string, len(toks))
	for i, tok := range toks {
		rows[i] = []string{
			fmt.Sprintf("%d:%d", tok.Pos.Line, tok.Pos.Column),
			tok.Type.String(),
			strconv.Quote(tok.Literal),
		}
	}
	r.Table([]string{"Pos", "Type", "Literal"}, rows)
	return nil
}
