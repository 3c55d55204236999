package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/cyber-boost/tusktsk/pkg/analyzer"
	"github.com/cyber-boost/tusktsk/pkg/core"
	"github.com/cyber-boost/tusktsk/pkg/format"
	"github.com/cyber-boost/tusktsk/pkg/parser"
	"github.com/cyber-boost/tusktsk/pkg/token"
	"github.com/cyber-boost/tusktsk/pkg/value"
)

const (
	replPrompt     = "tusk> "
	replContPrompt = "  ... "
)

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl [file]",
		Short: "Interactive configuration shell",
		Long: `Start an interactive shell that builds a configuration line by line.

Every entered statement is parsed and analyzed together with the ones
before it; statements with errors are rejected. Blocks spanning several
lines are collected until they are closed. An optional file seeds the
session.`,
		Example: `  tusk repl
  tusk repl app.tsk`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd, args)
		},
	}

	addAnalyzerFlags(cmd)

	return cmd
}

func runREPL(cmd *cobra.Command, args []string) error {
	cmdCtx := NewCommandContextWithoutEngine(cmd)
	session := newREPLSession(cmd.OutOrStdout(), cmd.ErrOrStderr(), cmdCtx.Cfg.Analyzer.Options())

	if len(args) == 1 {
		if err := session.load(args[0]); err != nil {
			return err
		}
	}

	historyFile := ""
	if cmdCtx.Cfg.StatePath != ":memory:" {
		historyFile = filepath.Join(filepath.Dir(cmdCtx.Cfg.StatePath), "repl_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    newREPLCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Tusk REPL")
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			session.discard()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if session.eval(line) {
			break
		}
		if session.continuing() {
			rl.SetPrompt(replContPrompt)
		} else {
			rl.SetPrompt(replPrompt)
		}
	}
	return nil
}

func newREPLCompleter() *readline.PrefixCompleter {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem(".help"),
		readline.PcItem(".show"),
		readline.PcItem(".get"),
		readline.PcItem(".type"),
		readline.PcItem(".tokens"),
		readline.PcItem(".load"),
		readline.PcItem(".reset"),
		readline.PcItem(".quit"),
	}
	for _, d := range analyzer.Directives() {
		items = append(items, readline.PcItem("@"+d.Name+"("))
	}
	return readline.NewPrefixCompleter(items...)
}

// replSession holds the statements accepted so far.
type replSession struct {
	out    io.Writer
	errOut io.Writer
	opts   analyzer.Options

	source  string
	cfg     *core.Configuration
	pending []string
	depth   int
}

func newREPLSession(out, errOut io.Writer, opts analyzer.Options) *replSession {
	return &replSession{out: out, errOut: errOut, opts: opts, cfg: &core.Configuration{}}
}

func (s *replSession) continuing() bool {
	return len(s.pending) > 0
}

func (s *replSession) discard() {
	s.pending = nil
	s.depth = 0
}

// eval handles one input line and reports whether the session should end.
func (s *replSession) eval(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !s.continuing() {
		if trimmed == "" {
			return false
		}
		if strings.HasPrefix(trimmed, ".") {
			return s.command(trimmed)
		}
	}

	s.pending = append(s.pending, line)
	s.depth += blockDelta(line)
	if s.depth > 0 {
		return false
	}

	chunk := strings.Join(s.pending, "\n") + "\n"
	s.discard()
	s.accept(chunk)
	return false
}

// blockDelta is the change in open blocks caused by one line.
func blockDelta(line string) int {
	var toks []token.Token
	for _, tok := range parser.Tokenize(line) {
		if tok.Type != token.NEWLINE && tok.Type != token.EOF && tok.Type != token.COMMENT {
			toks = append(toks, tok)
		}
	}
	if len(toks) == 0 {
		return 0
	}

	delta := 0
	for _, tok := range toks {
		switch tok.Type {
		case token.LBRACE, token.LBRACKET:
			delta++
		case token.RBRACE, token.RBRACKET:
			delta--
		}
	}
	switch {
	case len(toks) == 2 && toks[0].Type == token.IDENT && toks[1].Type == token.GT:
		delta++
	case len(toks) == 1 && toks[0].Type == token.LT:
		delta--
	}
	return delta
}

// accept parses and analyzes chunk on top of the session source. The
// chunk is kept only when the result has no errors.
func (s *replSession) accept(chunk string) {
	candidate := s.source + chunk
	cfg, errs := parser.Parse(candidate)
	if len(errs) > 0 {
		s.printDiagnostics(errs.Diagnostics())
		return
	}
	res := analyzer.Analyze(cfg, s.opts)
	if res.HasErrors() {
		s.printDiagnostics(res.Errors)
		return
	}

	firstLine := strings.Count(s.source, "\n") + 1
	s.source = candidate
	s.cfg = cfg

	for _, w := range res.Warnings {
		if w.Pos.Line >= firstLine && w.Code != analyzer.CodeUnusedVariable {
			_, _ = fmt.Fprintf(s.errOut, "warning: %s [%s]\n", w.Message, w.Code)
		}
	}
	core.Walk(cfg, func(n core.Node) bool {
		if n.Pos().Line < firstLine {
			_, isSection := n.(*core.Section)
			_, isConfig := n.(*core.Configuration)
			return isSection || isConfig
		}
		switch n := n.(type) {
		case *core.GlobalVariableDecl:
			_, _ = fmt.Fprintf(s.out, "$%s: %s\n", n.Name, res.TypeOf(n.Value))
		case *core.Assignment:
			_, _ = fmt.Fprintf(s.out, "%s: %s\n", n.Key, res.TypeOf(n.Value))
		}
		return true
	})
}

func (s *replSession) printDiagnostics(diags []core.Diagnostic) {
	for _, d := range diags {
		_, _ = fmt.Fprintf(s.errOut, "%s: %s [%s]\n", d.Severity, d.Message, d.Code)
	}
}

// load seeds the session from a file.
func (s *replSession) load(path string) error {
	src, err := os.ReadFile(path) //nolint:gosec // user-supplied path is the point
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	cfg, errs := parser.Parse(string(src))
	if err := errs.Err(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	s.source = string(src)
	if !strings.HasSuffix(s.source, "\n") {
		s.source += "\n"
	}
	s.cfg = cfg
	_, _ = fmt.Fprintf(s.out, "loaded %s (%d statements)\n", path, len(cfg.Statements))
	return nil
}

// command runs a dot-command and reports whether the session should end.
func (s *replSession) command(line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(s.out)

	case ".show":
		_, _ = fmt.Fprint(s.out, format.Format(s.cfg))

	case ".reset":
		s.source = ""
		s.cfg = &core.Configuration{}

	case ".get":
		if arg == "" {
			_, _ = fmt.Fprintln(s.errOut, "Usage: .get <path>")
			break
		}
		v, err := value.FromAST(s.cfg).Lookup(arg)
		if err != nil {
			_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
			break
		}
		_, _ = fmt.Fprintln(s.out, v.String())

	case ".type":
		if arg == "" {
			_, _ = fmt.Fprintln(s.errOut, "Usage: .type <expression>")
			break
		}
		s.typeOf(arg)

	case ".tokens":
		for _, tok := range parser.Tokenize(arg) {
			_, _ = fmt.Fprintf(s.out, "%s %s\n", tok.Pos, tok)
		}

	case ".load":
		if arg == "" {
			_, _ = fmt.Fprintln(s.errOut, "Usage: .load <file>")
			break
		}
		if err := s.load(arg); err != nil {
			_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
		}

	default:
		_, _ = fmt.Fprintf(s.errOut, "Unknown command: %s (type .help for commands)\n", name)
	}
	return false
}

// typeOf prints the inferred type of an expression evaluated after the
// session's statements.
func (s *replSession) typeOf(expr string) {
	const evalKey = "__repl_eval"
	cfg, errs := parser.Parse(s.source + evalKey + ": " + expr + "\n")
	if len(errs) > 0 {
		s.printDiagnostics(errs.Diagnostics())
		return
	}
	res := analyzer.Analyze(cfg, analyzer.Options{StrictCoercion: s.opts.StrictCoercion})
	last, ok := cfg.Statements[len(cfg.Statements)-1].(*core.Assignment)
	if !ok || last.Key != evalKey {
		_, _ = fmt.Fprintln(s.errOut, "Error: expression does not stand alone after an open section")
		return
	}
	for _, d := range res.Errors {
		if d.Pos.Line >= last.KeyPos.Line {
			_, _ = fmt.Fprintf(s.errOut, "%s: %s [%s]\n", d.Severity, d.Message, d.Code)
		}
	}
	_, _ = fmt.Fprintln(s.out, res.TypeOf(last.Value))
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help            Show this help message
  .show            Print the session in canonical form
  .get <path>      Print the value at a dotted path
  .type <expr>     Print the inferred type of an expression
  .tokens <text>   Tokenize text
  .load <file>     Replace the session with a file
  .reset           Clear the session
  .quit / .exit    Exit the REPL

Tips:
  - Statements are checked together with everything entered before
  - Open blocks ({, [, name >) continue until closed
  - Tab completion works for commands and directives
`
	_, _ = fmt.Fprintln(w, help)
}
