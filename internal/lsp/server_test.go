package lsp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-boost/tusktsk/internal/testutil"
	"github.com/cyber-boost/tusktsk/pkg/analyzer"
	"github.com/cyber-boost/tusktsk/pkg/parser"
)

const testURI = "file:///project/app.tsk"

// session builds a framed stream of client messages.
type session struct {
	buf    bytes.Buffer
	nextID int
}

func (s *session) request(method string, params any) int {
	s.nextID++
	s.write(map[string]any{"jsonrpc": "2.0", "id": s.nextID, "method": method, "params": params})
	return s.nextID
}

func (s *session) notify(method string, params any) {
	s.write(map[string]any{"jsonrpc": "2.0", "method": method, "params": params})
}

func (s *session) write(msg any) {
	body, _ := json.Marshal(msg)
	fmt.Fprintf(&s.buf, "Content-Length: %d\r\n\r\n%s", len(body), body)
}

func (s *session) open(text string) {
	s.notify("textDocument/didOpen", DidOpenTextDocumentParams{
		TextDocument: TextDocumentItem{URI: testURI, LanguageID: "tusk", Version: 1, Text: text},
	})
}

func (s *session) at(method string, line, character uint32) int {
	return s.request(method, TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: testURI},
		Position:     Position{Line: line, Character: character},
	})
}

// run drives a server over the session and returns every message it wrote.
func (s *session) run(t *testing.T) ([]JSONRPCMessage, error) {
	t.Helper()
	var out bytes.Buffer
	server := NewServerWithLogger(&s.buf, &out, testutil.NewTestLogger(t))
	server.SetVersion("test")
	server.SetAnalyzerOptions(analyzer.Options{})
	err := server.Run()
	return readMessages(t, &out), err
}

func readMessages(t *testing.T, r io.Reader) []JSONRPCMessage {
	t.Helper()
	br := bufio.NewReader(r)
	var msgs []JSONRPCMessage
	for {
		header, err := br.ReadString('\n')
		if err == io.EOF {
			return msgs
		}
		require.NoError(t, err)
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(header, "Content-Length:")))
		require.NoError(t, err)
		_, err = br.ReadString('\n')
		require.NoError(t, err)

		body := make([]byte, n)
		_, err = io.ReadFull(br, body)
		require.NoError(t, err)

		var msg JSONRPCMessage
		require.NoError(t, json.Unmarshal(body, &msg))
		msgs = append(msgs, msg)
	}
}

func response(t *testing.T, msgs []JSONRPCMessage, id int, result any) *JSONRPCError {
	t.Helper()
	for _, m := range msgs {
		if m.ID == nil || m.Method != "" {
			continue
		}
		var got int
		require.NoError(t, json.Unmarshal(*m.ID, &got))
		if got != id {
			continue
		}
		if m.Error == nil && result != nil {
			require.NoError(t, json.Unmarshal(m.Result, result))
		}
		return m.Error
	}
	t.Fatalf("no response for request %d", id)
	return nil
}

func notifications(t *testing.T, msgs []JSONRPCMessage, method string) []PublishDiagnosticsParams {
	t.Helper()
	var out []PublishDiagnosticsParams
	for _, m := range msgs {
		if m.Method != method {
			continue
		}
		var p PublishDiagnosticsParams
		require.NoError(t, json.Unmarshal(m.Params, &p))
		out = append(out, p)
	}
	return out
}

func labels(items []CompletionItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Label
	}
	return out
}

func TestServer_Initialize(t *testing.T) {
	var s session
	id := s.request("initialize", InitializeParams{RootURI: "file:///project"})
	s.notify("initialized", struct{}{})

	msgs, err := s.run(t)
	require.NoError(t, err)

	var result InitializeResult
	require.Nil(t, response(t, msgs, id, &result))
	require.NotNil(t, result.ServerInfo)
	assert.Equal(t, "tusk", result.ServerInfo.Name)
	assert.Equal(t, "test", result.ServerInfo.Version)
	assert.True(t, result.Capabilities.HoverProvider)
	assert.True(t, result.Capabilities.DocumentFormattingProvider)
	require.NotNil(t, result.Capabilities.TextDocumentSync)
	assert.Equal(t, TextDocumentSyncKindFull, result.Capabilities.TextDocumentSync.Change)
	require.NotNil(t, result.Capabilities.CompletionProvider)
	assert.Contains(t, result.Capabilities.CompletionProvider.TriggerCharacters, "@")
}

func TestServer_PublishDiagnostics(t *testing.T) {
	var s session
	s.open("name: \"app\"\nport: $missing\n")
	s.notify("textDocument/didChange", DidChangeTextDocumentParams{
		TextDocument:   VersionedTextDocumentIdentifier{TextDocumentIdentifier: TextDocumentIdentifier{URI: testURI}, Version: 2},
		ContentChanges: []TextDocumentContentChangeEvent{{Text: "name: \"app\"\n"}},
	})
	s.notify("textDocument/didClose", DidCloseTextDocumentParams{TextDocument: TextDocumentIdentifier{URI: testURI}})

	msgs, err := s.run(t)
	require.NoError(t, err)

	published := notifications(t, msgs, "textDocument/publishDiagnostics")
	require.Len(t, published, 3)

	first := published[0]
	require.NotNil(t, first.Version)
	assert.Equal(t, 1, *first.Version)
	require.Len(t, first.Diagnostics, 1)
	d := first.Diagnostics[0]
	assert.Equal(t, analyzer.CodeUndefinedVariable, d.Code)
	assert.Equal(t, DiagnosticSeverityError, d.Severity)
	assert.Equal(t, diagnosticSource, d.Source)
	assert.Equal(t, uint32(1), d.Range.Start.Line)
	assert.Less(t, d.Range.Start.Character, d.Range.End.Character)

	require.NotNil(t, published[1].Version)
	assert.Equal(t, 2, *published[1].Version)
	assert.Empty(t, published[1].Diagnostics)

	assert.Nil(t, published[2].Version)
	assert.Empty(t, published[2].Diagnostics)
}

func TestServer_UnusedWarningsByDefault(t *testing.T) {
	server := NewServer(strings.NewReader(""), io.Discard)
	doc := server.documents.Open(testURI, "name: \"app\"\n", 1)

	a := server.analyze(doc)
	require.Len(t, a.diagnostics, 1)
	assert.Equal(t, analyzer.CodeUnusedVariable, a.diagnostics[0].Code)
	assert.Same(t, a, server.analyze(doc), "same version is analyzed once")

	lsp := toLSPDiagnostic(doc, a.diagnostics[0])
	assert.Equal(t, DiagnosticSeverityWarning, lsp.Severity)
	assert.Equal(t, Range{Start: Position{}, End: Position{Character: 4}}, lsp.Range)
}

func TestServer_SyntaxErrorDiagnostics(t *testing.T) {
	var s session
	s.open("a: [1,\n")

	msgs, err := s.run(t)
	require.NoError(t, err)

	published := notifications(t, msgs, "textDocument/publishDiagnostics")
	require.Len(t, published, 1)
	require.NotEmpty(t, published[0].Diagnostics)
	assert.Equal(t, DiagnosticSeverityError, published[0].Diagnostics[0].Severity)
}

func TestServer_DiagnosticsPastSyntaxError(t *testing.T) {
	var s session
	s.open("a: ~\nb: $missing\n")

	msgs, err := s.run(t)
	require.NoError(t, err)

	published := notifications(t, msgs, "textDocument/publishDiagnostics")
	require.Len(t, published, 1)

	lines := map[string]uint32{}
	for _, d := range published[0].Diagnostics {
		lines[d.Code] = d.Range.Start.Line
	}
	require.Contains(t, lines, parser.CodeSyntax)
	require.Contains(t, lines, analyzer.CodeUndefinedVariable)
	assert.Equal(t, uint32(0), lines[parser.CodeSyntax])
	assert.Equal(t, uint32(1), lines[analyzer.CodeUndefinedVariable])
}

func TestServer_Completion(t *testing.T) {
	var s session
	s.open(`$env = "prod"
name: "app"
url: @env("URL")
mode: $env
port: @cache.tsk.get("port")
plain: name
`)
	directiveID := s.at("textDocument/completion", 2, 6)
	globalID := s.at("textDocument/completion", 3, 7)
	crossID := s.at("textDocument/completion", 4, 17)
	noneID := s.at("textDocument/completion", 5, 9)

	msgs, err := s.run(t)
	require.NoError(t, err)

	var directives CompletionList
	require.Nil(t, response(t, msgs, directiveID, &directives))
	assert.Contains(t, labels(directives.Items), "env")
	assert.Contains(t, labels(directives.Items), "include")

	var globals CompletionList
	require.Nil(t, response(t, msgs, globalID, &globals))
	assert.Contains(t, labels(globals.Items), "env")
	assert.Contains(t, labels(globals.Items), "name")

	var cross CompletionList
	require.Nil(t, response(t, msgs, crossID, &cross))
	assert.Equal(t, analyzer.CrossFileMethods(), labels(cross.Items))

	var none CompletionList
	require.Nil(t, response(t, msgs, noneID, &none))
	assert.Empty(t, none.Items)
}

func TestServer_Hover(t *testing.T) {
	var s session
	s.open("$env = \"prod\"\nurl: @env(\"URL\")\nmode: $env\n")
	directiveID := s.at("textDocument/hover", 1, 6)
	globalID := s.at("textDocument/hover", 2, 8)
	emptyID := s.at("textDocument/hover", 1, 4)

	msgs, err := s.run(t)
	require.NoError(t, err)

	var directive Hover
	require.Nil(t, response(t, msgs, directiveID, &directive))
	assert.Equal(t, MarkupKindMarkdown, directive.Contents.Kind)
	d, ok := analyzer.LookupDirective("env")
	require.True(t, ok)
	assert.Contains(t, directive.Contents.Value, d.Signature())

	var global Hover
	require.Nil(t, response(t, msgs, globalID, &global))
	assert.Contains(t, global.Contents.Value, "`env`")
	assert.Contains(t, global.Contents.Value, "line 1")

	var empty *Hover
	require.Nil(t, response(t, msgs, emptyID, &empty))
	assert.Nil(t, empty)
}

func TestServer_Formatting(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []TextEdit
	}{
		{
			name: "reformats document",
			text: "sum:1+2\n",
			expected: []TextEdit{{
				Range:   Range{Start: Position{}, End: Position{Line: 1, Character: 0}},
				NewText: "sum: 1 + 2\n",
			}},
		},
		{
			name:     "already formatted",
			text:     "sum: 1 + 2\n",
			expected: []TextEdit{},
		},
		{
			name: "syntax error",
			text: "a: [1,\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s session
			s.open(tt.text)
			id := s.request("textDocument/formatting", DocumentFormattingParams{
				TextDocument: TextDocumentIdentifier{URI: testURI},
			})

			msgs, err := s.run(t)
			require.NoError(t, err)

			var edits []TextEdit
			require.Nil(t, response(t, msgs, id, &edits))
			assert.Equal(t, tt.expected, edits)
		})
	}
}

func TestServer_Lifecycle(t *testing.T) {
	t.Run("shutdown then exit", func(t *testing.T) {
		var s session
		shutdownID := s.request("shutdown", nil)
		lateID := s.at("textDocument/hover", 0, 0)
		s.notify("exit", nil)
		// Never read: the server stops at exit.
		s.request("shutdown", nil)

		msgs, err := s.run(t)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Nil(t, response(t, msgs, shutdownID, nil))

		rpcErr := response(t, msgs, lateID, nil)
		require.NotNil(t, rpcErr)
		assert.Equal(t, codeInvalidRequest, rpcErr.Code)
	})

	t.Run("exit without shutdown", func(t *testing.T) {
		var s session
		s.notify("exit", nil)

		_, err := s.run(t)
		assert.ErrorIs(t, err, ErrNoShutdown)
	})

	t.Run("unknown method", func(t *testing.T) {
		var s session
		id := s.request("workspace/symbol", struct{}{})
		s.notify("$/cancelRequest", struct{}{})

		msgs, err := s.run(t)
		require.NoError(t, err)
		require.Len(t, msgs, 1)

		rpcErr := response(t, msgs, id, nil)
		require.NotNil(t, rpcErr)
		assert.Equal(t, codeMethodNotFound, rpcErr.Code)
	})
}

func TestDetectContext(t *testing.T) {
	tests := []struct {
		before   string
		expected CompletionContextType
	}{
		{"url: @", ContextDirective},
		{"url: @en", ContextDirective},
		{"port: @cache.tsk.", ContextCrossFile},
		{"port: @cache.tsk.ge", ContextCrossFile},
		{"port: @conf.d.shared.tsk.", ContextCrossFile},
		{"mode: $", ContextGlobal},
		{"mode: $en", ContextGlobal},
		{"mode: x", ContextUnknown},
		{"", ContextUnknown},
	}

	for _, tt := range tests {
		if got := detectContext(tt.before); got != tt.expected {
			t.Errorf("detectContext(%q): expected %d, got %d", tt.before, tt.expected, got)
		}
	}
}
