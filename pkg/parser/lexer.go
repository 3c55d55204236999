package parser

import (
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/cyber-boost/tusktsk/pkg/token"
)

// Lexer tokenizes TuskLang source. It never fails: anything it cannot
// classify comes out as an ILLEGAL token for the parser to report.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // line of ch (1-based)
	col     int  // column of ch (1-based)
	done    bool // EOF already returned
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.Reset()
	return l
}

// Reset rewinds the lexer to the start of its input. Resuming from an
// arbitrary offset is not supported.
func (l *Lexer) Reset() {
	l.pos = 0
	l.readPos = 0
	l.line = 1
	l.col = 0
	l.done = false
	l.readChar()
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.pos < len(l.input) && l.readPos > 0 && l.input[l.pos] == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.col++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// peekCharAt returns the character n positions after the current one.
func (l *Lexer) peekCharAt(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

// currentPos returns the position of the current character.
func (l *Lexer) currentPos() token.Position {
	return token.Position{Line: l.line, Column: l.col, Offset: l.pos}
}

// NextToken returns the next token. After EOF it keeps returning EOF.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()

	pos := l.currentPos()
	if l.atEOF() {
		l.done = true
		return token.Token{Type: token.EOF, Pos: pos, End: l.pos}
	}

	switch l.ch {
	case '\n':
		l.readChar()
		return l.finish(token.NEWLINE, "\n", pos)
	case '#':
		return l.readComment(pos)
	case '"', '\'':
		return l.readString(pos)
	case '@':
		if token.IsIdentStart(l.peekChar()) {
			l.readChar()
			return l.finish(token.DIRECTIVE, l.readIdentifier(), pos)
		}
		l.readChar()
		return l.finish(token.ILLEGAL, "@", pos)
	case '$':
		if token.IsIdentStart(l.peekChar()) {
			l.readChar()
			return l.finish(token.GLOBAL_IDENT, l.readIdentifier(), pos)
		}
		l.readChar()
		return l.finish(token.ILLEGAL, "$", pos)
	case '=':
		return l.either('=', token.EQ, "==", token.ASSIGN, "=", pos)
	case '!':
		return l.either('=', token.NE, "!=", token.NOT, "!", pos)
	case '<':
		return l.either('=', token.LE, "<=", token.LT, "<", pos)
	case '>':
		return l.either('=', token.GE, ">=", token.GT, ">", pos)
	case '&':
		return l.either('&', token.AND, "&&", token.ILLEGAL, "&", pos)
	case '|':
		return l.either('|', token.OR, "||", token.ILLEGAL, "|", pos)
	}

	if tt, ok := singleCharTokens[l.ch]; ok {
		lit := string(l.ch)
		l.readChar()
		return l.finish(tt, lit, pos)
	}

	switch {
	case token.IsIdentStart(l.ch):
		lit := l.readIdentifier()
		return l.finish(token.LookupIdent(lit), lit, pos)
	case isDigit(l.ch):
		return l.readNumber(pos)
	}

	// Keep multi-byte characters whole so the error shows the real rune.
	_, size := utf8.DecodeRuneInString(l.input[l.pos:])
	lit := l.input[l.pos : l.pos+size]
	for range size {
		l.readChar()
	}
	return l.finish(token.ILLEGAL, lit, pos)
}

var singleCharTokens = map[byte]token.TokenType{
	'[': token.LBRACKET,
	']': token.RBRACKET,
	'{': token.LBRACE,
	'}': token.RBRACE,
	'(': token.LPAREN,
	')': token.RPAREN,
	',': token.COMMA,
	':': token.COLON,
	';': token.SEMICOLON,
	'.': token.DOT,
	'?': token.QUESTION,
	'+': token.PLUS,
	'-': token.MINUS,
	'*': token.STAR,
	'/': token.SLASH,
	'%': token.PERCENT,
}

// finish builds a token that ends at the current position.
func (l *Lexer) finish(tt token.TokenType, literal string, pos token.Position) token.Token {
	return token.Token{Type: tt, Literal: literal, Pos: pos, End: l.pos}
}

// either emits the two-character token when the next char is second,
// otherwise the single-character one.
func (l *Lexer) either(second byte, two token.TokenType, twoLit string, one token.TokenType, oneLit string, pos token.Position) token.Token {
	if l.peekChar() == second {
		l.readChar()
		l.readChar()
		return l.finish(two, twoLit, pos)
	}
	l.readChar()
	return l.finish(one, oneLit, pos)
}

// skipWhitespace skips spaces, tabs and carriage returns. Newlines are
// significant and are not skipped.
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\f' || l.ch == '\v' {
		l.readChar()
	}
}

// readComment reads a # comment up to (not including) the line break.
func (l *Lexer) readComment(pos token.Position) token.Token {
	l.readChar() // skip '#'
	start := l.pos
	for !l.atEOF() && l.ch != '\n' {
		l.readChar()
	}
	text := strings.TrimRight(l.input[start:l.pos], "\r")
	return l.finish(token.COMMENT, text, pos)
}

// readIdentifier reads an identifier. A '-' is part of the identifier only
// when it is directly followed by a letter or underscore.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for {
		switch {
		case token.IsIdentPart(l.ch):
			l.readChar()
		case l.ch == '-' && token.IsIdentStart(l.peekChar()):
			l.readChar()
		default:
			return l.input[start:l.pos]
		}
	}
}

// readNumber reads an integer, decimal or scientific literal. A number
// running straight into letters ("30s", "1x") is malformed.
func (l *Lexer) readNumber(pos token.Position) token.Token {
	start := l.pos
	tt := token.INT

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		tt = token.FLOAT
		l.readChar() // skip '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(l.peekCharAt(2))) {
			tt = token.FLOAT
			l.readChar() // skip 'e' or 'E'
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}

	if token.IsIdentPart(l.ch) || (l.ch == '.' && isDigit(l.peekChar())) {
		for token.IsIdentPart(l.ch) || l.ch == '.' {
			l.readChar()
		}
		return l.finish(token.ILLEGAL, l.input[start:l.pos], pos)
	}

	return l.finish(tt, l.input[start:l.pos], pos)
}

// readString reads a quoted string. Plain strings carry their decoded
// value; templates (an unescaped "${" inside) carry the raw text between
// the quotes so slot offsets survive escaping. An unterminated string is
// ILLEGAL with the text read so far.
func (l *Lexer) readString(pos token.Position) token.Token {
	quote := l.ch
	l.readChar() // skip opening quote
	start := l.pos

	var decoded strings.Builder
	template := false
	for {
		switch {
		case l.atEOF() || l.ch == '\n':
			return l.finish(token.ILLEGAL, l.input[pos.Offset:l.pos], pos)
		case l.ch == quote:
			raw := l.input[start:l.pos]
			l.readChar() // skip closing quote
			if template {
				return l.finish(token.TEMPLATE, raw, pos)
			}
			return l.finish(token.STRING, decoded.String(), pos)
		case l.ch == '\\':
			l.readChar()
			if l.atEOF() || l.ch == '\n' {
				continue
			}
			decoded.WriteByte(unescape(l.ch))
			l.readChar()
		default:
			if l.ch == '$' && l.peekChar() == '{' {
				template = true
			}
			decoded.WriteByte(l.ch)
			l.readChar()
		}
	}
}

// unescape maps the character after a backslash to its value. Unknown
// escapes stand for the character itself.
func unescape(ch byte) byte {
	switch ch {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	default:
		return ch
	}
}

// isDigit returns true if ch is a digit.
func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// All returns the remaining tokens as a lazy sequence ending with a
// single EOF token.
func (l *Lexer) All() iter.Seq[token.Token] {
	return func(yield func(token.Token) bool) {
		for !l.done {
			if !yield(l.NextToken()) {
				return
			}
		}
	}
}

// Tokenize returns all tokens from the input, including the final EOF.
func Tokenize(input string) []token.Token {
	var tokens []token.Token
	for tok := range NewLexer(input).All() {
		tokens = append(tokens, tok)
	}
	return tokens
}
