package template

import (
	"strings"
	"unicode"
)

type TokenType int

const (
	TokenEOF TokenType = iota
	TokenText
	TokenVarStart
	TokenVarEnd
	TokenBlockStart
	TokenBlockEnd
	TokenName
	TokenString
	TokenNumber
	TokenOperator
	TokenError
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "end of template"
	case TokenText:
		return "text"
	case TokenVarStart:
		return "'{{'"
	case TokenVarEnd:
		return "'}}'"
	case TokenBlockStart:
		return "'{%'"
	case TokenBlockEnd:
		return "'%}'"
	case TokenName:
		return "name"
	case TokenString:
		return "string"
	case TokenNumber:
		return "number"
	case TokenOperator:
		return "operator"
	default:
		return "error"
	}
}

type Token struct {
	Type    TokenType
	Value   string
	Line    int
	Column  int
	Literal any
}

func (t Token) Pos() Position {
	return Position{Line: t.Line, Column: t.Column}
}

func (t Token) describe() string {
	switch t.Type {
	case TokenName, TokenOperator, TokenNumber:
		return "'" + t.Value + "'"
	case TokenString:
		return "string " + quoteString(t.Value)
	}
	return t.Type.String()
}

type lexMode int

const (
	modeText lexMode = iota
	modeVar
	modeBlock
)

// Lexer splits template source into text runs and the tokens inside
// {{ ... }} and {% ... %} delimiters. Comments are dropped and raw blocks
// come out as a single text token.
type Lexer struct {
	input    string
	pos      int
	readPos  int
	ch       byte
	line     int
	column   int
	mode     lexMode
	trimNext bool
}

func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
	}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.column++
}

func (l *Lexer) skip(n int) {
	for i := 0; i < n; i++ {
		l.readChar()
	}
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) rest() string {
	if l.pos >= len(l.input) {
		return ""
	}
	return l.input[l.pos:]
}

func (l *Lexer) NextToken() Token {
	if l.mode == modeText {
		return l.nextTextToken()
	}
	return l.nextTagToken()
}

func (l *Lexer) nextTextToken() Token {
	for {
		if l.ch == 0 {
			return Token{Type: TokenEOF, Line: l.line, Column: l.column}
		}
		rest := l.rest()
		switch {
		case strings.HasPrefix(rest, "{#"):
			if tok, ok := l.skipComment(); !ok {
				return tok
			}
			continue
		case strings.HasPrefix(rest, "{{"):
			tok := Token{Type: TokenVarStart, Value: "{{", Line: l.line, Column: l.column}
			l.skip(2)
			if l.ch == '-' {
				l.readChar()
			}
			l.mode = modeVar
			return tok
		case strings.HasPrefix(rest, "{%"):
			if n, ok := matchTag(rest, "raw"); ok {
				if tok, ok := l.readRaw(n); ok {
					return tok
				} else if tok.Type == TokenError {
					return tok
				}
				continue
			}
			tok := Token{Type: TokenBlockStart, Value: "{%", Line: l.line, Column: l.column}
			l.skip(2)
			if l.ch == '-' {
				l.readChar()
			}
			l.mode = modeBlock
			return tok
		}
		if tok, ok := l.readText(); ok {
			return tok
		}
	}
}

// readText consumes text up to the next delimiter, applying whitespace
// control from the surrounding tags. ok is false when trimming left nothing.
func (l *Lexer) readText() (Token, bool) {
	line, col := l.line, l.column
	start := l.pos
	for l.ch != 0 {
		if l.ch == '{' {
			next := l.peekChar()
			if next == '{' || next == '%' || next == '#' {
				break
			}
		}
		l.readChar()
	}
	text := l.input[start:l.pos]
	if l.trimNext {
		text = strings.TrimLeft(text, " \t\r\n")
		l.trimNext = false
	}
	if rest := l.rest(); len(rest) > 2 && rest[2] == '-' {
		text = strings.TrimRight(text, " \t\r\n")
	}
	if text == "" {
		return Token{}, false
	}
	return Token{Type: TokenText, Value: text, Line: line, Column: col}, true
}

func (l *Lexer) skipComment() (Token, bool) {
	line, col := l.line, l.column
	end := strings.Index(l.rest(), "#}")
	if end < 0 {
		return Token{Type: TokenError, Value: "unclosed comment", Line: line, Column: col}, false
	}
	l.trimNext = l.trimNext || (end > 2 && l.input[l.pos+end-1] == '-')
	l.skip(end + 2)
	return Token{}, true
}

// matchTag reports whether s starts with {% name %} (with optional
// whitespace control) and returns its length.
func matchTag(s, name string) (int, bool) {
	i := 2
	if i < len(s) && s[i] == '-' {
		i++
	}
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	if !strings.HasPrefix(s[i:], name) {
		return 0, false
	}
	i += len(name)
	if i < len(s) && (isLetter(s[i]) || isDigit(s[i])) {
		return 0, false
	}
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	if strings.HasPrefix(s[i:], "-%}") {
		return i + 3, true
	}
	if strings.HasPrefix(s[i:], "%}") {
		return i + 2, true
	}
	return 0, false
}

func (l *Lexer) readRaw(openLen int) (Token, bool) {
	line, col := l.line, l.column
	trimInside := l.input[l.pos+openLen-3] == '-'
	l.skip(openLen)
	start := l.pos
	for l.ch != 0 {
		if l.ch == '{' && l.peekChar() == '%' {
			if n, ok := matchTag(l.rest(), "endraw"); ok {
				text := l.input[start:l.pos]
				if trimInside {
					text = strings.TrimLeft(text, " \t\r\n")
				}
				if l.rest()[2] == '-' {
					text = strings.TrimRight(text, " \t\r\n")
				}
				l.trimNext = l.input[l.pos+n-3] == '-'
				l.skip(n)
				if text == "" {
					return Token{}, false
				}
				return Token{Type: TokenText, Value: text, Line: line, Column: col}, true
			}
		}
		l.readChar()
	}
	return Token{Type: TokenError, Value: "unclosed raw block", Line: line, Column: col}, false
}

func (l *Lexer) nextTagToken() Token {
	for isSpace(l.ch) {
		l.readChar()
	}

	tok := Token{Line: l.line, Column: l.column}
	rest := l.rest()

	switch {
	case l.ch == 0:
		tok.Type = TokenEOF
		return tok
	case l.mode == modeVar && (strings.HasPrefix(rest, "}}") || strings.HasPrefix(rest, "-}}")):
		tok.Type = TokenVarEnd
		tok.Value = "}}"
		l.closeTag(rest[0] == '-')
		return tok
	case l.mode == modeBlock && (strings.HasPrefix(rest, "%}") || strings.HasPrefix(rest, "-%}")):
		tok.Type = TokenBlockEnd
		tok.Value = "%}"
		l.closeTag(rest[0] == '-')
		return tok
	case isLetter(l.ch):
		return l.readName()
	case isDigit(l.ch):
		return l.readNumber()
	case l.ch == '"' || l.ch == '\'':
		return l.readString(l.ch)
	}

	for _, op := range []string{"==", "!=", "<=", ">=", "//"} {
		if strings.HasPrefix(rest, op) {
			l.skip(2)
			tok.Type = TokenOperator
			tok.Value = op
			return tok
		}
	}
	if strings.IndexByte("()[]{},.:|~+-*/%<>=", l.ch) >= 0 {
		tok.Type = TokenOperator
		tok.Value = string(l.ch)
		l.readChar()
		return tok
	}

	tok.Type = TokenError
	tok.Value = "unexpected character '" + string(l.ch) + "'"
	l.readChar()
	return tok
}

func (l *Lexer) closeTag(trim bool) {
	if trim {
		l.readChar()
	}
	l.skip(2)
	l.mode = modeText
	l.trimNext = trim
}

func (l *Lexer) readName() Token {
	tok := Token{Type: TokenName, Line: l.line, Column: l.column}
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	tok.Value = l.input[start:l.pos]
	return tok
}

func (l *Lexer) readNumber() Token {
	tok := Token{Type: TokenNumber, Line: l.line, Column: l.column}
	var builder strings.Builder
	isFloat := false
	for isDigit(l.ch) || l.ch == '_' {
		if l.ch != '_' {
			builder.WriteByte(l.ch)
		}
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		builder.WriteByte(l.ch)
		l.readChar()
		for isDigit(l.ch) {
			builder.WriteByte(l.ch)
			l.readChar()
		}
	}
	tok.Value = builder.String()
	if !isFloat {
		if i, err := parseInt(tok.Value); err == nil {
			tok.Literal = i
			return tok
		}
	}
	// Integers beyond int64 become floats.
	f, err := parseFloat(tok.Value)
	if err != nil {
		tok.Type = TokenError
		tok.Value = "number out of range: " + tok.Value
		return tok
	}
	tok.Literal = f
	return tok
}

func (l *Lexer) readString(quote byte) Token {
	tok := Token{Type: TokenString, Line: l.line, Column: l.column}
	l.readChar()
	var builder strings.Builder
	for l.ch != 0 && l.ch != quote {
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				builder.WriteByte('\n')
			case 't':
				builder.WriteByte('\t')
			case 'r':
				builder.WriteByte('\r')
			case 0:
				continue
			default:
				builder.WriteByte(l.ch)
			}
			l.readChar()
			continue
		}
		builder.WriteByte(l.ch)
		l.readChar()
	}
	if l.ch != quote {
		tok.Type = TokenError
		tok.Value = "unterminated string"
		return tok
	}
	l.readChar()
	tok.Value = builder.String()
	tok.Literal = tok.Value
	return tok
}

func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch)) || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}
