package parser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dhamidi/accparse/lalr"
)

// Lexer splits one OpenACC pragma into tokens. Whitespace, comments and
// line continuations are not tokens; they are kept on the neighbouring
// token so that the tree reproduces its input exactly.
type Lexer struct {
	input  []byte
	file   string
	pos    int
	line   int
	column int

	white strings.Builder
	last  *Token
	start Position
}

func NewLexer(input []byte, file string) *Lexer {
	return &Lexer{
		input:  input,
		file:   file,
		pos:    0,
		line:   1,
		column: 1,
	}
}

func (l *Lexer) Position() Position {
	return Position{
		File:   l.file,
		Offset: l.pos,
		Line:   l.line,
		Column: l.column,
	}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) peekN(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

func (l *Lexer) advance() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	ch := l.input[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return ch
}

func (l *Lexer) advanceN(n int) {
	for i := 0; i < n; i++ {
		l.advance()
	}
}

// skipWhite consumes whitespace, comments and backslash-newlines into the
// pending whitespace buffer. A block comment must be closed.
func (l *Lexer) skipWhite() error {
	for l.pos < len(l.input) {
		start := l.pos
		ch := l.peek()
		switch {
		case isSpace(ch):
			l.advance()
		case ch == '\\' && l.peekN(1) == '\n':
			l.advanceN(2)
		case ch == '\\' && l.peekN(1) == '\r' && l.peekN(2) == '\n':
			l.advanceN(3)
		case ch == '/' && l.peekN(1) == '/':
			for l.pos < len(l.input) && l.peek() != '\n' {
				l.advance()
			}
		case ch == '/' && l.peekN(1) == '*':
			open := l.Position()
			l.advanceN(2)
			for l.pos < len(l.input) && !(l.peek() == '*' && l.peekN(1) == '/') {
				l.advance()
			}
			if l.pos >= len(l.input) {
				return &LexicalError{Pos: open, Msg: "unterminated comment"}
			}
			l.advanceN(2)
		default:
			return nil
		}
		l.white.Write(l.input[start:l.pos])
	}
	return nil
}

// NextToken returns the next token. At end of input it returns a TokenEOF
// token, and keeps returning it.
func (l *Lexer) NextToken() (*Token, error) {
	if err := l.skipWhite(); err != nil {
		return nil, err
	}
	l.start = l.Position()

	if l.pos >= len(l.input) {
		eof := &Token{Type: TokenEOF, Span: Span{Start: l.start, End: l.start}}
		if l.white.Len() > 0 {
			if l.last != nil {
				l.last.WhiteAfter += l.white.String()
			} else {
				eof.WhiteBefore = l.white.String()
			}
			l.white.Reset()
		}
		return eof, nil
	}

	var tok *Token
	var err error
	ch := l.peek()
	switch {
	case ch == '#':
		tok, err = l.scanPragma()
	case ch == 'L' && (l.peekN(1) == '\'' || l.peekN(1) == '"'):
		l.advance()
		if l.peek() == '\'' {
			tok, err = l.scanQuoted('\'', TokenCharLiteral)
		} else {
			tok, err = l.scanQuoted('"', TokenStringLiteral)
		}
	case isLetter(ch):
		tok = l.scanIdentOrKeyword()
	case isDigit(ch) || (ch == '.' && isDigit(l.peekN(1))):
		tok = l.scanNumber()
	case ch == '\'':
		tok, err = l.scanQuoted('\'', TokenCharLiteral)
	case ch == '"':
		tok, err = l.scanQuoted('"', TokenStringLiteral)
	default:
		tok, err = l.scanOperator()
	}
	if err != nil {
		return nil, err
	}
	tok.WhiteBefore = l.white.String()
	l.white.Reset()
	l.last = tok
	return tok, nil
}

// Next implements lalr.Lexer.
func (l *Lexer) Next() (lalr.Token, error) {
	tok, err := l.NextToken()
	if err != nil {
		return nil, err
	}
	return tok, nil
}

// DescribePosition implements lalr.Lexer.
func (l *Lexer) DescribePosition() string {
	return fmt.Sprintf(" (line %d, column %d)", l.start.Line, l.start.Column)
}

func (l *Lexer) errorf(format string, args ...any) error {
	return &LexicalError{Pos: l.Position(), Msg: fmt.Sprintf(format, args...)}
}

// scanPragma matches '#' [ \t]* "pragma" [ \t]+ "acc".
func (l *Lexer) scanPragma() (*Token, error) {
	l.advance()
	for l.peek() == ' ' || l.peek() == '\t' {
		l.advance()
	}
	if !l.matchWord("pragma") {
		return nil, l.errorf("expected \"pragma\" after '#'")
	}
	if l.peek() != ' ' && l.peek() != '\t' {
		return nil, l.errorf("expected \"acc\" after \"#pragma\"")
	}
	for l.peek() == ' ' || l.peek() == '\t' {
		l.advance()
	}
	if !l.matchWord("acc") {
		return nil, l.errorf("expected \"acc\" after \"#pragma\"")
	}
	return l.token(TokenPragmaAcc), nil
}

func (l *Lexer) matchWord(word string) bool {
	end := l.pos + len(word)
	if end > len(l.input) || string(l.input[l.pos:end]) != word {
		return false
	}
	if end < len(l.input) && isLetterOrDigit(l.input[end]) {
		return false
	}
	l.advanceN(len(word))
	return true
}

func (l *Lexer) scanIdentOrKeyword() *Token {
	for isLetterOrDigit(l.peek()) {
		l.advance()
	}
	tok := l.token(TokenIdent)
	tok.Type = LookupKeyword(tok.Literal)
	return tok
}

func (l *Lexer) scanNumber() *Token {
	if l.peek() == '0' && (l.peekN(1) == 'x' || l.peekN(1) == 'X') {
		l.advanceN(2)
		for isHexDigit(l.peek()) {
			l.advance()
		}
		l.scanIntSuffix()
		return l.token(TokenIntLiteral)
	}

	isFloat := false
	for isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' {
		isFloat = true
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	if (l.peek() == 'e' || l.peek() == 'E') && (isDigit(l.peekN(1)) || ((l.peekN(1) == '+' || l.peekN(1) == '-') && isDigit(l.peekN(2)))) {
		isFloat = true
		l.advanceN(2)
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	if isFloat {
		if ch := l.peek(); ch == 'f' || ch == 'F' || ch == 'l' || ch == 'L' {
			l.advance()
		}
		return l.token(TokenFloatLiteral)
	}
	l.scanIntSuffix()
	return l.token(TokenIntLiteral)
}

func (l *Lexer) scanIntSuffix() {
	for {
		switch l.peek() {
		case 'u', 'U', 'l', 'L':
			l.advance()
		default:
			return
		}
	}
}

func (l *Lexer) scanQuoted(quote byte, kind TokenKind) (*Token, error) {
	l.advance()
	for l.peek() != quote {
		if l.pos >= len(l.input) || l.peek() == '\n' {
			return nil, l.errorf("unterminated %s", kind.Description())
		}
		if l.peek() == '\\' {
			l.advance()
		}
		l.advance()
	}
	l.advance()
	return l.token(kind), nil
}

func (l *Lexer) scanOperator() (*Token, error) {
	ch := l.peek()
	next := l.peekN(1)

	two := map[[2]byte]TokenKind{
		{'!', '='}: TokenNE,
		{'&', '&'}: TokenAnd,
		{'+', '+'}: TokenIncrement,
		{'-', '-'}: TokenDecrement,
		{'-', '>'}: TokenArrow,
		{'<', '<'}: TokenShl,
		{'<', '='}: TokenLE,
		{'=', '='}: TokenEQ,
		{'>', '='}: TokenGE,
		{'>', '>'}: TokenShr,
		{'|', '|'}: TokenOr,
	}
	if kind, ok := two[[2]byte{ch, next}]; ok {
		l.advanceN(2)
		return l.token(kind), nil
	}

	switch ch {
	case '!':
		l.advance()
		return l.token(TokenNot), nil
	case '%':
		l.advance()
		return l.token(TokenPercent), nil
	case '&':
		l.advance()
		return l.token(TokenBitAnd), nil
	case '(':
		l.advance()
		return l.token(TokenLParen), nil
	case ')':
		l.advance()
		return l.token(TokenRParen), nil
	case '*':
		l.advance()
		return l.token(TokenStar), nil
	case '+':
		l.advance()
		return l.token(TokenPlus), nil
	case ',':
		l.advance()
		return l.token(TokenComma), nil
	case '-':
		l.advance()
		return l.token(TokenMinus), nil
	case '.':
		l.advance()
		return l.token(TokenDot), nil
	case '/':
		l.advance()
		return l.token(TokenSlash), nil
	case ':':
		l.advance()
		return l.token(TokenColon), nil
	case '<':
		l.advance()
		return l.token(TokenLT), nil
	case '>':
		l.advance()
		return l.token(TokenGT), nil
	case '?':
		l.advance()
		return l.token(TokenQuestion), nil
	case '[':
		l.advance()
		return l.token(TokenLBracket), nil
	case ']':
		l.advance()
		return l.token(TokenRBracket), nil
	case '^':
		l.advance()
		return l.token(TokenBitXor), nil
	case '|':
		l.advance()
		return l.token(TokenBitOr), nil
	case '~':
		l.advance()
		return l.token(TokenBitNot), nil
	}
	if ch >= utf8.RuneSelf {
		r, size := utf8.DecodeRune(l.input[l.pos:])
		if r == utf8.RuneError && size <= 1 {
			return nil, l.errorf("invalid UTF-8 byte 0x%02x", ch)
		}
		return nil, l.errorf("unexpected character %q", r)
	}
	return nil, l.errorf("unexpected character %q", ch)
}

func (l *Lexer) token(kind TokenKind) *Token {
	end := l.Position()
	return &Token{
		Type:    kind,
		Span:    Span{Start: l.start, End: end},
		Literal: string(l.input[l.start.Offset:end.Offset]),
	}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' || ch == '\f' || ch == '\v'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isLetterOrDigit(ch byte) bool {
	return isLetter(ch) || isDigit(ch)
}
