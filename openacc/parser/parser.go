package parser

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/dhamidi/accparse/lalr"
)

var log = commonlog.GetLogger("accparse.parser")

// TokenSource yields tokens ending with an end-of-input token. *Lexer is
// the default implementation.
type TokenSource = lalr.Lexer

var (
	tablesOnce  sync.Once
	grammar     *lalr.Grammar
	actionTable []action
	tables      *lalr.Tables
	tablesErr   error
)

func initTables() {
	tablesOnce.Do(func() {
		grammar, actionTable, tablesErr = buildGrammar()
		if tablesErr != nil {
			return
		}
		tables, tablesErr = lalr.Build(grammar)
		if tablesErr == nil && len(tables.Conflicts()) > 0 {
			log.Warningf("grammar has %d conflicts", len(tables.Conflicts()))
		}
	})
}

// Tables returns the OpenACC parsing tables. They are built on first use
// and shared by every parse.
func Tables() (*lalr.Tables, error) {
	initTables()
	return tables, tablesErr
}

// Grammar returns the OpenACC grammar the tables are built from.
func Grammar() (*lalr.Grammar, error) {
	initTables()
	return grammar, tablesErr
}

// Dispatcher returns the semantic actions of the OpenACC grammar.
func Dispatcher() (lalr.Dispatcher, error) {
	initTables()
	if tablesErr != nil {
		return nil, tablesErr
	}
	return &dispatcher{grammar: grammar, actions: actionTable}, nil
}

type Option func(*Parser)

func WithFile(path string) Option {
	return func(p *Parser) {
		p.file = path
	}
}

func WithStartLine(line int) Option {
	return func(p *Parser) {
		p.startLine = line
	}
}

func WithLogger(logger commonlog.Logger) Option {
	return func(p *Parser) {
		p.log = logger
	}
}

// WithTables parses with t instead of the built-in tables. t must be built
// from Grammar().
func WithTables(t *lalr.Tables) Option {
	return func(p *Parser) {
		p.tables = t
	}
}

// WithTrace calls f before every step of the automaton.
func WithTrace(f func(lalr.Step)) Option {
	return func(p *Parser) {
		p.trace = f
	}
}

type Parser struct {
	file      string
	startLine int
	log       commonlog.Logger
	tables    *lalr.Tables
	trace     func(lalr.Step)
}

func New(opts ...Option) *Parser {
	p := &Parser{startLine: 1, log: log}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// lastToken remembers the most recent token of a source.
type lastToken struct {
	TokenSource
	last lalr.Token
}

func (s *lastToken) Next() (lalr.Token, error) {
	tok, err := s.TokenSource.Next()
	if err == nil {
		s.last = tok
	}
	return tok, err
}

// Parse reads one construct from src. It returns the root node, a
// *lalr.SyntaxError if recovery failed, or the error src returned.
func (p *Parser) Parse(src TokenSource) (Node, error) {
	t := p.tables
	if t == nil {
		var err error
		if t, err = Tables(); err != nil {
			return nil, fmt.Errorf("build tables: %w", err)
		}
	}
	d, err := Dispatcher()
	if err != nil {
		return nil, err
	}
	var opts []lalr.Option
	if p.trace != nil {
		opts = append(opts, lalr.WithStepHook(p.trace))
	}
	source := &lastToken{TokenSource: src}
	v, err := lalr.NewParser(t, d, opts...).Parse(source)
	if err != nil {
		return nil, err
	}
	root, ok := v.(Node)
	if !ok {
		return nil, &lalr.StructuralError{Op: "accept", Msg: fmt.Sprintf("result is %T, not a node", v)}
	}
	// Whitespace with no token to hang on belongs to the empty construct.
	if b, ok := root.(*Branch); ok && b.Kind() == KindNoConstruct {
		if eof, ok := source.last.(*Token); ok && eof.WhiteBefore != "" {
			b.SetChildAt(0, eof)
		}
	}
	if p.log.AllowLevel(commonlog.Debug) {
		if n := len(FindAll(root, IsKind(KindErrorClause))); n > 0 {
			p.log.Debugf("%s: recovered from %d errors", p.file, n)
		}
	}
	return root, nil
}

func (p *Parser) ParseBytes(src []byte) (Node, error) {
	lex := NewLexer(src, p.file)
	lex.line = p.startLine
	return p.Parse(lex)
}

func (p *Parser) ParseString(src string) (Node, error) {
	return p.ParseBytes([]byte(src))
}

func (p *Parser) ParseReader(r io.Reader) (Node, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, err
	}
	return p.ParseBytes(buf.Bytes())
}

// Parse reads one construct from src.
func Parse(src TokenSource, opts ...Option) (Node, error) {
	return New(opts...).Parse(src)
}

// ParseString parses one pragma, such as "#pragma acc loop gang".
func ParseString(src string, opts ...Option) (Node, error) {
	return New(opts...).ParseString(src)
}

func ParseBytes(src []byte, opts ...Option) (Node, error) {
	return New(opts...).ParseBytes(src)
}

func ParseReader(r io.Reader, opts ...Option) (Node, error) {
	return New(opts...).ParseReader(r)
}
