// Package codebase keeps the OpenACC pragmas of a project's sources in
// memory and serves them to editors over the Language Server Protocol.
package codebase

import (
	"bytes"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/dhamidi/accparse/openacc/parser"
	"github.com/dhamidi/accparse/openacc/scanner"
	"github.com/dhamidi/accparse/project"
)

var log = commonlog.GetLogger("accparse.codebase")

type Codebase struct {
	mu      sync.RWMutex
	project *project.Project
	files   map[string]*FileInfo
}

type FileInfo struct {
	Path    string
	Content []byte
	Pragmas []*scanner.Pragma
	Err     error
}

func New(p *project.Project) *Codebase {
	return &Codebase{
		project: p,
		files:   make(map[string]*FileInfo),
	}
}

func (c *Codebase) Project() *project.Project {
	return c.project
}

func (c *Codebase) RootDir() string {
	return c.project.RootDir
}

// ScanAll reads every source file of the project.
func (c *Codebase) ScanAll() error {
	files, err := c.project.SourceFiles()
	if err != nil {
		return err
	}
	for _, path := range files {
		if err := c.ScanFile(path); err != nil {
			log.Warningf("%s: %v", path, err)
		}
	}
	log.Infof("indexed %d files below %s", len(files), c.RootDir())
	return nil
}

func (c *Codebase) ScanFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	c.UpdateFile(path, content)
	return nil
}

// UpdateFile replaces the content of path and parses its pragmas.
func (c *Codebase) UpdateFile(path string, content []byte) *FileInfo {
	f := &FileInfo{Path: path, Content: content}
	f.Pragmas, f.Err = scanner.ParseSource(path, content)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[path] = f
	return f
}

func (c *Codebase) RemoveFile(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.files, path)
}

func (c *Codebase) GetFile(path string) *FileInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.files[path]
}

// Files returns the indexed paths, sorted.
func (c *Codebase) Files() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	paths := make([]string, 0, len(c.files))
	for path := range c.files {
		paths = append(paths, path)
	}
	slices.Sort(paths)
	return paths
}

// Diagnostics returns the problems found in the pragmas of path.
func (c *Codebase) Diagnostics(path string) []scanner.Diagnostic {
	f := c.GetFile(path)
	if f == nil {
		return nil
	}
	var diags []scanner.Diagnostic
	for _, p := range f.Pragmas {
		diags = append(diags, p.Diagnostics()...)
	}
	return diags
}

// PragmaAt returns the pragma that spans line of path.
func (c *Codebase) PragmaAt(path string, line int) *scanner.Pragma {
	f := c.GetFile(path)
	if f == nil {
		return nil
	}
	for _, p := range f.Pragmas {
		if line >= p.Line && line <= p.Line+strings.Count(p.Text, "\n") {
			return p
		}
	}
	return nil
}

// NodesAt returns the nodes of the pragma tree that contain the given
// position, outermost first. The last node is usually a token.
func (c *Codebase) NodesAt(path string, line, column int) []parser.Node {
	p := c.PragmaAt(path, line)
	if p == nil || p.Root == nil {
		return nil
	}
	pos := parser.Position{Line: line, Column: column}
	if !contains(p.Root, pos) {
		return nil
	}
	var chain []parser.Node
	for n := p.Root; n != nil; {
		chain = append(chain, n)
		var next parser.Node
		for child := range n.Children() {
			if child != nil && contains(child, pos) {
				next = child
				break
			}
		}
		n = next
	}
	return chain
}

func contains(n parser.Node, pos parser.Position) bool {
	first, last := parser.FindFirstToken(n), parser.FindLastToken(n)
	if first == nil || last == nil || first.Type == parser.TokenEOF {
		return false
	}
	return !before(pos, first.Span.Start) && before(pos, last.Span.End)
}

func before(a, b parser.Position) bool {
	return a.Line < b.Line || (a.Line == b.Line && a.Column < b.Column)
}

type CompletionKind int

const (
	CompletionKindDirective CompletionKind = iota
	CompletionKindClause
)

type CompletionItem struct {
	Label      string
	Kind       CompletionKind
	Detail     string
	InsertText string
}

var directiveNames = []string{
	"atomic", "cache", "data", "declare", "enter data", "exit data", "host_data",
	"kernels", "kernels loop", "loop", "parallel", "parallel loop", "routine",
	"update", "wait",
}

// CompletionsAtPoint suggests directives right after "#pragma acc" and
// the clauses the directive accepts after that. The word under the cursor
// filters the suggestions.
func (c *Codebase) CompletionsAtPoint(path string, line, column int) []CompletionItem {
	f := c.GetFile(path)
	p := c.PragmaAt(path, line)
	if f == nil || p == nil {
		return nil
	}
	lines := strings.Split(p.Text, "\n")
	text := lines[line-p.Line]
	if col := column - 1; col >= 0 && col < len(text) {
		text = text[:col]
	}
	prefix := strings.Join(append(slices.Clone(lines[:line-p.Line]), text), "\n")

	word := prefix[len(strings.TrimRightFunc(prefix, isWordRune)):]
	head := prefix[:len(prefix)-len(word)]

	var items []CompletionItem
	if onlyPragma(head) {
		for _, name := range directiveNames {
			if strings.HasPrefix(name, word) {
				items = append(items, CompletionItem{Label: name, Kind: CompletionKindDirective, Detail: "directive", InsertText: name})
			}
		}
		return items
	}
	root, err := parser.ParseString(head)
	if err != nil {
		return nil
	}
	for _, kind := range parser.ClausesFor(root.Kind()) {
		item := clauseCompletion(kind)
		if strings.HasPrefix(item.Label, word) {
			items = append(items, item)
		}
	}
	return items
}

// onlyPragma reports whether src holds nothing but "#pragma acc".
func onlyPragma(src string) bool {
	lex := parser.NewLexer([]byte(src), "")
	first, err := lex.NextToken()
	if err != nil || first.Type != parser.TokenPragmaAcc {
		return false
	}
	next, err := lex.NextToken()
	return err == nil && next.Type == parser.TokenEOF
}

func isWordRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// clauseCompletion derives the keyword of a clause from its kind name,
// NumGangsClause giving num_gangs.
func clauseCompletion(kind parser.NodeKind) CompletionItem {
	name := strings.TrimSuffix(kind.String(), "Clause")
	if kind == parser.KindDefaultNoneClause {
		return CompletionItem{Label: "default(none)", Kind: CompletionKindClause, Detail: kind.String(), InsertText: "default(none)"}
	}
	var kw bytes.Buffer
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				kw.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		kw.WriteRune(r)
	}
	item := CompletionItem{Label: kw.String(), Kind: CompletionKindClause, Detail: kind.String(), InsertText: kw.String()}
	if l := parser.LayoutOf(kind); l != nil && len(l.Fields) > 2 && l.Fields[1] == "lparen" && l.Fields[2] != "count" {
		item.InsertText += "(${1})"
	}
	return item
}
