package parser

import (
	"fmt"
	"io"
	"iter"
	"strings"
)

// Node is a syntax tree node. Every node has a fixed number of child slots;
// a slot may be empty, in which case ChildAt returns nil. The parent link is
// for navigation only: a node is owned by the slot that holds it.
type Node interface {
	Kind() NodeKind
	Caps() Capability
	Parent() Node
	SetParent(parent Node)
	ChildCount() int
	// ChildAt panics with a *StructuralError outside [0, ChildCount()).
	ChildAt(i int) Node
	// SetChildAt stores child in slot i. A child attached elsewhere is
	// first removed from its old parent; moving a child between two slots
	// of the same list goes through ReplaceChild, which keeps indices right.
	SetChildAt(i int, child Node)
	// Children yields the non-empty child slots in order.
	Children() iter.Seq[Node]
	// Accept calls the visitor methods for this node alone and reports
	// whether the node's children should be visited.
	Accept(v Visitor) bool
	Clone() Node
	// WriteTo writes the source text the node was parsed from.
	WriteTo(w io.Writer) (int64, error)
	String() string
}

func checkIndex(n Node, i int) {
	if i < 0 || i >= n.ChildCount() {
		panic(&StructuralError{Op: "child", Msg: fmt.Sprintf("%s: index %d out of range [0, %d)", n.Kind(), i, n.ChildCount())})
	}
}

func attach(parent, child Node) {
	if child != nil {
		child.SetParent(parent)
	}
}

// adopt attaches child to parent, taking it out of any other parent.
func adopt(parent, child Node) {
	if child == nil {
		return
	}
	if p := child.Parent(); p != nil && p != parent {
		_ = RemoveFromTree(child)
	}
	child.SetParent(parent)
}

func detach(parent, child Node) {
	if child != nil && child.Parent() == parent {
		child.SetParent(nil)
	}
}

func cloneNode(n Node) Node {
	if n == nil {
		return nil
	}
	return n.Clone()
}

func writeAll(w io.Writer, n Node) (int64, error) {
	var total int64
	for child := range n.Children() {
		m, err := child.WriteTo(w)
		total += m
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func stringOf(n Node) string {
	var sb strings.Builder
	n.WriteTo(&sb)
	return sb.String()
}

func (t *Token) Kind() NodeKind        { return KindToken }
func (t *Token) Caps() Capability      { return 0 }
func (t *Token) Parent() Node          { return t.parent }
func (t *Token) SetParent(parent Node) { t.parent = parent }
func (t *Token) ChildCount() int       { return 0 }

func (t *Token) ChildAt(i int) Node {
	checkIndex(t, i)
	return nil
}

func (t *Token) SetChildAt(i int, _ Node) {
	checkIndex(t, i)
}

func (t *Token) Children() iter.Seq[Node] {
	return func(func(Node) bool) {}
}

func (t *Token) Accept(v Visitor) bool {
	v.VisitToken(t)
	return v.VisitNode(t)
}

func (t *Token) Clone() Node {
	c := *t
	c.parent = nil
	return &c
}

func (t *Token) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, t.WhiteBefore+t.Literal+t.WhiteAfter)
	return int64(n), err
}

func (t *Token) String() string {
	return t.WhiteBefore + t.Literal + t.WhiteAfter
}

// ErrorInfo describes the syntax error an error clause recovered from.
type ErrorInfo struct {
	State      int
	Unexpected TokenKind
	Text       string
	At         Position
	// Position is the lexer's description of where the error was found.
	Position string
	Expected []TokenKind
}

func (e *ErrorInfo) ExpectedDescription() string {
	if len(e.Expected) == 0 {
		return "(none)"
	}
	names := make([]string, len(e.Expected))
	for i, k := range e.Expected {
		names[i] = k.Description()
	}
	return strings.Join(names, ", ")
}

func (e *ErrorInfo) Message() string {
	return fmt.Sprintf("unexpected %s%s; expected one of: %s", e.Text, e.Position, e.ExpectedDescription())
}

// Branch is a node with a fixed set of named child slots given by the
// layout of its kind.
type Branch struct {
	layout   *Layout
	children []Node
	errInfo  *ErrorInfo
	parent   Node
}

// NewBranch creates a branch of kind with children in layout order. It
// panics with a *StructuralError when kind has no layout or the number of
// children does not match.
func NewBranch(kind NodeKind, children ...Node) *Branch {
	l := LayoutOf(kind)
	if l == nil {
		panic(&StructuralError{Op: "branch", Msg: fmt.Sprintf("%s has no layout", kind)})
	}
	if len(children) != len(l.Fields) {
		panic(&StructuralError{Op: "branch", Msg: fmt.Sprintf("%s takes %d children, got %d", kind, len(l.Fields), len(children))})
	}
	b := &Branch{layout: l, children: make([]Node, len(children))}
	for i, child := range children {
		b.children[i] = child
		attach(b, child)
	}
	return b
}

func (b *Branch) Kind() NodeKind        { return b.layout.Kind }
func (b *Branch) Caps() Capability      { return b.layout.Caps }
func (b *Branch) Layout() *Layout       { return b.layout }
func (b *Branch) Parent() Node          { return b.parent }
func (b *Branch) SetParent(parent Node) { b.parent = parent }
func (b *Branch) ChildCount() int       { return len(b.children) }

// ErrorInfo returns the recovered error of an error clause, or nil.
func (b *Branch) ErrorInfo() *ErrorInfo { return b.errInfo }

func (b *Branch) ChildAt(i int) Node {
	checkIndex(b, i)
	return b.children[i]
}

func (b *Branch) SetChildAt(i int, child Node) {
	checkIndex(b, i)
	detach(b, b.children[i])
	adopt(b, child)
	b.children[i] = child
}

// Field returns the child in the named slot, or nil if the slot is empty
// or the layout has no such field.
func (b *Branch) Field(name string) Node {
	if i := b.layout.index(name); i >= 0 {
		return b.children[i]
	}
	return nil
}

// Token returns the named slot as a token, or nil.
func (b *Branch) Token(name string) *Token {
	tok, _ := b.Field(name).(*Token)
	return tok
}

// SetField replaces the child in the named slot.
func (b *Branch) SetField(name string, child Node) error {
	i := b.layout.index(name)
	if i < 0 {
		return &StructuralError{Op: "field", Msg: fmt.Sprintf("%s has no field %q", b.Kind(), name)}
	}
	b.SetChildAt(i, child)
	return nil
}

func (b *Branch) Children() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for _, child := range b.children {
			if child != nil && !yield(child) {
				return
			}
		}
	}
}

func (b *Branch) Accept(v Visitor) bool {
	v.VisitKind(b)
	for c := range b.layout.Caps.All() {
		v.VisitCapability(c, b)
	}
	return v.VisitNode(b)
}

func (b *Branch) Clone() Node {
	c := &Branch{layout: b.layout, children: make([]Node, len(b.children))}
	if b.errInfo != nil {
		info := *b.errInfo
		info.Expected = append([]TokenKind(nil), b.errInfo.Expected...)
		c.errInfo = &info
	}
	for i, child := range b.children {
		c.children[i] = cloneNode(child)
		attach(c, c.children[i])
	}
	return c
}

func (b *Branch) WriteTo(w io.Writer) (int64, error) { return writeAll(w, b) }
func (b *Branch) String() string                     { return stringOf(b) }

// List is a homogeneous sequence of nodes.
type List struct {
	kind   NodeKind
	items  []Node
	parent Node
}

func NewList(kind NodeKind, items ...Node) *List {
	l := &List{kind: kind}
	for _, item := range items {
		l.Append(item)
	}
	return l
}

func (l *List) Kind() NodeKind        { return l.kind }
func (l *List) Caps() Capability      { return 0 }
func (l *List) Parent() Node          { return l.parent }
func (l *List) SetParent(parent Node) { l.parent = parent }
func (l *List) ChildCount() int       { return len(l.items) }
func (l *List) Len() int              { return len(l.items) }

func (l *List) Append(item Node) {
	l.items = append(l.items, item)
	attach(l, item)
}

// Items returns the elements of the list. The slice must not be modified.
func (l *List) Items() []Node { return l.items }

func (l *List) ChildAt(i int) Node {
	checkIndex(l, i)
	return l.items[i]
}

func (l *List) SetChildAt(i int, child Node) {
	checkIndex(l, i)
	detach(l, l.items[i])
	adopt(l, child)
	l.items[i] = child
}

// Remove deletes the element at i.
func (l *List) Remove(i int) {
	checkIndex(l, i)
	detach(l, l.items[i])
	l.items = append(l.items[:i], l.items[i+1:]...)
}

func (l *List) Children() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for _, item := range l.items {
			if item != nil && !yield(item) {
				return
			}
		}
	}
}

func (l *List) Accept(v Visitor) bool {
	v.VisitList(l)
	return v.VisitNode(l)
}

func (l *List) Clone() Node {
	c := &List{kind: l.kind, items: make([]Node, len(l.items))}
	for i, item := range l.items {
		c.items[i] = cloneNode(item)
		attach(c, c.items[i])
	}
	return c
}

func (l *List) WriteTo(w io.Writer) (int64, error) { return writeAll(w, l) }
func (l *List) String() string                     { return stringOf(l) }

// SeparatedList is a sequence of nodes with an optional separator token in
// front of every element but the first. Its child slots alternate
// separator, element, separator, element, and so on.
type SeparatedList struct {
	kind       NodeKind
	items      []Node
	separators []*Token
	parent     Node
}

func NewSeparatedList(kind NodeKind, first Node) *SeparatedList {
	l := &SeparatedList{kind: kind}
	l.Append(nil, first)
	return l
}

func (l *SeparatedList) Kind() NodeKind        { return l.kind }
func (l *SeparatedList) Caps() Capability      { return 0 }
func (l *SeparatedList) Parent() Node          { return l.parent }
func (l *SeparatedList) SetParent(parent Node) { l.parent = parent }
func (l *SeparatedList) ChildCount() int       { return 2 * len(l.items) }
func (l *SeparatedList) Len() int              { return len(l.items) }

// Append adds item, preceded by sep. sep may be nil.
func (l *SeparatedList) Append(sep *Token, item Node) {
	l.separators = append(l.separators, sep)
	l.items = append(l.items, item)
	if sep != nil {
		sep.SetParent(l)
	}
	attach(l, item)
}

func (l *SeparatedList) Items() []Node { return l.items }

// Separator returns the token in front of element i, or nil.
func (l *SeparatedList) Separator(i int) *Token { return l.separators[i] }

func (l *SeparatedList) ChildAt(i int) Node {
	checkIndex(l, i)
	if i%2 == 0 {
		if sep := l.separators[i/2]; sep != nil {
			return sep
		}
		return nil
	}
	return l.items[i/2]
}

func (l *SeparatedList) SetChildAt(i int, child Node) {
	checkIndex(l, i)
	if i%2 == 0 {
		sep, ok := child.(*Token)
		if child != nil && !ok {
			panic(&StructuralError{Op: "child", Msg: fmt.Sprintf("%s: separator slot %d needs a token, got %s", l.kind, i, child.Kind())})
		}
		if old := l.separators[i/2]; old != nil {
			detach(l, old)
		}
		if sep != nil {
			adopt(l, sep)
		}
		l.separators[i/2] = sep
		return
	}
	detach(l, l.items[i/2])
	adopt(l, child)
	l.items[i/2] = child
}

// Remove deletes element i with its separator. Removing the first element
// moves the next element's separator out of the list.
func (l *SeparatedList) Remove(i int) {
	if i < 0 || i >= len(l.items) {
		panic(&StructuralError{Op: "remove", Msg: fmt.Sprintf("%s: element %d out of range [0, %d)", l.kind, i, len(l.items))})
	}
	detach(l, l.items[i])
	if sep := l.separators[i]; sep != nil {
		detach(l, sep)
	}
	if i == 0 && len(l.items) > 1 {
		if next := l.separators[1]; next != nil {
			detach(l, next)
		}
		l.separators[1] = nil
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	l.separators = append(l.separators[:i], l.separators[i+1:]...)
}

func (l *SeparatedList) Children() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for i, item := range l.items {
			if sep := l.separators[i]; sep != nil && !yield(sep) {
				return
			}
			if item != nil && !yield(item) {
				return
			}
		}
	}
}

func (l *SeparatedList) Accept(v Visitor) bool {
	v.VisitList(l)
	return v.VisitNode(l)
}

func (l *SeparatedList) Clone() Node {
	c := &SeparatedList{kind: l.kind}
	for i, item := range l.items {
		var sep *Token
		if l.separators[i] != nil {
			sep = l.separators[i].Clone().(*Token)
		}
		c.Append(sep, cloneNode(item))
	}
	return c
}

func (l *SeparatedList) WriteTo(w io.Writer) (int64, error) { return writeAll(w, l) }
func (l *SeparatedList) String() string                     { return stringOf(l) }

// Bundle carries the pieces of a fragment that is not a node of its own,
// such as the parenthesized count shared by several clauses. A later
// reduction unpacks it into its own node.
type Bundle struct {
	entries []BundleEntry
}

type BundleEntry struct {
	Name  string
	Value Node
}

func newBundle(entries ...BundleEntry) *Bundle {
	return &Bundle{entries: entries}
}

// Get returns the named entry, or nil.
func (b *Bundle) Get(name string) Node {
	for _, e := range b.entries {
		if e.Name == name {
			return e.Value
		}
	}
	return nil
}

// Entries returns the entries in source order.
func (b *Bundle) Entries() []BundleEntry { return b.entries }

// Dump renders n as an indented outline, one node per line.
func Dump(n Node) string {
	var sb strings.Builder
	dump(&sb, n, "", 0)
	return sb.String()
}

func dump(sb *strings.Builder, n Node, field string, indent int) {
	sb.WriteString(strings.Repeat("  ", indent))
	if field != "" {
		sb.WriteString(field)
		sb.WriteString(": ")
	}
	if n == nil {
		sb.WriteString("nil\n")
		return
	}
	switch n := n.(type) {
	case *Token:
		fmt.Fprintf(sb, "%s %q\n", n.Type, n.Literal)
		return
	case *Branch:
		sb.WriteString(n.Kind().String())
		if n.errInfo != nil {
			sb.WriteString(" ERROR: ")
			sb.WriteString(n.errInfo.Message())
		}
		sb.WriteString("\n")
		for i, f := range n.layout.Fields {
			if n.children[i] != nil {
				dump(sb, n.children[i], f, indent+1)
			}
		}
		return
	}
	sb.WriteString(n.Kind().String())
	sb.WriteString("\n")
	for child := range n.Children() {
		dump(sb, child, "", indent+1)
	}
}
