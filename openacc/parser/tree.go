package parser

import "fmt"

// IsKind matches nodes of any of the given kinds.
func IsKind(kinds ...NodeKind) func(Node) bool {
	return func(n Node) bool {
		for _, k := range kinds {
			if n.Kind() == k {
				return true
			}
		}
		return false
	}
}

// HasCap matches nodes whose kind carries every tag in c.
func HasCap(c Capability) func(Node) bool {
	return func(n Node) bool {
		return n.Caps().Has(c)
	}
}

// FindAll returns the nodes under root, root included, that match, in
// depth-first order.
func FindAll(root Node, match func(Node) bool) []Node {
	var found []Node
	Inspect(root, func(n Node) bool {
		if match(n) {
			found = append(found, n)
		}
		return true
	})
	return found
}

// FindFirst returns the first match in depth-first order, or nil.
func FindFirst(root Node, match func(Node) bool) Node {
	var found Node
	Inspect(root, func(n Node) bool {
		if found != nil {
			return false
		}
		if match(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// FindLast returns the last match in depth-first order, or nil.
func FindLast(root Node, match func(Node) bool) Node {
	var found Node
	Inspect(root, func(n Node) bool {
		if match(n) {
			found = n
		}
		return true
	})
	return found
}

// FindNearestAncestor returns the closest proper ancestor of n that
// matches, or nil.
func FindNearestAncestor(n Node, match func(Node) bool) Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if match(p) {
			return p
		}
	}
	return nil
}

func FindFirstToken(root Node) *Token {
	tok, _ := FindFirst(root, IsKind(KindToken)).(*Token)
	return tok
}

func FindLastToken(root Node) *Token {
	tok, _ := FindLast(root, IsKind(KindToken)).(*Token)
	return tok
}

// Root follows parent links up from n.
func Root(n Node) Node {
	for n.Parent() != nil {
		n = n.Parent()
	}
	return n
}

func indexOf(parent, child Node) int {
	for i := 0; i < parent.ChildCount(); i++ {
		if c := parent.ChildAt(i); c != nil && c == child {
			return i
		}
	}
	return -1
}

// ReplaceChild puts replacement into the slot of parent that holds old.
// replacement may be nil to empty the slot.
func ReplaceChild(parent, old, replacement Node) error {
	if old == nil {
		return &StructuralError{Op: "replace", Msg: "nil child"}
	}
	if indexOf(parent, old) < 0 {
		return &StructuralError{Op: "replace", Msg: fmt.Sprintf("%s is not a child of %s", old.Kind(), parent.Kind())}
	}
	if replacement == old {
		return nil
	}
	if replacement != nil && replacement.Parent() != nil {
		if err := RemoveFromTree(replacement); err != nil {
			return err
		}
	}
	// Detaching the replacement may have shifted old within a list.
	i := indexOf(parent, old)
	if i < 0 {
		return &StructuralError{Op: "replace", Msg: fmt.Sprintf("%s is not a child of %s", old.Kind(), parent.Kind())}
	}
	parent.SetChildAt(i, replacement)
	return nil
}

// ReplaceWith puts replacement where n is in its parent.
func ReplaceWith(n, replacement Node) error {
	if n.Parent() == nil {
		return &StructuralError{Op: "replace", Msg: fmt.Sprintf("%s has no parent", n.Kind())}
	}
	return ReplaceChild(n.Parent(), n, replacement)
}

// ReplaceWithText replaces n with a single verbatim token holding text.
// The whitespace in front of n's first token and after its last token is
// kept, so the surrounding source stays as it was.
func ReplaceWithText(n Node, text string) (*Token, error) {
	tok := &Token{Type: TokenVerbatim, Literal: text}
	if first := FindFirstToken(n); first != nil {
		tok.WhiteBefore = first.WhiteBefore
		tok.Span.Start = first.Span.Start
	}
	if last := FindLastToken(n); last != nil {
		tok.WhiteAfter = last.WhiteAfter
		tok.Span.End = last.Span.End
	}
	if err := ReplaceWith(n, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// RemoveFromTree detaches n from its parent. An element of a list is
// removed from the list; a branch slot is left empty.
func RemoveFromTree(n Node) error {
	parent := n.Parent()
	if parent == nil {
		return &StructuralError{Op: "remove", Msg: fmt.Sprintf("%s has no parent", n.Kind())}
	}
	i := indexOf(parent, n)
	if i < 0 {
		return &StructuralError{Op: "remove", Msg: fmt.Sprintf("%s is not a child of its parent %s", n.Kind(), parent.Kind())}
	}
	switch p := parent.(type) {
	case *List:
		p.Remove(i)
	case *SeparatedList:
		if i%2 == 0 {
			p.SetChildAt(i, nil)
		} else {
			p.Remove(i / 2)
		}
	default:
		parent.SetChildAt(i, nil)
	}
	n.SetParent(nil)
	return nil
}
