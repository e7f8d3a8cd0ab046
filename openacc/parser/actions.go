package parser

import (
	"fmt"

	"github.com/dhamidi/accparse/lalr"
)

// An action turns the values of one production's right-hand side into the
// value of its left-hand side. Actions only look at their arguments.
type action func(v []lalr.Value, info *lalr.RecoveryInfo) lalr.Value

const none = -1

func node(v lalr.Value) Node {
	n, _ := v.(Node)
	return n
}

// build makes a branch of kind whose fields are taken from the right-hand
// side positions in slots; none leaves a field empty.
func build(kind NodeKind, slots ...int) action {
	if l := LayoutOf(kind); l == nil || len(l.Fields) != len(slots) {
		panic(fmt.Sprintf("parser: bad slots for %s", kind))
	}
	return func(v []lalr.Value, _ *lalr.RecoveryInfo) lalr.Value {
		children := make([]Node, len(slots))
		for i, s := range slots {
			if s != none {
				children[i] = node(v[s])
			}
		}
		return NewBranch(kind, children...)
	}
}

// pass promotes the value at position i unchanged.
func pass(i int) action {
	return func(v []lalr.Value, _ *lalr.RecoveryInfo) lalr.Value {
		return v[i]
	}
}

func startList(kind NodeKind) action {
	return func(v []lalr.Value, _ *lalr.RecoveryInfo) lalr.Value {
		return NewList(kind, node(v[0]))
	}
}

// appendList handles L ::= L x.
func appendList(v []lalr.Value, _ *lalr.RecoveryInfo) lalr.Value {
	l := v[0].(*List)
	l.Append(node(v[1]))
	return l
}

func startSeparated(kind NodeKind) action {
	return func(v []lalr.Value, _ *lalr.RecoveryInfo) lalr.Value {
		return NewSeparatedList(kind, node(v[0]))
	}
}

// appendSeparated handles L ::= L ',' x.
func appendSeparated(v []lalr.Value, _ *lalr.RecoveryInfo) lalr.Value {
	l := v[0].(*SeparatedList)
	l.Append(v[1].(*Token), node(v[2]))
	return l
}

// appendUnseparated handles L ::= L x for lists whose separator is optional.
func appendUnseparated(v []lalr.Value, _ *lalr.RecoveryInfo) lalr.Value {
	l := v[0].(*SeparatedList)
	l.Append(nil, node(v[1]))
	return l
}

// bundle names the right-hand side values for a later unpack.
func bundle(names ...string) action {
	return func(v []lalr.Value, _ *lalr.RecoveryInfo) lalr.Value {
		entries := make([]BundleEntry, len(names))
		for i, name := range names {
			entries[i] = BundleEntry{Name: name, Value: node(v[i])}
		}
		return newBundle(entries...)
	}
}

// unpackCount builds kind from a keyword at position 0 and a count bundle
// at position 1.
func unpackCount(kind NodeKind) action {
	return func(v []lalr.Value, _ *lalr.RecoveryInfo) lalr.Value {
		b := v[1].(*Bundle)
		return NewBranch(kind, node(v[0]), b.Get("lparen"), b.Get("count"), b.Get("rparen"))
	}
}

// recovered builds the error clause for an error production from what the
// driver discarded.
func recovered(v []lalr.Value, info *lalr.RecoveryInfo) lalr.Value {
	discarded := NewList(KindDiscardedList)
	for _, x := range v {
		appendDiscarded(discarded, x)
	}
	b := NewBranch(KindErrorClause, discarded)
	if info == nil {
		return b
	}
	for _, x := range info.Discarded {
		appendDiscarded(discarded, x)
	}
	e := &ErrorInfo{State: info.State, Position: info.Position}
	if tok, ok := info.Lookahead.(*Token); ok && tok != nil {
		e.Unexpected = tok.Type
		e.Text = tok.Text()
		e.At = tok.Span.Start
	} else if info.Lookahead != nil {
		e.Unexpected = TokenKind(info.Lookahead.Terminal())
		e.Text = info.Lookahead.Text()
	}
	for _, t := range info.Expected {
		e.Expected = append(e.Expected, TokenKind(t))
	}
	b.errInfo = e
	return b
}

func appendDiscarded(l *List, v lalr.Value) {
	switch x := v.(type) {
	case *Bundle:
		for _, e := range x.entries {
			if e.Value != nil {
				l.Append(e.Value)
			}
		}
	case Node:
		l.Append(x)
	}
}

// dispatcher runs the action of each production.
type dispatcher struct {
	grammar *lalr.Grammar
	actions []action
}

func (d *dispatcher) Dispatch(prod int, values []lalr.Value, info *lalr.RecoveryInfo) (result lalr.Value, err error) {
	if prod <= 0 || prod >= len(d.actions) {
		return nil, &lalr.StructuralError{Op: "dispatch", Msg: fmt.Sprintf("unknown production %d", prod)}
	}
	p := d.grammar.Production(prod)
	if len(values) != p.Len() {
		return nil, &lalr.StructuralError{Op: "dispatch", Msg: fmt.Sprintf("%s: got %d values", p.Description, len(values))}
	}
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("%s: %w", p.Description, e)
				return
			}
			err = fmt.Errorf("%s: %v", p.Description, r)
		}
	}()
	return d.actions[prod](values, info), nil
}
