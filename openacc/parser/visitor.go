package parser

// Visitor receives one call per tag a node satisfies. For a branch the
// order is VisitKind, VisitCapability once per capability tag (lowest
// first), then VisitNode. Lists get VisitList then VisitNode; tokens get
// VisitToken then VisitNode.
type Visitor interface {
	VisitToken(tok *Token)
	VisitKind(b *Branch)
	VisitCapability(c Capability, n Node)
	VisitList(l Node)
	// VisitNode is called last for every node. Walk descends into the
	// node's children only if it returns true.
	VisitNode(n Node) bool
}

// NopVisitor implements Visitor with methods that do nothing. Embed it to
// override only the methods you need.
type NopVisitor struct{}

func (NopVisitor) VisitToken(*Token)                {}
func (NopVisitor) VisitKind(*Branch)                {}
func (NopVisitor) VisitCapability(Capability, Node) {}
func (NopVisitor) VisitList(Node)                   {}
func (NopVisitor) VisitNode(Node) bool              { return true }

// Walk visits n and its descendants depth-first in source order.
func Walk(v Visitor, n Node) {
	if n == nil {
		return
	}
	if !n.Accept(v) {
		return
	}
	for child := range n.Children() {
		Walk(v, child)
	}
}

type inspector func(Node) bool

func (f inspector) VisitToken(*Token)                {}
func (f inspector) VisitKind(*Branch)                {}
func (f inspector) VisitCapability(Capability, Node) {}
func (f inspector) VisitList(Node)                   {}
func (f inspector) VisitNode(n Node) bool            { return f(n) }

// Inspect calls f for n and its descendants in depth-first order. If f
// returns false the children of that node are skipped.
func Inspect(n Node, f func(Node) bool) {
	Walk(inspector(f), n)
}
