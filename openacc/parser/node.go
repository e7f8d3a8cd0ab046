package parser

import (
	"iter"
	"math/bits"
	"strings"
)

type NodeKind int

const (
	KindToken NodeKind = iota

	// Constructs and directives
	KindNoConstruct
	KindParallelConstruct
	KindParallelLoopConstruct
	KindKernelsConstruct
	KindKernelsLoopConstruct
	KindDataConstruct
	KindHostDataConstruct
	KindLoopConstruct
	KindEnterDataDirective
	KindExitDataDirective
	KindCacheDirective
	KindAtomicConstruct
	KindUpdateDirective
	KindWaitDirective
	KindDeclareDirective
	KindRoutineDirective

	// Clauses
	KindIfClause
	KindAsyncClause
	KindWaitClause
	KindNumGangsClause
	KindNumWorkersClause
	KindVectorLengthClause
	KindReductionClause
	KindCopyClause
	KindCopyinClause
	KindCopyoutClause
	KindCreateClause
	KindPresentClause
	KindPresentOrCopyClause
	KindPresentOrCopyinClause
	KindPresentOrCopyoutClause
	KindPresentOrCreateClause
	KindDeviceptrClause
	KindDeleteClause
	KindDeviceResidentClause
	KindLinkClause
	KindUseDeviceClause
	KindSelfClause
	KindHostClause
	KindDeviceClause
	KindPrivateClause
	KindFirstprivateClause
	KindDefaultNoneClause
	KindCollapseClause
	KindGangClause
	KindWorkerClause
	KindVectorClause
	KindSeqClause
	KindAutoClause
	KindTileClause
	KindIndependentClause
	KindBindClause
	KindNohostClause
	KindReadClause
	KindWriteClause
	KindUpdateClause
	KindCaptureClause
	KindErrorClause

	// Data items and names
	KindDataItem
	KindIdentifier

	// Expressions
	KindIdentifierExpr
	KindConstantExpr
	KindStringLiteralExpr
	KindParenExpr
	KindArrayAccessExpr
	KindFunctionCallExpr
	KindElementAccessExpr
	KindPostfixUnaryExpr
	KindPrefixUnaryExpr
	KindSizeofExpr
	KindBinaryExpr
	KindTernaryExpr

	// Lists
	KindClauseList
	KindDataList
	KindArgList
	KindIdentifierList
	KindStringLiteralList
	KindDiscardedList

	numNodeKinds
)

var nodeKindNames = map[NodeKind]string{
	KindToken:                  "Token",
	KindNoConstruct:            "NoConstruct",
	KindParallelConstruct:      "ParallelConstruct",
	KindParallelLoopConstruct:  "ParallelLoopConstruct",
	KindKernelsConstruct:       "KernelsConstruct",
	KindKernelsLoopConstruct:   "KernelsLoopConstruct",
	KindDataConstruct:          "DataConstruct",
	KindHostDataConstruct:      "HostDataConstruct",
	KindLoopConstruct:          "LoopConstruct",
	KindEnterDataDirective:     "EnterDataDirective",
	KindExitDataDirective:      "ExitDataDirective",
	KindCacheDirective:         "CacheDirective",
	KindAtomicConstruct:        "AtomicConstruct",
	KindUpdateDirective:        "UpdateDirective",
	KindWaitDirective:          "WaitDirective",
	KindDeclareDirective:       "DeclareDirective",
	KindRoutineDirective:       "RoutineDirective",
	KindIfClause:               "IfClause",
	KindAsyncClause:            "AsyncClause",
	KindWaitClause:             "WaitClause",
	KindNumGangsClause:         "NumGangsClause",
	KindNumWorkersClause:       "NumWorkersClause",
	KindVectorLengthClause:     "VectorLengthClause",
	KindReductionClause:        "ReductionClause",
	KindCopyClause:             "CopyClause",
	KindCopyinClause:           "CopyinClause",
	KindCopyoutClause:          "CopyoutClause",
	KindCreateClause:           "CreateClause",
	KindPresentClause:          "PresentClause",
	KindPresentOrCopyClause:    "PresentOrCopyClause",
	KindPresentOrCopyinClause:  "PresentOrCopyinClause",
	KindPresentOrCopyoutClause: "PresentOrCopyoutClause",
	KindPresentOrCreateClause:  "PresentOrCreateClause",
	KindDeviceptrClause:        "DeviceptrClause",
	KindDeleteClause:           "DeleteClause",
	KindDeviceResidentClause:   "DeviceResidentClause",
	KindLinkClause:             "LinkClause",
	KindUseDeviceClause:        "UseDeviceClause",
	KindSelfClause:             "SelfClause",
	KindHostClause:             "HostClause",
	KindDeviceClause:           "DeviceClause",
	KindPrivateClause:          "PrivateClause",
	KindFirstprivateClause:     "FirstprivateClause",
	KindDefaultNoneClause:      "DefaultNoneClause",
	KindCollapseClause:         "CollapseClause",
	KindGangClause:             "GangClause",
	KindWorkerClause:           "WorkerClause",
	KindVectorClause:           "VectorClause",
	KindSeqClause:              "SeqClause",
	KindAutoClause:             "AutoClause",
	KindTileClause:             "TileClause",
	KindIndependentClause:      "IndependentClause",
	KindBindClause:             "BindClause",
	KindNohostClause:           "NohostClause",
	KindReadClause:             "ReadClause",
	KindWriteClause:            "WriteClause",
	KindUpdateClause:           "UpdateClause",
	KindCaptureClause:          "CaptureClause",
	KindErrorClause:            "ErrorClause",
	KindDataItem:               "DataItem",
	KindIdentifier:             "Identifier",
	KindIdentifierExpr:         "IdentifierExpr",
	KindConstantExpr:           "ConstantExpr",
	KindStringLiteralExpr:      "StringLiteralExpr",
	KindParenExpr:              "ParenExpr",
	KindArrayAccessExpr:        "ArrayAccessExpr",
	KindFunctionCallExpr:       "FunctionCallExpr",
	KindElementAccessExpr:      "ElementAccessExpr",
	KindPostfixUnaryExpr:       "PostfixUnaryExpr",
	KindPrefixUnaryExpr:        "PrefixUnaryExpr",
	KindSizeofExpr:             "SizeofExpr",
	KindBinaryExpr:             "BinaryExpr",
	KindTernaryExpr:            "TernaryExpr",
	KindClauseList:             "ClauseList",
	KindDataList:               "DataList",
	KindArgList:                "ArgList",
	KindIdentifierList:         "IdentifierList",
	KindStringLiteralList:      "StringLiteralList",
	KindDiscardedList:          "DiscardedList",
}

func (k NodeKind) String() string {
	if name, ok := nodeKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Capability is a set of tags a node kind satisfies. A clause carries one
// tag per directive that accepts it, so the clause set of a directive is
// the set of kinds with that directive's tag.
type Capability uint64

const (
	CapConstruct Capability = 1 << iota
	CapAssociated
	CapClause
	CapDataMovement
	CapLoopSchedule
	CapExpression
	CapRecovered

	CapParallelClause
	CapParallelLoopClause
	CapKernelsClause
	CapKernelsLoopClause
	CapDataClause
	CapHostDataClause
	CapLoopClause
	CapEnterDataClause
	CapExitDataClause
	CapUpdateClause
	CapWaitClause
	CapDeclareClause
	CapRoutineClause
	CapAtomicClause

	numCaps = iota
)

var capNames = []string{
	"Construct",
	"Associated",
	"Clause",
	"DataMovement",
	"LoopSchedule",
	"Expression",
	"Recovered",
	"ParallelClause",
	"ParallelLoopClause",
	"KernelsClause",
	"KernelsLoopClause",
	"DataClause",
	"HostDataClause",
	"LoopClause",
	"EnterDataClause",
	"ExitDataClause",
	"UpdateClause",
	"WaitClause",
	"DeclareClause",
	"RoutineClause",
	"AtomicClause",
}

// Has reports whether c contains every tag in o.
func (c Capability) Has(o Capability) bool { return c&o == o }

// All yields the single tags in c, lowest first.
func (c Capability) All() iter.Seq[Capability] {
	return func(yield func(Capability) bool) {
		for rest := c; rest != 0; rest &= rest - 1 {
			if !yield(Capability(1) << bits.TrailingZeros64(uint64(rest))) {
				return
			}
		}
	}
}

// Names returns the names of the tags in c.
func (c Capability) Names() []string {
	var names []string
	for one := range c.All() {
		i := bits.TrailingZeros64(uint64(one))
		if i < len(capNames) {
			names = append(names, capNames[i])
		}
	}
	return names
}

func (c Capability) String() string {
	if c == 0 {
		return "None"
	}
	return strings.Join(c.Names(), "|")
}

const (
	capComputeClauses = CapParallelClause | CapParallelLoopClause | CapKernelsClause | CapKernelsLoopClause
	capDataRegion     = capComputeClauses | CapDataClause | CapDeclareClause
	capLoopish        = CapLoopClause | CapParallelLoopClause | CapKernelsLoopClause
	capAsyncable      = capComputeClauses | CapEnterDataClause | CapExitDataClause | CapUpdateClause
	capDirectiveTags  = capDataRegion | capLoopish | CapHostDataClause | CapEnterDataClause |
		CapExitDataClause | CapUpdateClause | CapWaitClause | CapRoutineClause | CapAtomicClause
)

// Layout names the child slots of a branch kind, in source order.
type Layout struct {
	Kind   NodeKind
	Caps   Capability
	Fields []string
}

func (l *Layout) index(field string) int {
	for i, f := range l.Fields {
		if f == field {
			return i
		}
	}
	return -1
}

var layouts = map[NodeKind]*Layout{}

// layout registers the branch shape of kind.
func layout(kind NodeKind, caps Capability, fields ...string) {
	layouts[kind] = &Layout{Kind: kind, Caps: caps, Fields: fields}
}

// LayoutOf returns the branch shape of kind, or nil for tokens and lists.
func LayoutOf(kind NodeKind) *Layout {
	return layouts[kind]
}

// CapsOf returns the capability tags of kind.
func CapsOf(kind NodeKind) Capability {
	if l, ok := layouts[kind]; ok {
		return l.Caps
	}
	return 0
}

func init() {
	construct := CapConstruct
	associated := CapConstruct | CapAssociated

	layout(KindNoConstruct, construct, "end")
	layout(KindParallelConstruct, associated, "pragma", "parallel", "clauses")
	layout(KindParallelLoopConstruct, associated, "pragma", "parallel", "loop", "clauses")
	layout(KindKernelsConstruct, associated, "pragma", "kernels", "clauses")
	layout(KindKernelsLoopConstruct, associated, "pragma", "kernels", "loop", "clauses")
	layout(KindDataConstruct, associated, "pragma", "data", "clauses")
	layout(KindHostDataConstruct, associated, "pragma", "host_data", "clauses")
	layout(KindLoopConstruct, associated, "pragma", "loop", "clauses")
	layout(KindEnterDataDirective, construct, "pragma", "enter", "data", "clauses")
	layout(KindExitDataDirective, construct, "pragma", "exit", "data", "clauses")
	layout(KindCacheDirective, construct, "pragma", "cache", "lparen", "items", "rparen")
	layout(KindAtomicConstruct, associated, "pragma", "atomic", "clause")
	layout(KindUpdateDirective, construct, "pragma", "update", "clauses")
	layout(KindWaitDirective, construct, "pragma", "wait", "lparen", "args", "rparen", "clauses")
	layout(KindDeclareDirective, construct, "pragma", "declare", "clauses")
	layout(KindRoutineDirective, construct, "pragma", "routine", "lparen", "name", "rparen", "clauses")

	clause := CapClause
	data := CapClause | CapDataMovement
	sched := CapClause | CapLoopSchedule
	parens := []string{"keyword", "lparen", "expression", "rparen"}
	items := []string{"keyword", "lparen", "items", "rparen"}
	count := []string{"keyword", "lparen", "count", "rparen"}

	layout(KindIfClause, clause|capAsyncable|CapDataClause, "keyword", "lparen", "condition", "rparen")
	layout(KindAsyncClause, clause|capAsyncable|CapWaitClause, count...)
	layout(KindWaitClause, clause|capAsyncable, "keyword", "lparen", "args", "rparen")
	layout(KindNumGangsClause, clause|CapParallelClause|CapParallelLoopClause, parens...)
	layout(KindNumWorkersClause, clause|CapParallelClause|CapParallelLoopClause, parens...)
	layout(KindVectorLengthClause, clause|CapParallelClause|CapParallelLoopClause, parens...)
	layout(KindReductionClause, clause|CapParallelClause|capLoopish, "keyword", "lparen", "operator", "colon", "items", "rparen")

	layout(KindCopyClause, data|capDataRegion, items...)
	layout(KindCopyinClause, data|capDataRegion|CapEnterDataClause, items...)
	layout(KindCopyoutClause, data|capDataRegion|CapExitDataClause, items...)
	layout(KindCreateClause, data|capDataRegion|CapEnterDataClause, items...)
	layout(KindPresentClause, data|capDataRegion, items...)
	layout(KindPresentOrCopyClause, data|capDataRegion, items...)
	layout(KindPresentOrCopyinClause, data|capDataRegion|CapEnterDataClause, items...)
	layout(KindPresentOrCopyoutClause, data|capDataRegion, items...)
	layout(KindPresentOrCreateClause, data|capDataRegion|CapEnterDataClause, items...)
	layout(KindDeviceptrClause, data|capDataRegion, items...)
	layout(KindDeleteClause, data|CapExitDataClause, items...)
	layout(KindDeviceResidentClause, data|CapDeclareClause, items...)
	layout(KindLinkClause, data|CapDeclareClause, items...)
	layout(KindUseDeviceClause, data|CapHostDataClause, items...)
	layout(KindSelfClause, data|CapUpdateClause, items...)
	layout(KindHostClause, data|CapUpdateClause, items...)
	layout(KindDeviceClause, data|CapUpdateClause, items...)
	layout(KindPrivateClause, clause|CapParallelClause|capLoopish, items...)
	layout(KindFirstprivateClause, clause|CapParallelClause|CapParallelLoopClause, items...)
	layout(KindDefaultNoneClause, clause|capComputeClauses, "keyword", "lparen", "none", "rparen")

	layout(KindCollapseClause, clause|capLoopish, count...)
	layout(KindGangClause, sched|capLoopish|CapRoutineClause, count...)
	layout(KindWorkerClause, sched|capLoopish|CapRoutineClause, count...)
	layout(KindVectorClause, sched|capLoopish|CapRoutineClause, count...)
	layout(KindSeqClause, sched|capLoopish|CapRoutineClause, "keyword")
	layout(KindAutoClause, sched|capLoopish, "keyword")
	layout(KindTileClause, clause|capLoopish, "keyword", "lparen", "args", "rparen")
	layout(KindIndependentClause, clause|capLoopish, "keyword")
	layout(KindBindClause, clause|CapRoutineClause, "keyword", "lparen", "name", "rparen")
	layout(KindNohostClause, clause|CapRoutineClause, "keyword")
	layout(KindReadClause, clause|CapAtomicClause, "keyword")
	layout(KindWriteClause, clause|CapAtomicClause, "keyword")
	layout(KindUpdateClause, clause|CapAtomicClause, "keyword")
	layout(KindCaptureClause, clause|CapAtomicClause, "keyword")
	layout(KindErrorClause, clause|CapRecovered|capDirectiveTags, "discarded")

	layout(KindDataItem, 0, "name", "lbracket", "lower", "colon", "length", "rbracket")
	layout(KindIdentifier, 0, "name")

	expr := CapExpression
	layout(KindIdentifierExpr, expr, "identifier")
	layout(KindConstantExpr, expr, "constant")
	layout(KindStringLiteralExpr, expr, "literals")
	layout(KindParenExpr, expr, "lparen", "expression", "rparen")
	layout(KindArrayAccessExpr, expr, "array", "lbracket", "index", "rbracket")
	layout(KindFunctionCallExpr, expr, "function", "lparen", "args", "rparen")
	layout(KindElementAccessExpr, expr, "structure", "operator", "member")
	layout(KindPostfixUnaryExpr, expr, "operand", "operator")
	layout(KindPrefixUnaryExpr, expr, "operator", "operand")
	layout(KindSizeofExpr, expr, "sizeof", "operand")
	layout(KindBinaryExpr, expr, "lhs", "operator", "rhs")
	layout(KindTernaryExpr, expr, "condition", "question", "then", "colon", "else")
}

// directiveClauseCaps maps each directive that takes a clause list to the
// tag its clauses carry.
var directiveClauseCaps = []struct {
	Kind NodeKind
	Cap  Capability
}{
	{KindParallelConstruct, CapParallelClause},
	{KindParallelLoopConstruct, CapParallelLoopClause},
	{KindKernelsConstruct, CapKernelsClause},
	{KindKernelsLoopConstruct, CapKernelsLoopClause},
	{KindDataConstruct, CapDataClause},
	{KindHostDataConstruct, CapHostDataClause},
	{KindLoopConstruct, CapLoopClause},
	{KindEnterDataDirective, CapEnterDataClause},
	{KindExitDataDirective, CapExitDataClause},
	{KindUpdateDirective, CapUpdateClause},
	{KindWaitDirective, CapWaitClause},
	{KindDeclareDirective, CapDeclareClause},
	{KindRoutineDirective, CapRoutineClause},
}

// ClausesFor returns the clause kinds a directive accepts, in kind order.
// The error clause is not included.
func ClausesFor(directive NodeKind) []NodeKind {
	var tag Capability
	for _, d := range directiveClauseCaps {
		if d.Kind == directive {
			tag = d.Cap
		}
	}
	if directive == KindAtomicConstruct {
		tag = CapAtomicClause
	}
	if tag == 0 {
		return nil
	}
	var kinds []NodeKind
	for k := KindIfClause; k < KindErrorClause; k++ {
		if CapsOf(k).Has(tag) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
