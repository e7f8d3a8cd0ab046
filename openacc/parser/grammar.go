package parser

import (
	"fmt"

	"github.com/dhamidi/accparse/lalr"
)

// A rule is one production with its action. Right-hand side symbols are
// TokenKind values for terminals and strings naming nonterminals.
type rule struct {
	lhs      string
	rhs      []any
	recovery bool
	sync     TokenKind
	act      action
}

type rules []rule

func (rs *rules) add(lhs string, act action, rhs ...any) {
	*rs = append(*rs, rule{lhs: lhs, rhs: rhs, act: act})
}

// recover adds lhs ::= (error) sync.
func (rs *rules) recover(lhs string, sync TokenKind) {
	*rs = append(*rs, rule{lhs: lhs, recovery: true, sync: sync, act: recovered})
}

// directive describes a directive that takes a clause list. Its clause
// nonterminal is Name+"DirectiveClause" and its list Name+"ClauseList".
type directive struct {
	Kind NodeKind
	Name string
}

var directives = []directive{
	{KindParallelConstruct, "Parallel"},
	{KindParallelLoopConstruct, "ParallelLoop"},
	{KindKernelsConstruct, "Kernels"},
	{KindKernelsLoopConstruct, "KernelsLoop"},
	{KindDataConstruct, "Data"},
	{KindHostDataConstruct, "HostData"},
	{KindLoopConstruct, "Loop"},
	{KindEnterDataDirective, "EnterData"},
	{KindExitDataDirective, "ExitData"},
	{KindUpdateDirective, "Update"},
	{KindWaitDirective, "Wait"},
	{KindDeclareDirective, "Declare"},
	{KindRoutineDirective, "Routine"},
}

func clauseList(name string) string { return name + "ClauseList" }

// identifierKeywords are the keywords that may be used as names.
func identifierKeywords() []TokenKind {
	var kinds []TokenKind
	for k := firstKeyword; k <= lastKeyword; k++ {
		if k != TokenSizeof {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

func grammarRules() rules {
	var rs rules

	rs.add("Construct", build(KindNoConstruct, none))
	for _, nt := range []string{
		"ParallelConstruct", "ParallelLoopConstruct", "KernelsConstruct",
		"KernelsLoopConstruct", "DataConstruct", "HostDataConstruct",
		"LoopConstruct", "EnterDataDirective", "ExitDataDirective",
		"CacheDirective", "AtomicConstruct", "UpdateDirective",
		"WaitDirective", "DeclareDirective", "RoutineDirective",
	} {
		rs.add("Construct", pass(0), nt)
	}

	directiveRules(&rs)
	clauseRules(&rs)
	dataRules(&rs)
	expressionRules(&rs)
	return rs
}

func directiveRules(rs *rules) {
	p := TokenPragmaAcc
	optional := func(kind NodeKind, list string, keywords ...TokenKind) {
		rhs := []any{p}
		slots := []int{0}
		for i, kw := range keywords {
			rhs = append(rhs, kw)
			slots = append(slots, i+1)
		}
		bare := append(append([]int(nil), slots...), none)
		listed := append(append([]int(nil), slots...), len(rhs))
		rs.add(kind.String(), build(kind, bare...), rhs...)
		rs.add(kind.String(), build(kind, listed...), append(append([]any(nil), rhs...), list)...)
	}
	optional(KindParallelConstruct, "ParallelClauseList", TokenParallel)
	optional(KindParallelLoopConstruct, "ParallelLoopClauseList", TokenParallel, TokenLoop)
	optional(KindKernelsConstruct, "KernelsClauseList", TokenKernels)
	optional(KindKernelsLoopConstruct, "KernelsLoopClauseList", TokenKernels, TokenLoop)
	optional(KindDataConstruct, "DataClauseList", TokenData)
	optional(KindHostDataConstruct, "HostDataClauseList", TokenHostData)
	optional(KindLoopConstruct, "LoopClauseList", TokenLoop)
	optional(KindEnterDataDirective, "EnterDataClauseList", TokenEnter, TokenData)
	optional(KindExitDataDirective, "ExitDataClauseList", TokenExit, TokenData)
	optional(KindUpdateDirective, "UpdateClauseList", TokenUpdate)
	optional(KindDeclareDirective, "DeclareClauseList", TokenDeclare)

	rs.add("CacheDirective", build(KindCacheDirective, 0, 1, 2, 3, 4),
		p, TokenCache, TokenLParen, "DataList", TokenRParen)

	rs.add("AtomicConstruct", build(KindAtomicConstruct, 0, 1, none), p, TokenAtomic)
	rs.add("AtomicConstruct", build(KindAtomicConstruct, 0, 1, 2), p, TokenAtomic, "AtomicDirectiveClause")

	wait := KindWaitDirective.String()
	rs.add(wait, build(KindWaitDirective, 0, 1, none, none, none, none), p, TokenWait)
	rs.add(wait, build(KindWaitDirective, 0, 1, none, none, none, 2), p, TokenWait, "WaitClauseList")
	rs.add(wait, build(KindWaitDirective, 0, 1, 2, 3, 4, none), p, TokenWait, TokenLParen, "ArgList", TokenRParen)
	rs.add(wait, build(KindWaitDirective, 0, 1, 2, 3, 4, 5), p, TokenWait, TokenLParen, "ArgList", TokenRParen, "WaitClauseList")

	routine := KindRoutineDirective.String()
	rs.add(routine, build(KindRoutineDirective, 0, 1, none, none, none, none), p, TokenRoutine)
	rs.add(routine, build(KindRoutineDirective, 0, 1, none, none, none, 2), p, TokenRoutine, "RoutineClauseList")
	rs.add(routine, build(KindRoutineDirective, 0, 1, 2, 3, 4, none), p, TokenRoutine, TokenLParen, "Identifier", TokenRParen)
	rs.add(routine, build(KindRoutineDirective, 0, 1, 2, 3, 4, 5), p, TokenRoutine, TokenLParen, "Identifier", TokenRParen, "RoutineClauseList")

	// Clause lists separate clauses with an optional comma.
	for _, d := range directives {
		list, item := clauseList(d.Name), d.Name+"DirectiveClause"
		rs.add(list, startSeparated(KindClauseList), item)
		rs.add(list, appendUnseparated, list, item)
		rs.add(list, appendSeparated, list, TokenComma, item)
		for _, k := range ClausesFor(d.Kind) {
			rs.add(item, pass(0), k.String())
		}
		rs.recover(item, TokenRParen)
	}
	for _, k := range ClausesFor(KindAtomicConstruct) {
		rs.add("AtomicDirectiveClause", pass(0), k.String())
	}
	rs.recover("AtomicDirectiveClause", TokenRParen)
}

func clauseRules(rs *rules) {
	lp, rp := TokenLParen, TokenRParen

	rs.add("Count", bundle("lparen", "count", "rparen"), lp, "Cond", rp)

	parenthesized := func(kind NodeKind, keyword TokenKind, inner string) {
		rs.add(kind.String(), build(kind, 0, 1, 2, 3), keyword, lp, inner, rp)
	}
	parenthesized(KindIfClause, TokenIf, "Cond")
	parenthesized(KindNumGangsClause, TokenNumGangs, "Cond")
	parenthesized(KindNumWorkersClause, TokenNumWorkers, "Cond")
	parenthesized(KindVectorLengthClause, TokenVectorLength, "Cond")
	parenthesized(KindTileClause, TokenTile, "ArgList")
	parenthesized(KindWaitClause, TokenWait, "ArgList")
	rs.add(KindWaitClause.String(), build(KindWaitClause, 0, none, none, none), TokenWait)

	withCount := func(kind NodeKind, keyword TokenKind, bare bool) {
		if bare {
			rs.add(kind.String(), build(kind, 0, none, none, none), keyword)
		}
		rs.add(kind.String(), unpackCount(kind), keyword, "Count")
	}
	withCount(KindAsyncClause, TokenAsync, true)
	withCount(KindCollapseClause, TokenCollapse, false)
	withCount(KindGangClause, TokenGang, true)
	withCount(KindWorkerClause, TokenWorker, true)
	withCount(KindVectorClause, TokenVector, true)

	dataClauses := []struct {
		kind     NodeKind
		keywords []TokenKind
	}{
		{KindCopyClause, []TokenKind{TokenCopy}},
		{KindCopyinClause, []TokenKind{TokenCopyin}},
		{KindCopyoutClause, []TokenKind{TokenCopyout}},
		{KindCreateClause, []TokenKind{TokenCreate}},
		{KindPresentClause, []TokenKind{TokenPresent}},
		{KindPresentOrCopyClause, []TokenKind{TokenPresentOrCopy, TokenPcopy}},
		{KindPresentOrCopyinClause, []TokenKind{TokenPresentOrCopyin, TokenPcopyin}},
		{KindPresentOrCopyoutClause, []TokenKind{TokenPresentOrCopyout, TokenPcopyout}},
		{KindPresentOrCreateClause, []TokenKind{TokenPresentOrCreate, TokenPcreate}},
		{KindDeviceptrClause, []TokenKind{TokenDeviceptr}},
		{KindDeleteClause, []TokenKind{TokenDelete}},
		{KindDeviceResidentClause, []TokenKind{TokenDeviceResident}},
		{KindLinkClause, []TokenKind{TokenLink}},
		{KindUseDeviceClause, []TokenKind{TokenUseDevice}},
		{KindSelfClause, []TokenKind{TokenSelf}},
		{KindHostClause, []TokenKind{TokenHost}},
		{KindDeviceClause, []TokenKind{TokenDevice}},
		{KindPrivateClause, []TokenKind{TokenPrivate}},
		{KindFirstprivateClause, []TokenKind{TokenFirstprivate}},
	}
	for _, dc := range dataClauses {
		for _, kw := range dc.keywords {
			parenthesized(dc.kind, kw, "DataList")
		}
	}

	rs.add(KindDefaultNoneClause.String(), build(KindDefaultNoneClause, 0, 1, 2, 3), TokenDefault, lp, TokenNone, rp)

	rs.add(KindReductionClause.String(), build(KindReductionClause, 0, 1, 2, 3, 4, 5),
		TokenReduction, lp, "ReductionOperator", TokenColon, "IdentifierList", rp)
	for _, op := range []TokenKind{TokenPlus, TokenStar, TokenMax, TokenMin, TokenBitAnd, TokenBitOr, TokenBitXor, TokenAnd, TokenOr} {
		rs.add("ReductionOperator", pass(0), op)
	}

	rs.add(KindBindClause.String(), build(KindBindClause, 0, 1, 2, 3), TokenBind, lp, "Identifier", rp)
	rs.add(KindBindClause.String(), build(KindBindClause, 0, 1, 2, 3), TokenBind, lp, TokenStringLiteral, rp)

	keywordOnly := []struct {
		kind    NodeKind
		keyword TokenKind
	}{
		{KindSeqClause, TokenSeq},
		{KindAutoClause, TokenAuto},
		{KindIndependentClause, TokenIndependent},
		{KindNohostClause, TokenNohost},
		{KindReadClause, TokenRead},
		{KindWriteClause, TokenWrite},
		{KindUpdateClause, TokenUpdate},
		{KindCaptureClause, TokenCapture},
	}
	for _, c := range keywordOnly {
		rs.add(c.kind.String(), build(c.kind, 0), c.keyword)
	}
}

func dataRules(rs *rules) {
	rs.add("DataList", startSeparated(KindDataList), "DataItem")
	rs.add("DataList", appendSeparated, "DataList", TokenComma, "DataItem")

	item := KindDataItem.String()
	rs.add(item, build(KindDataItem, 0, none, none, none, none, none), "Identifier")
	rs.add(item, build(KindDataItem, 0, 1, 2, 3, 4, 5),
		"Identifier", TokenLBracket, "Cond", TokenColon, "Cond", TokenRBracket)

	rs.add("IdentifierList", startSeparated(KindIdentifierList), "Identifier")
	rs.add("IdentifierList", appendSeparated, "IdentifierList", TokenComma, "Identifier")

	rs.add("ArgList", startSeparated(KindArgList), "Cond")
	rs.add("ArgList", appendSeparated, "ArgList", TokenComma, "Cond")

	rs.add("Identifier", build(KindIdentifier, 0), TokenIdent)
	for _, kw := range identifierKeywords() {
		rs.add("Identifier", build(KindIdentifier, 0), kw)
	}
}

func expressionRules(rs *rules) {
	rs.add("Primary", build(KindIdentifierExpr, 0), "Identifier")
	for _, lit := range []TokenKind{TokenIntLiteral, TokenFloatLiteral, TokenCharLiteral} {
		rs.add("Primary", build(KindConstantExpr, 0), lit)
	}
	rs.add("Primary", build(KindStringLiteralExpr, 0), "StringLiteralList")
	rs.add("Primary", build(KindParenExpr, 0, 1, 2), TokenLParen, "Cond", TokenRParen)

	rs.add("StringLiteralList", startList(KindStringLiteralList), TokenStringLiteral)
	rs.add("StringLiteralList", appendList, "StringLiteralList", TokenStringLiteral)

	rs.add("Postfix", pass(0), "Primary")
	rs.add("Postfix", build(KindArrayAccessExpr, 0, 1, 2, 3), "Postfix", TokenLBracket, "Cond", TokenRBracket)
	rs.add("Postfix", build(KindFunctionCallExpr, 0, 1, none, 2), "Postfix", TokenLParen, TokenRParen)
	rs.add("Postfix", build(KindFunctionCallExpr, 0, 1, 2, 3), "Postfix", TokenLParen, "ArgList", TokenRParen)
	rs.add("Postfix", build(KindElementAccessExpr, 0, 1, 2), "Postfix", TokenDot, "Identifier")
	rs.add("Postfix", build(KindElementAccessExpr, 0, 1, 2), "Postfix", TokenArrow, "Identifier")
	rs.add("Postfix", build(KindPostfixUnaryExpr, 0, 1), "Postfix", TokenIncrement)
	rs.add("Postfix", build(KindPostfixUnaryExpr, 0, 1), "Postfix", TokenDecrement)

	rs.add("Unary", pass(0), "Postfix")
	rs.add("Unary", build(KindPrefixUnaryExpr, 0, 1), TokenIncrement, "Unary")
	rs.add("Unary", build(KindPrefixUnaryExpr, 0, 1), TokenDecrement, "Unary")
	rs.add("Unary", build(KindPrefixUnaryExpr, 0, 1), "UnaryOperator", "Unary")
	rs.add("Unary", build(KindSizeofExpr, 0, 1), TokenSizeof, "Unary")
	for _, op := range []TokenKind{TokenBitAnd, TokenStar, TokenPlus, TokenMinus, TokenBitNot, TokenNot} {
		rs.add("UnaryOperator", pass(0), op)
	}

	// Binary operators, loosest last.
	levels := []struct {
		name string
		ops  []TokenKind
	}{
		{"Multiplicative", []TokenKind{TokenStar, TokenSlash, TokenPercent}},
		{"Additive", []TokenKind{TokenPlus, TokenMinus}},
		{"Shift", []TokenKind{TokenShl, TokenShr}},
		{"Relational", []TokenKind{TokenLT, TokenGT, TokenLE, TokenGE}},
		{"Equality", []TokenKind{TokenEQ, TokenNE}},
		{"BitAnd", []TokenKind{TokenBitAnd}},
		{"BitXor", []TokenKind{TokenBitXor}},
		{"BitOr", []TokenKind{TokenBitOr}},
		{"LogicalAnd", []TokenKind{TokenAnd}},
		{"LogicalOr", []TokenKind{TokenOr}},
	}
	operand := "Unary"
	for _, lv := range levels {
		rs.add(lv.name, pass(0), operand)
		for _, op := range lv.ops {
			rs.add(lv.name, build(KindBinaryExpr, 0, 1, 2), lv.name, op, operand)
		}
		operand = lv.name
	}

	rs.add("Cond", pass(0), operand)
	rs.add("Cond", build(KindTernaryExpr, 0, 1, 2, 3, 4), operand, TokenQuestion, "Cond", TokenColon, "Cond")
}

// buildGrammar turns the rules into a grammar and the action table indexed
// by production.
func buildGrammar() (*lalr.Grammar, []action, error) {
	rs := grammarRules()

	var names []string
	index := map[string]lalr.Nonterminal{}
	for _, r := range rs {
		if _, ok := index[r.lhs]; !ok {
			index[r.lhs] = lalr.Nonterminal(len(names))
			names = append(names, r.lhs)
		}
	}
	terms := make([]string, numTokenKinds)
	for k := TokenKind(0); k < numTokenKinds; k++ {
		terms[k] = k.Description()
	}

	g := lalr.NewGrammar(terms, names, index["Construct"], lalr.Terminal(TokenEOF))
	actions := []action{nil}
	for _, r := range rs {
		syms := make([]lalr.Symbol, len(r.rhs))
		for i, s := range r.rhs {
			switch s := s.(type) {
			case TokenKind:
				syms[i] = lalr.T(lalr.Terminal(s))
			case string:
				n, ok := index[s]
				if !ok {
					return nil, nil, fmt.Errorf("%s: undefined nonterminal %s", r.lhs, s)
				}
				syms[i] = lalr.N(n)
			default:
				return nil, nil, fmt.Errorf("%s: bad symbol %v", r.lhs, s)
			}
		}
		if r.recovery {
			g.AddRecovery(index[r.lhs], lalr.Terminal(r.sync), syms...)
		} else {
			g.Add(index[r.lhs], syms...)
		}
		actions = append(actions, r.act)
	}
	if err := g.Validate(); err != nil {
		return nil, nil, err
	}
	return g, actions, nil
}
