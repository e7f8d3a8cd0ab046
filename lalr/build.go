package lalr

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("accparse.lalr")

type item struct {
	prod, dot int
}

func compareItems(a, b item) int {
	if c := cmp.Compare(a.prod, b.prod); c != 0 {
		return c
	}
	return cmp.Compare(a.dot, b.dot)
}

// compareSymbols orders terminals before nonterminals, each by index.
func compareSymbols(a, b Symbol) int {
	switch {
	case a.IsTerminal() && !b.IsTerminal():
		return -1
	case !a.IsTerminal() && b.IsTerminal():
		return 1
	case a.IsTerminal():
		return cmp.Compare(a.Terminal(), b.Terminal())
	default:
		return cmp.Compare(a.Nonterminal(), b.Nonterminal())
	}
}

type lr0State struct {
	kernel []item
	items  []item // closure; kernel items come first
	index  map[item]int
	trans  map[Symbol]int
	order  []Symbol
}

func (s *lr0State) add(it item) {
	if _, ok := s.index[it]; ok {
		return
	}
	s.index[it] = len(s.items)
	s.items = append(s.items, it)
}

type rest struct {
	first    bitset
	nullable bool
}

type builder struct {
	g        *Grammar
	byLHS    [][]int
	nullable []bool
	first    []bitset
	rests    [][]rest // rests[p][d] describes RHS[d+1:]
	states   []*lr0State
	kernels  map[string]int
}

// Build constructs LALR(1) tables for g. Conflicts do not fail the build;
// they are resolved in favour of shift, then of the lowest production, and
// listed by Tables.Conflicts.
func Build(g *Grammar) (*Tables, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	b := &builder{
		g:       g,
		byLHS:   make([][]int, g.NumNonterminals()),
		kernels: make(map[string]int),
	}
	for i, p := range g.productions {
		b.byLHS[p.LHS] = append(b.byLHS[p.LHS], i)
	}
	b.computeFirst()
	b.computeRests()
	b.buildStates()
	la := b.computeLookaheads()
	t := b.fill(la)
	log.Infof("built %d states for %d productions over %d terminals", t.numStates, g.NumProductions(), g.NumTerminals())
	for _, c := range t.conflicts {
		log.Warningf("conflict: %s", c.Describe(g))
	}
	return t, nil
}

func (b *builder) newSet() bitset {
	return newBitset(b.g.NumTerminals())
}

// computeFirst computes FIRST and nullability for every nonterminal. The
// error marker contributes nothing to FIRST, so an error production is
// never nullable.
func (b *builder) computeFirst() {
	n := b.g.NumNonterminals()
	b.nullable = make([]bool, n)
	b.first = make([]bitset, n)
	for i := range b.first {
		b.first[i] = b.newSet()
	}
	for changed := true; changed; {
		changed = false
		for _, p := range b.g.productions {
			if b.firstSeq(b.first[p.LHS], p.RHS) {
				changed = true
			}
			if !p.Recovery && !b.nullable[p.LHS] && b.seqNullable(p.RHS) {
				b.nullable[p.LHS] = true
				changed = true
			}
		}
	}
}

// firstSeq adds FIRST(seq) to dst and reports whether dst changed.
func (b *builder) firstSeq(dst bitset, seq []Symbol) bool {
	changed := false
	for _, s := range seq {
		if s.IsTerminal() {
			return dst.add(int(s.Terminal())) || changed
		}
		if dst.union(b.first[s.Nonterminal()]) {
			changed = true
		}
		if !b.nullable[s.Nonterminal()] {
			return changed
		}
	}
	return changed
}

func (b *builder) seqNullable(seq []Symbol) bool {
	for _, s := range seq {
		if s.IsTerminal() || !b.nullable[s.Nonterminal()] {
			return false
		}
	}
	return true
}

func (b *builder) computeRests() {
	b.rests = make([][]rest, len(b.g.productions))
	for i, p := range b.g.productions {
		b.rests[i] = make([]rest, len(p.RHS))
		for d := range p.RHS {
			tail := p.RHS[d+1:]
			r := rest{first: b.newSet(), nullable: !p.Recovery && b.seqNullable(tail)}
			b.firstSeq(r.first, tail)
			b.rests[i][d] = r
		}
	}
}

func (b *builder) closure(kernel []item) *lr0State {
	st := &lr0State{
		kernel: kernel,
		index:  make(map[item]int),
		trans:  make(map[Symbol]int),
	}
	for _, it := range kernel {
		st.add(it)
	}
	for i := 0; i < len(st.items); i++ {
		it := st.items[i]
		p := &b.g.productions[it.prod]
		if it.dot < len(p.RHS) && !p.RHS[it.dot].IsTerminal() {
			for _, q := range b.byLHS[p.RHS[it.dot].Nonterminal()] {
				st.add(item{q, 0})
			}
		}
	}
	return st
}

func kernelKey(kernel []item) string {
	var sb strings.Builder
	for _, it := range kernel {
		fmt.Fprintf(&sb, "%d.%d ", it.prod, it.dot)
	}
	return sb.String()
}

// buildStates enumerates the LR(0) collection breadth first, visiting
// transition symbols in a fixed order so state numbers are reproducible.
func (b *builder) buildStates() {
	start := b.closure([]item{{0, 0}})
	b.states = []*lr0State{start}
	b.kernels[kernelKey(start.kernel)] = 0
	for i := 0; i < len(b.states); i++ {
		st := b.states[i]
		groups := make(map[Symbol][]item)
		for _, it := range st.items {
			p := &b.g.productions[it.prod]
			if it.dot < len(p.RHS) {
				s := p.RHS[it.dot]
				groups[s] = append(groups[s], item{it.prod, it.dot + 1})
			}
		}
		syms := make([]Symbol, 0, len(groups))
		for s := range groups {
			syms = append(syms, s)
		}
		slices.SortFunc(syms, compareSymbols)
		for _, s := range syms {
			kernel := groups[s]
			slices.SortFunc(kernel, compareItems)
			key := kernelKey(kernel)
			j, ok := b.kernels[key]
			if !ok {
				j = len(b.states)
				b.states = append(b.states, b.closure(kernel))
				b.kernels[key] = j
			}
			st.trans[s] = j
			st.order = append(st.order, s)
		}
	}
}

// computeLookaheads propagates LR(1) lookaheads over the LR(0) collection
// until no kernel item gains a terminal.
func (b *builder) computeLookaheads() [][]bitset {
	la := make([][]bitset, len(b.states))
	for i, st := range b.states {
		la[i] = make([]bitset, len(st.kernel))
		for k := range la[i] {
			la[i][k] = b.newSet()
		}
	}
	la[0][0].add(int(b.g.eof))
	for changed := true; changed; {
		changed = false
		for i, st := range b.states {
			cl := b.closeLookaheads(st, la[i])
			for j, it := range st.items {
				p := &b.g.productions[it.prod]
				if it.dot >= len(p.RHS) {
					continue
				}
				target := st.trans[p.RHS[it.dot]]
				k := b.states[target].index[item{it.prod, it.dot + 1}]
				if la[target][k].union(cl[j]) {
					changed = true
				}
			}
		}
	}
	return la
}

// closeLookaheads computes the lookahead set of every closure item of st
// given the lookaheads of its kernel.
func (b *builder) closeLookaheads(st *lr0State, kernel []bitset) []bitset {
	cl := make([]bitset, len(st.items))
	for j := range cl {
		if j < len(kernel) {
			cl[j] = kernel[j].clone()
		} else {
			cl[j] = b.newSet()
		}
	}
	for changed := true; changed; {
		changed = false
		for j, it := range st.items {
			p := &b.g.productions[it.prod]
			if it.dot >= len(p.RHS) || p.RHS[it.dot].IsTerminal() {
				continue
			}
			r := b.rests[it.prod][it.dot]
			for _, q := range b.byLHS[p.RHS[it.dot].Nonterminal()] {
				dst := cl[st.index[item{q, 0}]]
				if dst.union(r.first) {
					changed = true
				}
				if r.nullable && dst.union(cl[j]) {
					changed = true
				}
			}
		}
	}
	return cl
}

func (b *builder) fill(la [][]bitset) *Tables {
	g := b.g
	nt, nn := g.NumTerminals(), g.NumNonterminals()
	t := &Tables{
		grammar:   g,
		numStates: len(b.states),
		actions:   make([]Action, len(b.states)*nt),
		gotos:     make([]int32, len(b.states)*nn),
		recovery:  make([]Recovery, len(b.states)*nt),
	}
	for i := range t.gotos {
		t.gotos[i] = -1
	}
	for i, st := range b.states {
		cl := b.closeLookaheads(st, la[i])
		hasRecovery := false
		for j, it := range st.items {
			p := &g.productions[it.prod]
			switch {
			case it.dot < len(p.RHS) && p.RHS[it.dot].IsTerminal():
				t.setAction(i, p.RHS[it.dot].Terminal(), Shift(st.trans[p.RHS[it.dot]]))
			case it.dot < len(p.RHS):
			case p.Recovery:
				hasRecovery = true
				cell := &t.recovery[i*nt+int(p.Sync)]
				if cell.Kind() != RecoverProduction || it.prod < cell.Value() {
					*cell = Recover(it.prod)
				}
			case it.prod == 0:
				t.setAction(i, g.eof, AcceptAction)
			default:
				cl[j].each(func(term int) {
					t.setAction(i, Terminal(term), Reduce(it.prod))
				})
			}
		}
		for _, s := range st.order {
			if !s.IsTerminal() {
				t.gotos[i*nn+int(s.Nonterminal())] = int32(st.trans[s])
			}
		}
		if hasRecovery {
			for term := 0; term < nt; term++ {
				if t.recovery[i*nt+term].Kind() != RecoverProduction {
					t.recovery[i*nt+term] = DiscardTerminalCode
				}
			}
		}
	}
	return t
}

func (t *Tables) setAction(state int, term Terminal, a Action) {
	cell := &t.actions[state*t.grammar.NumTerminals()+int(term)]
	cur := *cell
	if cur == ErrorAction || cur == a {
		*cell = a
		return
	}
	chosen, rejected := resolve(cur, a)
	*cell = chosen
	t.conflicts = append(t.conflicts, Conflict{State: state, Terminal: term, Chosen: chosen, Rejected: rejected})
}

func resolve(a, b Action) (chosen, rejected Action) {
	switch {
	case a.Kind() == ActionShift:
		return a, b
	case b.Kind() == ActionShift:
		return b, a
	case a.Kind() == ActionAccept:
		return a, b
	case b.Kind() == ActionAccept:
		return b, a
	case a.Value() <= b.Value():
		return a, b
	default:
		return b, a
	}
}
