package parser

import (
	"errors"
	"slices"
	"testing"
)

func TestFind(t *testing.T) {
	root := mustParse(t, "#pragma acc parallel loop gang vector copyin(a, b)")

	if got := FindAll(root, IsKind(KindDataItem)); len(got) != 2 {
		t.Errorf("FindAll(DataItem) found %d, want 2", len(got))
	}
	if got := FindAll(root, HasCap(CapLoopSchedule)); len(got) != 2 {
		t.Errorf("FindAll(LoopSchedule) found %d, want 2", len(got))
	}
	if got := FindAll(root, HasCap(CapConstruct)); len(got) != 1 || got[0] != root {
		t.Errorf("FindAll(Construct) = %v, want the root", got)
	}

	first := FindFirst(root, HasCap(CapClause))
	if first == nil || first.Kind() != KindGangClause {
		t.Errorf("FindFirst(Clause) = %v, want GangClause", first)
	}
	last := FindLast(root, HasCap(CapClause))
	if last == nil || last.Kind() != KindCopyinClause {
		t.Errorf("FindLast(Clause) = %v, want CopyinClause", last)
	}
	if FindFirst(root, IsKind(KindTernaryExpr)) != nil {
		t.Error("FindFirst(TernaryExpr) found a node")
	}

	if tok := FindFirstToken(root); tok.Type != TokenPragmaAcc {
		t.Errorf("FindFirstToken() = %s, want #pragma acc", tok.Type)
	}
	if tok := FindLastToken(root); tok.Type != TokenRParen {
		t.Errorf("FindLastToken() = %s, want )", tok.Type)
	}

	b := FindLast(root, IsKind(KindIdentifier))
	if got := FindNearestAncestor(b, HasCap(CapDataMovement)); got != last {
		t.Errorf("FindNearestAncestor() = %v, want the copyin clause", got)
	}
	if got := FindNearestAncestor(root, HasCap(CapConstruct)); got != nil {
		t.Errorf("FindNearestAncestor(root) = %v, want nil", got)
	}
	if Root(b) != root {
		t.Error("Root() does not return the root")
	}
}

func TestReplaceWithText(t *testing.T) {
	root := mustParse(t, "#pragma acc parallel  if(n > 0)  copyin(a)")
	clause := FindFirst(root, IsKind(KindIfClause))

	tok, err := ReplaceWithText(clause, "if(1)")
	if err != nil {
		t.Fatalf("ReplaceWithText() error = %v", err)
	}
	if tok.Type != TokenVerbatim || tok.Parent() == nil {
		t.Errorf("token = %s with parent %v", tok.Type, tok.Parent())
	}
	if got, want := root.String(), "#pragma acc parallel  if(1)  copyin(a)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if clause.Parent() != nil {
		t.Error("replaced clause still has a parent")
	}
}

func TestReplaceChild(t *testing.T) {
	root := mustParse(t, "#pragma acc loop gang").(*Branch)
	gang := FindFirst(root, IsKind(KindGangClause))
	list := gang.Parent()

	seq := NewBranch(KindSeqClause, &Token{Type: TokenSeq, Literal: "seq", WhiteBefore: " "})
	if err := ReplaceChild(list, gang, seq); err != nil {
		t.Fatalf("ReplaceChild() error = %v", err)
	}
	if got := root.String(); got != "#pragma acc loop seq" {
		t.Errorf("String() = %q", got)
	}
	if seq.Parent() != list {
		t.Error("replacement is not attached to the list")
	}

	var se *StructuralError
	if err := ReplaceChild(list, gang, seq); !errors.As(err, &se) {
		t.Errorf("ReplaceChild() of a detached node error = %v, want *StructuralError", err)
	}
	if err := ReplaceWith(root, seq); !errors.As(err, &se) {
		t.Errorf("ReplaceWith(root) error = %v, want *StructuralError", err)
	}
}

func TestReplaceChildWithSibling(t *testing.T) {
	tests := []struct {
		name  string
		input string
		old   NodeKind
		with  NodeKind
		want  string
		kinds []NodeKind
	}{
		{
			name:  "later sibling",
			input: "#pragma acc loop gang worker vector",
			old:   KindGangClause,
			with:  KindWorkerClause,
			want:  "#pragma acc loop worker vector",
			kinds: []NodeKind{KindWorkerClause, KindVectorClause},
		},
		{
			name:  "earlier sibling",
			input: "#pragma acc loop gang worker vector",
			old:   KindWorkerClause,
			with:  KindGangClause,
			want:  "#pragma acc loop gang vector",
			kinds: []NodeKind{KindGangClause, KindVectorClause},
		},
		{
			name:  "earlier sibling with separators",
			input: "#pragma acc loop gang, worker, vector",
			old:   KindVectorClause,
			with:  KindGangClause,
			want:  "#pragma acc loop worker, gang",
			kinds: []NodeKind{KindWorkerClause, KindGangClause},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := mustParse(t, tt.input)
			old := FindFirst(root, IsKind(tt.old))
			with := FindFirst(root, IsKind(tt.with))
			list := old.Parent()
			if err := ReplaceChild(list, old, with); err != nil {
				t.Fatalf("ReplaceChild() error = %v", err)
			}
			if got := root.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			var kinds []NodeKind
			for c := range list.Children() {
				if c.Caps()&CapClause != 0 {
					kinds = append(kinds, c.Kind())
				}
			}
			if !slices.Equal(kinds, tt.kinds) {
				t.Errorf("clauses = %v, want %v", kinds, tt.kinds)
			}
			if old.Parent() != nil {
				t.Error("replaced clause still has a parent")
			}
			if with.Parent() != list {
				t.Error("moved clause is not attached to the list")
			}
		})
	}
}

func TestReplaceChildWithItself(t *testing.T) {
	root := mustParse(t, "#pragma acc loop gang worker")
	gang := FindFirst(root, IsKind(KindGangClause))
	if err := ReplaceChild(gang.Parent(), gang, gang); err != nil {
		t.Fatalf("ReplaceChild() error = %v", err)
	}
	if got, want := root.String(), "#pragma acc loop gang worker"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestSetChildAtMovesChild(t *testing.T) {
	from := mustParse(t, "#pragma acc loop gang worker")
	to := mustParse(t, "#pragma acc loop vector")
	worker := FindFirst(from, IsKind(KindWorkerClause))
	vector := FindFirst(to, IsKind(KindVectorClause))
	list := vector.Parent()

	list.SetChildAt(indexOf(list, vector), worker)

	if worker.Parent() != list {
		t.Error("moved clause is not attached to its new list")
	}
	if got, want := from.String(), "#pragma acc loop gang"; got != want {
		t.Errorf("old tree String() = %q, want %q", got, want)
	}
	if got, want := to.String(), "#pragma acc loop worker"; got != want {
		t.Errorf("new tree String() = %q, want %q", got, want)
	}
	if vector.Parent() != nil {
		t.Error("overwritten clause still has a parent")
	}
}

func TestRemoveFromTree(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		remove func(root Node) Node
		want   string
	}{
		{
			name:  "clause",
			input: "#pragma acc loop gang vector",
			remove: func(root Node) Node {
				return FindFirst(root, IsKind(KindVectorClause))
			},
			want: "#pragma acc loop gang",
		},
		{
			name:  "first data item",
			input: "#pragma acc data copy(a,b)",
			remove: func(root Node) Node {
				return FindFirst(root, IsKind(KindDataItem))
			},
			want: "#pragma acc data copy(b)",
		},
		{
			name:  "separator",
			input: "#pragma acc loop gang, vector",
			remove: func(root Node) Node {
				return FindFirst(root, func(n Node) bool {
					tok, ok := n.(*Token)
					return ok && tok.Type == TokenComma
				})
			},
			want: "#pragma acc loop gang vector",
		},
		{
			name:  "branch slot",
			input: "#pragma acc parallel copyin(a)",
			remove: func(root Node) Node {
				return root.(*Branch).Field("clauses")
			},
			want: "#pragma acc parallel",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := mustParse(t, tt.input)
			n := tt.remove(root)
			if err := RemoveFromTree(n); err != nil {
				t.Fatalf("RemoveFromTree() error = %v", err)
			}
			if got := root.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			if n.Parent() != nil {
				t.Error("removed node still has a parent")
			}
		})
	}

	root := mustParse(t, "#pragma acc loop")
	var se *StructuralError
	if err := RemoveFromTree(root); !errors.As(err, &se) {
		t.Errorf("RemoveFromTree(root) error = %v, want *StructuralError", err)
	}
}

func TestClone(t *testing.T) {
	src := "#pragma acc parallel num_gangs(n copyin(a) async"
	root := mustParse(t, src)
	clone := root.Clone()

	if clone.String() != src {
		t.Errorf("clone String() = %q, want %q", clone.String(), src)
	}
	if Dump(clone) != Dump(root) {
		t.Errorf("Dump() differs:\n%s\n%s", Dump(clone), Dump(root))
	}
	if clone.Parent() != nil {
		t.Error("clone has a parent")
	}

	errClause := FindFirst(clone, IsKind(KindErrorClause)).(*Branch)
	if errClause.ErrorInfo() == nil {
		t.Fatal("clone lost ErrorInfo")
	}
	if errClause.ErrorInfo() == FindFirst(root, IsKind(KindErrorClause)).(*Branch).ErrorInfo() {
		t.Error("clone shares ErrorInfo with the original")
	}

	if err := RemoveFromTree(FindFirst(clone, IsKind(KindAsyncClause))); err != nil {
		t.Fatalf("RemoveFromTree() error = %v", err)
	}
	if root.String() != src {
		t.Errorf("editing the clone changed the original to %q", root.String())
	}
	for n := range clone.Children() {
		if n.Parent() != clone {
			t.Errorf("child %s of the clone has parent %v", n.Kind(), n.Parent())
		}
	}
}

func TestChildAtOutOfRange(t *testing.T) {
	root := mustParse(t, "#pragma acc loop gang")
	tests := []struct {
		name string
		node Node
		i    int
	}{
		{"branch", root, root.ChildCount()},
		{"negative", root, -1},
		{"token", FindFirstToken(root), 0},
		{"list", root.(*Branch).Field("clauses"), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				r := recover()
				if _, ok := r.(*StructuralError); !ok {
					t.Errorf("ChildAt(%d) panicked with %v, want *StructuralError", tt.i, r)
				}
			}()
			tt.node.ChildAt(tt.i)
		})
	}
}

func TestNewBranchArity(t *testing.T) {
	defer func() {
		if _, ok := recover().(*StructuralError); !ok {
			t.Error("NewBranch() with the wrong arity did not panic with *StructuralError")
		}
	}()
	NewBranch(KindIfClause, nil)
}

func TestSetField(t *testing.T) {
	root := mustParse(t, "#pragma acc loop gang").(*Branch)
	if err := root.SetField("clauses", nil); err != nil {
		t.Fatalf("SetField() error = %v", err)
	}
	if got := root.String(); got != "#pragma acc loop" {
		t.Errorf("String() = %q", got)
	}
	var se *StructuralError
	if err := root.SetField("nope", nil); !errors.As(err, &se) {
		t.Errorf("SetField(nope) error = %v, want *StructuralError", err)
	}
}

func TestClausesFor(t *testing.T) {
	tests := []struct {
		directive NodeKind
		has       NodeKind
		lacks     NodeKind
	}{
		{KindParallelConstruct, KindNumGangsClause, KindCollapseClause},
		{KindLoopConstruct, KindCollapseClause, KindCopyClause},
		{KindEnterDataDirective, KindCopyinClause, KindCopyoutClause},
		{KindExitDataDirective, KindDeleteClause, KindCreateClause},
		{KindAtomicConstruct, KindCaptureClause, KindIfClause},
		{KindRoutineDirective, KindBindClause, KindAsyncClause},
	}
	for _, tt := range tests {
		t.Run(tt.directive.String(), func(t *testing.T) {
			kinds := ClausesFor(tt.directive)
			found := map[NodeKind]bool{}
			for _, k := range kinds {
				found[k] = true
			}
			if !found[tt.has] {
				t.Errorf("ClausesFor() = %v, missing %s", kinds, tt.has)
			}
			if found[tt.lacks] {
				t.Errorf("ClausesFor() = %v, includes %s", kinds, tt.lacks)
			}
			if found[KindErrorClause] {
				t.Error("ClausesFor() includes ErrorClause")
			}
		})
	}
	if ClausesFor(KindCacheDirective) != nil {
		t.Error("ClausesFor(CacheDirective) != nil")
	}
}
