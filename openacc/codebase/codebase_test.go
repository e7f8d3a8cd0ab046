package codebase

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dhamidi/accparse/openacc/parser"
	"github.com/dhamidi/accparse/project"
)

const saxpy = `void saxpy(int n, float a, float *x, float *y) {
#pragma acc parallel loop copyin(x[0:n]) \
    copy(y[0:n])
  for (int i = 0; i < n; i++)
    y[i] = a * x[i] + y[i];
#pragma acc update host(y[0:n] async
}
`

func newTestCodebase(t *testing.T) *Codebase {
	t.Helper()
	p, err := project.LoadFrom(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return New(p)
}

func TestUpdateFile(t *testing.T) {
	c := newTestCodebase(t)
	f := c.UpdateFile("saxpy.c", []byte(saxpy))
	if f.Err != nil {
		t.Fatalf("Err = %v", f.Err)
	}
	if len(f.Pragmas) != 2 {
		t.Fatalf("Pragmas = %d, want 2", len(f.Pragmas))
	}
	if got := c.Files(); len(got) != 1 || got[0] != "saxpy.c" {
		t.Errorf("Files() = %v, want [saxpy.c]", got)
	}
	c.RemoveFile("saxpy.c")
	if c.GetFile("saxpy.c") != nil {
		t.Error("GetFile() after RemoveFile() != nil")
	}
}

func TestCodebaseDiagnostics(t *testing.T) {
	c := newTestCodebase(t)
	c.UpdateFile("saxpy.c", []byte(saxpy))
	diags := c.Diagnostics("saxpy.c")
	if len(diags) != 1 {
		t.Fatalf("Diagnostics() = %v, want 1", diags)
	}
	if d := diags[0]; d.Line != 6 || d.Source != "#pragma acc update host(y[0:n] async" {
		t.Errorf("diagnostic = %+v", d)
	}
	if c.Diagnostics("missing.c") != nil {
		t.Error("Diagnostics() of an unknown file != nil")
	}
}

func TestPragmaAt(t *testing.T) {
	c := newTestCodebase(t)
	c.UpdateFile("saxpy.c", []byte(saxpy))
	tests := []struct {
		line int
		want int
	}{
		{1, 0},
		{2, 2},
		{3, 2},
		{4, 0},
		{6, 6},
	}
	for _, tt := range tests {
		p := c.PragmaAt("saxpy.c", tt.line)
		got := 0
		if p != nil {
			got = p.Line
		}
		if got != tt.want {
			t.Errorf("PragmaAt(%d) starts at %d, want %d", tt.line, got, tt.want)
		}
	}
}

func TestNodesAt(t *testing.T) {
	c := newTestCodebase(t)
	c.UpdateFile("saxpy.c", []byte(saxpy))

	// "x" in copyin(x[0:n]) on line 2.
	col := strings.Index(saxpy[strings.Index(saxpy, "#pragma"):], "x[") + 1
	nodes := c.NodesAt("saxpy.c", 2, col)
	var kinds []string
	for _, n := range nodes {
		kinds = append(kinds, n.Kind().String())
	}
	got := strings.Join(kinds, " ")
	if !strings.HasPrefix(got, "ParallelLoopConstruct ClauseList CopyinClause DataList DataItem") {
		t.Errorf("NodesAt() = %s", got)
	}
	if tok, ok := nodes[len(nodes)-1].(*parser.Token); !ok || tok.Literal != "x" {
		t.Errorf("innermost node = %v, want token x", nodes[len(nodes)-1])
	}

	// copy(y[0:n]) is on the continuation line.
	nodes = c.NodesAt("saxpy.c", 3, 6)
	if len(nodes) < 3 || nodes[2].Kind() != parser.KindCopyClause {
		t.Errorf("NodesAt(3, 6) = %v, want the copy clause", nodes)
	}

	if nodes := c.NodesAt("saxpy.c", 4, 3); nodes != nil {
		t.Errorf("NodesAt() outside a pragma = %v", nodes)
	}
	if nodes := c.NodesAt("saxpy.c", 6, 14); nodes != nil {
		t.Errorf("NodesAt() in a pragma without a tree = %v", nodes)
	}
}

func TestCompletionsAtPoint(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"directives", "#pragma acc par", []string{"parallel", "parallel loop"}},
		{"all directives", "#pragma acc ", directiveNames},
		{"clauses", "#pragma acc parallel cop", []string{"copy", "copyin", "copyout"}},
		{"num clauses", "#pragma acc parallel num_", []string{"num_gangs", "num_workers"}},
		{"kernels has no num_gangs", "#pragma acc kernels num_", nil},
		{"atomic", "#pragma acc atomic ", []string{"read", "write", "update", "capture"}},
		{"inside clause", "#pragma acc parallel copyin(a", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCodebase(t)
			c.UpdateFile("a.c", []byte(tt.line+"\n"))
			items := c.CompletionsAtPoint("a.c", 1, len(tt.line)+1)
			var labels []string
			for _, item := range items {
				labels = append(labels, item.Label)
			}
			if strings.Join(labels, ",") != strings.Join(tt.want, ",") {
				t.Errorf("CompletionsAtPoint() = %v, want %v", labels, tt.want)
			}
		})
	}
}

func TestClauseCompletion(t *testing.T) {
	tests := []struct {
		kind   parser.NodeKind
		label  string
		insert string
	}{
		{parser.KindNumGangsClause, "num_gangs", "num_gangs(${1})"},
		{parser.KindPresentOrCopyinClause, "present_or_copyin", "present_or_copyin(${1})"},
		{parser.KindGangClause, "gang", "gang"},
		{parser.KindSeqClause, "seq", "seq"},
		{parser.KindDefaultNoneClause, "default(none)", "default(none)"},
		{parser.KindDeviceResidentClause, "device_resident", "device_resident(${1})"},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			item := clauseCompletion(tt.kind)
			if item.Label != tt.label || item.InsertText != tt.insert {
				t.Errorf("clauseCompletion(%s) = %q %q, want %q %q", tt.kind, item.Label, item.InsertText, tt.label, tt.insert)
			}
		})
	}
}

func TestScanAll(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"a.c":          "#pragma acc loop\n",
		"lib/b.h":      "#pragma acc routine(f) seq\n",
		"docs/x.md":    "#pragma acc loop\n",
		".cache/old.c": "#pragma acc loop\n",
	} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	p, err := project.LoadFrom(dir)
	if err != nil {
		t.Fatal(err)
	}
	c := New(p)
	if err := c.ScanAll(); err != nil {
		t.Fatalf("ScanAll() error = %v", err)
	}
	if got := len(c.Files()); got != 2 {
		t.Errorf("Files() = %v, want 2 files", c.Files())
	}
}
