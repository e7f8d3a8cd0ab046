package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dhamidi/accparse/openacc/scanner"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "scans.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testResult(t *testing.T, id string, started time.Time) *scanner.Result {
	t.Helper()
	src := "#pragma acc loop gang\n" +
		"#pragma acc parallel num_gangs(n copyin(a) async\n" +
		"#pragma acc frobnicate\n"
	pragmas, err := scanner.ParseSource("kernel.c", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	return &scanner.Result{
		ID:        id,
		Status:    scanner.StatusCompleted,
		Request:   scanner.Request{ID: id, Paths: []string{"src", "kernel.c"}},
		Files:     []*scanner.File{{Path: "kernel.c", Pragmas: pragmas}},
		StartedAt: started,
		EndedAt:   started.Add(time.Second),
	}
}

func TestSaveAndGetScan(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := s.SaveScan(ctx, testResult(t, "scan-1", started)); err != nil {
		t.Fatalf("SaveScan() error = %v", err)
	}

	sc, err := s.GetScan(ctx, "scan-1")
	if err != nil {
		t.Fatalf("GetScan() error = %v", err)
	}
	if sc.Status != "completed" {
		t.Errorf("Status = %q, want %q", sc.Status, "completed")
	}
	if len(sc.Paths) != 2 || sc.Paths[1] != "kernel.c" {
		t.Errorf("Paths = %v, want [src kernel.c]", sc.Paths)
	}
	if sc.Files != 1 || sc.Pragmas != 3 || sc.Failed != 1 || sc.Recovered != 1 {
		t.Errorf("counts = %+v", sc)
	}
	if !sc.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", sc.StartedAt, started)
	}

	pragmas, err := s.Pragmas(ctx, "scan-1")
	if err != nil {
		t.Fatalf("Pragmas() error = %v", err)
	}
	if len(pragmas) != 3 {
		t.Fatalf("Pragmas() = %d, want 3", len(pragmas))
	}
	if pragmas[0].Directive != "LoopConstruct" || pragmas[0].Error != "" {
		t.Errorf("pragma 0 = %+v", pragmas[0])
	}
	if pragmas[2].Directive != "" || pragmas[2].Error == "" {
		t.Errorf("pragma 2 = %+v, want an error", pragmas[2])
	}

	diags, err := s.Diagnostics(ctx, "scan-1")
	if err != nil {
		t.Fatalf("Diagnostics() error = %v", err)
	}
	if len(diags) != 2 {
		t.Fatalf("Diagnostics() = %d, want 2", len(diags))
	}
	if diags[0].Severity != scanner.SeverityWarning || diags[0].Line != 2 {
		t.Errorf("diagnostic 0 = %+v, want a warning on line 2", diags[0])
	}
	if diags[1].Severity != scanner.SeverityError || diags[1].Line != 3 || diags[1].Column != 13 {
		t.Errorf("diagnostic 1 = %+v, want an error at 3:13", diags[1])
	}
}

func TestSaveScanReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	r := testResult(t, "scan-1", time.Now())
	if err := s.SaveScan(ctx, r); err != nil {
		t.Fatal(err)
	}
	r.Files[0].Pragmas = r.Files[0].Pragmas[:1]
	if err := s.SaveScan(ctx, r); err != nil {
		t.Fatalf("SaveScan() again error = %v", err)
	}
	pragmas, err := s.Pragmas(ctx, "scan-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(pragmas) != 1 {
		t.Errorf("Pragmas() = %d after replace, want 1", len(pragmas))
	}
	diags, err := s.Diagnostics(ctx, "scan-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(diags) != 0 {
		t.Errorf("Diagnostics() = %d after replace, want 0", len(diags))
	}
}

func TestListScans(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := s.SaveScan(ctx, testResult(t, id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatal(err)
		}
	}

	scans, err := s.ListScans(ctx, 0)
	if err != nil {
		t.Fatalf("ListScans() error = %v", err)
	}
	var ids string
	for _, sc := range scans {
		ids += sc.ID
	}
	if ids != "cba" {
		t.Errorf("ListScans() = %q, want %q", ids, "cba")
	}
	if scans, _ := s.ListScans(ctx, 2); len(scans) != 2 {
		t.Errorf("ListScans(2) = %d scans, want 2", len(scans))
	}
	latest, err := s.LatestScan(ctx)
	if err != nil || latest.ID != "c" {
		t.Errorf("LatestScan() = %v, %v; want c", latest, err)
	}
}

func TestNotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if _, err := s.GetScan(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetScan() error = %v, want ErrNotFound", err)
	}
	if _, err := s.LatestScan(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("LatestScan() error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteScan(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteScan() error = %v, want ErrNotFound", err)
	}
	if err := s.SaveScan(ctx, &scanner.Result{}); err == nil {
		t.Error("SaveScan() without ID succeeded")
	}
}

func TestDeleteScan(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.SaveScan(ctx, testResult(t, "scan-1", time.Now())); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteScan(ctx, "scan-1"); err != nil {
		t.Fatalf("DeleteScan() error = %v", err)
	}
	if pragmas, _ := s.Pragmas(ctx, "scan-1"); len(pragmas) != 0 {
		t.Errorf("Pragmas() = %d after delete, want 0", len(pragmas))
	}
}
