package scanner

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func submit(t *testing.T, s *Scanner, paths ...string) string {
	t.Helper()
	id, err := s.Submit(Request{Paths: paths})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	return id
}

func waitFor(t *testing.T, s *Scanner, id string) *Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r, err := s.Wait(ctx, id)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	return r
}

func TestScanDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.c"), "#pragma acc loop gang\nint x;\n#pragma acc kernels\n")
	writeFile(t, filepath.Join(dir, "sub", "b.cpp"), "#pragma acc parallel num_gangs(n copyin(a)\n")
	writeFile(t, filepath.Join(dir, "sub", "plain.c"), "int main(void) { return 0; }\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "#pragma acc loop\n")
	writeFile(t, filepath.Join(dir, ".hidden", "c.c"), "#pragma acc loop\n")

	s := New(WithWorkers(2))
	defer s.Close()
	id := submit(t, s, dir)
	r := waitFor(t, s, id)

	if r.Status != StatusCompleted {
		t.Fatalf("Status = %s, want %s (%s)", r.Status, StatusCompleted, r.Error)
	}
	if r.Total != 3 || r.Progress != 3 {
		t.Errorf("Progress = %d/%d, want 3/3", r.Progress, r.Total)
	}
	if r.ProgressPercent() != 100 {
		t.Errorf("ProgressPercent() = %d, want 100", r.ProgressPercent())
	}
	var names []string
	for _, f := range r.Files {
		names = append(names, filepath.Base(f.Path))
	}
	if got := strings.Join(names, " "); got != "a.c b.cpp" {
		t.Errorf("Files = %q, want %q", got, "a.c b.cpp")
	}
	sum := r.Summary()
	if sum.Pragmas != 3 || sum.Failed != 0 || sum.Recovered != 1 {
		t.Errorf("Summary() = %+v, want 3 pragmas, 0 failed, 1 recovered", sum)
	}
}

func TestScanZip(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "src.zip")
	f, err := os.Create(archive)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, content := range map[string]string{
		"kernels/saxpy.c": "#pragma acc parallel loop copyin(x[0:n]) copy(y[0:n])\n",
		"README":          "#pragma acc loop\n",
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	s := New()
	defer s.Close()
	r := waitFor(t, s, submit(t, s, archive))
	if r.Status != StatusCompleted {
		t.Fatalf("Status = %s, want %s (%s)", r.Status, StatusCompleted, r.Error)
	}
	if len(r.Files) != 1 {
		t.Fatalf("Files = %d, want 1", len(r.Files))
	}
	if want := archive + "!kernels/saxpy.c"; r.Files[0].Path != want {
		t.Errorf("Path = %q, want %q", r.Files[0].Path, want)
	}
	if p := r.Files[0].Pragmas[0]; p.Err != nil {
		t.Errorf("pragma error = %v", p.Err)
	}
}

func TestScanMissingPath(t *testing.T) {
	s := New()
	defer s.Close()
	r := waitFor(t, s, submit(t, s, filepath.Join(t.TempDir(), "missing")))
	if r.Status != StatusFailed {
		t.Errorf("Status = %s, want %s", r.Status, StatusFailed)
	}
	if !strings.Contains(r.Error, "missing") {
		t.Errorf("Error = %q, want it to name the path", r.Error)
	}
}

func TestScanFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.c"), "#pragma acc loop\n")
	writeFile(t, filepath.Join(dir, "b.acc"), "#pragma acc kernels\n")

	s := New(WithFilter(func(path string) bool { return strings.HasSuffix(path, ".acc") }))
	defer s.Close()
	r := waitFor(t, s, submit(t, s, dir))
	if len(r.Files) != 1 || filepath.Base(r.Files[0].Path) != "b.acc" {
		t.Errorf("Files = %v, want only b.acc", r.Files)
	}
}

func TestListAndGet(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.c"), "#pragma acc loop\n")

	s := New()
	defer s.Close()
	first := submit(t, s, dir)
	second := submit(t, s, dir)
	waitFor(t, s, second)

	list := s.List()
	if len(list) != 2 {
		t.Fatalf("List() = %d scans, want 2", len(list))
	}
	if list[0].ID != first && !list[0].Request.CreatedAt.Equal(list[1].Request.CreatedAt) {
		t.Errorf("List()[0] = %s, want %s", list[0].ID, first)
	}
	if r, ok := s.Get(first); !ok || r.Status != StatusCompleted {
		t.Errorf("Get(first) = %v, %v; want a completed scan", r, ok)
	}
	if _, ok := s.Get("nope"); ok {
		t.Error("Get(nope) found a scan")
	}
	if _, err := s.Wait(context.Background(), "nope"); !errors.Is(err, ErrUnknownScan) {
		t.Errorf("Wait(nope) error = %v, want ErrUnknownScan", err)
	}
}

func TestSubmitBurst(t *testing.T) {
	dir := t.TempDir()
	for i := range 20 {
		writeFile(t, filepath.Join(dir, fmt.Sprintf("f%d.c", i)), "#pragma acc loop gang\n#pragma acc kernels\n")
	}

	s := New(WithWorkers(1))
	defer s.Close()

	const n = 300
	submitted := make(chan []string, 1)
	go func() {
		ids := make([]string, 0, n)
		for range n {
			id, err := s.Submit(Request{Paths: []string{dir}})
			if err != nil {
				t.Errorf("Submit() error = %v", err)
				break
			}
			ids = append(ids, id)
		}
		submitted <- ids
	}()

	var ids []string
	select {
	case ids = <-submitted:
	case <-time.After(5 * time.Second):
		t.Fatalf("%d submissions did not return while scans were running", n)
	}
	if len(ids) != n {
		t.Fatalf("submitted %d scans, want %d", len(ids), n)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	r, err := s.Wait(ctx, ids[n-1])
	if err != nil {
		t.Fatalf("Wait(last) error = %v", err)
	}
	if r.Status != StatusCompleted || r.Progress != 20 {
		t.Errorf("last scan = %s with progress %d, want completed with 20", r.Status, r.Progress)
	}
}

func TestSubmitAfterClose(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.c"), "#pragma acc loop\n")

	s := New()
	id := submit(t, s, dir)
	s.Close()
	s.Close()

	if _, err := s.Submit(Request{Paths: []string{dir}}); !errors.Is(err, ErrClosed) {
		t.Errorf("Submit() after Close error = %v, want ErrClosed", err)
	}
	if r := waitFor(t, s, id); r.Status != StatusCompleted {
		t.Errorf("scan submitted before Close = %s, want %s", r.Status, StatusCompleted)
	}
}
