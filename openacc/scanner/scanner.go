package scanner

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/dhamidi/accparse/project"
)

var log = commonlog.GetLogger("accparse.scanner")

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Request asks for the pragmas in Paths. A path may be a source file, a
// directory, or a .zip archive.
type Request struct {
	ID        string
	Paths     []string
	Timeout   time.Duration
	CreatedAt time.Time
}

// File is the scan result for one source file.
type File struct {
	Path    string
	Pragmas []*Pragma
}

type Result struct {
	ID        string
	Status    Status
	Request   Request
	Files     []*File
	Error     string
	Errors    []string
	StartedAt time.Time
	EndedAt   time.Time
	Progress  int
	Total     int
}

func (r *Result) ProgressPercent() int {
	if r.Total == 0 {
		return 0
	}
	return (r.Progress * 100) / r.Total
}

// Summary counts the pragmas of a result, how many failed to parse and how
// many clauses were skipped by recovery.
type Summary struct {
	Files     int
	Pragmas   int
	Failed    int
	Recovered int
}

func (r *Result) Summary() Summary {
	s := Summary{Files: len(r.Files)}
	for _, f := range r.Files {
		for _, p := range f.Pragmas {
			s.Pragmas++
			if p.Err != nil {
				s.Failed++
			}
			s.Recovered += len(p.Recovered())
		}
	}
	return s
}

type Option func(*Scanner)

// WithFilter decides which files inside directories and archives are
// scanned. Files named directly in a request are always scanned.
func WithFilter(f func(path string) bool) Option {
	return func(s *Scanner) {
		s.filter = f
	}
}

func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// Scanner runs scan requests one at a time in the background, parsing the
// files of each request with a pool of workers. The queue of pending
// requests is unbounded, so Submit never waits for a running scan.
type Scanner struct {
	mu      sync.RWMutex
	pending *sync.Cond
	queue   []Request
	closed  bool
	scans   map[string]*Result
	done    map[string]chan struct{}
	filter  func(string) bool
	workers int
}

func New(opts ...Option) *Scanner {
	s := &Scanner{
		scans:   make(map[string]*Result),
		done:    make(map[string]chan struct{}),
		filter:  hasSourceExtension,
		workers: 4,
	}
	s.pending = sync.NewCond(&s.mu)
	for _, opt := range opts {
		opt(s)
	}
	go s.run()
	return s
}

func hasSourceExtension(path string) bool {
	return slices.Contains(project.DefaultExtensions, strings.ToLower(filepath.Ext(path)))
}

func (s *Scanner) run() {
	for {
		req, ok := s.next()
		if !ok {
			return
		}
		s.processScan(req)
	}
}

// next takes the oldest pending request, waiting for one unless the
// scanner is closed and drained.
func (s *Scanner) next() (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) == 0 && !s.closed {
		s.pending.Wait()
	}
	if len(s.queue) == 0 {
		return Request{}, false
	}
	req := s.queue[0]
	s.queue = s.queue[1:]
	return req, true
}

// Close stops accepting requests. Scans already submitted still run.
// Close may be called more than once.
func (s *Scanner) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.pending.Broadcast()
}

// source is a file to scan, on disk or inside an archive.
type source struct {
	name string
	open func() (io.ReadCloser, error)
}

func (s *Scanner) processScan(req Request) {
	s.mu.Lock()
	result := s.scans[req.ID]
	result.Status = StatusInProgress
	result.StartedAt = time.Now()
	s.mu.Unlock()

	ctx := context.Background()
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var sources []source
	var errs []string
	var closers []io.Closer
	for _, path := range req.Paths {
		srcs, closer, err := s.collect(path)
		if err != nil {
			errs = append(errs, err.Error())
		}
		if closer != nil {
			closers = append(closers, closer)
		}
		sources = append(sources, srcs...)
	}
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	s.mu.Lock()
	result.Total = len(sources)
	s.mu.Unlock()

	files, scanErrs := s.scanSources(ctx, req.ID, sources)
	errs = append(errs, scanErrs...)

	s.mu.Lock()
	defer s.mu.Unlock()
	result.EndedAt = time.Now()
	result.Files = files
	result.Errors = errs
	if ctx.Err() != nil {
		result.Status = StatusFailed
		result.Error = fmt.Sprintf("scan stopped after %s: %v", req.Timeout, ctx.Err())
	} else if len(errs) > 0 && len(files) == 0 {
		result.Status = StatusFailed
		result.Error = errs[0]
	} else {
		result.Status = StatusCompleted
	}
	log.Infof("scan %s %s: %d files, %d errors", req.ID, result.Status, len(files), len(errs))
	close(s.done[req.ID])
}

// collect lists the sources below path. The closer, if any, must be closed
// once the sources have been read.
func (s *Scanner) collect(path string) ([]source, io.Closer, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		if strings.EqualFold(filepath.Ext(path), ".zip") {
			return s.collectZip(path)
		}
		return []source{fileSource(path)}, nil, nil
	}

	var sources []source
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != path && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if s.filter(p) {
			sources = append(sources, fileSource(p))
		}
		return nil
	})
	if err != nil {
		return sources, nil, fmt.Errorf("walk %s: %w", path, err)
	}
	return sources, nil, nil
}

func fileSource(path string) source {
	return source{name: path, open: func() (io.ReadCloser, error) { return os.Open(path) }}
}

func (s *Scanner) collectZip(path string) ([]source, io.Closer, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open zip: %w", err)
	}
	var sources []source
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !s.filter(f.Name) {
			continue
		}
		sources = append(sources, source{name: path + "!" + f.Name, open: f.Open})
	}
	return sources, r, nil
}

func (s *Scanner) scanSources(ctx context.Context, id string, sources []source) ([]*File, []string) {
	files := make([]*File, len(sources))
	errs := make([]error, len(sources))
	work := make(chan int)

	var wg sync.WaitGroup
	for range min(s.workers, max(len(sources), 1)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				files[i], errs[i] = scanSource(sources[i])
				s.mu.Lock()
				s.scans[id].Progress++
				s.mu.Unlock()
			}
		}()
	}

feed:
	for i := range sources {
		select {
		case work <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(work)
	wg.Wait()

	var out []*File
	var messages []string
	for i, f := range files {
		if errs[i] != nil {
			messages = append(messages, errs[i].Error())
			continue
		}
		if f != nil && len(f.Pragmas) > 0 {
			out = append(out, f)
		}
	}
	return out, messages
}

func scanSource(src source) (*File, error) {
	rc, err := src.open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", src.name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src.name, err)
	}
	pragmas, err := ParseSource(src.name, data)
	if err != nil {
		return nil, err
	}
	return &File{Path: src.name, Pragmas: pragmas}, nil
}

var ErrClosed = errors.New("scanner is closed")

// Submit queues req and returns its ID. It fails with ErrClosed after Close.
func (s *Scanner) Submit(req Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}

	req.ID = uuid.New().String()
	req.CreatedAt = time.Now()

	s.scans[req.ID] = &Result{
		ID:      req.ID,
		Status:  StatusPending,
		Request: req,
	}
	s.done[req.ID] = make(chan struct{})

	s.queue = append(s.queue, req)
	s.pending.Signal()
	return req.ID, nil
}

var ErrUnknownScan = errors.New("unknown scan")

// Wait blocks until scan id has finished or ctx is done.
func (s *Scanner) Wait(ctx context.Context, id string) (*Result, error) {
	s.mu.RLock()
	done, ok := s.done[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrUnknownScan, id)
	}
	select {
	case <-done:
		r, _ := s.Get(id)
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Get returns a snapshot of scan id.
func (s *Scanner) Get(id string) (*Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.scans[id]
	if !ok {
		return nil, false
	}
	snapshot := *result
	return &snapshot, true
}

// List returns all scans, oldest first.
func (s *Scanner) List() []*Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]*Result, 0, len(s.scans))
	for _, r := range s.scans {
		snapshot := *r
		results = append(results, &snapshot)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Request.CreatedAt.Before(results[j].Request.CreatedAt)
	})
	return results
}
