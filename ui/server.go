// Package ui serves scan jobs and pragma parsing over HTTP. Pages are plain
// HTML; clients sending "Accept: application/json" get JSON instead.
package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tliron/commonlog"

	"github.com/dhamidi/accparse/format"
	"github.com/dhamidi/accparse/openacc/parser"
	"github.com/dhamidi/accparse/openacc/scanner"
	"github.com/dhamidi/accparse/openacc/store"
)

var log = commonlog.GetLogger("accparse.ui")

type Server struct {
	scanner   *scanner.Scanner
	store     *store.Store
	templates *template.Template
	mux       *http.ServeMux

	// Timeout bounds each submitted scan. Zero means no limit.
	Timeout time.Duration
}

// NewServer serves the scans of sc. Finished scans are saved to st unless
// st is nil.
func NewServer(sc *scanner.Scanner, st *store.Store) (*Server, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"since": func(t time.Time) string {
			return time.Since(t).Round(time.Second).String()
		},
	}).Parse(pages)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		scanner:   sc,
		store:     st,
		templates: tmpl,
		mux:       http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /parse", s.handleParse)
	s.mux.HandleFunc("POST /scan", s.handleScan)
	s.mux.HandleFunc("GET /scans/{id}", s.handleGetScan)
	s.mux.HandleFunc("GET /scans/{id}/diagnostics", s.handleDiagnostics)
	s.mux.HandleFunc("GET /{$}", s.handleIndex)

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

// handleParse parses the pragma in the request body and writes it in the
// format named by ?format=, JSON by default.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	name := r.URL.Query().Get("format")
	if name == "" {
		name = "json"
	}
	var out bytes.Buffer
	enc, err := format.New(name, &out)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	root, err := parser.ParseBytes(bytes.TrimSpace(body))
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	if err := enc.Encode(root); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if name == "json" {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	out.WriteTo(w)
}

type scanRequest struct {
	Paths []string `json:"paths"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanner.Request
	var upload string

	if r.Header.Get("Content-Type") == "application/json" {
		var body scanRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		req.Paths = body.Paths
	} else {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			if err := r.ParseForm(); err != nil {
				http.Error(w, "invalid form data: "+err.Error(), http.StatusBadRequest)
				return
			}
		}
		req.Paths = r.Form["path"]

		if file, _, err := r.FormFile("zipfile"); err == nil {
			defer file.Close()
			tmpFile, err := os.CreateTemp("", "accparse-*.zip")
			if err != nil {
				http.Error(w, "failed to create temp file: "+err.Error(), http.StatusInternalServerError)
				return
			}
			if _, err := io.Copy(tmpFile, file); err != nil {
				tmpFile.Close()
				os.Remove(tmpFile.Name())
				http.Error(w, "failed to save zip file: "+err.Error(), http.StatusInternalServerError)
				return
			}
			tmpFile.Close()
			upload = tmpFile.Name()
			req.Paths = append(req.Paths, upload)
		}
	}

	if len(req.Paths) == 0 {
		http.Error(w, "must provide a path or a zipfile", http.StatusBadRequest)
		return
	}
	req.Timeout = s.Timeout

	id, err := s.scanner.Submit(req)
	if err != nil {
		removeUpload(upload)
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	go s.save(id, upload)

	if wantsJSON(r) {
		writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
		return
	}
	http.Redirect(w, r, "/scans/"+id, http.StatusSeeOther)
}

// save waits for scan id, removes its uploaded archive and stores the
// result.
func (s *Server) save(id, upload string) {
	ctx := context.Background()
	result, err := s.scanner.Wait(ctx, id)
	removeUpload(upload)
	if err != nil {
		log.Errorf("scan %s: %v", id, err)
		return
	}
	if s.store == nil {
		return
	}
	if err := s.store.SaveScan(ctx, result); err != nil {
		log.Errorf("save scan %s: %v", id, err)
	}
}

func removeUpload(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warningf("remove upload %s: %v", path, err)
	}
}

// scanView is the JSON form of a scan.
type scanView struct {
	ID       string          `json:"id"`
	Status   scanner.Status  `json:"status"`
	Paths    []string        `json:"paths"`
	Progress int             `json:"progress"`
	Error    string          `json:"error,omitempty"`
	Errors   []string        `json:"errors,omitempty"`
	Summary  scanner.Summary `json:"summary"`
	Created  time.Time       `json:"created"`
	Files    []fileView      `json:"files,omitempty"`
}

type fileView struct {
	Path    string       `json:"path"`
	Pragmas []pragmaView `json:"pragmas"`
}

type pragmaView struct {
	Line      int    `json:"line"`
	Text      string `json:"text"`
	Directive string `json:"directive,omitempty"`
	Error     string `json:"error,omitempty"`
}

func newScanView(r *scanner.Result, withFiles bool) scanView {
	v := scanView{
		ID:       r.ID,
		Status:   r.Status,
		Paths:    r.Request.Paths,
		Progress: r.ProgressPercent(),
		Error:    r.Error,
		Errors:   r.Errors,
		Summary:  r.Summary(),
		Created:  r.Request.CreatedAt,
	}
	if !withFiles {
		return v
	}
	for _, f := range r.Files {
		fv := fileView{Path: f.Path}
		for _, p := range f.Pragmas {
			pv := pragmaView{Line: p.Line, Text: p.Text}
			if p.Err != nil {
				pv.Error = p.Err.Error()
			} else {
				pv.Directive = p.Directive().String()
			}
			fv.Pragmas = append(fv.Pragmas, pv)
		}
		v.Files = append(v.Files, fv)
	}
	return v
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	result, ok := s.scanner.Get(id)
	if !ok {
		http.Error(w, "scan not found", http.StatusNotFound)
		return
	}
	if r.URL.Query().Has("wait") && result.EndedAt.IsZero() {
		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()
		if finished, err := s.scanner.Wait(ctx, id); err == nil {
			result = finished
		}
	}

	view := newScanView(result, true)
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, view)
		return
	}
	s.render(w, "scan", view)
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var diags []scanner.Diagnostic
	if result, ok := s.scanner.Get(id); ok {
		for _, f := range result.Files {
			for _, p := range f.Pragmas {
				diags = append(diags, p.Diagnostics()...)
			}
		}
	} else if s.store != nil {
		var err error
		diags, err = s.store.Diagnostics(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if _, err := s.store.GetScan(r.Context(), id); errors.Is(err, store.ErrNotFound) {
			http.Error(w, "scan not found", http.StatusNotFound)
			return
		}
	} else {
		http.Error(w, "scan not found", http.StatusNotFound)
		return
	}

	if wantsJSON(r) {
		if diags == nil {
			diags = []scanner.Diagnostic{}
		}
		writeJSON(w, http.StatusOK, diags)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	enc := format.NewDiagnosticEncoder(w)
	for _, d := range diags {
		enc.Encode(d)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var views []scanView
	for _, result := range s.scanner.List() {
		views = append(views, newScanView(result, false))
	}
	if wantsJSON(r) {
		if views == nil {
			views = []scanView{}
		}
		writeJSON(w, http.StatusOK, views)
		return
	}
	s.render(w, "index", views)
}

const pages = `
{{define "index"}}<!DOCTYPE html>
<html><head><title>accparse</title></head><body>
<h1>Scans</h1>
<form method="post" action="/scan" enctype="multipart/form-data">
<input name="path" placeholder="path"> <input type="file" name="zipfile"> <button>Scan</button>
</form>
<table>
<tr><th>Scan</th><th>Status</th><th>Files</th><th>Pragmas</th><th>Failed</th><th>Started</th></tr>
{{range .}}<tr><td><a href="/scans/{{.ID}}">{{.ID}}</a></td><td>{{.Status}}</td><td>{{.Summary.Files}}</td><td>{{.Summary.Pragmas}}</td><td>{{.Summary.Failed}}</td><td>{{since .Created}} ago</td></tr>
{{end}}</table>
</body></html>
{{end}}
{{define "scan"}}<!DOCTYPE html>
<html><head><title>scan {{.ID}}</title></head><body>
<h1>Scan {{.ID}}</h1>
<p>{{.Status}} ({{.Progress}}%){{if .Error}}: {{.Error}}{{end}}</p>
{{range .Files}}<h2>{{.Path}}</h2>
<ul>{{range .Pragmas}}<li>{{.Line}}: <code>{{.Text}}</code> {{if .Error}}<strong>{{.Error}}</strong>{{else}}{{.Directive}}{{end}}</li>
{{end}}</ul>
{{end}}<p><a href="/scans/{{.ID}}/diagnostics">diagnostics</a></p>
</body></html>
{{end}}
`
