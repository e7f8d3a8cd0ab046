package project

import (
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

func TestLoadFromDefaults(t *testing.T) {
	dir := t.TempDir()
	p, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if p.ConfigPath != "" {
		t.Errorf("ConfigPath = %q, want empty", p.ConfigPath)
	}
	if p.Config.Output.Format != "tree" {
		t.Errorf("Output.Format = %q, want %q", p.Config.Output.Format, "tree")
	}
	if p.Config.Scan.Timeout.Duration != time.Minute {
		t.Errorf("Scan.Timeout = %v, want 1m", p.Config.Scan.Timeout)
	}
}

func TestLoadFromTOML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ConfigFile), `
sources = ["src"]
exclude = ["vendor"]

[log]
level = "debug"

[scan]
timeout = "5s"
workers = 2
`)
	sub := filepath.Join(dir, "src", "kernels")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}

	p, err := LoadFrom(sub)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if p.RootDir != dir {
		t.Errorf("RootDir = %q, want %q", p.RootDir, dir)
	}
	if got := strings.Join(p.Config.Sources, ","); got != "src" {
		t.Errorf("Sources = %q, want %q", got, "src")
	}
	if p.Config.Scan.Timeout.Duration != 5*time.Second || p.Config.Scan.Workers != 2 {
		t.Errorf("Scan = %+v", p.Config.Scan)
	}
	if p.Config.Verbosity() != 2 {
		t.Errorf("Verbosity() = %d, want 2", p.Config.Verbosity())
	}
	if len(p.Config.Extensions) != len(DefaultExtensions) {
		t.Errorf("Extensions = %v, want the defaults", p.Config.Extensions)
	}
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, YAMLConfigFile), "extensions: [\".c\"]\noutput:\n  format: json\n")
	p, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if p.Config.Output.Format != "json" {
		t.Errorf("Output.Format = %q, want %q", p.Config.Output.Format, "json")
	}
	if p.IsSource(filepath.Join(dir, "a.cpp")) {
		t.Error("IsSource(a.cpp) = true with extensions [.c]")
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, ConfigFile)
	writeFile(t, bad, "sources = [")
	if _, err := LoadConfig(bad); err == nil {
		t.Error("LoadConfig() of broken TOML succeeded")
	}
	other := filepath.Join(dir, "config.ini")
	writeFile(t, other, "")
	if _, err := LoadConfig(other); err == nil {
		t.Error("LoadConfig() of .ini succeeded")
	}
}

func TestWriteConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFile)
	cfg := DefaultConfig()
	cfg.Store.Path = "results.db"
	if err := WriteConfig(path, cfg); err != nil {
		t.Fatalf("WriteConfig() error = %v", err)
	}
	if err := WriteConfig(path, cfg); err == nil {
		t.Error("WriteConfig() overwrote an existing file")
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.Store.Path != "results.db" {
		t.Errorf("Store.Path = %q, want %q", loaded.Store.Path, "results.db")
	}
	if loaded.Scan.Timeout.Duration != time.Minute {
		t.Errorf("Scan.Timeout = %v, want 1m", loaded.Scan.Timeout)
	}
}

func TestSourceFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"main.c", "lib/util.cpp", "lib/util.h", "README.md", "vendor/x.c", ".git/y.c"} {
		writeFile(t, filepath.Join(dir, name), "")
	}
	writeFile(t, filepath.Join(dir, ConfigFile), "exclude = [\"vendor\"]\n")

	p, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	files, err := p.SourceFiles()
	if err != nil {
		t.Fatalf("SourceFiles() error = %v", err)
	}
	var rel []string
	for _, f := range files {
		r, _ := filepath.Rel(dir, f)
		rel = append(rel, filepath.ToSlash(r))
	}
	if got, want := strings.Join(rel, " "), "lib/util.cpp lib/util.h main.c"; got != want {
		t.Errorf("SourceFiles() = %q, want %q", got, want)
	}
}
