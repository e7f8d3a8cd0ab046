package project

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ConfigFile and YAMLConfigFile are the names looked up in the project root.
const (
	ConfigFile     = "accparse.toml"
	YAMLConfigFile = ".accparse.yaml"
)

// DefaultExtensions are the C and C++ source suffixes scanned for pragmas.
var DefaultExtensions = []string{".c", ".h", ".cc", ".cpp", ".cxx", ".hpp", ".cu"}

// Project is a directory tree of C/C++ sources together with its
// configuration.
type Project struct {
	RootDir    string
	ConfigPath string // empty when the defaults are used
	Config     *Config
}

// Config is the contents of accparse.toml or .accparse.yaml.
type Config struct {
	Sources    []string     `toml:"sources" yaml:"sources"`
	Extensions []string     `toml:"extensions" yaml:"extensions"`
	Exclude    []string     `toml:"exclude" yaml:"exclude"`
	Log        LogConfig    `toml:"log" yaml:"log"`
	Output     OutputConfig `toml:"output" yaml:"output"`
	Scan       ScanConfig   `toml:"scan" yaml:"scan"`
	Store      StoreConfig  `toml:"store" yaml:"store"`
}

type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
	File  string `toml:"file" yaml:"file"`
}

type OutputConfig struct {
	Format string `toml:"format" yaml:"format"`
}

type ScanConfig struct {
	Timeout Duration `toml:"timeout" yaml:"timeout"`
	Workers int      `toml:"workers" yaml:"workers"`
}

type StoreConfig struct {
	Path string `toml:"path" yaml:"path"`
}

// Duration wraps time.Duration so that it reads and writes as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Sources:    []string{"."},
		Extensions: slices.Clone(DefaultExtensions),
		Log:        LogConfig{Level: "warning"},
		Output:     OutputConfig{Format: "tree"},
		Scan:       ScanConfig{Timeout: Duration{time.Minute}, Workers: 4},
		Store:      StoreConfig{Path: "accparse.db"},
	}
}

// Verbosity maps log.level to a commonlog verbosity.
func (c *Config) Verbosity() int {
	switch strings.ToLower(c.Log.Level) {
	case "none", "off":
		return -4
	case "critical":
		return -3
	case "error":
		return -2
	case "warning", "":
		return -1
	case "notice":
		return 0
	case "info":
		return 1
	default:
		return 2
	}
}

// Load finds the project containing the current directory.
func Load() (*Project, error) {
	return LoadFrom(".")
}

// LoadFrom looks for a configuration file in dir and its parents. The first
// directory holding one is the project root. Without a configuration file
// dir itself is the root and the defaults apply.
func LoadFrom(dir string) (*Project, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	for d := abs; ; d = filepath.Dir(d) {
		for _, name := range []string{ConfigFile, YAMLConfigFile} {
			path := filepath.Join(d, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				cfg, err := LoadConfig(path)
				if err != nil {
					return nil, err
				}
				return &Project{RootDir: d, ConfigPath: path, Config: cfg}, nil
			}
		}
		if filepath.Dir(d) == d {
			break
		}
	}
	return &Project{RootDir: abs, Config: DefaultConfig()}, nil
}

// LoadConfig reads a TOML or YAML configuration file over the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	switch ext := filepath.Ext(path); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = slices.Clone(DefaultExtensions)
	}
	return cfg, nil
}

// WriteConfig writes cfg as TOML to path. It refuses to overwrite an
// existing file.
func WriteConfig(path string, cfg *Config) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Resolve returns path relative to the project root unless it is absolute.
func (p *Project) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.RootDir, path)
}

// IsSource reports whether path has one of the configured extensions and
// is not excluded.
func (p *Project) IsSource(path string) bool {
	if !slices.Contains(p.Config.Extensions, strings.ToLower(filepath.Ext(path))) {
		return false
	}
	return !p.excluded(path)
}

func (p *Project) excluded(path string) bool {
	rel, err := filepath.Rel(p.RootDir, path)
	if err != nil {
		rel = path
	}
	for _, pattern := range p.Config.Exclude {
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, filepath.Base(path)); ok {
			return true
		}
	}
	return false
}

// SourceFiles returns all source files below the configured source
// directories, sorted.
func (p *Project) SourceFiles() ([]string, error) {
	var files []string
	for _, src := range p.Config.Sources {
		root := p.Resolve(src)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && (strings.HasPrefix(d.Name(), ".") || p.excluded(path)) {
					return filepath.SkipDir
				}
				return nil
			}
			if p.IsSource(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan sources in %s: %w", root, err)
		}
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}
