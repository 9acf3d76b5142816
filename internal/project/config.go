package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"treecomp/internal/ast"
	"treecomp/internal/optable"
)

// Manifest is a loaded treecomp.toml.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors treecomp.toml. Keys missing from the file keep the values
// from Defaults.
type Config struct {
	Compile   CompileConfig   `toml:"compile"`
	Operators OperatorsConfig `toml:"operators"`
}

type CompileConfig struct {
	Formatted      bool   `toml:"formatted"`
	MaxDepth       int    `toml:"max_depth"`
	MaxDiagnostics int    `toml:"max_diagnostics"`
	OutDir         string `toml:"out_dir"`
	Jobs           int    `toml:"jobs"`
	Cache          bool   `toml:"cache"`
}

type OperatorsConfig struct {
	// Builtin starts from the built-in qooxdoo token table.
	Builtin bool `toml:"builtin"`
	// File is an operator table file (see optable.LoadFile), relative to the
	// manifest directory.
	File string `toml:"file"`
	// Table overrides individual names: NAME = "token".
	Table map[string]string `toml:"table"`
}

// Defaults returns the configuration used when no manifest exists.
func Defaults() Config {
	return Config{
		Compile: CompileConfig{
			Formatted:      false,
			MaxDepth:       ast.DefaultMaxDepth,
			MaxDiagnostics: 100,
			Cache:          true,
		},
		Operators: OperatorsConfig{Builtin: true},
	}
}

// LoadManifest finds and loads treecomp.toml starting at startDir. ok is false
// when there is none.
func LoadManifest(startDir string) (*Manifest, bool, error) {
	manifestPath, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err := LoadManifestFile(manifestPath)
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

// LoadManifestFile loads a manifest from an explicit path.
func LoadManifestFile(path string) (*Manifest, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &Manifest{Path: abs, Root: filepath.Dir(abs), Config: cfg}, nil
}

// LoadConfig decodes a treecomp.toml file over Defaults and validates it.
func LoadConfig(path string) (Config, error) {
	cfg := Defaults()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Compile.MaxDepth < 0 {
		return errors.New("[compile].max_depth must not be negative")
	}
	if c.Compile.MaxDiagnostics < 0 {
		return errors.New("[compile].max_diagnostics must not be negative")
	}
	if c.Compile.Jobs < 0 {
		return errors.New("[compile].jobs must not be negative")
	}
	for name, tok := range c.Operators.Table {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("[operators.table] has an empty name for token %q", tok)
		}
	}
	return nil
}

// OperatorTable builds the operator table: the built-in table when enabled,
// then the operator file, then the inline overrides. root resolves a relative
// operator file path.
func (c Config) OperatorTable(root string) (*optable.Table, error) {
	table := optable.New()
	if c.Operators.Builtin {
		table = optable.Default()
	}
	if file := strings.TrimSpace(c.Operators.File); file != "" {
		if !filepath.IsAbs(file) && root != "" {
			file = filepath.Join(root, filepath.FromSlash(file))
		}
		fromFile, err := optable.LoadFile(file)
		if err != nil {
			return nil, err
		}
		table.Merge(fromFile)
	}
	for name, tok := range c.Operators.Table {
		table.Set(name, tok)
	}
	return table, nil
}

// DefaultManifest is the file `treecomp init` writes.
const DefaultManifest = `# treecomp project configuration

[compile]
# add a newline after ';' and list separators
formatted = false
# deepest tree accepted before the compile is aborted
max_depth = 4096
max_diagnostics = 100
# write <name>.js here instead of next to each tree file
out_dir = ""
# parallel files; 0 uses GOMAXPROCS
jobs = 0
cache = true

[operators]
# start from the built-in operator table
builtin = true
# optional operator table file with [operators] and [tokens] sections
file = ""

[operators.table]
# NAME = "token"
`

// WriteDefaultManifest creates treecomp.toml in dir. It refuses to
// overwrite an existing file unless force is set.
func WriteDefaultManifest(dir string, force bool) (string, error) {
	path := filepath.Join(dir, ManifestName)
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return path, fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		return path, err
	}
	if _, err := f.WriteString(DefaultManifest); err != nil {
		_ = f.Close()
		return path, err
	}
	return path, f.Close()
}
