package oberon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/magiconair/properties"
)

const (
	TomlConfigName       = "oberon.toml"
	PropertiesConfigName = "oberon.properties"
)

// Config holds the compiler settings a project file may provide.
type Config struct {
	// FileType is "ll" for textual IR or "bc" for bitcode.
	FileType         string `toml:"filetype"`
	Output           string `toml:"output"`
	Debug            bool   `toml:"debug"`
	Quiet            bool   `toml:"quiet"`
	WarningsAsErrors bool   `toml:"werror"`
	// Color is "auto", "on" or "off".
	Color          string `toml:"color"`
	MaxDiagnostics int    `toml:"max_diagnostics"`
	EmitTypes      bool   `toml:"emit_types"`
}

func DefaultConfig() Config {
	return Config{
		FileType: "ll",
		Color:    "auto",
	}
}

var configKeys = []string{"filetype", "output", "debug", "quiet", "werror", "color", "max_diagnostics", "emit_types"}

// LoadConfig reads a TOML or .properties file over the defaults, picking
// the format by extension.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	var err error
	switch filepath.Ext(path) {
	case ".toml":
		err = loadTomlConfig(path, &cfg)
	case ".properties":
		err = loadPropertiesConfig(path, &cfg)
	default:
		err = fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func loadTomlConfig(path string, cfg *Config) error {
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to parse TOML: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) != 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

func loadPropertiesConfig(path string, cfg *Config) error {
	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return err
	}
	var unknown []string
	for _, key := range p.Keys() {
		if !isConfigKey(key) {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) != 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown keys: %s", strings.Join(unknown, ", "))
	}
	cfg.FileType = p.GetString("filetype", cfg.FileType)
	cfg.Output = p.GetString("output", cfg.Output)
	cfg.Debug = p.GetBool("debug", cfg.Debug)
	cfg.Quiet = p.GetBool("quiet", cfg.Quiet)
	cfg.WarningsAsErrors = p.GetBool("werror", cfg.WarningsAsErrors)
	cfg.Color = p.GetString("color", cfg.Color)
	cfg.MaxDiagnostics = p.GetInt("max_diagnostics", cfg.MaxDiagnostics)
	cfg.EmitTypes = p.GetBool("emit_types", cfg.EmitTypes)
	return nil
}

func isConfigKey(key string) bool {
	for _, k := range configKeys {
		if k == key {
			return true
		}
	}
	return false
}

func (c Config) Validate() error {
	switch c.FileType {
	case "ll", "bc":
	default:
		return fmt.Errorf("filetype must be ll or bc, got %q", c.FileType)
	}
	switch c.Color {
	case "auto", "on", "off":
	default:
		return fmt.Errorf("color must be auto, on or off, got %q", c.Color)
	}
	if c.MaxDiagnostics < 0 {
		return fmt.Errorf("max_diagnostics must not be negative, got %d", c.MaxDiagnostics)
	}
	return nil
}

// FindConfig walks up from startDir to locate oberon.toml or
// oberon.properties, preferring the TOML file within one directory.
func FindConfig(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		for _, name := range []string{TomlConfigName, PropertiesConfigName} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, true, nil
			} else if !errors.Is(err, os.ErrNotExist) {
				return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}
