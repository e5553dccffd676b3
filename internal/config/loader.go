package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a configuration file syntax.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFor picks the syntax from path's extension. Unknown extensions are YAML.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	default:
		return FormatYAML
	}
}

// Load reads and parses the configuration file at path, choosing YAML or TOML
// by extension. Environment variables written as ${VAR_NAME} are expanded
// before parsing. Unset fields keep the values from Default.
func Load(path string) (cfg *Config, err error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}

	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", cerr)
		}
	}()

	return LoadFromReader(file, FormatFor(path))
}

// LoadFromReader parses configuration in format from r.
func LoadFromReader(r io.Reader, format Format) (*Config, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	expanded := []byte(os.ExpandEnv(string(content)))
	cfg := Default()

	switch format {
	case FormatTOML:
		if err := toml.NewDecoder(bytes.NewReader(expanded)).Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config TOML: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(expanded, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}

	return cfg, nil
}

// Marshal renders cfg in format, as written by `skillswap config init`.
func Marshal(cfg *Config, format Format) ([]byte, error) {
	switch format {
	case FormatTOML:
		return toml.Marshal(cfg)
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
}
