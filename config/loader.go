package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader handles reading and decoding a SyncConfig from a file.
type Loader struct {
	filePath string
}

// NewLoader creates a new configuration loader for the given file path.
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load decodes the file without defaulting. YAML and the legacy JSON layout
// are both accepted.
func (l *Loader) Load() (*SyncConfig, error) {
	if l.filePath == "" {
		return nil, fmt.Errorf("configuration file path is empty")
	}
	absPath, err := filepath.Abs(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path '%s': %w", l.filePath, err)
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", l.filePath, err)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, fmt.Errorf("configuration file '%s' is empty", l.filePath)
	}

	if isJSON(absPath, content) {
		if content, err = jsonToYAML(content); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config '%s': %w", l.filePath, err)
		}
	}

	var cfg SyncConfig
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config from '%s': %w", l.filePath, err)
	}
	cfg.baseDir = filepath.Dir(absPath)
	return &cfg, nil
}

func isJSON(path string, content []byte) bool {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return true
	}
	return bytes.HasPrefix(bytes.TrimSpace(content), []byte("{"))
}

// jsonToYAML re-encodes JSON as YAML so a single decoder, with its duration
// and strict-field handling, serves both formats. Tab-indented JSON is not
// valid YAML, so it cannot be handed to yaml.v3 directly.
func jsonToYAML(content []byte) ([]byte, error) {
	var generic map[string]interface{}
	if err := json.Unmarshal(content, &generic); err != nil {
		return nil, err
	}
	return yaml.Marshal(generic)
}

// LoadSyncConfig loads, resolves, defaults and validates a config file.
func LoadSyncConfig(path string) (*SyncConfig, error) {
	cfg, err := NewLoader(path).Load()
	if err != nil {
		return nil, err
	}
	if err := ResolveSSHAlias(cfg); err != nil {
		return nil, err
	}
	if err := SetDefaults(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
