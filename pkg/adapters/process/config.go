package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Input formats written to the command's stdin.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Config describes a local command that answers conversations.
type Config struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
	// Format is FormatJSON (default) or FormatText.
	Format string `yaml:"format" json:"format"`
}

// ConfigFile represents the structure of completers.yaml.
type ConfigFile struct {
	Completers []Config `yaml:"completers" json:"completers"`
}

// LoadConfigs reads a configuration file (YAML or JSON) and returns the
// completers by name. A missing file yields an empty map.
func LoadConfigs(path string) (map[string]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Config{}, nil
		}
		return nil, fmt.Errorf("failed to read completers config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse completers.json: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse completers.yaml: %w", err)
		}
	}

	configs := make(map[string]Config)
	for _, c := range cfg.Completers {
		if c.Name == "" {
			continue
		}
		configs[c.Name] = c
	}
	return configs, nil
}
