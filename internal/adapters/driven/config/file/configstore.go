package file

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// AgentConfig controls one agent source. A nil Enabled means enabled;
// Path overrides the agent's default data directory.
type AgentConfig struct {
	Enabled *bool  `toml:"enabled,omitempty"`
	Path    string `toml:"path,omitempty"`
}

// SearchConfig carries user defaults for search options. Zero values
// defer to the built-in defaults.
type SearchConfig struct {
	Limit       int   `toml:"limit,omitempty"`
	MaxSnippets int   `toml:"max_snippets,omitempty"`
	Fuzzy       *bool `toml:"fuzzy,omitempty"`
}

// MCPConfig configures the MCP server command.
type MCPConfig struct {
	// HTTPAddr switches the server from stdio to HTTP when set.
	HTTPAddr string `toml:"http_addr,omitempty"`
}

// Config is the full configuration file shape.
type Config struct {
	Search SearchConfig           `toml:"search,omitempty"`
	Agents map[string]AgentConfig `toml:"agents,omitempty"`
	MCP    MCPConfig              `toml:"mcp,omitempty"`
}

// ConfigStore is a file-based configuration store using TOML.
// Configuration is stored in a TOML file within the retrace config
// directory.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	cfg      Config
}

// NewConfigStore creates a new TOML-based config store.
// If configDir is empty, defaults to ~/.retrace/config.toml.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".retrace")
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &ConfigStore{
		filePath: filepath.Join(configDir, "config.toml"),
	}

	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the config file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// Config returns a copy of the current configuration.
func (s *ConfigStore) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// AgentEnabled reports whether an agent source should be wired up.
// Agents are enabled unless the config disables them.
func (s *ConfigStore) AgentEnabled(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agent, ok := s.cfg.Agents[name]
	if !ok || agent.Enabled == nil {
		return true
	}
	return *agent.Enabled
}

// AgentPath returns the configured data directory override for an
// agent, empty when the default applies.
func (s *ConfigStore) AgentPath(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Agents[name].Path
}

// Update modifies the configuration and persists immediately.
func (s *ConfigStore) Update(fn func(*Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.cfg)
	return s.save()
}

// save writes configuration to the TOML file (caller must hold lock).
func (s *ConfigStore) save() error {
	data, err := toml.Marshal(s.cfg)
	if err != nil {
		return err
	}

	// Write with restricted permissions
	return os.WriteFile(s.filePath, data, 0600)
}

// Load reads configuration from the TOML file. A missing file is an
// empty configuration.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.cfg = Config{}
			return nil
		}
		return err
	}

	var loaded Config
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return err
	}
	s.cfg = loaded
	return nil
}
