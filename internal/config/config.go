package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/reckon-dev/reckon/internal/tags"
)

// DefaultPath is the config file name looked up in the working
// directory; RECKON_CONFIG overrides it.
const DefaultPath = "reckon.yaml"

// Config represents the top-level reckon.yaml configuration.
type Config struct {
	Ledger    LedgerConfig `yaml:"ledger"`
	Tags      TagsConfig   `yaml:"tags,omitempty"`
	Sources   []Source     `yaml:"sources,omitempty"`
	Git       GitConfig    `yaml:"git,omitempty"`
	ImportDir string       `yaml:"import_dir,omitempty"`
}

// LedgerConfig locates the ledger files a run reads and writes.
type LedgerConfig struct {
	Path         string `yaml:"path"`
	UnmergedPath string `yaml:"unmerged_path"`
}

// TagsConfig overrides the tag names carrying merge semantics. Empty
// fields fall back to the defaults.
type TagsConfig struct {
	FingerprintPrefix string `yaml:"fingerprint_prefix,omitempty"`
	CandidatePrefix   string `yaml:"candidate_prefix,omitempty"`
	UnknownAccount    string `yaml:"unknown_account,omitempty"`
}

// Source maps a bank export format to a ledger account.
type Source struct {
	Name      string `yaml:"name"`
	Format    string `yaml:"format"`
	Account   string `yaml:"account"`
	Commodity string `yaml:"commodity"`
}

// GitConfig controls committing the ledger after a successful merge.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name,omitempty"`
	AuthorEmail string `yaml:"author_email,omitempty"`
}

// Load reads a reckon.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		Ledger: LedgerConfig{
			Path:         "main.ledger",
			UnmergedPath: "unmerged.ledger",
		},
		ImportDir: "import",
		Git: GitConfig{
			AutoCommit:  false,
			AuthorName:  "Reckon",
			AuthorEmail: "reckon@localhost",
		},
	}
}

// TagConfig resolves the run's tag configuration, applying defaults for
// unset fields.
func (c *Config) TagConfig() tags.Config {
	out := tags.Default()
	if c.Tags.FingerprintPrefix != "" {
		out.FingerprintPrefix = c.Tags.FingerprintPrefix
	}
	if c.Tags.CandidatePrefix != "" {
		out.CandidatePrefix = c.Tags.CandidatePrefix
	}
	if c.Tags.UnknownAccount != "" {
		out.UnknownAccount = c.Tags.UnknownAccount
	}
	return out
}

// FindSource returns the source definition with the given name.
func (c *Config) FindSource(name string) (Source, bool) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return Source{}, false
}
