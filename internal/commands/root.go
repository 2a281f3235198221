package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/reckon-dev/reckon/internal/buildinfo"
	"github.com/reckon-dev/reckon/internal/config"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "reckon",
		Short:   "Merge bank imports into a plain-text ledger",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newMergeCommand())

	return rootCmd
}

// configPath resolves the config file for a repository, honoring the
// RECKON_CONFIG override.
func configPath(repoRoot string) string {
	if p := os.Getenv("RECKON_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(repoRoot, config.DefaultPath)
}

func loadConfig(repoRoot string) (*config.Config, error) {
	cfg, err := config.Load(configPath(repoRoot))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
