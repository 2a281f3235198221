package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/reckon-dev/reckon/internal/config"
	"github.com/reckon-dev/reckon/internal/gitops"
	"github.com/reckon-dev/reckon/internal/ledger"
)

func newInitCommand() *cobra.Command {
	var noGit bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new ledger repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd, absDir, noGit)
		},
	}

	cmd.Flags().BoolVar(&noGit, "no-git", false, "skip git repository setup")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, noGit bool) error {
	dirs := []string{
		"import",
		filepath.Join("import", "processed"),
		"logs",
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default()
	if err := config.Save(filepath.Join(dir, config.DefaultPath), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if err := ledger.WriteFile(filepath.Join(dir, cfg.Ledger.Path), nil); err != nil {
		return fmt.Errorf("writing empty ledger: %w", err)
	}

	gitignore := "import/processed/\nlogs/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	if noGit {
		fmt.Fprintf(cmd.OutOrStdout(), "Initialized ledger repository at %s\n", dir)
		return nil
	}

	if err := gitops.Init(dir); err != nil {
		return fmt.Errorf("git init: %w", err)
	}
	hash, err := gitops.Commit(dir, "init: new ledger repository",
		cfg.Git.AuthorName, cfg.Git.AuthorEmail, ".")
	if err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized ledger repository at %s (%s)\n", dir, hash)
	return nil
}
