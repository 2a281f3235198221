package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/reckon-dev/reckon/internal/config"
	"github.com/reckon-dev/reckon/internal/gitops"
	"github.com/reckon-dev/reckon/internal/ledger"
	"github.com/reckon-dev/reckon/internal/merge"
	"github.com/reckon-dev/reckon/internal/model"
	"github.com/reckon-dev/reckon/internal/runlog"
)

func newMergeCommand() *cobra.Command {
	var repoDir string

	cmd := &cobra.Command{
		Use:   "merge <file.ledger>...",
		Short: "Merge imported transactions into the main ledger",
		Long: `Merge imported transactions into the main ledger.

Each input file is applied as one atomic batch: postings carrying a
fingerprint already present in the ledger are folded into their
existing transaction, soft matches by date, amount and balance are
resolved when unambiguous, and everything else is appended as new.
Transactions with ambiguous matches are held out to the unmerged file
for manual review instead of being guessed at.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(repoDir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			cfg, err := loadConfig(absDir)
			if err != nil {
				return err
			}
			return runMerge(cmd, cfg, absDir, args)
		},
	}

	cmd.Flags().StringVar(&repoDir, "repo", ".", "repository directory")

	return cmd
}

// batchResult records the outcome of merging one input file.
type batchResult struct {
	source   string
	merged   int
	unmerged int
}

func runMerge(cmd *cobra.Command, cfg *config.Config, repoRoot string, inputs []string) error {
	ledgerPath := filepath.Join(repoRoot, cfg.Ledger.Path)
	unmergedPath := filepath.Join(repoRoot, cfg.Ledger.UnmergedPath)

	existing, err := ledger.ReadFile(ledgerPath)
	if err != nil {
		return err
	}

	m := merge.New(cfg.TagConfig())
	if _, err := m.Merge(existing); err != nil {
		return fmt.Errorf("ledger %s: %w", cfg.Ledger.Path, err)
	}

	var results []batchResult
	var unmerged []model.Transaction
	for _, input := range inputs {
		f, err := os.Open(input)
		if err != nil {
			return fmt.Errorf("opening %s: %w", input, err)
		}
		batch, err := ledger.Read(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("reading %s: %w", input, err)
		}

		held, err := m.Merge(batch)
		if err != nil {
			return fmt.Errorf("merging %s: %w", input, err)
		}
		unmerged = append(unmerged, held...)
		results = append(results, batchResult{
			source:   filepath.Base(input),
			merged:   len(batch) - len(held),
			unmerged: len(held),
		})
	}

	if err := ledger.WriteFile(ledgerPath, m.Build()); err != nil {
		return err
	}
	if len(unmerged) > 0 {
		prior, err := ledger.ReadFile(unmergedPath)
		if err != nil {
			return err
		}
		if err := ledger.WriteFile(unmergedPath, append(prior, unmerged...)); err != nil {
			return err
		}
	}

	commitHash := ""
	if cfg.Git.AutoCommit && gitops.IsRepo(repoRoot) {
		paths := []string{cfg.Ledger.Path}
		if len(unmerged) > 0 {
			paths = append(paths, cfg.Ledger.UnmergedPath)
		}
		hash, err := gitops.Commit(repoRoot, mergeCommitMessage(results), cfg.Git.AuthorName, cfg.Git.AuthorEmail, paths...)
		if err != nil {
			return fmt.Errorf("committing: %w", err)
		}
		commitHash = hash
	}

	now := time.Now().UTC()
	entries := make([]runlog.Entry, 0, len(results))
	for _, r := range results {
		entries = append(entries, runlog.Entry{
			Timestamp:  now,
			Source:     r.source,
			Merged:     r.merged,
			Unmerged:   r.unmerged,
			CommitHash: commitHash,
		})
	}
	if err := runlog.Append(filepath.Join(repoRoot, "logs", "reckon-log.csv"), entries); err != nil {
		return err
	}

	for _, r := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d merged, %d held for review\n", r.source, r.merged, r.unmerged)
	}
	if len(unmerged) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Review %s and re-run merge.\n", cfg.Ledger.UnmergedPath)
	}
	return nil
}

func mergeCommitMessage(results []batchResult) string {
	total := 0
	for _, r := range results {
		total += r.merged
	}
	return fmt.Sprintf("merge: %d transactions from %d files", total, len(results))
}
