package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reckon-dev/reckon/internal/config"
	"github.com/reckon-dev/reckon/internal/importer"
	"github.com/reckon-dev/reckon/internal/ledger"
)

func newImportCommand() *cobra.Command {
	var repoDir string
	var sourceName string
	var output string

	cmd := &cobra.Command{
		Use:   "import [file.csv]",
		Short: "Convert bank CSV exports to ledger text",
		Long: `Convert bank CSV exports to ledger text ready for merging.

With a file argument, converts that file using --source and writes the
result to stdout or --output. With no argument, scans the configured
import directory, converts each CSV whose name starts with a configured
source name, and moves the originals to import/processed/.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(repoDir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			cfg, err := loadConfig(absDir)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				return runImportFile(cmd, cfg, sourceName, args[0], output)
			}
			return runImportScan(cmd, cfg, absDir)
		},
	}

	cmd.Flags().StringVar(&repoDir, "repo", ".", "repository directory")
	cmd.Flags().StringVar(&sourceName, "source", "", "source name from reckon.yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output ledger file (default stdout)")

	return cmd
}

// convert parses one CSV with the source's format and renders ledger
// transactions.
func convert(cfg *config.Config, src config.Source, path string) ([]byte, error) {
	parser := importer.DefaultRegistry().Get(src.Format)
	if parser == nil {
		return nil, fmt.Errorf("source %s: unknown format %q", src.Name, src.Format)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	rows, err := parser.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	trns := importer.NewConverter(src, cfg.TagConfig()).Convert(rows)

	var sb strings.Builder
	if err := ledger.Write(&sb, trns); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

func runImportFile(cmd *cobra.Command, cfg *config.Config, sourceName, path, output string) error {
	if sourceName == "" {
		return fmt.Errorf("--source is required when importing a single file")
	}
	src, ok := cfg.FindSource(sourceName)
	if !ok {
		return fmt.Errorf("unknown source %q", sourceName)
	}

	text, err := convert(cfg, src, path)
	if err != nil {
		return err
	}

	if output == "" {
		_, err = cmd.OutOrStdout().Write(text)
		return err
	}
	if err := os.WriteFile(output, text, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	return nil
}

func runImportScan(cmd *cobra.Command, cfg *config.Config, repoRoot string) error {
	importDir := filepath.Join(repoRoot, cfg.ImportDir)
	files, err := importer.Scan(importDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to import.")
		return nil
	}

	for _, file := range files {
		src, ok := sourceForFile(cfg, file.Name)
		if !ok {
			fmt.Fprintf(cmd.OutOrStdout(), "Skipping %s: no matching source\n", file.Name)
			continue
		}

		text, err := convert(cfg, src, file.Path)
		if err != nil {
			return err
		}

		outPath := strings.TrimSuffix(file.Path, filepath.Ext(file.Path)) + ".ledger"
		if err := os.WriteFile(outPath, text, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", outPath, err)
		}
		if err := importer.MarkProcessed(importDir, file.Name); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%s) -> %s\n", file.Name, src.Name, filepath.Base(outPath))
	}
	return nil
}

// sourceForFile matches an import file to a configured source by name
// prefix: "chase-2025-01.csv" belongs to the "chase" source.
func sourceForFile(cfg *config.Config, fileName string) (config.Source, bool) {
	base := strings.ToLower(fileName)
	for _, s := range cfg.Sources {
		if strings.HasPrefix(base, strings.ToLower(s.Name)) {
			return s, true
		}
	}
	return config.Source{}, false
}
