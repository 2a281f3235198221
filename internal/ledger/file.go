package ledger

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/reckon-dev/reckon/internal/model"
)

// ReadFile reads a ledger file. A missing file is an empty ledger, not
// an error.
func ReadFile(path string) ([]model.Transaction, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ledger %s: %w", path, err)
	}
	defer f.Close()

	trns, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading ledger %s: %w", path, err)
	}
	return trns, nil
}

// WriteFile writes a ledger file atomically: the content lands in a
// temp file in the target directory which is then renamed over the
// destination, so a crash never leaves a half-written ledger.
func WriteFile(path string, trns []model.Transaction) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating ledger dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".reckon-*")
	if err != nil {
		return fmt.Errorf("creating temp ledger: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, trns); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp ledger: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing ledger %s: %w", path, err)
	}
	return nil
}
