package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Sources = []Source{
		{Name: "chase", Format: "simple", Account: "assets:checking", Commodity: "USD"},
	}
	cfg.Tags.FingerprintPrefix = "id-"

	path := filepath.Join(t.TempDir(), "reckon.yaml")
	err := Save(path, cfg)
	require.NoError(t, err)

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Ledger.Path, got.Ledger.Path)
	assert.Equal(t, cfg.Ledger.UnmergedPath, got.Ledger.UnmergedPath)
	assert.Equal(t, cfg.ImportDir, got.ImportDir)
	assert.Equal(t, cfg.Git.AuthorName, got.Git.AuthorName)
	assert.Equal(t, "id-", got.Tags.FingerprintPrefix)
	require.Len(t, got.Sources, 1)
	assert.Equal(t, "chase", got.Sources[0].Name)
	assert.Equal(t, "assets:checking", got.Sources[0].Account)
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "main.ledger", cfg.Ledger.Path)
	assert.Equal(t, "unmerged.ledger", cfg.Ledger.UnmergedPath)
	assert.Equal(t, "import", cfg.ImportDir)
	assert.False(t, cfg.Git.AutoCommit)
	assert.Empty(t, cfg.Sources)
}

func TestTagConfig(t *testing.T) {
	cfg := Default()
	tc := cfg.TagConfig()
	assert.Equal(t, "fp-", tc.FingerprintPrefix)
	assert.Equal(t, "candidate-fp-", tc.CandidatePrefix)
	assert.Equal(t, "unknown-account", tc.UnknownAccount)

	cfg.Tags.FingerprintPrefix = "id-"
	cfg.Tags.UnknownAccount = "unclassified"
	tc = cfg.TagConfig()
	assert.Equal(t, "id-", tc.FingerprintPrefix)
	assert.Equal(t, "candidate-fp-", tc.CandidatePrefix)
	assert.Equal(t, "unclassified", tc.UnknownAccount)
}

func TestFindSource(t *testing.T) {
	cfg := Default()
	cfg.Sources = []Source{{Name: "chase", Format: "simple"}}

	s, ok := cfg.FindSource("chase")
	require.True(t, ok)
	assert.Equal(t, "simple", s.Format)

	_, ok = cfg.FindSource("missing")
	assert.False(t, ok)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestYAMLFormat(t *testing.T) {
	cfg := Default()
	path := filepath.Join(t.TempDir(), "reckon.yaml")
	err := Save(path, cfg)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "path: main.ledger")
	assert.Contains(t, contents, "unmerged_path: unmerged.ledger")
	assert.Contains(t, contents, "import_dir: import")
}
