package runlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(source string, merged, unmerged int) Entry {
	return Entry{
		Timestamp: time.Date(2025, 1, 3, 12, 0, 0, 0, time.UTC),
		Source:    source,
		Merged:    merged,
		Unmerged:  unmerged,
	}
}

func TestAppendRead_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "reckon-log.csv")

	require.NoError(t, Append(path, []Entry{entry("bank.csv", 12, 1)}))
	require.NoError(t, Append(path, []Entry{entry("card.csv", 3, 0)}))

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "bank.csv", entries[0].Source)
	assert.Equal(t, 12, entries[0].Merged)
	assert.Equal(t, 1, entries[0].Unmerged)
	assert.Equal(t, "card.csv", entries[1].Source)
}

func TestAppend_WritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reckon-log.csv")

	require.NoError(t, Append(path, []Entry{entry("a.csv", 1, 0)}))
	require.NoError(t, Append(path, []Entry{entry("b.csv", 2, 0)}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	assert.Equal(t, 3, lines, "header plus two rows")
}

func TestRead_Missing(t *testing.T) {
	entries, err := Read(filepath.Join(t.TempDir(), "nope.csv"))
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestUnmarshalEntry_BadFields(t *testing.T) {
	_, err := UnmarshalEntry([]string{"only", "four", "fields", "here"})
	require.Error(t, err)

	_, err = UnmarshalEntry([]string{"NOTATIME", "src", "1", "0", ""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing timestamp")

	_, err = UnmarshalEntry([]string{time.Now().Format(time.RFC3339), "src", "x", "0", ""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing merged")
}
