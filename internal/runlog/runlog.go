// Package runlog keeps an append-only CSV history of merge runs, one
// row per merged input, so a ledger repository records when and from
// what each batch arrived.
package runlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Entry is one row in the run log.
type Entry struct {
	Timestamp  time.Time
	Source     string // input file or source name
	Merged     int    // transactions committed
	Unmerged   int    // transactions returned for review
	CommitHash string // git commit, if auto-commit ran
}

// Header is the CSV header for the run log.
const Header = "timestamp,source,merged,unmerged,commit_hash"

const (
	numFields     = 5
	colTimestamp  = 0
	colSource     = 1
	colMerged     = 2
	colUnmerged   = 3
	colCommitHash = 4
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colSource] = e.Source
	row[colMerged] = strconv.Itoa(e.Merged)
	row[colUnmerged] = strconv.Itoa(e.Unmerged)
	row[colCommitHash] = e.CommitHash
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	merged, err := strconv.Atoi(record[colMerged])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing merged %q: %w", record[colMerged], err)
	}

	unmerged, err := strconv.Atoi(record[colUnmerged])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing unmerged %q: %w", record[colUnmerged], err)
	}

	return Entry{
		Timestamp:  ts,
		Source:     record[colSource],
		Merged:     merged,
		Unmerged:   unmerged,
		CommitHash: record[colCommitHash],
	}, nil
}

// Append writes entries to the log file, creating it and the header if
// needed.
func Append(path string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}

	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	return cw.Error()
}

// Read returns all entries from the log file. A missing file is an
// empty log.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading run log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
