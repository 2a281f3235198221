package merge

import (
	"fmt"
	"strings"
)

// Input conflict errors abort the whole Merge call before anything is
// committed. Each carries enough context, including one-line renderings
// of the offending postings, for a human to fix the source data.

// DuplicateFingerprintError reports one fingerprint appearing on two
// postings within the same incoming batch.
type DuplicateFingerprintError struct {
	Fingerprint string
	First       string // rendering of the posting seen first
	Second      string // rendering of the posting seen second
}

func (e *DuplicateFingerprintError) Error() string {
	return fmt.Sprintf("duplicate fingerprint %q within batch: %s / %s",
		e.Fingerprint, e.First, e.Second)
}

// FingerprintConflictError reports a single incoming posting whose
// fingerprints resolve to multiple distinct committed postings. Two
// committed postings cannot both be the same real-world posting, so
// this signals corrupt fingerprint or ledger state.
type FingerprintConflictError struct {
	Posting      string
	Fingerprints []string
	Destinations []string
}

func (e *FingerprintConflictError) Error() string {
	return fmt.Sprintf("fingerprints %s of posting %s match multiple distinct postings: %s",
		strings.Join(e.Fingerprints, ", "), e.Posting, strings.Join(e.Destinations, " / "))
}

// SplitTransactionError reports an incoming transaction whose postings
// matched postings belonging to different committed transactions;
// merging it would split an atomic double-entry unit.
type SplitTransactionError struct {
	Transaction  string
	Destinations []string
}

func (e *SplitTransactionError) Error() string {
	return fmt.Sprintf("transaction %s would be split across existing transactions: %s",
		e.Transaction, strings.Join(e.Destinations, " / "))
}

// DestinationCollisionError reports two distinct incoming postings both
// uniquely matching the same committed posting, typically two importer
// runs both claiming to update one existing entry.
type DestinationCollisionError struct {
	First       string
	Second      string
	Destination string
}

func (e *DestinationCollisionError) Error() string {
	return fmt.Sprintf("postings %s and %s both match the same existing posting %s",
		e.First, e.Second, e.Destination)
}
