package tags

import (
	"strings"

	"github.com/reckon-dev/reckon/internal/comment"
)

// Config holds the run-wide tag names that carry merge semantics.
type Config struct {
	// FingerprintPrefix marks flag tags that are authoritative posting
	// identity, e.g. "fp-".
	FingerprintPrefix string
	// CandidatePrefix marks flag tags recording an ambiguous soft-match
	// target for human review, e.g. "candidate-fp-".
	CandidatePrefix string
	// UnknownAccount is the flag marking a placeholder account pending
	// human classification.
	UnknownAccount string
}

// Default returns the standard tag configuration.
func Default() Config {
	return Config{
		FingerprintPrefix: "fp-",
		CandidatePrefix:   "candidate-fp-",
		UnknownAccount:    "unknown-account",
	}
}

// IsFingerprint reports whether the flag tag is a fingerprint.
func (c Config) IsFingerprint(tag string) bool {
	return strings.HasPrefix(tag, c.FingerprintPrefix)
}

// IsCandidate reports whether the flag tag is a candidate hint.
func (c Config) IsCandidate(tag string) bool {
	return strings.HasPrefix(tag, c.CandidatePrefix)
}

// Fingerprints returns the comment's fingerprint tags in sorted order.
func (c Config) Fingerprints(cm comment.Comment) []string {
	return cm.TagsWithPrefix(c.FingerprintPrefix)
}

// Candidate converts a fingerprint tag into its candidate-hint form:
// "fp-bank-1" becomes "candidate-fp-bank-1".
func (c Config) Candidate(fingerprint string) string {
	return c.CandidatePrefix + strings.TrimPrefix(fingerprint, c.FingerprintPrefix)
}

// StripCandidates removes all candidate tags from a comment. Candidate
// tags are advisory output of an earlier run, never identity input.
func (c Config) StripCandidates(cm *comment.Comment) {
	for _, tag := range cm.TagsWithPrefix(c.CandidatePrefix) {
		cm.RemoveTag(tag)
	}
}

// IsUnknownAccount reports whether the comment carries the placeholder
// account marker.
func (c Config) IsUnknownAccount(cm comment.Comment) bool {
	return cm.HasTag(c.UnknownAccount)
}
