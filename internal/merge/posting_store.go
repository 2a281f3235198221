package merge

import (
	"github.com/reckon-dev/reckon/internal/arena"
	"github.com/reckon-dev/reckon/internal/model"
	"github.com/reckon-dev/reckon/internal/tags"
)

// postingHolder owns one committed posting and a back-reference to its
// transaction. It is mutated in place on every merge and removed only
// when the whole store is drained at build time.
type postingHolder struct {
	posting model.Posting
	parent  arena.Index
}

// postingStore owns all committed postings plus two secondary indexes:
// fingerprint to posting, and transaction date to postings. The indexes
// are updated alongside every insert and merge so they never go stale.
type postingStore struct {
	cfg           tags.Config
	holders       *arena.Arena[postingHolder]
	byFingerprint map[string]arena.Index
	byDate        map[string][]arena.Index
}

func newPostingStore(cfg tags.Config) *postingStore {
	return &postingStore{
		cfg:           cfg,
		holders:       arena.New[postingHolder](),
		byFingerprint: make(map[string]arena.Index),
		byDate:        make(map[string][]arena.Index),
	}
}

// add commits a posting under a parent transaction, registering all its
// fingerprints and filing it under the transaction's date.
func (s *postingStore) add(p model.Posting, parent arena.Index, dateKey string) arena.Index {
	idx := s.holders.Insert(postingHolder{posting: p, parent: parent})
	s.registerFingerprints(idx, s.cfg.Fingerprints(p.Comment))
	s.byDate[dateKey] = append(s.byDate[dateKey], idx)
	return idx
}

// registerFingerprints maps fingerprints to a posting, last write wins.
// Conflicting claims on a fingerprint must have been rejected upstream
// before anything was committed.
func (s *postingStore) registerFingerprints(idx arena.Index, fps []string) {
	for _, fp := range fps {
		s.byFingerprint[fp] = idx
	}
}

// matchKind classifies the result of findMatching.
type matchKind int

const (
	// matchNone: the posting is new.
	matchNone matchKind = iota
	// matchFound: exactly one committed posting matched, by fingerprint
	// or by an unambiguous soft match.
	matchFound
	// matchAmbiguous: several committed postings soft-matched; the
	// caller must route the containing transaction to unmerged output.
	matchAmbiguous
)

// matchResult is the outcome of matching one incoming posting.
type matchResult struct {
	kind matchKind
	dest arena.Index   // valid when kind == matchFound
	soft []arena.Index // matched postings when kind == matchAmbiguous
}

// findMatching resolves an incoming posting against the committed store.
// Fingerprints are authoritative: if any of the posting's fingerprints
// are registered, the distinct registered postings decide the outcome,
// and resolving to more than one distinct posting is an input error.
// Only a posting with no fingerprint match at all falls back to a soft
// match on date, amount, balance, and account.
func (s *postingStore) findMatching(p model.Posting, fps []string, dateKey string) (matchResult, error) {
	var destinations []arena.Index
	seen := make(map[arena.Index]bool)
	var matchedFps []string
	for _, fp := range fps {
		idx, ok := s.byFingerprint[fp]
		if !ok {
			continue
		}
		matchedFps = append(matchedFps, fp)
		if !seen[idx] {
			seen[idx] = true
			destinations = append(destinations, idx)
		}
	}

	switch len(destinations) {
	case 0:
		// No fingerprint evidence; fall through to soft matching.
	case 1:
		return matchResult{kind: matchFound, dest: destinations[0]}, nil
	default:
		err := &FingerprintConflictError{
			Posting:      p.String(),
			Fingerprints: matchedFps,
		}
		for _, idx := range destinations {
			err.Destinations = append(err.Destinations, s.holders.MustGet(idx).posting.String())
		}
		return matchResult{}, err
	}

	var soft []arena.Index
	for _, idx := range s.byDate[dateKey] {
		if s.softMatches(s.holders.MustGet(idx).posting, p) {
			soft = append(soft, idx)
		}
	}

	switch len(soft) {
	case 0:
		return matchResult{kind: matchNone}, nil
	case 1:
		return matchResult{kind: matchFound, dest: soft[0]}, nil
	default:
		return matchResult{kind: matchAmbiguous, soft: soft}, nil
	}
}

// softMatches reports whether a committed posting and an incoming
// posting describe the same entry absent fingerprint evidence: equal
// amount, balance assertions equal or one side absent, and accounts
// equal or either side still carrying the placeholder marker.
func (s *postingStore) softMatches(committed, incoming model.Posting) bool {
	if !committed.Amount.Equal(incoming.Amount) {
		return false
	}
	if committed.Balance != nil && incoming.Balance != nil && !committed.Balance.Equal(*incoming.Balance) {
		return false
	}
	if committed.Account == incoming.Account {
		return true
	}
	return s.cfg.IsUnknownAccount(committed.Comment) || s.cfg.IsUnknownAccount(incoming.Comment)
}

// mergeInto combines an incoming posting into a committed one and
// returns the fingerprints the incoming side newly contributed, for
// registration by the caller. The committed posting's balance assertion
// is kept once set, its placeholder account is promoted to the incoming
// real account, and the comment bags are unioned with incoming value
// tags winning.
func (s *postingStore) mergeInto(dest arena.Index, incoming model.Posting) []string {
	h := s.holders.MustGet(dest)

	if h.posting.Balance == nil && incoming.Balance != nil {
		b := *incoming.Balance
		h.posting.Balance = &b
	}

	if s.cfg.IsUnknownAccount(h.posting.Comment) && !s.cfg.IsUnknownAccount(incoming.Comment) {
		h.posting.Account = incoming.Account
		h.posting.Comment.RemoveTag(s.cfg.UnknownAccount)
	}

	existing := make(map[string]bool)
	for _, fp := range s.cfg.Fingerprints(h.posting.Comment) {
		existing[fp] = true
	}
	var contributed []string
	for _, fp := range s.cfg.Fingerprints(incoming.Comment) {
		if !existing[fp] {
			contributed = append(contributed, fp)
		}
	}

	// The placeholder marker never survives a merge from the incoming
	// side; a promoted posting must not regain it.
	in := incoming.Comment.Clone()
	in.RemoveTag(s.cfg.UnknownAccount)
	h.posting.Comment = h.posting.Comment.Merge(in)

	return contributed
}

// primaryFingerprint returns the first sorted fingerprint of a committed
// posting, or "" if it has none. Used to build candidate tags.
func (s *postingStore) primaryFingerprint(idx arena.Index) string {
	fps := s.cfg.Fingerprints(s.holders.MustGet(idx).posting.Comment)
	if len(fps) == 0 {
		return ""
	}
	return fps[0]
}

// parent returns the owning transaction of a committed posting.
func (s *postingStore) parent(idx arena.Index) arena.Index {
	return s.holders.MustGet(idx).parent
}

// rendering returns the one-line form of a committed posting, for error
// messages.
func (s *postingStore) rendering(idx arena.Index) string {
	return s.holders.MustGet(idx).posting.String()
}

// take removes a posting from the arena during final materialization.
// The secondary indexes are reset wholesale by the caller.
func (s *postingStore) take(idx arena.Index) model.Posting {
	h, ok := s.holders.Remove(idx)
	if !ok {
		panic("merge: posting index not in store: " + idx.String())
	}
	return h.posting
}

// reset empties the store after a drain.
func (s *postingStore) reset() {
	s.holders = arena.New[postingHolder]()
	s.byFingerprint = make(map[string]arena.Index)
	s.byDate = make(map[string][]arena.Index)
}
