// Package merge reconciles batches of imported transactions into an
// in-memory ledger, deduplicating postings by fingerprint tag and by
// soft matching on date, amount, balance, and account. Ambiguous soft
// matches are never guessed at: the whole containing transaction is
// returned to the caller annotated with candidate tags for human
// review. Each Merge call is atomic; an input conflict rejects the
// batch without touching committed state.
package merge

import (
	"github.com/reckon-dev/reckon/internal/arena"
	"github.com/reckon-dev/reckon/internal/model"
	"github.com/reckon-dev/reckon/internal/tags"
)

// Merger accumulates committed transactions across Merge calls and
// materializes the final ledger with Build. It is single-threaded and
// lives for one process run.
type Merger struct {
	cfg   tags.Config
	posts *postingStore
	trns  *transactionStore
}

// New returns an empty Merger using the given tag configuration.
func New(cfg tags.Config) *Merger {
	return &Merger{
		cfg:   cfg,
		posts: newPostingStore(cfg),
		trns:  newTransactionStore(),
	}
}

// pendingMerge routes one staged posting into an existing committed
// posting.
type pendingMerge struct {
	posting int // index into pendingTransaction.trn.Postings
	dest    arena.Index
}

// pendingTransaction is one incoming transaction's staged plan: a
// working clone of the input (candidate tags stripped, new candidate
// tags injected where soft matching was ambiguous) plus the per-posting
// routing decisions. Nothing is written to the stores until the whole
// batch has validated.
type pendingTransaction struct {
	trn      model.Transaction
	merges   []pendingMerge
	adds     []int
	unmerged bool
	dest     arena.Index
	hasDest  bool
}

// Merge processes one batch of transactions. On success the committed
// stores are updated and the returned slice holds the transactions that
// could not be merged automatically, each annotated with candidate
// tags. On an input conflict error nothing is committed and the stores
// are exactly as before the call.
func (m *Merger) Merge(batch []model.Transaction) ([]model.Transaction, error) {
	plan, err := m.stage(batch)
	if err != nil {
		return nil, err
	}
	if err := m.checkDestinations(plan); err != nil {
		return nil, err
	}

	var unmerged []model.Transaction
	for i := range plan {
		pt := &plan[i]
		if pt.unmerged {
			unmerged = append(unmerged, pt.trn)
			continue
		}
		m.commit(pt)
	}
	return unmerged, nil
}

// Build drains all committed state into the final transaction list,
// ascending by date with insertion order preserved within a date. The
// Merger is empty afterwards.
func (m *Merger) Build() []model.Transaction {
	return m.trns.build(m.posts)
}

// stage classifies every posting of the batch against the committed
// stores without mutating them. Only committed postings are matching
// candidates; postings staged earlier in the same batch are not.
func (m *Merger) stage(batch []model.Transaction) ([]pendingTransaction, error) {
	seenFps := make(map[string]string)
	plan := make([]pendingTransaction, 0, len(batch))

	for _, src := range batch {
		pt := pendingTransaction{trn: src.Clone()}
		dateKey := pt.trn.DateKey()

		for i := range pt.trn.Postings {
			p := &pt.trn.Postings[i]
			m.cfg.StripCandidates(&p.Comment)
			fps := m.cfg.Fingerprints(p.Comment)

			// A fingerprint may appear on only one posting per batch;
			// the first duplicate aborts the whole call.
			for _, fp := range fps {
				if first, dup := seenFps[fp]; dup {
					return nil, &DuplicateFingerprintError{
						Fingerprint: fp,
						First:       first,
						Second:      p.String(),
					}
				}
				seenFps[fp] = p.String()
			}

			match, err := m.posts.findMatching(*p, fps, dateKey)
			if err != nil {
				return nil, err
			}
			switch match.kind {
			case matchFound:
				pt.merges = append(pt.merges, pendingMerge{posting: i, dest: match.dest})
			case matchAmbiguous:
				for _, idx := range match.soft {
					if fp := m.posts.primaryFingerprint(idx); fp != "" {
						p.Comment.AddTag(m.cfg.Candidate(fp))
					}
				}
				pt.unmerged = true
			default:
				pt.adds = append(pt.adds, i)
			}
		}

		if !pt.unmerged {
			if err := m.resolveDestination(&pt); err != nil {
				return nil, err
			}
		}
		plan = append(plan, pt)
	}
	return plan, nil
}

// resolveDestination decides which committed transaction a staged
// transaction's postings land in. All matched postings must agree on
// one destination; disagreement would split an atomic double-entry
// unit and is an input error. With no matches at all a fresh
// destination is allocated at commit time.
func (m *Merger) resolveDestination(pt *pendingTransaction) error {
	var dests []arena.Index
	seen := make(map[arena.Index]bool)
	for _, pm := range pt.merges {
		parent := m.posts.parent(pm.dest)
		if !seen[parent] {
			seen[parent] = true
			dests = append(dests, parent)
		}
	}

	switch len(dests) {
	case 0:
		return nil
	case 1:
		pt.dest = dests[0]
		pt.hasDest = true
		return nil
	default:
		err := &SplitTransactionError{Transaction: pt.trn.String()}
		for _, d := range dests {
			err.Destinations = append(err.Destinations, m.trns.rendering(d))
		}
		return err
	}
}

// checkDestinations rejects the batch if two distinct staged postings
// were both routed into the same committed posting.
func (m *Merger) checkDestinations(plan []pendingTransaction) error {
	claimed := make(map[arena.Index]string)
	for i := range plan {
		pt := &plan[i]
		if pt.unmerged {
			continue
		}
		for _, pm := range pt.merges {
			rendering := pt.trn.Postings[pm.posting].String()
			if first, ok := claimed[pm.dest]; ok {
				return &DestinationCollisionError{
					First:       first,
					Second:      rendering,
					Destination: m.posts.rendering(pm.dest),
				}
			}
			claimed[pm.dest] = rendering
		}
	}
	return nil
}

// commit applies one validated staged transaction: merges first, then
// new postings, attached to the resolved or freshly allocated
// destination transaction. Nothing here can fail on valid plans.
func (m *Merger) commit(pt *pendingTransaction) {
	for _, pm := range pt.merges {
		contributed := m.posts.mergeInto(pm.dest, pt.trn.Postings[pm.posting])
		m.posts.registerFingerprints(pm.dest, contributed)
	}

	if len(pt.adds) == 0 && pt.hasDest {
		return
	}
	if !pt.hasDest {
		pt.dest = m.trns.add(pt.trn)
		pt.hasDest = true
	}

	// New postings file under the destination transaction's date, which
	// may differ from the batch transaction's own date after a
	// cross-date fingerprint match.
	dateKey := m.trns.dateKey(pt.dest)
	for _, i := range pt.adds {
		idx := m.posts.add(pt.trn.Postings[i], pt.dest, dateKey)
		m.trns.addPosting(pt.dest, idx)
	}
}
