package merge

import (
	"sort"
	"time"

	"github.com/reckon-dev/reckon/internal/arena"
	"github.com/reckon-dev/reckon/internal/comment"
	"github.com/reckon-dev/reckon/internal/model"
)

// transactionHolder owns a transaction's header fields and the ordered
// list of posting indices belonging to it. Postings themselves live in
// the posting store.
type transactionHolder struct {
	date        time.Time
	description string
	comment     comment.Comment
	postings    []arena.Index
}

// transactionStore owns transaction holders and a date index used to
// materialize the final sorted output. Within one date the index holds
// transactions in insertion order, which build preserves.
type transactionStore struct {
	holders *arena.Arena[transactionHolder]
	byDate  map[string][]arena.Index
}

func newTransactionStore() *transactionStore {
	return &transactionStore{
		holders: arena.New[transactionHolder](),
		byDate:  make(map[string][]arena.Index),
	}
}

// add registers a transaction header (no postings yet) under its date.
func (s *transactionStore) add(t model.Transaction) arena.Index {
	idx := s.holders.Insert(transactionHolder{
		date:        t.Date,
		description: t.Description,
		comment:     t.Comment,
	})
	key := t.DateKey()
	s.byDate[key] = append(s.byDate[key], idx)
	return idx
}

// addPosting appends a posting index to a transaction's posting list.
func (s *transactionStore) addPosting(trn, post arena.Index) {
	h := s.holders.MustGet(trn)
	h.postings = append(h.postings, post)
}

// dateKey returns the canonical date of a transaction, which decides
// where postings routed to it are filed.
func (s *transactionStore) dateKey(trn arena.Index) string {
	return s.holders.MustGet(trn).date.Format(model.DateFormat)
}

// rendering returns the header line of a transaction, for error
// messages.
func (s *transactionStore) rendering(trn arena.Index) string {
	h := s.holders.MustGet(trn)
	return h.date.Format(model.DateFormat) + " " + h.description
}

// build drains the store into plain transactions, ascending by date and
// preserving insertion order within a date. It consumes the posting
// store alongside; both stores are empty afterwards.
func (s *transactionStore) build(posts *postingStore) []model.Transaction {
	keys := make([]string, 0, len(s.byDate))
	for key := range s.byDate {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var out []model.Transaction
	for _, key := range keys {
		for _, idx := range s.byDate[key] {
			h, ok := s.holders.Remove(idx)
			if !ok {
				panic("merge: transaction index not in store: " + idx.String())
			}
			t := model.Transaction{
				Date:        h.date,
				Description: h.description,
				Comment:     h.comment,
				Postings:    make([]model.Posting, 0, len(h.postings)),
			}
			for _, pIdx := range h.postings {
				t.Postings = append(t.Postings, posts.take(pIdx))
			}
			out = append(out, t)
		}
	}

	s.holders = arena.New[transactionHolder]()
	s.byDate = make(map[string][]arena.Index)
	posts.reset()
	return out
}
