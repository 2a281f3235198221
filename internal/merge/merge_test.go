package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reckon-dev/reckon/internal/comment"
	"github.com/reckon-dev/reckon/internal/model"
	"github.com/reckon-dev/reckon/internal/tags"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func posting(account, amount, annotation string) model.Posting {
	return model.Posting{
		Account: account,
		Amount:  model.MustAmount(amount),
		Comment: comment.Parse(annotation),
	}
}

func withBalance(p model.Posting, balance string) model.Posting {
	b := model.MustAmount(balance)
	p.Balance = &b
	return p
}

func trn(d time.Time, desc string, postings ...model.Posting) model.Transaction {
	return model.Transaction{Date: d, Description: desc, Postings: postings}
}

func fingerprints(p model.Posting) []string {
	return tags.Default().Fingerprints(p.Comment)
}

func mustMerge(t *testing.T, m *Merger, batch []model.Transaction) []model.Transaction {
	t.Helper()
	unmerged, err := m.Merge(batch)
	require.NoError(t, err)
	return unmerged
}

func TestMerge_NewTransactions(t *testing.T) {
	m := New(tags.Default())

	unmerged := mustMerge(t, m, []model.Transaction{
		trn(date(2000, 1, 1), "Salary",
			posting("assets:checking", "100.00 USD", ":fp-1:"),
			posting("income:salary", "-100.00 USD", ":fp-2:"),
		),
	})
	assert.Empty(t, unmerged)

	out := m.Build()
	require.Len(t, out, 1)
	require.Len(t, out[0].Postings, 2)
	assert.Equal(t, "Salary", out[0].Description)
	assert.Equal(t, "assets:checking", out[0].Postings[0].Account)
	assert.Equal(t, "income:salary", out[0].Postings[1].Account)
}

func TestMerge_Idempotent(t *testing.T) {
	batch := []model.Transaction{
		trn(date(2000, 1, 1), "Salary",
			posting("assets:checking", "100.00 USD", ":fp-1:"),
			posting("income:salary", "-100.00 USD", ":fp-2:"),
		),
	}

	once := New(tags.Default())
	mustMerge(t, once, batch)

	twice := New(tags.Default())
	mustMerge(t, twice, batch)
	mustMerge(t, twice, batch)

	a, b := once.Build(), twice.Build()
	require.Len(t, b, 1)
	assert.Equal(t, a, b)
}

// Re-importing the same transaction under additional fingerprint
// namespaces accumulates fingerprints on the existing postings.
func TestMerge_FingerprintUnion(t *testing.T) {
	m := New(tags.Default())

	mustMerge(t, m, []model.Transaction{
		trn(date(2000, 1, 1), "Salary",
			posting("assets:checking", "100.00 USD", ":fp-1:"),
			posting("income:salary", "-100.00 USD", ":fp-2:"),
		),
	})
	mustMerge(t, m, []model.Transaction{
		trn(date(2000, 1, 1), "Salary",
			posting("assets:checking", "100.00 USD", ":fp-1:fp-3:"),
			posting("income:salary", "-100.00 USD", ":fp-2:fp-4:"),
		),
	})

	out := m.Build()
	require.Len(t, out, 1)
	require.Len(t, out[0].Postings, 2)
	assert.Equal(t, []string{"fp-1", "fp-3"}, fingerprints(out[0].Postings[0]))
	assert.Equal(t, []string{"fp-2", "fp-4"}, fingerprints(out[0].Postings[1]))
}

func TestMerge_BalanceFirstWriterWins(t *testing.T) {
	m := New(tags.Default())

	mustMerge(t, m, []model.Transaction{
		trn(date(2000, 1, 1), "Salary",
			withBalance(posting("assets:checking", "100.00 USD", ":fp-1:"), "500.00 USD"),
		),
	})
	mustMerge(t, m, []model.Transaction{
		trn(date(2000, 1, 1), "Salary",
			withBalance(posting("assets:checking", "100.00 USD", ":fp-1:"), "999.00 USD"),
		),
	})

	out := m.Build()
	require.Len(t, out, 1)
	require.NotNil(t, out[0].Postings[0].Balance)
	assert.True(t, out[0].Postings[0].Balance.Equal(model.MustAmount("500.00 USD")))
}

func TestMerge_BalanceAdoptedWhenAbsent(t *testing.T) {
	m := New(tags.Default())

	mustMerge(t, m, []model.Transaction{
		trn(date(2000, 1, 1), "Salary",
			posting("assets:checking", "100.00 USD", ":fp-1:"),
		),
	})
	mustMerge(t, m, []model.Transaction{
		trn(date(2000, 1, 1), "Salary",
			withBalance(posting("assets:checking", "100.00 USD", ":fp-1:"), "500.00 USD"),
		),
	})

	out := m.Build()
	require.Len(t, out, 1)
	require.NotNil(t, out[0].Postings[0].Balance)
	assert.True(t, out[0].Postings[0].Balance.Equal(model.MustAmount("500.00 USD")))
}

func TestMerge_UnknownAccountPromotion(t *testing.T) {
	m := New(tags.Default())

	mustMerge(t, m, []model.Transaction{
		trn(date(2000, 1, 1), "Card payment",
			posting("assets:unknown", "-20.00 USD", ":fp-1:unknown-account:"),
		),
	})
	mustMerge(t, m, []model.Transaction{
		trn(date(2000, 1, 1), "Card payment",
			posting("expenses:groceries", "-20.00 USD", ":fp-1:"),
		),
	})
	// A later placeholder never demotes the promoted account.
	mustMerge(t, m, []model.Transaction{
		trn(date(2000, 1, 1), "Card payment",
			posting("assets:unknown", "-20.00 USD", ":fp-1:unknown-account:"),
		),
	})

	out := m.Build()
	require.Len(t, out, 1)
	p := out[0].Postings[0]
	assert.Equal(t, "expenses:groceries", p.Account)
	assert.False(t, p.Comment.HasTag("unknown-account"))
}

func TestMerge_SoftMatch_Unambiguous(t *testing.T) {
	m := New(tags.Default())

	mustMerge(t, m, []model.Transaction{
		trn(date(2000, 1, 1), "Coffee",
			posting("expenses:coffee", "4.50 USD", ":fp-a:"),
		),
	})
	// Same date, account, amount; a fresh fingerprint namespace.
	mustMerge(t, m, []model.Transaction{
		trn(date(2000, 1, 1), "Coffee",
			posting("expenses:coffee", "4.50 USD", ":fp-b:"),
		),
	})

	out := m.Build()
	require.Len(t, out, 1)
	require.Len(t, out[0].Postings, 1)
	assert.Equal(t, []string{"fp-a", "fp-b"}, fingerprints(out[0].Postings[0]))
}

func TestMerge_SoftMatch_UnknownAccountWildcard(t *testing.T) {
	m := New(tags.Default())

	mustMerge(t, m, []model.Transaction{
		trn(date(2000, 1, 1), "Card payment",
			posting("assets:unknown", "-20.00 USD", ":fp-1:unknown-account:"),
		),
	})
	// Different account, but the committed side is a placeholder, so the
	// soft match applies and promotes it.
	mustMerge(t, m, []model.Transaction{
		trn(date(2000, 1, 1), "Card payment",
			posting("expenses:groceries", "-20.00 USD", ":fp-2:"),
		),
	})

	out := m.Build()
	require.Len(t, out, 1)
	p := out[0].Postings[0]
	assert.Equal(t, "expenses:groceries", p.Account)
	assert.Equal(t, []string{"fp-1", "fp-2"}, fingerprints(p))
	assert.False(t, p.Comment.HasTag("unknown-account"))
}

func TestMerge_SoftMatch_BalanceMismatchBlocks(t *testing.T) {
	m := New(tags.Default())

	mustMerge(t, m, []model.Transaction{
		trn(date(2000, 1, 1), "Coffee",
			withBalance(posting("expenses:coffee", "4.50 USD", ":fp-a:"), "10.00 USD"),
		),
	})
	mustMerge(t, m, []model.Transaction{
		trn(date(2000, 1, 1), "Coffee",
			withBalance(posting("expenses:coffee", "4.50 USD", ":fp-b:"), "99.00 USD"),
		),
	})

	// Incompatible balance assertions mean these are different entries.
	out := m.Build()
	require.Len(t, out, 2)
}

// Three committed postings that are identical apart from
// their fingerprints, then two new soft-matching postings. Both new
// postings are returned for review with one candidate tag per possible
// target, and the committed postings stay untouched.
func TestMerge_SoftMatch_Ambiguous(t *testing.T) {
	m := New(tags.Default())

	mustMerge(t, m, []model.Transaction{
		trn(date(2000, 1, 1), "Coffee", posting("expenses:coffee", "4.50 USD", ":fp-1:")),
		trn(date(2000, 1, 1), "Coffee", posting("expenses:coffee", "4.50 USD", ":fp-2:")),
		trn(date(2000, 1, 1), "Coffee", posting("expenses:coffee", "4.50 USD", ":fp-3:")),
	})

	unmerged, err := m.Merge([]model.Transaction{
		trn(date(2000, 1, 1), "Coffee run",
			posting("expenses:coffee", "4.50 USD", ":fp-new-1:"),
			posting("expenses:coffee", "4.50 USD", ":fp-new-2:"),
		),
	})
	require.NoError(t, err)
	require.Len(t, unmerged, 1)
	require.Len(t, unmerged[0].Postings, 2)

	want := []string{"candidate-fp-1", "candidate-fp-2", "candidate-fp-3"}
	for _, p := range unmerged[0].Postings {
		assert.Equal(t, want, p.Comment.TagsWithPrefix("candidate-fp-"))
	}

	// The committed postings are unchanged.
	out := m.Build()
	require.Len(t, out, 3)
	for i, trn := range out {
		assert.Len(t, fingerprints(trn.Postings[0]), 1, "transaction %d", i)
		assert.Empty(t, trn.Postings[0].Comment.TagsWithPrefix("candidate-fp-"), "transaction %d", i)
	}
}

// One ambiguous posting withholds the entire transaction, including
// postings that matched cleanly on their own.
func TestMerge_AmbiguousWithholdsWholeTransaction(t *testing.T) {
	m := New(tags.Default())

	mustMerge(t, m, []model.Transaction{
		trn(date(2000, 1, 1), "Shopping",
			posting("assets:checking", "-30.00 USD", ":fp-bank:"),
		),
		trn(date(2000, 1, 1), "Coffee", posting("expenses:coffee", "4.50 USD", ":fp-1:")),
		trn(date(2000, 1, 1), "Coffee", posting("expenses:coffee", "4.50 USD", ":fp-2:")),
	})

	unmerged, err := m.Merge([]model.Transaction{
		trn(date(2000, 1, 1), "Shopping",
			posting("assets:checking", "-30.00 USD", ":fp-bank:fp-extra:"),
			posting("expenses:coffee", "4.50 USD", ":fp-other:"),
		),
	})
	require.NoError(t, err)
	require.Len(t, unmerged, 1)

	// The clean fingerprint match was not applied.
	out := m.Build()
	for _, trn := range out {
		for _, p := range trn.Postings {
			assert.NotContains(t, fingerprints(p), "fp-extra")
		}
	}
}

func TestMerge_AmbiguousIsolatedFromRestOfBatch(t *testing.T) {
	m := New(tags.Default())

	mustMerge(t, m, []model.Transaction{
		trn(date(2000, 1, 1), "Coffee", posting("expenses:coffee", "4.50 USD", ":fp-1:")),
		trn(date(2000, 1, 1), "Coffee", posting("expenses:coffee", "4.50 USD", ":fp-2:")),
	})

	unmerged, err := m.Merge([]model.Transaction{
		trn(date(2000, 1, 1), "Coffee again", posting("expenses:coffee", "4.50 USD", ":fp-9:")),
		trn(date(2000, 1, 2), "Rent", posting("expenses:rent", "-900.00 USD", ":fp-rent:")),
	})
	require.NoError(t, err)
	require.Len(t, unmerged, 1)
	assert.Equal(t, "Coffee again", unmerged[0].Description)

	// The rent transaction committed normally.
	out := m.Build()
	require.Len(t, out, 3)
	assert.Equal(t, "Rent", out[2].Description)
}

func TestMerge_NewPostingRoutedToExistingTransaction(t *testing.T) {
	m := New(tags.Default())

	mustMerge(t, m, []model.Transaction{
		trn(date(2000, 1, 1), "Salary",
			posting("assets:checking", "100.00 USD", ":fp-1:"),
		),
	})
	mustMerge(t, m, []model.Transaction{
		trn(date(2000, 1, 1), "Salary",
			posting("assets:checking", "100.00 USD", ":fp-1:"),
			posting("income:salary", "-100.00 USD", ":fp-2:"),
		),
	})

	out := m.Build()
	require.Len(t, out, 1)
	require.Len(t, out[0].Postings, 2)
	assert.Equal(t, "income:salary", out[0].Postings[1].Account)
}

func TestMerge_DuplicateFingerprintInBatch(t *testing.T) {
	m := New(tags.Default())

	_, err := m.Merge([]model.Transaction{
		trn(date(2000, 1, 1), "One", posting("assets:checking", "1.00 USD", ":fp-1:")),
		trn(date(2000, 1, 2), "Two", posting("assets:savings", "2.00 USD", ":fp-1:")),
	})

	var dup *DuplicateFingerprintError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "fp-1", dup.Fingerprint)

	// Nothing committed.
	assert.Empty(t, m.Build())
}

// An incoming posting whose fingerprints individually
// match two different committed postings is a fatal input error, and
// the failed call leaves the store exactly as before.
func TestMerge_FingerprintConflict(t *testing.T) {
	first := []model.Transaction{
		trn(date(2000, 1, 1), "One", posting("assets:checking", "1.00 USD", ":fp-1:")),
		trn(date(2000, 1, 2), "Two", posting("assets:savings", "2.00 USD", ":fp-2:")),
	}

	m := New(tags.Default())
	mustMerge(t, m, first)

	_, err := m.Merge([]model.Transaction{
		trn(date(2000, 1, 3), "Claims both",
			posting("assets:checking", "1.00 USD", ":fp-1:fp-2:"),
		),
	})

	var conflict *FingerprintConflictError
	require.ErrorAs(t, err, &conflict)
	assert.ElementsMatch(t, []string{"fp-1", "fp-2"}, conflict.Fingerprints)

	baseline := New(tags.Default())
	mustMerge(t, baseline, first)
	assert.Equal(t, baseline.Build(), m.Build())
}

func TestMerge_SplitTransaction(t *testing.T) {
	m := New(tags.Default())

	mustMerge(t, m, []model.Transaction{
		trn(date(2000, 1, 1), "One", posting("assets:checking", "1.00 USD", ":fp-1:")),
		trn(date(2000, 1, 2), "Two", posting("assets:savings", "2.00 USD", ":fp-2:")),
	})

	_, err := m.Merge([]model.Transaction{
		trn(date(2000, 1, 3), "Spans both",
			posting("assets:checking", "1.00 USD", ":fp-1:"),
			posting("assets:savings", "2.00 USD", ":fp-2:"),
		),
	})

	var split *SplitTransactionError
	require.ErrorAs(t, err, &split)
	assert.Len(t, split.Destinations, 2)
}

func TestMerge_DestinationCollision(t *testing.T) {
	m := New(tags.Default())

	mustMerge(t, m, []model.Transaction{
		trn(date(2000, 1, 1), "Coffee", posting("expenses:coffee", "4.50 USD", ":fp-1:")),
	})

	// Two incoming postings each soft-match the same committed posting
	// uniquely; committing both would double-apply updates.
	_, err := m.Merge([]model.Transaction{
		trn(date(2000, 1, 1), "Coffee A", posting("expenses:coffee", "4.50 USD", ":fp-x:")),
		trn(date(2000, 1, 1), "Coffee B", posting("expenses:coffee", "4.50 USD", ":fp-y:")),
	})

	var collision *DestinationCollisionError
	require.ErrorAs(t, err, &collision)

	// Neither incoming posting was applied.
	out := m.Build()
	require.Len(t, out, 1)
	assert.Equal(t, []string{"fp-1"}, fingerprints(out[0].Postings[0]))
}

func TestMerge_CandidateTagsStrippedOnRead(t *testing.T) {
	m := New(tags.Default())

	mustMerge(t, m, []model.Transaction{
		trn(date(2000, 1, 1), "Coffee",
			posting("expenses:coffee", "4.50 USD", ":fp-1:candidate-fp-stale:"),
		),
	})

	out := m.Build()
	require.Len(t, out, 1)
	assert.Empty(t, out[0].Postings[0].Comment.TagsWithPrefix("candidate-fp-"))
}

func TestBuild_StableDateOrdering(t *testing.T) {
	m := New(tags.Default())

	mustMerge(t, m, []model.Transaction{
		trn(date(2000, 1, 2), "B", posting("a:b", "1.00 USD", ":fp-1:")),
		trn(date(2000, 1, 1), "A1", posting("a:b", "2.00 USD", ":fp-2:")),
	})
	mustMerge(t, m, []model.Transaction{
		trn(date(2000, 1, 1), "A2", posting("a:b", "3.00 USD", ":fp-3:")),
	})

	out := m.Build()
	require.Len(t, out, 3)
	assert.Equal(t, "A1", out[0].Description)
	assert.Equal(t, "A2", out[1].Description)
	assert.Equal(t, "B", out[2].Description)
}

func TestBuild_Drains(t *testing.T) {
	m := New(tags.Default())
	mustMerge(t, m, []model.Transaction{
		trn(date(2000, 1, 1), "Salary", posting("assets:checking", "100.00 USD", ":fp-1:")),
	})

	require.Len(t, m.Build(), 1)
	assert.Empty(t, m.Build())
}

func TestMerge_CommentUnionOnMerge(t *testing.T) {
	m := New(tags.Default())

	mustMerge(t, m, []model.Transaction{
		trn(date(2000, 1, 1), "Coffee",
			posting("expenses:coffee", "4.50 USD", "first import\nref: old\n:fp-1:"),
		),
	})
	mustMerge(t, m, []model.Transaction{
		trn(date(2000, 1, 1), "Coffee",
			posting("expenses:coffee", "4.50 USD", "second import\nref: new\n:fp-1:"),
		),
	})

	out := m.Build()
	require.Len(t, out, 1)
	c := out[0].Postings[0].Comment
	assert.Equal(t, []string{"first import", "second import"}, c.Lines)
	assert.Equal(t, "new", c.ValueTags["ref"])
}
