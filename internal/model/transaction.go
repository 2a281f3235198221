package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/reckon-dev/reckon/internal/comment"
)

// DateFormat is the canonical rendering of transaction dates.
const DateFormat = "2006-01-02"

// Amount is a signed decimal quantity of one commodity.
type Amount struct {
	Quantity  decimal.Decimal
	Commodity string
}

// Equal reports whether two amounts have the same quantity and commodity.
func (a Amount) Equal(b Amount) bool {
	return a.Commodity == b.Commodity && a.Quantity.Equal(b.Quantity)
}

// String renders "100.00 USD", or just the quantity for a bare amount.
func (a Amount) String() string {
	if a.Commodity == "" {
		return a.Quantity.String()
	}
	return a.Quantity.String() + " " + a.Commodity
}

// Posting is one leg of a double-entry transaction.
type Posting struct {
	Account string
	Amount  Amount
	Balance *Amount // asserted account balance after this posting, nil if none
	Comment comment.Comment
}

// Clone returns a deep copy of the posting.
func (p Posting) Clone() Posting {
	out := p
	if p.Balance != nil {
		b := *p.Balance
		out.Balance = &b
	}
	out.Comment = p.Comment.Clone()
	return out
}

// String renders the posting on one line, for error messages and logs.
func (p Posting) String() string {
	var sb strings.Builder
	sb.WriteString(p.Account)
	sb.WriteString("  ")
	sb.WriteString(p.Amount.String())
	if p.Balance != nil {
		sb.WriteString(" = ")
		sb.WriteString(p.Balance.String())
	}
	if !p.Comment.IsEmpty() {
		sb.WriteString(" ; ")
		sb.WriteString(strings.ReplaceAll(p.Comment.Format(), "\n", "; "))
	}
	return sb.String()
}

// Transaction is a dated set of postings with a description.
type Transaction struct {
	Date        time.Time
	Description string
	Comment     comment.Comment
	Postings    []Posting
}

// DateKey returns the transaction date in canonical form, for indexing.
func (t Transaction) DateKey() string {
	return t.Date.Format(DateFormat)
}

// Clone returns a deep copy of the transaction and all its postings.
func (t Transaction) Clone() Transaction {
	out := t
	out.Comment = t.Comment.Clone()
	out.Postings = make([]Posting, len(t.Postings))
	for i, p := range t.Postings {
		out.Postings[i] = p.Clone()
	}
	return out
}

// String renders the transaction header line, for error messages.
func (t Transaction) String() string {
	return t.DateKey() + " " + t.Description
}

// MustAmount parses "100.00 USD" or "100.00" into an Amount, panicking on
// malformed input. Intended for tests and importer-internal constants.
func MustAmount(s string) Amount {
	qty, commodity, _ := strings.Cut(strings.TrimSpace(s), " ")
	q, err := decimal.NewFromString(qty)
	if err != nil {
		panic("bad amount " + s + ": " + err.Error())
	}
	return Amount{Quantity: q, Commodity: strings.TrimSpace(commodity)}
}
