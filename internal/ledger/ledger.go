// Package ledger reads and writes the plain-text ledger file format:
// a "YYYY-MM-DD description" header per transaction, followed by
// indented posting lines "account  amount [= balance]" and indented
// "; ..." annotation lines that attach to the preceding posting, or to
// the transaction when no posting has been seen yet.
package ledger

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/reckon-dev/reckon/internal/comment"
	"github.com/reckon-dev/reckon/internal/model"
)

const indent = "    "

var columnGapRe = regexp.MustCompile(`\s{2,}`)

// Read parses all transactions from a ledger text stream.
func Read(r io.Reader) ([]model.Transaction, error) {
	var (
		trns      []model.Transaction
		cur       *model.Transaction
		raw       []string
		toPosting bool
	)

	flushComment := func() {
		if len(raw) == 0 {
			return
		}
		c := comment.Parse(strings.Join(raw, "\n"))
		raw = nil
		if cur == nil {
			return
		}
		if toPosting && len(cur.Postings) > 0 {
			p := &cur.Postings[len(cur.Postings)-1]
			p.Comment = p.Comment.Merge(c)
			return
		}
		cur.Comment = cur.Comment.Merge(c)
	}
	flushTransaction := func() {
		flushComment()
		if cur != nil {
			trns = append(trns, *cur)
			cur = nil
		}
	}

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			continue
		case !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t"):
			flushTransaction()
			t, err := parseHeader(trimmed)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			cur = &t
			toPosting = false
		case strings.HasPrefix(trimmed, ";"):
			raw = append(raw, strings.TrimSpace(strings.TrimPrefix(trimmed, ";")))
		default:
			if cur == nil {
				return nil, fmt.Errorf("line %d: posting before any transaction header", lineNo)
			}
			flushComment()
			p, err := parsePosting(trimmed)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			cur.Postings = append(cur.Postings, p)
			toPosting = true
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}
	flushTransaction()
	return trns, nil
}

// Write renders transactions as ledger text, one blank line between
// transactions. Comments serialize deterministically (sorted flags and
// value-tag keys), so Write o Read is stable.
func Write(w io.Writer, trns []model.Transaction) error {
	bw := bufio.NewWriter(w)
	for i, t := range trns {
		if i > 0 {
			fmt.Fprintln(bw)
		}
		fmt.Fprintf(bw, "%s %s\n", t.DateKey(), t.Description)
		writeComment(bw, t.Comment)
		for _, p := range t.Postings {
			fmt.Fprintf(bw, "%s%s  %s", indent, p.Account, p.Amount)
			if p.Balance != nil {
				fmt.Fprintf(bw, " = %s", p.Balance)
			}
			fmt.Fprintln(bw)
			writeComment(bw, p.Comment)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}
	return nil
}

func writeComment(w io.Writer, c comment.Comment) {
	if c.IsEmpty() {
		return
	}
	for _, line := range strings.Split(c.Format(), "\n") {
		fmt.Fprintf(w, "%s; %s\n", indent, line)
	}
}

func parseHeader(line string) (model.Transaction, error) {
	dateStr, desc, _ := strings.Cut(line, " ")
	date, err := time.Parse(model.DateFormat, dateStr)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", dateStr, err)
	}
	return model.Transaction{Date: date, Description: strings.TrimSpace(desc)}, nil
}

func parsePosting(line string) (model.Posting, error) {
	var p model.Posting

	body, inline, hasInline := strings.Cut(line, " ; ")
	if hasInline {
		p.Comment = comment.Parse(inline)
	}

	parts := columnGapRe.Split(strings.TrimSpace(body), 2)
	if len(parts) != 2 {
		return model.Posting{}, fmt.Errorf("posting %q: expected \"account  amount\"", line)
	}
	p.Account = parts[0]

	amountStr, balanceStr, hasBalance := strings.Cut(parts[1], " = ")
	amount, err := parseAmount(amountStr)
	if err != nil {
		return model.Posting{}, fmt.Errorf("posting %q: %w", line, err)
	}
	p.Amount = amount

	if hasBalance {
		balance, err := parseAmount(balanceStr)
		if err != nil {
			return model.Posting{}, fmt.Errorf("posting %q: balance: %w", line, err)
		}
		p.Balance = &balance
	}
	return p, nil
}

func parseAmount(s string) (model.Amount, error) {
	qty, commodity, _ := strings.Cut(strings.TrimSpace(s), " ")
	q, err := decimal.NewFromString(qty)
	if err != nil {
		return model.Amount{}, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return model.Amount{Quantity: q, Commodity: strings.TrimSpace(commodity)}, nil
}
