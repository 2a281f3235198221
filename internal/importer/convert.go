package importer

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"github.com/reckon-dev/reckon/internal/comment"
	"github.com/reckon-dev/reckon/internal/config"
	"github.com/reckon-dev/reckon/internal/model"
	"github.com/reckon-dev/reckon/internal/tags"
)

// UnknownAccount is the placeholder for the uncategorized side of an
// imported transaction, pending human classification.
const UnknownAccount = "assets:unknown"

// Converter turns parsed bank rows into balanced two-posting ledger
// transactions carrying deterministic fingerprints, so re-importing the
// same export merges cleanly instead of duplicating.
type Converter struct {
	src  config.Source
	tags tags.Config
	seen map[string]int
}

// NewConverter creates a Converter for one bank source.
func NewConverter(src config.Source, cfg tags.Config) *Converter {
	return &Converter{src: src, tags: cfg, seen: make(map[string]int)}
}

// Convert builds one transaction per row: the bank account posting and
// an UnknownAccount counter posting marked for classification. Each
// posting gets its own fingerprint.
func (c *Converter) Convert(rows []Row) []model.Transaction {
	trns := make([]model.Transaction, 0, len(rows))
	for _, row := range rows {
		key := row.Date.Format(model.DateFormat) + "|" + row.Amount.String() + "|" + row.Description
		occurrence := c.seen[key]
		c.seen[key]++

		var bankComment comment.Comment
		bankComment.AddTag(c.fingerprint(key, occurrence, "bank"))
		if row.Reference != "" {
			bankComment.SetValueTag("ref", row.Reference)
		}

		var counterComment comment.Comment
		counterComment.AddTag(c.fingerprint(key, occurrence, "counter"))
		counterComment.AddTag(c.tags.UnknownAccount)

		trns = append(trns, model.Transaction{
			Date:        row.Date,
			Description: row.Description,
			Postings: []model.Posting{
				{
					Account: c.src.Account,
					Amount:  model.Amount{Quantity: row.Amount, Commodity: c.src.Commodity},
					Comment: bankComment,
				},
				{
					Account: UnknownAccount,
					Amount:  model.Amount{Quantity: row.Amount.Neg(), Commodity: c.src.Commodity},
					Comment: counterComment,
				},
			},
		})
	}
	return trns
}

// fingerprint derives a stable identity tag from the source name, the
// row content, the occurrence counter (identical rows in one export are
// distinct entries), and the posting leg.
func (c *Converter) fingerprint(key string, occurrence int, leg string) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s|%s|%d|%s", c.src.Name, key, occurrence, leg)))
	return c.tags.FingerprintPrefix + c.src.Name + "-" + hex.EncodeToString(sum[:])[:12]
}
