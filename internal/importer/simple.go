package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SimpleParser parses the generic "date,description,amount" CSV layout
// many banks offer as a plain export.
type SimpleParser struct{}

const (
	simpleDateFormat = "2006-01-02"
	simpleNumFields  = 3
	simpleColDate    = 0
	simpleColDesc    = 1
	simpleColAmount  = 2
)

// Format returns the parser name.
func (p *SimpleParser) Format() string { return "simple" }

// Parse reads a simple CSV and returns Rows.
func (p *SimpleParser) Parse(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = simpleNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading simple CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var rows []Row
	for i, rec := range records[1:] {
		row, err := parseSimpleRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseSimpleRow(rec []string) (Row, error) {
	date, err := time.Parse(simpleDateFormat, rec[simpleColDate])
	if err != nil {
		return Row{}, fmt.Errorf("parsing date %q: %w", rec[simpleColDate], err)
	}

	amount, err := decimal.NewFromString(rec[simpleColAmount])
	if err != nil {
		return Row{}, fmt.Errorf("parsing amount %q: %w", rec[simpleColAmount], err)
	}

	desc := strings.TrimSpace(rec[simpleColDesc])
	return Row{
		Date:        date,
		Description: desc,
		Amount:      amount,
		Reference:   makeRef("simple", date, desc),
	}, nil
}

// makeRef creates a reference like simple_20250103_GITHUB.
func makeRef(format string, date time.Time, desc string) string {
	prefix := strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, desc)
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	return fmt.Sprintf("%s_%s_%s", format, date.Format("20060102"), prefix)
}
