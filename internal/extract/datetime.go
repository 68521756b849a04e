package extract

import (
	"fmt"
	"regexp"

	"estratto/internal/core"
)

// Receipts state the payment moment as a slash-delimited date followed by a
// clock time, e.g. "3/4/2024, 10:15:00 AM". The date and the clock are
// matched independently because some format revisions drop the comma.
var (
	slashDatePattern = regexp.MustCompile(`(\d{1,3})/(\d{1,3})/(\d{2,4})`)
	clockPattern     = regexp.MustCompile(`\d{1,2}:\d{2}:\d{2}\s*[AP]M`)
)

// NormalizeDateTime converts the raw payment date/time field into the
// canonical YYYY-MM-DD date plus the clock time as written. The first
// slash component is taken as the month and the second as the day; the
// upstream document format never states which convention it uses, so the
// documented ordering is preserved rather than guessed. When the string
// does not match the expected shape, both results are nil and a single
// non-fatal error describes why.
func NormalizeDateTime(raw string) (*core.Date, *string, error) {
	groups := slashDatePattern.FindStringSubmatch(raw)
	if groups == nil {
		return nil, nil, fmt.Errorf("unrecognized date shape %q", raw)
	}

	month := atoiDigits(groups[1])
	day := atoiDigits(groups[2])
	year := atoiDigits(groups[3])
	if year < 100 {
		year += 2000
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil, nil, fmt.Errorf("date components out of range in %q", raw)
	}

	clock := clockPattern.FindString(raw)
	if clock == "" {
		return nil, nil, fmt.Errorf("missing clock time in %q", raw)
	}

	date := core.NewDate(year, month, day)
	return &date, &clock, nil
}

// atoiDigits parses a short run of ASCII digits already validated by the
// surrounding regexp.
func atoiDigits(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}
