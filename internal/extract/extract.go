// Package extract locates fields inside loosely-structured notification and
// receipt text. All functions are pure: they take immutable text plus marker
// strings and report a miss with a false second return value instead of an
// error, since receipts legitimately omit fields.
package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// linkPattern matches the first embedded URL in a message body
// (scheme followed by a run of non-whitespace).
var linkPattern = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9+.-]*://\S+`)

// balancePattern matches the fixed balance phrase used by notification
// messages, with an optional currency prefix and thousands separators.
var balancePattern = regexp.MustCompile(`(?i)current\s+balance\s*(?:is|:)?\s*(?:npr|rs\.?|inr|€|\$)?\s*([0-9][0-9,]*(?:\.[0-9]+)?)`)

// Link returns the first URL embedded in the message text. Absence of a
// link is a normal outcome, not a failure.
func Link(text string) (string, bool) {
	match := linkPattern.FindString(text)
	if match == "" {
		return "", false
	}
	return match, true
}

// Balance returns the account balance stated in the message body,
// independent of any receipt document. The phrase being absent or its
// numeric capture failing to parse both report a miss.
func Balance(text string) (decimal.Decimal, bool) {
	groups := balancePattern.FindStringSubmatch(text)
	if groups == nil {
		return decimal.Decimal{}, false
	}
	return Amount(groups[1])
}

// Amount parses a numeric field captured from receipt or message text.
// Thousands separators and common currency sigils are stripped before
// parsing; anything still unparsable reports a miss rather than an error,
// so a malformed number can never leak into aggregation sums.
func Amount(raw string) (decimal.Decimal, bool) {
	cleaned := strings.TrimSpace(raw)
	for _, sigil := range []string{"Rs.", "Rs", "NPR", "INR", "₹", "€", "$"} {
		cleaned = strings.TrimPrefix(cleaned, sigil)
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return decimal.Decimal{}, false
	}
	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return value, true
}

// Between returns the trimmed substring between the first occurrence of
// start and the first occurrence of end at or after it. A missing start
// marker is a miss. A missing end marker is also a miss: a truncated
// anchor never yields a corrupted value.
func Between(text, start, end string) (string, bool) {
	from := strings.Index(text, start)
	if from < 0 {
		return "", false
	}
	rest := text[from+len(start):]
	to := strings.Index(rest, end)
	if to < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:to]), true
}

// After returns the trimmed substring from the end of the first occurrence
// of start to the end of the text.
func After(text, start string) (string, bool) {
	from := strings.Index(text, start)
	if from < 0 {
		return "", false
	}
	return strings.TrimSpace(text[from+len(start):]), true
}

// partyDelimiter is the two-space-prefixed account label that terminates a
// payer or receiver name on receipts that carry account details.
const partyDelimiter = "  Account"

// Party extracts a payer or receiver name: the label must be followed by a
// run of whitespace, and the value runs up to the two-space-prefixed
// "Account" label or, when that is absent, the next line break. The
// fallback accommodates receipts that omit account details.
func Party(text, label string) (string, bool) {
	from := strings.Index(text, label)
	if from < 0 {
		return "", false
	}
	rest := text[from+len(label):]
	if rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
		return "", false
	}

	end := len(rest)
	if i := strings.Index(rest, partyDelimiter); i >= 0 && i < end {
		end = i
	}
	if i := strings.IndexByte(rest, '\n'); i >= 0 && i < end {
		end = i
	}

	value := strings.TrimSpace(rest[:end])
	if value == "" {
		return "", false
	}
	return value, true
}
