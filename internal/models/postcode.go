package models

import (
	"fmt"
	"regexp"
	"strings"
)

// postcodePattern matches UK postcodes: 1-2 letters, 1-2 digits, optional
// letter, then a digit and two letters. The internal space is optional and
// matching is done on the uppercased input.
var postcodePattern = regexp.MustCompile(`^[A-Z]{1,2}[0-9][A-Z0-9]?\s?[0-9][A-Z]{2}$`)

// PostcodeQuery is a validated UK postcode. It is created once at request
// entry and is immutable for the rest of the aggregation run.
type PostcodeQuery struct {
	compact string
}

// ParsePostcode validates and normalizes a raw postcode string. The input is
// trimmed and uppercased; internal whitespace is tolerated in any amount.
func ParsePostcode(raw string) (PostcodeQuery, error) {
	cleaned := strings.ToUpper(strings.TrimSpace(raw))
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if !postcodePattern.MatchString(cleaned) {
		return PostcodeQuery{}, fmt.Errorf("invalid UK postcode format: %q", raw)
	}
	return PostcodeQuery{compact: strings.ReplaceAll(cleaned, " ", "")}, nil
}

// Compact returns the postcode without its internal space, e.g. "SW1A0AA".
func (p PostcodeQuery) Compact() string {
	return p.compact
}

// String returns the canonical spaced form, e.g. "SW1A 0AA". The inward code
// is always the last three characters.
func (p PostcodeQuery) String() string {
	if len(p.compact) < 4 {
		return p.compact
	}
	split := len(p.compact) - 3
	return p.compact[:split] + " " + p.compact[split:]
}

// IsZero reports whether the query holds no postcode.
func (p PostcodeQuery) IsZero() bool {
	return p.compact == ""
}
