package certificate

import (
	"strings"
	"unicode"
)

// IMONumberLength is the number of digits in an IMO ship identification number.
const IMONumberLength = 7

// NormalizeIMO strips every non-digit character and returns the remaining
// digits when exactly seven remain. Anything else is discarded.
func NormalizeIMO(raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", false
	}

	var b strings.Builder
	for _, r := range raw {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}

	digits := b.String()
	if len(digits) != IMONumberLength {
		log := componentLog()
		log.Warn().
			Str("raw", raw).
			Int("digits", len(digits)).
			Msg("Discarding IMO number without exactly 7 digits")
		return "", false
	}
	return digits, true
}
