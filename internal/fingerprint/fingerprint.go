// Package fingerprint derives content identities for cards so that repeated
// imports of the same markdown entry map onto the same stored card.
package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/recallkit/recallkit/internal/parser"
)

// Normalize concatenates the entry's content after cleaning each part.
// It trims whitespace, lowercases, and normalizes line endings for each field
// before joining them.
func Normalize(entry parser.Entry) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	q := normalizePart(entry.Question)
	a := normalizePart(entry.Answer)
	c := normalizePart(entry.Context)

	// We join with a newline to ensure separation between fields,
	// preventing accidental joining of words. e.g. "question" and "answer"
	// becoming "questionanswer".
	return strings.Join([]string{q, a, c}, "\n")
}

// Hash takes an entry, normalizes it, and returns its SHA-256 hash as a hex string.
func Hash(entry parser.Entry) string {
	normalized := Normalize(entry)
	hashBytes := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", hashBytes)
}
