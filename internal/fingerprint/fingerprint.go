// Package fingerprint derives stable cache keys for karaoke works.
//
// A fingerprint identifies a (title, artist, quality) triple independent of
// letter case and surrounding whitespace, so repeated requests for the same
// song land on the same cache entry.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
)

// fieldSeparator keeps ("ab","c") and ("a","bc") from colliding.
const fieldSeparator = "\x1f"

var folder = cases.Fold()

// Key returns the hex fingerprint for a work at a given acquisition quality.
func Key(title, artist, quality string) string {
	parts := []string{
		normalize(title),
		normalize(artist),
		normalize(quality),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, fieldSeparator)))
	return hex.EncodeToString(sum[:16])
}

func normalize(value string) string {
	return folder.String(strings.Join(strings.Fields(value), " "))
}
