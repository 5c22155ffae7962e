// Package fingerprint identifies narratives for the result cache: an exact
// content fingerprint and a bag-of-words signature for near-duplicate lookup.
package fingerprint

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
)

// DefaultThreshold is the near-duplicate cut-off: similarity strictly greater
// than this value counts as a cache hit
const DefaultThreshold = 0.70

// MinTokenLength is the minimum rune length of a signature token
const MinTokenLength = 4

// ID is a deterministic content fingerprint
type ID string

// Fingerprint hashes the normalized text. Identical normalized text always
// yields the same ID; the hash is order sensitive and not cryptographic.
func Fingerprint(text string) ID {
	sum := xxhash.Sum64String(Normalize(text))
	return ID("fp_" + leftPad(strconv.FormatUint(sum, 16), 16))
}

// Normalize lowercases the text, trims it and collapses whitespace runs
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func leftPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// Set is an unordered set of signature tokens
type Set map[string]struct{}

// NewSet builds a set from tokens
func NewSet(tokens ...string) Set {
	s := make(Set, len(tokens))
	for _, t := range tokens {
		s[t] = struct{}{}
	}
	return s
}

// Sorted returns the tokens in lexical order
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Signature extracts the distinct lowercase word tokens of at least
// MinTokenLength runes
func Signature(text string) Set {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	sig := make(Set, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) >= MinTokenLength {
			sig[w] = struct{}{}
		}
	}
	return sig
}

// Similarity is |A∩B| / max(|A|,|B|); the denominator is the larger set, not
// the union. Two empty sets score 0.
func Similarity(a, b Set) float64 {
	larger := len(a)
	if len(b) > larger {
		larger = len(b)
	}
	if larger == 0 {
		return 0
	}

	small, big := a, b
	if len(small) > len(big) {
		small, big = big, small
	}

	shared := 0
	for t := range small {
		if _, ok := big[t]; ok {
			shared++
		}
	}
	return float64(shared) / float64(larger)
}
