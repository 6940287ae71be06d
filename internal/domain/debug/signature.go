package debug

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Signature is the normalized identifier for an error class, used for
// pattern matching across attempts. Normalization tolerates cosmetic
// differences such as file paths, line numbers, and hex addresses.
type Signature struct {
	Category string `json:"category"` // lint, typecheck, test, build, runtime
	Message  string `json:"message"`  // normalized message
}

var (
	pathPattern = regexp.MustCompile(`(?:[A-Za-z]:)?(?:[./\\][\w.-]+)+`)
	numPattern  = regexp.MustCompile(`\b(?:0x[0-9a-fA-F]+|\d+)\b`)
	wsPattern   = regexp.MustCompile(`\s+`)
)

// NewSignature builds a signature from a raw error message
func NewSignature(category, rawMessage string) Signature {
	return Signature{
		Category: strings.ToLower(strings.TrimSpace(category)),
		Message:  NormalizeMessage(rawMessage),
	}
}

// NormalizeMessage canonicalizes an error message: NFC unicode
// normalization, lowercase, paths and numbers replaced by placeholders,
// whitespace collapsed.
func NormalizeMessage(msg string) string {
	s := norm.NFC.String(msg)
	s = strings.ToLower(s)
	s = pathPattern.ReplaceAllString(s, "<path>")
	s = numPattern.ReplaceAllString(s, "<n>")
	s = wsPattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Key returns a stable string form used as the cache key
func (s Signature) Key() string {
	return s.Category + ":" + s.Message
}

// Tokens splits the normalized message into comparison tokens
func (s Signature) Tokens() []string {
	return strings.Fields(s.Message)
}

// Similarity returns the token Jaccard index between two signatures.
// Different categories never match.
func (s Signature) Similarity(other Signature) float64 {
	if s.Category != other.Category {
		return 0
	}
	a := s.Tokens()
	b := other.Tokens()
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	set := make(map[string]bool, len(a))
	for _, tok := range a {
		set[tok] = true
	}
	inter := 0
	union := len(set)
	seen := make(map[string]bool, len(b))
	for _, tok := range b {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		if set[tok] {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// MatchThreshold is the similarity above which two signatures are
// treated as the same error class
const MatchThreshold = 0.8

// Matches reports whether the signatures identify the same error class
func (s Signature) Matches(other Signature) bool {
	return s.Similarity(other) >= MatchThreshold
}
