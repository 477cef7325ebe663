package ingredient

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Grammatical endings typical of Russian adjective forms. A trailing token
// that matches one of these is treated as a descriptive word ("лук репчатый")
// and dropped when deriving the canonical key. This is a heuristic, not a
// parser: nouns that happen to share an ending will be mis-stripped.
var adjectiveSuffixes = []string{
	"ий", "ый", "ой", "ая", "ое", "ее", "ые", "ие",
	"ого", "ему", "ому", "ыми", "ими",
	"ом", "ым", "ых", "их", "ую", "юю", "яя",
}

var (
	parenRe      = regexp.MustCompile(`\([^)]*\)`)
	disallowedRe = regexp.MustCompile(`[^0-9a-zа-я\s-]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// NormalizeName reduces a free-text ingredient name to its lookup key:
// lowercase, ё folded to е, parenthesized asides removed, everything after
// the first of ","/";"/"/" dropped, punctuation stripped, whitespace
// collapsed. An empty result means the name is unnormalizable and callers
// must skip it.
func NormalizeName(value string) string {
	cleaned := strings.ToLower(strings.TrimSpace(value))
	cleaned = strings.ReplaceAll(cleaned, "ё", "е")
	cleaned = parenRe.ReplaceAllString(cleaned, " ")
	if i := strings.IndexAny(cleaned, ",;/"); i >= 0 {
		cleaned = cleaned[:i]
	}
	cleaned = disallowedRe.ReplaceAllString(cleaned, " ")
	cleaned = whitespaceRe.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

func looksLikeAdjective(token string) bool {
	if utf8.RuneCountInString(token) <= 2 {
		return false
	}
	for _, suffix := range adjectiveSuffixes {
		if strings.HasSuffix(token, suffix) {
			return true
		}
	}
	return false
}

// DeriveCanonicalKey collapses a normalized alias to its canonical key: when
// every token after the first looks like an adjective, only the first token
// is kept. Otherwise the alias is returned unchanged.
func DeriveCanonicalKey(normalizedAlias string) string {
	tokens := strings.Fields(normalizedAlias)
	if len(tokens) < 2 {
		return normalizedAlias
	}
	for _, token := range tokens[1:] {
		if !looksLikeAdjective(token) {
			return normalizedAlias
		}
	}
	return tokens[0]
}

// CanonicalNameFor resolves a raw ingredient name to a canonical display
// name, preferring a known alias mapping over the suffix heuristic.
func CanonicalNameFor(value string, aliasMap map[string]string) string {
	normalized := NormalizeName(value)
	if normalized == "" {
		return ""
	}
	if aliasMap != nil {
		if known, ok := aliasMap[normalized]; ok && known != "" {
			return known
		}
	}
	return DeriveCanonicalKey(normalized)
}
