// Package normalize turns free-text product names into comparable keys.
//
// The offline matcher and the page decorator both key the affiliate map by
// Name, so this package is the only place the rules live.
package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinKeyLength is the shortest expanded key worth matching on.
const MinKeyLength = 3

// Package-level compiled regex patterns for performance
var (
	parentheticalRegex = regexp.MustCompile(`\s*\([^)]*\)`)
	yearTokenRegex     = regexp.MustCompile(`^(?:19|20)\d{2}$`)
	wordDigitsRegex    = regexp.MustCompile(`(\w+)\s+(\d+)`)
	digitRangeRegex    = regexp.MustCompile(`(\d+)-(\d+)`)
	whitespaceRegex    = regexp.MustCompile(`\s+`)
)

var scandinavianFolder = strings.NewReplacer("å", "a", "ä", "a", "ö", "o")

var localeCodes = map[string]bool{
	"se": true, "eu": true, "uk": true, "us": true,
}

// Name canonicalizes a product name:
//  1. lowercase and trim
//  2. fold å/ä to a and ö to o
//  3. drop parenthetical groups such as "(2023)" or "(EU)"
//  4. drop trailing locale codes and trailing year tokens
//  5. collapse an immediately repeated word ("samsung samsung" -> "samsung")
//  6. collapse whitespace
//
// Name is idempotent and returns "" for empty input.
func Name(raw string) string {
	if raw == "" {
		return ""
	}

	s := strings.TrimSpace(strings.ToLower(raw))
	s = scandinavianFolder.Replace(s)
	s = parentheticalRegex.ReplaceAllString(s, "")

	tokens := strings.Fields(s)
	tokens = stripTrailingNoise(tokens)
	tokens = collapseRepeats(tokens)

	return strings.Join(tokens, " ")
}

// stripTrailingNoise removes locale codes and release years from the end of
// the name until a real token is reached.
func stripTrailingNoise(tokens []string) []string {
	for len(tokens) > 0 {
		last := tokens[len(tokens)-1]
		if !localeCodes[last] && !yearTokenRegex.MatchString(last) {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

// collapseRepeats drops a token equal to the one before it.
func collapseRepeats(tokens []string) []string {
	out := tokens[:0]
	for i, t := range tokens {
		if i > 0 && t == tokens[i-1] {
			continue
		}
		out = append(out, t)
	}
	return out
}

// ExpandKeys returns the normalized name plus the tokenization variants feeds
// tend to use for model numbers ("iphone 15" / "iphone15", "4070-ti" /
// "4070 ti"). Order is stable, duplicates are removed, and keys shorter than
// MinKeyLength are dropped.
func ExpandKeys(name string) []string {
	normalized := Name(name)
	if normalized == "" {
		return nil
	}

	variants := []string{
		normalized,
		strings.ReplaceAll(normalized, "-", " "),
		whitespaceRegex.ReplaceAllString(normalized, ""),
		wordDigitsRegex.ReplaceAllString(normalized, "${1}${2}"),
		digitRangeRegex.ReplaceAllString(normalized, "${1} ${2}"),
	}

	keys := make([]string, 0, len(variants))
	seen := make(map[string]bool, len(variants))
	for _, k := range variants {
		if seen[k] || utf8.RuneCountInString(k) < MinKeyLength {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}
