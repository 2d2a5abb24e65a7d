// Package lang holds the supported-language table and resolves free-form
// language references ("german", "Deutsch please", "gernam") to language
// codes.
//
// Resolution runs in three stages: exact code match, exact name match,
// then fuzzy name match combining Double Metaphone phonetic encoding with
// Jaro-Winkler similarity. Language names arrive from both typed commands
// and recognised speech, so the matcher has to tolerate misspellings and
// mishearings alike.
//
// The table is read-only after package init; everything here is safe for
// concurrent use.
package lang

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// Language is one supported translation language.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// supported is the translation model's language set.
var supported = []Language{
	{"ar", "Arabic"}, {"bn", "Bengali"}, {"bg", "Bulgarian"},
	{"ca", "Catalan"}, {"zh", "Chinese"}, {"hr", "Croatian"},
	{"cs", "Czech"}, {"da", "Danish"}, {"nl", "Dutch"},
	{"en", "English"}, {"et", "Estonian"}, {"fi", "Finnish"},
	{"fr", "French"}, {"de", "German"}, {"el", "Greek"},
	{"gu", "Gujarati"}, {"he", "Hebrew"}, {"hi", "Hindi"},
	{"hu", "Hungarian"}, {"id", "Indonesian"}, {"it", "Italian"},
	{"ja", "Japanese"}, {"kn", "Kannada"}, {"ko", "Korean"},
	{"lv", "Latvian"}, {"lt", "Lithuanian"}, {"mk", "Macedonian"},
	{"ms", "Malay"}, {"ml", "Malayalam"}, {"mr", "Marathi"},
	{"no", "Norwegian"}, {"fa", "Persian"}, {"pl", "Polish"},
	{"pt", "Portuguese"}, {"pa", "Punjabi"}, {"ro", "Romanian"},
	{"ru", "Russian"}, {"sr", "Serbian"}, {"sk", "Slovak"},
	{"sl", "Slovenian"}, {"es", "Spanish"}, {"sv", "Swedish"},
	{"ta", "Tamil"}, {"te", "Telugu"}, {"th", "Thai"},
	{"tr", "Turkish"}, {"uk", "Ukrainian"}, {"ur", "Urdu"},
	{"vi", "Vietnamese"},
}

var byCode = func() map[string]Language {
	m := make(map[string]Language, len(supported))
	for _, l := range supported {
		m[l.Code] = l
	}
	return m
}()

// fuzzyThreshold is the minimum Jaro-Winkler score for a fuzzy name match.
// Below this, Resolve reports no match rather than guessing.
const fuzzyThreshold = 0.80

// Supported returns the full language table in stable order. The caller
// must not mutate the returned slice.
func Supported() []Language {
	return supported
}

// Name returns the English name for a language code, or "" when the code
// is not in the table.
func Name(code string) string {
	return byCode[strings.ToLower(strings.TrimSpace(code))].Name
}

// Valid reports whether code is a supported language code.
func Valid(code string) bool {
	_, ok := byCode[strings.ToLower(strings.TrimSpace(code))]
	return ok
}

// Resolve maps a free-form language reference to its code. Input may be a
// code ("de"), an exact name ("German", any case), or an approximate name
// ("germn", "jermen"). Returns the code and true, or "" and false when
// nothing matches confidently.
func Resolve(input string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(input))
	if needle == "" {
		return "", false
	}

	if _, ok := byCode[needle]; ok {
		return needle, true
	}
	for _, l := range supported {
		if strings.ToLower(l.Name) == needle {
			return l.Code, true
		}
	}

	// Fuzzy stage: phonetic overlap qualifies a candidate, Jaro-Winkler
	// ranks it. A phonetic hit lowers the required similarity slightly
	// because it already confirms the name sounds right.
	np, ns := matchr.DoubleMetaphone(needle)
	var bestCode string
	var bestScore float64
	for _, l := range supported {
		name := strings.ToLower(l.Name)
		score := matchr.JaroWinkler(needle, name, false)

		cp, cs := matchr.DoubleMetaphone(name)
		phonetic := np != "" && (np == cp || np == cs) || ns != "" && (ns == cp || ns == cs)
		if phonetic {
			score += 0.05
		}

		if score > bestScore {
			bestScore = score
			bestCode = l.Code
		}
	}
	if bestScore >= fuzzyThreshold {
		return bestCode, true
	}
	return "", false
}
