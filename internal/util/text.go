package util

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	bracketCitation = regexp.MustCompile(`\[[0-9,;\s\-–]+\]`)
	yearCitation    = regexp.MustCompile(`\([^()]*\b(?:1[89]|20)\d{2}[a-z]?\)`)
	multiSpace      = regexp.MustCompile(`\s+`)
)

// StripCitations removes inline reference markers such as "[12]", "[3-5]"
// and "(Smith et al., 2020)" before text is compared.
func StripCitations(text string) string {
	text = bracketCitation.ReplaceAllString(text, " ")
	text = yearCitation.ReplaceAllString(text, " ")
	return strings.TrimSpace(multiSpace.ReplaceAllString(text, " "))
}

var stopwords = toSet(`a an the is are was were be been being of in on at to for with by from as
and or that this these those it its has have had do does did not no never nor none neither
than which who whom we our us they their there can will would should could also into over
between about after before during such very other some any all each both only so if but because
while i he she them his her what when where how whether then thus here upon within without per via`)

var negations = toSet(`no not never none neither nor cannot without lack lacks lacked lacking
absent absence fail fails failed failure unable ineffective`)

var contrasts = toSet(`however but although though despite nevertheless whereas contrary conversely nonetheless`)

var hedges = toSet(`may might could possibly perhaps suggest suggests suggested unclear preliminary`)

// Synonym classes folded onto one canonical stem
var canonical = map[string]string{}

// Canonical stems that assert opposite directions
var opposites = map[string]string{
	"decreas": "increas",
	"increas": "decreas",
	"improv":  "worsen",
	"worsen":  "improv",
	"caus":    "prevent",
	"prevent": "caus",
}

func init() {
	classes := map[string]string{
		"decreas":  "reduc lower decreas diminish declin drop lessen attenuat fell fall",
		"increas":  "increas rais elevat boost enhanc rise higher greater",
		"improv":   "improv",
		"worsen":   "worsen impair deteriorat",
		"caus":     "caus induc trigger",
		"prevent":  "prevent protect avert",
		"associat": "associat correlat link relat",
	}
	for canon, members := range classes {
		for _, m := range strings.Fields(members) {
			canonical[m] = canon
		}
	}
}

func toSet(words string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(words) {
		set[w] = true
	}
	return set
}

// Words lowercases text and splits it on anything that is not a letter,
// digit or apostrophe.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// Stem applies a light suffix-stripping stemmer followed by synonym folding
func Stem(word string) string {
	w := strings.Trim(word, "'")
	if len(w) > 3 {
		switch {
		case strings.HasSuffix(w, "ies") && len(w) > 4:
			w = w[:len(w)-3] + "y"
		case strings.HasSuffix(w, "sses"):
			w = w[:len(w)-2]
		case strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") &&
			!strings.HasSuffix(w, "us") && !strings.HasSuffix(w, "is"):
			w = w[:len(w)-1]
		}
		switch {
		case strings.HasSuffix(w, "ing") && len(w)-3 >= 3:
			w = w[:len(w)-3]
		case strings.HasSuffix(w, "ed") && len(w)-2 >= 3:
			w = w[:len(w)-2]
		}
		if strings.HasSuffix(w, "e") && len(w) > 3 {
			w = w[:len(w)-1]
		}
	}
	if c, ok := canonical[w]; ok {
		return c
	}
	return w
}

// Terms returns the stemmed content words of text in order, stopwords removed
func Terms(text string) []string {
	var terms []string
	for _, w := range Words(StripCitations(text)) {
		w = strings.Trim(w, "'")
		if w == "" || stopwords[w] {
			continue
		}
		terms = append(terms, Stem(w))
	}
	return terms
}

// TermSet returns the distinct terms of text
func TermSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range Terms(text) {
		set[t] = true
	}
	return set
}

// IsNegation reports whether a lowercased word negates what follows
func IsNegation(word string) bool {
	return negations[word] || strings.HasSuffix(word, "n't")
}

// IsContrast reports whether a lowercased word marks contrast
func IsContrast(word string) bool { return contrasts[word] }

// IsHedge reports whether a lowercased word weakens an assertion
func IsHedge(word string) bool { return hedges[word] }

// IsStopword reports whether a lowercased word carries no content
func IsStopword(word string) bool { return stopwords[word] }

// Opposite returns the canonical stem asserting the opposite direction
func Opposite(stem string) (string, bool) {
	o, ok := opposites[stem]
	return o, ok
}

// Jaccard returns the word-overlap ratio of two term sets
func Jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
