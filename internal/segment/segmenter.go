package segment

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/veracity/internal/model"
)

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// Tokens that end with a period without ending a sentence. Compared lowercased
// against the word preceding the dot, without the dot itself.
var abbreviations = map[string]bool{
	"al": true, "e.g": true, "i.e": true, "cf": true, "vs": true,
	"fig": true, "figs": true, "tab": true, "eq": true, "eqs": true, "ref": true,
	"refs": true, "sec": true, "ch": true, "vol": true, "nos": true,
	"pp": true, "p": true, "approx": true, "ca": true, "resp": true, "dr": true,
	"mr": true, "mrs": true, "ms": true, "prof": true, "st": true, "jr": true,
	"sr": true, "inc": true, "ltd": true, "co": true, "dept": true, "univ": true,
	"u.s": true, "u.k": true, "ph.d": true, "m.d": true, "viz": true, "suppl": true,
}

const closers = `"')]`

// Segmenter splits document text into indexed sentence units
type Segmenter struct {
	minWords int
}

// NewSegmenter creates a segmenter that drops sentences shorter than minWords
func NewSegmenter(minWords int) *Segmenter {
	if minWords < 1 {
		minWords = 1
	}
	return &Segmenter{minWords: minWords}
}

// Split returns retained sentences with contiguous zero-based indices.
// The same text always yields the same sentences and indices.
func (s *Segmenter) Split(text string) []model.Sentence {
	var sentences []model.Sentence

	for _, para := range paragraphBreak.Split(text, -1) {
		para = strings.Join(strings.Fields(para), " ")
		start := 0

		for i := 0; i < len(para); i++ {
			c := para[i]
			if c != '.' && c != '!' && c != '?' {
				continue
			}

			end := i + 1
			for end < len(para) && strings.IndexByte(closers, para[end]) >= 0 {
				end++
			}
			if end < len(para) && para[end] != ' ' {
				continue // "3.5", "e.g.", "..." mid-run
			}
			if c == '.' && !isBoundary(para, start, i, end) {
				continue
			}

			sentences = s.appendSentence(sentences, para[start:end])
			start = end
			i = end - 1
		}

		if start < len(para) {
			sentences = s.appendSentence(sentences, para[start:])
		}
	}

	return sentences
}

func (s *Segmenter) appendSentence(sentences []model.Sentence, raw string) []model.Sentence {
	text := strings.TrimSpace(raw)
	words := len(strings.Fields(text))
	if words < s.minWords {
		return sentences
	}
	return append(sentences, model.Sentence{
		Text:      text,
		Index:     len(sentences),
		WordCount: words,
	})
}

// isBoundary decides whether the period at dot closes a sentence
func isBoundary(para string, start, dot, end int) bool {
	wordStart := strings.LastIndexByte(para[start:dot], ' ')
	if wordStart < 0 {
		wordStart = start
	} else {
		wordStart += start + 1
	}
	word := strings.TrimLeft(para[wordStart:dot], `"'([`)

	if abbreviations[strings.ToLower(word)] {
		return false
	}

	// Initials such as "J. Smith"
	if r, size := utf8.DecodeRuneInString(word); size == len(word) && unicode.IsUpper(r) {
		return false
	}

	// A lowercase continuation means the period was not terminal
	next := strings.TrimLeft(para[end:], " ")
	if r, _ := utf8.DecodeRuneInString(next); unicode.IsLower(r) {
		return false
	}

	return true
}

// WordCount counts whitespace-separated words
func WordCount(text string) int {
	return len(strings.Fields(text))
}
