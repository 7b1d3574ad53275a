package ingest

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/veracity/internal/model"
)

var (
	doiPattern      = regexp.MustCompile(`\b10\.\d{4,9}/[^\s"'<>]+`)
	abstractPattern = regexp.MustCompile(`(?is)\b(?:abstract|summary)\s*[:\-.]?\s*(.+?)(?:\n\s*\n|\n\s*(?:introduction|keywords|background|1\.)|\z)`)
	authorsLine     = regexp.MustCompile(`(?i)^(?:authors?|by)\s*[:\-]?\s+(.+)$`)
	honorific       = regexp.MustCompile(`(?i)^(?:dr|prof|mr|ms|mrs)\.?\s+`)
	degree          = regexp.MustCompile(`(?i)\s+(?:ph\.?d\.?|m\.?d\.?|jr\.?|sr\.?)$`)
)

const maxAuthors = 10

// TextExtractor reads plain text and markdown
type TextExtractor struct{}

// NewTextExtractor creates the plain-text extractor
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Name returns the extractor name
func (t *TextExtractor) Name() string { return "text" }

// CanHandle accepts anything valid UTF-8
func (t *TextExtractor) CanHandle(src model.Source, head []byte) bool {
	return utf8.Valid(head)
}

// Extract takes the title from the first title-like line, authors from an
// "Authors:" line, the DOI and abstract from the body
func (t *TextExtractor) Extract(raw []byte, src model.Source) (*model.ExtractedText, error) {
	text := strings.ReplaceAll(strings.ToValidUTF8(string(raw), ""), "\r\n", "\n")

	var authors []string
	for _, line := range strings.SplitN(text, "\n", 12) {
		if m := authorsLine.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			authors = ParseAuthors(m[1])
			break
		}
	}

	return &model.ExtractedText{
		Text:     text,
		Title:    ExtractTitle(text),
		Authors:  authors,
		Abstract: ExtractAbstract(text),
		DOI:      FindDOI(text),
		FileType: "txt",
	}, nil
}

// ExtractTitle returns the first line that looks like a title
func ExtractTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "# "))
		if len(line) <= 10 || len(line) >= 200 || len(strings.Fields(line)) <= 2 {
			continue
		}
		if line == strings.ToUpper(line) {
			continue
		}
		return line
	}
	return ""
}

// ExtractAbstract returns the paragraph after an "Abstract" heading
func ExtractAbstract(text string) string {
	m := abstractPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	abstract := strings.Join(strings.Fields(m[1]), " ")
	if len(abstract) < 40 {
		return ""
	}
	return abstract
}

// FindDOI returns the first DOI in text
func FindDOI(text string) string {
	doi := doiPattern.FindString(text)
	return strings.TrimRight(doi, ".,;)]")
}

// ParseAuthors splits an author list on common separators and strips
// honorifics and degrees
func ParseAuthors(s string) []string {
	parts := []string{s}
	for _, sep := range []string{";", ",", " and ", " & ", "\n"} {
		var next []string
		for _, p := range parts {
			next = append(next, strings.Split(p, sep)...)
		}
		parts = next
	}

	var authors []string
	for _, p := range parts {
		name := strings.TrimSpace(p)
		name = honorific.ReplaceAllString(name, "")
		name = degree.ReplaceAllString(name, "")
		if len(name) > 2 {
			authors = append(authors, name)
		}
		if len(authors) == maxAuthors {
			break
		}
	}
	return authors
}
