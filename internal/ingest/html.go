package ingest

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/veracity/internal/model"
)

// Elements whose text is never part of the document
var skipped = map[string]bool{
	"script": true, "style": true, "noscript": true, "iframe": true, "template": true,
	"nav": true, "header": true, "footer": true, "aside": true, "form": true,
}

// Elements that end a paragraph
var blocks = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "ul": true, "ol": true, "table": true, "tr": true, "blockquote": true,
	"figcaption": true, "pre": true, "br": true, "dd": true, "dt": true,
}

// HTMLExtractor reads article pages, preferring Highwire/Dublin Core
// citation metadata that publishers embed
type HTMLExtractor struct{}

// NewHTMLExtractor creates the HTML extractor
func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{}
}

// Name returns the extractor name
func (h *HTMLExtractor) Name() string { return "html" }

// CanHandle matches by extension, MIME type or markup sniffing
func (h *HTMLExtractor) CanHandle(src model.Source, head []byte) bool {
	switch extension(src) {
	case ".html", ".htm", ".xhtml":
		return true
	}
	switch mediaType(src, head) {
	case "text/html", "application/xhtml+xml":
		return true
	}
	lower := bytes.ToLower(bytes.TrimSpace(head))
	return bytes.HasPrefix(lower, []byte("<!doctype html")) || bytes.HasPrefix(lower, []byte("<html"))
}

// Extract parses the page and collects text and metadata
func (h *HTMLExtractor) Extract(raw []byte, src model.Source) (*model.ExtractedText, error) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	meta := collectMeta(doc)

	root := findFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && (n.Data == "article" || n.Data == "main")
	})
	if root == nil {
		root = doc
	}
	text := extractVisibleText(root)

	out := &model.ExtractedText{
		Text:     text,
		Title:    firstNonEmpty(meta["citation_title"], meta["dc.title"], meta["og:title"], elementText(doc, "title"), elementText(doc, "h1")),
		Abstract: firstNonEmpty(meta["citation_abstract"], meta["dc.description"]),
		DOI:      firstNonEmpty(strings.TrimPrefix(meta["citation_doi"], "doi:"), doiFromIdentifier(meta["dc.identifier"])),
		URL:      src.URL,
		FileType: "html",
	}

	if authors := metaAll(doc, "citation_author"); len(authors) > 0 {
		out.Authors = authors
	} else if a := firstNonEmpty(meta["author"], meta["dc.creator"], meta["article:author"]); a != "" {
		out.Authors = ParseAuthors(a)
	}

	if out.DOI == "" {
		out.DOI = doiFromLinks(doc, src.URL)
	}
	if out.DOI == "" {
		out.DOI = FindDOI(text)
	}
	if out.Abstract == "" {
		out.Abstract = ExtractAbstract(text)
	}

	return out, nil
}

// extractVisibleText extracts text nodes, skipping scripts, navigation and
// chrome, and separating block elements with blank lines
func extractVisibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipped[n.Data] {
			return
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && blocks[n.Data] {
			buf.WriteString("\n\n")
		}
	}

	walk(n)

	// Collapse runs of blank lines left by nested blocks
	var paras []string
	for _, p := range strings.Split(buf.String(), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paras = append(paras, p)
		}
	}
	return strings.Join(paras, "\n\n")
}

// collectMeta maps lowercased meta name/property to the first content seen
func collectMeta(doc *html.Node) map[string]string {
	meta := make(map[string]string)
	for _, n := range findAll(doc, isElement("meta")) {
		key := strings.ToLower(firstNonEmpty(attr(n, "name"), attr(n, "property")))
		content := strings.TrimSpace(attr(n, "content"))
		if key == "" || content == "" {
			continue
		}
		if _, exists := meta[key]; !exists {
			meta[key] = content
		}
	}
	return meta
}

// metaAll returns every content value for a repeated meta name
func metaAll(doc *html.Node, name string) []string {
	var values []string
	for _, n := range findAll(doc, isElement("meta")) {
		if strings.EqualFold(attr(n, "name"), name) {
			if v := strings.TrimSpace(attr(n, "content")); v != "" {
				values = append(values, v)
			}
		}
	}
	return values
}

func doiFromIdentifier(id string) string {
	if id == "" {
		return ""
	}
	return FindDOI(id)
}

// doiFromLinks finds the first link to a DOI resolver
func doiFromLinks(doc *html.Node, sourceURL string) string {
	base, _ := url.Parse(sourceURL)
	for _, a := range findAll(doc, isElement("a")) {
		href := resolveURL(base, strings.TrimSpace(attr(a, "href")))
		if href == "" {
			continue
		}
		u, err := url.Parse(href)
		if err != nil {
			continue
		}
		if host := strings.ToLower(u.Hostname()); host == "doi.org" || host == "dx.doi.org" {
			if doi := FindDOI(strings.TrimPrefix(u.Path, "/")); doi != "" {
				return doi
			}
		}
	}
	return ""
}

// resolveURL resolves href against base, keeping only http(s) links
func resolveURL(base *url.URL, href string) string {
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		parsed = base.ResolveReference(parsed)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	return parsed.String()
}

func elementText(doc *html.Node, tag string) string {
	n := findFirst(doc, isElement(tag))
	if n == nil {
		return ""
	}
	return strings.Join(strings.Fields(extractVisibleText(n)), " ")
}

func isElement(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// findAll finds all nodes matching a predicate
func findAll(n *html.Node, predicate func(*html.Node) bool) []*html.Node {
	var results []*html.Node

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if predicate(node) {
			results = append(results, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return results
}

// findFirst finds the first node matching a predicate
func findFirst(n *html.Node, predicate func(*html.Node) bool) *html.Node {
	if predicate(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, predicate); found != nil {
			return found
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
