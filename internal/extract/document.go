// Package extract implements the heuristic field extractors that turn
// rendered conference pages into typed, partial results. Every extractor is a
// pure function over a parsed Document: no I/O, deterministic for identical
// HTML, and silent on missing data (zero values and empty slices, never
// errors).
//
// Heuristics inside each extractor are ordered from most specific to least,
// and the first acceptable match wins. There is no scoring or voting across
// candidates; ties break on selector/position order so output stays
// deterministic.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document is the shared parsed representation handed to every extractor.
// The body text is flattened once at parse time since several extractors
// pattern-match against it.
type Document struct {
	doc       *goquery.Document
	bodyText  string
	lowerBody string
}

// Parse builds a Document from rendered HTML.
func Parse(html string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	body := doc.Find("body").Text()
	return &Document{
		doc:       doc,
		bodyText:  body,
		lowerBody: strings.ToLower(body),
	}, nil
}

// firstText returns the trimmed text of the first node matching any selector
// in order, with the node's text length inside [minLen, maxLen). The selector
// list order is the tie-break rule.
func (d *Document) firstText(selectors []string, minLen, maxLen int) string {
	for _, sel := range selectors {
		text := strings.TrimSpace(d.doc.Find(sel).First().Text())
		if len(text) > minLen && len(text) < maxLen {
			return text
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
