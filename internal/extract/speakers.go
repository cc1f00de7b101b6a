package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Speaker is one extracted speaker entry. Name is always set; Title and
// Company are empty when not found.
type Speaker struct {
	Name    string
	Title   string
	Company string
}

// Dedicated speaker-section selectors, tried before the generic card/list
// fallback.
var speakerSelectors = []string{
	`[class*="speaker"]`,
	`[class*="presenter"]`,
	`[id*="speaker"]`,
	`[id*="presenter"]`,
	".speakers",
	".presenters",
	`section[class*="speaker"]`,
}

const speakerFallbackSelector = `[class*="card"], [class*="item"], [class*="person"], li, .grid > div`

var speakerNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`),
	regexp.MustCompile(`([A-Z][a-z]+(?:\s+[A-Z]\.?\s*)?[A-Z][a-z]+)`),
}

var (
	speakerTitlePattern   = regexp.MustCompile(`(?i)(?:title|position|role):\s*(.+?)(?:\n|$|,)`)
	seniorityTitlePattern = regexp.MustCompile(`(?i)(?:VP|Vice President|President|CEO|CTO|CFO|Director|Manager|Lead|Head|Chief)[^\n,]*`)
)

var companyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:company|organization|firm|corporation):\s*(.+?)(?:\n|$|,)`),
	regexp.MustCompile(`(?i)at\s+([A-Z][a-zA-Z\s&]+)`),
	regexp.MustCompile(`(?i)from\s+([A-Z][a-zA-Z\s&]+)`),
}

var companyPrefixPattern = regexp.MustCompile(`(?i)^(company|organization|firm|corporation|at|from):\s*`)

// Speakers extracts speaker entries. Entries without a resolvable name are
// discarded, and the final list is deduplicated by case-insensitive name
// with the first occurrence winning.
func (d *Document) Speakers() []Speaker {
	var elements *goquery.Selection
	for _, sel := range speakerSelectors {
		if found := d.doc.Find(sel); found.Length() > 0 {
			elements = found
			break
		}
	}
	if elements == nil {
		// Broad fallback: anything card- or list-shaped might hold a speaker.
		elements = d.doc.Find(speakerFallbackSelector)
	}

	var speakers []Speaker
	elements.Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if len(text) < 5 || len(text) > 500 {
			return
		}
		name := extractSpeakerName(sel, text)
		if name == "" {
			return
		}
		speakers = append(speakers, Speaker{
			Name:    name,
			Title:   extractSpeakerTitle(sel, text),
			Company: extractSpeakerCompany(sel, text),
		})
	})

	return dedupeSpeakers(speakers)
}

// extractSpeakerName requires 2-4 capitalized words, first via regex against
// the element's first text line, then via the element's first heading. Only
// the first line is matched so a capitalized job title on the next line
// cannot bleed into the name.
func extractSpeakerName(sel *goquery.Selection, text string) string {
	firstLine := text
	if i := strings.IndexByte(firstLine, '\n'); i >= 0 {
		firstLine = strings.TrimSpace(firstLine[:i])
	}
	for _, pattern := range speakerNamePatterns {
		match := pattern.FindStringSubmatch(firstLine)
		if match == nil {
			continue
		}
		candidate := collapseSpace(strings.TrimSpace(match[1]))
		if isPlausibleName(candidate) {
			return candidate
		}
	}
	heading := strings.TrimSpace(sel.Find("h1, h2, h3, h4, h5, h6, strong, b").First().Text())
	if len(heading) > 5 && len(heading) < 100 {
		heading = collapseSpace(heading)
		if words := strings.Fields(heading); len(words) >= 2 && len(words) <= 4 {
			return heading
		}
	}
	return ""
}

func isPlausibleName(candidate string) bool {
	words := strings.Fields(candidate)
	if len(words) < 2 || len(words) > 4 {
		return false
	}
	for _, w := range words {
		if w[0] < 'A' || w[0] > 'Z' {
			return false
		}
	}
	return true
}

func extractSpeakerTitle(sel *goquery.Selection, text string) string {
	if match := speakerTitlePattern.FindStringSubmatch(text); match != nil {
		return strings.TrimSpace(match[1])
	}
	if match := seniorityTitlePattern.FindString(text); match != "" {
		return collapseSpace(strings.TrimSpace(match))
	}
	title := sel.Find(`[class*="title"], [class*="position"], [class*="role"]`).First()
	if title.Length() > 0 {
		return collapseSpace(strings.TrimSpace(title.Text()))
	}
	return ""
}

func extractSpeakerCompany(sel *goquery.Selection, text string) string {
	for _, pattern := range companyPatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		company := strings.TrimSpace(match[1])
		company = strings.TrimSpace(companyPrefixPattern.ReplaceAllString(company, ""))
		if company != "" {
			return collapseSpace(company)
		}
	}
	company := sel.Find(`[class*="company"], [class*="organization"], [class*="firm"]`).First()
	if company.Length() > 0 {
		return collapseSpace(strings.TrimSpace(company.Text()))
	}
	return ""
}

func dedupeSpeakers(speakers []Speaker) []Speaker {
	seen := make(map[string]struct{}, len(speakers))
	out := make([]Speaker, 0, len(speakers))
	for _, s := range speakers {
		key := strings.ToLower(s.Name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
