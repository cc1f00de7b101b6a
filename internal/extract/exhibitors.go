package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Exhibitor is one extracted exhibitor entry. EstimatedCost is zero unless an
// explicit monetary figure appeared in the source text.
type Exhibitor struct {
	CompanyName    string
	TierRaw        string
	TierNormalized string
	EstimatedCost  int
}

// Tier synonyms, checked in order so normalization stays deterministic.
// Unmatched-but-present tiers normalize to "unknown".
var tierSynonyms = []struct {
	keyword    string
	normalized string
}{
	{"platinum", "platinum"},
	{"diamond", "platinum"},
	{"titanium", "platinum"},
	{"gold", "gold"},
	{"silver", "silver"},
	{"bronze", "bronze"},
	{"copper", "bronze"},
	{"standard", "standard"},
	{"basic", "standard"},
	{"exhibitor", "standard"},
	{"sponsor", "standard"},
}

var exhibitorSelectors = []string{
	`[class*="exhibitor"]`,
	`[class*="sponsor"]`,
	`[id*="exhibitor"]`,
	`[id*="sponsor"]`,
	".exhibitors",
	".sponsors",
	`section[class*="exhibitor"]`,
	`section[class*="sponsor"]`,
}

const exhibitorFallbackSelector = `[class*="card"], [class*="item"], [class*="logo"], li, .grid > div`

// Only explicitly stated figures count; no inference.
var costPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$(\d{1,3}(?:,\d{3})*(?:\.\d+)?)`),
	regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})*(?:\.\d+)?)\s*(?:USD|dollars?)`),
	regexp.MustCompile(`(?i)(?:cost|price|fee):\s*\$?(\d{1,3}(?:,\d{3})*(?:\.\d+)?)`),
}

var tierPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(platinum|diamond|titanium|gold|silver|bronze|copper|standard|basic)\s*(?:sponsor|tier|level|package)`),
	regexp.MustCompile(`(?i)(?:sponsor|tier|level|package):\s*(platinum|diamond|titanium|gold|silver|bronze|copper|standard|basic)`),
}

var leadingCompanyPattern = regexp.MustCompile(`^([A-Z][a-zA-Z\s&]+)`)

// Exhibitors extracts exhibitor entries, deduplicated by case-insensitive
// company name with the first occurrence winning.
func (d *Document) Exhibitors() []Exhibitor {
	var elements *goquery.Selection
	for _, sel := range exhibitorSelectors {
		if found := d.doc.Find(sel); found.Length() > 0 {
			elements = found
			break
		}
	}
	if elements == nil {
		elements = d.doc.Find(exhibitorFallbackSelector)
	}

	var exhibitors []Exhibitor
	elements.Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if len(text) < 3 {
			return
		}
		name := extractCompanyName(sel, text)
		if name == "" {
			return
		}
		// Tier and cost tokens may live in attributes, so scan markup too.
		inner, _ := sel.Html()
		scanText := text + " " + inner

		tierRaw := extractTier(scanText)
		exhibitors = append(exhibitors, Exhibitor{
			CompanyName:    name,
			TierRaw:        tierRaw,
			TierNormalized: NormalizeTier(tierRaw),
			EstimatedCost:  extractExplicitCost(scanText),
		})
	})

	return dedupeExhibitors(exhibitors)
}

func extractCompanyName(sel *goquery.Selection, text string) string {
	heading := strings.TrimSpace(sel.Find(`h1, h2, h3, h4, h5, h6, strong, b, [class*="name"], [class*="company"]`).First().Text())
	if len(heading) > 2 && len(heading) < 200 {
		return collapseSpace(heading)
	}
	if alt, ok := sel.Find("img[alt]").First().Attr("alt"); ok {
		alt = strings.TrimSpace(alt)
		if len(alt) > 2 && len(alt) < 200 {
			return collapseSpace(alt)
		}
	}
	if match := leadingCompanyPattern.FindStringSubmatch(text); match != nil {
		candidate := collapseSpace(strings.TrimSpace(match[1]))
		if len(candidate) > 2 && len(candidate) < 200 {
			return candidate
		}
	}
	return ""
}

func extractTier(text string) string {
	for _, pattern := range tierPatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			return strings.TrimSpace(match[1])
		}
	}
	return ""
}

// NormalizeTier maps a raw tier token through the synonym table. An empty
// token stays empty; a present but unrecognized token becomes "unknown".
func NormalizeTier(raw string) string {
	if raw == "" {
		return ""
	}
	lower := strings.ToLower(strings.TrimSpace(raw))
	for _, syn := range tierSynonyms {
		if lower == syn.keyword {
			return syn.normalized
		}
	}
	for _, syn := range tierSynonyms {
		if strings.Contains(lower, syn.keyword) {
			return syn.normalized
		}
	}
	return "unknown"
}

func extractExplicitCost(text string) int {
	for _, pattern := range costPatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		raw := strings.ReplaceAll(match[1], ",", "")
		if cost, err := strconv.ParseFloat(raw, 64); err == nil && cost > 0 {
			return int(cost + 0.5)
		}
	}
	return 0
}

func dedupeExhibitors(exhibitors []Exhibitor) []Exhibitor {
	seen := make(map[string]struct{}, len(exhibitors))
	out := make([]Exhibitor, 0, len(exhibitors))
	for _, e := range exhibitors {
		key := strings.ToLower(e.CompanyName)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}
