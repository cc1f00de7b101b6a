package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// BasicInfo holds the core conference facts. Zero values mean the field was
// not found; dates are ISO strings (YYYY-MM-DD).
type BasicInfo struct {
	Name               string
	StartDate          string
	EndDate            string
	City               string
	Country            string
	AttendanceEstimate int
	Industry           []string
}

// Selector candidates for the conference name, most reliable first. The page
// <title> is handled separately so its boilerplate suffix can be stripped.
var nameSelectors = []string{
	"h1",
	".conference-name",
	".event-name",
	`[class*="title"]`,
	`[class*="name"]`,
}

// Date patterns ordered from most specific (named-month range) to least
// (single numeric date). The first match against the body text wins.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)([A-Za-z]{3,9}\s+\d{1,2},?\s+\d{4})\s*[-–—]\s*([A-Za-z]{3,9}\s+\d{1,2},?\s+\d{4})`),
	regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{4})\s*[-–—]\s*(\d{1,2}/\d{1,2}/\d{4})`),
	regexp.MustCompile(`(\d{1,2}-\d{1,2}-\d{4})\s*[-–—]\s*(\d{1,2}-\d{1,2}-\d{4})`),
	regexp.MustCompile(`(?i)([A-Za-z]{3,9}\s+\d{1,2},?\s+\d{4})`),
	regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{4})`),
}

// Layouts attempted in order when parsing a matched date string.
var dateLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
	"01/02/2006",
	"02-01-2006",
	"2006-01-02",
}

var locationSelectors = []string{
	`[class*="location"]`,
	`[class*="venue"]`,
	`[class*="address"]`,
	`[id*="location"]`,
	`[id*="venue"]`,
}

var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*),\s*([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`),
	regexp.MustCompile(`([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*),\s*([A-Z]{2})`),
}

var attendancePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)~?(\d{1,3}(?:,\d{3})*(?:\.\d+)?)\s*(?:attendees?|participants?|delegates?)`),
	regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})*(?:\.\d+)?)\+?\s*(?:attendees?|participants?|delegates?)`),
	regexp.MustCompile(`(?i)(?:attendees?|participants?|delegates?):\s*~?(\d{1,3}(?:,\d{3})*(?:\.\d+)?)`),
}

// Industry tags are keyword hits against lower-cased body text. Every hit is
// kept, rendered in title case.
var industryKeywords = []string{
	"technology", "tech", "software", "ai", "artificial intelligence", "machine learning",
	"healthcare", "health", "medical", "pharma", "pharmaceutical",
	"finance", "fintech", "banking", "investment",
	"marketing", "advertising", "branding", "digital marketing",
	"legal", "law", "compliance",
	"education", "edtech",
	"retail", "ecommerce", "e-commerce",
	"manufacturing", "industrial",
	"energy", "renewable", "sustainability",
	"media", "entertainment",
	"consulting", "professional services",
}

var titleSuffixPattern = regexp.MustCompile(`(?i)\s*[-|]\s*(Home|About|Register|Contact).*$`)

// BasicInfo extracts the conference name, dates, location, attendance
// estimate, and industry tags.
func (d *Document) BasicInfo() BasicInfo {
	info := BasicInfo{}

	info.Name = collapseSpace(d.firstText(nameSelectors, 5, 200))
	if info.Name == "" {
		// Last resort: page title with common suffixes stripped.
		title := strings.TrimSpace(d.doc.Find("title").First().Text())
		if title != "" {
			info.Name = collapseSpace(titleSuffixPattern.ReplaceAllString(title, ""))
		}
	}

	info.StartDate, info.EndDate = d.extractDates()
	info.City, info.Country = d.extractLocation()
	info.AttendanceEstimate = d.extractAttendance()
	info.Industry = d.extractIndustry()

	return info
}

func (d *Document) extractDates() (start, end string) {
	for _, pattern := range datePatterns {
		match := pattern.FindStringSubmatch(d.bodyText)
		if match == nil {
			continue
		}
		if len(match) > 2 && match[2] != "" {
			return parseDate(match[1]), parseDate(match[2])
		}
		// Single date: treat as a same-day conference.
		if date := parseDate(match[1]); date != "" {
			return date, date
		}
		return "", ""
	}
	return "", ""
}

func parseDate(raw string) string {
	raw = collapseSpace(strings.TrimSpace(raw))
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

func (d *Document) extractLocation() (city, country string) {
	var locationText string
	for _, sel := range locationSelectors {
		text := strings.TrimSpace(d.doc.Find(sel).First().Text())
		if text != "" && len(text) < 200 {
			locationText = text
			break
		}
	}
	if locationText == "" {
		for _, pattern := range locationPatterns {
			if match := pattern.FindString(d.bodyText); match != "" {
				locationText = match
				break
			}
		}
	}
	if locationText == "" {
		return "", ""
	}

	if match := locationPatterns[0].FindStringSubmatch(locationText); match != nil {
		return strings.TrimSpace(match[1]), strings.TrimSpace(match[2])
	}
	parts := strings.Split(locationText, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) >= 2 {
		return parts[0], strings.Join(parts[1:], ", ")
	}
	return locationText, ""
}

func (d *Document) extractAttendance() int {
	for _, pattern := range attendancePatterns {
		match := pattern.FindStringSubmatch(d.bodyText)
		if match == nil {
			continue
		}
		n, err := strconv.Atoi(strings.Split(strings.ReplaceAll(match[1], ",", ""), ".")[0])
		if err == nil && n > 0 {
			return n
		}
	}
	return 0
}

func (d *Document) extractIndustry() []string {
	var industries []string
	seen := make(map[string]struct{})
	for _, keyword := range industryKeywords {
		if !strings.Contains(d.lowerBody, keyword) {
			continue
		}
		normalized := titleCase(keyword)
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		industries = append(industries, normalized)
	}
	return industries
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
