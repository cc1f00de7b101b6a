package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Contact holds organizer contact details and the agenda link.
type Contact struct {
	OrganizerName  string
	OrganizerEmail string
	OrganizerPhone string
	AgendaURL      string
}

var contactSelectors = []string{
	`[class*="contact"]`,
	`[class*="organizer"]`,
	`[id*="contact"]`,
	`[id*="organizer"]`,
	".contact",
	".organizer",
	`section[class*="contact"]`,
	`section[class*="organizer"]`,
}

var agendaSelectors = []string{
	`a[href*="agenda"]`,
	`a[href*="schedule"]`,
	`a[href*="program"]`,
	`a[href*="timetable"]`,
	`[class*="agenda"] a`,
	`[class*="schedule"] a`,
	`[class*="program"] a`,
}

var organizerNameSelectors = []string{
	`[class*="name"]`,
	`[class*="organizer"]`,
	"h1, h2, h3",
	"strong, b",
}

var (
	emailPattern     = regexp.MustCompile(`([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)
	threeDigitsCheck = regexp.MustCompile(`\d{3}`)
)

var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\+?1[-.\s]?)?\(?([0-9]{3})\)?[-.\s]?([0-9]{3})[-.\s]?([0-9]{4})`),
	regexp.MustCompile(`(\+\d{1,3}[-.\s]?)?\(?\d{1,4}\)?[-.\s]?\d{1,4}[-.\s]?\d{1,9}`),
}

// Contact extracts the organizer contact triple and the agenda URL. Email and
// phone prefer explicit mailto:/tel: links over free-text pattern hits.
func (d *Document) Contact(baseURL string) Contact {
	result := Contact{}

	section := d.findContactSection()
	sectionText := section.Text()

	result.OrganizerName = extractOrganizerName(section)
	result.OrganizerEmail = extractEmail(section, sectionText)
	result.OrganizerPhone = extractPhone(section, sectionText)
	result.AgendaURL = d.extractAgendaURL(baseURL)

	return result
}

func (d *Document) findContactSection() *goquery.Selection {
	for _, sel := range contactSelectors {
		if found := d.doc.Find(sel); found.Length() > 0 {
			return found.First()
		}
	}
	// No contact-like section; fall back to the whole page.
	return d.doc.Find("body")
}

func extractOrganizerName(section *goquery.Selection) string {
	for _, sel := range organizerNameSelectors {
		text := strings.TrimSpace(section.Find(sel).First().Text())
		if len(text) <= 2 || len(text) >= 200 {
			continue
		}
		// Reject candidates that look like an email or phone number.
		if strings.Contains(text, "@") || threeDigitsCheck.MatchString(text) {
			continue
		}
		return collapseSpace(text)
	}
	return ""
}

func extractEmail(section *goquery.Selection, text string) string {
	if href, ok := section.Find(`a[href^="mailto:"]`).First().Attr("href"); ok {
		email := strings.TrimPrefix(href, "mailto:")
		if i := strings.Index(email, "?"); i >= 0 {
			email = email[:i]
		}
		if email = strings.TrimSpace(email); email != "" {
			return email
		}
	}
	if match := emailPattern.FindStringSubmatch(text); match != nil {
		return match[1]
	}
	return ""
}

func extractPhone(section *goquery.Selection, text string) string {
	if href, ok := section.Find(`a[href^="tel:"]`).First().Attr("href"); ok {
		if phone := strings.TrimSpace(strings.TrimPrefix(href, "tel:")); phone != "" {
			return phone
		}
	}
	for _, pattern := range phonePatterns {
		if match := pattern.FindString(text); match != "" {
			return strings.TrimSpace(match)
		}
	}
	return ""
}

func (d *Document) extractAgendaURL(baseURL string) string {
	for _, sel := range agendaSelectors {
		link := d.doc.Find(sel).First()
		if link.Length() == 0 {
			continue
		}
		if href, ok := link.Attr("href"); ok {
			if resolved := resolveLink(baseURL, href); resolved != "" {
				return resolved
			}
		}
	}
	// Secondary scan: any link whose text mentions the agenda.
	var found string
	d.doc.Find("a[href]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		text := strings.ToLower(link.Text())
		if !strings.Contains(text, "agenda") && !strings.Contains(text, "schedule") && !strings.Contains(text, "program") {
			return true
		}
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		if resolved := resolveLink(baseURL, href); resolved != "" {
			found = resolved
			return false
		}
		return true
	})
	return found
}
