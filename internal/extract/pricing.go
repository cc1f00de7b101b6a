package extract

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// TicketPricing holds up to five named ticket tiers. Zero means the tier was
// not found.
type TicketPricing struct {
	EarlyBird int
	Regular   int
	Late      int
	Student   int
	Group     int
}

// Empty reports whether no ticket tier was found.
func (t TicketPricing) Empty() bool {
	return t == TicketPricing{}
}

// SponsorTierPrice pairs a sponsorship tier token with its explicit cost.
type SponsorTierPrice struct {
	Tier string
	Cost int
}

// Pricing is the extracted pricing bundle.
type Pricing struct {
	Tickets      TicketPricing
	SponsorTiers []SponsorTierPrice
	PricingURL   string
}

// Ticket tiers as named strategies: each regex carries its own assignment so
// the ordered list stays auditable per tier.
var ticketStrategies = []struct {
	pattern *regexp.Regexp
	assign  func(*TicketPricing, int)
}{
	{
		regexp.MustCompile(`(?i)(?:early\s*bird|early|super\s*early):\s*\$?(\d{1,3}(?:,\d{3})*(?:\.\d+)?)`),
		func(t *TicketPricing, v int) { t.EarlyBird = v },
	},
	{
		regexp.MustCompile(`(?i)(?:regular|standard|general):\s*\$?(\d{1,3}(?:,\d{3})*(?:\.\d+)?)`),
		func(t *TicketPricing, v int) { t.Regular = v },
	},
	{
		regexp.MustCompile(`(?i)(?:late|last\s*minute|on-site):\s*\$?(\d{1,3}(?:,\d{3})*(?:\.\d+)?)`),
		func(t *TicketPricing, v int) { t.Late = v },
	},
	{
		regexp.MustCompile(`(?i)(?:student|academic):\s*\$?(\d{1,3}(?:,\d{3})*(?:\.\d+)?)`),
		func(t *TicketPricing, v int) { t.Student = v },
	},
	{
		regexp.MustCompile(`(?i)(?:group|bulk|team):\s*\$?(\d{1,3}(?:,\d{3})*(?:\.\d+)?)`),
		func(t *TicketPricing, v int) { t.Group = v },
	},
}

var (
	sponsorTierPricePattern = regexp.MustCompile(`(?i)(platinum|diamond|titanium|gold|silver|bronze|copper|standard|basic)\s*(?:sponsor|tier|level|package)[\s:]*\$?(\d{1,3}(?:,\d{3})*(?:\.\d+)?)`)
	priceTierReversePattern = regexp.MustCompile(`(?i)(?:sponsor|tier|level|package)[\s:]*\$?(\d{1,3}(?:,\d{3})*(?:\.\d+)?)\s*[-–—]\s*(platinum|diamond|titanium|gold|silver|bronze|copper|standard|basic)`)
)

const pricingLinkSelector = `a[href*="pric"], a[href*="ticket"], a[href*="register"], a[href*="cost"]`

// Pricing extracts ticket tiers, sponsor tier price pairs, and a best-guess
// pricing page link resolved against baseURL.
func (d *Document) Pricing(baseURL string) Pricing {
	result := pricingFromText(d.bodyText)

	if href, ok := d.doc.Find(pricingLinkSelector).First().Attr("href"); ok {
		result.PricingURL = resolveLink(baseURL, href)
	}
	return result
}

// PricingFromText runs the pricing patterns against raw document text, e.g.
// text pulled out of a pricing PDF. No link discovery happens here.
func PricingFromText(text string) Pricing {
	return pricingFromText(text)
}

func pricingFromText(text string) Pricing {
	result := Pricing{}

	for _, strategy := range ticketStrategies {
		match := strategy.pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		if price := parsePrice(match[1]); price > 0 {
			strategy.assign(&result.Tickets, price)
		}
	}

	for _, match := range sponsorTierPricePattern.FindAllStringSubmatch(text, -1) {
		if price := parsePrice(match[2]); price > 0 {
			result.SponsorTiers = append(result.SponsorTiers, SponsorTierPrice{
				Tier: strings.ToLower(strings.TrimSpace(match[1])),
				Cost: price,
			})
		}
	}
	for _, match := range priceTierReversePattern.FindAllStringSubmatch(text, -1) {
		if price := parsePrice(match[1]); price > 0 {
			result.SponsorTiers = append(result.SponsorTiers, SponsorTierPrice{
				Tier: strings.ToLower(strings.TrimSpace(match[2])),
				Cost: price,
			})
		}
	}

	return result
}

func parsePrice(raw string) int {
	raw = strings.ReplaceAll(raw, ",", "")
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || price <= 0 {
		return 0
	}
	return int(price + 0.5)
}

func resolveLink(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}
