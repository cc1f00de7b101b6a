package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPricingTicketTiers(t *testing.T) {
	t.Parallel()

	pricing := mustParse(t, `<html><body>
		<div class="pricing">
			<p>Early Bird: $299</p>
			<p>Regular: $399</p>
			<p>Student: $149</p>
		</div>
	</body></html>`).Pricing("https://techconf.example.com/")

	require.Equal(t, 299, pricing.Tickets.EarlyBird)
	require.Equal(t, 399, pricing.Tickets.Regular)
	require.Equal(t, 149, pricing.Tickets.Student)
	require.Zero(t, pricing.Tickets.Late)
	require.Zero(t, pricing.Tickets.Group)
	require.False(t, pricing.Tickets.Empty())
}

func TestPricingSponsorTierPairs(t *testing.T) {
	t.Parallel()

	pricing := mustParse(t, `<html><body>
		<p>Gold Sponsor: $25,000</p>
		<p>Silver Sponsor: $10,000</p>
	</body></html>`).Pricing("https://techconf.example.com/")

	require.Equal(t, []SponsorTierPrice{
		{Tier: "gold", Cost: 25000},
		{Tier: "silver", Cost: 10000},
	}, pricing.SponsorTiers)
}

func TestPricingReversedTierOrder(t *testing.T) {
	t.Parallel()

	pricing := PricingFromText("Sponsorship level: $5,000 - Bronze")

	require.Equal(t, []SponsorTierPrice{{Tier: "bronze", Cost: 5000}}, pricing.SponsorTiers)
}

func TestPricingLinkResolvedAgainstBase(t *testing.T) {
	t.Parallel()

	pricing := mustParse(t, `<html><body>
		<a href="/tickets">Buy tickets</a>
	</body></html>`).Pricing("https://techconf.example.com/2026")

	require.Equal(t, "https://techconf.example.com/tickets", pricing.PricingURL)
}

func TestPricingLinkRejectsNonHTTPSchemes(t *testing.T) {
	t.Parallel()

	pricing := mustParse(t, `<html><body>
		<a href="ftp://files.example.com/pricing.pdf">Pricing</a>
	</body></html>`).Pricing("https://techconf.example.com/")

	require.Empty(t, pricing.PricingURL)
}

func TestPricingFromText(t *testing.T) {
	t.Parallel()

	pricing := PricingFromText("General: 450 Group: $1,200 Late: $0")

	require.Equal(t, 450, pricing.Tickets.Regular)
	require.Equal(t, 1200, pricing.Tickets.Group)
	require.Zero(t, pricing.Tickets.Late, "zero-dollar figures are discarded")
}

func TestPricingEmpty(t *testing.T) {
	t.Parallel()

	pricing := mustParse(t, `<html><body><p>Join us this spring.</p></body></html>`).Pricing("https://techconf.example.com/")

	require.True(t, pricing.Tickets.Empty())
	require.Empty(t, pricing.SponsorTiers)
	require.Empty(t, pricing.PricingURL)
}
