package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sponsorsHTML = `<html><body>
	<div class="sponsors">
		<div class="sponsor-card">
			<h3>Acme Corp</h3>
			<p>Gold Sponsor - $25,000</p>
		</div>
		<div class="sponsor-card">
			<h3>Globex</h3>
			<p>Bronze Sponsor</p>
		</div>
	</div>
</body></html>`

func TestExhibitorsExplicitCostAndTier(t *testing.T) {
	t.Parallel()

	exhibitors := mustParse(t, sponsorsHTML).Exhibitors()

	byName := make(map[string]Exhibitor, len(exhibitors))
	for _, e := range exhibitors {
		byName[e.CompanyName] = e
	}

	acme, ok := byName["Acme Corp"]
	require.True(t, ok)
	require.Equal(t, "gold", acme.TierNormalized)
	require.Equal(t, 25000, acme.EstimatedCost)

	globex, ok := byName["Globex"]
	require.True(t, ok)
	require.Equal(t, "bronze", globex.TierNormalized)
	require.Zero(t, globex.EstimatedCost, "no stated figure means no cost")
}

func TestExhibitorsNoCostInference(t *testing.T) {
	t.Parallel()

	exhibitors := mustParse(t, `<html><body>
		<div class="exhibitor">
			<h4>Initech</h4>
			<p>Platinum Sponsor with premium booth placement</p>
		</div>
	</body></html>`).Exhibitors()

	require.Len(t, exhibitors, 1)
	require.Equal(t, "Initech", exhibitors[0].CompanyName)
	require.Equal(t, "platinum", exhibitors[0].TierNormalized)
	require.Zero(t, exhibitors[0].EstimatedCost)
}

func TestExhibitorsDedupesByCompanyName(t *testing.T) {
	t.Parallel()

	exhibitors := mustParse(t, `<html><body>
		<div class="exhibitor"><h4>Acme Corp</h4><p>Gold Sponsor</p></div>
		<div class="exhibitor"><h4>ACME CORP</h4><p>Silver Sponsor</p></div>
	</body></html>`).Exhibitors()

	require.Len(t, exhibitors, 1)
	require.Equal(t, "Acme Corp", exhibitors[0].CompanyName)
	require.Equal(t, "gold", exhibitors[0].TierNormalized)
}

func TestExhibitorsFallsBackToLogoCards(t *testing.T) {
	t.Parallel()

	exhibitors := mustParse(t, `<html><body>
		<div class="logo"><img src="initech.png" alt="Initech">Visit booth 12</div>
	</body></html>`).Exhibitors()

	require.Len(t, exhibitors, 1)
	require.Equal(t, "Initech", exhibitors[0].CompanyName)
	require.Empty(t, exhibitors[0].TierRaw)
	require.Empty(t, exhibitors[0].TierNormalized)
}

func TestNormalizeTier(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want string
	}{
		{"platinum", "platinum"},
		{"Diamond", "platinum"},
		{"titanium", "platinum"},
		{"GOLD", "gold"},
		{"Silver", "silver"},
		{"copper", "bronze"},
		{"basic", "standard"},
		{"Gold Sponsorship", "gold"},
		{"mega", "unknown"},
		{"", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, NormalizeTier(tc.raw), "raw %q", tc.raw)
	}
}

func TestExhibitorsDeterministic(t *testing.T) {
	t.Parallel()

	first := mustParse(t, sponsorsHTML).Exhibitors()
	second := mustParse(t, sponsorsHTML).Exhibitors()
	require.Equal(t, first, second)
}

func TestExhibitorsEmptyPage(t *testing.T) {
	t.Parallel()

	require.Empty(t, mustParse(t, `<html><body><p>Nothing here.</p></body></html>`).Exhibitors())
}
