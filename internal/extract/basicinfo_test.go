package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, html string) *Document {
	t.Helper()
	doc, err := Parse(html)
	require.NoError(t, err)
	return doc
}

func TestBasicInfoExtractsNameFromHeading(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `<html><body><h1>TechConf 2026</h1></body></html>`)
	info := doc.BasicInfo()
	require.Equal(t, "TechConf 2026", info.Name)
}

func TestBasicInfoFallsBackToTitleWithSuffixStripped(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `<html><head><title>TechConf 2026 - Home | Welcome</title></head><body><p>hi</p></body></html>`)
	info := doc.BasicInfo()
	require.Equal(t, "TechConf 2026", info.Name)
}

func TestBasicInfoExtractsNamedMonthDateRange(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `<html><body><h1>TechConf 2024</h1><p>Join us January 15, 2024 - January 17, 2024 in Austin.</p></body></html>`)
	info := doc.BasicInfo()
	require.Equal(t, "2024-01-15", info.StartDate)
	require.Equal(t, "2024-01-17", info.EndDate)
}

func TestBasicInfoSingleDateIsSameDayConference(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `<html><body><h1>DevDay Summit</h1><p>Happening March 5, 2025.</p></body></html>`)
	info := doc.BasicInfo()
	require.Equal(t, "2025-03-05", info.StartDate)
	require.Equal(t, "2025-03-05", info.EndDate)
}

func TestBasicInfoMissingDatesStayEmpty(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `<html><body><h1>DevDay Summit</h1><p>Dates coming soon.</p></body></html>`)
	info := doc.BasicInfo()
	require.Empty(t, info.StartDate)
	require.Empty(t, info.EndDate)
}

func TestBasicInfoExtractsLocationFromSection(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `<html><body><h1>DevDay Summit</h1><div class="location">Austin, Texas</div></body></html>`)
	info := doc.BasicInfo()
	require.Equal(t, "Austin", info.City)
	require.Equal(t, "Texas", info.Country)
}

func TestBasicInfoExtractsAttendance(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `<html><body><h1>DevDay Summit</h1><p>Over 5,000 attendees every year.</p></body></html>`)
	info := doc.BasicInfo()
	require.Equal(t, 5000, info.AttendanceEstimate)
}

func TestBasicInfoExtractsIndustryKeywords(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `<html><body><h1>DevDay Summit</h1><p>A healthcare and fintech gathering.</p></body></html>`)
	info := doc.BasicInfo()
	require.Contains(t, info.Industry, "Healthcare")
	require.Contains(t, info.Industry, "Fintech")
}

func TestBasicInfoIsDeterministic(t *testing.T) {
	t.Parallel()

	const html = `<html><body><h1>TechConf 2024</h1><p>January 15, 2024 - January 17, 2024. Over 2,000 attendees. Austin, Texas. A technology event.</p></body></html>`
	first := mustParse(t, html).BasicInfo()
	second := mustParse(t, html).BasicInfo()
	require.Equal(t, first, second)
}

func TestBasicInfoEmptyPageYieldsZeroValues(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `<html><body></body></html>`)
	info := doc.BasicInfo()
	require.Equal(t, BasicInfo{}, info)
}
