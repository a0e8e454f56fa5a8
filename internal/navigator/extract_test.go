package navigator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/annual-report-harvester/internal/harvest"
)

func TestParseIndustriesPreservesOrder(t *testing.T) {
	t.Parallel()

	html := `<select name="selecttype">
		<option value="a"> A </option>
		<option value="b">B</option>
	</select>`

	got, err := parseIndustries(html)
	require.NoError(t, err)
	require.Equal(t, []harvest.Industry{{Name: "A", Code: "a"}, {Name: "B", Code: "b"}}, got)
}

func TestParseIndustriesEmptySelect(t *testing.T) {
	t.Parallel()

	got, err := parseIndustries(`<select name="selecttype"></select>`)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestParseCompaniesDropsRowsWithoutLink(t *testing.T) {
	t.Parallel()

	html := `<html><body><table><tbody>
		<tr><td>1</td><td><a href="https://site.test/acme/500001/">Acme Ltd</a></td></tr>
		<tr><td>2</td><td>No Link Corp</td></tr>
		<tr><td>3</td><td><a href="/globex/500002/"> Globex </a></td></tr>
		<tr><td>only one cell</td></tr>
	</tbody></table></body></html>`

	got, err := parseCompanies(html, "https://site.test/markets/IndustryView.html?page=a")
	require.NoError(t, err)
	require.Equal(t, []harvest.Company{
		{Name: "Acme Ltd", ProfileURL: "https://site.test/acme/500001/"},
		{Name: "Globex", ProfileURL: "https://site.test/globex/500002/"},
	}, got)
}

func TestParseDocumentLinksResolvesInDOMOrder(t *testing.T) {
	t.Parallel()

	html := `<div id="divmain">
		<a href="https://cdn.test/2024.pdf">2024</a>
		<p><a href="/docs/2023.pdf">2023</a></p>
		<a>no href</a>
		<a href="2022.pdf">2022</a>
	</div>`

	got, err := parseDocumentLinks(html, "https://site.test/acme/500001/financials-annual-reports/")
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://cdn.test/2024.pdf",
		"https://site.test/docs/2023.pdf",
		"https://site.test/acme/500001/financials-annual-reports/2022.pdf",
	}, got)
}

func TestParseDocumentLinksIgnoresAnchorsOutsideContainer(t *testing.T) {
	t.Parallel()

	html := `<html><body><a href="/nav">nav</a><div id="divmain"><a href="/r.pdf">r</a></div></body></html>`

	got, err := parseDocumentLinks(html, "https://site.test/")
	require.NoError(t, err)
	require.Equal(t, []string{"https://site.test/r.pdf"}, got)
}

func TestParseDocumentLinksKeepsEmptyHrefSlot(t *testing.T) {
	t.Parallel()

	page := "https://site.test/acme/500001/financials-annual-reports/"
	html := `<div id="divmain"><a href="">Refresh</a><a href="/a.pdf">A</a><a href=" ">B</a><a>none</a><a href="/b.pdf">C</a></div>`

	got, err := parseDocumentLinks(html, page)
	require.NoError(t, err)
	require.Equal(t, []string{page, "https://site.test/a.pdf", page, "https://site.test/b.pdf"}, got)
}
