package navigator

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/annual-report-harvester/internal/harvest"
)

const (
	industrySelectSelector = `select[name="selecttype"]`
	companyTableSelector   = "table"
	companyRowSelector     = "table tbody tr"
	reportContainerID      = "#divmain"
)

func parseDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// parseIndustries reads every option of the industry selector in document order.
func parseIndustries(html string) ([]harvest.Industry, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return nil, err
	}
	industries := []harvest.Industry{}
	doc.Find("option").Each(func(_ int, opt *goquery.Selection) {
		code, _ := opt.Attr("value")
		industries = append(industries, harvest.Industry{
			Name: strings.TrimSpace(opt.Text()),
			Code: code,
		})
	})
	return industries, nil
}

// parseCompanies reads the listing table. The second cell of each row carries
// the company name and, when present, the profile link; rows without a link
// are dropped.
func parseCompanies(html, pageURL string) ([]harvest.Company, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return nil, err
	}
	base, _ := url.Parse(pageURL)
	companies := []harvest.Company{}
	doc.Find(companyRowSelector).Each(func(_ int, row *goquery.Selection) {
		cell := row.Children().Eq(1)
		if cell.Length() == 0 {
			return
		}
		href, ok := cell.Find("a").First().Attr("href")
		if !ok {
			return
		}
		link := resolveHref(base, href)
		if link == "" {
			return
		}
		companies = append(companies, harvest.Company{
			Name:       strings.TrimSpace(cell.Text()),
			ProfileURL: link,
		})
	})
	return companies, nil
}

// parseDocumentLinks returns the hrefs of every anchor in the report
// container, in DOM order, resolved against the page URL. An empty href
// refers to the page itself and keeps its slot so positional selection
// lines up with the rendered list. Anchors with no href attribute are not
// links and are skipped.
func parseDocumentLinks(html, pageURL string) ([]string, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return nil, err
	}
	container := doc.Find(reportContainerID)
	if container.Length() == 0 {
		// The capture may already be the container itself.
		container = doc.Selection
	}
	base, _ := url.Parse(pageURL)
	links := []string{}
	container.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		if strings.TrimSpace(href) == "" && pageURL != "" {
			links = append(links, pageURL)
			return
		}
		if link := resolveHref(base, href); link != "" {
			links = append(links, link)
		}
	})
	return links, nil
}

func resolveHref(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
