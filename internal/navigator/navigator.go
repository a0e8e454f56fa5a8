// Package navigator scrapes the exchange site's industry, company, and
// annual-report listings through a headless browser.
package navigator

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/annual-report-harvester/internal/harvest"
	"github.com/JakeFAU/annual-report-harvester/internal/metrics"
)

// Config points the navigator at the exchange site.
type Config struct {
	IndustryListURL  string
	IndustryViewURL  string
	ReportPathSuffix string
}

// Waiter throttles navigations per host.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Navigator implements harvest.Navigator on top of a Browser.
type Navigator struct {
	browser Browser
	waiter  Waiter
	cfg     Config
	logger  *zap.Logger
}

// New constructs a Navigator. waiter may be nil.
func New(browser Browser, waiter Waiter, cfg Config, logger *zap.Logger) (*Navigator, error) {
	if browser == nil {
		return nil, fmt.Errorf("browser is required")
	}
	if cfg.IndustryListURL == "" || cfg.IndustryViewURL == "" {
		return nil, fmt.Errorf("industry list and view URLs are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Navigator{
		browser: browser,
		waiter:  waiter,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// FetchIndustryList reads the industry selector options in document order.
func (n *Navigator) FetchIndustryList(ctx context.Context) harvest.Result[[]harvest.Industry] {
	page, err := n.capture(ctx, "industries", CaptureRequest{
		URL:             n.cfg.IndustryListURL,
		WaitSelector:    industrySelectSelector,
		CaptureSelector: industrySelectSelector,
	})
	if err != nil {
		return harvest.Failed([]harvest.Industry{}, err)
	}
	industries, err := parseIndustries(page.HTML)
	if err != nil {
		return degradeValue(n.logger, "industries", []harvest.Industry{}, err)
	}
	return harvest.Ok(industries)
}

// FetchCompanyList reads the company table of one industry view.
func (n *Navigator) FetchCompanyList(ctx context.Context, industryCode, industryName string) harvest.Result[[]harvest.Company] {
	target, err := n.industryViewURL(industryCode, industryName)
	if err != nil {
		return degradeValue(n.logger, "companies", []harvest.Company{}, err)
	}
	page, err := n.capture(ctx, "companies", CaptureRequest{
		URL:             target,
		WaitSelector:    companyTableSelector,
		CaptureSelector: "html",
	})
	if err != nil {
		return harvest.Failed([]harvest.Company{}, err)
	}
	companies, err := parseCompanies(page.HTML, page.URL)
	if err != nil {
		return degradeValue(n.logger, "companies", []harvest.Company{}, err)
	}
	return harvest.Ok(companies)
}

// LocateReportDocuments lists the document links on a company's
// financial-reports page.
func (n *Navigator) LocateReportDocuments(ctx context.Context, profileURL string) harvest.Result[[]string] {
	page, err := n.capture(ctx, "reports", CaptureRequest{
		URL:             ReportsPageURL(profileURL, n.cfg.ReportPathSuffix),
		WaitSelector:    reportContainerID,
		CaptureSelector: reportContainerID,
	})
	if err != nil {
		return harvest.Failed([]string{}, err)
	}
	links, err := parseDocumentLinks(page.HTML, page.URL)
	if err != nil {
		return degradeValue(n.logger, "reports", []string{}, err)
	}
	return harvest.Ok(links)
}

// ReportsPageURL appends the reports path suffix to a profile URL. The suffix
// is appended verbatim, so profile URLs are expected to end in a slash.
func ReportsPageURL(profileURL, suffix string) string {
	return profileURL + suffix
}

func (n *Navigator) industryViewURL(code, name string) (string, error) {
	u, err := url.Parse(n.cfg.IndustryViewURL)
	if err != nil {
		return "", fmt.Errorf("parse industry view url: %w", err)
	}
	q := u.Query()
	q.Set("expandable", "2")
	q.Set("page", code)
	q.Set("scripname", name)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (n *Navigator) capture(ctx context.Context, operation string, req CaptureRequest) (Page, error) {
	start := time.Now()
	page, err := n.doCapture(ctx, req)
	metrics.ObserveNavigation(operation, err == nil, time.Since(start))
	if err != nil {
		n.logger.Warn("navigation failed",
			zap.String("operation", operation),
			zap.String("url", req.URL),
			zap.Error(err),
		)
		return Page{}, err
	}
	n.logger.Debug("navigation captured",
		zap.String("operation", operation),
		zap.String("url", page.URL),
		zap.Int("html_bytes", len(page.HTML)),
	)
	return page, nil
}

func (n *Navigator) doCapture(ctx context.Context, req CaptureRequest) (Page, error) {
	if n.waiter != nil {
		if err := n.waiter.Wait(ctx, req.URL); err != nil {
			return Page{}, err
		}
	}
	page, err := n.browser.Capture(ctx, req)
	if err != nil {
		return Page{}, fmt.Errorf("capture %s: %w", req.URL, err)
	}
	if strings.TrimSpace(page.URL) == "" {
		page.URL = req.URL
	}
	return page, nil
}

func degradeValue[T any](logger *zap.Logger, operation string, empty T, err error) harvest.Result[T] {
	logger.Warn("listing extraction failed", zap.String("operation", operation), zap.Error(err))
	return harvest.Failed(empty, err)
}
