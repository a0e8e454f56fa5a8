package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeHost(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://WWW.BSEindia.com/markets", "www.bseindia.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeHost(tc.input); got != tc.expected {
				t.Errorf("SanitizeHost(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	if companiesTotal == nil || uploadsTotal == nil || notificationsTotal == nil || httpRequestsTotal == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveCompanyOutcomes(t *testing.T) {
	Init()
	before := testutil.ToFloat64(companiesTotal.WithLabelValues("archived"))
	ObserveCompany("archived")
	ObserveCompany("archived")
	if got := testutil.ToFloat64(companiesTotal.WithLabelValues("archived")); got != before+2 {
		t.Errorf("expected archived counter to grow by 2, got %f -> %f", before, got)
	}
}

func TestObserveNavigationSplitsStatus(t *testing.T) {
	Init()
	okBefore := testutil.ToFloat64(navigationsTotal.WithLabelValues("industries", "success"))
	failBefore := testutil.ToFloat64(navigationsTotal.WithLabelValues("industries", "failure"))

	ObserveNavigation("industries", true, time.Second)
	ObserveNavigation("industries", false, 2*time.Second)

	if got := testutil.ToFloat64(navigationsTotal.WithLabelValues("industries", "success")); got != okBefore+1 {
		t.Errorf("success counter = %f, want %f", got, okBefore+1)
	}
	if got := testutil.ToFloat64(navigationsTotal.WithLabelValues("industries", "failure")); got != failBefore+1 {
		t.Errorf("failure counter = %f, want %f", got, failBefore+1)
	}
}

func TestObserveDocumentBytesIgnoresEmpty(t *testing.T) {
	Init()
	before := testutil.ToFloat64(documentBytesTotal)
	ObserveDocumentBytes(0)
	ObserveDocumentBytes(512)
	if got := testutil.ToFloat64(documentBytesTotal); got != before+512 {
		t.Errorf("document bytes = %f, want %f", got, before+512)
	}
}

// Fuzz test for SanitizeHost.
func FuzzSanitizeHost(f *testing.F) {
	for _, tc := range []string{"http://example.com", "https://www.bseindia.com", "ftp://example.com"} {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		if SanitizeHost(orig) == "" {
			t.Errorf("SanitizeHost(%q) returned an empty string", orig)
		}
	})
}
