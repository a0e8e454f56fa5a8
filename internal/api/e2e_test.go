package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/annual-report-harvester/internal/archive"
	"github.com/JakeFAU/annual-report-harvester/internal/clock/system"
	"github.com/JakeFAU/annual-report-harvester/internal/harvest"
	"github.com/JakeFAU/annual-report-harvester/internal/hash/sha256"
	"github.com/JakeFAU/annual-report-harvester/internal/id/uuid"
	"github.com/JakeFAU/annual-report-harvester/internal/miner"
	"github.com/JakeFAU/annual-report-harvester/internal/notify"
	"github.com/JakeFAU/annual-report-harvester/internal/pipeline"
	pubmemory "github.com/JakeFAU/annual-report-harvester/internal/publisher/memory"
	"github.com/JakeFAU/annual-report-harvester/internal/storage/memory"
)

type siteNavigator struct{}

func (siteNavigator) FetchIndustryList(context.Context) harvest.Result[[]harvest.Industry] {
	return harvest.Ok([]harvest.Industry{{Name: "Banks", Code: "12"}})
}

func (siteNavigator) FetchCompanyList(_ context.Context, code, _ string) harvest.Result[[]harvest.Company] {
	if code != "12" {
		return harvest.Failed([]harvest.Company{}, errors.New("unknown industry"))
	}
	return harvest.Ok([]harvest.Company{
		{Name: "X"},
		{Name: "Y", ProfileURL: "https://site.test/Y/"},
	})
}

func (siteNavigator) LocateReportDocuments(_ context.Context, profileURL string) harvest.Result[[]string] {
	if profileURL != "https://site.test/Y/" {
		return harvest.Ok([]string{})
	}
	return harvest.Ok([]string{"https://cdn.test/u1.pdf", "https://cdn.test/u2.pdf", "https://cdn.test/u3.pdf"})
}

type cdnFetcher struct {
	mu      sync.Mutex
	fetched []string
}

func (c *cdnFetcher) FetchDocument(_ context.Context, url string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetched = append(c.fetched, url)
	return []byte("Investor desk: a@b.co, a@b.co. Phone 9876543210"), nil
}

type textExtractor struct{}

func (textExtractor) ExtractText(data []byte) (string, error) { return string(data), nil }

func TestHarvestIndustryEndToEnd(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		received []string
	)
	downstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		received = append(received, string(body))
		mu.Unlock()
		_, _ = io.WriteString(w, `{"message":"queued"}`)
	}))
	defer downstream.Close()

	webhook, err := notify.NewWebhook(notify.WebhookConfig{Endpoint: downstream.URL, Timeout: 5 * time.Second}, nil)
	require.NoError(t, err)
	mirror := pubmemory.New()
	backend := memory.NewBackend()
	ledger := memory.NewLedger()
	fetcher := &cdnFetcher{}

	orch, err := pipeline.New(pipeline.Deps{
		Navigator: siteNavigator{},
		Fetcher:   fetcher,
		Miner:     miner.New(fetcher, textExtractor{}, nil),
		Folders:   archive.NewHierarchy(backend, nil),
		Uploader:  archive.NewUploader(backend, "", nil),
		Granter:   archive.NewGranter(backend, "", nil),
		Notifier:  notify.NewRelay(webhook, nil, mirror),
		Ledger:    ledger,
		Hasher:    sha256.New(),
		Clock:     system.New(),
		IDs:       uuid.New(),
	}, pipeline.Config{Recipient: "ops@example.com", HaltAfterFirstIndustry: true}, nil)
	require.NoError(t, err)

	server := NewServer(orch, Options{RequestTimeout: 30 * time.Second}, nil)
	req := httptest.NewRequest(http.MethodPost, "/industries_data", strings.NewReader(`{"industries":{"value":"12","name":"Banks"}}`))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"message":"files uploaded successfully"}`, rec.Body.String())

	require.Equal(t, []string{"https://cdn.test/u2.pdf"}, fetcher.fetched)
	files := backend.Files()
	require.Len(t, files, 1)
	require.Equal(t, "Y.pdf", files[0].Name)

	require.Len(t, received, 1)
	require.JSONEq(t, `{"Company_Name":"Y","Link":"https://cdn.test/u2.pdf","emails":["a@b.co"]}`, received[0])
	require.Len(t, mirror.Messages(), 1)

	var industryFolder string
	for _, f := range backend.Folders() {
		if f.Name == "Banks" {
			industryFolder = f.ID
		}
	}
	require.Len(t, backend.Permissions(industryFolder), 1)

	runID := rec.Header().Get("X-Run-ID")
	require.NotEmpty(t, runID)
	entriesRec := httptest.NewRecorder()
	server.Handler().ServeHTTP(entriesRec, httptest.NewRequest(http.MethodGet, "/runs/"+runID, nil))
	require.Equal(t, http.StatusOK, entriesRec.Code)
	require.Contains(t, entriesRec.Body.String(), "https://cdn.test/u2.pdf")
}
