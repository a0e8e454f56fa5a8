package collyfetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/require"
)

func TestFetcherBuildCollector(t *testing.T) {
	t.Parallel()

	f := New(Config{UserAgent: "harvester-agent", Timeout: time.Second, MaxBodySize: 1024})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	collector := f.buildCollector(ctx, &fetchResult{})
	require.Equal(t, "harvester-agent", collector.UserAgent)
	require.True(t, collector.IgnoreRobotsTxt)
	require.Equal(t, 1025, collector.MaxBodySize)
	require.Equal(t, ctx, collector.Context)
}

func TestNewAppliesDefaults(t *testing.T) {
	t.Parallel()

	f := New(Config{})
	require.Equal(t, defaultTimeout, f.cfg.Timeout)
	require.Equal(t, defaultMaxBodySize, f.cfg.MaxBodySize)
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f := New(Config{MaxBodySize: 16})
	res := &fetchResult{}

	hooks := &stubHooks{}
	f.configureCollectorHooks(hooks, res)
	require.NotNil(t, hooks.onRequest)
	require.NotNil(t, hooks.onResponseHeaders)
	require.NotNil(t, hooks.onResponse)
	require.NotNil(t, hooks.onError)

	collyReq := &colly.Request{Headers: &http.Header{}}
	hooks.onRequest(collyReq)
	require.Contains(t, collyReq.Headers.Get("Accept"), "application/pdf")

	hooks.onResponse(&colly.Response{StatusCode: http.StatusOK, Body: []byte("%PDF-1.7")})
	require.Equal(t, "%PDF-1.7", string(res.body))
	require.False(t, res.tooLarge)

	hooks.onResponse(&colly.Response{StatusCode: http.StatusOK, Body: make([]byte, 17)})
	require.True(t, res.tooLarge)
	require.Nil(t, res.body)

	hooks.onError(&colly.Response{StatusCode: http.StatusNotFound}, errors.New("Not Found"))
	require.EqualError(t, res.err, "status 404: Not Found")

	hooks.onError(nil, errors.New("boom"))
	require.EqualError(t, res.err, "boom")
}

func TestResponseHeadersAbortOversizedContentLength(t *testing.T) {
	t.Parallel()

	f := New(Config{MaxBodySize: 16})
	res := &fetchResult{}
	hooks := &stubHooks{}
	f.configureCollectorHooks(hooks, res)

	small := http.Header{"Content-Length": []string{"16"}}
	hooks.onResponseHeaders(&colly.Response{Request: &colly.Request{}, Headers: &small})
	require.False(t, res.tooLarge)

	large := http.Header{"Content-Length": []string{"17"}}
	hooks.onResponseHeaders(&colly.Response{Request: &colly.Request{}, Headers: &large})
	require.True(t, res.tooLarge)
}

func TestFetchDocumentReturnsBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 fake"))
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second})
	body, err := f.FetchDocument(context.Background(), srv.URL+"/report.pdf")
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 fake", string(body))

	// Same URL can be fetched again.
	body, err = f.FetchDocument(context.Background(), srv.URL+"/report.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, body)
}

func TestFetchDocumentRejectsOversizedBody(t *testing.T) {
	t.Parallel()

	payload := strings.Repeat("x", 100)
	for name, chunked := range map[string]bool{"content-length": false, "chunked": true} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if !chunked {
					w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
				}
				_, _ = w.Write([]byte(payload[:50]))
				if fl, ok := w.(http.Flusher); ok && chunked {
					fl.Flush()
				}
				_, _ = w.Write([]byte(payload[50:]))
			}))
			defer srv.Close()

			f := New(Config{Timeout: 5 * time.Second, MaxBodySize: 10})
			body, err := f.FetchDocument(context.Background(), srv.URL+"/big.pdf")
			require.ErrorIs(t, err, ErrBodyTooLarge)
			require.Nil(t, body)
		})
	}
}

func TestFetchDocumentAcceptsBodyAtLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second, MaxBodySize: 10})
	body, err := f.FetchDocument(context.Background(), srv.URL+"/exact.pdf")
	require.NoError(t, err)
	require.Equal(t, "0123456789", string(body))
}

func TestFetchDocumentHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second})
	_, err := f.FetchDocument(context.Background(), srv.URL+"/missing.pdf")
	require.Error(t, err)
}

func TestFetchDocumentCanceled(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	aborted := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			close(aborted)
		case <-release:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	f := New(Config{Timeout: 5 * time.Second})
	_, err := f.FetchDocument(ctx, srv.URL+"/slow.pdf")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The in-flight request is torn down too, well before the collector timeout.
	select {
	case <-aborted:
	case <-time.After(2 * time.Second):
		t.Fatal("request still running after cancellation")
	}
}

type stubHooks struct {
	onRequest         colly.RequestCallback
	onResponseHeaders colly.ResponseHeadersCallback
	onResponse        colly.ResponseCallback
	onError           colly.ErrorCallback
}

func (s *stubHooks) OnRequest(cb colly.RequestCallback) {
	s.onRequest = cb
}

func (s *stubHooks) OnResponseHeaders(cb colly.ResponseHeadersCallback) {
	s.onResponseHeaders = cb
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}
