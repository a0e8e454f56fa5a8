// Package collyfetcher downloads report documents using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"
)

const (
	defaultTimeout     = 60 * time.Second
	defaultMaxBodySize = 64 * 1024 * 1024
)

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
	MaxBodySize   int
}

// ErrBodyTooLarge is returned when a document exceeds Config.MaxBodySize.
var ErrBodyTooLarge = errors.New("document exceeds max body size")

// Fetcher downloads document bodies with a Colly collector.
type Fetcher struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponseHeaders(colly.ResponseHeadersCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// fetchResult collects what the collector callbacks observed for one visit.
type fetchResult struct {
	body     []byte
	err      error
	tooLarge bool
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = defaultMaxBodySize
	}
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	transport := newHTTPTransport()
	c.WithTransport(transport)

	return &Fetcher{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
	}
}

// FetchDocument executes a single GET and returns the response body. Bodies
// larger than the configured maximum fail with ErrBodyTooLarge.
func (f *Fetcher) FetchDocument(ctx context.Context, url string) ([]byte, error) {
	res := &fetchResult{}
	collector := f.buildCollector(ctx, res)
	if err := f.runCollector(ctx, collector, url, res); err != nil {
		return nil, err
	}
	if len(res.body) == 0 {
		return nil, fmt.Errorf("empty document body from %s", url)
	}
	return res.body, nil
}

func (f *Fetcher) buildCollector(ctx context.Context, res *fetchResult) *colly.Collector {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	// One byte past the cap so an oversized body is detectable.
	collector.MaxBodySize = f.cfg.MaxBodySize + 1
	collector.Context = ctx
	collector.SetRequestTimeout(f.cfg.Timeout)
	collector.WithTransport(f.transport)

	f.configureCollectorHooks(collector, res)
	return collector
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, res *fetchResult) {
	hooks.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "application/pdf,*/*;q=0.8")
	})

	hooks.OnResponseHeaders(func(r *colly.Response) {
		if r.Headers == nil {
			return
		}
		size, err := strconv.ParseInt(r.Headers.Get("Content-Length"), 10, 64)
		if err == nil && size > int64(f.cfg.MaxBodySize) {
			res.tooLarge = true
			r.Request.Abort()
		}
	})

	hooks.OnResponse(func(r *colly.Response) {
		if len(r.Body) > f.cfg.MaxBodySize {
			res.tooLarge = true
			res.body = nil
			return
		}
		res.body = append([]byte(nil), r.Body...)
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			res.err = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		res.err = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, res *fetchResult) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if res.tooLarge {
			return fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, f.cfg.MaxBodySize)
		}
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if res.err != nil {
			return fmt.Errorf("colly response failed: %w", res.err)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
