// Package miner downloads report documents and mines them for contact
// details.
package miner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/annual-report-harvester/internal/harvest"
	"github.com/JakeFAU/annual-report-harvester/internal/metrics"
)

// Miner implements harvest.ContactMiner. It never returns an error to its
// caller: failures degrade to an empty record and are carried in Result.Err.
type Miner struct {
	fetcher   harvest.DocumentFetcher
	extractor TextExtractor
	logger    *zap.Logger
}

// New constructs a Miner.
func New(fetcher harvest.DocumentFetcher, extractor TextExtractor, logger *zap.Logger) *Miner {
	if extractor == nil {
		extractor = NewPDFExtractor()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Miner{
		fetcher:   fetcher,
		extractor: extractor,
		logger:    logger,
	}
}

// Extract downloads the document at documentURL and mines it.
func (m *Miner) Extract(ctx context.Context, documentURL string) harvest.Result[harvest.ContactRecord] {
	if m.fetcher == nil {
		return m.fail(documentURL, fmt.Errorf("no document fetcher configured"))
	}
	data, err := m.fetcher.FetchDocument(ctx, documentURL)
	if err != nil {
		return m.fail(documentURL, fmt.Errorf("fetch document: %w", err))
	}
	metrics.ObserveDocumentBytes(len(data))
	res := m.Mine(data)
	if res.Failed() {
		m.logger.Warn("document mining failed", zap.String("url", documentURL), zap.Error(res.Err))
		return res
	}
	m.logger.Debug("document mined",
		zap.String("url", documentURL),
		zap.Int("emails", len(res.Value.Emails)),
		zap.Int("phones", len(res.Value.Phones)),
	)
	return res
}

// Mine extracts text from an already downloaded document and scans it.
func (m *Miner) Mine(data []byte) harvest.Result[harvest.ContactRecord] {
	text, err := m.extractor.ExtractText(data)
	if err != nil {
		return harvest.Failed(harvest.EmptyContacts(), fmt.Errorf("extract text: %w", err))
	}
	return harvest.Ok(Scan(text))
}

func (m *Miner) fail(documentURL string, err error) harvest.Result[harvest.ContactRecord] {
	m.logger.Warn("document mining failed", zap.String("url", documentURL), zap.Error(err))
	return harvest.Failed(harvest.EmptyContacts(), err)
}
