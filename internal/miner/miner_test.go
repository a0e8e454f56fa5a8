package miner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchDocument(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1) //nolint:wrapcheck
}

type stubExtractor struct {
	text string
	err  error
}

func (s stubExtractor) ExtractText(_ []byte) (string, error) {
	return s.text, s.err
}

func TestExtractMinesDownloadedDocument(t *testing.T) {
	t.Parallel()

	fetcher := &mockFetcher{}
	fetcher.On("FetchDocument", mock.Anything, "https://cdn.test/ar.pdf").Return([]byte("%PDF"), nil)
	m := New(fetcher, stubExtractor{text: "contact a@b.co or a@b.co, call 9876543210"}, zap.NewNop())

	res := m.Extract(context.Background(), "https://cdn.test/ar.pdf")

	require.NoError(t, res.Err)
	require.Equal(t, []string{"a@b.co"}, res.Value.Emails)
	require.Equal(t, []string{"9876543210"}, res.Value.Phones)
	fetcher.AssertExpectations(t)
}

func TestExtractFetchFailureYieldsEmptyRecord(t *testing.T) {
	t.Parallel()

	fetcher := &mockFetcher{}
	fetcher.On("FetchDocument", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))
	m := New(fetcher, stubExtractor{text: "a@b.co"}, nil)

	res := m.Extract(context.Background(), "https://cdn.test/ar.pdf")

	require.True(t, res.Failed())
	require.NotNil(t, res.Value.Emails)
	require.NotNil(t, res.Value.Phones)
	require.True(t, res.Value.IsEmpty())
}

func TestExtractTextFailureYieldsEmptyRecord(t *testing.T) {
	t.Parallel()

	fetcher := &mockFetcher{}
	fetcher.On("FetchDocument", mock.Anything, mock.Anything).Return([]byte("not a pdf"), nil)
	m := New(fetcher, stubExtractor{err: errors.New("malformed xref")}, nil)

	res := m.Extract(context.Background(), "https://cdn.test/ar.pdf")

	require.ErrorContains(t, res.Err, "malformed xref")
	require.True(t, res.Value.IsEmpty())
}

func TestExtractWithoutFetcher(t *testing.T) {
	t.Parallel()

	res := New(nil, stubExtractor{}, nil).Extract(context.Background(), "https://cdn.test/ar.pdf")
	require.True(t, res.Failed())
}

func TestPDFExtractorRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := NewPDFExtractor().ExtractText(nil)
	require.Error(t, err)

	_, err = NewPDFExtractor().ExtractText([]byte("definitely not a pdf"))
	require.Error(t, err)
}
