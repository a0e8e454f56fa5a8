package miner

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScanDeduplicates(t *testing.T) {
	t.Parallel()

	got := Scan("contact a@b.co or a@b.co, call 9876543210")

	require.Equal(t, []string{"a@b.co"}, got.Emails)
	require.Equal(t, []string{"9876543210"}, got.Phones)
}

func TestScanPatterns(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		text   string
		emails []string
		phones []string
	}{
		{"nothing", "no contacts here", []string{}, []string{}},
		{"multiple emails keep order", "investor@acme.in then cs@acme.co.in", []string{"investor@acme.in", "cs@acme.co.in"}, []string{}},
		{"eleven digits are not a phone", "tel 98765432101", []string{}, []string{}},
		{"phone with punctuation", "Ph: 0224567890.", []string{}, []string{"0224567890"}},
		{"short tld rejected", "x@y.z", []string{}, []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Scan(tc.text)
			require.Equal(t, tc.emails, got.Emails)
			require.Equal(t, tc.phones, got.Phones)
		})
	}
}

func TestScanIsIdempotent(t *testing.T) {
	t.Parallel()

	text := "a@b.co 1234567890 c@d.org 1234567890 a@b.co"
	require.Equal(t, Scan(text), Scan(text))
}
