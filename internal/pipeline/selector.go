package pipeline

import (
	"fmt"
	"regexp"

	"github.com/JakeFAU/annual-report-harvester/internal/harvest"
)

// DefaultReportIndex is the ordinal of the annual report in a company's
// document list: the second link.
const DefaultReportIndex = 1

// ReportSelector picks the annual-report link out of a document list. When a
// pattern is set the first matching link wins; otherwise, or when nothing
// matches, the link at Index is used.
type ReportSelector struct {
	pattern *regexp.Regexp
	index   int
}

// NewReportSelector compiles pattern (may be empty) and validates index.
func NewReportSelector(pattern string, index int) (*ReportSelector, error) {
	if index < 0 {
		return nil, fmt.Errorf("report index must be >= 0, got %d", index)
	}
	s := &ReportSelector{index: index}
	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile report pattern: %w", err)
		}
		s.pattern = re
	}
	return s, nil
}

// Select returns the chosen link, or harvest.ErrTooFewDocuments when the list
// is too short for the ordinal fallback.
func (s *ReportSelector) Select(links []string) (string, error) {
	if s.pattern != nil {
		for _, link := range links {
			if s.pattern.MatchString(link) {
				return link, nil
			}
		}
	}
	if s.index >= len(links) {
		return "", fmt.Errorf("%w: have %d, need %d", harvest.ErrTooFewDocuments, len(links), s.index+1)
	}
	return links[s.index], nil
}
