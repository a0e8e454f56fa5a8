package miner

import (
	"regexp"

	"github.com/JakeFAU/annual-report-harvester/internal/harvest"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\b\d{10}\b`)
)

// Scan runs the email and phone scans over text and returns the distinct
// matches of each in first-seen order.
func Scan(text string) harvest.ContactRecord {
	return harvest.ContactRecord{
		Emails: distinct(emailPattern.FindAllString(text, -1)),
		Phones: distinct(phonePattern.FindAllString(text, -1)),
	}
}

func distinct(matches []string) []string {
	out := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
