package domain

import "time"

// ScrapeStats holds statistics about a single scrape run.
type ScrapeStats struct {
	Staged     int
	Processed  int
	Skipped    int
	Activities int
	Unmatched  []string
	Duration   time.Duration
}
