// Package domain provides domain models used across the application.
package domain

import "time"

// ArticleSummary is one entry of a source's article listing, before the
// article body has been scraped.
type ArticleSummary struct {
	// URL uniquely identifies the article
	URL string `json:"url"`
	// Title of the article
	Title string `json:"title"`
	// PublishTime as reported by the listing, free-form
	PublishTime string `json:"publish_time,omitempty"`
}

// Article represents a scraped article. Articles are persisted keyed by
// URL and never deleted; only HasBid and BidCount change after creation,
// set once at extraction time.
type Article struct {
	// URL uniquely identifies the article
	URL string `json:"url" db:"url"`
	// Title of the article
	Title string `json:"title" db:"title"`
	// PublishTime as reported by the source, free-form
	PublishTime string `json:"publish_time,omitempty" db:"publish_time"`
	// ContentText is the plain-text article body
	ContentText string `json:"content_text,omitempty" db:"content_text"`
	// CrawledTime is when the article was scraped, RFC3339 UTC
	CrawledTime string `json:"crawled_time" db:"crawled_time"`
	// HasBid reports whether extraction yielded at least one bid record
	HasBid bool `json:"has_bid" db:"has_bid"`
	// BidCount is the number of bid records extracted from the article
	BidCount int `json:"bid_count" db:"bid_count"`
}

// Timestamp returns the canonical wire representation of t used for all
// persisted time fields.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
