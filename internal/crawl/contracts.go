// Package crawl drives a single crawl run through its stages: fetch the
// article list, filter out known URLs, scrape, extract bid records,
// persist, and notify. At most one run executes at a time.
package crawl

import (
	"context"

	"github.com/jonesrussell/bidwatch/internal/domain"
)

// ProgressFunc receives scrape progress updates. article is the most
// recently scraped article and may be nil.
type ProgressFunc func(done, total int, article *domain.Article)

// ArticleSource supplies article listings and scraped article bodies.
// ScrapeBatch returns partial results: URLs that failed to scrape are
// simply absent from the returned slice.
type ArticleSource interface {
	FetchArticleList(ctx context.Context, maxArticles int) ([]domain.ArticleSummary, error)
	ScrapeBatch(ctx context.Context, urls []string, onProgress ProgressFunc) ([]*domain.Article, error)
}

// Notifier delivers newly discovered bid records to an external channel.
type Notifier interface {
	Send(ctx context.Context, records []domain.BidRecord) error
}
