// Package source implements the article source against plain HTML
// listing pages: a link collector for discovery and a detail collector
// for article bodies.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/jonesrussell/bidwatch/internal/crawl"
	"github.com/jonesrussell/bidwatch/internal/domain"
	"github.com/jonesrussell/bidwatch/internal/logger"
)

const (
	defaultRequestTimeout  = 30 * time.Second
	defaultLinkSelector    = "a[href]"
	defaultContentSelector = "body"
	defaultUserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// ErrMissingIndexURL is returned when no listing page is configured.
var ErrMissingIndexURL = errors.New("source: index url is required")

// Config describes one listing page and how to read it.
type Config struct {
	// IndexURL is the listing page holding article links
	IndexURL string `mapstructure:"index_url"`
	// LinkSelector matches article links on the listing page
	LinkSelector string `mapstructure:"link_selector"`
	// TitleSelector matches the article title on a detail page;
	// empty falls back to the document title
	TitleSelector string `mapstructure:"title_selector"`
	// ContentSelector matches the article body on a detail page
	ContentSelector string `mapstructure:"content_selector"`
	// RequestTimeout bounds each HTTP request
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// UserAgent sent with each request
	UserAgent string `mapstructure:"user_agent"`
}

// HTMLSource fetches article listings and bodies with colly.
type HTMLSource struct {
	cfg    Config
	logger logger.Interface
}

var _ crawl.ArticleSource = (*HTMLSource)(nil)

// NewHTMLSource validates cfg, applies defaults, and builds the source.
func NewHTMLSource(cfg Config, log logger.Interface) (*HTMLSource, error) {
	if cfg.IndexURL == "" {
		return nil, ErrMissingIndexURL
	}
	if cfg.LinkSelector == "" {
		cfg.LinkSelector = defaultLinkSelector
	}
	if cfg.ContentSelector == "" {
		cfg.ContentSelector = defaultContentSelector
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if log == nil {
		log = logger.NewNoOp()
	}

	return &HTMLSource{
		cfg:    cfg,
		logger: log.WithComponent("source"),
	}, nil
}

// FetchArticleList visits the index page and collects up to maxArticles
// article links in document order.
func (s *HTMLSource) FetchArticleList(ctx context.Context, maxArticles int) ([]domain.ArticleSummary, error) {
	collector := s.newCollector(ctx)

	var summaries []domain.ArticleSummary
	seen := make(map[string]bool)
	collector.OnHTML(s.cfg.LinkSelector, func(e *colly.HTMLElement) {
		if maxArticles > 0 && len(summaries) >= maxArticles {
			return
		}
		href := e.Request.AbsoluteURL(e.Attr("href"))
		if href == "" || seen[href] {
			return
		}
		seen[href] = true
		summaries = append(summaries, domain.ArticleSummary{
			URL:   href,
			Title: normalizeSpace(e.Text),
		})
	})

	var visitErr error
	collector.OnError(func(r *colly.Response, err error) {
		visitErr = fmt.Errorf("fetch %s: status %d: %w", r.Request.URL, r.StatusCode, err)
	})

	if err := collector.Visit(s.cfg.IndexURL); err != nil {
		return nil, fmt.Errorf("visit index %s: %w", s.cfg.IndexURL, err)
	}
	collector.Wait()

	if visitErr != nil {
		return nil, visitErr
	}
	s.logger.Debug("article list fetched",
		"index", s.cfg.IndexURL, "articles", len(summaries))
	return summaries, nil
}

// ScrapeBatch scrapes each URL in turn. Failed URLs are logged and
// skipped; they are absent from the result so the next run retries them.
func (s *HTMLSource) ScrapeBatch(ctx context.Context, urls []string, onProgress crawl.ProgressFunc) ([]*domain.Article, error) {
	articles := make([]*domain.Article, 0, len(urls))
	for i, url := range urls {
		if err := ctx.Err(); err != nil {
			return articles, err
		}

		article, err := s.scrapeOne(ctx, url)
		if err != nil {
			s.logger.Warn("failed to scrape article", "url", url, "error", err)
			if onProgress != nil {
				onProgress(i+1, len(urls), nil)
			}
			continue
		}

		articles = append(articles, article)
		if onProgress != nil {
			onProgress(i+1, len(urls), article)
		}
	}
	return articles, nil
}

func (s *HTMLSource) scrapeOne(ctx context.Context, url string) (*domain.Article, error) {
	collector := s.newCollector(ctx)

	article := &domain.Article{
		URL:         url,
		CrawledTime: domain.Timestamp(time.Now()),
	}

	collector.OnHTML("title", func(e *colly.HTMLElement) {
		if article.Title == "" {
			article.Title = normalizeSpace(e.Text)
		}
	})
	if s.cfg.TitleSelector != "" {
		collector.OnHTML(s.cfg.TitleSelector, func(e *colly.HTMLElement) {
			article.Title = normalizeSpace(e.Text)
		})
	}
	collector.OnHTML(s.cfg.ContentSelector, func(e *colly.HTMLElement) {
		if article.ContentText == "" {
			article.ContentText = extractText(e.DOM)
		}
	})

	var visitErr error
	collector.OnError(func(r *colly.Response, err error) {
		visitErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
	})

	if err := collector.Visit(url); err != nil {
		return nil, err
	}
	collector.Wait()

	if visitErr != nil {
		return nil, visitErr
	}
	if article.ContentText == "" {
		return nil, fmt.Errorf("no content matched selector %q", s.cfg.ContentSelector)
	}
	return article, nil
}

func (s *HTMLSource) newCollector(ctx context.Context) *colly.Collector {
	collector := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.UserAgent(s.cfg.UserAgent),
		colly.MaxDepth(1),
	)
	collector.SetRequestTimeout(s.cfg.RequestTimeout)
	return collector
}

// extractText drops script and style subtrees before flattening the
// selection to text.
func extractText(sel *goquery.Selection) string {
	sel = sel.Clone()
	sel.Find("script, style, noscript").Remove()
	return normalizeSpace(sel.Text())
}

// normalizeSpace collapses runs of whitespace to single spaces. Label
// slicing downstream only needs token order, not layout.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
