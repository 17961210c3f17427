package crawl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/bidwatch/internal/domain"
	"github.com/jonesrussell/bidwatch/internal/extractor"
	"github.com/jonesrussell/bidwatch/internal/logger"
	"github.com/jonesrussell/bidwatch/internal/store"
)

// ErrAlreadyRunning is returned when a run is requested while another
// run is still in progress.
var ErrAlreadyRunning = errors.New("crawl run already in progress")

// DefaultMaxArticles bounds how many listing entries a run fetches when
// no explicit limit is configured.
const DefaultMaxArticles = 20

// Config holds the collaborators and settings for an Orchestrator.
type Config struct {
	Source      ArticleSource
	Store       store.Interface
	Extractor   *extractor.Extractor
	Notifier    Notifier
	Logger      logger.Interface
	MaxArticles int
}

// Orchestrator owns the crawl run state machine. It is the only writer
// of the CrawlRun and enforces the single-flight guarantee.
type Orchestrator struct {
	source      ArticleSource
	store       store.Interface
	extractor   *extractor.Extractor
	notifier    Notifier
	logger      logger.Interface
	maxArticles int
	now         func() time.Time

	mu      sync.Mutex
	running bool
	run     domain.CrawlRun
}

// New creates an Orchestrator from cfg. Source and Store are required;
// the remaining fields have working defaults.
func New(cfg Config) *Orchestrator {
	ext := cfg.Extractor
	if ext == nil {
		ext = extractor.New(nil)
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNoOp()
	}
	maxArticles := cfg.MaxArticles
	if maxArticles <= 0 {
		maxArticles = DefaultMaxArticles
	}

	return &Orchestrator{
		source:      cfg.Source,
		store:       cfg.Store,
		extractor:   ext,
		notifier:    cfg.Notifier,
		logger:      log.WithComponent("crawl"),
		maxArticles: maxArticles,
		now:         time.Now,
		run:         domain.CrawlRun{Stage: domain.StageIdle},
	}
}

// Run executes one crawl run synchronously. It fails fast with
// ErrAlreadyRunning when another run holds the guard.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.acquire() {
		return ErrAlreadyRunning
	}
	defer o.release()
	return o.execute(ctx)
}

// Start triggers a run in the background. It reports whether the run
// was accepted; when it was not, reason explains why. The run detaches
// from ctx cancellation: a run either completes or fails on its own.
func (o *Orchestrator) Start(ctx context.Context) (accepted bool, reason string) {
	if !o.acquire() {
		return false, "a crawl run is already in progress"
	}

	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer o.release()
		if err := o.execute(runCtx); err != nil {
			o.logger.Error("background crawl run failed", "error", err)
		}
	}()
	return true, ""
}

// Status returns a snapshot of the active or most recent run.
func (o *Orchestrator) Status() domain.CrawlRun {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.run
}

// acquire takes the single-flight guard and resets the run state.
// It returns false without blocking when a run is already active.
func (o *Orchestrator) acquire() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return false
	}
	o.running = true
	o.run = domain.CrawlRun{
		RunID:     uuid.NewString(),
		IsRunning: true,
		Stage:     domain.StageIdle,
		StartedAt: o.now().UTC(),
	}
	return true
}

func (o *Orchestrator) release() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.running = false
	o.run.IsRunning = false
}

func (o *Orchestrator) execute(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("crawl run panic: %v", r)
			o.fail(o.Status().Stage, err)
		}
	}()

	o.setStage(domain.StageFetching, "fetching article list")
	summaries, err := o.source.FetchArticleList(ctx, o.maxArticles)
	if err != nil {
		o.fail(domain.StageFetching, err)
		return fmt.Errorf("fetch article list: %w", err)
	}
	if len(summaries) == 0 {
		o.complete("no articles found")
		return nil
	}

	o.setStage(domain.StageFiltering, fmt.Sprintf("filtering %d articles", len(summaries)))
	urls, err := o.filterNew(ctx, summaries)
	if err != nil {
		o.fail(domain.StageFiltering, err)
		return fmt.Errorf("filter articles: %w", err)
	}
	if len(urls) == 0 {
		o.complete("no new articles")
		return nil
	}

	o.setStage(domain.StageScraping, fmt.Sprintf("scraping %d articles", len(urls)))
	articles, err := o.source.ScrapeBatch(ctx, urls, func(done, total int, _ *domain.Article) {
		o.setProgress(done, total, fmt.Sprintf("scraped %d/%d articles", done, total))
	})
	if err != nil {
		o.fail(domain.StageScraping, err)
		return fmt.Errorf("scrape articles: %w", err)
	}
	if len(articles) < len(urls) {
		o.logger.Warn("some articles failed to scrape",
			"requested", len(urls), "scraped", len(articles))
	}

	o.setStage(domain.StageExtracting, "extracting bid records")
	candidates := o.extract(articles)

	o.setStage(domain.StagePersisting, "persisting results")
	inserted, err := o.persist(ctx, articles, candidates)
	if err != nil {
		o.fail(domain.StagePersisting, err)
		return err
	}

	o.setStage(domain.StageNotifying, fmt.Sprintf("notifying %d new bids", len(inserted)))
	o.notify(ctx, inserted)

	o.complete(fmt.Sprintf("crawl completed: %d articles scraped, %d new bids",
		len(articles), len(inserted)))
	return nil
}

// filterNew drops summaries whose URL is already in the store.
func (o *Orchestrator) filterNew(ctx context.Context, summaries []domain.ArticleSummary) ([]string, error) {
	urls := make([]string, 0, len(summaries))
	for _, summary := range summaries {
		crawled, err := o.store.IsArticleCrawled(ctx, summary.URL)
		if err != nil {
			return nil, err
		}
		if crawled {
			continue
		}
		urls = append(urls, summary.URL)
	}
	return urls, nil
}

// extract runs the extractor over each article and stamps the per-article
// bid counters used by the dedup filter on later runs.
func (o *Orchestrator) extract(articles []*domain.Article) []domain.BidRecord {
	var candidates []domain.BidRecord
	for _, article := range articles {
		records, rejected := o.extractor.Extract(article.ContentText, extractor.Meta{
			URL:   article.URL,
			Title: article.Title,
		})
		if rejected > 0 {
			o.logger.Warn("dropped invalid bid blocks",
				"url", article.URL, "rejected", rejected)
		}
		article.HasBid = len(records) > 0
		article.BidCount = len(records)
		candidates = append(candidates, records...)
	}
	return candidates
}

// persist saves the bid candidates and then every scraped article, even
// articles that yielded no bids, so the URL filter stays effective.
func (o *Orchestrator) persist(ctx context.Context, articles []*domain.Article, candidates []domain.BidRecord) ([]domain.BidRecord, error) {
	inserted, err := o.store.SaveBids(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("save bids: %w", err)
	}
	for _, article := range articles {
		if err := o.store.SaveArticle(ctx, article); err != nil {
			return nil, fmt.Errorf("save article %s: %w", article.URL, err)
		}
	}
	return inserted, nil
}

// notify sends the newly inserted records and marks them notified.
// Delivery failure is contained: the records stay "new" and will be
// picked up again once a later run rediscovers them.
func (o *Orchestrator) notify(ctx context.Context, inserted []domain.BidRecord) {
	if len(inserted) == 0 || o.notifier == nil {
		return
	}

	if err := o.notifier.Send(ctx, inserted); err != nil {
		o.logger.Error("notification failed, records remain new",
			"error", err, "bids", len(inserted))
		return
	}

	for _, record := range inserted {
		if err := o.store.UpdateBidStatus(ctx, record.ID, domain.StatusNotified); err != nil {
			o.logger.Warn("failed to mark bid notified",
				"id", record.ID, "error", err)
		}
	}
}

func (o *Orchestrator) setStage(stage domain.Stage, message string) {
	o.mu.Lock()
	o.run.Stage = stage
	o.run.Message = message
	o.mu.Unlock()
	o.logger.Info("crawl stage", "stage", string(stage), "message", message)
}

func (o *Orchestrator) setProgress(done, total int, message string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.run.Progress = done
	o.run.Total = total
	o.run.Message = message
}

func (o *Orchestrator) complete(message string) {
	o.mu.Lock()
	o.run.Stage = domain.StageCompleted
	o.run.Message = message
	o.run.CompletedAt = o.now().UTC()
	elapsed := o.run.CompletedAt.Sub(o.run.StartedAt)
	o.mu.Unlock()
	o.logger.WithDuration(elapsed).Info("crawl run completed", "message", message)
}

func (o *Orchestrator) fail(stage domain.Stage, err error) {
	o.mu.Lock()
	o.run.Stage = domain.StageFailed
	o.run.Message = fmt.Sprintf("failed during %s: %v", stage, err)
	o.run.LastError = err.Error()
	o.run.CompletedAt = o.now().UTC()
	o.mu.Unlock()
	o.logger.WithError(err).Error("crawl run failed", "stage", string(stage))
}
