package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/jonesrussell/bidwatch/internal/domain"
	"github.com/jonesrussell/bidwatch/internal/logger"
)

const (
	// DefaultMaxOpenConns is the default maximum number of open connections
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections
	DefaultMaxIdleConns = 5
	// DefaultConnMaxLifetime is the default maximum connection lifetime
	DefaultConnMaxLifetime = 5 * time.Minute
	// DefaultPingTimeout is the default timeout for ping operations
	DefaultPingTimeout = 5 * time.Second
)

// schema holds the DDL applied on open. IF NOT EXISTS keeps it
// idempotent across restarts.
const schema = `
CREATE TABLE IF NOT EXISTS articles (
	url          TEXT PRIMARY KEY,
	title        TEXT NOT NULL DEFAULT '',
	publish_time TEXT NOT NULL DEFAULT '',
	content_text TEXT NOT NULL DEFAULT '',
	crawled_time TEXT NOT NULL DEFAULT '',
	has_bid      BOOLEAN NOT NULL DEFAULT FALSE,
	bid_count    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS bids (
	id             VARCHAR(64) PRIMARY KEY,
	project_name   TEXT NOT NULL,
	budget         TEXT NOT NULL,
	purchaser      TEXT NOT NULL,
	doc_time       TEXT NOT NULL,
	project_number TEXT NOT NULL DEFAULT '',
	service_period TEXT NOT NULL DEFAULT '',
	content        TEXT NOT NULL DEFAULT '',
	source_url     TEXT NOT NULL DEFAULT '',
	source_title   TEXT NOT NULL DEFAULT '',
	extracted_time TEXT NOT NULL,
	status         VARCHAR(32) NOT NULL DEFAULT 'new',
	updated_time   TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_bids_status ON bids (status);
`

// SQLStore is the relational RecordStore backend. Every upsert and
// status update runs inside a single transaction, and dedup rides the
// primary keys via ON CONFLICT, so the external contract matches the
// file backend exactly.
type SQLStore struct {
	db     *sqlx.DB
	logger logger.Interface
	now    func() time.Time
}

// SQLConfig holds connection settings for the relational backend.
type SQLConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN renders the config as a lib/pq connection string.
func (c SQLConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// NewSQLStore connects to PostgreSQL and applies the schema.
func NewSQLStore(cfg SQLConfig, log logger.Interface) (*SQLStore, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), DefaultPingTimeout)
	defer cancel()
	if pingErr := db.PingContext(ctx); pingErr != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	s, err := NewSQLStoreWithDB(db, log)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStoreWithDB wraps an existing connection. Used by tests.
func NewSQLStoreWithDB(db *sqlx.DB, log logger.Interface) (*SQLStore, error) {
	if log == nil {
		log = logger.NewNoOp()
	}
	s := &SQLStore{
		db:     db,
		logger: log.WithComponent("sqlstore"),
		now:    time.Now,
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return s, nil
}

// IsArticleCrawled reports whether url already exists in the store.
func (s *SQLStore) IsArticleCrawled(ctx context.Context, url string) (bool, error) {
	if url == "" {
		return false, nil
	}

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM articles WHERE url = $1)`
	if err := s.db.GetContext(ctx, &exists, query, url); err != nil {
		return false, fmt.Errorf("check article: %w", err)
	}
	return exists, nil
}

// SaveArticle upserts an article by URL.
func (s *SQLStore) SaveArticle(ctx context.Context, article *domain.Article) error {
	if article == nil || article.URL == "" {
		return ErrMissingURL
	}

	crawledTime := article.CrawledTime
	if crawledTime == "" {
		crawledTime = domain.Timestamp(s.now())
	}

	query := `
		INSERT INTO articles (url, title, publish_time, content_text, crawled_time, has_bid, bid_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (url)
		DO UPDATE SET
			title = EXCLUDED.title,
			publish_time = EXCLUDED.publish_time,
			content_text = EXCLUDED.content_text,
			has_bid = EXCLUDED.has_bid,
			bid_count = EXCLUDED.bid_count
	`
	_, err := s.db.ExecContext(ctx, query,
		article.URL, article.Title, article.PublishTime,
		article.ContentText, crawledTime, article.HasBid, article.BidCount)
	if err != nil {
		return fmt.Errorf("save article: %w", err)
	}
	return nil
}

// SaveBids inserts candidates in one transaction and returns the
// newly-inserted subset. ON CONFLICT DO NOTHING absorbs duplicates,
// both against stored records and within the batch.
func (s *SQLStore) SaveBids(ctx context.Context, bids []domain.BidRecord) ([]domain.BidRecord, error) {
	if len(bids) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO bids (id, project_name, budget, purchaser, doc_time,
		                  project_number, service_period, content,
		                  source_url, source_title, extracted_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`

	var inserted []domain.BidRecord
	for _, bid := range bids {
		if bid.ID == "" {
			continue
		}
		if bid.Status == "" {
			bid.Status = domain.StatusNew
		}
		if bid.ExtractedTime == "" {
			bid.ExtractedTime = domain.Timestamp(s.now())
		}

		res, execErr := tx.ExecContext(ctx, query,
			bid.ID, bid.ProjectName, bid.Budget, bid.Purchaser, bid.DocTime,
			bid.ProjectNumber, bid.ServicePeriod, bid.Content,
			bid.SourceURL, bid.SourceTitle, bid.ExtractedTime, bid.Status)
		if execErr != nil {
			return nil, fmt.Errorf("insert bid %s: %w", bid.ID, execErr)
		}

		rows, raErr := res.RowsAffected()
		if raErr != nil {
			return nil, fmt.Errorf("insert bid %s: %w", bid.ID, raErr)
		}
		if rows > 0 {
			inserted = append(inserted, bid)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit bids: %w", err)
	}

	if len(inserted) > 0 {
		s.logger.Info("Saved new bids", "count", len(inserted))
	}
	return inserted, nil
}

// UpdateBidStatus sets the status of one bid.
func (s *SQLStore) UpdateBidStatus(ctx context.Context, id, status string) error {
	if !domain.ValidStatus(status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	query := `UPDATE bids SET status = $1, updated_time = $2 WHERE id = $3`
	res, err := s.db.ExecContext(ctx, query, status, domain.Timestamp(s.now()), id)
	if err != nil {
		return fmt.Errorf("update bid status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update bid status: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrBidNotFound, id)
	}
	return nil
}

// GetAllBids returns stored bids newest first, optionally filtered.
func (s *SQLStore) GetAllBids(ctx context.Context, status string) ([]domain.BidRecord, error) {
	var bids []domain.BidRecord
	var err error

	if status == "" || status == StatusAll {
		query := `SELECT * FROM bids ORDER BY extracted_time DESC`
		err = s.db.SelectContext(ctx, &bids, query)
	} else {
		query := `SELECT * FROM bids WHERE status = $1 ORDER BY extracted_time DESC`
		err = s.db.SelectContext(ctx, &bids, query, status)
	}
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	return bids, nil
}

// GetAllArticles returns stored article metadata, newest first.
func (s *SQLStore) GetAllArticles(ctx context.Context) ([]domain.Article, error) {
	var articles []domain.Article
	query := `SELECT * FROM articles ORDER BY crawled_time DESC`
	if err := s.db.SelectContext(ctx, &articles, query); err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return articles, nil
}

// GetStats returns aggregate counts over both collections.
func (s *SQLStore) GetStats(ctx context.Context) (*domain.Stats, error) {
	stats := &domain.Stats{}

	if err := s.db.GetContext(ctx, &stats.TotalArticles,
		`SELECT COUNT(*) FROM articles`); err != nil {
		return nil, fmt.Errorf("count articles: %w", err)
	}

	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'new') AS new,
			COUNT(*) FILTER (WHERE status = 'notified') AS notified,
			COUNT(*) FILTER (WHERE status = 'archived') AS archived
		FROM bids
	`
	row := s.db.QueryRowxContext(ctx, query)
	if err := row.Scan(&stats.TotalBids, &stats.NewBids,
		&stats.NotifiedBids, &stats.ArchivedBids); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return stats, nil
		}
		return nil, fmt.Errorf("count bids: %w", err)
	}

	return stats, nil
}

// Reset clears both collections in one transaction.
func (s *SQLStore) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `DELETE FROM bids`); err != nil {
		return fmt.Errorf("clear bids: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM articles`); err != nil {
		return fmt.Errorf("clear articles: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}

	s.logger.Warn("All stored data cleared")
	return nil
}

// Close closes the underlying connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Interface conformance checks.
var (
	_ Interface = (*FileStore)(nil)
	_ Interface = (*SQLStore)(nil)
)
