// Package store provides durable, crash-safe persistence for articles
// and bid records. Both backends share one contract: upsert-by-key,
// dedup-on-write for bids (insertion reports exactly the newly added
// subset), and status transitions that never delete a record.
package store

import (
	"context"
	"errors"

	"github.com/jonesrussell/bidwatch/internal/domain"
)

// StatusAll disables status filtering in GetAllBids.
const StatusAll = "all"

// Common errors returned by the store package.
var (
	// ErrBidNotFound is returned when a status update names an unknown id.
	ErrBidNotFound = errors.New("bid not found")
	// ErrInvalidStatus is returned for a status outside the defined set.
	ErrInvalidStatus = errors.New("invalid bid status")
	// ErrMissingURL is returned when an article has no URL to key on.
	ErrMissingURL = errors.New("article has no url")
)

// Interface is the record store contract.
type Interface interface {
	// IsArticleCrawled reports whether url already exists in the store.
	IsArticleCrawled(ctx context.Context, url string) (bool, error)

	// SaveArticle upserts an article by URL. Idempotent.
	SaveArticle(ctx context.Context, article *domain.Article) error

	// SaveBids inserts the candidates whose ids are not yet stored and
	// returns exactly that newly-inserted subset. Duplicates, including
	// duplicates within the candidate slice itself, are absorbed.
	SaveBids(ctx context.Context, bids []domain.BidRecord) ([]domain.BidRecord, error)

	// UpdateBidStatus sets the status of the bid with the given id.
	// Any defined status may overwrite any other; unknown ids return
	// ErrBidNotFound.
	UpdateBidStatus(ctx context.Context, id, status string) error

	// GetAllBids returns stored bids, newest first, filtered by exact
	// status match unless status is empty or StatusAll.
	GetAllBids(ctx context.Context, status string) ([]domain.BidRecord, error)

	// GetAllArticles returns stored article metadata, newest first.
	GetAllArticles(ctx context.Context) ([]domain.Article, error)

	// GetStats returns aggregate counts over both collections.
	GetStats(ctx context.Context) (*domain.Stats, error)

	// Reset clears both collections. Intended for operator use.
	Reset(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
