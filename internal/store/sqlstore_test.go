package store_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/bidwatch/internal/domain"
	"github.com/jonesrussell/bidwatch/internal/logger"
	"github.com/jonesrussell/bidwatch/internal/store"
)

// bidColumns lists the columns returned by bids SELECT queries.
var bidColumns = []string{
	"id", "project_name", "budget", "purchaser", "doc_time",
	"project_number", "service_period", "content",
	"source_url", "source_title", "extracted_time", "status", "updated_time",
}

func newSQLStore(t *testing.T) (*store.SQLStore, sqlmock.Sqlmock, func()) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))

	db := sqlx.NewDb(mockDB, "postgres")
	s, err := store.NewSQLStoreWithDB(db, logger.NewNoOp())
	require.NoError(t, err)

	return s, mock, func() { mockDB.Close() }
}

func TestSQLStore_SaveBidsReturnsNewlyInserted(t *testing.T) {
	t.Parallel()

	s, mock, cleanup := newSQLStore(t)
	defer cleanup()

	first := testBid("aaaa000011112222", "数据库去重测试项目一")
	second := testBid("bbbb000011112222", "数据库去重测试项目二")

	mock.ExpectBegin()
	// First candidate is new, second collides on id.
	mock.ExpectExec("INSERT INTO bids").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO bids").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	inserted, err := s.SaveBids(context.Background(), []domain.BidRecord{first, second})
	require.NoError(t, err)
	require.Len(t, inserted, 1)
	assert.Equal(t, first.ID, inserted[0].ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_SaveBidsEmptyBatch(t *testing.T) {
	t.Parallel()

	s, mock, cleanup := newSQLStore(t)
	defer cleanup()

	inserted, err := s.SaveBids(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, inserted)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_UpdateBidStatus(t *testing.T) {
	t.Parallel()

	s, mock, cleanup := newSQLStore(t)
	defer cleanup()

	mock.ExpectExec("UPDATE bids SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.UpdateBidStatus(context.Background(), "aaaa000011112222", domain.StatusNotified)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_UpdateBidStatusNotFound(t *testing.T) {
	t.Parallel()

	s, mock, cleanup := newSQLStore(t)
	defer cleanup()

	mock.ExpectExec("UPDATE bids SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateBidStatus(context.Background(), "missing0000never", domain.StatusArchived)
	assert.ErrorIs(t, err, store.ErrBidNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_UpdateBidStatusInvalid(t *testing.T) {
	t.Parallel()

	s, mock, cleanup := newSQLStore(t)
	defer cleanup()

	err := s.UpdateBidStatus(context.Background(), "aaaa000011112222", "bogus")
	assert.ErrorIs(t, err, store.ErrInvalidStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_IsArticleCrawled(t *testing.T) {
	t.Parallel()

	s, mock, cleanup := newSQLStore(t)
	defer cleanup()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("https://example.com/a/1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	crawled, err := s.IsArticleCrawled(context.Background(), "https://example.com/a/1")
	require.NoError(t, err)
	assert.True(t, crawled)

	// Empty URLs never hit the database.
	crawled, err = s.IsArticleCrawled(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, crawled)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_SaveArticleUpsert(t *testing.T) {
	t.Parallel()

	s, mock, cleanup := newSQLStore(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO articles").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.SaveArticle(context.Background(), &domain.Article{
		URL:   "https://example.com/a/1",
		Title: "采购公告",
	})
	require.NoError(t, err)

	err = s.SaveArticle(context.Background(), &domain.Article{})
	assert.ErrorIs(t, err, store.ErrMissingURL)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_GetAllBidsFiltered(t *testing.T) {
	t.Parallel()

	s, mock, cleanup := newSQLStore(t)
	defer cleanup()

	mock.ExpectQuery("SELECT \\* FROM bids WHERE status").
		WithArgs(domain.StatusNew).
		WillReturnRows(sqlmock.NewRows(bidColumns).AddRow(
			"aaaa000011112222", "数据库查询测试项目", "120万元", "某市教育局",
			"2025年1月6日", "", "", "", "https://example.com/a/1", "采购公告",
			"2025-01-06T08:00:00Z", "new", "",
		))

	bids, err := s.GetAllBids(context.Background(), domain.StatusNew)
	require.NoError(t, err)
	require.Len(t, bids, 1)
	assert.Equal(t, "数据库查询测试项目", bids[0].ProjectName)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_GetStats(t *testing.T) {
	t.Parallel()

	s, mock, cleanup := newSQLStore(t)
	defer cleanup()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM articles").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows([]string{"total", "new", "notified", "archived"}).
			AddRow(2, 1, 1, 0))

	stats, err := s.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalArticles)
	assert.Equal(t, 2, stats.TotalBids)
	assert.Equal(t, 1, stats.NewBids)
	assert.Equal(t, 1, stats.NotifiedBids)
	assert.Equal(t, 0, stats.ArchivedBids)

	require.NoError(t, mock.ExpectationsWereMet())
}
