package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jonesrussell/bidwatch/internal/domain"
	"github.com/jonesrussell/bidwatch/internal/logger"
)

const (
	articlesFileName = "articles.json"
	bidsFileName     = "bids.json"

	// backupKeep is how many timestamped backups are retained per file.
	backupKeep = 3

	// Nanosecond suffix keeps names distinct when two persists land in
	// the same second, so a fresh backup never overwrites the previous one.
	backupTimeFormat = "20060102_150405.000000000"

	dataDirPerm  = 0o755
	dataFilePerm = 0o644
)

// FileStore persists both collections as JSON files with an atomic
// write protocol: serialize, write+sync a temp file, back up the
// previous good file, then rename over the live one. A live file that
// fails to parse on load is quarantined and the newest backup is
// restored before falling back to an empty collection.
//
// Writes are serialized by a single mutex; reads return copies of an
// in-memory index, so readers never observe a partial write.
type FileStore struct {
	mu sync.RWMutex

	dir          string
	articlesPath string
	bidsPath     string

	articles   []domain.Article
	articleIdx map[string]int
	bids       []domain.BidRecord
	bidIdx     map[string]int

	logger logger.Interface
	now    func() time.Time
}

// NewFileStore opens (or creates) a file-backed store rooted at dir.
func NewFileStore(dir string, log logger.Interface) (*FileStore, error) {
	if log == nil {
		log = logger.NewNoOp()
	}
	if err := os.MkdirAll(dir, dataDirPerm); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := &FileStore{
		dir:          dir,
		articlesPath: filepath.Join(dir, articlesFileName),
		bidsPath:     filepath.Join(dir, bidsFileName),
		articleIdx:   make(map[string]int),
		bidIdx:       make(map[string]int),
		logger:       log.WithComponent("filestore"),
		now:          time.Now,
	}

	s.articles = loadCollection[domain.Article](s.articlesPath, s.logger, s.now)
	s.bids = loadCollection[domain.BidRecord](s.bidsPath, s.logger, s.now)

	for i, a := range s.articles {
		s.articleIdx[a.URL] = i
	}
	for i, b := range s.bids {
		s.bidIdx[b.ID] = i
	}

	s.logger.Info("File store opened",
		"dir", dir,
		"articles", len(s.articles),
		"bids", len(s.bids))
	return s, nil
}

// IsArticleCrawled reports whether url already exists in the store.
func (s *FileStore) IsArticleCrawled(ctx context.Context, url string) (bool, error) {
	if url == "" {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.articleIdx[url]
	return ok, nil
}

// SaveArticle upserts an article by URL.
func (s *FileStore) SaveArticle(ctx context.Context, article *domain.Article) error {
	if article == nil || article.URL == "" {
		return ErrMissingURL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record := *article
	if record.CrawledTime == "" {
		record.CrawledTime = domain.Timestamp(s.now())
	}

	// Build the new collection and persist it before touching the
	// in-memory state, so memory never runs ahead of disk.
	updated := make([]domain.Article, len(s.articles), len(s.articles)+1)
	copy(updated, s.articles)
	i, exists := s.articleIdx[record.URL]
	if exists {
		updated[i] = record
	} else {
		updated = append(updated, record)
	}

	if err := s.persist(s.articlesPath, updated); err != nil {
		return err
	}

	s.articles = updated
	if !exists {
		s.articleIdx[record.URL] = len(updated) - 1
	}
	return nil
}

// SaveBids inserts candidates with unseen ids and returns exactly the
// newly-inserted subset.
func (s *FileStore) SaveBids(ctx context.Context, bids []domain.BidRecord) ([]domain.BidRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := make([]domain.BidRecord, len(s.bids), len(s.bids)+len(bids))
	copy(updated, s.bids)

	var inserted []domain.BidRecord
	pending := make(map[string]struct{})
	for _, bid := range bids {
		if bid.ID == "" {
			continue
		}
		if _, ok := s.bidIdx[bid.ID]; ok {
			continue
		}
		if _, ok := pending[bid.ID]; ok {
			continue
		}
		if bid.Status == "" {
			bid.Status = domain.StatusNew
		}
		if bid.ExtractedTime == "" {
			bid.ExtractedTime = domain.Timestamp(s.now())
		}
		pending[bid.ID] = struct{}{}
		updated = append(updated, bid)
		inserted = append(inserted, bid)
	}

	if len(inserted) == 0 {
		return nil, nil
	}

	// The index is committed only after the new collection is durably
	// on disk. A failed persist leaves the ids unseen, so a retry of
	// the same batch is inserted again instead of absorbed as a dup.
	if err := s.persist(s.bidsPath, updated); err != nil {
		return nil, err
	}

	s.bids = updated
	for i := len(updated) - len(inserted); i < len(updated); i++ {
		s.bidIdx[updated[i].ID] = i
	}

	s.logger.Info("Saved new bids", "count", len(inserted))
	return inserted, nil
}

// UpdateBidStatus sets the status of one bid. Any defined status can
// overwrite any other.
func (s *FileStore) UpdateBidStatus(ctx context.Context, id, status string) error {
	if !domain.ValidStatus(status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.bidIdx[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBidNotFound, id)
	}

	updated := make([]domain.BidRecord, len(s.bids))
	copy(updated, s.bids)
	updated[i].Status = status
	updated[i].UpdatedTime = domain.Timestamp(s.now())

	if err := s.persist(s.bidsPath, updated); err != nil {
		return err
	}
	s.bids = updated
	return nil
}

// GetAllBids returns stored bids newest first, optionally filtered by
// status.
func (s *FileStore) GetAllBids(ctx context.Context, status string) ([]domain.BidRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.BidRecord, 0, len(s.bids))
	for _, bid := range s.bids {
		if status == "" || status == StatusAll || bid.Status == status {
			out = append(out, bid)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ExtractedTime > out[j].ExtractedTime
	})
	return out, nil
}

// GetAllArticles returns stored article metadata, newest first.
func (s *FileStore) GetAllArticles(ctx context.Context) ([]domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Article, len(s.articles))
	copy(out, s.articles)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CrawledTime > out[j].CrawledTime
	})
	return out, nil
}

// GetStats returns aggregate counts over both collections.
func (s *FileStore) GetStats(ctx context.Context) (*domain.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &domain.Stats{
		TotalArticles: len(s.articles),
		TotalBids:     len(s.bids),
	}
	for _, bid := range s.bids {
		switch bid.Status {
		case domain.StatusNew:
			stats.NewBids++
		case domain.StatusNotified:
			stats.NotifiedBids++
		case domain.StatusArchived:
			stats.ArchivedBids++
		}
	}
	return stats, nil
}

// Reset clears both collections.
func (s *FileStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(s.articlesPath, []domain.Article(nil)); err != nil {
		return err
	}
	s.articles = nil
	s.articleIdx = make(map[string]int)

	if err := s.persist(s.bidsPath, []domain.BidRecord(nil)); err != nil {
		return err
	}
	s.bids = nil
	s.bidIdx = make(map[string]int)

	s.logger.Warn("All stored data cleared")
	return nil
}

// Close is a no-op for the file backend.
func (s *FileStore) Close() error { return nil }

// persist runs the atomic write protocol for one collection file:
// temp write + sync, timestamped backup of the previous good file,
// then rename over the live path. The live file is replaced only after
// the temp write has fully succeeded, so a crash at any point leaves
// the previous committed state intact.
func (s *FileStore) persist(path string, collection any) error {
	data, err := json.MarshalIndent(collection, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if string(data) == "null" {
		data = []byte("[]")
	}

	tmpPath := path + ".tmp"
	if err = writeAndSync(tmpPath, data); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write temp %s: %w", filepath.Base(tmpPath), err)
	}

	s.backup(path)

	if err = os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// backup copies the current live file to a timestamped .bak sibling and
// prunes old backups. Best effort: a failed backup never blocks a save.
func (s *FileStore) backup(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	backupPath := fmt.Sprintf("%s.%s.bak", path, s.now().Format(backupTimeFormat))
	if err = os.WriteFile(backupPath, data, dataFilePerm); err != nil {
		s.logger.Warn("Failed to write backup", "path", backupPath, "error", err)
		return
	}
	pruneBackups(path, backupKeep, s.logger)
}

// pruneBackups keeps only the newest keep backups for path.
func pruneBackups(path string, keep int, log logger.Interface) {
	backups, err := filepath.Glob(path + ".*.bak")
	if err != nil || len(backups) <= keep {
		return
	}
	// Timestamped names sort chronologically.
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	for _, old := range backups[keep:] {
		if rmErr := os.Remove(old); rmErr != nil {
			log.Warn("Failed to remove old backup", "path", old, "error", rmErr)
		}
	}
}

// writeAndSync writes data to path and flushes it to disk before
// returning, so the later rename only ever publishes complete content.
func writeAndSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, dataFilePerm)
	if err != nil {
		return err
	}
	if _, err = f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err = f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// loadCollection reads one collection file. A missing file yields an
// empty collection. A file that fails to parse is quarantined to a
// .corrupt sibling, then the newest parseable backup is restored; only
// when no backup parses does the store start empty.
func loadCollection[T any](path string, log logger.Interface, now func() time.Time) []T {
	items, err := readJSON[T](path)
	if err == nil {
		return items
	}
	if os.IsNotExist(err) {
		return nil
	}

	log.Error("Failed to load collection, quarantining", "path", path, "error", err)
	quarantine(path, log, now)

	backups, _ := filepath.Glob(path + ".*.bak")
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	for _, backup := range backups {
		items, err = readJSON[T](backup)
		if err != nil {
			log.Warn("Backup not usable", "path", backup, "error", err)
			continue
		}
		log.Info("Recovered collection from backup", "path", backup, "items", len(items))
		return items
	}

	log.Warn("No usable backup, starting with empty collection", "path", path)
	return nil
}

// readJSON parses one collection file.
func readJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []T
	if err = json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return items, nil
}

// quarantine moves a corrupt file aside instead of deleting it.
func quarantine(path string, log logger.Interface, now func() time.Time) {
	quarantinePath := fmt.Sprintf("%s.%s.corrupt", path, now().Format(backupTimeFormat))
	if err := os.Rename(path, quarantinePath); err != nil {
		log.Error("Failed to quarantine corrupt file", "path", path, "error", err)
		return
	}
	log.Info("Quarantined corrupt file", "from", path, "to", quarantinePath)
}
