package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/0xmhha/hump-yard/pkg/logger"
)

var bucketEntries = []byte("entries") // time-ordered key -> Entry

// Journal records dispatch outcomes.
type Journal struct {
	path   string
	max    int
	opts   *bolt.Options
	logger logger.Logger

	mu sync.Mutex
}

// New validates cfg and makes sure the database can be created.
//
// Parameters:
//   - cfg: Journal configuration
//   - log: Logger instance
//
// Returns:
//   - Configured Journal
//   - Error if the database cannot be opened or initialized
func New(cfg Config, log logger.Logger) (*Journal, error) {
	if strings.TrimSpace(cfg.DBPath) == "" {
		return nil, ErrNoPath
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}

	path := expandHome(cfg.DBPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	j := &Journal{
		path:   path,
		max:    cfg.MaxEntries,
		opts:   &bolt.Options{Timeout: cfg.Timeout},
		logger: log,
	}

	if err := j.update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize journal: %w", err)
	}

	log.Debug("journal initialized", "db_path", path, "max_entries", cfg.MaxEntries)
	return j, nil
}

// Path returns the expanded database path.
func (j *Journal) Path() string {
	return j.path
}

// Record stores e and prunes the oldest entries beyond the configured bound.
func (j *Journal) Record(e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	return j.update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketEntries)
		if err != nil {
			return err
		}
		if err := b.Put(entryKey(e), data); err != nil {
			return fmt.Errorf("failed to store entry: %w", err)
		}
		return prune(b, j.max)
	})
}

// Recent returns up to limit entries, newest first. A limit of zero returns
// every stored entry.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	if limit < 0 {
		return nil, ErrInvalidLimit
	}

	var entries []Entry
	err := j.view(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if b == nil {
			return nil
		}

		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(entries) == limit {
				break
			}
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				j.logger.Warn("skipping unreadable journal entry", "key", string(k), "error", err)
				continue
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Len returns the number of stored entries.
func (j *Journal) Len() (int, error) {
	n := 0
	err := j.view(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bucketEntries); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return n, err
}

// entryKey sorts by time first; the ID breaks ties between equal timestamps.
func entryKey(e Entry) []byte {
	return []byte(fmt.Sprintf("%020d-%s", e.Time.UnixNano(), e.ID))
}

func prune(b *bolt.Bucket, max int) error {
	excess := b.Stats().KeyN - max
	if excess <= 0 {
		return nil
	}

	stale := make([][]byte, 0, excess)
	c := b.Cursor()
	for k, _ := c.First(); k != nil && len(stale) < excess; k, _ = c.Next() {
		stale = append(stale, append([]byte(nil), k...))
	}
	for _, k := range stale {
		if err := b.Delete(k); err != nil {
			return fmt.Errorf("failed to prune entry: %w", err)
		}
	}
	return nil
}

func (j *Journal) update(fn func(*bolt.Tx) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	db, err := bolt.Open(j.path, 0o600, j.opts)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer j.close(db)

	return db.Update(fn)
}

func (j *Journal) view(fn func(*bolt.Tx) error) error {
	if _, err := os.Stat(j.path); os.IsNotExist(err) {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	db, err := bolt.Open(j.path, 0o600, j.opts)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer j.close(db)

	return db.View(fn)
}

func (j *Journal) close(db *bolt.DB) {
	if err := db.Close(); err != nil {
		j.logger.Error("failed to close journal", "error", err)
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
