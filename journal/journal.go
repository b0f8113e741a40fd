// ABOUTME: Append-only activity journal of mediated operations
// ABOUTME: Badger-backed, ULID-keyed so entries sort by time
package journal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/oklog/ulid/v2"

	"github.com/harperreed/backhaul/bridge"
)

// Entry is one journaled operation. Only the outcome is kept, not the
// payload: the journal feeds the dashboard's recent-activity list, not a
// replay mechanism.
type Entry struct {
	ID      string    `json:"id"`
	Op      string    `json:"op"`
	Success bool      `json:"success"`
	Mode    string    `json:"mode"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// Journal records router envelopes in a local badger database.
type Journal struct {
	db     *badger.DB
	logger *slog.Logger

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Implements the router's recorder hook.
var _ bridge.Recorder = (*Journal)(nil)

// Open creates or reopens the journal database in dir.
func Open(dir string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Journal{
		db:      db,
		logger:  logger,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}, nil
}

// Close flushes and closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores the outcome of one mediated operation. Failures are
// logged and swallowed; journaling must never break the operation path.
func (j *Journal) Record(op string, env bridge.Envelope) {
	entry := Entry{
		ID:      j.newID(),
		Op:      op,
		Success: env.Success,
		Mode:    string(env.Mode),
		Error:   env.Error,
		At:      time.Now(),
	}
	if err := j.Append(entry); err != nil {
		j.logger.Warn("journal append failed", "op", op, "error", err)
	}
}

// Append writes one entry. An empty ID gets a fresh ULID.
func (j *Journal) Append(entry Entry) error {
	if entry.ID == "" {
		entry.ID = j.newID()
	}
	if entry.At.IsZero() {
		entry.At = time.Now()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode journal entry: %w", err)
	}
	return j.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(entry.ID), data)
	})
}

// Recent returns up to n entries, newest first.
func (j *Journal) Recent(n int) ([]Entry, error) {
	if n <= 0 {
		n = 20
	}
	entries := make([]Entry, 0, n)
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid() && len(entries) < n; it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var e Entry
				if err := json.Unmarshal(val, &e); err != nil {
					return fmt.Errorf("decode journal entry: %w", err)
				}
				entries = append(entries, e)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// newID mints a time-ordered ULID. The monotonic entropy source is not
// safe for concurrent use, hence the lock.
func (j *Journal) newID() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), j.entropy).String()
}
