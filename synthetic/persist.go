// ABOUTME: JSON snapshot persistence for the synthetic dataset
// ABOUTME: Serialized fire-and-forget writes with rate limiting and atomic rename
package synthetic

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/harperreed/backhaul/models"
)

const snapshotSchema = 1

// snapshot is the on-disk document. The schema marker lets a newer build
// refuse an incompatible file and regenerate instead of misreading it.
type snapshot struct {
	SchemaVersion int                      `json:"schema_version"`
	SavedAt       time.Time                `json:"saved_at"`
	Clients       []models.Client          `json:"clients"`
	Files         []models.File            `json:"files"`
	Operations    []models.BackupOperation `json:"operations"`
}

// snapshot captures the full in-memory state for serialization.
func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		SchemaVersion: snapshotSchema,
		SavedAt:       time.Now(),
		Clients:       make([]models.Client, 0, len(s.clients)),
		Files:         make([]models.File, 0, len(s.files)),
		Operations:    make([]models.BackupOperation, 0, len(s.ops)),
	}
	for _, c := range s.clients {
		snap.Clients = append(snap.Clients, *c)
	}
	for _, f := range s.files {
		snap.Files = append(snap.Files, *f)
	}
	for _, op := range s.ops {
		snap.Operations = append(snap.Operations, cloneOperation(op))
	}
	return snap
}

// restore replaces the collections with snapshot contents. Caller holds mu
// or has exclusive access during construction.
func (s *Store) restore(snap *snapshot) {
	for i := range snap.Clients {
		c := snap.Clients[i]
		s.clients[c.ID] = &c
	}
	for i := range snap.Files {
		f := snap.Files[i]
		s.files[f.ID] = &f
	}
	for i := range snap.Operations {
		op := snap.Operations[i]
		s.ops[op.ID] = &op
	}
}

// loadSnapshot reads and validates a snapshot file. Returns (nil, nil)
// when the file does not exist. Any decode or integrity problem is an
// error; the caller treats the file as corrupt and regenerates.
func loadSnapshot(path string) (*snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.SchemaVersion != snapshotSchema {
		return nil, fmt.Errorf("snapshot schema %d, want %d", snap.SchemaVersion, snapshotSchema)
	}

	known := make(map[uuid.UUID]bool, len(snap.Clients))
	for _, c := range snap.Clients {
		known[c.ID] = true
	}
	for _, f := range snap.Files {
		if !known[f.ClientID] {
			return nil, fmt.Errorf("file %s references unknown client %s", f.ID, f.ClientID)
		}
	}
	for _, op := range snap.Operations {
		if !known[op.ClientID] {
			return nil, fmt.Errorf("operation %s references unknown client %s", op.ID, op.ClientID)
		}
	}
	return &snap, nil
}

// snapshotWriter serializes snapshot writes: one in-flight write at a
// time, bursts coalesced through a single dirty flag, disk traffic capped
// by a rate limiter. Failures are logged; the in-memory state stays
// authoritative and the next successful write repairs the file.
type snapshotWriter struct {
	path    string
	source  func() snapshot
	logger  *slog.Logger
	limiter *rate.Limiter

	dirty chan struct{}
	stop  chan struct{}
	done  chan struct{}

	once sync.Once
	mu   sync.Mutex
	err  error
}

func newSnapshotWriter(path string, source func() snapshot, logger *slog.Logger) *snapshotWriter {
	w := &snapshotWriter{
		path:    path,
		source:  source,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(250*time.Millisecond), 1),
		dirty:   make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// request marks the state dirty. Never blocks; back-to-back mutations
// collapse into one write.
func (w *snapshotWriter) request() {
	select {
	case w.dirty <- struct{}{}:
	default:
	}
}

// close flushes any pending write and reports the last write failure.
func (w *snapshotWriter) close() error {
	w.once.Do(func() { close(w.stop) })
	<-w.done

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *snapshotWriter) run() {
	defer close(w.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-w.stop
		cancel()
	}()

	for {
		select {
		case <-w.stop:
			// Final flush so a clean shutdown never loses the last mutation.
			select {
			case <-w.dirty:
				w.write()
			default:
			}
			return
		case <-w.dirty:
			// Wait returns early on shutdown; write regardless so the
			// pending state still lands.
			_ = w.limiter.Wait(ctx)
			w.write()
		}
	}
}

// write serializes the current state to a temp file and renames it into
// place, so a crash mid-write leaves the previous snapshot intact.
func (w *snapshotWriter) write() {
	snap := w.source()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		w.fail(fmt.Errorf("encode snapshot: %w", err))
		return
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		w.fail(fmt.Errorf("create snapshot dir: %w", err))
		return
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		w.fail(fmt.Errorf("create temp snapshot: %w", err))
		return
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		w.fail(fmt.Errorf("write snapshot: %w", err))
		return
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		w.fail(fmt.Errorf("close snapshot: %w", err))
		return
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		_ = os.Remove(tmp.Name())
		w.fail(fmt.Errorf("replace snapshot: %w", err))
		return
	}

	w.mu.Lock()
	w.err = nil
	w.mu.Unlock()
}

func (w *snapshotWriter) fail(err error) {
	w.logger.Error("snapshot write failed", "path", w.path, "error", err)
	w.mu.Lock()
	w.err = err
	w.mu.Unlock()
}
