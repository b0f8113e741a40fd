// ABOUTME: In-memory synthetic dataset standing in for a live backup server
// ABOUTME: Enforces referential integrity, cascades deletes, persists snapshots
package synthetic

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/backhaul/models"
)

var (
	ErrClientNotFound    = errors.New("client not found")
	ErrFileNotFound      = errors.New("file not found")
	ErrInvalidTransition = errors.New("invalid file status transition")
	ErrInvalidDelta      = errors.New("file delta must be positive")
)

const (
	defaultClientCount   = 45
	defaultDriftInterval = 20 * time.Second
	serverVersion        = "2.4.1"
)

// Config controls store construction. The zero value is usable: no
// persistence, default client count, time-seeded randomness.
type Config struct {
	// Path is the JSON snapshot file. Empty disables persistence.
	Path string
	// ClientCount is the number of clients generated when no snapshot
	// can be loaded. Defaults to 45.
	ClientCount int
	// Seed fixes the random source for reproducible datasets. Zero means
	// time-seeded.
	Seed int64
	// DriftInterval is how often reads nudge timestamps forward.
	DriftInterval time.Duration
	Logger        *slog.Logger
}

// Store owns the synthetic entity collections. All entity instances stay
// inside the store; public methods hand out copies, never live references,
// so integrity checks cannot be bypassed from outside.
type Store struct {
	mu      sync.Mutex
	clients map[uuid.UUID]*models.Client
	files   map[uuid.UUID]*models.File
	ops     map[uuid.UUID]*models.BackupOperation

	rng        *rand.Rand
	startedAt  time.Time
	lastDrift  time.Time
	driftEvery time.Duration
	writer     *snapshotWriter
	logger     *slog.Logger
}

// Open builds a store from a prior snapshot when one exists and is sound,
// generating a fresh dataset otherwise. Malformed snapshots are discarded
// with a warning, never a fatal error.
func Open(cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	count := cfg.ClientCount
	if count <= 0 {
		count = defaultClientCount
	}
	drift := cfg.DriftInterval
	if drift <= 0 {
		drift = defaultDriftInterval
	}

	s := &Store{
		clients:    make(map[uuid.UUID]*models.Client),
		files:      make(map[uuid.UUID]*models.File),
		ops:        make(map[uuid.UUID]*models.BackupOperation),
		rng:        rand.New(rand.NewSource(seed)),
		startedAt:  time.Now(),
		lastDrift:  time.Now(),
		driftEvery: drift,
		logger:     logger,
	}

	loaded := false
	if cfg.Path != "" {
		snap, err := loadSnapshot(cfg.Path)
		if err != nil {
			logger.Warn("discarding snapshot, regenerating dataset", "path", cfg.Path, "error", err)
		} else if snap != nil {
			s.restore(snap)
			loaded = true
			logger.Info("restored synthetic dataset from snapshot",
				"path", cfg.Path, "clients", len(s.clients), "files", len(s.files))
		}
	}
	if !loaded {
		s.generate(count)
		logger.Info("generated synthetic dataset", "clients", len(s.clients), "files", len(s.files))
	}

	if cfg.Path != "" {
		s.writer = newSnapshotWriter(cfg.Path, s.snapshot, logger)
		if !loaded {
			s.writer.request()
		}
	}
	return s, nil
}

// Close flushes any pending snapshot write and stops the writer.
func (s *Store) Close() error {
	if s.writer == nil {
		return nil
	}
	return s.writer.close()
}

// ListClients returns copies of all clients sorted by name.
func (s *Store) ListClients() []models.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maybeDrift(time.Now())

	out := make([]models.Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetClient returns a copy of one client.
func (s *Store) GetClient(id uuid.UUID) (models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maybeDrift(time.Now())

	c, ok := s.clients[id]
	if !ok {
		return models.Client{}, fmt.Errorf("client %s: %w", id, ErrClientNotFound)
	}
	return *c, nil
}

// ListFiles returns copies of files, optionally filtered to one client.
// A filter naming an unknown client is an error rather than an empty list.
func (s *Store) ListFiles(clientID *uuid.UUID) ([]models.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maybeDrift(time.Now())

	if clientID != nil {
		if _, ok := s.clients[*clientID]; !ok {
			return nil, fmt.Errorf("client %s: %w", *clientID, ErrClientNotFound)
		}
	}

	out := make([]models.File, 0)
	for _, f := range s.files {
		if clientID != nil && f.ClientID != *clientID {
			continue
		}
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// ListOperations returns copies of backup operations, newest first,
// optionally filtered to one client.
func (s *Store) ListOperations(clientID *uuid.UUID) ([]models.BackupOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maybeDrift(time.Now())

	if clientID != nil {
		if _, ok := s.clients[*clientID]; !ok {
			return nil, fmt.Errorf("client %s: %w", *clientID, ErrClientNotFound)
		}
	}

	out := make([]models.BackupOperation, 0)
	for _, op := range s.ops {
		if clientID != nil && op.ClientID != *clientID {
			continue
		}
		out = append(out, cloneOperation(op))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

// ServerStatus computes dashboard summary figures from the dataset.
func (s *Store) ServerStatus() models.ServerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maybeDrift(time.Now())

	st := models.ServerStatus{
		Version:       serverVersion,
		StartedAt:     s.startedAt,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		TotalClients:  len(s.clients),
		TotalFiles:    len(s.files),
	}
	for _, c := range s.clients {
		if c.Status == models.ClientConnected {
			st.ConnectedClients++
		}
		st.TotalBytes += c.TotalBytes
	}
	return st
}

// DisconnectClient marks a client disconnected.
func (s *Store) DisconnectClient(id uuid.UUID) (models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[id]
	if !ok {
		return models.Client{}, fmt.Errorf("cannot disconnect client %s: %w", id, ErrClientNotFound)
	}
	c.Status = models.ClientDisconnected
	c.LastSeen = time.Now()
	s.persist()
	return *c, nil
}

// DeleteClient removes a client and cascades to its files and backup
// operations, keeping the dataset referentially consistent.
func (s *Store) DeleteClient(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[id]; !ok {
		return fmt.Errorf("cannot delete client %s: %w", id, ErrClientNotFound)
	}
	delete(s.clients, id)
	for fid, f := range s.files {
		if f.ClientID == id {
			delete(s.files, fid)
		}
	}
	for oid, op := range s.ops {
		if op.ClientID == id {
			delete(s.ops, oid)
		}
	}
	s.persist()
	return nil
}

// DeleteFile removes one file and adjusts its owner's counters.
func (s *Store) DeleteFile(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[id]
	if !ok {
		return fmt.Errorf("cannot delete file %s: %w", id, ErrFileNotFound)
	}
	delete(s.files, id)
	if c, ok := s.clients[f.ClientID]; ok {
		c.FileCount--
		c.TotalBytes -= f.Size
		if c.FileCount < 0 {
			c.FileCount = 0
		}
		if c.TotalBytes < 0 {
			c.TotalBytes = 0
		}
	}
	s.persist()
	return nil
}

// VerifyFile transitions a file to verified. Transitions are monotonic;
// a verified or errored file stays that way.
func (s *Store) VerifyFile(id uuid.UUID) (models.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[id]
	if !ok {
		return models.File{}, fmt.Errorf("cannot verify file %s: %w", id, ErrFileNotFound)
	}
	if !f.Status.CanTransition(models.FileVerified) {
		return models.File{}, fmt.Errorf("file %s is already %s: %w", id, f.Status, ErrInvalidTransition)
	}
	f.Status = models.FileVerified
	f.ModifiedAt = time.Now()
	s.persist()
	return *f, nil
}

// RecordBackup registers a completed backup run of fileDelta new files for
// a client, generating the file records and updating client counters.
func (s *Store) RecordBackup(clientID uuid.UUID, fileDelta int) (models.BackupOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fileDelta <= 0 {
		return models.BackupOperation{}, fmt.Errorf("delta %d: %w", fileDelta, ErrInvalidDelta)
	}
	c, ok := s.clients[clientID]
	if !ok {
		return models.BackupOperation{}, fmt.Errorf("cannot record backup for client %s: %w", clientID, ErrClientNotFound)
	}

	now := time.Now()
	started := now.Add(-time.Duration(s.rng.Intn(120)+10) * time.Second)
	op := &models.BackupOperation{
		ID:        uuid.New(),
		ClientID:  clientID,
		FileCount: fileDelta,
		StartedAt: started,
		EndedAt:   &now,
		Status:    models.BackupCompleted,
	}
	for i := 0; i < fileDelta; i++ {
		f := s.genFile(clientID, now)
		s.files[f.ID] = f
		op.TotalBytes += f.Size
	}
	s.ops[op.ID] = op

	c.FileCount += fileDelta
	c.TotalBytes += op.TotalBytes
	c.LastSeen = now
	s.persist()
	return cloneOperation(op), nil
}

// persist schedules an asynchronous snapshot write. Caller holds mu.
func (s *Store) persist() {
	if s.writer != nil {
		s.writer.request()
	}
}

// maybeDrift nudges timestamps and statuses so repeated reads show
// gradual, realistic change. Invoked lazily from read paths instead of a
// timer. Caller holds mu.
func (s *Store) maybeDrift(now time.Time) {
	if now.Sub(s.lastDrift) < s.driftEvery {
		return
	}
	s.lastDrift = now

	changed := false
	for _, c := range s.clients {
		switch c.Status {
		case models.ClientConnected:
			c.LastSeen = now
			changed = true
			// The occasional dropout keeps the dashboard honest.
			if s.rng.Float64() < 0.02 {
				c.Status = models.ClientDisconnected
			}
		case models.ClientDisconnected:
			if s.rng.Float64() < 0.05 {
				c.Status = models.ClientConnected
				c.ConnectedAt = now
				c.LastSeen = now
				changed = true
			}
		}
	}
	for _, op := range s.ops {
		if op.Status == models.BackupRunning && now.Sub(op.StartedAt) > 2*time.Minute {
			ended := now
			op.Status = models.BackupCompleted
			op.EndedAt = &ended
			changed = true
		}
	}
	if changed {
		s.persist()
	}
}

func cloneOperation(op *models.BackupOperation) models.BackupOperation {
	out := *op
	if op.EndedAt != nil {
		ended := *op.EndedAt
		out.EndedAt = &ended
	}
	return out
}
