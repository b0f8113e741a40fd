// ABOUTME: Tests for the synthetic data store
// ABOUTME: Covers generation, cascading deletes, transitions, and integrity errors
package synthetic

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/backhaul/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Seed: 7, DriftInterval: time.Hour})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGenerateDefaultClientCount(t *testing.T) {
	s := testStore(t)

	clients := s.ListClients()
	assert.Len(t, clients, 45)

	for _, c := range clients {
		assert.NotEqual(t, uuid.Nil, c.ID)
		assert.NotEmpty(t, c.Name)
		assert.NotEmpty(t, c.Address)
		assert.Positive(t, c.FileCount)
	}
}

func TestGeneratedFilesReferenceClients(t *testing.T) {
	s := testStore(t)

	known := make(map[uuid.UUID]bool)
	for _, c := range s.ListClients() {
		known[c.ID] = true
	}

	files, err := s.ListFiles(nil)
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, f := range files {
		assert.True(t, known[f.ClientID], "file %s references unknown client", f.ID)
		assert.GreaterOrEqual(t, f.BackupCount, 1)
	}
}

func TestGetClient(t *testing.T) {
	s := testStore(t)
	clients := s.ListClients()

	got, err := s.GetClient(clients[0].ID)
	require.NoError(t, err)
	assert.Equal(t, clients[0].Name, got.Name)

	_, err = s.GetClient(uuid.New())
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestListFilesByClient(t *testing.T) {
	s := testStore(t)
	clients := s.ListClients()
	id := clients[0].ID

	files, err := s.ListFiles(&id)
	require.NoError(t, err)
	assert.Len(t, files, clients[0].FileCount)
	for _, f := range files {
		assert.Equal(t, id, f.ClientID)
	}

	missing := uuid.New()
	_, err = s.ListFiles(&missing)
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestDisconnectClientLeavesOthersAlone(t *testing.T) {
	s := testStore(t)
	clients := s.ListClients()
	target := clients[0]

	updated, err := s.DisconnectClient(target.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClientDisconnected, updated.Status)

	for _, c := range s.ListClients() {
		if c.ID == target.ID {
			assert.Equal(t, models.ClientDisconnected, c.Status)
			continue
		}
		orig := findClient(t, clients, c.ID)
		assert.Equal(t, orig.Status, c.Status, "client %s status changed unexpectedly", c.Name)
	}
}

func TestDeleteClientCascades(t *testing.T) {
	s := testStore(t)
	clients := s.ListClients()
	target := clients[0].ID

	files, err := s.ListFiles(&target)
	require.NoError(t, err)
	require.NotEmpty(t, files)

	before, err := s.ListFiles(nil)
	require.NoError(t, err)

	require.NoError(t, s.DeleteClient(target))

	after, err := s.ListFiles(nil)
	require.NoError(t, err)
	assert.Len(t, after, len(before)-len(files), "exactly the cascade victims must be removed")
	for _, f := range after {
		assert.NotEqual(t, target, f.ClientID, "no file may still reference the deleted client")
	}

	ops, err := s.ListOperations(nil)
	require.NoError(t, err)
	for _, op := range ops {
		assert.NotEqual(t, target, op.ClientID)
	}

	assert.ErrorIs(t, s.DeleteClient(target), ErrClientNotFound)
}

func TestDeleteFileAdjustsCounters(t *testing.T) {
	s := testStore(t)
	clients := s.ListClients()
	id := clients[0].ID

	files, err := s.ListFiles(&id)
	require.NoError(t, err)
	victim := files[0]

	require.NoError(t, s.DeleteFile(victim.ID))

	c, err := s.GetClient(id)
	require.NoError(t, err)
	assert.Equal(t, clients[0].FileCount-1, c.FileCount)
	assert.Equal(t, clients[0].TotalBytes-victim.Size, c.TotalBytes)

	err = s.DeleteFile(victim.ID)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestVerifyFileTransitions(t *testing.T) {
	s := testStore(t)

	files, err := s.ListFiles(nil)
	require.NoError(t, err)

	var uploaded, verified *models.File
	for i := range files {
		switch files[i].Status {
		case models.FileUploaded:
			if uploaded == nil {
				uploaded = &files[i]
			}
		case models.FileVerified:
			if verified == nil {
				verified = &files[i]
			}
		}
	}
	require.NotNil(t, uploaded, "dataset should contain an uploaded file")
	require.NotNil(t, verified, "dataset should contain a verified file")

	got, err := s.VerifyFile(uploaded.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FileVerified, got.Status)

	_, err = s.VerifyFile(verified.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition, "verified -> verified must be rejected")

	_, err = s.VerifyFile(uuid.New())
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestRecordBackup(t *testing.T) {
	s := testStore(t)
	clients := s.ListClients()
	target := clients[0]

	op, err := s.RecordBackup(target.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, models.BackupCompleted, op.Status)
	assert.Equal(t, 4, op.FileCount)
	assert.Positive(t, op.TotalBytes)
	require.NotNil(t, op.EndedAt)

	c, err := s.GetClient(target.ID)
	require.NoError(t, err)
	assert.Equal(t, target.FileCount+4, c.FileCount)

	files, err := s.ListFiles(&target.ID)
	require.NoError(t, err)
	assert.Len(t, files, target.FileCount+4)

	_, err = s.RecordBackup(uuid.New(), 1)
	assert.ErrorIs(t, err, ErrClientNotFound)

	_, err = s.RecordBackup(target.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidDelta)
}

func TestServerStatus(t *testing.T) {
	s := testStore(t)

	st := s.ServerStatus()
	assert.Equal(t, 45, st.TotalClients)
	assert.Positive(t, st.TotalFiles)
	assert.Positive(t, st.TotalBytes)
	assert.LessOrEqual(t, st.ConnectedClients, st.TotalClients)
}

func TestCopiesNotLiveReferences(t *testing.T) {
	s := testStore(t)
	clients := s.ListClients()

	// Mutating the returned copy must not leak into the store.
	clients[0].Status = models.ClientError
	clients[0].Name = "tampered"

	fresh, err := s.GetClient(clients[0].ID)
	require.NoError(t, err)
	assert.NotEqual(t, "tampered", fresh.Name)
}

func TestDriftMovesLastSeenForward(t *testing.T) {
	s, err := Open(Config{Seed: 7, ClientCount: 10, DriftInterval: time.Nanosecond})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	before := s.ListClients()
	time.Sleep(5 * time.Millisecond)
	after := s.ListClients()

	moved := false
	for i := range after {
		if after[i].Status != models.ClientConnected {
			continue
		}
		orig := findClient(t, before, after[i].ID)
		if after[i].LastSeen.After(orig.LastSeen) {
			moved = true
		}
	}
	assert.True(t, moved, "connected clients' lastSeen should drift forward")
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")

	s, err := Open(Config{Path: path, Seed: 7, ClientCount: 12, DriftInterval: time.Hour})
	require.NoError(t, err)

	clients := s.ListClients()
	files, err := s.ListFiles(nil)
	require.NoError(t, err)
	ops, err := s.ListOperations(nil)
	require.NoError(t, err)

	require.NoError(t, s.Close())

	reloaded, err := Open(Config{Path: path, Seed: 99, ClientCount: 3, DriftInterval: time.Hour})
	require.NoError(t, err)
	defer func() { _ = reloaded.Close() }()

	gotClients := reloaded.ListClients()
	require.Len(t, gotClients, len(clients), "snapshot should win over regeneration")
	for i := range clients {
		assert.Equal(t, clients[i].ID, gotClients[i].ID)
		assert.Equal(t, clients[i].Name, gotClients[i].Name)
		assert.Equal(t, clients[i].Status, gotClients[i].Status)
		assert.Equal(t, clients[i].TotalBytes, gotClients[i].TotalBytes)
	}

	gotFiles, err := reloaded.ListFiles(nil)
	require.NoError(t, err)
	assert.Len(t, gotFiles, len(files))

	gotOps, err := reloaded.ListOperations(nil)
	require.NoError(t, err)
	assert.Len(t, gotOps, len(ops))
}

func TestMutationsPersistAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")

	s, err := Open(Config{Path: path, Seed: 7, ClientCount: 8, DriftInterval: time.Hour})
	require.NoError(t, err)

	target := s.ListClients()[0].ID
	require.NoError(t, s.DeleteClient(target))
	require.NoError(t, s.Close())

	reloaded, err := Open(Config{Path: path, Seed: 7, ClientCount: 8, DriftInterval: time.Hour})
	require.NoError(t, err)
	defer func() { _ = reloaded.Close() }()

	assert.Len(t, reloaded.ListClients(), 7)
	_, err = reloaded.GetClient(target)
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestCorruptSnapshotFallsBackToGeneration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, writeFile(path, []byte("{ not json")))

	s, err := Open(Config{Path: path, Seed: 7, ClientCount: 5, DriftInterval: time.Hour})
	require.NoError(t, err, "corrupt snapshot must not be fatal")
	defer func() { _ = s.Close() }()

	assert.Len(t, s.ListClients(), 5)
}

func TestDanglingReferenceSnapshotIsDiscarded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	doc := `{
		"schema_version": 1,
		"saved_at": "2026-01-01T00:00:00Z",
		"clients": [],
		"files": [{"id": "` + uuid.NewString() + `", "client_id": "` + uuid.NewString() + `"}],
		"operations": []
	}`
	require.NoError(t, writeFile(path, []byte(doc)))

	s, err := Open(Config{Path: path, Seed: 7, ClientCount: 6, DriftInterval: time.Hour})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	assert.Len(t, s.ListClients(), 6, "snapshot with dangling references must be regenerated")
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

func findClient(t *testing.T, list []models.Client, id uuid.UUID) models.Client {
	t.Helper()
	for _, c := range list {
		if c.ID == id {
			return c
		}
	}
	t.Fatalf("client %s not found", id)
	return models.Client{}
}
