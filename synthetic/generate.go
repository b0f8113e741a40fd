// ABOUTME: Synthetic dataset generation with plausible randomized attributes
// ABOUTME: Builds clients, their files, and a backup-operation history
package synthetic

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/backhaul/models"
)

var hostWords = []string{
	"atlas", "borealis", "cobalt", "drift", "ember", "fathom", "granite",
	"harbor", "indigo", "juniper", "krypton", "lumen", "meridian", "nimbus",
	"onyx", "pioneer", "quartz", "redwood", "sable", "tundra", "umbra",
	"vesper", "wharf", "xenon", "yonder", "zephyr",
}

var platforms = []string{"linux", "linux", "linux", "darwin", "darwin", "windows"}

var agentVersions = []string{"2.2.0", "2.3.1", "2.3.4", "2.4.0", "2.4.1"}

var fileDirs = []string{
	"/home/%s/documents", "/home/%s/photos", "/var/lib/%s/db",
	"/home/%s/projects", "/etc/%s", "/srv/%s/media",
}

var fileStems = []string{
	"report", "invoice", "notes", "backup", "archive", "photo", "ledger",
	"config", "export", "draft", "snapshot", "journal",
}

var fileExts = []string{".pdf", ".txt", ".jpg", ".sqlite", ".tar.gz", ".md", ".csv", ".json"}

// generate populates the store with count clients plus their files and
// recent backup history. Caller holds mu.
func (s *Store) generate(count int) {
	now := time.Now()
	for i := 0; i < count; i++ {
		c := s.genClient(i, now)
		s.clients[c.ID] = c

		fileCount := s.rng.Intn(10) + 3
		for j := 0; j < fileCount; j++ {
			f := s.genFile(c.ID, now)
			s.files[f.ID] = f
			c.TotalBytes += f.Size
		}
		c.FileCount = fileCount

		for _, op := range s.genHistory(c, now) {
			s.ops[op.ID] = op
		}
	}
}

func (s *Store) genClient(i int, now time.Time) *models.Client {
	word := hostWords[s.rng.Intn(len(hostWords))]
	name := fmt.Sprintf("%s-%02d", word, i+1)

	status := models.ClientConnected
	roll := s.rng.Float64()
	switch {
	case roll < 0.15:
		status = models.ClientDisconnected
	case roll < 0.20:
		status = models.ClientError
	}

	connected := now.Add(-time.Duration(s.rng.Intn(72)+1) * time.Hour)
	lastSeen := now.Add(-time.Duration(s.rng.Intn(300)) * time.Second)
	if status != models.ClientConnected {
		lastSeen = now.Add(-time.Duration(s.rng.Intn(48)+1) * time.Hour)
	}

	return &models.Client{
		ID:          uuid.New(),
		Name:        name,
		Address:     fmt.Sprintf("10.%d.%d.%d", s.rng.Intn(250)+1, s.rng.Intn(254)+1, s.rng.Intn(254)+1),
		Status:      status,
		LastSeen:    lastSeen,
		ConnectedAt: connected,
		Version:     agentVersions[s.rng.Intn(len(agentVersions))],
		Platform:    platforms[s.rng.Intn(len(platforms))],
	}
}

func (s *Store) genFile(clientID uuid.UUID, now time.Time) *models.File {
	owner := hostWords[s.rng.Intn(len(hostWords))]
	dir := fmt.Sprintf(fileDirs[s.rng.Intn(len(fileDirs))], owner)
	name := fmt.Sprintf("%s-%d%s",
		fileStems[s.rng.Intn(len(fileStems))],
		s.rng.Intn(900)+100,
		fileExts[s.rng.Intn(len(fileExts))])

	status := models.FileUploaded
	roll := s.rng.Float64()
	switch {
	case roll < 0.6:
		status = models.FileVerified
	case roll > 0.97:
		status = models.FileError
	}

	created := now.Add(-time.Duration(s.rng.Intn(90*24)) * time.Hour)
	lastBackup := now.Add(-time.Duration(s.rng.Intn(24)) * time.Hour)

	return &models.File{
		ID:           uuid.New(),
		ClientID:     clientID,
		Name:         name,
		Path:         dir + "/" + name,
		Size:         int64(s.rng.Intn(50*1024*1024)) + 512,
		Hash:         s.genHash(),
		CreatedAt:    created,
		ModifiedAt:   lastBackup,
		Status:       status,
		BackupCount:  s.rng.Intn(8) + 1,
		LastBackupAt: lastBackup,
	}
}

func (s *Store) genHistory(c *models.Client, now time.Time) []*models.BackupOperation {
	count := s.rng.Intn(4) + 1
	ops := make([]*models.BackupOperation, 0, count)
	for i := 0; i < count; i++ {
		started := now.Add(-time.Duration(s.rng.Intn(14*24)+1) * time.Hour)
		ended := started.Add(time.Duration(s.rng.Intn(600)+30) * time.Second)

		status := models.BackupCompleted
		if s.rng.Float64() < 0.1 {
			status = models.BackupFailed
		}

		op := &models.BackupOperation{
			ID:         uuid.New(),
			ClientID:   c.ID,
			FileCount:  s.rng.Intn(200) + 1,
			TotalBytes: int64(s.rng.Intn(500*1024*1024)) + 1024,
			StartedAt:  started,
			EndedAt:    &ended,
			Status:     status,
		}
		if status == models.BackupFailed {
			op.ErrorMessage = "connection reset during upload"
		}
		ops = append(ops, op)
	}
	return ops
}

func (s *Store) genHash() string {
	const hexdigits = "0123456789abcdef"
	buf := make([]byte, 64)
	for i := range buf {
		buf[i] = hexdigits[s.rng.Intn(len(hexdigits))]
	}
	return string(buf)
}
