// ABOUTME: Data models for backup-server entities
// ABOUTME: Defines Client, File, BackupOperation, and ServerStatus structs
package models

import (
	"time"

	"github.com/google/uuid"
)

// Client is a machine that backs up to the server.
type Client struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Address     string       `json:"address"`
	Status      ClientStatus `json:"status"`
	LastSeen    time.Time    `json:"last_seen"`
	FileCount   int          `json:"file_count"`
	TotalBytes  int64        `json:"total_bytes"`
	ConnectedAt time.Time    `json:"connected_at"`
	Version     string       `json:"version"`
	Platform    string       `json:"platform"`
}

// File is a backed-up file owned by a client. ClientID must always
// reference an existing Client.
type File struct {
	ID           uuid.UUID  `json:"id"`
	ClientID     uuid.UUID  `json:"client_id"`
	Name         string     `json:"name"`
	Path         string     `json:"path"`
	Size         int64      `json:"size"`
	Hash         string     `json:"hash"`
	CreatedAt    time.Time  `json:"created_at"`
	ModifiedAt   time.Time  `json:"modified_at"`
	Status       FileStatus `json:"status"`
	BackupCount  int        `json:"backup_count"` // always >= 1
	LastBackupAt time.Time  `json:"last_backup_at"`
}

// BackupOperation records one backup run for a client.
type BackupOperation struct {
	ID           uuid.UUID    `json:"id"`
	ClientID     uuid.UUID    `json:"client_id"`
	FileCount    int          `json:"file_count"`
	TotalBytes   int64        `json:"total_bytes"`
	StartedAt    time.Time    `json:"started_at"`
	EndedAt      *time.Time   `json:"ended_at,omitempty"`
	Status       BackupStatus `json:"status"`
	ErrorMessage string       `json:"error_message,omitempty"`
}

// ServerStatus summarizes the backup server for the dashboard header.
type ServerStatus struct {
	Version          string    `json:"version"`
	StartedAt        time.Time `json:"started_at"`
	UptimeSeconds    int64     `json:"uptime_seconds"`
	ConnectedClients int       `json:"connected_clients"`
	TotalClients     int       `json:"total_clients"`
	TotalFiles       int       `json:"total_files"`
	TotalBytes       int64     `json:"total_bytes"`
}
