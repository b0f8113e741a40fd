// ABOUTME: Status enums for clients, files, and backup operations
// ABOUTME: Enforces monotonic file-status transitions
package models

// ClientStatus is the connection state of a client.
type ClientStatus string

const (
	ClientConnected    ClientStatus = "connected"
	ClientDisconnected ClientStatus = "disconnected"
	ClientError        ClientStatus = "error"
)

// FileStatus is the verification state of a backed-up file.
type FileStatus string

const (
	FileUploaded FileStatus = "uploaded"
	FileVerified FileStatus = "verified"
	FileError    FileStatus = "error"
)

// fileStatusRank orders file statuses. Transitions only move forward,
// so a verified file can never revert to uploaded.
var fileStatusRank = map[FileStatus]int{
	FileUploaded: 0,
	FileVerified: 1,
	FileError:    2,
}

// CanTransition reports whether a file may move from s to next.
func (s FileStatus) CanTransition(next FileStatus) bool {
	from, ok := fileStatusRank[s]
	if !ok {
		return false
	}
	to, ok := fileStatusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// Valid reports whether s is a known file status.
func (s FileStatus) Valid() bool {
	_, ok := fileStatusRank[s]
	return ok
}

// BackupStatus is the lifecycle state of a backup operation.
type BackupStatus string

const (
	BackupPending   BackupStatus = "pending"
	BackupRunning   BackupStatus = "running"
	BackupCompleted BackupStatus = "completed"
	BackupFailed    BackupStatus = "failed"
)

// Terminal reports whether a backup operation has finished.
func (s BackupStatus) Terminal() bool {
	return s == BackupCompleted || s == BackupFailed
}
