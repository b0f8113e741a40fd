// ABOUTME: Tests for status enums and file-status transition rules
// ABOUTME: Covers monotonic transitions and terminal backup states
package models

import "testing"

func TestFileStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to FileStatus
		want     bool
	}{
		{FileUploaded, FileVerified, true},
		{FileUploaded, FileError, true},
		{FileVerified, FileError, true},
		{FileVerified, FileUploaded, false},
		{FileError, FileUploaded, false},
		{FileError, FileVerified, false},
		{FileUploaded, FileUploaded, false},
		{FileStatus("bogus"), FileVerified, false},
		{FileUploaded, FileStatus("bogus"), false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestFileStatusValid(t *testing.T) {
	for _, s := range []FileStatus{FileUploaded, FileVerified, FileError} {
		if !s.Valid() {
			t.Errorf("expected %s to be valid", s)
		}
	}
	if FileStatus("corrupt").Valid() {
		t.Error("expected unknown status to be invalid")
	}
}

func TestBackupStatusTerminal(t *testing.T) {
	if BackupPending.Terminal() || BackupRunning.Terminal() {
		t.Error("pending/running should not be terminal")
	}
	if !BackupCompleted.Terminal() || !BackupFailed.Terminal() {
		t.Error("completed/failed should be terminal")
	}
}
