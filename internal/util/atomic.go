// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions for the arcana client.
package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// RELIABILITY: Crash-safe persistence for tokens and the session cache.
//
// AtomicWriteFileWithDir writes data to path so that readers observe
// either the previous contents or the complete new contents, never a
// partial write. The parent directory is created with dirPerm when
// missing, which lets first-run code persist into ~/.arcana without a
// separate setup step.
//
// The write goes to a temp file in the target's directory, is fsynced,
// then renamed over the target. Staying on the same filesystem keeps
// the rename atomic.
func AtomicWriteFileWithDir(path string, data []byte, filePerm, dirPerm os.FileMode) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".arcana-")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmp := f.Name()

	committed := false
	defer func() {
		if !committed {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	// Data must be on disk before the rename makes it visible.
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync data to disk: %w", err)
	}

	// Close before rename for portability.
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Permissions apply before the file becomes reachable at path,
	// which matters for the 0600 token blob.
	if err := os.Chmod(tmp, filePerm); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to set file permissions: %w", err)
	}

	if err := os.Rename(tmp, abs); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	committed = true
	return nil
}
