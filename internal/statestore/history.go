package statestore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RetainCurrentSnapshot copies states_current.yaml into historyDir after a
// successful Ensure or Clean run, named by a caller-supplied correlation
// stamp (the CLI passes a UTC timestamp) so repeated
// runs don't clobber each other's snapshot.
func RetainCurrentSnapshot(statesCurrentPath, historyDir, stamp string) error {
	data, err := os.ReadFile(statesCurrentPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("statestore: reading %s for history retention: %w", statesCurrentPath, err)
	}
	if err := os.MkdirAll(historyDir, 0o755); err != nil {
		return fmt.Errorf("statestore: creating %s: %w", historyDir, err)
	}
	dest := filepath.Join(historyDir, fmt.Sprintf("states_current.%s.yaml", stamp))
	return atomicWrite(dest, data)
}

// PruneHistory removes snapshot files in historyDir beyond the newest keep
// entries, oldest first. It is a no-op if historyDir does not exist.
func PruneHistory(historyDir string, keep int) error {
	entries, err := os.ReadDir(historyDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("statestore: listing %s: %w", historyDir, err)
	}
	if len(entries) <= keep {
		return nil
	}

	type fileInfo struct {
		name    string
		modTime time.Time
	}
	files := make([]fileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{name: e.Name(), modTime: info.ModTime()})
	}
	if len(files) <= keep {
		return nil
	}
	// oldest first
	for i := 0; i < len(files); i++ {
		for j := i + 1; j < len(files); j++ {
			if files[j].modTime.Before(files[i].modTime) {
				files[i], files[j] = files[j], files[i]
			}
		}
	}
	toRemove := files[:len(files)-keep]
	for _, f := range toRemove {
		if err := os.Remove(filepath.Join(historyDir, f.name)); err != nil {
			return fmt.Errorf("statestore: pruning %s: %w", f.name, err)
		}
	}
	return nil
}
