// Package lock provides a project-scoped advisory lock guaranteeing a single
// active run per project. The lock is a plain-text file holding the owning
// process id; it is validated against OS process liveness, so a crashed run
// never wedges the project.
package lock

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/Iron-Ham/kaizen/internal/errors"
	"github.com/Iron-Ham/kaizen/internal/logging"
)

// Lock represents an acquired project lock.
type Lock struct {
	// PID is the process id that owns the lock.
	PID int

	path   string
	logger *logging.Logger
}

// Acquire attempts to take the project lock at lockPath.
//
// If a lock file exists and its recorded process is still alive, Acquire
// fails with a LockError naming the blocking pid. If the recorded process is
// dead the stale file is silently reclaimed and acquisition retried once.
// The logger is optional and may be nil (the lock is usually acquired before
// the logger is fully initialized).
func Acquire(lockPath string, logger *logging.Logger) (*Lock, error) {
	for attempt := 0; attempt < 2; attempt++ {
		lock, err := tryAcquire(lockPath, logger)
		if err == nil {
			return lock, nil
		}

		ownerPID, ok := readOwner(lockPath)
		if !ok {
			// Unreadable or vanished lock file; retry once.
			continue
		}
		if isProcessAlive(ownerPID) {
			if logger != nil {
				logger.Error("failed to acquire project lock", "owner_pid", ownerPID)
			}
			return nil, errors.NewLockError(ownerPID, lockPath)
		}

		// Stale lock from a dead process: reclaim and retry.
		if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lock: %w", err)
		}
		if logger != nil {
			logger.Warn("stale lock reclaimed", "old_pid", ownerPID)
		}
	}

	// A second writer won both races; report whatever owner we can see.
	if ownerPID, ok := readOwner(lockPath); ok {
		return nil, errors.NewLockError(ownerPID, lockPath)
	}
	return nil, errors.ErrProjectLocked
}

// tryAcquire creates the lock file with O_EXCL so two processes racing for
// the lock cannot both win.
func tryAcquire(lockPath string, logger *logging.Logger) (*Lock, error) {
	f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pid := os.Getpid()
	if _, err := fmt.Fprintf(f, "%d\n", pid); err != nil {
		os.Remove(lockPath)
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}

	if logger != nil {
		logger.Info("project lock acquired", "pid", pid)
	}

	return &Lock{PID: pid, path: lockPath, logger: logger}, nil
}

// Release removes the lock file. It must run on every exit path, so callers
// defer it immediately after Acquire. Safe to call more than once; it only
// removes the file while this process still owns it.
func (l *Lock) Release() error {
	if l == nil || l.path == "" {
		return nil
	}

	ownerPID, ok := readOwner(l.path)
	if !ok || ownerPID != l.PID {
		return nil
	}

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return err
	}

	if l.logger != nil {
		l.logger.Info("project lock released", "pid", l.PID)
	}
	return nil
}

// Holder reports the pid currently holding the lock, if the lock is held by
// a live process.
func Holder(lockPath string) (int, bool) {
	pid, ok := readOwner(lockPath)
	if !ok {
		return 0, false
	}
	if !isProcessAlive(pid) {
		return pid, false
	}
	return pid, true
}

// readOwner parses the pid out of the lock file.
func readOwner(lockPath string) (int, bool) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// isProcessAlive checks if a process with the given pid is still running.
// On Unix, signal 0 probes for existence without affecting the process.
func isProcessAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
