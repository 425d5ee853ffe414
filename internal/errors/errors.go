// Package errors provides centralized error definitions and error handling
// utilities for the Kaizen codebase. It defines domain-specific errors,
// semantic error types, error constructors with context wrapping, and
// error classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Domain-specific errors represent errors from specific subsystems:
//   - GitError: errors related to git operations (checkpoints, commits, PRs)
//   - VerifyError: errors from configured build/test verification commands
//
// Semantic errors represent common error conditions:
//   - ValidationErrors: aggregated configuration validation failures
//   - NotFoundError: resource not found
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewGitError("checkpoint failed", baseErr).WithGitOutput(out)
//	err := errors.NewNotFoundError("proposal", "my-proposal.md")
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrProjectLocked) { ... }
//
//	var gitErr *errors.GitError
//	if errors.As(err, &gitErr) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Lock-related sentinel errors
var (
	// ErrProjectLocked indicates another live process holds the project lock.
	ErrProjectLocked = New("project is locked by another process")
)

// Configuration sentinel errors
var (
	// ErrUnknownLevel indicates the active level names no known preset.
	ErrUnknownLevel = New("unknown level")
	// ErrUnknownConfigKey indicates a Set call against a key that does not exist.
	ErrUnknownConfigKey = New("unknown configuration key")
)

// Proposal sentinel errors
var (
	// ErrProposalNotFound indicates an explicitly named proposal does not exist.
	ErrProposalNotFound = New("proposal not found")
	// ErrNoPendingProposals indicates the pending collection is empty.
	ErrNoPendingProposals = New("no pending proposals")
)

// Session sentinel errors
var (
	// ErrNoPendingSession indicates resume/cancel was called without a paused run.
	ErrNoPendingSession = New("no pending session")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrNotGitRepository indicates the project directory is not a git repository.
	ErrNotGitRepository = New("not a git repository")
)

// -----------------------------------------------------------------------------
// ValidationErrors
// -----------------------------------------------------------------------------

// ValidationErrors aggregates configuration validation failures so every
// out-of-range setting is reported in one pass, before any cycle starts.
type ValidationErrors []error

// Error joins all validation failures into a single message.
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "configuration is invalid"
	}
	msgs := make([]string, 0, len(v))
	for _, err := range v {
		msgs = append(msgs, err.Error())
	}
	return "configuration is invalid: " + strings.Join(msgs, "; ")
}

// Unwrap exposes the individual failures to errors.Is / errors.As.
func (v ValidationErrors) Unwrap() []error {
	return v
}

// -----------------------------------------------------------------------------
// NotFoundError
// -----------------------------------------------------------------------------

// NotFoundError indicates that a named resource could not be found.
type NotFoundError struct {
	// Resource is the kind of resource, e.g. "proposal".
	Resource string
	// ID identifies the specific resource that was requested.
	ID string
}

// NewNotFoundError creates a NotFoundError for the given resource and id.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// Error returns the error message.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// Is matches the package-level sentinel for the resource kind, so callers
// can write errors.Is(err, errors.ErrProposalNotFound).
func (e *NotFoundError) Is(target error) bool {
	if target == ErrProposalNotFound && e.Resource == "proposal" {
		return true
	}
	return false
}

// -----------------------------------------------------------------------------
// LockError
// -----------------------------------------------------------------------------

// LockError reports lock contention, naming the blocking process.
type LockError struct {
	// PID is the process id recorded in the lock file.
	PID int
	// Path is the location of the lock file.
	Path string
}

// NewLockError creates a LockError for the given owner pid and lock path.
func NewLockError(pid int, path string) *LockError {
	return &LockError{PID: pid, Path: path}
}

// Error returns the error message.
func (e *LockError) Error() string {
	return fmt.Sprintf("project is locked by another process: PID %d (lock file %s)", e.PID, e.Path)
}

// Is reports a match against ErrProjectLocked.
func (e *LockError) Is(target error) bool {
	return target == ErrProjectLocked
}

// -----------------------------------------------------------------------------
// GitError
// -----------------------------------------------------------------------------

// GitError represents an error from a git or gh operation, carrying the
// command output for the log.
type GitError struct {
	message   string
	cause     error
	gitOutput string
	branch    string
}

// NewGitError creates a GitError with the given message and cause.
func NewGitError(message string, cause error) *GitError {
	return &GitError{message: message, cause: cause}
}

// WithGitOutput attaches the raw command output.
func (e *GitError) WithGitOutput(output string) *GitError {
	e.gitOutput = strings.TrimSpace(output)
	return e
}

// WithBranch attaches the branch involved in the operation.
func (e *GitError) WithBranch(branch string) *GitError {
	e.branch = branch
	return e
}

// Error returns the error message.
func (e *GitError) Error() string {
	msg := e.message
	if e.branch != "" {
		msg = fmt.Sprintf("%s (branch %s)", msg, e.branch)
	}
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	if e.gitOutput != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.gitOutput)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *GitError) Unwrap() error {
	return e.cause
}

// GitOutput returns the raw command output, if captured.
func (e *GitError) GitOutput() string {
	return e.gitOutput
}

// -----------------------------------------------------------------------------
// VerifyError
// -----------------------------------------------------------------------------

// VerifyError indicates that a configured build or test command failed.
type VerifyError struct {
	// Check is "build" or "test".
	Check string
	// Command is the configured shell command that failed.
	Command string
	// Output is the combined output of the failed command, truncated.
	Output string
	cause  error
}

// NewVerifyError creates a VerifyError for the given check.
func NewVerifyError(check, command, output string, cause error) *VerifyError {
	const maxOutput = 4000
	if len(output) > maxOutput {
		output = output[len(output)-maxOutput:]
	}
	return &VerifyError{Check: check, Command: command, Output: output, cause: cause}
}

// Error returns the error message.
func (e *VerifyError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s check failed (%s): %v", e.Check, e.Command, e.cause)
	}
	return fmt.Sprintf("%s check failed (%s)", e.Check, e.Command)
}

// Unwrap returns the underlying error.
func (e *VerifyError) Unwrap() error {
	return e.cause
}
