// Package gitops wraps the git and gh CLIs for the cycle lifecycle:
// reversible checkpoints around Execute, attributed commits, and the
// branch-plus-pull-request publishing path with its direct-commit fallback.
package gitops

import (
	"fmt"
	"strings"

	kerrors "github.com/Iron-Ham/kaizen/internal/errors"
	"github.com/Iron-Ham/kaizen/internal/logging"
)

// CommandExecutor abstracts process execution so git behavior can be tested
// without a real repository.
type CommandExecutor interface {
	// Execute runs the command in dir and returns its combined output.
	Execute(dir, name string, args ...string) (string, error)
}

// Git performs version-control operations for one project checkout.
type Git struct {
	dir      string
	executor CommandExecutor
	logger   *logging.Logger
}

// New creates a Git over the project directory.
func New(dir string, logger *logging.Logger) *Git {
	return &Git{dir: dir, executor: &systemExecutor{}, logger: logger}
}

// SetExecutor replaces the command executor, for tests.
func (g *Git) SetExecutor(e CommandExecutor) { g.executor = e }

func (g *Git) git(args ...string) (string, error) {
	return g.executor.Execute(g.dir, "git", args...)
}

// IsRepository reports whether the project directory is inside a git
// work tree.
func (g *Git) IsRepository() bool {
	out, err := g.git("rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

// RequireRepository fails with ErrNotGitRepository when the project
// directory is not under version control.
func (g *Git) RequireRepository() error {
	if !g.IsRepository() {
		return kerrors.ErrNotGitRepository
	}
	return nil
}

// Checkpoint stashes the entire working tree (untracked included) under
// the given name, so Execute's changes can be rolled back.
func (g *Git) Checkpoint(name string) error {
	out, err := g.git("stash", "push", "--include-untracked", "-m", name)
	if err != nil {
		return kerrors.NewGitError("creating checkpoint", err).WithGitOutput(out)
	}
	// A clean tree produces no stash entry; restore and drop handle that.
	return nil
}

// RestoreCheckpoint rolls the working tree back to the named checkpoint,
// discarding everything done since. A missing checkpoint (the tree was
// clean when it was taken) only requires discarding the new changes.
func (g *Git) RestoreCheckpoint(name string) error {
	if out, err := g.git("checkout", "--", "."); err != nil {
		return kerrors.NewGitError("discarding changes", err).WithGitOutput(out)
	}
	if out, err := g.git("clean", "-fd"); err != nil {
		return kerrors.NewGitError("removing untracked files", err).WithGitOutput(out)
	}

	ref, ok := g.findStash(name)
	if !ok {
		return nil
	}
	if out, err := g.git("stash", "pop", ref); err != nil {
		return kerrors.NewGitError("restoring checkpoint", err).WithGitOutput(out)
	}
	return nil
}

// DropCheckpoint discards the named checkpoint after a successful cycle.
func (g *Git) DropCheckpoint(name string) error {
	ref, ok := g.findStash(name)
	if !ok {
		return nil
	}
	if out, err := g.git("stash", "drop", ref); err != nil {
		return kerrors.NewGitError("dropping checkpoint", err).WithGitOutput(out)
	}
	return nil
}

// findStash resolves a checkpoint name to its stash ref.
func (g *Git) findStash(name string) (string, bool) {
	out, err := g.git("stash", "list")
	if err != nil {
		return "", false
	}
	for _, line := range strings.Split(out, "\n") {
		ref, rest, found := strings.Cut(line, ":")
		if found && strings.Contains(rest, name) {
			return strings.TrimSpace(ref), true
		}
	}
	return "", false
}

// HasChanges reports whether the working tree differs from HEAD.
func (g *Git) HasChanges() (bool, error) {
	out, err := g.git("status", "--porcelain")
	if err != nil {
		return false, kerrors.NewGitError("checking working tree", err).WithGitOutput(out)
	}
	return strings.TrimSpace(out) != "", nil
}

// ChangedFiles lists paths that differ from HEAD, untracked included.
func (g *Git) ChangedFiles() ([]string, error) {
	out, err := g.git("status", "--porcelain")
	if err != nil {
		return nil, kerrors.NewGitError("listing changed files", err).WithGitOutput(out)
	}

	var files []string
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		path := strings.TrimSpace(line[3:])
		// Renames report "old -> new"; the new path is what changed.
		if _, renamed, found := strings.Cut(path, " -> "); found {
			path = renamed
		}
		files = append(files, path)
	}
	return files, nil
}

// CommitAll stages everything and commits with the given message.
func (g *Git) CommitAll(message string) error {
	if out, err := g.git("add", "-A"); err != nil {
		return kerrors.NewGitError("staging changes", err).WithGitOutput(out)
	}
	if out, err := g.git("commit", "-m", message); err != nil {
		return kerrors.NewGitError("committing", err).WithGitOutput(out)
	}
	return nil
}

// CurrentBranch returns the checked-out branch name.
func (g *Git) CurrentBranch() (string, error) {
	out, err := g.git("rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", kerrors.NewGitError("resolving current branch", err).WithGitOutput(out)
	}
	return strings.TrimSpace(out), nil
}

// SourceFileCount counts tracked files, for sizing the Observe turn budget.
func (g *Git) SourceFileCount() int {
	out, err := g.git("ls-files")
	if err != nil {
		return 0
	}
	count := 0
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}

// PublishPR commits the working tree on a new branch, pushes it, and opens
// a pull request via the gh CLI. Returns the PR URL.
func (g *Git) PublishPR(branch, message, title, body string) (string, error) {
	if out, err := g.git("checkout", "-b", branch); err != nil {
		return "", kerrors.NewGitError("creating branch", err).WithBranch(branch).WithGitOutput(out)
	}
	if err := g.CommitAll(message); err != nil {
		return "", err
	}
	if out, err := g.git("push", "-u", "origin", branch); err != nil {
		return "", kerrors.NewGitError("pushing branch", err).WithBranch(branch).WithGitOutput(out)
	}

	out, err := g.executor.Execute(g.dir, "gh", "pr", "create",
		"--title", title,
		"--body", body,
		"--head", branch,
	)
	if err != nil {
		return "", kerrors.NewGitError("creating pull request", err).WithBranch(branch).WithGitOutput(out)
	}
	// gh prints the PR URL on success.
	return strings.TrimSpace(out), nil
}

// Publish lands the working tree per the configured code-output mode.
// In "pr" mode any failure on the branch/push/PR path falls back to a
// direct commit on the original branch; failures of the fallback itself
// do propagate.
func (g *Git) Publish(mode, message, prTitle, prBody string, cycle int) error {
	if mode != "pr" {
		return g.CommitAll(message)
	}

	original, err := g.CurrentBranch()
	if err != nil {
		return err
	}

	branch := fmt.Sprintf("kaizen/cycle-%04d", cycle)
	url, err := g.PublishPR(branch, message, prTitle, prBody)
	if err == nil {
		g.logger.Info("pull request created", "branch", branch, "url", url)
		if out, cerr := g.git("checkout", original); cerr != nil {
			return kerrors.NewGitError("returning to original branch", cerr).
				WithBranch(original).WithGitOutput(out)
		}
		return nil
	}

	g.logger.Warn("pull request path failed, falling back to direct commit",
		"branch", branch, "error", err.Error())

	// The failure can leave us on the new branch with the commit already
	// made; fold everything back onto the original branch.
	if out, cerr := g.git("checkout", original); cerr != nil {
		return kerrors.NewGitError("returning to original branch", cerr).
			WithBranch(original).WithGitOutput(out)
	}
	// If the commit landed on the new branch before the failure, fold it
	// back; otherwise the changes are still uncommitted in the tree.
	if _, merr := g.git("merge", "--ff-only", branch); merr == nil {
		_, _ = g.git("branch", "-D", branch)
		return nil
	}
	_, _ = g.git("branch", "-D", branch)

	return g.CommitAll(message)
}
