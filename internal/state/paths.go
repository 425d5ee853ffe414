// Package state provides the on-disk layout of a project's Kaizen state
// directory and small persistence helpers shared by every repository.
//
// All persisted state is read-modify-write-whole: files are replaced
// atomically (write-to-temp-then-rename) and reads fall back to a default on
// a missing or corrupt file, so no call site ever observes a parse error.
package state

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the per-project state directory.
const DirName = ".kaizen"

// Paths resolves every persisted file for one project.
type Paths struct {
	// ProjectDir is the project checkout being evolved.
	ProjectDir string
	// Root is the state directory, <project>/.kaizen.
	Root string
}

// NewPaths creates a Paths rooted at projectDir's state directory.
func NewPaths(projectDir string) Paths {
	return Paths{
		ProjectDir: projectDir,
		Root:       filepath.Join(projectDir, DirName),
	}
}

// EnsureLayout creates the state directory skeleton.
func (p Paths) EnsureLayout() error {
	dirs := []string{
		p.Root,
		p.HistoryDir(),
		p.ProposalsDir(),
		p.ProposalsDoneDir(),
		p.StimuliDir(),
		p.ProcessedStimuliDir(),
		p.DecisionsDir(),
		p.LogsDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create state directory %s: %w", dir, err)
		}
	}
	return nil
}

// ConfigFile is the project configuration (JSON, comments permitted).
func (p Paths) ConfigFile() string { return filepath.Join(p.Root, "config.json") }

// IdentityFile describes the project in prose for agent prompts.
func (p Paths) IdentityFile() string { return filepath.Join(p.Root, "identity.md") }

// ProgressFile holds global and per-mutation statistics.
func (p Paths) ProgressFile() string { return filepath.Join(p.Root, "progress.json") }

// BacklogFile holds improvement ideas awaiting implementation.
func (p Paths) BacklogFile() string { return filepath.Join(p.Root, "backlog.json") }

// HistoryDir holds one immutable record per completed or skipped cycle.
func (p Paths) HistoryDir() string { return filepath.Join(p.Root, "history") }

// HistoryFile returns the sequential, 4-digit record path for a cycle.
func (p Paths) HistoryFile(cycle int) string {
	return filepath.Join(p.HistoryDir(), fmt.Sprintf("cycle-%04d.json", cycle))
}

// ProposalsDir holds pending human-reviewable proposals.
func (p Paths) ProposalsDir() string { return filepath.Join(p.Root, "proposals") }

// ProposalsDoneDir holds implemented proposals.
func (p Paths) ProposalsDoneDir() string { return filepath.Join(p.ProposalsDir(), "done") }

// StimuliDir holds one-shot prompts injected into the next cycle.
func (p Paths) StimuliDir() string { return filepath.Join(p.Root, "stimuli") }

// ProcessedStimuliDir holds consumed stimuli.
func (p Paths) ProcessedStimuliDir() string { return filepath.Join(p.StimuliDir(), ".processed") }

// DecisionsDir holds one-shot human overrides, deleted on consumption.
func (p Paths) DecisionsDir() string { return filepath.Join(p.Root, "decisions") }

// DynamicPersonasFile holds MetaObserver-generated personas.
func (p Paths) DynamicPersonasFile() string { return filepath.Join(p.Root, "dynamic-personas.json") }

// DynamicAdversarialsFile holds MetaObserver-generated adversarials.
func (p Paths) DynamicAdversarialsFile() string {
	return filepath.Join(p.Root, "dynamic-adversarials.json")
}

// AdviceFile holds the latest strategic advice record.
func (p Paths) AdviceFile() string { return filepath.Join(p.Root, "advice.json") }

// EnvironmentFile caches tracked source-file metrics.
func (p Paths) EnvironmentFile() string { return filepath.Join(p.Root, "environment.json") }

// ScoutFile is the scout's finding cache.
func (p Paths) ScoutFile() string { return filepath.Join(p.Root, "scout.json") }

// PendingFile holds the paused cautious-mode session.
func (p Paths) PendingFile() string { return filepath.Join(p.Root, "pending.json") }

// LockFile is the plain-text project lock holding a process id.
func (p Paths) LockFile() string { return filepath.Join(p.Root, "lock") }

// LogsDir holds the append-only orchestrator log.
func (p Paths) LogsDir() string { return filepath.Join(p.Root, "logs") }

// LogFile is the append-only orchestrator log.
func (p Paths) LogFile() string { return filepath.Join(p.LogsDir(), "orchestrator.log") }
