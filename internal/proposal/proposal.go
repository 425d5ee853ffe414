// Package proposal manages human-reviewable improvement artifacts: markdown
// files in a pending collection, moved to a done collection once implemented.
package proposal

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	kerrors "github.com/Iron-Ham/kaizen/internal/errors"
)

// Proposal is one pending artifact, identified by its filename.
type Proposal struct {
	ID       string
	Path     string
	Priority string
	Content  string
}

// Manager owns the pending and done collections for one project.
type Manager struct {
	pendingDir string
	doneDir    string
	now        func() time.Time
}

// NewManager creates a Manager over the two collection directories.
func NewManager(pendingDir, doneDir string) *Manager {
	return &Manager{
		pendingDir: pendingDir,
		doneDir:    doneDir,
		now:        time.Now,
	}
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// slugify reduces a title to a short lowercase filename fragment.
func slugify(title string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(title), "-")
	s = strings.Trim(s, "-")
	if len(s) > 40 {
		s = strings.TrimRight(s[:40], "-")
	}
	return s
}

// Add writes a new pending artifact. The filename carries persona and a
// title slug when available, plus a timestamp; without either it is a bare
// timestamp. Returns the artifact id (its filename).
func (m *Manager) Add(content, title, persona string) (string, error) {
	if err := os.MkdirAll(m.pendingDir, 0o755); err != nil {
		return "", err
	}

	stamp := m.now().UTC().Format("20060102-150405")
	var parts []string
	if persona != "" {
		parts = append(parts, persona)
	}
	if slug := slugify(title); slug != "" {
		parts = append(parts, slug)
	}
	parts = append(parts, stamp)
	base := strings.Join(parts, "-")

	// Several proposals can land within the same second (analyze runs).
	name := base + ".md"
	for n := 2; ; n++ {
		path := filepath.Join(m.pendingDir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			name = fmt.Sprintf("%s-%d.md", base, n)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("writing proposal: %w", err)
		}
		_, werr := f.WriteString(content)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return "", fmt.Errorf("writing proposal: %w", werr)
		}
		return name, nil
	}
}

// List returns all pending proposals in filename order.
func (m *Manager) List() ([]Proposal, error) {
	entries, err := os.ReadDir(m.pendingDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var proposals []Proposal
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		path := filepath.Join(m.pendingDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, Proposal{
			ID:       entry.Name(),
			Path:     path,
			Priority: scanPriority(string(data)),
			Content:  string(data),
		})
	}

	sort.Slice(proposals, func(i, j int) bool { return proposals[i].ID < proposals[j].ID })
	return proposals, nil
}

// Select resolves the proposal to implement. With an explicit id it must
// exist exactly; otherwise the highest declared priority wins, with the
// oldest filename breaking ties.
func (m *Manager) Select(id string) (Proposal, error) {
	proposals, err := m.List()
	if err != nil {
		return Proposal{}, err
	}

	if id != "" {
		for _, p := range proposals {
			if p.ID == id {
				return p, nil
			}
		}
		return Proposal{}, kerrors.NewNotFoundError("proposal", id)
	}

	if len(proposals) == 0 {
		return Proposal{}, kerrors.ErrNoPendingProposals
	}

	best := proposals[0]
	for _, p := range proposals[1:] {
		// List is filename-sorted, so a strictly better priority is the
		// only way a later file can win.
		if priorityRank(p.Priority) < priorityRank(best.Priority) {
			best = p
		}
	}
	return best, nil
}

// MarkDone moves the artifact into the done collection.
func (m *Manager) MarkDone(id string) error {
	src := filepath.Join(m.pendingDir, id)
	if _, err := os.Stat(src); err != nil {
		return kerrors.NewNotFoundError("proposal", id)
	}
	if err := os.MkdirAll(m.doneDir, 0o755); err != nil {
		return err
	}
	return os.Rename(src, filepath.Join(m.doneDir, id))
}

// PendingCount returns how many proposals await review.
func (m *Manager) PendingCount() int {
	proposals, err := m.List()
	if err != nil {
		return 0
	}
	return len(proposals)
}

var priorityLine = regexp.MustCompile(`(?i)^[*\s>#-]*priority[*\s]*:[*\s]*(high|medium|low)\b`)

// scanPriority extracts a declared priority from the artifact's leading
// lines, defaulting to medium when none is declared.
func scanPriority(content string) string {
	scanner := bufio.NewScanner(strings.NewReader(content))
	for line := 0; scanner.Scan() && line < 10; line++ {
		if m := priorityLine.FindStringSubmatch(scanner.Text()); m != nil {
			return strings.ToLower(m[1])
		}
	}
	return "medium"
}

func priorityRank(priority string) int {
	switch priority {
	case "high":
		return 0
	case "medium":
		return 1
	case "low":
		return 2
	default:
		return 3
	}
}
