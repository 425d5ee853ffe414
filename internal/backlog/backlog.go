// Package backlog manages the pool of identified-but-not-yet-implemented
// improvement ideas. Items are deduplicated by title, escalate to stale
// after repeated failures, and old finished items are pruned.
package backlog

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/Iron-Ham/kaizen/internal/config"
	"github.com/Iron-Ham/kaizen/internal/state"
)

// Status is the lifecycle state of a backlog item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusStale      Status = "stale"
)

// Item is one improvement idea awaiting implementation.
type Item struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Category string   `json:"category,omitempty"`
	Priority string   `json:"priority"`
	Files    []string `json:"files,omitempty"`
	// Persona is the lens that identified the improvement.
	Persona string `json:"persona"`
	// Cycle is the cycle the item originated in; pruning ages off it.
	Cycle    int    `json:"cycle"`
	Status   Status `json:"status"`
	Attempts int    `json:"attempts"`
}

// Idea is the un-filed form of an improvement, as parsed from agent output.
type Idea struct {
	Title    string
	Category string
	Priority string
	Files    []string
}

// Manager owns the persisted backlog for one project.
type Manager struct {
	path  string
	cfg   config.BacklogConfig
	items []Item
}

// NewManager loads the backlog at path (empty if absent).
func NewManager(path string, cfg config.BacklogConfig) *Manager {
	return &Manager{
		path:  path,
		cfg:   cfg,
		items: state.ReadJSON(path, []Item{}),
	}
}

// Items returns a copy of the current backlog.
func (m *Manager) Items() []Item {
	return append([]Item{}, m.items...)
}

// Save files new ideas under the originating persona and cycle. Any idea
// whose title exactly matches an existing item (in any status) is skipped.
// Returns how many items were added.
func (m *Manager) Save(ideas []Idea, persona string, cycle int) (int, error) {
	titles := map[string]bool{}
	for _, item := range m.items {
		titles[item.Title] = true
	}

	added := 0
	for _, idea := range ideas {
		if idea.Title == "" || titles[idea.Title] {
			continue
		}
		titles[idea.Title] = true
		m.items = append(m.items, Item{
			ID:       uuid.NewString(),
			Title:    idea.Title,
			Category: idea.Category,
			Priority: normalizePriority(idea.Priority),
			Files:    idea.Files,
			Persona:  persona,
			Cycle:    cycle,
			Status:   StatusPending,
			Attempts: 0,
		})
		added++
	}

	if added == 0 {
		return 0, nil
	}
	return added, m.persist()
}

// ClaimByTitle marks the pending item with this exact title in_progress and
// returns its id, so the cycle that implements a previously-filed idea
// drives its lifecycle. An empty id means no pending item matched.
func (m *Manager) ClaimByTitle(title string) (string, error) {
	if title == "" {
		return "", nil
	}
	for i := range m.items {
		if m.items[i].Status != StatusPending || m.items[i].Title != title {
			continue
		}
		m.items[i].Status = StatusInProgress
		return m.items[i].ID, m.persist()
	}
	return "", nil
}

// UpdateStatus moves an item to a new status. A transition to pending is a
// re-queued failure: attempts is incremented, and once it reaches the
// configured maximum the item auto-escalates to stale instead.
func (m *Manager) UpdateStatus(id string, status Status) error {
	for i := range m.items {
		if m.items[i].ID != id {
			continue
		}

		if status == StatusPending {
			m.items[i].Attempts++
			if m.items[i].Attempts >= m.cfg.MaxAttempts {
				status = StatusStale
			}
		}
		m.items[i].Status = status
		return m.persist()
	}
	return fmt.Errorf("backlog item not found: %s", id)
}

// Prune drops completed and stale items whose origin cycle has aged past
// the configured window. Pending and in-progress items are never pruned.
// Returns how many items were removed.
func (m *Manager) Prune(currentCycle int) (int, error) {
	cutoff := currentCycle - m.cfg.PruneAge

	kept := m.items[:0]
	for _, item := range m.items {
		finished := item.Status == StatusCompleted || item.Status == StatusStale
		if finished && item.Cycle <= cutoff {
			continue
		}
		kept = append(kept, item)
	}

	removed := len(m.items) - len(kept)
	m.items = kept
	if removed == 0 {
		return 0, nil
	}
	return removed, m.persist()
}

// Context returns up to limit pending items, highest priority first
// (high, then medium, then low), for injection into the Observe prompt.
func (m *Manager) Context(limit int) []Item {
	var pending []Item
	for _, item := range m.items {
		if item.Status == StatusPending {
			pending = append(pending, item)
		}
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return priorityRank(pending[i].Priority) < priorityRank(pending[j].Priority)
	})

	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending
}

func (m *Manager) persist() error {
	return state.WriteJSON(m.path, m.items)
}

// priorityRank orders high before medium before low; anything else sinks.
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

// normalizePriority defaults unrecognized priorities to medium.
func normalizePriority(priority string) string {
	switch priority {
	case "high", "medium", "low":
		return priority
	default:
		return "medium"
	}
}
