// Package mutation defines the behavioral lenses applied to each cycle —
// personas and adversarial challenges — and the adaptive weighted selection
// between them.
package mutation

// Kind distinguishes the two mutation families.
type Kind string

const (
	KindPersona     Kind = "persona"
	KindAdversarial Kind = "adversarial"
)

// Mutation is a persona or adversarial challenge. Built-in mutations are
// read-only; dynamic ones are generated by the meta observer and expire.
type Mutation struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Text is the behavioral directive injected into Observe/Plan prompts:
	// a perspective for personas, a challenge for adversarials.
	Text string `json:"text"`
	// Group is an optional tag for restricting selection to a theme.
	Group string `json:"group,omitempty"`
	// Dynamic marks meta-generated mutations.
	Dynamic bool `json:"dynamic,omitempty"`
	// ExpiresCycle is the last cycle a dynamic mutation is valid for.
	// A mutation expires once the current cycle is strictly greater.
	ExpiresCycle int `json:"expires_cycle,omitempty"`
}

// Expired reports whether a dynamic mutation has outlived its TTL.
func (m Mutation) Expired(currentCycle int) bool {
	return m.Dynamic && currentCycle > m.ExpiresCycle
}

// BuiltinPersonas returns the read-only persona catalog.
func BuiltinPersonas() []Mutation {
	return []Mutation{
		{
			ID:   "security-auditor",
			Name: "Security Auditor",
			Text: "Review the codebase as a security auditor. Hunt for injection points, unsafe input handling, secrets in code, path traversal, and missing permission checks.",
		},
		{
			ID:   "performance-hawk",
			Name: "Performance Hawk",
			Text: "Look for hot paths doing avoidable work: repeated allocations, quadratic scans, unbounded caches, synchronous IO in loops.",
		},
		{
			ID:    "refactorer",
			Name:  "Relentless Refactorer",
			Text:  "Find the module with the worst coupling or duplication and simplify it without changing behavior.",
			Group: "quality",
		},
		{
			ID:    "test-champion",
			Name:  "Test Champion",
			Text:  "Find the riskiest untested behavior and add focused, deterministic tests for it. Prefer table-driven tests over broad integration scaffolding.",
			Group: "quality",
		},
		{
			ID:   "api-ergonomist",
			Name: "API Ergonomist",
			Text: "Review public interfaces as their consumer. Tighten confusing signatures, inconsistent naming, and error returns that hide causes.",
		},
		{
			ID:    "doc-curator",
			Name:  "Documentation Curator",
			Text:  "Find the place where a newcomer would get lost first and fix it: stale comments, missing package docs, misleading names.",
			Group: "quality",
		},
		{
			ID:   "error-handler",
			Name: "Error Handling Skeptic",
			Text: "Audit error paths: swallowed errors, missing context on wrapped errors, panics reachable from input, inconsistent sentinel usage.",
		},
		{
			ID:    "dependency-warden",
			Name:  "Dependency Warden",
			Text:  "Review third-party usage: unused requires, APIs used in deprecated ways, places where a dependency is reimplemented by hand.",
			Group: "hygiene",
		},
		{
			ID:    "concurrency-inspector",
			Name:  "Concurrency Inspector",
			Text:  "Look for data races, goroutine leaks, missing context cancellation, and locks held across blocking calls.",
			Group: "hygiene",
		},
		{
			ID:   "newcomer",
			Name: "First-Day Newcomer",
			Text: "Read the project as someone on their first day. Fix the smallest thing that would have saved you the most confusion.",
		},
	}
}

// BuiltinAdversarials returns the read-only adversarial challenge catalog.
func BuiltinAdversarials() []Mutation {
	return []Mutation{
		{
			ID:   "chaos-monkey",
			Name: "Chaos Monkey",
			Text: "Assume every external call can fail, hang, or return garbage. Prove the improvement still holds, or harden it until it does.",
		},
		{
			ID:   "hostile-reviewer",
			Name: "Hostile Reviewer",
			Text: "Before implementing, argue against the change as a skeptical reviewer would. Only proceed with the parts that survive the argument.",
		},
		{
			ID:   "time-traveler",
			Name: "Time Traveler",
			Text: "Evaluate the change as maintained two years from now by someone without context. Remove anything that only makes sense today.",
		},
		{
			ID:   "minimalist",
			Name: "Ruthless Minimalist",
			Text: "Accomplish the improvement with the smallest possible diff. Every extra line must justify itself.",
		},
		{
			ID:   "edge-case-prosecutor",
			Name: "Edge Case Prosecutor",
			Text: "Enumerate the boundary conditions the change touches - empty inputs, limits, concurrent access - and handle each explicitly.",
		},
	}
}
