// Package critical answers "is this edge or client untouchable?". The
// default rules defend the live broadcast chain before any operator has
// declared explicit critical edges, so a freshly started daemon is safe.
package critical

import (
	"strings"
	"sync"

	"github.com/anjeleno/rdx-rivendell/pkg/graph"
)

// Verdict is the outcome of one rule: critical, or no opinion (fall
// through to the next rule). An edge that no rule marks Critical is
// non-critical.
type Verdict int

const (
	// Undecided lets evaluation continue with the next rule.
	Undecided Verdict = iota
	// Critical stops evaluation: the edge is protected.
	Critical
)

// Rule inspects one edge against a snapshot. Rules run in registration
// order; the first Critical verdict wins.
type Rule func(snap *graph.Snapshot, source, sink string) Verdict

// Registry holds the critical client substrings, explicit critical edges,
// and the ordered rule list. Membership grows monotonically; there are no
// removal operations.
type Registry struct {
	mu         sync.RWMutex
	substrings []string
	edges      map[[2]string]bool
	rules      []Rule
}

// NewRegistry creates a registry with the default bootstrap: the broadcast
// processing and streaming clients are critical, and the canonical chain
// patterns are protected by rule.
func NewRegistry() *Registry {
	r := &Registry{
		edges: make(map[[2]string]bool),
	}
	for _, s := range []string{"stereo_tool", "liquidsoap", "icecast"} {
		r.substrings = append(r.substrings, s)
	}
	r.rules = []Rule{
		r.explicitEdgeRule,
		r.criticalClientRule,
		playoutSourceRule,
		chainPatternRule,
	}
	return r
}

// MarkClientCritical adds a client-name substring to the critical set.
// Matching is case-insensitive. Idempotent.
func (r *Registry) MarkClientCritical(substring string) {
	if substring == "" {
		return
	}
	s := strings.ToLower(substring)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, have := range r.substrings {
		if have == s {
			return
		}
	}
	r.substrings = append(r.substrings, s)
}

// MarkEdgeCritical declares an explicit protected edge. Idempotent.
// Explicit marks take precedence over every substring heuristic.
func (r *Registry) MarkEdgeCritical(source, sink string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edges[[2]string{source, sink}] = true
}

// IsClientCritical reports whether the client name matches any critical
// substring.
func (r *Registry) IsClientCritical(name string) bool {
	n := strings.ToLower(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.substrings {
		if strings.Contains(n, s) {
			return true
		}
	}
	return false
}

// IsEdgeCritical evaluates the rules in order against the snapshot.
// Membership is recomputed on every query; nothing is cached.
func (r *Registry) IsEdgeCritical(snap *graph.Snapshot, source, sink string) bool {
	r.mu.RLock()
	rules := r.rules
	r.mu.RUnlock()

	for _, rule := range rules {
		if rule(snap, source, sink) == Critical {
			return true
		}
	}
	return false
}

// CriticalEdges returns the subset of the snapshot's edges that are
// currently critical.
func (r *Registry) CriticalEdges(snap *graph.Snapshot) []graph.Edge {
	var out []graph.Edge
	for _, e := range snap.Edges() {
		if r.IsEdgeCritical(snap, e.Source, e.Sink) {
			out = append(out, e)
		}
	}
	return out
}

// Rule 1: the edge was explicitly marked.
func (r *Registry) explicitEdgeRule(_ *graph.Snapshot, source, sink string) Verdict {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.edges[[2]string{source, sink}] {
		return Critical
	}
	return Undecided
}

// Rule 2: either endpoint's client matches a critical substring.
func (r *Registry) criticalClientRule(_ *graph.Snapshot, source, sink string) Verdict {
	srcClient, _ := graph.SplitQualified(source)
	dstClient, _ := graph.SplitQualified(sink)
	if r.IsClientCritical(srcClient) || r.IsClientCritical(dstClient) {
		return Critical
	}
	return Undecided
}

// Rule 3: the broadcast host's playout ports are always source-critical.
func playoutSourceRule(_ *graph.Snapshot, source, _ string) Verdict {
	client, local := graph.SplitQualified(source)
	if strings.Contains(strings.ToLower(client), "rivendell") &&
		strings.Contains(strings.ToLower(local), "playout") {
		return Critical
	}
	return Undecided
}

// Rule 4: the edge matches a canonical chain pattern by client kind:
// source-host into processor, processor into streamer, or streamer into
// the hardware system.
func chainPatternRule(_ *graph.Snapshot, source, sink string) Verdict {
	srcClient, _ := graph.SplitQualified(source)
	dstClient, _ := graph.SplitQualified(sink)
	srcKind := graph.KindOfClient(srcClient)
	dstKind := graph.KindOfClient(dstClient)

	switch {
	case srcKind == graph.KindSoftware && dstKind == graph.KindProcessor:
		return Critical
	case srcKind == graph.KindProcessor && dstKind == graph.KindStreamer:
		return Critical
	case srcKind == graph.KindStreamer && dstKind == graph.KindHardwareSystem:
		return Critical
	default:
		return Undecided
	}
}
