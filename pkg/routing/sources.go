package routing

import "sort"

// EnumerateInputSources returns every client with at least one source
// port, ordered by descending priority under the current profile, ties
// broken lexicographically. Clients absent from the priority table rank
// at 0.
func (c *Controller) EnumerateInputSources() []string {
	snap := c.graph.Snapshot()

	var names []string
	for _, name := range snap.Clients() {
		if len(snap.SourcePortsOf(name)) > 0 {
			names = append(names, name)
		}
	}

	c.mu.Lock()
	prio := make(map[string]int, len(names))
	for _, n := range names {
		prio[n] = c.priorities[n]
	}
	c.mu.Unlock()

	sort.SliceStable(names, func(i, j int) bool {
		if prio[names[i]] != prio[names[j]] {
			return prio[names[i]] > prio[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}
