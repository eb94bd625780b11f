package graph

import (
	"fmt"
	"sort"
)

// Redundancy marks one direct dependency as transitively reachable
// through another, with a human-readable justification.
type Redundancy struct {
	ID     string // the removable direct dependency
	Via    string // the other direct dependency that already reaches it
	Reason string
}

// Reduction is the read-only result of transitive analysis for one
// entity. Applying it is a separate, opt-in step.
type Reduction struct {
	Subject   string
	Direct    []string
	Redundant []Redundancy
}

// RemovableSet returns the redundant dependency IDs as a set, ready for
// filtering a dependency list.
func (r Reduction) RemovableSet() map[string]bool {
	set := make(map[string]bool, len(r.Redundant))
	for _, red := range r.Redundant {
		set[red.ID] = true
	}
	return set
}

// FindTransitiveDependencies analyzes one entity's direct depends_on list
// and reports which entries are also reachable through another direct
// dependency. An entity with fewer than two direct dependencies is never
// reduced. The local graph is bounded: the subject, its direct
// dependencies, and the dependencies of those dependencies — one level
// only, to keep cost predictable.
func FindTransitiveDependencies(subject string, edges EdgesFunc) Reduction {
	direct := edges(subject)
	result := Reduction{Subject: subject, Direct: direct}
	if len(direct) < 2 {
		return result
	}

	// Local adjacency: direct deps plus one level beyond them.
	local := make(map[string][]string, len(direct)*2)
	for _, d := range direct {
		next := edges(d)
		local[d] = next
		for _, n := range next {
			if _, seen := local[n]; !seen {
				local[n] = edges(n)
			}
		}
	}

	directSet := make(map[string]bool, len(direct))
	for _, d := range direct {
		directSet[d] = true
	}

	for _, d := range direct {
		via, found := reachableFromOther(d, direct, local)
		if !found {
			continue
		}
		result.Redundant = append(result.Redundant, Redundancy{
			ID:  d,
			Via: via,
			Reason: fmt.Sprintf("%s already depends on %s transitively through %s; the direct edge is redundant",
				subject, d, via),
		})
	}
	sort.Slice(result.Redundant, func(i, j int) bool {
		return result.Redundant[i].ID < result.Redundant[j].ID
	})
	return result
}

// reachableFromOther runs a breadth-first search from every direct
// dependency other than target over the local graph, reporting the first
// (alphabetically smallest) one that reaches target.
func reachableFromOther(target string, direct []string, local map[string][]string) (string, bool) {
	others := make([]string, 0, len(direct)-1)
	for _, o := range direct {
		if o != target {
			others = append(others, o)
		}
	}
	sort.Strings(others)

	for _, origin := range others {
		visited := map[string]bool{origin: true}
		queue := []string{origin}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, next := range local[cur] {
				if next == target {
					return origin, true
				}
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
	}
	return "", false
}
