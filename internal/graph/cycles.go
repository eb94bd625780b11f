// Package graph holds the stateless dependency-graph algorithms: cycle
// detection over the depends_on direction and transitive-redundancy
// analysis. Both operate against an edge accessor rather than a concrete
// structure, so they run equally against the live index or an ad hoc
// edge set in tests.
package graph

import (
	"sort"

	"github.com/pcanham/gantry/internal/vault"
)

// EdgesFunc returns the direct depends_on targets of an entity.
type EdgesFunc func(id string) []string

// WouldCreateCycle reports whether inserting the edge from→to would make
// some node reachable from itself: true iff `to` can already reach
// `from`. Call it before any mutation so the check always runs against
// the pre-edge state.
func WouldCreateCycle(from, to string, edges EdgesFunc) bool {
	if from == to {
		return true
	}
	return reaches(to, from, edges)
}

// FindCyclePath returns the cycle that inserting from→to would close, as
// [from, to, ..., from]. Returns nil when the edge is safe.
func FindCyclePath(from, to string, edges EdgesFunc) []string {
	if from == to {
		return []string{from, from}
	}
	parent := map[string]string{}
	if !dfsFind(to, from, edges, parent) {
		return nil
	}
	// Walk parent pointers from `from` back to `to`, then prepend the
	// new edge's source and close the loop.
	var tail []string
	for cur := from; ; cur = parent[cur] {
		tail = append(tail, cur)
		if cur == to {
			break
		}
	}
	// tail is [from, ..., to] reversed along parent pointers; flip it.
	path := make([]string, 0, len(tail)+2)
	path = append(path, from)
	for i := len(tail) - 1; i >= 0; i-- {
		path = append(path, tail[i])
	}
	return path
}

// reaches performs a depth-first reachability search from src over the
// depends_on direction, looking for dst.
func reaches(src, dst string, edges EdgesFunc) bool {
	visited := map[string]bool{src: true}
	stack := []string{src}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range edges(cur) {
			if next == dst {
				return true
			}
			if !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// dfsFind searches src→dst recording parent pointers, so the discovered
// path can be reconstructed. parent[x] is the node from which x was
// reached.
func dfsFind(src, dst string, edges EdgesFunc, parent map[string]string) bool {
	visited := map[string]bool{src: true}
	var walk func(cur string) bool
	walk = func(cur string) bool {
		if cur == dst {
			return true
		}
		for _, next := range edges(cur) {
			if visited[next] {
				continue
			}
			visited[next] = true
			parent[next] = cur
			if walk(next) {
				return true
			}
		}
		return false
	}
	return walk(src)
}

// Cycle is one dependency loop found in the graph. Path starts and ends
// on the same identifier.
type Cycle struct {
	Path []string
}

// Edges returns the cycle's consecutive (from, to) pairs.
func (c Cycle) Edges() [][2]string {
	if len(c.Path) < 2 {
		return nil
	}
	out := make([][2]string, 0, len(c.Path)-1)
	for i := 0; i < len(c.Path)-1; i++ {
		out = append(out, [2]string{c.Path[i], c.Path[i+1]})
	}
	return out
}

// dfs colors for full-graph cycle detection.
const (
	white = iota // unvisited
	gray         // on the current path
	black        // finished
)

// DetectCycles runs a three-color depth-first search over the whole
// graph and returns every cycle found. A back-edge to a gray node yields
// a cycle, reconstructed by walking recorded parent pointers from the
// current node back to the gray ancestor.
func DetectCycles(ids []string, edges EdgesFunc) []Cycle {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)

	color := make(map[string]int, len(sorted))
	parent := make(map[string]string)
	var cycles []Cycle

	var visit func(id string)
	visit = func(id string) {
		color[id] = gray
		for _, next := range edges(id) {
			switch color[next] {
			case white:
				parent[next] = id
				visit(next)
			case gray:
				// Back edge id→next closes a loop. Walk parents from id
				// up to next, then append next to close it.
				segment := []string{id}
				for cur := id; cur != next; {
					cur = parent[cur]
					segment = append(segment, cur)
				}
				// segment is [id, ..., next] in reverse order; flip and close.
				path := make([]string, 0, len(segment)+1)
				for i := len(segment) - 1; i >= 0; i-- {
					path = append(path, segment[i])
				}
				path = append(path, next)
				cycles = append(cycles, Cycle{Path: path})
			}
		}
		color[id] = black
	}

	for _, id := range sorted {
		if color[id] == white {
			visit(id)
		}
	}
	return cycles
}

// BreakSuggestion ranks one cycle edge as a removal candidate. Lower
// score means better candidate.
type BreakSuggestion struct {
	From  string
	To    string
	Score int
}

// typePriority orders entity types by how cheap their edges are to
// break: task edges go first, document edges last.
var typePriority = map[vault.EntityType]int{
	vault.TypeTask:      1,
	vault.TypeStory:     2,
	vault.TypeMilestone: 3,
	vault.TypeDecision:  4,
	vault.TypeDocument:  5,
}

// SuggestBreaks ranks every edge of a cycle by the summed type priority
// of its endpoints, ascending. The detector never removes an edge itself;
// suggestions only inform the caller.
func SuggestBreaks(c Cycle) []BreakSuggestion {
	edges := c.Edges()
	out := make([]BreakSuggestion, 0, len(edges))
	for _, e := range edges {
		out = append(out, BreakSuggestion{
			From:  e[0],
			To:    e[1],
			Score: edgePriority(e[0]) + edgePriority(e[1]),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score < out[j].Score })
	return out
}

func edgePriority(id string) int {
	t, err := vault.TypeForID(id)
	if err != nil {
		return len(typePriority) + 1
	}
	return typePriority[t]
}
