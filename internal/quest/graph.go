package quest

import (
	"fmt"
	"sort"
)

// graph is the per-pass execution view of a definition's stage DAG. Graphs
// are rebuilt fresh for every pass; only completion state is persisted.
type graph struct {
	// blockers counts the unsatisfied prerequisites of each stage.
	blockers map[string]int

	// children lists the stages each stage unblocks.
	children map[string][]string

	satisfied map[string]bool
}

// newGraph builds and validates the execution graph for a definition. A
// child referencing a missing stage or a cycle is a DefinitionError; both are
// caught here, before anything executes.
func newGraph(d *Definition) (*graph, error) {
	g := &graph{
		blockers:  make(map[string]int, len(d.Stages)),
		children:  make(map[string][]string, len(d.Stages)),
		satisfied: make(map[string]bool, len(d.Stages)),
	}

	for name := range d.Stages {
		g.blockers[name] = 0
	}
	for name, stage := range d.Stages {
		for _, child := range stage.Children() {
			if _, ok := d.Stages[child]; !ok {
				return nil, &DefinitionError{
					Quest:  d.Name,
					Reason: fmt.Sprintf("stage %s references unknown child %s", name, child),
				}
			}
			g.children[name] = append(g.children[name], child)
			g.blockers[child]++
		}
	}

	if err := g.checkAcyclic(d); err != nil {
		return nil, err
	}
	return g, nil
}

// checkAcyclic runs Kahn's algorithm over a copy of the blocker counts; if
// some stage is never released, the graph contains a cycle.
func (g *graph) checkAcyclic(d *Definition) error {
	remaining := make(map[string]int, len(g.blockers))
	var queue []string
	for name, count := range g.blockers {
		remaining[name] = count
		if count == 0 {
			queue = append(queue, name)
		}
	}

	processed := 0
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		processed++
		for _, child := range g.children[name] {
			remaining[child]--
			if remaining[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if processed != len(g.blockers) {
		var stuck []string
		for name, count := range remaining {
			if count > 0 {
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		return &DefinitionError{
			Quest:  d.Name,
			Reason: fmt.Sprintf("stage graph contains a cycle involving %v", stuck),
		}
	}
	return nil
}

// satisfy marks a stage complete, releasing its children.
func (g *graph) satisfy(name string) {
	if g.satisfied[name] {
		return
	}
	g.satisfied[name] = true
	for _, child := range g.children[name] {
		g.blockers[child]--
	}
}

// ready returns the stages whose prerequisites are all satisfied, in sorted
// order so passes are deterministic.
func (g *graph) ready() []string {
	var names []string
	for name, count := range g.blockers {
		if count == 0 && !g.satisfied[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
