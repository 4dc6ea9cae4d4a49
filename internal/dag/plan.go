package dag

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/ctxlog"
)

// Step is a single target scheduled in a Plan.
type Step struct {
	Index  int
	Target *config.Target
	// Deps are the steps this one depends on; a failure in any of them
	// skips this step.
	Deps []int
	// After are ordering-only predecessors: steps that must have finished,
	// successfully or not, before this one starts. They come from
	// sequenced prerequisites and sequenced goals.
	After []int
}

// Plan is the linearized set of targets needed to reach the requested goals.
// Steps are in execution order for a serial run; each target appears once.
type Plan struct {
	Goals []string
	Steps []*Step
}

// Names returns target names in plan order.
func (p *Plan) Names() []string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Target.Name
	}
	return names
}

// BuildPlan resolves the goals against the model and returns their plan.
// With no goals, the model's default target is planned.
//
// The order is the depth-first post-order of the goals with prerequisites
// visited in declared order. Prerequisites of a target that is not marked
// parallel are sequenced: everything introduced by a prerequisite waits for
// the prerequisite before it. Goals are sequenced the same way.
func BuildPlan(ctx context.Context, model *config.Model, goals []string) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)
	if len(goals) == 0 {
		goals = []string{model.DefaultTarget}
	}
	logger.Debug("BuildPlan: Starting.", "goals", goals)

	for _, goal := range goals {
		if _, ok := model.Lookup(goal); !ok {
			return nil, fmt.Errorf("no rule to make target %q", goal)
		}
	}

	graph, err := buildGraph(model)
	if err != nil {
		return nil, err
	}
	if err := graph.DetectCycles(); err != nil {
		return nil, fmt.Errorf("error validating dependency graph: %w", err)
	}
	logger.Debug("BuildPlan: Cycle detection passed.", "node_count", graph.Len())

	p := &planner{model: model, index: make(map[string]int)}
	uniqueGoals := p.sequence(goals, false)

	plan := &Plan{Goals: uniqueGoals, Steps: make([]*Step, len(p.order))}
	for i, t := range p.order {
		step := &Step{Index: i, Target: t}
		deps := make(map[int]struct{}, len(t.DependsOn))
		for _, dep := range t.DependsOn {
			deps[p.index[dep]] = struct{}{}
		}
		step.Deps = sortedKeys(deps)
		after := make(map[int]struct{})
		for j := range p.after[i] {
			if _, isDep := deps[j]; !isDep {
				after[j] = struct{}{}
			}
		}
		step.After = sortedKeys(after)
		plan.Steps[i] = step
	}

	logger.Debug("BuildPlan: Plan ready.", "steps", plan.Names())
	return plan, nil
}

// buildGraph creates one node per target and one edge per `depends_on` entry.
func buildGraph(model *config.Model) (*Graph, error) {
	g := New()
	for _, t := range model.Targets {
		g.AddNode(t.Name)
	}
	for _, t := range model.Targets {
		for _, dep := range t.DependsOn {
			if err := g.AddEdge(dep, t.Name); err != nil {
				return nil, fmt.Errorf("target %q: %w", t.Name, err)
			}
		}
	}
	return g, nil
}

type planner struct {
	model *config.Model
	index map[string]int
	order []*config.Target
	// after[i] holds ordering-only predecessors of step i.
	after map[int]map[int]struct{}
}

// visit appends name and everything it needs to the order, post-order.
func (p *planner) visit(name string) {
	if _, seen := p.index[name]; seen {
		return
	}
	t, _ := p.model.Lookup(name)
	p.sequence(t.DependsOn, t.Parallel)
	p.index[name] = len(p.order)
	p.order = append(p.order, t)
}

// sequence visits names in order. Unless parallel, every step introduced
// while visiting names[i] is ordered after names[i-1]. It returns names
// with duplicates removed.
func (p *planner) sequence(names []string, parallel bool) []string {
	var unique []string
	seen := make(map[string]struct{}, len(names))
	prev := -1

	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		unique = append(unique, name)

		firstNew := len(p.order)
		p.visit(name)
		idx := p.index[name]

		if !parallel && prev >= 0 && idx > prev {
			for i := max(firstNew, prev+1); i <= idx; i++ {
				p.addAfter(i, prev)
			}
		}
		if idx > prev {
			prev = idx
		}
	}
	return unique
}

func (p *planner) addAfter(step, predecessor int) {
	if p.after == nil {
		p.after = make(map[int]map[int]struct{})
	}
	if p.after[step] == nil {
		p.after[step] = make(map[int]struct{})
	}
	p.after[step][predecessor] = struct{}{}
}

func sortedKeys(m map[int]struct{}) []int {
	if len(m) == 0 {
		return nil
	}
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
