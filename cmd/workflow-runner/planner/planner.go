package planner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lyzr/flowrunner/common/sdk"
)

// ErrCycle is returned when the workflow graph cannot be levelized.
var ErrCycle = errors.New("workflow contains a cycle")

// ValidationError reports structural problems found before levelization.
// Any problem is fatal: the workflow errors without executing a node.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("workflow validation failed: %s", strings.Join(e.Problems, "; "))
}

// ExecutionPlan is the immutable levelized form of a workflow. For every
// edge s->t, level(s) < level(t).
type ExecutionPlan struct {
	// Levels holds node ids grouped by level; nodes within a level share
	// no edges and may run concurrently.
	Levels [][]string `json:"levels"`

	// OrderedNodeIDs is the levels flattened in order, used for status
	// computation and record building.
	OrderedNodeIDs []string `json:"ordered_node_ids"`
}

// LevelOf returns the level index of a node id, or -1 if unknown.
func (p *ExecutionPlan) LevelOf(nodeID string) int {
	for i, level := range p.Levels {
		for _, id := range level {
			if id == nodeID {
				return i
			}
		}
	}
	return -1
}

// NodeCount returns the number of planned nodes.
func (p *ExecutionPlan) NodeCount() int {
	return len(p.OrderedNodeIDs)
}

// Build validates the workflow and computes its execution plan using Kahn's
// algorithm with level tracking. Level 0 holds all nodes with in-degree 0;
// level k holds nodes whose predecessors all sit in levels 0..k-1.
func Build(workflow *sdk.Workflow) (*ExecutionPlan, error) {
	if err := validate(workflow); err != nil {
		return nil, err
	}

	inDegree := make(map[string]int, len(workflow.Nodes))
	dependents := make(map[string][]string, len(workflow.Nodes))
	for _, node := range workflow.Nodes {
		inDegree[node.ID] = 0
	}
	for _, edge := range workflow.Edges {
		inDegree[edge.Target]++
		dependents[edge.Source] = append(dependents[edge.Source], edge.Target)
	}

	// Seed with in-degree 0 nodes in declaration order so plans are
	// deterministic for a given workflow.
	var current []string
	for _, node := range workflow.Nodes {
		if inDegree[node.ID] == 0 {
			current = append(current, node.ID)
		}
	}

	plan := &ExecutionPlan{}
	levelized := 0

	for len(current) > 0 {
		plan.Levels = append(plan.Levels, current)
		plan.OrderedNodeIDs = append(plan.OrderedNodeIDs, current...)
		levelized += len(current)

		var next []string
		for _, id := range current {
			for _, dep := range dependents[id] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		current = next
	}

	if levelized < len(workflow.Nodes) {
		return nil, ErrCycle
	}

	return plan, nil
}

// validate checks the workflow structure: unique node ids, edges referencing
// known nodes and declared ports, and no duplicate single-value targets.
func validate(workflow *sdk.Workflow) error {
	var problems []string

	seen := make(map[string]bool, len(workflow.Nodes))
	for _, node := range workflow.Nodes {
		if seen[node.ID] {
			problems = append(problems, fmt.Sprintf("duplicate node id: %s", node.ID))
		}
		seen[node.ID] = true
	}

	// Edges sharing (target, targetInput) are only allowed on repeated ports
	targetInputs := make(map[string]int)

	for i, edge := range workflow.Edges {
		source, sourceExists := workflow.FindNode(edge.Source)
		if !sourceExists {
			problems = append(problems, fmt.Sprintf("edge %d references unknown source node: %s", i, edge.Source))
		}
		target, targetExists := workflow.FindNode(edge.Target)
		if !targetExists {
			problems = append(problems, fmt.Sprintf("edge %d references unknown target node: %s", i, edge.Target))
		}

		if sourceExists {
			if _, ok := source.Output(edge.SourceOutput); !ok {
				problems = append(problems, fmt.Sprintf("edge %d references undeclared output port %s.%s", i, edge.Source, edge.SourceOutput))
			}
		}
		if targetExists {
			port, ok := target.Input(edge.TargetInput)
			if !ok {
				problems = append(problems, fmt.Sprintf("edge %d references undeclared input port %s.%s", i, edge.Target, edge.TargetInput))
				continue
			}

			key := edge.Target + "." + edge.TargetInput
			targetInputs[key]++
			if targetInputs[key] > 1 && !port.Repeated {
				problems = append(problems, fmt.Sprintf("multiple edges target non-repeated input %s", key))
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
