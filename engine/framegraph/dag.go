package framegraph

import (
	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/framegraph/engine/containers"
)

type DAGNode struct {
	Children []uint32
}

// DirectedAcyclicGraph is the traversal view of a FrameGraph. Node i < usage
// count is ResourceUsages[i]; node usage count + j is RenderPasses[j].
// Edges point from consumer to producer.
type DirectedAcyclicGraph struct {
	Nodes      []DAGNode
	UsageCount uint32
}

func (d *DirectedAcyclicGraph) addEdge(from, to uint32) {
	d.Nodes[from].Children = append(d.Nodes[from].Children, to)
}

// RenderPassNode returns the DAG node of a render pass.
func (d *DirectedAcyclicGraph) RenderPassNode(h RenderPassHandle) uint32 {
	return d.UsageCount + uint32(h)
}

// ConvertToDAG builds the DAG of fg and returns it together with the root
// nodes, one per render pass with side effects.
func ConvertToDAG(fg *FrameGraph) (*DirectedAcyclicGraph, []uint32, error) {
	usageCount := uint32(len(fg.ResourceUsages))
	dag := &DirectedAcyclicGraph{
		Nodes:      make([]DAGNode, len(fg.ResourceUsages)+len(fg.RenderPasses)),
		UsageCount: usageCount,
	}

	var roots []uint32
	for j := range fg.RenderPasses {
		if fg.RenderPasses[j].HasSideEffects {
			roots = append(roots, dag.RenderPassNode(RenderPassHandle(j)))
		}
	}
	if len(roots) == 0 {
		return nil, nil, ErrNoSideEffects
	}

	for j := range fg.RenderPasses {
		passNode := dag.RenderPassNode(RenderPassHandle(j))
		for _, u := range fg.RenderPasses[j].ResourceUsageHandles {
			usage, err := fg.GetResourceUsage(u)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "render pass '%s'", fg.RenderPasses[j].DebugName)
			}
			if _, err := fg.GetResource(usage.Resource); err != nil {
				return nil, nil, errors.Wrapf(err, "%s", u)
			}
			usageNode := uint32(u)

			switch usage.Type {
			case Input:
				parent, err := parentNode(fg, u, usage)
				if err != nil {
					return nil, nil, err
				}
				dag.addEdge(passNode, usageNode)
				dag.addEdge(usageNode, parent)
			case Output:
				dag.addEdge(usageNode, passNode)
			case InputOutput:
				parent, err := parentNode(fg, u, usage)
				if err != nil {
					return nil, nil, err
				}
				dag.addEdge(usageNode, passNode)
				dag.addEdge(usageNode, parent)
			default:
				return nil, nil, errors.Wrapf(ErrUnknownUsageType, "%s has type %d", u, usage.Type)
			}
		}
	}
	return dag, roots, nil
}

func parentNode(fg *FrameGraph, h ResourceUsageHandle, usage *ResourceUsage) (uint32, error) {
	if !validIndex(usage.Parent, len(fg.ResourceUsages)) {
		return 0, errors.Wrapf(ErrInvalidHandle, "parent of %s", h)
	}
	return uint32(usage.Parent), nil
}

const (
	unvisited uint8 = iota
	onStack
	done
)

// FindCycle runs a depth-first search from every root and returns the first
// cycle found as a node path, or nil.
func (d *DirectedAcyclicGraph) FindCycle(roots []uint32) []uint32 {
	state := make([]uint8, len(d.Nodes))
	var ancestors []uint32

	var visit func(node uint32) []uint32
	visit = func(node uint32) []uint32 {
		switch state[node] {
		case onStack:
			for i, a := range ancestors {
				if a == node {
					cycle := append([]uint32{}, ancestors[i:]...)
					return append(cycle, node)
				}
			}
			return []uint32{node, node}
		case done:
			return nil
		}

		state[node] = onStack
		ancestors = append(ancestors, node)
		for _, child := range d.Nodes[node].Children {
			if cycle := visit(child); cycle != nil {
				return cycle
			}
		}
		ancestors = ancestors[:len(ancestors)-1]
		state[node] = done
		return nil
	}

	for _, root := range roots {
		if cycle := visit(root); cycle != nil {
			return cycle
		}
	}
	return nil
}

func (d *DirectedAcyclicGraph) HasCycles(roots []uint32) bool {
	return d.FindCycle(roots) != nil
}

// ComputeTransitiveClosure returns every node reachable from roots in
// breadth-first order. Each node appears once.
func (d *DirectedAcyclicGraph) ComputeTransitiveClosure(roots []uint32) ([]uint32, error) {
	visited := make([]bool, len(d.Nodes))
	queue := containers.NewRingQueue[uint32](len(d.Nodes))
	closure := make([]uint32, 0, len(d.Nodes))

	enqueue := func(node uint32) error {
		if visited[node] {
			return nil
		}
		visited[node] = true
		return queue.Enqueue(node)
	}

	for _, root := range roots {
		if err := enqueue(root); err != nil {
			return nil, err
		}
	}
	for !queue.IsEmpty() {
		node, err := queue.Dequeue()
		if err != nil {
			return nil, err
		}
		closure = append(closure, node)
		for _, child := range d.Nodes[node].Children {
			if err := enqueue(child); err != nil {
				return nil, err
			}
		}
	}
	return closure, nil
}

func (fg *FrameGraph) build() error {
	fg.built = true
	fg.buildErr = nil

	fail := func(err error) error {
		fg.buildErr = newError("build", err)
		return fg.buildErr
	}

	dag, roots, err := ConvertToDAG(fg)
	if err != nil {
		return fail(err)
	}
	if cycle := dag.FindCycle(roots); cycle != nil {
		return fail(&CycleError{Cycle: cycle})
	}
	closure, err := dag.ComputeTransitiveClosure(roots)
	if err != nil {
		return fail(err)
	}
	fg.markUsedNodes(closure)
	return nil
}
