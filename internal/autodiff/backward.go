package autodiff

import (
	"fmt"

	"github.com/emirpasic/gods/v2/stacks/arraystack"

	"github.com/born-ml/valgrad/internal/tensor"
)

// arena is the per-call node table built by Backward. nodes is in
// post-order (every node after all of its parents); ids maps a node back to
// its index.
type arena struct {
	nodes []*Val
	ids   map[*Val]int
}

// frame is one entry of the explicit DFS stack: the node and the index of the
// next parent to visit.
type frame struct {
	node *Val
	next int
}

// stepHook, when set, observes every node just before its gradient rule runs.
var stepHook func(*Val)

// buildArena collects every node reachable from root in post-order.
//
// The traversal is iterative so graph depth is bounded by heap, not the
// goroutine stack. A node is marked when first pushed; in a DAG a marked
// parent is always already finished, so each node is appended exactly once
// and only after all of its parents.
func buildArena(root *Val) *arena {
	a := &arena{ids: make(map[*Val]int)}
	visited := map[*Val]struct{}{root: {}}

	stack := arraystack.New[frame]()
	stack.Push(frame{node: root})
	for !stack.Empty() {
		f, _ := stack.Pop()
		if f.next < len(f.node.parents) {
			p := f.node.parents[f.next]
			f.next++
			stack.Push(f)
			if _, seen := visited[p]; !seen {
				visited[p] = struct{}{}
				stack.Push(frame{node: p})
			}
			continue
		}
		a.ids[f.node] = len(a.nodes)
		a.nodes = append(a.nodes, f.node)
	}
	return a
}

// TopoOrder returns every node reachable from root, each after all of its
// parents. The last element is root.
func TopoOrder(root *Val) []*Val {
	return buildArena(root).nodes
}

// Backward computes ∂v/∂x for every x reachable from v.
//
// v must hold exactly one element. Every reachable gradient buffer is zeroed
// first, v's gradient is set to 1, and gradient rules run once per node in
// reverse topological order, so a node's rule only runs after all of its
// consumers have accumulated into it.
//
// A missing or mismatched gradient buffer anywhere in the graph is fatal: the
// pass stops and returns a *tensor.GraphStateError.
func (v *Val) Backward() error {
	if v == nil {
		return tensor.NewGraphStateError("backward", "nil root")
	}
	if v.Size() != 1 {
		return tensor.NewGraphStateError("backward",
			fmt.Sprintf("root must be a scalar, got shape %v", v.shape))
	}

	a := buildArena(v)
	for _, n := range a.nodes {
		if err := checkGradBuffer(n); err != nil {
			return err
		}
		clear(n.grad)
	}
	v.grad[0] = 1

	for i := len(a.nodes) - 1; i >= 0; i-- {
		n := a.nodes[i]
		if stepHook != nil {
			stepHook(n)
		}
		if err := n.backwardStep(); err != nil {
			return fmt.Errorf("backward through node %d: %w", i, err)
		}
	}
	return nil
}

// Backward is the free-function form of (*Val).Backward.
func Backward(root *Val) error {
	return root.Backward()
}
