// Package hierarchy builds annotated department trees from flat department lists.
//
// The resolver is a pure function over its input: it performs no I/O, keeps
// no state between calls, and is safe for concurrent use.
package hierarchy

import (
	"errors"
	"fmt"

	"github.com/stacklok/department-sync/internal/department"
)

// ErrCycleDetected is returned when parent references form a cycle.
var ErrCycleDetected = errors.New("department hierarchy contains a cycle")

// Node is a department annotated with its position in the tree.
type Node struct {
	*department.Department

	// Level is the distance from the root; roots are at level 0
	Level int `json:"level"`

	// Depth is the height of the subtree below this node; leaves have depth 0
	Depth int `json:"depth"`

	// ChildrenCount is the number of direct children
	ChildrenCount int `json:"childrenCount"`

	// TotalDescendants counts every node in the subtree, excluding this one
	TotalDescendants int `json:"totalDescendants"`

	// Orphaned is set on roots whose declared parent is not present in the input
	Orphaned bool `json:"orphaned,omitempty"`

	Children []*Node `json:"children"`
}

// BuildHierarchy links departments into trees by their parent external id and
// returns the roots in input order. Children keep input order as well.
//
// A department with no parent reference, or whose parent is absent from rows,
// becomes a root. The latter is flagged as Orphaned. Parent references that
// form a cycle cause ErrCycleDetected.
func BuildHierarchy(rows []*department.Department) ([]*Node, error) {
	nodes := make(map[string]*Node, len(rows))
	ordered := make([]*Node, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		n := &Node{Department: row, Children: []*Node{}}
		ordered = append(ordered, n)
		// The last occurrence wins for lookups; duplicates are unexpected given the
		// store's unique constraint on external ids.
		nodes[row.ExternalID] = n
	}

	roots := make([]*Node, 0)
	for _, n := range ordered {
		if !n.HasParent() {
			roots = append(roots, n)
			continue
		}
		parent, ok := nodes[*n.ParentDepartmentID]
		if !ok {
			n.Orphaned = true
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}

	r := &resolver{
		visiting: make(map[*Node]bool, len(ordered)),
		visited:  make(map[*Node]bool, len(ordered)),
	}
	for _, root := range roots {
		if err := r.annotate(root, 0); err != nil {
			return nil, err
		}
	}

	// Nodes on a closed loop are unreachable from any root.
	for _, n := range ordered {
		if !r.visited[n] {
			return nil, fmt.Errorf("%w: department %s is not reachable from any root", ErrCycleDetected, n.ExternalID)
		}
	}

	return roots, nil
}

type resolver struct {
	visiting map[*Node]bool
	visited  map[*Node]bool
}

// annotate assigns level on the way down and the subtree metrics on the way up.
func (r *resolver) annotate(n *Node, level int) error {
	if r.visiting[n] || r.visited[n] {
		return fmt.Errorf("%w: department %s", ErrCycleDetected, n.ExternalID)
	}
	r.visiting[n] = true

	n.Level = level
	n.ChildrenCount = len(n.Children)
	n.Depth = 0
	n.TotalDescendants = 0

	for _, child := range n.Children {
		if err := r.annotate(child, level+1); err != nil {
			return err
		}
		n.Depth = max(n.Depth, child.Depth+1)
		n.TotalDescendants += 1 + child.TotalDescendants
	}

	r.visiting[n] = false
	r.visited[n] = true
	return nil
}

// CountOrphans returns the number of roots flagged as orphaned.
func CountOrphans(roots []*Node) int {
	count := 0
	for _, n := range roots {
		if n.Orphaned {
			count++
		}
	}
	return count
}
