package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/department-sync/internal/department"
)

func dept(externalID string, parent string) *department.Department {
	d := &department.Department{ExternalID: externalID, Name: externalID}
	if parent != "" {
		d.ParentDepartmentID = &parent
	}
	return d
}

func externalIDs(nodes []*Node) []string {
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ExternalID)
	}
	return ids
}

func TestBuildHierarchy_SingleRootWithChildren(t *testing.T) {
	t.Parallel()

	roots, err := BuildHierarchy([]*department.Department{
		dept("ext-001", ""),
		dept("ext-002", "ext-001"),
		dept("ext-003", "ext-001"),
	})
	require.NoError(t, err)
	require.Len(t, roots, 1)

	root := roots[0]
	assert.Equal(t, "ext-001", root.ExternalID)
	assert.Equal(t, 0, root.Level)
	assert.Equal(t, 1, root.Depth)
	assert.Equal(t, 2, root.ChildrenCount)
	assert.Equal(t, 2, root.TotalDescendants)
	assert.False(t, root.Orphaned)
	assert.Equal(t, []string{"ext-002", "ext-003"}, externalIDs(root.Children))

	for _, child := range root.Children {
		assert.Equal(t, 1, child.Level)
		assert.Equal(t, 0, child.Depth)
		assert.Equal(t, 0, child.ChildrenCount)
		assert.Equal(t, 0, child.TotalDescendants)
		assert.Empty(t, child.Children)
	}
}

func TestBuildHierarchy_Metrics(t *testing.T) {
	t.Parallel()

	// a
	// ├── b
	// │   └── d
	// │       └── e
	// └── c
	// f
	roots, err := BuildHierarchy([]*department.Department{
		dept("e", "d"),
		dept("a", ""),
		dept("d", "b"),
		dept("b", "a"),
		dept("f", ""),
		dept("c", "a"),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "f"}, externalIDs(roots))

	byID := map[string]*Node{}
	indexNodes(roots, byID)
	require.Len(t, byID, 6)

	tests := []struct {
		id               string
		level            int
		depth            int
		childrenCount    int
		totalDescendants int
	}{
		{id: "a", level: 0, depth: 3, childrenCount: 2, totalDescendants: 4},
		{id: "b", level: 1, depth: 2, childrenCount: 1, totalDescendants: 2},
		{id: "c", level: 1, depth: 0, childrenCount: 0, totalDescendants: 0},
		{id: "d", level: 2, depth: 1, childrenCount: 1, totalDescendants: 1},
		{id: "e", level: 3, depth: 0, childrenCount: 0, totalDescendants: 0},
		{id: "f", level: 0, depth: 0, childrenCount: 0, totalDescendants: 0},
	}
	for _, tt := range tests {
		n := byID[tt.id]
		assert.Equal(t, tt.level, n.Level, "level of %s", tt.id)
		assert.Equal(t, tt.depth, n.Depth, "depth of %s", tt.id)
		assert.Equal(t, tt.childrenCount, n.ChildrenCount, "childrenCount of %s", tt.id)
		assert.Equal(t, tt.totalDescendants, n.TotalDescendants, "totalDescendants of %s", tt.id)
		assert.Equal(t, len(n.Children), n.ChildrenCount)
	}

	// children follow input order, not name order
	assert.Equal(t, []string{"b", "c"}, externalIDs(byID["a"].Children))
}

func TestBuildHierarchy_DanglingParentBecomesOrphanedRoot(t *testing.T) {
	t.Parallel()

	roots, err := BuildHierarchy([]*department.Department{
		dept("ext-010", "missing"),
		dept("ext-011", "ext-010"),
		dept("ext-012", ""),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"ext-010", "ext-012"}, externalIDs(roots))

	assert.True(t, roots[0].Orphaned)
	assert.Equal(t, 0, roots[0].Level)
	assert.Equal(t, 1, roots[0].TotalDescendants)
	assert.False(t, roots[1].Orphaned)
	assert.Equal(t, 1, CountOrphans(roots))
}

func TestBuildHierarchy_EmptyParentIsRoot(t *testing.T) {
	t.Parallel()

	empty := ""
	roots, err := BuildHierarchy([]*department.Department{
		{ExternalID: "x", ParentDepartmentID: &empty},
	})
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.False(t, roots[0].Orphaned)
}

func TestBuildHierarchy_Empty(t *testing.T) {
	t.Parallel()

	roots, err := BuildHierarchy(nil)
	require.NoError(t, err)
	assert.Empty(t, roots)
}

func TestBuildHierarchy_Cycles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rows []*department.Department
	}{
		{
			name: "self reference",
			rows: []*department.Department{dept("a", "a")},
		},
		{
			name: "two node loop",
			rows: []*department.Department{dept("a", "b"), dept("b", "a")},
		},
		{
			name: "loop next to a valid tree",
			rows: []*department.Department{
				dept("root", ""),
				dept("child", "root"),
				dept("x", "z"),
				dept("y", "x"),
				dept("z", "y"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			roots, err := BuildHierarchy(tt.rows)
			require.ErrorIs(t, err, ErrCycleDetected)
			assert.Nil(t, roots)
		})
	}
}

func TestBuildHierarchy_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	rows := []*department.Department{dept("a", ""), dept("b", "a")}
	first, err := BuildHierarchy(rows)
	require.NoError(t, err)
	second, err := BuildHierarchy(rows)
	require.NoError(t, err)

	assert.Equal(t, first[0].TotalDescendants, second[0].TotalDescendants)
	assert.Equal(t, "a", *rows[1].ParentDepartmentID)
}

func indexNodes(nodes []*Node, into map[string]*Node) {
	for _, n := range nodes {
		into[n.ExternalID] = n
		indexNodes(n.Children, into)
	}
}
