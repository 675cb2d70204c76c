package iso9660

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildDivergentTree constructs root/{A/{AA/}, B/} where depth-first
// preorder (root, A, AA, B) and breadth-first level order (root, A, B, AA)
// disagree, to exercise planLayout's two distinct directory orderings.
func buildDivergentTree(t *testing.T) *Tree {
	t.Helper()
	tree := NewEmptyTree()
	require.NoError(t, tree.AddFile("a/aa/leaf.txt", bytesSource("x")))
	require.NoError(t, tree.AddFile("b/leaf.txt", bytesSource("y")))
	return tree
}

func TestPlanLayoutDirectoryExtentsUseDepthFirstOrder(t *testing.T) {
	tree := buildDivergentTree(t)
	p, err := planLayout(tree, nil, false, nil, nil)
	require.NoError(t, err)

	require.Len(t, p.Dirs, 4)
	assert.Equal(t, "", p.Dirs[0].Name) // root
	assert.Equal(t, "A", p.Dirs[1].Name)
	assert.Equal(t, "AA", p.Dirs[2].Name)
	assert.Equal(t, "B", p.Dirs[3].Name)
}

func TestPlanLayoutPathTableUsesBreadthFirstOrder(t *testing.T) {
	tree := buildDivergentTree(t)
	p, err := planLayout(tree, nil, false, nil, nil)
	require.NoError(t, err)

	require.Len(t, p.PathTableDirs, 4)
	assert.Equal(t, "", p.PathTableDirs[0].Name) // root
	assert.Equal(t, "A", p.PathTableDirs[1].Name)
	assert.Equal(t, "B", p.PathTableDirs[2].Name)
	assert.Equal(t, "AA", p.PathTableDirs[3].Name)

	// A parent's path number must be smaller than any descendant's.
	for _, d := range p.PathTableDirs {
		if d.parent != nil {
			assert.Less(t, d.parent.pathNumber, d.pathNumber)
		}
	}
}
