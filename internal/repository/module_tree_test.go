package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/access-control/internal/model"
)

func ptr(v uint64) *uint64 { return &v }

func TestBuildModuleTree(t *testing.T) {
	modules := []model.Module{
		{ID: 1, Name: "crm"},
		{ID: 2, Name: "contacts", ParentID: ptr(1)},
		{ID: 3, Name: "deals", ParentID: ptr(1)},
		{ID: 4, Name: "pipeline", ParentID: ptr(3)},
		{ID: 5, Name: "billing"},
	}

	tree := BuildModuleTree(modules)
	require.Len(t, tree, 2)

	crm := tree[0]
	assert.Equal(t, "crm", crm.Name)
	require.Len(t, crm.Children, 2)
	assert.Equal(t, "contacts", crm.Children[0].Name)
	assert.Equal(t, "deals", crm.Children[1].Name)
	require.Len(t, crm.Children[1].Children, 1)
	assert.Equal(t, "pipeline", crm.Children[1].Children[0].Name)

	assert.Equal(t, "billing", tree[1].Name)
	assert.Empty(t, tree[1].Children)
}

func TestBuildModuleTreePromotesOrphans(t *testing.T) {
	// Parent 1 was filtered out (inactive); its child must surface as a
	// root instead of disappearing.
	modules := []model.Module{
		{ID: 2, Name: "contacts", ParentID: ptr(1)},
		{ID: 3, Name: "billing"},
	}

	tree := BuildModuleTree(modules)
	require.Len(t, tree, 2)
	assert.Equal(t, "contacts", tree[0].Name)
	assert.Equal(t, "billing", tree[1].Name)
}

func TestBuildModuleTreeEmpty(t *testing.T) {
	assert.Empty(t, BuildModuleTree(nil))
}

func TestHierarchyWouldCycle(t *testing.T) {
	// 1 <- 2 <- 3, 4 standalone
	parents := map[uint64]*uint64{
		1: nil,
		2: ptr(1),
		3: ptr(2),
		4: nil,
	}

	// Moving 1 under 3 would close the chain 1 -> 2 -> 3 -> 1.
	assert.True(t, hierarchyWouldCycle(parents, 1, 3))
	assert.True(t, hierarchyWouldCycle(parents, 1, 2))
	assert.True(t, hierarchyWouldCycle(parents, 2, 3))

	// Moving down-chain or across is fine.
	assert.False(t, hierarchyWouldCycle(parents, 3, 1))
	assert.False(t, hierarchyWouldCycle(parents, 4, 3))
	assert.False(t, hierarchyWouldCycle(parents, 1, 4))
}

func TestHierarchyWouldCycleCorruptedChain(t *testing.T) {
	// 5 and 6 already point at each other; the walk must terminate and
	// report a cycle rather than loop.
	parents := map[uint64]*uint64{
		5: ptr(6),
		6: ptr(5),
	}
	assert.True(t, hierarchyWouldCycle(parents, 7, 5))
}
