package repository

import "github.com/iliyamo/access-control/internal/model"

// BuildModuleTree groups a flat, pre-ordered module list into a forest.
// Every module whose parent is missing from the input (or nil) becomes a
// root; pruning inactive parents therefore promotes orphaned children
// instead of dropping them silently. Sibling order follows input order.
func BuildModuleTree(modules []model.Module) []model.ModuleNode {
	byParent := make(map[uint64][]model.Module)
	present := make(map[uint64]bool, len(modules))
	for _, m := range modules {
		present[m.ID] = true
	}

	var roots []model.Module
	for _, m := range modules {
		if m.ParentID == nil || !present[*m.ParentID] {
			roots = append(roots, m)
			continue
		}
		byParent[*m.ParentID] = append(byParent[*m.ParentID], m)
	}

	var attach func(ms []model.Module) []model.ModuleNode
	attach = func(ms []model.Module) []model.ModuleNode {
		nodes := make([]model.ModuleNode, 0, len(ms))
		for _, m := range ms {
			nodes = append(nodes, model.ModuleNode{
				ID:          m.ID,
				Name:        m.Name,
				Description: m.Description,
				ParentID:    m.ParentID,
				Active:      m.Active,
				CreatedAt:   m.CreatedAt,
				UpdatedAt:   m.UpdatedAt,
				Children:    attach(byParent[m.ID]),
			})
		}
		return nodes
	}
	return attach(roots)
}

// hierarchyWouldCycle reports whether re-parenting module id under
// candidate would create a cycle. parents maps module id -> parent id for
// the whole table; the walk climbs from candidate to the root and fails
// when id reappears on the chain. The visited set guards against walking
// an already corrupted hierarchy forever.
func hierarchyWouldCycle(parents map[uint64]*uint64, id, candidate uint64) bool {
	visited := make(map[uint64]bool)
	for cur := candidate; ; {
		if cur == id {
			return true
		}
		if visited[cur] {
			return true
		}
		visited[cur] = true
		p, ok := parents[cur]
		if !ok || p == nil {
			return false
		}
		cur = *p
	}
}
