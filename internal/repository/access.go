package repository

import "github.com/iliyamo/access-control/internal/model"

// ResolveEffective combines the two independent grant sources into one
// effective access view. It is deliberately a pure function over already
// loaded data so that the point query and the bulk listing share a single
// definition of "has access" and the combination rules can be tested
// without a database.
//
// For every module: has_access = roleHas OR userHas. Source is "combined"
// when both grants exist, otherwise whichever one does; rows without
// access keep the "role" default. Input order is preserved, so callers
// get the same created_at DESC, name ASC ordering the module listings use.
func ResolveEffective(modules []model.Module, roleSet, userSet map[uint64]struct{}) []model.ModuleAccess {
	out := make([]model.ModuleAccess, 0, len(modules))
	for _, m := range modules {
		_, roleHas := roleSet[m.ID]
		_, userHas := userSet[m.ID]

		src := model.SourceRole
		switch {
		case roleHas && userHas:
			src = model.SourceCombined
		case userHas:
			src = model.SourceUser
		}

		out = append(out, model.ModuleAccess{
			ModuleID:   m.ID,
			ModuleName: m.Name,
			ParentID:   m.ParentID,
			HasAccess:  roleHas || userHas,
			Source:     src,
		})
	}
	return out
}

// AccessibleOnly filters a resolved access list down to the rows the
// principal can actually reach. Auth responses embed this filtered list;
// admin views keep the full matrix including has_access=false rows.
func AccessibleOnly(access []model.ModuleAccess) []model.ModuleAccess {
	out := make([]model.ModuleAccess, 0, len(access))
	for _, a := range access {
		if a.HasAccess {
			out = append(out, a)
		}
	}
	return out
}
