package model

import "time"

// Module represents a row in the `modules` table. Modules are named
// capability areas that access can be granted to. They form a forest:
// ParentID is nil for root modules and otherwise references another
// module. Module names are unique within their parent scope (all roots
// share one namespace, each parent's children share another).
type Module struct {
	ID          uint64    // modules.id
	Name        string    // modules.name
	Description string    // modules.description
	ParentID    *uint64   // modules.parent_id (nullable)
	Active      bool      // modules.active
	CreatedAt   time.Time // modules.created_at
	UpdatedAt   time.Time // modules.updated_at
}

// ModuleNode is a module with its children attached, as returned by the
// tree endpoint. Unlike the flat Module struct this one carries json tags
// because the recursive shape is serialized as-is by the admin handlers.
type ModuleNode struct {
	ID          uint64       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	ParentID    *uint64      `json:"parent_id"`
	Active      bool         `json:"active"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Children    []ModuleNode `json:"children"`
}
