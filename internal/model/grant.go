package model

// RoleModule is a row in `role_modules`. Its existence means members of
// the role can access the module. The (role_id, module_id) pair is unique,
// so re-granting is an idempotent upsert.
type RoleModule struct {
	RoleID   uint64 // role_modules.role_id
	ModuleID uint64 // role_modules.module_id
}

// UserModule is a row in `user_modules`. Its existence means the user can
// access the module regardless of their role.
type UserModule struct {
	UserID   uint64 // user_modules.user_id
	ModuleID uint64 // user_modules.module_id
}

// AccessSource tells which grant(s) produced a positive access decision.
type AccessSource string

const (
	SourceRole     AccessSource = "role"     // access via the user's role only
	SourceUser     AccessSource = "user"     // access via a direct user grant only
	SourceCombined AccessSource = "combined" // both a role grant and a direct grant exist
)

// ModuleAccess is the resolved access decision for one module. It is
// derived, never stored. Rows with HasAccess=false keep Source="role" as
// the no-access default so serialization stays deterministic.
type ModuleAccess struct {
	ModuleID   uint64       `json:"module_id"`
	ModuleName string       `json:"module_name"`
	ParentID   *uint64      `json:"parent_id"`
	HasAccess  bool         `json:"has_access"`
	Source     AccessSource `json:"source"`
}
