// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/access-control/internal/config"
	"github.com/iliyamo/access-control/internal/handler"
	"github.com/iliyamo/access-control/internal/middleware"
	"github.com/iliyamo/access-control/internal/repository"
)

// Deps carries everything route registration needs. Redis is optional;
// when nil the rate limiter and response cache register as pass-through.
type Deps struct {
	Cfg      config.Config
	RateCfg  config.RateLimitConfig
	CacheCfg config.CacheConfig
	Redis    *redis.Client

	Users *repository.UserRepo
	Roles *repository.RoleRepo

	Auth   *handler.AuthHandler
	Access *handler.AccessHandler
	Admin  *handler.AdminHandler
}

// RegisterRoutes registers the public, authenticated and admin route
// groups.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	// Credential and token endpoints sit behind the token-bucket rate
	// limiter so password guessing and refresh hammering are throttled.
	auth := e.Group("/v1/auth")
	auth.Use(middleware.NewTokenBucket(d.RateCfg, d.Redis))
	auth.POST("/signup", d.Auth.SignUp)
	auth.POST("/signin", d.Auth.SignIn)
	auth.POST("/refresh", d.Auth.Refresh)
	auth.POST("/logout", d.Auth.Logout)

	// Everything under /v1 past this point needs a valid access token.
	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(d.Cfg.JWTSecret))
	v1.GET("/auth/me", d.Auth.Me)
	v1.GET("/access/modules", d.Access.Modules)
	v1.GET("/access/check", d.Access.Check)

	// Admin endpoints additionally require the admin role, resolved from
	// the database on every request so role changes apply immediately.
	admin := v1.Group("/admin")
	admin.Use(middleware.RequireRole(d.Users, d.Roles, "admin"))

	cache := middleware.NewRedisCache(d.CacheCfg, d.Redis)

	admin.GET("/dashboard", d.Admin.Dashboard, cache)

	admin.GET("/users", d.Admin.ListUsers)
	admin.GET("/users/pending", d.Admin.PendingUsers)
	admin.POST("/users", d.Admin.CreateUser)
	admin.GET("/users/:id", d.Admin.GetUser)
	admin.PATCH("/users/:id", d.Admin.UpdateUser)
	admin.DELETE("/users/:id", d.Admin.DeleteUser)
	admin.POST("/users/:id/approve", d.Admin.ApproveUser)
	admin.POST("/users/:id/activate", d.Admin.ActivateUser)
	admin.POST("/users/:id/deactivate", d.Admin.DeactivateUser)
	admin.PUT("/users/:id/role", d.Admin.AssignRole)
	admin.DELETE("/users/:id/role", d.Admin.RemoveRole)
	admin.GET("/users/:id/modules", d.Admin.UserGrants)
	admin.POST("/users/:id/modules", d.Admin.SetUserGrant)
	admin.DELETE("/users/:id/modules/:module_id", d.Admin.RevokeUserGrant)

	admin.GET("/roles", d.Admin.ListRoles)
	admin.POST("/roles", d.Admin.CreateRole)
	admin.GET("/roles/:id", d.Admin.GetRole)
	admin.PATCH("/roles/:id", d.Admin.UpdateRole)
	admin.DELETE("/roles/:id", d.Admin.DeleteRole)
	admin.GET("/roles/:id/users", d.Admin.UsersByRole)
	admin.GET("/roles/:id/modules", d.Admin.RoleGrants)
	admin.POST("/roles/:id/modules", d.Admin.SetRoleGrant)
	admin.DELETE("/roles/:id/modules/:module_id", d.Admin.RevokeRoleGrant)

	admin.GET("/modules", d.Admin.ListModules, cache)
	admin.GET("/modules/tree", d.Admin.ModuleTree, cache)
	admin.POST("/modules", d.Admin.CreateModule)
	admin.GET("/modules/:id", d.Admin.GetModule)
	admin.GET("/modules/:id/sub", d.Admin.SubModules)
	admin.PATCH("/modules/:id", d.Admin.UpdateModule)
	admin.DELETE("/modules/:id", d.Admin.DeleteModule)

	admin.GET("/permissions/matrix", d.Admin.Matrix)
}
