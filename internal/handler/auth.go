package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/access-control/internal/config"
	"github.com/iliyamo/access-control/internal/model"
	"github.com/iliyamo/access-control/internal/queue"
	"github.com/iliyamo/access-control/internal/repository"
	"github.com/iliyamo/access-control/internal/service"
	"github.com/iliyamo/access-control/internal/utils"
)

// refreshCookie is the optional cookie carrying the refresh token. The
// token is always returned in the body too; cookie-based clients simply
// omit it from requests and let the browser send it.
const refreshCookie = "refresh_token"

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Roles  *repository.RoleRepo
	Tokens *repository.TokenRepo
	Perms  *repository.PermissionRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, r *repository.RoleRepo,
	t *repository.TokenRepo, p *repository.PermissionRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Roles: r, Tokens: t, Perms: p}
}

// ----- DTOs -----

type signUpReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type signInReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

// authResp is the wire contract for sign-up, sign-in and refresh. The
// modules list contains only modules the caller can access; the admin
// endpoints expose the full matrix instead.
type authResp struct {
	User         userPart     `json:"user"`
	Modules      []modulePart `json:"modules"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// SignUp creates an account and returns a token pair right away. The
// account still needs admin approval before sign-in works; issuing
// tokens here lets the client show the pending state without a second
// round trip. The configured default role is assigned when it exists.
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name/email/password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	var roleID *uint64
	if h.Cfg.DefaultRole != "" {
		if role, err := h.Roles.GetByName(ctx, h.Cfg.DefaultRole); err == nil {
			roleID = &role.ID
		} else if !errors.Is(err, repository.ErrNotFound) {
			return writeError(c, err, "signup failed")
		}
	}

	uid, err := h.Users.Create(ctx, req.Name, req.Email, req.Password, roleID, h.Cfg.BcryptCost)
	if err != nil {
		return writeError(c, err, "create user failed")
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return writeError(c, err, "load user failed")
	}

	resp, err := h.issuePair(c, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}

	service.PublishAudit(ctx, queue.NewAuditEvent(queue.ActionUserSignedUp, u.ID, "user", u.ID, u.Email))
	return c.JSON(http.StatusCreated, resp)
}

// SignIn verifies credentials and returns a fresh token pair. The
// credential check runs before the account-state checks so a disabled or
// unapproved account never learns whether the password was right.
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if !u.Active {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account has been deactivated"})
	}
	if !u.Approved {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account is pending approval"})
	}

	resp, err := h.issuePair(c, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}

	service.PublishAudit(ctx, queue.NewAuditEvent(queue.ActionUserSignedIn, u.ID, "user", u.ID, u.Email))
	return c.JSON(http.StatusOK, resp)
}

// Refresh rotates a refresh token: signature and stored state are checked
// independently, the old row is revoked with a conditional update (so two
// racing calls on one token cannot both succeed) and a new pair is
// minted. The module list is re-resolved here, not replayed from login —
// admin changes to roles and grants apply without re-authentication.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := h.refreshTokenFrom(c)
	if raw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refreshToken required"})
	}
	if _, err := utils.VerifyToken(h.Cfg.JWTSecret, raw); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	hash := utils.HashTokenRaw(raw)
	userID, err := h.Tokens.Validate(ctx, hash)
	if err != nil {
		return writeError(c, err, "refresh failed")
	}
	if err := h.Tokens.RotateOut(ctx, hash); err != nil {
		return writeError(c, err, "refresh failed")
	}

	// Account state may have changed since the pair was issued.
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil || !u.Active || !u.Approved {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "user not found or inactive"})
	}

	resp, err := h.issuePair(c, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes the presented refresh token. Revoking an unknown or
// already-revoked token succeeds; the client is logged out either way.
// With a valid bearer token and no refresh token, every session of the
// user is revoked instead. The refresh cookie is always cleared.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	raw := h.refreshTokenFrom(c)
	if raw == "" {
		// No refresh token anywhere; a valid bearer token still lets the
		// caller end all of their sessions. Parsed here because this route
		// runs without the JWT middleware.
		if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			claims, err := utils.VerifyToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			if err := h.Tokens.RevokeAllForUser(ctx, claims.UserID); err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
			}
			h.clearRefreshCookie(c)
			return c.JSON(http.StatusOK, echo.Map{"message": "logged out successfully"})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refreshToken required"})
	}

	if err := h.Tokens.Revoke(ctx, utils.HashTokenRaw(raw)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	h.clearRefreshCookie(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out successfully"})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return writeError(c, err, "load user failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(u)})
}

// issuePair mints an access/refresh pair, persists the refresh hash and
// assembles the auth response with the caller's accessible modules.
func (h *AuthHandler) issuePair(c echo.Context, u model.User) (authResp, error) {
	ctx, cancel := reqCtx(c)
	defer cancel()

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Email, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.JWTSecret, u.ID, u.Email, h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.Store(ctx, u.ID, utils.HashTokenRaw(refresh.Token), refresh.Exp); err != nil {
		return authResp{}, err
	}

	resolved, err := h.Perms.EffectiveAccess(ctx, u.ID, u.RoleID)
	if err != nil {
		return authResp{}, err
	}

	h.setRefreshCookie(c, refresh.Token, refresh.Exp)
	return authResp{
		User:         toUserPart(u),
		Modules:      toModuleParts(resolved),
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
	}, nil
}

// refreshTokenFrom reads the refresh token from the JSON body first and
// falls back to the cookie for browser clients.
func (h *AuthHandler) refreshTokenFrom(c echo.Context) string {
	var req refreshReq
	_ = c.Bind(&req)
	if raw := strings.TrimSpace(req.RefreshToken); raw != "" {
		return raw
	}
	if ck, err := c.Cookie(refreshCookie); err == nil {
		return strings.TrimSpace(ck.Value)
	}
	return ""
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, token string, exp time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookie,
		Value:    token,
		Expires:  exp,
		Path:     "/v1/auth",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   h.Cfg.Env == "prod",
	})
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookie,
		Value:    "",
		MaxAge:   -1,
		Path:     "/v1/auth",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
