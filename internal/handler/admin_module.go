package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/access-control/internal/model"
	"github.com/iliyamo/access-control/internal/queue"
	"github.com/iliyamo/access-control/internal/repository"
)

// ----- module management DTOs -----

type createModuleReq struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ParentID    *uint64 `json:"parent_id"`
	Active      *bool   `json:"active"`
}

// updateModuleReq distinguishes an absent parent_id (leave as is) from
// an explicit null (move to root): the key must be present in the JSON
// body for re-parenting to happen. The body is decoded once into raw
// messages so key presence survives the round trip.
type updateModuleReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Active      *bool   `json:"active"`

	raw map[string]json.RawMessage
}

func (r *updateModuleReq) bind(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, &r.raw); err != nil {
		return err
	}
	if err := json.Unmarshal(body, r); err != nil {
		return err
	}
	return nil
}

func (r *updateModuleReq) parentSet() bool {
	_, ok := r.raw["parent_id"]
	return ok
}

func (r *updateModuleReq) parentID() (*uint64, error) {
	raw, ok := r.raw["parent_id"]
	if !ok || string(raw) == "null" {
		return nil, nil
	}
	var id uint64
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

type moduleResp struct {
	ID          uint64  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ParentID    *uint64 `json:"parent_id"`
	Active      bool    `json:"active"`
}

func toModuleResp(m model.Module) moduleResp {
	return moduleResp{ID: m.ID, Name: m.Name, Description: m.Description, ParentID: m.ParentID, Active: m.Active}
}

// ListModules returns all modules as a flat list. ?active=true narrows
// to active modules only.
func (h *AdminHandler) ListModules(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	modules, err := h.Modules.List(ctx, c.QueryParam("active") == "true")
	if err != nil {
		return writeError(c, err, "list modules failed")
	}
	out := make([]moduleResp, 0, len(modules))
	for _, m := range modules {
		out = append(out, toModuleResp(m))
	}
	return c.JSON(http.StatusOK, echo.Map{"modules": out})
}

// ModuleTree returns the module forest with children nested.
func (h *AdminHandler) ModuleTree(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	tree, err := h.Modules.Tree(ctx, c.QueryParam("active") == "true")
	if err != nil {
		return writeError(c, err, "load module tree failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"modules": tree})
}

// GetModule returns one module by id.
func (h *AdminHandler) GetModule(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	m, err := h.Modules.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err, "load module failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"module": toModuleResp(m)})
}

// SubModules lists the direct children of a module.
func (h *AdminHandler) SubModules(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Modules.GetByID(ctx, id); err != nil {
		return writeError(c, err, "load module failed")
	}
	subs, err := h.Modules.ListSub(ctx, id, c.QueryParam("active") == "true")
	if err != nil {
		return writeError(c, err, "list sub-modules failed")
	}
	out := make([]moduleResp, 0, len(subs))
	for _, m := range subs {
		out = append(out, toModuleResp(m))
	}
	return c.JSON(http.StatusOK, echo.Map{"modules": out})
}

// CreateModule creates a module, optionally under a parent. Active
// defaults to true.
func (h *AdminHandler) CreateModule(c echo.Context) error {
	var req createModuleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	m, err := h.Modules.Create(ctx, req.Name, req.Description, req.ParentID, active)
	if err != nil {
		return writeError(c, err, "create module failed")
	}
	h.audit(c, queue.NewAuditEvent(queue.ActionModuleCreated, actorID(c), "module", m.ID, m.Name))
	return c.JSON(http.StatusCreated, echo.Map{"module": toModuleResp(m)})
}

// UpdateModule applies a partial update, including re-parenting. An
// explicit `"parent_id": null` moves the module to the root level.
func (h *AdminHandler) UpdateModule(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req updateModuleReq
	if err := req.bind(c); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	parentID, err := req.parentID()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid parent_id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	m, err := h.Modules.Update(ctx, id, repository.ModuleUpdate{
		Name:        req.Name,
		Description: req.Description,
		SetParent:   req.parentSet(),
		ParentID:    parentID,
		Active:      req.Active,
	})
	if err != nil {
		return writeError(c, err, "update module failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"module": toModuleResp(m)})
}

// DeleteModule removes a module and its grants. Modules with children
// are rejected.
func (h *AdminHandler) DeleteModule(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Modules.Delete(ctx, id); err != nil {
		return writeError(c, err, "delete module failed")
	}
	h.audit(c, queue.NewAuditEvent(queue.ActionModuleDeleted, actorID(c), "module", id, ""))
	return c.NoContent(http.StatusNoContent)
}
