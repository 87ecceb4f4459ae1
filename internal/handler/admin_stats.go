package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Dashboard returns headline counts plus the most recent signups.
func (h *AdminHandler) Dashboard(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	stats, err := h.Stats.Dashboard(ctx)
	if err != nil {
		return writeError(c, err, "load dashboard failed")
	}
	recent := make([]adminUserResp, 0, len(stats.RecentUsers))
	for _, u := range stats.RecentUsers {
		recent = append(recent, h.withRole(ctx, u))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"stats":        stats,
		"recent_users": recent,
	})
}
