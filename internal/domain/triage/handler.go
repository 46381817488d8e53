package triage

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/rpms/rpms/internal/platform/apperr"
	"github.com/rpms/rpms/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/triage", h.GetBoard, auth.RequireRole(auth.RoleDoctor))
}

func (h *Handler) GetBoard(c echo.Context) error {
	caller, err := auth.ContextCaller(c)
	if err != nil {
		return err
	}
	var limit int
	if v := c.QueryParam("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
	}
	entries, err := h.svc.Board(c.Request().Context(), caller, limit)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, entries)
}
