package dailylog

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/rpms/rpms/internal/platform/apperr"
	"github.com/rpms/rpms/internal/platform/auth"
	"github.com/rpms/rpms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/care-plans/:id/logs", h.SubmitLog, auth.RequireRole(auth.RolePatient))
	api.GET("/care-plans/:id/logs", h.ListLogs, auth.RequireRole(auth.RoleDoctor))
}

type submitRequest struct {
	PatientNote string   `json:"patient_note"`
	Answers     []Answer `json:"answers"`
}

func (h *Handler) SubmitLog(c echo.Context) error {
	caller, err := auth.ContextCaller(c)
	if err != nil {
		return err
	}
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sub, err := h.svc.SubmitLog(c.Request().Context(), caller, planID, req.PatientNote, req.Answers)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, sub)
}

func (h *Handler) ListLogs(c echo.Context) error {
	caller, err := auth.ContextCaller(c)
	if err != nil {
		return err
	}
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p := pagination.FromContext(c)
	logs, total, err := h.svc.ListByPlan(c.Request().Context(), caller, planID, p.Limit, p.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(NewViews(logs), total, p))
}
