package portal

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
	api.GET("/me/dashboard", h.GetDashboard, auth.RequireRole(auth.RolePatient))

	doctor := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctor.GET("/patients", h.ListPatients)
	doctor.GET("/patients/:id/overview", h.GetPatientOverview)
}

func (h *Handler) GetDashboard(c echo.Context) error {
	caller, err := auth.ContextCaller(c)
	if err != nil {
		return err
	}
	d, err := h.svc.PatientDashboard(c.Request().Context(), caller)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListPatients(c echo.Context) error {
	caller, err := auth.ContextCaller(c)
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)
	entries, total, err := h.svc.PatientRoster(c.Request().Context(), caller, p.Limit, p.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, p))
}

func (h *Handler) GetPatientOverview(c echo.Context) error {
	caller, err := auth.ContextCaller(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ov, err := h.svc.DoctorPatientView(c.Request().Context(), caller, id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, ov)
}
