package careplan

import (
	"net/http"

	"github.com/google/uuid"
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
	doctor := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctor.POST("/care-plans", h.CreateCarePlan)
	doctor.GET("/care-plans/:id", h.GetCarePlan)
	doctor.POST("/care-plans/:id/close", h.CloseCarePlan)
	doctor.PUT("/care-plans/:id/status", h.UpdateStatus)
	doctor.GET("/patients/:id/active-plan", h.GetActivePlan)
}

type createRequest struct {
	PatientID    uuid.UUID `json:"patient_id"`
	Instructions string    `json:"instructions"`
}

type statusRequest struct {
	Status Status `json:"status"`
}

func parseID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func (h *Handler) CreateCarePlan(c echo.Context) error {
	caller, err := auth.ContextCaller(c)
	if err != nil {
		return err
	}
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	cp, err := h.svc.CreatePlan(c.Request().Context(), caller, req.PatientID, req.Instructions)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, NewView(cp))
}

func (h *Handler) GetCarePlan(c echo.Context) error {
	caller, err := auth.ContextCaller(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	cp, err := h.svc.GetPlan(c.Request().Context(), caller, id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, NewView(cp))
}

func (h *Handler) CloseCarePlan(c echo.Context) error {
	caller, err := auth.ContextCaller(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	cp, err := h.svc.ClosePlan(c.Request().Context(), caller, id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, NewView(cp))
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	caller, err := auth.ContextCaller(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	cp, err := h.svc.UpdateStatus(c.Request().Context(), caller, id, req.Status)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, NewView(cp))
}

func (h *Handler) GetActivePlan(c echo.Context) error {
	caller, err := auth.ContextCaller(c)
	if err != nil {
		return err
	}
	patientID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	cp, err := h.svc.ActivePlanFor(c.Request().Context(), caller, patientID)
	if err != nil {
		return apperr.HTTPError(err)
	}
	if cp == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no active care plan")
	}
	return c.JSON(http.StatusOK, NewView(cp))
}
