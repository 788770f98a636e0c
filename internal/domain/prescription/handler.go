package prescription

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/rxtrack/rxtrack/internal/domain/inventory"
	"github.com/rxtrack/rxtrack/internal/platform/apperr"
	"github.com/rxtrack/rxtrack/internal/platform/auth"
	"github.com/rxtrack/rxtrack/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	clinical := auth.RequireRole(auth.RoleDoctor, auth.RolePharmacist)

	api.POST("/prescriptions", h.Create, auth.RequireRole(auth.RoleDoctor))
	api.GET("/prescriptions", h.List, clinical)
	api.GET("/prescriptions/:id", h.Get, clinical)
	api.PUT("/prescriptions/:id", h.Update, clinical)
	api.DELETE("/prescriptions/:id", h.Delete, clinical)

	api.POST("/prescriptions/:id/validate", h.Validate, clinical)
	api.POST("/prescriptions/:id/dispense", h.Dispense, clinical)
	api.POST("/prescriptions/:id/cancel", h.Cancel, clinical)
}

// DispenseResponse pairs the updated prescription with the per-medication
// deduction outcomes.
type DispenseResponse struct {
	Prescription *Prescription               `json:"prescription"`
	Deductions   []inventory.DeductionResult `json:"deductions"`
}

func (h *Handler) Create(c echo.Context) error {
	ident, err := auth.IdentityFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.Create(c.Request().Context(), ident, in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) List(c echo.Context) error {
	ident, err := auth.IdentityFromContext(c.Request().Context())
	if err != nil {
		return err
	}
	var status *Status
	if raw := c.QueryParam("status"); raw != "" {
		s := Status(raw)
		if !s.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status filter")
		}
		status = &s
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), ident, status, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	ident, id, err := callerAndID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), ident, id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Update(c echo.Context) error {
	ident, id, err := callerAndID(c)
	if err != nil {
		return err
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.Update(c.Request().Context(), ident, id, in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Delete(c echo.Context) error {
	ident, id, err := callerAndID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), ident, id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Validate(c echo.Context) error {
	ident, id, err := callerAndID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Validate(c.Request().Context(), ident, id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Dispense(c echo.Context) error {
	ident, id, err := callerAndID(c)
	if err != nil {
		return err
	}
	p, results, err := h.svc.Dispense(c.Request().Context(), ident, id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, DispenseResponse{Prescription: p, Deductions: results})
}

func (h *Handler) Cancel(c echo.Context) error {
	ident, id, err := callerAndID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Cancel(c.Request().Context(), ident, id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func callerAndID(c echo.Context) (auth.Identity, uuid.UUID, error) {
	ident, err := auth.IdentityFromContext(c.Request().Context())
	if err != nil {
		return auth.Identity{}, uuid.Nil, err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return auth.Identity{}, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return ident, id, nil
}
