package report

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hospstats/hospstats/internal/platform/auth"
	"github.com/hospstats/hospstats/internal/platform/db"
)

// Handler exposes the report API.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the report API routes. Reports carry aggregate
// patient data, so the group is role-guarded.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	grp := api.Group("/reports", auth.RequireRole("admin", "analyst"))
	grp.GET("/diagnosis", h.GetDiagnosis)
}

// GetDiagnosis compiles and runs the filterable diagnosis report.
func (h *Handler) GetDiagnosis(c echo.Context) error {
	fs := FilterSet{
		Year:        c.QueryParam("year"),
		Period:      c.QueryParam("period"),
		Network:     c.QueryParam("network"),
		Facility:    c.QueryParam("facility"),
		Service:     c.QueryParam("service"),
		Activity:    c.QueryParam("activity"),
		Subactivity: c.QueryParam("subactivity"),
		Chapter:     c.QueryParam("chapter"),
		Sex:         c.QueryParam("sex"),
	}

	res, err := h.svc.Diagnosis(c.Request().Context(), fs)
	if err != nil {
		switch {
		case errors.Is(err, ErrIncompleteFilter):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "year and period are required")
		case errors.Is(err, db.ErrConnectionUnavailable):
			return echo.NewHTTPError(http.StatusServiceUnavailable, "warehouse unavailable")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "report query failed")
		}
	}
	return c.JSON(http.StatusOK, res)
}
