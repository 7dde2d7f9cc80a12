package dashboard

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hospstats/hospstats/internal/platform/db"
)

// Handler exposes the dashboard API.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the dashboard API routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dashboards", h.ListDomains)
	api.GET("/dashboards/:domain", h.GetSnapshot)
}

// ListDomains returns the available dashboard domains.
func (h *Handler) ListDomains(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Domains())
}

// GetSnapshot builds and returns the snapshot for one domain tab.
func (h *Handler) GetSnapshot(c echo.Context) error {
	snap, err := h.svc.Snapshot(
		c.Request().Context(),
		c.Param("domain"),
		c.QueryParam("facility"),
		c.QueryParam("period"),
		c.QueryParam("year"),
		c.QueryParam("insurance"),
	)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownDomain):
			return echo.NewHTTPError(http.StatusNotFound, "unknown dashboard domain")
		case errors.Is(err, ErrIncompleteFilter):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "select the missing filters")
		case errors.Is(err, db.ErrConnectionUnavailable):
			return echo.NewHTTPError(http.StatusServiceUnavailable, "warehouse unavailable")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "dashboard query failed")
		}
	}
	return c.JSON(http.StatusOK, snap)
}
