package trips

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"gp-connect/internal/models"
	"gp-connect/internal/modules/auth"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for trips.
type Handler struct {
	svc      ServiceInterface
	validate *validator.Validate
}

// NewHandler creates a new trip handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

// RegisterRoutes mounts trip routes on the authenticated group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/trips", h.SearchTrips)
	g.GET("/trips/:tripId", h.GetTrip)

	traveler := auth.RequireRole(models.RoleTraveler)
	g.POST("/trips", h.CreateTrip, traveler)
	g.GET("/trips/mine", h.ListMyTrips, traveler)
	g.PATCH("/trips/:tripId", h.UpdateTrip, traveler)
	g.DELETE("/trips/:tripId", h.DeactivateTrip, traveler)

	g.POST("/admin/trips/sweep", h.SweepDeparted, auth.RequireRole(models.RoleAdmin))
}

func (h *Handler) CreateTrip(c echo.Context) error {
	travelerID := c.Get("userID").(string)

	var req models.CreateTripRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	trip, err := h.svc.CreateTrip(c.Request().Context(), travelerID, req)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid trip dates"})
		}
		c.Logger().Error("Handler.CreateTrip: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to create trip"})
	}

	return c.JSON(http.StatusCreated, trip)
}

func (h *Handler) GetTrip(c echo.Context) error {
	trip, err := h.svc.GetTrip(c.Request().Context(), c.Param("tripId"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Trip not found"})
		}
		c.Logger().Error("Handler.GetTrip: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to retrieve trip"})
	}
	return c.JSON(http.StatusOK, trip)
}

func (h *Handler) ListMyTrips(c echo.Context) error {
	travelerID := c.Get("userID").(string)
	page, limit := pageParams(c)

	trips, total, err := h.svc.ListMyTrips(c.Request().Context(), travelerID, page, limit)
	if err != nil {
		c.Logger().Error("Handler.ListMyTrips: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to retrieve trips"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"trips": trips, "total": total})
}

func (h *Handler) SearchTrips(c echo.Context) error {
	filter := models.TripSearchFilter{
		FromCity: c.QueryParam("from_city"),
		ToCity:   c.QueryParam("to_city"),
	}
	if v := c.QueryParam("date_from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.DateFrom = &t
		}
	}
	if v := c.QueryParam("date_to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.DateTo = &t
		}
	}
	if v := c.QueryParam("min_weight_kg"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil && w > 0 {
			filter.MinWeightKg = w
		}
	}
	page, limit := pageParams(c)

	trips, total, err := h.svc.SearchTrips(c.Request().Context(), filter, page, limit)
	if err != nil {
		c.Logger().Error("Handler.SearchTrips: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to search trips"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"trips": trips, "total": total})
}

func (h *Handler) UpdateTrip(c echo.Context) error {
	travelerID := c.Get("userID").(string)

	var req models.UpdateTripRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	trip, err := h.svc.UpdateTrip(c.Request().Context(), c.Param("tripId"), travelerID, req)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Trip not found"})
		}
		c.Logger().Error("Handler.UpdateTrip: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to update trip"})
	}

	return c.JSON(http.StatusOK, trip)
}

func (h *Handler) DeactivateTrip(c echo.Context) error {
	travelerID := c.Get("userID").(string)

	if _, err := h.svc.DeactivateTrip(c.Request().Context(), c.Param("tripId"), travelerID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Trip not found"})
		}
		c.Logger().Error("Handler.DeactivateTrip: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to deactivate trip"})
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SweepDeparted(c echo.Context) error {
	n, err := h.svc.SweepDeparted(c.Request().Context())
	if err != nil {
		c.Logger().Error("Handler.SweepDeparted: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to sweep trips"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"deactivated": n})
}

func pageParams(c echo.Context) (int, int) {
	page := 1
	limit := 20
	if pageStr := c.QueryParam("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}
	return page, limit
}
