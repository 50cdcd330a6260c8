package matching

import (
	"errors"
	"net/http"
	"strconv"

	"gp-connect/internal/models"
	"gp-connect/internal/modules/auth"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for booking and match decisions.
type Handler struct {
	svc      ServiceInterface
	validate *validator.Validate
}

// NewHandler creates a new matching handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

// RegisterRoutes mounts matching routes on the authenticated group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	sender := auth.RequireRole(models.RoleSender)
	g.GET("/trips/:tripId/quote", h.Quote, sender)
	g.POST("/bookings", h.Book, sender)
	g.GET("/match-requests/mine", h.ListMyRequests, sender)

	traveler := auth.RequireRole(models.RoleTraveler)
	g.GET("/match-requests/incoming", h.ListIncoming, traveler)
	g.POST("/match-requests/:matchId/accept", h.Accept, traveler)
	g.POST("/match-requests/:matchId/reject", h.Reject, traveler)
}

func (h *Handler) Quote(c echo.Context) error {
	weight, err := strconv.ParseFloat(c.QueryParam("weight_kg"), 64)
	if err != nil || weight <= 0 {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "weight_kg must be a positive number"})
	}

	quote, err := h.svc.Quote(c.Request().Context(), c.Param("tripId"), weight)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Trip not found"})
		}
		c.Logger().Error("Handler.Quote: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to compute quote"})
	}

	return c.JSON(http.StatusOK, quote)
}

func (h *Handler) Book(c echo.Context) error {
	senderID := c.Get("userID").(string)

	var req models.BookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	resp, err := h.svc.Book(c.Request().Context(), senderID, req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Trip not found"})
		case errors.Is(err, models.ErrTripInactive):
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "Trip is no longer active"})
		case errors.Is(err, models.ErrOwnTrip):
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "You cannot book your own trip"})
		case errors.Is(err, models.ErrInsufficientCapacity):
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "Parcel exceeds the trip's remaining capacity"})
		case errors.Is(err, models.ErrConflict):
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: err.Error()})
		}
		c.Logger().Error("Handler.Book: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to create booking"})
	}

	return c.JSON(http.StatusCreated, resp)
}

func (h *Handler) ListMyRequests(c echo.Context) error {
	senderID := c.Get("userID").(string)
	page, limit := pageParams(c)

	requests, total, err := h.svc.ListMyRequests(c.Request().Context(), senderID, page, limit)
	if err != nil {
		c.Logger().Error("Handler.ListMyRequests: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to retrieve requests"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"match_requests": requests, "total": total})
}

func (h *Handler) ListIncoming(c echo.Context) error {
	travelerID := c.Get("userID").(string)
	page, limit := pageParams(c)

	requests, total, err := h.svc.ListIncoming(c.Request().Context(), travelerID, page, limit)
	if err != nil {
		c.Logger().Error("Handler.ListIncoming: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to retrieve requests"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"match_requests": requests, "total": total})
}

func (h *Handler) Accept(c echo.Context) error {
	travelerID := c.Get("userID").(string)

	var req models.AcceptMatchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	assignment, err := h.svc.Accept(c.Request().Context(), c.Param("matchId"), travelerID, req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Match request not found"})
		case errors.Is(err, models.ErrForbidden):
			return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "Access denied"})
		case errors.Is(err, models.ErrAlreadyDecided):
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "Match request has already been decided"})
		case errors.Is(err, models.ErrInsufficientCapacity):
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "Trip no longer has enough capacity"})
		}
		c.Logger().Error("Handler.Accept: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to accept request"})
	}

	return c.JSON(http.StatusCreated, assignment)
}

func (h *Handler) Reject(c echo.Context) error {
	travelerID := c.Get("userID").(string)

	if err := h.svc.Reject(c.Request().Context(), c.Param("matchId"), travelerID); err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Match request not found"})
		case errors.Is(err, models.ErrForbidden):
			return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "Access denied"})
		case errors.Is(err, models.ErrAlreadyDecided):
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "Match request has already been decided"})
		}
		c.Logger().Error("Handler.Reject: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to reject request"})
	}

	return c.NoContent(http.StatusNoContent)
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
