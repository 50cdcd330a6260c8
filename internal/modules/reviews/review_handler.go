package reviews

import (
	"errors"
	"net/http"
	"strconv"

	"gp-connect/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for reviews, disputes and problem
// reports.
type Handler struct {
	svc      ServiceInterface
	validate *validator.Validate
}

// NewHandler creates a new review handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

// RegisterRoutes mounts feedback routes. Reading a user's reviews is
// public; everything else requires authentication.
func (h *Handler) RegisterRoutes(e *echo.Echo, authed *echo.Group) {
	e.GET("/users/:userId/reviews", h.GetReviewsForUser)

	authed.POST("/assignments/:assignmentId/reviews", h.CreateReview)
	authed.POST("/disputes", h.OpenDispute)
	authed.POST("/reports", h.FileReport)
}

func (h *Handler) CreateReview(c echo.Context) error {
	reviewerID := c.Get("userID").(string)

	var req models.CreateReviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	review, err := h.svc.CreateReview(c.Request().Context(), c.Param("assignmentId"), reviewerID, req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Assignment not found"})
		case errors.Is(err, models.ErrNotDelivered):
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "Reviews open after delivery is complete"})
		case errors.Is(err, models.ErrReviewExists):
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "You already reviewed this delivery"})
		}
		c.Logger().Error("Handler.CreateReview: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to submit review"})
	}
	return c.JSON(http.StatusCreated, review)
}

func (h *Handler) GetReviewsForUser(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	reviews, total, err := h.svc.GetReviewsForUser(c.Request().Context(), c.Param("userId"), page, limit)
	if err != nil {
		c.Logger().Error("Handler.GetReviewsForUser: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to retrieve reviews"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"reviews": reviews, "total": total})
}

func (h *Handler) OpenDispute(c echo.Context) error {
	userID := c.Get("userID").(string)

	var req models.OpenDisputeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	dispute, err := h.svc.OpenDispute(c.Request().Context(), userID, req)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Assignment not found"})
		}
		c.Logger().Error("Handler.OpenDispute: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to open dispute"})
	}
	return c.JSON(http.StatusCreated, dispute)
}

func (h *Handler) FileReport(c echo.Context) error {
	reporterID := c.Get("userID").(string)

	var req models.CreateReportRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	report, err := h.svc.FileReport(c.Request().Context(), reporterID, req)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Assignment not found"})
		}
		c.Logger().Error("Handler.FileReport: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to file report"})
	}
	return c.JSON(http.StatusCreated, report)
}
