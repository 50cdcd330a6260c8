package admin

import (
	"errors"
	"net/http"
	"strconv"

	"gp-connect/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for the admin review queues.
type Handler struct {
	svc      ServiceInterface
	validate *validator.Validate
}

// NewHandler creates a new admin handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

// RegisterRoutes mounts admin routes. The caller applies the admin role
// guard to the group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/kyc", h.GetKYCQueue)
	g.POST("/kyc/:documentId/approve", h.ApproveKYC)
	g.POST("/kyc/:documentId/reject", h.RejectKYC)

	g.GET("/disputes", h.GetDisputes)
	g.POST("/disputes/:disputeId/resolve", h.ResolveDispute)
	g.POST("/disputes/:disputeId/close", h.CloseDispute)

	g.GET("/reports", h.GetReports)
	g.POST("/reports/:reportId/resolve", h.ResolveReport)
}

func (h *Handler) GetKYCQueue(c echo.Context) error {
	filter, page, limit := queueParams(c)

	docs, total, err := h.svc.GetKYCQueue(c.Request().Context(), filter, page, limit)
	if err != nil {
		c.Logger().Error("Handler.GetKYCQueue: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to retrieve documents"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"documents": docs, "total": total})
}

func (h *Handler) ApproveKYC(c echo.Context) error {
	adminID := c.Get("userID").(string)

	// The note is optional on approval.
	var req models.ResolutionRequest
	_ = c.Bind(&req)

	doc, err := h.svc.ApproveKYC(c.Request().Context(), c.Param("documentId"), adminID, req.Note)
	if err != nil {
		return h.decisionError(c, "Handler.ApproveKYC", "document", err)
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) RejectKYC(c echo.Context) error {
	adminID := c.Get("userID").(string)

	var req models.ResolutionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "A note explaining the rejection is required"})
	}

	doc, err := h.svc.RejectKYC(c.Request().Context(), c.Param("documentId"), adminID, req.Note)
	if err != nil {
		return h.decisionError(c, "Handler.RejectKYC", "document", err)
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) GetDisputes(c echo.Context) error {
	filter, page, limit := queueParams(c)

	disputes, total, err := h.svc.GetDisputes(c.Request().Context(), filter, page, limit)
	if err != nil {
		c.Logger().Error("Handler.GetDisputes: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to retrieve disputes"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"disputes": disputes, "total": total})
}

func (h *Handler) ResolveDispute(c echo.Context) error {
	adminID := c.Get("userID").(string)

	var req models.ResolutionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "A resolution note is required"})
	}

	dispute, err := h.svc.ResolveDispute(c.Request().Context(), c.Param("disputeId"), adminID, req.Note)
	if err != nil {
		return h.decisionError(c, "Handler.ResolveDispute", "dispute", err)
	}
	return c.JSON(http.StatusOK, dispute)
}

func (h *Handler) CloseDispute(c echo.Context) error {
	adminID := c.Get("userID").(string)

	var req models.ResolutionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "A closing note is required"})
	}

	dispute, err := h.svc.CloseDispute(c.Request().Context(), c.Param("disputeId"), adminID, req.Note)
	if err != nil {
		return h.decisionError(c, "Handler.CloseDispute", "dispute", err)
	}
	return c.JSON(http.StatusOK, dispute)
}

func (h *Handler) GetReports(c echo.Context) error {
	filter, page, limit := queueParams(c)

	reports, total, err := h.svc.GetReports(c.Request().Context(), filter, page, limit)
	if err != nil {
		c.Logger().Error("Handler.GetReports: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to retrieve reports"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"reports": reports, "total": total})
}

func (h *Handler) ResolveReport(c echo.Context) error {
	adminID := c.Get("userID").(string)

	var req struct {
		Status string `json:"status" validate:"required,oneof=reviewed resolved"`
		Note   string `json:"note" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	report, err := h.svc.ResolveReport(c.Request().Context(), c.Param("reportId"), adminID, req.Status, req.Note)
	if err != nil {
		return h.decisionError(c, "Handler.ResolveReport", "report", err)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) decisionError(c echo.Context, op, noun string, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "The " + noun + " was not found"})
	case errors.Is(err, models.ErrAlreadyDecided):
		return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "The " + noun + " was already decided"})
	case errors.Is(err, models.ErrConflict):
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: err.Error()})
	}
	c.Logger().Error(op+": ", err)
	return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to apply decision"})
}

func queueParams(c echo.Context) (QueueFilter, int, int) {
	filter := QueueFilter{
		Status: c.QueryParam("status"),
		Search: c.QueryParam("search"),
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return filter, page, limit
}
