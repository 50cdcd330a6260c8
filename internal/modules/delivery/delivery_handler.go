package delivery

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"gp-connect/internal/models"
	"gp-connect/internal/modules/auth"
	"gp-connect/internal/storage"
	"gp-connect/internal/ws"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Handler handles HTTP and websocket requests for the delivery lifecycle.
type Handler struct {
	svc      ServiceInterface
	media    *storage.Storage
	hub      *ws.Hub
	upgrader websocket.Upgrader
	validate *validator.Validate
}

// NewHandler creates a new delivery handler. media may be nil when object
// storage is not configured.
func NewHandler(svc ServiceInterface, media *storage.Storage, hub *ws.Hub) *Handler {
	return &Handler{
		svc:   svc,
		media: media,
		hub:   hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin is enforced by the JWT on the upgrade request.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		validate: validator.New(),
	}
}

// RegisterRoutes mounts delivery routes on the authenticated group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/assignments", h.ListMyAssignments)
	g.GET("/assignments/:assignmentId", h.GetAssignment)
	g.GET("/assignments/:assignmentId/tracking", h.GetTracking)
	g.GET("/assignments/:assignmentId/proof", h.GetProof)
	g.GET("/assignments/:assignmentId/ws", h.Subscribe)

	traveler := auth.RequireRole(models.RoleTraveler)
	g.POST("/assignments/:assignmentId/pickup", h.MarkPickedUp, traveler)
	g.POST("/assignments/:assignmentId/deliver", h.MarkDelivered, traveler)
	g.POST("/assignments/:assignmentId/tracking", h.ShareLocation, traveler)
	g.POST("/assignments/:assignmentId/proof", h.SubmitProof, traveler)
	g.POST("/assignments/:assignmentId/photos", h.UploadPhoto, traveler)

	g.POST("/assignments/:assignmentId/pay", h.Pay, auth.RequireRole(models.RoleSender))
}

func (h *Handler) GetAssignment(c echo.Context) error {
	userID := c.Get("userID").(string)
	role := c.Get("userRole").(string)

	detail, err := h.svc.GetAssignment(c.Request().Context(), c.Param("assignmentId"), userID, role)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Assignment not found"})
		}
		c.Logger().Error("Handler.GetAssignment: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to retrieve assignment"})
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) ListMyAssignments(c echo.Context) error {
	userID := c.Get("userID").(string)
	page, limit := 1, 20
	if p, err := strconv.Atoi(c.QueryParam("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}

	assignments, total, err := h.svc.ListMyAssignments(c.Request().Context(), userID, page, limit)
	if err != nil {
		c.Logger().Error("Handler.ListMyAssignments: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to retrieve assignments"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"assignments": assignments, "total": total})
}

func (h *Handler) MarkPickedUp(c echo.Context) error {
	travelerID := c.Get("userID").(string)

	a, err := h.svc.MarkPickedUp(c.Request().Context(), c.Param("assignmentId"), travelerID)
	if err != nil {
		return h.lifecycleError(c, "Handler.MarkPickedUp", err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) MarkDelivered(c echo.Context) error {
	travelerID := c.Get("userID").(string)

	a, err := h.svc.MarkDelivered(c.Request().Context(), c.Param("assignmentId"), travelerID)
	if err != nil {
		return h.lifecycleError(c, "Handler.MarkDelivered", err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ShareLocation(c echo.Context) error {
	travelerID := c.Get("userID").(string)

	var req models.TrackingEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}

	if err := h.svc.ShareLocation(c.Request().Context(), c.Param("assignmentId"), travelerID, req); err != nil {
		return h.lifecycleError(c, "Handler.ShareLocation", err)
	}
	return c.NoContent(http.StatusCreated)
}

func (h *Handler) GetTracking(c echo.Context) error {
	userID := c.Get("userID").(string)
	role := c.Get("userRole").(string)

	events, err := h.svc.GetTracking(c.Request().Context(), c.Param("assignmentId"), userID, role)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Assignment not found"})
		}
		c.Logger().Error("Handler.GetTracking: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to retrieve tracking"})
	}
	return c.JSON(http.StatusOK, events)
}

func (h *Handler) SubmitProof(c echo.Context) error {
	travelerID := c.Get("userID").(string)

	var req models.ProofOfDeliveryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	proof, err := h.svc.SubmitProof(c.Request().Context(), c.Param("assignmentId"), travelerID, req)
	if err != nil {
		if errors.Is(err, models.ErrProofExists) {
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "Proof of delivery already submitted"})
		}
		return h.lifecycleError(c, "Handler.SubmitProof", err)
	}
	return c.JSON(http.StatusCreated, proof)
}

func (h *Handler) GetProof(c echo.Context) error {
	userID := c.Get("userID").(string)
	role := c.Get("userRole").(string)

	proof, err := h.svc.GetProof(c.Request().Context(), c.Param("assignmentId"), userID, role)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Proof of delivery not found"})
		}
		c.Logger().Error("Handler.GetProof: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to retrieve proof"})
	}
	return c.JSON(http.StatusOK, proof)
}

// UploadPhoto stores a proof or tracking photo and returns its URL.
func (h *Handler) UploadPhoto(c echo.Context) error {
	if h.media == nil {
		return c.JSON(http.StatusNotImplemented, models.ErrorResponse{Message: "Object storage is not configured"})
	}

	file, err := c.FormFile("photo")
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Missing photo file"})
	}
	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Failed to read photo file"})
	}
	defer src.Close()

	key := fmt.Sprintf("assignments/%s/%s", c.Param("assignmentId"), uuid.NewString())
	url, err := h.media.Upload(c.Request().Context(), key, src, file.Size, file.Header.Get("Content-Type"))
	if err != nil {
		c.Logger().Error("Handler.UploadPhoto: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to upload photo"})
	}

	return c.JSON(http.StatusCreated, map[string]string{"photo_url": url})
}

func (h *Handler) Pay(c echo.Context) error {
	senderID := c.Get("userID").(string)

	var req models.PayAssignmentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	a, err := h.svc.Pay(c.Request().Context(), c.Param("assignmentId"), senderID, req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Assignment not found"})
		case errors.Is(err, models.ErrForbidden):
			return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "Access denied"})
		case errors.Is(err, models.ErrAlreadyPaid):
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "Assignment has already been paid"})
		}
		c.Logger().Error("Handler.Pay: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to process payment"})
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) lifecycleError(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Assignment not found"})
	case errors.Is(err, models.ErrForbidden):
		return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "Access denied"})
	case errors.Is(err, models.ErrAlreadyPickedUp):
		return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "Pickup has already been recorded"})
	case errors.Is(err, models.ErrNotPickedUp):
		return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "Pickup has not been recorded yet"})
	case errors.Is(err, models.ErrAlreadyDelivered):
		return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "Delivery has already been recorded"})
	}
	c.Logger().Error(op+": ", err)
	return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to update delivery"})
}

// Subscribe upgrades the request to a websocket and streams tracking
// events for the assignment until the client disconnects.
func (h *Handler) Subscribe(c echo.Context) error {
	userID := c.Get("userID").(string)
	role := c.Get("userRole").(string)
	assignmentID := c.Param("assignmentId")

	// Reject before upgrading if the caller is not a party.
	if _, err := h.svc.GetAssignment(c.Request().Context(), assignmentID, userID, role); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Assignment not found"})
		}
		c.Logger().Error("Handler.Subscribe: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to subscribe"})
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := ws.NewClient(userID, conn)
	topic := "assignment:" + assignmentID
	h.hub.Subscribe(topic, client)
	go client.WritePump()

	// Block reading until the peer closes; the stream is one-way, updates
	// come in over the REST endpoints.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.hub.Unsubscribe(topic, client)
	return nil
}
