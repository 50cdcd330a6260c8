package users

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"gp-connect/internal/models"
	"gp-connect/internal/storage"
	"gp-connect/internal/ws"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Handler handles HTTP and websocket requests for user profiles and
// notifications.
type Handler struct {
	svc      ServiceInterface
	media    *storage.Storage
	hub      *ws.Hub
	upgrader websocket.Upgrader
	validate *validator.Validate
}

// NewHandler creates a new user handler. media may be nil when object
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

// RegisterRoutes mounts user routes on the authenticated group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/users/me", h.GetMe)
	g.PATCH("/users/me", h.UpdateMe)
	g.POST("/users/me/avatar", h.UploadAvatar)
	g.GET("/users/me/kyc", h.GetMyKYC)
	g.POST("/users/me/kyc", h.SubmitKYC)
	g.GET("/users/:userId", h.GetPublicProfile)

	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.POST("/notifications/read", h.MarkNotificationsRead)
	g.GET("/notifications/ws", h.Subscribe)
}

func (h *Handler) GetMe(c echo.Context) error {
	userID := c.Get("userID").(string)

	user, err := h.svc.GetProfile(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "User not found"})
		}
		c.Logger().Error("Handler.GetMe: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to retrieve profile"})
	}
	return c.JSON(http.StatusOK, user)
}

func (h *Handler) UpdateMe(c echo.Context) error {
	userID := c.Get("userID").(string)

	var req models.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	user, err := h.svc.UpdateProfile(c.Request().Context(), userID, req)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "User not found"})
		}
		c.Logger().Error("Handler.UpdateMe: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to update profile"})
	}
	return c.JSON(http.StatusOK, user)
}

// UploadAvatar stores a new avatar image and points the profile at it.
func (h *Handler) UploadAvatar(c echo.Context) error {
	if h.media == nil {
		return c.JSON(http.StatusNotImplemented, models.ErrorResponse{Message: "Object storage is not configured"})
	}
	userID := c.Get("userID").(string)

	file, err := c.FormFile("avatar")
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Missing avatar file"})
	}
	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Failed to read avatar file"})
	}
	defer src.Close()

	key := fmt.Sprintf("avatars/%s/%s", userID, uuid.NewString())
	url, err := h.media.Upload(c.Request().Context(), key, src, file.Size, file.Header.Get("Content-Type"))
	if err != nil {
		c.Logger().Error("Handler.UploadAvatar: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to upload avatar"})
	}

	user, err := h.svc.UpdateProfile(c.Request().Context(), userID, models.UpdateProfileRequest{AvatarURL: &url})
	if err != nil {
		c.Logger().Error("Handler.UploadAvatar: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to update profile"})
	}
	return c.JSON(http.StatusOK, user)
}

func (h *Handler) GetPublicProfile(c echo.Context) error {
	profile, err := h.svc.GetPublicProfile(c.Request().Context(), c.Param("userId"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "User not found"})
		}
		c.Logger().Error("Handler.GetPublicProfile: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to retrieve profile"})
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *Handler) GetMyKYC(c echo.Context) error {
	userID := c.Get("userID").(string)

	docs, err := h.svc.GetKYCDocuments(c.Request().Context(), userID)
	if err != nil {
		c.Logger().Error("Handler.GetMyKYC: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to retrieve documents"})
	}
	return c.JSON(http.StatusOK, docs)
}

func (h *Handler) SubmitKYC(c echo.Context) error {
	userID := c.Get("userID").(string)

	var req models.SubmitKYCRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	doc, err := h.svc.SubmitKYC(c.Request().Context(), userID, req)
	if err != nil {
		c.Logger().Error("Handler.SubmitKYC: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to submit document"})
	}
	return c.JSON(http.StatusCreated, doc)
}

func (h *Handler) GetNotifications(c echo.Context) error {
	userID := c.Get("userID").(string)

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	notifs, err := h.svc.GetNotifications(c.Request().Context(), userID, page, limit)
	if err != nil {
		c.Logger().Error("Handler.GetNotifications: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to retrieve notifications"})
	}
	return c.JSON(http.StatusOK, notifs)
}

func (h *Handler) GetUnreadCount(c echo.Context) error {
	userID := c.Get("userID").(string)

	n, err := h.svc.GetUnreadCount(c.Request().Context(), userID)
	if err != nil {
		c.Logger().Error("Handler.GetUnreadCount: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to count notifications"})
	}
	return c.JSON(http.StatusOK, map[string]int{"unread": n})
}

func (h *Handler) MarkNotificationsRead(c echo.Context) error {
	userID := c.Get("userID").(string)

	if err := h.svc.MarkNotificationsRead(c.Request().Context(), userID); err != nil {
		c.Logger().Error("Handler.MarkNotificationsRead: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to mark notifications read"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Subscribe upgrades the request to a websocket and streams the caller's
// notifications as they are created, until the client disconnects.
func (h *Handler) Subscribe(c echo.Context) error {
	userID := c.Get("userID").(string)

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := ws.NewClient(userID, conn)
	topic := "user:" + userID
	h.hub.Subscribe(topic, client)
	go client.WritePump()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.hub.Unsubscribe(topic, client)
	return nil
}
