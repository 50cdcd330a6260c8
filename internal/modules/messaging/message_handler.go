package messaging

import (
	"errors"
	"net/http"

	"gp-connect/internal/models"
	"gp-connect/internal/ws"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Handler handles HTTP and websocket requests for messaging.
type Handler struct {
	svc      ServiceInterface
	hub      *ws.Hub
	upgrader websocket.Upgrader
	validate *validator.Validate
}

// NewHandler creates a new messaging handler.
func NewHandler(svc ServiceInterface, hub *ws.Hub) *Handler {
	return &Handler{
		svc: svc,
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin is enforced by the JWT on the upgrade request.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		validate: validator.New(),
	}
}

// RegisterRoutes mounts messaging routes on the authenticated group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/conversations", h.StartConversation)
	g.GET("/conversations", h.ListConversations)
	g.GET("/conversations/:conversationId/messages", h.GetMessages)
	g.POST("/conversations/:conversationId/messages", h.SendMessage)
	g.GET("/conversations/:conversationId/ws", h.Subscribe)
}

func (h *Handler) StartConversation(c echo.Context) error {
	userID := c.Get("userID").(string)
	role := c.Get("userRole").(string)

	var req models.StartConversationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	conv, err := h.svc.StartConversation(c.Request().Context(), userID, role, req)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: err.Error()})
		}
		c.Logger().Error("Handler.StartConversation: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to start conversation"})
	}
	return c.JSON(http.StatusCreated, conv)
}

func (h *Handler) ListConversations(c echo.Context) error {
	userID := c.Get("userID").(string)

	convs, err := h.svc.ListConversations(c.Request().Context(), userID)
	if err != nil {
		c.Logger().Error("Handler.ListConversations: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to retrieve conversations"})
	}
	return c.JSON(http.StatusOK, convs)
}

func (h *Handler) GetMessages(c echo.Context) error {
	userID := c.Get("userID").(string)

	msgs, err := h.svc.GetMessages(c.Request().Context(), c.Param("conversationId"), userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Conversation not found"})
		}
		c.Logger().Error("Handler.GetMessages: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to retrieve messages"})
	}
	return c.JSON(http.StatusOK, msgs)
}

func (h *Handler) SendMessage(c echo.Context) error {
	userID := c.Get("userID").(string)

	var req models.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	msg, err := h.svc.SendMessage(c.Request().Context(), c.Param("conversationId"), userID, req)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Conversation not found"})
		}
		c.Logger().Error("Handler.SendMessage: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to send message"})
	}
	return c.JSON(http.StatusCreated, msg)
}

// Subscribe upgrades the request to a websocket and streams new messages
// for the conversation until the client disconnects.
func (h *Handler) Subscribe(c echo.Context) error {
	userID := c.Get("userID").(string)
	conversationID := c.Param("conversationId")

	// Reject before upgrading if the caller is not a member.
	if _, err := h.svc.GetMessages(c.Request().Context(), conversationID, userID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Conversation not found"})
		}
		c.Logger().Error("Handler.Subscribe: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to subscribe"})
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := ws.NewClient(userID, conn)
	topic := "conversation:" + conversationID
	h.hub.Subscribe(topic, client)
	go client.WritePump()

	// Block reading until the peer closes; incoming frames are ignored,
	// messages are sent over the REST endpoint.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.hub.Unsubscribe(topic, client)
	return nil
}
