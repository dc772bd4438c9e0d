package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/messagely/internal/middleware"
	"github.com/iliyamo/messagely/internal/service"
)

// MessageHandler exposes the message endpoints.  Every route is behind
// JWTAuth; the requester is always the token's username.
type MessageHandler struct {
	Messages *service.MessageService
}

func NewMessageHandler(m *service.MessageService) *MessageHandler {
	return &MessageHandler{Messages: m}
}

type createMessageReq struct {
	ToUsername string `json:"to_username"`
	Body       string `json:"body"`
}

// GetMessage: GET /messages/:id.  Sender or recipient only.
func (h *MessageHandler) GetMessage(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid message id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Messages.Get(ctx, id, middleware.Username(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": d})
}

// CreateMessage: POST /messages {to_username, body} -> 201.
func (h *MessageHandler) CreateMessage(c echo.Context) error {
	var req createMessageReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	m, err := h.Messages.Create(ctx, middleware.Username(c), service.CreateMessageInput{
		ToUsername: req.ToUsername,
		Body:       req.Body,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": m})
}

// MarkRead: POST /messages/:id/read.  Recipient only.
func (h *MessageHandler) MarkRead(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid message id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rc, err := h.Messages.MarkRead(ctx, id, middleware.Username(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": rc})
}

func parseID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
