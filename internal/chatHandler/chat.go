package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"homecheff/internal/chat"
	"homecheff/internal/chatHandler/models"
	"homecheff/internal/middleware"
	"homecheff/internal/repository"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type Chat interface {
	Authorize(ctx context.Context, conversationID, userID string) (repository.Conversation, error)
	Post(ctx context.Context, conversationID, senderID, body string) (repository.Message, error)
	History(ctx context.Context, conversationID, userID string, afterID int64, limit int) ([]repository.Message, error)
}

type Subscriber interface {
	Subscribe(ctx context.Context, conversationID string) (<-chan repository.Message, func() error, error)
}

type ChatHandler struct {
	chat       Chat
	subscriber Subscriber
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

func NewChatHandler(chat Chat, subscriber Subscriber, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chat:       chat,
		subscriber: subscriber,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

func (h *ChatHandler) errorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, chat.ErrNotParticipant):
		return c.JSON(http.StatusForbidden, map[string]string{"message": "Not a participant of this conversation"})
	case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, chat.ErrMessageTooLong):
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Message must be between 1 and 2000 characters"})
	case repository.IsNotFound(err):
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Conversation not found"})
	}
	h.logger.Error("Chat request failed", zap.String("conversationID", c.Param("id")), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
}

// Messages lists messages newer than ?after= for clients polling instead of
// holding a socket open.
func (h *ChatHandler) Messages(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Missing token"})
	}

	var after int64
	if s := c.QueryParam("after"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid after parameter"})
		}
		after = v
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	msgs, err := h.chat.History(c.Request().Context(), c.Param("id"), p.UserID, after, limit)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"messages": msgs})
}

func (h *ChatHandler) PostMessage(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Missing token"})
	}

	var req models.MessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid Request"})
	}
	m, err := h.chat.Post(c.Request().Context(), c.Param("id"), p.UserID, req.Body)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

// Socket upgrades to a websocket that streams new messages of the
// conversation and accepts {"body": ...} frames to post.
func (h *ChatHandler) Socket(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Missing token"})
	}
	convID := c.Param("id")
	if _, err := h.chat.Authorize(c.Request().Context(), convID, p.UserID); err != nil {
		return h.errorResponse(c, err)
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	msgs, closeSub, err := h.subscriber.Subscribe(ctx, convID)
	if err != nil {
		h.logger.Error("Failed to subscribe to conversation", zap.String("conversationID", convID), zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"message": "Live chat unavailable, poll messages instead"})
	}
	defer closeSub()

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already answered the client
		return nil
	}
	defer conn.Close()

	rejected := make(chan string, 1)
	go h.readLoop(ctx, cancel, conn, convID, p.UserID, rejected)
	h.writeLoop(ctx, conn, msgs, rejected)
	return nil
}

// readLoop posts incoming frames until the client goes away. It is the only
// reader of conn.
func (h *ChatHandler) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn,
	convID, userID string, rejected chan<- string) {
	defer cancel()
	conn.SetReadLimit(8 * 1024)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var req models.MessageRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Chat socket closed", zap.String("conversationID", convID), zap.Error(err))
			}
			return
		}
		if _, err := h.chat.Post(ctx, convID, userID, req.Body); err != nil {
			select {
			case rejected <- err.Error():
			default:
			}
		}
	}
}

// writeLoop is the only writer of conn.
func (h *ChatHandler) writeLoop(ctx context.Context, conn *websocket.Conn, msgs <-chan repository.Message, rejected <-chan string) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(m); err != nil {
				return
			}
		case reason := <-rejected:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(models.SocketError{Error: reason}); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
