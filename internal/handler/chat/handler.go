package chat

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/jwalitptl/medbot/internal/handler"
	"github.com/jwalitptl/medbot/internal/middleware"
	"github.com/jwalitptl/medbot/internal/model"
	"github.com/jwalitptl/medbot/internal/repository"
	"github.com/jwalitptl/medbot/internal/service/chat"
	apperrors "github.com/jwalitptl/medbot/pkg/errors"
	"github.com/jwalitptl/medbot/pkg/logger"
)

const (
	maxMessageBytes = 4096
	wsWriteTimeout  = 10 * time.Second
	wsPongTimeout   = 60 * time.Second
	wsPingPeriod    = wsPongTimeout * 9 / 10
	wsReplyTimeout  = 30 * time.Second
)

// Responder answers one message.
type Responder interface {
	Respond(ctx context.Context, message, userID string) chat.Reply
}

type ChatRequest struct {
	Message string `json:"message" binding:"required,notblank,max=2000"`
	UserID  string `json:"user_id" binding:"omitempty,max=128"`
}

type ChatResponse struct {
	Reply        string       `json:"reply"`
	Intent       model.Intent `json:"intent"`
	PredictionID string       `json:"prediction_id,omitempty"`
}

type Handler struct {
	service     Responder
	predictions repository.PredictionRepository
	history     repository.HistoryRepository
	log         *logger.Logger
	upgrader    websocket.Upgrader
	// must stay below wsPongTimeout
	pingPeriod  time.Duration
}

// NewHandler wires the chat endpoints. predictions and history may be nil;
// the routes that read them then answer 503.
func NewHandler(service Responder, predictions repository.PredictionRepository,
	history repository.HistoryRepository, allowedOrigins []string, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		service:     service,
		predictions: predictions,
		history:     history,
		log:         log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		pingPeriod: wsPingPeriod,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	chats := r.Group("/chat")
	{
		chats.POST("", h.Chat)
		chats.GET("/ws", h.ServeWS)
	}

	users := r.Group("/users/:id")
	{
		users.GET("/predictions", h.ListPredictions)
		users.GET("/history", h.ListHistory)
		users.DELETE("/history", h.DeleteHistory)
	}
}

func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest,
			handler.NewErrorResponseWithDetails("invalid request", middleware.ValidationErrors(err)))
		return
	}

	reply := h.respond(c.Request.Context(), req.Message, req.UserID)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(reply))
}

func (h *Handler) respond(ctx context.Context, message, userID string) ChatResponse {
	reply := h.service.Respond(ctx, message, userID)

	if h.history != nil {
		turn := model.NewChatTurn(userID, message, reply.Text, reply.Intent)
		if err := h.history.Append(ctx, turn); err != nil {
			h.log.Warn("failed to append chat history", "user_id", userID, "error", err.Error())
		}
	}

	resp := ChatResponse{Reply: reply.Text, Intent: reply.Intent}
	if reply.Prediction != nil {
		resp.PredictionID = reply.Prediction.ID.String()
	}
	return resp
}

// ServeWS answers each text frame with one JSON ChatResponse frame. The user
// comes from the user_id query parameter.
func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.log.Warn("websocket upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go h.keepAlive(conn, done)

	userID := c.Query("user_id")
	// The request deadline would end a long-lived connection; each reply
	// gets its own instead.
	base := context.WithoutCancel(c.Request.Context())

	conn.SetReadLimit(maxMessageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Warn("websocket read failed", "error", err.Error())
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongTimeout))

		var out interface{}
		message := strings.TrimSpace(string(data))
		switch {
		case kind != websocket.TextMessage:
			out = handler.NewErrorResponse("only text frames are supported")
		case message == "":
			out = handler.NewErrorResponse("message must not be blank")
		default:
			ctx, cancel := context.WithTimeout(base, wsReplyTimeout)
			out = handler.NewSuccessResponse(h.respond(ctx, message, userID))
			cancel()
		}

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(out); err != nil {
			h.log.Warn("websocket write failed", "error", err.Error())
			return
		}
	}
}

// keepAlive pings the client until done is closed. Each pong pushes the read
// deadline out again, so idle clients stay connected.
func (h *Handler) keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(h.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}

func (h *Handler) ListPredictions(c *gin.Context) {
	if h.predictions == nil {
		_ = c.Error(apperrors.Unavailable("prediction log", nil))
		return
	}

	var page model.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		_ = c.Error(apperrors.BadRequest("invalid pagination", err))
		return
	}

	records, err := h.predictions.ListByUser(c.Request.Context(), c.Param("id"), page.Normalize())
	if err != nil {
		_ = c.Error(apperrors.Internal(err))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(records))
}

func (h *Handler) ListHistory(c *gin.Context) {
	if h.history == nil {
		_ = c.Error(apperrors.Unavailable("chat history", nil))
		return
	}

	var page model.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		_ = c.Error(apperrors.BadRequest("invalid pagination", err))
		return
	}

	turns, err := h.history.ListByUser(c.Request.Context(), c.Param("id"), page.Normalize())
	if err != nil {
		_ = c.Error(apperrors.Internal(err))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(turns))
}

func (h *Handler) DeleteHistory(c *gin.Context) {
	if h.history == nil {
		_ = c.Error(apperrors.Unavailable("chat history", nil))
		return
	}

	deleted, err := h.history.DeleteByUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(apperrors.Internal(err))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"deleted": deleted}))
}

// originChecker allows same-origin requests, requests without an Origin
// header, and the configured origins. "*" allows everything.
func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set[origin]; ok {
			return true
		}
		return origin == "http://"+r.Host || origin == "https://"+r.Host
	}
}
