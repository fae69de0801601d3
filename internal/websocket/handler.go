package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"marketplace-chat/internal/relay"
	"marketplace-chat/internal/services"
	"marketplace-chat/internal/transport/httpdto"
	chat_errors "marketplace-chat/pkg/errors"
	"marketplace-chat/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades authenticated HTTP requests to websocket connections and
// drives the relay with the connection's event stream.
type Handler struct {
	auth  *services.AuthService
	relay *relay.ChatRelay
	log   *logger.Logger
}

func NewHandler(auth *services.AuthService, chatRelay *relay.ChatRelay, log *logger.Logger) *Handler {
	return &Handler{auth: auth, relay: chatRelay, log: log}
}

// Connect handles GET /ws. The token comes from the `token` query parameter
// or the Authorization header; the resolved user id becomes the
// connection's authenticated identity.
func (h *Handler) Connect(c *gin.Context) {
	token := h.extractToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("missing token", "UNAUTHORIZED"))
		return
	}

	claims, err := h.auth.ParseAccessToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("invalid token", "UNAUTHORIZED"))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Errorf("websocket upgrade failed: %v", err)
		return
	}

	client := NewClient(conn, strings.TrimSpace(claims.UserID))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.relay.OnConnect(client)
	go client.WriteLoop(ctx)

	h.readLoop(ctx, client)

	h.relay.OnDisconnect(context.Background(), client.ID())
}

// readLoop processes inbound events until the connection closes. Events on
// one connection are handled strictly in order, which gives each sender's
// messages their send ordering.
func (h *Handler) readLoop(ctx context.Context, client *Client) {
	conn := client.conn
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warnf("websocket closed unexpectedly: %v", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if err := h.handleEvent(ctx, client, raw); err != nil {
			h.log.Warnf("websocket event failed for %s: %v", client.userID, err)
		}
	}
}

func (h *Handler) handleEvent(ctx context.Context, client *Client, raw []byte) error {
	var ev ClientEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return err
	}

	switch ev.Event {
	case EventRegister:
		return h.handleRegister(ctx, client, ev.Data)
	case EventSendMessage:
		return h.handleSendMessage(ctx, client, ev.Data)
	default:
		h.log.Warnf("unknown websocket event %q from %s", ev.Event, client.userID)
		return nil
	}
}

func (h *Handler) handleRegister(ctx context.Context, client *Client, data json.RawMessage) error {
	var p RegisterPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	// The relay trusts its caller, so the identity cross-check happens
	// here: a client may only register as the user its token names.
	if p.UserID != client.userID {
		_ = client.Push(EventError, ErrorPayload{Message: "user id does not match session", Code: "FORBIDDEN"})
		return chat_errors.ErrForbidden
	}

	return h.relay.OnRegister(ctx, client.ID(), p.UserID)
}

func (h *Handler) handleSendMessage(ctx context.Context, client *Client, data json.RawMessage) error {
	var p SendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	// Same trust boundary as register: the sender is always the
	// authenticated user, whatever the payload claims.
	env := relay.Envelope{
		SenderID:   client.userID,
		ReceiverID: p.ReceiverID,
		Content:    p.Content,
	}

	msg, err := h.relay.OnSendMessage(ctx, env)
	if err != nil {
		_ = client.Push(EventError, ErrorPayload{Message: err.Error(), Code: errorCode(err)})
		return err
	}

	// Echo the persisted message back so the sender can render it with its
	// durable id and timestamp.
	return client.Push(EventMessageSent, msg)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, chat_errors.ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, chat_errors.ErrNotFound):
		return "UNKNOWN_RECEIVER"
	default:
		return "PERSISTENCE_FAILED"
	}
}

func (h *Handler) extractToken(c *gin.Context) string {
	token := c.Query("token")
	if token != "" {
		return token
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}

	return ""
}
