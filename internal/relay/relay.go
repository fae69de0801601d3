package relay

import (
	"context"
	"strings"
	"sync"

	"marketplace-chat/internal/domain/message"
	chat_errors "marketplace-chat/pkg/errors"
	"marketplace-chat/pkg/logger"
)

// Connection is the narrow capability the relay needs from one live duplex
// session. The transport layer owns the connection lifecycle; the relay only
// holds a reference and pushes events through it.
type Connection interface {
	ID() string
	Push(event string, payload any) error
}

// Envelope is the wire payload a client sends to request a relay.
type Envelope struct {
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}

// MessageStore is the persistence collaborator. CreateMessage assigns the
// message id and sent-at timestamp and must not return until the row is
// durable.
type MessageStore interface {
	CreateMessage(ctx context.Context, env Envelope) (message.Message, error)
}

// PresenceTracker mirrors directory membership into shared state (Redis)
// so that HTTP endpoints and other instances can answer "who is online".
// Both calls are best-effort from the relay's point of view.
type PresenceTracker interface {
	SetOnline(ctx context.Context, userID string) error
	SetOffline(ctx context.Context, userID string) error
}

// EventReceiveMessage is the event name pushed to the recipient's
// connection when a message is relayed to it.
const EventReceiveMessage = "receive_message"

// ChatRelay routes point-to-point chat messages between live connections.
// Every message is persisted before any delivery is attempted; the live
// push is best-effort and a miss (recipient offline, connection gone) is
// never surfaced to the sender. History queries against the store are the
// durable fallback.
type ChatRelay struct {
	directory *ConnectionDirectory
	store     MessageStore
	presence  PresenceTracker // may be nil
	log       *logger.Logger

	mu    sync.RWMutex
	conns map[string]Connection // connectionID -> handle
}

func NewChatRelay(store MessageStore, presence PresenceTracker, log *logger.Logger) *ChatRelay {
	return &ChatRelay{
		directory: NewConnectionDirectory(),
		store:     store,
		presence:  presence,
		log:       log,
		conns:     make(map[string]Connection),
	}
}

// OnConnect records a newly opened connection. The connection stays
// unattributed to any user until it registers.
func (r *ChatRelay) OnConnect(conn Connection) {
	r.mu.Lock()
	r.conns[conn.ID()] = conn
	r.mu.Unlock()
	r.log.Infof("client connected: %s", conn.ID())
}

// OnRegister binds a user id to a connection. Re-registering the same pair
// is a no-op in effect; registering a different user id on the same
// connection is identity reassignment and simply overwrites. An empty user
// id is rejected and logged; the connection stays open and unregistered.
func (r *ChatRelay) OnRegister(ctx context.Context, connID, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		r.log.Warnf("register rejected, empty user id on connection %s", connID)
		return chat_errors.ErrInvalidInput
	}

	r.directory.Register(userID, connID)
	r.log.Infof("user %s registered on connection %s (%d online)", userID, connID, r.directory.Len())

	if r.presence != nil {
		if err := r.presence.SetOnline(ctx, userID); err != nil {
			r.log.Warnf("presence update failed for %s: %v", userID, err)
		}
	}
	return nil
}

// OnDisconnect drops the connection handle and prunes the directory entry
// owning it, if one exists. Safe to call for connections that never
// registered.
func (r *ChatRelay) OnDisconnect(ctx context.Context, connID string) {
	r.mu.Lock()
	delete(r.conns, connID)
	r.mu.Unlock()

	userID, registered := r.directory.RemoveByConnection(connID)
	r.log.Infof("client disconnected: %s", connID)

	if registered && r.presence != nil {
		if err := r.presence.SetOffline(ctx, userID); err != nil {
			r.log.Warnf("presence update failed for %s: %v", userID, err)
		}
	}
}

// OnSendMessage persists the message, then forwards it to the receiver's
// live connection when one is registered. The persisted message is returned
// to the sender regardless of delivery outcome. If persistence fails the
// error is returned and no delivery is attempted.
func (r *ChatRelay) OnSendMessage(ctx context.Context, env Envelope) (message.Message, error) {
	msg, err := r.store.CreateMessage(ctx, env)
	if err != nil {
		return message.Message{}, err
	}

	connID, ok := r.directory.Lookup(env.ReceiverID)
	if !ok {
		// Receiver offline; the message is stored and will show up in the
		// next history fetch.
		return msg, nil
	}

	r.mu.RLock()
	conn := r.conns[connID]
	r.mu.RUnlock()
	if conn == nil {
		return msg, nil
	}

	if err := conn.Push(EventReceiveMessage, msg); err != nil {
		// Best-effort delivery: not retried, not surfaced.
		r.log.Warnf("push to %s failed: %v", env.ReceiverID, err)
	}
	return msg, nil
}

// Online reports whether a user currently has a registered connection.
func (r *ChatRelay) Online(userID string) bool {
	_, ok := r.directory.Lookup(userID)
	return ok
}
