package realtime

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/healthflow/healthflow-api/internal/domain"
)

// ChatNotifier handles the chat operations a client can invoke over a live
// connection. Implemented by service.ChatService.
type ChatNotifier interface {
	MarkAsRead(ctx context.Context, readerID, senderID uuid.UUID)
	SendTyping(ctx context.Context, typistID, receiverID uuid.UUID)
}

// clientMessage is an inbound operation from a websocket client.
type clientMessage struct {
	Action   string    `json:"action"`
	UserID   uuid.UUID `json:"userId,omitempty"`   // other participant for room/chat ops
	DoctorID uuid.UUID `json:"doctorId,omitempty"` // target for doctor feed ops
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Origin is enforced by the gateway in front of this service.
	},
}

// ClaimsFunc extracts the authenticated identity placed on the request by
// the auth middleware.
type ClaimsFunc func(c *gin.Context) (*domain.Claims, bool)

// WSHandler upgrades HTTP requests to websocket connections and wires them
// into the hub.
type WSHandler struct {
	hub    *Hub
	chat   ChatNotifier
	claims ClaimsFunc
	log    *zap.Logger
}

func NewWSHandler(hub *Hub, chat ChatNotifier, claims ClaimsFunc, log *zap.Logger) *WSHandler {
	return &WSHandler{hub: hub, chat: chat, claims: claims, log: log}
}

// Handle upgrades the connection, binds it to the caller's identity, and
// starts the read/write pumps.
func (h *WSHandler) Handle(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	connID := uuid.New().String()
	h.hub.Bind(connID, claims.UserID)

	send, _ := h.hub.sendChan(connID)
	go h.writePump(ws, send)
	go h.readPump(ws, connID, claims.UserID)
}

// readPump consumes inbound operations until the connection drops, then
// unbinds so no stale group membership survives an abnormal disconnect.
func (h *WSHandler) readPump(ws *websocket.Conn, connID string, userID uuid.UUID) {
	defer func() {
		h.hub.Unbind(connID)
		ws.Close()
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue // Ignore malformed messages.
		}

		h.dispatch(connID, userID, msg)
	}
}

func (h *WSHandler) dispatch(connID string, userID uuid.UUID, msg clientMessage) {
	switch msg.Action {
	case "join-room":
		h.hub.JoinGroup(connID, RoomKey(userID, msg.UserID))
	case "leave-room":
		h.hub.LeaveGroup(connID, RoomKey(userID, msg.UserID))
	case "join-doctor":
		h.hub.JoinGroup(connID, DoctorGroup(msg.DoctorID))
	case "leave-doctor":
		h.hub.LeaveGroup(connID, DoctorGroup(msg.DoctorID))
	case "mark-read":
		h.chat.MarkAsRead(context.Background(), userID, msg.UserID)
	case "typing":
		h.chat.SendTyping(context.Background(), userID, msg.UserID)
	}
}

func (h *WSHandler) writePump(ws *websocket.Conn, send <-chan []byte) {
	defer ws.Close()

	for message := range send {
		if err := ws.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}
