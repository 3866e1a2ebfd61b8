package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/healthflow/healthflow-api/internal/realtime"
)

// ChatService handles real-time chat delivery between two users. Message
// history persistence lives elsewhere; this layer only routes live events:
// each event goes to the deterministic conversation room plus the
// participants' personal groups so other devices update their badges.
type ChatService struct {
	events realtime.Publisher
	log    *zap.Logger
}

func NewChatService(events realtime.Publisher, log *zap.Logger) *ChatService {
	return &ChatService{events: events, log: log}
}

// SendMessage pushes a chat message to the conversation room and to both
// participants' personal groups.
func (s *ChatService) SendMessage(ctx context.Context, senderID, receiverID uuid.UUID, content string) (*realtime.ChatMessagePayload, error) {
	if content == "" {
		return nil, validationError("content must not be empty")
	}
	if senderID == receiverID {
		return nil, validationError("cannot send a message to yourself")
	}

	payload := realtime.ChatMessagePayload{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}

	room := realtime.RoomKey(senderID, receiverID)
	s.events.Publish(room, realtime.EventChatMessage, payload)
	s.events.Publish(realtime.UserGroup(senderID), realtime.EventChatMessage, payload)
	s.events.Publish(realtime.UserGroup(receiverID), realtime.EventChatMessage, payload)

	return &payload, nil
}

// MarkAsRead tells the conversation and the original sender that the reader
// has caught up.
func (s *ChatService) MarkAsRead(ctx context.Context, readerID, senderID uuid.UUID) {
	payload := realtime.MessagesReadPayload{ReadBy: readerID}

	s.events.Publish(realtime.RoomKey(readerID, senderID), realtime.EventMessagesRead, payload)
	s.events.Publish(realtime.UserGroup(senderID), realtime.EventMessagesRead, payload)
}

// SendTyping notifies the conversation that the typist is composing.
func (s *ChatService) SendTyping(ctx context.Context, typistID, receiverID uuid.UUID) {
	s.events.Publish(
		realtime.RoomKey(typistID, receiverID),
		realtime.EventUserTyping,
		realtime.UserTypingPayload{UserID: typistID},
	)
}
