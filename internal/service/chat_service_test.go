package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/healthflow/healthflow-api/internal/realtime"
)

func TestSendMessage(t *testing.T) {
	events := &recorderPublisher{}
	svc := NewChatService(events, zap.NewNop())

	sender, receiver := uuid.New(), uuid.New()

	msg, err := svc.SendMessage(context.Background(), sender, receiver, "hello")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if msg.SenderID != sender || msg.ReceiverID != receiver || msg.Content != "hello" {
		t.Errorf("payload = %+v", msg)
	}

	// Delivered to the conversation room and both personal groups.
	for _, group := range []string{
		realtime.RoomKey(sender, receiver),
		realtime.UserGroup(sender),
		realtime.UserGroup(receiver),
	} {
		got := events.byGroup(group)
		if len(got) != 1 || got[0].Event != realtime.EventChatMessage {
			t.Errorf("group %s events = %+v, want one chat-message", group, got)
		}
	}
}

func TestSendMessageValidation(t *testing.T) {
	svc := NewChatService(&recorderPublisher{}, zap.NewNop())
	self := uuid.New()

	tests := []struct {
		name             string
		sender, receiver uuid.UUID
		content          string
	}{
		{"empty content", uuid.New(), uuid.New(), ""},
		{"self send", self, self, "hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SendMessage(context.Background(), tt.sender, tt.receiver, tt.content)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestMarkAsRead(t *testing.T) {
	events := &recorderPublisher{}
	svc := NewChatService(events, zap.NewNop())

	reader, sender := uuid.New(), uuid.New()
	svc.MarkAsRead(context.Background(), reader, sender)

	room := events.byGroup(realtime.RoomKey(reader, sender))
	if len(room) != 1 || room[0].Event != realtime.EventMessagesRead {
		t.Errorf("room events = %+v, want one messages-read", room)
	}
	personal := events.byGroup(realtime.UserGroup(sender))
	if len(personal) != 1 {
		t.Errorf("sender group events = %+v, want one", personal)
	}
	payload, ok := room[0].Payload.(realtime.MessagesReadPayload)
	if !ok || payload.ReadBy != reader {
		t.Errorf("payload = %+v, want ReadBy %v", room[0].Payload, reader)
	}
}

func TestSendTyping(t *testing.T) {
	events := &recorderPublisher{}
	svc := NewChatService(events, zap.NewNop())

	typist, receiver := uuid.New(), uuid.New()
	svc.SendTyping(context.Background(), typist, receiver)

	room := events.byGroup(realtime.RoomKey(typist, receiver))
	if len(room) != 1 || room[0].Event != realtime.EventUserTyping {
		t.Fatalf("room events = %+v, want one user-typing", room)
	}
	// Typing is ephemeral: it goes to the open conversation only, never to
	// personal groups.
	if got := events.byGroup(realtime.UserGroup(receiver)); len(got) != 0 {
		t.Errorf("receiver personal group got %+v, want none", got)
	}
}
