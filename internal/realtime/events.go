// Package realtime delivers domain events to live websocket connections.
// Connections are bound to authenticated user identities, grouped into named
// rooms, and events fan out to every connection in a group. Delivery is best
// effort: the committed database state is the source of truth and clients
// recover missed events with a pull query.
package realtime

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event names pushed to clients.
const (
	EventStatusChanged = "status-changed"
	EventChatMessage   = "chat-message"
	EventMessagesRead  = "messages-read"
	EventUserTyping    = "user-typing"
)

// UserGroup is the personal group every connection of a user joins on bind.
func UserGroup(userID uuid.UUID) string {
	return "user:" + userID.String()
}

// DoctorGroup receives appointment events for one doctor's schedule.
func DoctorGroup(doctorID uuid.UUID) string {
	return "doctor:" + doctorID.String()
}

// RoomKey is the conversation group for two users. Ids are ordered
// lexicographically before joining, so both participants derive the same key
// regardless of argument order.
func RoomKey(a, b uuid.UUID) string {
	lo, hi := a.String(), b.String()
	if strings.Compare(lo, hi) > 0 {
		lo, hi = hi, lo
	}
	return "chat:" + lo + ":" + hi
}

type StatusChangedPayload struct {
	AppointmentID uuid.UUID `json:"appointmentId"`
	DoctorID      uuid.UUID `json:"doctorId"`
	PatientID     uuid.UUID `json:"patientId"`
	Status        string    `json:"status"`
}

type ChatMessagePayload struct {
	SenderID   uuid.UUID `json:"senderId"`
	ReceiverID uuid.UUID `json:"receiverId"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

type MessagesReadPayload struct {
	ReadBy uuid.UUID `json:"readBy"`
}

type UserTypingPayload struct {
	UserID uuid.UUID `json:"userId"`
}

// Envelope is the wire shape of every pushed event.
type Envelope struct {
	Event     string    `json:"event"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}
