package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

const (
	EventSendMessage  = "send_message"
	EventJoinMeeting  = "join_meeting"
	EventLeaveMeeting = "leave_meeting"
	EventTyping       = "typing"

	EventReceiveMessage = "receive_message"
	EventMessageSent    = "message_sent"
	EventUserJoined     = "user_joined"
	EventUserLeft       = "user_left"
	EventUserTyping     = "user_typing"
	EventUserOffline    = "user_offline"
	EventNotification   = "notification"
	EventError          = "error"
)

// broadcastRoom addresses every connected client.
const broadcastRoom = "*"

// Frame is the envelope of every socket message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func encodeFrame(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}

func UserRoom(id uuid.UUID) string    { return "user:" + id.String() }
func MeetingRoom(id uuid.UUID) string { return "meeting:" + id.String() }

type sendMessagePayload struct {
	RecipientID uuid.UUID `json:"recipient_id"`
	Content     string    `json:"content"`
}

type meetingPayload struct {
	MeetingID uuid.UUID `json:"meeting_id"`
}

type typingPayload struct {
	RecipientID uuid.UUID `json:"recipient_id"`
}

type errorPayload struct {
	Message string `json:"message"`
}
