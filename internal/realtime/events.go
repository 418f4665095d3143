package realtime

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/Skotchmaster/etutoring/internal/logging"
	"github.com/Skotchmaster/etutoring/internal/service"
)

// unknownEvent labels frames with an unrecognised event name in metrics.
const unknownEvent = "unknown"

func (c *Client) handle(ctx context.Context, raw []byte) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil || f.Event == "" {
		c.hub.metrics.SocketEvent(unknownEvent)
		c.sendError("malformed frame")
		return
	}

	switch f.Event {
	case EventSendMessage:
		c.hub.metrics.SocketEvent(f.Event)
		var p sendMessagePayload
		if !c.decode(f.Data, &p) {
			return
		}
		c.onSendMessage(ctx, p)
	case EventJoinMeeting:
		c.hub.metrics.SocketEvent(f.Event)
		var p meetingPayload
		if !c.decode(f.Data, &p) {
			return
		}
		c.onJoinMeeting(ctx, p.MeetingID)
	case EventLeaveMeeting:
		c.hub.metrics.SocketEvent(f.Event)
		var p meetingPayload
		if !c.decode(f.Data, &p) {
			return
		}
		c.onLeaveMeeting(ctx, p.MeetingID)
	case EventTyping:
		c.hub.metrics.SocketEvent(f.Event)
		var p typingPayload
		if !c.decode(f.Data, &p) {
			return
		}
		if p.RecipientID == uuid.Nil {
			c.sendError("recipient_id is required")
			return
		}
		c.hub.SendToUser(ctx, p.RecipientID, EventUserTyping, map[string]any{"user_id": c.user.ID})
	default:
		c.hub.metrics.SocketEvent(unknownEvent)
		c.sendError("unknown event: " + f.Event)
	}
}

func (c *Client) decode(data json.RawMessage, v any) bool {
	if len(data) == 0 || json.Unmarshal(data, v) != nil {
		c.sendError("malformed payload")
		return false
	}
	return true
}

func (c *Client) onSendMessage(ctx context.Context, p sendMessagePayload) {
	if c.hub.messages == nil {
		c.sendError("messaging unavailable")
		return
	}
	m, err := c.hub.messages.SendMessage(ctx, c.user.ID, p.RecipientID, p.Content)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrNotFound):
			c.sendError(err.Error())
		default:
			logging.FromContext(ctx).Error("ws_send_message_error", "user_id", c.user.ID, "error", err)
			c.sendError("failed to send message")
		}
		return
	}

	c.hub.RelayMessage(ctx, m)
	frame, err := encodeFrame(EventMessageSent, m)
	if err == nil {
		c.enqueue(frame)
	}
}

func (c *Client) onJoinMeeting(ctx context.Context, meetingID uuid.UUID) {
	if c.hub.meetings == nil {
		c.sendError("meetings unavailable")
		return
	}
	ok, err := c.hub.meetings.CanJoin(ctx, c.user.ID, c.user.Role, meetingID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.sendError("meeting not found")
			return
		}
		logging.FromContext(ctx).Error("ws_join_meeting_error", "meeting_id", meetingID, "error", err)
		c.sendError("failed to join meeting")
		return
	}
	if !ok {
		c.sendError("not a meeting participant")
		return
	}

	room := MeetingRoom(meetingID)
	c.hub.join(c, room)
	c.hub.publish(ctx, room, EventUserJoined, map[string]any{"meeting_id": meetingID, "user_id": c.user.ID})
}

func (c *Client) onLeaveMeeting(ctx context.Context, meetingID uuid.UUID) {
	room := MeetingRoom(meetingID)
	if !c.hub.inRoom(c, room) {
		c.sendError("not in meeting")
		return
	}
	c.hub.publish(ctx, room, EventUserLeft, map[string]any{"meeting_id": meetingID, "user_id": c.user.ID})
	c.hub.leave(c, room)
}
