package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/etutoring/internal/metrics"
	"github.com/Skotchmaster/etutoring/internal/middleware/auth"
	"github.com/Skotchmaster/etutoring/internal/models"
	"github.com/Skotchmaster/etutoring/internal/service"
)

type fakeAuth map[string]*models.User

func (f fakeAuth) AuthenticateToken(_ context.Context, raw string) (*models.User, error) {
	if raw == "" {
		return nil, auth.ErrNoToken
	}
	u, ok := f[raw]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return u, nil
}

type fakeMessages struct {
	mu   sync.Mutex
	sent []*models.Message
}

func (f *fakeMessages) SendMessage(_ context.Context, senderID, recipientID uuid.UUID, content string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", service.ErrValidation)
	}
	m := &models.Message{Base: models.Base{ID: uuid.New()}, SenderID: senderID, RecipientID: recipientID, Content: content}
	f.mu.Lock()
	f.sent = append(f.sent, m)
	f.mu.Unlock()
	return m, nil
}

type fakeMeetings map[uuid.UUID][]uuid.UUID

func (f fakeMeetings) CanJoin(_ context.Context, userID uuid.UUID, _ string, meetingID uuid.UUID) (bool, error) {
	members, ok := f[meetingID]
	if !ok {
		return false, service.ErrNotFound
	}
	for _, id := range members {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

type harness struct {
	srv     *httptest.Server
	hub     *Hub
	users   map[string]*models.User
	msgs    *fakeMessages
	metrics *metrics.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	users := map[string]*models.User{}
	for _, name := range []string{"alice", "bob", "carol"} {
		users[name] = &models.User{Base: models.Base{ID: uuid.New()}, FullName: name, Role: models.RoleStudent, Active: true}
	}
	msgs := &fakeMessages{}
	m := metrics.New()
	hub := NewHub(HubConfig{Messages: msgs, Meetings: fakeMeetings{}, Metrics: m})
	require.NoError(t, hub.Start(context.Background()))

	tokens := fakeAuth{}
	for name, u := range users {
		tokens["tok-"+name] = u
	}
	e := echo.New()
	e.GET("/ws", NewHandler(hub, tokens, "*").Serve)
	srv := httptest.NewServer(e)
	t.Cleanup(func() {
		_ = hub.Close()
		srv.Close()
	})
	return &harness{srv: srv, hub: hub, users: users, msgs: msgs, metrics: m}
}

func (h *harness) dial(t *testing.T, name string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/ws?token=tok-" + name
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (h *harness) dialAll(t *testing.T, names ...string) map[string]*websocket.Conn {
	t.Helper()
	conns := map[string]*websocket.Conn{}
	for _, n := range names {
		conns[n] = h.dial(t, n)
	}
	require.Eventually(t, func() bool { return h.hub.Connections() == len(names) }, 2*time.Second, 10*time.Millisecond)
	return conns
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Frame{Event: event, Data: raw}))
}

func read(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func assertSilent(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var f Frame
	err := conn.ReadJSON(&f)
	require.Error(t, err, "unexpected frame %s", f.Event)
	var ne interface{ Timeout() bool }
	require.True(t, errors.As(err, &ne) && ne.Timeout(), "expected timeout, got %v", err)
}

func TestSendMessageReachesOnlyRecipient(t *testing.T) {
	h := newHarness(t)
	conns := h.dialAll(t, "alice", "bob", "carol")
	bob := h.users["bob"]

	send(t, conns["alice"], EventSendMessage, map[string]any{"recipient_id": bob.ID, "content": "hi bob"})

	got := read(t, conns["bob"])
	assert.Equal(t, EventReceiveMessage, got.Event)
	var m models.Message
	require.NoError(t, json.Unmarshal(got.Data, &m))
	assert.Equal(t, "hi bob", m.Content)
	assert.Equal(t, h.users["alice"].ID, m.SenderID)

	ack := read(t, conns["alice"])
	assert.Equal(t, EventMessageSent, ack.Event)

	assertSilent(t, conns["bob"])
	assertSilent(t, conns["carol"])
	assert.Len(t, h.msgs.sent, 1)
}

func TestErrorsGoToSenderOnly(t *testing.T) {
	h := newHarness(t)
	conns := h.dialAll(t, "alice", "bob")

	send(t, conns["alice"], EventSendMessage, map[string]any{"recipient_id": h.users["bob"].ID, "content": "  "})
	f := read(t, conns["alice"])
	assert.Equal(t, EventError, f.Event)

	require.NoError(t, conns["alice"].WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, EventError, read(t, conns["alice"]).Event)

	send(t, conns["alice"], "dance", map[string]any{})
	f = read(t, conns["alice"])
	assert.Equal(t, EventError, f.Event)
	assert.Contains(t, string(f.Data), "unknown event")

	assertSilent(t, conns["bob"])
}

func TestMeetingRoomsAndTyping(t *testing.T) {
	meetingID := uuid.New()
	h := newHarness(t)
	h.hub.meetings = fakeMeetings{meetingID: {h.users["alice"].ID, h.users["bob"].ID}}
	conns := h.dialAll(t, "alice", "bob", "carol")

	send(t, conns["carol"], EventJoinMeeting, map[string]any{"meeting_id": meetingID})
	assert.Equal(t, EventError, read(t, conns["carol"]).Event)

	send(t, conns["alice"], EventJoinMeeting, map[string]any{"meeting_id": meetingID})
	assert.Equal(t, EventUserJoined, read(t, conns["alice"]).Event)

	send(t, conns["bob"], EventJoinMeeting, map[string]any{"meeting_id": meetingID})
	assert.Equal(t, EventUserJoined, read(t, conns["alice"]).Event)
	assert.Equal(t, EventUserJoined, read(t, conns["bob"]).Event)

	send(t, conns["bob"], EventLeaveMeeting, map[string]any{"meeting_id": meetingID})
	assert.Equal(t, EventUserLeft, read(t, conns["alice"]).Event)
	assert.Equal(t, EventUserLeft, read(t, conns["bob"]).Event)

	send(t, conns["alice"], EventTyping, map[string]any{"recipient_id": h.users["carol"].ID})
	f := read(t, conns["carol"])
	assert.Equal(t, EventUserTyping, f.Event)
	assert.Contains(t, string(f.Data), h.users["alice"].ID.String())

	assertSilent(t, conns["bob"])
}

func TestLeaveMeetingRequiresMembership(t *testing.T) {
	meetingID := uuid.New()
	h := newHarness(t)
	h.hub.meetings = fakeMeetings{meetingID: {h.users["alice"].ID}}
	conns := h.dialAll(t, "alice", "carol")

	send(t, conns["alice"], EventJoinMeeting, map[string]any{"meeting_id": meetingID})
	assert.Equal(t, EventUserJoined, read(t, conns["alice"]).Event)

	send(t, conns["carol"], EventLeaveMeeting, map[string]any{"meeting_id": meetingID})
	f := read(t, conns["carol"])
	assert.Equal(t, EventError, f.Event)
	assert.Contains(t, string(f.Data), "not in meeting")

	assertSilent(t, conns["alice"])
}

func TestMalformedTypingSendsOneError(t *testing.T) {
	h := newHarness(t)
	conns := h.dialAll(t, "alice")

	require.NoError(t, conns["alice"].WriteMessage(websocket.TextMessage, []byte(`{"event":"typing","data":"oops"}`)))
	f := read(t, conns["alice"])
	assert.Equal(t, EventError, f.Event)
	assert.Contains(t, string(f.Data), "malformed payload")
	assertSilent(t, conns["alice"])

	send(t, conns["alice"], EventTyping, map[string]any{})
	f = read(t, conns["alice"])
	assert.Contains(t, string(f.Data), "recipient_id is required")
	assertSilent(t, conns["alice"])
}

func TestUnknownEventNamesShareOneSeries(t *testing.T) {
	h := newHarness(t)
	conns := h.dialAll(t, "alice")

	for i := 0; i < 20; i++ {
		send(t, conns["alice"], fmt.Sprintf("junk_%d", i), map[string]any{})
		assert.Equal(t, EventError, read(t, conns["alice"]).Event)
	}
	send(t, conns["alice"], EventTyping, map[string]any{"recipient_id": h.users["bob"].ID})

	require.Eventually(t, func() bool {
		n, err := testutil.GatherAndCount(h.metrics.Registry(), "etutoring_ws_events_total")
		return err == nil && n == 2
	}, time.Second, 10*time.Millisecond)
}

func TestDisconnectBroadcastsOffline(t *testing.T) {
	h := newHarness(t)
	conns := h.dialAll(t, "alice", "carol")

	require.NoError(t, conns["carol"].Close())
	f := read(t, conns["alice"])
	assert.Equal(t, EventUserOffline, f.Event)
	assert.Contains(t, string(f.Data), h.users["carol"].ID.String())
	assert.Eventually(t, func() bool { return !h.hub.Online(h.users["carol"].ID) }, time.Second, 10*time.Millisecond)
}

func TestPushNotification(t *testing.T) {
	h := newHarness(t)
	conns := h.dialAll(t, "alice", "bob")

	h.hub.PushNotification(h.users["bob"].ID, &models.Notification{Kind: "new_message", Text: "ping"})
	f := read(t, conns["bob"])
	assert.Equal(t, EventNotification, f.Event)
	assert.Contains(t, string(f.Data), "ping")
	assertSilent(t, conns["alice"])
}

func TestUpgradeRequiresToken(t *testing.T) {
	h := newHarness(t)
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/ws"

	for _, suffix := range []string{"", "?token=bogus"} {
		_, resp, err := websocket.DefaultDialer.Dial(url+suffix, nil)
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		_ = resp.Body.Close()
	}
	assert.Zero(t, h.hub.Connections())
}

func TestSlowClientIsDropped(t *testing.T) {
	upgraded := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
		if err == nil {
			upgraded <- conn
		}
	}))
	defer srv.Close()

	peer, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer peer.Close()

	c := newClient(NewHub(HubConfig{}), <-upgraded, &models.User{Base: models.Base{ID: uuid.New()}})
	for i := 0; i < sendBuffer; i++ {
		c.enqueue([]byte("x"))
	}
	select {
	case <-c.done:
		t.Fatal("client closed before its buffer filled")
	default:
	}

	c.enqueue([]byte("overflow"))
	select {
	case <-c.done:
	case <-time.After(time.Second):
		t.Fatal("slow client was not dropped")
	}
}
