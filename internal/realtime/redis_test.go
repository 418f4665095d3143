package realtime

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/etutoring/internal/logging"
	"github.com/Skotchmaster/etutoring/internal/models"
)

type instance struct {
	hub *Hub
	url string
}

// newInstance runs a hub on its own Redis connection, as a separate process would.
func newInstance(t *testing.T, mr *miniredis.Miniredis, tokens fakeAuth) *instance {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hub := NewHub(HubConfig{
		Backplane: NewRedisBackplane(client, logging.Discard()),
		Messages:  &fakeMessages{},
		Meetings:  fakeMeetings{},
	})
	require.NoError(t, hub.Start(context.Background()))

	e := echo.New()
	e.GET("/ws", NewHandler(hub, tokens, "*").Serve)
	srv := httptest.NewServer(e)
	t.Cleanup(func() {
		_ = hub.Close()
		srv.Close()
	})
	return &instance{hub: hub, url: "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"}
}

func (i *instance) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(i.url+"?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return i.hub.Connections() > 0 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func TestRedisBackplaneFansOutAcrossHubs(t *testing.T) {
	mr := miniredis.RunT(t)
	alice := &models.User{Base: models.Base{ID: uuid.New()}, FullName: "alice", Role: models.RoleStudent, Active: true}
	bob := &models.User{Base: models.Base{ID: uuid.New()}, FullName: "bob", Role: models.RoleTutor, Active: true}
	tokens := fakeAuth{"tok-alice": alice, "tok-bob": bob}

	a := newInstance(t, mr, tokens)
	b := newInstance(t, mr, tokens)
	aliceConn := a.dial(t, "tok-alice")
	bobConn := b.dial(t, "tok-bob")

	send(t, aliceConn, EventSendMessage, map[string]any{"recipient_id": bob.ID, "content": "across"})

	f := read(t, bobConn)
	assert.Equal(t, EventReceiveMessage, f.Event)
	assert.Contains(t, string(f.Data), "across")
	assert.Equal(t, EventMessageSent, read(t, aliceConn).Event)

	a.hub.PushNotification(bob.ID, &models.Notification{Kind: "new_message", Text: "ping"})
	f = read(t, bobConn)
	assert.Equal(t, EventNotification, f.Event)
	assertSilent(t, aliceConn)
}

func TestRedisBackplaneSkipsUndecodableMessages(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	got := make(chan string, 4)
	b := NewRedisBackplane(client, logging.Discard())
	require.NoError(t, b.Start(context.Background(), func(room string, frame []byte) {
		got <- room + "|" + string(frame)
	}))

	ctx := context.Background()
	require.NoError(t, client.Publish(ctx, RedisChannel, "not json").Err())
	require.NoError(t, b.Publish(ctx, "user:1", []byte(`{"event":"x"}`)))

	select {
	case v := <-got:
		assert.Equal(t, `user:1|{"event":"x"}`, v)
	case <-time.After(2 * time.Second):
		t.Fatal("frame not delivered")
	}

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
}
