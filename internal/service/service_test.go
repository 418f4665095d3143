package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/etutoring/internal/db"
	"github.com/Skotchmaster/etutoring/internal/hash"
	"github.com/Skotchmaster/etutoring/internal/models"
	"github.com/Skotchmaster/etutoring/internal/repo"
	"github.com/Skotchmaster/etutoring/internal/search"
	"github.com/Skotchmaster/etutoring/internal/storage"
)

func init() {
	hash.Cost = bcrypt.MinCost
}

type publishedEvent struct {
	Topic string
	Key   string
	Event map[string]any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Topic: topic, Key: key, Event: event.(map[string]any)})
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Event["type"].(string)
	}
	return out
}

type fakePusher struct {
	mu     sync.Mutex
	pushed map[uuid.UUID][]string
}

func (p *fakePusher) PushNotification(userID uuid.UUID, n *models.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pushed == nil {
		p.pushed = map[uuid.UUID][]string{}
	}
	p.pushed[userID] = append(p.pushed[userID], n.Kind)
}

func (p *fakePusher) kinds(id uuid.UUID) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pushed[id]
}

type testEnv struct {
	repo     *repo.GormRepo
	pub      *fakePublisher
	pusher   *fakePusher
	events   *Events
	notifier *NotificationService

	auth         *AuthService
	users        *UserService
	academics    *AcademicService
	meetings     *MeetingService
	appointments *AppointmentService
	documents    *DocumentService
	blogs        *BlogService
	messages     *MessageService
	store        *storage.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb, err := db.OpenTest()
	require.NoError(t, err)

	r := repo.New(gdb)
	pub := &fakePublisher{}
	pusher := &fakePusher{}
	events := &Events{Pub: pub}
	notifier := &NotificationService{Repo: r, Pusher: pusher}
	idx := search.NewSQLIndex(gdb)
	store := storage.NewMemoryStore()

	return &testEnv{
		repo:     r,
		pub:      pub,
		pusher:   pusher,
		events:   events,
		notifier: notifier,
		auth: &AuthService{
			Repo:          r,
			Events:        events,
			JWTSecret:     []byte("test-jwt-secret"),
			RefreshSecret: []byte("test-refresh-secret"),
			AccessTTL:     time.Hour,
			RefreshTTL:    24 * time.Hour,
		},
		users:        &UserService{Repo: r, Events: events, Notifier: notifier},
		academics:    &AcademicService{Repo: r, Events: events, Index: idx, Notifier: notifier},
		meetings:     &MeetingService{Repo: r, Events: events, Notifier: notifier},
		appointments: &AppointmentService{Repo: r, Events: events, Notifier: notifier},
		documents:    &DocumentService{Repo: r, Store: store, Index: idx, Events: events},
		blogs:        &BlogService{Repo: r, Index: idx, Events: events, Notifier: notifier},
		messages:     &MessageService{Repo: r, Events: events, Notifier: notifier},
		store:        store,
	}
}

func (e *testEnv) user(t *testing.T, name, role string) *models.User {
	t.Helper()
	u, err := e.users.CreateUser(context.Background(), CreateUserInput{
		FullName: name,
		Email:    name + "@uni.edu",
		Password: "Secret123",
		Role:     role,
	})
	require.NoError(t, err)
	return u
}

func (e *testEnv) allocate(t *testing.T, tutor *models.User, students ...*models.User) {
	t.Helper()
	ids := make([]uuid.UUID, len(students))
	for i, s := range students {
		ids[i] = s.ID
	}
	_, err := e.users.Allocate(context.Background(), tutor.ID, ids)
	require.NoError(t, err)
}
