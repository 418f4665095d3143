package realtime

import (
	"context"
	"sync"
)

// DeliverFunc hands a frame to the local members of room.
type DeliverFunc func(room string, frame []byte)

// Backplane fans room frames out to every hub instance, including the publisher.
type Backplane interface {
	Publish(ctx context.Context, room string, frame []byte) error
	Start(ctx context.Context, deliver DeliverFunc) error
	Close() error
}

// LocalBackplane delivers in-process. It serves single-instance deployments and tests.
type LocalBackplane struct {
	mu      sync.RWMutex
	deliver DeliverFunc
}

func NewLocalBackplane() *LocalBackplane {
	return &LocalBackplane{}
}

func (b *LocalBackplane) Start(_ context.Context, deliver DeliverFunc) error {
	b.mu.Lock()
	b.deliver = deliver
	b.mu.Unlock()
	return nil
}

func (b *LocalBackplane) Publish(_ context.Context, room string, frame []byte) error {
	b.mu.RLock()
	deliver := b.deliver
	b.mu.RUnlock()
	if deliver != nil {
		deliver(room, frame)
	}
	return nil
}

func (b *LocalBackplane) Close() error { return nil }
