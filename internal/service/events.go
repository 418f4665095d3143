package service

import (
	"context"
	"time"

	"github.com/Skotchmaster/etutoring/internal/logging"
	"github.com/Skotchmaster/etutoring/internal/search"
)

const publishTimeout = 5 * time.Second

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type PublishRecorder interface {
	EventPublished(topic string, err error)
}

// Events publishes domain events. Failures are logged and swallowed.
type Events struct {
	Pub     Publisher
	Metrics PublishRecorder
}

func (e *Events) Publish(ctx context.Context, topic, key, typ string, payload map[string]any) {
	if e == nil || e.Pub == nil {
		return
	}
	event := map[string]any{"type": typ, "at": time.Now().UTC()}
	for k, v := range payload {
		event[k] = v
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	err := e.Pub.PublishEvent(pubCtx, topic, key, event)
	if e.Metrics != nil {
		e.Metrics.EventPublished(topic, err)
	}
	if err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "topic", topic, "type", typ, "error", err)
	}
}

func indexDoc(ctx context.Context, idx search.Index, doc search.Doc) {
	if idx == nil {
		return
	}
	if err := idx.Upsert(ctx, doc); err != nil {
		logging.FromContext(ctx).Warn("search_index_failed", "kind", doc.Kind, "id", doc.ID, "error", err)
	}
}

func unindexDoc(ctx context.Context, idx search.Index, id string) {
	if idx == nil {
		return
	}
	if err := idx.Remove(ctx, id); err != nil {
		logging.FromContext(ctx).Warn("search_unindex_failed", "id", id, "error", err)
	}
}
