package mykafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducerWithoutBrokersIsNoop(t *testing.T) {
	p := NewProducer(nil)
	assert.False(t, p.Enabled())
	require.NoError(t, p.PublishEvent(context.Background(), TopicUserEvents, "k", map[string]string{"type": "user_logged_in"}))
	require.NoError(t, p.Close())
}

func TestNilProducerIsNoop(t *testing.T) {
	var p *Producer
	require.NoError(t, p.PublishEvent(context.Background(), TopicMessageEvents, "k", nil))
	require.NoError(t, p.Close())
}

func TestProducerWithBrokersIsEnabled(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"})
	assert.True(t, p.Enabled())
	assert.Equal(t, "localhost:9092", p.writer.Addr.String())
	require.NoError(t, p.Close())
}
