package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/etutoring/internal/logging"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "docs/a.pdf", strings.NewReader("hello"), 5, "application/pdf"))
	obj, err := s.Get(ctx, "docs/a.pdf")
	require.NoError(t, err)
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, int64(5), obj.Size)
	assert.Equal(t, "application/pdf", obj.ContentType)

	require.NoError(t, s.Remove(ctx, "docs/a.pdf"))
	_, err = s.Get(ctx, "docs/a.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.Equal(t, 0, s.Len())
}

func TestNewMinioStore(t *testing.T) {
	s, err := NewMinioStore(MinioConfig{Endpoint: "localhost:9000", AccessKey: "k", SecretKey: "s", Bucket: "documents"}, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, "documents", s.bucket)
}
