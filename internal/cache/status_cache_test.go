package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

type memoryCache struct {
	data map[string][]byte
	err  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if m.err != nil {
		return m.err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	if m.err != nil {
		return m.err
	}
	raw, ok := m.data[key]
	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Delete(_ context.Context, key string) error {
	if m.err != nil {
		return m.err
	}
	delete(m.data, key)
	return nil
}

func (m *memoryCache) DeletePattern(context.Context, string) error {
	return m.err
}

func TestStatusCache(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("round trip", func(t *testing.T) {
		mem := newMemoryCache()
		c := NewStatusCache(mem, time.Minute, logger)

		c.Set(ctx, &models.SessionStatus{InterviewID: 9, Active: true, FrameCount: 4, RiskLevel: models.RiskLow})
		assert.Contains(t, mem.data, "proctoring:status:9")

		got, ok := c.Get(ctx, 9)
		require.True(t, ok)
		assert.Equal(t, 4, got.FrameCount)
		assert.True(t, got.Active)

		c.Delete(ctx, 9)
		_, ok = c.Get(ctx, 9)
		assert.False(t, ok)
	})

	t.Run("errors are swallowed", func(t *testing.T) {
		mem := newMemoryCache()
		mem.err = errors.New("connection refused")
		c := NewStatusCache(mem, time.Minute, logger)

		c.Set(ctx, &models.SessionStatus{InterviewID: 1})
		_, ok := c.Get(ctx, 1)
		assert.False(t, ok)
		c.Delete(ctx, 1)
	})

	t.Run("nil backend is a no-op", func(t *testing.T) {
		c := NewStatusCache(nil, time.Minute, logger)
		c.Set(ctx, &models.SessionStatus{InterviewID: 1})
		_, ok := c.Get(ctx, 1)
		assert.False(t, ok)

		var none *StatusCache
		none.Delete(ctx, 1)
	})
}
