package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublisherDisabledWithoutBrokers(t *testing.T) {
	p := NewPublisher(nil, "storefront.cart")
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Publish(context.Background(), "c1", map[string]string{"a": "b"}))
	assert.NoError(t, p.Close())
}

func TestPublisherWritesKeyedJSON(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w}

	require.NoError(t, p.Publish(context.Background(), "cart-1", Invalidation{Type: "cache.invalidated", Tag: "products", Keys: 2}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "cart-1", string(w.msgs[0].Key))

	var got Invalidation
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, "products", got.Tag)
	assert.Equal(t, 2, got.Keys)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublisherReturnsWriteError(t *testing.T) {
	p := &Publisher{writer: &fakeWriter{err: errors.New("broker down")}}
	assert.Error(t, p.Publish(context.Background(), "k", struct{}{}))
}
