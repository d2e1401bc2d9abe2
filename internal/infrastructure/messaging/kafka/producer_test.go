package kafka

import (
	"context"
	"testing"

	segkafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseworks/appeal-engine/internal/infrastructure/monitoring/logging"
	"github.com/caseworks/appeal-engine/pkg/errors"
	"github.com/caseworks/appeal-engine/pkg/types/common"
)

type fakeWriter struct {
	messages []segkafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...segkafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublish(t *testing.T) {
	w := &fakeWriter{}
	p := newProducerWithWriter(w, logging.NewNopLogger())

	err := p.Publish(context.Background(), &common.ProducerMessage{
		Topic:   TopicCaseBroadcast,
		Key:     []byte("case-1"),
		Value:   []byte(`{"change_kind":"case-updated"}`),
		Headers: map[string]string{HeaderEventType: "case-updated"},
	})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, TopicCaseBroadcast, msg.Topic)
	assert.Equal(t, []byte("case-1"), msg.Key)

	var sawSource bool
	for _, h := range msg.Headers {
		if h.Key == HeaderSource {
			sawSource = true
			assert.Equal(t, sourceName, string(h.Value))
		}
	}
	assert.True(t, sawSource, "source header is always attached")
	assert.Equal(t, int64(1), p.Sent())
}

func TestPublishValidation(t *testing.T) {
	p := newProducerWithWriter(&fakeWriter{}, logging.NewNopLogger())

	err := p.Publish(context.Background(), &common.ProducerMessage{Value: []byte("x")})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	err = p.Publish(context.Background(), &common.ProducerMessage{Topic: TopicCaseBroadcast})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestPublishWriteFailure(t *testing.T) {
	w := &fakeWriter{err: errors.New(errors.ErrCodeExternalService, "broker down")}
	p := newProducerWithWriter(w, logging.NewNopLogger())

	err := p.Publish(context.Background(), &common.ProducerMessage{
		Topic: TopicCaseBroadcast,
		Value: []byte("x"),
	})
	assert.True(t, errors.IsCode(err, errors.ErrCodeExternalService))
	assert.Zero(t, p.Sent())
}

func TestPublishAfterClose(t *testing.T) {
	w := &fakeWriter{}
	p := newProducerWithWriter(w, logging.NewNopLogger())
	require.NoError(t, p.Close())
	assert.True(t, w.closed)

	err := p.Publish(context.Background(), &common.ProducerMessage{
		Topic: TopicCaseBroadcast,
		Value: []byte("x"),
	})
	assert.Error(t, err)

	assert.NoError(t, p.Close(), "double close is a no-op")
}
