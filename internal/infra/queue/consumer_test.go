package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/chitram/companion/internal/domain"
	"github.com/chitram/companion/internal/domain/mocks"
	"github.com/chitram/companion/pkg/logging"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestConsumer(dlq domain.EventProducer) *KafkaConsumer {
	return &KafkaConsumer{dlqProducer: dlq, sampler: logging.NewErrorSampler(10, nil)}
}

func message(t *testing.T, a domain.Article) kafka.Message {
	t.Helper()
	payload, err := json.Marshal(a)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(a.ID), Value: payload}
}

func TestKafkaConsumer_HandledMessageSkipsDLQ(t *testing.T) {
	dlq := new(mocks.MockEventProducer)
	c := newTestConsumer(dlq)

	var got *domain.Article
	c.handleMessage(context.Background(), message(t, domain.Article{ID: "rss_1", Title: "Kanguva trailer"}), func(_ context.Context, a *domain.Article) error {
		got = a
		return nil
	})

	require.NotNil(t, got)
	assert.Equal(t, "Kanguva trailer", got.Title)
	dlq.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestKafkaConsumer_FailedMessageGoesToDLQ(t *testing.T) {
	dlq := new(mocks.MockEventProducer)
	dlq.On("Publish", mock.Anything, mock.MatchedBy(func(a *domain.Article) bool { return a.ID == "rss_2" })).Return(nil).Once()
	c := newTestConsumer(dlq)

	c.handleMessage(context.Background(), message(t, domain.Article{ID: "rss_2", Source: "rss"}), func(context.Context, *domain.Article) error {
		return errors.New("push service down")
	})

	dlq.AssertExpectations(t)
	assert.Equal(t, 1, c.sampler.Count("handler:rss"))
}

func TestKafkaConsumer_UndecodableMessageIsDropped(t *testing.T) {
	dlq := new(mocks.MockEventProducer)
	c := newTestConsumer(dlq)

	c.handleMessage(context.Background(), kafka.Message{Value: []byte("{")}, func(context.Context, *domain.Article) error {
		t.Fatal("handler must not be called")
		return nil
	})

	assert.Equal(t, 1, c.sampler.Count("decode"))
	dlq.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}
