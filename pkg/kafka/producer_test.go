package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

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
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducer_PublishEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, defaultProducerConfig())

	require.NoError(t, p.Publish(context.Background(), "signals.live", []byte("SPY"), map[string]float64{"score": 0.7}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "signals.live", w.msgs[0].Topic)
	assert.Equal(t, []byte("SPY"), w.msgs[0].Key)
	assert.JSONEq(t, `{"score":0.7}`, string(w.msgs[0].Value))

	require.NoError(t, p.PublishMessage(context.Background(), "logs", "raw"))
	assert.Equal(t, []byte("raw"), w.msgs[1].Value)
	assert.Nil(t, w.msgs[1].Key)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducer_PublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := newProducer(w, defaultProducerConfig())
	err := p.Publish(context.Background(), "t", nil, []byte("x"))
	assert.ErrorContains(t, err, "leader not available")
}

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
}

func TestNewProducer_RejectsSharedSignalTopic(t *testing.T) {
	_, err := NewProducer(WithBrokers([]string{"localhost:9092"}), WithSignalTopics("signals", "signals"))
	assert.ErrorContains(t, err, "must differ")
}

func TestProducerConfig_Defaults(t *testing.T) {
	cfg := defaultProducerConfig()
	for _, opt := range []ProducerOption{
		WithBrokers([]string{"b1:9092"}),
		WithSignalTopics("", "orders.live"),
		WithDelivery(0, 5, ""),
		WithBatching(0, 0, 50*time.Millisecond),
	} {
		opt(cfg)
	}
	require.NoError(t, cfg.validate())

	assert.False(t, cfg.LeastBytes, "symbol keyed partitioning is the default")
	assert.Equal(t, "signals.simulation", cfg.Topics.Simulation)
	assert.Equal(t, "orders.live", cfg.Topics.Live)
	assert.Equal(t, -1, cfg.Delivery.RequiredAcks)
	assert.Equal(t, 5, cfg.Delivery.MaxAttempts)
	assert.Equal(t, "snappy", cfg.Delivery.Compression)
	assert.Equal(t, 100, cfg.Batching.Size)
	assert.Equal(t, 50*time.Millisecond, cfg.Batching.Linger)
}

func TestProducer_SignalTopic(t *testing.T) {
	p, err := NewProducer(WithBrokers([]string{"localhost:9092"}), WithSignalTopics("sim", "live"))
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, "live", p.SignalTopic(true))
	assert.Equal(t, "sim", p.SignalTopic(false))
}
