package repository

import (
	"context"

	"github.com/AtashM95/tradebot/internal/domain/models"
	applogger "github.com/AtashM95/tradebot/pkg/logger"
)

// KeyedPublisher is satisfied by *kafka.Producer.
type KeyedPublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaSignalSink publishes routed signals to one topic, keyed by symbol so
// a symbol's signals stay ordered within a partition.
type KafkaSignalSink struct {
	producer KeyedPublisher
	topic    string
}

func NewKafkaSignalSink(producer KeyedPublisher, topic string) *KafkaSignalSink {
	return &KafkaSignalSink{producer: producer, topic: topic}
}

func (p *KafkaSignalSink) Submit(ctx context.Context, s models.Signal) error {
	return p.producer.Publish(ctx, p.topic, []byte(s.Symbol), s)
}

// LogSignalSink only records the signal in the structured log. It is the
// sink when no broker is configured.
type LogSignalSink struct {
	mode models.Mode
	l    *applogger.Logger
}

func NewLogSignalSink(mode models.Mode, l *applogger.Logger) *LogSignalSink {
	if l == nil {
		l = applogger.NewNop()
	}
	return &LogSignalSink{mode: mode, l: l}
}

func (p *LogSignalSink) Submit(_ context.Context, s models.Signal) error {
	p.l.Info("signal routed",
		applogger.String("sink", string(p.mode)),
		applogger.String("symbol", s.Symbol),
		applogger.String("side", s.Side),
		applogger.Float64("score", s.Score),
		applogger.Float64("entry", s.Entry),
		applogger.Float64("stop", s.Stop),
		applogger.Float64("take_profit", s.TakeProfit),
		applogger.String("model_id", s.ModelID),
	)
	return nil
}
