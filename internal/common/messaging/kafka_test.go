package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"microfinance-scoring/internal/common/config"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "credit.score.changed")

	err := p.Publish(context.Background(), "subject-1", map[string]interface{}{"delta": 0.7},
		map[string]string{"event_type": "score_improvement"})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "subject-1", string(msg.Key))
	var body map[string]float64
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, 0.7, body["delta"])
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducer_PublishErrors(t *testing.T) {
	p := NewProducerWithWriter(&fakeWriter{err: errors.New("leader not available")}, "t")
	err := p.Publish(context.Background(), "k", "v", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka publish to t")

	err = p.Publish(context.Background(), "k", func() {}, nil)
	assert.ErrorContains(t, err, "marshal payload")
}

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer(config.KafkaConfig{ScoreTopic: "t"})
	assert.Error(t, err)

	p, err := NewProducer(config.KafkaConfig{Brokers: []string{"localhost:9092"}, ScoreTopic: "t"})
	require.NoError(t, err)
	assert.Equal(t, "t", p.Topic())
}
