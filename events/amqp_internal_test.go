package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-engine/budget"
)

type fakeChannel struct {
	published []amqp091.Publishing
	exchange  string
	key       string
	err       error
	closed    bool
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.exchange, c.key = exchange, key
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func sampleEvent() budget.PeriodClosedEvent {
	return budget.PeriodClosedEvent{
		RunID:     "run-1",
		Year:      2024,
		Month:     7,
		Start:     "2024-06-25",
		End:       "2024-07-24",
		Outcome:   budget.OutcomeClosed,
		Surplus:   decimal.RequireFromString("100"),
		Allocated: decimal.RequireFromString("100"),
		Fallback:  decimal.RequireFromString("70"),
		ClosedAt:  time.Date(2024, 8, 3, 9, 0, 0, 0, time.UTC),
	}
}

func TestNewPeriodClosedMessage(t *testing.T) {
	msg, err := NewPeriodClosedMessage(sampleEvent())
	require.NoError(t, err)

	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp091.Persistent, msg.DeliveryMode)
	assert.Equal(t, "run-1", msg.MessageId)
	assert.Equal(t, MessageTypePeriodClosed, msg.Type)

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Body, &body))
	assert.Equal(t, "2024-06-25", body["start"])
	assert.Equal(t, "closed", body["outcome"])
	assert.Equal(t, "70", body["fallback"])
}

func TestPublisher_UsesConfiguredExchange(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisher(Config{}, nil)
	p.ch = ch

	require.NoError(t, p.PublishPeriodClosed(context.Background(), sampleEvent()))

	assert.Equal(t, DefaultExchange, ch.exchange)
	assert.Equal(t, DefaultRoutingKey, ch.key)
	assert.Len(t, ch.published, 1)
}

func TestPublisher_NonConnectionErrorIsReturned(t *testing.T) {
	ch := &fakeChannel{err: errors.New("PRECONDITION_FAILED")}
	p := newPublisher(Config{URL: "amqp://unused"}, nil)
	p.ch = ch

	err := p.PublishPeriodClosed(context.Background(), sampleEvent())

	require.Error(t, err)
	assert.False(t, ch.closed, "no reconnect for broker-side errors")
}

func TestPublisher_ClosedWithoutURL(t *testing.T) {
	p := newPublisher(Config{}, nil)

	err := p.PublishPeriodClosed(context.Background(), sampleEvent())

	assert.ErrorIs(t, err, amqp091.ErrClosed)
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"closed sentinel", amqp091.ErrClosed, true},
		{"refused", errors.New("dial tcp: connection refused"), true},
		{"eof", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"other", errors.New("NOT_FOUND - no exchange"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isConnectionError(tt.err))
		})
	}
}

func TestNewPublisher_RequiresURL(t *testing.T) {
	_, err := NewPublisher(Config{}, nil)
	assert.Error(t, err)
}
