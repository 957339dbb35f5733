package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewProducer(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, zap.NewNop())
	assert.NotNil(t, p)
	assert.NoError(t, p.Close())
}

func TestProducer_CheckConnectionWithoutBrokers(t *testing.T) {
	p := NewProducer(nil, nil)
	assert.Error(t, p.CheckConnection(context.Background()))
}

func TestNewConsumer(t *testing.T) {
	c := NewConsumer([]string{"localhost:9092"}, "servicehub", "notifications", zap.NewNop())
	assert.NotNil(t, c)
	assert.NoError(t, c.Close())

	var nilConsumer *Consumer
	assert.NoError(t, nilConsumer.Close())
}

func TestPaymentEvent_JSONShape(t *testing.T) {
	data, err := json.Marshal(PaymentEvent{Type: EventPaymentConfirmed, PaymentID: 3, BookingID: 9, Gross: 1000, Commission: 100, PayeeAmount: 900})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "payment_confirmed", fields["type"])
	assert.EqualValues(t, 900, fields["payee_amount"])
	assert.NotContains(t, fields, "failure_reason")
}

func TestNewMessage_headers(t *testing.T) {
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	msg, err := newMessage("payment-events", "9", PaymentEvent{Type: EventPaymentInitiated, BookingID: 9}, at)
	require.NoError(t, err)

	assert.Equal(t, "payment-events", msg.Topic)
	assert.Equal(t, []byte("9"), msg.Key)
	assert.Equal(t, at, msg.Time)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, EventPaymentInitiated, headers[HeaderEventType])
	_, err = uuid.Parse(headers[HeaderEventID])
	assert.NoError(t, err)
}

func TestNewMessage_untypedPayload(t *testing.T) {
	msg, err := newMessage("t", "k", map[string]int{"a": 1}, time.Now())
	require.NoError(t, err)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, HeaderEventID, msg.Headers[0].Key)
}

func TestNewMessage_unmarshalablePayload(t *testing.T) {
	_, err := newMessage("t", "k", make(chan int), time.Now())
	assert.Error(t, err)
}
