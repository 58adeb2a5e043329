package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func TestDeliverGroupsByTopic(t *testing.T) {
	writer := &stubWriter{written: make(map[string][]kafka.Message)}
	d := NewDispatcher(nil, writer, time.Second, 10, zerolog.Nop())

	messages := []Message{
		{
			EventID:       1,
			AggregateType: "attendance_record",
			AggregateID:   "42",
			EventType:     "attendance.recorded",
			Topic:         "attendance_events",
			PartitionKey:  "u-1",
			Payload:       json.RawMessage(`{"record_id":42}`),
		},
		{
			EventID:       2,
			AggregateType: "attendance_type",
			AggregateID:   "3",
			EventType:     "attendance_type.created",
			Topic:         "attendance_type_events",
			PartitionKey:  "Research",
			Payload:       json.RawMessage(`{"type_id":3}`),
		},
		{
			EventID:       3,
			AggregateType: "attendance_record",
			AggregateID:   "43",
			EventType:     "attendance.recorded",
			Topic:         "attendance_events",
			PartitionKey:  "u-1",
			Payload:       json.RawMessage(`{"record_id":43}`),
		},
	}

	require.NoError(t, d.deliver(context.Background(), messages))

	require.Len(t, writer.written["attendance_events"], 2)
	require.Len(t, writer.written["attendance_type_events"], 1)

	first := writer.written["attendance_events"][0]
	require.Equal(t, []byte("u-1"), first.Key)
	require.JSONEq(t, `{"record_id":42}`, string(first.Value))
	require.Equal(t, "attendance.recorded", headerString(t, first, "event_type"))
	require.Equal(t, "attendance_record", headerString(t, first, "aggregate_type"))
	require.Equal(t, "42", headerString(t, first, "aggregate_id"))
}

func TestDeliverStopsOnWriterError(t *testing.T) {
	writer := &stubWriter{written: make(map[string][]kafka.Message), err: errors.New("broker down")}
	d := NewDispatcher(nil, writer, time.Second, 10, zerolog.Nop())

	messages := []Message{
		{EventID: 1, EventType: "attendance.recorded", Topic: "attendance_events", Payload: json.RawMessage(`{}`)},
	}

	err := d.deliver(context.Background(), messages)
	require.Error(t, err)
}

func TestEncodeMessageCopiesPayload(t *testing.T) {
	payload := []byte(`{"record_id":42}`)
	msg := Message{
		EventID:      1,
		EventType:    "attendance.recorded",
		Topic:        "attendance_events",
		PartitionKey: "u-1",
		Payload:      payload,
	}

	encoded := encodeMessage(msg)
	payload[2] = 'x'
	require.JSONEq(t, `{"record_id":42}`, string(encoded.Value))
}

type stubWriter struct {
	written map[string][]kafka.Message
	err     error
}

func (w *stubWriter) WriteMessages(_ context.Context, topic string, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.written[topic] = append(w.written[topic], msgs...)
	return nil
}

func headerString(t *testing.T, msg kafka.Message, key string) string {
	t.Helper()
	for _, header := range msg.Headers {
		if header.Key == key {
			return string(header.Value)
		}
	}
	t.Fatalf("header %s not found", key)
	return ""
}
