package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/ehr/carequeue/internal/platform/websocket"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("expected a deadline on the write context")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
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

type recordingPublisher struct {
	got []Message
	err error
}

func (p *recordingPublisher) Publish(_ context.Context, msg Message) error {
	p.got = append(p.got, msg)
	return p.err
}

var at = time.Date(2024, 3, 11, 9, 30, 0, 0, time.UTC)

func sample() Message {
	return Message{
		Type:       "visit.status_changed",
		Topic:      "queue",
		Key:        "3f8e1a52-0000-4000-8000-000000000001",
		OccurredAt: at,
		Payload:    json.RawMessage(`{"status":"in_progress"}`),
	}
}

func TestKafkaPublisher_WritesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w, time.Second)

	if err := p.Publish(context.Background(), sample()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	m := w.msgs[0]
	if string(m.Key) != sample().Key {
		t.Errorf("expected key %s, got %s", sample().Key, m.Key)
	}
	if len(m.Headers) != 1 || string(m.Headers[0].Value) != "visit.status_changed" {
		t.Errorf("unexpected headers %v", m.Headers)
	}
	if !m.Time.Equal(at) {
		t.Errorf("expected message time %v, got %v", at, m.Time)
	}

	var decoded Message
	if err := json.Unmarshal(m.Value, &decoded); err != nil {
		t.Fatalf("value is not JSON: %v", err)
	}
	if decoded.Type != "visit.status_changed" || string(decoded.Payload) != `{"status":"in_progress"}` {
		t.Errorf("unexpected value %s", m.Value)
	}
}

func TestKafkaPublisher_WrapsWriteError(t *testing.T) {
	cause := errors.New("broker unreachable")
	p := NewKafkaPublisher(&fakeWriter{err: cause}, 0)

	err := p.Publish(context.Background(), sample())
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if want := "failed to write visit.status_changed event: broker unreachable"; err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestKafkaPublisher_Close(t *testing.T) {
	w := &fakeWriter{}
	if err := NewKafkaPublisher(w, 0).Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !w.closed {
		t.Error("expected writer to be closed")
	}
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter([]string{"kafka-1:9092", "kafka-2:9092"}, "carequeue.queue-events")
	if w.Topic != "carequeue.queue-events" {
		t.Errorf("unexpected topic %s", w.Topic)
	}
	if w.Async {
		t.Error("expected synchronous writes")
	}
	if w.Addr == nil || w.Addr.Network() != "tcp" {
		t.Errorf("unexpected addr %v", w.Addr)
	}
}

func TestFanout_DeliversToAllAndJoinsErrors(t *testing.T) {
	failing := &recordingPublisher{err: errors.New("kafka down")}
	ok := &recordingPublisher{}

	err := Fanout{failing, ok}.Publish(context.Background(), sample())
	if err == nil || err.Error() != "kafka down" {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(ok.got) != 1 {
		t.Error("a failing publisher must not stop delivery to the next one")
	}

	if err := (Fanout{}).Publish(context.Background(), sample()); err != nil {
		t.Errorf("empty fanout should succeed, got %v", err)
	}
}

func TestHubPublisher_ForwardsToSubscribers(t *testing.T) {
	hub := websocket.NewHub(zerolog.Nop())
	board := websocket.NewClient("queue")
	hub.Register(board)

	if err := NewHubPublisher(hub).Publish(context.Background(), sample()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case data := <-board.Send:
		var evt websocket.Event
		if err := json.Unmarshal(data, &evt); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if evt.Type != "visit.status_changed" || evt.Key != sample().Key || !evt.Timestamp.Equal(at) {
			t.Errorf("unexpected event %+v", evt)
		}
		if string(evt.Data) != `{"status":"in_progress"}` {
			t.Errorf("unexpected data %s", evt.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("expected event on queue topic")
	}
}
