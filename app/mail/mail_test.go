package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessage() Message {
	return Message{
		From:    "admin@myblog.com",
		To:      []string{"bob@example.com"},
		ReplyTo: "ada@example.com",
		Subject: "Ada recommends you read Hello",
		Body:    "Read Hello at http://localhost/2024/3/7/hello/\n\nAda's comments: ",
	}
}

func TestMessageValidate(t *testing.T) {
	assert.NoError(t, testMessage().Validate())

	noTo := testMessage()
	noTo.To = nil
	assert.ErrorIs(t, noTo.Validate(), ErrNoRecipients)

	blankTo := testMessage()
	blankTo.To = []string{" "}
	assert.ErrorIs(t, blankTo.Validate(), ErrNoRecipients)

	noFrom := testMessage()
	noFrom.From = ""
	assert.Error(t, noFrom.Validate())
}

func TestConsoleTransport(t *testing.T) {
	var buf bytes.Buffer
	tr := NewConsoleTransport(&buf)

	require.NoError(t, tr.Send(context.Background(), testMessage()))
	out := buf.String()
	assert.Contains(t, out, "To: bob@example.com")
	assert.Contains(t, out, "Reply-To: ada@example.com")
	assert.Contains(t, out, "Subject: Ada recommends you read Hello")
	assert.Contains(t, out, "Ada's comments:")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, tr.Send(ctx, testMessage()), context.Canceled)
}

func TestBuildSMTPMessage(t *testing.T) {
	m, err := build(testMessage())
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "Subject: Ada recommends you read Hello")
	assert.Contains(t, raw, "Reply-To: ")
	assert.Contains(t, raw, "ada@example.com")
	assert.Contains(t, raw, "bob@example.com")

	bad := testMessage()
	bad.To = []string{"not an address"}
	_, err = build(bad)
	assert.Error(t, err)
}

func TestSMTPTransportOptions(t *testing.T) {
	anon := NewSMTPTransport(SMTPConfig{Host: "localhost", Port: 2525})
	assert.Len(t, anon.options(), 2)

	authed := NewSMTPTransport(SMTPConfig{Host: "localhost", Port: 587, Username: "u", Password: "p"})
	assert.Len(t, authed.options(), 5)
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestOutboxTransport(t *testing.T) {
	w := &fakeWriter{}
	tr := NewOutboxTransport(w)
	tr.now = func() time.Time { return time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC) }

	require.NoError(t, tr.Send(context.Background(), testMessage()))
	require.Len(t, w.msgs, 1)

	var env Envelope
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &env))
	assert.NotEmpty(t, env.ID)
	assert.Equal(t, env.ID, string(w.msgs[0].Key))
	assert.Equal(t, testMessage(), env.Message)
	assert.True(t, env.CreatedAt.Equal(tr.now()))

	t.Run("writer error surfaces", func(t *testing.T) {
		w.err = errors.New("broker down")
		err := tr.Send(context.Background(), testMessage())
		assert.ErrorContains(t, err, "broker down")
	})

	t.Run("invalid message never enqueued", func(t *testing.T) {
		w.err = nil
		before := len(w.msgs)
		msg := testMessage()
		msg.To = nil
		assert.ErrorIs(t, tr.Send(context.Background(), msg), ErrNoRecipients)
		assert.Len(t, w.msgs, before)
	})
}

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
	drained   chan struct{}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	if len(r.queue) == 0 && r.drained != nil {
		close(r.drained)
		r.drained = nil
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

type flakyTransport struct {
	mu       sync.Mutex
	failures int
	calls    int
	sent     []Message
}

func (f *flakyTransport) Send(_ context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func envelopeRecord(t *testing.T, offset int64, msg Message) kafka.Message {
	b, err := json.Marshal(Envelope{ID: "id", Message: msg})
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Value: b}
}

func TestConsumerDeliversAndCommits(t *testing.T) {
	drained := make(chan struct{})
	r := &fakeReader{
		queue: []kafka.Message{
			envelopeRecord(t, 1, testMessage()),
			{Offset: 2, Value: []byte("not json")},
			envelopeRecord(t, 3, testMessage()),
		},
		drained: drained,
	}
	deliver := &flakyTransport{failures: 1}
	c := NewConsumer(r, deliver)
	c.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case <-drained:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not drain the outbox")
	}
	cancel()
	require.NoError(t, <-done)

	assert.Len(t, deliver.sent, 2, "the failed delivery is retried")
	assert.Len(t, r.committed, 3, "undecodable records are committed and dropped")
}

func TestConsumerGivesUpOnPermanentFailure(t *testing.T) {
	drained := make(chan struct{})
	r := &fakeReader{
		queue: []kafka.Message{
			envelopeRecord(t, 1, testMessage()),
			envelopeRecord(t, 2, testMessage()),
		},
		drained: drained,
	}
	deliver := &flakyTransport{failures: 3}
	c := NewConsumer(r, deliver)
	c.backoff = time.Millisecond
	c.maxAttempts = 3

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case <-drained:
	case <-time.After(5 * time.Second):
		t.Fatal("a failing message blocked the outbox")
	}
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, 4, deliver.calls, "three attempts for the first message, one for the second")
	assert.Len(t, deliver.sent, 1)
	assert.Len(t, r.committed, 2, "the undeliverable message is committed")
}

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, splitBrokers(" a:9092, ,b:9092 "))
	assert.Empty(t, splitBrokers(""))
}
