package amqp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
		{64, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			assert.Equal(t, tt.expected, exponentialBackoff(tt.attempt))
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("connection refused"), true},
		{"unexpected EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("broken pipe"), true},
		{"closed network connection", errors.New("use of closed network connection"), true},
		{"amqp closed", fmt.Errorf("start consuming: %w", amqp091.ErrClosed), true},
		{"recoverable amqp error", &amqp091.Error{Code: amqp091.ConnectionForced, Reason: "forced"}, true},
		{"access refused", &amqp091.Error{Code: amqp091.AccessRefused, Reason: "ACCESS_REFUSED"}, false},
		{"other error", errors.New("some other error"), false},
		{"validation error", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isConnectionError(tt.err))
		})
	}
}

func TestPublishWithoutChannel(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue"}

	err := client.PublishImportCompleted(context.Background(), NewImportCompletedMessage("b1", "file.csv", 1, 1, 0))
	assert.ErrorContains(t, err, "channel not open")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = client.PublishImportCompleted(ctx, NewImportCompletedMessage("b1", "file.csv", 1, 1, 0))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConsumeStopsOnCancelledContext(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.ConsumeImportCompleted(ctx, func(context.Context, *ImportCompletedMessage) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeAck struct {
	acked, nacked, requeued bool
}

func (f *fakeAck) Ack(bool) error { f.acked = true; return nil }

func (f *fakeAck) Nack(_ bool, requeue bool) error {
	f.nacked, f.requeued = true, requeue
	return nil
}

func TestProcess(t *testing.T) {
	valid, err := NewImportCompletedMessage("batch-1", "budget.csv", 10, 9, 1).ToJSON()
	require.NoError(t, err)

	t.Run("handled message is acked", func(t *testing.T) {
		ack := &fakeAck{}
		var got *ImportCompletedMessage
		process(context.Background(), valid, ack, func(_ context.Context, m *ImportCompletedMessage) error {
			got = m
			return nil
		})
		assert.True(t, ack.acked)
		assert.False(t, ack.nacked)
		require.NotNil(t, got)
		assert.Equal(t, "batch-1", got.BatchID)
		assert.Equal(t, 9, got.Inserted)
	})

	t.Run("garbage is dropped", func(t *testing.T) {
		ack := &fakeAck{}
		called := false
		process(context.Background(), []byte(`{not json`), ack, func(context.Context, *ImportCompletedMessage) error {
			called = true
			return nil
		})
		assert.False(t, called)
		assert.True(t, ack.nacked)
		assert.False(t, ack.requeued)
	})

	t.Run("handler failure is requeued", func(t *testing.T) {
		ack := &fakeAck{}
		process(context.Background(), valid, ack, func(context.Context, *ImportCompletedMessage) error {
			return errors.New("cache busy")
		})
		assert.True(t, ack.nacked)
		assert.True(t, ack.requeued)
		assert.False(t, ack.acked)
	})
}

func TestImportCompletedMessage(t *testing.T) {
	msg := NewImportCompletedMessage("batch-7", "sheets:abc!A:E", 12, 10, 2)
	assert.WithinDuration(t, time.Now(), msg.Timestamp, time.Second)

	body, err := msg.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(body), `"batch_id":"batch-7"`)

	parsed, err := ImportCompletedMessageFromJSON(body)
	require.NoError(t, err)
	assert.Equal(t, msg.Source, parsed.Source)
	assert.True(t, parsed.Timestamp.Equal(msg.Timestamp))
}

func TestImportCompletedMessageFromJSONRejectsInvalid(t *testing.T) {
	_, err := ImportCompletedMessageFromJSON([]byte(`{"batch_id": 5}`))
	assert.Error(t, err)

	_, err = ImportCompletedMessageFromJSON([]byte(`{"source": "x"}`))
	assert.ErrorContains(t, err, "without batch_id")
}

type recordingCloser struct {
	name  string
	err   error
	order *[]string
}

func (r recordingCloser) Close() error {
	*r.order = append(*r.order, r.name)
	return r.err
}

func TestCloseAllReleasesEveryResource(t *testing.T) {
	tests := []struct {
		name    string
		errs    [2]error
		wantErr error
	}{
		{"clean", [2]error{nil, nil}, nil},
		{"already closed is ignored", [2]error{amqp091.ErrClosed, amqp091.ErrClosed}, nil},
		{"channel failure does not skip connection", [2]error{errors.New("boom"), nil}, errors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var order []string
			err := closeAll([]io.Closer{
				recordingCloser{name: "channel", err: tt.errs[0], order: &order},
				recordingCloser{name: "conn", err: tt.errs[1], order: &order},
			})
			if want := []string{"channel", "conn"}; fmt.Sprint(order) != fmt.Sprint(want) {
				t.Fatalf("close order = %v, want %v", order, want)
			}
			if fmt.Sprint(err) != fmt.Sprint(tt.wantErr) {
				t.Fatalf("closeAll() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCloseWithoutConnection(t *testing.T) {
	client := &Client{}
	if got := client.staleLocked(); len(got) != 0 {
		t.Fatalf("staleLocked() = %v, want none", got)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}
