package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelDispatchDelivers(t *testing.T) {
	ctx := context.Background()
	d := NewChannelDispatch(4)

	require.NoError(t, d.Enqueue(ctx, "job-1"))
	require.NoError(t, d.Enqueue(ctx, "job-2"))

	jobID, ack, err := d.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.NoError(t, ack(ctx))

	jobID, _, err = d.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job-2", jobID)
}

func TestChannelDispatchRespectsContext(t *testing.T) {
	d := NewChannelDispatch(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := d.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunnerBoundsConcurrentJobs(t *testing.T) {
	d := NewChannelDispatch(16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var inflight, peak atomic.Int32
	var done sync.WaitGroup
	done.Add(6)
	run := func(ctx context.Context, jobID string) error {
		defer done.Done()
		now := inflight.Add(1)
		for {
			old := peak.Load()
			if now <= old || peak.CompareAndSwap(old, now) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		inflight.Add(-1)
		return nil
	}

	runner := NewRunner(d, run, 2, nil)
	go func() { _ = runner.Run(ctx) }()

	for i := 0; i < 6; i++ {
		require.NoError(t, d.Enqueue(ctx, "job"))
	}
	done.Wait()
	cancel()

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRunnerAcksAfterRun(t *testing.T) {
	acked := make(chan string, 1)
	var delivered atomic.Bool
	source := sourceFunc(func(ctx context.Context) (string, AckFunc, error) {
		if !delivered.CompareAndSwap(false, true) {
			<-ctx.Done()
			return "", nil, ctx.Err()
		}
		return "job-9", func(context.Context) error {
			acked <- "job-9"
			return nil
		}, nil
	})

	ranAt := make(chan struct{}, 1)
	run := func(ctx context.Context, jobID string) error {
		ranAt <- struct{}{}
		return errors.New("crawl failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	runner := NewRunner(source, run, 1, nil)
	go func() { _ = runner.Run(ctx) }()

	select {
	case <-ranAt:
	case <-time.After(time.Second):
		t.Fatal("job never ran")
	}
	// Even a failed run acknowledges: the failure lives on the job record.
	select {
	case jobID := <-acked:
		assert.Equal(t, "job-9", jobID)
	case <-time.After(time.Second):
		t.Fatal("job never acked")
	}
	cancel()
}

type sourceFunc func(ctx context.Context) (string, AckFunc, error)

func (f sourceFunc) Next(ctx context.Context) (string, AckFunc, error) { return f(ctx) }

type fakeReader struct {
	msgs      chan kafka.Message
	committed []kafka.Message
	mu        sync.Mutex
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case msg := <-r.msgs:
		return msg, nil
	}
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestKafkaSourceCommitOnAck(t *testing.T) {
	reader := &fakeReader{msgs: make(chan kafka.Message, 1)}
	reader.msgs <- kafka.Message{Value: []byte("job-42"), Offset: 7}

	source := NewKafkaSource(reader)
	jobID, ack, err := source.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "job-42", jobID)

	reader.mu.Lock()
	assert.Empty(t, reader.committed, "no commit before ack")
	reader.mu.Unlock()

	require.NoError(t, ack(context.Background()))
	reader.mu.Lock()
	require.Len(t, reader.committed, 1)
	assert.Equal(t, int64(7), reader.committed[0].Offset)
	reader.mu.Unlock()
}

type fakeWriter struct {
	mu      sync.Mutex
	written []kafka.Message
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaQueueEnqueue(t *testing.T) {
	writer := &fakeWriter{}
	queue := NewKafkaQueue(writer)

	require.NoError(t, queue.Enqueue(context.Background(), "job-7"))
	writer.mu.Lock()
	require.Len(t, writer.written, 1)
	assert.Equal(t, "job-7", string(writer.written[0].Value))
	writer.mu.Unlock()
}
