package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_SubmitWait(t *testing.T) {
	p := NewWorkerPool(WorkerPoolConfig{Workers: 4, QueueSize: 16})
	defer p.Close()

	var done atomic.Int64
	for i := 0; i < 20; i++ {
		err := p.SubmitWait(context.Background(), func(ctx context.Context) error {
			done.Add(1)
			return nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, int64(20), done.Load())

	stats := p.Stats()
	assert.Equal(t, int64(20), stats.Submitted)
	assert.Equal(t, int64(20), stats.Completed)
}

func TestWorkerPool_TaskError(t *testing.T) {
	p := NewWorkerPool(WorkerPoolConfig{Workers: 1, QueueSize: 1})
	defer p.Close()

	wantErr := errors.New("fetch failed")
	err := p.SubmitWait(context.Background(), func(ctx context.Context) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, int64(1), p.Stats().Failed)
}

func TestWorkerPool_PanicRecovered(t *testing.T) {
	p := NewWorkerPool(WorkerPoolConfig{Workers: 1, QueueSize: 1})
	defer p.Close()

	err := p.SubmitWait(context.Background(), func(ctx context.Context) error {
		panic("boom")
	})
	require.Error(t, err)
}

func TestWorkerPool_Closed(t *testing.T) {
	p := NewWorkerPool(DefaultWorkerPoolConfig())
	p.Close()

	err := p.Submit(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestByteBufferPool(t *testing.T) {
	buf := ByteBufferPool.Get()
	buf.WriteString("网页正文")
	ByteBufferPool.Put(buf)

	reused := ByteBufferPool.Get()
	assert.Zero(t, reused.Len())
	ByteBufferPool.Put(reused)
}
