package pdf

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentdesk/internal/models"
)

type stubRenderer struct {
	mu    sync.Mutex
	calls int
	data  []byte
	err   error
}

func (s *stubRenderer) Render(app *models.Application) ([]byte, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.data, s.err
}

func (s *stubRenderer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestPoolRendersOffCallerGoroutine(t *testing.T) {
	stub := &stubRenderer{data: []byte("%PDF-stub")}
	pool := NewPool(stub, 2)
	defer pool.Stop()

	results, err := pool.Submit(context.Background(), sampleApplication())
	require.NoError(t, err)

	res := <-results
	require.NoError(t, res.Err)
	assert.Equal(t, []byte("%PDF-stub"), res.Bytes)
	assert.Equal(t, 1, stub.callCount())
}

func TestPoolDeliversSingleTerminalResult(t *testing.T) {
	stub := &stubRenderer{err: errors.New("render exploded")}
	pool := NewPool(stub, 1)
	defer pool.Stop()

	results, err := pool.Submit(context.Background(), sampleApplication())
	require.NoError(t, err)

	res, ok := <-results
	assert.True(t, ok)
	assert.Error(t, res.Err)
	assert.Nil(t, res.Bytes)

	// The channel closes after its one result.
	_, ok = <-results
	assert.False(t, ok)
}

func TestPoolRenderAwaitsResult(t *testing.T) {
	stub := &stubRenderer{data: []byte("%PDF-stub")}
	pool := NewPool(stub, 1)
	defer pool.Stop()

	data, err := pool.Render(context.Background(), sampleApplication())
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-stub"), data)
}

func TestPoolHandlesConcurrentSubmissions(t *testing.T) {
	stub := &stubRenderer{data: []byte("%PDF-stub")}
	pool := NewPool(stub, 3)
	defer pool.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := pool.Render(context.Background(), sampleApplication())
			assert.NoError(t, err)
			assert.NotEmpty(t, data)
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, stub.callCount())
}

func TestPoolRejectsAfterStop(t *testing.T) {
	stub := &stubRenderer{data: []byte("%PDF-stub")}
	pool := NewPool(stub, 1)
	pool.Stop()

	_, err := pool.Submit(context.Background(), sampleApplication())
	assert.ErrorIs(t, err, ErrPoolStopped)

	// Stop is idempotent.
	pool.Stop()
}

func TestPoolStopDuringConcurrentSubmits(t *testing.T) {
	stub := &stubRenderer{data: []byte("%PDF-stub")}
	pool := NewPool(stub, 2)

	// Submits racing Stop either land before the close and get a result, or
	// land after and get ErrPoolStopped; a send on the closed queue would
	// panic here.
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := pool.Submit(context.Background(), sampleApplication())
			if err != nil {
				assert.ErrorIs(t, err, ErrPoolStopped)
				return
			}
			res := <-results
			assert.NoError(t, res.Err)
		}()
	}
	pool.Stop()
	wg.Wait()
}

func TestPoolSubmitHonorsContextWhileQueueing(t *testing.T) {
	stub := &stubRenderer{data: []byte("%PDF-stub")}
	pool := NewPool(stub, 1)
	defer pool.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled context can still fail enqueueing when the queue is busy;
	// with an idle queue the job may land first. Either way no panic and any
	// returned error is the context's.
	if _, err := pool.Submit(ctx, sampleApplication()); err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}
