package async

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/concierge/internal/core/domain"
)

// blockingSink holds every delivery until release is closed.
type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	got     []string
}

func (b *blockingSink) Emit(_ context.Context, e domain.AuditEvent) {
	<-b.release
	b.mu.Lock()
	b.got = append(b.got, e.QueryID)
	b.mu.Unlock()
}

func TestSink_DeliversInOrder(t *testing.T) {
	inner := &blockingSink{release: make(chan struct{})}
	close(inner.release)

	s := New(inner, 8)
	for _, id := range []string{"a", "b", "c"} {
		s.Emit(context.Background(), domain.AuditEvent{QueryID: id})
	}
	require.NoError(t, s.Close())

	assert.Equal(t, []string{"a", "b", "c"}, inner.got)
	assert.Zero(t, s.Dropped())
}

func TestSink_DropsWhenFull(t *testing.T) {
	inner := &blockingSink{release: make(chan struct{})}
	var onDrop atomic.Int32
	s := New(inner, 1, WithOnDrop(func() { onDrop.Add(1) }))

	// The goroutine may take the first event off the queue before
	// blocking, so between 8 and 9 of the 10 events are dropped.
	for i := 0; i < 10; i++ {
		s.Emit(context.Background(), domain.AuditEvent{QueryID: "q"})
	}
	dropped := s.Dropped()
	assert.GreaterOrEqual(t, dropped, uint64(8))
	assert.LessOrEqual(t, dropped, uint64(9))
	assert.Equal(t, int32(dropped), onDrop.Load())

	close(inner.release)
	require.NoError(t, s.Close())
	assert.Len(t, inner.got, 10-int(dropped))
}

func TestSink_EmitAfterCloseIsDropped(t *testing.T) {
	inner := &blockingSink{release: make(chan struct{})}
	close(inner.release)

	s := New(inner, 0)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	s.Emit(context.Background(), domain.AuditEvent{QueryID: "late"})
	assert.Equal(t, uint64(1), s.Dropped())
	assert.Empty(t, inner.got)
}

func TestSink_ConcurrentEmit(t *testing.T) {
	inner := &blockingSink{release: make(chan struct{})}
	close(inner.release)
	s := New(inner, 1000)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Emit(context.Background(), domain.AuditEvent{QueryID: "q"})
		}()
	}
	wg.Wait()
	require.NoError(t, s.Close())

	assert.Len(t, inner.got, 50)
}
