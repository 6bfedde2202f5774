package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu  sync.Mutex
	log []string
}

func (r *recorder) write(name string, delay time.Duration) func(context.Context) error {
	return func(context.Context) error {
		time.Sleep(delay)
		r.mu.Lock()
		defer r.mu.Unlock()
		r.log = append(r.log, name)
		return nil
	}
}

func (r *recorder) entries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.log...)
}

func indexOf(entries []string, name string) int {
	for i, e := range entries {
		if e == name {
			return i
		}
	}
	return -1
}

func TestWriteQueue_SameRowRunsInOrder(t *testing.T) {
	q := NewWriteQueue()
	rec := &recorder{}

	q.Row("p1", "upsert", rec.write("first", 30*time.Millisecond))
	q.Row("p1", "upsert", rec.write("second", 0))
	q.Row("p1", "delete", rec.write("third", 0))
	require.NoError(t, q.Close(t.Context()))

	assert.Equal(t, []string{"first", "second", "third"}, rec.entries())
}

func TestWriteQueue_BarrierOrdersAgainstRows(t *testing.T) {
	q := NewWriteQueue()
	rec := &recorder{}

	q.Row("p1", "upsert", rec.write("p1-before", 20*time.Millisecond))
	q.Row("p2", "upsert", rec.write("p2-before", 40*time.Millisecond))
	q.Barrier("clear", rec.write("clear", 0))
	q.Row("p1", "upsert", rec.write("p1-after", 0))
	require.NoError(t, q.Flush(t.Context()))

	got := rec.entries()
	require.Len(t, got, 4)
	assert.Less(t, indexOf(got, "p1-before"), indexOf(got, "clear"))
	assert.Less(t, indexOf(got, "p2-before"), indexOf(got, "clear"))
	assert.Equal(t, "p1-after", got[3])
}

func TestWriteQueue_FlushHonoursContext(t *testing.T) {
	q := NewWriteQueue()
	release := make(chan struct{})
	q.Row("p1", "upsert", func(context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Flush(ctx), context.DeadlineExceeded)

	close(release)
	assert.NoError(t, q.Close(t.Context()))
}
