package cart

import (
	"context"
	"log"
	"sync"
)

// WriteQueue orders the remote writes of one cart. Writes for the same product id
// run in enqueue order; a barrier runs after every earlier write and before every
// later one. Writes for different products may run concurrently.
type WriteQueue struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	tails   map[string]chan struct{}
	barrier chan struct{}
	wg      sync.WaitGroup
}

func NewWriteQueue() *WriteQueue {
	ctx, cancel := context.WithCancel(context.Background())
	return &WriteQueue{
		ctx:    ctx,
		cancel: cancel,
		tails:  make(map[string]chan struct{}),
	}
}

// Row enqueues a write for one product row.
func (q *WriteQueue) Row(productID, op string, fn func(ctx context.Context) error) {
	q.mu.Lock()
	deps := []chan struct{}{q.tails[productID], q.barrier}
	done := make(chan struct{})
	q.tails[productID] = done
	q.wg.Add(1)
	q.mu.Unlock()

	go q.run(deps, done, op, fn)
}

// Barrier enqueues a write ordered against every row.
func (q *WriteQueue) Barrier(op string, fn func(ctx context.Context) error) {
	q.mu.Lock()
	deps := make([]chan struct{}, 0, len(q.tails)+1)
	deps = append(deps, q.barrier)
	for _, tail := range q.tails {
		deps = append(deps, tail)
	}
	done := make(chan struct{})
	q.barrier = done
	q.tails = make(map[string]chan struct{})
	q.wg.Add(1)
	q.mu.Unlock()

	go q.run(deps, done, op, fn)
}

func (q *WriteQueue) run(deps []chan struct{}, done chan struct{}, op string, fn func(ctx context.Context) error) {
	defer q.wg.Done()
	defer close(done)

	for _, dep := range deps {
		if dep == nil {
			continue
		}
		select {
		case <-dep:
		case <-q.ctx.Done():
			log.Printf("Cart write %s cancelled: %v", op, q.ctx.Err())
			return
		}
	}
	if err := fn(q.ctx); err != nil {
		log.Printf("Cart write %s failed: %v", op, err)
	}
}

// Flush waits until every enqueued write has finished or ctx is done.
func (q *WriteQueue) Flush(ctx context.Context) error {
	drained := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close waits for pending writes until ctx is done, then cancels the rest.
func (q *WriteQueue) Close(ctx context.Context) error {
	err := q.Flush(ctx)
	q.cancel()
	q.wg.Wait()
	return err
}
