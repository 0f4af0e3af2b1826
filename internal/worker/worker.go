package worker

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Task is a function that represents a background job
type Task func(ctx context.Context) error

// WorkerPool runs tasks on a fixed set of workers. Each worker owns its own
// FIFO queue, so tasks submitted with the same key run one at a time in
// submission order.
type WorkerPool struct {
	queues    []chan Task
	next      atomic.Uint64
	wg        sync.WaitGroup
	isClosing atomic.Bool
	mu        sync.RWMutex // guards close of the queues against concurrent Submit
}

// NewWorkerPool starts size workers sharing queueSize slots between them.
func NewWorkerPool(size, queueSize int) *WorkerPool {
	if size < 1 {
		size = 1
	}
	perWorker := max(queueSize/size, 1)
	wp := &WorkerPool{
		queues: make([]chan Task, size),
	}

	for i := range wp.queues {
		wp.queues[i] = make(chan Task, perWorker)
		wp.wg.Add(1)
		go wp.startWorker(wp.queues[i])
	}

	return wp
}

func (wp *WorkerPool) startWorker(queue chan Task) {
	defer wp.wg.Done()
	for task := range queue {
		wp.run(task)
	}
}

func (wp *WorkerPool) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("worker task panicked")
		}
	}()
	if err := task(context.Background()); err != nil {
		log.Error().Err(err).Msg("worker task failed")
	}
}

// Submit queues t on the next worker without blocking. It reports false when
// the task was dropped because the pool is shutting down or the queue is full.
func (wp *WorkerPool) Submit(t Task) bool {
	idx := int(wp.next.Add(1) % uint64(len(wp.queues)))
	return wp.enqueue(idx, t)
}

// SubmitKeyed queues t behind every earlier task submitted with the same key.
func (wp *WorkerPool) SubmitKeyed(key string, t Task) bool {
	h := fnv.New32a()
	h.Write([]byte(key))
	return wp.enqueue(int(h.Sum32()%uint32(len(wp.queues))), t)
}

func (wp *WorkerPool) enqueue(idx int, t Task) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.isClosing.Load() {
		log.Warn().Msg("task submitted during shutdown, dropping")
		return false
	}
	select {
	case wp.queues[idx] <- t:
		return true
	default:
		log.Warn().Int("worker", idx).Msg("task queue full, dropping task")
		return false
	}
}

// Shutdown closes the queues and waits for workers to finish
func (wp *WorkerPool) Shutdown() {
	wp.mu.Lock()
	if wp.isClosing.Swap(true) {
		wp.mu.Unlock()
		return
	}
	for _, queue := range wp.queues {
		close(queue)
	}
	wp.mu.Unlock()
	wp.wg.Wait()
}
