package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Handler обрабатывает один элемент очереди
type Handler[T any] func(ctx context.Context, item T)

// Pool - ограниченная очередь с фиксированным числом обработчиков.
// Submit никогда не блокирует: при переполнении элемент отбрасывается.
type Pool[T any] struct {
	name    string
	queue   chan T
	workers int
	handle  Handler[T]
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewPool[T any](name string, size, workers int, handle Handler[T], logger *zap.Logger) *Pool[T] {
	if size <= 0 {
		size = 1
	}
	if workers <= 0 {
		workers = 1
	}

	return &Pool[T]{
		name:    name,
		queue:   make(chan T, size),
		workers: workers,
		handle:  handle,
		logger:  logger.With(zap.String("pool", name)),
	}
}

// Start запускает обработчики. ctx передаётся в каждый вызов Handler.
func (p *Pool[T]) Start(ctx context.Context) {
	p.logger.Info("Starting worker pool", zap.Int("workers", p.workers), zap.Int("queue_size", cap(p.queue)))

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for item := range p.queue {
				p.process(ctx, item)
			}
		}()
	}
}

func (p *Pool[T]) process(ctx context.Context, item T) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Worker handler panicked", zap.Any("panic", r))
		}
	}()
	p.handle(ctx, item)
}

// Submit ставит элемент в очередь. Возвращает false, если очередь полна или пул остановлен.
func (p *Pool[T]) Submit(item T) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("Worker pool is stopped, item dropped")
		return false
	}

	select {
	case p.queue <- item:
		return true
	default:
		p.logger.Warn("Worker pool queue is full, item dropped", zap.Int("queue_size", cap(p.queue)))
		return false
	}
}

// Stop закрывает очередь и ждёт, пока обработчики дочитают оставшееся
func (p *Pool[T]) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	pending := len(p.queue)
	close(p.queue)
	p.mu.Unlock()

	if pending > 0 {
		p.logger.Info("Draining worker pool", zap.Int("pending", pending))
	}

	p.wg.Wait()
	p.logger.Info("Worker pool stopped")
}
