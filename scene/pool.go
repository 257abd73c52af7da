package scene

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrPoolClosed 表示工作池已关闭，不再接受任务。
var ErrPoolClosed = errors.New("pool closed")

// Job 是提交到工作池的一次编码任务。
type Job func(ctx context.Context) error

type task struct {
	ctx  context.Context
	job  Job
	done chan error
}

// Pool 以固定数量的 worker 串行执行编码任务，限制并发的 ffmpeg 进程数。
type Pool struct {
	tasks chan task
	wg    sync.WaitGroup
	log   *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool starts workers goroutines; workers < 1 is treated as 1.
func NewPool(workers int, log *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	p := &Pool{tasks: make(chan task), log: log}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for t := range p.tasks {
		if err := t.ctx.Err(); err != nil {
			t.done <- err
			continue
		}
		t.done <- p.run(id, t)
	}
}

func (p *Pool) run(id int, t task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			p.log.Error("job panicked", zap.Int("worker", id), zap.Any("panic", rec))
			err = fmt.Errorf("任务异常退出: %v", rec)
		}
	}()
	return t.job(t.ctx)
}

// Submit 将任务排队；返回的通道在任务结束时恰好收到一个结果。
// 排队期间 ctx 被取消时返回 ctx.Err()。
func (p *Pool) Submit(ctx context.Context, job Job) (<-chan error, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrPoolClosed
	}
	done := make(chan error, 1)
	select {
	case p.tasks <- task{ctx: ctx, job: job, done: done}:
		return done, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close 停止接收任务并等待已提交的任务完成。
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}
