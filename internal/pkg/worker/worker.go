package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task 一个可重试的后台任务
type Task struct {
	ID    string
	Run   func(ctx context.Context) error
	Retry int // 已重试次数
}

// WorkerPool 有界并发的任务池，失败任务经重试队列延迟后重新入队
type WorkerPool struct {
	TaskQueue  chan Task
	RetryQueue chan Task // 重试队列
	WorkerNum  int
	MaxRetry   int           // 最大重试次数
	RetryDelay time.Duration // 第 n 次重试前等待 n*RetryDelay

	// OnFailed 任务最终失败 (重试耗尽或被丢弃) 时回调
	OnFailed func(task Task, err error)

	log    *zap.Logger
	wg     sync.WaitGroup // 未完成的任务数
	cancel context.CancelFunc
}

func NewWorkerPool(log *zap.Logger, workerNum int, bufferSize int) *WorkerPool {
	if workerNum <= 0 {
		workerNum = 1
	}
	if bufferSize <= 0 {
		bufferSize = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WorkerPool{
		TaskQueue:  make(chan Task, bufferSize),
		RetryQueue: make(chan Task, bufferSize),
		WorkerNum:  workerNum,
		MaxRetry:   3, // 最多重试3次
		RetryDelay: time.Second,
		log:        log,
	}
}

// Start 启动 worker 与重试协程，ctx 取消后全部退出
func (p *WorkerPool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.WorkerNum; i++ {
		go p.worker(ctx, i)
	}
	// 启动重试处理协程
	go p.retryWorker(ctx)
	p.log.Debug("worker pool started", zap.Int("workers", p.WorkerNum))
}

// Stop 取消所有 worker，未处理的任务不再执行
func (p *WorkerPool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
}

// AddTask 非阻塞入队，队列已满时返回 false
func (p *WorkerPool) AddTask(task Task) bool {
	p.wg.Add(1)
	select {
	case p.TaskQueue <- task:
		return true
	default:
		p.wg.Done()
		p.log.Warn("worker pool queue full, dropping task", zap.String("task", task.ID))
		return false
	}
}

// Wait 等待所有已入队任务结束 (成功或最终失败)，或 ctx 结束
func (p *WorkerPool) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-p.TaskQueue:
			p.process(ctx, id, task)
		}
	}
}

func (p *WorkerPool) process(ctx context.Context, id int, task Task) {
	err := task.Run(ctx)
	if err == nil {
		p.wg.Done()
		return
	}

	// 如果未达到最大重试次数，加入重试队列
	if task.Retry < p.MaxRetry && ctx.Err() == nil {
		task.Retry++
		select {
		case p.RetryQueue <- task:
			p.log.Debug("task added to retry queue",
				zap.Int("worker", id), zap.String("task", task.ID),
				zap.Int("attempt", task.Retry), zap.Int("max", p.MaxRetry))
			return
		default:
			p.log.Warn("retry queue full, task dropped", zap.Int("worker", id), zap.String("task", task.ID))
		}
	} else {
		p.log.Warn("task exceeded max retries", zap.Int("worker", id), zap.String("task", task.ID), zap.Error(err))
	}
	p.fail(task, err)
}

func (p *WorkerPool) retryWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-p.RetryQueue:
			// 延迟重试，避免立即重试
			go p.requeueAfter(ctx, task, time.Duration(task.Retry)*p.RetryDelay)
		}
	}
}

func (p *WorkerPool) requeueAfter(ctx context.Context, task Task, delay time.Duration) {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		p.fail(task, ctx.Err())
		return
	case <-timer.C:
	}

	// 重新加入主队列
	select {
	case p.TaskQueue <- task:
	case <-ctx.Done():
		p.fail(task, ctx.Err())
	}
}

func (p *WorkerPool) fail(task Task, err error) {
	defer p.wg.Done()
	if p.OnFailed != nil {
		p.OnFailed(task, err)
	}
}
