package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/statlite/internal/logging"
	"github.com/statlite/internal/metrics"
	"gorm.io/gorm"
)

const defaultWriteBatchSize = 64

// WriteJob 是一次排队执行的写操作，返回错误会回滚其所在批次。
type WriteJob func(tx *gorm.DB) error

// WriteQueue 是单写者的合并写入队列：后台 worker 每次取出至多 batchSize 个任务，
// 在同一个事务中按入队顺序执行，批次之间主动让出调度。
type WriteQueue struct {
	db        *gorm.DB
	batchSize int

	mu        sync.Mutex
	pending   []WriteJob
	enqueued  uint64
	attempted uint64
	progress  chan struct{}
	closed    bool

	// runMu 串行化批次执行，Serve 与 Close 之间也只有一个写者。
	runMu sync.Mutex
	wake  chan struct{}
}

// NewWriteQueue 创建写入队列，需要调用 Serve 启动 worker。
func NewWriteQueue(gdb *gorm.DB) *WriteQueue {
	return &WriteQueue{
		db:        gdb,
		batchSize: defaultWriteBatchSize,
		progress:  make(chan struct{}),
		wake:      make(chan struct{}, 1),
	}
}

// WithBatchSize 调整单个事务内的最大任务数。
func (q *WriteQueue) WithBatchSize(n int) *WriteQueue {
	if n > 0 {
		q.batchSize = n
	}
	return q
}

// Enqueue 追加任务并唤醒 worker，不等待执行结果。
// 队列关闭后 worker 不再运行，任务由调用方同步写入。
func (q *WriteQueue) Enqueue(job WriteJob) {
	if job == nil {
		return
	}

	q.mu.Lock()
	q.pending = append(q.pending, job)
	q.enqueued++
	metrics.WriteQueueDepth.Set(float64(len(q.pending)))
	closed := q.closed
	q.mu.Unlock()

	if closed {
		q.drain()
		return
	}

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Pending 返回尚未被取出执行的任务数。
func (q *WriteQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Flush 等待调用前入队的所有任务都已执行（提交或随批次回滚）。
func (q *WriteQueue) Flush(ctx context.Context) error {
	q.mu.Lock()
	target := q.enqueued
	q.mu.Unlock()

	for {
		q.mu.Lock()
		if q.attempted >= target {
			q.mu.Unlock()
			return nil
		}
		progress := q.progress
		q.mu.Unlock()

		select {
		case <-progress:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Serve 运行 worker 循环，直到 ctx 结束；退出前会把剩余任务写完。
func (q *WriteQueue) Serve(ctx context.Context) error {
	for {
		select {
		case <-q.wake:
			q.drain()
		case <-ctx.Done():
			q.drain()
			return ctx.Err()
		}
	}
}

// Close 标记队列关闭并写完所有剩余任务，应在 Serve 返回且不再有请求进入后调用。
// ctx 结束时停止写入，剩余任务计入日志后丢弃。
func (q *WriteQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			if dropped := q.Pending(); dropped > 0 {
				logging.Logger().Error().Err(err).Int("jobs", dropped).Msg("write queue closed with pending jobs")
			}
			return err
		}
		if !q.runNext() {
			return nil
		}
	}
}

// String 实现 fmt.Stringer，供 supervisor 日志使用。
func (q *WriteQueue) String() string {
	return "write-queue"
}

func (q *WriteQueue) drain() {
	for q.runNext() {
		runtime.Gosched()
	}
}

// runNext 取出并执行一个批次，队列为空时返回 false。
func (q *WriteQueue) runNext() bool {
	q.runMu.Lock()
	defer q.runMu.Unlock()

	batch := q.take()
	if len(batch) == 0 {
		return false
	}
	q.runBatch(batch)
	return true
}

func (q *WriteQueue) take() []WriteJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.pending)
	if n == 0 {
		return nil
	}
	if n > q.batchSize {
		n = q.batchSize
	}

	batch := make([]WriteJob, n)
	copy(batch, q.pending[:n])
	remaining := copy(q.pending, q.pending[n:])
	clear(q.pending[remaining:])
	q.pending = q.pending[:remaining]

	metrics.WriteQueueDepth.Set(float64(remaining))
	return batch
}

func (q *WriteQueue) runBatch(batch []WriteJob) {
	start := time.Now()
	err := q.db.Transaction(func(tx *gorm.DB) error {
		for _, job := range batch {
			if err := runJob(tx, job); err != nil {
				return err
			}
		}
		return nil
	})

	metrics.WriteBatchSize.Observe(float64(len(batch)))
	metrics.WriteBatchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.WriteBatches.WithLabelValues(metrics.BatchFailed).Inc()
		logging.Logger().Error().Err(err).Int("jobs", len(batch)).Msg("write batch rolled back")
	} else {
		metrics.WriteBatches.WithLabelValues(metrics.BatchCommitted).Inc()
	}

	q.mu.Lock()
	q.attempted += uint64(len(batch))
	close(q.progress)
	q.progress = make(chan struct{})
	q.mu.Unlock()
}

// runJob 把任务中的 panic 转换为错误，使其只影响所在批次。
func runJob(tx *gorm.DB, job WriteJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("write job panicked: %v", r)
		}
	}()
	return job(tx)
}
