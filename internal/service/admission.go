package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/statlite/internal/logging"
	"github.com/statlite/internal/metrics"
)

const (
	defaultRateLimit         = 60
	defaultRateWindow        = time.Minute
	defaultAnomalyMultiplier = 5
	defaultSweepInterval     = time.Minute
)

// Decision 描述一次准入检查的结果。
type Decision struct {
	Allowed    bool
	Anomalous  bool
	RetryAfter time.Duration
}

// windowBucket 是固定窗口计数器的单个 IP 状态。
type windowBucket struct {
	count   int
	resetAt time.Time
}

// AdmissionControl 按 IP 维护两组相互独立的固定窗口计数：限流与异常检测。
// 窗口按键独立起算，不做全局对齐。
type AdmissionControl struct {
	clock      quartz.Clock
	limit      int
	window     time.Duration
	multiplier int
	sweepEvery time.Duration

	mu      sync.Mutex
	rate    map[string]*windowBucket
	anomaly map[string]*windowBucket
}

// NewAdmissionControl 创建准入控制，默认每 IP 每分钟 60 次，超过 5 倍视为异常。
func NewAdmissionControl(clock quartz.Clock) *AdmissionControl {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &AdmissionControl{
		clock:      clock,
		limit:      defaultRateLimit,
		window:     defaultRateWindow,
		multiplier: defaultAnomalyMultiplier,
		sweepEvery: defaultSweepInterval,
		rate:       make(map[string]*windowBucket),
		anomaly:    make(map[string]*windowBucket),
	}
}

// WithLimit 调整窗口内允许的请求数与窗口长度。
func (a *AdmissionControl) WithLimit(limit int, window time.Duration) *AdmissionControl {
	if limit > 0 {
		a.limit = limit
	}
	if window > 0 {
		a.window = window
	}
	return a
}

// WithAnomalyMultiplier 调整异常阈值相对限流阈值的倍数。
func (a *AdmissionControl) WithAnomalyMultiplier(multiplier int) *AdmissionControl {
	if multiplier > 0 {
		a.multiplier = multiplier
	}
	return a
}

// WithSweepInterval 调整过期计数清理的周期。
func (a *AdmissionControl) WithSweepInterval(d time.Duration) *AdmissionControl {
	if d > 0 {
		a.sweepEvery = d
	}
	return a
}

// Allow 执行限流检查：窗口内计数达到上限后拒绝，拒绝时不再累加。
func (a *AdmissionControl) Allow(ip string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allowLocked(ip, a.clock.Now())
}

// ResetAfter 返回限流窗口距重置的剩余时间，未知或已过期时为 0。
func (a *AdmissionControl) ResetAfter(ip string) time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.resetAfterLocked(ip, a.clock.Now())
}

// Anomalous 执行异常检测：窗口内计数超过 limit*multiplier 时返回 true。
func (a *AdmissionControl) Anomalous(ip string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.anomalousLocked(ip, a.clock.Now())
}

// Check 对同一次请求同时执行两项检查。异常检测观察所有请求，包括被限流拒绝的请求。
func (a *AdmissionControl) Check(ip string) Decision {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Now()
	decision := Decision{
		Allowed:   a.allowLocked(ip, now),
		Anomalous: a.anomalousLocked(ip, now),
	}

	switch {
	case decision.Anomalous:
		metrics.AdmissionRejections.WithLabelValues(metrics.ReasonAnomalous).Inc()
	case !decision.Allowed:
		decision.RetryAfter = a.resetAfterLocked(ip, now)
		metrics.AdmissionRejections.WithLabelValues(metrics.ReasonRateLimited).Inc()
	}
	return decision
}

func (a *AdmissionControl) allowLocked(ip string, now time.Time) bool {
	bucket, ok := a.rate[ip]
	if !ok || !bucket.resetAt.After(now) {
		a.rate[ip] = &windowBucket{count: 1, resetAt: now.Add(a.window)}
		return true
	}
	if bucket.count < a.limit {
		bucket.count++
		return true
	}
	return false
}

func (a *AdmissionControl) resetAfterLocked(ip string, now time.Time) time.Duration {
	bucket, ok := a.rate[ip]
	if !ok {
		return 0
	}
	if remaining := bucket.resetAt.Sub(now); remaining > 0 {
		return remaining
	}
	return 0
}

func (a *AdmissionControl) anomalousLocked(ip string, now time.Time) bool {
	bucket, ok := a.anomaly[ip]
	if !ok || !bucket.resetAt.After(now) {
		a.anomaly[ip] = &windowBucket{count: 1, resetAt: now.Add(a.window)}
		return false
	}
	bucket.count++
	return bucket.count > a.limit*a.multiplier
}

// Sweep 删除窗口已过期的计数，返回删除数量。过期计数与不存在的计数行为一致。
func (a *AdmissionControl) Sweep() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Now()
	removed := sweepBuckets(a.rate, now) + sweepBuckets(a.anomaly, now)

	metrics.AdmissionBuckets.WithLabelValues(metrics.BucketRate).Set(float64(len(a.rate)))
	metrics.AdmissionBuckets.WithLabelValues(metrics.BucketAnomaly).Set(float64(len(a.anomaly)))
	return removed
}

// Len 返回当前限流与异常检测计数的数量。
func (a *AdmissionControl) Len() (rate, anomaly int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.rate), len(a.anomaly)
}

func sweepBuckets(buckets map[string]*windowBucket, now time.Time) int {
	removed := 0
	for ip, bucket := range buckets {
		if !bucket.resetAt.After(now) {
			delete(buckets, ip)
			removed++
		}
	}
	return removed
}

// Serve 周期性执行 Sweep，直到 ctx 结束。
func (a *AdmissionControl) Serve(ctx context.Context) error {
	waiter := a.clock.TickerFunc(ctx, a.sweepEvery, func() error {
		if removed := a.Sweep(); removed > 0 {
			logging.Logger().Debug().Int("removed", removed).Msg("admission buckets swept")
		}
		return nil
	}, "admission", "sweep")

	err := waiter.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ctx.Err()
	}
	return err
}

// String 实现 fmt.Stringer，供 supervisor 日志使用。
func (a *AdmissionControl) String() string {
	return "admission-sweeper"
}
