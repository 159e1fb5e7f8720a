package service

import (
	"fmt"
	"sync"
	"time"
)

type IDGenerator interface {
	NextID() string
}

// TimestampIDGenerator 生成 job-<毫秒时间戳>；同一毫秒内连续提交时顺延 1ms，保证进程内唯一。
type TimestampIDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewTimestampIDGenerator(now func() time.Time) *TimestampIDGenerator {
	if now == nil {
		now = time.Now
	}
	return &TimestampIDGenerator{now: now}
}

func (g *TimestampIDGenerator) NextID() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return fmt.Sprintf("job-%d", ms)
}
