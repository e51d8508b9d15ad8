// internal/workers/ai-conversation/route-engine/state.go
package routeengine

import (
	"sync"
	"time"

	"askora/internal/common/cache"
)

// DailyQuota counts completion attempts per local calendar day. The count
// resets the first time it is touched on a new date.
type DailyQuota struct {
	mu    sync.Mutex
	limit int
	day   string
	used  int
	now   func() time.Time
}

func NewDailyQuota(limit int) *DailyQuota {
	if limit <= 0 {
		limit = 20
	}
	return &DailyQuota{limit: limit, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (q *DailyQuota) WithClock(now func() time.Time) *DailyQuota {
	q.now = now
	return q
}

func (q *DailyQuota) Limit() int {
	return q.limit
}

// Used returns today's count.
func (q *DailyQuota) Used() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rollover()
	return q.used
}

func (q *DailyQuota) Exceeded() bool {
	return q.Used() >= q.limit
}

// Consume records one attempt and returns the new count.
func (q *DailyQuota) Consume() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rollover()
	q.used++
	return q.used
}

func (q *DailyQuota) rollover() {
	today := q.now().Format("2006-01-02")
	if today != q.day {
		q.day = today
		q.used = 0
	}
}

// State is the mutable data an engine shares across requests. Each engine
// owns one; tests inject a fresh one.
type State struct {
	Cache cache.AnswerCache
	Quota *DailyQuota
}

func NewState(limit int) *State {
	return &State{
		Cache: cache.NewMemoryCache(),
		Quota: NewDailyQuota(limit),
	}
}
