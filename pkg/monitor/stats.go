package monitor

import "sync/atomic"

// Stats 记录引擎的运行计数, 全部使用原子操作, 无锁
type Stats struct {
	ObserveCount int64 // samples accepted
	QueryCount   int64 // extrapolations and reads
	HitCount     int64 // queries answered for a known series
	ShockCount   int64 // regime changes detected
}

func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) IncObserve() { atomic.AddInt64(&s.ObserveCount, 1) }
func (s *Stats) IncQuery()   { atomic.AddInt64(&s.QueryCount, 1) }
func (s *Stats) IncHit()     { atomic.AddInt64(&s.HitCount, 1) }
func (s *Stats) IncShock()   { atomic.AddInt64(&s.ShockCount, 1) }

func (s *Stats) Observes() int64 { return atomic.LoadInt64(&s.ObserveCount) }
func (s *Stats) Queries() int64  { return atomic.LoadInt64(&s.QueryCount) }
func (s *Stats) Hits() int64     { return atomic.LoadInt64(&s.HitCount) }
func (s *Stats) Shocks() int64   { return atomic.LoadInt64(&s.ShockCount) }

// HitRatio 返回命中率, 无查询时为 0
func (s *Stats) HitRatio() float64 {
	q := s.Queries()
	if q == 0 {
		return 0
	}
	return float64(s.Hits()) / float64(q)
}

func (s *Stats) Reset() {
	atomic.StoreInt64(&s.ObserveCount, 0)
	atomic.StoreInt64(&s.QueryCount, 0)
	atomic.StoreInt64(&s.HitCount, 0)
	atomic.StoreInt64(&s.ShockCount, 0)
}
