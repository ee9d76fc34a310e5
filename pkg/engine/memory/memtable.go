package memory

import (
	"sync"

	"github.com/google/btree"

	"polyapprox/pkg/common"
)

// Item 是内存表中的一条样本, 按时间排序
type Item struct {
	Time  float64
	Value float64
}

func (i Item) Less(other btree.Item) bool {
	return i.Time < other.(Item).Time
}

// MemTable holds the recent window of one series in a btree so
// history queries can range-scan without touching disk.
type MemTable struct {
	mu   sync.RWMutex
	tree *btree.BTree
}

func NewMemTable() *MemTable {
	return &MemTable{
		tree: btree.New(32),
	}
}

func (m *MemTable) Put(t, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tree.ReplaceOrInsert(Item{Time: t, Value: v})
}

func (m *MemTable) Get(t float64) (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it := m.tree.Get(Item{Time: t})
	if it == nil {
		return 0, false
	}
	return it.(Item).Value, true
}

func (m *MemTable) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.Len()
}

// Scan 返回 [from, to] 时间窗口内的样本, 升序
func (m *MemTable) Scan(series string, from, to float64) []common.Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []common.Sample
	m.tree.AscendGreaterOrEqual(Item{Time: from}, func(bi btree.Item) bool {
		it := bi.(Item)
		if it.Time > to {
			return false
		}
		out = append(out, common.Sample{Series: series, Time: it.Time, Value: it.Value})
		return true
	})
	return out
}

// All returns every sample in ascending time order.
func (m *MemTable) All(series string) []common.Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]common.Sample, 0, m.tree.Len())
	m.tree.Ascend(func(bi btree.Item) bool {
		it := bi.(Item)
		out = append(out, common.Sample{Series: series, Time: it.Time, Value: it.Value})
		return true
	})
	return out
}

// Reset drops all samples, keeping the table usable.
func (m *MemTable) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tree.Clear(false)
}
