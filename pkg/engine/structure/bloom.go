package structure

import (
	"hash/fnv"
	"math"
	"sync"
)

// BloomFilter 用于在查询前快速判断序列名是否存在, 避免无效的锁竞争
type BloomFilter struct {
	mu     sync.RWMutex
	bits   []uint64
	size   uint
	hashes uint
}

// NewBloomFilter sizes the filter for n expected series names at the
// given false positive rate.
func NewBloomFilter(n uint, falseProb float64) *BloomFilter {
	if n == 0 {
		n = 1
	}
	size := uint(math.Ceil(-float64(n) * math.Log(falseProb) / (math.Ln2 * math.Ln2)))
	hashes := uint(math.Round(float64(size) / float64(n) * math.Ln2))
	if hashes < 1 {
		hashes = 1
	}

	return &BloomFilter{
		bits:   make([]uint64, (size+63)/64),
		size:   size,
		hashes: hashes,
	}
}

// 双重哈希: h1 + i*h2 派生 k 个哈希值
func (b *BloomFilter) hashPair(name string) (uint32, uint32) {
	h1 := fnv.New32a()
	h1.Write([]byte(name))
	v1 := h1.Sum32()

	h2 := fnv.New32()
	h2.Write([]byte(name))
	v2 := h2.Sum32() | 1 // odd so the stride covers the table

	return v1, v2
}

func (b *BloomFilter) Add(name string) {
	v1, v2 := b.hashPair(name)

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := uint(0); i < b.hashes; i++ {
		pos := (uint(v1) + i*uint(v2)) % b.size
		b.bits[pos/64] |= 1 << (pos % 64)
	}
}

// MayContain 返回 false 时序列一定不存在
func (b *BloomFilter) MayContain(name string) bool {
	v1, v2 := b.hashPair(name)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for i := uint(0); i < b.hashes; i++ {
		pos := (uint(v1) + i*uint(v2)) % b.size
		if b.bits[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}
	return true
}

func (b *BloomFilter) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.bits {
		b.bits[i] = 0
	}
}
