// Package filtered 在任意 OrderedIndex 前面加一層 bloom filter，
// 讓不存在的 key 在 Contains/Delete 時不必走進底層結構
package filtered

import (
	"encoding/binary"
	"fmt"
	"io"
	"iter"
	"math"

	"github.com/Hakuto4838/OrderedIndex.git/index"
	"github.com/bits-and-blooms/bloom/v3"
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

type Stats struct {
	Lookups  uint64 // Contains + Delete 呼叫數
	Skipped  uint64 // filter 判定不存在而直接回傳
	Stale    uint64 // 上次重建後的刪除數
	Rebuilds uint64
	Bits     uint
	Hashes   uint
}

// Index 刪除不會清除 filter bit，因此只會有 false positive，不會有 false negative
type Index struct {
	inner    index.OrderedIndex
	filter   *bloom.BloomFilter
	expected uint
	fpRate   float64
	stats    Stats
	buf      [8]byte
	log      logrus.FieldLogger
}

type Option func(*Index)

func WithLogger(l logrus.FieldLogger) Option {
	return func(f *Index) { f.log = l }
}

// New 包裝 inner；inner 已有的 key 會先載入 filter
func New(inner index.OrderedIndex, expected uint, fpRate float64, opts ...Option) (*Index, error) {
	if inner == nil {
		return nil, index.InvalidConfigf("filtered: inner index is nil")
	}
	if expected == 0 {
		return nil, index.InvalidConfigf("filtered: expected key count must be > 0")
	}
	if !(fpRate > 0 && fpRate < 1) || math.IsNaN(fpRate) {
		return nil, index.InvalidConfigf("filtered: false positive rate must be in (0,1), got %v", fpRate)
	}
	f := &Index{
		inner:    inner,
		expected: expected,
		fpRate:   fpRate,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.Rebuild()
	return f, nil
}

func (f *Index) encode(key index.K) []byte {
	binary.BigEndian.PutUint64(f.buf[:], key)
	return f.buf[:]
}

// Inner 回傳被包裝的索引
func (f *Index) Inner() index.OrderedIndex {
	return f.inner
}

func (f *Index) Insert(key index.K) {
	f.filter.Add(f.encode(key))
	f.inner.Insert(key)
}

func (f *Index) Contains(key index.K) bool {
	f.stats.Lookups++
	if !f.filter.Test(f.encode(key)) {
		f.stats.Skipped++
		return false
	}
	return f.inner.Contains(key)
}

func (f *Index) Delete(key index.K) bool {
	f.stats.Lookups++
	if !f.filter.Test(f.encode(key)) {
		f.stats.Skipped++
		return false
	}
	if !f.inner.Delete(key) {
		return false
	}
	f.stats.Stale++
	if f.stats.Stale > uint64(f.inner.Len()) {
		f.Rebuild()
	}
	return true
}

func (f *Index) Scan(key index.K, n int) []index.K {
	return f.inner.Scan(key, n)
}

func (f *Index) Len() int {
	return f.inner.Len()
}

func (f *Index) All() iter.Seq[index.K] {
	return f.inner.All()
}

// Rebuild 以目前的 key 重新建立 filter，清掉刪除留下的 bit
func (f *Index) Rebuild() {
	n := max(f.expected, uint(f.inner.Len()))
	f.filter = bloom.NewWithEstimates(n, f.fpRate)
	for k := range f.inner.All() {
		f.filter.Add(f.encode(k))
	}
	f.stats.Stale = 0
	f.stats.Rebuilds++
	f.log.Debugf("BLOOM_REBUILD keys=%d bits=%d hashes=%d", f.inner.Len(), f.filter.Cap(), f.filter.K())
}

func (f *Index) Stats() Stats {
	s := f.stats
	s.Bits = f.filter.Cap()
	s.Hashes = f.filter.K()
	return s
}

func (f *Index) Print(w io.Writer) {
	s := f.Stats()
	fmt.Fprintf(w, "Bloom bits=%d hashes=%d lookups=%d skipped=%d stale=%d\n",
		s.Bits, s.Hashes, s.Lookups, s.Skipped, s.Stale)
	f.inner.Print(w)
}

// Check 驗證底層結構，並確認每個 key 都能通過 filter
func (f *Index) Check() error {
	if c, ok := f.inner.(index.Checker); ok {
		if err := c.Check(); err != nil {
			return err
		}
	}
	for k := range f.inner.All() {
		if !f.filter.Test(f.encode(k)) {
			return errors.AssertionFailedf("key %d present in index but rejected by bloom filter", k)
		}
	}
	return nil
}
