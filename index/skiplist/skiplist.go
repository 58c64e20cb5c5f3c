package skiplist

import (
	"fmt"
	"io"
	"iter"
	"math/rand/v2"
	"time"

	"github.com/Hakuto4838/OrderedIndex.git/index"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxLevel    = 16
	DefaultProbability = 0.5
)

// node 持有一個 key 與 next[0..level) 的 forward 參考（tower）
type node struct {
	key  index.K
	next []*node
}

func newNode(key index.K, level int) *node {
	return &node{
		key:  key,
		next: make([]*node, level),
	}
}

// SkipList 機率式多層單向鏈結串列，單執行緒使用
type SkipList struct {
	head        *node
	maxLevel    int
	probability float64
	level       int // 目前使用中的層數（1-based），head 以上的層皆為空
	size        int
	rand        *rand.Rand
	update      []*node // 每次下降記錄的 update[i]，避免每個操作重新配置

	allowDup bool
	checks   bool
	log      logrus.FieldLogger
}

type Option func(*SkipList)

// WithSeed 使用固定種子的 PCG 亂數源，讓層數序列可重現
func WithSeed(seed uint64) Option {
	return func(sl *SkipList) {
		sl.rand = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithRand 直接注入亂數產生器
func WithRand(r *rand.Rand) Option {
	return func(sl *SkipList) { sl.rand = r }
}

// WithDuplicates 允許重複 key（每次 Insert 都建立新節點）
func WithDuplicates(allow bool) Option {
	return func(sl *SkipList) { sl.allowDup = allow }
}

// WithInvariantChecks 每次變更後執行 Check，失敗即 panic
func WithInvariantChecks(enabled bool) Option {
	return func(sl *SkipList) { sl.checks = enabled }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(sl *SkipList) { sl.log = l }
}

// New 建立 skip list；maxLevel 必須 >= 1，probability 必須位於 (0,1)
func New(maxLevel int, probability float64, opts ...Option) (*SkipList, error) {
	if maxLevel < 1 {
		return nil, index.InvalidConfigf("skiplist: max level must be >= 1, got %d", maxLevel)
	}
	if !(probability > 0 && probability < 1) {
		return nil, index.InvalidConfigf("skiplist: probability must be in (0,1), got %v", probability)
	}
	sl := &SkipList{
		head:        newNode(0, maxLevel),
		maxLevel:    maxLevel,
		probability: probability,
		level:       1,
		update:      make([]*node, maxLevel),
		log:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(sl)
	}
	if sl.rand == nil {
		seed := uint64(time.Now().UnixNano())
		sl.rand = rand.New(rand.NewPCG(seed, 0))
	}
	return sl, nil
}

// RandomLevel 由 1 開始，每次亂數 < probability 且未達 maxLevel 就升一層
func (sl *SkipList) RandomLevel() int {
	lvl := 1
	for sl.rand.Float64() < sl.probability && lvl < sl.maxLevel {
		lvl++
	}
	return lvl
}

// descend 由最高層往下走，回傳 level 0 上最後一個 key < target 的節點。
// update 非 nil 時記錄每層最後拜訪的節點。
func (sl *SkipList) descend(key index.K, update []*node) *node {
	cur := sl.head
	for h := sl.level - 1; h >= 0; h-- {
		for cur.next[h] != nil && cur.next[h].key < key {
			cur = cur.next[h]
		}
		if update != nil {
			update[h] = cur
		}
	}
	return cur
}

// Insert 插入 key。預設拒絕重複 key（no-op）；WithDuplicates(true) 時建立第二個節點
func (sl *SkipList) Insert(key index.K) {
	prev := sl.descend(key, sl.update)
	if !sl.allowDup && prev.next[0] != nil && prev.next[0].key == key {
		return
	}

	lvl := sl.RandomLevel()
	if lvl > sl.level {
		for h := sl.level; h < lvl; h++ {
			sl.update[h] = sl.head
		}
		sl.log.Debugf("LEVEL_GROW key=%d from=%d to=%d", key, sl.level, lvl)
		sl.level = lvl
	}

	nd := newNode(key, lvl)
	for h := 0; h < lvl; h++ {
		nd.next[h] = sl.update[h].next[h]
		sl.update[h].next[h] = nd
	}
	sl.size++

	if sl.checks {
		index.MustCheck(sl, "Insert", key)
	}
}

// Contains 下降後在 level 0 前進一步，比對是否完全相等
func (sl *SkipList) Contains(key index.K) bool {
	nxt := sl.descend(key, nil).next[0]
	return nxt != nil && nxt.key == key
}

// Delete 移除一個 key 節點；由 level 0 往上解除連結，遇到不指向目標的層即停止
func (sl *SkipList) Delete(key index.K) bool {
	target := sl.descend(key, sl.update).next[0]
	if target == nil || target.key != key {
		return false
	}

	for h := 0; h < sl.level; h++ {
		if sl.update[h].next[h] != target {
			break
		}
		sl.update[h].next[h] = target.next[h]
	}
	// 已完全解除連結，清掉 tower 讓節點不再持有任何參考
	clear(target.next)

	for sl.level > 1 && sl.head.next[sl.level-1] == nil {
		sl.level--
	}
	sl.size--

	if sl.checks {
		index.MustCheck(sl, "Delete", key)
	}
	return true
}

// Scan 找到第一個 >= key 的節點後沿 level 0 收集最多 n 個 key
func (sl *SkipList) Scan(key index.K, n int) []index.K {
	if n <= 0 {
		return []index.K{}
	}
	out := make([]index.K, 0, min(n, sl.size))
	for cur := sl.descend(key, nil).next[0]; cur != nil && len(out) < n; cur = cur.next[0] {
		out = append(out, cur.key)
	}
	return out
}

// Ascend 由第一個 >= from 的 key 開始依序走訪
func (sl *SkipList) Ascend(from index.K) iter.Seq[index.K] {
	return func(yield func(index.K) bool) {
		for cur := sl.descend(from, nil).next[0]; cur != nil; cur = cur.next[0] {
			if !yield(cur.key) {
				return
			}
		}
	}
}

func (sl *SkipList) All() iter.Seq[index.K] {
	return func(yield func(index.K) bool) {
		for cur := sl.head.next[0]; cur != nil; cur = cur.next[0] {
			if !yield(cur.key) {
				return
			}
		}
	}
}

func (sl *SkipList) Len() int {
	return sl.size
}

// Print 由上而下逐層輸出該層的 key
func (sl *SkipList) Print(w io.Writer) {
	fmt.Fprintf(w, "SkipList size=%d level=%d max=%d\n", sl.size, sl.level, sl.maxLevel)
	for h := sl.level - 1; h >= 0; h-- {
		fmt.Fprintf(w, "Level %2d:", h)
		for cur := sl.head.next[h]; cur != nil; cur = cur.next[h] {
			fmt.Fprintf(w, " %d", cur.key)
		}
		fmt.Fprintln(w)
	}
}
