package skiplist

import (
	"github.com/Hakuto4838/OrderedIndex.git/index"
	"github.com/cockroachdb/errors"
)

// Nodelike 提供分析工具走訪節點的唯讀介面
type Nodelike interface {
	GetKey() index.K
	// GetLevel 節點最高層的索引（0-based）
	GetLevel() int32
	GetNextAt(level int32) Nodelike
}

// Analyable 分析工具需要的 skip list 視圖
type Analyable interface {
	GetHead() Nodelike
	// GetMaxStats 獲取節點數和目前最高層級
	GetMaxStats() (maxNodes int, maxLevel int)
}

func (nd *node) GetKey() index.K {
	return nd.key
}

func (nd *node) GetLevel() int32 {
	return int32(len(nd.next) - 1)
}

func (nd *node) GetNextAt(level int32) Nodelike {
	if level < 0 || level >= int32(len(nd.next)) {
		return nil
	}
	if nd.next[level] == nil {
		return nil
	}
	return nd.next[level]
}

func (sl *SkipList) GetHead() Nodelike {
	return sl.head
}

// GetMaxStats 回傳節點數與目前最高層的索引（0-based）
func (sl *SkipList) GetMaxStats() (maxNodes int, maxLevel int) {
	return sl.size, sl.level - 1
}

// Check 驗證：每層嚴格遞增（允許重複時為非遞減）、tower 巢狀、
// 目前層數以上全空、節點數與 size 一致
func (sl *SkipList) Check() error {
	if sl.level < 1 || sl.level > sl.maxLevel {
		return errors.AssertionFailedf("level %d outside [1,%d]", sl.level, sl.maxLevel)
	}
	for h := sl.level; h < sl.maxLevel; h++ {
		if sl.head.next[h] != nil {
			return errors.AssertionFailedf("level %d above current level %d is not empty", h, sl.level)
		}
	}

	// heights[h] = level 0 上高度 > h 的節點數
	heights := make([]int, sl.maxLevel)
	count := 0
	for cur := sl.head.next[0]; cur != nil; cur = cur.next[0] {
		if len(cur.next) < 1 || len(cur.next) > sl.maxLevel {
			return errors.AssertionFailedf("node %d has height %d", cur.key, len(cur.next))
		}
		for h := range cur.next {
			heights[h]++
		}
		count++
	}
	if count != sl.size {
		return errors.AssertionFailedf("level 0 holds %d nodes, size is %d", count, sl.size)
	}
	for h := sl.level; h < sl.maxLevel; h++ {
		if heights[h] != 0 {
			return errors.AssertionFailedf("%d towers exceed current level %d", heights[h], sl.level)
		}
	}

	for h := 0; h < sl.level; h++ {
		n := 0
		below := sl.head
		var prev *node
		for cur := sl.head.next[h]; cur != nil; cur = cur.next[h] {
			if len(cur.next) <= h {
				return errors.AssertionFailedf("node %d linked at level %d beyond its height %d", cur.key, h, len(cur.next))
			}
			if prev != nil {
				if prev.key > cur.key || (!sl.allowDup && prev.key == cur.key) {
					return errors.AssertionFailedf("level %d out of order: %d before %d", h, prev.key, cur.key)
				}
			}
			if h > 0 {
				// level h 必須是 level h-1 的子序列
				for below != nil && below != cur {
					below = below.next[h-1]
				}
				if below == nil {
					return errors.AssertionFailedf("node %d at level %d missing from level %d", cur.key, h, h-1)
				}
			}
			prev = cur
			n++
		}
		if n != heights[h] {
			return errors.AssertionFailedf("level %d links %d nodes, %d towers reach it", h, n, heights[h])
		}
	}
	return nil
}
