package index

import (
	"io"
	"iter"
)

// K 固定寬度的無號整數 key，以標準比較定義全序
type K = uint64

// OrderedIndex 所有有序索引實作共用的介面
type OrderedIndex interface {
	// Insert 插入 key；重複 key 的處理方式由實作決定並記錄於其文件
	Insert(key K)
	// Contains 回傳 key 是否存在
	Contains(key K) bool
	// Scan 由第一個 >= key 的位置開始，依升冪回傳最多 n 個 key
	Scan(key K, n int) []K
	// Delete 移除 key，僅在 key 存在且被移除時回傳 true
	Delete(key K) bool
	// Print 輸出除錯用的結構傾印，格式不保證穩定
	Print(w io.Writer)
	// Len 目前儲存的 key 數量
	Len() int
	// All 依升冪走訪所有 key
	All() iter.Seq[K]
}

// Checker 提供完整結構檢查，回傳第一個違反的不變量
type Checker interface {
	Check() error
}

// CheckedIndex 同時具備檢查功能的索引
type CheckedIndex interface {
	OrderedIndex
	Checker
}
