package datastream

import (
	"github.com/Hakuto4838/OrderedIndex.git/index"
)

// DataStream 定義資料流的介面
type DataStream interface {
	Close() error
	Next() int
	GetKeyMap() map[index.K]float64
	GetCDF() []float64
	GetPDF() []float64
	Entropy() float64
}

// OperationType 表示操作種類
type OperationType uint8

const (
	OpQuery OperationType = iota
	OpInsert
	OpDelete
	OpScan
)

func (t OperationType) String() string {
	switch t {
	case OpQuery:
		return "Query"
	case OpInsert:
		return "Insert"
	case OpDelete:
		return "Delete"
	case OpScan:
		return "Scan"
	default:
		return "Unknown"
	}
}

func (t OperationType) valid() bool {
	return t <= OpScan
}

// Operation 表示一筆操作；ScanLen 只對 OpScan 有意義
type Operation struct {
	Type    OperationType
	Key     index.K
	ScanLen uint16
}

// Result 一筆操作在索引上的結果
type Result struct {
	Found bool      // Contains / Delete 的回傳值
	Keys  []index.K // Scan 的結果
}

// Apply 在 idx 上執行 op
func Apply(idx index.OrderedIndex, op Operation) Result {
	switch op.Type {
	case OpQuery:
		return Result{Found: idx.Contains(op.Key)}
	case OpInsert:
		idx.Insert(op.Key)
		return Result{Found: true}
	case OpDelete:
		return Result{Found: idx.Delete(op.Key)}
	case OpScan:
		return Result{Keys: idx.Scan(op.Key, int(op.ScanLen))}
	}
	return Result{}
}

// SequenceModel 以既有的 Operation 序列提供順序重播
type SequenceModel struct {
	ops []Operation
	pos int
}

// NewSequenceModelFromOps 由外部供給的操作序列建立模型
func NewSequenceModelFromOps(ops []Operation) *SequenceModel {
	cp := make([]Operation, len(ops))
	copy(cp, ops)
	return &SequenceModel{ops: cp}
}

// Next 回傳下一筆操作，若結束則回傳零值與 false
func (m *SequenceModel) Next() (Operation, bool) {
	if m.pos >= len(m.ops) {
		return Operation{}, false
	}
	op := m.ops[m.pos]
	m.pos++
	return op, true
}

// NextN 回傳接下來 n 筆（或直到結束）的操作
func (m *SequenceModel) NextN(n int) []Operation {
	if n <= 0 || m.pos >= len(m.ops) {
		return nil
	}
	end := min(m.pos+n, len(m.ops))
	out := make([]Operation, end-m.pos)
	copy(out, m.ops[m.pos:end])
	m.pos = end
	return out
}

func (m *SequenceModel) Len() int { return len(m.ops) }

// Reset 游標重置到起點
func (m *SequenceModel) Reset() { m.pos = 0 }
