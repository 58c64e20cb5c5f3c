package datastream

import (
	"bufio"
	"encoding/binary"
	"encoding/csv"
	"io"
	"maps"
	"math"
	"math/rand/v2"
	"os"
	"slices"
	"strconv"

	"github.com/Hakuto4838/OrderedIndex.git/index"
	"github.com/cockroachdb/errors"
)

// 檔案格式（LittleEndian）：
// [8]byte  Magic: "OIBENCH1"
// uint16   Version: 1
// uint16   Reserved: 0
// uint32   DistCount
// 重複 DistCount 次：
//   uint64  Key
//   float64 Weight
// uint64   OpCount
// 重複 OpCount 次：
//   uint8   OperationType (0=Query,1=Insert,2=Delete,3=Scan)
//   uint64  Key
//   uint16  ScanLen (非 Scan 為 0)

var (
	benchMagic   = [8]byte{'O', 'I', 'B', 'E', 'N', 'C', 'H', '1'}
	benchVersion = uint16(1)
)

// ErrBadBenchFile 檔頭或內容不符合格式
var ErrBadBenchFile = errors.New("malformed bench file")

type BenchFile struct {
	Dist map[index.K]float64
	Ops  []Operation
}

type Distribution string

const (
	DistZipf    Distribution = "zipf"
	DistUniform Distribution = "uniform"
)

// WorkloadConfig 產生操作序列的參數。
//   - N: key 數量
//   - S, V: Zipf 參數，需滿足 S > 1、V >= 1
//   - K: 操作數量，需 >= N 以保證每個 key 至少出現一次
//   - Phase1Ratio: 第一階段佔 K 的比例，第一階段先覆蓋所有 key
//   - DeleteRatio / ScanRatio: key 已存在時轉為 Delete / Scan 的機率
//   - ScanLen: Scan 長度上限，實際長度在 1..ScanLen 間均勻抽取
//   - SimpleKey: key 為打亂的 0..N-1，否則為不重複的隨機 32-bit 值
type WorkloadConfig struct {
	N           int
	Dist        Distribution
	S, V        float64
	Seed        uint64
	K           int
	Phase1Ratio float64
	DeleteRatio float64
	ScanRatio   float64
	ScanLen     int
	SimpleKey   bool
}

func (c WorkloadConfig) phase1Size() int {
	return int(float64(c.K) * c.Phase1Ratio)
}

func (c WorkloadConfig) Validate() error {
	if c.N <= 0 {
		return errors.Newf("n (%d) must be > 0", c.N)
	}
	if c.K < c.N {
		return errors.Newf("k (%d) must be >= n (%d) to ensure each key appears at least once", c.K, c.N)
	}
	if p := c.phase1Size(); p < c.N || p > c.K {
		return errors.Newf("phase1Size (%d) must satisfy n <= phase1Size <= k", p)
	}
	if c.DeleteRatio < 0 || c.ScanRatio < 0 || c.DeleteRatio+c.ScanRatio > 1 {
		return errors.Newf("deleteRatio (%v) and scanRatio (%v) must be >= 0 with sum <= 1", c.DeleteRatio, c.ScanRatio)
	}
	if c.ScanRatio > 0 && (c.ScanLen < 1 || c.ScanLen > math.MaxUint16) {
		return errors.Newf("scanLen (%d) must be in [1,%d]", c.ScanLen, math.MaxUint16)
	}
	switch c.Dist {
	case DistUniform:
	case DistZipf:
		if !(c.S > 1) || !(c.V >= 1) {
			return errors.Newf("zipf requires s > 1 and v >= 1, got s=%v v=%v", c.S, c.V)
		}
	default:
		return errors.Newf("unknown distribution %q", c.Dist)
	}
	return nil
}

// WorkloadInfo 產生結果的摘要
type WorkloadInfo struct {
	Dist    map[index.K]float64
	Entropy float64
	Counts  [OpScan + 1]int
}

// binWriter 第一次失敗後忽略其餘寫入
type binWriter struct {
	w   io.Writer
	err error
}

func (b *binWriter) put(v any) {
	if b.err == nil {
		b.err = binary.Write(b.w, binary.LittleEndian, v)
	}
}

// WriteBenchFile 依 cfg 產生操作序列並寫入 filename
func WriteBenchFile(filename string, cfg WorkloadConfig) (*WorkloadInfo, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid workload")
	}
	file, err := os.Create(filename)
	if err != nil {
		return nil, errors.Wrap(err, "create bench file")
	}
	info, err := WriteBench(file, cfg)
	if cerr := file.Close(); err == nil && cerr != nil {
		err = errors.Wrapf(cerr, "close %s", filename)
	}
	if err != nil {
		return nil, err
	}
	return info, nil
}

// WriteBench 產生操作序列並以 OIBENCH1 格式寫入 w。
// 規則：
//   - 第一階段前 N 筆覆蓋所有 key，其餘依分布補齊後整段打亂
//   - 第二階段依分布抽 key
//   - key 不在表中則 Insert；在表中則依 DeleteRatio / ScanRatio 轉為 Delete / Scan，否則 Query
func WriteBench(w io.Writer, cfg WorkloadConfig) (*WorkloadInfo, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid workload")
	}
	n := cfg.N
	r := rand.New(rand.NewPCG(cfg.Seed, 0))

	var nextRank func() int
	weights := make([]float64, n)
	if cfg.Dist == DistZipf {
		zipf := rand.NewZipf(r, cfg.S, cfg.V, uint64(n-1))
		nextRank = func() int { return int(zipf.Uint64()) }
		// Zipf 理論機率（針對 rank），並正規化
		var sumW float64
		for i := range weights {
			weights[i] = 1.0 / math.Pow(cfg.V+float64(i), cfg.S)
			sumW += weights[i]
		}
		for i := range weights {
			weights[i] /= sumW
		}
	} else {
		nextRank = func() int { return r.IntN(n) }
		for i := range weights {
			weights[i] = 1.0 / float64(n)
		}
	}

	// rank -> key 的隨機對應（不重複）
	rankToKey := make([]index.K, n)
	if cfg.SimpleKey {
		for i := range rankToKey {
			rankToKey[i] = index.K(i)
		}
		r.Shuffle(n, func(i, j int) { rankToKey[i], rankToKey[j] = rankToKey[j], rankToKey[i] })
	} else {
		check := make(map[index.K]struct{}, n)
		for i := range rankToKey {
			genKey := index.K(r.Uint32())
			for _, ok := check[genKey]; ok; _, ok = check[genKey] {
				genKey = index.K(r.Uint32())
			}
			rankToKey[i] = genKey
			check[genKey] = struct{}{}
		}
	}

	info := &WorkloadInfo{Dist: make(map[index.K]float64, n)}
	for rank, k := range rankToKey {
		info.Dist[k] = weights[rank]
	}
	info.Entropy = entropy(weights)

	buf := bufio.NewWriter(w)
	bw := &binWriter{w: buf}
	bw.put(benchMagic)
	bw.put(benchVersion)
	bw.put(uint16(0)) // reserved

	// 分布依 key 升冪輸出，確保可重現
	keys := slices.Sorted(maps.Keys(info.Dist))
	bw.put(uint32(n))
	for _, k := range keys {
		bw.put(k)
		bw.put(info.Dist[k])
	}
	bw.put(uint64(cfg.K))

	present := make(map[index.K]bool, n)
	emit := func(key index.K) {
		op := Operation{Type: OpInsert, Key: key}
		if present[key] {
			switch x := r.Float64(); {
			case x < cfg.DeleteRatio:
				op.Type = OpDelete
			case x < cfg.DeleteRatio+cfg.ScanRatio:
				op.Type = OpScan
				op.ScanLen = uint16(1 + r.IntN(cfg.ScanLen))
			default:
				op.Type = OpQuery
			}
		}
		switch op.Type {
		case OpInsert:
			present[key] = true
		case OpDelete:
			present[key] = false
		}
		info.Counts[op.Type]++
		bw.put(uint8(op.Type))
		bw.put(op.Key)
		bw.put(op.ScanLen)
	}

	// 第一階段
	phase1Keys := make([]index.K, cfg.phase1Size())
	copy(phase1Keys, rankToKey)
	for i := n; i < len(phase1Keys); i++ {
		phase1Keys[i] = rankToKey[nextRank()]
	}
	r.Shuffle(len(phase1Keys), func(i, j int) { phase1Keys[i], phase1Keys[j] = phase1Keys[j], phase1Keys[i] })
	for _, key := range phase1Keys {
		emit(key)
	}

	// 第二階段
	for i := len(phase1Keys); i < cfg.K; i++ {
		emit(rankToKey[nextRank()])
	}

	if bw.err == nil {
		bw.err = buf.Flush()
	}
	if bw.err != nil {
		return nil, errors.Wrap(bw.err, "write bench stream")
	}
	return info, nil
}

// WriteBenchFileFromStream 以 DataStream 產生 k 筆操作，key 為 ds.Next() 回傳的索引。
// 規則：
//   - key 未曾出現過則輸出 Insert
//   - 已出現過則 90% Query、其餘 Insert
func WriteBenchFileFromStream(ds DataStream, k int, seed uint64, filename string) error {
	if ds == nil {
		return errors.New("nil DataStream")
	}
	if k < 0 {
		return errors.Newf("invalid k: %d", k)
	}
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "create bench file")
	}
	defer file.Close()

	r := rand.New(rand.NewPCG(seed, 1))
	dist := ds.GetKeyMap()
	buf := bufio.NewWriter(file)
	bw := &binWriter{w: buf}
	bw.put(benchMagic)
	bw.put(benchVersion)
	bw.put(uint16(0))
	bw.put(uint32(len(dist)))
	for _, key := range slices.Sorted(maps.Keys(dist)) {
		bw.put(key)
		bw.put(dist[key])
	}
	bw.put(uint64(k))

	everSeen := make(map[index.K]bool, len(dist))
	for i := 0; i < k; i++ {
		key := index.K(ds.Next())
		op := OpInsert
		if everSeen[key] && r.Float64() < 0.90 {
			op = OpQuery
		}
		everSeen[key] = true
		bw.put(uint8(op))
		bw.put(key)
		bw.put(uint16(0))
	}

	if bw.err == nil {
		bw.err = buf.Flush()
	}
	if bw.err != nil {
		return errors.Wrap(bw.err, "write bench stream")
	}
	return file.Close()
}

// ReadBenchFile 讀取 bin 檔案，回傳分布與操作序列
func ReadBenchFile(filename string) (*BenchFile, error) {
	fd, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "open bench file")
	}
	defer fd.Close()

	bf, err := ReadBench(bufio.NewReader(fd))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", filename)
	}
	return bf, nil
}

func ReadBench(r io.Reader) (*BenchFile, error) {
	read := func(what string, v any) error {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			err = errors.Wrapf(err, "read %s", what)
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				err = errors.Mark(err, ErrBadBenchFile)
			}
			return err
		}
		return nil
	}

	var magic [8]byte
	if err := read("magic", &magic); err != nil {
		return nil, err
	}
	if magic != benchMagic {
		return nil, errors.Wrapf(ErrBadBenchFile, "invalid magic %q", magic[:])
	}
	var ver, reserved uint16
	if err := read("version", &ver); err != nil {
		return nil, err
	}
	if ver != benchVersion {
		return nil, errors.Wrapf(ErrBadBenchFile, "unsupported version %d", ver)
	}
	if err := read("reserved", &reserved); err != nil {
		return nil, err
	}

	var distCount uint32
	if err := read("distribution size", &distCount); err != nil {
		return nil, err
	}
	// 數量來自檔案內容，預先配置設上限
	dist := make(map[index.K]float64, min(distCount, 1<<20))
	for i := uint32(0); i < distCount; i++ {
		var key index.K
		var weight float64
		if err := read("distribution key", &key); err != nil {
			return nil, err
		}
		if err := read("distribution weight", &weight); err != nil {
			return nil, err
		}
		dist[key] = weight
	}

	var opCount uint64
	if err := read("op count", &opCount); err != nil {
		return nil, err
	}
	ops := make([]Operation, 0, min(opCount, 1<<20))
	for i := uint64(0); i < opCount; i++ {
		var rec struct {
			Type    uint8
			Key     uint64
			ScanLen uint16
		}
		if err := read("op", &rec); err != nil {
			return nil, errors.Wrapf(err, "op %d of %d", i, opCount)
		}
		t := OperationType(rec.Type)
		if !t.valid() {
			return nil, errors.Wrapf(ErrBadBenchFile, "op %d has unknown type %d", i, rec.Type)
		}
		ops = append(ops, Operation{Type: t, Key: rec.Key, ScanLen: rec.ScanLen})
	}

	return &BenchFile{Dist: dist, Ops: ops}, nil
}

// ToSequenceModel 將 BenchFile 轉為可重播的 SequenceModel
func (bf *BenchFile) ToSequenceModel() *SequenceModel {
	if bf == nil {
		return NewSequenceModelFromOps(nil)
	}
	return NewSequenceModelFromOps(bf.Ops)
}

// Entropy 分布的熵（單位：bit）
func (bf *BenchFile) Entropy() float64 {
	return EntropyFromDist(bf.Dist)
}

// EntropyFromDist 計算分布的熵（單位：bit）。
// dist 的 value 應為已正規化的機率；會自動忽略 <= 0 的值。
func EntropyFromDist(dist map[index.K]float64) float64 {
	h := 0.0
	for _, p := range dist {
		if p > 0 {
			h -= p * math.Log2(p)
		}
	}
	return h
}

// DistributeToCSV 兩列：key 與機率，依 key 升冪
func DistributeToCSV(writer *csv.Writer, dist map[index.K]float64) error {
	sortedKeys := slices.Sorted(maps.Keys(dist))

	keys := append(make([]string, 0, len(dist)+1), "key")
	probs := append(make([]string, 0, len(dist)+1), "prob")
	for _, k := range sortedKeys {
		keys = append(keys, strconv.FormatUint(k, 10))
		probs = append(probs, strconv.FormatFloat(dist[k], 'f', 6, 64))
	}
	if err := writer.WriteAll([][]string{keys, probs}); err != nil {
		return errors.Wrap(err, "write distribution csv")
	}
	return nil
}
