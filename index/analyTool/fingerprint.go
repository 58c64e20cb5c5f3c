package analyTool

import (
	"encoding/binary"

	"github.com/Hakuto4838/OrderedIndex.git/index"
	"github.com/cespare/xxhash/v2"
)

// Fingerprint 依升冪走訪所有 key 計算 xxhash；內容相同的索引指紋相同，與實作無關
func Fingerprint(idx index.OrderedIndex) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for k := range idx.All() {
		binary.LittleEndian.PutUint64(buf[:], k)
		d.Write(buf[:])
	}
	return d.Sum64()
}

// ScanFingerprint 只雜湊一次 Scan 的結果
func ScanFingerprint(keys []index.K) uint64 {
	buf := make([]byte, 8*len(keys))
	for i, k := range keys {
		binary.LittleEndian.PutUint64(buf[i*8:], k)
	}
	return xxhash.Sum64(buf)
}
