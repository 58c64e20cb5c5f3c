package datastream

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/Hakuto4838/OrderedIndex.git/index"
)

// ZipfDataGenerator 產生符合 Zipf 分布的查詢序列；權重打亂後對應到 0..n-1
type ZipfDataGenerator struct {
	n       int
	a, b    float64
	Weights []float64
	cdf     []float64
	rng     *rand.Rand
}

func NewZipfDataGenerator(n int, a, b float64, seed uint64) *ZipfDataGenerator {
	rng := rand.New(rand.NewPCG(seed, 0))
	weights := make([]float64, n)
	var sum float64
	for i := 1; i <= n; i++ {
		weights[i-1] = 1.0 / math.Pow(float64(i)+b, a)
		sum += weights[i-1]
	}
	// 正規化
	for i := range weights {
		weights[i] /= sum
	}
	rng.Shuffle(len(weights), func(i, j int) {
		weights[i], weights[j] = weights[j], weights[i]
	})
	return &ZipfDataGenerator{
		n:       n,
		a:       a,
		b:       b,
		Weights: weights,
		cdf:     cumulative(weights),
		rng:     rng,
	}
}

func cumulative(weights []float64) []float64 {
	cdf := make([]float64, len(weights))
	sum := 0.0
	for i, w := range weights {
		sum += w
		cdf[i] = sum
	}
	return cdf
}

// sampleCDF 回傳第一個 cdf >= r 的位置
func sampleCDF(cdf []float64, r float64) int {
	i, _ := slices.BinarySearch(cdf, r)
	return min(i, len(cdf)-1)
}

// Next 產生一筆查詢 (回傳索引 0~n-1)
func (z *ZipfDataGenerator) Next() int {
	return sampleCDF(z.cdf, z.rng.Float64())
}

// GenerateSequence 產生指定長度的查詢序列
func (z *ZipfDataGenerator) GenerateSequence(seqLen int) []int {
	seq := make([]int, seqLen)
	for i := range seq {
		seq[i] = z.Next()
	}
	return seq
}

func (z *ZipfDataGenerator) Close() error {
	return nil
}

func (z *ZipfDataGenerator) GetKeyMap() map[index.K]float64 {
	result := make(map[index.K]float64, z.n)
	for i, w := range z.Weights {
		result[index.K(i)] = w
	}
	return result
}

// GetCDF 回傳新的 slice，避免汙染內部狀態
func (z *ZipfDataGenerator) GetCDF() []float64 {
	return slices.Clone(z.cdf)
}

func (z *ZipfDataGenerator) GetPDF() []float64 {
	return slices.Clone(z.Weights)
}

func (z *ZipfDataGenerator) Entropy() float64 {
	return entropy(z.Weights)
}

func entropy(pdf []float64) float64 {
	h := 0.0
	for _, p := range pdf {
		if p > 0 {
			h -= p * math.Log2(p)
		}
	}
	return h
}
