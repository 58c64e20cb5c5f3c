package datastream

import (
	"math"
	"math/rand/v2"

	"github.com/Hakuto4838/OrderedIndex.git/index"
)

// UniformDataGenerator 產生符合平均分布的查詢序列
// 每個索引出現機率皆相同
type UniformDataGenerator struct {
	n   int
	rng *rand.Rand
}

func NewUniformDataGenerator(n int, seed uint64) *UniformDataGenerator {
	return &UniformDataGenerator{
		n:   n,
		rng: rand.New(rand.NewPCG(seed, 0)),
	}
}

// Next 產生一筆查詢 (回傳索引 0~n-1)
func (u *UniformDataGenerator) Next() int {
	return u.rng.IntN(u.n)
}

// GenerateSequence 產生指定長度的查詢序列
func (u *UniformDataGenerator) GenerateSequence(seqLen int) []int {
	seq := make([]int, seqLen)
	for i := range seq {
		seq[i] = u.Next()
	}
	return seq
}

func (u *UniformDataGenerator) Close() error {
	return nil
}

func (u *UniformDataGenerator) GetKeyMap() map[index.K]float64 {
	result := make(map[index.K]float64, u.n)
	for i := 0; i < u.n; i++ {
		result[index.K(i)] = 1.0 / float64(u.n)
	}
	return result
}

func (u *UniformDataGenerator) GetCDF() []float64 {
	cdf := make([]float64, u.n)
	for i := range cdf {
		cdf[i] = float64(i+1) / float64(u.n)
	}
	return cdf
}

func (u *UniformDataGenerator) GetPDF() []float64 {
	pdf := make([]float64, u.n)
	for i := range pdf {
		pdf[i] = 1.0 / float64(u.n)
	}
	return pdf
}

func (u *UniformDataGenerator) Entropy() float64 {
	if u.n <= 0 {
		return 0
	}
	return math.Log2(float64(u.n))
}
