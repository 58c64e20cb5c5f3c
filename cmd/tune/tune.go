package main

import (
	"math"
	"math/bits"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/Hakuto4838/OrderedIndex.git/datastream"
	"github.com/Hakuto4838/OrderedIndex.git/index"
	"github.com/Hakuto4838/OrderedIndex.git/index/analyTool"
	"github.com/Hakuto4838/OrderedIndex.git/index/bplustree"
	"github.com/Hakuto4838/OrderedIndex.git/index/filtered"
	"github.com/Hakuto4838/OrderedIndex.git/index/impls"
	"github.com/Hakuto4838/OrderedIndex.git/index/skiplist"
	"github.com/Hakuto4838/OrderedIndex.git/saalgo"
	"github.com/cockroachdb/errors"
)

// family 決定要調整哪些參數
type family int

const (
	skipFamily family = iota // maxLevel, p
	treeFamily               // degree
)

func familyOf(impl string) family {
	if strings.HasPrefix(impl, "bplustree") {
		return treeFamily
	}
	return skipFamily
}

type costKind string

const (
	costTime  costKind = "time"  // 重播總耗時 (ms)
	costSteps costKind = "steps" // 重播後的結構搜尋成本，可重現
)

func parseCostKind(s string) (costKind, error) {
	switch k := costKind(s); k {
	case costTime, costSteps:
		return k, nil
	}
	return "", errors.Newf("unknown cost %q (time or steps)", s)
}

// candidate 一組待評估的參數，未使用的欄位保持零值
type candidate struct {
	MaxLevel int
	Prob     float64
	Degree   int
}

// evaluator 計算 candidate 在所有 benchmark 上的成本並快取結果
type evaluator struct {
	impl    string
	fam     family
	base    impls.Params
	benches []*datastream.BenchFile
	runs    int
	kind    costKind
	memo    map[candidate]float64
}

func newEvaluator(impl string, base impls.Params, benches []*datastream.BenchFile, runs int, kind costKind) *evaluator {
	if kind == costSteps {
		runs = 1
	}
	return &evaluator{
		impl:    impl,
		fam:     familyOf(impl),
		base:    base,
		benches: benches,
		runs:    max(runs, 1),
		kind:    kind,
		memo:    map[candidate]float64{},
	}
}

func (e *evaluator) params(c candidate) impls.Params {
	p := e.base
	if e.fam == skipFamily {
		p.MaxLevel, p.Probability = c.MaxLevel, c.Prob
	} else {
		p.Degree = c.Degree
	}
	return p
}

// cost 每個檔案取 runs 次平均後加總
func (e *evaluator) cost(c candidate) (float64, error) {
	if v, ok := e.memo[c]; ok {
		return v, nil
	}
	var total float64
	for _, bf := range e.benches {
		var fileCost float64
		for i := 0; i < e.runs; i++ {
			idx, err := impls.New(e.impl, e.params(c))
			if err != nil {
				return 0, errors.Wrapf(err, "candidate %+v", c)
			}
			start := time.Now()
			for _, op := range bf.Ops {
				datastream.Apply(idx, op)
			}
			elapsed := time.Since(start)
			if e.kind == costTime {
				fileCost += float64(elapsed.Microseconds()) / 1000.0
			} else {
				fileCost += structuralCost(idx, bf.Dist)
			}
		}
		total += fileCost / float64(e.runs)
	}
	e.memo[c] = total
	return total, nil
}

// structuralCost skip list 為期望搜尋步數；B+ tree 為每次查找的比較次數 height*ceil(log2 d)
func structuralCost(idx index.OrderedIndex, dist map[index.K]float64) float64 {
	if f, ok := idx.(*filtered.Index); ok {
		idx = f.Inner()
	}
	switch s := idx.(type) {
	case *skiplist.SkipList:
		avg, _ := analyTool.AnalyzeStep(s, present(s, dist))
		return avg
	case *bplustree.Tree:
		return float64(s.Stats().Height * bits.Len(uint(s.Degree()-1)))
	}
	return math.Inf(1)
}

// present 只保留仍在索引中的 key
func present(idx index.OrderedIndex, dist map[index.K]float64) map[index.K]float64 {
	out := make(map[index.K]float64, idx.Len())
	for k := range idx.All() {
		out[k] = dist[k]
	}
	return out
}

// searchSpace 網格與退火共用的範圍；degree 在網格中每步加倍
type searchSpace struct {
	PMin, PMax, PStep float64
	LMin, LMax, LStep int
	DMin, DMax        int
}

func (s searchSpace) validate(f family) error {
	if f == skipFamily {
		if !(s.PMin > 0 && s.PMax < 1 && s.PMin <= s.PMax && s.PStep > 0) {
			return index.InvalidConfigf("p range [%v,%v] step %v must lie in (0,1)", s.PMin, s.PMax, s.PStep)
		}
		if s.LMin < 1 || s.LMin > s.LMax || s.LStep < 1 {
			return index.InvalidConfigf("level range [%d,%d] step %d", s.LMin, s.LMax, s.LStep)
		}
		return nil
	}
	if s.DMin < 3 || s.DMin > s.DMax {
		return index.InvalidConfigf("degree range [%d,%d] must start at >= 3", s.DMin, s.DMax)
	}
	return nil
}

func (s searchSpace) grid(f family) []candidate {
	var out []candidate
	if f == treeFamily {
		for d := s.DMin; d <= s.DMax; d *= 2 {
			out = append(out, candidate{Degree: d})
		}
		return out
	}
	for l := s.LMin; l <= s.LMax; l += s.LStep {
		for i := 0; ; i++ {
			p := s.PMin + float64(i)*s.PStep
			if p > s.PMax+1e-9 { // 浮點誤差
				break
			}
			out = append(out, candidate{MaxLevel: l, Prob: p})
		}
	}
	return out
}

func (s searchSpace) start(f family) candidate {
	if f == treeFamily {
		return candidate{Degree: s.DMin}
	}
	return candidate{MaxLevel: s.LMin, Prob: s.PMin}
}

// neighbor 只移動一個維度，結果夾在範圍內
func (s searchSpace) neighbor(f family, c candidate, r *rand.Rand) candidate {
	if f == treeFamily {
		switch r.IntN(4) {
		case 0:
			c.Degree *= 2
		case 1:
			c.Degree /= 2
		case 2:
			c.Degree++
		default:
			c.Degree--
		}
		c.Degree = min(max(c.Degree, s.DMin), s.DMax)
		return c
	}
	sign := 1 - 2*r.IntN(2)
	if r.IntN(2) == 0 {
		c.MaxLevel = min(max(c.MaxLevel+sign, s.LMin), s.LMax)
		return c
	}
	steps := math.Round((c.Prob - s.PMin) / s.PStep)
	c.Prob = min(max(s.PMin+(steps+float64(sign))*s.PStep, s.PMin), s.PMax)
	return c
}

type gridPoint struct {
	c    candidate
	cost float64
}

// gridSearch 依序評估網格上每個點，visit 可為 nil
func gridSearch(e *evaluator, space searchSpace, visit func(i, total int, pt gridPoint)) (gridPoint, error) {
	best := gridPoint{cost: math.Inf(1)}
	points := space.grid(e.fam)
	for i, c := range points {
		cost, err := e.cost(c)
		if err != nil {
			return best, err
		}
		pt := gridPoint{c: c, cost: cost}
		if visit != nil {
			visit(i, len(points), pt)
		}
		if cost < best.cost {
			best = pt
		}
	}
	return best, nil
}

// solution 讓 saalgo 在 searchSpace 上移動
type solution struct {
	c     candidate
	e     *evaluator
	space searchSpace
	cost  float64
}

func newSolution(e *evaluator, space searchSpace, c candidate) (*solution, error) {
	cost, err := e.cost(c)
	if err != nil {
		return nil, err
	}
	return &solution{c: c, e: e, space: space, cost: cost}, nil
}

func (s *solution) Clone() saalgo.Solution {
	cp := *s
	return &cp
}

func (s *solution) GetCost() float64 { return s.cost }

func (s *solution) GenerateNeighbor(r *rand.Rand) saalgo.Solution {
	c := s.space.neighbor(s.e.fam, s.c, r)
	cost, err := s.e.cost(c)
	if err != nil {
		cost = math.Inf(1)
	}
	return &solution{c: c, e: s.e, space: s.space, cost: cost}
}
