package saalgo

import (
	"math/rand/v2"
	"testing"

	"github.com/Hakuto4838/OrderedIndex.git/index"
	"github.com/cockroachdb/errors"
)

// point 在 [0,100] 的整數上找 (x-37)^2 的最小值
type point struct{ x int }

func (p point) Clone() Solution  { return p }
func (p point) GetCost() float64 { return float64((p.x - 37) * (p.x - 37)) }

func (p point) GenerateNeighbor(r *rand.Rand) Solution {
	x := p.x + r.IntN(7) - 3
	return point{x: min(max(x, 0), 100)}
}

func TestRunFindsMinimum(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxIterations = 5000
	sa, err := NewSimulatedAnnealing(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	best, cost := sa.Run(point{x: 95})
	if cost != 0 || best.(point).x != 37 {
		t.Fatalf("best = %+v cost %v, want x=37 cost 0", best, cost)
	}
	if sa.GetIterations() > cfg.MaxIterations {
		t.Fatalf("ran %d iterations, limit %d", sa.GetIterations(), cfg.MaxIterations)
	}
	if sa.GetBestCost() != cost || sa.GetBestSolution() != best {
		t.Fatal("getters disagree with Run result")
	}
}

func TestRunIsDeterministic(t *testing.T) {
	run := func() []float64 {
		var costs []float64
		cfg := &SAConfig{InitialTemp: 50, FinalTemp: 1, CoolingRate: 0.5, Iterations: 10, MaxIterations: 60, RandomSeed: 9,
			ProgressInterval: 10,
			ProgressCallback: func(_, _ int, _, _, current float64) { costs = append(costs, current) },
		}
		sa, err := NewSimulatedAnnealing(cfg, nil)
		if err != nil {
			t.Fatal(err)
		}
		sa.Run(point{x: 0})
		return costs
	}
	a, b := run(), run()
	if len(a) != 6 {
		t.Fatalf("got %d progress reports, want 6", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("report %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestResetClearsState(t *testing.T) {
	sa, err := NewSimulatedAnnealing(&SAConfig{InitialTemp: 10, FinalTemp: 1, CoolingRate: 0.5, Iterations: 5, MaxIterations: 20}, nil)
	if err != nil {
		t.Fatal(err)
	}
	sa.Run(point{x: 10})
	sa.Reset()
	if sa.GetIterations() != 0 || sa.GetBestSolution() != nil {
		t.Fatal("Reset kept state")
	}
}

func TestInvalidConfig(t *testing.T) {
	cases := []*SAConfig{
		{InitialTemp: 1, FinalTemp: 1, CoolingRate: 0.9, Iterations: 1, MaxIterations: 1},
		{InitialTemp: 10, FinalTemp: 0, CoolingRate: 0.9, Iterations: 1, MaxIterations: 1},
		{InitialTemp: 10, FinalTemp: 1, CoolingRate: 1, Iterations: 1, MaxIterations: 1},
		{InitialTemp: 10, FinalTemp: 1, CoolingRate: 0.9, Iterations: 0, MaxIterations: 1},
	}
	for i, c := range cases {
		if _, err := NewSimulatedAnnealing(c, nil); !errors.Is(err, index.ErrInvalidConfig) {
			t.Errorf("case %d: err = %v, want ErrInvalidConfig", i, err)
		}
	}
}
