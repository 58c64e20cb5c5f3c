// Package saalgo 通用模擬退火框架，用來搜尋索引的建構參數
package saalgo

import (
	"math"
	"math/rand/v2"

	"github.com/Hakuto4838/OrderedIndex.git/index"
	"github.com/sirupsen/logrus"
)

// Solution 表示一個解
type Solution interface {
	// Clone 創建當前解的深拷貝
	Clone() Solution

	// GetCost 返回當前解的成本，越小越好
	GetCost() float64

	// GenerateNeighbor 以 r 產生鄰居解
	GenerateNeighbor(r *rand.Rand) Solution
}

// ProgressCallback 進度回報
type ProgressCallback func(iteration int, maxIterations int, temperature float64, bestCost float64, currentCost float64)

// SAConfig 模擬退火配置
type SAConfig struct {
	InitialTemp      float64 // 初始溫度
	FinalTemp        float64 // 最終溫度
	CoolingRate      float64 // 冷卻率，介於 (0,1)
	Iterations       int     // 每個溫度的迭代次數
	MaxIterations    int     // 最大總迭代次數
	RandomSeed       uint64
	ProgressCallback ProgressCallback
	ProgressInterval int // 每 N 次迭代回報一次，0 表示不回報
}

// DefaultConfig 返回默認配置
func DefaultConfig() *SAConfig {
	return &SAConfig{
		InitialTemp:   1000.0,
		FinalTemp:     0.1,
		CoolingRate:   0.95,
		Iterations:    100,
		MaxIterations: 10000,
		RandomSeed:    1,
	}
}

func (c *SAConfig) Validate() error {
	switch {
	case !(c.InitialTemp > c.FinalTemp) || !(c.FinalTemp > 0):
		return index.InvalidConfigf("temperatures must satisfy initial (%v) > final (%v) > 0", c.InitialTemp, c.FinalTemp)
	case !(c.CoolingRate > 0 && c.CoolingRate < 1):
		return index.InvalidConfigf("cooling rate %v must be in (0,1)", c.CoolingRate)
	case c.Iterations < 1 || c.MaxIterations < 1:
		return index.InvalidConfigf("iterations (%d) and max iterations (%d) must be >= 1", c.Iterations, c.MaxIterations)
	}
	return nil
}

// SimulatedAnnealing 模擬退火算法主結構
type SimulatedAnnealing struct {
	config     *SAConfig
	rng        *rand.Rand
	log        logrus.FieldLogger
	bestSol    Solution
	bestCost   float64
	iterations int
}

// NewSimulatedAnnealing 創建新的模擬退火實例，config 為 nil 時使用預設值
func NewSimulatedAnnealing(config *SAConfig, log logrus.FieldLogger) (*SimulatedAnnealing, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SimulatedAnnealing{
		config: config,
		rng:    rand.New(rand.NewPCG(config.RandomSeed, 0)),
		log:    log,
	}, nil
}

// Run 執行模擬退火算法，回傳最佳解與其成本
func (sa *SimulatedAnnealing) Run(initialSolution Solution) (Solution, float64) {
	currentSol := initialSolution.Clone()
	currentCost := currentSol.GetCost()

	sa.bestSol = currentSol.Clone()
	sa.bestCost = currentCost

	temperature := sa.config.InitialTemp

	for temperature > sa.config.FinalTemp && sa.iterations < sa.config.MaxIterations {
		for i := 0; i < sa.config.Iterations; i++ {
			neighborSol := currentSol.GenerateNeighbor(sa.rng)
			neighborCost := neighborSol.GetCost()

			if sa.shouldAccept(neighborCost-currentCost, temperature) {
				currentSol = neighborSol
				currentCost = neighborCost

				if currentCost < sa.bestCost {
					sa.bestSol = currentSol.Clone()
					sa.bestCost = currentCost
					sa.log.Debugf("SA_BEST iter=%d cost=%.6f", sa.iterations, currentCost)
				}
			}

			sa.iterations++

			if sa.config.ProgressCallback != nil && sa.config.ProgressInterval > 0 &&
				sa.iterations%sa.config.ProgressInterval == 0 {
				sa.config.ProgressCallback(sa.iterations, sa.config.MaxIterations, temperature, sa.bestCost, currentCost)
			}

			if sa.iterations >= sa.config.MaxIterations {
				break
			}
		}

		// 冷卻
		temperature *= sa.config.CoolingRate
	}

	return sa.bestSol, sa.bestCost
}

// shouldAccept Metropolis 準則
func (sa *SimulatedAnnealing) shouldAccept(deltaCost, temperature float64) bool {
	if deltaCost < 0 {
		return true
	}
	return sa.rng.Float64() < math.Exp(-deltaCost/temperature)
}

func (sa *SimulatedAnnealing) GetBestSolution() Solution {
	return sa.bestSol
}

func (sa *SimulatedAnnealing) GetBestCost() float64 {
	return sa.bestCost
}

func (sa *SimulatedAnnealing) GetIterations() int {
	return sa.iterations
}

// Reset 重置算法狀態，亂數序列不重置
func (sa *SimulatedAnnealing) Reset() {
	sa.bestSol = nil
	sa.bestCost = 0
	sa.iterations = 0
}
