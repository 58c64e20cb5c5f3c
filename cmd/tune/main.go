package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Hakuto4838/OrderedIndex.git/config"
	"github.com/Hakuto4838/OrderedIndex.git/datastream"
	"github.com/Hakuto4838/OrderedIndex.git/index/impls"
	"github.com/Hakuto4838/OrderedIndex.git/saalgo"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
)

func main() {
	var benchPath, benchDir, outputCSV, mode, costName string
	var runs int
	var space searchSpace
	saCfg := saalgo.DefaultConfig()

	flag.StringVar(&benchPath, "bench", config.EnvStr("FILE", ""), "單一 benchmark 檔案路徑")
	flag.StringVar(&benchDir, "benchdir", config.EnvStr("DIR", ""), "包含多個 benchmark 檔案的目錄 (使用所有 .bin 檔案)")
	flag.StringVar(&mode, "mode", "grid", "搜尋方式: grid 或 sa")
	flag.StringVar(&costName, "cost", "time", "成本: time (重播耗時) 或 steps (結構搜尋成本)")
	flag.Float64Var(&space.PMin, "pmin", 0.125, "p 的最小值")
	flag.Float64Var(&space.PMax, "pmax", 0.75, "p 的最大值")
	flag.Float64Var(&space.PStep, "pstep", 0.125, "p 的步長")
	flag.IntVar(&space.LMin, "lmin", 8, "maxLevel 的最小值")
	flag.IntVar(&space.LMax, "lmax", 24, "maxLevel 的最大值")
	flag.IntVar(&space.LStep, "lstep", 4, "maxLevel 的步長")
	flag.IntVar(&space.DMin, "dmin", 4, "degree 的最小值")
	flag.IntVar(&space.DMax, "dmax", 256, "degree 的最大值 (網格每步加倍)")
	flag.IntVar(&runs, "runs", config.EnvInt("RUNS", 3), "每組參數運行的次數（取平均值）")
	flag.StringVar(&outputCSV, "csv", "", "輸出 CSV 檔案路徑（選填，用於生成熱力圖）")
	flag.Float64Var(&saCfg.InitialTemp, "sa.temp", 10, "退火初始溫度")
	flag.Float64Var(&saCfg.FinalTemp, "sa.final", 0.01, "退火最終溫度")
	flag.Float64Var(&saCfg.CoolingRate, "sa.cool", 0.9, "退火冷卻率")
	flag.IntVar(&saCfg.Iterations, "sa.iters", 10, "每個溫度的迭代次數")
	flag.IntVar(&saCfg.MaxIterations, "sa.max", 300, "最大總迭代次數")
	cfg := config.Register(flag.CommandLine, "skiplist,bplustree")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log := cfg.Logger()
	kind, err := parseCostKind(costName)
	if err != nil {
		log.Fatal(err)
	}
	if mode != "grid" && mode != "sa" {
		log.Fatalf("unknown mode %q (grid or sa)", mode)
	}

	var benchFiles []string
	switch {
	case benchDir != "":
		files, err := filepath.Glob(filepath.Join(benchDir, "*.bin"))
		if err != nil {
			log.Fatalf("掃描目錄失敗: %v", err)
		}
		if len(files) == 0 {
			log.Fatalf("目錄中找不到 .bin 檔案: %s", benchDir)
		}
		benchFiles = files
	case benchPath != "":
		benchFiles = []string{benchPath}
	default:
		log.Fatal("請提供 -bench 或 -benchdir 參數")
	}

	loaded := make([]*datastream.BenchFile, 0, len(benchFiles))
	totalOps := 0
	for _, fpath := range benchFiles {
		bf, err := datastream.ReadBenchFile(fpath)
		if err != nil {
			log.Fatalf("讀取 benchmark 檔案失敗 %s: %v", fpath, err)
		}
		loaded = append(loaded, bf)
		totalOps += len(bf.Ops)
		log.WithField("ops", humanize.Comma(int64(len(bf.Ops)))).Info(filepath.Base(fpath))
	}
	fmt.Printf("總計: %d 檔案, %s 操作\n\n", len(loaded), humanize.Comma(int64(totalOps)))

	var csvWriter *csv.Writer
	if outputCSV != "" {
		fd, err := os.Create(outputCSV)
		if err != nil {
			log.Fatalf("無法創建 CSV 檔案: %v", err)
		}
		defer fd.Close()
		csvWriter = csv.NewWriter(fd)
		defer csvWriter.Flush()
		csvWriter.Write([]string{"impl", "maxlevel", "p", "degree", "cost"})
	}

	// 調整的參數之外沿用旗標設定
	base := cfg.Params(log)
	saCfg.RandomSeed = cfg.Seed
	var rows [][]string
	for _, impl := range cfg.Names() {
		fam := familyOf(impl)
		if err := space.validate(fam); err != nil {
			log.Fatal(err)
		}
		e := newEvaluator(impl, base, loaded, runs, kind)
		startTime := time.Now()

		var best gridPoint
		if mode == "grid" {
			best, err = gridSearch(e, space, func(i, total int, pt gridPoint) {
				fmt.Printf("[%6.2f%%] %s %s → %.3f\n", float64(i+1)/float64(total)*100.0, impl, describe(fam, pt.c), pt.cost)
			})
		} else {
			best, err = anneal(e, space, saCfg, log)
		}
		if err != nil {
			log.Fatalf("%s: %v", impl, err)
		}
		if csvWriter != nil {
			for c, cost := range e.memo {
				csvWriter.Write([]string{impl, strconv.Itoa(c.MaxLevel), strconv.FormatFloat(c.Prob, 'f', 6, 64),
					strconv.Itoa(c.Degree), strconv.FormatFloat(cost, 'f', 3, 64)})
			}
		}

		// 與預設參數比較
		defaultCost, err := e.cost(defaultCandidate(fam, base))
		if err != nil {
			log.Fatalf("%s: %v", impl, err)
		}
		rows = append(rows, []string{
			impl,
			describe(fam, best.c),
			fmt.Sprintf("%.3f", best.cost),
			fmt.Sprintf("%.3f", defaultCost),
			fmt.Sprintf("%.2f%%", (defaultCost-best.cost)/defaultCost*100.0),
			strconv.Itoa(len(e.memo)),
			time.Since(startTime).Round(time.Millisecond).String(),
		})
	}

	fmt.Printf("\n=== 搜索完成 (cost=%s, mode=%s) ===\n", kind, mode)
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Impl", "Best", "Cost", "Default", "Gain", "Evaluated", "Elapsed"})
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoWrapText(false)
	table.AppendBulk(rows)
	table.Render()
	if outputCSV != "" {
		fmt.Printf("\nCSV 結果已保存至: %s\n", outputCSV)
	}
}

func defaultCandidate(f family, p impls.Params) candidate {
	if f == treeFamily {
		return candidate{Degree: p.Degree}
	}
	return candidate{MaxLevel: p.MaxLevel, Prob: p.Probability}
}

func describe(f family, c candidate) string {
	if f == treeFamily {
		return fmt.Sprintf("degree=%d", c.Degree)
	}
	return fmt.Sprintf("maxlevel=%d p=%.4f", c.MaxLevel, c.Prob)
}

func anneal(e *evaluator, space searchSpace, saCfg *saalgo.SAConfig, log logrus.FieldLogger) (gridPoint, error) {
	initial, err := newSolution(e, space, space.start(e.fam))
	if err != nil {
		return gridPoint{}, err
	}
	cfg := *saCfg
	cfg.ProgressInterval = max(cfg.MaxIterations/10, 1)
	cfg.ProgressCallback = func(iter, maxIter int, temp, bestCost, currentCost float64) {
		log.WithFields(logrus.Fields{"iter": iter, "max": maxIter, "temp": fmt.Sprintf("%.4f", temp)}).
			Infof("best=%.3f current=%.3f", bestCost, currentCost)
	}
	sa, err := saalgo.NewSimulatedAnnealing(&cfg, log)
	if err != nil {
		return gridPoint{}, err
	}
	best, cost := sa.Run(initial)
	return gridPoint{c: best.(*solution).c, cost: cost}, nil
}
