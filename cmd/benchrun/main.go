package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Hakuto4838/OrderedIndex.git/config"
	"github.com/Hakuto4838/OrderedIndex.git/datastream"
	"github.com/Hakuto4838/OrderedIndex.git/index"
	"github.com/Hakuto4838/OrderedIndex.git/index/analyTool"
	"github.com/Hakuto4838/OrderedIndex.git/index/bplustree"
	"github.com/Hakuto4838/OrderedIndex.git/index/filtered"
	"github.com/Hakuto4838/OrderedIndex.git/index/impls"
	"github.com/Hakuto4838/OrderedIndex.git/index/skiplist"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
)

var log logrus.FieldLogger = logrus.StandardLogger()

func main() {
	// Input: either provide -file, -dir, or provide -out and generation params
	var file, dir, out, stepsCSV string
	var runs int
	var wl datastream.WorkloadConfig
	var dist string

	flag.StringVar(&file, "file", config.EnvStr("FILE", ""), "existing bench streamfile (OIBENCH1 format)")
	flag.StringVar(&dir, "dir", config.EnvStr("DIR", ""), "directory containing bench files to test (will test all .bin files)")
	flag.StringVar(&out, "out", "", "output path to write generated bench streamfile")
	flag.StringVar(&stepsCSV, "steps.csv", "", "write per-key skip list search steps of the first file to this csv")
	flag.IntVar(&wl.N, "n", 0, "number of keys")
	flag.StringVar(&dist, "dist", "zipf", "key distribution: zipf or uniform")
	flag.Float64Var(&wl.S, "s", 1.07, "Zipf parameter s")
	flag.Float64Var(&wl.V, "v", 1.0, "Zipf parameter v")
	flag.IntVar(&wl.K, "k", 0, "number of operations to generate")
	flag.Float64Var(&wl.Phase1Ratio, "phase1Ratio", 0.5, "ratio of phase1 operations")
	flag.Float64Var(&wl.DeleteRatio, "deleteRatio", 0.1, "ratio of delete operations")
	flag.Float64Var(&wl.ScanRatio, "scanRatio", 0.05, "ratio of scan operations")
	flag.IntVar(&wl.ScanLen, "scanLen", 32, "max scan length")
	flag.BoolVar(&wl.SimpleKey, "simpleKey", false, "use shuffled 0..n-1 keys instead of random 32-bit keys")
	flag.IntVar(&runs, "runs", config.EnvInt("RUNS", 5), "how many times to repeat each benchmark")
	cfg := config.Register(flag.CommandLine, "all")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := cfg.Logger()
	log = logger
	if runs < 1 {
		log.Fatalf("-runs must be >= 1, got %d", runs)
	}
	wl.Dist = datastream.Distribution(dist)
	wl.Seed = cfg.Seed

	var benchPaths []string

	// 判斷模式: -dir 優先於 -file
	switch {
	case dir != "":
		files, err := collectBenchFilesFromDir(dir)
		if err != nil {
			log.Fatalf("scan directory %s: %v", dir, err)
		}
		if len(files) == 0 {
			log.Fatalf("no .bin files found in directory: %s", dir)
		}
		benchPaths = files
		log.WithField("dir", dir).Infof("found %d bench files", len(benchPaths))
	case file != "":
		benchPaths = []string{file}
	default:
		if out == "" {
			log.Fatalf("either -file, -dir, or -out with generation params (-n,-k,-dist,...) must be provided")
		}
		info, err := datastream.WriteBenchFile(out, wl)
		if err != nil {
			log.Fatalf("generate bench file: %v", err)
		}
		log.WithFields(logrus.Fields{"file": out, "entropy": info.Entropy}).Info("generated bench file")
		benchPaths = []string{out}
	}

	toRun := cfg.Names()
	fmt.Printf("implementations to test: %s\n", strings.Join(toRun, ","))
	fmt.Println(strings.Repeat("=", 80))

	params := cfg.Params(logger)
	// 結構事件只在 debug 等級輸出，計時期間關掉以免干擾
	if logger.GetLevel() < logrus.DebugLevel {
		params.Log = quietLogger()
	}

	if stepsCSV != "" {
		if err := writeSteps(benchPaths[0], params, stepsCSV); err != nil {
			log.Errorf("steps csv: %v", err)
		}
	}

	if len(benchPaths) > 1 {
		runBatchBenchmark(benchPaths, toRun, runs, params)
	} else {
		runBenchmark(benchPaths[0], toRun, runs, params)
	}
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l
}

// collectBenchFilesFromDir 收集指定目錄下所有 .bin 檔案
func collectBenchFilesFromDir(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".bin" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}

// runBatchBenchmark 對多個 benchmark 檔案執行測試並匯總統計
func runBatchBenchmark(benchPaths []string, toRun []string, runs int, params impls.Params) {
	fmt.Printf("Testing %d benchmark files...\n\n", len(benchPaths))

	type implStats struct {
		avgMsList []float64
		minMsList []float64
		maxMsList []float64
		opsList   []int
		stepsList []float64
		totalRuns int
	}

	allStats := make(map[string]*implStats)
	for _, impl := range toRun {
		allStats[impl] = &implStats{}
	}

	for idx, benchPath := range benchPaths {
		fmt.Printf("[%d/%d] Testing: %s\n", idx+1, len(benchPaths), filepath.Base(benchPath))

		bf, err := datastream.ReadBenchFile(benchPath)
		if err != nil {
			log.WithField("file", benchPath).Errorf("reading bench file: %v", err)
			continue
		}
		fmt.Printf("  ops: %s, entropy: %.6f\n", humanize.Comma(int64(len(bf.Ops))), bf.Entropy())

		for _, impl := range toRun {
			fmt.Printf("  - benchmarking %s...\n", impl)
			stats, err := benchmarkImpl(bf, impl, runs, params)
			if err != nil {
				log.WithField("impl", impl).Errorf("benchmark: %v", err)
				continue
			}
			s := allStats[impl]
			s.avgMsList = append(s.avgMsList, stats.avgMs)
			s.minMsList = append(s.minMsList, stats.minMs)
			s.maxMsList = append(s.maxMsList, stats.maxMs)
			s.opsList = append(s.opsList, len(bf.Ops))
			if !math.IsNaN(stats.avgSteps) {
				s.stepsList = append(s.stepsList, stats.avgSteps)
			}
			s.totalRuns += runs
		}
		fmt.Println()
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("AGGREGATE STATISTICS (across all benchmark files)")
	fmt.Println(strings.Repeat("=", 80))

	rows := make([][]string, 0, len(toRun))
	for _, impl := range toRun {
		stats := allStats[impl]
		if len(stats.avgMsList) == 0 {
			continue
		}

		totalOps := 0
		totalSec := 0.0
		for i, ops := range stats.opsList {
			totalOps += ops
			totalSec += stats.avgMsList[i] / 1000.0
		}

		steps := "N/A"
		if len(stats.stepsList) > 0 {
			steps = fmt.Sprintf("%.6f", average(stats.stepsList))
		}

		rows = append(rows, []string{
			impl,
			fmt.Sprintf("%d", stats.totalRuns),
			fmt.Sprintf("%.3f", average(stats.avgMsList)),
			fmt.Sprintf("%.3f", slices.Min(stats.minMsList)),
			fmt.Sprintf("%.3f", slices.Max(stats.maxMsList)),
			humanize.Commaf(math.Round(float64(totalOps) / totalSec)),
			steps,
		})
	}

	renderTable([]string{"Impl", "Total Runs", "Avg(ms)", "Min(ms)", "Max(ms)", "Avg Ops/s", "AvgSteps"}, rows)
}

// runBenchmark 執行單一 benchmark 檔案的測試
func runBenchmark(benchPath string, toRun []string, runs int, params impls.Params) {
	bf, err := datastream.ReadBenchFile(benchPath)
	if err != nil {
		log.WithField("file", benchPath).Errorf("reading bench file: %v", err)
		return
	}

	fmt.Printf("bench_file: %s\n", benchPath)
	fmt.Printf("ops: %s\n", humanize.Comma(int64(len(bf.Ops))))
	fmt.Printf("entropy: %.6f\n", bf.Entropy())

	rows := make([][]string, 0, len(toRun))
	for _, impl := range toRun {
		fmt.Printf("benchmarking %s...\n", impl)
		stats, err := benchmarkImpl(bf, impl, runs, params)
		if err != nil {
			log.WithField("impl", impl).Errorf("benchmark: %v", err)
			continue
		}
		thr := float64(len(bf.Ops)) / (stats.avgMs / 1000.0)
		steps := "N/A"
		if !math.IsNaN(stats.avgSteps) {
			steps = fmt.Sprintf("%.6f", stats.avgSteps)
		}
		rows = append(rows, []string{
			impl,
			fmt.Sprintf("%d", runs),
			fmt.Sprintf("%.3f", stats.avgMs),
			fmt.Sprintf("%.3f", stats.minMs),
			fmt.Sprintf("%.3f", stats.maxMs),
			humanize.Commaf(math.Round(thr)),
			steps,
			stats.shape,
		})
	}

	renderTable([]string{"Impl", "Runs", "Avg(ms)", "Min(ms)", "Max(ms)", "Ops/s", "AvgSteps", "Shape"}, rows)
}

func renderTable(header []string, rows [][]string) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoWrapText(false)
	table.AppendBulk(rows)
	table.Render()
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

type benchStats struct {
	avgMs    float64
	minMs    float64
	maxMs    float64
	avgSteps float64 // 第一次執行後的結構量測，無法分析時為 NaN
	shape    string
}

func benchmarkImpl(bf *datastream.BenchFile, impl string, runs int, params impls.Params) (benchStats, error) {
	durations := make([]float64, 0, runs)
	stats := benchStats{avgSteps: math.NaN(), shape: "-"}
	for i := 0; i < runs; i++ {
		idx, err := impls.New(impl, params)
		if err != nil {
			return stats, err
		}
		elapsed := runOpsAndTime(idx, bf)
		durations = append(durations, float64(elapsed.Microseconds())/1000.0)
		if i == 0 {
			stats.avgSteps, stats.shape = analyze(idx, bf.Dist)
			log.WithFields(logrus.Fields{"impl": impl, "keys": idx.Len(), "fingerprint": fmt.Sprintf("%016x", analyTool.Fingerprint(idx))}).Debug("first run done")
		}
	}
	slices.Sort(durations)
	stats.avgMs = average(durations)
	stats.minMs = durations[0]
	stats.maxMs = durations[len(durations)-1]
	return stats, nil
}

// analyze skip list 回傳期望搜尋步數，B+ tree 回傳樹高（每次查找走訪的節點數）
func analyze(idx index.OrderedIndex, dist map[index.K]float64) (float64, string) {
	if f, ok := idx.(*filtered.Index); ok {
		idx = f.Inner()
	}
	switch s := idx.(type) {
	case *skiplist.SkipList:
		avg, _ := analyTool.AnalyzeStep(s, present(s, dist))
		nodes, level := s.GetMaxStats()
		return avg, fmt.Sprintf("nodes=%s top=%d", humanize.Comma(int64(nodes)), level)
	case *bplustree.Tree:
		st := s.Stats()
		return float64(st.Height), fmt.Sprintf("h=%d leaves=%s", st.Height, humanize.Comma(int64(st.Leaves)))
	}
	return math.NaN(), "-"
}

// present 只保留仍在索引中的 key
func present(idx index.OrderedIndex, dist map[index.K]float64) map[index.K]float64 {
	out := make(map[index.K]float64, idx.Len())
	for k := range idx.All() {
		out[k] = dist[k]
	}
	return out
}

func runOpsAndTime(idx index.OrderedIndex, bf *datastream.BenchFile) time.Duration {
	start := time.Now()
	for _, op := range bf.Ops {
		datastream.Apply(idx, op)
	}
	return time.Since(start)
}

// writeSteps 以第一個 skip list 在檔案重播後的狀態輸出每個 key 的搜尋步數
func writeSteps(benchPath string, params impls.Params, out string) error {
	bf, err := datastream.ReadBenchFile(benchPath)
	if err != nil {
		return err
	}
	idx, err := impls.New("skiplist", params)
	if err != nil {
		return err
	}
	runOpsAndTime(idx, bf)
	sl := idx.(*skiplist.SkipList)

	fd, err := os.Create(out)
	if err != nil {
		return err
	}
	defer fd.Close()
	_, steps := analyTool.AnalyzeStep(sl, present(sl, bf.Dist))
	w := csv.NewWriter(fd)
	if err := steps.PrintToCSV(w); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"file": out, "keys": len(steps)}).Info("wrote step map")
	return nil
}
