package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Hakuto4838/OrderedIndex.git/config"
	"github.com/Hakuto4838/OrderedIndex.git/datastream"
	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
)

// parseScientificNotation 解析科學記號字串（如 "1e5"）為整數
func parseScientificNotation(s string) (int, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// formatScientific 將數字格式化為科學記號（用於檔名）
func formatScientific(n int) string {
	if n == 0 {
		return "0"
	}
	exp := 0
	divisor := 1
	for temp := n; temp >= 10; temp /= 10 {
		exp++
		divisor *= 10
	}
	coefficient := float64(n) / float64(divisor)

	// 如果係數是整數，就不顯示小數
	if coefficient == float64(int(coefficient)) {
		return fmt.Sprintf("%de%d", int(coefficient), exp)
	}
	return fmt.Sprintf("%.1fe%d", coefficient, exp)
}

// formatDecimal 將浮點數格式化為不含小數點的字串（用於檔名）
func formatDecimal(f float64) string {
	// 保留兩位小數的精度
	val := int(f*100 + 0.5)
	switch {
	case val%100 == 0:
		return fmt.Sprintf("%d", val/100)
	case val%10 == 0:
		return fmt.Sprintf("%d_%d", val/100, (val%100)/10)
	default:
		return fmt.Sprintf("%d_%02d", val/100, val%100)
	}
}

// fileName 依參數產生檔名前綴
func fileName(wl datastream.WorkloadConfig) string {
	shape := "u"
	if wl.Dist == datastream.DistZipf {
		shape = "s" + formatDecimal(wl.S) + "_v" + formatDecimal(wl.V)
	}
	return fmt.Sprintf("bench_n%s_k%s_%s_p1r%s_dr%s_sr%s",
		formatScientific(wl.N),
		formatScientific(wl.K),
		shape,
		formatDecimal(wl.Phase1Ratio),
		formatDecimal(wl.DeleteRatio),
		formatDecimal(wl.ScanRatio))
}

func main() {
	var out, path, nStr, kStr, dist, distCSV string
	var nums int
	var wl datastream.WorkloadConfig

	flag.StringVar(&nStr, "n", "0", "number of keys (支援科學記號，如 1e5)")
	flag.StringVar(&dist, "dist", "zipf", "key distribution: zipf or uniform")
	flag.Float64Var(&wl.S, "s", 1.07, "Zipf parameter s (> 1)")
	flag.Float64Var(&wl.V, "v", 1.0, "Zipf parameter v (>= 1)")
	flag.StringVar(&kStr, "k", "0", "number of operations to generate (支援科學記號，如 1e6)")
	flag.Uint64Var(&wl.Seed, "seed", 1, "seed for the generator; file i uses seed+i")
	flag.Float64Var(&wl.Phase1Ratio, "phase1Ratio", 0.5, "ratio of phase1 operations")
	flag.Float64Var(&wl.DeleteRatio, "deleteRatio", 0.1, "ratio of delete operations")
	flag.Float64Var(&wl.ScanRatio, "scanRatio", 0.05, "ratio of scan operations")
	flag.IntVar(&wl.ScanLen, "scanLen", 32, "max scan length")
	flag.BoolVar(&wl.SimpleKey, "simpleKey", false, "keys are shuffled 0..n-1 instead of random 32-bit values")
	flag.IntVar(&nums, "nums", 1, "number of files to generate")
	flag.StringVar(&out, "out", "", "output filename prefix (留空則自動生成)")
	flag.StringVar(&path, "path", config.EnvStr("BENCH_DIR", "."), "output directory path (輸出目錄路徑)")
	flag.StringVar(&distCSV, "dist.csv", "", "also write the key distribution of the first file to this csv")
	logLevel := flag.String("log-level", config.EnvStr("LOG_LEVEL", "info"), "log level")
	flag.Parse()

	if lvl, err := log.ParseLevel(*logLevel); err == nil {
		log.SetLevel(lvl)
	}

	n, err := parseScientificNotation(nStr)
	if err != nil {
		log.Fatalf("解析參數 n 錯誤: %v", err)
	}
	k, err := parseScientificNotation(kStr)
	if err != nil {
		log.Fatalf("解析參數 k 錯誤: %v", err)
	}
	wl.N, wl.K = n, k
	wl.Dist = datastream.Distribution(strings.ToLower(dist))
	if err := wl.Validate(); err != nil {
		log.Fatalf("invalid workload: %v", err)
	}

	if out == "" {
		out = fileName(wl)
	}

	if path != "." && path != "" {
		if err := os.MkdirAll(path, 0755); err != nil {
			log.Fatalf("建立輸出目錄失敗: %v", err)
		}
	}

	log.WithFields(log.Fields{
		"n":           n,
		"k":           k,
		"dist":        wl.Dist,
		"s":           wl.S,
		"v":           wl.V,
		"phase1Ratio": wl.Phase1Ratio,
		"deleteRatio": wl.DeleteRatio,
		"scanRatio":   wl.ScanRatio,
		"seed":        wl.Seed,
		"files":       nums,
		"dir":         path,
	}).Info("生成參數")

	base := wl.Seed
	for i := 0; i < nums; i++ {
		filename := out + ".bin"
		if nums > 1 {
			filename = fmt.Sprintf("%s_%d.bin", out, i)
		}
		outfile := filepath.Join(path, filename)
		wl.Seed = base + uint64(i)
		info, err := datastream.WriteBenchFile(outfile, wl)
		if err != nil {
			log.Fatalf("錯誤: %v", err)
		}
		size := "?"
		if st, err := os.Stat(outfile); err == nil {
			size = humanize.Bytes(uint64(st.Size()))
		}
		log.WithFields(log.Fields{
			"file":    outfile,
			"size":    size,
			"entropy": fmt.Sprintf("%.4f", info.Entropy),
			"insert":  info.Counts[datastream.OpInsert],
			"query":   info.Counts[datastream.OpQuery],
			"delete":  info.Counts[datastream.OpDelete],
			"scan":    info.Counts[datastream.OpScan],
		}).Info("generated")

		if i == 0 && distCSV != "" {
			if err := writeDistCSV(distCSV, info.Dist); err != nil {
				log.Fatalf("dist csv: %v", err)
			}
		}
	}
	log.Info("完成!")
}

func writeDistCSV(filename string, dist map[uint64]float64) error {
	fd, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer fd.Close()
	return datastream.DistributeToCSV(csv.NewWriter(fd), dist)
}
