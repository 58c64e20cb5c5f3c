package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"slices"

	"github.com/Hakuto4838/OrderedIndex.git/config"
	"github.com/Hakuto4838/OrderedIndex.git/datastream"
	"github.com/Hakuto4838/OrderedIndex.git/index"
	"github.com/Hakuto4838/OrderedIndex.git/index/analyTool"
	"github.com/Hakuto4838/OrderedIndex.git/index/filtered"
	"github.com/Hakuto4838/OrderedIndex.git/index/impls"
	"github.com/Hakuto4838/OrderedIndex.git/index/skiplist"
	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
)

// mismatch 兩個實作對同一筆操作給出不同結果
type mismatch struct {
	step     int
	op       datastream.Operation
	impl     string
	got      datastream.Result
	want     datastream.Result
	wantImpl string
}

func (m *mismatch) Error() string {
	return fmt.Sprintf("op %d %v(%d): %s returned found=%v scan=%v, %s returned found=%v scan=%v",
		m.step, m.op.Type, m.op.Key, m.impl, m.got.Found, m.got.Keys, m.wantImpl, m.want.Found, m.want.Keys)
}

type replica struct {
	name string
	idx  index.OrderedIndex
}

// replay 依序在所有實作上執行 ops，第一個實作作為基準
func replay(replicas []replica, ops []datastream.Operation) error {
	for i, op := range ops {
		base := datastream.Apply(replicas[0].idx, op)
		baseFP := analyTool.ScanFingerprint(base.Keys)
		for _, r := range replicas[1:] {
			got := datastream.Apply(r.idx, op)
			if got.Found != base.Found || len(got.Keys) != len(base.Keys) || analyTool.ScanFingerprint(got.Keys) != baseFP {
				return &mismatch{step: i, op: op, impl: r.name, got: got, want: base, wantImpl: replicas[0].name}
			}
		}
	}
	return nil
}

func main() {
	var file string
	var analyze bool
	var printLimit int
	wl := datastream.WorkloadConfig{Dist: datastream.DistZipf, S: 1.07, V: 1, Phase1Ratio: 0.5, DeleteRatio: 0.2, ScanRatio: 0.1, ScanLen: 16, SimpleKey: true}

	flag.StringVar(&file, "file", config.EnvStr("FILE", ""), "bench file to replay; empty generates a workload from -n/-k")
	flag.IntVar(&wl.N, "n", 900, "number of keys for a generated workload")
	flag.IntVar(&wl.K, "k", 20000, "number of operations for a generated workload")
	flag.BoolVar(&analyze, "analyze", false, "print skip list level analysis after replay")
	flag.IntVar(&printLimit, "print", 0, "dump final structures when they hold at most this many keys")
	cfg := config.Register(flag.CommandLine, "all")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log := cfg.Logger()

	var bf *datastream.BenchFile
	if file != "" {
		var err error
		if bf, err = datastream.ReadBenchFile(file); err != nil {
			log.Fatalf("%v", err)
		}
	} else {
		wl.Seed = cfg.Seed
		var buf bytes.Buffer
		if _, err := datastream.WriteBench(&buf, wl); err != nil {
			log.Fatalf("generate workload: %v", err)
		}
		var err error
		if bf, err = datastream.ReadBench(&buf); err != nil {
			log.Fatalf("%v", err)
		}
	}

	names := cfg.Names()
	if len(names) < 2 {
		log.Fatalf("need at least two implementations to compare, got %v", names)
	}
	replicas := make([]replica, 0, len(names))
	for _, name := range names {
		idx, err := impls.New(name, cfg.Params(log))
		if err != nil {
			log.Fatalf("%v", err)
		}
		replicas = append(replicas, replica{name: name, idx: idx})
	}

	log.WithFields(logrus.Fields{"ops": len(bf.Ops), "impls": names}).Info("replaying")
	if err := replay(replicas, bf.Ops); err != nil {
		var m *mismatch
		if errors.As(err, &m) {
			log.WithFields(logrus.Fields{"step": m.step, "impl": m.impl}).Error("implementations disagree")
		}
		log.Fatalf("%v", err)
	}

	rows := make([][]string, 0, len(replicas))
	fps := make([]uint64, 0, len(replicas))
	for _, r := range replicas {
		check := "n/a"
		if c, ok := r.idx.(index.Checker); ok {
			check = "ok"
			if err := c.Check(); err != nil {
				check = err.Error()
			}
		}
		fp := analyTool.Fingerprint(r.idx)
		fps = append(fps, fp)
		rows = append(rows, []string{r.name, humanize.Comma(int64(r.idx.Len())), fmt.Sprintf("%016x", fp), check})
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Impl", "Keys", "Fingerprint", "Check"})
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoWrapText(false)
	table.AppendBulk(rows)
	table.Render()

	if slices.ContainsFunc(fps, func(fp uint64) bool { return fp != fps[0] }) {
		log.Fatal("final contents differ")
	}
	fmt.Printf("%s ops agreed across %d implementations\n", humanize.Comma(int64(len(bf.Ops))), len(replicas))

	for _, r := range replicas {
		if printLimit > 0 && r.idx.Len() <= printLimit {
			fmt.Printf("=== %s ===\n", r.name)
			r.idx.Print(os.Stdout)
		}
		if !analyze {
			continue
		}
		inner := r.idx
		if f, ok := inner.(*filtered.Index); ok {
			inner = f.Inner()
		}
		sl, ok := inner.(*skiplist.SkipList)
		if !ok {
			continue
		}
		fmt.Printf("=== %s ===\n", r.name)
		if err := analyTool.CheckStruct(sl); err != nil {
			log.Errorf("%s: %v", r.name, err)
		}
		analyTool.PrintLevelCounts(os.Stdout, sl)
		score, _ := analyTool.AnalyzeStep(sl, presentWeights(sl, bf.Dist))
		fmt.Printf("score: %.6f\n\n", score)
		analyTool.PrintSkipList(os.Stdout, sl, 8, 35)
		analyTool.PrintLink(os.Stdout, sl, 8, 12)
	}
}

func presentWeights(idx index.OrderedIndex, dist map[index.K]float64) map[index.K]float64 {
	out := make(map[index.K]float64, idx.Len())
	for k := range idx.All() {
		out[k] = dist[k]
	}
	return out
}
