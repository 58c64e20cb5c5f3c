package main

import (
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/Hakuto4838/OrderedIndex.git/datastream"
	"github.com/Hakuto4838/OrderedIndex.git/index/bplustree"
	"github.com/Hakuto4838/OrderedIndex.git/index/impls"
)

func writeTestBench(t *testing.T, path string, seed uint64) {
	t.Helper()
	wl := datastream.WorkloadConfig{N: 300, Dist: datastream.DistZipf, S: 1.1, V: 1, Seed: seed, K: 3000,
		Phase1Ratio: 0.2, DeleteRatio: 0.1, ScanRatio: 0.1, ScanLen: 16, SimpleKey: true}
	if _, err := datastream.WriteBenchFile(path, wl); err != nil {
		t.Fatal(err)
	}
}

func testParams() impls.Params {
	p := impls.DefaultParams()
	p.Degree = 8
	p.Checks = true
	p.Log = quietLogger()
	return p
}

func TestCollectBenchFilesFromDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeTestBench(t, filepath.Join(dir, "b.bin"), 1)
	writeTestBench(t, filepath.Join(dir, "a.bin"), 2)
	writeTestBench(t, filepath.Join(dir, "sub", "c.bin"), 3)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	files, err := collectBenchFilesFromDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "a.bin"), filepath.Join(dir, "b.bin"), filepath.Join(dir, "sub", "c.bin")}
	if !slices.Equal(files, want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
}

func TestBenchmarkImpl(t *testing.T) {
	path := filepath.Join(t.TempDir(), "w.bin")
	writeTestBench(t, path, 7)
	bf, err := datastream.ReadBenchFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, impl := range impls.Names() {
		stats, err := benchmarkImpl(bf, impl, 3, testParams())
		if err != nil {
			t.Fatalf("%s: %v", impl, err)
		}
		if stats.minMs > stats.avgMs || stats.avgMs > stats.maxMs {
			t.Fatalf("%s: min/avg/max out of order: %+v", impl, stats)
		}
		if math.IsNaN(stats.avgSteps) || stats.avgSteps < 1 {
			t.Fatalf("%s: avgSteps = %v", impl, stats.avgSteps)
		}
		prefix := "nodes="
		if strings.HasPrefix(impl, "bplustree") {
			prefix = "h="
		}
		if !strings.HasPrefix(stats.shape, prefix) {
			t.Fatalf("%s: shape = %q", impl, stats.shape)
		}
	}
	if _, err := benchmarkImpl(bf, "rbtree", 1, testParams()); err == nil {
		t.Fatal("unknown implementation accepted")
	}
}

func TestAnalyzeTreeReportsHeight(t *testing.T) {
	tree, err := bplustree.New(4)
	if err != nil {
		t.Fatal(err)
	}
	for k := uint64(0); k < 50; k++ {
		tree.Insert(k)
	}
	steps, shape := analyze(tree, nil)
	if h := tree.Stats().Height; steps != float64(h) || !strings.HasPrefix(shape, "h=") {
		t.Fatalf("analyze = %v %q, height %d", steps, shape, h)
	}
}

func TestWriteSteps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "w.bin")
	writeTestBench(t, path, 9)
	out := filepath.Join(dir, "steps.csv")
	if err := writeSteps(path, testParams(), out); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "key,") || !strings.HasPrefix(lines[1], "steps,") {
		t.Fatalf("steps csv:\n%s", raw)
	}
	if strings.Count(lines[0], ",") != strings.Count(lines[1], ",") {
		t.Fatalf("key and step rows differ in length:\n%s", raw)
	}
}

func TestRunBenchmarksSmoke(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.bin"), filepath.Join(dir, "b.bin")
	writeTestBench(t, a, 1)
	writeTestBench(t, b, 2)
	names := impls.Names()
	runBenchmark(a, names, 1, testParams())
	runBatchBenchmark([]string{a, b, filepath.Join(dir, "missing.bin")}, names, 1, testParams())
}

func TestAverage(t *testing.T) {
	if got := average(nil); got != 0 {
		t.Fatalf("average(nil) = %v", got)
	}
	if got := average([]float64{1, 2, 6}); got != 3 {
		t.Fatalf("average = %v", got)
	}
}
