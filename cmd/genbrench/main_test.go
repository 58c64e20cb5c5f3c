package main

import (
	"testing"

	"github.com/Hakuto4838/OrderedIndex.git/datastream"
)

func TestFormatScientific(t *testing.T) {
	cases := map[int]string{0: "0", 7: "7e0", 100000: "1e5", 1500: "1.5e3", 25: "2.5e1"}
	for n, want := range cases {
		if got := formatScientific(n); got != want {
			t.Errorf("formatScientific(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestFormatDecimal(t *testing.T) {
	cases := map[float64]string{1: "1", 0.5: "0_5", 1.07: "1_07", 0.1: "0_1", 0.05: "0_05"}
	for f, want := range cases {
		if got := formatDecimal(f); got != want {
			t.Errorf("formatDecimal(%v) = %q, want %q", f, got, want)
		}
	}
}

func TestFileName(t *testing.T) {
	wl := datastream.WorkloadConfig{N: 100000, K: 1000000, Dist: datastream.DistZipf, S: 1.07, V: 1, Phase1Ratio: 0.5, DeleteRatio: 0.1, ScanRatio: 0.05}
	if got, want := fileName(wl), "bench_n1e5_k1e6_s1_07_v1_p1r0_5_dr0_1_sr0_05"; got != want {
		t.Fatalf("fileName = %q, want %q", got, want)
	}
	wl.Dist = datastream.DistUniform
	if got, want := fileName(wl), "bench_n1e5_k1e6_u_p1r0_5_dr0_1_sr0_05"; got != want {
		t.Fatalf("fileName = %q, want %q", got, want)
	}
}
