package main

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Hakuto4838/OrderedIndex.git/datastream"
	"github.com/Hakuto4838/OrderedIndex.git/index/impls"
)

func newTestShell(t *testing.T, impl string) (*shell, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	p := impls.DefaultParams()
	p.Degree = 4
	p.Checks = true
	sh, err := newShell(impl, p, &out, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	return sh, &out
}

func run(sh *shell, out *bytes.Buffer, line string) string {
	out.Reset()
	sh.exec(line)
	return out.String()
}

func TestShellSession(t *testing.T) {
	for _, impl := range impls.Names() {
		t.Run(impl, func(t *testing.T) {
			sh, out := newTestShell(t, impl)
			run(sh, out, "insert 10 20 5 6 12 30 7 17")
			if got := run(sh, out, "scan 6 3"); got != "[6 7 10]\n" {
				t.Fatalf("scan 6 3 = %q", got)
			}
			if got := run(sh, out, "delete 20"); got != "Key 20 deleted\n" {
				t.Fatalf("delete 20 = %q", got)
			}
			if got := run(sh, out, "delete 20"); got != "Key 20 not found\n" {
				t.Fatalf("second delete 20 = %q", got)
			}
			if got := run(sh, out, "contains 20"); got != "false\n" {
				t.Fatalf("contains 20 = %q", got)
			}
			if got := run(sh, out, "scan 10 10"); got != "[10 12 17 30]\n" {
				t.Fatalf("scan 10 10 = %q", got)
			}
			if got := run(sh, out, "len"); got != "7\n" {
				t.Fatalf("len = %q", got)
			}
			if got := run(sh, out, "check"); got != "ok\n" {
				t.Fatalf("check = %q", got)
			}
			if got := run(sh, out, "stats"); !strings.HasPrefix(got, "impl="+impl+" keys=7") {
				t.Fatalf("stats = %q", got)
			}
			if got := run(sh, out, "print"); got == "" {
				t.Fatal("print wrote nothing")
			}
		})
	}
}

func TestShellBulkInsertAndUse(t *testing.T) {
	sh, out := newTestShell(t, "bplustree")
	if got := run(sh, out, "bulk-insert 1 1000"); got != "1,000 keys inserted\n" {
		t.Fatalf("bulk-insert = %q", got)
	}
	if got := run(sh, out, "levels"); !strings.HasPrefix(got, "Level 0:") {
		t.Fatalf("levels = %q", got)
	}
	if got := run(sh, out, "use skiplist"); got != "using empty skiplist\n" {
		t.Fatalf("use = %q", got)
	}
	if got := run(sh, out, "len"); got != "0\n" {
		t.Fatalf("len after use = %q", got)
	}
	// 錯誤輸入不改變狀態
	run(sh, out, "insert abc")
	run(sh, out, "bulk-insert 9 3")
	if got := run(sh, out, "bulk-insert 0 18446744073709551615"); got != "" {
		t.Fatalf("oversized bulk-insert = %q", got)
	}
	run(sh, out, "bulk-insert 5 10000005")
	run(sh, out, "use nothing")
	if sh.name != "skiplist" || sh.idx.Len() != 0 {
		t.Fatalf("bad input changed state: %s len %d", sh.name, sh.idx.Len())
	}
	if sh.exec("exit") {
		t.Fatal("exit did not stop the shell")
	}
}

func TestShellReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "w.bin")
	wl := datastream.WorkloadConfig{N: 50, Dist: datastream.DistUniform, Seed: 2, K: 200, Phase1Ratio: 0.5, DeleteRatio: 0.2, SimpleKey: true}
	if _, err := datastream.WriteBenchFile(path, wl); err != nil {
		t.Fatal(err)
	}
	sh, out := newTestShell(t, "skiplist+bloom")
	if got := run(sh, out, "replay "+path); !strings.HasPrefix(got, "200 ops replayed") {
		t.Fatalf("replay = %q", got)
	}
	if got := run(sh, out, "check"); got != "ok\n" {
		t.Fatalf("check after replay = %q", got)
	}
}
