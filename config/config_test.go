package config

import (
	"flag"
	"io"
	"slices"
	"strings"
	"testing"

	"github.com/Hakuto4838/OrderedIndex.git/index"
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

func parse(t *testing.T, args ...string) *Index {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfg := Register(fs, "all")
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := parse(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults rejected: %v", err)
	}
	if len(cfg.Names()) != 4 {
		t.Fatalf("Names() = %v", cfg.Names())
	}
}

func TestEnvFallback(t *testing.T) {
	t.Setenv("OIDX_DEGREE", "7")
	t.Setenv("OIDX_IMPL", "skiplist")
	t.Setenv("OIDX_CHECKS", "true")
	t.Setenv("OIDX_SEED", "not-a-number")
	cfg := parse(t)
	if cfg.Degree != 7 || !cfg.Checks || !slices.Equal(cfg.Names(), []string{"skiplist"}) {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.Seed != 1 {
		t.Fatalf("unparsable env should keep default seed, got %d", cfg.Seed)
	}
	err := cfg.Validate()
	if !errors.Is(err, index.ErrInvalidConfig) || !strings.Contains(err.Error(), "OIDX_SEED") {
		t.Fatalf("malformed OIDX_SEED: Validate() = %v", err)
	}

	// 旗標優先於環境變數
	cfg = parse(t, "-degree", "9")
	if cfg.Degree != 9 {
		t.Fatalf("flag did not override env: degree %d", cfg.Degree)
	}
}

func TestMalformedEnvReported(t *testing.T) {
	t.Setenv("OIDX_P", "half")
	t.Setenv("OIDX_CHECKS", "yes please")
	cfg := parse(t)
	if cfg.Probability != 0.5 || cfg.Checks {
		t.Fatalf("malformed env changed values: %+v", cfg)
	}
	err := cfg.Validate()
	if !errors.Is(err, index.ErrInvalidConfig) || !strings.Contains(err.Error(), "2 malformed environment value(s)") {
		t.Fatalf("Validate() = %v", err)
	}

	t.Setenv("OIDX_RUNS", "many")
	if got := EnvInt("RUNS", 5); got != 5 {
		t.Fatalf("EnvInt = %d, want fallback 5", got)
	}
}

func TestValidate(t *testing.T) {
	cases := [][]string{
		{"-degree", "2"},
		{"-maxlevel", "0"},
		{"-p", "1"},
		{"-bloom.fp", "0"},
		{"-bloom.n", "0"},
	}
	for _, args := range cases {
		if err := parse(t, args...).Validate(); !errors.Is(err, index.ErrInvalidConfig) {
			t.Errorf("%v: err = %v, want ErrInvalidConfig", args, err)
		}
	}
	if err := parse(t, "-impl", "rbtree").Validate(); err == nil {
		t.Error("unknown implementation accepted")
	}
	if err := parse(t, "-log-level", "loud").Validate(); err == nil {
		t.Error("unknown log level accepted")
	}
}

func TestParamsAndLogger(t *testing.T) {
	cfg := parse(t, "-degree", "5", "-maxlevel", "9", "-log-level", "debug")
	log := cfg.Logger()
	defer log.SetLevel(logrus.InfoLevel)
	if log.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level = %v", log.GetLevel())
	}
	p := cfg.Params(log)
	if p.Degree != 5 || p.MaxLevel != 9 || p.Log == nil {
		t.Fatalf("Params() = %+v", p)
	}
}
