// Package config 各 cmd 共用的旗標設定；每個旗標都可由 OIDX_ 開頭的環境變數提供預設值
package config

import (
	"flag"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/Hakuto4838/OrderedIndex.git/index"
	"github.com/Hakuto4838/OrderedIndex.git/index/impls"
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

const envPrefix = "OIDX_"

// Index 建立索引所需的設定
type Index struct {
	Impls       string
	MaxLevel    int
	Probability float64
	Seed        uint64
	Degree      int
	BloomN      uint
	BloomFP     float64
	Checks      bool
	LogLevel    string

	env envParser
}

// Register 在 fs 上註冊索引相關旗標
func Register(fs *flag.FlagSet, defaultImpls string) *Index {
	def := impls.DefaultParams()
	cfg := &Index{}
	env := &cfg.env
	fs.StringVar(&cfg.Impls, "impl", envStr("IMPL", defaultImpls), "implementations: all or comma list ("+strings.Join(impls.Names(), ",")+")")
	fs.IntVar(&cfg.MaxLevel, "maxlevel", env.parseInt("MAXLEVEL", def.MaxLevel), "skip list max level")
	fs.Float64Var(&cfg.Probability, "p", env.parseFloat("P", def.Probability), "skip list promotion probability")
	fs.Uint64Var(&cfg.Seed, "seed", env.parseUint("SEED", def.Seed), "seed for randomized structures")
	fs.IntVar(&cfg.Degree, "degree", env.parseInt("DEGREE", def.Degree), "B+ tree degree (max children per internal node)")
	fs.UintVar(&cfg.BloomN, "bloom.n", uint(env.parseUint("BLOOM_N", uint64(def.BloomExpected))), "expected keys for bloom-filtered indexes")
	fs.Float64Var(&cfg.BloomFP, "bloom.fp", env.parseFloat("BLOOM_FP", def.BloomFPRate), "bloom filter false positive rate")
	fs.BoolVar(&cfg.Checks, "checks", env.parseBool("CHECKS", false), "run structural checks after every mutation")
	fs.StringVar(&cfg.LogLevel, "log-level", envStr("LOG_LEVEL", "info"), "log level (panic,fatal,error,warn,info,debug,trace)")
	return cfg
}

func (c *Index) Validate() error {
	if len(c.env.errs) > 0 {
		return errors.Wrapf(c.env.errs[0], "%d malformed environment value(s), first", len(c.env.errs))
	}
	if _, err := impls.ParseList(c.Impls); err != nil {
		return err
	}
	if c.MaxLevel < 1 {
		return index.InvalidConfigf("maxlevel must be >= 1, got %d", c.MaxLevel)
	}
	if !(c.Probability > 0 && c.Probability < 1) {
		return index.InvalidConfigf("p must be in (0,1), got %v", c.Probability)
	}
	if c.Degree < 3 {
		return index.InvalidConfigf("degree must be >= 3, got %d", c.Degree)
	}
	if c.BloomN == 0 || !(c.BloomFP > 0 && c.BloomFP < 1) || math.IsNaN(c.BloomFP) {
		return index.InvalidConfigf("bloom.n must be > 0 and bloom.fp in (0,1), got %d / %v", c.BloomN, c.BloomFP)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log-level")
	}
	return nil
}

// Names 解析後的實作清單
func (c *Index) Names() []string {
	names, _ := impls.ParseList(c.Impls)
	return names
}

func (c *Index) Params(log logrus.FieldLogger) impls.Params {
	return impls.Params{
		MaxLevel:      c.MaxLevel,
		Probability:   c.Probability,
		Seed:          c.Seed,
		Degree:        c.Degree,
		BloomExpected: c.BloomN,
		BloomFPRate:   c.BloomFP,
		Checks:        c.Checks,
		Log:           log,
	}
}

// Logger 依 LogLevel 設定標準 logger 並回傳
func (c *Index) Logger() *logrus.Logger {
	log := logrus.StandardLogger()
	if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log
}

func envStr(key, fallback string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return fallback
}

// envParser 解析環境變數，格式錯誤時保留預設值並記下錯誤
type envParser struct {
	errs []error
}

func (p *envParser) lookup(key string, parse func(string) error) {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return
	}
	if err := parse(v); err != nil {
		p.errs = append(p.errs, index.InvalidConfigf("%s%s=%q: %v", envPrefix, key, v, err))
	}
}

func (p *envParser) parseBool(key string, fallback bool) bool {
	out := fallback
	p.lookup(key, func(v string) error {
		b, err := strconv.ParseBool(v)
		if err == nil {
			out = b
		}
		return err
	})
	return out
}

func (p *envParser) parseInt(key string, fallback int) int {
	out := fallback
	p.lookup(key, func(v string) error {
		i, err := strconv.Atoi(v)
		if err == nil {
			out = i
		}
		return err
	})
	return out
}

func (p *envParser) parseUint(key string, fallback uint64) uint64 {
	out := fallback
	p.lookup(key, func(v string) error {
		u, err := strconv.ParseUint(v, 10, 64)
		if err == nil {
			out = u
		}
		return err
	})
	return out
}

func (p *envParser) parseFloat(key string, fallback float64) float64 {
	out := fallback
	p.lookup(key, func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			out = f
		}
		return err
	})
	return out
}

// warn 給沒有 Validate 可回報的呼叫端
func (p *envParser) warn() {
	for _, err := range p.errs {
		logrus.Warnf("ignoring environment override: %v", err)
	}
}

// EnvStr 供 cmd 自訂旗標使用同一套環境變數慣例
func EnvStr(key, fallback string) string {
	return envStr(key, fallback)
}

func EnvInt(key string, fallback int) int {
	var p envParser
	defer p.warn()
	return p.parseInt(key, fallback)
}

func EnvFloat(key string, fallback float64) float64 {
	var p envParser
	defer p.warn()
	return p.parseFloat(key, fallback)
}
