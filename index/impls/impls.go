// Package impls 以名稱建立各種 OrderedIndex 實作，供 cmd 共用
package impls

import (
	"slices"
	"strings"

	"github.com/Hakuto4838/OrderedIndex.git/index"
	"github.com/Hakuto4838/OrderedIndex.git/index/bplustree"
	"github.com/Hakuto4838/OrderedIndex.git/index/filtered"
	"github.com/Hakuto4838/OrderedIndex.git/index/skiplist"
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

// Params 所有實作的建構參數，各實作只取用自己需要的欄位
type Params struct {
	MaxLevel    int
	Probability float64
	Seed        uint64
	Degree      int

	BloomExpected uint
	BloomFPRate   float64

	Checks bool
	Log    logrus.FieldLogger
}

func DefaultParams() Params {
	return Params{
		MaxLevel:      skiplist.DefaultMaxLevel,
		Probability:   skiplist.DefaultProbability,
		Seed:          1,
		Degree:        32,
		BloomExpected: 1 << 16,
		BloomFPRate:   0.01,
		Log:           logrus.StandardLogger(),
	}
}

type Constructor func(p Params) (index.OrderedIndex, error)

var ErrUnknownImpl = errors.New("unknown index implementation")

var registry = map[string]Constructor{
	"skiplist":        newSkipList,
	"bplustree":       newTree,
	"skiplist+bloom":  withBloom(newSkipList),
	"bplustree+bloom": withBloom(newTree),
}

func newSkipList(p Params) (index.OrderedIndex, error) {
	sl, err := skiplist.New(p.MaxLevel, p.Probability,
		skiplist.WithSeed(p.Seed),
		skiplist.WithLogger(p.Log),
		skiplist.WithInvariantChecks(p.Checks))
	if err != nil {
		return nil, err
	}
	return sl, nil
}

func newTree(p Params) (index.OrderedIndex, error) {
	tree, err := bplustree.New(p.Degree,
		bplustree.WithLogger(p.Log),
		bplustree.WithInvariantChecks(p.Checks))
	if err != nil {
		return nil, err
	}
	return tree, nil
}

func withBloom(inner Constructor) Constructor {
	return func(p Params) (index.OrderedIndex, error) {
		idx, err := inner(p)
		if err != nil {
			return nil, err
		}
		f, err := filtered.New(idx, p.BloomExpected, p.BloomFPRate, filtered.WithLogger(p.Log))
		if err != nil {
			return nil, err
		}
		return f, nil
	}
}

// Names 依字母排序的可用實作名稱
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// New 依名稱建立索引
func New(name string, p Params) (index.OrderedIndex, error) {
	ctor, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownImpl, "%q (available: %s)", name, strings.Join(Names(), ", "))
	}
	if p.Log == nil {
		p.Log = logrus.StandardLogger()
	}
	idx, err := ctor(p)
	if err != nil {
		return nil, errors.Wrapf(err, "build %s", name)
	}
	return idx, nil
}

// ParseList 解析逗號分隔的實作清單；"all" 代表全部
func ParseList(s string) ([]string, error) {
	if strings.TrimSpace(s) == "all" {
		return Names(), nil
	}
	var out []string
	for _, name := range strings.Split(s, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, ok := registry[name]; !ok {
			return nil, errors.Wrapf(ErrUnknownImpl, "%q (available: %s)", name, strings.Join(Names(), ", "))
		}
		out = append(out, name)
	}
	if len(out) == 0 {
		return nil, errors.New("no index implementation selected")
	}
	return out, nil
}
