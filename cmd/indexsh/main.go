package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Hakuto4838/OrderedIndex.git/config"
	"github.com/Hakuto4838/OrderedIndex.git/datastream"
	"github.com/Hakuto4838/OrderedIndex.git/index"
	"github.com/Hakuto4838/OrderedIndex.git/index/analyTool"
	"github.com/Hakuto4838/OrderedIndex.git/index/bplustree"
	"github.com/Hakuto4838/OrderedIndex.git/index/filtered"
	"github.com/Hakuto4838/OrderedIndex.git/index/impls"
	"github.com/Hakuto4838/OrderedIndex.git/index/skiplist"
	"github.com/chzyer/readline"
	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
)

func usage(w io.Writer) {
	io.WriteString(w, `
Available commands:
	insert <key> [<key>...]
	bulk-insert <first-key> <last-key>
	contains <key>
	scan <key> <count>
	delete <key>
	print
	levels
	check
	len
	stats
	use <impl>
	replay <bench-file>
	set-log-level <log-level>
	exit
`[1:])
}

func completer() *readline.PrefixCompleter {
	implItems := make([]readline.PrefixCompleterInterface, 0, len(impls.Names()))
	for _, name := range impls.Names() {
		implItems = append(implItems, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("insert"),
		readline.PcItem("bulk-insert"),
		readline.PcItem("contains"),
		readline.PcItem("scan"),
		readline.PcItem("delete"),
		readline.PcItem("print"),
		readline.PcItem("levels"),
		readline.PcItem("check"),
		readline.PcItem("len"),
		readline.PcItem("stats"),
		readline.PcItem("use", implItems...),
		readline.PcItem("replay"),
		readline.PcItem("help"),
		readline.PcItem("set-log-level",
			readline.PcItem("debug"),
			readline.PcItem("info"),
			readline.PcItem("warn"),
		),
		readline.PcItem("exit"),
	)
}

type shell struct {
	name   string
	idx    index.OrderedIndex
	params impls.Params
	out    io.Writer
	errw   io.Writer
}

func newShell(name string, params impls.Params, out, errw io.Writer) (*shell, error) {
	sh := &shell{params: params, out: out, errw: errw}
	if err := sh.use(name); err != nil {
		return nil, err
	}
	return sh, nil
}

func (sh *shell) use(name string) error {
	idx, err := impls.New(name, sh.params)
	if err != nil {
		return err
	}
	sh.name, sh.idx = name, idx
	return nil
}

func parseKey(s string) (index.K, error) {
	return strconv.ParseUint(strings.TrimSpace(s), 10, 64)
}

// exec 執行一行指令，回傳 false 代表結束
func (sh *shell) exec(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "exit", "quit":
		return false
	case "help":
		usage(sh.errw)
	case "set-log-level":
		if len(args) != 1 {
			usage(sh.errw)
			break
		}
		setLogLevel(args[0])
	case "insert":
		sh.insert(args)
	case "bulk-insert":
		sh.bulkInsert(args)
	case "contains":
		if k, ok := sh.oneKey(args); ok {
			fmt.Fprintln(sh.out, sh.idx.Contains(k))
		}
	case "delete":
		if k, ok := sh.oneKey(args); ok {
			if sh.idx.Delete(k) {
				fmt.Fprintf(sh.out, "Key %d deleted\n", k)
			} else {
				fmt.Fprintf(sh.out, "Key %d not found\n", k)
			}
		}
	case "scan":
		sh.scan(args)
	case "print":
		sh.idx.Print(sh.out)
	case "levels":
		sh.levels()
	case "check":
		sh.check()
	case "len":
		fmt.Fprintln(sh.out, sh.idx.Len())
	case "stats":
		sh.stats()
	case "use":
		if len(args) != 1 {
			usage(sh.errw)
			break
		}
		if err := sh.use(args[0]); err != nil {
			log.Error(err)
			break
		}
		fmt.Fprintf(sh.out, "using empty %s\n", sh.name)
	case "replay":
		if len(args) != 1 {
			usage(sh.errw)
			break
		}
		sh.replay(args[0])
	default:
		log.Error("Unknown command: ", strconv.Quote(line))
	}
	return true
}

func setLogLevel(level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.Errorf("Invalid log level: %q", level)
		return
	}
	log.SetLevel(lvl)
}

func (sh *shell) oneKey(args []string) (index.K, bool) {
	if len(args) != 1 {
		usage(sh.errw)
		return 0, false
	}
	k, err := parseKey(args[0])
	if err != nil {
		log.Error(err)
		return 0, false
	}
	return k, true
}

func (sh *shell) insert(args []string) {
	if len(args) == 0 {
		usage(sh.errw)
		return
	}
	for _, a := range args {
		k, err := parseKey(a)
		if err != nil {
			log.Error(err)
			return
		}
		sh.idx.Insert(k)
	}
}

// maxBulkInsert 單次 bulk-insert 的 key 數上限
const maxBulkInsert = 10_000_000

func (sh *shell) bulkInsert(args []string) {
	if len(args) != 2 {
		usage(sh.errw)
		return
	}
	first, err := parseKey(args[0])
	if err != nil {
		log.Error(err)
		return
	}
	last, err := parseKey(args[1])
	if err != nil {
		log.Error(err)
		return
	}
	if first > last {
		log.Error("Invalid key range provided")
		return
	}
	if last-first >= maxBulkInsert {
		log.Errorf("Key range too large: at most %s keys per bulk-insert", humanize.Comma(maxBulkInsert))
		return
	}
	for k := first; ; k++ {
		sh.idx.Insert(k)
		if k == last {
			break
		}
	}
	fmt.Fprintf(sh.out, "%s keys inserted\n", humanize.Comma(int64(last-first+1)))
}

func (sh *shell) scan(args []string) {
	if len(args) != 2 {
		usage(sh.errw)
		return
	}
	k, err := parseKey(args[0])
	if err != nil {
		log.Error(err)
		return
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		log.Error(err)
		return
	}
	keys := sh.idx.Scan(k, n)
	parts := make([]string, len(keys))
	for i, key := range keys {
		parts[i] = strconv.FormatUint(key, 10)
	}
	fmt.Fprintf(sh.out, "[%s]\n", strings.Join(parts, " "))
}

func (sh *shell) inner() index.OrderedIndex {
	if f, ok := sh.idx.(*filtered.Index); ok {
		return f.Inner()
	}
	return sh.idx
}

func (sh *shell) levels() {
	switch s := sh.inner().(type) {
	case *bplustree.Tree:
		s.PrintLevels(sh.out)
	case *skiplist.SkipList:
		analyTool.PrintLevelCounts(sh.out, s)
	}
}

func (sh *shell) check() {
	c, ok := sh.idx.(index.Checker)
	if !ok {
		fmt.Fprintln(sh.out, "no structural check available")
		return
	}
	if err := c.Check(); err != nil {
		fmt.Fprintf(sh.out, "check failed: %+v\n", err)
		return
	}
	fmt.Fprintln(sh.out, "ok")
}

func (sh *shell) stats() {
	fmt.Fprintf(sh.out, "impl=%s keys=%s fingerprint=%016x\n", sh.name, humanize.Comma(int64(sh.idx.Len())), analyTool.Fingerprint(sh.idx))
	if f, ok := sh.idx.(*filtered.Index); ok {
		s := f.Stats()
		fmt.Fprintf(sh.out, "bloom bits=%s hashes=%d lookups=%d skipped=%d rebuilds=%d\n",
			humanize.Comma(int64(s.Bits)), s.Hashes, s.Lookups, s.Skipped, s.Rebuilds)
	}
	switch s := sh.inner().(type) {
	case *bplustree.Tree:
		st := s.Stats()
		fmt.Fprintf(sh.out, "height=%d leaves=%d internals=%d slots=%d free=%d\n", st.Height, st.Leaves, st.Internals, st.Slots, st.Free)
	case *skiplist.SkipList:
		nodes, level := s.GetMaxStats()
		fmt.Fprintf(sh.out, "nodes=%d top-level=%d per-level=%v\n", nodes, level, analyTool.CountLevel(s))
	}
}

func (sh *shell) replay(path string) {
	bf, err := datastream.ReadBenchFile(path)
	if err != nil {
		log.Error(err)
		return
	}
	m := bf.ToSequenceModel()
	for op, ok := m.Next(); ok; op, ok = m.Next() {
		datastream.Apply(sh.idx, op)
	}
	fmt.Fprintf(sh.out, "%s ops replayed, %s keys\n", humanize.Comma(int64(m.Len())), humanize.Comma(int64(sh.idx.Len())))
}

func main() {
	impl := flag.String("use", config.EnvStr("SHELL_IMPL", "bplustree"), "initial implementation")
	history := flag.String("history", filepath.Join(os.TempDir(), "indexsh-readline.tmp"), "readline history file")
	cfg := config.Register(flag.CommandLine, "all")
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := cfg.Logger()
	logger.SetOutput(os.Stderr)

	l, err := readline.NewEx(&readline.Config{
		Prompt:       "\033[31m»\033[0m ",
		HistoryFile:  *history,
		AutoComplete: completer(),
	})
	if err != nil {
		log.Fatal(err)
	}
	defer l.Close()
	logger.SetOutput(l.Stderr())

	sh, err := newShell(*impl, cfg.Params(logger), l.Stdout(), l.Stderr())
	if err != nil {
		log.Fatal(err)
	}
	for {
		line, err := l.Readline()
		if err != nil {
			break
		}
		if !sh.exec(line) {
			break
		}
	}
}
