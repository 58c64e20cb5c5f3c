// Package analyTool 分析 skip list 的搜尋步數與層級分布，並提供跨實作的內容指紋
package analyTool

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/Hakuto4838/OrderedIndex.git/index"
	"github.com/Hakuto4838/OrderedIndex.git/index/skiplist"
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

type StepMap map[index.K]int

// FindStep 計算找到指定 key 的總步數和各層步數
func FindStep(sl skiplist.Analyable, key index.K) (step int, level []int) {
	cur := sl.GetHead()
	_, maxLevel := sl.GetMaxStats()
	stepsPerLevel := make([]int, maxLevel+1)

	totalSteps := 0
	for h := maxLevel; h >= 0; h-- {
		levelSteps := 0
		for {
			next := cur.GetNextAt(int32(h))
			if next == nil || next.GetKey() >= key {
				break
			}
			cur = next
			levelSteps++
		}

		if next := cur.GetNextAt(int32(h)); next != nil && next.GetKey() == key {
			levelSteps++ // 最後一步
			stepsPerLevel[h] = levelSteps
			return totalSteps + levelSteps, stepsPerLevel
		}

		stepsPerLevel[h] = levelSteps
		totalSteps += levelSteps + 1 // 向下移動
	}
	return totalSteps, stepsPerLevel
}

// AnalyzeStep 根據 map 提供的 key 出現機率計算平均搜尋步數
func AnalyzeStep(sl skiplist.Analyable, keys map[index.K]float64) (float64, StepMap) {
	if len(keys) == 0 {
		return 0.0, nil
	}

	step := StepMap{}
	var totalExpectedSteps, totalProbability float64

	head := sl.GetHead()
	// 每個節點第一次在它的最高層被走到時記錄步數
	var dfs func(node skiplist.Nodelike, level int, steps int)
	dfs = func(node skiplist.Nodelike, level int, steps int) {
		if node != head && node.GetLevel() == int32(level) {
			if p, ok := keys[node.GetKey()]; ok {
				totalExpectedSteps += float64(steps) * p
				totalProbability += p
				step[node.GetKey()] = steps
			} else {
				logrus.Warnf("key %d is not in the probability map", node.GetKey())
			}
		}
		if level > 0 { // 下降也算一步
			dfs(node, level-1, steps+1)
		}
		// 下一個節點高度較高時不屬於本次走訪
		if next := node.GetNextAt(int32(level)); next != nil && next.GetLevel() == int32(level) {
			dfs(next, level, steps+1)
		}
	}

	_, maxLevel := sl.GetMaxStats()
	dfs(head, maxLevel, 0)

	if totalProbability > 0 {
		return totalExpectedSteps / totalProbability, step
	}
	return 0.0, step
}

// PrintSkipList 以欄位對齊的方式輸出前 maxNodes 個節點的塔高
func PrintSkipList(w io.Writer, sl skiplist.Analyable, maxLevel, maxNodes int) {
	_, actualMaxLevel := sl.GetMaxStats()
	maxLevel = min(maxLevel, actualMaxLevel)
	output := make([]string, maxLevel+1)
	for i := range output {
		output[i] = fmt.Sprintf("level %d : ", i)
	}

	node := sl.GetHead().GetNextAt(0)
	if node == nil {
		fmt.Fprintln(w, "Skip list 為空")
		return
	}
	for count := 0; node != nil && count < maxNodes; count++ {
		lv := int(node.GetLevel())
		for i := range output {
			if i <= lv {
				output[i] += fmt.Sprintf("%3d ->", node.GetKey())
			} else {
				output[i] += "    ->"
			}
		}
		node = node.GetNextAt(0)
	}

	for i := maxLevel; i >= 0; i-- {
		fmt.Fprintln(w, output[i])
	}
}

// PrintLink 逐層沿著 forward 連結輸出
func PrintLink(w io.Writer, sl skiplist.Analyable, maxLevel, maxNodes int) {
	_, actualMaxLevel := sl.GetMaxStats()
	maxLevel = min(maxLevel, actualMaxLevel)

	for i := maxLevel; i >= 0; i-- {
		fmt.Fprintf(w, "level %d : head", i)
		node := sl.GetHead().GetNextAt(int32(i))
		for count := 0; node != nil && count < maxNodes; count++ {
			fmt.Fprintf(w, " -> %d", node.GetKey())
			node = node.GetNextAt(int32(i))
		}
		fmt.Fprintln(w)
	}
}

// CheckStruct 檢查每一層的連結都指向 level 0 上下一個夠高的節點
func CheckStruct(sl skiplist.Analyable) error {
	_, maxLevel := sl.GetMaxStats()
	head := sl.GetHead()
	last := make([]skiplist.Nodelike, maxLevel+1)
	for i := range last {
		last[i] = head
	}

	for node := head.GetNextAt(0); node != nil; node = node.GetNextAt(0) {
		lv := int(node.GetLevel())
		if lv > maxLevel {
			return errors.AssertionFailedf("node %d has level %d above list level %d", node.GetKey(), lv, maxLevel)
		}
		for i := 0; i <= lv; i++ {
			if got := last[i].GetNextAt(int32(i)); got != node {
				return errors.AssertionFailedf("level %d skips node %d", i, node.GetKey())
			}
			last[i] = node
		}
	}
	for i, n := range last {
		if n.GetNextAt(int32(i)) != nil {
			return errors.AssertionFailedf("level %d continues past its last tower", i)
		}
	}
	return nil
}

// CountLevel 回傳每層的節點數，index 0 為最底層
func CountLevel(sl skiplist.Analyable) []int {
	_, maxLevel := sl.GetMaxStats()
	levelCounts := make([]int, maxLevel+1)

	for cur := sl.GetHead().GetNextAt(0); cur != nil; cur = cur.GetNextAt(0) {
		for i := 0; i <= int(cur.GetLevel()) && i < len(levelCounts); i++ {
			levelCounts[i]++
		}
	}
	return levelCounts
}

// PrintLevelCounts 由高到低輸出 CountLevel 的結果
func PrintLevelCounts(w io.Writer, sl skiplist.Analyable) {
	maxNodes, maxLevel := sl.GetMaxStats()
	counts := CountLevel(sl)
	fmt.Fprintf(w, "層級節點統計 (總節點數: %d, 最高層級: %d):\n", maxNodes, maxLevel)
	for i := len(counts) - 1; i >= 0; i-- {
		fmt.Fprintf(w, "Level %2d: %d 個節點\n", i, counts[i])
	}
}

func (mp StepMap) sorted() []index.K {
	keys := make([]index.K, 0, len(mp))
	for k := range mp {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (mp StepMap) Print(w io.Writer) {
	keys := mp.sorted()
	for _, k := range keys {
		fmt.Fprintf(w, "%2d  ", k)
	}
	fmt.Fprintln(w)
	for _, k := range keys {
		fmt.Fprintf(w, "%2d  ", mp[k])
	}
	fmt.Fprintln(w)
}

// PrintToCSV 兩列：key 與對應步數
func (mp StepMap) PrintToCSV(writer *csv.Writer) error {
	keys := mp.sorted()
	keyRow := make([]string, 0, len(keys)+1)
	stepRow := make([]string, 0, len(keys)+1)
	keyRow = append(keyRow, "key")
	stepRow = append(stepRow, "steps")
	for _, k := range keys {
		keyRow = append(keyRow, strconv.FormatUint(k, 10))
		stepRow = append(stepRow, strconv.Itoa(mp[k]))
	}
	if err := writer.WriteAll([][]string{keyRow, stepRow}); err != nil {
		return errors.Wrap(err, "write step csv")
	}
	return nil
}
