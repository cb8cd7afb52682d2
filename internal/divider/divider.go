// Package divider splits a dataset file into train, validation and test
// subsets stratified by label.
package divider

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/agusespa/bugharvest/internal/dataset"
	"go.uber.org/zap"
)

const datasetSuffix = "_GHPR.txt"

// Split holds record indexes, each list in ascending order.
type Split struct {
	Train []int
	Val   []int
	Test  []int
}

// Divide assigns every index of labels to one subset. Each label group is
// shuffled and ceil(n*(1-trainRatio)) of it is held out; the held out records
// alternate between validation and test across all groups, validation first.
// The same seed always gives the same split.
func Divide(labels []int, trainRatio float64, seed uint64) Split {
	groups := map[int][]int{}
	for i, label := range labels {
		groups[label] = append(groups[label], i)
	}

	keys := make([]int, 0, len(groups))
	for label := range groups {
		keys = append(keys, label)
	}
	slices.Sort(keys)
	slices.Reverse(keys)

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	var split Split
	held := 0
	for _, label := range keys {
		group := groups[label]
		rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })

		holdout := holdoutSize(len(group), trainRatio)
		split.Train = append(split.Train, group[holdout:]...)
		for _, idx := range group[:holdout] {
			if held%2 == 0 {
				split.Val = append(split.Val, idx)
			} else {
				split.Test = append(split.Test, idx)
			}
			held++
		}
	}

	slices.Sort(split.Train)
	slices.Sort(split.Val)
	slices.Sort(split.Test)
	return split
}

func holdoutSize(n int, trainRatio float64) int {
	// tolerance keeps 5*(1-0.8) from rounding up to 2
	size := int(math.Ceil(float64(n)*(1-trainRatio) - 1e-9))
	return min(max(size, 0), n)
}

// SplitPaths derives the three output paths from a dataset file path, e.g.
// result/o_r_GHPR.txt gives result/o_r_train.txt and so on.
func SplitPaths(input string) (train, val, test string) {
	base := strings.TrimSuffix(input, datasetSuffix)
	if base == input {
		base = strings.TrimSuffix(input, filepath.Ext(input))
	}
	return base + "_train.txt", base + "_val.txt", base + "_test.txt"
}

type Options struct {
	Delimiter  string
	TrainRatio float64
	Seed       uint64
}

type Divider struct {
	opts   Options
	logger *zap.Logger
}

func New(opts Options, logger *zap.Logger) *Divider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Divider{opts: opts, logger: logger}
}

// DivideFile splits the dataset at input into the files named by SplitPaths.
func (d *Divider) DivideFile(input string) (Split, error) {
	data, err := os.ReadFile(input)
	if err != nil {
		return Split{}, fmt.Errorf("failed to read dataset: %w", err)
	}

	records := dataset.ReadRecords(data, d.opts.Delimiter)
	labels := make([]int, len(records))
	for i, record := range records {
		row, err := dataset.ParseRow(record, d.opts.Delimiter)
		if err != nil {
			return Split{}, fmt.Errorf("record %d: %w", i, err)
		}
		labels[i] = row.Label
	}

	split := Divide(labels, d.opts.TrainRatio, d.opts.Seed)
	train, val, test := SplitPaths(input)
	if err := WriteSplit(records, split, train, val, test); err != nil {
		return Split{}, err
	}

	d.logger.Info("dataset divided",
		zap.String("input", input),
		zap.Int("records", len(records)),
		zap.Int("train", len(split.Train)),
		zap.Int("val", len(split.Val)),
		zap.Int("test", len(split.Test)))
	return split, nil
}

// WriteSplit writes each subset's records, in their original order, to its
// file.
func WriteSplit(records []string, split Split, trainPath, valPath, testPath string) error {
	for _, out := range []struct {
		path    string
		indexes []int
	}{
		{trainPath, split.Train},
		{valPath, split.Val},
		{testPath, split.Test},
	} {
		var b strings.Builder
		for _, idx := range out.indexes {
			if idx < 0 || idx >= len(records) {
				return fmt.Errorf("record index %d out of range", idx)
			}
			b.WriteString(records[idx])
		}
		if err := os.WriteFile(out.path, []byte(b.String()), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out.path, err)
		}
	}
	return nil
}
