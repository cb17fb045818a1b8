package dataset

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Options configures one pipeline run.
type Options struct {
	Input    string
	OutDir   string
	Target   string
	TestSize float64
	Seed     int64
	Z        float64
	Plots    bool
}

// Result summarizes a pipeline run.
type Result struct {
	Rows     int
	Dropped  int
	Train    int
	Test     int
	Numeric  []string
	Features []string
	Target   string
	Files    []string
}

var timeColumns = []string{"lastupdated", "last_updated"}

// Run cleans Input and writes the cleaned table, train/test splits, correlation
// matrix and plots into OutDir.
func Run(opts Options, logger *zap.Logger) (Result, error) {
	var res Result
	in, err := os.Open(opts.Input)
	if err != nil {
		return res, err
	}
	f, err := ReadCSV(in)
	_ = in.Close()
	if err != nil {
		return res, err
	}
	res.Rows = f.Len()
	logger.Info("dataset loaded", zap.String("input", opts.Input), zap.Int("rows", res.Rows), zap.Int("columns", len(f.Columns)))

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return res, err
	}

	res.Numeric = f.NumericColumns()
	f.FillForwardBackward()
	res.Dropped = f.DropOutliers(res.Numeric, opts.Z)
	f.MinMaxNormalize(res.Numeric)
	logger.Info("preprocessing complete",
		zap.Strings("numeric", res.Numeric),
		zap.Int("dropped_outliers", res.Dropped),
		zap.Int("remaining", f.Len()))

	write := func(name string, fn func(io.Writer) error) error {
		path := filepath.Join(opts.OutDir, name)
		out, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := fn(out); err != nil {
			_ = out.Close()
			return fmt.Errorf("write %s: %w", name, err)
		}
		if err := out.Close(); err != nil {
			return err
		}
		res.Files = append(res.Files, path)
		return nil
	}

	base := strings.TrimSuffix(filepath.Base(opts.Input), filepath.Ext(opts.Input))
	if err := write(base+"_cleaned.csv", f.WriteCSV); err != nil {
		return res, err
	}

	corr := f.Correlation(res.Numeric)
	if corr != nil {
		if err := write("correlation.csv", func(w io.Writer) error { return WriteCorrelation(w, res.Numeric, corr) }); err != nil {
			return res, err
		}
	}

	features, target, err := FeaturesTarget(res.Numeric, opts.Target)
	if err != nil {
		return res, err
	}
	res.Features, res.Target = features, target

	if opts.Plots {
		res.Files = append(res.Files, plots(f, res.Numeric, target, corr, opts.OutDir, logger)...)
	}

	train, test, err := f.TrainTestSplit(opts.TestSize, opts.Seed)
	if err != nil {
		return res, err
	}
	res.Train, res.Test = train.Len(), test.Len()
	splits := []struct {
		name  string
		frame *Frame
	}{
		{"X_train.csv", train.Select(features)},
		{"X_test.csv", test.Select(features)},
		{"y_train.csv", train.Select([]string{target})},
		{"y_test.csv", test.Select([]string{target})},
	}
	for _, s := range splits {
		if err := write(s.name, s.frame.WriteCSV); err != nil {
			return res, err
		}
	}
	logger.Info("train-test split complete",
		zap.String("target", target),
		zap.Int("features", len(features)),
		zap.Int("train", res.Train),
		zap.Int("test", res.Test))
	return res, nil
}

// plots renders every chart it can. Plot failures are logged, not fatal.
func plots(f *Frame, numeric []string, target string, corr *mat.SymDense, dir string, logger *zap.Logger) []string {
	var files []string
	try := func(name string, fn func(path string) error) {
		path := filepath.Join(dir, name)
		if err := fn(path); err != nil {
			logger.Warn("plot skipped", zap.String("plot", name), zap.Error(err))
			return
		}
		files = append(files, path)
	}

	if corr != nil {
		try("correlation_heatmap.png", func(path string) error { return PlotCorrelation(numeric, corr, path) })
	}
	if tc := firstColumn(f, timeColumns); tc != "" {
		try("temperature_trend.png", func(path string) error {
			return PlotTrend(parseTimes(f, tc), f.Floats(target), target, path)
		})
	}
	try("feature_distributions.png", func(path string) error { return PlotDistributions(f, numeric, path) })
	return files
}

func firstColumn(f *Frame, names []string) string {
	for _, n := range names {
		if f.Index(n) >= 0 {
			return n
		}
	}
	return ""
}

func parseTimes(f *Frame, col string) []time.Time {
	i := f.Index(col)
	out := make([]time.Time, len(f.Rows))
	for r, row := range f.Rows {
		if ts, ok := parseTimestamp(row[i]); ok {
			out[r] = ts
		}
	}
	return out
}
