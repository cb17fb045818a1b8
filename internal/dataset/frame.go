package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Frame is an in-memory string table read from CSV. Empty cells are missing values.
type Frame struct {
	Columns []string
	Rows    [][]string
}

// ReadCSV reads a headed CSV. Short rows are padded with empty cells.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("read csv: empty input")
	}
	cols := make([]string, len(records[0]))
	for i, c := range records[0] {
		cols[i] = strings.TrimSpace(strings.TrimPrefix(c, "\ufeff"))
	}
	f := &Frame{Columns: cols, Rows: make([][]string, 0, len(records)-1)}
	for _, rec := range records[1:] {
		row := make([]string, len(cols))
		copy(row, rec)
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
		f.Rows = append(f.Rows, row)
	}
	return f, nil
}

func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(f.Rows); err != nil {
		return err
	}
	return cw.Error()
}

func (f *Frame) Len() int { return len(f.Rows) }

// Index returns the position of column name, or -1.
func (f *Frame) Index(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// NumericColumns returns the columns whose non-empty cells all parse as numbers.
// A column with no values at all is not numeric.
func (f *Frame) NumericColumns() []string {
	var out []string
	for i, c := range f.Columns {
		seen := false
		numeric := true
		for _, row := range f.Rows {
			if row[i] == "" {
				continue
			}
			seen = true
			if _, err := strconv.ParseFloat(row[i], 64); err != nil {
				numeric = false
				break
			}
		}
		if seen && numeric {
			out = append(out, c)
		}
	}
	return out
}

// FillForwardBackward fills each empty cell from the previous non-empty value in its
// column, then fills leading gaps from the next non-empty value.
func (f *Frame) FillForwardBackward() {
	for c := range f.Columns {
		last := ""
		for _, row := range f.Rows {
			if row[c] == "" {
				row[c] = last
			} else {
				last = row[c]
			}
		}
		next := ""
		for i := len(f.Rows) - 1; i >= 0; i-- {
			if f.Rows[i][c] == "" {
				f.Rows[i][c] = next
			} else {
				next = f.Rows[i][c]
			}
		}
	}
}

// Floats returns column name as numbers. Missing or unparseable cells are NaN.
func (f *Frame) Floats(name string) []float64 {
	i := f.Index(name)
	out := make([]float64, len(f.Rows))
	for r, row := range f.Rows {
		v, err := strconv.ParseFloat(row[i], 64)
		if err != nil {
			v = math.NaN()
		}
		out[r] = v
	}
	return out
}

// DropOutliers keeps rows whose population z-score is below z in every column of cols.
// A constant column scores 0 everywhere. Returns the number of rows dropped.
func (f *Frame) DropOutliers(cols []string, z float64) int {
	keep := make([]bool, len(f.Rows))
	for i := range keep {
		keep[i] = true
	}
	for _, c := range cols {
		vals := f.Floats(c)
		mean, std := stat.PopMeanStdDev(vals, nil)
		for r, v := range vals {
			score := 0.0
			if std > 0 {
				score = math.Abs((v - mean) / std)
			}
			if math.IsNaN(score) || score >= z {
				keep[r] = false
			}
		}
	}
	kept := f.Rows[:0]
	for r, row := range f.Rows {
		if keep[r] {
			kept = append(kept, row)
		}
	}
	dropped := len(f.Rows) - len(kept)
	f.Rows = kept
	return dropped
}

// MinMaxNormalize rescales each column of cols into [0, 1]. A constant column becomes 0.
func (f *Frame) MinMaxNormalize(cols []string) {
	for _, c := range cols {
		i := f.Index(c)
		vals := f.Floats(c)
		if len(vals) == 0 {
			continue
		}
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range vals {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		for r, v := range vals {
			scaled := 0.0
			if hi > lo {
				scaled = (v - lo) / (hi - lo)
			}
			f.Rows[r][i] = formatFloat(scaled)
		}
	}
}

// Select returns a new frame holding only cols, in that order.
func (f *Frame) Select(cols []string) *Frame {
	idx := make([]int, len(cols))
	for j, c := range cols {
		idx[j] = f.Index(c)
	}
	out := &Frame{Columns: append([]string(nil), cols...), Rows: make([][]string, len(f.Rows))}
	for r, row := range f.Rows {
		sel := make([]string, len(cols))
		for j, i := range idx {
			if i >= 0 {
				sel[j] = row[i]
			}
		}
		out.Rows[r] = sel
	}
	return out
}

// Correlation returns the Pearson correlation matrix of cols.
func (f *Frame) Correlation(cols []string) *mat.SymDense {
	if len(cols) == 0 {
		return nil
	}
	n := len(f.Rows)
	data := mat.NewDense(max(n, 1), len(cols), nil)
	for j, c := range cols {
		for r, v := range f.Floats(c) {
			data.Set(r, j, v)
		}
	}
	corr := &mat.SymDense{}
	stat.CorrelationMatrix(corr, data, nil)
	return corr
}

// TrainTestSplit shuffles row order with seed and puts ceil(testFrac*n) rows in test.
func (f *Frame) TrainTestSplit(testFrac float64, seed int64) (train, test *Frame, err error) {
	if testFrac <= 0 || testFrac >= 1 {
		return nil, nil, fmt.Errorf("test fraction %v must be in (0, 1)", testFrac)
	}
	n := len(f.Rows)
	nTest := int(math.Ceil(testFrac * float64(n)))
	if n > 0 && nTest >= n {
		return nil, nil, fmt.Errorf("test fraction %v leaves no training rows out of %d", testFrac, n)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	train = &Frame{Columns: f.Columns, Rows: make([][]string, 0, n-nTest)}
	test = &Frame{Columns: f.Columns, Rows: make([][]string, 0, nTest)}
	for k, r := range perm {
		if k < nTest {
			test.Rows = append(test.Rows, f.Rows[r])
		} else {
			train.Rows = append(train.Rows, f.Rows[r])
		}
	}
	return train, test, nil
}

// ErrNoTarget is returned when neither the requested nor the fallback target is numeric.
var ErrNoTarget = errors.New("target column not found among numeric columns")

const fallbackTarget = "temperature_celsius"

// FeaturesTarget splits numeric into feature columns and the target column. When
// target is missing, temperature_celsius is tried.
func FeaturesTarget(numeric []string, target string) ([]string, string, error) {
	chosen := ""
	for _, candidate := range []string{target, fallbackTarget} {
		for _, c := range numeric {
			if c == candidate {
				chosen = c
				break
			}
		}
		if chosen != "" {
			break
		}
	}
	if chosen == "" {
		return nil, "", fmt.Errorf("%w: %q", ErrNoTarget, target)
	}
	features := make([]string, 0, len(numeric)-1)
	for _, c := range numeric {
		if c != chosen {
			features = append(features, c)
		}
	}
	return features, chosen, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteCorrelation writes corr as a CSV matrix labelled by cols.
func WriteCorrelation(w io.Writer, cols []string, corr *mat.SymDense) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{""}, cols...)); err != nil {
		return err
	}
	for i, c := range cols {
		row := make([]string, 0, len(cols)+1)
		row = append(row, c)
		for j := range cols {
			row = append(row, formatFloat(corr.At(i, j)))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
