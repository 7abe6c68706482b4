package forest

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Scaler standardizes each column to zero mean and unit population
// variance. Constant columns keep a scale of 1.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler computes per-column mean and standard deviation.
func FitScaler(X [][]float64) (*Scaler, error) {
	if len(X) == 0 {
		return nil, ErrNoData
	}
	d := len(X[0])
	s := &Scaler{Mean: make([]float64, d), Scale: make([]float64, d)}
	col := make([]float64, len(X))
	for j := range d {
		for i, row := range X {
			if len(row) != d {
				return nil, fmt.Errorf("row %d has %d features, want %d", i, len(row), d)
			}
			col[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}
	return s, nil
}

// Transform returns standardized copies of the rows.
func (s *Scaler) Transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Mean[j]) / s.Scale[j]
		}
		out[i] = scaled
	}
	return out
}

// Validate checks that a decoded scaler is usable for d features.
func (s *Scaler) Validate(d int) error {
	if len(s.Mean) != d || len(s.Scale) != d {
		return fmt.Errorf("scaler has %d means and %d scales, want %d", len(s.Mean), len(s.Scale), d)
	}
	for j, v := range s.Scale {
		if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("scaler has a zero or non-finite scale")
		}
		if math.IsNaN(s.Mean[j]) || math.IsInf(s.Mean[j], 0) {
			return errors.New("scaler has a non-finite mean")
		}
	}
	return nil
}
