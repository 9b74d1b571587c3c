package pixel

import (
	"math"
	"sort"

	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"gonum.org/v1/gonum/stat"
)

// Stats describes the samples of an area
type Stats struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// Area samples the rectangle (all channels) into a float slice
func (m *Image) Area(x, y, width, height uint32) ([]float64, error) {
	if err := m.CheckArea(x, y, width, height); err != nil {
		return nil, err
	}
	out := make([]float64, 0, int(width)*int(height)*m.channels)
	for row := y; row < y+height; row++ {
		for col := x; col < x+width; col++ {
			for c := 0; c < m.channels; c++ {
				out = append(out, float64(m.FloatSample(m.index(col, row, c))))
			}
		}
	}
	return out, nil
}

// Statistics computes min, max, mean and standard deviation over an area
func Statistics(m *Image, x, y, width, height uint32) (Stats, error) {
	values, err := m.Area(x, y, width, height)
	if err != nil {
		return Stats{}, err
	}
	return describe(values), nil
}

// MaskedStatistics restricts the statistics to the pixels where mask is
// non zero. The mask must have the image geometry.
func MaskedStatistics(m *Image, mask *Image) (Stats, error) {
	if mask.width != m.width || mask.height != m.height {
		return Stats{}, dcmerr.New(dcmerr.TransformInvalidArea, "mask %dx%d on %dx%d image", mask.width, mask.height, m.width, m.height)
	}
	var values []float64
	for y := uint32(0); y < m.height; y++ {
		for x := uint32(0); x < m.width; x++ {
			if mask.At(x, y, 0) == 0 {
				continue
			}
			for c := 0; c < m.channels; c++ {
				values = append(values, float64(m.FloatSample(m.index(x, y, c))))
			}
		}
	}
	return describe(values), nil
}

func describe(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	s := Stats{Count: len(values), Min: math.Inf(1), Max: math.Inf(-1)}
	for _, v := range values {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		s.StdDev = 0
	}
	return s
}

// Percentiles returns the lo and hi quantiles (0..1) of an area
func Percentiles(m *Image, x, y, width, height uint32, lo, hi float64) (float64, float64, error) {
	values, err := m.Area(x, y, width, height)
	if err != nil {
		return 0, 0, err
	}
	sort.Float64s(values)
	return stat.Quantile(lo, stat.Empirical, values, nil), stat.Quantile(hi, stat.Empirical, values, nil), nil
}
