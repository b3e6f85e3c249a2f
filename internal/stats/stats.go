// Package stats summarizes the morphometric distributions of a stored run.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/seabed-analytics/pockmark-cli/internal/model"
)

// Distribution is a five-number-plus summary of one metric.
type Distribution struct {
	Count  int     `json:"count" yaml:"count"`
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"std_dev" yaml:"std_dev"`
	Min    float64 `json:"min" yaml:"min"`
	P25    float64 `json:"p25" yaml:"p25"`
	Median float64 `json:"median" yaml:"median"`
	P75    float64 `json:"p75" yaml:"p75"`
	Max    float64 `json:"max" yaml:"max"`
}

// Summary aggregates the per-depression metrics of a run.
type Summary struct {
	Depressions  int                      `json:"depressions" yaml:"depressions"`
	DepthM       Distribution             `json:"depth_m" yaml:"depth_m"`
	AreaM2       Distribution             `json:"area_m2" yaml:"area_m2"`
	Eccentricity Distribution             `json:"eccentricity" yaml:"eccentricity"`
	Thinness     Distribution             `json:"thinness" yaml:"thinness"`
	Morphology   map[model.Morphology]int `json:"morphology" yaml:"morphology"`
}

// Summarize computes distribution summaries over a feature set.
func Summarize(fs *model.FeatureSet) Summary {
	n := len(fs.Polygons)
	depths := make([]float64, 0, n)
	areas := make([]float64, 0, n)
	eccs := make([]float64, 0, n)
	thins := make([]float64, 0, n)
	morphs := make(map[model.Morphology]int, 3)

	for _, d := range fs.Polygons {
		depths = append(depths, d.DepthM)
		areas = append(areas, d.AreaM2)
		eccs = append(eccs, d.Eccentricity)
		thins = append(thins, d.ThinnessRatio)
		morphs[d.Morphology]++
	}

	return Summary{
		Depressions:  n,
		DepthM:       distribution(depths),
		AreaM2:       distribution(areas),
		Eccentricity: distribution(eccs),
		Thinness:     distribution(thins),
		Morphology:   morphs,
	}
}

func distribution(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	return Distribution{
		Count:  len(sorted),
		Mean:   stat.Mean(sorted, nil),
		StdDev: stdDev(sorted),
		Min:    sorted[0],
		P25:    stat.Quantile(0.25, stat.Empirical, sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P75:    stat.Quantile(0.75, stat.Empirical, sorted, nil),
		Max:    sorted[len(sorted)-1],
	}
}

func stdDev(sorted []float64) float64 {
	if len(sorted) < 2 {
		return 0
	}
	return math.Sqrt(stat.Variance(sorted, nil))
}
