// Package statistics provides resampling statistics over per-task score
// totals.
package statistics

import (
	"math"
	"math/rand"
	"sort"
)

// ConfidenceInterval is the result of a bootstrap resampling of task totals.
type ConfidenceInterval struct {
	Lower           float64 `json:"lower"`
	Upper           float64 `json:"upper"`
	Mean            float64 `json:"mean"`
	ConfidenceLevel float64 `json:"confidence_level"`
	Resamples       int     `json:"resamples"`
}

const defaultResamples = 10000

// BootstrapCI computes a percentile-method bootstrap confidence interval
// over the given totals. confidenceLevel is in (0, 1), e.g. 0.95. With
// fewer than two data points the interval collapses to the mean.
func BootstrapCI(totals []float64, confidenceLevel float64) ConfidenceInterval {
	return BootstrapCIWithSeed(totals, confidenceLevel, -1)
}

// BootstrapCIWithSeed is BootstrapCI with a fixed seed for reproducible
// reports. A negative seed uses a non-deterministic source.
func BootstrapCIWithSeed(totals []float64, confidenceLevel float64, seed int64) ConfidenceInterval {
	n := len(totals)
	m := mean(totals)
	if n < 2 {
		return ConfidenceInterval{
			Lower:           m,
			Upper:           m,
			Mean:            m,
			ConfidenceLevel: confidenceLevel,
		}
	}

	var rng *rand.Rand
	if seed >= 0 {
		rng = rand.New(rand.NewSource(seed))
	} else {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	resampleMeans := make([]float64, defaultResamples)
	sample := make([]float64, n)
	for i := range resampleMeans {
		for j := range sample {
			sample[j] = totals[rng.Intn(n)]
		}
		resampleMeans[i] = mean(sample)
	}
	sort.Float64s(resampleMeans)

	alpha := 1.0 - confidenceLevel
	lo := int(math.Floor(alpha / 2.0 * defaultResamples))
	hi := int(math.Floor((1.0 - alpha/2.0) * defaultResamples))
	if hi >= defaultResamples {
		hi = defaultResamples - 1
	}

	return ConfidenceInterval{
		Lower:           resampleMeans[lo],
		Upper:           resampleMeans[hi],
		Mean:            m,
		ConfidenceLevel: confidenceLevel,
		Resamples:       defaultResamples,
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
