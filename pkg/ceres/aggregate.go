package ceres

import "github.com/ceres-project/ceres/pkg/alg/stats"

// mean computes the arithmetic mean of the valid samples in values. The
// second return is false if the missing samples outnumber the present ones
// (ceres.py's aggregate_avg: "if nones > length: return None"), not only
// when every sample is missing.
func mean(values []Sample) (float64, bool) {
	valid := make([]float64, 0, len(values))

	missing := 0

	for _, v := range values {
		if v.Valid {
			valid = append(valid, v.Value)
		} else {
			missing++
		}
	}

	if missing > len(valid) || len(valid) == 0 {
		return 0, false
	}

	return stats.Mean(valid), true
}

// downsample reduces values (stepped at oldStep) to a series stepped at
// newStep, by averaging each contiguous chunk of factor=newStep/oldStep
// input samples into one output sample. Mirrors ceres.py's recalculateSeries
// chunking: a trailing partial chunk is kept only when it holds more than
// factor/4 samples, matching the original's "don't synthesize a point from
// mostly-missing data" rule.
func downsample(values []Sample, oldStep, newStep int64) []Sample {
	if oldStep <= 0 || newStep <= 0 || newStep < oldStep {
		return values
	}

	factor := int(newStep / oldStep)
	if factor <= 1 {
		return values
	}

	out := make([]Sample, 0, len(values)/factor+1)

	for i := 0; i < len(values); i += factor {
		end := i + factor
		if end > len(values) {
			end = len(values)
		}

		chunk := values[i:end]

		if len(chunk) < factor && len(chunk) <= factor/4 {
			continue
		}

		if v, ok := mean(chunk); ok {
			out = append(out, ValueSample(v))
		} else {
			out = append(out, MissingSample())
		}
	}

	return out
}
