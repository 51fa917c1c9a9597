package ceres

import "fmt"

// Sample is one point of a [TimeSeriesData] vector. Valid is false for a
// missing sample (the on-disk NaN, decoded); Value is meaningless when Valid
// is false.
type Sample struct {
	Value float64
	Valid bool
}

// MissingSample returns a Sample representing a missing value.
func MissingSample() Sample {
	return Sample{}
}

// ValueSample returns a Sample holding v.
func ValueSample(v float64) Sample {
	return Sample{Value: v, Valid: true}
}

// TimeSeriesData is a step-aligned, in-memory vector of optional float64
// samples spanning [StartTime, EndTime) at a fixed TimeStep. len(Values)
// always equals (EndTime-StartTime)/TimeStep.
type TimeSeriesData struct {
	StartTime int64
	EndTime   int64
	TimeStep  int64
	Values    []Sample
}

// NewTimeSeriesData builds a TimeSeriesData, panicking if values isn't sized
// to match the requested span (a programmer error, never a caller input
// error, so panic rather than return an error).
func NewTimeSeriesData(startTime, endTime, timeStep int64, values []Sample) *TimeSeriesData {
	want := 0
	if timeStep > 0 {
		want = int((endTime - startTime) / timeStep)
	}

	if len(values) != want {
		panic(fmt.Sprintf("ceres: series span [%d,%d) step %d wants %d values, got %d",
			startTime, endTime, timeStep, want, len(values)))
	}

	return &TimeSeriesData{StartTime: startTime, EndTime: endTime, TimeStep: timeStep, Values: values}
}

// missingSeries returns a fully-missing series spanning [from, until) at step.
func missingSeries(from, until, step int64) *TimeSeriesData {
	n := int((until - from) / step)
	values := make([]Sample, n)

	return &TimeSeriesData{StartTime: from, EndTime: until, TimeStep: step, Values: values}
}

// Len returns the number of samples.
func (s *TimeSeriesData) Len() int {
	return len(s.Values)
}

// Timestamps returns the timestamp of every sample, in order.
func (s *TimeSeriesData) Timestamps() []int64 {
	ts := make([]int64, len(s.Values))
	for i := range ts {
		ts[i] = s.StartTime + int64(i)*s.TimeStep
	}

	return ts
}

// Concat implements the original "+" operator: requires equal TimeStep and
// appends other's values after self's, spanning [self.StartTime, other.EndTime).
// No alignment checks beyond step equality are performed, matching ceres.py.
func (s *TimeSeriesData) Concat(other *TimeSeriesData) (*TimeSeriesData, error) {
	if s.TimeStep != other.TimeStep {
		return nil, fmt.Errorf("ceres: can't concat series with different steps: %d vs %d", s.TimeStep, other.TimeStep)
	}

	values := make([]Sample, 0, len(s.Values)+len(other.Values))
	values = append(values, s.Values...)
	values = append(values, other.Values...)

	return &TimeSeriesData{StartTime: s.StartTime, EndTime: other.EndTime, TimeStep: s.TimeStep, Values: values}, nil
}

// Merge merges other into s in place: requires equal TimeStep and
// other.StartTime >= s.StartTime. other's values overwrite s's at
// overlapping positions ("later write wins"); positions past s's current
// end are appended. If other extends past s.EndTime, s.EndTime grows.
func (s *TimeSeriesData) Merge(other *TimeSeriesData) error {
	if s.TimeStep != other.TimeStep {
		return fmt.Errorf("ceres: can't merge series with different steps: %d vs %d", s.TimeStep, other.TimeStep)
	}

	alignedStart := other.StartTime - (other.StartTime % s.TimeStep)
	index := int((alignedStart - s.StartTime) / s.TimeStep)

	for _, v := range other.Values {
		switch {
		case index < 0:
			// other starts before s; this cannot happen per the precondition,
			// but skip defensively rather than corrupt s.Values.
		case index < len(s.Values):
			s.Values[index] = v
		default:
			s.Values = append(s.Values, v)
		}

		index++
	}

	if other.EndTime > s.EndTime {
		s.EndTime = other.EndTime
	}

	return nil
}
