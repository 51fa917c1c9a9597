package ceres_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ceres-project/ceres/pkg/ceres"
)

func TestTimeSeriesData_Concat(t *testing.T) {
	t.Parallel()

	a := ceres.NewTimeSeriesData(0, 120, 60, []ceres.Sample{
		ceres.ValueSample(1),
		ceres.ValueSample(2),
	})
	b := ceres.NewTimeSeriesData(120, 180, 60, []ceres.Sample{
		ceres.ValueSample(3),
	})

	out, err := a.Concat(b)
	require.NoError(t, err)
	require.Equal(t, int64(0), out.StartTime)
	require.Equal(t, int64(180), out.EndTime)
	require.Len(t, out.Values, 3)
	require.Equal(t, 3.0, out.Values[2].Value)
}

func TestTimeSeriesData_Concat_StepMismatch(t *testing.T) {
	t.Parallel()

	a := ceres.NewTimeSeriesData(0, 60, 60, []ceres.Sample{ceres.ValueSample(1)})
	b := ceres.NewTimeSeriesData(60, 180, 120, []ceres.Sample{ceres.ValueSample(2)})

	_, err := a.Concat(b)
	require.Error(t, err)
}

func TestTimeSeriesData_Merge_OverwritesOverlap(t *testing.T) {
	t.Parallel()

	base := ceres.NewTimeSeriesData(0, 180, 60, []ceres.Sample{
		ceres.ValueSample(1),
		ceres.ValueSample(2),
		ceres.ValueSample(3),
	})

	newer := ceres.NewTimeSeriesData(60, 240, 60, []ceres.Sample{
		ceres.ValueSample(20),
		ceres.ValueSample(30),
		ceres.ValueSample(40),
	})

	err := base.Merge(newer)
	require.NoError(t, err)

	require.Equal(t, int64(240), base.EndTime)
	require.Len(t, base.Values, 4)
	require.Equal(t, 1.0, base.Values[0].Value)
	require.Equal(t, 20.0, base.Values[1].Value)
	require.Equal(t, 30.0, base.Values[2].Value)
	require.Equal(t, 40.0, base.Values[3].Value)
}
