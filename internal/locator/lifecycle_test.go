package locator

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/banshee-data/rover/internal/config"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReset(t *testing.T) {
	t.Parallel()
	l := newTestLocator(t, DefaultParams(), false)
	l.Predict(velocity(1, 0.5, 0.3))
	params := l.Params()

	l.Reset(2, 3, 0.5)

	assert.Equal(t, Pose{X: 2, Y: 3, Yaw: 0.5}, l.Pose())
	assert.Equal(t, Mat3{}, l.Covariance())
	assert.Equal(t, 0.3, l.Time(), "reset keeps the time cursor")
	assert.Equal(t, params, l.Params())
	assert.True(t, l.Initialized())
}

func TestPose_IsACopy(t *testing.T) {
	t.Parallel()
	l := newTestLocator(t, DefaultParams(), false)
	l.Reset(1, 1, 1)

	p := l.Pose()
	p.X = 42
	cov := l.Covariance()
	cov[0][0] = 42

	assert.Equal(t, 1.0, l.Pose().X)
	assert.Equal(t, 0.0, l.Covariance()[0][0])
}

func TestBackup_ContainsExactlyTheTunableParameters(t *testing.T) {
	t.Parallel()
	l := newTestLocator(t, DefaultParams(), false)

	want := map[string]any{
		KeyROdomLinear:           0.1,
		KeyROdomAngular:          0.097,
		KeyRImuAngular:           0.01,
		KeyOdometryAngularWeight: 0.1,
	}
	if diff := cmp.Diff(want, l.Backup()); diff != "" {
		t.Errorf("Backup() mismatch (-want +got):\n%s", diff)
	}
}

func TestRestore_RoundTripsThroughJSON(t *testing.T) {
	t.Parallel()
	src := newTestLocator(t, Params{ROdomLinear: 0.2, ROdomAngular: 0.3, RImuAngular: 0.04, OdometryAngularWeight: 0.6}, false)

	raw, err := json.Marshal(src.Backup())
	require.NoError(t, err)
	var data map[string]any
	require.NoError(t, json.Unmarshal(raw, &data))

	dst := newTestLocator(t, DefaultParams(), false)
	dst.Reset(5, 6, 7)
	dst.Restore(data)

	assert.Equal(t, src.Params(), dst.Params())
	assert.Equal(t, Pose{X: 5, Y: 6, Yaw: 7}, dst.Pose(), "restore never touches the estimate")
}

func TestRestore_FallsBackToDefaults(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		data map[string]any
		want Params
	}{
		{"nil record", nil, DefaultParams()},
		{"empty record", map[string]any{}, DefaultParams()},
		{
			"partial record",
			map[string]any{KeyROdomLinear: 0.5},
			Params{ROdomLinear: 0.5, ROdomAngular: 0.097, RImuAngular: 0.01, OdometryAngularWeight: 0.1},
		},
		{
			"wrong types",
			map[string]any{KeyROdomLinear: true, KeyRImuAngular: []int{1}, KeyROdomAngular: "nope"},
			DefaultParams(),
		},
		{
			"numeric variants",
			map[string]any{KeyROdomLinear: 1, KeyROdomAngular: int64(2), KeyRImuAngular: float32(0.5), KeyOdometryAngularWeight: json.Number("0.3")},
			Params{ROdomLinear: 1, ROdomAngular: 2, RImuAngular: 0.5, OdometryAngularWeight: 0.3},
		},
		{
			"string numbers",
			map[string]any{KeyROdomLinear: "0.25"},
			Params{ROdomLinear: 0.25, ROdomAngular: 0.097, RImuAngular: 0.01, OdometryAngularWeight: 0.1},
		},
		{
			"non-finite and negative",
			map[string]any{KeyROdomLinear: math.NaN(), KeyROdomAngular: -1.0, KeyRImuAngular: math.Inf(1)},
			DefaultParams(),
		},
		{
			"weight clamped",
			map[string]any{KeyOdometryAngularWeight: 3.0},
			Params{ROdomLinear: 0.1, ROdomAngular: 0.097, RImuAngular: 0.01, OdometryAngularWeight: 1},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := newTestLocator(t, Params{ROdomLinear: 9, ROdomAngular: 9, RImuAngular: 9, OdometryAngularWeight: 0.9}, false)
			assert.NotPanics(t, func() { l.Restore(tc.data) })
			assert.Equal(t, tc.want, l.Params())
		})
	}
}

func TestParamsFromTuning(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultParams(), ParamsFromTuning(config.EmptyTuningConfig()))

	w := 0.7
	lin := 0.3
	cfg := config.EmptyTuningConfig()
	cfg.OdometryAngularWeight = &w
	cfg.ROdomLinear = &lin
	p := ParamsFromTuning(cfg)
	assert.Equal(t, 0.7, p.OdometryAngularWeight)
	assert.Equal(t, 0.3, p.ROdomLinear)
	assert.Equal(t, 0.097, p.ROdomAngular)
}

func TestOverridesAndSnapshot(t *testing.T) {
	t.Parallel()
	l := New(DefaultParams(), nil, nil, nil, WithOverrides(Overrides{IgnoreGnss: true}))
	t.Cleanup(l.Close)

	assert.Equal(t, Overrides{IgnoreGnss: true}, l.Overrides())

	l.Predict(velocity(1, 0, 1))
	snap := l.Snapshot()
	assert.Equal(t, l.Pose(), snap.Pose)
	assert.Equal(t, l.CovarianceDiagonal(), snap.CovarianceDiagonal)
	assert.Equal(t, 1.0, snap.Time)
	assert.Equal(t, "odometry-only", snap.Variant)
	assert.Equal(t, uint64(1), snap.Stats.Predictions)
}

func TestVariant_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "odometry+imu", OdometryPlusImu.String())
	assert.Equal(t, "Variant(7)", Variant(7).String())
}
