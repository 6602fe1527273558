package gait

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gait_feedback/internal/orientation"
)

const rate = 100.0

func newDetector(t *testing.T) *Detector {
	t.Helper()
	d, err := NewDetector(rate)
	require.NoError(t, err)
	return d
}

func feed(t *testing.T, d *Detector, mag float64, n int) []Result {
	t.Helper()
	out := make([]Result, 0, n)
	for i := 0; i < n; i++ {
		r, err := d.UpdateMagnitude(mag)
		require.NoError(t, err)
		out = append(out, r)
	}
	return out
}

func TestInitialState(t *testing.T) {
	d := newDetector(t)
	want := State{Phase: Late, PrevPhase: Late, LastStanceTime: 0.6}
	if diff := cmp.Diff(want, d.State()); diff != "" {
		t.Errorf("initial state mismatch (-want +got):\n%s", diff)
	}

	p := d.Params()
	assert.InDelta(t, 15, p.MiddleThresholdIters, 1e-9)
	assert.InDelta(t, 30, p.LateThresholdIters, 1e-9)
	assert.InDelta(t, 10, p.HeelstrikeDebounceIters, 1e-9)
}

func TestNewDetectorRejectsBadRate(t *testing.T) {
	for _, hz := range []float64{0, -10, math.NaN(), math.Inf(1)} {
		_, err := NewDetector(hz)
		assert.Error(t, err, "rate %v", hz)
	}
}

func toSwing(t *testing.T, d *Detector) {
	t.Helper()
	r := feed(t, d, 200, 1)[0]
	require.Equal(t, Swing, r.Phase)
}

func TestHeelstrikeDebounceHolds(t *testing.T) {
	d := newDetector(t)
	toSwing(t, d)

	// Exactly HeelstrikeDebounceIters frames is not enough.
	for _, r := range feed(t, d, 10, 10) {
		assert.Equal(t, Swing, r.Phase)
		assert.Equal(t, 0, r.StepCount)
	}

	r := feed(t, d, 10, 1)[0]
	assert.Equal(t, Early, r.Phase)
	assert.Equal(t, 1, r.StepCount)
	assert.Equal(t, 0, d.State().BelowThresholdIters)
	assert.Equal(t, 0, d.State().StanceIters)
}

func TestHeelstrikeDebounceResetsAboveThreshold(t *testing.T) {
	d := newDetector(t)
	toSwing(t, d)

	feed(t, d, 10, 8)
	assert.Equal(t, 8, d.State().BelowThresholdIters)

	// Exactly at threshold is not below it.
	feed(t, d, GyroThresholdHeelstrike, 1)
	assert.Equal(t, 0, d.State().BelowThresholdIters)

	for _, r := range feed(t, d, 10, 10) {
		assert.Equal(t, Swing, r.Phase)
	}
	assert.Equal(t, 0, d.State().StepCount)
}

func TestFullCycleAndFeedbackWindow(t *testing.T) {
	d := newDetector(t)
	d.state.Phase = Swing
	d.state.PrevPhase = Swing

	feed(t, d, 0, 11)
	require.Equal(t, Early, d.State().Phase)

	// Early -> Middle once StanceIters > 15.
	rs := feed(t, d, 0, 16)
	assert.Equal(t, Early, rs[14].Phase)
	assert.Equal(t, Middle, rs[15].Phase)

	// Middle -> Late once StanceIters > 30.
	rs = feed(t, d, 0, 15)
	for i, r := range rs[:14] {
		assert.Equal(t, Middle, r.Phase, "frame %d", i)
		assert.False(t, r.InFeedbackWindow)
	}
	assert.Equal(t, Late, rs[14].Phase)
	assert.True(t, rs[14].InFeedbackWindow)

	// The window lasts exactly one frame.
	r := feed(t, d, 0, 1)[0]
	assert.Equal(t, Late, r.Phase)
	assert.False(t, r.InFeedbackWindow)

	// Toe-off after 33 stance frames: 0.33 s, clamped to 0.4 s.
	r = feed(t, d, 100, 1)[0]
	assert.Equal(t, Swing, r.Phase)
	assert.False(t, r.InFeedbackWindow)
	assert.Equal(t, 1, r.StepCount)
	assert.InDelta(t, 0.4, d.State().LastStanceTime, 1e-12)
	assert.InDelta(t, 10, d.Params().MiddleThresholdIters, 1e-9)
}

func TestLateToSwingRecomputesStanceTime(t *testing.T) {
	d := newDetector(t)
	d.state.StanceIters = 120 // above LateThresholdIters (30)

	r := feed(t, d, 50, 1)[0]
	assert.Equal(t, Swing, r.Phase)
	assert.False(t, r.InFeedbackWindow)
	assert.InDelta(t, 1.21, d.State().LastStanceTime, 1e-12)

	// Thresholds follow the new stance time.
	assert.InDelta(t, 0.25*1.21*rate, d.Params().MiddleThresholdIters, 1e-9)
	assert.InDelta(t, 0.5*1.21*rate, d.Params().LateThresholdIters, 1e-9)
}

func TestLastStanceTimeIsClamped(t *testing.T) {
	for _, tc := range []struct {
		stanceIters int
		want        float64
	}{
		{stanceIters: 9, want: MinStanceTime},   // 0.1 s
		{stanceIters: 499, want: MaxStanceTime}, // 5 s
		{stanceIters: 79, want: 0.8},
	} {
		d := newDetector(t)
		d.state.StanceIters = tc.stanceIters
		feed(t, d, 90, 1)
		assert.InDelta(t, tc.want, d.State().LastStanceTime, 1e-12, "stance iters %d", tc.stanceIters)
	}
}

func TestLateHoldsBelowToeoff(t *testing.T) {
	d := newDetector(t)
	for _, r := range feed(t, d, GyroThresholdToeoff, 50) {
		assert.Equal(t, Late, r.Phase)
	}
	assert.Equal(t, 50, d.State().StanceIters)
	assert.InDelta(t, InitialStanceTime, d.State().LastStanceTime, 1e-12)
}

func TestStepCountAcrossCycles(t *testing.T) {
	d := newDetector(t)
	for i := 0; i < 5; i++ {
		feed(t, d, 150, 40) // swing
		feed(t, d, 5, 60)   // stance
	}
	assert.Equal(t, 5, d.State().StepCount)
}

func TestUpdateUsesVectorNorm(t *testing.T) {
	d := newDetector(t)
	r, err := d.Update(30, 40, 0) // |g| = 50
	require.NoError(t, err)
	assert.InDelta(t, 50, r.GyroMagnitude, 1e-12)
	assert.Equal(t, Swing, r.Phase)
}

func TestUpdateRejectsNonFinite(t *testing.T) {
	d := newDetector(t)
	before := d.State()

	_, err := d.Update(1, math.NaN(), 0)
	var inv *orientation.InvalidInputError
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, "gyro", inv.Field)

	_, err = d.Update(math.Inf(-1), 0, 0)
	require.Error(t, err)

	assert.Equal(t, before, d.State(), "rejected frames must not touch state")
}

func TestPhaseJSON(t *testing.T) {
	b, err := json.Marshal(Result{Phase: Middle, StepCount: 3})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"gait_phase":"Middle"`)

	var r Result
	require.NoError(t, json.Unmarshal(b, &r))
	assert.Equal(t, Middle, r.Phase)

	var p Phase
	assert.Error(t, json.Unmarshal([]byte(`"Stance"`), &p))
}
