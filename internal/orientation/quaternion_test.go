package orientation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-9

var sampleRotations = []Quaternion{
	Identity,
	FromYaw(37),
	FromEulerZYX(120, -30, 45),
	FromEulerZYX(-170, 60, -100),
	FromEulerZYX(5, 89, 10),
	{W: 0.5, X: 0.5, Y: 0.5, Z: 0.5},
}

func assertQuatEqual(t *testing.T, want, got Quaternion) {
	t.Helper()
	assert.InDelta(t, want.W, got.W, tol, "w")
	assert.InDelta(t, want.X, got.X, tol, "x")
	assert.InDelta(t, want.Y, got.Y, tol, "y")
	assert.InDelta(t, want.Z, got.Z, tol, "z")
}

func TestInverseRoundTrip(t *testing.T) {
	for _, q := range sampleRotations {
		assertQuatEqual(t, q, Inverse(Inverse(q)))
		assertQuatEqual(t, Identity, Compose(q, Inverse(q)))
		assertQuatEqual(t, Identity, Compose(Inverse(q), q))
	}
}

func TestComposeOrder(t *testing.T) {
	a := FromEulerZYX(0, 0, 90)
	b := FromYaw(90)

	ab := Compose(a, b)
	ba := Compose(b, a)
	assert.Greater(t, math.Abs(ab.X-ba.X)+math.Abs(ab.Y-ba.Y)+math.Abs(ab.Z-ba.Z), 0.1)

	// Yaw then intrinsic roll is exactly the ZYX triple (90, 0, 90).
	p := EulerZYX(ba)
	assert.InDelta(t, 90, p.Yaw, 1e-9)
	assert.InDelta(t, 0, p.Pitch, 1e-9)
	assert.InDelta(t, 90, p.Roll, 1e-9)
}

func TestEulerZYXRoundTrip(t *testing.T) {
	cases := []Pose{
		{Yaw: 0, Pitch: 0, Roll: 0},
		{Yaw: 30, Pitch: 20, Roll: 10},
		{Yaw: -135, Pitch: -45, Roll: 170},
		{Yaw: 179, Pitch: 1, Roll: -179},
	}
	for _, want := range cases {
		got := EulerZYX(FromEulerZYX(want.Yaw, want.Pitch, want.Roll))
		assert.InDelta(t, want.Yaw, got.Yaw, 1e-9)
		assert.InDelta(t, want.Pitch, got.Pitch, 1e-9)
		assert.InDelta(t, want.Roll, got.Roll, 1e-9)
	}
}

func TestEulerZYXGimbalLock(t *testing.T) {
	p := EulerZYX(FromEulerZYX(40, 90, 0))
	assert.InDelta(t, 40, p.Yaw, 1e-5)
	assert.InDelta(t, 90, p.Pitch, 1e-5)
	assert.Equal(t, 0.0, p.Roll)
}

func TestFromYawIsPureYaw(t *testing.T) {
	for _, deg := range []float64{-179, -90, 0, 45, 180} {
		p := EulerZYX(FromYaw(deg))
		assert.InDelta(t, Wrap180(deg), p.Yaw, 1e-9)
		assert.InDelta(t, 0, p.Pitch, 1e-9)
		assert.InDelta(t, 0, p.Roll, 1e-9)
	}
}

func TestWrap180(t *testing.T) {
	cases := map[float64]float64{
		0:    0,
		181:  -179,
		-181: 179,
		180:  180,
		-180: 180,
		360:  0,
		540:  180,
		-725: -5,
		90.5: 90.5,
	}
	for in, want := range cases {
		assert.InDelta(t, want, Wrap180(in), 1e-12, "Wrap180(%v)", in)
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, Identity.Validate())
	require.NoError(t, FromEulerZYX(10, 20, 30).Validate())

	assert.Error(t, Quaternion{}.Validate())
	assert.Error(t, Quaternion{W: 2}.Validate())
	assert.Error(t, Quaternion{W: math.NaN()}.Validate())
	assert.Error(t, Quaternion{W: 1, X: math.Inf(1)}.Validate())
}
