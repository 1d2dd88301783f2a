package surface

import (
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCylinderRejectsBadInput(t *testing.T) {
	_, err := NewCylinder(v3.Vec{}, v3.Vec{Z: 1}, 0)
	assert.Error(t, err)
	_, err = NewCylinder(v3.Vec{}, v3.Vec{}, 1)
	assert.Error(t, err)
}

func TestCylinderIntercept(t *testing.T) {
	xCyl, err := NewCylinder(v3.Vec{X: 1, Y: 1}, v3.Vec{X: 1}, 3)
	require.NoError(t, err)
	zCyl, err := NewCylinder(v3.Vec{}, v3.Vec{Z: 1}, 3)
	require.NoError(t, err)

	tests := []struct {
		name     string
		cyl      *Cylinder
		p, d     v3.Vec
		wantPos  bool
		wantHit  bool
		wantDist float64
	}{
		{
			name:     "x axis from inside",
			cyl:      xCyl,
			p:        v3.Vec{X: 1.5},
			d:        v3.Vec{Y: 1},
			wantPos:  false,
			wantHit:  true,
			wantDist: 4.0,
		},
		{
			name:     "x axis from outside approaching",
			cyl:      xCyl,
			p:        v3.Vec{X: -1, Y: -2, Z: 0.5},
			d:        diag,
			wantPos:  true,
			wantHit:  true,
			wantDist: 0.0593405544489074,
		},
		{
			name:    "x axis from outside receding",
			cyl:     xCyl,
			p:       v3.Vec{X: -1, Y: -2, Z: 0.5},
			d:       antiDiag,
			wantPos: true,
			wantHit: false,
		},
		{
			name:     "z axis from inside",
			cyl:      zCyl,
			p:        v3.Vec{X: 1.5},
			d:        v3.Vec{Y: 1},
			wantPos:  false,
			wantHit:  true,
			wantDist: 2.598076211353316,
		},
		{
			name:     "z axis from inside diagonal",
			cyl:      zCyl,
			p:        v3.Vec{X: -1, Y: -2, Z: 0.5},
			d:        diag,
			wantPos:  false,
			wantHit:  true,
			wantDist: 5.036796290982293,
		},
		{
			name:     "z axis from inside antidiagonal",
			cyl:      zCyl,
			p:        v3.Vec{X: -1, Y: -2, Z: 0.5},
			d:        antiDiag,
			wantPos:  false,
			wantHit:  true,
			wantDist: 1.414213562373095,
		},
		{
			name:    "z axis moving along the axis",
			cyl:     zCyl,
			p:       v3.Vec{X: -1, Y: -2, Z: 0.5},
			d:       v3.Vec{Z: 1},
			wantPos: false,
			wantHit: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := tt.cyl.IsPositive(tt.p)
			assert.Equal(t, tt.wantPos, pos, "IsPositive")
			hit, dist := tt.cyl.Intercept(tt.p, tt.d, pos)
			assert.Equal(t, tt.wantHit, hit)
			assert.InDelta(t, tt.wantDist, dist, 1e-9)
		})
	}
}

func TestCylinderIsPositive(t *testing.T) {
	c, err := NewCylinder(v3.Vec{}, v3.Vec{Z: 1}, 3)
	require.NoError(t, err)
	assert.False(t, c.IsPositive(v3.Vec{X: -1, Y: -2}))
	assert.True(t, c.IsPositive(v3.Vec{X: -3, Y: -3}))
	assert.False(t, c.IsPositive(v3.Vec{X: 3, Z: 100}), "boundary point")
}

func TestCylinderNormal(t *testing.T) {
	c, err := NewCylinder(v3.Vec{X: 1, Y: 1}, v3.Vec{X: 2}, 3)
	require.NoError(t, err)

	n := c.Normal(v3.Vec{X: 10, Y: 4})
	assert.InDelta(t, 0, n.X, tol)
	assert.InDelta(t, 1, n.Y, tol)
	assert.InDelta(t, 0, n.Z, tol)

	onAxis := c.Normal(v3.Vec{X: 5, Y: 1})
	assert.True(t, IsUnit(onAxis))
	assert.InDelta(t, 0, onAxis.Dot(c.Axis()), tol)

	assert.InDelta(t, 0, c.SignedDistance(v3.Vec{X: 5, Y: 4}), tol)
}
