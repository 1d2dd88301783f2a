package contract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequirePasses(t *testing.T) {
	assert.NotPanics(t, func() {
		Require(true, "op", "never formatted %d", 1)
	})
}

func TestRequirePanicsWithViolation(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r)
		v, ok := r.(*Violation)
		require.True(t, ok, "panic value is %T, want *Violation", r)
		assert.Equal(t, "geometry.Surface", v.Op)
		assert.Equal(t, "geometry.Surface: index 3 out of range [1, 2]", v.Error())
	}()
	Require(false, "geometry.Surface", "index %d out of range [1, %d]", 3, 2)
}

func TestRecoverConvertsViolation(t *testing.T) {
	run := func() (err error) {
		defer Recover(&err)
		Fail("geometry.SetDeadRegion", "dead region already set to %d", 3)
		return nil
	}

	err := run()
	require.Error(t, err)

	var v *Violation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, "geometry.SetDeadRegion", v.Op)
	assert.Contains(t, err.Error(), "already set")
}

func TestRecoverLeavesNilOnSuccess(t *testing.T) {
	run := func() (err error) {
		defer Recover(&err)
		return nil
	}
	assert.NoError(t, run())
}

func TestRecoverRepanicsForeignValues(t *testing.T) {
	assert.PanicsWithValue(t, "boom", func() {
		var err error
		defer Recover(&err)
		panic("boom")
	})
}
