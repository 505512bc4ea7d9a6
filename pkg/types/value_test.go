package types_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rustql/pkg/types"
)

// TestValue_DateTimeIsUsableAsMapKeyAcrossLocations guards the invariant
// pkg/catalog's Index relies on: two Values built from the same instant
// must compare equal under == (and so collide to the same map bucket)
// even when the source time.Time values carry different *Location
// pointers or a monotonic reading - exactly what a naive time.Time field
// would not guarantee.
func TestValue_DateTimeIsUsableAsMapKeyAcrossLocations(t *testing.T) {
	utc := time.Date(2026, 8, 3, 14, 30, 0, 0, time.UTC)
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	sameInstantInNY := utc.In(loc)
	withMonotonic := time.Now()
	sameInstantNoMonotonic := withMonotonic.Round(0)

	a := types.NewDateTime(utc)
	b := types.NewDateTime(sameInstantInNY)
	assert.Equal(t, a, b, "same instant, different Location, must produce an identical Value")

	m := map[types.Value]string{a: "hit"}
	assert.Equal(t, "hit", m[b], "Value must be usable as a map key regardless of source Location")

	c := types.NewDateTime(withMonotonic)
	d := types.NewDateTime(sameInstantNoMonotonic)
	assert.Equal(t, c, d, "a monotonic reading on the source time.Time must not affect Value equality")
}

func TestValue_DateTimeRoundTripsThroughTime(t *testing.T) {
	src := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	v := types.NewDateTime(src)
	assert.True(t, v.Time().Equal(src))
	assert.Equal(t, time.UTC, v.Time().Location())
}

func TestValue_CompareDateTime(t *testing.T) {
	earlier := types.NewDateTime(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	later := types.NewDateTime(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))

	ord, err := types.Compare(earlier, later)
	require.NoError(t, err)
	assert.Equal(t, types.Less, ord)

	ord, err = types.Compare(later, earlier)
	require.NoError(t, err)
	assert.Equal(t, types.Greater, ord)

	ord, err = types.Compare(earlier, types.NewDateTime(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, types.Equal, ord)
}

func TestValue_CoerceIntegerToFloat(t *testing.T) {
	v, err := types.NewInteger(7).CoerceTo(types.KindFloat)
	require.NoError(t, err)
	assert.Equal(t, types.KindFloat, v.Kind())
	assert.Equal(t, 7.0, v.AsFloat())
}

func TestValue_CompareIncompatibleKindsIsTypeMismatch(t *testing.T) {
	_, err := types.Compare(types.NewText("x"), types.NewInteger(1))
	var mismatch *types.TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
}
