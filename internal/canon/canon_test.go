package canon

import (
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_Modes(t *testing.T) {
	obj := Object{}.
		Set("b", 1).
		Set("a", Object{}.Set("z", true).Set("y", nil))

	sorted, err := Marshal(obj, Sorted)
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"y":null,"z":true},"b":1}`, string(sorted))

	declared, err := Marshal(obj, Declared)
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"a":{"z":true,"y":null}}`, string(declared))
}

func TestMarshal_Sorted_DoesNotReorderInput(t *testing.T) {
	obj := Object{}.Set("b", 1).Set("a", 2)

	_, err := Marshal(obj, Sorted)
	require.NoError(t, err)
	assert.Equal(t, "b", obj[0].Key)
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{-1e-13, "-1e-13"},
		{1, "1"},
		{-0.5, "-0.5"},
		{0.1, "0.1"},
		{math.Phi, "1.618033988749895"},
		{46.080000000000396, "46.080000000000396"},
		{1e6, "1e+06"},
		{123456.75, "123456.75"},
		{math.MaxFloat64, "1.7976931348623157e+308"},
	}

	for _, tt := range tests {
		got, err := FormatFloat(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "FormatFloat(%v)", tt.in)
	}
}

func TestFormatFloat_RoundTrips(t *testing.T) {
	for _, f := range []float64{0.2, 0.2000000000001, 0.9 + 4e-13, 1 + 1e-15, math.SmallestNonzeroFloat64, -math.MaxFloat64} {
		s, err := FormatFloat(f)
		require.NoError(t, err)
		back, err := strconv.ParseFloat(s, 64)
		require.NoError(t, err)
		assert.Equal(t, f, back, "FormatFloat(%v) = %s", f, s)
	}

	a, _ := FormatFloat(0.2)
	b, _ := FormatFloat(0.2000000000001)
	assert.NotEqual(t, a, b, "distinct floats must encode distinctly")
}

func TestMarshal_RejectsNonFinite(t *testing.T) {
	for _, v := range []interface{}{
		math.NaN(),
		math.Inf(1),
		[]float64{1, math.Inf(-1)},
		Object{}.Set("x", math.NaN()),
	} {
		_, err := Marshal(v, Sorted)
		assert.Error(t, err, "expected error for %v", v)
	}
}

func TestMarshal_Strings(t *testing.T) {
	got, err := Marshal([]string{"a\"b", "c\\d", "line\nbreak", "\x01", "ü", "tab\t", "bad\xff"}, Sorted)
	require.NoError(t, err)
	assert.Equal(t, `["a\"b","c\\d","line\nbreak","\u0001","ü","tab\t","bad`+"�"+`"]`, string(got))
}

func TestMarshal_Scalars(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 600, time.FixedZone("X", 3600))

	got, err := Marshal([]interface{}{int64(-7), 3, false, ts, []Object{{}}}, Declared)
	require.NoError(t, err)
	assert.Equal(t, `[-7,3,false,"2026-01-02T02:04:05.0000006Z",[{}]]`, string(got))
}

func TestMarshal_Unsupported(t *testing.T) {
	_, err := Marshal(map[string]int{"a": 1}, Sorted)
	assert.Error(t, err)

	_, err = Marshal(float32(1), Sorted)
	assert.Error(t, err)
}

func TestMarshal_DuplicateKeys(t *testing.T) {
	obj := Object{}.Set("a", 1).Set("a", 2)

	_, err := Marshal(obj, Sorted)
	assert.Error(t, err)

	_, err = Marshal(Object{}.Set("outer", obj), Sorted)
	assert.Error(t, err)
}

func TestSign(t *testing.T) {
	obj := Object{}.Set("x", 1.5)

	a, err := Sign("scheme.a", obj, Sorted)
	require.NoError(t, err)
	b, err := Sign("scheme.a", obj, Sorted)
	require.NoError(t, err)
	c, err := Sign("scheme.b", obj, Sorted)
	require.NoError(t, err)

	assert.Regexp(t, `^[0-9a-f]{64}$`, a)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c, "the scheme is part of the signed bytes")

	data, err := Marshal(obj, Sorted)
	require.NoError(t, err)
	assert.Equal(t, a, Digest("scheme.a", data))

	_, err = Sign("scheme.a", math.NaN(), Sorted)
	assert.Error(t, err)
}

func TestSign_KeyOrderIndependentWhenSorted(t *testing.T) {
	a, err := Sign("s", Object{}.Set("x", 1).Set("y", 2), Sorted)
	require.NoError(t, err)
	b, err := Sign("s", Object{}.Set("y", 2).Set("x", 1), Sorted)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Sign("s", Object{}.Set("x", 1).Set("y", 2), Declared)
	require.NoError(t, err)
	d, err := Sign("s", Object{}.Set("y", 2).Set("x", 1), Declared)
	require.NoError(t, err)
	assert.NotEqual(t, c, d)
}
