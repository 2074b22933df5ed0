package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentageOfRoundsHalfUp(t *testing.T) {
	cases := []struct {
		name string
		pct  string
		base Amount
		want Amount
	}{
		{name: "whole", pct: "20", base: 20000000, want: 4000000},
		{name: "eighth of a paisa", pct: "12.5", base: 1, want: 0},
		{name: "half of a paisa", pct: "50", base: 1, want: 1},
		{name: "fractional slab", pct: "12.5", base: 333, want: 42},
		{name: "below half", pct: "10", base: 4, want: 0},
		{name: "zero percent", pct: "0", base: 5000000, want: 0},
		{name: "full waiver", pct: "100", base: 5000000, want: 5000000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := MustPercentage(tc.pct)
			assert.Equal(t, tc.want, p.Of(tc.base))
		})
	}
}

func TestNewPercentageRejectsOutOfRange(t *testing.T) {
	_, err := NewPercentage("101")
	require.Error(t, err)
	_, err = NewPercentage("-1")
	require.Error(t, err)
	_, err = NewPercentage("abc")
	require.Error(t, err)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "INR 1600.00", Format(160000, "INR"))
	assert.Equal(t, "INR 0.05", Format(5, "INR"))
	assert.Equal(t, "-INR 1.50", Format(-150, "INR"))
}

func TestPercentagePrecisionMatchesStoredScale(t *testing.T) {
	_, err := NewPercentage("12.345")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "two decimal places")

	p, err := NewPercentage("12.5")
	require.NoError(t, err)
	assert.Equal(t, "12.5", p.String())

	_, err = NewPercentage("33.33")
	assert.NoError(t, err)
	assert.Error(t, Percentage{decimal.RequireFromString("10.001")}.Validate())
}
