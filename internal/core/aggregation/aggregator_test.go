package aggregation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func decimals(vals ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vals))
	for i, v := range vals {
		out[i] = decimal.RequireFromString(v)
	}
	return out
}

func TestReducers(t *testing.T) {
	tests := []struct {
		name   string
		kind   Kind
		values []decimal.Decimal
		want   decimal.Decimal
	}{
		{name: "sum", kind: KindSum, values: decimals("30", "10", "2.5"), want: decimal.RequireFromString("42.5")},
		{name: "sum single", kind: KindSum, values: decimals("7"), want: decimal.NewFromInt(7)},
		{name: "min", kind: KindMin, values: decimals("30", "-1", "2.5"), want: decimal.NewFromInt(-1)},
		{name: "max", kind: KindMax, values: decimals("30", "-1", "2.5"), want: decimal.NewFromInt(30)},
		{name: "mean", kind: KindMean, values: decimals("1", "2", "6"), want: decimal.NewFromInt(3)},
		{name: "median odd", kind: KindMedian, values: decimals("9", "1", "5"), want: decimal.NewFromInt(5)},
		{name: "median even interpolates", kind: KindMedian, values: decimals("4", "1", "10", "2"), want: decimal.NewFromInt(3)},
		{name: "median single", kind: KindMedian, values: decimals("8"), want: decimal.NewFromInt(8)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reducer, ok := Reducers[tc.kind]
			require.True(t, ok)
			got := reducer.Reduce(tc.values)
			require.True(t, tc.want.Equal(got), "want %s, got %s", tc.want, got)
		})
	}
}

func TestMedianDoesNotReorderInput(t *testing.T) {
	values := decimals("3", "1", "2")
	Reducers[KindMedian].Reduce(values)
	require.Equal(t, decimals("3", "1", "2"), values)
}

func TestValidKind(t *testing.T) {
	for _, k := range []Kind{KindSum, KindMin, KindMax, KindMean, KindMedian} {
		require.True(t, ValidKind(k), k)
	}
	require.False(t, ValidKind("stddev"))
	require.False(t, ValidKind(""))
	require.Equal(t, []Kind{KindMax, KindMean, KindMedian, KindMin, KindSum}, Kinds())
}

func TestToDecimal(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   decimal.Decimal
		wantOK bool
	}{
		{name: "duration in seconds", in: 90 * time.Second, want: decimal.NewFromInt(90), wantOK: true},
		{name: "float64", in: 12.5, want: decimal.RequireFromString("12.5"), wantOK: true},
		{name: "int64", in: int64(8), want: decimal.NewFromInt(8), wantOK: true},
		{name: "int", in: 3, want: decimal.NewFromInt(3), wantOK: true},
		{name: "numeric string", in: "1.25", want: decimal.RequireFromString("1.25"), wantOK: true},
		{name: "text", in: "coding", wantOK: false},
		{name: "nil", in: nil, wantOK: false},
		{name: "time", in: time.Now(), wantOK: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ToDecimal(tc.in)
			require.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				require.True(t, tc.want.Equal(got), "want %s, got %s", tc.want, got)
			}
		})
	}
}
