package aggregation

import (
	"sort"

	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// Reducer collapses the metric values of one (period, group) pair into a single value.
// Callers never pass an empty slice; empty pairs produce no row at all.
type Reducer interface {
	Reduce(values []decimal.Decimal) decimal.Decimal
}

// Reducers is the registry of supported aggregation kinds.
// A kind is valid exactly when it has an entry here.
var Reducers = map[Kind]Reducer{
	KindSum:    sumReducer{},
	KindMin:    minReducer{},
	KindMax:    maxReducer{},
	KindMean:   meanReducer{},
	KindMedian: medianReducer{},
}

// ValidKind reports whether k is a registered aggregation kind.
func ValidKind(k Kind) bool {
	_, ok := Reducers[k]
	return ok
}

// Kinds returns the registered kinds in a stable order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(Reducers))
	for k := range Reducers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

type sumReducer struct{}

func (sumReducer) Reduce(values []decimal.Decimal) decimal.Decimal {
	return decimal.Sum(values[0], values[1:]...)
}

type minReducer struct{}

func (minReducer) Reduce(values []decimal.Decimal) decimal.Decimal {
	return decimal.Min(values[0], values[1:]...)
}

type maxReducer struct{}

func (maxReducer) Reduce(values []decimal.Decimal) decimal.Decimal {
	return decimal.Max(values[0], values[1:]...)
}

type meanReducer struct{}

func (meanReducer) Reduce(values []decimal.Decimal) decimal.Decimal {
	return decimal.Avg(values[0], values[1:]...)
}

// medianReducer interpolates linearly between the two middle values of an
// even-sized set, matching PERCENTILE_CONT(0.5).
type medianReducer struct{}

func (medianReducer) Reduce(values []decimal.Decimal) decimal.Decimal {
	sorted := make([]decimal.Decimal, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return sorted[mid-1].Add(sorted[mid]).Div(two)
}
