package core

import "sort"

// Point is one step of the running balance.
type Point struct {
	Date  string // YYYY-MM-DD
	Total int64
}

// Total sums the values of ts.
func Total(ts []Transaction) int64 {
	var sum int64
	for _, t := range ts {
		sum += t.Value
	}
	return sum
}

// RunningTotals returns the cumulative balance after each transaction,
// oldest first. The input is not modified.
func RunningTotals(ts []Transaction) []Point {
	sorted := make([]Transaction, len(ts))
	copy(sorted, ts)
	SortOldestFirst(sorted)

	points := make([]Point, 0, len(sorted))
	var sum int64
	for _, t := range sorted {
		sum += t.Value
		points = append(points, Point{Date: t.Date.UTC().Format("2006-01-02"), Total: sum})
	}
	return points
}

// SortNewestFirst orders ts by date descending, ties broken by name.
func SortNewestFirst(ts []Transaction) {
	sort.SliceStable(ts, func(i, j int) bool {
		if ts[i].Date.Equal(ts[j].Date) {
			return ts[i].Name < ts[j].Name
		}
		return ts[i].Date.After(ts[j].Date)
	})
}

// SortOldestFirst orders ts by date ascending, ties broken by name.
func SortOldestFirst(ts []Transaction) {
	sort.SliceStable(ts, func(i, j int) bool {
		if ts[i].Date.Equal(ts[j].Date) {
			return ts[i].Name < ts[j].Name
		}
		return ts[i].Date.Before(ts[j].Date)
	})
}
