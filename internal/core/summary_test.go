package core

import (
	"testing"
	"time"
)

func TestTotalAndRunningTotals(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	ts := []Transaction{
		{Name: "Coffee", Value: -5, Date: day(3)},
		{Name: "Salary", Value: 100, Date: day(1)},
		{Name: "Rent", Value: -40, Date: day(2)},
	}

	if got := Total(ts); got != 55 {
		t.Fatalf("Total = %d, want 55", got)
	}

	points := RunningTotals(ts)
	want := []Point{{"2024-01-01", 100}, {"2024-01-02", 60}, {"2024-01-03", 55}}
	if len(points) != len(want) {
		t.Fatalf("got %d points, want %d", len(points), len(want))
	}
	for i := range want {
		if points[i] != want[i] {
			t.Fatalf("point %d = %+v, want %+v", i, points[i], want[i])
		}
	}
	if ts[0].Name != "Coffee" {
		t.Fatalf("RunningTotals must not reorder its input")
	}
}

func TestSortNewestFirst(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := []Transaction{
		{Name: "b", Date: base},
		{Name: "c", Date: base.Add(time.Hour)},
		{Name: "a", Date: base},
	}
	SortNewestFirst(ts)
	if ts[0].Name != "c" || ts[1].Name != "a" || ts[2].Name != "b" {
		t.Fatalf("unexpected order: %v, %v, %v", ts[0].Name, ts[1].Name, ts[2].Name)
	}
}
