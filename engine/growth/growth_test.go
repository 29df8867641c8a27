package growth

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/WessleyAI/vahan-insights/engine/domain"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func monthly(start time.Time, values ...float64) []domain.TrendPoint {
	out := make([]domain.TrendPoint, len(values))
	for i, v := range values {
		out[i] = domain.TrendPoint{Period: start.AddDate(0, i, 0).Format("2006-01-02"), Value: v}
	}
	return out
}

func TestComputeYoY(t *testing.T) {
	values := make([]float64, 13)
	for i := range values {
		values[i] = 100
	}
	values[12] = 110

	table := ComputeYoY(monthly(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), values...))
	if table.Metric != domain.MetricYoY {
		t.Fatalf("expected metric %s, got %s", domain.MetricYoY, table.Metric)
	}
	if len(table.Rows) != 13 {
		t.Fatalf("expected 13 rows, got %d", len(table.Rows))
	}
	for i := 0; i < 12; i++ {
		if table.Rows[i].Change != nil {
			t.Fatalf("bucket %d: expected nil change, got %v", i+1, *table.Rows[i].Change)
		}
	}
	if c := table.Rows[12].Change; c == nil || !approx(*c, 10) {
		t.Fatalf("expected 10.0 at bucket 13, got %v", c)
	}
}

func TestComputeQoQ(t *testing.T) {
	points := []domain.TrendPoint{
		{Period: "2024-01-01", Value: 100},
		{Period: "2024-04-01", Value: 90},
	}
	table := ComputeQoQ(points)
	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table.Rows))
	}
	if table.Rows[0].Change != nil {
		t.Fatal("expected nil change for first quarter")
	}
	if c := table.Rows[1].Change; c == nil || !approx(*c, -10) {
		t.Fatalf("expected -10.0, got %v", c)
	}
}

func TestResampleSumsDuplicates(t *testing.T) {
	points := []domain.TrendPoint{
		{Period: "2024-01-15", Value: 7},
		{Period: "2024-01-01", Value: 5},
	}
	table := ComputeYoY(points)
	if len(table.Rows) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(table.Rows))
	}
	if table.Rows[0].Value != 12 {
		t.Fatalf("expected 12, got %v", table.Rows[0].Value)
	}
	if !table.Rows[0].Date.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected January bucket, got %v", table.Rows[0].Date)
	}
}

func TestResampleFillsGaps(t *testing.T) {
	points := []domain.TrendPoint{
		{Period: "Jan-2024", Value: 10},
		{Period: "Apr-2024", Value: 20},
	}
	table := ComputeYoY(points)
	if len(table.Rows) != 4 {
		t.Fatalf("expected 4 monthly buckets, got %d", len(table.Rows))
	}
	if table.Rows[1].Value != 0 || table.Rows[2].Value != 0 {
		t.Fatalf("expected zero-filled gaps, got %v", table.Rows)
	}

	qoq := ComputeQoQ(points)
	if len(qoq.Rows) != 2 || qoq.Rows[1].Change == nil || !approx(*qoq.Rows[1].Change, 100) {
		t.Fatalf("expected +100%% between quarters, got %+v", qoq.Rows)
	}
}

func TestZeroPriorGivesNil(t *testing.T) {
	table := ComputeQoQ([]domain.TrendPoint{
		{Period: "2024-01-01", Value: 0},
		{Period: "2024-04-01", Value: 50},
	})
	if table.Rows[1].Change != nil {
		t.Fatalf("expected nil change against zero, got %v", *table.Rows[1].Change)
	}
}

func TestEmptyAndUnparseable(t *testing.T) {
	for _, points := range [][]domain.TrendPoint{
		nil,
		{{Period: "not a date", Value: 1}, {Period: "", Value: 2}},
	} {
		table := ComputeYoY(points)
		if table.Metric != domain.MetricYoY || len(table.Rows) != 0 {
			t.Fatalf("expected empty YoY table, got %+v", table)
		}
		if _, ok := Latest(table); ok {
			t.Fatal("expected no latest value")
		}
	}
}

func TestLatest(t *testing.T) {
	table := ComputeQoQ([]domain.TrendPoint{
		{Period: "2024-01-01", Value: 100},
		{Period: "2024-04-01", Value: 150},
		{Period: "2024-07-01", Value: 0},
		{Period: "2024-10-01", Value: 10},
	})
	v, ok := Latest(table)
	if !ok || !approx(v, -100) {
		t.Fatalf("expected -100 from the last non-nil bucket, got %v %v", v, ok)
	}
}

func TestTail(t *testing.T) {
	table := ComputeYoY(monthly(time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), make([]float64, 30)...))
	tail := Tail(table, 12)
	if len(tail.Rows) != 12 {
		t.Fatalf("expected 12 rows, got %d", len(tail.Rows))
	}
	if !tail.Rows[11].Date.Equal(table.Rows[29].Date) {
		t.Fatal("tail does not end at the last row")
	}
	if len(Tail(table, 100).Rows) != 30 {
		t.Fatal("tail longer than table should keep every row")
	}
}

func TestParsePeriod(t *testing.T) {
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{
		"2024-03", "2024-03-17", "2024-03-17T10:00:00Z", "Mar-2024", "Mar 2024",
		"March 2024", "2024 Mar", "03/2024", "2024/03",
	} {
		got, ok := ParsePeriod(s)
		if !ok || !got.Equal(want) {
			t.Fatalf("%q: expected %v, got %v (ok=%v)", s, want, got, ok)
		}
	}
	if got, ok := ParsePeriod("2023"); !ok || got.Year() != 2023 || got.Month() != time.January {
		t.Fatalf("expected 2023-01-01, got %v", got)
	}
	if _, ok := ParsePeriod("Q1"); ok {
		t.Fatal("expected Q1 to be rejected")
	}
}

func TestQuarterLabel(t *testing.T) {
	for m := 1; m <= 12; m++ {
		got := QuarterLabel(time.Date(2024, time.Month(m), 5, 0, 0, 0, 0, time.UTC))
		want := fmt.Sprintf("Q%d-2024", (m-1)/3+1)
		if got != want {
			t.Fatalf("month %d: expected %s, got %s", m, want, got)
		}
	}
}
