package export

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/WessleyAI/vahan-insights/engine/domain"
	"github.com/WessleyAI/vahan-insights/engine/growth"
)

func TestCSVRoundTrip(t *testing.T) {
	rows := []domain.LabelValue{
		{Label: "TWO WHEELER(NT)", Value: 1523004},
		{Label: "LMV, private", Value: 0.5},
		{Label: `quoted "label"`, Value: 12},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, FromLabelValues("Categories", "category_distribution.csv", rows)); err != nil {
		t.Fatalf("write: %v", err)
	}
	table, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got, err := ParseLabelValues(table)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(got, rows) {
		t.Fatalf("expected %v, got %v", rows, got)
	}
}

func TestWriteCSVFormat(t *testing.T) {
	var buf bytes.Buffer
	table := FromTrend("Trend", "registrations_monthly.csv", []domain.TrendPoint{{Period: "2023", Value: 100}, {Period: "2024", Value: 120.5}})
	if err := WriteCSV(&buf, table); err != nil {
		t.Fatal(err)
	}
	want := "date,value\n2023,100\n2024,120.5\n"
	if buf.String() != want {
		t.Fatalf("expected %q, got %q", want, buf.String())
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, FromLabelValues("x", "x.csv", nil))
	if !errors.Is(err, ErrEmptyTable) {
		t.Fatalf("expected ErrEmptyTable, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatal("nothing should be written for an empty table")
	}
}

func TestFromGrowth(t *testing.T) {
	g := growth.ComputeQoQ([]domain.TrendPoint{
		{Period: "2024-01-01", Value: 100},
		{Period: "2024-04-01", Value: 90},
	})
	table := FromGrowth("QoQ", "registrations_qoq.csv", g)
	if !reflect.DeepEqual(table.Header, []string{"date", "value", "QoQ%"}) {
		t.Fatalf("unexpected header %v", table.Header)
	}
	want := [][]string{{"2024-01-01", "100", ""}, {"2024-04-01", "90", "-10"}}
	if !reflect.DeepEqual(table.Rows, want) {
		t.Fatalf("expected %v, got %v", want, table.Rows)
	}
}

func TestFromRevenue(t *testing.T) {
	table := FromRevenue("Revenue", "revenue_trend.csv", []domain.RevenuePoint{{Year: "2022", Period: 2, Value: 20}})
	if !reflect.DeepEqual(table.Rows, [][]string{{"2022", "2", "20"}}) {
		t.Fatalf("unexpected rows %v", table.Rows)
	}
}

func TestReadCSVErrors(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("")); !errors.Is(err, ErrEmptyTable) {
		t.Fatalf("expected ErrEmptyTable, got %v", err)
	}
	if _, err := ReadCSV(strings.NewReader("label,value\na,1,extra\n")); err == nil {
		t.Fatal("expected field count error")
	}
	if _, err := ParseLabelValues(Table{Header: []string{"date", "value"}}); err == nil {
		t.Fatal("expected header error")
	}
	if _, err := ParseLabelValues(Table{Header: []string{"label", "value"}, Rows: [][]string{{"a", "x"}}}); err == nil {
		t.Fatal("expected number error")
	}
}

func TestWriteXLSX(t *testing.T) {
	tables := []Table{
		FromLabelValues("Categories", "category_distribution.csv", []domain.LabelValue{{Label: "2W", Value: 10}}),
		FromLabelValues("Empty", "empty.csv", nil),
		FromGrowth("YoY: monthly", "registrations_yoy.csv", domain.GrowthTable{
			Metric: domain.MetricYoY,
			Rows:   []domain.GrowthRow{{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Value: 5}},
		}),
	}
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, tables...); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if !reflect.DeepEqual(sheets, []string{"Categories", "YoY_ monthly"}) {
		t.Fatalf("unexpected sheets %v", sheets)
	}
	rows, err := f.GetRows("Categories")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0][0] != "label" || rows[1][0] != "2W" || rows[1][1] != "10" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestWriteXLSXAllEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, FromTrend("t", "t.csv", nil)); !errors.Is(err, ErrEmptyTable) {
		t.Fatalf("expected ErrEmptyTable, got %v", err)
	}
}
