package forecast

import (
	"math"
	"testing"
	"time"

	"mandiarb/internal/model"
)

func day(n int) time.Time {
	return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func seriesRecords(market, crop string, prices []float64) []model.MarketPriceRecord {
	recs := make([]model.MarketPriceRecord, len(prices))
	for i, p := range prices {
		recs[i] = model.MarketPriceRecord{
			Date:         day(i),
			Market:       market,
			Crop:         crop,
			PricePerKg:   p,
			DistanceKm:   26,
			TrafficScore: 0.4,
		}
	}
	return recs
}

func TestEngineerFeatures_CalendarAndTrend(t *testing.T) {
	recs := seriesRecords("Ahmedabad", "Onion", []float64{30, 31, 32})
	series := EngineerFeatures(recs)
	if len(series) != 1 {
		t.Fatalf("series = %d, want 1", len(series))
	}
	rows := series[0].Rows
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}

	// 2025-06-01 is a Sunday, Monday-anchored weekday 6.
	v := rows[0].Features
	if v[2] != 6 {
		t.Fatalf("day_of_week = %v, want 6", v[2])
	}
	if v[3] != 1 {
		t.Fatalf("day_of_month = %v, want 1", v[3])
	}
	if v[5] != 6 {
		t.Fatalf("month = %v, want 6", v[5])
	}
	if v[6] != 0 {
		t.Fatalf("days_since_start = %v, want 0", v[6])
	}
	if got := rows[2].Features[6]; got != 2 {
		t.Fatalf("days_since_start[2] = %v, want 2", got)
	}
	if v[0] != 26 || v[1] != 0.4 {
		t.Fatalf("distance/traffic = %v/%v, want 26/0.4", v[0], v[1])
	}
}

func TestEngineerFeatures_LagsAndBackfill(t *testing.T) {
	recs := seriesRecords("Ahmedabad", "Onion", []float64{10, 20, 30})
	rows := EngineerFeatures(recs)[0].Rows

	if got := rows[1].Features[7]; got != 10 {
		t.Fatalf("lag1[1] = %v, want 10", got)
	}
	if got := rows[2].Features[7]; got != 20 {
		t.Fatalf("lag1[2] = %v, want 20", got)
	}
	// Row 0 has no lag; it backfills from row 1's lag value.
	if got := rows[0].Features[7]; got != 10 {
		t.Fatalf("lag1[0] backfilled = %v, want 10", got)
	}
	// lag7 is undefined everywhere in a 3-row series; all columns still
	// end up defined via zero fill.
	for i, r := range rows {
		for col, f := range r.Features {
			if math.IsNaN(f) {
				t.Fatalf("row %d col %d is NaN after fill", i, col)
			}
		}
	}
}

func TestEngineerFeatures_RollingStats(t *testing.T) {
	recs := seriesRecords("Ahmedabad", "Onion", []float64{10, 20, 30, 40})
	rows := EngineerFeatures(recs)[0].Rows

	if got := rows[3].Features[10]; got != 25 {
		t.Fatalf("ma7[3] = %v, want 25", got)
	}
	// Sample std of {10,20} = sqrt(50).
	want := math.Sqrt(50)
	if got := rows[1].Features[12]; math.Abs(got-want) > 1e-9 {
		t.Fatalf("std7[1] = %v, want %v", got, want)
	}
}

func TestEngineerFeatures_GroupsNeverMix(t *testing.T) {
	recs := append(
		seriesRecords("Ahmedabad", "Onion", []float64{10, 10, 10}),
		seriesRecords("Rajkot", "Onion", []float64{99, 99, 99})...,
	)
	series := EngineerFeatures(recs)
	if len(series) != 2 {
		t.Fatalf("series = %d, want 2", len(series))
	}
	for _, s := range series {
		rows := s.Rows
		// lag1 of the second row must come from the same market, not the
		// other partition.
		want := rows[0].Price
		if got := rows[1].Features[7]; got != want {
			t.Fatalf("%s lag1 = %v, want %v", s.Market, got, want)
		}
	}
}

func TestEngineerFeatures_Empty(t *testing.T) {
	if got := EngineerFeatures(nil); got != nil {
		t.Fatalf("EngineerFeatures(nil) = %v, want nil", got)
	}
}
