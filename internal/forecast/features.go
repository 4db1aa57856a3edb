// Package forecast trains one gradient-boosted price model per (market, crop)
// pair and produces short-horizon recursive forecasts from it.
package forecast

import (
	"math"
	"sort"
	"time"

	"mandiarb/internal/model"
)

// FeatureNames is the fixed, ordered feature vector layout shared by
// training and forecasting. Index positions are load-bearing.
var FeatureNames = []string{
	"distance_km",
	"traffic_score",
	"day_of_week",
	"day_of_month",
	"week_of_year",
	"month",
	"days_since_start",
	"price_lag_1",
	"price_lag_7",
	"price_lag_14",
	"price_ma_7",
	"price_ma_14",
	"price_std_7",
	"price_change_7d",
}

// FeatureRow is one fully materialized training example.
type FeatureRow struct {
	Date     time.Time
	Price    float64
	Features []float64
}

// Series is the engineered feature series of one (market, crop) pair, rows in
// ascending date order.
type Series struct {
	Market string
	Crop   string
	Rows   []FeatureRow
}

// EngineerFeatures partitions the records by (market, crop) and computes the
// time-series features per partition, never mixing observations across pairs.
// The day-count trend is anchored at the earliest date of the whole dataset.
// Lag and rolling gaps at series boundaries are backward- then forward-filled
// so every returned vector is fully defined.
func EngineerFeatures(records []model.MarketPriceRecord) []Series {
	if len(records) == 0 {
		return nil
	}
	start := records[0].Date
	for _, r := range records {
		if r.Date.Before(start) {
			start = r.Date
		}
	}

	groups := make(map[string][]model.MarketPriceRecord)
	var keys []string
	for _, r := range records {
		k := Key(r.Market, r.Crop)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], r)
	}
	sort.Strings(keys)

	out := make([]Series, 0, len(keys))
	for _, k := range keys {
		recs := groups[k]
		prices := make([]float64, len(recs))
		for i, r := range recs {
			prices[i] = r.PricePerKg
		}
		rows := make([]FeatureRow, len(recs))
		for i, r := range recs {
			v := make([]float64, len(FeatureNames))
			v[0] = r.DistanceKm
			v[1] = r.TrafficScore
			fillCalendar(v, r.Date, start)
			v[7] = lagAt(prices, i, 1)
			v[8] = lagAt(prices, i, 7)
			v[9] = lagAt(prices, i, 14)
			v[10] = rollingMean(prices, i, 7)
			v[11] = rollingMean(prices, i, 14)
			v[12] = rollingStd(prices, i, 7)
			v[13] = pctChange(prices, i, 7)
			rows[i] = FeatureRow{Date: r.Date, Price: r.PricePerKg, Features: v}
		}
		fillGaps(rows)
		out = append(out, Series{Market: recs[0].Market, Crop: recs[0].Crop, Rows: rows})
	}
	return out
}

// fillCalendar writes the calendar features and the day-count trend into v.
func fillCalendar(v []float64, date, start time.Time) {
	v[2] = float64((int(date.Weekday()) + 6) % 7) // Monday = 0
	v[3] = float64(date.Day())
	_, week := date.ISOWeek()
	v[4] = float64(week)
	v[5] = float64(int(date.Month()))
	v[6] = math.Round(date.Sub(start).Hours() / 24)
}

// lagAt returns the price k rows back, NaN before the series has that depth.
func lagAt(prices []float64, i, k int) float64 {
	if i < k {
		return math.NaN()
	}
	return prices[i-k]
}

// rollingMean averages the trailing window ending at i, minimum one period.
func rollingMean(prices []float64, i, window int) float64 {
	lo := i - window + 1
	if lo < 0 {
		lo = 0
	}
	sum := 0.0
	for _, p := range prices[lo : i+1] {
		sum += p
	}
	return sum / float64(i+1-lo)
}

// rollingStd is the sample standard deviation of the trailing window; NaN
// until two observations exist, matching a min-period-1 rolling std.
func rollingStd(prices []float64, i, window int) float64 {
	lo := i - window + 1
	if lo < 0 {
		lo = 0
	}
	n := i + 1 - lo
	if n < 2 {
		return math.NaN()
	}
	mean := 0.0
	for _, p := range prices[lo : i+1] {
		mean += p
	}
	mean /= float64(n)
	ss := 0.0
	for _, p := range prices[lo : i+1] {
		d := p - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// pctChange is the relative price change over k rows, NaN at the boundary.
func pctChange(prices []float64, i, k int) float64 {
	if i < k || prices[i-k] == 0 {
		return math.NaN()
	}
	return (prices[i] - prices[i-k]) / prices[i-k]
}

// fillGaps replaces NaN features with the nearest defined value in the same
// column: backward fill first, then forward fill, then zero for columns with
// no defined value at all.
func fillGaps(rows []FeatureRow) {
	if len(rows) == 0 {
		return
	}
	for col := range FeatureNames {
		for i := len(rows) - 2; i >= 0; i-- {
			if math.IsNaN(rows[i].Features[col]) && !math.IsNaN(rows[i+1].Features[col]) {
				rows[i].Features[col] = rows[i+1].Features[col]
			}
		}
		for i := 1; i < len(rows); i++ {
			if math.IsNaN(rows[i].Features[col]) && !math.IsNaN(rows[i-1].Features[col]) {
				rows[i].Features[col] = rows[i-1].Features[col]
			}
		}
		for i := range rows {
			if math.IsNaN(rows[i].Features[col]) {
				rows[i].Features[col] = 0
			}
		}
	}
}
