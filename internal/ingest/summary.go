package ingest

import (
	"sort"
	"time"

	"mandiarb/internal/model"
)

// CropPriceStats summarizes per-kg prices for one crop.
type CropPriceStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// Summary describes a normalized dataset for logging and the refresh manifest.
type Summary struct {
	TotalRecords int                       `json:"totalRecords"`
	StartDate    time.Time                 `json:"startDate"`
	EndDate      time.Time                 `json:"endDate"`
	Days         int                       `json:"days"`
	Markets      []string                  `json:"markets"`
	Crops        []string                  `json:"crops"`
	PriceStats   map[string]CropPriceStats `json:"priceStats"`
}

// Summarize computes dataset statistics. An empty input yields a zero Summary.
func Summarize(records []model.MarketPriceRecord) Summary {
	s := Summary{PriceStats: map[string]CropPriceStats{}}
	if len(records) == 0 {
		return s
	}
	s.TotalRecords = len(records)

	markets := map[string]bool{}
	type agg struct {
		min, max, sum float64
		n             int
	}
	crops := map[string]*agg{}
	s.StartDate, s.EndDate = records[0].Date, records[0].Date
	for _, r := range records {
		if r.Date.Before(s.StartDate) {
			s.StartDate = r.Date
		}
		if r.Date.After(s.EndDate) {
			s.EndDate = r.Date
		}
		markets[r.Market] = true
		a, ok := crops[r.Crop]
		if !ok {
			a = &agg{min: r.PricePerKg, max: r.PricePerKg}
			crops[r.Crop] = a
		}
		if r.PricePerKg < a.min {
			a.min = r.PricePerKg
		}
		if r.PricePerKg > a.max {
			a.max = r.PricePerKg
		}
		a.sum += r.PricePerKg
		a.n++
	}
	s.Days = int(s.EndDate.Sub(s.StartDate).Hours() / 24)

	for m := range markets {
		s.Markets = append(s.Markets, m)
	}
	sort.Strings(s.Markets)
	for c, a := range crops {
		s.Crops = append(s.Crops, c)
		s.PriceStats[c] = CropPriceStats{Min: a.min, Max: a.max, Mean: a.sum / float64(a.n)}
	}
	sort.Strings(s.Crops)
	return s
}
