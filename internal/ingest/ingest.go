// Package ingest normalizes raw wholesale price rows into the canonical
// MarketPriceRecord series consumed by the forecaster and the decision engine.
package ingest

import (
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"mandiarb/internal/model"
)

// rawDateLayout is the day/month/year format used by the AGMARKNET exports.
const rawDateLayout = "02/01/2006"

// RawRecord is one uncleaned row from the raw tabular source.
type RawRecord struct {
	ArrivalDate string `json:"arrivalDate"`
	State       string `json:"state"`
	District    string `json:"district"`
	Market      string `json:"market"`
	Commodity   string `json:"commodity"`
	Variety     string `json:"variety"`
	ModalPrice  string `json:"modalPrice"`
}

// Config holds the normalization targets and the distance estimation tables.
type Config struct {
	// Region keeps only records whose state matches (substring,
	// case-insensitive). Empty keeps everything.
	Region string `json:"region"`
	// TargetCrops are canonical crop names; a record is kept when its
	// commodity text contains one of them, first match wins.
	TargetCrops []string `json:"targetCrops"`
	// ExactDistances are curated per-market distances from the reference
	// hub. They take precedence over the district table.
	ExactDistances map[string]float64 `json:"exactDistances"`
	// DistrictDistances approximate each district headquarters' distance
	// from the reference hub.
	DistrictDistances map[string]float64 `json:"districtDistances"`
	// DefaultDistanceKm is used when neither table knows the record.
	DefaultDistanceKm float64 `json:"defaultDistanceKm"`
}

// DefaultConfig targets Gujarat mandis with distances from Gandhinagar.
func DefaultConfig() Config {
	return Config{
		Region:      "Gujarat",
		TargetCrops: []string{"Onion", "Tomato", "Potato"},
		ExactDistances: map[string]float64{
			"Ahmedabad": 26,
			"Mehsana":   62,
			"Rajkot":    237,
			"Surat":     273,
			"Anand":     98,
			"Bharuch":   211,
			"Amreli":    277,
		},
		DistrictDistances: map[string]float64{
			"Ahmedabad":     30,
			"Gandhinagar":   5,
			"Mahesana":      45,
			"Mehsana":       45,
			"Rajkot":        220,
			"Surat":         265,
			"Vadodara":      100,
			"Anand":         65,
			"Bharuch":       180,
			"Amreli":        240,
			"Bhavnagar":     200,
			"Jamnagar":      330,
			"Junagadh":      330,
			"Kutch":         350,
			"Patan":         120,
			"Porbandar":     400,
			"Sabarkantha":   90,
			"Surendranagar": 160,
			"Tapi":          300,
			"Dang":          200,
			"Narmada":       150,
			"Navsari":       280,
			"Valsad":        300,
		},
		DefaultDistanceKm: 150,
	}
}

// TrafficNoise produces the bounded random jitter added to every synthesized
// traffic score. Tests override it to make scores deterministic.
var TrafficNoise = func() float64 { return rand.Float64()*0.2 - 0.1 }

// Normalize cleans raw rows into the canonical, date-ascending record
// sequence. lookbackDays limits records to a trailing window ending at the
// latest available date; zero keeps all history. Rows that cannot be cleaned
// are dropped, never reported as errors; an empty result is a valid outcome.
func Normalize(raw []RawRecord, cfg Config, lookbackDays int) []model.MarketPriceRecord {
	type cleaned struct {
		rec      model.MarketPriceRecord
		district string
	}
	var rows []cleaned
	latest := time.Time{}

	for _, r := range raw {
		date, err := time.Parse(rawDateLayout, strings.TrimSpace(r.ArrivalDate))
		if err != nil {
			continue
		}
		if cfg.Region != "" && !strings.Contains(strings.ToLower(r.State), strings.ToLower(cfg.Region)) {
			continue
		}
		crop, ok := matchCrop(r.Commodity, cfg.TargetCrops)
		if !ok {
			continue
		}
		market := cleanMarketName(r.Market)
		if market == "" {
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(r.ModalPrice), 64)
		if err != nil || price <= 0 {
			continue
		}
		rows = append(rows, cleaned{
			rec: model.MarketPriceRecord{
				Date:       date,
				Market:     market,
				Crop:       crop,
				PricePerKg: price / 100, // quintal to kg
			},
			district: strings.TrimSpace(r.District),
		})
		if date.After(latest) {
			latest = date
		}
	}

	var cutoff time.Time
	if lookbackDays > 0 && !latest.IsZero() {
		cutoff = latest.AddDate(0, 0, -lookbackDays)
	}

	seen := make(map[string]bool, len(rows))
	out := make([]model.MarketPriceRecord, 0, len(rows))
	for _, row := range rows {
		if !cutoff.IsZero() && row.rec.Date.Before(cutoff) {
			continue
		}
		key := row.rec.Market + "#" + row.rec.Crop + "#" + row.rec.Date.Format("2006-01-02")
		if seen[key] {
			continue
		}
		seen[key] = true
		rec := row.rec
		rec.DistanceKm = estimateDistance(cfg, row.district, rec.Market)
		rec.TrafficScore = trafficScore(rec.DistanceKm, rec.Date.Weekday())
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].Market != out[j].Market {
			return out[i].Market < out[j].Market
		}
		return out[i].Crop < out[j].Crop
	})
	return out
}

// CurrentPrices returns the most recent record per market for the crop,
// sorted by market name.
func CurrentPrices(records []model.MarketPriceRecord, crop string) []model.MarketPriceRecord {
	latest := make(map[string]model.MarketPriceRecord)
	for _, r := range records {
		if r.Crop != crop {
			continue
		}
		if cur, ok := latest[r.Market]; !ok || r.Date.After(cur.Date) {
			latest[r.Market] = r
		}
	}
	out := make([]model.MarketPriceRecord, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Market < out[j].Market })
	return out
}

// matchCrop maps commodity text to the first target crop it contains.
func matchCrop(commodity string, targets []string) (string, bool) {
	lower := strings.ToLower(commodity)
	for _, t := range targets {
		if strings.Contains(lower, strings.ToLower(t)) {
			return t, true
		}
	}
	return "", false
}

// cleanMarketName strips parenthetical suffixes like "Rajkot(Veg.Sub Yard)".
func cleanMarketName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.Index(name, "("); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	return name
}

// estimateDistance resolves a record's distance from the reference hub:
// exact per-market override, then district table (exact then partial match),
// then the configured default.
func estimateDistance(cfg Config, district, market string) float64 {
	if km, ok := cfg.ExactDistances[market]; ok {
		return km
	}
	if km, ok := cfg.DistrictDistances[district]; ok {
		return km
	}
	lower := strings.ToLower(district)
	if lower != "" {
		names := make([]string, 0, len(cfg.DistrictDistances))
		for name := range cfg.DistrictDistances {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			nl := strings.ToLower(name)
			if strings.Contains(lower, nl) || strings.Contains(nl, lower) {
				return cfg.DistrictDistances[name]
			}
		}
	}
	return cfg.DefaultDistanceKm
}

// trafficScore synthesizes a congestion proxy in [0,1]: closer markets are
// more urban and more congested, weekdays run heavier than weekends.
func trafficScore(distanceKm float64, weekday time.Weekday) float64 {
	var base float64
	switch {
	case distanceKm < 50:
		base = 0.7
	case distanceKm < 150:
		base = 0.4
	default:
		base = 0.2
	}
	factor := 0.7
	if weekday >= time.Monday && weekday <= time.Friday {
		factor = 1.2
	}
	score := base*factor + TrafficNoise()
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
