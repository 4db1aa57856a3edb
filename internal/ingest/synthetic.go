package ingest

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"mandiarb/internal/model"
)

// syntheticBasePrices are per-kg baselines for the generator.
var syntheticBasePrices = map[string]float64{
	"Onion":  35,
	"Tomato": 30,
	"Potato": 20,
}

// GenerateSynthetic produces a deterministic fallback dataset: one record per
// (market, crop, day) over the trailing window ending at end, with a gentle
// upward trend, monthly seasonality, small noise and a distance premium.
// Only markets with an exact configured distance are generated.
func GenerateSynthetic(end time.Time, days int, cfg Config) []model.MarketPriceRecord {
	rng := rand.New(rand.NewSource(42))
	end = end.Truncate(24 * time.Hour)

	markets := make([]string, 0, len(cfg.ExactDistances))
	for m := range cfg.ExactDistances {
		markets = append(markets, m)
	}
	sort.Strings(markets)

	var out []model.MarketPriceRecord
	for d := 0; d < days; d++ {
		date := end.AddDate(0, 0, d-days+1)
		for _, market := range markets {
			distance := cfg.ExactDistances[market]
			for _, crop := range cfg.TargetCrops {
				base, ok := syntheticBasePrices[crop]
				if !ok {
					base = 25
				}
				trend := float64(d) * 0.02
				seasonal := 5 * math.Sin(2*math.Pi*float64(d)/30)
				noise := rng.NormFloat64() * 2
				price := base + trend + seasonal + noise + distance*0.05
				if floor := base * 0.8; price < floor {
					price = floor
				}
				out = append(out, model.MarketPriceRecord{
					Date:         date,
					Market:       market,
					Crop:         crop,
					PricePerKg:   math.Round(price*100) / 100,
					DistanceKm:   distance,
					TrafficScore: trafficScore(distance, date.Weekday()),
				})
			}
		}
	}
	return out
}
