package forecast

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"mandiarb/internal/model"
)

// MaxHorizonDays bounds every forecast request. Recursive forecasting feeds
// each prediction back as input, so error compounds with horizon; beyond a
// week the estimates are not decision-grade.
const MaxHorizonDays = 7

// ErrModelNotTrained reports a forecast request for a pair with no resident
// model and no persisted artifact.
var ErrModelNotTrained = errors.New("model not trained")

// contextWindow is how much trailing history seeds the recursive loop.
const contextWindow = 30

// Forecaster owns the model registry and the canonical series of the current
// refresh cycle, and answers forecast requests from them.
type Forecaster struct {
	registry *Registry
	store    ArtifactStore

	byKey map[string][]model.MarketPriceRecord
	start time.Time
}

// NewForecaster creates a forecaster backed by an artifact store. The store
// may be nil, in which case nothing is persisted or lazily loaded.
func NewForecaster(store ArtifactStore) *Forecaster {
	return &Forecaster{
		registry: NewRegistry(),
		store:    store,
		byKey:    make(map[string][]model.MarketPriceRecord),
	}
}

// Registry exposes the resident model set.
func (f *Forecaster) Registry() *Registry { return f.registry }

// SetData replaces the canonical series wholesale for a new refresh cycle.
// Records are expected in ascending date order as ingestion emits them.
func (f *Forecaster) SetData(records []model.MarketPriceRecord) {
	byKey := make(map[string][]model.MarketPriceRecord)
	start := time.Time{}
	for _, r := range records {
		k := Key(r.Market, r.Crop)
		byKey[k] = append(byKey[k], r)
		if start.IsZero() || r.Date.Before(start) {
			start = r.Date
		}
	}
	f.byKey = byKey
	f.start = start
}

// TrainAll engineers features, trains every pair with enough observations,
// persists the trained artifacts and swaps the new model set into the
// registry. The returned outcomes include the skipped pairs with their
// observation counts.
func (f *Forecaster) TrainAll(p Params) ([]Outcome, error) {
	var records []model.MarketPriceRecord
	for _, recs := range f.byKey {
		records = append(records, recs...)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.Before(records[j].Date)
		}
		return Key(records[i].Market, records[i].Crop) < Key(records[j].Market, records[j].Crop)
	})

	series := EngineerFeatures(records)
	outcomes := make([]Outcome, 0, len(series))
	var trained []*TrainedModel
	for _, s := range series {
		out := Train(s, p)
		outcomes = append(outcomes, out)
		if out.Status != StatusTrained {
			continue
		}
		trained = append(trained, out.Model)
		if f.store != nil {
			if err := f.store.Save(out.Model); err != nil {
				return outcomes, fmt.Errorf("save model %s: %w", Key(s.Market, s.Crop), err)
			}
		}
	}
	f.registry.ReplaceAll(trained)
	return outcomes, nil
}

// Forecast predicts the pair's price for each of the next horizon days.
// Prediction is recursive: each day's output is appended to the price window
// before the next day's features are computed. The model comes from the
// registry, falling back to a persisted artifact; a miss in both is
// ErrModelNotTrained.
func (f *Forecaster) Forecast(market, crop string, horizon int) ([]model.ForecastPoint, error) {
	if horizon < 1 || horizon > MaxHorizonDays {
		return nil, fmt.Errorf("horizon %d out of range 1..%d", horizon, MaxHorizonDays)
	}
	tm, err := f.model(market, crop)
	if err != nil {
		return nil, err
	}
	recs := f.byKey[Key(market, crop)]
	if len(recs) == 0 {
		return nil, fmt.Errorf("no history for %s: %w", Key(market, crop), ErrModelNotTrained)
	}
	if len(recs) > contextWindow {
		recs = recs[len(recs)-contextWindow:]
	}

	prices := make([]float64, len(recs))
	for i, r := range recs {
		prices[i] = r.PricePerKg
	}
	last := recs[len(recs)-1]
	lastDate := last.Date

	points := make([]model.ForecastPoint, 0, horizon)
	for day := 1; day <= horizon; day++ {
		futureDate := lastDate.AddDate(0, 0, day)
		x := nextDayVector(futureDate, f.start, prices, last.DistanceKm, last.TrafficScore)
		predicted := math.Round(tm.Model.Predict(x)*100) / 100
		points = append(points, model.ForecastPoint{
			Market:         market,
			Crop:           crop,
			DayOffset:      day,
			PredictedPrice: predicted,
		})
		prices = append(prices, predicted)
	}
	return points, nil
}

// ForecastAllMarkets forecasts every market that has records for the crop.
// Markets without a usable model are omitted from the result, never errors:
// absence means "no forecast available".
func (f *Forecaster) ForecastAllMarkets(crop string, horizon int) map[string][]model.ForecastPoint {
	out := make(map[string][]model.ForecastPoint)
	for _, recs := range f.byKey {
		if len(recs) == 0 || recs[0].Crop != crop {
			continue
		}
		market := recs[0].Market
		points, err := f.Forecast(market, crop, horizon)
		if err != nil {
			continue
		}
		out[market] = points
	}
	return out
}

// model resolves the pair's model: resident registry first, then the
// persisted artifact, caching a successful load.
func (f *Forecaster) model(market, crop string) (*TrainedModel, error) {
	if tm, ok := f.registry.Get(market, crop); ok {
		return tm, nil
	}
	if f.store != nil {
		tm, found, err := f.store.Load(market, crop)
		if err != nil {
			return nil, fmt.Errorf("load model %s: %w", Key(market, crop), err)
		}
		if found {
			f.registry.Put(tm)
			return tm, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", Key(market, crop), ErrModelNotTrained)
}

// nextDayVector builds the feature vector for the day after the given price
// window. Lags index back from the end of the window; rolling statistics are
// recomputed over the window tail so appended predictions take part.
func nextDayVector(futureDate, start time.Time, prices []float64, distance, traffic float64) []float64 {
	n := len(prices)
	v := make([]float64, len(FeatureNames))
	v[0] = distance
	v[1] = traffic
	fillCalendar(v, futureDate, start)
	lag := func(k int) float64 {
		if n >= k {
			return prices[n-k]
		}
		return prices[0]
	}
	v[7] = lag(1)
	v[8] = lag(7)
	v[9] = lag(14)
	v[10] = rollingMean(prices, n-1, 7)
	v[11] = rollingMean(prices, n-1, 14)
	if std := rollingStd(prices, n-1, 7); !math.IsNaN(std) {
		v[12] = std
	}
	if chg := pctChange(prices, n-1, 7); !math.IsNaN(chg) {
		v[13] = chg
	}
	return v
}
