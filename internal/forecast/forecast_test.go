package forecast

import (
	"errors"
	"testing"
)

// stepModel predicts 20 while yesterday's price is at or below 15, and 30
// above it. With learning rate 1 and zero base the ensemble output is exactly
// the leaf value, which makes the recursive feedback observable.
func stepModel(market, crop string) *TrainedModel {
	return &TrainedModel{
		Market: market,
		Crop:   crop,
		Model: &GBRT{
			Base:         0,
			LearningRate: 1,
			Trees: []*treeNode{
				{
					Feature:   7, // price_lag_1
					Threshold: 15,
					Left:      &treeNode{Leaf: true, Value: 20},
					Right:     &treeNode{Leaf: true, Value: 30},
				},
			},
			Gain: make([]float64, len(FeatureNames)),
		},
	}
}

func flatForecaster(t *testing.T, store ArtifactStore) *Forecaster {
	t.Helper()
	f := NewForecaster(store)
	f.SetData(seriesRecords("Ahmedabad", "Onion", []float64{10, 10, 10, 10, 10}))
	return f
}

func TestForecast_OffsetsAndLength(t *testing.T) {
	f := flatForecaster(t, nil)
	f.Registry().Put(stepModel("Ahmedabad", "Onion"))

	points, err := f.Forecast("Ahmedabad", "Onion", 7)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if len(points) != 7 {
		t.Fatalf("points = %d, want 7", len(points))
	}
	for i, pt := range points {
		if pt.DayOffset != i+1 {
			t.Fatalf("point %d offset = %d, want %d", i, pt.DayOffset, i+1)
		}
		if pt.Market != "Ahmedabad" || pt.Crop != "Onion" {
			t.Fatalf("point %d pair = %s/%s", i, pt.Market, pt.Crop)
		}
	}
}

func TestForecast_IsRecursive(t *testing.T) {
	f := flatForecaster(t, nil)
	f.Registry().Put(stepModel("Ahmedabad", "Onion"))

	points, err := f.Forecast("Ahmedabad", "Onion", 3)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	// Day 1 sees the observed price 10 as lag-1 and predicts 20. Day 2
	// must see that 20, not another observed price, so it predicts 30.
	want := []float64{20, 30, 30}
	for i, pt := range points {
		if pt.PredictedPrice != want[i] {
			t.Fatalf("day %d = %v, want %v", i+1, pt.PredictedPrice, want[i])
		}
	}
}

func TestForecast_HorizonBounds(t *testing.T) {
	f := flatForecaster(t, nil)
	f.Registry().Put(stepModel("Ahmedabad", "Onion"))

	for _, h := range []int{0, -1, MaxHorizonDays + 1} {
		if _, err := f.Forecast("Ahmedabad", "Onion", h); err == nil {
			t.Fatalf("horizon %d accepted", h)
		}
	}
}

func TestForecast_UntrainedPair(t *testing.T) {
	f := flatForecaster(t, nil)
	_, err := f.Forecast("Ahmedabad", "Onion", 3)
	if !errors.Is(err, ErrModelNotTrained) {
		t.Fatalf("err = %v, want ErrModelNotTrained", err)
	}
}

func TestForecast_LazyLoadsFromStore(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Save(stepModel("Ahmedabad", "Onion")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	f := flatForecaster(t, store)
	if f.Registry().Len() != 0 {
		t.Fatalf("registry not empty before forecast")
	}
	if _, err := f.Forecast("Ahmedabad", "Onion", 1); err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	// Loaded artifact is now resident.
	if _, ok := f.Registry().Get("Ahmedabad", "Onion"); !ok {
		t.Fatalf("loaded model not cached in registry")
	}
}

func TestForecastAllMarkets_OmitsUntrained(t *testing.T) {
	f := NewForecaster(nil)
	f.SetData(append(
		seriesRecords("Ahmedabad", "Onion", []float64{10, 10, 10}),
		seriesRecords("Rajkot", "Onion", []float64{12, 12, 12})...,
	))
	f.Registry().Put(stepModel("Ahmedabad", "Onion"))

	out := f.ForecastAllMarkets("Onion", 2)
	if len(out) != 1 {
		t.Fatalf("markets = %d, want 1", len(out))
	}
	if _, ok := out["Ahmedabad"]; !ok {
		t.Fatalf("trained market missing from result")
	}
}

func TestTrainAll_TrainsPersistsAndSwaps(t *testing.T) {
	store := NewMemoryStore()
	f := NewForecaster(store)
	f.SetData(append(
		trendRecords("Ahmedabad", "Onion", 40),
		trendRecords("Rajkot", "Onion", 10)...,
	))

	outcomes, err := f.TrainAll(DefaultParams())
	if err != nil {
		t.Fatalf("TrainAll: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("outcomes = %d, want 2", len(outcomes))
	}
	byMarket := make(map[string]Outcome)
	for _, o := range outcomes {
		byMarket[o.Market] = o
	}
	if byMarket["Ahmedabad"].Status != StatusTrained {
		t.Fatalf("Ahmedabad status = %q", byMarket["Ahmedabad"].Status)
	}
	if o := byMarket["Rajkot"]; o.Status != StatusSkipped || o.Observations != 10 {
		t.Fatalf("Rajkot outcome = %+v", o)
	}

	if f.Registry().Len() != 1 {
		t.Fatalf("registry len = %d, want 1", f.Registry().Len())
	}
	if _, found, err := store.Load("Ahmedabad", "Onion"); err != nil || !found {
		t.Fatalf("trained model not persisted: found=%v err=%v", found, err)
	}
	if _, found, _ := store.Load("Rajkot", "Onion"); found {
		t.Fatalf("skipped pair was persisted")
	}

	if _, err := f.Forecast("Ahmedabad", "Onion", 7); err != nil {
		t.Fatalf("Forecast after TrainAll: %v", err)
	}
}
