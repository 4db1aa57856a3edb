package engine

import (
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"mandiarb/internal/geo"
	"mandiarb/internal/model"
)

// farmTables pins exact distances from the farm to three markets so profit
// arithmetic in the tests is closed-form.
func farmTables() geo.Tables {
	return geo.Tables{
		ReferenceHub: "Farm",
		Pairs: []geo.PairDistance{
			{From: "Farm", To: "Ahmedabad", Km: 30},
			{From: "Farm", To: "Mehsana", Km: 45},
			{From: "Farm", To: "Rajkot", Km: 220},
		},
	}
}

func testEngine() *Engine {
	costs := DefaultCosts()
	costs.DefaultLocation = "Farm"
	return New(costs, geo.NewResolver(farmTables()))
}

func priceRow(market string, price, traffic float64) model.MarketPriceRecord {
	return model.MarketPriceRecord{
		Date:         time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Market:       market,
		Crop:         "Onion",
		PricePerKg:   price,
		TrafficScore: traffic,
	}
}

func TestBreakdown_FormulaProperty(t *testing.T) {
	c := DefaultCosts()
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		price := 5 + rng.Float64()*95
		qty := 10 + rng.Float64()*4990
		dist := rng.Float64() * 400
		days := rng.Intn(8)
		perish := rng.Float64() * 0.06
		traffic := rng.Float64()

		b := c.Breakdown(price, qty, dist, days, perish, traffic)
		gross := price * qty

		check := func(name string, got, want float64) {
			if math.Abs(got-want) > 0.005+1e-9 {
				t.Fatalf("case %d %s = %v, want %v", i, name, got, want)
			}
		}
		check("grossRevenue", b.GrossRevenue, gross)
		check("transportCost", b.TransportCost, dist*c.FuelPerKm)
		check("storageCost", b.StorageCost, float64(days)*qty*c.StoragePerKgDay)
		check("perishabilityCost", b.PerishabilityCost, float64(days)*perish*gross)
		check("trafficCost", b.TrafficCost, traffic*perish*gross*0.5)
		// The reported breakdown must add up exactly, not just within the
		// per-term rounding tolerance.
		if sum := round2(b.TransportCost + b.StorageCost + b.PerishabilityCost + b.TrafficCost); b.TotalCosts != sum {
			t.Fatalf("case %d totalCosts = %v, want sum of rounded terms %v", i, b.TotalCosts, sum)
		}
	}
}

func TestBreakdown_TrafficCostAppliesOnDayZero(t *testing.T) {
	b := DefaultCosts().Breakdown(40, 1000, 0, 0, 0.03, 0.5)
	if want := 0.5 * 0.03 * 40000 * 0.5; b.TrafficCost != want {
		t.Fatalf("trafficCost = %v, want %v", b.TrafficCost, want)
	}
	if b.StorageCost != 0 || b.PerishabilityCost != 0 {
		t.Fatalf("day-0 storage/perishability = %v/%v, want 0/0", b.StorageCost, b.PerishabilityCost)
	}
}

func TestRecommend_FarthestMarketCanWin(t *testing.T) {
	e := testEngine()
	current := []model.MarketPriceRecord{
		priceRow("Ahmedabad", 35, 0),
		priceRow("Mehsana", 38, 0),
		priceRow("Rajkot", 41, 0),
	}

	rec, err := e.Recommend(Request{Crop: "Onion", QuantityKg: 1000}, current, nil)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.Optimal.Market != "Rajkot" {
		t.Fatalf("optimal = %s, want Rajkot", rec.Optimal.Market)
	}
	if rec.Optimal.NetProfit != 39900 {
		t.Fatalf("Rajkot net profit = %v, want 39900", rec.Optimal.NetProfit)
	}
	if rec.StrategyType != StrategySpatial {
		t.Fatalf("strategy = %s, want SPATIAL", rec.StrategyType)
	}

	wantAlt := map[string]float64{"Mehsana": 37775, "Ahmedabad": 34850}
	if len(rec.Alternatives) != 2 {
		t.Fatalf("alternatives = %d, want 2", len(rec.Alternatives))
	}
	for _, alt := range rec.Alternatives {
		if want, ok := wantAlt[alt.Market]; !ok || alt.NetProfit != want {
			t.Fatalf("alternative %s net profit = %v, want %v", alt.Market, alt.NetProfit, want)
		}
	}
	if rec.Alternatives[0].NetProfit < rec.Alternatives[1].NetProfit {
		t.Fatalf("alternatives not sorted descending")
	}
}

func TestRecommend_OptimalDominatesAlternatives(t *testing.T) {
	e := testEngine()
	rng := rand.New(rand.NewSource(11))
	current := []model.MarketPriceRecord{
		priceRow("Ahmedabad", 20+rng.Float64()*30, rng.Float64()),
		priceRow("Mehsana", 20+rng.Float64()*30, rng.Float64()),
		priceRow("Rajkot", 20+rng.Float64()*30, rng.Float64()),
	}
	forecasts := make(map[string][]model.ForecastPoint)
	for _, r := range current {
		var pts []model.ForecastPoint
		for d := 1; d <= 7; d++ {
			pts = append(pts, model.ForecastPoint{
				Market:         r.Market,
				Crop:           "Onion",
				DayOffset:      d,
				PredictedPrice: 20 + rng.Float64()*30,
			})
		}
		forecasts[r.Market] = pts
	}

	rec, err := e.Recommend(Request{Crop: "Onion", QuantityKg: 500}, current, forecasts)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(rec.Alternatives) > 4 {
		t.Fatalf("alternatives = %d, want <= 4", len(rec.Alternatives))
	}
	prev := rec.Optimal.NetProfit
	for i, alt := range rec.Alternatives {
		if alt.NetProfit > prev {
			t.Fatalf("alternative %d net profit %v exceeds %v", i, alt.NetProfit, prev)
		}
		prev = alt.NetProfit
	}
}

func TestRecommend_DeduplicatesByMarketAndWait(t *testing.T) {
	e := testEngine()
	current := []model.MarketPriceRecord{priceRow("Ahmedabad", 35, 0)}
	// The temporal path re-generates the day-0 scenario for every
	// forecasted market; the unified set must contain it once.
	forecasts := map[string][]model.ForecastPoint{
		"Ahmedabad": {{Market: "Ahmedabad", Crop: "Onion", DayOffset: 1, PredictedPrice: 34}},
	}

	rec, err := e.Recommend(Request{Crop: "Onion", QuantityKg: 100}, current, forecasts)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	seen := map[string]bool{rec.Optimal.Key(): true}
	for _, alt := range rec.Alternatives {
		if seen[alt.Key()] {
			t.Fatalf("duplicate scenario %s", alt.Key())
		}
		seen[alt.Key()] = true
	}
	if got := 1 + len(rec.Alternatives); got != 2 {
		t.Fatalf("unified scenarios = %d, want 2", got)
	}
}

func TestRecommend_TemporalWin(t *testing.T) {
	e := testEngine()
	current := []model.MarketPriceRecord{priceRow("Ahmedabad", 30, 0)}
	// A big predicted jump outweighs 2 days of storage and spoilage.
	forecasts := map[string][]model.ForecastPoint{
		"Ahmedabad": {
			{Market: "Ahmedabad", Crop: "Onion", DayOffset: 1, PredictedPrice: 31},
			{Market: "Ahmedabad", Crop: "Onion", DayOffset: 2, PredictedPrice: 60},
		},
	}

	rec, err := e.Recommend(Request{Crop: "Onion", QuantityKg: 1000}, current, forecasts)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.StrategyType != StrategyTemporalSpatial {
		t.Fatalf("strategy = %s, want TEMPORAL_SPATIAL", rec.StrategyType)
	}
	if rec.Optimal.DaysToWait != 2 || !rec.Optimal.IsPredicted {
		t.Fatalf("optimal = wait %d predicted %v", rec.Optimal.DaysToWait, rec.Optimal.IsPredicted)
	}
	if !strings.HasPrefix(rec.Justification, "HOLD for 2 days, then sell at Ahmedabad.") {
		t.Fatalf("justification = %q", rec.Justification)
	}
	if !strings.Contains(rec.RecommendationText, "Wait 2 days") {
		t.Fatalf("recommendation = %q", rec.RecommendationText)
	}
}

func TestRecommend_RespectsMaxWait(t *testing.T) {
	costs := DefaultCosts()
	costs.DefaultLocation = "Farm"
	costs.MaxWaitDays = 2
	e := New(costs, geo.NewResolver(farmTables()))

	current := []model.MarketPriceRecord{priceRow("Ahmedabad", 30, 0)}
	forecasts := map[string][]model.ForecastPoint{
		"Ahmedabad": {
			{Market: "Ahmedabad", DayOffset: 1, PredictedPrice: 31},
			{Market: "Ahmedabad", DayOffset: 2, PredictedPrice: 32},
			{Market: "Ahmedabad", DayOffset: 3, PredictedPrice: 500},
		},
	}
	rec, err := e.Recommend(Request{Crop: "Onion", QuantityKg: 100}, current, forecasts)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.Optimal.DaysToWait > 2 {
		t.Fatalf("optimal waits %d days past the cap", rec.Optimal.DaysToWait)
	}
	for _, alt := range rec.Alternatives {
		if alt.DaysToWait > 2 {
			t.Fatalf("alternative waits %d days past the cap", alt.DaysToWait)
		}
	}
}

func TestRecommend_PerishabilityOverride(t *testing.T) {
	e := testEngine()
	current := []model.MarketPriceRecord{priceRow("Ahmedabad", 40, 1.0)}

	override := 0.0
	rec, err := e.Recommend(Request{Crop: "Onion", QuantityKg: 1000, PerishabilityOverride: &override}, current, nil)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.Optimal.Costs.TrafficCost != 0 {
		t.Fatalf("trafficCost = %v with zero perishability override", rec.Optimal.Costs.TrafficCost)
	}
}

func TestRecommend_CropUnavailable(t *testing.T) {
	e := testEngine()
	_, err := e.Recommend(Request{Crop: "Mango", QuantityKg: 100}, nil, nil)
	if !errors.Is(err, ErrCropUnavailable) {
		t.Fatalf("err = %v, want ErrCropUnavailable", err)
	}
}

func TestRecommend_NoScenariosFromUnusableRows(t *testing.T) {
	// Rows exist for the crop but none can price a scenario; that is a
	// distinct signal from the crop being absent entirely.
	e := testEngine()
	current := []model.MarketPriceRecord{
		priceRow("Ahmedabad", 0, 0),
		priceRow("Rajkot", -3, 0),
	}
	_, err := e.Recommend(Request{Crop: "Onion", QuantityKg: 100}, current, nil)
	if !errors.Is(err, ErrNoScenarios) {
		t.Fatalf("err = %v, want ErrNoScenarios", err)
	}
	if errors.Is(err, ErrCropUnavailable) {
		t.Fatalf("signals must be distinguishable, got %v", err)
	}
}

func TestRecommend_RejectsNonPositiveQuantity(t *testing.T) {
	e := testEngine()
	current := []model.MarketPriceRecord{priceRow("Ahmedabad", 35, 0)}
	for _, qty := range []float64{0, -5} {
		if _, err := e.Recommend(Request{Crop: "Onion", QuantityKg: qty}, current, nil); err == nil {
			t.Fatalf("quantity %v accepted", qty)
		}
	}
}

func TestRecommend_CoordinateLocationOverridesDefault(t *testing.T) {
	// With coordinates supplied, distances come from the haversine path
	// rather than the named default location.
	tables := farmTables()
	tables.Coordinates = map[string]model.Coordinates{
		"Ahmedabad": {Lat: 23.0225, Lon: 72.5714},
	}
	costs := DefaultCosts()
	costs.DefaultLocation = "Farm"
	e := New(costs, geo.NewResolver(tables))

	current := []model.MarketPriceRecord{priceRow("Ahmedabad", 35, 0)}
	req := Request{
		Crop:       "Onion",
		QuantityKg: 100,
		Location:   model.CoordLocation(23.0225, 72.5714),
	}
	rec, err := e.Recommend(req, current, nil)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	// Same point: distance 0, so transport cost 0 instead of the 30 km
	// the Farm default would give.
	if rec.Optimal.Costs.TransportCost != 0 {
		t.Fatalf("transportCost = %v, want 0", rec.Optimal.Costs.TransportCost)
	}
}

func TestJustify_SpatialMentionsTradeoff(t *testing.T) {
	e := testEngine()
	current := []model.MarketPriceRecord{
		priceRow("Ahmedabad", 35, 0),
		priceRow("Rajkot", 41, 0),
	}
	rec, err := e.Recommend(Request{Crop: "Onion", QuantityKg: 1000}, current, nil)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	j := rec.Justification
	for _, want := range []string{"Sell at Rajkot (220km away)", "₹41/kg", "₹1,100 transport cost", "₹39,900", "1000kg of Onion"} {
		if !strings.Contains(j, want) {
			t.Fatalf("justification %q missing %q", j, want)
		}
	}
}

func TestRupees(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{950, "950"},
		{39900, "39,900"},
		{1234567.4, "1,234,567"},
		{-39900, "-39,900"},
	}
	for _, c := range cases {
		if got := rupees(c.in); got != c.want {
			t.Fatalf("rupees(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
