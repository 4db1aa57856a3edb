package engine

import (
	"errors"
	"fmt"
	"sort"

	"mandiarb/internal/geo"
	"mandiarb/internal/model"
)

// ErrCropUnavailable reports a request for a crop with no current-price rows.
var ErrCropUnavailable = errors.New("crop unavailable")

// ErrNoScenarios reports that no selling scenario could be built at all,
// distinct from a recommendation whose profit happens to be zero.
var ErrNoScenarios = errors.New("no scenarios")

// StrategyType classifies the winning scenario.
type StrategyType string

const (
	StrategySpatial         StrategyType = "SPATIAL"
	StrategyTemporalSpatial StrategyType = "TEMPORAL_SPATIAL"
)

// Request is one recommendation call. Location is optional; when empty the
// engine anchors distances at its configured default location.
type Request struct {
	Crop       string                  `json:"crop"`
	QuantityKg float64                 `json:"quantityKg"`
	Location   model.LocationReference `json:"location,omitempty"`
	// PerishabilityOverride replaces the crop's configured spoilage rate
	// for this request only.
	PerishabilityOverride *float64 `json:"perishabilityOverride,omitempty"`
}

// Recommendation is the engine's structured answer: the optimal scenario, up
// to four ranked alternatives, and a deterministic justification.
type Recommendation struct {
	RecommendationText string                  `json:"recommendation"`
	StrategyType       StrategyType            `json:"strategyType"`
	Crop               string                  `json:"crop"`
	QuantityKg         float64                 `json:"quantityKg"`
	Optimal            model.SellingScenario   `json:"optimalStrategy"`
	Alternatives       []model.SellingScenario `json:"alternativeScenarios"`
	Justification      string                  `json:"justification"`
}

// Engine is the stateless arbitrage decision core. Every Recommend call is a
// pure computation over the supplied prices and forecasts.
type Engine struct {
	costs    Costs
	resolver *geo.Resolver
}

// New builds an engine over a cost model and a distance resolver.
func New(costs Costs, resolver *geo.Resolver) *Engine {
	return &Engine{costs: costs, resolver: resolver}
}

// Recommend enumerates spatial (sell today, anywhere) and temporal (wait,
// then sell) scenarios, deduplicates and ranks them by net profit, and
// explains the winner. current holds the latest observed price per market for
// the requested crop; forecasts maps market to its forward price points and
// may be nil for spatial-only operation.
func (e *Engine) Recommend(req Request, current []model.MarketPriceRecord, forecasts map[string][]model.ForecastPoint) (*Recommendation, error) {
	if req.QuantityKg <= 0 {
		return nil, fmt.Errorf("quantity %v kg must be positive", req.QuantityKg)
	}
	if len(current) == 0 {
		return nil, fmt.Errorf("%s: %w", req.Crop, ErrCropUnavailable)
	}
	// Ingestion guarantees positive prices, but Recommend accepts arbitrary
	// rows; a scenario priced at zero or below is meaningless.
	usable := make([]model.MarketPriceRecord, 0, len(current))
	for _, rec := range current {
		if rec.PricePerKg > 0 {
			usable = append(usable, rec)
		}
	}
	if len(usable) == 0 {
		return nil, ErrNoScenarios
	}
	current = usable

	perishRate := e.costs.PerishabilityFor(req.Crop)
	if req.PerishabilityOverride != nil {
		perishRate = *req.PerishabilityOverride
	}

	// Distances come from the farmer's position, not from the dataset's
	// static ingestion-time field. Priority: coordinates, then named
	// location, then the configured default.
	origin := req.Location
	if origin.IsZero() {
		origin = model.NamedLocation(e.costs.DefaultLocation)
	}
	markets := make([]string, len(current))
	for i, rec := range current {
		markets[i] = rec.Market
	}
	distances := e.resolver.DistancesFrom(origin, markets)

	spatial := make([]model.SellingScenario, 0, len(current))
	for _, rec := range current {
		spatial = append(spatial, e.scenario(rec.Market, distances[rec.Market], rec.PricePerKg, rec.TrafficScore, 0, false, req.QuantityKg, perishRate))
	}
	sortByProfit(spatial)
	bestSpatial := spatial[0]

	var temporal []model.SellingScenario
	for _, rec := range current {
		points, ok := forecasts[rec.Market]
		if !ok {
			continue
		}
		dist := distances[rec.Market]
		// Sell-today baseline; a duplicate of the spatial scenario, kept
		// out of the final set by dedupe.
		temporal = append(temporal, e.scenario(rec.Market, dist, rec.PricePerKg, rec.TrafficScore, 0, false, req.QuantityKg, perishRate))
		for _, pt := range points {
			if pt.DayOffset > e.costs.MaxWaitDays {
				break
			}
			temporal = append(temporal, e.scenario(rec.Market, dist, pt.PredictedPrice, rec.TrafficScore, pt.DayOffset, true, req.QuantityKg, perishRate))
		}
	}

	unified := dedupe(append(spatial, temporal...))
	sortByProfit(unified)

	optimal := unified[0]
	alternatives := unified[1:]
	if len(alternatives) > 4 {
		alternatives = alternatives[:4]
	}

	strategy := StrategySpatial
	action := fmt.Sprintf("Sell at %s TODAY", optimal.Market)
	if optimal.DaysToWait > 0 {
		strategy = StrategyTemporalSpatial
		action = fmt.Sprintf("Wait %d days, then sell at %s", optimal.DaysToWait, optimal.Market)
	}

	return &Recommendation{
		RecommendationText: action,
		StrategyType:       strategy,
		Crop:               req.Crop,
		QuantityKg:         req.QuantityKg,
		Optimal:            optimal,
		Alternatives:       alternatives,
		Justification:      justify(optimal, bestSpatial, req.QuantityKg, req.Crop),
	}, nil
}

// scenario costs one (market, wait) option.
func (e *Engine) scenario(market string, distanceKm, pricePerKg, trafficScore float64, daysToWait int, predicted bool, quantityKg, perishRate float64) model.SellingScenario {
	costs := e.costs.Breakdown(pricePerKg, quantityKg, distanceKm, daysToWait, perishRate, trafficScore)
	net := costs.GrossRevenue - costs.TotalCosts
	margin := 0.0
	if costs.GrossRevenue > 0 {
		margin = round2(net / costs.GrossRevenue * 100)
	}
	return model.SellingScenario{
		Market:          market,
		DistanceKm:      distanceKm,
		PricePerKg:      pricePerKg,
		TrafficScore:    round2(trafficScore),
		DaysToWait:      daysToWait,
		IsPredicted:     predicted,
		Costs:           costs,
		NetProfit:       round2(net),
		ProfitMarginPct: margin,
	}
}

// dedupe removes scenarios sharing (market, daysToWait), keeping the first.
func dedupe(scenarios []model.SellingScenario) []model.SellingScenario {
	seen := make(map[string]bool, len(scenarios))
	out := scenarios[:0]
	for _, s := range scenarios {
		if seen[s.Key()] {
			continue
		}
		seen[s.Key()] = true
		out = append(out, s)
	}
	return out
}

// sortByProfit orders descending by net profit, stably so ties keep their
// generation order.
func sortByProfit(scenarios []model.SellingScenario) {
	sort.SliceStable(scenarios, func(i, j int) bool {
		return scenarios[i].NetProfit > scenarios[j].NetProfit
	})
}
