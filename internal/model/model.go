package model

import (
	"fmt"
	"time"
)

// MarketPriceRecord is one normalized (market, crop, day) price observation.
// Records are immutable once produced by ingestion.
type MarketPriceRecord struct {
	Date         time.Time `json:"date"`
	Market       string    `json:"market"`
	Crop         string    `json:"crop"`
	PricePerKg   float64   `json:"pricePerKg"`
	DistanceKm   float64   `json:"distanceKm"`
	TrafficScore float64   `json:"trafficScore"`
}

// ForecastPoint is one predicted price for a (market, crop) pair.
// DayOffset counts forward from the latest observed date, starting at 1.
type ForecastPoint struct {
	Market         string  `json:"market"`
	Crop           string  `json:"crop"`
	DayOffset      int     `json:"dayOffset"`
	PredictedPrice float64 `json:"predictedPrice"`
}

// Coordinates is a (latitude, longitude) pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// LocationReference identifies a place either by name or by coordinates.
// When both are set the coordinates take priority.
type LocationReference struct {
	Name   string       `json:"name,omitempty"`
	Coords *Coordinates `json:"coords,omitempty"`
}

// NamedLocation builds a name-only reference.
func NamedLocation(name string) LocationReference {
	return LocationReference{Name: name}
}

// CoordLocation builds a coordinate reference.
func CoordLocation(lat, lon float64) LocationReference {
	return LocationReference{Coords: &Coordinates{Lat: lat, Lon: lon}}
}

// IsZero reports whether the reference carries no information at all.
func (l LocationReference) IsZero() bool {
	return l.Name == "" && l.Coords == nil
}

// CostBreakdown itemizes every cost term of a selling scenario. It is derived
// data: always recomputed, never mutated in place.
type CostBreakdown struct {
	GrossRevenue      float64 `json:"grossRevenue"`
	TransportCost     float64 `json:"transportCost"`
	StorageCost       float64 `json:"storageCost"`
	PerishabilityCost float64 `json:"perishabilityCost"`
	TrafficCost       float64 `json:"trafficCost"`
	TotalCosts        float64 `json:"totalCosts"`
}

// SellingScenario is one costed option: sell at Market after DaysToWait days.
// Scenarios are ephemeral, generated per recommendation request.
type SellingScenario struct {
	Market          string        `json:"market"`
	DistanceKm      float64       `json:"distanceKm"`
	PricePerKg      float64       `json:"pricePerKg"`
	TrafficScore    float64       `json:"trafficScore"`
	DaysToWait      int           `json:"daysToWait"`
	IsPredicted     bool          `json:"isPredicted"`
	Costs           CostBreakdown `json:"costBreakdown"`
	NetProfit       float64       `json:"netProfit"`
	ProfitMarginPct float64       `json:"profitMarginPct"`
}

// Key returns the scenario uniqueness key market#daysToWait.
func (s SellingScenario) Key() string {
	return fmt.Sprintf("%s#%d", s.Market, s.DaysToWait)
}
