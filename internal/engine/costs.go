// Package engine ranks costed selling scenarios and recommends the net-profit
// optimum across markets and waiting periods.
package engine

import (
	"math"

	"mandiarb/internal/model"
)

// Costs is the immutable cost model an Engine is constructed with. Tests and
// deployments vary constants by building their own value; nothing here is
// global or mutated after construction.
type Costs struct {
	// FuelPerKm prices transport in rupees per kilometre.
	FuelPerKm float64
	// StoragePerKgDay prices holding the crop, rupees per kg per day.
	StoragePerKgDay float64
	// Perishability maps crop name to its daily spoilage fraction.
	Perishability map[string]float64
	// DefaultPerishability applies to crops absent from the table.
	DefaultPerishability float64
	// MaxWaitDays caps how far out a temporal scenario may sell.
	MaxWaitDays int
	// DefaultLocation anchors distance resolution when the request names
	// no farmer position.
	DefaultLocation string
}

// DefaultCosts returns the calibrated Gujarat cost model.
func DefaultCosts() Costs {
	return Costs{
		FuelPerKm:       5.0,
		StoragePerKgDay: 0.50,
		Perishability: map[string]float64{
			"Onion":  0.03,
			"Tomato": 0.05,
			"Potato": 0.02,
		},
		DefaultPerishability: 0.01,
		MaxWaitDays:          7,
		DefaultLocation:      "Gandhinagar",
	}
}

// PerishabilityFor resolves the crop's daily spoilage rate.
func (c Costs) PerishabilityFor(crop string) float64 {
	if rate, ok := c.Perishability[crop]; ok {
		return rate
	}
	return c.DefaultPerishability
}

// Breakdown computes every cost term of one scenario:
//
//	grossRevenue      = pricePerKg * quantityKg
//	transportCost     = distanceKm * FuelPerKm
//	storageCost       = daysStored * quantityKg * StoragePerKgDay
//	perishabilityCost = daysStored * perishRate * grossRevenue
//	trafficCost       = trafficScore * perishRate * grossRevenue * 0.5
//
// The traffic term applies on day 0 too: congestion delays spoil perishable
// goods even when selling immediately.
//
// Each term is rounded to paise and TotalCosts is the sum of the rounded
// terms, so the reported breakdown always adds up exactly.
func (c Costs) Breakdown(pricePerKg, quantityKg, distanceKm float64, daysStored int, perishRate, trafficScore float64) model.CostBreakdown {
	gross := pricePerKg * quantityKg
	transport := round2(distanceKm * c.FuelPerKm)
	storage := round2(float64(daysStored) * quantityKg * c.StoragePerKgDay)
	perish := round2(float64(daysStored) * perishRate * gross)
	traffic := round2(trafficScore * perishRate * gross * 0.5)
	return model.CostBreakdown{
		GrossRevenue:      round2(gross),
		TransportCost:     transport,
		StorageCost:       storage,
		PerishabilityCost: perish,
		TrafficCost:       traffic,
		TotalCosts:        round2(transport + storage + perish + traffic),
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
