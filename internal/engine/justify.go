package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"mandiarb/internal/model"
)

// justify builds the deterministic explanation for the winning scenario. The
// best pure-spatial (sell today) scenario is the comparison baseline: selling
// today at the best market is what the farmer gives up by waiting.
func justify(optimal, bestSpatial model.SellingScenario, quantityKg float64, crop string) string {
	if optimal.DaysToWait == 0 {
		if optimal.Market == bestSpatial.Market {
			return fmt.Sprintf(
				"Sell at %s (%skm away). Price is ₹%s/kg. After deducting ₹%s transport cost and other expenses, your net profit will be ₹%s for %skg of %s.",
				optimal.Market,
				trimNum(optimal.DistanceKm),
				trimNum(optimal.PricePerKg),
				rupees(optimal.Costs.TransportCost),
				rupees(optimal.NetProfit),
				trimNum(quantityKg),
				crop,
			)
		}
		return fmt.Sprintf("Sell at %s. Net profit: ₹%s", optimal.Market, rupees(optimal.NetProfit))
	}

	gain := optimal.NetProfit - bestSpatial.NetProfit
	priceIncrease := optimal.PricePerKg - bestSpatial.PricePerKg
	return fmt.Sprintf(
		"HOLD for %d days, then sell at %s. Predicted price will increase by ₹%.2f/kg (from ₹%.2f to ₹%.2f). Even after paying ₹%s in storage costs and accounting for spoilage, you will gain an additional ₹%s compared to selling today. Final net profit: ₹%s.",
		optimal.DaysToWait,
		optimal.Market,
		priceIncrease,
		bestSpatial.PricePerKg,
		optimal.PricePerKg,
		rupees(optimal.Costs.StorageCost),
		rupees(gain),
		rupees(optimal.NetProfit),
	)
}

// rupees renders an amount rounded to whole rupees with thousands grouping.
func rupees(f float64) string {
	n := int64(math.Round(f))
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(s) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(s[:lead])
	for i := lead; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// trimNum renders a float without trailing zeros (35 rather than 35.00).
func trimNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
