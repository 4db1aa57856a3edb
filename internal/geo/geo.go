// Package geo resolves travel distances between location references using a
// curated road-distance table, hub triangulation and great-circle estimates.
// The resolver always returns a numeric estimate and never fails.
package geo

import (
	"math"
	"strings"

	"mandiarb/internal/model"
)

const (
	// HubDetourFactor penalizes routes triangulated through a hub city
	// versus a direct road.
	HubDetourFactor = 1.1
	// RoadCurvatureFactor inflates great-circle distances to approximate
	// real road distance.
	RoadCurvatureFactor = 1.2
	// FallbackKm is returned when no data permits any computation.
	FallbackKm = 150.0

	earthRadiusKm = 6371.0
)

type pairKey struct {
	a, b string
}

// Resolver answers distance queries against a fixed set of Tables.
type Resolver struct {
	pairs   map[pairKey]float64
	coords  map[string]model.Coordinates
	aliases map[string]string
	hubs    []string
	refHub  string
}

// NewResolver indexes the tables for lookup. The tables are not retained.
func NewResolver(t Tables) *Resolver {
	r := &Resolver{
		pairs:   make(map[pairKey]float64, len(t.Pairs)),
		coords:  make(map[string]model.Coordinates, len(t.Coordinates)),
		aliases: make(map[string]string, len(t.Aliases)),
		hubs:    append([]string(nil), t.Hubs...),
		refHub:  t.ReferenceHub,
	}
	for _, p := range t.Pairs {
		r.pairs[pairKey{p.From, p.To}] = p.Km
	}
	for name, c := range t.Coordinates {
		r.coords[name] = c
	}
	for alias, canonical := range t.Aliases {
		r.aliases[strings.ToLower(alias)] = canonical
	}
	return r
}

// Normalize maps a free-form place name to its canonical spelling. Unknown
// names pass through title-cased; empty names resolve to the reference hub.
func (r *Resolver) Normalize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return r.refHub
	}
	if canonical, ok := r.aliases[strings.ToLower(name)]; ok {
		return canonical
	}
	return titleCase(name)
}

// Coordinates returns the known coordinates for a place name, trying the
// canonical name and then the name with any parenthetical suffix stripped.
func (r *Resolver) Coordinates(name string) (model.Coordinates, bool) {
	loc := r.Normalize(name)
	if c, ok := r.coords[loc]; ok {
		return c, true
	}
	if i := strings.Index(loc, "("); i >= 0 {
		if c, ok := r.coords[strings.TrimSpace(loc[:i])]; ok {
			return c, true
		}
	}
	return model.Coordinates{}, false
}

// Distance estimates the travel distance in km between two references.
// Coordinates take priority over names on either endpoint. The result is
// always a non-negative number; unknown locations degrade through hub-based
// approximations down to a fixed fallback constant.
func (r *Resolver) Distance(from, to model.LocationReference) float64 {
	switch {
	case from.Coords != nil && to.Coords != nil:
		return roadDistance(*from.Coords, *to.Coords)
	case from.Coords != nil:
		return r.coordToName(*from.Coords, to.Name)
	case to.Coords != nil:
		return r.coordToName(*to.Coords, from.Name)
	default:
		return r.nameToName(r.Normalize(from.Name), r.Normalize(to.Name))
	}
}

// DistancesFrom resolves the distance from one origin to every named market.
func (r *Resolver) DistancesFrom(origin model.LocationReference, markets []string) map[string]float64 {
	out := make(map[string]float64, len(markets))
	for _, m := range markets {
		out[m] = r.Distance(origin, model.NamedLocation(m))
	}
	return out
}

// coordToName handles a coordinate endpoint paired with a named one. When the
// name has no known coordinates the route degrades to passing through the
// reference hub, which is an explicit approximation rather than an error.
func (r *Resolver) coordToName(c model.Coordinates, name string) float64 {
	target := r.Normalize(name)
	if tc, ok := r.Coordinates(target); ok {
		return roadDistance(c, tc)
	}
	hubCoords, ok := r.coords[r.refHub]
	if !ok {
		return FallbackKm
	}
	return roadDistance(c, hubCoords) + r.nameToName(r.refHub, target)
}

// nameToName applies the resolution order for two canonical names: shortcut,
// pair table, hub triangulation, coordinate estimate, hub-relative fallback.
func (r *Resolver) nameToName(from, to string) float64 {
	if from == to {
		return 0
	}
	if km, ok := r.pairLookup(from, to); ok {
		return km
	}
	if km, ok := r.viaHub(from, to); ok {
		return km
	}
	c1, ok1 := r.Coordinates(from)
	c2, ok2 := r.Coordinates(to)
	if ok1 && ok2 {
		return roadDistance(c1, c2)
	}
	d1, ok1 := r.distanceToRefHub(from)
	d2, ok2 := r.distanceToRefHub(to)
	if ok1 && ok2 {
		return math.Abs(d1 - d2)
	}
	return FallbackKm
}

// pairLookup tries both orderings of the undirected pair table.
func (r *Resolver) pairLookup(a, b string) (float64, bool) {
	if km, ok := r.pairs[pairKey{a, b}]; ok {
		return km, true
	}
	if km, ok := r.pairs[pairKey{b, a}]; ok {
		return km, true
	}
	return 0, false
}

// viaHub sums two table edges through the first hub that completes the path.
func (r *Resolver) viaHub(from, to string) (float64, bool) {
	for _, hub := range r.hubs {
		leg1, ok1 := r.pairLookup(from, hub)
		leg2, ok2 := r.pairLookup(hub, to)
		if ok1 && ok2 {
			return (leg1 + leg2) * HubDetourFactor, true
		}
	}
	return 0, false
}

func (r *Resolver) distanceToRefHub(name string) (float64, bool) {
	if name == r.refHub {
		return 0, true
	}
	if km, ok := r.pairLookup(name, r.refHub); ok {
		return km, true
	}
	if c, ok := r.Coordinates(name); ok {
		if hc, ok := r.coords[r.refHub]; ok {
			return roadDistance(c, hc), true
		}
	}
	return 0, false
}

// roadDistance is the haversine great-circle distance inflated by the road
// curvature factor.
func roadDistance(a, b model.Coordinates) float64 {
	return haversineKm(a, b) * RoadCurvatureFactor
}

func haversineKm(a, b model.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// titleCase uppercases the first letter of every space-separated word,
// lowercasing the rest. ASCII is sufficient for place names here.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
