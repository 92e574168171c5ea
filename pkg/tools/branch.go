package tools

import (
	"context"
	"math"
	"sort"
	"strings"
)

// Branch is one entry in the configured branch catalog.
type Branch struct {
	ID      string
	Name    string
	City    string
	Pincode string
	Lat     float64
	Lon     float64
	Phone   string
}

// defaultNearestLimit caps how many branches BranchLocator returns when the
// caller doesn't request a specific limit, per spec's "returns nearest N."
const defaultNearestLimit = 5

// NewBranchLocatorHandler builds the BranchLocator tool: filters the
// configured branch catalog by city (case-insensitive) and/or exact
// pincode, then returns the nearest N matches. When the caller supplies
// lat/lon, matches are ordered by haversine distance from that point;
// otherwise they're returned in catalog order, still capped at N.
func NewBranchLocatorHandler(catalog []Branch) Handler {
	return func(ctx context.Context, args map[string]any) (Result, error) {
		city, _ := args["city"].(string)
		pincode, _ := args["pincode"].(string)
		lat, hasLat := args["lat"].(float64)
		lon, hasLon := args["lon"].(float64)
		limit := defaultNearestLimit
		if n, ok := args["limit"].(float64); ok && n > 0 {
			limit = int(n)
		}

		city = strings.ToLower(strings.TrimSpace(city))

		type candidate struct {
			branch   Branch
			distance float64
		}
		var candidates []candidate
		for _, b := range catalog {
			if city != "" && strings.ToLower(b.City) != city {
				continue
			}
			if pincode != "" && b.Pincode != pincode {
				continue
			}
			c := candidate{branch: b}
			if hasLat && hasLon {
				c.distance = haversineKm(lat, lon, b.Lat, b.Lon)
			}
			candidates = append(candidates, c)
		}

		if hasLat && hasLon {
			sort.SliceStable(candidates, func(i, j int) bool {
				return candidates[i].distance < candidates[j].distance
			})
		}

		if limit < len(candidates) {
			candidates = candidates[:limit]
		}

		matches := make([]map[string]any, 0, len(candidates))
		for _, c := range candidates {
			b := c.branch
			entry := map[string]any{
				"id":      b.ID,
				"name":    b.Name,
				"city":    b.City,
				"pincode": b.Pincode,
				"lat":     b.Lat,
				"lon":     b.Lon,
				"phone":   b.Phone,
			}
			if hasLat && hasLon {
				entry["distance_km"] = c.distance
			}
			matches = append(matches, entry)
		}

		return Result{Content: []Content{{
			Type: ContentJSON,
			JSON: map[string]any{"branches": matches},
		}}}, nil
	}
}

// earthRadiusKm is the mean Earth radius used for the haversine distance.
const earthRadiusKm = 6371.0

// haversineKm returns the great-circle distance in kilometers between two
// lat/lon points given in degrees.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}
