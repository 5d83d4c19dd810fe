package ers

import "math"

// chronobiologicalOverlap compares two 24-slot hourly activity arrays as the
// ratio of per-hour minima to per-hour maxima. Identical schedules score 1,
// disjoint schedules score 0, and an unknown schedule on either side defaults.
func chronobiologicalOverlap(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return defaultComponent
	}
	var sumMin, sumMax float64
	for i := range a {
		sumMin += math.Min(a[i], b[i])
		sumMax += math.Max(a[i], b[i])
	}
	if sumMax == 0 {
		return defaultComponent
	}
	return sumMin / sumMax
}

// depthAlignment rewards closeness of depth-seeking scores: equal depths
// score 1 and a gap of 0.5 or more scores 0.
func depthAlignment(a, b float64) float64 {
	return math.Max(0, 1-2*math.Abs(a-b))
}

// haversineKM returns the great-circle distance between two coordinates.
func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKM = 6371.0
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(h))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
