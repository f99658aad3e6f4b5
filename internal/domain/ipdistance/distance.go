package ipdistance

import "math"

// EarthRadiusKm 為 Haversine 使用的地球半徑。
const EarthRadiusKm = 6371.0

// Distance 以 Haversine 公式計算兩點大圓距離（公里，四捨五入至小數一位）。
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return math.Round(EarthRadiusKm*c*10) / 10
}

// DistanceBetween 計算兩筆定位資料間的距離。
func DistanceBetween(a, b GeoRecord) float64 {
	return Distance(a.Lat, a.Lon, b.Lat, b.Lon)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
