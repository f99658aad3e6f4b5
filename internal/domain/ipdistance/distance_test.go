package ipdistance

import (
	"math"
	"testing"
)

func TestDistance_QuarterGreatCircle(t *testing.T) {
	got := Distance(0, 0, 0, 90)
	if math.Abs(got-10007.5) > 0.1 {
		t.Fatalf("expected ~10007.5 km, got %v", got)
	}
}

func TestDistance_SamePointIsZero(t *testing.T) {
	points := [][2]float64{{0, 0}, {25.033, 121.5654}, {-33.8688, 151.2093}, {89.9, -179.9}}
	for _, p := range points {
		if d := Distance(p[0], p[1], p[0], p[1]); d != 0 {
			t.Errorf("distance(%v,%v) to itself = %v", p[0], p[1], d)
		}
	}
}

func TestDistance_Symmetric(t *testing.T) {
	cases := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
	}{
		{"TaipeiToLondon", 25.033, 121.5654, 51.5074, -0.1278},
		{"NewYorkToSydney", 40.7128, -74.006, -33.8688, 151.2093},
		{"AcrossDateLine", 10, 179.5, -10, -179.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ab := Distance(tc.lat1, tc.lon1, tc.lat2, tc.lon2)
			ba := Distance(tc.lat2, tc.lon2, tc.lat1, tc.lon1)
			if ab != ba {
				t.Errorf("expected symmetric distance, got %v and %v", ab, ba)
			}
			if ab <= 0 {
				t.Errorf("expected positive distance, got %v", ab)
			}
		})
	}
}

func TestDistance_RoundedToOneDecimal(t *testing.T) {
	d := Distance(25.033, 121.5654, 51.5074, -0.1278)
	if math.Abs(d*10-math.Round(d*10)) > 1e-6 {
		t.Errorf("expected one decimal place, got %v", d)
	}
	// Taipei-London is roughly 9,780 km.
	if d < 9700 || d > 9850 {
		t.Errorf("unexpected Taipei-London distance %v", d)
	}
}

func TestDistanceBetween(t *testing.T) {
	a := GeoRecord{IP: "1.1.1.1", Lat: 0, Lon: 0}
	b := GeoRecord{IP: "2.2.2.2", Lat: 0, Lon: 90}
	if DistanceBetween(a, b) != Distance(0, 0, 0, 90) {
		t.Error("DistanceBetween should match Distance")
	}
}
