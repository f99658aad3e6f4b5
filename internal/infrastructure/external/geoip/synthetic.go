//go:build !production

package geoip

import (
	"ipcheck-tools/internal/domain/ipdistance"

	"github.com/brianvoe/gofakeit/v6"
)

const syntheticAvailable = true

func syntheticRecord(ip string) ipdistance.GeoRecord {
	return ipdistance.GeoRecord{
		IP:          ip,
		Lat:         gofakeit.Latitude(),
		Lon:         gofakeit.Longitude(),
		City:        "Unknown City",
		RegionName:  "Unknown Region",
		Country:     "Unknown Country",
		CountryCode: "XX",
	}
}
