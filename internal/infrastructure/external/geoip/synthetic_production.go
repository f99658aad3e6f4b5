//go:build production

package geoip

import "ipcheck-tools/internal/domain/ipdistance"

const syntheticAvailable = false

func syntheticRecord(ip string) ipdistance.GeoRecord {
	panic("geoip: synthetic locations are not available in production builds")
}
