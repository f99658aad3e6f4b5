package ipdistance

import "time"

// ComparisonResult 為完成比對後的統計紀錄，刻意不含 IP。
type ComparisonResult struct {
	SessionID         string
	FirstCity         string
	FirstCountryCode  string
	SecondCity        string
	SecondCountryCode string
	DistanceKm        float64
	CompletedAt       time.Time
}

// ResultFromSession 由已完成的 session 建立統計紀錄；未完成時 ok 為 false。
func ResultFromSession(s Session, completedAt time.Time) (ComparisonResult, bool) {
	if !s.Complete() || s.FirstIPInfo == nil || s.SecondIPInfo == nil {
		return ComparisonResult{}, false
	}
	return ComparisonResult{
		SessionID:         s.ID,
		FirstCity:         s.FirstIPInfo.City,
		FirstCountryCode:  s.FirstIPInfo.CountryCode,
		SecondCity:        s.SecondIPInfo.City,
		SecondCountryCode: s.SecondIPInfo.CountryCode,
		DistanceKm:        *s.Distance,
		CompletedAt:       completedAt,
	}, true
}
