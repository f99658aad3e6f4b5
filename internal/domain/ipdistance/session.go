package ipdistance

import (
	"context"
	"errors"
	"time"
)

// SessionTTL 為 session 固定存活時間，建立後不可調整。
const SessionTTL = 60 * time.Minute

var (
	// ErrSessionNotFound 表示 session 不存在或已過期。
	ErrSessionNotFound = errors.New("session not found or expired")
	// ErrResolutionFailed 表示所有定位服務皆無法解析該 IP。
	ErrResolutionFailed = errors.New("failed to get IP information")
)

// GeoRecord 為單一 IP 的定位結果，掛到 session 後即不再變動。
type GeoRecord struct {
	IP          string  `json:"ip"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	City        string  `json:"city"`
	RegionName  string  `json:"regionName"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
}

// Session 紀錄一次雙人 IP 距離比對。
type Session struct {
	ID           string     `json:"id"`
	CreatedAt    time.Time  `json:"createdAt"`
	ExpiresAt    time.Time  `json:"expiresAt"`
	FirstIP      string     `json:"firstIP,omitempty"`
	SecondIP     string     `json:"secondIP,omitempty"`
	FirstIPInfo  *GeoRecord `json:"firstIPInfo,omitempty"`
	SecondIPInfo *GeoRecord `json:"secondIPInfo,omitempty"`
	Distance     *float64   `json:"distance,omitempty"`
}

// NewSession 建立尚無參與者的 session。
func NewSession(id string, now time.Time) Session {
	return Session{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: now.Add(SessionTTL),
	}
}

// Active 檢查 session 在 now 時是否仍有效；恰好等於 ExpiresAt 仍視為有效。
func (s Session) Active(now time.Time) bool {
	return !now.After(s.ExpiresAt)
}

// Complete 表示第二位參與者已登記且距離已算出。
func (s Session) Complete() bool {
	return s.SecondIP != "" && s.Distance != nil
}

// IsParticipant 判斷 ip 是否為已登記的兩位參與者之一。
func (s Session) IsParticipant(ip string) bool {
	if ip == "" {
		return false
	}
	return ip == s.FirstIP || ip == s.SecondIP
}

// Validate 檢查 session 欄位間的不變條件。
func (s Session) Validate() error {
	if s.SecondIP != "" && s.FirstIP == "" {
		return errors.New("second participant recorded without a first")
	}
	if s.SecondIP != "" && s.SecondIP == s.FirstIP {
		return errors.New("participants must be distinct")
	}
	if (s.FirstIP == "") != (s.FirstIPInfo == nil) {
		return errors.New("first participant and its geolocation must be set together")
	}
	if (s.SecondIP == "") != (s.SecondIPInfo == nil) {
		return errors.New("second participant and its geolocation must be set together")
	}
	if (s.Distance != nil) != (s.SecondIP != "") {
		return errors.New("distance must be set exactly when the second participant is recorded")
	}
	return nil
}

// SessionStore 負責 session 的建立、查詢與原子更新。
//
// Update 在單一 session 上序列化執行：apply 拿到的是目前最新紀錄的複本，
// 修改後整筆寫回；apply 回傳錯誤時不寫入並原樣回傳該錯誤。
type SessionStore interface {
	Create(ctx context.Context) (Session, error)
	Get(ctx context.Context, id string) (Session, error)
	Update(ctx context.Context, id string, apply func(*Session) error) (Session, error)
}

// Resolver 將 IP 解析為定位資料。
type Resolver interface {
	Resolve(ctx context.Context, ip string) (GeoRecord, error)
}
