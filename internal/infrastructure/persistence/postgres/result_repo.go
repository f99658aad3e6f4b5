package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	domain "ipcheck-tools/internal/domain/ipdistance"
)

// ResultRepo 保存已完成的 IP 距離比對結果，僅供統計使用。
type ResultRepo struct {
	db *sql.DB
}

// NewResultRepo 建立 ResultRepo。
func NewResultRepo(db *sql.DB) *ResultRepo {
	return &ResultRepo{db: db}
}

// SaveResult 寫入一筆比對結果；同一 session 重複寫入時忽略。
func (r *ResultRepo) SaveResult(ctx context.Context, res domain.ComparisonResult) error {
	const q = `
INSERT INTO ipdistance_results (session_id, first_city, first_country_code, second_city, second_country_code, distance_km, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (session_id) DO NOTHING;
`
	if _, err := r.db.ExecContext(ctx, q,
		res.SessionID,
		res.FirstCity,
		res.FirstCountryCode,
		res.SecondCity,
		res.SecondCountryCode,
		res.DistanceKm,
		res.CompletedAt,
	); err != nil {
		return fmt.Errorf("insert ipdistance result: %w", err)
	}
	return nil
}

// Stats 為比對結果的彙總。
type Stats struct {
	Total         int64    `json:"total"`
	AvgDistanceKm *float64 `json:"avg_distance_km"`
	MaxDistanceKm *float64 `json:"max_distance_km"`
}

// Stats 回傳 since 之後完成的比對統計；since 為零值時統計全部。
func (r *ResultRepo) Stats(ctx context.Context, since time.Time) (Stats, error) {
	const q = `
SELECT COUNT(*), AVG(distance_km), MAX(distance_km)
FROM ipdistance_results
WHERE completed_at >= $1;
`
	var (
		out          Stats
		avg, maxDist sql.NullFloat64
	)
	if err := r.db.QueryRowContext(ctx, q, since).Scan(&out.Total, &avg, &maxDist); err != nil {
		return Stats{}, fmt.Errorf("query ipdistance stats: %w", err)
	}
	if avg.Valid {
		out.AvgDistanceKm = &avg.Float64
	}
	if maxDist.Valid {
		out.MaxDistanceKm = &maxDist.Float64
	}
	return out, nil
}

// TopCountryPairs 回傳最常出現的國家組合。
func (r *ResultRepo) TopCountryPairs(ctx context.Context, limit int) ([]CountryPair, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `
SELECT first_country_code, second_country_code, COUNT(*) AS cnt
FROM ipdistance_results
GROUP BY first_country_code, second_country_code
ORDER BY cnt DESC, first_country_code, second_country_code
LIMIT $1;
`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query country pairs: %w", err)
	}
	defer rows.Close()

	var out []CountryPair
	for rows.Next() {
		var p CountryPair
		if err := rows.Scan(&p.First, &p.Second, &p.Count); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountryPair 為一組國家代碼與出現次數。
type CountryPair struct {
	First  string `json:"first"`
	Second string `json:"second"`
	Count  int64  `json:"count"`
}
