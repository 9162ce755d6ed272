package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// RouteQuery filters journal reads
type RouteQuery struct {
	Limit      int
	Since      *time.Time
	Verb       string
	FailedOnly bool
}

// RouteStats summarizes the journal
type RouteStats struct {
	TotalApplies int        `json:"total_applies"`
	TotalFailed  int        `json:"total_failed"`
	Stored       int        `json:"stored"`
	LastCleanup  *time.Time `json:"last_cleanup,omitempty"`
}

// GetRoutes returns matching records, newest first
func (rs *RouteStore) GetRoutes(query RouteQuery) ([]RouteRecord, error) {
	var args []interface{}
	sqlQuery := `SELECT id, timestamp, verb, devices, status, error FROM route_history WHERE 1=1`

	if query.Since != nil {
		sqlQuery += " AND timestamp >= ?"
		args = append(args, query.Since.UTC())
	}
	if query.Verb != "" {
		sqlQuery += " AND verb = ?"
		args = append(args, query.Verb)
	}
	if query.FailedOnly {
		sqlQuery += " AND status != 0"
	}

	sqlQuery += " ORDER BY id DESC"
	if query.Limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, query.Limit)
	}

	rows, err := rs.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query routes: %w", err)
	}
	defer rows.Close()

	var records []RouteRecord
	for rows.Next() {
		var rec RouteRecord
		var devices string
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.Verb, &devices, &rec.Status, &rec.Error); err != nil {
			return nil, fmt.Errorf("failed to scan route: %w", err)
		}
		if devices != "" {
			rec.Devices = strings.Split(devices, deviceSeparator)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetRecentRoutes returns up to limit of the newest records
func (rs *RouteStore) GetRecentRoutes(limit int) ([]RouteRecord, error) {
	return rs.GetRoutes(RouteQuery{Limit: limit})
}

// GetStats returns journal statistics
func (rs *RouteStore) GetStats() (*RouteStats, error) {
	var stats RouteStats
	var lastCleanup sql.NullTime

	err := rs.db.QueryRow(
		`SELECT total_applies, total_failed, last_cleanup FROM route_stats WHERE id = 1`,
	).Scan(&stats.TotalApplies, &stats.TotalFailed, &lastCleanup)
	if err != nil {
		return nil, fmt.Errorf("failed to get route stats: %w", err)
	}
	if lastCleanup.Valid {
		stats.LastCleanup = &lastCleanup.Time
	}

	if err := rs.db.QueryRow("SELECT COUNT(*) FROM route_history").Scan(&stats.Stored); err != nil {
		return nil, fmt.Errorf("failed to count routes: %w", err)
	}

	return &stats, nil
}
