package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/pgcore/internal/infrastructure/database"
)

// poolMeasurement is the measurement name of pool samples.
const poolMeasurement = "pgcore_pool"

// WritePoolStats records one pool sample for the named database. The
// write is non-blocking; data is batched and sent asynchronously.
func (c *Client) WritePoolStats(dbName string, stats database.PoolStats, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(poolStatsPoint(dbName, stats, ts))
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Example:
//
//	client.WritePoint("pgcore_sync",
//	    map[string]string{"database": "app", "alter": "true"},
//	    map[string]interface{}{"success": true, "statements": 12})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

// poolStatsPoint converts a pool sample into a point.
func poolStatsPoint(dbName string, stats database.PoolStats, ts time.Time) *write.Point {
	return write.NewPoint(
		poolMeasurement,
		map[string]string{
			"database": dbName,
		},
		map[string]interface{}{
			"total_conns":    stats.TotalConns,
			"acquired_conns": stats.AcquiredConns,
			"idle_conns":     stats.IdleConns,
			"max_conns":      stats.MaxConns,
		},
		ts,
	)
}
