package influxdb

import (
	"context"
	"time"

	"github.com/nerrad567/pgcore/internal/infrastructure/database"
)

// PoolStatsWriter records pool samples. *Client implements it.
type PoolStatsWriter interface {
	WritePoolStats(dbName string, stats database.PoolStats, ts time.Time)
}

// ReportPoolStats samples source every interval and writes the sample
// until ctx is cancelled. It blocks; run it in its own goroutine.
func ReportPoolStats(ctx context.Context, w PoolStatsWriter, dbName string, interval time.Duration, source func() database.PoolStats) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			w.WritePoolStats(dbName, source(), now)
		}
	}
}
