package influxdb

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/pgcore/internal/infrastructure/config"
	"github.com/nerrad567/pgcore/internal/infrastructure/database"
)

func TestPoolStatsPoint(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	p := poolStatsPoint("app", database.PoolStats{TotalConns: 4, AcquiredConns: 1, IdleConns: 3, MaxConns: 10}, ts)

	line := write.PointToLineProtocol(p, time.Second)
	if !strings.HasPrefix(line, "pgcore_pool,database=app ") {
		t.Errorf("line = %q, want pgcore_pool tagged with database", line)
	}
	for _, field := range []string{"total_conns=4i", "acquired_conns=1i", "idle_conns=3i", "max_conns=10i"} {
		if !strings.Contains(line, field) {
			t.Errorf("line = %q, missing %s", line, field)
		}
	}
	if !strings.HasSuffix(strings.TrimSpace(line), " 1700000000") {
		t.Errorf("line = %q, want timestamp 1700000000", line)
	}
}

func TestBatchSettings(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.InfluxDBConfig
		wantBatch int
		wantFlush int
	}{
		{"configured", config.InfluxDBConfig{BatchSize: 50, FlushInterval: 2}, 50, 2},
		{"zero uses defaults", config.InfluxDBConfig{}, defaultBatchSize, defaultFlushInterval},
		{"negative uses defaults", config.InfluxDBConfig{BatchSize: -1, FlushInterval: -5}, defaultBatchSize, defaultFlushInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, flush := batchSettings(tt.cfg)
			if batch != tt.wantBatch || flush != tt.wantFlush {
				t.Errorf("batchSettings() = %d, %d, want %d, %d", batch, flush, tt.wantBatch, tt.wantFlush)
			}
		})
	}
}

func TestConnect_Disabled(t *testing.T) {
	if _, err := Connect(config.InfluxDBConfig{Enabled: false}); err != ErrDisabled {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestClose_Nil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
}

func TestWrites_DisconnectedNoop(t *testing.T) {
	client := &Client{}
	// A nil writeAPI would panic if either write reached it.
	client.WritePoolStats("app", database.PoolStats{}, time.Now())
	client.WritePoint("m", nil, map[string]interface{}{"v": 1})
	client.Flush()
}

// recordingWriter captures samples.
type recordingWriter struct {
	mu      sync.Mutex
	samples []database.PoolStats
	names   []string
}

func (w *recordingWriter) WritePoolStats(dbName string, stats database.PoolStats, _ time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.samples = append(w.samples, stats)
	w.names = append(w.names, dbName)
}

func (w *recordingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.samples)
}

func TestReportPoolStats(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := &recordingWriter{}
	done := make(chan struct{})

	go func() {
		defer close(done)
		ReportPoolStats(ctx, w, "app", 5*time.Millisecond, func() database.PoolStats {
			return database.PoolStats{MaxConns: 10}
		})
	}()

	deadline := time.Now().Add(2 * time.Second)
	for w.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ReportPoolStats did not return after cancel")
	}

	if w.count() < 2 {
		t.Fatalf("samples = %d, want at least 2", w.count())
	}
	if w.names[0] != "app" || w.samples[0].MaxConns != 10 {
		t.Errorf("first sample = %s %+v", w.names[0], w.samples[0])
	}
}
