package metrics

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/archive-ai/brain/pkg/models"
)

const (
	historyKey      = "metrics:history"
	maxSnapshots    = 1000
	probeTimeout    = 2 * time.Second
	defaultInterval = 30 * time.Second
)

// Prober is a health check against a dependent service; the engine and
// sandbox clients satisfy it.
type Prober interface {
	Health(ctx context.Context) error
}

// Collector samples process stats, request stats, and dependency health on
// an interval, mirroring snapshots into a Redis sorted set.
type Collector struct {
	rdb        *redis.Client
	recorder   *Recorder
	engine     Prober
	deepEngine Prober
	sandbox    Prober
	interval   time.Duration
	proc       *process.Process

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewCollector creates a collector. engine and sandbox may be nil when the
// service is not configured; their status reports "unknown". deepEngine nil
// means no deep engine is deployed and its status is omitted from
// snapshots. interval <= 0 uses the 30s default.
func NewCollector(rdb *redis.Client, recorder *Recorder, engine, deepEngine, sandbox Prober, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = defaultInterval
	}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		slog.Warn("Process metrics unavailable", "error", err)
	}
	return &Collector{
		rdb:        rdb,
		recorder:   recorder,
		engine:     engine,
		deepEngine: deepEngine,
		sandbox:    sandbox,
		interval:   interval,
		proc:       proc,
		stopCh:     make(chan struct{}),
	}
}

// Start launches the background sampling loop.
func (c *Collector) Start() {
	c.wg.Add(1)
	go c.run()
	slog.Info("Metrics collector started", "interval", c.interval)
}

// Stop signals the loop to exit and waits for it to finish.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
	slog.Info("Metrics collector stopped")
}

func (c *Collector) run() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.interval)
			snapshot := c.Collect(ctx)
			if err := c.store(ctx, snapshot); err != nil {
				slog.Warn("Failed to store metrics snapshot", "error", err)
			}
			cancel()
		}
	}
}

// Collect samples one snapshot without storing it.
func (c *Collector) Collect(ctx context.Context) models.MetricsSnapshot {
	snapshot := models.MetricsSnapshot{
		Timestamp:     float64(time.Now().UnixNano()) / 1e9,
		EngineStatus:  c.probe(ctx, c.engine),
		SandboxStatus: c.probe(ctx, c.sandbox),
		RedisStatus:   c.redisStatus(ctx),
	}
	if c.deepEngine != nil {
		snapshot.DeepEngineStatus = c.probe(ctx, c.deepEngine)
	}

	if c.proc != nil {
		if cpu, err := c.proc.CPUPercentWithContext(ctx); err == nil {
			snapshot.CPUPercent = cpu
		}
		if mem, err := c.proc.MemoryInfoWithContext(ctx); err == nil {
			snapshot.MemoryMB = float64(mem.RSS) / 1024 / 1024
		}
		if pct, err := c.proc.MemoryPercentWithContext(ctx); err == nil {
			snapshot.MemoryPercent = float64(pct)
		}
	}

	snapshot.RequestCount, snapshot.AvgLatency, snapshot.ErrorRate = c.recorder.Snapshot()
	return snapshot
}

func (c *Collector) probe(ctx context.Context, p Prober) string {
	if p == nil {
		return "unknown"
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := p.Health(ctx); err != nil {
		return "unhealthy"
	}
	return "healthy"
}

func (c *Collector) redisStatus(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return "unhealthy"
	}
	return "healthy"
}

// store appends the snapshot to the history ZSET and trims it to
// maxSnapshots members.
func (c *Collector) store(ctx context.Context, snapshot models.MetricsSnapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	if err := c.rdb.ZAdd(ctx, historyKey, redis.Z{
		Score:  snapshot.Timestamp,
		Member: string(raw),
	}).Err(); err != nil {
		return err
	}
	return c.rdb.ZRemRangeByRank(ctx, historyKey, 0, int64(-(maxSnapshots + 1))).Err()
}

// History returns the snapshots recorded over the last N hours, oldest
// first.
func (c *Collector) History(ctx context.Context, hours int) ([]models.MetricsSnapshot, error) {
	if hours < 1 {
		hours = 1
	}
	if hours > 24 {
		hours = 24
	}
	now := float64(time.Now().UnixNano()) / 1e9
	start := now - float64(hours)*3600

	raw, err := c.rdb.ZRangeByScore(ctx, historyKey, &redis.ZRangeBy{
		Min: strconv.FormatFloat(start, 'f', -1, 64),
		Max: strconv.FormatFloat(now, 'f', -1, 64),
	}).Result()
	if err != nil {
		return nil, err
	}

	snapshots := make([]models.MetricsSnapshot, 0, len(raw))
	for _, item := range raw {
		var snapshot models.MetricsSnapshot
		if err := json.Unmarshal([]byte(item), &snapshot); err != nil {
			continue
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}
