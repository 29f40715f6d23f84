package models

// MetricsSnapshot is one periodic sample of process and service health.
// DeepEngineStatus is empty when no deep engine is configured.
type MetricsSnapshot struct {
	Timestamp        float64 `json:"timestamp"`
	CPUPercent       float64 `json:"cpu_percent"`
	MemoryMB         float64 `json:"memory_mb"`
	MemoryPercent    float64 `json:"memory_percent"`
	RequestCount     int64   `json:"request_count"`
	AvgLatency       float64 `json:"avg_latency"`
	ErrorRate        float64 `json:"error_rate"`
	EngineStatus     string  `json:"engine_status"`
	DeepEngineStatus string  `json:"deep_engine_status,omitempty"`
	SandboxStatus    string  `json:"sandbox_status"`
	RedisStatus      string  `json:"redis_status"`
}
