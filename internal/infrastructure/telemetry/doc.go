// Package telemetry provides InfluxDB connectivity for ScreenPilot.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, non-blocking metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Perception cycle timings and tier hit rates
//   - Per-template sighting scores
//   - Policy run statistics
//
// # Usage
//
//	cfg := config.TelemetryConfig{
//	    Enabled: true,
//	    URL:     "http://localhost:8086",
//	    Token:   "your-token",
//	    Org:     "screenpilot",
//	    Bucket:  "metrics",
//	}
//
//	client, err := telemetry.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	svc.SetRecorder(client)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// RecordCycle is called on the tracking hot path and never blocks.
package telemetry
